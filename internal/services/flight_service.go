package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"flight_sim/internal/database"
	"flight_sim/internal/metrics"
	"flight_sim/internal/models"
	"flight_sim/internal/reference"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CatalogOptions configures a FlightCatalog. Zero values fall back to defaults.
type CatalogOptions struct {
	Cache            database.SearchCache
	Rand             *rand.Rand
	Now              func() time.Time
	DelayProbability float64
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
}

// FlightCatalog is the in-memory flight store
type FlightCatalog struct {
	mu      sync.RWMutex
	flights map[string]*models.Flight
	// flights that already had their pre-departure delay roll
	delayRolled map[string]bool
	rng         *rand.Rand // guarded by mu

	ref              *reference.Data
	cache            database.SearchCache
	searchGroup      singleflight.Group
	delayProbability float64
	now              func() time.Time
	logger           *zap.Logger
	metrics          *metrics.Metrics
}

// NewFlightCatalog creates a catalog holding the given flights
func NewFlightCatalog(ref *reference.Data, flights []models.Flight, opts CatalogOptions) *FlightCatalog {
	if opts.Cache == nil {
		opts.Cache = database.NoopSearchCache{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fc := &FlightCatalog{
		flights:          make(map[string]*models.Flight, len(flights)),
		delayRolled:      make(map[string]bool),
		rng:              opts.Rand,
		ref:              ref,
		cache:            opts.Cache,
		delayProbability: opts.DelayProbability,
		now:              opts.Now,
		logger:           opts.Logger.Named("catalog"),
		metrics:          opts.Metrics,
	}
	for i := range flights {
		f := flights[i]
		fc.flights[f.FlightID] = &f
	}
	fc.metrics.SetFlights(len(fc.flights))
	return fc
}

// Reference returns the reference data the catalog was built with
func (fc *FlightCatalog) Reference() *reference.Data {
	return fc.ref
}

// Now returns the catalog clock
func (fc *FlightCatalog) Now() time.Time {
	return fc.now()
}

// Count returns the number of flights held
func (fc *FlightCatalog) Count() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.flights)
}

// Search returns the flights of a route on a date with enough seats in the class, by departure
func (fc *FlightCatalog) Search(ctx context.Context, origin, destination, date string, passengers int, class models.SeatClass) ([]models.Flight, error) {
	const op = "search flights"

	origin, destination = strings.ToUpper(strings.TrimSpace(origin)), strings.ToUpper(strings.TrimSpace(destination))
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	if passengers < 1 {
		return nil, models.NewError(models.KindValidation, op, "passenger count must be at least 1")
	}
	if !class.IsValid() {
		return nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid seat class %q", class))
	}

	ids, err := fc.candidateIDs(ctx, origin, destination, date)
	if err != nil {
		return nil, fmt.Errorf("failed to search flights: %w", err)
	}

	fc.mu.RLock()
	results := make([]models.Flight, 0, len(ids))
	for _, id := range ids {
		f, ok := fc.flights[id]
		if !ok || f.Origin != origin || f.Destination != destination || f.DepartureDate() != date {
			continue
		}
		if f.CanBook(class, passengers) {
			results = append(results, *f)
		}
	}
	fc.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Departure.Before(results[j].Departure)
	})
	return results, nil
}

// candidateIDs returns the ids of a route/date from the cache, scanning the store on a miss
func (fc *FlightCatalog) candidateIDs(ctx context.Context, origin, destination, date string) ([]string, error) {
	cacheKey := database.GenerateSearchCacheKey(origin, destination, date)

	ids, err := fc.cache.GetFlightIDs(ctx, cacheKey)
	switch {
	case err == nil:
		fc.metrics.CacheResult("hit")
		fc.logger.Debug("Cache hit for search key", zap.String("key", cacheKey))
		return ids, nil
	case errors.Is(err, database.ErrCacheMiss):
		fc.metrics.CacheResult("miss")
	default:
		fc.metrics.CacheResult("error")
		fc.logger.Warn("Search cache lookup failed", zap.String("key", cacheKey), zap.Error(err))
	}

	// Cache miss - use singleflight to prevent stampede
	v, err, _ := fc.searchGroup.Do(cacheKey, func() (interface{}, error) {
		return fc.scanRoute(origin, destination, date), nil
	})
	if err != nil {
		return nil, err
	}
	ids = v.([]string)

	if err := fc.cache.SetFlightIDs(ctx, cacheKey, ids); err != nil {
		fc.logger.Warn("Failed to cache search results", zap.String("key", cacheKey), zap.Error(err))
	}
	return ids, nil
}

func (fc *FlightCatalog) scanRoute(origin, destination, date string) []string {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	ids := make([]string, 0, 8)
	for id, f := range fc.flights {
		if f.Origin == origin && f.Destination == destination && f.DepartureDate() == date {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Get returns a snapshot of a flight
func (fc *FlightCatalog) Get(flightID string) (models.Flight, error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	f, ok := fc.flights[flightID]
	if !ok {
		return models.Flight{}, models.NotFound("get flight", "Flight", flightID)
	}
	return *f, nil
}

// FindByNumber returns the flight with a flight number departing on date
func (fc *FlightCatalog) FindByNumber(flightNumber, date string) (models.Flight, error) {
	const op = "find flight"
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.Flight{}, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	flightNumber = strings.ToUpper(strings.TrimSpace(flightNumber))

	fc.mu.RLock()
	defer fc.mu.RUnlock()

	var found *models.Flight
	for _, f := range fc.flights {
		if f.FlightNumber == flightNumber && f.DepartureDate() == date {
			if found == nil || f.Departure.Before(found.Departure) {
				found = f
			}
		}
	}
	if found == nil {
		return models.Flight{}, models.NotFound(op, "Flight", flightNumber+" on "+date)
	}
	return *found, nil
}

// FlightsByNumber returns every flight with a flight number, by departure
func (fc *FlightCatalog) FlightsByNumber(flightNumber string) []models.Flight {
	flightNumber = strings.ToUpper(strings.TrimSpace(flightNumber))

	fc.mu.RLock()
	var out []models.Flight
	for _, f := range fc.flights {
		if f.FlightNumber == flightNumber {
			out = append(out, *f)
		}
	}
	fc.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Departure.Before(out[j].Departure) })
	return out
}

// All returns every flight, by departure
func (fc *FlightCatalog) All() []models.Flight {
	fc.mu.RLock()
	out := make([]models.Flight, 0, len(fc.flights))
	for _, f := range fc.flights {
		out = append(out, *f)
	}
	fc.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Departure.Equal(out[j].Departure) {
			return out[i].FlightID < out[j].FlightID
		}
		return out[i].Departure.Before(out[j].Departure)
	})
	return out
}

// UpdateStatus sets the status of a flight. DELAYED pushes both times by 15 to 120 minutes.
func (fc *FlightCatalog) UpdateStatus(ctx context.Context, flightID string, status models.FlightStatus) (models.Flight, error) {
	fc.mu.Lock()
	f, ok := fc.flights[flightID]
	if !ok {
		fc.mu.Unlock()
		return models.Flight{}, models.NotFound("update flight status", "Flight", flightID)
	}

	var stale []string
	f.Status = status
	if status == models.FlightStatusDelayed {
		delay := time.Duration(15+fc.rng.Intn(106)) * time.Minute
		stale = fc.shiftLocked(f, delay)
	}
	snapshot := *f
	fc.mu.Unlock()

	fc.invalidate(ctx, stale)
	fc.metrics.StatusChanged(string(status))
	fc.logger.Info("Flight status updated",
		zap.String("flight_id", flightID),
		zap.String("status", string(status)),
		zap.Time("departure", snapshot.Departure))
	return snapshot, nil
}

// DecrementSeats takes count seats of a class from a flight
func (fc *FlightCatalog) DecrementSeats(flightID string, class models.SeatClass, count int) error {
	if count <= 0 {
		return models.NewError(models.KindValidation, "decrement seats", "seat count must be positive")
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.adjustSeatsLocked(flightID, class, -count)
}

// IncrementSeats returns count seats of a class to a flight
func (fc *FlightCatalog) IncrementSeats(flightID string, class models.SeatClass, count int) error {
	if count <= 0 {
		return models.NewError(models.KindValidation, "increment seats", "seat count must be positive")
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.adjustSeatsLocked(flightID, class, count)
}

// adjustSeatsLocked requires fc.mu held for writing
func (fc *FlightCatalog) adjustSeatsLocked(flightID string, class models.SeatClass, delta int) error {
	f, ok := fc.flights[flightID]
	if !ok {
		return models.NotFound("adjust seats", "Flight", flightID)
	}
	if err := f.AvailableSeats.Adjust(class, delta); err != nil {
		return err
	}
	fc.logger.Debug("Adjusted seats",
		zap.String("flight_id", flightID),
		zap.String("seat_class", string(class)),
		zap.Int("delta", delta))
	return nil
}

// getLocked requires fc.mu held
func (fc *FlightCatalog) getLocked(flightID string) (*models.Flight, bool) {
	f, ok := fc.flights[flightID]
	return f, ok
}

// AdvanceFlight recomputes the status of one flight relative to now
func (fc *FlightCatalog) AdvanceFlight(ctx context.Context, flightID string, now time.Time) (models.Tracking, error) {
	fc.mu.Lock()
	f, ok := fc.flights[flightID]
	if !ok {
		fc.mu.Unlock()
		return models.Tracking{}, models.NotFound("advance flight", "Flight", flightID)
	}
	before := f.Status
	stale := fc.advanceLocked(f, now)
	tracking := models.Tracking{
		Flight:             *f,
		ProgressPercentage: progress(f, now),
		LastUpdated:        now,
	}
	fc.mu.Unlock()

	fc.invalidate(ctx, stale)
	if tracking.Flight.Status != before {
		fc.metrics.StatusChanged(string(tracking.Flight.Status))
	}
	return tracking, nil
}

// AdvanceSimulatedState recomputes the status of every flight and returns how many changed
func (fc *FlightCatalog) AdvanceSimulatedState(ctx context.Context, now time.Time) int {
	var (
		stale   []string
		changed []models.FlightStatus
	)

	fc.mu.Lock()
	for _, f := range fc.flights {
		before := f.Status
		stale = append(stale, fc.advanceLocked(f, now)...)
		if f.Status != before {
			changed = append(changed, f.Status)
		}
	}
	fc.mu.Unlock()

	fc.invalidate(ctx, stale)
	for _, status := range changed {
		fc.metrics.StatusChanged(string(status))
	}
	if len(changed) > 0 {
		fc.logger.Debug("Advanced simulated state", zap.Int("changed", len(changed)), zap.Time("now", now))
	}
	return len(changed)
}

// advanceLocked applies the time rules to f and returns stale cache keys. Requires fc.mu held for writing.
func (fc *FlightCatalog) advanceLocked(f *models.Flight, now time.Time) []string {
	switch f.Status {
	case models.FlightStatusCancelled, models.FlightStatusDiverted:
		return nil
	}

	switch {
	case !now.Before(f.Arrival.Add(time.Hour)):
		f.Status = models.FlightStatusArrived
	case !now.Before(f.Arrival):
		f.Status = models.FlightStatusLanded
	case !now.Before(f.Departure):
		f.Status = models.FlightStatusInFlight
	case !now.Before(f.Departure.Add(-30 * time.Minute)):
		f.Status = models.FlightStatusBoarding
	case !now.Before(f.Departure.Add(-2 * time.Hour)):
		if fc.delayRolled[f.FlightID] {
			return nil
		}
		fc.delayRolled[f.FlightID] = true
		if fc.rng.Float64() < fc.delayProbability {
			f.Status = models.FlightStatusDelayed
			delay := time.Duration(15+fc.rng.Intn(46)) * time.Minute
			return fc.shiftLocked(f, delay)
		}
	}
	return nil
}

// shiftLocked moves both times of f and returns the cache keys for the old and new dates
func (fc *FlightCatalog) shiftLocked(f *models.Flight, delay time.Duration) []string {
	oldDate := f.DepartureDate()
	f.Departure = f.Departure.Add(delay)
	f.Arrival = f.Arrival.Add(delay)
	keys := []string{database.GenerateSearchCacheKey(f.Origin, f.Destination, oldDate)}
	if newDate := f.DepartureDate(); newDate != oldDate {
		keys = append(keys, database.GenerateSearchCacheKey(f.Origin, f.Destination, newDate))
	}
	return keys
}

func (fc *FlightCatalog) invalidate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := fc.cache.Invalidate(ctx, keys...); err != nil {
		fc.logger.Warn("Failed to invalidate search cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

// progress is the share of the block time flown, 0 to 100
func progress(f *models.Flight, now time.Time) float64 {
	switch f.Status {
	case models.FlightStatusLanded, models.FlightStatusArrived:
		return 100
	case models.FlightStatusInFlight:
		total := f.Arrival.Sub(f.Departure)
		if total <= 0 {
			return 100
		}
		pct := float64(now.Sub(f.Departure)) / float64(total) * 100
		if pct < 0 {
			return 0
		}
		if pct > 100 {
			return 100
		}
		return pct
	}
	return 0
}
