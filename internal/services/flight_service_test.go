package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"flight_sim/internal/database"
	"flight_sim/internal/models"
	"flight_sim/internal/reference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchFixtureFlights() []models.Flight {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	late := testFlight("UA300-20250310-0", "SFO", "JFK", day.Add(15*time.Hour))
	early := testFlight("DL120-20250310-1", "SFO", "JFK", day.Add(9*time.Hour))
	soldOut := testFlight("AA450-20250310-2", "SFO", "JFK", day.Add(12*time.Hour))
	soldOut.AvailableSeats.Economy = 0
	nextDay := testFlight("UA301-20250311-0", "SFO", "JFK", day.Add(33*time.Hour))
	reverse := testFlight("UA300R-20250310-0", "JFK", "SFO", day.Add(22*time.Hour))
	otherRoute := testFlight("WN200-20250310-0", "SFO", "LAX", day.Add(10*time.Hour))
	return []models.Flight{late, early, soldOut, nextDay, reverse, otherRoute}
}

func ids(flights []models.Flight) []string {
	out := make([]string, len(flights))
	for i, f := range flights {
		out[i] = f.FlightID
	}
	return out
}

func TestSearchFiltersAndOrders(t *testing.T) {
	fx := newFixture(t, false, searchFixtureFlights()...)

	got, err := fx.catalog.Search(context.Background(), "SFO", "JFK", "2025-03-10", 1, models.SeatClassEconomy)
	require.NoError(t, err)
	assert.Equal(t, []string{"DL120-20250310-1", "UA300-20250310-0"}, ids(got))

	// lower case codes match too
	got, err = fx.catalog.Search(context.Background(), "sfo", "jfk", "2025-03-10", 1, models.SeatClassEconomy)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// business has 5 seats per fixture flight, including the economy sold out one
	got, err = fx.catalog.Search(context.Background(), "SFO", "JFK", "2025-03-10", 5, models.SeatClassBusiness)
	require.NoError(t, err)
	assert.Equal(t, []string{"DL120-20250310-1", "AA450-20250310-2", "UA300-20250310-0"}, ids(got))

	got, err = fx.catalog.Search(context.Background(), "SFO", "JFK", "2025-03-10", 6, models.SeatClassBusiness)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchValidation(t *testing.T) {
	fx := newFixture(t, false, searchFixtureFlights()...)
	ctx := context.Background()

	tests := []struct {
		name       string
		date       string
		passengers int
		class      models.SeatClass
	}{
		{"bad date", "10/03/2025", 1, models.SeatClassEconomy},
		{"no passengers", "2025-03-10", 0, models.SeatClassEconomy},
		{"unknown class", "2025-03-10", 1, models.SeatClass("coach")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.catalog.Search(ctx, "SFO", "JFK", tt.date, tt.passengers, tt.class)
			assert.True(t, models.IsKind(err, models.KindValidation), "got %v", err)
		})
	}
}

func TestSearchUsesCacheButLiveSeats(t *testing.T) {
	ref, err := reference.Load()
	require.NoError(t, err)
	cache := database.NewMemorySearchCache(time.Hour)
	catalog := NewFlightCatalog(ref, searchFixtureFlights(), CatalogOptions{Cache: cache, Rand: rand.New(rand.NewSource(1))})
	ctx := context.Background()

	_, err = catalog.Search(ctx, "SFO", "JFK", "2025-03-10", 1, models.SeatClassEconomy)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	cached, err := cache.GetFlightIDs(ctx, database.GenerateSearchCacheKey("SFO", "JFK", "2025-03-10"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"UA300-20250310-0", "DL120-20250310-1", "AA450-20250310-2"}, cached)

	require.NoError(t, catalog.DecrementSeats("DL120-20250310-1", models.SeatClassEconomy, 50))

	got, err := catalog.Search(ctx, "SFO", "JFK", "2025-03-10", 1, models.SeatClassEconomy)
	require.NoError(t, err)
	assert.Equal(t, []string{"UA300-20250310-0"}, ids(got))
}

func TestGetFlight(t *testing.T) {
	fx := newFixture(t, false, searchFixtureFlights()...)

	f, err := fx.catalog.Get("UA300-20250310-0")
	require.NoError(t, err)
	assert.Equal(t, "UA300", f.FlightNumber)

	_, err = fx.catalog.Get("XX000-20250310-0")
	assert.True(t, models.IsKind(err, models.KindNotFound))
	assert.Equal(t, "Flight XX000-20250310-0 not found", models.ErrorMessage(err))
}

func TestFindByNumber(t *testing.T) {
	fx := newFixture(t, false, searchFixtureFlights()...)

	f, err := fx.catalog.FindByNumber("ua300", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, "UA300-20250310-0", f.FlightID)

	_, err = fx.catalog.FindByNumber("UA300", "2025-03-11")
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = fx.catalog.FindByNumber("UA300", "tomorrow")
	assert.True(t, models.IsKind(err, models.KindValidation))

	assert.Len(t, fx.catalog.FlightsByNumber("UA300"), 1)
}

func TestUpdateStatusDelayShiftsTimes(t *testing.T) {
	fx := newFixture(t, false, searchFixtureFlights()...)
	before, err := fx.catalog.Get("UA300-20250310-0")
	require.NoError(t, err)

	after, err := fx.catalog.UpdateStatus(context.Background(), "UA300-20250310-0", models.FlightStatusDelayed)
	require.NoError(t, err)
	assert.Equal(t, models.FlightStatusDelayed, after.Status)

	shift := after.Departure.Sub(before.Departure)
	assert.GreaterOrEqual(t, shift, 15*time.Minute)
	assert.LessOrEqual(t, shift, 120*time.Minute)
	assert.Equal(t, shift, after.Arrival.Sub(before.Arrival))

	boarding, err := fx.catalog.UpdateStatus(context.Background(), "UA300-20250310-0", models.FlightStatusBoarding)
	require.NoError(t, err)
	assert.Equal(t, after.Departure, boarding.Departure)
}

func TestUpdateStatusUnknownFlightChangesNothing(t *testing.T) {
	fx := newFixture(t, false, searchFixtureFlights()...)
	before := fx.catalog.All()

	_, err := fx.catalog.UpdateStatus(context.Background(), "missing", models.FlightStatusCancelled)
	assert.True(t, models.IsKind(err, models.KindNotFound))
	assert.Equal(t, before, fx.catalog.All())
}

func TestSeatCounters(t *testing.T) {
	fx := newFixture(t, false, searchFixtureFlights()...)
	id := "UA300-20250310-0"

	require.NoError(t, fx.catalog.DecrementSeats(id, models.SeatClassFirst, 2))
	assert.Equal(t, 0, fx.seatsOf(t, id).First)

	err := fx.catalog.DecrementSeats(id, models.SeatClassFirst, 1)
	assert.True(t, models.IsKind(err, models.KindInsufficientInventory))
	assert.Equal(t, 0, fx.seatsOf(t, id).First)

	require.NoError(t, fx.catalog.IncrementSeats(id, models.SeatClassFirst, 1))
	assert.Equal(t, 1, fx.seatsOf(t, id).First)

	assert.True(t, models.IsKind(fx.catalog.DecrementSeats(id, models.SeatClassFirst, 0), models.KindValidation))
	assert.True(t, models.IsKind(fx.catalog.IncrementSeats("missing", models.SeatClassFirst, 1), models.KindNotFound))
	fx.requireSeatInvariant(t)
}

func TestAdvanceFlightRules(t *testing.T) {
	departure := testNow.Add(48 * time.Hour)
	arrival := departure.Add(5*time.Hour + 30*time.Minute)

	tests := []struct {
		name   string
		now    time.Time
		status models.FlightStatus
	}{
		{"far out", departure.Add(-5 * time.Hour), models.FlightStatusScheduled},
		{"delay window without delay", departure.Add(-time.Hour), models.FlightStatusScheduled},
		{"boarding", departure.Add(-20 * time.Minute), models.FlightStatusBoarding},
		{"in flight", departure.Add(time.Hour), models.FlightStatusInFlight},
		{"landed", arrival.Add(10 * time.Minute), models.FlightStatusLanded},
		{"arrived", arrival.Add(time.Hour), models.FlightStatusArrived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, false, testFlight("UA100-20250303-0", "SFO", "JFK", departure))

			tracking, err := fx.catalog.AdvanceFlight(context.Background(), "UA100-20250303-0", tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.status, tracking.Flight.Status)
			assert.Equal(t, departure, tracking.Flight.Departure)
		})
	}
}

func TestAdvanceFlightProgress(t *testing.T) {
	departure := testNow.Add(48 * time.Hour)
	fx := newFixture(t, false, testFlight("UA100-20250303-0", "SFO", "JFK", departure))

	tracking, err := fx.catalog.AdvanceFlight(context.Background(), "UA100-20250303-0", departure.Add(165*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 50, tracking.ProgressPercentage, 0.01)

	tracking, err = fx.catalog.AdvanceFlight(context.Background(), "UA100-20250303-0", departure.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 100.0, tracking.ProgressPercentage)
}

func TestAdvanceFlightDelaysOnce(t *testing.T) {
	ref, err := reference.Load()
	require.NoError(t, err)
	departure := testNow.Add(48 * time.Hour)
	catalog := NewFlightCatalog(ref, []models.Flight{testFlight("UA100-20250303-0", "SFO", "JFK", departure)}, CatalogOptions{
		Rand:             rand.New(rand.NewSource(3)),
		DelayProbability: 1,
	})
	ctx := context.Background()
	now := departure.Add(-time.Hour)

	tracking, err := catalog.AdvanceFlight(ctx, "UA100-20250303-0", now)
	require.NoError(t, err)
	assert.Equal(t, models.FlightStatusDelayed, tracking.Flight.Status)
	shift := tracking.Flight.Departure.Sub(departure)
	assert.GreaterOrEqual(t, shift, 15*time.Minute)
	assert.LessOrEqual(t, shift, 60*time.Minute)

	again, err := catalog.AdvanceFlight(ctx, "UA100-20250303-0", now)
	require.NoError(t, err)
	assert.Equal(t, tracking.Flight.Departure, again.Flight.Departure)
}

func TestAdvanceLeavesCancelledFlights(t *testing.T) {
	departure := testNow.Add(48 * time.Hour)
	fx := newFixture(t, false, testFlight("UA100-20250303-0", "SFO", "JFK", departure))
	ctx := context.Background()

	_, err := fx.catalog.UpdateStatus(ctx, "UA100-20250303-0", models.FlightStatusCancelled)
	require.NoError(t, err)

	tracking, err := fx.catalog.AdvanceFlight(ctx, "UA100-20250303-0", departure.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.FlightStatusCancelled, tracking.Flight.Status)
}

func TestAdvanceSimulatedState(t *testing.T) {
	departure := testNow.Add(10 * time.Minute)
	fx := newFixture(t, false,
		testFlight("UA100-20250301-0", "SFO", "JFK", departure),
		testFlight("UA200-20250305-0", "SFO", "JFK", testNow.Add(96*time.Hour)),
	)

	changed := fx.catalog.AdvanceSimulatedState(context.Background(), testNow)
	assert.Equal(t, 1, changed)

	f, err := fx.catalog.Get("UA100-20250301-0")
	require.NoError(t, err)
	assert.Equal(t, models.FlightStatusBoarding, f.Status)

	assert.Zero(t, fx.catalog.AdvanceSimulatedState(context.Background(), testNow))
}

func TestSearchTrips(t *testing.T) {
	flights := searchFixtureFlights()
	flights[1].Price.Economy = 500
	fx := newFixture(t, false, flights...)

	resp, err := fx.catalog.SearchTrips(context.Background(), models.SearchRequest{
		Origin:        "sfo",
		Destination:   "jfk",
		DepartureDate: "2025-03-10",
		ReturnDate:    "2025-03-10",
		Passengers:    1,
		SeatClass:     models.SeatClassEconomy,
		MaxPrice:      300,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"UA300-20250310-0"}, ids(resp.OutboundFlights))
	assert.Equal(t, []string{"UA300R-20250310-0"}, ids(resp.ReturnFlights))
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, "SFO", resp.SearchCriteria.Origin)
	assert.Regexp(t, `^SRCH-[0-9A-F]{8}$`, resp.SearchID)

	resp, err = fx.catalog.SearchTrips(context.Background(), models.SearchRequest{
		Origin:            "SFO",
		Destination:       "JFK",
		DepartureDate:     "2025-03-10",
		Passengers:        1,
		SeatClass:         models.SeatClassEconomy,
		PreferredAirlines: []string{"DL"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"DL120-20250310-1"}, ids(resp.OutboundFlights))
	assert.NotNil(t, resp.ReturnFlights)
	assert.Empty(t, resp.ReturnFlights)
}
