// Package reference holds the static airline network data: airports, airlines,
// routes and the fee, policy and information tables served to clients.
package reference

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"flight_sim/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var embeddedReference []byte

// Route is a city pair flown every day
type Route struct {
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
	Duration    string `yaml:"duration"`
	Miles       int    `yaml:"miles"`
}

// ServicePrice is the unit price of an optional service
type ServicePrice struct {
	Price       float64 `yaml:"price" json:"price"`
	Description string  `yaml:"description" json:"description"`
}

// InsurancePlan is a coverage tier priced as a share of the trip cost
type InsurancePlan struct {
	Rate     float64           `yaml:"rate" json:"rate"`
	Coverage map[string]string `yaml:"coverage" json:"coverage"`
}

// Data is the parsed reference document
type Data struct {
	Airports         []models.Airport             `yaml:"airports"`
	Airlines         []models.Airline             `yaml:"airlines"`
	Aircraft         []string                     `yaml:"aircraft"`
	Routes           []Route                      `yaml:"routes"`
	DefaultDuration  string                       `yaml:"default_duration"`
	DefaultMiles     int                          `yaml:"default_miles"`
	Services         map[string]ServicePrice      `yaml:"services"`
	Insurance        map[string]InsurancePlan     `yaml:"insurance"`
	InsuranceNotes   []string                     `yaml:"insurance_notes"`
	Assistance       map[string]map[string]string `yaml:"assistance"`
	BaggageAllowance map[string]string            `yaml:"baggage_allowance"`
	UpgradeBenefits  map[string][]string          `yaml:"upgrade_benefits"`
	SeatPositions    map[string]string            `yaml:"seat_positions"`
	LoyaltyPrograms  []map[string]any             `yaml:"loyalty_programs"`
	TravelTips       map[string]map[string]any    `yaml:"travel_tips"`
	BaggagePolicies  map[string]any               `yaml:"baggage_policies"`
	SeatMap          map[string]any               `yaml:"seat_map"`
	AirlinePolicies  map[string]any               `yaml:"airline_policies"`
	WeatherOptions   []string                     `yaml:"weather_conditions"`
	DelayReasons     []string                     `yaml:"delay_reasons"`

	airports  map[string]models.Airport
	durations map[string]time.Duration
	miles     map[string]int
	fallback  time.Duration
}

// Load parses the embedded reference document
func Load() (*Data, error) {
	return Parse(embeddedReference)
}

// Parse parses a reference document and builds its lookup tables
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse reference data: %w", err)
	}
	if len(d.Airports) == 0 || len(d.Airlines) == 0 || len(d.Routes) == 0 {
		return nil, fmt.Errorf("reference data needs airports, airlines and routes")
	}
	if len(d.Aircraft) == 0 {
		return nil, fmt.Errorf("reference data needs at least one aircraft type")
	}

	fallback, err := models.ParseDuration(d.DefaultDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid default_duration: %w", err)
	}
	d.fallback = fallback
	if d.DefaultMiles <= 0 {
		d.DefaultMiles = 1000
	}

	d.airports = make(map[string]models.Airport, len(d.Airports))
	for _, a := range d.Airports {
		d.airports[strings.ToUpper(a.Code)] = a
	}

	d.durations = make(map[string]time.Duration)
	d.miles = make(map[string]int)
	for _, r := range d.Routes {
		if _, ok := d.airports[r.Origin]; !ok {
			return nil, fmt.Errorf("route %s-%s: unknown airport %s", r.Origin, r.Destination, r.Origin)
		}
		if _, ok := d.airports[r.Destination]; !ok {
			return nil, fmt.Errorf("route %s-%s: unknown airport %s", r.Origin, r.Destination, r.Destination)
		}
		key := routeKey(r.Origin, r.Destination)
		if r.Duration != "" {
			dur, err := models.ParseDuration(r.Duration)
			if err != nil {
				return nil, fmt.Errorf("route %s-%s: %w", r.Origin, r.Destination, err)
			}
			d.durations[key] = dur
		}
		if r.Miles > 0 {
			d.miles[key] = r.Miles
		}
	}

	return &d, nil
}

// routeKey is direction independent
func routeKey(a, b string) string {
	a, b = strings.ToUpper(a), strings.ToUpper(b)
	if a > b {
		a, b = b, a
	}
	return a + "-" + b
}

// Airport looks up an airport by code
func (d *Data) Airport(code string) (models.Airport, bool) {
	a, ok := d.airports[strings.ToUpper(strings.TrimSpace(code))]
	return a, ok
}

// AirportCodes returns every known airport code, sorted
func (d *Data) AirportCodes() []string {
	codes := make([]string, 0, len(d.airports))
	for code := range d.airports {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RouteDuration returns the block time between two airports
func (d *Data) RouteDuration(origin, destination string) time.Duration {
	if dur, ok := d.durations[routeKey(origin, destination)]; ok {
		return dur
	}
	return d.fallback
}

// RouteMiles returns the distance credited for a city pair
func (d *Data) RouteMiles(origin, destination string) int {
	if m, ok := d.miles[routeKey(origin, destination)]; ok {
		return m
	}
	return d.DefaultMiles
}

// Service looks up a service price by type
func (d *Data) Service(serviceType string) (ServicePrice, bool) {
	s, ok := d.Services[serviceType]
	return s, ok
}

// InsurancePlan looks up a coverage tier
func (d *Data) InsurancePlan(coverage string) (InsurancePlan, bool) {
	p, ok := d.Insurance[coverage]
	return p, ok
}

// CoverageTypes lists the insurance tiers, sorted
func (d *Data) CoverageTypes() []string {
	out := make([]string, 0, len(d.Insurance))
	for k := range d.Insurance {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Tips returns the travel tips for a destination key such as NYC
func (d *Data) Tips(destination string) (map[string]any, bool) {
	t, ok := d.TravelTips[strings.ToUpper(strings.TrimSpace(destination))]
	return t, ok
}

// TipDestinations lists the destinations with travel tips, sorted
func (d *Data) TipDestinations() []string {
	out := make([]string, 0, len(d.TravelTips))
	for k := range d.TravelTips {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SeatPosition names the position of a seat letter in the cabin
func (d *Data) SeatPosition(seat string) string {
	if seat == "" {
		return ""
	}
	if pos, ok := d.SeatPositions[seat[len(seat)-1:]]; ok {
		return pos
	}
	return "Standard"
}
