package models

import (
	"fmt"
	"strings"
	"time"
)

// SeatClass is a fare tier with its own price and seat counter
type SeatClass string

const (
	SeatClassEconomy        SeatClass = "economy"
	SeatClassPremiumEconomy SeatClass = "premium_economy"
	SeatClassBusiness       SeatClass = "business"
	SeatClassFirst          SeatClass = "first"
)

// SeatClasses lists the classes from lowest to highest
var SeatClasses = []SeatClass{
	SeatClassEconomy,
	SeatClassPremiumEconomy,
	SeatClassBusiness,
	SeatClassFirst,
}

// ParseSeatClass parses a seat class name, case-insensitively
func ParseSeatClass(s string) (SeatClass, error) {
	class := SeatClass(strings.ToLower(strings.TrimSpace(s)))
	if !class.IsValid() {
		return "", NewError(KindValidation, "parse seat class",
			fmt.Sprintf("invalid seat class %q, choose from economy, premium_economy, business, first", s))
	}
	return class, nil
}

// IsValid checks if the seat class is known
func (c SeatClass) IsValid() bool {
	return c.Rank() >= 0
}

// Rank returns the ordering economy < premium_economy < business < first, or -1
func (c SeatClass) Rank() int {
	for i, class := range SeatClasses {
		if c == class {
			return i
		}
	}
	return -1
}

// IsHigherThan reports whether c is strictly above other
func (c SeatClass) IsHigherThan(other SeatClass) bool {
	return c.Rank() > other.Rank()
}

// FlightStatus is the operational status of a flight
type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusBoarding  FlightStatus = "boarding"
	FlightStatusDeparted  FlightStatus = "departed"
	FlightStatusInFlight  FlightStatus = "in_flight"
	FlightStatusLanded    FlightStatus = "landed"
	FlightStatusArrived   FlightStatus = "arrived"
	FlightStatusDelayed   FlightStatus = "delayed"
	FlightStatusCancelled FlightStatus = "cancelled"
	FlightStatusDiverted  FlightStatus = "diverted"
)

// ParseFlightStatus parses a flight status name
func ParseFlightStatus(s string) (FlightStatus, error) {
	status := FlightStatus(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case FlightStatusScheduled, FlightStatusBoarding, FlightStatusDeparted,
		FlightStatusInFlight, FlightStatusLanded, FlightStatusArrived,
		FlightStatusDelayed, FlightStatusCancelled, FlightStatusDiverted:
		return status, nil
	}
	return "", NewError(KindValidation, "parse flight status", fmt.Sprintf("invalid flight status %q", s))
}

// Airport is immutable reference data for an airport
type Airport struct {
	Code                string   `json:"code" yaml:"code"`
	Name                string   `json:"name" yaml:"name"`
	City                string   `json:"city" yaml:"city"`
	Country             string   `json:"country" yaml:"country"`
	Timezone            string   `json:"timezone" yaml:"timezone"`
	Latitude            float64  `json:"latitude" yaml:"latitude"`
	Longitude           float64  `json:"longitude" yaml:"longitude"`
	Terminals           []string `json:"terminals,omitempty" yaml:"terminals"`
	Amenities           []string `json:"amenities,omitempty" yaml:"amenities"`
	AverageDelayMinutes int      `json:"average_delay_minutes,omitempty" yaml:"average_delay_minutes"`
}

// Airline is an operating carrier
type Airline struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Price is the per-class fare table of a flight
type Price struct {
	Economy        float64 `json:"economy"`
	PremiumEconomy float64 `json:"premium_economy"`
	Business       float64 `json:"business"`
	First          float64 `json:"first"`
	Currency       string  `json:"currency"`
}

// For returns the fare for a seat class
func (p Price) For(class SeatClass) float64 {
	switch class {
	case SeatClassEconomy:
		return p.Economy
	case SeatClassPremiumEconomy:
		return p.PremiumEconomy
	case SeatClassBusiness:
		return p.Business
	case SeatClassFirst:
		return p.First
	}
	return 0
}

// AvailableSeats holds the per-class seat counters of a flight
type AvailableSeats struct {
	Economy        int `json:"economy"`
	PremiumEconomy int `json:"premium_economy"`
	Business       int `json:"business"`
	First          int `json:"first"`
}

// For returns the number of available seats in a class
func (s AvailableSeats) For(class SeatClass) int {
	if counter := s.counter(class); counter != nil {
		return *counter
	}
	return 0
}

// Adjust adds delta to the counter of a class. The counter never goes below zero.
func (s *AvailableSeats) Adjust(class SeatClass, delta int) error {
	counter := s.counter(class)
	if counter == nil {
		return NewError(KindValidation, "adjust seats", fmt.Sprintf("invalid seat class %q", class))
	}
	if *counter+delta < 0 {
		return NewError(KindInsufficientInventory, "adjust seats",
			fmt.Sprintf("not enough %s seats available. Requested: %d, Available: %d", class, -delta, *counter))
	}
	*counter += delta
	return nil
}

func (s *AvailableSeats) counter(class SeatClass) *int {
	switch class {
	case SeatClassEconomy:
		return &s.Economy
	case SeatClassPremiumEconomy:
		return &s.PremiumEconomy
	case SeatClassBusiness:
		return &s.Business
	case SeatClassFirst:
		return &s.First
	}
	return nil
}

// Flight represents a single scheduled flight
type Flight struct {
	FlightID       string         `json:"flight_id"`
	Airline        string         `json:"airline"`
	FlightNumber   string         `json:"flight_number"`
	Origin         string         `json:"origin"`
	Destination    string         `json:"destination"`
	Departure      time.Time      `json:"departure"`
	Arrival        time.Time      `json:"arrival"`
	Duration       string         `json:"duration"`
	Aircraft       string         `json:"aircraft"`
	Price          Price          `json:"price"`
	AvailableSeats AvailableSeats `json:"available_seats"`
	Status         FlightStatus   `json:"status"`
	Gate           string         `json:"gate,omitempty"`
	Terminal       string         `json:"terminal,omitempty"`
}

// CanBook checks if the flight has seats for the given passengers in a class
func (f *Flight) CanBook(class SeatClass, passengers int) bool {
	return f.AvailableSeats.For(class) >= passengers
}

// DepartureDate returns the calendar date of departure
func (f *Flight) DepartureDate() string {
	return f.Departure.Format(DateLayout)
}

// DateLayout is the calendar date format used by searches
const DateLayout = "2006-01-02"

// FormatDuration renders a duration as "5h 30m"
func FormatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// ParseDuration parses the "5h 30m" or "5h" format
func ParseDuration(s string) (time.Duration, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(s, "%dh %dm", &hours, &minutes); err != nil {
		minutes = 0
		if _, err := fmt.Sscanf(s, "%dh", &hours); err != nil {
			return 0, fmt.Errorf("duration must be in format \"Xh Ym\": %q", s)
		}
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// SearchRequest represents a flight search request
type SearchRequest struct {
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	DepartureDate     string    `json:"departure_date"`
	ReturnDate        string    `json:"return_date,omitempty"`
	Passengers        int       `json:"passengers"`
	SeatClass         SeatClass `json:"seat_class"`
	NonstopOnly       bool      `json:"nonstop_only"`
	MaxPrice          float64   `json:"max_price,omitempty"`
	PreferredAirlines []string  `json:"preferred_airlines,omitempty"`
}

// SearchResponse represents the response for flight search
type SearchResponse struct {
	SearchID        string        `json:"search_id"`
	OutboundFlights []Flight      `json:"outbound_flights"`
	ReturnFlights   []Flight      `json:"return_flights"`
	TotalResults    int           `json:"total_results"`
	SearchCriteria  SearchRequest `json:"search_criteria"`
}

// Tracking is a snapshot of a flight's simulated position
type Tracking struct {
	Flight             Flight    `json:"flight"`
	ProgressPercentage float64   `json:"progress_percentage"`
	LastUpdated        time.Time `json:"last_updated"`
}
