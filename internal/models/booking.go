package models

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

// BookingStatus constants
const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCheckedIn BookingStatus = "checked_in"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRefunded  BookingStatus = "refunded"
)

// PassengerType constants
const (
	PassengerTypeAdult  = "adult"
	PassengerTypeChild  = "child"
	PassengerTypeInfant = "infant"
)

// Passenger is a traveller owned by exactly one booking
type Passenger struct {
	ID                  string     `json:"id"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	DateOfBirth         time.Time  `json:"date_of_birth"`
	PassportNumber      string     `json:"passport_number,omitempty"`
	Nationality         string     `json:"nationality,omitempty"`
	PassengerType       string     `json:"passenger_type"`
	FrequentFlyerNumber string     `json:"frequent_flyer_number,omitempty"`
	MealPreference      string     `json:"meal_preference,omitempty"`
	SpecialAssistance   []string   `json:"special_assistance,omitempty"`
	SeatNumber          string     `json:"seat_number,omitempty"`
	CheckedInAt         *time.Time `json:"checked_in_at,omitempty"`
}

// FullName returns "First Last"
func (p *Passenger) FullName() string {
	return p.FirstName + " " + p.LastName
}

// PassengerInfo is the validated input used to create a passenger
type PassengerInfo struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    *time.Time
	PassportNumber string
	Nationality    string
	PassengerType  string
	MealPreference string
}

// Booking represents a flight booking
type Booking struct {
	BookingID       string        `json:"booking_id"`
	PNR             string        `json:"pnr"`
	FlightID        string        `json:"flight_id"`
	Passengers      []Passenger   `json:"passengers"`
	SeatClass       SeatClass     `json:"seat_class"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ModifiedAt      *time.Time    `json:"modified_at,omitempty"`
	TotalPrice      float64       `json:"total_price"`
	Currency        string        `json:"currency"`
	PaymentStatus   string        `json:"payment_status"`
	PaymentID       string        `json:"payment_id,omitempty"`
	PaymentToken    string        `json:"payment_token,omitempty"`
	Baggage         []Baggage     `json:"baggage,omitempty"`
	Services        []Service     `json:"services,omitempty"`
	Insurance       *Insurance    `json:"insurance,omitempty"`
	SpecialRequests string        `json:"special_requests,omitempty"`
	GroupName       string        `json:"group_name,omitempty"`
	CancelReason    string        `json:"cancel_reason,omitempty"`
	// SeatsHeld counts the seats taken from the flight's counters per class.
	// A miles upgrade can leave a booking spread over two classes.
	SeatsHeld map[SeatClass]int `json:"seats_held,omitempty"`
}

// CanCancel checks if the booking can be cancelled
func (b *Booking) CanCancel() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed || b.Status == BookingStatusCheckedIn
}

// CanCheckIn checks if the booking can be checked in
func (b *Booking) CanCheckIn() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCheckedIn
}

// Passenger returns the passenger with the given id
func (b *Booking) Passenger(id string) (*Passenger, bool) {
	for i := range b.Passengers {
		if b.Passengers[i].ID == id {
			return &b.Passengers[i], true
		}
	}
	return nil, false
}

// HasPassengerEmail reports whether any passenger uses the email
func (b *Booking) HasPassengerEmail(email string) bool {
	for _, p := range b.Passengers {
		if strings.EqualFold(p.Email, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// HeldSeatCount sums SeatsHeld over every class
func (b *Booking) HeldSeatCount() int {
	total := 0
	for _, n := range b.SeatsHeld {
		total += n
	}
	return total
}

// CheckedBagCount counts checked bags already attached
func (b *Booking) CheckedBagCount() int {
	count := 0
	for _, bag := range b.Baggage {
		if bag.Type == BaggageTypeChecked {
			count++
		}
	}
	return count
}

// AncillaryTotal sums every fee currently attached to the booking
func (b *Booking) AncillaryTotal() float64 {
	total := 0.0
	for _, bag := range b.Baggage {
		total += bag.Fee
	}
	for _, svc := range b.Services {
		total += svc.Total()
	}
	if b.Insurance != nil {
		total += b.Insurance.Price
	}
	return total
}

// Clone returns a deep copy so callers never share state with the ledger
func (b *Booking) Clone() *Booking {
	c := *b
	c.Passengers = make([]Passenger, len(b.Passengers))
	for i, p := range b.Passengers {
		if p.SpecialAssistance != nil {
			p.SpecialAssistance = append([]string(nil), p.SpecialAssistance...)
		}
		c.Passengers[i] = p
	}
	if b.Baggage != nil {
		c.Baggage = append([]Baggage(nil), b.Baggage...)
	}
	if b.Services != nil {
		c.Services = append([]Service(nil), b.Services...)
	}
	if b.Insurance != nil {
		ins := *b.Insurance
		c.Insurance = &ins
	}
	if b.ModifiedAt != nil {
		t := *b.ModifiedAt
		c.ModifiedAt = &t
	}
	if b.SeatsHeld != nil {
		c.SeatsHeld = make(map[SeatClass]int, len(b.SeatsHeld))
		for class, n := range b.SeatsHeld {
			c.SeatsHeld[class] = n
		}
	}
	return &c
}

// BoardingPass is issued per passenger at check-in
type BoardingPass struct {
	PassengerID   string    `json:"passenger_id"`
	PassengerName string    `json:"passenger_name"`
	FlightNumber  string    `json:"flight_number"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	BoardingTime  time.Time `json:"boarding_time"`
	Gate          string    `json:"gate"`
	Seat          string    `json:"seat"`
	BoardingGroup string    `json:"boarding_group"`
	Barcode       string    `json:"barcode"`
}

// SeatSelection maps a passenger to a requested seat
type SeatSelection struct {
	PassengerID string `json:"passenger_id"`
	SeatNumber  string `json:"seat_number"`
}

// CancellationResult describes the refund of a cancelled booking
type CancellationResult struct {
	BookingID        string        `json:"booking_id"`
	Status           BookingStatus `json:"status"`
	RefundAmount     float64       `json:"refund_amount"`
	RefundPercentage float64       `json:"refund_percentage"`
	Reason           string        `json:"reason,omitempty"`
	SeatsReleased    int           `json:"seats_released"`
}

// ModificationRequest holds the optional changes of a booking modification
type ModificationRequest struct {
	NewFlightID      string
	NewDate          string
	SeatClassUpgrade string
}

// ModificationResult describes the cost of a booking modification
type ModificationResult struct {
	Booking             *Booking `json:"updated_booking"`
	NewFlightID         string   `json:"new_flight,omitempty"`
	SeatUpgrade         string   `json:"seat_upgrade,omitempty"`
	ModificationFee     float64  `json:"modification_fee"`
	PriceDifference     float64  `json:"price_difference"`
	TotalAdditionalCost float64  `json:"total_additional_cost"`
}

// BookingSummary is the shape of a booking listed in a history lookup
type BookingSummary struct {
	BookingID    string        `json:"booking_id"`
	PNR          string        `json:"pnr"`
	FlightID     string        `json:"flight_id"`
	FlightNumber string        `json:"flight_number,omitempty"`
	Origin       string        `json:"origin,omitempty"`
	Destination  string        `json:"destination,omitempty"`
	Departure    *time.Time    `json:"departure,omitempty"`
	Status       BookingStatus `json:"status"`
	Passengers   int           `json:"passengers"`
	TotalPrice   float64       `json:"total_price"`
}
