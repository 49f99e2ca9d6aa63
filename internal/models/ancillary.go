package models

import (
	"time"
)

// Baggage types
const (
	BaggageTypeCarryOn   = "carry_on"
	BaggageTypeChecked   = "checked"
	BaggageTypeOversized = "oversized"
	BaggageTypeSpecial   = "special"
)

// IsValidBaggageType checks if the baggage type is known
func IsValidBaggageType(t string) bool {
	switch t {
	case BaggageTypeCarryOn, BaggageTypeChecked, BaggageTypeOversized, BaggageTypeSpecial:
		return true
	}
	return false
}

// Dimensions of a bag in centimetres
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Baggage is a bag attached to a booking
type Baggage struct {
	Type       string      `json:"type"`
	Weight     float64     `json:"weight"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Fee        float64     `json:"fee"`
}

// BaggageItem is a requested bag before its fee is known
type BaggageItem struct {
	Type       string
	Weight     float64
	Dimensions *Dimensions
}

// Service types
const (
	ServiceTypeWifi             = "wifi"
	ServiceTypeMeal             = "meal"
	ServiceTypePriorityBoarding = "priority_boarding"
	ServiceTypeLoungeAccess     = "lounge_access"
	ServiceTypeExtraLegroom     = "extra_legroom"
	ServiceTypeSeatSelection    = "seat_selection"
)

// Service is an optional paid service attached to a booking
type Service struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Total returns price times quantity
func (s Service) Total() float64 {
	return s.Price * float64(s.Quantity)
}

// ServiceItem is a requested service
type ServiceItem struct {
	Type     string
	Quantity int
}

// Insurance coverage types
const (
	CoverageBasic         = "basic"
	CoverageComprehensive = "comprehensive"
	CoverageMedicalOnly   = "medical_only"
)

// Insurance is the travel insurance policy of a booking
type Insurance struct {
	Provider        string            `json:"provider"`
	PolicyNumber    string            `json:"policy_number"`
	CoverageType    string            `json:"coverage_type"`
	Price           float64           `json:"price"`
	CoverageDetails map[string]string `json:"coverage_details"`
}

// Special assistance types
const (
	AssistanceWheelchair         = "wheelchair"
	AssistanceVisualImpairment   = "visual_impairment"
	AssistanceHearingImpairment  = "hearing_impairment"
	AssistanceAssistanceAnimal   = "assistance_animal"
	AssistanceUnaccompaniedMinor = "unaccompanied_minor"
	AssistanceMedicalEquipment   = "medical_equipment"
)

// IsValidAssistanceType checks if the assistance type is known
func IsValidAssistanceType(t string) bool {
	switch t {
	case AssistanceWheelchair, AssistanceVisualImpairment, AssistanceHearingImpairment,
		AssistanceAssistanceAnimal, AssistanceUnaccompaniedMinor, AssistanceMedicalEquipment:
		return true
	}
	return false
}

// BaggageResult is returned after bags are attached
type BaggageResult struct {
	BookingID       string    `json:"booking_id"`
	AddedBaggage    []Baggage `json:"added_baggage"`
	TotalBaggageFee float64   `json:"total_baggage_fee"`
	TotalPrice      float64   `json:"total_price"`
}

// ServiceResult is returned after services are attached
type ServiceResult struct {
	BookingID       string    `json:"booking_id"`
	AddedServices   []Service `json:"added_services"`
	TotalServiceFee float64   `json:"total_service_fee"`
	TotalPrice      float64   `json:"total_price"`
}

// AssistanceResult is returned after special assistance is recorded
type AssistanceResult struct {
	BookingID           string   `json:"booking_id"`
	PassengerID         string   `json:"passenger_id"`
	PassengerName       string   `json:"passenger"`
	AssistanceRequested []string `json:"assistance_requested"`
	SpecialNotes        string   `json:"special_notes,omitempty"`
}

// LoyaltyResult is returned after a frequent flyer number is linked
type LoyaltyResult struct {
	BookingID           string  `json:"booking_id"`
	PassengerName       string  `json:"passenger"`
	FrequentFlyerNumber string  `json:"frequent_flyer_number"`
	Airline             string  `json:"airline"`
	Flight              string  `json:"flight"`
	BaseMiles           int     `json:"base_miles"`
	Multiplier          float64 `json:"-"`
	MilesEarned         int     `json:"miles_earned"`
}

// SeatAssignment is a seat given to a passenger
type SeatAssignment struct {
	PassengerID   string    `json:"passenger_id"`
	PassengerName string    `json:"passenger"`
	Seat          string    `json:"seat"`
	Class         SeatClass `json:"class,omitempty"`
	Position      string    `json:"position,omitempty"`
}

// UpgradeQuote lists the ways a booking can move to a higher class
type UpgradeQuote struct {
	BookingID     string    `json:"booking_id"`
	CurrentClass  SeatClass `json:"current_class"`
	TargetClass   SeatClass `json:"target_class"`
	CashPrice     float64   `json:"cash_price"`
	Currency      string    `json:"currency"`
	MilesRequired int       `json:"miles_required"`
	Copay         float64   `json:"copay"`
	MinimumBid    float64   `json:"minimum_bid"`
	SuggestedBid  float64   `json:"recommended_bid"`
	Confirmed     bool      `json:"confirmed"`
	TotalPrice    float64   `json:"total_price"`
}

// GroupBookingResult describes a confirmed group booking
type GroupBookingResult struct {
	GroupID             string           `json:"group_id"`
	Booking             *Booking         `json:"booking"`
	BasePricePerPerson  float64          `json:"base_price_per_person"`
	DiscountPercentage  float64          `json:"group_discount_percentage"`
	DiscountedPerPerson float64          `json:"discounted_price_per_person"`
	TotalSavings        float64          `json:"total_savings"`
	SeatAssignments     []SeatAssignment `json:"seat_assignments,omitempty"`
}

// PriceAlert status values
const (
	PriceAlertActive    = "active"
	PriceAlertTriggered = "triggered"
)

// PriceAlert watches the lowest fare of a route on some dates
type PriceAlert struct {
	AlertID     string     `json:"alert_id"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	TargetPrice float64    `json:"target_price"`
	TravelDates []string   `json:"travel_dates"`
	Email       string     `json:"email"`
	SeatClass   SeatClass  `json:"seat_class"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      string     `json:"status"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
}

// DatePrice is the lowest fare found for one travel date
type DatePrice struct {
	Date        string  `json:"date"`
	LowestPrice float64 `json:"lowest_price"`
	BelowTarget bool    `json:"below_target"`
}
