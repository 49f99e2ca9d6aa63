package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flight_sim/internal/metrics"
	"flight_sim/internal/models"
	"flight_sim/internal/reference"

	"go.uber.org/zap"
)

// Row letters skip I
var seatPattern = regexp.MustCompile(`^([1-9][0-9]?)([A-HJK])$`)

type classUpgrade struct {
	from, to models.SeatClass
}

var upgradeMiles = map[classUpgrade]int{
	{models.SeatClassEconomy, models.SeatClassBusiness}: 25000,
	{models.SeatClassEconomy, models.SeatClassFirst}:    50000,
	{models.SeatClassBusiness, models.SeatClassFirst}:   30000,
}

const defaultUpgradeMiles = 40000

// validateSeat checks the seat number format and that its row lies in the cabin of class
func validateSeat(op string, class models.SeatClass, seat string) error {
	m := seatPattern.FindStringSubmatch(seat)
	if m == nil {
		return models.NewError(models.KindValidation, op, fmt.Sprintf("Invalid seat number format: %s", seat))
	}
	row, _ := strconv.Atoi(m[1])

	switch class {
	case models.SeatClassFirst:
		if row > 5 {
			return models.NewError(models.KindValidation, op, fmt.Sprintf("Seat %s is not in first class (rows 1-5)", seat))
		}
	case models.SeatClassBusiness:
		if row < 6 || row > 15 {
			return models.NewError(models.KindValidation, op, fmt.Sprintf("Seat %s is not in business class (rows 6-15)", seat))
		}
	case models.SeatClassEconomy:
		if row < 16 {
			return models.NewError(models.KindValidation, op, fmt.Sprintf("Seat %s is not in economy class (rows 16+)", seat))
		}
	}
	return nil
}

// SeatService handles seat selection and class upgrades
type SeatService struct {
	ledger  *BookingLedger
	ref     *reference.Data
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewSeatService creates a new seat service
func NewSeatService(ledger *BookingLedger, ref *reference.Data, logger *zap.Logger, m *metrics.Metrics) *SeatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatService{
		ledger:  ledger,
		ref:     ref,
		logger:  logger.Named("seats"),
		metrics: m,
	}
}

// SelectSeats assigns seats to passengers. Every selection is validated before any is applied.
func (s *SeatService) SelectSeats(bookingID string, selections []models.SeatSelection) ([]models.SeatAssignment, error) {
	const op = "select seats"

	if len(selections) == 0 {
		return nil, models.NewError(models.KindValidation, op, "at least one seat selection is required")
	}

	var assignments []models.SeatAssignment
	b, err := s.ledger.update(op, bookingID, func(b *models.Booking) error {
		taken := make(map[string]string, len(selections))
		seats := make([]string, len(selections))
		for i, sel := range selections {
			if _, ok := b.Passenger(sel.PassengerID); !ok {
				return passengerNotFound(op, sel.PassengerID)
			}
			seat := strings.ToUpper(strings.TrimSpace(sel.SeatNumber))
			if err := validateSeat(op, b.SeatClass, seat); err != nil {
				return err
			}
			if other, dup := taken[seat]; dup && other != sel.PassengerID {
				return models.NewError(models.KindValidation, op, fmt.Sprintf("Seat %s selected for more than one passenger", seat))
			}
			taken[seat] = sel.PassengerID
			seats[i] = seat
		}

		for i, sel := range selections {
			p, _ := b.Passenger(sel.PassengerID)
			p.SeatNumber = seats[i]
			assignments = append(assignments, models.SeatAssignment{
				PassengerID:   p.ID,
				PassengerName: p.FullName(),
				Seat:          seats[i],
				Class:         b.SeatClass,
				Position:      s.ref.SeatPosition(seats[i]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Seats selected",
		zap.String("booking_id", b.BookingID),
		zap.Int("seats", len(assignments)))
	return assignments, nil
}

// Upgrade quotes a class upgrade. With useMiles it is executed: the booking moves to the
// target class and one seat moves between the flight's class counters. The booking's
// other passengers keep holding their seats in the old class.
func (s *SeatService) Upgrade(bookingID, passengerID, targetClass string, useMiles bool) (*models.UpgradeQuote, error) {
	const op = "upgrade seat"

	target, err := models.ParseSeatClass(targetClass)
	if err != nil {
		return nil, err
	}

	quote := &models.UpgradeQuote{TargetClass: target}
	b, err := s.ledger.updateWithFlight(op, bookingID, func(b *models.Booking, f *models.Flight) error {
		if passengerID != "" {
			if _, ok := b.Passenger(passengerID); !ok {
				return passengerNotFound(op, passengerID)
			}
		}
		current := b.SeatClass
		if !target.IsHigherThan(current) {
			return models.NewError(models.KindInvalidTransition, op, fmt.Sprintf("Already booked in %s class", current))
		}
		if f.AvailableSeats.For(target) < 1 {
			return models.NewError(models.KindInsufficientInventory, op, fmt.Sprintf("No %s class seats available", target))
		}

		cash := f.Price.For(target) - f.Price.For(current)
		miles, ok := upgradeMiles[classUpgrade{current, target}]
		if !ok {
			miles = defaultUpgradeMiles
		}
		copay := 25.0
		if target == models.SeatClassFirst {
			copay = 50
		}

		quote.BookingID = b.BookingID
		quote.CurrentClass = current
		quote.CashPrice = cash
		quote.Currency = f.Price.Currency
		quote.MilesRequired = miles
		quote.Copay = copay
		quote.MinimumBid = cash * 0.3
		quote.SuggestedBid = cash * 0.5

		if !useMiles {
			quote.TotalPrice = b.TotalPrice
			return nil
		}

		if err := s.ledger.catalog.adjustSeatsLocked(f.FlightID, target, -1); err != nil {
			return err
		}
		if err := s.ledger.catalog.adjustSeatsLocked(f.FlightID, current, 1); err != nil {
			return err
		}
		if b.SeatsHeld == nil {
			b.SeatsHeld = make(map[models.SeatClass]int)
		}
		if b.SeatsHeld[current] > 1 {
			b.SeatsHeld[current]--
		} else {
			delete(b.SeatsHeld, current)
		}
		b.SeatsHeld[target]++
		b.SeatClass = target
		b.TotalPrice += copay
		for i := range b.Passengers {
			b.Passengers[i].SeatNumber = ""
		}
		quote.Confirmed = true
		quote.TotalPrice = b.TotalPrice
		return nil
	})
	if err != nil {
		return nil, err
	}

	if quote.Confirmed {
		s.metrics.SeatsMoved(string(quote.CurrentClass), string(target), 1)
		s.logger.Info("Seat upgraded with miles",
			zap.String("booking_id", b.BookingID),
			zap.String("from", string(quote.CurrentClass)),
			zap.String("to", string(target)),
			zap.Int("miles", quote.MilesRequired))
	}
	return quote, nil
}
