package services

import (
	"context"
	"fmt"
	"strings"

	"flight_sim/internal/models"

	"go.uber.org/zap"
)

const (
	minGroupSize  = 5
	maxGroupSize  = 30
	groupStartRow = 15
	groupIDLayout = "20060102150405"
	seatLetters   = "ABCDEF"
)

// GroupService books groups of travellers on one flight at a discount
type GroupService struct {
	ledger *BookingLedger
	logger *zap.Logger
}

// NewGroupService creates a new group booking service
func NewGroupService(ledger *BookingLedger, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{ledger: ledger, logger: logger.Named("group")}
}

func groupDiscount(size int) float64 {
	if size >= 10 {
		return 0.10
	}
	return 0.05
}

// groupSeats seats passengers in consecutive rows from row 15, six across in economy and four otherwise
func groupSeats(class models.SeatClass, count int) []string {
	perRow := 4
	if class == models.SeatClassEconomy {
		perRow = 6
	}
	seats := make([]string, count)
	for i := range seats {
		seats[i] = fmt.Sprintf("%d%c", groupStartRow+i/perRow, seatLetters[i%perRow])
	}
	return seats
}

// Book creates one booking for the whole group. The discounted fare, seat decrement and
// optional seat assignment are stored in the same step.
func (s *GroupService) Book(ctx context.Context, flightID, groupName string, passengers []models.PassengerInfo,
	class models.SeatClass, seatTogether bool, paymentToken string) (*models.GroupBookingResult, error) {
	const op = "group booking"

	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		return nil, models.NewError(models.KindValidation, op, "group name is required")
	}
	if len(passengers) < minGroupSize {
		return nil, models.NewError(models.KindValidation, op,
			fmt.Sprintf("Group bookings require at least %d passengers", minGroupSize))
	}
	if len(passengers) > maxGroupSize {
		return nil, models.NewError(models.KindValidation, op,
			fmt.Sprintf("Group bookings are limited to %d passengers. Please contact group sales for larger groups", maxGroupSize))
	}

	flight, err := s.ledger.catalog.Get(flightID)
	if err != nil {
		return nil, err
	}

	discount := groupDiscount(len(passengers))
	var assignments []models.SeatAssignment
	draft := bookingDraft{
		flightID:     flightID,
		passengers:   passengers,
		class:        class,
		paymentToken: paymentToken,
		discount:     discount,
		groupName:    groupName,
	}
	if seatTogether {
		draft.arrange = func(b *models.Booking) {
			seats := groupSeats(b.SeatClass, len(b.Passengers))
			for i := range b.Passengers {
				p := &b.Passengers[i]
				p.SeatNumber = seats[i]
				assignments = append(assignments, models.SeatAssignment{
					PassengerID:   p.ID,
					PassengerName: p.FullName(),
					Seat:          seats[i],
				})
			}
		}
	}

	booking, err := s.ledger.create(ctx, op, draft)
	if err != nil {
		return nil, err
	}

	base := flight.Price.For(class)
	discounted := base * (1 - discount)
	result := &models.GroupBookingResult{
		GroupID:             "GRP-" + booking.CreatedAt.Format(groupIDLayout),
		Booking:             booking,
		BasePricePerPerson:  base,
		DiscountPercentage:  discount * 100,
		DiscountedPerPerson: discounted,
		TotalSavings:        (base - discounted) * float64(len(passengers)),
		SeatAssignments:     assignments,
	}

	s.logger.Info("Group booking created",
		zap.String("group_id", result.GroupID),
		zap.String("booking_id", booking.BookingID),
		zap.String("group_name", groupName),
		zap.Int("passengers", len(passengers)))
	return result, nil
}
