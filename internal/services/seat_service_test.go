package services

import (
	"testing"
	"time"

	"flight_sim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSeat(t *testing.T) {
	tests := []struct {
		class models.SeatClass
		seat  string
		ok    bool
	}{
		{models.SeatClassBusiness, "10C", true},
		{models.SeatClassBusiness, "6A", true},
		{models.SeatClassBusiness, "15F", true},
		{models.SeatClassBusiness, "20A", false},
		{models.SeatClassBusiness, "5A", false},
		{models.SeatClassFirst, "1A", true},
		{models.SeatClassFirst, "6A", false},
		{models.SeatClassEconomy, "16A", true},
		{models.SeatClassEconomy, "12A", false},
		{models.SeatClassPremiumEconomy, "3K", true},
		{models.SeatClassEconomy, "21I", false},
		{models.SeatClassEconomy, "0A", false},
		{models.SeatClassEconomy, "100A", false},
		{models.SeatClassEconomy, "A21", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.class)+"/"+tt.seat, func(t *testing.T) {
			err := validateSeat("test", tt.class, tt.seat)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, models.IsKind(err, models.KindValidation), "got %v", err)
			}
		})
	}
}

func TestSelectSeatsBusinessBands(t *testing.T) {
	fx := newFixture(t, false, bookingFlights(testNow.Add(96*time.Hour))...)
	b := fx.book(t, flightA, models.SeatClassBusiness, 2)
	p1, p2 := b.Passengers[0].ID, b.Passengers[1].ID

	_, err := fx.seats.SelectSeats(b.BookingID, []models.SeatSelection{{PassengerID: p1, SeatNumber: "20A"}})
	assert.True(t, models.IsKind(err, models.KindValidation))

	assigned, err := fx.seats.SelectSeats(b.BookingID, []models.SeatSelection{{PassengerID: p1, SeatNumber: "10c"}})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "10C", assigned[0].Seat)
	assert.Equal(t, "Aisle", assigned[0].Position)
	assert.Equal(t, models.SeatClassBusiness, assigned[0].Class)

	// one bad selection rejects the whole request
	_, err = fx.seats.SelectSeats(b.BookingID, []models.SeatSelection{
		{PassengerID: p1, SeatNumber: "7A"},
		{PassengerID: p2, SeatNumber: "30A"},
	})
	assert.True(t, models.IsKind(err, models.KindValidation))

	got, err := fx.ledger.Get(b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "10C", got.Passengers[0].SeatNumber)
	assert.Empty(t, got.Passengers[1].SeatNumber)
}

func TestSelectSeatsErrors(t *testing.T) {
	fx := newFixture(t, false, bookingFlights(testNow.Add(96*time.Hour))...)
	b := fx.book(t, flightA, models.SeatClassEconomy, 2)
	p1, p2 := b.Passengers[0].ID, b.Passengers[1].ID

	_, err := fx.seats.SelectSeats(b.BookingID, nil)
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = fx.seats.SelectSeats(b.BookingID, []models.SeatSelection{{PassengerID: "P9-x", SeatNumber: "20A"}})
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = fx.seats.SelectSeats(b.BookingID, []models.SeatSelection{
		{PassengerID: p1, SeatNumber: "20A"},
		{PassengerID: p2, SeatNumber: "20A"},
	})
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestUpgradeQuote(t *testing.T) {
	fx := newFixture(t, false, bookingFlights(testNow.Add(96*time.Hour))...)
	b := fx.book(t, flightA, models.SeatClassEconomy, 1)
	before := fx.seatsOf(t, flightA)

	quote, err := fx.seats.Upgrade(b.BookingID, "", "business", false)
	require.NoError(t, err)
	assert.False(t, quote.Confirmed)
	assert.Equal(t, 400.0, quote.CashPrice)
	assert.Equal(t, 25000, quote.MilesRequired)
	assert.Equal(t, 25.0, quote.Copay)
	assert.InDelta(t, 120, quote.MinimumBid, 1e-9)
	assert.InDelta(t, 200, quote.SuggestedBid, 1e-9)

	quote, err = fx.seats.Upgrade(b.BookingID, "", "premium_economy", false)
	require.NoError(t, err)
	assert.Equal(t, 40000, quote.MilesRequired)

	quote, err = fx.seats.Upgrade(b.BookingID, "", "first", false)
	require.NoError(t, err)
	assert.Equal(t, 50000, quote.MilesRequired)
	assert.Equal(t, 50.0, quote.Copay)

	assert.Equal(t, before, fx.seatsOf(t, flightA))
	got, err := fx.ledger.Get(b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatClassEconomy, got.SeatClass)
}

func TestUpgradeWithMilesMovesOneSeat(t *testing.T) {
	fx := newFixture(t, false, bookingFlights(testNow.Add(96*time.Hour))...)
	b := fx.book(t, flightA, models.SeatClassEconomy, 1)
	before := fx.seatsOf(t, flightA)

	quote, err := fx.seats.Upgrade(b.BookingID, b.Passengers[0].ID, "business", true)
	require.NoError(t, err)
	assert.True(t, quote.Confirmed)
	assert.Equal(t, 225.0, quote.TotalPrice)

	after := fx.seatsOf(t, flightA)
	assert.Equal(t, before.Business-1, after.Business)
	assert.Equal(t, before.Economy+1, after.Economy)
	assert.Equal(t, before.First, after.First)
	assert.Equal(t, before.PremiumEconomy, after.PremiumEconomy)

	got, err := fx.ledger.Get(b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatClassBusiness, got.SeatClass)
	fx.requireSeatInvariant(t)
}

func TestUpgradeErrorsChangeNothing(t *testing.T) {
	flights := bookingFlights(testNow.Add(96 * time.Hour))
	flights[0].AvailableSeats.First = 0
	fx := newFixture(t, false, flights...)
	b := fx.book(t, flightA, models.SeatClassBusiness, 1)
	before := fx.seatsOf(t, flightA)

	_, err := fx.seats.Upgrade(b.BookingID, "", "economy", true)
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))

	_, err = fx.seats.Upgrade(b.BookingID, "", "business", true)
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))

	_, err = fx.seats.Upgrade(b.BookingID, "", "first", true)
	assert.True(t, models.IsKind(err, models.KindInsufficientInventory))

	_, err = fx.seats.Upgrade(b.BookingID, "", "suite", true)
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = fx.seats.Upgrade(b.BookingID, "P5-x", "first", true)
	assert.True(t, models.IsKind(err, models.KindNotFound))

	assert.Equal(t, before, fx.seatsOf(t, flightA))
	got, err := fx.ledger.Get(b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.SeatClassBusiness, got.SeatClass)
	assert.Equal(t, 600.0, got.TotalPrice)
}
