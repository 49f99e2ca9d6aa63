package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"flight_sim/internal/models"
	"flight_sim/internal/reference"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func testFlight(id, origin, destination string, departure time.Time) models.Flight {
	return models.Flight{
		FlightID:     id,
		Airline:      "United Airlines",
		FlightNumber: strings.SplitN(id, "-", 2)[0],
		Origin:       origin,
		Destination:  destination,
		Departure:    departure,
		Arrival:      departure.Add(5*time.Hour + 30*time.Minute),
		Duration:     "5h 30m",
		Aircraft:     "Boeing 737",
		Price: models.Price{
			Economy:        200,
			PremiumEconomy: 300,
			Business:       600,
			First:          1000,
			Currency:       "USD",
		},
		AvailableSeats: models.AvailableSeats{Economy: 50, PremiumEconomy: 10, Business: 5, First: 2},
		Status:         models.FlightStatusScheduled,
		Gate:           "A1",
		Terminal:       "1",
	}
}

type fixture struct {
	clock     time.Time
	ref       *reference.Data
	catalog   *FlightCatalog
	payments  *PaymentService
	ledger    *BookingLedger
	ancillary *AncillaryService
	seats     *SeatService
	groups    *GroupService
	alerts    *PriceAlertService
}

func newFixture(t *testing.T, reconcile bool, flights ...models.Flight) *fixture {
	t.Helper()

	ref, err := reference.Load()
	require.NoError(t, err)

	fx := &fixture{clock: testNow, ref: ref}
	now := func() time.Time { return fx.clock }

	fx.catalog = NewFlightCatalog(ref, flights, CatalogOptions{
		Rand: rand.New(rand.NewSource(1)),
		Now:  now,
	})
	fx.payments = NewPaymentService(0, rand.New(rand.NewSource(2)), nil, nil)
	fx.ledger = NewBookingLedger(fx.catalog, LedgerOptions{Payments: fx.payments, Reconcile: reconcile})
	fx.ancillary = NewAncillaryService(fx.ledger, ref, nil, nil)
	fx.seats = NewSeatService(fx.ledger, ref, nil, nil)
	fx.groups = NewGroupService(fx.ledger, nil)
	fx.alerts = NewPriceAlertService(fx.catalog, nil, nil)
	return fx
}

func travellers(n int) []models.PassengerInfo {
	out := make([]models.PassengerInfo, n)
	for i := range out {
		out[i] = models.PassengerInfo{
			FirstName: fmt.Sprintf("Pax%d", i+1),
			LastName:  "Tester",
			Email:     fmt.Sprintf("pax%d@example.com", i+1),
			Phone:     "+15550100",
		}
	}
	return out
}

func (fx *fixture) book(t *testing.T, flightID string, class models.SeatClass, n int) *models.Booking {
	t.Helper()
	b, err := fx.ledger.Create(context.Background(), flightID, travellers(n), class, "tok_visa", "")
	require.NoError(t, err)
	return b
}

func (fx *fixture) seatsOf(t *testing.T, flightID string) models.AvailableSeats {
	t.Helper()
	f, err := fx.catalog.Get(flightID)
	require.NoError(t, err)
	return f.AvailableSeats
}

// requireSeatInvariant checks no counter went negative
func (fx *fixture) requireSeatInvariant(t *testing.T) {
	t.Helper()
	for _, f := range fx.catalog.All() {
		for _, class := range models.SeatClasses {
			require.GreaterOrEqual(t, f.AvailableSeats.For(class), 0, "flight %s class %s", f.FlightID, class)
		}
	}
}
