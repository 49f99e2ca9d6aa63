package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"flight_sim/internal/metrics"
	"flight_sim/internal/models"
	"flight_sim/internal/prompts"
	"flight_sim/internal/reference"
	"flight_sim/internal/services"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

func newTestServer(t *testing.T) (*Server, *metrics.Metrics) {
	t.Helper()

	ref, err := reference.Load()
	require.NoError(t, err)

	flights := []models.Flight{
		testFlight("UA100-20250310", "SFO", "JFK", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		testFlight("UA200-20250301", "SFO", "JFK", testNow.Add(12*time.Hour)),
		testFlight("DL300-20250312", "JFK", "SFO", time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)),
	}
	now := func() time.Time { return testNow }
	m := metrics.New()
	logger := zap.NewNop()

	catalog := services.NewFlightCatalog(ref, flights, services.CatalogOptions{
		Rand:    rand.New(rand.NewSource(1)),
		Now:     now,
		Logger:  logger,
		Metrics: m,
	})
	payments := services.NewPaymentService(0, rand.New(rand.NewSource(2)), logger, m)
	ledger := services.NewBookingLedger(catalog, services.LedgerOptions{
		Payments:  payments,
		Reconcile: true,
		Logger:    logger,
		Metrics:   m,
	})
	pm, err := prompts.NewManager(logger)
	require.NoError(t, err)

	s, err := NewServer(Services{
		Catalog:   catalog,
		Ledger:    ledger,
		Ancillary: services.NewAncillaryService(ledger, ref, logger, m),
		Seats:     services.NewSeatService(ledger, ref, logger, m),
		Groups:    services.NewGroupService(ledger, logger),
		Alerts:    services.NewPriceAlertService(catalog, logger, m),
		Prompts:   pm,
	}, Options{
		Rand:    rand.New(rand.NewSource(3)),
		Logger:  logger,
		Metrics: m,
	})
	require.NoError(t, err)
	return s, m
}

// call invokes a registered tool and decodes its JSON envelope
func call(t *testing.T, s *Server, name string, arguments map[string]any) map[string]any {
	t.Helper()
	for _, st := range s.Tools() {
		if st.Tool.Name != name {
			continue
		}
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = arguments
		res, err := st.Handler(context.Background(), req)
		require.NoError(t, err)
		return decodeResult(t, res)
	}
	t.Fatalf("tool %s is not registered", name)
	return nil
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func requireSuccess(t *testing.T, payload map[string]any) {
	t.Helper()
	require.Equal(t, true, payload["success"], "unexpected failure: %v", payload["error"])
}

func requireFailure(t *testing.T, payload map[string]any, kind models.ErrorKind) {
	t.Helper()
	require.Equal(t, false, payload["success"])
	require.Equal(t, string(kind), payload["error_type"], "error: %v", payload["error"])
	require.NotEmpty(t, payload["error"])
}

func passengerArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{
			"first_name": fmt.Sprintf("Pax%d", i+1),
			"last_name":  "Tester",
			"email":      fmt.Sprintf("pax%d@example.com", i+1),
			"phone":      "+15550100",
		}
	}
	return out
}

func createBooking(t *testing.T, s *Server, flightID string, n int) map[string]any {
	t.Helper()
	payload := call(t, s, "create_booking", map[string]any{
		"flight_id":  flightID,
		"passengers": passengerArgs(n),
	})
	requireSuccess(t, payload)
	return payload["booking"].(map[string]any)
}

func TestNewServer_RegistersCapabilities(t *testing.T) {
	s, _ := newTestServer(t)

	var names []string
	for _, st := range s.Tools() {
		names = append(names, st.Tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"search_flights", "get_flight_details", "track_flight", "update_flight_status", "price_alert",
		"create_booking", "get_booking", "cancel_booking", "check_in", "modify_booking", "group_booking",
		"add_baggage", "add_services", "travel_insurance", "special_assistance",
		"loyalty_account", "select_seats", "upgrade_seat",
	}, names)
	assert.Len(t, s.resources(), 9)
	assert.Len(t, s.Prompts.List(), 8)
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(Services{}, Options{})
	assert.Error(t, err)
}

func TestTool_RecoversPanics(t *testing.T) {
	s, m := newTestServer(t)

	handler := s.tool("explode", func(context.Context, args) (map[string]any, error) {
		panic("boom")
	})
	res, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	payload := decodeResult(t, res)
	requireFailure(t, payload, models.KindInternal)
	assert.Contains(t, payload["error"], "boom")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("explode", string(models.KindInternal))))
}

func TestTool_PlainErrorsAreInternal(t *testing.T) {
	s, _ := newTestServer(t)

	handler := s.tool("plain", func(context.Context, args) (map[string]any, error) {
		return nil, fmt.Errorf("disk on fire")
	})
	res, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	requireFailure(t, decodeResult(t, res), models.KindInternal)
}

func TestSearchFlights(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("one way", func(t *testing.T) {
		payload := call(t, s, "search_flights", map[string]any{
			"origin":         "sfo",
			"destination":    "jfk",
			"departure_date": "2025-03-10",
		})
		requireSuccess(t, payload)
		assert.Equal(t, 1.0, payload["total_results"])
		outbound := payload["outbound_flights"].([]any)
		require.Len(t, outbound, 1)
		assert.Equal(t, "UA100-20250310", outbound[0].(map[string]any)["flight_id"])
		assert.Empty(t, payload["return_flights"])
		assert.True(t, strings.HasPrefix(payload["search_id"].(string), "SRCH-"))
	})

	t.Run("round trip", func(t *testing.T) {
		payload := call(t, s, "search_flights", map[string]any{
			"origin":         "SFO",
			"destination":    "JFK",
			"departure_date": "2025-03-10",
			"return_date":    "2025-03-12",
			"passengers":     2,
		})
		requireSuccess(t, payload)
		assert.Equal(t, 2.0, payload["total_results"])
		assert.Len(t, payload["return_flights"].([]any), 1)
	})

	t.Run("filters by price", func(t *testing.T) {
		payload := call(t, s, "search_flights", map[string]any{
			"origin":         "SFO",
			"destination":    "JFK",
			"departure_date": "2025-03-10",
			"seat_class":     "business",
			"max_price":      500,
		})
		requireSuccess(t, payload)
		assert.Equal(t, 0.0, payload["total_results"])
	})

	t.Run("validation", func(t *testing.T) {
		payload := call(t, s, "search_flights", map[string]any{
			"destination":    "JFK",
			"departure_date": "2025-03-10",
		})
		requireFailure(t, payload, models.KindValidation)
		assert.Contains(t, payload["error"], "origin is required")

		payload = call(t, s, "search_flights", map[string]any{
			"origin":         "SFO",
			"destination":    "JFK",
			"departure_date": "2025-03-10",
			"passengers":     10,
		})
		requireFailure(t, payload, models.KindValidation)

		payload = call(t, s, "search_flights", map[string]any{
			"origin":         "SFO",
			"destination":    "JFK",
			"departure_date": "10/03/2025",
		})
		requireFailure(t, payload, models.KindValidation)
	})
}

func TestGetFlightDetails(t *testing.T) {
	s, _ := newTestServer(t)

	payload := call(t, s, "get_flight_details", map[string]any{"flight_id": "UA100-20250310"})
	requireSuccess(t, payload)
	info := payload["airport_info"].(map[string]any)
	assert.Equal(t, "SFO", info["origin"].(map[string]any)["code"])
	assert.Equal(t, "JFK", info["destination"].(map[string]any)["code"])

	requireFailure(t, call(t, s, "get_flight_details", map[string]any{"flight_id": "XX1-20250101"}), models.KindNotFound)
}

func TestTrackFlight(t *testing.T) {
	s, _ := newTestServer(t)

	payload := call(t, s, "track_flight", map[string]any{"flight_number": "UA100", "date": "2025-03-10"})
	requireSuccess(t, payload)
	flight := payload["flight"].(map[string]any)
	assert.Equal(t, "UA100-20250310", flight["flight_id"])
	assert.Equal(t, "scheduled", flight["status"])
	assert.Nil(t, flight["actual_departure"])
	tracking := payload["tracking"].(map[string]any)
	assert.Equal(t, 0.0, tracking["altitude"])

	requireFailure(t, call(t, s, "track_flight", map[string]any{}), models.KindValidation)
	requireFailure(t, call(t, s, "track_flight", map[string]any{"flight_id": "nope"}), models.KindNotFound)
}

func TestUpdateFlightStatus(t *testing.T) {
	s, _ := newTestServer(t)

	payload := call(t, s, "update_flight_status", map[string]any{"flight_id": "UA100-20250310", "status": "BOARDING"})
	requireSuccess(t, payload)
	assert.Equal(t, "boarding", payload["flight"].(map[string]any)["status"])

	requireFailure(t, call(t, s, "update_flight_status", map[string]any{
		"flight_id": "UA100-20250310", "status": "teleported",
	}), models.KindValidation)
	requireFailure(t, call(t, s, "update_flight_status", map[string]any{
		"flight_id": "missing", "status": "delayed",
	}), models.KindNotFound)
}

func TestPriceAlert(t *testing.T) {
	s, _ := newTestServer(t)

	payload := call(t, s, "price_alert", map[string]any{
		"origin":       "SFO",
		"destination":  "JFK",
		"target_price": 250,
		"travel_dates": []any{"2025-03-10", "2025-03-11"},
		"email":        "watcher@example.com",
	})
	requireSuccess(t, payload)
	assert.NotEmpty(t, payload["alert_id"])
	monitoring := payload["monitoring"].(map[string]any)
	assert.Equal(t, "SFO → JFK", monitoring["route"])
	assert.Equal(t, 2.0, monitoring["dates_monitored"])
	assert.NotNil(t, payload["current_prices"])

	payload = call(t, s, "price_alert", map[string]any{
		"origin":       "SFO",
		"destination":  "JFK",
		"travel_dates": []any{"2025-03-10"},
		"email":        "watcher@example.com",
	})
	requireFailure(t, payload, models.KindValidation)
	assert.Contains(t, payload["error"], "target_price")
}

func TestCreateAndGetBooking(t *testing.T) {
	s, _ := newTestServer(t)

	payload := call(t, s, "create_booking", map[string]any{
		"flight_id":     "UA100-20250310",
		"passengers":    passengerArgs(2),
		"seat_class":    "economy",
		"add_insurance": true,
	})
	requireSuccess(t, payload)
	booking := payload["booking"].(map[string]any)
	pnr := booking["pnr"].(string)
	assert.True(t, strings.HasPrefix(pnr, "UA"))
	assert.Equal(t, "confirmed", booking["status"])
	assert.NotNil(t, booking["insurance"])
	assert.Contains(t, payload["confirmation_message"], pnr)

	got := call(t, s, "get_booking", map[string]any{"booking_id": pnr, "email": "pax2@example.com"})
	requireSuccess(t, got)
	assert.Equal(t, booking["booking_id"], got["booking"].(map[string]any)["booking_id"])
	assert.Equal(t, "UA100-20250310", got["flight"].(map[string]any)["flight_id"])

	requireFailure(t, call(t, s, "get_booking", map[string]any{
		"booking_id": pnr, "email": "someone@else.com",
	}), models.KindNotFound)

	f, err := s.Catalog.Get("UA100-20250310")
	require.NoError(t, err)
	assert.Equal(t, 48, f.AvailableSeats.Economy)
}

func TestCreateBooking_Failures(t *testing.T) {
	s, _ := newTestServer(t)

	requireFailure(t, call(t, s, "create_booking", map[string]any{
		"flight_id": "UA100-20250310", "passengers": []any{},
	}), models.KindValidation)

	requireFailure(t, call(t, s, "create_booking", map[string]any{
		"flight_id": "UA100-20250310", "passengers": passengerArgs(3), "seat_class": "first",
	}), models.KindInsufficientInventory)

	requireFailure(t, call(t, s, "create_booking", map[string]any{
		"flight_id": "UA100-20250310", "passengers": passengerArgs(1), "seat_class": "steerage",
	}), models.KindValidation)

	requireFailure(t, call(t, s, "create_booking", map[string]any{
		"flight_id": "UA100-20250310", "passengers": "not a list",
	}), models.KindValidation)
}

func TestCancelBooking(t *testing.T) {
	s, _ := newTestServer(t)
	booking := createBooking(t, s, "UA100-20250310", 1)
	id := booking["booking_id"].(string)

	payload := call(t, s, "cancel_booking", map[string]any{"booking_id": id, "reason": "plans changed"})
	requireSuccess(t, payload)
	assert.Equal(t, "cancelled", payload["status"])
	assert.Equal(t, 90.0, payload["refund_percentage"])
	assert.InDelta(t, 180.0, payload["refund_amount"], 0.001)

	requireFailure(t, call(t, s, "cancel_booking", map[string]any{"booking_id": id}), models.KindInvalidTransition)
	requireFailure(t, call(t, s, "cancel_booking", map[string]any{"booking_id": "missing"}), models.KindNotFound)
}

func TestCheckIn(t *testing.T) {
	s, _ := newTestServer(t)

	early := createBooking(t, s, "UA100-20250310", 1)
	requireFailure(t, call(t, s, "check_in", map[string]any{"booking_id": early["booking_id"]}), models.KindWindowNotOpen)

	soon := createBooking(t, s, "UA200-20250301", 2)
	payload := call(t, s, "check_in", map[string]any{"booking_id": soon["booking_id"]})
	requireSuccess(t, payload)
	assert.Equal(t, "checked_in", payload["status"])
	assert.Len(t, payload["boarding_passes"].([]any), 2)
	assert.Len(t, payload["reminders"].([]any), 3)
}

func TestModifyBooking(t *testing.T) {
	s, _ := newTestServer(t)
	booking := createBooking(t, s, "UA100-20250310", 1)

	payload := call(t, s, "modify_booking", map[string]any{
		"booking_id":         booking["booking_id"],
		"seat_class_upgrade": "business",
	})
	requireSuccess(t, payload)
	updated := payload["updated_booking"].(map[string]any)
	assert.Equal(t, "business", updated["seat_class"])
	mods := payload["modifications"].(map[string]any)
	assert.Greater(t, mods["total_additional_cost"].(float64), 0.0)
}

func TestGroupBooking(t *testing.T) {
	s, _ := newTestServer(t)

	payload := call(t, s, "group_booking", map[string]any{
		"flight_id":  "UA100-20250310",
		"group_name": "Chess Club",
		"passengers": passengerArgs(10),
	})
	requireSuccess(t, payload)
	assert.Equal(t, 10.0, payload["passengers_count"])
	pricing := payload["pricing"].(map[string]any)
	assert.Equal(t, 10.0, pricing["group_discount_percentage"])
	assert.InDelta(t, 1800.0, pricing["total_price"], 0.001)
	benefits := payload["group_benefits"].(map[string]any)
	assert.Contains(t, benefits, "complimentary_seats")
	assert.NotEqual(t, "Seats will be assigned at check-in", payload["seat_assignments"])

	payload = call(t, s, "group_booking", map[string]any{
		"flight_id":     "UA100-20250310",
		"group_name":    "Book Club",
		"passengers":    passengerArgs(5),
		"seat_together": false,
	})
	requireSuccess(t, payload)
	assert.Equal(t, "Seats will be assigned at check-in", payload["seat_assignments"])
	assert.NotContains(t, payload["group_benefits"].(map[string]any), "complimentary_seats")

	requireFailure(t, call(t, s, "group_booking", map[string]any{
		"flight_id":  "UA100-20250310",
		"group_name": "Pair",
		"passengers": passengerArgs(2),
	}), models.KindValidation)
}

func TestAncillaryTools(t *testing.T) {
	s, _ := newTestServer(t)
	booking := createBooking(t, s, "UA100-20250310", 2)
	id := booking["booking_id"]
	passengers := booking["passengers"].([]any)
	pid := passengers[0].(map[string]any)["id"]

	t.Run("baggage", func(t *testing.T) {
		payload := call(t, s, "add_baggage", map[string]any{
			"booking_id": id,
			"baggage_items": []any{
				map[string]any{"type": "checked", "weight": 20},
				map[string]any{"type": "checked", "weight": 22},
			},
		})
		requireSuccess(t, payload)
		assert.Len(t, payload["added_baggage"].([]any), 2)
		assert.Greater(t, payload["total_baggage_fee"].(float64), 0.0)
		assert.NotEmpty(t, payload["baggage_allowance"])

		requireFailure(t, call(t, s, "add_baggage", map[string]any{
			"booking_id": id, "baggage_items": []any{},
		}), models.KindValidation)
	})

	t.Run("services", func(t *testing.T) {
		payload := call(t, s, "add_services", map[string]any{
			"booking_id": id,
			"services":   []any{map[string]any{"type": "wifi"}, map[string]any{"type": "meal", "quantity": 2}},
		})
		requireSuccess(t, payload)
		assert.Len(t, payload["added_services"].([]any), 2)
	})

	t.Run("insurance", func(t *testing.T) {
		payload := call(t, s, "travel_insurance", map[string]any{"booking_id": id, "coverage_type": "basic"})
		requireSuccess(t, payload)
		assert.NotEmpty(t, payload["important_notes"])

		requireFailure(t, call(t, s, "travel_insurance", map[string]any{
			"booking_id": id, "coverage_type": "alien_abduction",
		}), models.KindValidation)
	})

	t.Run("assistance", func(t *testing.T) {
		payload := call(t, s, "special_assistance", map[string]any{
			"booking_id":       id,
			"passenger_id":     pid,
			"assistance_types": []any{"wheelchair"},
		})
		requireSuccess(t, payload)

		requireFailure(t, call(t, s, "special_assistance", map[string]any{
			"booking_id":       id,
			"passenger_id":     "P-missing",
			"assistance_types": []any{"wheelchair"},
		}), models.KindNotFound)
	})

	t.Run("loyalty", func(t *testing.T) {
		payload := call(t, s, "loyalty_account", map[string]any{
			"booking_id":            id,
			"passenger_id":          pid,
			"frequent_flyer_number": "UA123456",
		})
		requireSuccess(t, payload)
	})

	t.Run("seats", func(t *testing.T) {
		payload := call(t, s, "select_seats", map[string]any{
			"booking_id":      id,
			"seat_selections": []any{map[string]any{"passenger_id": pid, "seat_number": "20a"}},
		})
		requireSuccess(t, payload)
		assigned := payload["seat_assignments"].([]any)
		require.Len(t, assigned, 1)
		assert.Equal(t, "20A", assigned[0].(map[string]any)["seat"])
	})

	t.Run("upgrade quote", func(t *testing.T) {
		payload := call(t, s, "upgrade_seat", map[string]any{
			"booking_id":   id,
			"passenger_id": pid,
			"target_class": "business",
		})
		requireSuccess(t, payload)
		assert.NotEmpty(t, payload["upgrade_options"])
	})
}
