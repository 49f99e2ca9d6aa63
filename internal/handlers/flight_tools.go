package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flight_sim/internal/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var seatClassNames = []string{
	string(models.SeatClassEconomy),
	string(models.SeatClassPremiumEconomy),
	string(models.SeatClassBusiness),
	string(models.SeatClassFirst),
}

func (s *Server) flightTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("search_flights",
				mcp.WithDescription("Search for available flights between airports, optionally with a return leg"),
				mcp.WithString("origin", mcp.Required(), mcp.Description("Origin airport code (3 letters, e.g. SFO)")),
				mcp.WithString("destination", mcp.Required(), mcp.Description("Destination airport code (3 letters, e.g. JFK)")),
				mcp.WithString("departure_date", mcp.Required(), mcp.Description("Departure date in YYYY-MM-DD format")),
				mcp.WithString("return_date", mcp.Description("Return date for round trips in YYYY-MM-DD format")),
				mcp.WithNumber("passengers", mcp.Description("Number of passengers (1-9)")),
				mcp.WithString("seat_class", mcp.Description("Class of service"), mcp.Enum(seatClassNames...)),
				mcp.WithBoolean("nonstop_only", mcp.Description("Only show nonstop flights")),
				mcp.WithNumber("max_price", mcp.Description("Maximum price per person")),
				mcp.WithArray("preferred_airlines", mcp.Description("Preferred airline names or codes"),
					mcp.Items(map[string]any{"type": "string"})),
			),
			Handler: s.tool("search_flights", s.searchFlights),
		},
		{
			Tool: mcp.NewTool("get_flight_details",
				mcp.WithDescription("Get detailed information about a flight, including its airports"),
				mcp.WithString("flight_id", mcp.Required(), mcp.Description("The unique flight identifier")),
			),
			Handler: s.tool("get_flight_details", s.getFlightDetails),
		},
		{
			Tool: mcp.NewTool("track_flight",
				mcp.WithDescription("Track the live status of a flight by id, or by flight number and date"),
				mcp.WithString("flight_id", mcp.Description("Flight identifier, if known")),
				mcp.WithString("flight_number", mcp.Description("Flight number, e.g. UA123")),
				mcp.WithString("date", mcp.Description("Date of the flight in YYYY-MM-DD format")),
			),
			Handler: s.tool("track_flight", s.trackFlight),
		},
		{
			Tool: mcp.NewTool("update_flight_status",
				mcp.WithDescription("Set the operational status of a flight. DELAYED pushes its schedule back."),
				mcp.WithString("flight_id", mcp.Required(), mcp.Description("The flight to update")),
				mcp.WithString("status", mcp.Required(), mcp.Description("New status"),
					mcp.Enum("scheduled", "boarding", "departed", "in_flight", "landed", "arrived", "delayed", "cancelled", "diverted")),
			),
			Handler: s.tool("update_flight_status", s.updateFlightStatus),
		},
		{
			Tool: mcp.NewTool("price_alert",
				mcp.WithDescription("Set up price monitoring for a route on a set of travel dates"),
				mcp.WithString("origin", mcp.Required(), mcp.Description("Origin airport code")),
				mcp.WithString("destination", mcp.Required(), mcp.Description("Destination airport code")),
				mcp.WithNumber("target_price", mcp.Required(), mcp.Description("Desired maximum price")),
				mcp.WithArray("travel_dates", mcp.Required(), mcp.Description("Potential travel dates (YYYY-MM-DD)"),
					mcp.Items(map[string]any{"type": "string"})),
				mcp.WithString("email", mcp.Required(), mcp.Description("Email for notifications")),
				mcp.WithString("seat_class", mcp.Description("Class of service to monitor"), mcp.Enum(seatClassNames...)),
			),
			Handler: s.tool("price_alert", s.priceAlert),
		},
	}
}

func (s *Server) searchFlights(ctx context.Context, a args) (map[string]any, error) {
	var (
		req models.SearchRequest
		err error
	)
	if req.Origin, err = a.requiredStr("origin"); err != nil {
		return nil, err
	}
	if req.Destination, err = a.requiredStr("destination"); err != nil {
		return nil, err
	}
	if req.DepartureDate, err = a.requiredStr("departure_date"); err != nil {
		return nil, err
	}
	if req.ReturnDate, err = a.str("return_date"); err != nil {
		return nil, err
	}
	if req.Passengers, err = a.intOr("passengers", 1); err != nil {
		return nil, err
	}
	if req.Passengers < 1 || req.Passengers > 9 {
		return nil, invalidArg("passengers must be between 1 and 9")
	}
	if req.SeatClass, err = a.seatClassOr("seat_class", models.SeatClassEconomy); err != nil {
		return nil, err
	}
	if req.NonstopOnly, err = a.boolOr("nonstop_only", false); err != nil {
		return nil, err
	}
	if req.MaxPrice, _, err = a.number("max_price"); err != nil {
		return nil, err
	}
	if req.PreferredAirlines, err = a.stringList("preferred_airlines"); err != nil {
		return nil, err
	}

	resp, err := s.Catalog.SearchTrips(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"search_id":        resp.SearchID,
		"outbound_flights": resp.OutboundFlights,
		"return_flights":   resp.ReturnFlights,
		"total_results":    resp.TotalResults,
		"search_criteria":  resp.SearchCriteria,
	}, nil
}

func (s *Server) airportInfo(code string) any {
	if a, ok := s.ref.Airport(code); ok {
		return a
	}
	return nil
}

func (s *Server) getFlightDetails(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("flight_id")
	if err != nil {
		return nil, err
	}
	f, err := s.Catalog.Get(id)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"flight": f,
		"airport_info": map[string]any{
			"origin":      s.airportInfo(f.Origin),
			"destination": s.airportInfo(f.Destination),
		},
	}, nil
}

func (s *Server) trackFlight(ctx context.Context, a args) (map[string]any, error) {
	id, err := a.str("flight_id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		number, err := a.str("flight_number")
		if err != nil {
			return nil, err
		}
		date, err := a.str("date")
		if err != nil {
			return nil, err
		}
		if number == "" || date == "" {
			return nil, invalidArg("provide flight_id, or flight_number and date")
		}
		f, err := s.Catalog.FindByNumber(number, date)
		if err != nil {
			return nil, err
		}
		id = f.FlightID
	}

	now := s.Catalog.Now()
	tr, err := s.Catalog.AdvanceFlight(ctx, id, now)
	if err != nil {
		return nil, err
	}
	f := tr.Flight

	altitude, speed := 0, 0
	if f.Status == models.FlightStatusInFlight {
		altitude = 30000 + s.randIntn(10001)
		speed = 450 + s.randIntn(101)
	}

	flight := map[string]any{
		"flight_id":           f.FlightID,
		"flight_number":       f.FlightNumber,
		"airline":             f.Airline,
		"origin":              f.Origin,
		"destination":         f.Destination,
		"status":              f.Status,
		"scheduled_departure": f.Departure,
		"scheduled_arrival":   f.Arrival,
		"actual_departure":    nil,
		"actual_arrival":      nil,
		"gate":                f.Gate,
		"terminal":            f.Terminal,
		"aircraft":            f.Aircraft,
		"duration":            f.Duration,
	}
	if f.Status != models.FlightStatusScheduled {
		flight["actual_departure"] = f.Departure
	}
	if f.Status == models.FlightStatusArrived {
		flight["actual_arrival"] = f.Arrival
	}

	payload := map[string]any{
		"flight": flight,
		"tracking": map[string]any{
			"last_updated":        tr.LastUpdated,
			"altitude":            altitude,
			"speed":               speed,
			"progress_percentage": tr.ProgressPercentage,
		},
	}
	if f.Status == models.FlightStatusDelayed {
		wait := f.Departure.Sub(now)
		if wait < 0 {
			wait = 0
		}
		payload["delay_info"] = map[string]any{
			"reason":          s.randChoice(s.ref.DelayReasons),
			"estimated_delay": fmt.Sprintf("%d minutes", int(wait/time.Minute)),
			"new_departure":   f.Departure,
		}
	}
	return payload, nil
}

func (s *Server) updateFlightStatus(ctx context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("flight_id")
	if err != nil {
		return nil, err
	}
	raw, err := a.requiredStr("status")
	if err != nil {
		return nil, err
	}
	status, err := models.ParseFlightStatus(raw)
	if err != nil {
		return nil, err
	}
	f, err := s.Catalog.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"flight":  f,
		"message": fmt.Sprintf("Flight %s is now %s", f.FlightNumber, f.Status),
	}, nil
}

func (s *Server) priceAlert(ctx context.Context, a args) (map[string]any, error) {
	origin, err := a.requiredStr("origin")
	if err != nil {
		return nil, err
	}
	destination, err := a.requiredStr("destination")
	if err != nil {
		return nil, err
	}
	target, ok, err := a.number("target_price")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidArg("target_price is required")
	}
	dates, err := a.stringList("travel_dates")
	if err != nil {
		return nil, err
	}
	email, err := a.requiredStr("email")
	if err != nil {
		return nil, err
	}
	class, err := a.seatClassOr("seat_class", models.SeatClassEconomy)
	if err != nil {
		return nil, err
	}

	alert, prices, err := s.Alerts.Create(ctx, origin, destination, target, dates, email, class)
	if err != nil {
		return nil, err
	}
	if prices == nil {
		prices = []models.DatePrice{}
	}
	return map[string]any{
		"alert_id": alert.AlertID,
		"alert":    alert,
		"message":  fmt.Sprintf("Price alert created for %s to %s", alert.Origin, alert.Destination),
		"monitoring": map[string]any{
			"route":           alert.Origin + " → " + alert.Destination,
			"target_price":    alert.TargetPrice,
			"dates_monitored": len(alert.TravelDates),
			"email":           alert.Email,
			"seat_class":      alert.SeatClass,
		},
		"current_prices": prices,
		"notification":   "You'll receive email alerts when prices drop below your target",
	}, nil
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
