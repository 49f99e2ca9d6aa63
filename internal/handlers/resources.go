package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"flight_sim/internal/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// resourceDef is a static resource, or a template when uri holds a {param}
type resourceDef struct {
	uri         string
	name        string
	description string
	read        func(ctx context.Context, param string) (any, error)
}

func (r resourceDef) isTemplate() bool {
	return strings.Contains(r.uri, "{")
}

func (r resourceDef) prefix() string {
	if i := strings.Index(r.uri, "{"); i >= 0 {
		return r.uri[:i]
	}
	return r.uri
}

// match reports whether uri addresses r and returns the template parameter
func (r resourceDef) match(uri string) (string, bool) {
	if !r.isTemplate() {
		return "", uri == r.uri
	}
	rest, ok := strings.CutPrefix(uri, r.prefix())
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	param, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return param, true
}

func (s *Server) resources() []resourceDef {
	return []resourceDef{
		{"flight://airports/{code}", "Airport information", "Details, terminals and amenities of an airport", s.airportResource},
		{"flight://status/{flight_id}", "Flight status", "Current status, times and gate of a flight", s.flightStatusResource},
		{"bookings://history/{email}", "Booking history", "Bookings made by a customer email", s.bookingHistoryResource},
		{"loyalty://programs", "Loyalty programs", "Frequent flyer programs and their tiers", s.staticResource(func() any { return map[string]any{"programs": s.ref.LoyaltyPrograms} })},
		{"travel://tips/{destination}", "Travel tips", "Airport and city tips for a destination such as NYC", s.travelTipsResource},
		{"info://baggage-policies", "Baggage policies", "Carry-on and checked baggage rules and fees", s.staticResource(func() any { return s.ref.BaggagePolicies })},
		{"info://seat-maps/{flight_number}", "Seat map", "Cabin layout for a flight number", s.seatMapResource},
		{"weather://forecast/{airport_code}", "Weather forecast", "Current conditions and a two day forecast at an airport", s.weatherResource},
		{"info://airline-policies", "Airline policies", "Cancellation, check-in and boarding policies", s.staticResource(func() any { return s.ref.AirlinePolicies })},
	}
}

func (s *Server) staticResource(fn func() any) func(context.Context, string) (any, error) {
	return func(context.Context, string) (any, error) {
		return fn(), nil
	}
}

func (s *Server) registerResources() {
	for _, r := range s.resources() {
		handler := s.resourceHandler(r)
		if r.isTemplate() {
			s.mcp.AddResourceTemplate(
				mcp.NewResourceTemplate(r.uri, r.name,
					mcp.WithTemplateDescription(r.description),
					mcp.WithTemplateMIMEType("application/json"),
				),
				server.ResourceTemplateHandlerFunc(handler),
			)
			continue
		}
		s.mcp.AddResource(
			mcp.NewResource(r.uri, r.name,
				mcp.WithResourceDescription(r.description),
				mcp.WithMIMEType("application/json"),
			),
			server.ResourceHandlerFunc(handler),
		)
	}
}

func (s *Server) resourceHandler(r resourceDef) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		param, ok := r.match(req.Params.URI)
		if !ok {
			return nil, fmt.Errorf("invalid resource URI: %s", req.Params.URI)
		}
		text, err := s.render(ctx, r, param)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	}
}

func (s *Server) render(ctx context.Context, r resourceDef, param string) (string, error) {
	v, err := r.read(ctx, param)
	if err != nil {
		s.logger.Debug("Resource lookup failed", zap.String("uri", r.uri), zap.String("param", param), zap.Error(err))
		v = map[string]any{"error": models.ErrorMessage(err)}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode resource %s: %w", r.uri, err)
	}
	return string(data), nil
}

// ReadResource renders the resource addressed by uri
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	for _, r := range s.resources() {
		if param, ok := r.match(uri); ok {
			return s.render(ctx, r, param)
		}
	}
	return "", models.NotFound("read resource", "Resource", uri)
}

func (s *Server) airportResource(_ context.Context, code string) (any, error) {
	a, ok := s.ref.Airport(code)
	if !ok {
		return nil, models.NotFound("airport resource", "Airport", upper(code))
	}
	return a, nil
}

func (s *Server) flightStatusResource(_ context.Context, id string) (any, error) {
	f, err := s.Catalog.Get(id)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"flight_id":     f.FlightID,
		"flight_number": f.FlightNumber,
		"status":        f.Status,
		"departure":     f.Departure,
		"arrival":       f.Arrival,
		"gate":          f.Gate,
		"terminal":      f.Terminal,
		"last_updated":  s.Catalog.Now(),
	}, nil
}

func (s *Server) bookingHistoryResource(_ context.Context, email string) (any, error) {
	bookings := s.Ledger.ByEmail(email)
	summaries := make([]models.BookingSummary, 0, len(bookings))
	miles := 0
	for _, b := range bookings {
		sum := models.BookingSummary{
			BookingID:  b.BookingID,
			PNR:        b.PNR,
			FlightID:   b.FlightID,
			Status:     b.Status,
			Passengers: len(b.Passengers),
			TotalPrice: b.TotalPrice,
		}
		if f, err := s.Catalog.Get(b.FlightID); err == nil {
			dep := f.Departure
			sum.FlightNumber = f.FlightNumber
			sum.Origin = f.Origin
			sum.Destination = f.Destination
			sum.Departure = &dep
			if b.Status != models.BookingStatusCancelled && b.Status != models.BookingStatusRefunded {
				miles += s.ref.RouteMiles(f.Origin, f.Destination) * len(b.Passengers)
			}
		}
		summaries = append(summaries, sum)
	}
	return map[string]any{
		"email":          email,
		"total_bookings": len(summaries),
		"bookings":       summaries,
		"loyalty_summary": map[string]any{
			"total_miles": miles,
		},
	}, nil
}

func (s *Server) travelTipsResource(_ context.Context, destination string) (any, error) {
	tips, ok := s.ref.Tips(destination)
	if !ok {
		return map[string]any{
			"error":                  fmt.Sprintf("No tips available for %s", upper(destination)),
			"available_destinations": s.ref.TipDestinations(),
		}, nil
	}
	return tips, nil
}

func (s *Server) seatMapResource(_ context.Context, flightNumber string) (any, error) {
	out := map[string]any{"flight_number": upper(flightNumber)}
	for k, v := range s.ref.SeatMap {
		out[k] = v
	}
	// live availability from the next departure of this flight number
	now := s.Catalog.Now()
	for _, f := range s.Catalog.FlightsByNumber(flightNumber) {
		if f.Departure.Before(now) {
			continue
		}
		out["aircraft_type"] = f.Aircraft
		out["next_departure"] = f.Departure
		out["flight_id"] = f.FlightID
		out["available_seats"] = f.AvailableSeats
		break
	}
	return out, nil
}

func (s *Server) weatherResource(_ context.Context, code string) (any, error) {
	base := 50 + s.randIntn(31)
	conditions := s.ref.WeatherOptions
	dry := conditions
	if len(conditions) > 1 {
		dry = conditions[:len(conditions)-1]
	}
	out := map[string]any{
		"airport_code": upper(code),
		"current": map[string]any{
			"temperature": fmt.Sprintf("%d°F", base),
			"conditions":  s.randChoice(conditions),
			"wind":        fmt.Sprintf("%d mph", 5+s.randIntn(16)),
			"visibility":  fmt.Sprintf("%d miles", 5+s.randIntn(6)),
		},
		"forecast": []map[string]any{
			{
				"day":           "Today",
				"high":          fmt.Sprintf("%d°F", base+10),
				"low":           fmt.Sprintf("%d°F", base-5),
				"conditions":    s.randChoice(dry),
				"precipitation": fmt.Sprintf("%d%%", s.randIntn(31)),
			},
			{
				"day":           "Tomorrow",
				"high":          fmt.Sprintf("%d°F", base+8),
				"low":           fmt.Sprintf("%d°F", base-3),
				"conditions":    s.randChoice(conditions),
				"precipitation": fmt.Sprintf("%d%%", s.randIntn(41)),
			},
		},
	}
	if a, ok := s.ref.Airport(code); ok {
		out["city"] = a.City
		out["average_delay_minutes"] = a.AverageDelayMinutes
	}
	return out, nil
}
