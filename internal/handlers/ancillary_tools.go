package handlers

import (
	"context"
	"fmt"

	"flight_sim/internal/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (s *Server) ancillaryTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("add_baggage",
				mcp.WithDescription("Add baggage to a booking. The first checked bag costs less than the rest."),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking to add baggage to")),
				mcp.WithArray("baggage_items", mcp.Required(), mcp.Description("Baggage items with type, weight and dimensions"),
					mcp.Items(map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type":   map[string]any{"type": "string", "enum": []string{"carry_on", "checked", "oversized", "special"}},
							"weight": map[string]any{"type": "number", "description": "Weight in kg"},
							"dimensions": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"length": map[string]any{"type": "number"},
									"width":  map[string]any{"type": "number"},
									"height": map[string]any{"type": "number"},
								},
							},
						},
						"required": []string{"type", "weight"},
					})),
			),
			Handler: s.tool("add_baggage", s.addBaggage),
		},
		{
			Tool: mcp.NewTool("add_services",
				mcp.WithDescription("Add optional services such as meals, WiFi or priority boarding"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking to add services to")),
				mcp.WithArray("services", mcp.Required(), mcp.Description("Services to add"),
					mcp.Items(map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type": map[string]any{"type": "string", "enum": []string{
								"wifi", "meal", "priority_boarding", "lounge_access", "extra_legroom", "seat_selection",
							}},
							"quantity": map[string]any{"type": "integer", "minimum": 1},
						},
						"required": []string{"type"},
					})),
			),
			Handler: s.tool("add_services", s.addServices),
		},
		{
			Tool: mcp.NewTool("travel_insurance",
				mcp.WithDescription("Add travel insurance to a booking"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking to insure")),
				mcp.WithString("coverage_type", mcp.Description("Type of coverage"),
					mcp.Enum(models.CoverageBasic, models.CoverageComprehensive, models.CoverageMedicalOnly)),
			),
			Handler: s.tool("travel_insurance", s.travelInsurance),
		},
		{
			Tool: mcp.NewTool("special_assistance",
				mcp.WithDescription("Request special assistance for a passenger"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking id")),
				mcp.WithString("passenger_id", mcp.Required(), mcp.Description("The passenger requiring assistance")),
				mcp.WithArray("assistance_types", mcp.Required(), mcp.Description("Assistance needed"),
					mcp.Items(map[string]any{"type": "string", "enum": []string{
						"wheelchair", "visual_impairment", "hearing_impairment",
						"assistance_animal", "unaccompanied_minor", "medical_equipment",
					}})),
				mcp.WithString("special_notes", mcp.Description("Additional requirements or information")),
			),
			Handler: s.tool("special_assistance", s.specialAssistance),
		},
		{
			Tool: mcp.NewTool("loyalty_account",
				mcp.WithDescription("Link a frequent flyer account to a passenger and estimate the miles earned"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking id")),
				mcp.WithString("passenger_id", mcp.Required(), mcp.Description("The passenger id")),
				mcp.WithString("frequent_flyer_number", mcp.Required(), mcp.Description("Frequent flyer account number")),
				mcp.WithString("airline_code", mcp.Description("Airline code of the program")),
			),
			Handler: s.tool("loyalty_account", s.loyaltyAccount),
		},
		{
			Tool: mcp.NewTool("select_seats",
				mcp.WithDescription("Select specific seats for passengers in a booking"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking id")),
				mcp.WithArray("seat_selections", mcp.Required(), mcp.Description("Passenger to seat mappings"),
					mcp.Items(seatSelectionSchema)),
			),
			Handler: s.tool("select_seats", s.selectSeats),
		},
		{
			Tool: mcp.NewTool("upgrade_seat",
				mcp.WithDescription("Quote a class upgrade, or upgrade right away with miles"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking id")),
				mcp.WithString("passenger_id", mcp.Description("The passenger requesting the upgrade")),
				mcp.WithString("target_class", mcp.Required(), mcp.Description("Target class"), mcp.Enum(seatClassNames...)),
				mcp.WithBoolean("use_miles", mcp.Description("Use frequent flyer miles to confirm the upgrade")),
			),
			Handler: s.tool("upgrade_seat", s.upgradeSeat),
		},
	}
}

func (s *Server) addBaggage(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	list, err := a.objects("baggage_items")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, invalidArg("at least one baggage item is required")
	}
	items, err := decodeBaggage(list)
	if err != nil {
		return nil, err
	}

	res, err := s.Ancillary.AddBaggage(id, items)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"booking_id":        res.BookingID,
		"added_baggage":     res.AddedBaggage,
		"total_baggage_fee": res.TotalBaggageFee,
		"total_price":       res.TotalPrice,
		"baggage_allowance": s.ref.BaggageAllowance,
		"message":           fmt.Sprintf("Added %d baggage items. Total fee: $%.2f", len(res.AddedBaggage), res.TotalBaggageFee),
	}, nil
}

func (s *Server) addServices(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	list, err := a.objects("services")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, invalidArg("at least one service is required")
	}
	items, err := decodeServices(list)
	if err != nil {
		return nil, err
	}

	res, err := s.Ancillary.AddServices(id, items)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"booking_id":         res.BookingID,
		"added_services":     res.AddedServices,
		"total_service_fee":  res.TotalServiceFee,
		"total_price":        res.TotalPrice,
		"available_services": s.ref.Services,
		"message":            fmt.Sprintf("Added %d services. Total fee: $%.2f", len(res.AddedServices), res.TotalServiceFee),
	}, nil
}

func (s *Server) travelInsurance(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	coverage, err := a.strOr("coverage_type", models.CoverageComprehensive)
	if err != nil {
		return nil, err
	}

	b, err := s.Ancillary.AddInsurance(id, coverage)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"booking_id":      b.BookingID,
		"insurance":       b.Insurance,
		"total_price":     b.TotalPrice,
		"message":         fmt.Sprintf("Travel insurance added. Premium: $%.2f", b.Insurance.Price),
		"important_notes": s.ref.InsuranceNotes,
	}, nil
}

func (s *Server) specialAssistance(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	pid, err := a.requiredStr("passenger_id")
	if err != nil {
		return nil, err
	}
	types, err := a.stringList("assistance_types")
	if err != nil {
		return nil, err
	}
	notes, err := a.str("special_notes")
	if err != nil {
		return nil, err
	}

	res, err := s.Ancillary.RequestAssistance(id, pid, types, notes)
	if err != nil {
		return nil, err
	}
	provided := make(map[string]any, len(res.AssistanceRequested))
	for _, t := range res.AssistanceRequested {
		if details, ok := s.ref.Assistance[t]; ok {
			provided[t] = details
		}
	}
	return map[string]any{
		"booking_id":           res.BookingID,
		"passenger_id":         res.PassengerID,
		"passenger":            res.PassengerName,
		"assistance_requested": res.AssistanceRequested,
		"services_provided":    provided,
		"confirmation":         "Special assistance has been arranged",
		"airport_arrival":      "Please arrive 3 hours before departure for smooth processing",
		"contact":              "Airport special services will contact you 24 hours before departure",
		"special_notes":        res.SpecialNotes,
	}, nil
}

func (s *Server) loyaltyAccount(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	pid, err := a.requiredStr("passenger_id")
	if err != nil {
		return nil, err
	}
	number, err := a.requiredStr("frequent_flyer_number")
	if err != nil {
		return nil, err
	}
	airline, err := a.str("airline_code")
	if err != nil {
		return nil, err
	}

	res, err := s.Ancillary.LinkLoyalty(id, pid, number, airline)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"booking_id":            res.BookingID,
		"passenger":             res.PassengerName,
		"frequent_flyer_number": res.FrequentFlyerNumber,
		"airline":               res.Airline,
		"flight":                res.Flight,
		"base_miles":            res.BaseMiles,
		"miles_earned":          res.MilesEarned,
		"class_bonus":           fmt.Sprintf("%d%%", int((res.Multiplier-1)*100)),
		"message":               fmt.Sprintf("Frequent flyer account linked. You'll earn %d miles on this flight.", res.MilesEarned),
	}, nil
}

func (s *Server) selectSeats(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	list, err := a.objects("seat_selections")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, invalidArg("at least one seat selection is required")
	}
	selections, err := decodeSeatSelections(list)
	if err != nil {
		return nil, err
	}

	assignments, err := s.Seats.SelectSeats(id, selections)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"booking_id":       id,
		"seats_assigned":   len(assignments),
		"seat_assignments": assignments,
		"seat_map_info": map[string]string{
			"economy":  "Rows 16-40 (3-3 configuration)",
			"business": "Rows 6-15 (2-2 configuration)",
			"first":    "Rows 1-5 (1-1 configuration)",
		},
		"message":  fmt.Sprintf("Successfully assigned %d seats", len(assignments)),
		"reminder": "Seat assignments may change due to operational requirements",
	}, nil
}

func (s *Server) upgradeSeat(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	pid, err := a.str("passenger_id")
	if err != nil {
		return nil, err
	}
	target, err := a.requiredStr("target_class")
	if err != nil {
		return nil, err
	}
	useMiles, err := a.boolOr("use_miles", false)
	if err != nil {
		return nil, err
	}

	q, err := s.Seats.Upgrade(id, pid, target, useMiles)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"booking_id":    q.BookingID,
		"current_class": q.CurrentClass,
		"target_class":  q.TargetClass,
		"availability":  "Available",
		"upgrade_options": map[string]any{
			"cash": map[string]any{
				"price":                q.CashPrice,
				"currency":             q.Currency,
				"instant_confirmation": true,
			},
			"miles": map[string]any{
				"miles_required": q.MilesRequired,
				"copay":          q.Copay,
			},
			"bid": map[string]any{
				"minimum_bid":     q.MinimumBid,
				"recommended_bid": q.SuggestedBid,
				"notification":    "24-48 hours before departure",
			},
		},
		"benefits":    s.ref.UpgradeBenefits[string(q.TargetClass)],
		"total_price": q.TotalPrice,
		"confirmed":   q.Confirmed,
	}
	if q.Confirmed {
		payload["current_class"] = q.TargetClass
		payload["previous_class"] = q.CurrentClass
		payload["message"] = fmt.Sprintf("Upgraded to %s using %d miles plus $%.2f copay", q.TargetClass, q.MilesRequired, q.Copay)
	} else {
		payload["message"] = fmt.Sprintf("Upgrade to %s available from $%.2f", q.TargetClass, q.CashPrice)
	}
	return payload, nil
}
