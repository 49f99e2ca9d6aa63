package handlers

import (
	"context"
	"fmt"

	"flight_sim/internal/models"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const defaultPaymentToken = "mock-payment-token"

var passengerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"first_name":      map[string]any{"type": "string"},
		"last_name":       map[string]any{"type": "string"},
		"email":           map[string]any{"type": "string"},
		"phone":           map[string]any{"type": "string"},
		"date_of_birth":   map[string]any{"type": "string", "description": "YYYY-MM-DD"},
		"passport_number": map[string]any{"type": "string"},
		"nationality":     map[string]any{"type": "string"},
		"passenger_type":  map[string]any{"type": "string", "enum": []string{"adult", "child", "infant"}},
		"meal_preference": map[string]any{"type": "string"},
	},
	"required": []string{"first_name", "last_name", "email"},
}

var seatSelectionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"passenger_id": map[string]any{"type": "string"},
		"seat_number":  map[string]any{"type": "string"},
	},
	"required": []string{"passenger_id", "seat_number"},
}

func (s *Server) bookingTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("create_booking",
				mcp.WithDescription("Book a flight for one or more passengers"),
				mcp.WithString("flight_id", mcp.Required(), mcp.Description("The flight to book")),
				mcp.WithArray("passengers", mcp.Required(), mcp.Description("Passenger details"), mcp.Items(passengerSchema)),
				mcp.WithString("seat_class", mcp.Description("Class of service"), mcp.Enum(seatClassNames...)),
				mcp.WithString("payment_token", mcp.Description("Payment authorization token")),
				mcp.WithBoolean("add_insurance", mcp.Description("Add comprehensive travel insurance")),
				mcp.WithString("special_requests", mcp.Description("Any special requests or notes")),
			),
			Handler: s.tool("create_booking", s.createBooking),
		},
		{
			Tool: mcp.NewTool("get_booking",
				mcp.WithDescription("Retrieve a booking by booking id or PNR"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking id or PNR")),
				mcp.WithString("email", mcp.Description("Passenger email for verification")),
			),
			Handler: s.tool("get_booking", s.getBooking),
		},
		{
			Tool: mcp.NewTool("cancel_booking",
				mcp.WithDescription("Cancel a booking. The refund depends on the time left before departure."),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking to cancel")),
				mcp.WithString("reason", mcp.Description("Cancellation reason")),
			),
			Handler: s.tool("cancel_booking", s.cancelBooking),
		},
		{
			Tool: mcp.NewTool("check_in",
				mcp.WithDescription("Check in online and issue boarding passes, from 24 hours before departure"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking to check in")),
				mcp.WithArray("passenger_ids", mcp.Description("Passengers to check in, all when omitted"),
					mcp.Items(map[string]any{"type": "string"})),
				mcp.WithArray("seat_preferences", mcp.Description("Seat preference per passenger"), mcp.Items(seatSelectionSchema)),
			),
			Handler: s.tool("check_in", s.checkIn),
		},
		{
			Tool: mcp.NewTool("modify_booking",
				mcp.WithDescription("Change the flight or date of a booking, or upgrade its class"),
				mcp.WithString("booking_id", mcp.Required(), mcp.Description("The booking to modify")),
				mcp.WithString("new_flight_id", mcp.Description("New flight to change to")),
				mcp.WithString("new_date", mcp.Description("New travel date (YYYY-MM-DD), the first available flight is chosen")),
				mcp.WithString("seat_class_upgrade", mcp.Description("Upgrade to a higher class"), mcp.Enum(seatClassNames...)),
			),
			Handler: s.tool("modify_booking", s.modifyBooking),
		},
		{
			Tool: mcp.NewTool("group_booking",
				mcp.WithDescription("Create a discounted booking for a group of 5 to 30 travellers"),
				mcp.WithString("flight_id", mcp.Required(), mcp.Description("The flight to book")),
				mcp.WithString("group_name", mcp.Required(), mcp.Description("Name for the group booking")),
				mcp.WithArray("passengers", mcp.Required(), mcp.Description("Passenger details"), mcp.Items(passengerSchema)),
				mcp.WithString("seat_class", mcp.Description("Class of service for all passengers"), mcp.Enum(seatClassNames...)),
				mcp.WithBoolean("seat_together", mcp.Description("Seat passengers together")),
				mcp.WithString("payment_token", mcp.Description("Payment authorization token")),
			),
			Handler: s.tool("group_booking", s.groupBooking),
		},
	}
}

func passengersArg(a args) ([]models.PassengerInfo, error) {
	list, err := a.objects("passengers")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, invalidArg("at least one passenger is required")
	}
	return decodePassengers(list)
}

func (s *Server) createBooking(ctx context.Context, a args) (map[string]any, error) {
	flightID, err := a.requiredStr("flight_id")
	if err != nil {
		return nil, err
	}
	passengers, err := passengersArg(a)
	if err != nil {
		return nil, err
	}
	class, err := a.seatClassOr("seat_class", models.SeatClassEconomy)
	if err != nil {
		return nil, err
	}
	token, err := a.strOr("payment_token", defaultPaymentToken)
	if err != nil {
		return nil, err
	}
	insure, err := a.boolOr("add_insurance", false)
	if err != nil {
		return nil, err
	}
	requests, err := a.str("special_requests")
	if err != nil {
		return nil, err
	}

	booking, err := s.Ledger.Create(ctx, flightID, passengers, class, token, requests)
	if err != nil {
		return nil, err
	}
	if insure {
		insured, err := s.Ancillary.AddInsurance(booking.BookingID, models.CoverageComprehensive)
		if err != nil {
			return nil, fmt.Errorf("booking %s created but insurance failed: %w", booking.BookingID, err)
		}
		booking = insured
	}

	return map[string]any{
		"booking":              booking,
		"confirmation_message": fmt.Sprintf("Booking confirmed! Your PNR is %s", booking.PNR),
		"next_steps": []string{
			"Check in online 24 hours before departure",
			"Arrive at airport 2 hours before domestic flights",
			"Bring valid ID and this confirmation",
		},
	}, nil
}

func (s *Server) getBooking(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	email, err := a.str("email")
	if err != nil {
		return nil, err
	}
	booking, err := s.Ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if email != "" && !booking.HasPassengerEmail(email) {
		return nil, models.NotFound("get booking", "Booking", id)
	}

	var flight any
	if f, err := s.Catalog.Get(booking.FlightID); err == nil {
		flight = f
	}
	return map[string]any{
		"booking": booking,
		"flight":  flight,
	}, nil
}

func (s *Server) cancelBooking(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	reason, err := a.str("reason")
	if err != nil {
		return nil, err
	}
	res, err := s.Ledger.Cancel(id, reason)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"booking_id":        res.BookingID,
		"status":            res.Status,
		"refund_amount":     res.RefundAmount,
		"refund_percentage": res.RefundPercentage,
		"reason":            res.Reason,
		"seats_released":    res.SeatsReleased,
		"message":           fmt.Sprintf("Booking %s has been cancelled. Refund of $%.2f will be processed.", res.BookingID, res.RefundAmount),
	}, nil
}

func (s *Server) checkIn(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	passengerIDs, err := a.stringList("passenger_ids")
	if err != nil {
		return nil, err
	}
	prefList, err := a.objects("seat_preferences")
	if err != nil {
		return nil, err
	}
	prefs, err := decodeSeatSelections(prefList)
	if err != nil {
		return nil, err
	}

	booking, passes, err := s.Ledger.CheckIn(id, passengerIDs, prefs)
	if err != nil {
		return nil, err
	}

	reminders := []string{
		"Boarding begins 30 minutes before departure",
		"Have your ID and boarding pass ready",
	}
	if len(passes) > 0 {
		reminders = append([]string{
			fmt.Sprintf("Arrive at gate %s by %s", passes[0].Gate, passes[0].BoardingTime.Format("15:04")),
		}, reminders...)
	}
	return map[string]any{
		"booking_id":      booking.BookingID,
		"status":          booking.Status,
		"boarding_passes": passes,
		"message":         "Check-in completed successfully!",
		"reminders":       reminders,
	}, nil
}

func (s *Server) modifyBooking(_ context.Context, a args) (map[string]any, error) {
	id, err := a.requiredStr("booking_id")
	if err != nil {
		return nil, err
	}
	var req models.ModificationRequest
	if req.NewFlightID, err = a.str("new_flight_id"); err != nil {
		return nil, err
	}
	if req.NewDate, err = a.str("new_date"); err != nil {
		return nil, err
	}
	if req.SeatClassUpgrade, err = a.str("seat_class_upgrade"); err != nil {
		return nil, err
	}

	res, err := s.Ledger.Modify(id, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"booking_id": res.Booking.BookingID,
		"modifications": map[string]any{
			"new_flight":            res.NewFlightID,
			"seat_upgrade":          res.SeatUpgrade,
			"modification_fee":      res.ModificationFee,
			"price_difference":      res.PriceDifference,
			"total_additional_cost": res.TotalAdditionalCost,
		},
		"updated_booking": res.Booking,
		"message":         fmt.Sprintf("Booking modified successfully. Additional charge: $%.2f", res.TotalAdditionalCost),
	}, nil
}

func (s *Server) groupBooking(ctx context.Context, a args) (map[string]any, error) {
	flightID, err := a.requiredStr("flight_id")
	if err != nil {
		return nil, err
	}
	groupName, err := a.requiredStr("group_name")
	if err != nil {
		return nil, err
	}
	passengers, err := passengersArg(a)
	if err != nil {
		return nil, err
	}
	class, err := a.seatClassOr("seat_class", models.SeatClassEconomy)
	if err != nil {
		return nil, err
	}
	together, err := a.boolOr("seat_together", true)
	if err != nil {
		return nil, err
	}
	token, err := a.strOr("payment_token", defaultPaymentToken)
	if err != nil {
		return nil, err
	}

	res, err := s.Groups.Book(ctx, flightID, groupName, passengers, class, together, token)
	if err != nil {
		return nil, err
	}
	booking := res.Booking
	size := len(booking.Passengers)

	benefits := map[string]any{
		"group_boarding":    true,
		"flexible_names":    "Names can be changed up to 7 days before departure",
		"dedicated_support": "Group coordinator hotline available",
		"payment_options":   "Deposit now, full payment 30 days before travel",
	}
	if size >= 10 {
		benefits["complimentary_seats"] = fmt.Sprintf("1 free seat per 10 paid (%d free)", size/10)
		benefits["lounge_passes"] = "2 complimentary lounge passes for group leaders"
	}

	payload := map[string]any{
		"group_id":         res.GroupID,
		"group_name":       booking.GroupName,
		"booking_id":       booking.BookingID,
		"pnr":              booking.PNR,
		"passengers_count": size,
		"seat_class":       booking.SeatClass,
		"pricing": map[string]any{
			"base_price_per_person":       res.BasePricePerPerson,
			"group_discount_percentage":   res.DiscountPercentage,
			"discounted_price_per_person": res.DiscountedPerPerson,
			"total_price":                 booking.TotalPrice,
			"total_savings":               res.TotalSavings,
		},
		"seat_assignments": "Seats will be assigned at check-in",
		"group_benefits":   benefits,
		"booking":          booking,
		"message": fmt.Sprintf("Group booking confirmed for %d passengers with %g%% discount!",
			size, res.DiscountPercentage),
	}
	if together {
		payload["seat_assignments"] = res.SeatAssignments
	}
	if f, err := s.Catalog.Get(booking.FlightID); err == nil {
		payload["flight"] = map[string]any{
			"flight_number": f.FlightNumber,
			"route":         f.Origin + " → " + f.Destination,
			"departure":     f.Departure,
			"arrival":       f.Arrival,
		}
	}
	return payload, nil
}
