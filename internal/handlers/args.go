package handlers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"flight_sim/internal/models"
)

// args wraps the decoded tool arguments. Clients send JSON, so numbers arrive
// as float64 and lists as []any.
type args map[string]any

func invalidArg(format string, a ...any) error {
	return models.NewError(models.KindValidation, "decode arguments", fmt.Sprintf(format, a...))
}

func (a args) has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a args) str(key string) (string, error) {
	if !a.has(key) {
		return "", nil
	}
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", invalidArg("%s must be a string", key)
	}
}

func (a args) requiredStr(key string) (string, error) {
	s, err := a.str(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", invalidArg("%s is required", key)
	}
	return s, nil
}

func (a args) strOr(key, fallback string) (string, error) {
	s, err := a.str(key)
	if err != nil || s != "" {
		return s, err
	}
	return fallback, nil
}

func (a args) number(key string) (float64, bool, error) {
	if !a.has(key) {
		return 0, false, nil
	}
	switch v := a[key].(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, invalidArg("%s must be a number", key)
		}
		return f, true, nil
	default:
		return 0, false, invalidArg("%s must be a number", key)
	}
}

func (a args) intOr(key string, fallback int) (int, error) {
	f, ok, err := a.number(key)
	if err != nil || !ok {
		return fallback, err
	}
	if f != math.Trunc(f) {
		return 0, invalidArg("%s must be a whole number", key)
	}
	return int(f), nil
}

func (a args) boolOr(key string, fallback bool) (bool, error) {
	if !a.has(key) {
		return fallback, nil
	}
	switch v := a[key].(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, invalidArg("%s must be a boolean", key)
		}
		return b, nil
	default:
		return false, invalidArg("%s must be a boolean", key)
	}
}

// stringList accepts a list or a comma separated string
func (a args) stringList(key string) ([]string, error) {
	if !a.has(key) {
		return nil, nil
	}
	var out []string
	switch v := a[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalidArg("%s must be a list of strings", key)
			}
			out = append(out, s)
		}
	case string:
		out = strings.Split(v, ",")
	default:
		return nil, invalidArg("%s must be a list of strings", key)
	}

	cleaned := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned, nil
}

func (a args) objects(key string) ([]args, error) {
	if !a.has(key) {
		return nil, nil
	}
	list, ok := a[key].([]any)
	if !ok {
		if maps, ok := a[key].([]map[string]any); ok {
			out := make([]args, len(maps))
			for i, m := range maps {
				out[i] = m
			}
			return out, nil
		}
		return nil, invalidArg("%s must be a list of objects", key)
	}
	out := make([]args, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, invalidArg("%s[%d] must be an object", key, i)
		}
		out = append(out, m)
	}
	return out, nil
}

func (a args) seatClassOr(key string, fallback models.SeatClass) (models.SeatClass, error) {
	s, err := a.str(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return fallback, nil
	}
	return models.ParseSeatClass(s)
}

func decodePassengers(list []args) ([]models.PassengerInfo, error) {
	out := make([]models.PassengerInfo, 0, len(list))
	for i, p := range list {
		var info models.PassengerInfo
		var err error
		fields := []struct {
			key string
			dst *string
		}{
			{"first_name", &info.FirstName},
			{"last_name", &info.LastName},
			{"email", &info.Email},
			{"phone", &info.Phone},
			{"passport_number", &info.PassportNumber},
			{"nationality", &info.Nationality},
			{"passenger_type", &info.PassengerType},
			{"meal_preference", &info.MealPreference},
		}
		for _, f := range fields {
			if *f.dst, err = p.str(f.key); err != nil {
				return nil, invalidArg("passengers[%d]: %v", i, err)
			}
		}

		dob, err := p.str("date_of_birth")
		if err != nil {
			return nil, invalidArg("passengers[%d]: %v", i, err)
		}
		if dob != "" {
			t, err := time.Parse(models.DateLayout, dob)
			if err != nil {
				return nil, invalidArg("passengers[%d]: date_of_birth must be YYYY-MM-DD", i)
			}
			info.DateOfBirth = &t
		}
		out = append(out, info)
	}
	return out, nil
}

func decodeSeatSelections(list []args) ([]models.SeatSelection, error) {
	out := make([]models.SeatSelection, 0, len(list))
	for i, s := range list {
		pid, err := s.requiredStr("passenger_id")
		if err != nil {
			return nil, invalidArg("selection %d: passenger_id is required", i)
		}
		seat, err := s.requiredStr("seat_number")
		if err != nil {
			return nil, invalidArg("selection %d: seat_number is required", i)
		}
		out = append(out, models.SeatSelection{PassengerID: pid, SeatNumber: strings.ToUpper(seat)})
	}
	return out, nil
}

func decodeBaggage(list []args) ([]models.BaggageItem, error) {
	out := make([]models.BaggageItem, 0, len(list))
	for i, b := range list {
		typ, err := b.strOr("type", models.BaggageTypeChecked)
		if err != nil {
			return nil, err
		}
		weight, _, err := b.number("weight")
		if err != nil {
			return nil, err
		}
		item := models.BaggageItem{Type: strings.ToLower(typ), Weight: weight}

		if b.has("dimensions") {
			raw, ok := b["dimensions"].(map[string]any)
			if !ok {
				return nil, invalidArg("baggage_items[%d]: dimensions must be an object", i)
			}
			dims := args(raw)
			var d models.Dimensions
			for _, f := range []struct {
				key string
				dst *float64
			}{{"length", &d.Length}, {"width", &d.Width}, {"height", &d.Height}} {
				if *f.dst, _, err = dims.number(f.key); err != nil {
					return nil, invalidArg("baggage_items[%d]: %v", i, err)
				}
			}
			item.Dimensions = &d
		}
		out = append(out, item)
	}
	return out, nil
}

func decodeServices(list []args) ([]models.ServiceItem, error) {
	out := make([]models.ServiceItem, 0, len(list))
	for i, s := range list {
		typ, err := s.requiredStr("type")
		if err != nil {
			return nil, invalidArg("services[%d]: type is required", i)
		}
		qty, err := s.intOr("quantity", 1)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ServiceItem{Type: strings.ToLower(typ), Quantity: qty})
	}
	return out, nil
}
