package services

import (
	"fmt"
	"strings"

	"flight_sim/internal/metrics"
	"flight_sim/internal/models"
	"flight_sim/internal/reference"

	"go.uber.org/zap"
)

const insuranceProvider = "TravelGuard Plus"

var loyaltyMultipliers = map[models.SeatClass]float64{
	models.SeatClassEconomy:        1,
	models.SeatClassPremiumEconomy: 1.5,
	models.SeatClassBusiness:       2,
	models.SeatClassFirst:          3,
}

// AncillaryService attaches paid add-ons and passenger extras to bookings
type AncillaryService struct {
	ledger  *BookingLedger
	ref     *reference.Data
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewAncillaryService creates a new ancillary service
func NewAncillaryService(ledger *BookingLedger, ref *reference.Data, logger *zap.Logger, m *metrics.Metrics) *AncillaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AncillaryService{
		ledger:  ledger,
		ref:     ref,
		logger:  logger.Named("ancillary"),
		metrics: m,
	}
}

// baggageFee prices one bag. first reports whether no checked bag precedes it.
func baggageFee(item models.BaggageItem, first bool) float64 {
	switch item.Type {
	case models.BaggageTypeChecked:
		switch {
		case item.Weight <= 23:
			if first {
				return 30
			}
			return 50
		case item.Weight <= 32:
			return 100
		default:
			return 200
		}
	case models.BaggageTypeOversized:
		return 150
	case models.BaggageTypeSpecial:
		return 75
	default:
		return 0
	}
}

// AddBaggage attaches bags to a booking and adds their fees to the total
func (s *AncillaryService) AddBaggage(bookingID string, items []models.BaggageItem) (*models.BaggageResult, error) {
	const op = "add baggage"

	if len(items) == 0 {
		return nil, models.NewError(models.KindValidation, op, "at least one baggage item is required")
	}
	for _, item := range items {
		if !models.IsValidBaggageType(item.Type) {
			return nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid baggage type %q", item.Type))
		}
		if item.Weight < 0 {
			return nil, models.NewError(models.KindValidation, op, "baggage weight cannot be negative")
		}
	}

	var added []models.Baggage
	total := 0.0
	b, err := s.ledger.update(op, bookingID, func(b *models.Booking) error {
		checked := b.CheckedBagCount()
		for _, item := range items {
			fee := baggageFee(item, checked == 0)
			if item.Type == models.BaggageTypeChecked {
				checked++
			}
			added = append(added, models.Baggage{
				Type:       item.Type,
				Weight:     item.Weight,
				Dimensions: item.Dimensions,
				Fee:        fee,
			})
			total += fee
		}
		b.Baggage = append(b.Baggage, added...)
		b.TotalPrice += total
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Baggage added",
		zap.String("booking_id", b.BookingID),
		zap.Int("items", len(added)),
		zap.Float64("fee", total))
	return &models.BaggageResult{
		BookingID:       b.BookingID,
		AddedBaggage:    added,
		TotalBaggageFee: total,
		TotalPrice:      b.TotalPrice,
	}, nil
}

// AddServices attaches optional services. Quantity defaults to 1.
func (s *AncillaryService) AddServices(bookingID string, items []models.ServiceItem) (*models.ServiceResult, error) {
	const op = "add services"

	if len(items) == 0 {
		return nil, models.NewError(models.KindValidation, op, "at least one service is required")
	}
	added := make([]models.Service, 0, len(items))
	total := 0.0
	for _, item := range items {
		price, ok := s.ref.Service(item.Type)
		if !ok {
			return nil, models.NewError(models.KindValidation, op, fmt.Sprintf("unknown service type %q", item.Type))
		}
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, models.NewError(models.KindValidation, op, "service quantity must be positive")
		}
		svc := models.Service{
			Type:        item.Type,
			Description: price.Description,
			Price:       price.Price,
			Quantity:    qty,
		}
		added = append(added, svc)
		total += svc.Total()
	}

	b, err := s.ledger.update(op, bookingID, func(b *models.Booking) error {
		b.Services = append(b.Services, added...)
		b.TotalPrice += total
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Services added",
		zap.String("booking_id", b.BookingID),
		zap.Int("services", len(added)),
		zap.Float64("fee", total))
	return &models.ServiceResult{
		BookingID:       b.BookingID,
		AddedServices:   added,
		TotalServiceFee: total,
		TotalPrice:      b.TotalPrice,
	}, nil
}

// AddInsurance buys travel insurance, priced on the total before the premium.
// An existing policy is replaced and its premium removed first.
func (s *AncillaryService) AddInsurance(bookingID, coverage string) (*models.Booking, error) {
	const op = "add insurance"

	if coverage == "" {
		coverage = models.CoverageComprehensive
	}
	plan, ok := s.ref.InsurancePlan(coverage)
	if !ok {
		return nil, models.NewError(models.KindValidation, op,
			fmt.Sprintf("Invalid coverage type. Choose from: %s", strings.Join(s.ref.CoverageTypes(), ", ")))
	}

	b, err := s.ledger.update(op, bookingID, func(b *models.Booking) error {
		if b.Insurance != nil {
			b.TotalPrice -= b.Insurance.Price
		}
		details := make(map[string]string, len(plan.Coverage))
		for k, v := range plan.Coverage {
			details[k] = v
		}
		premium := b.TotalPrice * plan.Rate
		b.Insurance = &models.Insurance{
			Provider:        insuranceProvider,
			PolicyNumber:    "TG-" + b.BookingID,
			CoverageType:    coverage,
			Price:           premium,
			CoverageDetails: details,
		}
		b.TotalPrice += premium
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Insurance added",
		zap.String("booking_id", b.BookingID),
		zap.String("coverage", coverage),
		zap.Float64("premium", b.Insurance.Price))
	return b, nil
}

// RequestAssistance records special assistance for a passenger. Unknown types are ignored.
func (s *AncillaryService) RequestAssistance(bookingID, passengerID string, types []string, notes string) (*models.AssistanceResult, error) {
	const op = "special assistance"

	var valid []string
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if models.IsValidAssistanceType(t) {
			valid = append(valid, t)
		}
	}

	result := &models.AssistanceResult{PassengerID: passengerID, SpecialNotes: notes}
	b, err := s.ledger.update(op, bookingID, func(b *models.Booking) error {
		p, ok := b.Passenger(passengerID)
		if !ok {
			return passengerNotFound(op, passengerID)
		}
		if len(valid) == 0 {
			return models.NewError(models.KindValidation, op, "No valid assistance types provided")
		}
		p.SpecialAssistance = append([]string(nil), valid...)
		if notes != "" {
			b.SpecialRequests = notes
		}
		result.PassengerName = p.FullName()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.BookingID = b.BookingID
	result.AssistanceRequested = valid
	s.logger.Info("Special assistance requested",
		zap.String("booking_id", b.BookingID),
		zap.String("passenger_id", passengerID),
		zap.Strings("assistance", valid))
	return result, nil
}

// LinkLoyalty attaches a frequent flyer number and computes the miles the trip earns
func (s *AncillaryService) LinkLoyalty(bookingID, passengerID, frequentFlyerNumber, airlineCode string) (*models.LoyaltyResult, error) {
	const op = "link loyalty account"

	frequentFlyerNumber = strings.TrimSpace(frequentFlyerNumber)
	if frequentFlyerNumber == "" {
		return nil, models.NewError(models.KindValidation, op, "frequent flyer number is required")
	}

	result := &models.LoyaltyResult{FrequentFlyerNumber: frequentFlyerNumber, Airline: airlineCode}
	_, err := s.ledger.updateWithFlight(op, bookingID, func(b *models.Booking, f *models.Flight) error {
		p, ok := b.Passenger(passengerID)
		if !ok {
			return passengerNotFound(op, passengerID)
		}
		p.FrequentFlyerNumber = frequentFlyerNumber

		result.BookingID = b.BookingID
		result.PassengerName = p.FullName()
		result.Flight = f.FlightNumber
		if result.Airline == "" {
			result.Airline = f.Airline
		}
		result.BaseMiles = s.ref.RouteMiles(f.Origin, f.Destination)
		result.Multiplier = loyaltyMultipliers[b.SeatClass]
		result.MilesEarned = int(float64(result.BaseMiles) * result.Multiplier)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loyalty account linked",
		zap.String("booking_id", result.BookingID),
		zap.String("passenger_id", passengerID),
		zap.Int("miles_earned", result.MilesEarned))
	return result, nil
}
