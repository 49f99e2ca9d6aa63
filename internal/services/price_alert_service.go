package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"flight_sim/internal/metrics"
	"flight_sim/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PriceAlertService keeps fare alerts and checks them against the catalog
type PriceAlertService struct {
	mu     sync.RWMutex
	alerts map[string]*models.PriceAlert

	catalog *FlightCatalog
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPriceAlertService creates an empty alert registry
func NewPriceAlertService(catalog *FlightCatalog, logger *zap.Logger, m *metrics.Metrics) *PriceAlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceAlertService{
		alerts:  make(map[string]*models.PriceAlert),
		catalog: catalog,
		now:     catalog.now,
		logger:  logger.Named("price_alerts"),
		metrics: m,
	}
}

// Create registers an alert and returns the current lowest fares for its dates
func (s *PriceAlertService) Create(ctx context.Context, origin, destination string, targetPrice float64,
	dates []string, email string, class models.SeatClass) (*models.PriceAlert, []models.DatePrice, error) {
	const op = "create price alert"

	origin, destination = strings.ToUpper(strings.TrimSpace(origin)), strings.ToUpper(strings.TrimSpace(destination))
	if origin == "" || destination == "" {
		return nil, nil, models.NewError(models.KindValidation, op, "origin and destination are required")
	}
	if targetPrice <= 0 {
		return nil, nil, models.NewError(models.KindValidation, op, "target price must be positive")
	}
	if len(dates) == 0 {
		return nil, nil, models.NewError(models.KindValidation, op, "at least one travel date is required")
	}
	for _, d := range dates {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return nil, nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", d))
		}
	}
	if !strings.Contains(email, "@") {
		return nil, nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid email %q", email))
	}
	if !class.IsValid() {
		return nil, nil, models.NewError(models.KindValidation, op, fmt.Sprintf("invalid seat class %q", class))
	}

	now := s.now()
	alert := &models.PriceAlert{
		AlertID:     fmt.Sprintf("PA-%s-%s", now.Format("20060102150405"), uuid.NewString()[:8]),
		Origin:      origin,
		Destination: destination,
		TargetPrice: targetPrice,
		TravelDates: append([]string(nil), dates...),
		Email:       email,
		SeatClass:   class,
		CreatedAt:   now,
		Status:      models.PriceAlertActive,
	}

	prices, err := s.LowestPrices(ctx, alert)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.alerts[alert.AlertID] = alert
	snapshot := *alert
	s.mu.Unlock()

	s.metrics.PriceAlert("created")
	s.logger.Info("Price alert created",
		zap.String("alert_id", alert.AlertID),
		zap.String("route", origin+"-"+destination),
		zap.Float64("target_price", targetPrice))
	return &snapshot, prices, nil
}

// LowestPrices returns, per travel date, the cheapest fare in the alert class among
// flights with a seat left. Dates without flights are omitted.
func (s *PriceAlertService) LowestPrices(ctx context.Context, alert *models.PriceAlert) ([]models.DatePrice, error) {
	var out []models.DatePrice
	for _, date := range alert.TravelDates {
		flights, err := s.catalog.Search(ctx, alert.Origin, alert.Destination, date, 1, alert.SeatClass)
		if err != nil {
			return nil, err
		}
		if len(flights) == 0 {
			continue
		}
		lowest := flights[0].Price.For(alert.SeatClass)
		for _, f := range flights[1:] {
			lowest = min(lowest, f.Price.For(alert.SeatClass))
		}
		out = append(out, models.DatePrice{
			Date:        date,
			LowestPrice: lowest,
			BelowTarget: lowest <= alert.TargetPrice,
		})
	}
	return out, nil
}

// Get returns an alert by id
func (s *PriceAlertService) Get(alertID string) (*models.PriceAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[alertID]
	if !ok {
		return nil, models.NotFound("get price alert", "Price alert", alertID)
	}
	snapshot := *a
	return &snapshot, nil
}

// List returns every alert, oldest first
func (s *PriceAlertService) List() []models.PriceAlert {
	s.mu.RLock()
	out := make([]models.PriceAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, *a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].AlertID < out[j].AlertID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Evaluate checks every active alert and marks the ones whose fare dropped to the target
func (s *PriceAlertService) Evaluate(ctx context.Context) ([]models.PriceAlert, error) {
	var triggered []models.PriceAlert
	for _, alert := range s.List() {
		if alert.Status != models.PriceAlertActive {
			continue
		}
		prices, err := s.LowestPrices(ctx, &alert)
		if err != nil {
			return triggered, fmt.Errorf("failed to evaluate alert %s: %w", alert.AlertID, err)
		}
		hit := false
		for _, p := range prices {
			if p.BelowTarget {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}

		now := s.now()
		s.mu.Lock()
		if a, ok := s.alerts[alert.AlertID]; ok && a.Status == models.PriceAlertActive {
			a.Status = models.PriceAlertTriggered
			a.TriggeredAt = &now
			triggered = append(triggered, *a)
		}
		s.mu.Unlock()

		s.metrics.PriceAlert("triggered")
		s.logger.Info("Price alert triggered",
			zap.String("alert_id", alert.AlertID),
			zap.String("email", alert.Email),
			zap.Float64("target_price", alert.TargetPrice))
	}
	return triggered, nil
}
