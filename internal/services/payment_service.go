package services

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"flight_sim/internal/metrics"
	"flight_sim/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService authorizes payment tokens against a mock gateway
type PaymentService struct {
	mu          sync.Mutex
	rng         *rand.Rand // guarded by mu
	failureRate float64    // share of authorizations that are declined

	payments map[string]*models.PaymentResponse // by payment id, guarded by mu

	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPaymentService creates a new payment service
func NewPaymentService(failureRate float64, rng *rand.Rand, logger *zap.Logger, m *metrics.Metrics) *PaymentService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ps := &PaymentService{
		rng:      rng,
		payments: make(map[string]*models.PaymentResponse),
		now:      time.Now,
		logger:   logger.Named("payment"),
		metrics:  m,
	}
	ps.SetFailureRate(failureRate)
	return ps
}

// SetFailureRate sets the decline rate, ignoring values outside [0, 1]
func (ps *PaymentService) SetFailureRate(rate float64) {
	if rate >= 0 && rate <= 1 {
		ps.mu.Lock()
		ps.failureRate = rate
		ps.mu.Unlock()
	}
}

// Authorize charges the token. A decline returns a PaymentFailed error.
func (ps *PaymentService) Authorize(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResponse, error) {
	const op = "authorize payment"

	if strings.TrimSpace(req.PaymentToken) == "" {
		return nil, models.NewError(models.KindValidation, op, "payment token is required")
	}
	if req.Amount < 0 {
		return nil, models.NewError(models.KindValidation, op, "payment amount cannot be negative")
	}

	select {
	case <-ctx.Done():
		ps.metrics.Payment(models.PaymentStatusFailed)
		return nil, models.WrapError(models.KindPaymentFailed, op, "Payment processing timeout", ctx.Err())
	default:
	}

	ps.mu.Lock()
	declined := ps.rng.Float64() < ps.failureRate
	message := ""
	if declined {
		message = failureMessages[ps.rng.Intn(len(failureMessages))]
	}
	ps.mu.Unlock()

	if declined {
		ps.metrics.Payment(models.PaymentStatusFailed)
		ps.logger.Info("Payment declined",
			zap.String("reference", req.Reference),
			zap.Float64("amount", req.Amount),
			zap.String("reason", message))
		return nil, models.NewError(models.KindPaymentFailed, op, "Payment declined: "+message)
	}

	resp := &models.PaymentResponse{
		PaymentID:   uuid.New().String(),
		Status:      models.PaymentStatusCompleted,
		Message:     "Payment processed successfully",
		Reference:   req.Reference,
		Amount:      req.Amount,
		ProcessedAt: ps.now(),
	}
	ps.mu.Lock()
	stored := *resp
	ps.payments[resp.PaymentID] = &stored
	ps.mu.Unlock()

	ps.metrics.Payment(resp.Status)
	ps.logger.Debug("Payment processed",
		zap.String("reference", req.Reference),
		zap.String("payment_id", resp.PaymentID),
		zap.Float64("amount", req.Amount))
	return resp, nil
}

// Refund returns amount of a completed payment to the customer. A payment is refunded
// at most once; refunding zero voids the authorization without moving money.
func (ps *PaymentService) Refund(paymentID string, amount float64, reason string) (*models.PaymentResponse, error) {
	const op = "refund payment"

	ps.mu.Lock()
	payment, ok := ps.payments[paymentID]
	if !ok {
		ps.mu.Unlock()
		return nil, models.NotFound(op, "Payment", paymentID)
	}
	if payment.Status != models.PaymentStatusCompleted {
		ps.mu.Unlock()
		return nil, models.NewError(models.KindInvalidTransition, op,
			"Payment "+paymentID+" is "+payment.Status+" and cannot be refunded")
	}
	if amount < 0 || amount > payment.Amount {
		ps.mu.Unlock()
		return nil, models.NewError(models.KindValidation, op, "refund amount must be between 0 and the paid amount")
	}
	payment.Status = models.PaymentStatusRefunded
	payment.Message = reason
	payment.ProcessedAt = ps.now()
	resp := *payment
	resp.Amount = amount
	ps.mu.Unlock()

	ps.metrics.Payment(resp.Status)
	ps.logger.Info("Payment refunded",
		zap.String("payment_id", paymentID),
		zap.String("reference", resp.Reference),
		zap.Float64("amount", amount),
		zap.String("reason", reason))
	return &resp, nil
}

// Status returns the current state of a payment
func (ps *PaymentService) Status(paymentID string) (string, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	payment, ok := ps.payments[paymentID]
	if !ok {
		return "", false
	}
	return payment.Status, true
}

var failureMessages = []string{
	"Insufficient funds",
	"Card declined",
	"Invalid card number",
	"Expired card",
	"CVV mismatch",
	"Bank declined transaction",
	"Fraud detection alert",
	"Daily limit exceeded",
	"Card blocked",
	"Network error",
}
