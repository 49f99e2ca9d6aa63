package models

import (
	"time"
)

// PaymentRequest represents a payment authorization for a booking
type PaymentRequest struct {
	Reference    string  `json:"reference"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	PaymentToken string  `json:"payment_token"`
}

// PaymentResponse represents the outcome of a payment authorization
type PaymentResponse struct {
	PaymentID   string    `json:"payment_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	Reference   string    `json:"reference"`
	Amount      float64   `json:"amount"`
	ProcessedAt time.Time `json:"processed_at"`
}

// PaymentStatus constants
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusPending   = "pending"
	PaymentStatusRefunded  = "refunded"
)

// IsValidPaymentStatus checks if the payment status is valid
func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusPending, PaymentStatusRefunded:
		return true
	}
	return false
}
