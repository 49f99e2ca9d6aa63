package services

import (
	"context"
	"math/rand"
	"testing"

	"flight_sim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	ps := NewPaymentService(0, rand.New(rand.NewSource(1)), nil, nil)

	resp, err := ps.Authorize(context.Background(), &models.PaymentRequest{
		Reference:    "UA100-20250305-0",
		Amount:       420,
		Currency:     "USD",
		PaymentToken: "tok_visa",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, resp.Status)
	assert.Len(t, resp.PaymentID, 36)
	assert.Equal(t, 420.0, resp.Amount)
}

func TestAuthorizeFailures(t *testing.T) {
	ctx := context.Background()
	ps := NewPaymentService(0, rand.New(rand.NewSource(1)), nil, nil)

	_, err := ps.Authorize(ctx, &models.PaymentRequest{Amount: 10})
	assert.True(t, models.IsKind(err, models.KindValidation))

	_, err = ps.Authorize(ctx, &models.PaymentRequest{Amount: -1, PaymentToken: "tok"})
	assert.True(t, models.IsKind(err, models.KindValidation))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ps.Authorize(cancelled, &models.PaymentRequest{Amount: 10, PaymentToken: "tok"})
	assert.True(t, models.IsKind(err, models.KindPaymentFailed))
	assert.ErrorIs(t, err, context.Canceled)

	ps.SetFailureRate(1)
	_, err = ps.Authorize(ctx, &models.PaymentRequest{Amount: 10, PaymentToken: "tok"})
	assert.True(t, models.IsKind(err, models.KindPaymentFailed))

	// out of range rates are ignored
	ps.SetFailureRate(2)
	_, err = ps.Authorize(ctx, &models.PaymentRequest{Amount: 10, PaymentToken: "tok"})
	assert.True(t, models.IsKind(err, models.KindPaymentFailed))
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	ps := NewPaymentService(0, rand.New(rand.NewSource(1)), nil, nil)
	authorize := func(amount float64) *models.PaymentResponse {
		resp, err := ps.Authorize(ctx, &models.PaymentRequest{Reference: "UA100-20250305-0", Amount: amount, PaymentToken: "tok"})
		require.NoError(t, err)
		return resp
	}

	paid := authorize(400)
	refund, err := ps.Refund(paid.PaymentID, 360, "booking cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refund.Status)
	assert.Equal(t, 360.0, refund.Amount)
	assert.Equal(t, "booking cancelled", refund.Message)

	status, ok := ps.Status(paid.PaymentID)
	require.True(t, ok)
	assert.Equal(t, models.PaymentStatusRefunded, status)

	_, err = ps.Refund(paid.PaymentID, 10, "again")
	assert.True(t, models.IsKind(err, models.KindInvalidTransition))

	_, err = ps.Refund("missing", 10, "")
	assert.True(t, models.IsKind(err, models.KindNotFound))

	other := authorize(50)
	_, err = ps.Refund(other.PaymentID, 51, "")
	assert.True(t, models.IsKind(err, models.KindValidation))
	status, _ = ps.Status(other.PaymentID)
	assert.Equal(t, models.PaymentStatusCompleted, status)
}
