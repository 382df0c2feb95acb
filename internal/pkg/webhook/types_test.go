package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRazorpayPaymentCaptured(t *testing.T) {
	raw := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_123",
					"order_id": "order_abc",
					"amount": 149900,
					"currency": "INR",
					"notes": {"order_number": "CK-1001"}
				}
			}
		}
	}`)

	event, meta, err := ParseRazorpayEvent(raw)
	require.NoError(t, err)

	captured, ok := event.(PaymentCaptured)
	require.True(t, ok, "expected PaymentCaptured, got %T", event)
	assert.Equal(t, "pay_123", captured.PaymentID)
	assert.Equal(t, "order_abc", captured.GatewayOrderID)
	assert.Equal(t, "CK-1001", captured.OrderNumber)
	assert.Equal(t, 1499.0, captured.Amount)
	assert.Equal(t, "INR", captured.Currency)

	assert.Equal(t, "payment.captured", meta.EventType)
	assert.Equal(t, "pay_123", meta.PaymentID)
	assert.Equal(t, 1499.0, meta.Amount)
}

func TestParseRazorpayRefundProcessed(t *testing.T) {
	raw := []byte(`{
		"event": "refund.processed",
		"payload": {
			"refund": {
				"entity": {"id": "rfnd_9", "payment_id": "pay_123", "amount": 50000}
			}
		}
	}`)

	event, meta, err := ParseRazorpayEvent(raw)
	require.NoError(t, err)

	refund, ok := event.(RefundProcessed)
	require.True(t, ok, "expected RefundProcessed, got %T", event)
	assert.Equal(t, "rfnd_9", refund.RefundID)
	assert.Equal(t, "pay_123", refund.PaymentID)
	assert.Equal(t, 500.0, refund.Amount)
	assert.Equal(t, "pay_123", meta.PaymentID)
}

func TestParseRazorpayUnknownEvent(t *testing.T) {
	event, _, err := ParseRazorpayEvent([]byte(`{"event": "payment.downtime.started"}`))
	require.NoError(t, err)

	unknown, ok := event.(Unknown)
	require.True(t, ok, "expected Unknown, got %T", event)
	assert.Equal(t, "payment.downtime.started", unknown.EventType)
}

func TestParseRazorpayMalformedPayload(t *testing.T) {
	_, _, err := ParseRazorpayEvent([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseStripePaymentIntentSucceeded(t *testing.T) {
	raw := []byte(`{
		"id": "evt_55",
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_77",
				"amount_received": 250000,
				"currency": "inr",
				"metadata": {"order_number": "CK-2002"}
			}
		}
	}`)

	event, meta, err := ParseStripeEvent(raw)
	require.NoError(t, err)

	captured, ok := event.(PaymentCaptured)
	require.True(t, ok, "expected PaymentCaptured, got %T", event)
	assert.Equal(t, "pi_77", captured.PaymentID)
	assert.Equal(t, "CK-2002", captured.OrderNumber)
	assert.Equal(t, 2500.0, captured.Amount)
	assert.Equal(t, "INR", captured.Currency)
	assert.Equal(t, "payment_intent.succeeded", meta.EventType)
}

func TestParseStripeCheckoutCompleted(t *testing.T) {
	raw := []byte(`{
		"id": "evt_88",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_42",
				"amount_total": 9900,
				"currency": "inr",
				"payment_intent": "pi_55",
				"metadata": {"purchase_type": "deal_redemption"}
			}
		}
	}`)

	event, _, err := ParseStripeEvent(raw)
	require.NoError(t, err)

	completed, ok := event.(CheckoutCompleted)
	require.True(t, ok, "expected CheckoutCompleted, got %T", event)
	assert.Equal(t, "cs_42", completed.SessionID)
	assert.Equal(t, "pi_55", completed.PaymentRef)
	assert.Equal(t, PurchaseTypeDealRedemption, completed.PurchaseType)
	assert.Equal(t, 99.0, completed.Amount)
}

func TestParseStripeCanceledBecomesFailed(t *testing.T) {
	raw := []byte(`{
		"id": "evt_9",
		"type": "payment_intent.canceled",
		"data": {"object": {"id": "pi_9", "metadata": {"order_number": "CK-3"}}}
	}`)

	event, _, err := ParseStripeEvent(raw)
	require.NoError(t, err)

	failed, ok := event.(PaymentFailed)
	require.True(t, ok, "expected PaymentFailed, got %T", event)
	assert.Equal(t, "payment canceled", failed.Reason)
}

func TestStripeEventID(t *testing.T) {
	assert.Equal(t, "evt_123", stripeEventID([]byte(`{"id": "evt_123"}`)))
	assert.Equal(t, "", stripeEventID([]byte(`{broken`)))
	assert.Equal(t, "", stripeEventID([]byte(`{}`)))
}
