package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is the closed set of gateway notifications the processor understands.
// Both gateways normalize into these variants; anything else becomes Unknown
// and is acknowledged without processing.
type Event interface {
	isEvent()
}

// PaymentCaptured reports a successful capture. Amount is in major currency
// units (gateways send minor units).
type PaymentCaptured struct {
	PaymentID      string
	GatewayOrderID string
	OrderNumber    string
	Amount         float64
	Currency       string
}

// PaymentFailed reports a failed or canceled payment attempt.
type PaymentFailed struct {
	PaymentID      string
	GatewayOrderID string
	OrderNumber    string
	Reason         string
}

// PaymentAuthorized reports an authorization awaiting capture.
type PaymentAuthorized struct {
	PaymentID      string
	GatewayOrderID string
	Amount         float64
	Currency       string
}

// PaymentCreated is informational; no order state changes.
type PaymentCreated struct {
	PaymentID string
}

// OrderPaid is Razorpay's order-level paid notification.
type OrderPaid struct {
	GatewayOrderID string
	PaymentID      string
	Amount         float64
	Currency       string
}

// RefundCreated notes that a refund was initiated; no status change yet.
type RefundCreated struct {
	RefundID  string
	PaymentID string
	Amount    float64
}

// RefundProcessed reports a completed refund.
type RefundProcessed struct {
	RefundID  string
	PaymentID string
	Amount    float64
}

// RefundFailed reports a refund that did not go through.
type RefundFailed struct {
	RefundID  string
	PaymentID string
	Reason    string
}

// CheckoutCompleted is a finished Stripe checkout session. Metadata decides
// whether it belongs to a plain order or a deal redemption.
type CheckoutCompleted struct {
	SessionID    string
	PaymentRef   string
	PurchaseType string
	OrderNumber  string
	Amount       float64
	Currency     string
}

// CheckoutExpired reports an abandoned checkout session.
type CheckoutExpired struct {
	SessionID    string
	PurchaseType string
	OrderNumber  string
}

// CheckoutAsyncFailed reports a delayed payment method that failed after the
// session completed.
type CheckoutAsyncFailed struct {
	SessionID    string
	PurchaseType string
	OrderNumber  string
	Reason       string
}

// Unknown carries an event type the processor does not handle. It is
// acknowledged as success for forward compatibility with gateway additions.
type Unknown struct {
	EventType string
}

func (PaymentCaptured) isEvent()     {}
func (PaymentFailed) isEvent()       {}
func (PaymentAuthorized) isEvent()   {}
func (PaymentCreated) isEvent()      {}
func (OrderPaid) isEvent()           {}
func (RefundCreated) isEvent()       {}
func (RefundProcessed) isEvent()     {}
func (RefundFailed) isEvent()        {}
func (CheckoutCompleted) isEvent()   {}
func (CheckoutExpired) isEvent()     {}
func (CheckoutAsyncFailed) isEvent() {}
func (Unknown) isEvent()             {}

// Checkout session purchase types carried in session metadata.
const (
	PurchaseTypeOrder          = "order"
	PurchaseTypeDealRedemption = "deal_redemption"
)

// Meta is the ledger-row extract of an inbound event.
type Meta struct {
	EventType string
	OrderID   string
	PaymentID string
	Amount    float64
	Currency  string
}

type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity razorpayRefund `json:"entity"`
		} `json:"refund"`
		Order struct {
			Entity razorpayOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type razorpayPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	ErrorDescription string `json:"error_description"`
	Notes            struct {
		OrderNumber string `json:"order_number"`
	} `json:"notes"`
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type razorpayOrder struct {
	ID      string `json:"id"`
	Amount  int64  `json:"amount"`
	Receipt string `json:"receipt"`
}

// ParseRazorpayEvent maps a raw Razorpay webhook body onto a typed Event plus
// its ledger metadata extract.
func ParseRazorpayEvent(raw []byte) (Event, Meta, error) {
	var env razorpayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Meta{}, fmt.Errorf("parse razorpay payload: %w", err)
	}

	payment := env.Payload.Payment.Entity
	refund := env.Payload.Refund.Entity
	order := env.Payload.Order.Entity

	meta := Meta{
		EventType: env.Event,
		OrderID:   payment.OrderID,
		PaymentID: payment.ID,
		Amount:    minorToMajor(payment.Amount),
		Currency:  payment.Currency,
	}

	switch env.Event {
	case "payment.captured":
		return PaymentCaptured{
			PaymentID:      payment.ID,
			GatewayOrderID: payment.OrderID,
			OrderNumber:    payment.Notes.OrderNumber,
			Amount:         minorToMajor(payment.Amount),
			Currency:       payment.Currency,
		}, meta, nil
	case "payment.failed":
		return PaymentFailed{
			PaymentID:      payment.ID,
			GatewayOrderID: payment.OrderID,
			OrderNumber:    payment.Notes.OrderNumber,
			Reason:         payment.ErrorDescription,
		}, meta, nil
	case "payment.authorized":
		return PaymentAuthorized{
			PaymentID:      payment.ID,
			GatewayOrderID: payment.OrderID,
			Amount:         minorToMajor(payment.Amount),
			Currency:       payment.Currency,
		}, meta, nil
	case "order.paid":
		meta.OrderID = order.ID
		meta.Amount = minorToMajor(order.Amount)
		return OrderPaid{
			GatewayOrderID: order.ID,
			PaymentID:      payment.ID,
			Amount:         minorToMajor(order.Amount),
			Currency:       payment.Currency,
		}, meta, nil
	case "refund.created":
		meta.PaymentID = refund.PaymentID
		meta.Amount = minorToMajor(refund.Amount)
		return RefundCreated{
			RefundID:  refund.ID,
			PaymentID: refund.PaymentID,
			Amount:    minorToMajor(refund.Amount),
		}, meta, nil
	case "refund.processed":
		meta.PaymentID = refund.PaymentID
		meta.Amount = minorToMajor(refund.Amount)
		return RefundProcessed{
			RefundID:  refund.ID,
			PaymentID: refund.PaymentID,
			Amount:    minorToMajor(refund.Amount),
		}, meta, nil
	case "refund.failed":
		meta.PaymentID = refund.PaymentID
		return RefundFailed{
			RefundID:  refund.ID,
			PaymentID: refund.PaymentID,
		}, meta, nil
	default:
		return Unknown{EventType: env.Event}, meta, nil
	}
}

type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object stripeObject `json:"object"`
	} `json:"data"`
}

type stripeObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	AmountRefunded int64             `json:"amount_refunded"`
	AmountTotal    int64             `json:"amount_total"`
	Currency       string            `json:"currency"`
	PaymentIntent  string            `json:"payment_intent"`
	Metadata       map[string]string `json:"metadata"`
	LastPaymentErr struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// ParseStripeEvent maps a raw Stripe webhook body onto a typed Event plus its
// ledger metadata extract.
func ParseStripeEvent(raw []byte) (Event, Meta, error) {
	var env stripeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Meta{}, fmt.Errorf("parse stripe payload: %w", err)
	}

	obj := env.Data.Object
	orderNumber := obj.Metadata["order_number"]
	meta := Meta{
		EventType: env.Type,
		OrderID:   orderNumber,
		PaymentID: obj.ID,
		Currency:  strings.ToUpper(obj.Currency),
	}

	switch env.Type {
	case "payment_intent.succeeded":
		amount := obj.AmountReceived
		if amount == 0 {
			amount = obj.Amount
		}
		meta.Amount = minorToMajor(amount)
		return PaymentCaptured{
			PaymentID:   obj.ID,
			OrderNumber: orderNumber,
			Amount:      minorToMajor(amount),
			Currency:    strings.ToUpper(obj.Currency),
		}, meta, nil
	case "payment_intent.payment_failed":
		return PaymentFailed{
			PaymentID:   obj.ID,
			OrderNumber: orderNumber,
			Reason:      obj.LastPaymentErr.Message,
		}, meta, nil
	case "payment_intent.created":
		return PaymentCreated{PaymentID: obj.ID}, meta, nil
	case "payment_intent.canceled":
		return PaymentFailed{
			PaymentID:   obj.ID,
			OrderNumber: orderNumber,
			Reason:      "payment canceled",
		}, meta, nil
	case "charge.refunded":
		meta.PaymentID = obj.PaymentIntent
		meta.Amount = minorToMajor(obj.AmountRefunded)
		return RefundProcessed{
			RefundID:  obj.ID,
			PaymentID: obj.PaymentIntent,
			Amount:    minorToMajor(obj.AmountRefunded),
		}, meta, nil
	case "checkout.session.completed":
		meta.Amount = minorToMajor(obj.AmountTotal)
		return CheckoutCompleted{
			SessionID:    obj.ID,
			PaymentRef:   obj.PaymentIntent,
			PurchaseType: obj.Metadata["purchase_type"],
			OrderNumber:  orderNumber,
			Amount:       minorToMajor(obj.AmountTotal),
			Currency:     strings.ToUpper(obj.Currency),
		}, meta, nil
	case "checkout.session.expired":
		return CheckoutExpired{
			SessionID:    obj.ID,
			PurchaseType: obj.Metadata["purchase_type"],
			OrderNumber:  orderNumber,
		}, meta, nil
	case "checkout.session.async_payment_failed":
		return CheckoutAsyncFailed{
			SessionID:    obj.ID,
			PurchaseType: obj.Metadata["purchase_type"],
			OrderNumber:  orderNumber,
			Reason:       "async payment failed",
		}, meta, nil
	default:
		return Unknown{EventType: env.Type}, meta, nil
	}
}

// stripeEventID extracts just the envelope id without a full parse.
func stripeEventID(raw []byte) string {
	var env struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.ID)
}

func minorToMajor(amount int64) float64 {
	return float64(amount) / 100
}
