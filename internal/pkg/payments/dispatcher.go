package payments

import (
	"context"

	"github.com/coinkart/CoinKart/internal/pkg/webhook"
)

// Dispatcher adapts the state machine and the checkout handler onto the
// webhook processor's handler set.
type Dispatcher struct {
	sm       *StateMachine
	checkout *CheckoutHandler
}

// NewDispatcher wires the payment handlers for the webhook processor.
func NewDispatcher(sm *StateMachine, checkout *CheckoutHandler) *Dispatcher {
	return &Dispatcher{sm: sm, checkout: checkout}
}

func (d *Dispatcher) HandleCaptured(ctx context.Context, ev webhook.PaymentCaptured) error {
	return d.sm.HandleCaptured(ctx, CaptureInput{
		PaymentID:      ev.PaymentID,
		GatewayOrderID: ev.GatewayOrderID,
		OrderNumber:    ev.OrderNumber,
		Amount:         ev.Amount,
		Currency:       ev.Currency,
	})
}

func (d *Dispatcher) HandleFailed(ctx context.Context, ev webhook.PaymentFailed) error {
	return d.sm.HandleFailed(ctx, ev.PaymentID, ev.GatewayOrderID, ev.OrderNumber, ev.Reason)
}

func (d *Dispatcher) HandleAuthorized(ctx context.Context, ev webhook.PaymentAuthorized) error {
	return d.sm.HandleAuthorized(ctx, ev.PaymentID, ev.GatewayOrderID, ev.Amount)
}

func (d *Dispatcher) HandleOrderPaid(ctx context.Context, ev webhook.OrderPaid) error {
	return d.sm.HandleCaptured(ctx, CaptureInput{
		PaymentID:      ev.PaymentID,
		GatewayOrderID: ev.GatewayOrderID,
		Amount:         ev.Amount,
		Currency:       ev.Currency,
	})
}

func (d *Dispatcher) HandleRefundCreated(ctx context.Context, ev webhook.RefundCreated) error {
	return d.sm.HandleRefundCreated(ctx, ev.RefundID, ev.PaymentID, ev.Amount)
}

func (d *Dispatcher) HandleRefundProcessed(ctx context.Context, ev webhook.RefundProcessed) error {
	return d.sm.HandleRefundProcessed(ctx, ev.RefundID, ev.PaymentID, ev.Amount)
}

func (d *Dispatcher) HandleRefundFailed(ctx context.Context, ev webhook.RefundFailed) error {
	return d.sm.HandleRefundFailed(ctx, ev.RefundID, ev.PaymentID, ev.Reason)
}

func (d *Dispatcher) HandleCheckoutCompleted(ctx context.Context, ev webhook.CheckoutCompleted) error {
	return d.checkout.HandleCompleted(ctx, ev)
}

func (d *Dispatcher) HandleCheckoutExpired(ctx context.Context, ev webhook.CheckoutExpired) error {
	return d.checkout.HandleExpired(ctx, ev)
}

func (d *Dispatcher) HandleCheckoutAsyncFailed(ctx context.Context, ev webhook.CheckoutAsyncFailed) error {
	return d.checkout.HandleAsyncFailed(ctx, ev)
}
