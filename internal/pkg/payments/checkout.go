package payments

import (
	"context"
	"fmt"

	"github.com/coinkart/CoinKart/app/repository"
	"github.com/coinkart/CoinKart/internal/pkg/webhook"
)

// CheckoutHandler resolves a completed checkout session to the entity that
// owns it and applies the completion. Session metadata is the single source
// for the owner decision so re-deliveries re-derive the same target.
type CheckoutHandler struct {
	stateMachine *StateMachine
	redemptions  repository.RedemptionRepository
}

// NewCheckoutHandler wires the checkout completion path.
func NewCheckoutHandler(sm *StateMachine, redemptions repository.RedemptionRepository) *CheckoutHandler {
	return &CheckoutHandler{stateMachine: sm, redemptions: redemptions}
}

// HandleCompleted applies checkout.session.completed. Plain orders run the
// capture transition; deal redemptions run the all-or-nothing activation plus
// campaign counter increment.
func (h *CheckoutHandler) HandleCompleted(ctx context.Context, ev webhook.CheckoutCompleted) error {
	switch ev.PurchaseType {
	case webhook.PurchaseTypeDealRedemption:
		_, err := h.redemptions.CompleteCheckout(ev.SessionID, ev.PaymentRef)
		return err
	case webhook.PurchaseTypeOrder, "":
		// Sessions created before purchase_type was stamped default to orders.
		return h.stateMachine.HandleCaptured(ctx, CaptureInput{
			PaymentID:   ev.PaymentRef,
			OrderNumber: ev.OrderNumber,
			Amount:      ev.Amount,
			Currency:    ev.Currency,
		})
	default:
		return fmt.Errorf("unknown checkout purchase type %q for session %s", ev.PurchaseType, ev.SessionID)
	}
}

// HandleExpired cancels an abandoned session's pending redemption; expired
// order sessions need no action (the order never left pending).
func (h *CheckoutHandler) HandleExpired(ctx context.Context, ev webhook.CheckoutExpired) error {
	if ev.PurchaseType == webhook.PurchaseTypeDealRedemption {
		return h.redemptions.CancelBySessionID(ev.SessionID, "checkout session expired")
	}
	return nil
}

// HandleAsyncFailed fails the owning order or cancels the owning redemption
// after a delayed payment method bounced.
func (h *CheckoutHandler) HandleAsyncFailed(ctx context.Context, ev webhook.CheckoutAsyncFailed) error {
	if ev.PurchaseType == webhook.PurchaseTypeDealRedemption {
		return h.redemptions.CancelBySessionID(ev.SessionID, ev.Reason)
	}
	return h.stateMachine.HandleFailed(ctx, "", "", ev.OrderNumber, ev.Reason)
}
