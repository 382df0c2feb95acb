package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/app/repository"
	"github.com/coinkart/CoinKart/internal/pkg/alerts"
	"gorm.io/gorm"
)

// AmountTolerance absorbs paise rounding between the gateway's captured amount
// and the order total. Anything beyond it is an anomaly, never a paid order.
const AmountTolerance = 1.0

// Timeline statuses appended during payment transitions.
const (
	TimelinePaymentCaptured   = "payment_captured"
	TimelinePaymentFailed     = "payment_failed"
	TimelinePaymentAuthorized = "payment_authorized"
	TimelineRefundCreated     = "refund_created"
	TimelineRefundProcessed   = "refund_processed"
	TimelineRefundFailed      = "refund_failed"
	TimelineAmountMismatch    = "amount_mismatch"
)

// ErrOrderNotFound wraps lookups that miss; callers treat it as a
// deterministic validation failure, not a retryable infrastructure error.
var ErrOrderNotFound = errors.New("order not found")

// StateMachine applies gateway payment events to an order's payment sub-state.
// It never invents transitions: every handler re-checks the current status
// before mutating, so replayed events that slipped past the ledger are no-ops.
type StateMachine struct {
	orders  repository.OrderRepository
	alerter alerts.Alerter
}

// NewStateMachine creates a state machine with injected collaborators.
func NewStateMachine(orders repository.OrderRepository, alerter alerts.Alerter) *StateMachine {
	return &StateMachine{orders: orders, alerter: alerter}
}

// CaptureInput describes a captured payment from either gateway.
type CaptureInput struct {
	PaymentID      string
	GatewayOrderID string
	OrderNumber    string
	Amount         float64
	Currency       string
}

// HandleCaptured marks the order paid when the captured amount reconciles with
// the order total. A mismatch beyond AmountTolerance flags the order and emits
// an admin alert without assigning any payment status.
func (m *StateMachine) HandleCaptured(ctx context.Context, in CaptureInput) error {
	order, err := m.lookupOrder(in.OrderNumber, in.GatewayOrderID, in.PaymentID)
	if err != nil {
		return err
	}

	// Idempotent against ledger gaps: a paid order stays paid.
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}

	if math.Abs(in.Amount-order.TotalAmount) > AmountTolerance {
		detail := fmt.Sprintf("captured %.2f %s against order total %.2f %s", in.Amount, in.Currency, order.TotalAmount, order.Currency)
		if err := m.orders.AddFlag(&models.OrderFlag{
			OrderID: order.ID,
			Flag:    models.OrderFlagAmountMismatch,
			Detail:  detail,
		}); err != nil {
			return err
		}
		if err := m.appendTimeline(order.ID, TimelineAmountMismatch, detail, map[string]interface{}{
			"captured_amount": in.Amount,
			"expected_amount": order.TotalAmount,
			"payment_id":      in.PaymentID,
		}); err != nil {
			return err
		}
		_ = m.alerter.Emit(ctx, alerts.Alert{
			Kind:    alerts.KindAmountMismatch,
			Subject: fmt.Sprintf("order %s amount mismatch", order.OrderNumber),
			Detail:  detail,
			Metadata: map[string]string{
				"order_number": order.OrderNumber,
				"payment_id":   in.PaymentID,
			},
		})
		// The order keeps its prior status; manual review decides.
		return nil
	}

	now := time.Now()
	order.PaymentStatus = models.PaymentStatusPaid
	order.TransactionID = in.PaymentID
	order.PaidAmount = in.Amount
	order.PaidAt = &now
	if in.GatewayOrderID != "" {
		order.GatewayOrder = in.GatewayOrderID
	}
	if err := m.orders.Save(order); err != nil {
		return err
	}

	return m.appendTimeline(order.ID, TimelinePaymentCaptured,
		fmt.Sprintf("payment %s captured for %.2f %s", in.PaymentID, in.Amount, in.Currency),
		map[string]interface{}{"payment_id": in.PaymentID, "amount": in.Amount})
}

// HandleFailed records the failure reason and moves pending|processing orders
// to failed.
func (m *StateMachine) HandleFailed(ctx context.Context, paymentID, gatewayOrderID, orderNumber, reason string) error {
	order, err := m.lookupOrder(orderNumber, gatewayOrderID, paymentID)
	if err != nil {
		return err
	}

	switch order.PaymentStatus {
	case models.PaymentStatusPending, models.PaymentStatusProcessing:
	default:
		// Terminal or already failed; nothing to transition.
		return nil
	}

	if reason == "" {
		reason = "payment failed"
	}
	order.PaymentStatus = models.PaymentStatusFailed
	if err := m.orders.Save(order); err != nil {
		return err
	}
	return m.appendTimeline(order.ID, TimelinePaymentFailed, reason,
		map[string]interface{}{"payment_id": paymentID})
}

// HandleAuthorized moves a pending order to processing while the gateway
// awaits capture. It never marks paid.
func (m *StateMachine) HandleAuthorized(ctx context.Context, paymentID, gatewayOrderID string, amount float64) error {
	order, err := m.lookupOrder("", gatewayOrderID, paymentID)
	if err != nil {
		return err
	}

	if order.PaymentStatus != models.PaymentStatusPending {
		return nil
	}

	order.PaymentStatus = models.PaymentStatusProcessing
	order.TransactionID = paymentID
	if err := m.orders.Save(order); err != nil {
		return err
	}
	return m.appendTimeline(order.ID, TimelinePaymentAuthorized,
		fmt.Sprintf("payment %s authorized, awaiting capture", paymentID),
		map[string]interface{}{"payment_id": paymentID, "amount": amount})
}

// HandleRefundCreated notes an initiated refund. The payment status is not
// touched until the refund is processed.
func (m *StateMachine) HandleRefundCreated(ctx context.Context, refundID, paymentID string, amount float64) error {
	order, err := m.orderByTransaction(paymentID)
	if err != nil {
		return err
	}
	return m.appendTimeline(order.ID, TimelineRefundCreated,
		fmt.Sprintf("refund %s created for %.2f", refundID, amount),
		map[string]interface{}{"refund_id": refundID, "amount": amount})
}

// HandleRefundProcessed accumulates the refunded amount and marks the order
// refunded.
func (m *StateMachine) HandleRefundProcessed(ctx context.Context, refundID, paymentID string, amount float64) error {
	order, err := m.orderByTransaction(paymentID)
	if err != nil {
		return err
	}

	now := time.Now()
	order.RefundAmount += amount
	order.RefundID = refundID
	order.RefundedAt = &now
	order.PaymentStatus = models.PaymentStatusRefunded
	if err := m.orders.Save(order); err != nil {
		return err
	}

	// Refunds beyond the order total mean the gateway and our books disagree;
	// the accumulation is recorded either way, an operator sorts it out.
	if order.RefundAmount > order.TotalAmount+AmountTolerance {
		_ = m.alerter.Emit(ctx, alerts.Alert{
			Kind:    alerts.KindRefundAnomaly,
			Subject: fmt.Sprintf("order %s over-refunded", order.OrderNumber),
			Detail:  fmt.Sprintf("refunds total %.2f against order total %.2f", order.RefundAmount, order.TotalAmount),
			Metadata: map[string]string{
				"order_number": order.OrderNumber,
				"refund_id":    refundID,
			},
		})
	}

	return m.appendTimeline(order.ID, TimelineRefundProcessed,
		fmt.Sprintf("refund %s processed for %.2f", refundID, amount),
		map[string]interface{}{"refund_id": refundID, "amount": amount})
}

// HandleRefundFailed records the failure without altering the payment status.
func (m *StateMachine) HandleRefundFailed(ctx context.Context, refundID, paymentID, reason string) error {
	order, err := m.orderByTransaction(paymentID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "refund failed at gateway"
	}
	return m.appendTimeline(order.ID, TimelineRefundFailed,
		fmt.Sprintf("refund %s failed: %s", refundID, reason),
		map[string]interface{}{"refund_id": refundID})
}

// lookupOrder resolves an order by order number, then gateway order id, then
// transaction id. Refund events only carry the transaction id, capture events
// usually carry the rest.
func (m *StateMachine) lookupOrder(orderNumber, gatewayOrderID, paymentID string) (*models.Order, error) {
	if orderNumber != "" {
		order, err := m.orders.GetByOrderNumber(orderNumber)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if gatewayOrderID != "" {
		order, err := m.orders.GetByGatewayOrder(gatewayOrderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if paymentID != "" {
		order, err := m.orders.GetByTransactionID(paymentID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: number=%q gateway=%q payment=%q", ErrOrderNotFound, orderNumber, gatewayOrderID, paymentID)
}

func (m *StateMachine) orderByTransaction(paymentID string) (*models.Order, error) {
	order, err := m.orders.GetByTransactionID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment=%q", ErrOrderNotFound, paymentID)
		}
		return nil, err
	}
	return order, nil
}

func (m *StateMachine) appendTimeline(orderID uint, status, message string, metadata map[string]interface{}) error {
	entry := &models.OrderTimelineEntry{
		OrderID: orderID,
		Status:  status,
		Message: message,
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = models.JSON(raw)
		}
	}
	return m.orders.AppendTimeline(entry)
}
