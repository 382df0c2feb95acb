package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/internal/pkg/alerts"
)

type fakeOrderRepo struct {
	orders   map[uint]*models.Order
	timeline []models.OrderTimelineEntry
	flags    []models.OrderFlag
}

func newFakeOrderRepo(orders ...*models.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[uint]*models.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrderRepo) GetByID(id uint) (*models.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) GetByGatewayOrder(gatewayOrder string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.GatewayOrder == gatewayOrder {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) GetByTransactionID(transactionID string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.TransactionID == transactionID && transactionID != "" {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) Save(order *models.Order) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) AppendTimeline(entry *models.OrderTimelineEntry) error {
	f.timeline = append(f.timeline, *entry)
	return nil
}

func (f *fakeOrderRepo) AddFlag(flag *models.OrderFlag) error {
	f.flags = append(f.flags, *flag)
	return nil
}

type recordingAlerter struct {
	alerts []alerts.Alert
}

func (r *recordingAlerter) Emit(_ context.Context, alert alerts.Alert) error {
	r.alerts = append(r.alerts, alert)
	return nil
}

func pendingOrder(total float64) *models.Order {
	return &models.Order{
		ID:            1,
		OrderNumber:   "CK-1",
		TotalAmount:   total,
		Currency:      "INR",
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestHandleCapturedMarksPaid(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1499))
	sm := NewStateMachine(repo, &recordingAlerter{})

	err := sm.HandleCaptured(context.Background(), CaptureInput{
		PaymentID:   "pay_1",
		OrderNumber: "CK-1",
		Amount:      1499,
		Currency:    "INR",
	})
	require.NoError(t, err)

	order := repo.orders[1]
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "pay_1", order.TransactionID)
	assert.Equal(t, 1499.0, order.PaidAmount)
	require.NotNil(t, order.PaidAt)
	require.Len(t, repo.timeline, 1)
	assert.Equal(t, TimelinePaymentCaptured, repo.timeline[0].Status)
}

func TestHandleCapturedWithinTolerance(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1499))
	sm := NewStateMachine(repo, &recordingAlerter{})

	err := sm.HandleCaptured(context.Background(), CaptureInput{
		PaymentID:   "pay_1",
		OrderNumber: "CK-1",
		Amount:      1499.5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, repo.orders[1].PaymentStatus)
}

func TestHandleCapturedAmountMismatch(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1499))
	alerter := &recordingAlerter{}
	sm := NewStateMachine(repo, alerter)

	err := sm.HandleCaptured(context.Background(), CaptureInput{
		PaymentID:   "pay_1",
		OrderNumber: "CK-1",
		Amount:      999,
		Currency:    "INR",
	})
	require.NoError(t, err, "mismatch is flagged, not errored")

	order := repo.orders[1]
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus, "status must stay untouched")
	assert.Empty(t, order.TransactionID)

	require.Len(t, repo.flags, 1)
	assert.Equal(t, models.OrderFlagAmountMismatch, repo.flags[0].Flag)
	require.Len(t, repo.timeline, 1)
	assert.Equal(t, TimelineAmountMismatch, repo.timeline[0].Status)
	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, alerts.KindAmountMismatch, alerter.alerts[0].Kind)
}

func TestHandleCapturedPaidOrderIsNoop(t *testing.T) {
	order := pendingOrder(1499)
	order.PaymentStatus = models.PaymentStatusPaid
	order.PaidAmount = 1499
	repo := newFakeOrderRepo(order)
	sm := NewStateMachine(repo, &recordingAlerter{})

	err := sm.HandleCaptured(context.Background(), CaptureInput{
		PaymentID:   "pay_2",
		OrderNumber: "CK-1",
		Amount:      1499,
	})
	require.NoError(t, err)

	assert.Empty(t, repo.timeline, "no transition, no audit entry")
	assert.NotEqual(t, "pay_2", repo.orders[1].TransactionID)
}

func TestHandleCapturedOrderNotFound(t *testing.T) {
	sm := NewStateMachine(newFakeOrderRepo(), &recordingAlerter{})

	err := sm.HandleCaptured(context.Background(), CaptureInput{OrderNumber: "CK-missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestHandleCapturedLookupFallback(t *testing.T) {
	order := pendingOrder(100)
	order.GatewayOrder = "order_gw"
	repo := newFakeOrderRepo(order)
	sm := NewStateMachine(repo, &recordingAlerter{})

	// No order number in the event; gateway order id resolves it
	err := sm.HandleCaptured(context.Background(), CaptureInput{
		PaymentID:      "pay_1",
		GatewayOrderID: "order_gw",
		Amount:         100,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, repo.orders[1].PaymentStatus)
}

func TestHandleFailedTransitions(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   string
	}{
		{name: "pending fails", status: models.PaymentStatusPending, want: models.PaymentStatusFailed},
		{name: "processing fails", status: models.PaymentStatusProcessing, want: models.PaymentStatusFailed},
		{name: "paid untouched", status: models.PaymentStatusPaid, want: models.PaymentStatusPaid},
		{name: "refunded untouched", status: models.PaymentStatusRefunded, want: models.PaymentStatusRefunded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := pendingOrder(100)
			order.PaymentStatus = tt.status
			repo := newFakeOrderRepo(order)
			sm := NewStateMachine(repo, &recordingAlerter{})

			err := sm.HandleFailed(context.Background(), "pay_1", "", "CK-1", "card declined")
			require.NoError(t, err)
			assert.Equal(t, tt.want, repo.orders[1].PaymentStatus)
		})
	}
}

func TestHandleAuthorizedMovesToProcessing(t *testing.T) {
	order := pendingOrder(100)
	order.GatewayOrder = "order_gw"
	repo := newFakeOrderRepo(order)
	sm := NewStateMachine(repo, &recordingAlerter{})

	err := sm.HandleAuthorized(context.Background(), "pay_1", "order_gw", 100)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusProcessing, repo.orders[1].PaymentStatus)

	// Authorization after capture must not regress the status
	repo.orders[1].PaymentStatus = models.PaymentStatusPaid
	require.NoError(t, sm.HandleAuthorized(context.Background(), "pay_1", "order_gw", 100))
	assert.Equal(t, models.PaymentStatusPaid, repo.orders[1].PaymentStatus)
}

func TestHandleRefundProcessedAccumulates(t *testing.T) {
	order := pendingOrder(100)
	order.PaymentStatus = models.PaymentStatusPaid
	order.TransactionID = "pay_1"
	repo := newFakeOrderRepo(order)
	sm := NewStateMachine(repo, &recordingAlerter{})

	require.NoError(t, sm.HandleRefundProcessed(context.Background(), "rfnd_1", "pay_1", 40))
	require.NoError(t, sm.HandleRefundProcessed(context.Background(), "rfnd_2", "pay_1", 60))

	got := repo.orders[1]
	assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
	assert.Equal(t, 100.0, got.RefundAmount)
	assert.Equal(t, "rfnd_2", got.RefundID)
	require.NotNil(t, got.RefundedAt)
}

func TestHandleRefundProcessedOverRefundAlerts(t *testing.T) {
	order := pendingOrder(100)
	order.PaymentStatus = models.PaymentStatusPaid
	order.TransactionID = "pay_1"
	repo := newFakeOrderRepo(order)
	alerter := &recordingAlerter{}
	sm := NewStateMachine(repo, alerter)

	require.NoError(t, sm.HandleRefundProcessed(context.Background(), "rfnd_1", "pay_1", 80))
	assert.Empty(t, alerter.alerts, "refund within the order total is not an anomaly")

	require.NoError(t, sm.HandleRefundProcessed(context.Background(), "rfnd_2", "pay_1", 80))

	require.Len(t, alerter.alerts, 1)
	assert.Equal(t, alerts.KindRefundAnomaly, alerter.alerts[0].Kind)
	assert.Equal(t, "CK-1", alerter.alerts[0].Metadata["order_number"])
	// The accumulation is still recorded for the operator to inspect.
	assert.Equal(t, 160.0, repo.orders[1].RefundAmount)
}

func TestHandleRefundCreatedOnlyAudits(t *testing.T) {
	order := pendingOrder(100)
	order.PaymentStatus = models.PaymentStatusPaid
	order.TransactionID = "pay_1"
	repo := newFakeOrderRepo(order)
	sm := NewStateMachine(repo, &recordingAlerter{})

	require.NoError(t, sm.HandleRefundCreated(context.Background(), "rfnd_1", "pay_1", 40))

	assert.Equal(t, models.PaymentStatusPaid, repo.orders[1].PaymentStatus)
	assert.Equal(t, 0.0, repo.orders[1].RefundAmount)
	require.Len(t, repo.timeline, 1)
	assert.Equal(t, TimelineRefundCreated, repo.timeline[0].Status)
}
