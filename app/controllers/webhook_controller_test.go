package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/internal/pkg/webhook"
)

const testWebhookSecret = "rzp_test_secret"

type memoryLedger struct {
	rows   map[string]*models.WebhookEvent
	nextID uint
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{rows: make(map[string]*models.WebhookEvent)}
}

func (m *memoryLedger) Claim(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	key := event.Provider + "|" + event.ProviderEventID
	if existing, ok := m.rows[key]; ok {
		return false, existing, nil
	}
	m.nextID++
	event.ID = m.nextID
	event.Status = models.WebhookStatusProcessing
	m.rows[key] = event
	return true, event, nil
}

func (m *memoryLedger) UpgradeSignature(id uint, event *models.WebhookEvent) (bool, error) {
	for _, row := range m.rows {
		if row.ID == id && !row.SignatureValid {
			row.Signature = event.Signature
			row.SignatureValid = true
			row.Status = models.WebhookStatusProcessing
			row.ErrorMessage = ""
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryLedger) MarkOutcome(id uint, status string, errMessage string) error {
	for _, row := range m.rows {
		if row.ID == id {
			row.Status = status
			row.ErrorMessage = errMessage
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryLedger) GetByID(id uint) (*models.WebhookEvent, error) {
	for _, row := range m.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryLedger) ListFailed(maxRetries, limit int) ([]models.WebhookEvent, error) {
	return nil, nil
}

func (m *memoryLedger) DeleteExpired(now time.Time) (int64, error) {
	return 0, nil
}

func newWebhookTestApp(t *testing.T) (*fiber.App, *memoryLedger) {
	t.Helper()
	ledger := newMemoryLedger()
	processor := webhook.NewProcessor(ledger, nil, nil, webhook.Secrets{Razorpay: testWebhookSecret, Stripe: "stripe_secret"})
	InitializeWebhookController(processor)

	app := fiber.New()
	app.Post("/webhooks/razorpay", HandleRazorpayWebhook)
	app.Post("/webhooks/stripe", HandleStripeWebhook)
	return app, ledger
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayWebhookMissingSignature(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader([]byte(`{}`)))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRazorpayWebhookInvalidSignature(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	body := []byte(`{"event":"settlement.processed"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", signBody(body, "wrong-secret"))
	req.Header.Set("X-Razorpay-Event-Id", "evt_1")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRazorpayWebhookIgnoredEventAcked(t *testing.T) {
	app, ledger := newWebhookTestApp(t)

	// Unhandled event type: acknowledged without touching any handler
	body := []byte(`{"event":"settlement.processed"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", signBody(body, testWebhookSecret))
	req.Header.Set("X-Razorpay-Event-Id", "evt_1")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var ack map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.Equal(t, true, ack["received"])
	assert.Equal(t, "success", ack["status"])
	assert.Equal(t, "evt_1", ack["event_id"])

	row, err := ledger.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookStatusSuccess, row.Status)
}

func TestRazorpayWebhookDuplicateAcked(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	body := []byte(`{"event":"settlement.processed"}`)
	send := func() map[string]interface{} {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", bytes.NewReader(body))
		req.Header.Set("X-Razorpay-Signature", signBody(body, testWebhookSecret))
		req.Header.Set("X-Razorpay-Event-Id", "evt_dup")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		var ack map[string]interface{}
		raw, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(raw, &ack))
		return ack
	}

	first := send()
	assert.Equal(t, "success", first["status"])

	second := send()
	assert.Equal(t, "duplicate", second["status"])
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	app, _ := newWebhookTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(`{}`)))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
