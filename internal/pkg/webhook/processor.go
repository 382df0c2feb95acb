package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coinkart/CoinKart/app/models"
	"github.com/coinkart/CoinKart/app/repository"
	"github.com/gofiber/fiber/v2/log"
)

// Ack statuses returned to the gateway.
const (
	AckSuccess   = "success"
	AckDuplicate = "duplicate"
	AckError     = "error"
)

// Result tells the controller how to acknowledge the delivery. Unauthorized
// is the only case that maps to a non-200 response; everything else is a 200
// so gateways do not retry deterministic failures.
type Result struct {
	Status       string
	EventID      string
	Unauthorized bool
	Ignored      bool
}

// Input is one raw gateway delivery.
type Input struct {
	Provider  string
	RawBody   []byte
	Signature string
	// EventID is the gateway-issued id when it travels in a header
	// (Razorpay); Stripe carries it in the payload instead.
	EventID string
}

// Handlers are the business-logic targets the router dispatches into.
type Handlers interface {
	HandleCaptured(ctx context.Context, ev PaymentCaptured) error
	HandleFailed(ctx context.Context, ev PaymentFailed) error
	HandleAuthorized(ctx context.Context, ev PaymentAuthorized) error
	HandleOrderPaid(ctx context.Context, ev OrderPaid) error
	HandleRefundCreated(ctx context.Context, ev RefundCreated) error
	HandleRefundProcessed(ctx context.Context, ev RefundProcessed) error
	HandleRefundFailed(ctx context.Context, ev RefundFailed) error
	HandleCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) error
	HandleCheckoutExpired(ctx context.Context, ev CheckoutExpired) error
	HandleCheckoutAsyncFailed(ctx context.Context, ev CheckoutAsyncFailed) error
}

// Counters records per-provider outcome tallies; nil is a no-op.
type Counters interface {
	Add(provider, outcome string)
}

// Secrets holds the per-provider webhook signing secrets.
type Secrets struct {
	Razorpay        string
	Stripe          string
	StripeTolerance time.Duration
}

// Processor runs the full ingress pipeline: verify, claim, route, mark.
// All collaborators are injected; there are no package-level services in the
// processing path.
type Processor struct {
	events   repository.WebhookEventRepository
	handlers Handlers
	counters Counters
	secrets  Secrets
}

// NewProcessor creates a webhook processor with injected collaborators.
func NewProcessor(events repository.WebhookEventRepository, handlers Handlers, counters Counters, secrets Secrets) *Processor {
	if secrets.StripeTolerance == 0 {
		secrets.StripeTolerance = DefaultStripeTolerance
	}
	return &Processor{events: events, handlers: handlers, counters: counters, secrets: secrets}
}

// Ingest processes one delivery end to end. Business-logic failures are folded
// into the returned Result (status "error"); the error return is reserved for
// the ledger itself being unavailable.
func (p *Processor) Ingest(ctx context.Context, in Input) (Result, error) {
	signatureValid := p.verify(in)

	event, meta, parseErr := p.parse(in.Provider, in.RawBody)

	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" && in.Provider == models.WebhookProviderStripe {
		eventID = stripeEventID(in.RawBody)
	}
	if eventID == "" {
		sum := sha256.Sum256(in.RawBody)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	row := &models.WebhookEvent{
		Provider:        in.Provider,
		ProviderEventID: eventID,
		EventType:       meta.EventType,
		RawPayload:      string(in.RawBody),
		Signature:       in.Signature,
		SignatureValid:  signatureValid,
		OrderID:         meta.OrderID,
		PaymentID:       meta.PaymentID,
		Amount:          meta.Amount,
		Currency:        meta.Currency,
	}

	created, stored, err := p.events.Claim(row)
	if err != nil {
		return Result{Status: AckError, EventID: eventID}, err
	}
	if !created {
		// The unique (provider, event_id) constraint already resolved this
		// delivery. One exception: a forged delivery that claimed the slot
		// first must not suppress the genuine one, so a verified delivery may
		// take over an unverified row and run the processing it was denied.
		takeover := false
		if signatureValid && !stored.SignatureValid {
			takeover, err = p.events.UpgradeSignature(stored.ID, row)
			if err != nil {
				return Result{Status: AckError, EventID: eventID}, err
			}
			if takeover {
				log.Warnf("[Webhook] verified %s delivery took over unverified ledger row %d (event %s)", in.Provider, stored.ID, eventID)
			}
		}
		if !takeover {
			p.count(in.Provider, AckDuplicate)
			return Result{Status: AckDuplicate, EventID: eventID}, nil
		}
	}

	if !signatureValid {
		_ = p.events.MarkOutcome(stored.ID, models.WebhookStatusFailed, "invalid webhook signature")
		p.count(in.Provider, "unauthorized")
		return Result{Status: AckError, EventID: eventID, Unauthorized: true}, nil
	}

	if parseErr != nil {
		_ = p.events.MarkOutcome(stored.ID, models.WebhookStatusFailed, parseErr.Error())
		p.count(in.Provider, AckError)
		return Result{Status: AckError, EventID: eventID}, nil
	}

	if unknown, ok := event.(Unknown); ok {
		// Forward compatibility with gateway additions: acknowledged, not
		// errored, and the ledger records that it was ignored.
		log.Infof("[Webhook] ignoring unhandled %s event type %q", in.Provider, unknown.EventType)
		_ = p.events.MarkOutcome(stored.ID, models.WebhookStatusSuccess, "ignored: unhandled event type")
		p.count(in.Provider, "ignored")
		return Result{Status: AckSuccess, EventID: eventID, Ignored: true}, nil
	}

	if err := p.dispatch(ctx, event); err != nil {
		log.Errorf("[Webhook] %s event %s (%s) failed: %v", in.Provider, eventID, meta.EventType, err)
		_ = p.events.MarkOutcome(stored.ID, models.WebhookStatusFailed, err.Error())
		p.count(in.Provider, AckError)
		// Deliberately a success acknowledgment: retrying a deterministic
		// application error at the gateway cannot succeed and only causes
		// retry storms. The row stays inspectable for replay.
		return Result{Status: AckError, EventID: eventID}, nil
	}

	_ = p.events.MarkOutcome(stored.ID, models.WebhookStatusSuccess, "")
	p.count(in.Provider, AckSuccess)
	return Result{Status: AckSuccess, EventID: eventID}, nil
}

// Replay re-runs the business logic of a stored failed event. The ledger row
// keeps its identity; only the outcome and retry counter change.
func (p *Processor) Replay(ctx context.Context, ledgerID uint) error {
	row, err := p.events.GetByID(ledgerID)
	if err != nil {
		return err
	}
	if !row.SignatureValid {
		return errors.New("refusing to replay an unverified event")
	}
	if row.Status != models.WebhookStatusFailed {
		return fmt.Errorf("event %d is %s, only failed events can be replayed", ledgerID, row.Status)
	}

	event, _, parseErr := p.parse(row.Provider, []byte(row.RawPayload))
	if parseErr != nil {
		_ = p.events.MarkOutcome(row.ID, models.WebhookStatusFailed, parseErr.Error())
		return parseErr
	}
	if _, ok := event.(Unknown); ok {
		return p.events.MarkOutcome(row.ID, models.WebhookStatusSuccess, "ignored: unhandled event type")
	}

	if err := p.dispatch(ctx, event); err != nil {
		_ = p.events.MarkOutcome(row.ID, models.WebhookStatusFailed, err.Error())
		return err
	}
	return p.events.MarkOutcome(row.ID, models.WebhookStatusSuccess, "")
}

func (p *Processor) verify(in Input) bool {
	switch in.Provider {
	case models.WebhookProviderRazorpay:
		return VerifyRazorpaySignature(in.RawBody, in.Signature, p.secrets.Razorpay)
	case models.WebhookProviderStripe:
		return VerifyStripeSignature(in.RawBody, in.Signature, p.secrets.Stripe, p.secrets.StripeTolerance)
	default:
		return false
	}
}

func (p *Processor) parse(provider string, raw []byte) (Event, Meta, error) {
	switch provider {
	case models.WebhookProviderRazorpay:
		return ParseRazorpayEvent(raw)
	case models.WebhookProviderStripe:
		return ParseStripeEvent(raw)
	default:
		return nil, Meta{}, fmt.Errorf("unknown provider %q", provider)
	}
}

// dispatch routes a known event variant to its handler. The switch is total
// over the Event sum; Unknown is filtered out before it gets here.
func (p *Processor) dispatch(ctx context.Context, event Event) error {
	switch ev := event.(type) {
	case PaymentCaptured:
		return p.handlers.HandleCaptured(ctx, ev)
	case PaymentFailed:
		return p.handlers.HandleFailed(ctx, ev)
	case PaymentAuthorized:
		return p.handlers.HandleAuthorized(ctx, ev)
	case PaymentCreated:
		// Informational only.
		return nil
	case OrderPaid:
		return p.handlers.HandleOrderPaid(ctx, ev)
	case RefundCreated:
		return p.handlers.HandleRefundCreated(ctx, ev)
	case RefundProcessed:
		return p.handlers.HandleRefundProcessed(ctx, ev)
	case RefundFailed:
		return p.handlers.HandleRefundFailed(ctx, ev)
	case CheckoutCompleted:
		return p.handlers.HandleCheckoutCompleted(ctx, ev)
	case CheckoutExpired:
		return p.handlers.HandleCheckoutExpired(ctx, ev)
	case CheckoutAsyncFailed:
		return p.handlers.HandleCheckoutAsyncFailed(ctx, ev)
	default:
		return fmt.Errorf("unroutable event %T", event)
	}
}

func (p *Processor) count(provider, outcome string) {
	if p.counters != nil {
		p.counters.Add(provider, outcome)
	}
}
