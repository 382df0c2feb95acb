package constants

// Static route constants
const (
	WebhookRazorpayRoute = "/webhooks/razorpay"
	WebhookStripeRoute   = "/webhooks/stripe"
	APIRoute             = "/api"
	OpsRoute             = "/ops"
)
