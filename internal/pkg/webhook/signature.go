package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultStripeTolerance bounds how old a Stripe signature timestamp may be.
const DefaultStripeTolerance = 5 * time.Minute

// VerifyRazorpaySignature checks the X-Razorpay-Signature header: a hex HMAC-SHA256
// over the exact raw request bytes. Signatures are whitespace/ordering sensitive,
// so the payload must be the transmitted body, never a re-serialized copy.
func VerifyRazorpaySignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	expected, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expected)
}

// VerifyStripeSignature checks the Stripe-Signature header, a comma-separated
// list of "t=<unix>" and one or more "v1=<hex>" elements. The signed payload is
// "<t>.<raw body>". Timestamps older than tolerance are rejected to limit
// replay of captured requests; tolerance <= 0 disables the check.
func VerifyStripeSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration) bool {
	header := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if header == "" || secret == "" {
		return false
	}

	var timestamp string
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			if decoded, err := hex.DecodeString(strings.ToLower(kv[1])); err == nil {
				candidates = append(candidates, decoded)
			}
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return false
	}

	if tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return false
		}
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		if hmac.Equal(expected, candidate) {
			return true
		}
	}
	return false
}
