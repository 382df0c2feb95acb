package coins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coinkart/CoinKart/internal/pkg/env"
)

// CoinService is the narrow interface to the external wallet engine. The
// processor only ever credits coins through it; balances and statements live
// with the wallet service.
type CoinService interface {
	Award(ctx context.Context, userID uint, coins int, description string, metadata map[string]string) (transactionID string, err error)
}

// WalletClient talks to the wallet service over HTTP.
type WalletClient struct {
	BaseURL      string
	ServiceToken string

	HTTPClient *http.Client
}

type awardRequest struct {
	UserID      uint              `json:"user_id"`
	Coins       int               `json:"coins"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type awardResponse struct {
	TransactionID string `json:"transaction_id"`
}

// NewWalletClientFromEnv builds a wallet client from WALLET_SERVICE_* env vars.
func NewWalletClientFromEnv() *WalletClient {
	return &WalletClient{
		BaseURL:      strings.TrimRight(env.GetEnv("WALLET_SERVICE_URL", "http://localhost:4100"), "/"),
		ServiceToken: strings.TrimSpace(env.GetEnv("WALLET_SERVICE_TOKEN", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Award credits coins to a user and returns the wallet transaction id.
func (c *WalletClient) Award(ctx context.Context, userID uint, coins int, description string, metadata map[string]string) (string, error) {
	if userID == 0 || coins <= 0 {
		return "", errors.New("user_id and a positive coin amount are required")
	}

	body, err := json.Marshal(awardRequest{
		UserID:      userID,
		Coins:       coins,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/internal/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ServiceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.ServiceToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet award request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("wallet award returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out awardResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode wallet award response: %w", err)
	}
	if out.TransactionID == "" {
		return "", errors.New("wallet award response missing transaction_id")
	}
	return out.TransactionID, nil
}
