package walletclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/pw/paywallet/internal/domain"
	"github.com/pw/paywallet/internal/usecase"
)

// Client implements usecase.WalletService against the wallet ledger's
// HTTP API. Every call carries a bounded deadline; transient transport
// failures are retried with exponential backoff, which is safe because
// the wallet deduplicates by request ID.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxElapsed time.Duration
	logger     zerolog.Logger
}

// NewClient creates a new wallet service client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		maxElapsed: 3 * timeout,
		logger:     logger,
	}
}

type transferRequest struct {
	FromUserID int64  `json:"fromUserId"`
	ToUserID   int64  `json:"toUserId"`
	Amount     int64  `json:"amount"`
	RequestID  string `json:"requestId"`
}

type operationRequest struct {
	Amount    int64  `json:"amount"`
	RequestID string `json:"requestId"`
}

type walletResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Balance   int64     `json:"balance"`
	RequestID string    `json:"requestId"`
	UpdatedAt time.Time `json:"updatedAt"`
	Error     string    `json:"error"`
}

// Transfer invokes the wallet ledger's atomic transfer.
func (c *Client) Transfer(ctx context.Context, fromUserID, toUserID, amount int64, requestID string) (*usecase.WalletResult, error) {
	return c.post(ctx, "/api/v1/wallets/transfer", requestID, transferRequest{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
		RequestID:  requestID,
	})
}

// Credit invokes a single-sided credit.
func (c *Client) Credit(ctx context.Context, userID, amount int64, requestID string) (*usecase.WalletResult, error) {
	return c.post(ctx, fmt.Sprintf("/api/v1/wallets/%d/credit", userID), requestID, operationRequest{
		Amount:    amount,
		RequestID: requestID,
	})
}

// Debit invokes a single-sided debit.
func (c *Client) Debit(ctx context.Context, userID, amount int64, requestID string) (*usecase.WalletResult, error) {
	return c.post(ctx, fmt.Sprintf("/api/v1/wallets/%d/debit", userID), requestID, operationRequest{
		Amount:    amount,
		RequestID: requestID,
	})
}

func (c *Client) post(ctx context.Context, path, requestID string, payload any) (*usecase.WalletResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = c.maxElapsed

	var result *usecase.WalletResult

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		// Retries must hit the wallet's idempotency layer: a timed-out
		// first attempt may have committed.
		req.Header.Set("Idempotency-Key", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("wallet call failed, retrying")
			return err
		}
		defer resp.Body.Close()

		// 5xx is transient; anything else carries a decodable verdict.
		if resp.StatusCode >= http.StatusInternalServerError {
			err := fmt.Errorf("wallet service returned %d", resp.StatusCode)
			c.logger.Warn().Err(err).Str("path", path).Msg("wallet call failed, retrying")
			return err
		}

		var decoded walletResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding wallet response: %w", err))
		}

		message := decoded.Message
		if decoded.Error != "" {
			// 4xx verdicts arrive as an error body, not a result body.
			message = decoded.Error
		}

		// A missing wallet is terminal, not a business rejection.
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("%w: %s", domain.ErrWalletNotFound, message))
		}

		result = &usecase.WalletResult{
			Success:   decoded.Success,
			Message:   message,
			Balance:   decoded.Balance,
			RequestID: decoded.RequestID,
			UpdatedAt: decoded.UpdatedAt,
		}

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}

	return result, nil
}
