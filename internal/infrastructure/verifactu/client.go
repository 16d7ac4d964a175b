package verifactu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gestionet/backend/internal/domain/taxsync"
	"github.com/gestionet/backend/internal/infrastructure/config"
)

// Client is the live gateway against the Verifactu HTTP API. It performs
// exactly one request per call and never retries; retry and scheduling
// policy live in the application layer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a live Verifactu API client
func NewClient(cfg *config.VerifactuConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("verifactu"),
	}
}

// Simulated reports whether this gateway fabricates responses
func (c *Client) Simulated() bool {
	return false
}

// CreateCustomer registers a customer with the tax authority
func (c *Client) CreateCustomer(ctx context.Context, payload *taxsync.CustomerPayload) (*taxsync.Result, error) {
	if err := validateCustomerPayload(payload); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/customers", payload)
}

// UpdateCustomer updates an already-registered customer
func (c *Client) UpdateCustomer(ctx context.Context, externalID string, payload *taxsync.CustomerPayload) (*taxsync.Result, error) {
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	if err := validateCustomerPayload(payload); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPut, "/customers/"+externalID, payload)
}

// DeleteCustomer removes a customer from the tax authority registry
func (c *Client) DeleteCustomer(ctx context.Context, externalID string) (*taxsync.Result, error) {
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	return c.do(ctx, http.MethodDelete, "/customers/"+externalID, nil)
}

// CreateInvoice submits an invoice for registration
func (c *Client) CreateInvoice(ctx context.Context, payload *taxsync.InvoicePayload) (*taxsync.Result, error) {
	if err := validateInvoicePayload(payload); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/invoices", payload)
}

// UpdateInvoice replaces a previously submitted invoice
func (c *Client) UpdateInvoice(ctx context.Context, externalID string, payload *taxsync.InvoicePayload) (*taxsync.Result, error) {
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	if err := validateInvoicePayload(payload); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPut, "/invoices/"+externalID, payload)
}

// CancelInvoice voids a submitted invoice with the given reason
func (c *Client) CancelInvoice(ctx context.Context, externalID, reason string) (*taxsync.Result, error) {
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	if strings.TrimSpace(reason) == "" {
		return nil, taxsync.ErrMissingReason
	}
	return c.do(ctx, http.MethodPost, "/invoices/"+externalID+"/cancel", &cancelRequest{Reason: reason})
}

// CheckInvoiceStatus polls the processing status of a submitted invoice
func (c *Client) CheckInvoiceStatus(ctx context.Context, externalID string) (*taxsync.Result, error) {
	if externalID == "" {
		return nil, taxsync.ErrMissingExternalID
	}
	return c.do(ctx, http.MethodGet, "/invoices/"+externalID+"/status", nil)
}

// do performs one HTTP request and normalizes the outcome. Remote
// failures land in the Result; the error return is reserved for request
// construction problems and context cancellation.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*taxsync.Result, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return taxsync.Failure(fmt.Sprintf("%v: %v", taxsync.ErrGatewayUnavailable, err), false), nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return taxsync.Failure(fmt.Sprintf("read response: %v", err), false), nil
	}

	var parsed apiResponse
	if len(data) > 0 {
		// A non-JSON body on an error status is still a usable failure
		// message, so a decode error here is not fatal
		if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode < 300 {
			return taxsync.Failure(fmt.Sprintf("decode response: %v", err), false), nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		if msg == "" {
			msg = resp.Status
		}
		c.logger.Warn("remote rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg))
		return &taxsync.Result{
			Success:   false,
			Status:    mapRemoteStatus(parsed.Status),
			Error:     fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg),
			Simulated: false,
			CheckedAt: time.Now(),
		}, nil
	}

	return &taxsync.Result{
		Success:    true,
		ExternalID: parsed.ID,
		Status:     mapRemoteStatus(parsed.Status),
		Message:    parsed.Message,
		Simulated:  false,
		CheckedAt:  time.Now(),
	}, nil
}

// mapRemoteStatus normalizes the authority's status strings. Unknown
// values pass through unchanged so operators can see what came back.
func mapRemoteStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "pending", "processing", "queued":
		return taxsync.RemoteStatusPending
	case "accepted", "registered", "ok":
		return taxsync.RemoteStatusAccepted
	case "rejected", "refused":
		return taxsync.RemoteStatusRejected
	default:
		return status
	}
}

var _ taxsync.Gateway = (*Client)(nil)
