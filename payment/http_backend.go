package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paymentpanel/logger"
	"paymentpanel/models"
)

const maxResponseBytes = 1 << 20

// HTTPBackend implements LinkService against a remote payment service
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a client for the payment service at baseURL
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate asks the remote service to create a payment link for recordID
func (h *HTTPBackend) Generate(ctx context.Context, recordID string) (models.LinkResult, error) {
	return h.call(ctx, "payment-link", recordID)
}

// Refresh asks the remote service for the current payment status of recordID
func (h *HTTPBackend) Refresh(ctx context.Context, recordID string) (models.LinkResult, error) {
	return h.call(ctx, "payment-status", recordID)
}

func (h *HTTPBackend) call(ctx context.Context, action, recordID string) (models.LinkResult, error) {
	log := logger.FromContext(ctx)
	endpoint := fmt.Sprintf("%s/api/v1/opportunities/%s/%s", h.baseURL, url.PathEscape(recordID), action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	log.Debug("Calling payment service", "action", action, "record_id", recordID, "url", endpoint)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("payment service unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read %s response: %v", action, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("Payment service call failed", "action", action, "record_id", recordID, "status", resp.StatusCode)
		te := &TransportError{StatusCode: resp.StatusCode, Message: resp.Status}
		var errBody ErrorBody
		if json.Unmarshal(body, &errBody) == nil && errBody.Message != "" {
			te.Body = &errBody
		}
		return nil, te
	}

	var wire WireResult
	if err := json.Unmarshal(body, &wire); err != nil {
		log.Warn("Unreadable payment service response", "action", action, "record_id", recordID, "error", err)
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: ErrMsgUnreadableResponse}
	}

	log.Debug("Payment service call settled", "action", action, "record_id", recordID, "domain_error", wire.ErrorMessage != "")
	return DecodeResult(wire), nil
}
