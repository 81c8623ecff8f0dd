package payment

import (
	"encoding/json"
	"fmt"
	"time"

	"paymentpanel/models"
)

// syncTimeLayouts are tried in order when decoding a lastSyncAt value.
// Minute precision ("2024-01-01T00:00Z") is valid ISO-8601 and accepted.
var syncTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

// SyncTime is a wire timestamp encoded as RFC 3339
type SyncTime struct {
	time.Time
}

func (t SyncTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *SyncTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("lastSyncAt must be a string: %w", err)
	}
	for _, layout := range syncTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported lastSyncAt format %q", raw)
}

// WireResult is the JSON shape of a settled generate or refresh response.
// A non-empty ErrorMessage marks a domain failure.
type WireResult struct {
	PaymentLinkURL string    `json:"paymentLinkUrl,omitempty"`
	ReferenceID    string    `json:"referenceId,omitempty"`
	Status         string    `json:"status,omitempty"`
	LastSyncAt     *SyncTime `json:"lastSyncAt,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
}

// EncodeResult converts a LinkResult to its wire shape
func EncodeResult(result models.LinkResult) WireResult {
	switch r := result.(type) {
	case models.LinkSuccess:
		w := WireResult{
			PaymentLinkURL: r.PaymentLinkURL,
			ReferenceID:    r.ReferenceID,
			Status:         r.Status,
		}
		if !r.LastSyncAt.IsZero() {
			w.LastSyncAt = &SyncTime{Time: r.LastSyncAt.UTC()}
		}
		return w
	case models.LinkDomainError:
		return WireResult{ErrorMessage: r.Message}
	default:
		return WireResult{ErrorMessage: ErrMsgInternal}
	}
}

// DecodeResult converts a wire response into the closed LinkResult union
func DecodeResult(w WireResult) models.LinkResult {
	if w.ErrorMessage != "" {
		return models.LinkDomainError{Message: w.ErrorMessage}
	}
	s := models.LinkSuccess{
		PaymentLinkURL: w.PaymentLinkURL,
		ReferenceID:    w.ReferenceID,
		Status:         w.Status,
	}
	if w.LastSyncAt != nil {
		s.LastSyncAt = w.LastSyncAt.UTC()
	}
	return s
}
