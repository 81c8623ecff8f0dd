// Package record holds the canonical opportunity records that payment links are issued against.
package record

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no opportunity matches the lookup
var ErrNotFound = errors.New("opportunity not found")

// ErrAlreadyExists is returned when creating an opportunity whose id is taken
var ErrAlreadyExists = errors.New("opportunity already exists")

// Opportunity is the business record a payment link collects money for.
// Amount is in the currency's minor unit.
type Opportunity struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	PaymentStatus  string    `json:"payment_status,omitempty"`
	PaymentLinkURL string    `json:"payment_link_url,omitempty"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	LastSyncAt     time.Time `json:"last_sync_at,omitzero"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PaymentLink is the set of link fields written back after a generate
type PaymentLink struct {
	URL         string
	ReferenceID string
	Status      string
	SyncedAt    time.Time
}

// Store persists opportunities
type Store interface {
	CreateOpportunity(ctx context.Context, opp Opportunity) error
	GetOpportunity(ctx context.Context, id string) (Opportunity, error)
	UpdatePaymentLink(ctx context.Context, id string, link PaymentLink) error
	UpdatePaymentStatus(ctx context.Context, id, status string, syncedAt time.Time) error
	FindByReference(ctx context.Context, referenceID string) (Opportunity, error)
}
