package models

import "time"

// Canonical payment statuses reported by the backend
const (
	StatusSent    = "Sent"
	StatusPaid    = "Paid"
	StatusExpired = "Expired"
)

// terminalStatuses block generation of a new link. Matching is exact and case-sensitive.
var terminalStatuses = map[string]bool{
	StatusSent: true,
	StatusPaid: true,
}

// IsTerminalStatus reports whether status forbids regenerating a payment link
func IsTerminalStatus(status string) bool {
	return terminalStatuses[status]
}

// LinkState is the display state of one payment link panel
type LinkState struct {
	RecordID       string    `json:"record_id"`
	PaymentLinkURL string    `json:"payment_link_url,omitempty"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	LastSyncAt     time.Time `json:"last_sync_at,omitzero"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	IsGenerating   bool      `json:"is_generating"`
}

// HasLink reports whether a payment link is known locally
func (s LinkState) HasLink() bool {
	return s.PaymentLinkURL != ""
}

// LinkResult is the settled response of a backend generate or refresh call.
// It is either a LinkSuccess or a LinkDomainError.
type LinkResult interface {
	isLinkResult()
}

// LinkSuccess carries the reconciled payment link fields
type LinkSuccess struct {
	PaymentLinkURL string    `json:"paymentLinkUrl"`
	ReferenceID    string    `json:"referenceId"`
	Status         string    `json:"status"`
	LastSyncAt     time.Time `json:"lastSyncAt"`
}

// LinkDomainError reports a business failure from a backend that otherwise executed
type LinkDomainError struct {
	Message string `json:"errorMessage"`
}

func (LinkSuccess) isLinkResult()     {}
func (LinkDomainError) isLinkResult() {}

// Severity of a panel notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a user-facing message describing a terminal generate outcome
type Notification struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// PaymentProvider names the backend that issues payment links
type PaymentProvider string

const (
	ProviderStripe PaymentProvider = "stripe"
	ProviderRemote PaymentProvider = "remote payment service"
)
