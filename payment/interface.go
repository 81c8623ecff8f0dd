package payment

import (
	"context"

	"paymentpanel/models"
)

// LinkService issues and reconciles payment links for opportunities.
// A returned error is a transport failure; business failures come back as
// models.LinkDomainError with a nil error.
type LinkService interface {
	Generate(ctx context.Context, recordID string) (models.LinkResult, error)
	Refresh(ctx context.Context, recordID string) (models.LinkResult, error)
}
