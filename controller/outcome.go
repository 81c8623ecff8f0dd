package controller

import "paymentpanel/models"

// Notification copy for generate outcomes
const (
	TitleLinkGenerated     = "Payment link generated"
	TitleGenerationFailed  = "Payment link generation failed"
	MessageLinkGenerated   = "A payment link is ready to share with the customer."
	ErrMsgEmptyResponse    = "Payment service returned an empty response"
	ErrMsgUnexpectedResult = "Payment service returned an unexpected response"
)

// Outcome is what a controller operation settled into. Notification is set
// only for generate, on every terminal path.
type Outcome struct {
	State        models.LinkState
	Notification *models.Notification
}

// Failed reports whether the operation ended with an error message
func (o Outcome) Failed() bool {
	return o.State.ErrorMessage != ""
}

func successNotification() *models.Notification {
	return &models.Notification{
		Title:    TitleLinkGenerated,
		Message:  MessageLinkGenerated,
		Severity: models.SeveritySuccess,
	}
}

func errorNotification(message string) *models.Notification {
	return &models.Notification{
		Title:    TitleGenerationFailed,
		Message:  message,
		Severity: models.SeverityError,
	}
}
