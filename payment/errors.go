package payment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
)

// Messages returned to panels as domain failures
const (
	ErrMsgAlreadySent         = "A payment link has already been sent for this opportunity"
	ErrMsgAlreadyPaid         = "This opportunity has already been paid"
	ErrMsgInvalidAmount       = "Opportunity amount must be greater than zero"
	ErrMsgNoPaymentLink       = "No payment link has been generated for this opportunity"
	ErrMsgProviderFailed      = "Payment provider error: %s"
	ErrMsgOpportunityNotFound = "Opportunity not found"
	ErrMsgInternal            = "Payment service error"
	ErrMsgUnreadableResponse  = "Payment service returned an unreadable response"
)

// ErrorBody is the structured payload a failed backend call carries
type ErrorBody struct {
	Message string `json:"message"`
}

// TransportError reports that a backend call failed outright
type TransportError struct {
	StatusCode int
	Body       *ErrorBody
	Message    string
}

func (e *TransportError) Error() string {
	msg := e.Message
	if e.Body != nil && e.Body.Message != "" {
		msg = e.Body.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment service status %d: %s", e.StatusCode, msg)
	}
	return msg
}

// NewNotFoundError is the transport failure for an unknown opportunity
func NewNotFoundError() *TransportError {
	return &TransportError{
		StatusCode: http.StatusNotFound,
		Body:       &ErrorBody{Message: ErrMsgOpportunityNotFound},
		Message:    http.StatusText(http.StatusNotFound),
	}
}

// MessageFromError extracts the user-facing description of a transport
// failure: the structured body message when present, else the plain message.
func MessageFromError(err error) string {
	if err == nil {
		return ""
	}

	var te *TransportError
	if errors.As(err, &te) {
		if te.Body != nil && te.Body.Message != "" {
			return te.Body.Message
		}
		if te.Message != "" {
			return te.Message
		}
	}

	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg
	}

	return err.Error()
}

// StatusCodeFromError maps a transport failure to the HTTP status it should be served with
func StatusCodeFromError(err error) int {
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode >= 400 {
		return te.StatusCode
	}
	return http.StatusInternalServerError
}
