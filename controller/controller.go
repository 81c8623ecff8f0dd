// Package controller holds the per-panel payment link state machine.
package controller

import (
	"context"
	"sync"
	"time"

	"paymentpanel/logger"
	"paymentpanel/metrics"
	"paymentpanel/models"
	"paymentpanel/payment"
)

// RecordSource exposes the canonical record a panel is bound to
type RecordSource interface {
	// AuthoritativeStatus returns the record's status field; false when unset or unavailable
	AuthoritativeStatus(ctx context.Context, recordID string) (string, bool)
	// NotifyRecordChanged tells other readers of recordID to drop cached views
	NotifyRecordChanged(ctx context.Context, recordID string)
	// Refetch reloads the cached authoritative view of recordID
	Refetch(ctx context.Context, recordID string) error
}

// LinkController manages the payment link state of one record's panel.
// Operations never return errors; failures land in the state's ErrorMessage.
type LinkController struct {
	recordID string
	svc      payment.LinkService
	records  RecordSource

	mu           sync.Mutex
	state        models.LinkState
	observers    map[uint64]func(models.LinkState)
	nextObserver uint64
}

// New creates a controller bound to recordID. records may be nil, in which
// case eligibility is derived from the locally synced status.
func New(recordID string, svc payment.LinkService, records RecordSource) *LinkController {
	return &LinkController{
		recordID:  recordID,
		svc:       svc,
		records:   records,
		state:     models.LinkState{RecordID: recordID},
		observers: make(map[uint64]func(models.LinkState)),
	}
}

// RecordID returns the record this controller is bound to
func (c *LinkController) RecordID() string {
	return c.recordID
}

// State returns a snapshot of the current display state
func (c *LinkController) State() models.LinkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every state change. The returned func removes it.
func (c *LinkController) Subscribe(fn func(models.LinkState)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextObserver++
	id := c.nextObserver
	c.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Close drops every observer. The controller must not be used afterwards.
func (c *LinkController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.observers)
}

// Generate asks the backend for a new payment link
func (c *LinkController) Generate(ctx context.Context) Outcome {
	log := logger.FromContext(ctx).With("record_id", c.recordID, "operation", metrics.OperationGenerate)

	c.update(func(s *models.LinkState) {
		s.ErrorMessage = ""
		s.IsGenerating = true
	})
	metrics.GenerationsInFlight.Inc()
	defer func() {
		metrics.GenerationsInFlight.Dec()
		c.update(func(s *models.LinkState) { s.IsGenerating = false })
	}()

	start := time.Now()
	result, err := c.svc.Generate(ctx, c.recordID)
	metrics.LinkOperationDuration.WithLabelValues(metrics.OperationGenerate).Observe(time.Since(start).Seconds())

	success, failure := c.reconcile(ctx, metrics.OperationGenerate, result, err)
	if failure != "" {
		log.Warn("Payment link generation failed", "error_message", failure)
		return Outcome{State: c.settledState(), Notification: errorNotification(failure)}
	}

	log.Info("Payment link generated", "reference_id", success.ReferenceID, "status", success.Status)
	if c.records != nil {
		c.records.NotifyRecordChanged(ctx, c.recordID)
		c.refetch(ctx)
	}
	return Outcome{State: c.settledState(), Notification: successNotification()}
}

// RefreshStatus pulls the latest payment status from the backend
func (c *LinkController) RefreshStatus(ctx context.Context) Outcome {
	log := logger.FromContext(ctx).With("record_id", c.recordID, "operation", metrics.OperationRefresh)

	c.update(func(s *models.LinkState) { s.ErrorMessage = "" })

	start := time.Now()
	result, err := c.svc.Refresh(ctx, c.recordID)
	metrics.LinkOperationDuration.WithLabelValues(metrics.OperationRefresh).Observe(time.Since(start).Seconds())

	success, failure := c.reconcile(ctx, metrics.OperationRefresh, result, err)
	if failure != "" {
		log.Warn("Payment status refresh failed", "error_message", failure)
		return Outcome{State: c.State()}
	}

	log.Info("Payment status refreshed", "status", success.Status)
	if c.records != nil {
		c.refetch(ctx)
	}
	return Outcome{State: c.State()}
}

// IsGenerateDisabled reports whether the generate trigger must be withheld:
// while a generation is in flight, or once the record's status is terminal.
func (c *LinkController) IsGenerateDisabled(ctx context.Context) bool {
	c.mu.Lock()
	generating := c.state.IsGenerating
	localStatus := c.state.Status
	c.mu.Unlock()

	if generating {
		return true
	}
	return models.IsTerminalStatus(c.eligibilityStatus(ctx, localStatus))
}

// eligibilityStatus prefers the authoritative status and falls back to the local one
func (c *LinkController) eligibilityStatus(ctx context.Context, localStatus string) string {
	if c.records == nil {
		return localStatus
	}
	if status, ok := c.records.AuthoritativeStatus(ctx, c.recordID); ok {
		return status
	}
	return localStatus
}

// reconcile merges a settled backend call into state. It returns the
// applied success, or the failure message written to ErrorMessage.
func (c *LinkController) reconcile(ctx context.Context, operation string, result models.LinkResult, err error) (models.LinkSuccess, string) {
	if err != nil {
		msg := payment.MessageFromError(err)
		logger.FromContext(ctx).Debug("Payment service transport failure", "record_id", c.recordID, "error", err)
		metrics.LinkOperationsTotal.WithLabelValues(operation, metrics.OutcomeTransport).Inc()
		c.update(func(s *models.LinkState) { s.ErrorMessage = msg })
		return models.LinkSuccess{}, msg
	}

	switch r := result.(type) {
	case models.LinkSuccess:
		metrics.LinkOperationsTotal.WithLabelValues(operation, metrics.OutcomeSuccess).Inc()
		c.update(func(s *models.LinkState) {
			s.PaymentLinkURL = r.PaymentLinkURL
			s.ReferenceID = r.ReferenceID
			s.Status = r.Status
			s.LastSyncAt = r.LastSyncAt
		})
		return r, ""
	case models.LinkDomainError:
		metrics.LinkOperationsTotal.WithLabelValues(operation, metrics.OutcomeDomainError).Inc()
		c.update(func(s *models.LinkState) { s.ErrorMessage = r.Message })
		return models.LinkSuccess{}, r.Message
	case nil:
		metrics.LinkOperationsTotal.WithLabelValues(operation, metrics.OutcomeTransport).Inc()
		c.update(func(s *models.LinkState) { s.ErrorMessage = ErrMsgEmptyResponse })
		return models.LinkSuccess{}, ErrMsgEmptyResponse
	default:
		metrics.LinkOperationsTotal.WithLabelValues(operation, metrics.OutcomeTransport).Inc()
		c.update(func(s *models.LinkState) { s.ErrorMessage = ErrMsgUnexpectedResult })
		return models.LinkSuccess{}, ErrMsgUnexpectedResult
	}
}

func (c *LinkController) refetch(ctx context.Context) {
	if err := c.records.Refetch(ctx, c.recordID); err != nil {
		logger.FromContext(ctx).Warn("Record refetch failed", "record_id", c.recordID, "error", err)
	}
}

// settledState is the state as it will read once Generate's deferred completion runs
func (c *LinkController) settledState() models.LinkState {
	s := c.State()
	s.IsGenerating = false
	return s
}

// update applies fn under the lock, then hands the new state to observers outside it
func (c *LinkController) update(fn func(s *models.LinkState)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state
	observers := make([]func(models.LinkState), 0, len(c.observers))
	for _, o := range c.observers {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	for _, o := range observers {
		o(snapshot)
	}
}
