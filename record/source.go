package record

import (
	"context"
	"errors"
	"fmt"

	"paymentpanel/event"
	"paymentpanel/logger"
	"paymentpanel/metrics"
)

const eventSource = "record.source"

// Source serves authoritative payment statuses to panels. Reads go through
// the cache; change notifications flow over the bus and evict cached views.
type Source struct {
	store       Store
	cache       *Cache
	bus         event.Bus
	unsubscribe func()
}

// NewSource wires store, cache and bus together. Call Close to detach from the bus.
func NewSource(store Store, cache *Cache, bus event.Bus) *Source {
	s := &Source{store: store, cache: cache, bus: bus}
	s.unsubscribe = bus.Subscribe(event.RecordChanged, s.handleRecordChanged)
	return s
}

func (s *Source) handleRecordChanged(ctx context.Context, evt event.Event) error {
	s.cache.Invalidate(evt.RecordID)
	logger.FromContext(ctx).Debug("Record view invalidated", "record_id", evt.RecordID, "source", evt.Source)
	return nil
}

// AuthoritativeStatus returns the canonical status of id. The bool is false
// when the record is unknown, unreadable or its status is unset.
func (s *Source) AuthoritativeStatus(ctx context.Context, id string) (string, bool) {
	if view, ok := s.cache.Get(id); ok {
		return view.Status, view.Status != ""
	}

	opp, err := s.store.GetOpportunity(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.FromContext(ctx).Warn("Authoritative status unavailable", "record_id", id, "error", err)
		}
		return "", false
	}
	s.cache.Set(id, opp.PaymentStatus)
	return opp.PaymentStatus, opp.PaymentStatus != ""
}

// NotifyRecordChanged announces that id was mutated. Delivery failures are logged, not returned.
func (s *Source) NotifyRecordChanged(ctx context.Context, id string) {
	metrics.EventsPublished.WithLabelValues(string(event.RecordChanged)).Inc()
	if err := s.bus.Publish(ctx, event.NewRecordChangedEvent(id, eventSource)); err != nil {
		logger.FromContext(ctx).Warn("Record change notification failed", "record_id", id, "error", err)
	}
}

// Refetch reloads id from the store into the cache
func (s *Source) Refetch(ctx context.Context, id string) error {
	opp, err := s.store.GetOpportunity(ctx, id)
	if err != nil {
		s.cache.Invalidate(id)
		return fmt.Errorf("refetch opportunity %s: %w", id, err)
	}
	s.cache.Set(id, opp.PaymentStatus)
	return nil
}

// Close detaches the source from the bus
func (s *Source) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
