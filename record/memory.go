package record

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local runs
type MemoryStore struct {
	mu   sync.RWMutex
	opps map[string]Opportunity
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{opps: make(map[string]Opportunity)}
}

func (m *MemoryStore) CreateOpportunity(ctx context.Context, opp Opportunity) error {
	if strings.TrimSpace(opp.ID) == "" {
		return fmt.Errorf("opportunity id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.opps[opp.ID]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	if opp.CreatedAt.IsZero() {
		opp.CreatedAt = now
	}
	if opp.UpdatedAt.IsZero() {
		opp.UpdatedAt = opp.CreatedAt
	}
	opp.Currency = strings.ToLower(opp.Currency)
	m.opps[opp.ID] = opp
	return nil
}

func (m *MemoryStore) GetOpportunity(ctx context.Context, id string) (Opportunity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	opp, ok := m.opps[id]
	if !ok {
		return Opportunity{}, ErrNotFound
	}
	return opp, nil
}

func (m *MemoryStore) FindByReference(ctx context.Context, referenceID string) (Opportunity, error) {
	if referenceID == "" {
		return Opportunity{}, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, opp := range m.opps {
		if opp.ReferenceID == referenceID {
			return opp, nil
		}
	}
	return Opportunity{}, ErrNotFound
}

func (m *MemoryStore) UpdatePaymentLink(ctx context.Context, id string, link PaymentLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	opp, ok := m.opps[id]
	if !ok {
		return ErrNotFound
	}
	opp.PaymentLinkURL = link.URL
	opp.ReferenceID = link.ReferenceID
	opp.PaymentStatus = link.Status
	opp.LastSyncAt = link.SyncedAt
	opp.UpdatedAt = time.Now().UTC()
	m.opps[id] = opp
	return nil
}

func (m *MemoryStore) UpdatePaymentStatus(ctx context.Context, id, status string, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	opp, ok := m.opps[id]
	if !ok {
		return ErrNotFound
	}
	opp.PaymentStatus = status
	opp.LastSyncAt = syncedAt
	opp.UpdatedAt = time.Now().UTC()
	m.opps[id] = opp
	return nil
}
