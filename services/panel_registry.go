package services

import (
	"sync"

	"paymentpanel/controller"
	"paymentpanel/payment"
)

type panelKey struct {
	session string
	record  string
}

// PanelRegistry owns the live controllers, one per mounted panel.
// A panel is identified by the session it is shown in and the record it is bound to.
type PanelRegistry struct {
	svc     payment.LinkService
	records controller.RecordSource

	mu     sync.Mutex
	panels map[panelKey]*controller.LinkController
}

// NewPanelRegistry creates a registry whose controllers call svc and read records.
// records may be nil.
func NewPanelRegistry(svc payment.LinkService, records controller.RecordSource) *PanelRegistry {
	return &PanelRegistry{
		svc:     svc,
		records: records,
		panels:  make(map[panelKey]*controller.LinkController),
	}
}

// Mount returns the panel's controller, creating it with empty state on first use
func (r *PanelRegistry) Mount(sessionID, recordID string) *controller.LinkController {
	key := panelKey{session: sessionID, record: recordID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.panels[key]; ok {
		return ctrl
	}
	ctrl := controller.New(recordID, r.svc, r.records)
	r.panels[key] = ctrl
	return ctrl
}

// Get returns a mounted panel's controller
func (r *PanelRegistry) Get(sessionID, recordID string) (*controller.LinkController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctrl, ok := r.panels[panelKey{session: sessionID, record: recordID}]
	return ctrl, ok
}

// Unmount discards the panel's state and observers. It reports whether the panel was mounted.
func (r *PanelRegistry) Unmount(sessionID, recordID string) bool {
	key := panelKey{session: sessionID, record: recordID}

	r.mu.Lock()
	ctrl, ok := r.panels[key]
	delete(r.panels, key)
	r.mu.Unlock()

	if ok {
		ctrl.Close()
	}
	return ok
}

// Len returns the number of mounted panels
func (r *PanelRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.panels)
}
