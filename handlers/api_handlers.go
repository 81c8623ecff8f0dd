package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paymentpanel/logger"
	"paymentpanel/models"
	"paymentpanel/payment"
	"paymentpanel/record"
	"paymentpanel/services"
	"paymentpanel/utils"
)

// PanelSessionHeader selects the API panel session; panels default to DefaultPanelSession
const (
	PanelSessionHeader  = "X-Panel-Session"
	DefaultPanelSession = "api"
)

// BackendHandlers expose a LinkService over the payment service wire format
type BackendHandlers struct {
	svc payment.LinkService
}

func NewBackendHandlers(svc payment.LinkService) *BackendHandlers {
	return &BackendHandlers{svc: svc}
}

// HandleGeneratePaymentLink serves POST /api/v1/opportunities/{id}/payment-link
func (h *BackendHandlers) HandleGeneratePaymentLink(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.Generate(r.Context(), id)
	h.respond(w, r, result, err)
}

// HandleRefreshPaymentStatus serves POST /api/v1/opportunities/{id}/payment-status
func (h *BackendHandlers) HandleRefreshPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.Refresh(r.Context(), id)
	h.respond(w, r, result, err)
}

func (h *BackendHandlers) respond(w http.ResponseWriter, r *http.Request, result models.LinkResult, err error) {
	if err != nil {
		status := payment.StatusCodeFromError(err)
		msg := payment.MessageFromError(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("Payment backend call failed", "error", err)
			msg = payment.ErrMsgInternal
		}
		respondJSON(w, status, payment.ErrorBody{Message: msg})
		return
	}
	respondJSON(w, http.StatusOK, payment.EncodeResult(result))
}

// CreateOpportunityRequest is the body of POST /api/v1/opportunities
type CreateOpportunityRequest struct {
	ID       string `json:"id" validate:"required,recordid"`
	Name     string `json:"name" validate:"required,max=200"`
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

// OpportunityHandlers manage the canonical records
type OpportunityHandlers struct {
	store record.Store
}

func NewOpportunityHandlers(store record.Store) *OpportunityHandlers {
	return &OpportunityHandlers{store: store}
}

// HandleCreateOpportunity serves POST /api/v1/opportunities
func (h *OpportunityHandlers) HandleCreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var req CreateOpportunityRequest
	if err := decodeAndValidateRequest(r, w, &req, "Create opportunity"); err != nil {
		return
	}

	opp := record.Opportunity{
		ID:       req.ID,
		Name:     strings.TrimSpace(req.Name),
		Amount:   req.Amount,
		Currency: strings.ToLower(req.Currency),
	}
	if err := h.store.CreateOpportunity(r.Context(), opp); err != nil {
		if errors.Is(err, record.ErrAlreadyExists) {
			respondError(w, http.StatusConflict, ErrMsgOpportunityExists)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to create opportunity", "record_id", req.ID, "error", err)
		respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
		return
	}

	created, err := h.store.GetOpportunity(r.Context(), req.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// HandleGetOpportunity serves GET /api/v1/opportunities/{id}
func (h *OpportunityHandlers) HandleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	opp, err := h.store.GetOpportunity(r.Context(), id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			respondError(w, http.StatusNotFound, ErrMsgOpportunityNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to load opportunity", "record_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
		return
	}
	respondJSON(w, http.StatusOK, opp)
}

// PanelResponse is the JSON view of one panel
type PanelResponse struct {
	State            models.LinkState     `json:"state"`
	GenerateDisabled bool                 `json:"generate_disabled"`
	Notification     *models.Notification `json:"notification,omitempty"`
}

// PanelHandlers drive panels over HTTP
type PanelHandlers struct {
	panels *services.PanelRegistry
}

func NewPanelHandlers(panels *services.PanelRegistry) *PanelHandlers {
	return &PanelHandlers{panels: panels}
}

func panelSessionID(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(PanelSessionHeader)); s != "" {
		return s
	}
	return DefaultPanelSession
}

// HandleGetPanel serves GET /api/v1/panels/{id}, mounting the panel on first access
func (h *PanelHandlers) HandleGetPanel(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	ctrl := h.panels.Mount(panelSessionID(r), id)
	respondJSON(w, http.StatusOK, PanelResponse{
		State:            ctrl.State(),
		GenerateDisabled: ctrl.IsGenerateDisabled(r.Context()),
	})
}

// HandleGenerate serves POST /api/v1/panels/{id}/generate
func (h *PanelHandlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	ctrl := h.panels.Mount(panelSessionID(r), id)
	if ctrl.IsGenerateDisabled(r.Context()) {
		respondJSON(w, http.StatusConflict, PanelResponse{State: ctrl.State(), GenerateDisabled: true})
		return
	}

	outcome := ctrl.Generate(r.Context())
	respondJSON(w, http.StatusOK, PanelResponse{
		State:            outcome.State,
		GenerateDisabled: ctrl.IsGenerateDisabled(r.Context()),
		Notification:     outcome.Notification,
	})
}

// HandleRefresh serves POST /api/v1/panels/{id}/refresh
func (h *PanelHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	ctrl := h.panels.Mount(panelSessionID(r), id)
	outcome := ctrl.RefreshStatus(r.Context())
	respondJSON(w, http.StatusOK, PanelResponse{
		State:            outcome.State,
		GenerateDisabled: ctrl.IsGenerateDisabled(r.Context()),
	})
}

// HandleUnmount serves DELETE /api/v1/panels/{id}
func (h *PanelHandlers) HandleUnmount(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}
	if !h.panels.Unmount(panelSessionID(r), id) {
		respondError(w, http.StatusNotFound, ErrMsgPanelNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthResponse represents the response for health endpoints
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// HandleHealthz provides a basic liveness check
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
	}
}

func recordIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !utils.IsValidRecordID(id) {
		respondError(w, http.StatusBadRequest, "Invalid opportunity id")
		return "", false
	}
	return id, true
}
