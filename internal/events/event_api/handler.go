package event_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-membership/internal/apperr"
	"ms-membership/internal/events/service"
	"ms-membership/internal/logger"
	"ms-membership/internal/models"
	"ms-membership/internal/pricing"
	"ms-membership/internal/utils"
)

type Handler struct {
	EventService *service.EventService
	Logger       *logger.Logger
	// AdminOnly guards event deletion when set.
	AdminOnly    func(http.Handler) http.Handler
}

func NewHandler(eventService *service.EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: eventService, Logger: log}
}

// RegisterRoutes mounts the event routes on r. Registration routes under
// /{eventId} are mounted separately by the registration handler.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)
	r.Post("/events/charge-preview", h.PreviewCharge)
	r.Get("/events/{eventId}", h.GetEvent)
	r.With(guard(h.AdminOnly)).Delete("/events/{eventId}", h.DeleteEvent)
	r.Get("/events/{eventId}/blockers", h.GetBlockers)
}

func guard(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in models.EventInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, "Invalid event", err)
		return
	}
	event, err := h.EventService.CreateEvent(r.Context(), in)
	if err != nil {
		utils.WriteError(w, "Failed to create event", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Event created", event)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.EventService.ListEvents(r.Context())
	if err != nil {
		utils.WriteError(w, "Failed to list events", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Events retrieved", events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Event not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event retrieved", event)
}

func (h *Handler) GetBlockers(w http.ResponseWriter, r *http.Request) {
	check, err := h.EventService.CanDeleteEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Failed to check event dependents", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Delete check", check)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.EventService.DeleteEvent(r.Context(), chi.URLParam(r, "eventId")); err != nil {
		utils.WriteError(w, "Event cannot be deleted", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewCharge prices a hypothetical registrant against an event
// configuration without storing anything.
func (h *Handler) PreviewCharge(w http.ResponseWriter, r *http.Request) {
	var req models.ChargePreviewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid preview request", err)
		return
	}
	if !req.Registrant.Role.Valid() {
		utils.WriteError(w, "Invalid preview request", apperr.Validation("unknown role %q", req.Registrant.Role))
		return
	}
	charge, err := pricing.ComputeCharge(req.Event, req.Registrant)
	if err != nil {
		utils.WriteError(w, "Charge cannot be computed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Charge computed", charge)
}
