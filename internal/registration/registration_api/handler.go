package registration_api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-membership/internal/apperr"
	"ms-membership/internal/logger"
	"ms-membership/internal/models"
	"ms-membership/internal/registration/pass"
	"ms-membership/internal/registration/service"
	"ms-membership/internal/sse"
	"ms-membership/internal/utils"
)

type Handler struct {
	Registrations *service.RegistrationService
	Feed          *sse.RegistrationFeed
	Pass          *pass.Generator
	Logger        *logger.Logger
	// AdminOnly guards payment marking when set.
	AdminOnly     func(http.Handler) http.Handler
}

func NewHandler(registrations *service.RegistrationService, feed *sse.RegistrationFeed, passes *pass.Generator, log *logger.Logger) *Handler {
	return &Handler{Registrations: registrations, Feed: feed, Pass: passes, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	// Flat paths so these share /events/{eventId} with the event handler.
	r.Get("/events/{eventId}/registrations", h.ListRegistrations)
	r.Post("/events/{eventId}/registrations", h.Register)
	r.Post("/events/{eventId}/leave", h.RequestLeave)
	r.Post("/events/{eventId}/cancel", h.Cancel)
	r.Get("/events/{eventId}/speakers", h.ListSpeakers)
	r.Post("/events/{eventId}/speakers", h.BookSpeaker)
	r.Get("/events/{eventId}/stream", h.Stream)
	r.With(guard(h.AdminOnly)).Put("/registrations/{registrationId}/payment", h.MarkPayment)
	r.Get("/registrations/{registrationId}/pass", h.GetPass)
	r.Post("/registrations/checkin", h.CheckIn)
}

func guard(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid registration", err)
		return
	}
	reg, err := h.Registrations.Register(r.Context(), chi.URLParam(r, "eventId"), req)
	if err != nil {
		utils.WriteError(w, "Registration failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registered", reg)
}

func (h *Handler) RequestLeave(w http.ResponseWriter, r *http.Request) {
	var id models.Identity
	if err := utils.DecodeJSON(r, &id); err != nil {
		utils.WriteError(w, "Invalid leave request", err)
		return
	}
	leave, err := h.Registrations.RequestLeave(r.Context(), chi.URLParam(r, "eventId"), id)
	if err != nil {
		utils.WriteError(w, "Leave request failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Leave recorded", leave)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, "Invalid cancel request", err)
		return
	}
	reg, err := h.Registrations.Cancel(r.Context(), chi.URLParam(r, "eventId"), body.Phone)
	if err != nil {
		utils.WriteError(w, "Cancel failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Cancelled", reg)
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	status := models.RegistrationStatus(strings.ToUpper(r.URL.Query().Get("status")))
	regs, err := h.Registrations.ListRegistrations(r.Context(), chi.URLParam(r, "eventId"), status)
	if err != nil {
		utils.WriteError(w, "Failed to list registrations", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Registrations retrieved", regs)
}

func (h *Handler) BookSpeaker(w http.ResponseWriter, r *http.Request) {
	var req models.SpeakerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid speaker booking", err)
		return
	}
	booking, err := h.Registrations.BookSpeaker(r.Context(), chi.URLParam(r, "eventId"), req)
	if err != nil {
		utils.WriteError(w, "Speaker booking failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Speaker booked", booking)
}

func (h *Handler) ListSpeakers(w http.ResponseWriter, r *http.Request) {
	speakers, err := h.Registrations.ListSpeakers(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Failed to list speakers", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Speakers retrieved", speakers)
}

func (h *Handler) MarkPayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentUpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid payment update", err)
		return
	}
	reg, err := h.Registrations.MarkPayment(r.Context(), chi.URLParam(r, "registrationId"), req.PaymentStatus)
	if err != nil {
		utils.WriteError(w, "Payment update failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Payment updated", reg)
}

// GetPass serves the registration's QR pass as a PNG.
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	reg, err := h.Registrations.GetRegistration(r.Context(), chi.URLParam(r, "registrationId"))
	if err != nil {
		utils.WriteError(w, "Registration not found", err)
		return
	}
	img, err := h.Pass.PNG(reg)
	if errors.Is(err, pass.ErrInvalidPass) {
		utils.WriteError(w, "No pass for this registration", fmt.Errorf("%w: %v", apperr.ErrNotAvailable, err))
		return
	}
	if err != nil {
		h.Logger.Error("PASS", fmt.Sprintf("Failed to render pass for %s: %v", reg.RegistrationID, err))
		utils.WriteError(w, "Failed to render pass", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// CheckIn validates a scanned pass against the current registration state.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, "Invalid check-in request", err)
		return
	}
	claims, err := h.Pass.Decode(body.Token)
	if err != nil {
		h.Logger.LogSecurity("PASS_REJECTED", err.Error())
		utils.WriteError(w, "Invalid pass", apperr.Validation("%v", err))
		return
	}
	reg, err := h.Registrations.GetRegistration(r.Context(), claims.RegistrationID)
	if err != nil {
		utils.WriteError(w, "Registration not found", err)
		return
	}
	if reg.Status != models.StatusRegistered || reg.Phone != claims.Phone {
		utils.WriteError(w, "Pass no longer valid", fmt.Errorf("%w: registration is %s", apperr.ErrNotAllowed, reg.Status))
		return
	}
	h.Logger.LogRegistration("CHECKIN", reg.EventID, reg.Name)
	utils.WriteSuccess(w, http.StatusOK, "Checked in", reg)
}
