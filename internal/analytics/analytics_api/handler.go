package analytics_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-membership/internal/analytics"
	"ms-membership/internal/logger"
	"ms-membership/internal/utils"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/{eventId}/summary", h.GetDuesSummary)
}

func (h *Handler) GetDuesSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Service.Summarize(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		utils.WriteError(w, "Failed to summarize dues", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Dues summary", sum)
}
