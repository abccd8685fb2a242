package member_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-membership/internal/membership"
	"ms-membership/internal/utils"
)

type Handler struct {
	Members *membership.Service
}

func NewHandler(members *membership.Service) *Handler {
	return &Handler{Members: members}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/members/{memberId}", h.GetMember)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.Members.GetMember(r.Context(), chi.URLParam(r, "memberId"))
	if err != nil {
		utils.WriteError(w, "Member not found", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Member retrieved", m)
}
