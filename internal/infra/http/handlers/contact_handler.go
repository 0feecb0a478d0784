package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/programbi/crm-leads/internal/usecase"
)

type ContactHandler struct {
	Contact *usecase.ContactUseCase
}

func NewContactHandler(uc *usecase.ContactUseCase) *ContactHandler {
	return &ContactHandler{Contact: uc}
}

// Email (GET /leads/{id}/contact/email)
func (h *ContactHandler) Email(w http.ResponseWriter, r *http.Request) {
	link, err := h.Contact.Email(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// WhatsApp (GET /leads/{id}/contact/whatsapp)
func (h *ContactHandler) WhatsApp(w http.ResponseWriter, r *http.Request) {
	link, err := h.Contact.WhatsApp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
