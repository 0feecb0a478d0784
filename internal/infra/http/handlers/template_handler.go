package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/programbi/crm-leads/internal/usecase"
)

type TemplateHandler struct {
	Templates *usecase.ManageTemplatesUseCase
}

func NewTemplateHandler(uc *usecase.ManageTemplatesUseCase) *TemplateHandler {
	return &TemplateHandler{Templates: uc}
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Templates.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create (POST /templates). Um id no corpo é ignorado.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.SaveTemplateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.ID = ""
	h.save(w, r, input, http.StatusCreated)
}

// Update (PUT /templates/{id})
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.SaveTemplateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.ID = chi.URLParam(r, "id")
	h.save(w, r, input, http.StatusOK)
}

func (h *TemplateHandler) save(w http.ResponseWriter, r *http.Request, input usecase.SaveTemplateInput, status int) {
	tpl, err := h.Templates.Save(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, tpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
