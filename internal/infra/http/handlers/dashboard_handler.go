package handlers

import (
	"bytes"
	"net/http"

	"github.com/programbi/crm-leads/internal/usecase"
)

type DashboardHandler struct {
	Dashboard *usecase.DashboardUseCase
}

func NewDashboardHandler(uc *usecase.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{Dashboard: uc}
}

func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	k, err := h.Dashboard.KPIs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (h *DashboardHandler) Trend(w http.ResponseWriter, r *http.Request) {
	points, err := h.Dashboard.Trend(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// Leads (GET /dashboard/leads) devolve a lista filtrada com score.
func (h *DashboardHandler) Leads(w http.ResponseWriter, r *http.Request) {
	scored, err := h.Dashboard.Scored(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scored)
}

// ExportCSV monta o arquivo em memória para poder responder erro antes do primeiro byte.
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Dashboard.ExportCSV(r.Context(), &buf, filterFromQuery(r)); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
