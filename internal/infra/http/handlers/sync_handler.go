package handlers

import (
	"context"
	"net/http"

	"github.com/programbi/crm-leads/internal/usecase"
)

type SyncHandler struct {
	Sync *usecase.SyncLeadsUseCase
}

func NewSyncHandler(uc *usecase.SyncLeadsUseCase) *SyncHandler {
	return &SyncHandler{Sync: uc}
}

type ForceSyncResponse struct {
	usecase.SyncReport
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Force (POST /sync/force) bloqueia até o batch manual terminar e devolve o resumo.
// O batch não para se o cliente desconectar.
func (h *SyncHandler) Force(w http.ResponseWriter, r *http.Request) {
	report, err := h.Sync.ForceSync(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ForceSyncResponse{
		SyncReport: report,
		Succeeded:  report.Succeeded(),
		Failed:     report.Failed(),
	})
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": h.Sync.Running()})
}
