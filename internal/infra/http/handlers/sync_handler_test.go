package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/infra/database"
	"github.com/programbi/crm-leads/internal/infra/integration/relay"
	"github.com/programbi/crm-leads/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRelay struct {
	calls   int
	block   chan struct{}
	started chan struct{}
	err     error
}

func (s *stubRelay) Upsert(ctx context.Context, input relay.CustomerPayload) (*relay.UpsertResult, error) {
	s.calls++
	if s.started != nil {
		close(s.started)
		s.started = nil
	}
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	return &relay.UpsertResult{RemoteID: "9001"}, nil
}

func TestForceSyncReport(t *testing.T) {
	rejected := seedLead("L2", "b@x.cl")
	rejected.Sync.Status = entity.SyncError
	store := database.NewMemoryLeadRepository(seedLead("L1", "a@x.cl"), rejected)
	rc := &stubRelay{}
	h := NewSyncHandler(usecase.NewSyncLeadsUseCase(store, rc, usecase.DefaultRetryPolicy()))

	w := httptest.NewRecorder()
	h.Force(w, httptest.NewRequest(http.MethodPost, "/sync/force", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ForceSyncResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, usecase.ModeManual, resp.Mode)
	assert.Equal(t, 2, resp.Attempted)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, 2, rc.calls)
}

func TestForceSyncWhileRunningConflicts(t *testing.T) {
	store := database.NewMemoryLeadRepository(seedLead("L1", "a@x.cl"))
	rc := &stubRelay{block: make(chan struct{}), started: make(chan struct{})}
	started := rc.started
	uc := usecase.NewSyncLeadsUseCase(store, rc, usecase.DefaultRetryPolicy())
	h := NewSyncHandler(uc)

	done := make(chan struct{})
	go func() {
		defer close(done)
		uc.ForceSync(context.Background())
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("batch não começou")
	}

	w := httptest.NewRecorder()
	h.Status(w, httptest.NewRequest(http.MethodGet, "/sync/status", nil))
	assert.JSONEq(t, `{"running":true}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Force(w, httptest.NewRequest(http.MethodPost, "/sync/force", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, usecase.CodeSyncInProgress, decodeError(t, w).Code)

	close(rc.block)
	<-done
}

func TestForceSyncIgnoresClientDisconnect(t *testing.T) {
	store := database.NewMemoryLeadRepository(seedLead("L1", "a@x.cl"), seedLead("L2", "b@x.cl"))
	rc := &stubRelay{}
	h := NewSyncHandler(usecase.NewSyncLeadsUseCase(store, rc, usecase.DefaultRetryPolicy()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	h.Force(w, httptest.NewRequest(http.MethodPost, "/sync/force", nil).WithContext(ctx))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, rc.calls)
	for _, id := range []string{"L1", "L2"} {
		lead, err := store.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, entity.SyncSynced, lead.Sync.Status, id)
	}
}
