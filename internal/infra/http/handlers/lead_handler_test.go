package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/infra/database"
	"github.com/programbi/crm-leads/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func seedLead(id, email string) entity.Lead {
	return entity.Lead{
		ID:        id,
		Name:      "Ana Rojas",
		Email:     email,
		Interests: []string{"Python"},
		Status:    entity.StatusPending,
		CreatedAt: testNow.Add(-time.Hour),
	}
}

func newLeadHandler(leads ...entity.Lead) (*LeadHandler, *database.MemoryLeadRepository) {
	store := database.NewMemoryLeadRepository(leads...)
	uc := usecase.NewManageLeadsUseCase(store, database.NewMemoryTemplateRepository(), nil)
	uc.Now = func() time.Time { return testNow }
	return NewLeadHandler(uc), store
}

func TestCaptureLeadCreated(t *testing.T) {
	h, store := newLeadHandler()

	w := httptest.NewRecorder()
	h.CaptureLead(w, jsonRequest(http.MethodPost, "/leads", map[string]any{
		"nombre":    "Ana Rojas",
		"email":     "ana@empresa.cl",
		"intereses": []string{"Python"},
	}))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp CaptureLeadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)

	lead, err := store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@empresa.cl", lead.Email)
	assert.Equal(t, entity.SyncPending, lead.Sync.Status)
}

func TestCaptureLeadBadRequests(t *testing.T) {
	h, _ := newLeadHandler()

	w := httptest.NewRecorder()
	h.CaptureLead(w, jsonRequest(http.MethodPost, "/leads", "{nope"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", decodeError(t, w).Code)

	w = httptest.NewRecorder()
	h.CaptureLead(w, jsonRequest(http.MethodPost, "/leads", map[string]string{"nombre": "Ana"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, usecase.CodeValidation, resp.Code)
	assert.NotNil(t, resp.Details)
}

func TestCaptureLeadRateLimited(t *testing.T) {
	h, _ := newLeadHandler()

	for i := 0; i < 10; i++ {
		req := jsonRequest(http.MethodPost, "/leads", map[string]string{"email": "ana@empresa.cl"})
		req.Header.Set("X-Forwarded-For", "200.1.1.1")
		w := httptest.NewRecorder()
		h.CaptureLead(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := jsonRequest(http.MethodPost, "/leads", map[string]string{"email": "ana@empresa.cl"})
	req.Header.Set("X-Forwarded-For", "200.1.1.1, 10.0.0.1")
	w := httptest.NewRecorder()
	h.CaptureLead(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	other := jsonRequest(http.MethodPost, "/leads", map[string]string{"email": "ana@empresa.cl"})
	other.Header.Set("X-Forwarded-For", "200.2.2.2")
	w = httptest.NewRecorder()
	h.CaptureLead(w, other)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := testNow
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("ip"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", getClientIP(req))

	req.Header.Set("X-Real-IP", "9.9.9.9")
	assert.Equal(t, "9.9.9.9", getClientIP(req))

	req.Header.Set("X-Forwarded-For", " 1.1.1.1 , 2.2.2.2")
	assert.Equal(t, "1.1.1.1", getClientIP(req))
}

func TestListLeadsFilters(t *testing.T) {
	trashed := seedLead("L2", "b@x.cl")
	trashed.Status = entity.StatusTrashed
	h, _ := newLeadHandler(seedLead("L1", "a@x.cl"), trashed)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/leads", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var leads []entity.Lead
	require.NoError(t, json.NewDecoder(w.Body).Decode(&leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "L1", leads[0].ID)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/leads?trash=true", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "L2", leads[0].ID)
}

func TestChangeStatusHandler(t *testing.T) {
	h, store := newLeadHandler(seedLead("L1", "a@x.cl"))

	w := httptest.NewRecorder()
	h.ChangeStatus(w, withURLParam(jsonRequest(http.MethodPatch, "/leads/L1/status", map[string]string{"status": "seguimiento"}), "id", "L1"))
	assert.Equal(t, http.StatusOK, w.Code)
	got, _ := store.FindByID(context.Background(), "L1")
	assert.Equal(t, entity.StatusInProgress, got.Status)

	w = httptest.NewRecorder()
	h.ChangeStatus(w, withURLParam(jsonRequest(http.MethodPatch, "/leads/L1/status", map[string]string{"status": "perdido"}), "id", "L1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ChangeStatus(w, withURLParam(jsonRequest(http.MethodPatch, "/leads/x/status", map[string]string{"status": "contactado"}), "id", "x"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, usecase.CodeLeadNotFound, decodeError(t, w).Code)
}

func TestTrashFlowHandlers(t *testing.T) {
	h, store := newLeadHandler(seedLead("L1", "a@x.cl"))

	w := httptest.NewRecorder()
	h.DeletePermanent(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/leads/L1", nil), "id", "L1"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, usecase.CodeNotInTrash, decodeError(t, w).Code)

	w = httptest.NewRecorder()
	h.MoveToTrash(w, withURLParam(httptest.NewRequest(http.MethodPost, "/leads/L1/trash", nil), "id", "L1"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.DeletePermanent(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/leads/L1", nil), "id", "L1"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := store.FindByID(context.Background(), "L1")
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

func TestSaveNoteAndToggle(t *testing.T) {
	h, store := newLeadHandler(seedLead("L1", "a@x.cl"))

	w := httptest.NewRecorder()
	h.SaveNote(w, withURLParam(jsonRequest(http.MethodPut, "/leads/L1/note", map[string]string{"observaciones": "volver a llamar"}), "id", "L1"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.ToggleContacted(w, withURLParam(httptest.NewRequest(http.MethodPost, "/leads/L1/toggle-contacted", nil), "id", "L1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"contactado"}`, w.Body.String())

	got, _ := store.FindByID(context.Background(), "L1")
	assert.Equal(t, "volver a llamar", got.Notes)
	assert.Equal(t, entity.StatusContacted, got.Status)
}
