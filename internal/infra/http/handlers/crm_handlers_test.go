package handlers

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/infra/database"
	"github.com/programbi/crm-leads/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateHandlerCRUD(t *testing.T) {
	h := NewTemplateHandler(usecase.NewManageTemplatesUseCase(database.NewMemoryTemplateRepository()))

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/templates", map[string]any{
		"id":         "ignorado",
		"courseName": "Python",
		"subject":    "Hola {nombre}",
		"body":       "Info de {curso}",
		"autoSend":   true,
	}))
	require.Equal(t, http.StatusCreated, w.Code)
	var created entity.Template
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEqual(t, "ignorado", created.ID)

	w = httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/templates", map[string]any{"courseName": "PYTHON", "subject": "x"}))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	h.Update(w, withURLParam(jsonRequest(http.MethodPut, "/templates/"+created.ID, map[string]any{"courseName": "Python", "subject": "Nuevo"}), "id", created.ID))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/templates", nil))
	var list []entity.Template
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Nuevo", list[0].Subject)

	w = httptest.NewRecorder()
	h.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/templates/"+created.ID, nil), "id", created.ID))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.Delete(w, withURLParam(httptest.NewRequest(http.MethodDelete, "/templates/"+created.ID, nil), "id", created.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContactHandler(t *testing.T) {
	withPhone := seedLead("L1", "a@x.cl")
	withPhone.Phone = "912345678"
	leads := database.NewMemoryLeadRepository(withPhone, seedLead("L2", "b@x.cl"))
	templates := database.NewMemoryTemplateRepository(entity.Template{ID: "t1", CourseName: "Python", Subject: "Curso", Body: "Hola {nombre}"})
	h := NewContactHandler(usecase.NewContactUseCase(leads, templates))

	w := httptest.NewRecorder()
	h.WhatsApp(w, withURLParam(httptest.NewRequest(http.MethodGet, "/leads/L1/contact/whatsapp", nil), "id", "L1"))
	require.Equal(t, http.StatusOK, w.Code)
	var link usecase.ContactLink
	require.NoError(t, json.NewDecoder(w.Body).Decode(&link))
	assert.Equal(t, "https://wa.me/56912345678?text=Hola%20Ana", link.Link)

	w = httptest.NewRecorder()
	h.WhatsApp(w, withURLParam(httptest.NewRequest(http.MethodGet, "/leads/L2/contact/whatsapp", nil), "id", "L2"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	h.Email(w, withURLParam(httptest.NewRequest(http.MethodGet, "/leads/L2/contact/email", nil), "id", "L2"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&link))
	assert.Equal(t, "mailto:b@x.cl?subject=Curso&body=Hola%20Ana", link.Link)
}

func newDashboardHandler(leads ...entity.Lead) *DashboardHandler {
	uc := usecase.NewDashboardUseCase(database.NewMemoryLeadRepository(leads...), time.UTC)
	uc.Now = func() time.Time { return testNow }
	return NewDashboardHandler(uc)
}

func TestDashboardHandlers(t *testing.T) {
	corp := seedLead("L1", "ana@codelco.cl")
	corp.Phone = "912345678"
	h := newDashboardHandler(corp, seedLead("L2", "juan@gmail.com"))

	w := httptest.NewRecorder()
	h.KPIs(w, httptest.NewRequest(http.MethodGet, "/dashboard/kpis", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var k usecase.KPIs
	require.NoError(t, json.NewDecoder(w.Body).Decode(&k))
	assert.Equal(t, 2, k.Total)
	assert.Equal(t, 2, k.Pending)

	w = httptest.NewRecorder()
	h.Trend(w, httptest.NewRequest(http.MethodGet, "/dashboard/trend", nil))
	var points []usecase.TrendPoint
	require.NoError(t, json.NewDecoder(w.Body).Decode(&points))
	require.Len(t, points, 7)
	assert.Equal(t, 2, points[6].Count)

	w = httptest.NewRecorder()
	h.Leads(w, httptest.NewRequest(http.MethodGet, "/dashboard/leads?search=codelco", nil))
	var scored []usecase.ScoredLead
	require.NoError(t, json.NewDecoder(w.Body).Decode(&scored))
	require.Len(t, scored, 1)
	assert.Equal(t, 4, scored[0].Score)

	w = httptest.NewRecorder()
	h.ExportCSV(w, httptest.NewRequest(http.MethodGet, "/dashboard/export.csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "leads.csv")
	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

type fakeBroker struct{ healthy bool }

func (b fakeBroker) Healthy() bool { return b.healthy }

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(nil, fakeBroker{healthy: true}, "http://relay").Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "in-memory", resp.Dependencies["database"])
	assert.Equal(t, "configured", resp.Dependencies["relay"])

	w = httptest.NewRecorder()
	NewHealthHandler(nil, fakeBroker{healthy: false}, "").Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandlerClosedDatabase(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://invalid:1/none")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	w := httptest.NewRecorder()
	NewHealthHandler(db, nil, "").Handle(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&usecase.DomainError{Code: usecase.CodeValidation}, http.StatusBadRequest},
		{&usecase.DomainError{Code: usecase.CodeTemplateNotFound}, http.StatusNotFound},
		{&usecase.DomainError{Code: usecase.CodeSyncInProgress}, http.StatusConflict},
		{&usecase.DomainError{Code: usecase.CodeMisconfigured}, http.StatusInternalServerError},
		{&entity.StoreError{Op: "list", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeError(w, tt.err)
		assert.Equal(t, tt.want, w.Code, "%v", tt.err)
	}
}
