package handlers

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/programbi/crm-leads/internal/infra/http/middleware"
	"github.com/programbi/crm-leads/internal/usecase"
)

type LeadHandler struct {
	Leads       *usecase.ManageLeadsUseCase
	rateLimiter *RateLimiter
}

func NewLeadHandler(leads *usecase.ManageLeadsUseCase) *LeadHandler {
	return &LeadHandler{
		Leads:       leads,
		rateLimiter: NewRateLimiter(10, time.Minute), // 10 req/min por IP
	}
}

type CaptureLeadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// CaptureLead (POST /leads) é o formulário público do site.
func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	if !h.rateLimiter.Allow(getClientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, CaptureLeadResponse{
			Success: false,
			Message: "Demasiadas solicitudes. Intenta más tarde.",
		})
		return
	}

	var input usecase.CaptureLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}

	lead, err := h.Leads.Capture(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.RecordLeadCaptured()
	writeJSON(w, http.StatusCreated, CaptureLeadResponse{Success: true, ID: lead.ID})
}

// List (GET /leads?search=&course=&date=&trash=)
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	leads, err := h.Leads.List(r.Context(), filterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.Leads.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.Leads.ChangeStatus(r.Context(), chi.URLParam(r, "id"), body.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

func (h *LeadHandler) ToggleContacted(w http.ResponseWriter, r *http.Request) {
	next, err := h.Leads.ToggleContacted(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(next)})
}

func (h *LeadHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"observaciones"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.Leads.SaveNote(r.Context(), chi.URLParam(r, "id"), body.Notes); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LeadHandler) MoveToTrash(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.Leads.MoveToTrash(r.Context(), chi.URLParam(r, "id")))
}

func (h *LeadHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.Leads.Restore(r.Context(), chi.URLParam(r, "id")))
}

func (h *LeadHandler) DeletePermanent(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.Leads.DeletePermanent(r.Context(), chi.URLParam(r, "id")))
}

func (h *LeadHandler) MarkEmailSent(w http.ResponseWriter, r *http.Request) {
	h.noContent(w, h.Leads.MarkEmailSent(r.Context(), chi.URLParam(r, "id")))
}

func (h *LeadHandler) noContent(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filterFromQuery(r *http.Request) usecase.LeadFilter {
	q := r.URL.Query()
	trash, _ := strconv.ParseBool(q.Get("trash"))
	return usecase.LeadFilter{
		Search: q.Get("search"),
		Course: q.Get("course"),
		Date:   q.Get("date"),
		Trash:  trash,
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}

	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := rl.now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
