package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus controla a visibilidade do lead no painel. É independente do SyncStatus.
type WorkflowStatus string

const (
	StatusPending    WorkflowStatus = "pendiente"
	StatusInProgress WorkflowStatus = "seguimiento"
	StatusContacted  WorkflowStatus = "contactado"
	StatusTrashed    WorkflowStatus = "trashed"
)

func (s WorkflowStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusContacted, StatusTrashed:
		return true
	}
	return false
}

// ParseWorkflowStatus aceita o valor persistido. Documentos antigos sem status contam como pendiente.
func ParseWorkflowStatus(raw string) (WorkflowStatus, error) {
	s := WorkflowStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return StatusPending, nil
	}
	if !s.Valid() {
		return "", fmt.Errorf("status de workflow inválido: %q", raw)
	}
	return s, nil
}

// SyncStatus acompanha o push do lead para o cliente da plataforma de e-commerce.
type SyncStatus string

const (
	SyncAbsent       SyncStatus = ""
	SyncPending      SyncStatus = "pending"
	SyncSynced       SyncStatus = "synced"
	SyncError        SyncStatus = "error"
	SyncErrorNetwork SyncStatus = "error_network"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncAbsent, SyncPending, SyncSynced, SyncError, SyncErrorNetwork:
		return true
	}
	return false
}

func ParseSyncStatus(raw string) (SyncStatus, error) {
	s := SyncStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("status de sync inválido: %q", raw)
	}
	return s, nil
}

// SyncRecord é o sub-registro de sincronização. Ausência de campo é nil, nunca string vazia.
type SyncRecord struct {
	Status        SyncStatus `json:"shopify_status,omitempty"`
	RemoteID      *string    `json:"shopify_id,omitempty"`
	SyncedAt      *time.Time `json:"shopify_synced_at,omitempty"`
	LastError     *string    `json:"shopify_error,omitempty"`
	Attempts      int        `json:"shopify_attempts"`
	LastAttemptAt *time.Time `json:"shopify_last_attempt_at,omitempty"`
}

// Synced garante o invariante: synced implica RemoteID preenchido e LastError limpo.
func Synced(remoteID string, at time.Time) SyncRecord {
	return SyncRecord{
		Status:        SyncSynced,
		RemoteID:      &remoteID,
		SyncedAt:      &at,
		LastAttemptAt: &at,
	}
}

func Rejected(prev SyncRecord, detail string, at time.Time) SyncRecord {
	return failed(prev, SyncError, detail, at)
}

func NetworkFailed(prev SyncRecord, detail string, at time.Time) SyncRecord {
	return failed(prev, SyncErrorNetwork, detail, at)
}

func failed(prev SyncRecord, status SyncStatus, detail string, at time.Time) SyncRecord {
	return SyncRecord{
		Status:        status,
		RemoteID:      prev.RemoteID,
		SyncedAt:      prev.SyncedAt,
		LastError:     &detail,
		Attempts:      prev.Attempts + 1,
		LastAttemptAt: &at,
	}
}

type Lead struct {
	ID        string         `json:"id"`
	Name      string         `json:"nombre"`
	Email     string         `json:"email"`
	Phone     string         `json:"telefono"`
	Company   string         `json:"empresa,omitempty"`
	Interests []string       `json:"intereses"`
	Message   string         `json:"mensaje"`
	Notes     string         `json:"observaciones"`
	Origin    string         `json:"origen,omitempty"`
	Status    WorkflowStatus `json:"status"`
	EmailSent bool           `json:"emailSent"`
	CreatedAt time.Time      `json:"fecha"`
	Sync      SyncRecord     `json:"sync"`
}

// Factory usada pela captura do formulário web
func NewLead(name, email, phone, company, message, origin string, interests []string) (*Lead, error) {
	if strings.TrimSpace(origin) == "" {
		origin = "Web"
	}

	lead := &Lead{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Phone:     strings.TrimSpace(phone),
		Company:   strings.TrimSpace(company),
		Interests: cleanInterests(interests),
		Message:   strings.TrimSpace(message),
		Origin:    origin,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		Sync:      SyncRecord{Status: SyncPending},
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}

	return lead, nil
}

func (l *Lead) Validate() error {
	if l.Email == "" {
		return errors.New("email is required")
	}
	if !l.Status.Valid() {
		return fmt.Errorf("invalid status %q", l.Status)
	}
	return nil
}

func (l Lead) IsTrashed() bool {
	return l.Status == StatusTrashed
}

// PrimaryInterest replica a normalização do dashboard: primeiro interesse ou "General".
func (l Lead) PrimaryInterest() string {
	for _, i := range l.Interests {
		if strings.TrimSpace(i) != "" {
			return i
		}
	}
	return "General"
}

func (l Lead) FirstName() string {
	parts := strings.Fields(l.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func cleanInterests(in []string) []string {
	out := make([]string, 0, len(in))
	for _, i := range in {
		if t := strings.TrimSpace(i); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// LeadPatch é o merge parcial. Sync não-nil substitui o sub-registro inteiro.
type LeadPatch struct {
	Status    *WorkflowStatus
	Notes     *string
	EmailSent *bool
	Sync      *SyncRecord
}

func (p LeadPatch) IsEmpty() bool {
	return p.Status == nil && p.Notes == nil && p.EmailSent == nil && p.Sync == nil
}

func (p LeadPatch) Apply(l *Lead) {
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if p.EmailSent != nil {
		l.EmailSent = *p.EmailSent
	}
	if p.Sync != nil {
		l.Sync = *p.Sync
	}
}

// LeadRepositoryInterface é o contrato que o core consome do document store.
type LeadRepositoryInterface interface {
	// Subscribe entrega o conjunto completo (fecha desc) a cada mudança. cancel desliga o listener.
	Subscribe(ctx context.Context, onChange func([]Lead)) (cancel func(), err error)
	List(ctx context.Context) ([]Lead, error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, id string, patch LeadPatch) error
	Delete(ctx context.Context, id string) error
}
