package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/programbi/crm-leads/internal/entity"
)

const leadsChannel = "leads_changed"

const leadColumns = `id, nombre, email, telefono, empresa, intereses, mensaje, observaciones, origen,
	status, email_sent, fecha, shopify_status, shopify_id, shopify_synced_at, shopify_error,
	shopify_attempts, shopify_last_attempt_at`

type LeadRepository struct {
	DB *sql.DB
	// ConnString é usado pelo listener do LISTEN/NOTIFY (conexão dedicada do lib/pq)
	ConnString string
	Logger     *slog.Logger
}

func NewLeadRepository(db *sql.DB, connString string) *LeadRepository {
	return &LeadRepository{DB: db, ConnString: connString, Logger: slog.Default()}
}

// Subscribe entrega um snapshot inicial e um novo snapshot a cada NOTIFY de leads_changed.
// Notificações acumuladas durante um callback viram um único snapshot.
func (r *LeadRepository) Subscribe(ctx context.Context, onChange func([]entity.Lead)) (func(), error) {
	listener := pq.NewListener(r.ConnString, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.Logger.Warn("listener de leads com problema", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(leadsChannel); err != nil {
		listener.Close()
		return nil, &entity.StoreError{Op: "subscribe", Err: err}
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer listener.Close()

		r.emit(subCtx, onChange)

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-subCtx.Done():
				return
			case <-listener.Notify:
				// nil também chega aqui depois de reconexão: relê tudo de qualquer jeito
				drainNotifications(listener.Notify)
				r.emit(subCtx, onChange)
			case <-ping.C:
				if err := listener.Ping(); err != nil {
					r.Logger.Warn("ping do listener falhou", "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func drainNotifications(ch <-chan *pq.Notification) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (r *LeadRepository) emit(ctx context.Context, onChange func([]entity.Lead)) {
	leads, err := r.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.Logger.Error("erro ao montar snapshot de leads", "error", err)
		}
		return
	}
	onChange(leads)
}

func (r *LeadRepository) List(ctx context.Context) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY fecha DESC, id`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, &entity.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	leads := []entity.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, &entity.StoreError{Op: "list", Err: err}
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, &entity.StoreError{Op: "list", Err: err}
	}
	return leads, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.StoreError{Op: "find", ID: id, Err: entity.ErrLeadNotFound}
	}
	if err != nil {
		return nil, &entity.StoreError{Op: "find", ID: id, Err: err}
	}
	return lead, nil
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	interests, err := json.Marshal(nonNilStrings(lead.Interests))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Company,
		interests,
		lead.Message,
		lead.Notes,
		lead.Origin,
		string(lead.Status),
		lead.EmailSent,
		lead.CreatedAt,
		string(lead.Sync.Status),
		lead.Sync.RemoteID,
		lead.Sync.SyncedAt,
		lead.Sync.LastError,
		lead.Sync.Attempts,
		lead.Sync.LastAttemptAt,
	)
	if err != nil {
		return &entity.StoreError{Op: "create", ID: lead.ID, Err: err}
	}
	return nil
}

// Update aplica só os campos presentes no patch. Um Sync presente regrava o sub-registro inteiro.
func (r *LeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Notes != nil {
		add("observaciones", *patch.Notes)
	}
	if patch.EmailSent != nil {
		add("email_sent", *patch.EmailSent)
	}
	if s := patch.Sync; s != nil {
		add("shopify_status", string(s.Status))
		add("shopify_id", s.RemoteID)
		add("shopify_synced_at", s.SyncedAt)
		add("shopify_error", s.LastError)
		add("shopify_attempts", s.Attempts)
		add("shopify_last_attempt_at", s.LastAttemptAt)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return &entity.StoreError{Op: "update", ID: id, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &entity.StoreError{Op: "update", ID: id, Err: entity.ErrLeadNotFound}
	}
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return &entity.StoreError{Op: "delete", ID: id, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &entity.StoreError{Op: "delete", ID: id, Err: entity.ErrLeadNotFound}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		lead          entity.Lead
		interests     []byte
		status        string
		syncStatus    string
		remoteID      sql.NullString
		syncedAt      sql.NullTime
		lastError     sql.NullString
		lastAttemptAt sql.NullTime
	)

	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&interests,
		&lead.Message,
		&lead.Notes,
		&lead.Origin,
		&status,
		&lead.EmailSent,
		&lead.CreatedAt,
		&syncStatus,
		&remoteID,
		&syncedAt,
		&lastError,
		&lead.Sync.Attempts,
		&lastAttemptAt,
	)
	if err != nil {
		return nil, err
	}

	if len(interests) > 0 {
		if err := json.Unmarshal(interests, &lead.Interests); err != nil {
			return nil, fmt.Errorf("intereses inválidos no lead %s: %w", lead.ID, err)
		}
	}

	// Valores desconhecidos no banco não derrubam o snapshot inteiro
	if lead.Status, err = entity.ParseWorkflowStatus(status); err != nil {
		lead.Status = entity.StatusPending
	}
	if lead.Sync.Status, err = entity.ParseSyncStatus(syncStatus); err != nil {
		lead.Sync.Status = entity.SyncPending
	}
	lead.Sync.RemoteID = nullableString(remoteID)
	lead.Sync.SyncedAt = nullableTime(syncedAt)
	lead.Sync.LastError = nullableString(lastError)
	lead.Sync.LastAttemptAt = nullableTime(lastAttemptAt)

	return &lead, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
