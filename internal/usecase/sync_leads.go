package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/infra/integration/relay"
	"github.com/programbi/crm-leads/internal/infra/queue"
)

type SyncMode string

const (
	ModeAutomatic SyncMode = "automatic"
	ModeManual    SyncMode = "manual"
)

const (
	OutcomeSynced        = "synced"
	OutcomeRejected      = "rejected"
	OutcomeNetworkFailed = "network_error"
	OutcomeStoreFailed   = "store_error"
)

const errMissingEmail = "lead sin email: no se puede sincronizar"

// RetryPolicy limita o retry automático de error_network. O force manual ignora a política.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   30 * time.Second,
		MaxDelay:    30 * time.Minute,
		MaxAttempts: 8,
	}
}

// Backoff para a n-ésima tentativa falha: min(base * 2^(n-1), max).
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p RetryPolicy) Allows(rec entity.SyncRecord, now time.Time) bool {
	if p.MaxAttempts > 0 && rec.Attempts >= p.MaxAttempts {
		return false
	}
	if rec.LastAttemptAt == nil {
		return true
	}
	return !now.Before(rec.LastAttemptAt.Add(p.Backoff(rec.Attempts)))
}

func EligibleForAutomatic(lead entity.Lead, policy RetryPolicy, now time.Time) bool {
	if lead.IsTrashed() {
		return false
	}
	switch lead.Sync.Status {
	case entity.SyncAbsent, entity.SyncPending:
		return true
	case entity.SyncErrorNetwork:
		return policy.Allows(lead.Sync, now)
	}
	return false
}

func EligibleForManual(lead entity.Lead) bool {
	return !lead.IsTrashed() && lead.Sync.Status != entity.SyncSynced
}

type SyncReport struct {
	Mode          SyncMode `json:"mode"`
	Attempted     int      `json:"attempted"`
	Synced        int      `json:"synced"`
	Rejected      int      `json:"rejected"`
	NetworkFailed int      `json:"networkFailed"`
	StoreFailures int      `json:"storeFailures"`
}

func (r SyncReport) Succeeded() int {
	return r.Synced
}

func (r SyncReport) Failed() int {
	return r.Rejected + r.NetworkFailed + r.StoreFailures
}

type SyncLeadsUseCase struct {
	Store   entity.LeadRepositoryInterface
	Relay   RelayClient
	Events  SyncEventPublisher
	Metrics SyncRecorder
	Policy  RetryPolicy
	Now     func() time.Time
	Logger  *slog.Logger

	mu      sync.Mutex
	running bool
	pending bool
}

func NewSyncLeadsUseCase(store entity.LeadRepositoryInterface, relayClient RelayClient, policy RetryPolicy) *SyncLeadsUseCase {
	return &SyncLeadsUseCase{
		Store:   store,
		Relay:   relayClient,
		Metrics: noopRecorder{},
		Policy:  policy,
		Now:     time.Now,
		Logger:  slog.Default(),
	}
}

// HandleSnapshot é o caminho automático, chamado a cada snapshot do store.
// Um snapshot que chega com um batch em curso só marca um re-run.
func (uc *SyncLeadsUseCase) HandleSnapshot(ctx context.Context, leads []entity.Lead) {
	if !uc.begin() {
		uc.metrics().RecordSkippedRun()
		return
	}
	uc.drain(ctx, ModeAutomatic, leads)
}

// SyncPending relê o store e roda o caminho automático. Usado pelo sweeper.
func (uc *SyncLeadsUseCase) SyncPending(ctx context.Context) error {
	leads, err := uc.Store.List(ctx)
	if err != nil {
		return err
	}
	uc.HandleSnapshot(ctx, leads)
	return nil
}

// ForceSync reprocessa tudo que não está synced, inclusive error, e devolve o resumo.
func (uc *SyncLeadsUseCase) ForceSync(ctx context.Context) (SyncReport, error) {
	if !uc.begin() {
		return SyncReport{Mode: ModeManual}, &DomainError{
			Code:    CodeSyncInProgress,
			Message: "ya hay una sincronización en curso",
		}
	}

	leads, err := uc.Store.List(ctx)
	if err != nil {
		uc.release(false)
		return SyncReport{Mode: ModeManual}, err
	}

	return uc.drain(ctx, ModeManual, leads), nil
}

// Running indica batch em curso.
func (uc *SyncLeadsUseCase) Running() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.running
}

func (uc *SyncLeadsUseCase) begin() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.running {
		uc.pending = true
		return false
	}
	uc.running = true
	return true
}

// release libera o guard sem descartar um re-run já marcado. rerun remarca o trabalho que não foi feito.
func (uc *SyncLeadsUseCase) release(rerun bool) {
	uc.mu.Lock()
	uc.running = false
	if rerun {
		uc.pending = true
	}
	uc.mu.Unlock()
}

// takePending consome o re-run marcado. Sem re-run, libera o guard.
func (uc *SyncLeadsUseCase) takePending() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.pending {
		uc.running = false
		return false
	}
	uc.pending = false
	return true
}

// drain roda o batch e os re-runs coalescidos. Dentro de um drain cada lead é tentado no máximo uma vez.
// As chamadas usam um contexto sem cancelamento: um cancelamento de ctx só interrompe o drain entre leads,
// nunca uma chamada ao relay em curso.
func (uc *SyncLeadsUseCase) drain(ctx context.Context, mode SyncMode, leads []entity.Lead) SyncReport {
	work := context.WithoutCancel(ctx)
	attempted := make(map[string]bool)
	first := uc.runBatch(ctx, work, mode, leads, attempted)

	for uc.takePending() {
		if ctx.Err() != nil {
			uc.release(true)
			break
		}
		next, err := uc.Store.List(work)
		if err != nil {
			uc.logger().Error("erro ao reler leads para re-run", "error", err)
			uc.release(true)
			break
		}
		uc.runBatch(ctx, work, ModeAutomatic, next, attempted)
	}

	return first
}

func (uc *SyncLeadsUseCase) runBatch(ctx, work context.Context, mode SyncMode, leads []entity.Lead, attempted map[string]bool) SyncReport {
	report := SyncReport{Mode: mode}
	now := uc.now()

	for _, lead := range leads {
		if ctx.Err() != nil {
			uc.logger().Warn("batch de sync interrompido", "mode", mode, "error", ctx.Err())
			break
		}
		if attempted[lead.ID] || !uc.eligible(mode, lead, now) {
			continue
		}

		// O snapshot pode estar atrasado em relação às nossas próprias escritas.
		current, err := uc.Store.FindByID(work, lead.ID)
		if err != nil {
			if errors.Is(err, entity.ErrLeadNotFound) {
				continue
			}
			uc.logger().Error("erro ao reler lead", "lead_id", lead.ID, "error", err)
			attempted[lead.ID] = true
			report.Attempted++
			report.StoreFailures++
			uc.metrics().RecordSyncAttempt(string(mode), OutcomeStoreFailed)
			continue
		}
		if !uc.eligible(mode, *current, now) {
			continue
		}

		attempted[lead.ID] = true
		report.Attempted++

		switch outcome := uc.syncLead(work, mode, *current); outcome {
		case OutcomeSynced:
			report.Synced++
		case OutcomeRejected:
			report.Rejected++
		case OutcomeNetworkFailed:
			report.NetworkFailed++
		case OutcomeStoreFailed:
			report.StoreFailures++
		}
	}

	if report.Attempted > 0 || mode == ModeManual {
		uc.metrics().RecordSyncBatch(string(mode))
		uc.logger().Info("batch de sync concluído",
			"mode", mode,
			"attempted", report.Attempted,
			"synced", report.Synced,
			"rejected", report.Rejected,
			"network_failed", report.NetworkFailed,
			"store_failures", report.StoreFailures,
		)
	}
	return report
}

func (uc *SyncLeadsUseCase) eligible(mode SyncMode, lead entity.Lead, now time.Time) bool {
	if mode == ModeManual {
		return EligibleForManual(lead)
	}
	return EligibleForAutomatic(lead, uc.Policy, now)
}

// syncLead processa um lead e grava o resultado. Nunca propaga erro: o batch segue.
func (uc *SyncLeadsUseCase) syncLead(ctx context.Context, mode SyncMode, lead entity.Lead) string {
	log := uc.logger().With("lead_id", lead.ID, "mode", mode)

	var (
		rec     entity.SyncRecord
		outcome string
	)

	if lead.Email == "" {
		rec = entity.Rejected(lead.Sync, errMissingEmail, uc.now())
		outcome = OutcomeRejected
	} else {
		res, err := uc.Relay.Upsert(ctx, BuildPayload(lead))
		at := uc.now()
		rec, outcome = classify(lead.Sync, res, err, at)
	}

	if err := uc.Store.Update(ctx, lead.ID, entity.LeadPatch{Sync: &rec}); err != nil {
		log.Error("erro ao gravar status de sync", "error", err, "outcome", outcome)
		uc.metrics().RecordSyncAttempt(string(mode), OutcomeStoreFailed)
		return OutcomeStoreFailed
	}

	switch outcome {
	case OutcomeSynced:
		log.Info("lead sincronizado", "remote_id", *rec.RemoteID)
	default:
		log.Warn("falha ao sincronizar lead", "outcome", outcome, "detail", *rec.LastError, "attempts", rec.Attempts)
	}

	uc.metrics().RecordSyncAttempt(string(mode), outcome)
	uc.publish(ctx, mode, lead, rec, outcome)
	return outcome
}

func classify(prev entity.SyncRecord, res *relay.UpsertResult, err error, at time.Time) (entity.SyncRecord, string) {
	if err == nil {
		if res == nil || res.RemoteID == "" {
			return entity.NetworkFailed(prev, "respuesta del relay sin id de cliente", at), OutcomeNetworkFailed
		}
		return entity.Synced(res.RemoteID, at), OutcomeSynced
	}

	var rej *relay.RejectionError
	if errors.As(err, &rej) {
		return entity.Rejected(prev, rej.Detail(), at), OutcomeRejected
	}

	var tr *relay.TransportError
	if errors.As(err, &tr) {
		return entity.NetworkFailed(prev, tr.Detail(), at), OutcomeNetworkFailed
	}
	return entity.NetworkFailed(prev, err.Error(), at), OutcomeNetworkFailed
}

func (uc *SyncLeadsUseCase) publish(ctx context.Context, mode SyncMode, lead entity.Lead, rec entity.SyncRecord, outcome string) {
	if uc.Events == nil {
		return
	}
	event := queue.SyncResultEvent{
		LeadID:     lead.ID,
		Email:      lead.Email,
		Mode:       string(mode),
		Outcome:    outcome,
		SyncStatus: string(rec.Status),
		Attempts:   rec.Attempts,
		OccurredAt: uc.now(),
	}
	if rec.RemoteID != nil {
		event.RemoteID = *rec.RemoteID
	}
	if rec.LastError != nil {
		event.Error = *rec.LastError
	}
	if err := uc.Events.PublishSyncResult(ctx, event); err != nil {
		uc.logger().Warn("erro ao publicar evento de sync", "lead_id", lead.ID, "error", err)
	}
}

func (uc *SyncLeadsUseCase) now() time.Time {
	if uc.Now == nil {
		return time.Now()
	}
	return uc.Now()
}

func (uc *SyncLeadsUseCase) logger() *slog.Logger {
	if uc.Logger == nil {
		return slog.Default()
	}
	return uc.Logger
}

func (uc *SyncLeadsUseCase) metrics() SyncRecorder {
	if uc.Metrics == nil {
		return noopRecorder{}
	}
	return uc.Metrics
}
