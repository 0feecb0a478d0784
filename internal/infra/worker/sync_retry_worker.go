package worker

import (
	"context"
	"log/slog"
	"time"
)

// PendingSyncer é o caminho automático do engine (lê o store e sincroniza os elegíveis).
type PendingSyncer interface {
	SyncPending(ctx context.Context) error
}

// SyncRetryWorker varre o store periodicamente para pegar leads error_network
// cujo backoff venceu sem que nenhum snapshot novo tenha chegado.
type SyncRetryWorker struct {
	syncer       PendingSyncer
	tickInterval time.Duration
	logger       *slog.Logger
}

func NewSyncRetryWorker(syncer PendingSyncer, interval time.Duration) *SyncRetryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncRetryWorker{
		syncer:       syncer,
		tickInterval: interval,
		logger:       slog.Default().With("component", "sync_retry_worker"),
	}
}

// Start bloqueia até o ctx ser cancelado.
func (w *SyncRetryWorker) Start(ctx context.Context) error {
	w.logger.Info("sync retry worker iniciado", "interval", w.tickInterval.String())

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sync retry worker encerrado")
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SyncRetryWorker) sweep(ctx context.Context) {
	if err := w.syncer.SyncPending(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("varredura de sync falhou", "error", err)
	}
}
