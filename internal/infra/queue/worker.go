package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncEventHandler processa um evento consumido da fila.
type SyncEventHandler interface {
	HandleSyncEvent(ctx context.Context, event SyncResultEvent) error
}

type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Handler SyncEventHandler
	Logger  *slog.Logger
}

func NewWorker(ch Consumer, handler SyncEventHandler) *Worker {
	return &Worker{
		Channel: ch,
		Handler: handler,
		Logger:  slog.Default(),
	}
}

// Start consome até o ctx ser cancelado ou o canal fechar.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	w.Logger.Info("worker aguardando na fila", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handleDelivery(ctx, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var event SyncResultEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.Logger.Error("evento com JSON inválido", "error", err)
		// Mensagem malformada vai direto pra DLQ
		d.Nack(false, false)
		return
	}

	if err := w.Handler.HandleSyncEvent(ctx, event); err != nil {
		w.Logger.Error("erro ao processar evento de sync", "lead_id", event.LeadID, "error", err)
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}

// AuditLogger registra cada resultado de sync no log estruturado.
type AuditLogger struct {
	Logger *slog.Logger
}

func (a AuditLogger) HandleSyncEvent(_ context.Context, event SyncResultEvent) error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"lead_id", event.LeadID,
		"email", event.Email,
		"mode", event.Mode,
		"outcome", event.Outcome,
		"sync_status", event.SyncStatus,
		"attempts", event.Attempts,
	}
	if event.Outcome == "rejected" {
		logger.Warn("auditoria: lead recusado pelo e-commerce, requer correção manual", append(attrs, "error", event.Error)...)
		return nil
	}
	logger.Info("auditoria: resultado de sync", attrs...)
	return nil
}
