package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncResultEvent é publicado a cada tentativa de sync com o resultado gravado no lead.
type SyncResultEvent struct {
	LeadID     string    `json:"lead_id"`
	Email      string    `json:"email"`
	Mode       string    `json:"mode"`
	Outcome    string    `json:"outcome"`
	SyncStatus string    `json:"sync_status"`
	RemoteID   string    `json:"remote_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	Attempts   int       `json:"attempts"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher é o subconjunto de *amqp.Channel usado pelo producer.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishSyncResult(ctx context.Context, event SyncResultEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("erro ao converter evento: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName, // ex.crm
		RoutingKey,   // k.lead.sync
		false,        // Mandatory
		false,        // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.LeadID + ":" + event.OccurredAt.UTC().Format(time.RFC3339Nano),
			Timestamp:    event.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}

	return nil
}
