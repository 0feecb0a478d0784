package usecase

import (
	"context"

	"github.com/programbi/crm-leads/internal/infra/integration/relay"
	"github.com/programbi/crm-leads/internal/infra/integration/shopify"
	"github.com/programbi/crm-leads/internal/infra/queue"
)

// RelayClient é o upsert por email exposto pelo relay.
type RelayClient interface {
	Upsert(ctx context.Context, input relay.CustomerPayload) (*relay.UpsertResult, error)
}

type SyncEventPublisher interface {
	PublishSyncResult(ctx context.Context, event queue.SyncResultEvent) error
}

// SyncRecorder recebe os contadores do engine (prometheus em produção).
type SyncRecorder interface {
	RecordSyncAttempt(mode, outcome string)
	RecordSyncBatch(mode string)
	RecordSkippedRun()
}

type ShopifyGateway interface {
	SearchByEmail(ctx context.Context, email string) (*shopify.Customer, error)
	CreateCustomer(ctx context.Context, input shopify.CreateCustomerInput) (*shopify.Customer, error)
	UpdateCustomer(ctx context.Context, input shopify.UpdateCustomerInput) (*shopify.Customer, error)
}

type EmailService interface {
	SendTemplate(to, subject, body string) error
}

type noopRecorder struct{}

func (noopRecorder) RecordSyncAttempt(string, string) {}
func (noopRecorder) RecordSyncBatch(string)           {}
func (noopRecorder) RecordSkippedRun()                {}
