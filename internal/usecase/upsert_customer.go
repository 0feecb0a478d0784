package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/programbi/crm-leads/internal/infra/integration/shopify"
)

const noteSeparator = "\n---\n"

// UpsertCustomerUseCase roda no relay: busca por email, mescla se existir, cria se não.
type UpsertCustomerUseCase struct {
	Gateway ShopifyGateway
	Now     func() time.Time
	Logger  *slog.Logger
}

func NewUpsertCustomerUseCase(gateway ShopifyGateway) *UpsertCustomerUseCase {
	return &UpsertCustomerUseCase{
		Gateway: gateway,
		Now:     time.Now,
		Logger:  slog.Default(),
	}
}

func (uc *UpsertCustomerUseCase) Execute(ctx context.Context, input UpsertCustomerInput) (*UpsertCustomerOutput, error) {
	if errs := ValidateUpsertCustomerInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := uc.Gateway.SearchByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return uc.merge(ctx, existing, input)
	}

	firstName, lastName := SplitName(input.Name)
	created, err := uc.Gateway.CreateCustomer(ctx, shopify.CreateCustomerInput{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     strings.TrimSpace(input.Phone),
		Tags:      MergeTags("", input.Tags),
		Note:      input.Note,
		ConsentAt: uc.Now(),
	})
	if err != nil {
		// Corrida: outro request criou o cliente entre a busca e o POST
		if apiErr, ok := shopify.AsAPIError(err); ok && apiErr.EmailTaken() {
			uc.Logger.Info("cliente criado em paralelo, seguindo para update", "email", email)
			existing, searchErr := uc.Gateway.SearchByEmail(ctx, email)
			if searchErr != nil {
				return nil, searchErr
			}
			if existing != nil {
				return uc.merge(ctx, existing, input)
			}
		}
		return nil, err
	}

	uc.Logger.Info("cliente criado no e-commerce", "customer_id", created.ID, "email", email)
	return toOutput(created, true), nil
}

func (uc *UpsertCustomerUseCase) merge(ctx context.Context, existing *shopify.Customer, input UpsertCustomerInput) (*UpsertCustomerOutput, error) {
	currentNote := ""
	if existing.Note != nil {
		currentNote = *existing.Note
	}

	updated, err := uc.Gateway.UpdateCustomer(ctx, shopify.UpdateCustomerInput{
		ID:   existing.ID,
		Tags: MergeTags(existing.Tags, input.Tags),
		Note: AppendNote(currentNote, input.Note),
	})
	if err != nil {
		return nil, err
	}

	uc.Logger.Info("cliente existente atualizado", "customer_id", updated.ID)
	return toOutput(updated, false), nil
}

// MergeTags une as tags existentes (ordem preservada) com as novas, sem diferenciar maiúsculas.
func MergeTags(existing string, incoming []string) string {
	seen := make(map[string]bool)
	var out []string

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, tag)
	}

	for _, tag := range strings.Split(existing, ",") {
		add(tag)
	}
	for _, tag := range incoming {
		add(tag)
	}
	return strings.Join(out, ", ")
}

// AppendNote acumula a nota nova na existente. Retries repetem o fragmento.
func AppendNote(existing, note string) string {
	existing = strings.TrimSpace(existing)
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	}
	return existing + noteSeparator + note
}

// SplitName separa primeiro nome e resto. Nome vazio vira "Cliente".
func SplitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "Cliente", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func toOutput(c *shopify.Customer, created bool) *UpsertCustomerOutput {
	out := &UpsertCustomerOutput{
		Success: true,
		Created: created,
		Customer: CustomerOutput{
			ID:    c.ID,
			Email: c.Email,
			Tags:  c.Tags,
		},
	}
	if c.Note != nil {
		out.Customer.Note = *c.Note
	}
	return out
}
