package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/programbi/crm-leads/internal/entity"
)

// ManageLeadsUseCase concentra a captura do formulário e as ações de triagem do painel.
type ManageLeadsUseCase struct {
	Store     entity.LeadRepositoryInterface
	Templates entity.TemplateRepositoryInterface
	Mailer    EmailService
	Now       func() time.Time
	Logger    *slog.Logger
}

func NewManageLeadsUseCase(store entity.LeadRepositoryInterface, templates entity.TemplateRepositoryInterface, mailer EmailService) *ManageLeadsUseCase {
	return &ManageLeadsUseCase{
		Store:     store,
		Templates: templates,
		Mailer:    mailer,
		Now:       time.Now,
		Logger:    slog.Default(),
	}
}

func (uc *ManageLeadsUseCase) Capture(ctx context.Context, input CaptureLeadInput) (*entity.Lead, error) {
	if errs := ValidateCaptureLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := entity.NewLead(input.Name, input.Email, input.Phone, input.Company, input.Message, input.Origin, input.Interests)
	if err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}
	lead.CreatedAt = uc.Now()

	if err := uc.Store.Create(ctx, lead); err != nil {
		return nil, err
	}

	uc.Logger.Info("lead capturado", "lead_id", lead.ID, "origin", lead.Origin)
	uc.autoSend(ctx, lead)
	return lead, nil
}

// autoSend dispara o template com AutoSend do curso. Falhas só vão pro log.
func (uc *ManageLeadsUseCase) autoSend(ctx context.Context, lead *entity.Lead) {
	if uc.Mailer == nil || uc.Templates == nil {
		return
	}
	templates, err := uc.Templates.List(ctx)
	if err != nil {
		uc.Logger.Warn("erro ao carregar templates para auto-envio", "error", err)
		return
	}
	tpl := FindBestTemplate(*lead, templates)
	if tpl == nil || !tpl.AutoSend {
		return
	}

	subject := RenderMessage(tpl.Subject, *lead)
	body := RenderMessage(tpl.Body, *lead)
	if tpl.AttachmentLink != "" {
		body += "\n\nTemario: " + tpl.AttachmentLink
	}

	if err := uc.Mailer.SendTemplate(lead.Email, subject, body); err != nil {
		uc.Logger.Warn("falha no auto-envio de email", "lead_id", lead.ID, "template", tpl.CourseName, "error", err)
		return
	}
	if err := uc.MarkEmailSent(ctx, lead.ID); err != nil {
		uc.Logger.Warn("email enviado mas não marcado", "lead_id", lead.ID, "error", err)
		return
	}
	lead.EmailSent = true
}

func (uc *ManageLeadsUseCase) List(ctx context.Context, filter LeadFilter) ([]entity.Lead, error) {
	leads, err := uc.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Now.IsZero() {
		filter.Now = uc.Now()
	}
	return FilterLeads(leads, filter), nil
}

func (uc *ManageLeadsUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := uc.Store.FindByID(ctx, id)
	if err != nil {
		return nil, mapLeadError(err)
	}
	return lead, nil
}

func (uc *ManageLeadsUseCase) ChangeStatus(ctx context.Context, id, raw string) error {
	status, err := entity.ParseWorkflowStatus(raw)
	if err != nil || strings.TrimSpace(raw) == "" {
		return &DomainError{Code: CodeValidation, Message: "status inválido: " + raw}
	}
	return uc.update(ctx, id, entity.LeadPatch{Status: &status})
}

// ToggleContacted alterna contactado <-> pendiente, como o badge do painel.
func (uc *ManageLeadsUseCase) ToggleContacted(ctx context.Context, id string) (entity.WorkflowStatus, error) {
	lead, err := uc.Get(ctx, id)
	if err != nil {
		return "", err
	}
	next := entity.StatusContacted
	if lead.Status == entity.StatusContacted {
		next = entity.StatusPending
	}
	if err := uc.update(ctx, id, entity.LeadPatch{Status: &next}); err != nil {
		return "", err
	}
	return next, nil
}

func (uc *ManageLeadsUseCase) SaveNote(ctx context.Context, id, text string) error {
	return uc.update(ctx, id, entity.LeadPatch{Notes: &text})
}

func (uc *ManageLeadsUseCase) MoveToTrash(ctx context.Context, id string) error {
	status := entity.StatusTrashed
	return uc.update(ctx, id, entity.LeadPatch{Status: &status})
}

func (uc *ManageLeadsUseCase) Restore(ctx context.Context, id string) error {
	status := entity.StatusPending
	return uc.update(ctx, id, entity.LeadPatch{Status: &status})
}

// DeletePermanent só apaga lead que já está na lixeira.
func (uc *ManageLeadsUseCase) DeletePermanent(ctx context.Context, id string) error {
	lead, err := uc.Get(ctx, id)
	if err != nil {
		return err
	}
	if !lead.IsTrashed() {
		return &DomainError{Code: CodeNotInTrash, Message: "el lead debe estar en la papelera antes de eliminarse"}
	}
	if err := uc.Store.Delete(ctx, id); err != nil {
		return mapLeadError(err)
	}
	uc.Logger.Info("lead eliminado definitivamente", "lead_id", id)
	return nil
}

func (uc *ManageLeadsUseCase) MarkEmailSent(ctx context.Context, id string) error {
	sent := true
	return uc.update(ctx, id, entity.LeadPatch{EmailSent: &sent})
}

func (uc *ManageLeadsUseCase) update(ctx context.Context, id string, patch entity.LeadPatch) error {
	if err := uc.Store.Update(ctx, id, patch); err != nil {
		return mapLeadError(err)
	}
	return nil
}

func mapLeadError(err error) error {
	if errors.Is(err, entity.ErrLeadNotFound) {
		return &DomainError{Code: CodeLeadNotFound, Message: "lead no encontrado"}
	}
	return err
}

// FilterLeads aplica lixeira, busca livre, curso e janela de data.
func FilterLeads(leads []entity.Lead, f LeadFilter) []entity.Lead {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	course := strings.ToLower(strings.TrimSpace(f.Course))
	if course == "all" {
		course = ""
	}
	maxDays := dateWindowDays(f.Date)

	out := []entity.Lead{}
	for _, lead := range leads {
		if lead.IsTrashed() != f.Trash {
			continue
		}
		if search != "" && !matchesSearch(lead, search) {
			continue
		}
		if course != "" && !strings.Contains(strings.ToLower(strings.Join(lead.Interests, " ")), course) {
			continue
		}
		if maxDays > 0 && !lead.CreatedAt.IsZero() {
			days := math.Ceil(math.Abs(f.Now.Sub(lead.CreatedAt).Hours()) / 24)
			if days > float64(maxDays) {
				continue
			}
		}
		out = append(out, lead)
	}
	return out
}

func matchesSearch(lead entity.Lead, search string) bool {
	return strings.Contains(strings.ToLower(lead.Name), search) ||
		strings.Contains(strings.ToLower(lead.Email), search) ||
		strings.Contains(strings.ToLower(lead.Company), search)
}

func dateWindowDays(window string) int {
	switch strings.ToLower(window) {
	case "today":
		return 1
	case "week":
		return 7
	case "month":
		return 30
	}
	return 0
}
