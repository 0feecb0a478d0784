package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/programbi/crm-leads/internal/entity"
)

type ManageTemplatesUseCase struct {
	Repo entity.TemplateRepositoryInterface
	Now  func() time.Time
}

func NewManageTemplatesUseCase(repo entity.TemplateRepositoryInterface) *ManageTemplatesUseCase {
	return &ManageTemplatesUseCase{Repo: repo, Now: time.Now}
}

func (uc *ManageTemplatesUseCase) List(ctx context.Context) ([]entity.Template, error) {
	return uc.Repo.List(ctx)
}

// Save cria quando não há ID e atualiza quando há.
func (uc *ManageTemplatesUseCase) Save(ctx context.Context, input SaveTemplateInput) (*entity.Template, error) {
	if errs := ValidateSaveTemplateInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	tpl := &entity.Template{
		ID:             strings.TrimSpace(input.ID),
		CourseName:     strings.TrimSpace(input.CourseName),
		Subject:        strings.TrimSpace(input.Subject),
		Body:           input.Body,
		AttachmentLink: strings.TrimSpace(input.AttachmentLink),
		AutoSend:       input.AutoSend,
		UpdatedAt:      uc.Now(),
	}

	var err error
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
		err = uc.Repo.Create(ctx, tpl)
	} else {
		err = uc.Repo.Update(ctx, tpl)
	}
	if err != nil {
		return nil, mapTemplateError(err)
	}
	return tpl, nil
}

func (uc *ManageTemplatesUseCase) Delete(ctx context.Context, id string) error {
	return mapTemplateError(uc.Repo.Delete(ctx, id))
}

func mapTemplateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entity.ErrTemplateNotFound):
		return &DomainError{Code: CodeTemplateNotFound, Message: "plantilla no encontrada"}
	case errors.Is(err, entity.ErrTemplateExists):
		return &DomainError{Code: CodeTemplateExists, Message: "ya existe una plantilla para este curso"}
	}
	return err
}
