package entity

import (
	"context"
	"time"
)

// Template de mensagem disparado pelo nome do curso.
type Template struct {
	ID             string    `json:"id"`
	CourseName     string    `json:"courseName"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	AttachmentLink string    `json:"pdfLink"`
	AutoSend       bool      `json:"autoSend"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type TemplateRepositoryInterface interface {
	List(ctx context.Context) ([]Template, error)
	FindByID(ctx context.Context, id string) (*Template, error)
	Create(ctx context.Context, t *Template) error
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id string) error
}
