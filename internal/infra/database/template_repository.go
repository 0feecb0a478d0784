package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/programbi/crm-leads/internal/entity"
)

type TemplateRepository struct {
	DB *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{DB: db}
}

func (r *TemplateRepository) List(ctx context.Context) ([]entity.Template, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, course_name, subject, body, pdf_link, auto_send, updated_at
		FROM templates
		ORDER BY course_name
	`)
	if err != nil {
		return nil, &entity.StoreError{Op: "list templates", Err: err}
	}
	defer rows.Close()

	out := []entity.Template{}
	for rows.Next() {
		var t entity.Template
		if err := rows.Scan(&t.ID, &t.CourseName, &t.Subject, &t.Body, &t.AttachmentLink, &t.AutoSend, &t.UpdatedAt); err != nil {
			return nil, &entity.StoreError{Op: "list templates", Err: err}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*entity.Template, error) {
	var t entity.Template
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, course_name, subject, body, pdf_link, auto_send, updated_at
		FROM templates WHERE id = $1
	`, id).Scan(&t.ID, &t.CourseName, &t.Subject, &t.Body, &t.AttachmentLink, &t.AutoSend, &t.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrTemplateNotFound
	}
	if err != nil {
		return nil, &entity.StoreError{Op: "find template", ID: id, Err: err}
	}
	return &t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *entity.Template) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO templates (id, course_name, subject, body, pdf_link, auto_send, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.CourseName, t.Subject, t.Body, t.AttachmentLink, t.AutoSend, t.UpdatedAt)

	return mapTemplateError("create template", t.ID, err)
}

func (r *TemplateRepository) Update(ctx context.Context, t *entity.Template) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE templates
		SET course_name = $2, subject = $3, body = $4, pdf_link = $5, auto_send = $6, updated_at = $7
		WHERE id = $1
	`, t.ID, t.CourseName, t.Subject, t.Body, t.AttachmentLink, t.AutoSend, t.UpdatedAt)
	if err != nil {
		return mapTemplateError("update template", t.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrTemplateNotFound
	}
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return &entity.StoreError{Op: "delete template", ID: id, Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrTemplateNotFound
	}
	return nil
}

// 23505 = unique_violation em lower(course_name)
func mapTemplateError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return entity.ErrTemplateExists
	}
	return &entity.StoreError{Op: op, ID: id, Err: err}
}
