package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

const templateColumns = `id, project_id, created_at, updated_at, name, description,
	schema, is_default, is_required`

// Templates is the Postgres-backed store for annotation templates.
type Templates struct {
	db *sql.DB
}

func NewTemplates(db *sql.DB) *Templates {
	return &Templates{db: db}
}

func (s *Templates) Create(ctx context.Context, t *models.AnnotationTemplate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotation_templates (id, project_id, created_at, updated_at,
			name, description, schema, is_default, is_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.ProjectID, t.CreatedAt, t.UpdatedAt,
		t.Name, t.Description, []byte(t.Schema), t.IsDefault, t.IsRequired)
	return err
}

func (s *Templates) ByID(ctx context.Context, id uuid.UUID) (*models.AnnotationTemplate, error) {
	var t models.AnnotationTemplate
	var schema []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM annotation_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt, &t.Name, &t.Description,
		&schema, &t.IsDefault, &t.IsRequired)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Schema = schema
	return &t, nil
}

func (s *Templates) ListForProject(ctx context.Context, projectID uuid.UUID) ([]*models.AnnotationTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM annotation_templates WHERE project_id = $1 ORDER BY name`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.AnnotationTemplate
	for rows.Next() {
		var t models.AnnotationTemplate
		var schema []byte
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt, &t.Name,
			&t.Description, &schema, &t.IsDefault, &t.IsRequired); err != nil {
			return nil, err
		}
		t.Schema = schema
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

func (s *Templates) Update(ctx context.Context, t *models.AnnotationTemplate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE annotation_templates
		SET name = $2, description = $3, schema = $4, is_default = $5,
			is_required = $6, updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.Name, t.Description, []byte(t.Schema), t.IsDefault, t.IsRequired)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Templates) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotation_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
