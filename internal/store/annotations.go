package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

const annotationColumns = `id, dataset_id, annotator_id, created_at, updated_at,
	annotation_type, content, confidence_score, is_verified, verified_by, verified_at`

// Annotations is the Postgres-backed store for annotations.
type Annotations struct {
	db *sql.DB
}

func NewAnnotations(db *sql.DB) *Annotations {
	return &Annotations{db: db}
}

func (s *Annotations) Create(ctx context.Context, a *models.Annotation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotations (id, dataset_id, annotator_id, created_at, updated_at,
			annotation_type, content, confidence_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.DatasetID, a.AnnotatorID, a.CreatedAt, a.UpdatedAt,
		a.AnnotationType, []byte(a.Content), a.ConfidenceScore)
	return constraintErr(err, map[string]error{
		"annotations_dataset_annotator_type_key": ErrDuplicateAnnotation,
	})
}

func (s *Annotations) ByID(ctx context.Context, id uuid.UUID) (*models.Annotation, error) {
	var a models.Annotation
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE id = $1`, id,
	).Scan(&a.ID, &a.DatasetID, &a.AnnotatorID, &a.CreatedAt, &a.UpdatedAt,
		&a.AnnotationType, &content, &a.ConfidenceScore, &a.IsVerified, &a.VerifiedBy, &a.VerifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Content = content
	return &a, nil
}

func (s *Annotations) ListForDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+annotationColumns+` FROM annotations WHERE dataset_id = $1 ORDER BY created_at DESC`,
		datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var annotations []*models.Annotation
	for rows.Next() {
		var a models.Annotation
		var content []byte
		if err := rows.Scan(&a.ID, &a.DatasetID, &a.AnnotatorID, &a.CreatedAt, &a.UpdatedAt,
			&a.AnnotationType, &content, &a.ConfidenceScore, &a.IsVerified, &a.VerifiedBy, &a.VerifiedAt); err != nil {
			return nil, err
		}
		a.Content = content
		annotations = append(annotations, &a)
	}
	return annotations, rows.Err()
}

func (s *Annotations) Update(ctx context.Context, a *models.Annotation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE annotations
		SET content = $2, confidence_score = $3, updated_at = NOW()
		WHERE id = $1
	`, a.ID, []byte(a.Content), a.ConfidenceScore)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// Verify marks the annotation verified by the given user.
func (s *Annotations) Verify(ctx context.Context, id, verifierID uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE annotations
		SET is_verified = TRUE, verified_by = $2, verified_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, verifierID, at)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Annotations) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
