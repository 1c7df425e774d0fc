package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

const datasetColumns = `id, project_id, created_at, updated_at, name, description,
	file_path, file_size, file_type, metadata, is_processed, processing_status`

// Datasets is the Postgres-backed store for project datasets.
type Datasets struct {
	db *sql.DB
}

func NewDatasets(db *sql.DB) *Datasets {
	return &Datasets{db: db}
}

func (s *Datasets) Create(ctx context.Context, d *models.Dataset) error {
	metadata := d.Metadata
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO datasets (id, project_id, created_at, updated_at, name, description,
			file_path, file_size, file_type, metadata, is_processed, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, d.ID, d.ProjectID, d.CreatedAt, d.UpdatedAt, d.Name, d.Description,
		d.FilePath, d.FileSize, d.FileType, []byte(metadata), d.IsProcessed, d.ProcessingStatus)
	return err
}

func (s *Datasets) ByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	var d models.Dataset
	var metadata []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE id = $1`, id,
	).Scan(&d.ID, &d.ProjectID, &d.CreatedAt, &d.UpdatedAt, &d.Name, &d.Description,
		&d.FilePath, &d.FileSize, &d.FileType, &metadata, &d.IsProcessed, &d.ProcessingStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Metadata = metadata
	return &d, nil
}

func (s *Datasets) ListForProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE project_id = $1 ORDER BY created_at DESC`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		var d models.Dataset
		var metadata []byte
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.CreatedAt, &d.UpdatedAt, &d.Name, &d.Description,
			&d.FilePath, &d.FileSize, &d.FileType, &metadata, &d.IsProcessed, &d.ProcessingStatus); err != nil {
			return nil, err
		}
		d.Metadata = metadata
		datasets = append(datasets, &d)
	}
	return datasets, rows.Err()
}

func (s *Datasets) Update(ctx context.Context, d *models.Dataset) error {
	metadata := d.Metadata
	if len(metadata) == 0 {
		metadata = []byte(`{}`)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE datasets
		SET name = $2, description = $3, metadata = $4, is_processed = $5,
			processing_status = $6, updated_at = NOW()
		WHERE id = $1
	`, d.ID, d.Name, d.Description, []byte(metadata), d.IsProcessed, d.ProcessingStatus)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (s *Datasets) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
