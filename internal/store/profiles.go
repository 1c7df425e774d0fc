package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

// Profiles is the Postgres-backed store for the 1:1 user preference rows.
type Profiles struct {
	db *sql.DB
}

func NewProfiles(db *sql.DB) *Profiles {
	return &Profiles{db: db}
}

const profileColumns = `user_id, created_at, updated_at, company, job_title, website,
	preferred_language, timezone, email_notifications, push_notifications, profile_visibility`

func (s *Profiles) get(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.CreatedAt, &p.UpdatedAt, &p.Company, &p.JobTitle, &p.Website,
		&p.PreferredLanguage, &p.Timezone, &p.EmailNotifications, &p.PushNotifications,
		&p.ProfileVisibility)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetOrCreate returns the profile for userID, creating a default one on
// first access.
func (s *Profiles) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	p, err := s.get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p = models.NewUserProfile(userID, time.Now().UTC())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, p.UserID, p.CreatedAt)
	if err != nil {
		return nil, err
	}
	// Re-read in case a concurrent request created the row first.
	return s.get(ctx, userID)
}

func (s *Profiles) Update(ctx context.Context, p *models.UserProfile) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET company = $2, job_title = $3, website = $4, preferred_language = $5,
			timezone = $6, email_notifications = $7, push_notifications = $8,
			profile_visibility = $9, updated_at = NOW()
		WHERE user_id = $1
	`, p.UserID, p.Company, p.JobTitle, p.Website, p.PreferredLanguage,
		p.Timezone, p.EmailNotifications, p.PushNotifications, p.ProfileVisibility)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
