package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens the PostgreSQL pool and bootstraps the schema.
func ConnectPostgres(postgresURI string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		return nil, err
	}

	log.Println("Connected to PostgreSQL")

	if err = initPostgresTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

// initPostgresTables creates all necessary tables if they don't exist.
func initPostgresTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			username VARCHAR(20) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			full_name VARCHAR(150) NOT NULL DEFAULT '',
			phone_number VARCHAR(17) NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			email_verified_at TIMESTAMPTZ,
			failed_login_attempts INTEGER NOT NULL DEFAULT 0,
			locked_until TIMESTAMPTZ,
			last_login_at TIMESTAMPTZ,
			CONSTRAINT users_username_key UNIQUE (username),
			CONSTRAINT users_email_key UNIQUE (email)
		)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			company VARCHAR(100) NOT NULL DEFAULT '',
			job_title VARCHAR(100) NOT NULL DEFAULT '',
			website VARCHAR(255) NOT NULL DEFAULT '',
			preferred_language VARCHAR(10) NOT NULL DEFAULT 'en',
			timezone VARCHAR(50) NOT NULL DEFAULT 'UTC',
			email_notifications BOOLEAN NOT NULL DEFAULT TRUE,
			push_notifications BOOLEAN NOT NULL DEFAULT TRUE,
			profile_visibility VARCHAR(20) NOT NULL DEFAULT 'public'
		)`,

		// One reset token per user; re-requests overwrite in place.
		`CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token VARCHAR(64) NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT password_reset_tokens_user_key UNIQUE (user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			name VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			project_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'draft',
			owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			allow_anonymous_annotations BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS project_collaborators (
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role VARCHAR(20) NOT NULL DEFAULT 'annotator',
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (project_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS datasets (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			name VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			file_path VARCHAR(500) NOT NULL,
			file_size BIGINT NOT NULL DEFAULT 0,
			file_type VARCHAR(50) NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			is_processed BOOLEAN NOT NULL DEFAULT FALSE,
			processing_status VARCHAR(50) NOT NULL DEFAULT 'pending'
		)`,

		`CREATE TABLE IF NOT EXISTS annotations (
			id UUID PRIMARY KEY,
			dataset_id UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			annotator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			annotation_type VARCHAR(20) NOT NULL,
			content JSONB NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verified_by UUID REFERENCES users(id) ON DELETE SET NULL,
			verified_at TIMESTAMPTZ,
			CONSTRAINT annotations_dataset_annotator_type_key UNIQUE (dataset_id, annotator_id, annotation_type)
		)`,

		`CREATE TABLE IF NOT EXISTS annotation_templates (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			name VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			schema JSONB NOT NULL,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			is_required BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS project_invitations (
			id UUID PRIMARY KEY,
			project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			inviter_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			invitee_email VARCHAR(255) NOT NULL,
			invitee_id UUID REFERENCES users(id) ON DELETE SET NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'annotator',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			token VARCHAR(64) NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username))`,
		`CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email))`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_token ON password_reset_tokens(token)`,
		`CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expires_at ON password_reset_tokens(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_updated_at ON projects(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_project_collaborators_user_id ON project_collaborators(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_project_id ON datasets(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_dataset_id ON annotations(dataset_id)`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_annotator_id ON annotations(annotator_id)`,
		`CREATE INDEX IF NOT EXISTS idx_annotation_templates_project_id ON annotation_templates(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_project_invitations_project_id ON project_invitations(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_project_invitations_invitee_email ON project_invitations(invitee_email)`,
		`CREATE INDEX IF NOT EXISTS idx_project_invitations_token ON project_invitations(token)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	log.Println("PostgreSQL tables initialized")
	return nil
}
