package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project types.
const (
	ProjectTypeAudio = "audio"
	ProjectTypeVideo = "video"
	ProjectTypeImage = "image"
	ProjectTypeText  = "text"
)

// Project statuses.
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusActive    = "active"
	ProjectStatusPaused    = "paused"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Collaborator roles.
const (
	RoleViewer    = "viewer"
	RoleAnnotator = "annotator"
	RoleAdmin     = "admin"
)

// ValidProjectType reports whether t is a known project type.
func ValidProjectType(t string) bool {
	switch t {
	case ProjectTypeAudio, ProjectTypeVideo, ProjectTypeImage, ProjectTypeText:
		return true
	}
	return false
}

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusPaused,
		ProjectStatusCompleted, ProjectStatusArchived:
		return true
	}
	return false
}

// ValidCollaboratorRole reports whether r is a known collaborator role.
func ValidCollaboratorRole(r string) bool {
	switch r {
	case RoleViewer, RoleAnnotator, RoleAdmin:
		return true
	}
	return false
}

// Project is an annotation project owned by a user.
type Project struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectType string `json:"project_type"`
	Status      string `json:"status"`

	OwnerID uuid.UUID `json:"owner_id"`

	IsPublic                  bool `json:"is_public"`
	AllowAnonymousAnnotations bool `json:"allow_anonymous_annotations"`
}

// Dataset is a file belonging to a project.
type Dataset struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`

	Metadata json.RawMessage `json:"metadata,omitempty"`

	IsProcessed      bool   `json:"is_processed"`
	ProcessingStatus string `json:"processing_status"`
}

// Annotation types.
const (
	AnnotationClassification = "classification"
	AnnotationSegmentation   = "segmentation"
	AnnotationBoundingBox    = "bounding_box"
	AnnotationKeypoint       = "keypoint"
	AnnotationTranscription  = "transcription"
	AnnotationTranslation    = "translation"
)

// ValidAnnotationType reports whether t is a known annotation type.
func ValidAnnotationType(t string) bool {
	switch t {
	case AnnotationClassification, AnnotationSegmentation, AnnotationBoundingBox,
		AnnotationKeypoint, AnnotationTranscription, AnnotationTranslation:
		return true
	}
	return false
}

// Annotation is a single labelling of a dataset by an annotator. One
// annotator may have at most one annotation of a given type per dataset.
type Annotation struct {
	ID          uuid.UUID `json:"id"`
	DatasetID   uuid.UUID `json:"dataset_id"`
	AnnotatorID uuid.UUID `json:"annotator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	AnnotationType  string          `json:"annotation_type"`
	Content         json.RawMessage `json:"content"`
	ConfidenceScore float64         `json:"confidence_score"`

	IsVerified bool       `json:"is_verified"`
	VerifiedBy *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// AnnotationTemplate is a JSON schema describing the expected annotation
// structure for a project.
type AnnotationTemplate struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema"`

	IsDefault  bool `json:"is_default"`
	IsRequired bool `json:"is_required"`
}

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
	InvitationExpired  = "expired"
)

// ProjectInvitation invites an email address to collaborate on a project.
type ProjectInvitation struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InviterID    uuid.UUID  `json:"inviter_id"`
	InviteeEmail string     `json:"invitee_email"`
	InviteeID    *uuid.UUID `json:"invitee_id,omitempty"`

	Role   string `json:"role"`
	Status string `json:"status"`

	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the invitation is past its expiry at now.
func (i *ProjectInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
