package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/services"
	"github.com/sernion/mark-backend/internal/store"
	"github.com/sernion/mark-backend/pkg/utils"
)

// maxAvatarSize caps avatar uploads at 5 MB.
const maxAvatarSize = 5 << 20

// ProfileUserStore is the credential-store slice the profile endpoints need.
type ProfileUserStore interface {
	Update(ctx context.Context, u *models.User) error
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	EmailInUse(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
}

// ProfileStore manages the 1:1 preference rows.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Update(ctx context.Context, p *models.UserProfile) error
}

// ProfileHandler serves profile read/update, password change, and avatar
// upload.
type ProfileHandler struct {
	users    ProfileUserStore
	profiles ProfileStore
	sessions services.TokenIssuer
	uploads  *services.Uploads // nil when Cloudinary is not configured
}

func NewProfileHandler(users ProfileUserStore, profiles ProfileStore, sessions services.TokenIssuer, uploads *services.Uploads) *ProfileHandler {
	return &ProfileHandler{users: users, profiles: profiles, sessions: sessions, uploads: uploads}
}

func profilePayload(u *models.User, p *models.UserProfile) map[string]any {
	return map[string]any{
		"username":            u.Username,
		"email":               u.Email,
		"full_name":           u.DisplayName(),
		"phone_number":        u.PhoneNumber,
		"bio":                 u.Bio,
		"avatar_url":          u.AvatarURL,
		"company":             p.Company,
		"job_title":           p.JobTitle,
		"website":             p.Website,
		"preferred_language":  p.PreferredLanguage,
		"timezone":            p.Timezone,
		"email_notifications": p.EmailNotifications,
		"push_notifications":  p.PushNotifications,
		"profile_visibility":  p.ProfileVisibility,
	}
}

// Get handles GET /user/profile/. The profile row is created on first
// access.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	profile, err := h.profiles.GetOrCreate(r.Context(), user.ID)
	if err != nil {
		log.Printf("profile load failed for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"profile": profilePayload(user, profile),
	})
}

type profileUpdateRequest struct {
	Email       *string `json:"email"`
	FullName    *string `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
	Bio         *string `json:"bio"`

	Company           *string `json:"company"`
	JobTitle          *string `json:"job_title"`
	Website           *string `json:"website"`
	PreferredLanguage *string `json:"preferred_language"`
	Timezone          *string `json:"timezone"`

	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
	ProfileVisibility  *string `json:"profile_visibility"`
}

// Update handles PUT /user/profile/. All fields are optional; absent fields
// are left unchanged.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req profileUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if req.Email != nil {
		if err := utils.ValidateEmail(*req.Email); err != nil {
			errs["email"] = err.Error()
		} else {
			taken, err := h.users.EmailInUse(r.Context(), *req.Email, user.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Database error")
				return
			}
			if taken {
				errs["email"] = "Email already exists"
			}
		}
	}
	if req.PhoneNumber != nil {
		if err := utils.ValidatePhoneNumber(*req.PhoneNumber); err != nil {
			errs["phone_number"] = err.Error()
		}
	}
	if req.ProfileVisibility != nil && !models.ValidVisibility(*req.ProfileVisibility) {
		errs["profile_visibility"] = "Invalid profile visibility"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	profile, err := h.profiles.GetOrCreate(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Email != nil {
		user.Email = utils.NormalizeEmail(*req.Email)
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if req.Company != nil {
		profile.Company = *req.Company
	}
	if req.JobTitle != nil {
		profile.JobTitle = *req.JobTitle
	}
	if req.Website != nil {
		profile.Website = *req.Website
	}
	if req.PreferredLanguage != nil {
		profile.PreferredLanguage = *req.PreferredLanguage
	}
	if req.Timezone != nil {
		profile.Timezone = *req.Timezone
	}
	if req.EmailNotifications != nil {
		profile.EmailNotifications = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		profile.PushNotifications = *req.PushNotifications
	}
	if req.ProfileVisibility != nil {
		profile.ProfileVisibility = *req.ProfileVisibility
	}

	if err := h.users.Update(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"email": "Email already exists"})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	if err := h.profiles.Update(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated successfully",
		"profile": profilePayload(user, profile),
	})
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// ChangePassword handles POST /user/change-password/. The bearer token is
// revoked afterwards so stolen tokens die with the old password.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	ok, err := utils.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		errs["current_password"] = "Current password is incorrect"
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		errs["new_password"] = err.Error()
	}
	if req.NewPassword != req.NewPasswordConfirm {
		errs["new_password_confirm"] = "New passwords don't match"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	if err := h.users.SetPasswordHash(r.Context(), user.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}
	if err := h.sessions.Revoke(r.Context(), user.ID); err != nil {
		log.Printf("revoking session for %s after password change failed: %v", user.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully",
	})
}

// UploadAvatar handles POST /user/avatar/ with a multipart "avatar" file.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	if h.uploads == nil {
		writeError(w, http.StatusInternalServerError, "File upload service not available")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	headers := r.MultipartForm.File["avatar"]
	if len(headers) == 0 {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{"avatar": "Avatar file is required"})
		return
	}

	url, err := h.uploads.UploadAvatar(r.Context(), headers[0])
	if err != nil {
		log.Printf("avatar upload failed for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to upload avatar")
		return
	}

	user.AvatarURL = url
	if err := h.users.Update(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Avatar uploaded successfully",
		"avatar_url": url,
	})
}
