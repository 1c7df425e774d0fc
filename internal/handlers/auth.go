package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/sernion/mark-backend/internal/middleware"
	"github.com/sernion/mark-backend/internal/models"
	"github.com/sernion/mark-backend/internal/services"
	"github.com/sernion/mark-backend/internal/store"
	"github.com/sernion/mark-backend/pkg/clientip"
	"github.com/sernion/mark-backend/pkg/utils"
)

// UserFinder looks accounts up for the password-reset request flow.
type UserFinder interface {
	ByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthHandler serves registration, login/logout, token verification, and
// password reset.
type AuthHandler struct {
	auth        *services.Auth
	reset       *services.PasswordReset
	sessions    services.TokenIssuer
	users       UserFinder
	mailer      services.Mailer
	frontendURL string
}

func NewAuthHandler(auth *services.Auth, reset *services.PasswordReset, sessions services.TokenIssuer, users UserFinder, mailer services.Mailer, frontendURL string) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		reset:       reset,
		sessions:    sessions,
		users:       users,
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FullName        string `json:"full_name,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

// Register handles POST /auth/register/.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if err := utils.ValidateUsername(req.Username); err != nil {
		errs["username"] = err.Error()
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		errs["email"] = err.Error()
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		errs["password"] = err.Error()
	}
	if req.Password != req.PasswordConfirm {
		errs["password_confirm"] = "Passwords don't match"
	}
	if err := utils.ValidatePhoneNumber(req.PhoneNumber); err != nil {
		errs["phone_number"] = err.Error()
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	user, token, err := h.auth.Register(r.Context(), services.RegisterParams{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
	}, clientip.FromRequest(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateUsername):
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"username": "Username already exists"})
		case errors.Is(err, store.ErrDuplicateEmail):
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"email": "Email already exists"})
		default:
			log.Printf("register failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"user":    userPayload(user),
		"token":   token,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login/. The username field also accepts the
// account email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{
			"non_field_errors": "Must include username and password",
		})
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Username, req.Password,
		clientip.FromRequest(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials),
			errors.Is(err, services.ErrAccountLocked),
			errors.Is(err, services.ErrAccountDisabled):
			writeFieldErrors(w, http.StatusUnauthorized, map[string]string{
				"non_field_errors": err.Error(),
			})
		default:
			log.Printf("login failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"user":    userPayload(user),
		"token":   token,
	})
}

// Logout handles POST /auth/logout/. Requires a bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		log.Printf("logout failed for %s: %v", user.ID, err)
		writeError(w, http.StatusBadRequest, "Logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout successful",
	})
}

// Verify handles GET /auth/verify/. Requires a bearer token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Token is valid",
		"user":    userPayload(user),
	})
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// The response for an unknown email is identical to the success response so
// the endpoint cannot be used to probe which addresses are registered.
const resetRequestedMessage = "If an account exists with this email, a password reset link has been sent"

// PasswordResetRequest handles POST /auth/password-reset/.
func (h *AuthHandler) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := utils.ValidateEmail(req.Email); err != nil {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{"email": err.Error()})
		return
	}

	user, err := h.users.ByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": resetRequestedMessage})
			return
		}
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !user.IsActive {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": resetRequestedMessage})
		return
	}

	token, err := h.reset.Issue(r.Context(), user)
	if err != nil {
		log.Printf("reset token issue failed for %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to create reset token")
		return
	}

	resetURL := h.frontendURL + "/reset-password?token=" + token.Token
	if err := h.mailer.SendPasswordReset(user.Email, resetURL); err != nil {
		log.Printf("reset email to %s failed: %v", user.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to send password reset email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": resetRequestedMessage})
}

type passwordResetConfirmRequest struct {
	Token              string `json:"token"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// PasswordResetConfirm handles POST /auth/password-reset/confirm/.
func (h *AuthHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	errs := map[string]string{}
	if req.Token == "" {
		errs["token"] = "Token is required"
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		errs["new_password"] = err.Error()
	}
	if req.NewPassword != req.NewPasswordConfirm {
		errs["new_password_confirm"] = "Passwords don't match"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}

	userID, err := h.reset.Consume(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, services.ErrResetTokenInvalid) {
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		log.Printf("reset confirm failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	// The password changed out-of-band; force a fresh login.
	if err := h.sessions.Revoke(r.Context(), userID); err != nil {
		log.Printf("revoking session for %s after reset failed: %v", userID, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successfully",
	})
}
