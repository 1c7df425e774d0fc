package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sernion/mark-backend/internal/models"
)

// AuditStore is the append-only sink for login history records.
type AuditStore interface {
	Append(ctx context.Context, rec *models.LoginRecord) error
}

// LoginAuditor writes one record per authentication attempt. Writes are
// fire-and-forget: a failing audit write is logged and never fails or blocks
// the login path.
type LoginAuditor struct {
	history AuditStore
	timeout time.Duration
}

func NewLoginAuditor(history AuditStore) *LoginAuditor {
	return &LoginAuditor{history: history, timeout: 5 * time.Second}
}

// Record appends an audit entry asynchronously.
func (a *LoginAuditor) Record(userID uuid.UUID, ip, userAgent string, successful bool) {
	rec := &models.LoginRecord{
		UserID:     userID.String(),
		IPAddress:  ip,
		UserAgent:  userAgent,
		Successful: successful,
		CreatedAt:  time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.history.Append(ctx, rec); err != nil {
			log.Printf("login audit write failed for user %s: %v", rec.UserID, err)
		}
	}()
}
