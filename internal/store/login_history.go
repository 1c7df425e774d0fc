package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sernion/mark-backend/internal/models"
)

const loginHistoryCollection = "login_history"

// LoginHistory is the Mongo-backed append-only audit log of authentication
// attempts.
type LoginHistory struct {
	col *mongo.Collection
}

func NewLoginHistory(db *mongo.Database) *LoginHistory {
	return &LoginHistory{col: db.Collection(loginHistoryCollection)}
}

// EnsureIndexes configures indexes for the login_history collection.
// Called on startup from main after Mongo has connected.
func (s *LoginHistory) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_user_created"),
	})
	return err
}

// Append inserts one audit record. Records are never updated or deleted.
func (s *LoginHistory) Append(ctx context.Context, rec *models.LoginRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, rec)
	return err
}

// RecentForUser returns the newest audit records for a user.
func (s *LoginHistory) RecentForUser(ctx context.Context, userID string, limit int64) ([]models.LoginRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []models.LoginRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
