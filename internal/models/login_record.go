package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LoginRecord is one append-only audit entry per authentication attempt.
// Records are write-once; the application never updates or deletes them.
type LoginRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	IPAddress  string             `bson:"ip_address" json:"ip_address"`
	UserAgent  string             `bson:"user_agent" json:"user_agent"`
	Successful bool               `bson:"successful" json:"successful"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
