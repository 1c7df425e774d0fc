package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// tokenKeyPrefix maps token -> user ID.
	tokenKeyPrefix = "authtoken:"
	// userTokenKeyPrefix maps user ID -> token.
	userTokenKeyPrefix = "user_token:"
)

// TokenIssuer issues and validates the opaque bearer tokens presented on
// authenticated requests.
type TokenIssuer interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
	Resolve(ctx context.Context, token string) (uuid.UUID, bool, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

// RedisTokens stores one reusable bearer token per user in Redis. Issue is
// get-or-create: a second login returns the existing token rather than
// rotating it. Tokens have no TTL; they live until logout revokes them.
type RedisTokens struct {
	rdb *redis.Client
}

func NewRedisTokens(rdb *redis.Client) *RedisTokens {
	return &RedisTokens{rdb: rdb}
}

func (s *RedisTokens) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	userKey := userTokenKeyPrefix + userID.String()

	existing, err := s.rdb.Get(ctx, userKey).Result()
	if err == nil && existing != "" {
		return existing, nil
	}
	if err != nil && err != redis.Nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	if err := s.rdb.Set(ctx, tokenKeyPrefix+token, userID.String(), 0).Err(); err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, userKey, token, 0).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisTokens) Resolve(ctx context.Context, token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}

	userIDStr, err := s.rdb.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false, err
	}
	return userID, true, nil
}

func (s *RedisTokens) Revoke(ctx context.Context, userID uuid.UUID) error {
	userKey := userTokenKeyPrefix + userID.String()

	token, err := s.rdb.Get(ctx, userKey).Result()
	if err == nil && token != "" {
		if err := s.rdb.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
			return err
		}
	} else if err != nil && err != redis.Nil {
		return err
	}

	return s.rdb.Del(ctx, userKey).Err()
}
