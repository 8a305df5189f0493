// Package kv wraps the fast key/value layer (§4.5 C1): UserContext with a
// rolling expiration, pending upload-transcript staging, and an optional
// per-user token blacklist / display-name cache. Modeled on the
// DB-wrapper-struct-plus-zerolog shape used throughout internal/database,
// applied here to github.com/redis/go-redis/v9 instead of pgx.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Store struct {
	client *redis.Client
	log    zerolog.Logger
}

func Connect(ctx context.Context, url string, log zerolog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("kv store connected")
	return &Store{client: client, log: log.With().Str("component", "kv").Logger()}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reports whether the kv store is reachable, for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// UserContext is the ephemeral per-user session info read by C5 when a
// request does not specify a timezone.
type UserContext struct {
	Timezone    string    `json:"timezone"`
	Locale      string    `json:"locale"`
	LastUpdated time.Time `json:"last_updated"`
}

func contextKey(username string) string {
	return "context:" + username
}

// GetUserContext returns nil, nil if no context is cached for this user.
func (s *Store) GetUserContext(ctx context.Context, username string) (*UserContext, error) {
	raw, err := s.client.Get(ctx, contextKey(username)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user context: %w", err)
	}
	var uc UserContext
	if err := json.Unmarshal(raw, &uc); err != nil {
		return nil, fmt.Errorf("decode user context: %w", err)
	}
	return &uc, nil
}

// SetUserContext writes the context with a rolling TTL (default 7 days).
func (s *Store) SetUserContext(ctx context.Context, username string, uc UserContext, ttl time.Duration) error {
	uc.LastUpdated = uc.LastUpdated.UTC()
	raw, err := json.Marshal(uc)
	if err != nil {
		return fmt.Errorf("encode user context: %w", err)
	}
	return s.client.Set(ctx, contextKey(username), raw, ttl).Err()
}

func uploadStagingKey(username string, uploadedAt time.Time, seq int) string {
	return fmt.Sprintf("upload_transcript:%s:%d:%d", username, uploadedAt.Unix(), seq)
}

// StageUploadTranscript parks a short-lived marker for an in-flight upload so
// duplicate notifications within the staging window can be recognized before
// the relational row commits. Default TTL 60s.
func (s *Store) StageUploadTranscript(ctx context.Context, username string, uploadedAt time.Time, seq int, ttl time.Duration) error {
	return s.client.Set(ctx, uploadStagingKey(username, uploadedAt, seq), "1", ttl).Err()
}

// IsUploadStaged reports whether a staging marker is still present.
func (s *Store) IsUploadStaged(ctx context.Context, username string, uploadedAt time.Time, seq int) (bool, error) {
	n, err := s.client.Exists(ctx, uploadStagingKey(username, uploadedAt, seq)).Result()
	if err != nil {
		return false, fmt.Errorf("check upload staging: %w", err)
	}
	return n > 0, nil
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// BlacklistToken marks a token as revoked until its natural expiry.
func (s *Store) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a token has been revoked.
func (s *Store) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}

func displayNameKey(username string) string {
	return "display_name:" + username
}

// CacheDisplayName stores a short-lived display-name cache entry, sparing a
// relational lookup on the hot response-formatting path.
func (s *Store) CacheDisplayName(ctx context.Context, username, displayName string, ttl time.Duration) error {
	return s.client.Set(ctx, displayNameKey(username), displayName, ttl).Err()
}

// DisplayName returns "", nil if nothing is cached.
func (s *Store) DisplayName(ctx context.Context, username string) (string, error) {
	v, err := s.client.Get(ctx, displayNameKey(username)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get display name: %w", err)
	}
	return v, nil
}
