// Package session stores opaque API tokens in Redis.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned for unknown, expired or revoked tokens.
var ErrTokenNotFound = errors.New("token not found or expired")

const tokenBytes = 32

// TokenData is what we keep per issued token.
type TokenData struct {
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenStore issues API tokens and resolves them to user ids. Only the SHA-256
// of a token is stored; the plaintext leaves the process once, in Issue.
type TokenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewTokenStore connects to redisURL and verifies the connection.
func NewTokenStore(redisURL string, ttl time.Duration) (*TokenStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewTokenStoreWithClient(client, ttl), nil
}

// NewTokenStoreWithClient creates a store from an existing Redis client
func NewTokenStoreWithClient(client *redis.Client, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenStore{
		client: client,
		prefix: "token:",
		ttl:    ttl,
	}
}

// HashToken returns the storage key material for a plaintext token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *TokenStore) key(token string) string {
	return s.prefix + HashToken(token)
}

// Issue creates a new token for userID.
func (s *TokenStore) Issue(ctx context.Context, userID uint) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	data, err := json.Marshal(TokenData{UserID: userID, CreatedAt: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("marshal token data: %w", err)
	}

	if err := s.client.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

// Lookup resolves token to the user id it was issued for.
func (s *TokenStore) Lookup(ctx context.Context, token string) (uint, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup token: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, fmt.Errorf("unmarshal token data: %w", err)
	}
	return data.UserID, nil
}

// Revoke deletes token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *TokenStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *TokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
