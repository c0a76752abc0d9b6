package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewTokenStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create token store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestIssueAndLookup(t *testing.T) {
	store, s := setupTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 42)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(token) != 2*tokenBytes {
		t.Errorf("expected %d hex chars, got %d", 2*tokenBytes, len(token))
	}

	userID, err := store.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if userID != 42 {
		t.Errorf("expected user 42, got %d", userID)
	}

	// Only the hash is stored.
	if s.Exists("token:" + token) {
		t.Error("plaintext token must not be a key")
	}
	if !s.Exists("token:" + HashToken(token)) {
		t.Error("expected hashed key to exist")
	}
	if ttl := s.TTL("token:" + HashToken(token)); ttl != time.Hour {
		t.Errorf("expected 1h TTL, got %v", ttl)
	}
}

func TestLookupExpiredToken(t *testing.T) {
	store, s := setupTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	s.FastForward(2 * time.Hour)

	if _, err := store.Lookup(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestRevokeToken(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	token, _ := store.Issue(ctx, 7)
	if err := store.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound after revoke, got %v", err)
	}
	if err := store.Revoke(ctx, "never-issued"); err != nil {
		t.Errorf("revoking unknown token should succeed, got %v", err)
	}
}

func TestTokensAreUnique(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	a, _ := store.Issue(ctx, 1)
	b, _ := store.Issue(ctx, 1)
	if a == b {
		t.Error("expected distinct tokens")
	}
}

func TestNewTokenStoreBadURL(t *testing.T) {
	if _, err := NewTokenStore("not a url", time.Hour); err == nil {
		t.Error("expected error for bad url")
	}
}
