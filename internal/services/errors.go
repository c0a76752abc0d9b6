package services

import (
	"errors"
	"strings"

	"karmafeed/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyLiked    = errors.New("already liked")
	ErrInvalidTarget   = models.ErrInvalidTarget
	ErrInvalidParent   = errors.New("parent comment belongs to a different post")
	ErrUnauthenticated = errors.New("authentication required")
	// ErrDataIntegrity marks orphaned rows met during read-side aggregation.
	// It is logged and skipped, never returned to callers.
	ErrDataIntegrity      = errors.New("data integrity")
	ErrEmptyContent       = errors.New("content required")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username exists")
	ErrInvalidInput       = errors.New("invalid input")
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err came from a unique index, whichever
// driver produced it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
