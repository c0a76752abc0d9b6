package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"karmafeed/internal/models"
	"karmafeed/internal/utils"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,150}$`)

// Profile is a user's public page.
type Profile struct {
	User         models.User `json:"user"`
	Karma        int         `json:"karma"`
	Karma24h     int         `json:"karma_24h"`
	PostCount    int64       `json:"post_count"`
	CommentCount int64       `json:"comment_count"`
	Level        string      `json:"level"`
	DaysJoined   int         `json:"days_joined"`
}

type UserService struct {
	db          *gorm.DB
	log         zerolog.Logger
	now         Clock
	leaderboard *LeaderboardService
}

func NewUserService(db *gorm.DB, log zerolog.Logger, now Clock, leaderboard *LeaderboardService) *UserService {
	return &UserService{
		db:          db,
		log:         log.With().Str("component", "users").Logger(),
		now:         now,
		leaderboard: leaderboard,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-150 letters, digits or _.-", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:  username,
		Password:  hash,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return &user, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords look the same.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", id, notFound(err))
	}
	return &user, nil
}

// Profile recomputes the user's karma from the ledger, all-time and for the
// leaderboard window.
func (s *UserService) Profile(ctx context.Context, id uint) (*Profile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := s.leaderboard.KarmaFor(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	since := s.now().Add(-s.leaderboard.window)
	recent, err := s.leaderboard.KarmaFor(ctx, id, &since)
	if err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx)
	var posts, comments int64
	if err := tx.Model(&models.Post{}).Where("user_id = ?", id).Count(&posts).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Comment{}).Where("user_id = ?", id).Count(&comments).Error; err != nil {
		return nil, err
	}

	return &Profile{
		User:         *user,
		Karma:        total.Karma,
		Karma24h:     recent.Karma,
		PostCount:    posts,
		CommentCount: comments,
		Level:        utils.KarmaLevel(total.Karma),
		DaysJoined:   utils.DaysSince(user.CreatedAt, s.now()),
	}, nil
}
