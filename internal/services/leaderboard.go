package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"karmafeed/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const unknownUsername = "unknown"

// LeaderboardEntry is one ranked author.
type LeaderboardEntry struct {
	UserID       uint   `json:"user_id"`
	Username     string `json:"username"`
	Karma24h     int    `json:"karma_24h"`
	PostLikes    int    `json:"post_likes"`
	CommentLikes int    `json:"comment_likes"`
}

// LedgerRow is a like joined to the author of the content it targets.
type LedgerRow struct {
	LikeID          uint
	PostID          *uint
	CommentID       *uint
	PostAuthorID    *uint
	CommentAuthorID *uint
}

// author resolves who receives the karma for this like.
func (r LedgerRow) author() (uint, models.LikeTarget, bool) {
	switch {
	case r.PostID != nil && r.CommentID == nil:
		if r.PostAuthorID == nil {
			return 0, models.LikeTarget{}, false
		}
		return *r.PostAuthorID, models.PostTarget(*r.PostID), true
	case r.CommentID != nil && r.PostID == nil:
		if r.CommentAuthorID == nil {
			return 0, models.LikeTarget{}, false
		}
		return *r.CommentAuthorID, models.CommentTarget(*r.CommentID), true
	}
	return 0, models.LikeTarget{}, false
}

// KarmaSummary is the karma one user has received, split by target kind.
type KarmaSummary struct {
	Karma        int `json:"karma"`
	PostLikes    int `json:"post_likes"`
	CommentLikes int `json:"comment_likes"`
}

// LeaderboardService ranks authors by karma received inside a trailing window.
// It reads only the like ledger; display counters never feed into it.
type LeaderboardService struct {
	db     *gorm.DB
	log    zerolog.Logger
	now    Clock
	window time.Duration
	limit  int
}

func NewLeaderboardService(db *gorm.DB, log zerolog.Logger, now Clock, window time.Duration, limit int) *LeaderboardService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if limit <= 0 {
		limit = 5
	}
	return &LeaderboardService{
		db:     db,
		log:    log.With().Str("component", "leaderboard").Logger(),
		now:    now,
		window: window,
		limit:  limit,
	}
}

// Top returns the leaderboard for the configured window and size.
func (s *LeaderboardService) Top(ctx context.Context) ([]LeaderboardEntry, error) {
	return s.TopN(ctx, s.window, s.limit)
}

// TopN ranks authors by karma from likes created at or after now-window.
func (s *LeaderboardService) TopN(ctx context.Context, window time.Duration, limit int) ([]LeaderboardEntry, error) {
	since := s.now().Add(-window)

	rows, err := s.ledgerRows(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	entries, skipped := Aggregate(rows)
	for _, likeID := range skipped {
		s.log.Warn().
			Err(ErrDataIntegrity).
			Uint("like_id", likeID).
			Msg("Like has no resolvable author, skipped")
	}

	top := Rank(entries, limit)
	if err := s.resolveUsernames(ctx, top); err != nil {
		return nil, fmt.Errorf("resolve usernames: %w", err)
	}
	return top, nil
}

func (s *LeaderboardService) ledgerRows(ctx context.Context, since time.Time) ([]LedgerRow, error) {
	var rows []LedgerRow
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Select("likes.id AS like_id, likes.post_id, likes.comment_id, "+
			"posts.user_id AS post_author_id, comments.user_id AS comment_author_id").
		Joins("LEFT JOIN posts ON posts.id = likes.post_id").
		Joins("LEFT JOIN comments ON comments.id = likes.comment_id").
		Where("likes.created_at >= ?", since).
		Scan(&rows).Error
	return rows, err
}

// Aggregate folds ledger rows into per-author totals in one pass. Rows whose
// author cannot be resolved are returned as skipped like ids. Output order is
// unspecified; see Rank.
func Aggregate(rows []LedgerRow) (entries []LeaderboardEntry, skipped []uint) {
	byUser := make(map[uint]*LeaderboardEntry)

	for _, row := range rows {
		authorID, target, ok := row.author()
		if !ok {
			skipped = append(skipped, row.LikeID)
			continue
		}

		entry, exists := byUser[authorID]
		if !exists {
			entry = &LeaderboardEntry{UserID: authorID}
			byUser[authorID] = entry
		}
		entry.Karma24h += PointsFor(target)
		if target.IsPost() {
			entry.PostLikes++
		} else {
			entry.CommentLikes++
		}
	}

	entries = make([]LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	return entries, skipped
}

// Rank orders entries by karma descending, then user id ascending, and keeps
// the first limit.
func Rank(entries []LeaderboardEntry, limit int) []LeaderboardEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Karma24h != entries[j].Karma24h {
			return entries[i].Karma24h > entries[j].Karma24h
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func (s *LeaderboardService) resolveUsernames(ctx context.Context, entries []LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return err
	}

	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	for i := range entries {
		name, ok := names[entries[i].UserID]
		if !ok {
			name = unknownUsername
		}
		entries[i].Username = name
	}
	return nil
}

// KarmaFor sums the karma userID has received from the ledger. A nil since
// means all time.
func (s *LeaderboardService) KarmaFor(ctx context.Context, userID uint, since *time.Time) (KarmaSummary, error) {
	var counts struct {
		PostLikes    int
		CommentLikes int
	}

	q := s.db.WithContext(ctx).Model(&models.Like{}).
		Select("COALESCE(SUM(CASE WHEN likes.post_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS post_likes, "+
			"COALESCE(SUM(CASE WHEN likes.comment_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS comment_likes").
		Joins("LEFT JOIN posts ON posts.id = likes.post_id").
		Joins("LEFT JOIN comments ON comments.id = likes.comment_id").
		Where("((likes.post_id IS NOT NULL AND posts.user_id = ?) OR (likes.comment_id IS NOT NULL AND comments.user_id = ?))", userID, userID)
	if since != nil {
		q = q.Where("likes.created_at >= ?", *since)
	}
	if err := q.Scan(&counts).Error; err != nil {
		return KarmaSummary{}, fmt.Errorf("karma for user %d: %w", userID, err)
	}

	return KarmaSummary{
		Karma:        counts.PostLikes*PointsPostLiked + counts.CommentLikes*PointsCommentLiked,
		PostLikes:    counts.PostLikes,
		CommentLikes: counts.CommentLikes,
	}, nil
}
