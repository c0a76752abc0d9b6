package services

import (
	"context"
	"errors"
	"fmt"

	"karmafeed/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type LikeStatus string

const (
	StatusLiked        LikeStatus = "liked"
	StatusAlreadyLiked LikeStatus = "already_liked"
	StatusUnliked      LikeStatus = "unliked"
	StatusNotLiked     LikeStatus = "not_liked"
)

// LikeResult is returned by Like and Unlike. LikeCount is always read from the ledger.
type LikeResult struct {
	Status    LikeStatus `json:"status"`
	LikeID    uint       `json:"like_id,omitempty"`
	LikeCount int64      `json:"like_count"`
	Karma     int        `json:"karma_value,omitempty"`
}

// LikeService owns the like ledger.
type LikeService struct {
	db  *gorm.DB
	log zerolog.Logger
	now Clock
}

func NewLikeService(db *gorm.DB, log zerolog.Logger, now Clock) *LikeService {
	return &LikeService{
		db:  db,
		log: log.With().Str("component", "likes").Logger(),
		now: now,
	}
}

// targetModel is the table holding the denormalized like_count for target.
func targetModel(target models.LikeTarget) interface{} {
	if target.IsPost() {
		return &models.Post{}
	}
	return &models.Comment{}
}

// bumpLikeCount adjusts the display counter; zero rows means the target is gone.
func bumpLikeCount(tx *gorm.DB, target models.LikeTarget, delta int) error {
	res := tx.Model(targetModel(target)).
		Where("id = ?", target.ID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func countLikes(tx *gorm.DB, target models.LikeTarget) (int64, error) {
	var count int64
	err := tx.Model(&models.Like{}).Where(target.Column()+" = ?", target.ID).Count(&count).Error
	return count, err
}

// Like appends a ledger row for (user, target). The counter update, the insert and
// the count run in one transaction; a duplicate is caught by the unique index, so
// concurrent double-likes by one user yield exactly one success.
func (s *LikeService) Like(ctx context.Context, userID uint, target models.LikeTarget) (LikeResult, error) {
	like := models.NewLike(userID, target, s.now())
	var count int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpLikeCount(tx, target, 1); err != nil {
			return err
		}
		if err := tx.Create(&like).Error; err != nil {
			return err
		}
		var err error
		count, err = countLikes(tx, target)
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
		return LikeResult{}, fmt.Errorf("like %s: %w", target, ErrNotFound)
	case isUniqueViolation(err):
		count, cerr := s.LikeCount(ctx, target)
		if cerr != nil {
			return LikeResult{}, cerr
		}
		return LikeResult{Status: StatusAlreadyLiked, LikeCount: count}, ErrAlreadyLiked
	default:
		return LikeResult{}, fmt.Errorf("like %s: %w", target, err)
	}

	s.log.Debug().
		Uint("user_id", userID).
		Str("target", target.String()).
		Int64("like_count", count).
		Msg("Like recorded")

	return LikeResult{
		Status:    StatusLiked,
		LikeID:    like.ID,
		LikeCount: count,
		Karma:     PointsFor(target),
	}, nil
}

// Unlike removes the (user, target) row if present. Absence is not an error.
func (s *LikeService) Unlike(ctx context.Context, userID uint, target models.LikeTarget) (LikeResult, error) {
	result := LikeResult{Status: StatusNotLiked}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the target row before touching the ledger, in the same order as
		// Like. The reverse order deadlocks against a concurrent Like whose insert
		// waits on our deleted row. The zero-delta bump is also the existence check.
		if err := bumpLikeCount(tx, target, 0); err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND "+target.Column()+" = ?", userID, target.ID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			result.Status = StatusUnliked
			if err := bumpLikeCount(tx, target, -int(res.RowsAffected)); err != nil {
				return err
			}
		}

		var err error
		result.LikeCount, err = countLikes(tx, target)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return LikeResult{}, fmt.Errorf("unlike %s: %w", target, ErrNotFound)
	}
	if err != nil {
		return LikeResult{}, fmt.Errorf("unlike %s: %w", target, err)
	}
	return result, nil
}

// IsLikedBy reports whether userID has a ledger row on target.
func (s *LikeService) IsLikedBy(ctx context.Context, userID uint, target models.LikeTarget) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND "+target.Column()+" = ?", userID, target.ID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LikeCount counts ledger rows for target.
func (s *LikeService) LikeCount(ctx context.Context, target models.LikeTarget) (int64, error) {
	return countLikes(s.db.WithContext(ctx), target)
}

// LikedPostIDs returns the subset of postIDs liked by userID, in one query.
func (s *LikeService) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if userID == 0 || len(postIDs) == 0 {
		return liked, nil
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
