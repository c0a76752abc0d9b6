package models

import (
	"time"
)

// Like is one row of the like ledger. Exactly one of PostID and CommentID is set;
// the check constraint and the two partial unique indexes are what keep concurrent
// writers honest.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post,where:post_id IS NOT NULL;uniqueIndex:idx_likes_user_comment,where:comment_id IS NOT NULL" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PostID    *uint     `gorm:"index;uniqueIndex:idx_likes_user_post,where:post_id IS NOT NULL;check:,(post_id IS NULL) <> (comment_id IS NULL)" json:"post_id"`
	Post      *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CommentID *uint     `gorm:"index;uniqueIndex:idx_likes_user_comment,where:comment_id IS NOT NULL" json:"comment_id"`
	Comment   *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// NewLike builds a ledger row for the given target.
func NewLike(userID uint, target LikeTarget, at time.Time) Like {
	like := Like{UserID: userID, CreatedAt: at}
	id := target.ID
	switch target.Kind {
	case TargetPost:
		like.PostID = &id
	case TargetComment:
		like.CommentID = &id
	}
	return like
}

// Target folds the two nullable columns back into a LikeTarget.
func (l Like) Target() (LikeTarget, error) {
	switch {
	case l.PostID != nil && l.CommentID == nil:
		return PostTarget(*l.PostID), nil
	case l.CommentID != nil && l.PostID == nil:
		return CommentTarget(*l.CommentID), nil
	}
	return LikeTarget{}, ErrInvalidTarget
}
