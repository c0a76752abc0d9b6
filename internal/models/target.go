package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTarget is returned when a like names neither or both of post/comment.
var ErrInvalidTarget = errors.New("like target must be exactly one of post or comment")

type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// LikeTarget is the single entity a like applies to.
type LikeTarget struct {
	Kind TargetKind
	ID   uint
}

func PostTarget(id uint) LikeTarget    { return LikeTarget{Kind: TargetPost, ID: id} }
func CommentTarget(id uint) LikeTarget { return LikeTarget{Kind: TargetComment, ID: id} }

// ParseTarget accepts "post"/"posts" and "comment"/"comments".
func ParseTarget(kind string, id uint) (LikeTarget, error) {
	if id == 0 {
		return LikeTarget{}, fmt.Errorf("%w: missing id", ErrInvalidTarget)
	}
	switch kind {
	case "post", "posts":
		return PostTarget(id), nil
	case "comment", "comments":
		return CommentTarget(id), nil
	}
	return LikeTarget{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, kind)
}

func (t LikeTarget) IsPost() bool { return t.Kind == TargetPost }

// Column is the ledger column holding this target's id.
func (t LikeTarget) Column() string {
	if t.Kind == TargetPost {
		return "post_id"
	}
	return "comment_id"
}

func (t LikeTarget) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}
