package services

import "karmafeed/internal/models"

// Karma awarded to the content author per like.
const (
	PointsPostLiked    = 5
	PointsCommentLiked = 1
)

// PointsFor is the karma a like on target is worth.
func PointsFor(target models.LikeTarget) int {
	if target.IsPost() {
		return PointsPostLiked
	}
	return PointsCommentLiked
}
