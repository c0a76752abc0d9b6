package services

import (
	"html/template"
	"time"

	"karmafeed/internal/config"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Clock supplies "now" to every write and to the leaderboard window.
type Clock func() time.Time

// UTCNow is the production clock.
func UTCNow() time.Time { return time.Now().UTC() }

// Services bundles the feed engine for the HTTP layer.
type Services struct {
	Likes       *LikeService
	Comments    *CommentService
	Leaderboard *LeaderboardService
	Posts       *PostService
	Users       *UserService
}

// New wires every service over one database handle. render turns raw content
// into display HTML and may be nil.
func New(db *gorm.DB, cfg config.FeedConfig, log zerolog.Logger, now Clock, render func(string) template.HTML) *Services {
	if now == nil {
		now = UTCNow
	}

	likes := NewLikeService(db, log, now)
	comments := NewCommentService(db, log, now, render)
	leaderboard := NewLeaderboardService(db, log, now, cfg.LeaderboardWindow, cfg.LeaderboardLimit)

	return &Services{
		Likes:       likes,
		Comments:    comments,
		Leaderboard: leaderboard,
		Posts:       NewPostService(db, log, now, likes, comments, render, cfg.PageSize, cfg.HotCandidates),
		Users:       NewUserService(db, log, now, leaderboard),
	}
}
