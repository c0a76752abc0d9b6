package services

import (
	"context"
	"html/template"
	"testing"
	"time"

	"karmafeed/internal/config"
	"karmafeed/internal/db/dbtest"
	"karmafeed/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var ctx = context.Background()

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	db    *gorm.DB
	clock *testClock
	svc   *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := dbtest.New(t)
	clock := &testClock{now: baseTime}
	cfg := config.FeedConfig{
		LeaderboardWindow: 24 * time.Hour,
		LeaderboardLimit:  5,
		PageSize:          3,
		HotCandidates:     50,
	}
	render := func(s string) template.HTML { return template.HTML("<p>" + template.HTMLEscapeString(s) + "</p>") }

	return &testEnv{
		db:    gdb,
		clock: clock,
		svc:   New(gdb, cfg, zerolog.Nop(), clock.Now, render),
	}
}

func (e *testEnv) user(t *testing.T, name string) models.User {
	t.Helper()
	u := models.User{Username: name, Password: "x", CreatedAt: e.clock.Now()}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return u
}

func (e *testEnv) post(t *testing.T, author models.User, content string) *models.Post {
	t.Helper()
	p, err := e.svc.Posts.Create(ctx, author.ID, content)
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return p
}

func (e *testEnv) comment(t *testing.T, postID uint, author models.User, content string, parentID *uint) *models.Comment {
	t.Helper()
	c, err := e.svc.Comments.Create(ctx, postID, author.ID, content, parentID)
	if err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}
	return c
}

func (e *testEnv) like(t *testing.T, liker models.User, target models.LikeTarget) {
	t.Helper()
	if _, err := e.svc.Likes.Like(ctx, liker.ID, target); err != nil {
		t.Fatalf("Failed to like %s: %v", target, err)
	}
}

func uintPtr(v uint) *uint { return &v }
