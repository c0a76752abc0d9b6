package services

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"karmafeed/internal/models"
	"karmafeed/internal/utils"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	SortNew = "new"
	SortHot = "hot"
)

// PostView is a post as shown to one viewer.
type PostView struct {
	models.Post
	ContentHTML template.HTML `json:"content_html,omitempty"`
	IsLiked     bool          `json:"is_liked"`
}

// PostPage is one page of the feed.
type PostPage struct {
	Posts   []PostView `json:"posts"`
	Sort    string     `json:"sort"`
	Page    int        `json:"page"`
	HasMore bool       `json:"has_more"`
}

// PostDetail is a post with its full comment forest.
type PostDetail struct {
	Post     PostView       `json:"post"`
	Comments []*CommentNode `json:"comments"`
}

type PostService struct {
	db            *gorm.DB
	log           zerolog.Logger
	now           Clock
	likes         *LikeService
	comments      *CommentService
	render        func(string) template.HTML
	pageSize      int
	hotCandidates int
}

func NewPostService(db *gorm.DB, log zerolog.Logger, now Clock, likes *LikeService, comments *CommentService,
	render func(string) template.HTML, pageSize, hotCandidates int) *PostService {
	if pageSize <= 0 {
		pageSize = 30
	}
	if hotCandidates < pageSize {
		hotCandidates = pageSize * 5
	}
	return &PostService{
		db:            db,
		log:           log.With().Str("component", "posts").Logger(),
		now:           now,
		likes:         likes,
		comments:      comments,
		render:        render,
		pageSize:      pageSize,
		hotCandidates: hotCandidates,
	}
}

// Create stores a new post by authorID.
func (s *PostService) Create(ctx context.Context, authorID uint, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	now := s.now()
	post := models.Post{
		UserID:    authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.log.Info().Uint("post_id", post.ID).Uint("user_id", authorID).Msg("Post created")
	return s.Get(ctx, post.ID)
}

// Get loads a post with its author.
func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Joins("User").First(&post, postID).Error; err != nil {
		return nil, fmt.Errorf("post %d: %w", postID, notFound(err))
	}
	return &post, nil
}

// Delete removes a post authored by userID together with its comments and likes.
func (s *PostService) Delete(ctx context.Context, postID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id", "user_id").First(&post, postID).Error; err != nil {
			return fmt.Errorf("post %d: %w", postID, notFound(err))
		}
		if post.UserID != userID {
			return ErrForbidden
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
}

// List returns one page of posts ordered by sortBy ("new" or "hot").
func (s *PostService) List(ctx context.Context, sortBy string, page int, viewerID uint) (*PostPage, error) {
	if sortBy == "" {
		sortBy = SortNew
	}
	if page < 1 {
		page = 1
	}

	var (
		posts   []models.Post
		hasMore bool
		err     error
	)
	switch sortBy {
	case SortNew:
		posts, hasMore, err = s.listNew(ctx, page)
	case SortHot:
		posts, hasMore, err = s.listHot(ctx, page)
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidInput, sortBy)
	}
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	views, err := s.views(ctx, posts, viewerID)
	if err != nil {
		return nil, err
	}

	return &PostPage{Posts: views, Sort: sortBy, Page: page, HasMore: hasMore}, nil
}

func (s *PostService) listNew(ctx context.Context, page int) ([]models.Post, bool, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).Joins("User").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset((page - 1) * s.pageSize).
		Limit(s.pageSize + 1).
		Find(&posts).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(posts) > s.pageSize
	if hasMore {
		posts = posts[:s.pageSize]
	}
	return posts, hasMore, nil
}

// listHot scores the most recent candidates on read and pages through them.
func (s *PostService) listHot(ctx context.Context, page int) ([]models.Post, bool, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).Joins("User").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(s.hotCandidates).
		Find(&posts).Error
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	scores := make(map[uint]float64, len(posts))
	for _, p := range posts {
		scores[p.ID] = utils.HotScore(p.CreatedAt, p.LikeCount, p.CommentCount, now)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return scores[posts[i].ID] > scores[posts[j].ID]
	})

	start := (page - 1) * s.pageSize
	if start >= len(posts) {
		return []models.Post{}, false, nil
	}
	end := start + s.pageSize
	if end > len(posts) {
		end = len(posts)
	}
	return posts[start:end], end < len(posts), nil
}

// views decorates posts with rendered content and the viewer's like flags,
// using one batched query for the flags.
func (s *PostService) views(ctx context.Context, posts []models.Post, viewerID uint) ([]PostView, error) {
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	liked, err := s.likes.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("load liked posts: %w", err)
	}

	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = s.view(p, liked[p.ID])
	}
	return views, nil
}

func (s *PostService) view(p models.Post, liked bool) PostView {
	v := PostView{Post: p, IsLiked: liked}
	if s.render != nil {
		v.ContentHTML = s.render(p.Content)
	}
	return v
}

// Detail returns the post, the viewer's like flag and the full comment forest.
// The post's like count is read from the ledger.
func (s *PostService) Detail(ctx context.Context, postID, viewerID uint) (*PostDetail, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	target := models.PostTarget(postID)
	count, err := s.likes.LikeCount(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("count post likes: %w", err)
	}
	post.LikeCount = int(count)

	liked, err := s.likes.IsLikedBy(ctx, viewerID, target)
	if err != nil {
		return nil, fmt.Errorf("load viewer like: %w", err)
	}

	forest, err := s.comments.Tree(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}

	return &PostDetail{Post: s.view(*post, liked), Comments: forest}, nil
}
