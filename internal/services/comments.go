package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"karmafeed/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CommentService owns the comment store and assembles comment forests.
type CommentService struct {
	db     *gorm.DB
	log    zerolog.Logger
	now    Clock
	render func(string) template.HTML
}

func NewCommentService(db *gorm.DB, log zerolog.Logger, now Clock, render func(string) template.HTML) *CommentService {
	return &CommentService{
		db:     db,
		log:    log.With().Str("component", "comments").Logger(),
		now:    now,
		render: render,
	}
}

// Create stores a comment on postID, optionally replying to parentID.
func (s *CommentService) Create(ctx context.Context, postID, authorID uint, content string, parentID *uint) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	comment := models.Comment{
		PostID:    postID,
		UserID:    authorID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The counter bump doubles as the post existence check.
		res := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %d: %w", postID, ErrNotFound)
		}

		if parentID != nil {
			var parent models.Comment
			if err := tx.Select("id", "post_id", "depth").First(&parent, *parentID).Error; err != nil {
				return fmt.Errorf("parent comment %d: %w", *parentID, notFound(err))
			}
			if parent.PostID != postID {
				return ErrInvalidParent
			}
			comment.Depth = parent.Depth + 1
		}

		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("comment_id", comment.ID).Uint("post_id", postID).Uint("user_id", authorID).Msg("Comment created")
	return s.Get(ctx, comment.ID)
}

// Get loads a comment with its author.
func (s *CommentService) Get(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Joins("User").First(&comment, commentID).Error; err != nil {
		return nil, fmt.Errorf("comment %d: %w", commentID, notFound(err))
	}
	return &comment, nil
}

// Update replaces the content of a comment authored by userID.
func (s *CommentService) Update(ctx context.Context, commentID, userID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "user_id").First(&comment, commentID).Error; err != nil {
			return fmt.Errorf("comment %d: %w", commentID, notFound(err))
		}
		if comment.UserID != userID {
			return ErrForbidden
		}
		return tx.Model(&models.Comment{}).Where("id = ?", commentID).UpdateColumn("content", content).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("comment_id", commentID).Uint("user_id", userID).Msg("Comment updated")
	return s.Get(ctx, commentID)
}

// Delete removes a comment authored by userID. Replies and likes go with it by cascade.
func (s *CommentService) Delete(ctx context.Context, commentID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, commentID).Error; err != nil {
			return fmt.Errorf("comment %d: %w", commentID, notFound(err))
		}
		if comment.UserID != userID {
			return ErrForbidden
		}

		var rows []models.Comment
		if err := tx.Select("id", "parent_id").Where("post_id = ?", comment.PostID).Find(&rows).Error; err != nil {
			return err
		}
		removed := subtreeSize(rows, comment.ID)

		if err := tx.Delete(&models.Comment{}, comment.ID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - ?", removed)).Error
	})
}

// subtreeSize counts rootID and all its descendants among rows.
func subtreeSize(rows []models.Comment, rootID uint) int {
	children := make(map[uint][]uint, len(rows))
	for _, r := range rows {
		if r.ParentID != nil {
			children[*r.ParentID] = append(children[*r.ParentID], r.ID)
		}
	}

	size := 0
	seen := make(map[uint]bool)
	queue := []uint{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		size++
		queue = append(queue, children[id]...)
	}
	return size
}

// Tree assembles the comment forest for postID with two queries: the comment rows
// (authors joined) and one grouped like aggregate that also carries viewerID's likes.
func (s *CommentService) Tree(ctx context.Context, postID, viewerID uint) ([]*CommentNode, error) {
	rows, stats, err := s.load(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*CommentNode{}, nil
	}

	roots, orphans := BuildForest(rows, stats)
	for _, id := range orphans {
		s.log.Warn().
			Err(ErrDataIntegrity).
			Uint("post_id", postID).
			Uint("comment_id", id).
			Msg("Comment parent missing, rendering as top-level")
	}

	s.renderForest(roots)
	return roots, nil
}

// List returns the comments on postID flat, oldest first, with the same two
// queries as Tree. Children are left empty; ParentID carries the structure.
func (s *CommentService) List(ctx context.Context, postID, viewerID uint) ([]*CommentNode, error) {
	rows, stats, err := s.load(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}

	nodes := make([]*CommentNode, len(rows))
	for i := range rows {
		nodes[i] = newCommentNode(&rows[i], stats[rows[i].ID])
	}
	s.renderForest(nodes)
	return nodes, nil
}

func (s *CommentService) load(ctx context.Context, postID, viewerID uint) ([]models.Comment, map[uint]CommentStat, error) {
	tx := s.db.WithContext(ctx)

	var rows []models.Comment
	err := tx.Joins("User").
		Where("comments.post_id = ?", postID).
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load comments: %w", err)
	}
	if len(rows) == 0 {
		return rows, nil, nil
	}

	var stats []CommentStat
	err = tx.Model(&models.Like{}).
		Select("likes.comment_id AS comment_id, COUNT(*) AS like_count, "+
			"SUM(CASE WHEN likes.user_id = ? THEN 1 ELSE 0 END) AS viewer_liked", viewerID).
		Joins("JOIN comments ON comments.id = likes.comment_id").
		Where("comments.post_id = ?", postID).
		Group("likes.comment_id").
		Scan(&stats).Error
	if err != nil {
		return nil, nil, fmt.Errorf("count comment likes: %w", err)
	}

	statMap := make(map[uint]CommentStat, len(stats))
	for _, st := range stats {
		statMap[st.CommentID] = st
	}
	return rows, statMap, nil
}

func (s *CommentService) renderForest(forest []*CommentNode) {
	if s.render == nil {
		return
	}
	stack := append([]*CommentNode(nil), forest...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node.ContentHTML = s.render(node.Content)
		stack = append(stack, node.Children...)
	}
}
