package services

import (
	"html/template"
	"time"

	"karmafeed/internal/models"
)

type AuthorRef struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// CommentNode is one comment in an assembled forest.
type CommentNode struct {
	ID          uint           `json:"id"`
	ParentID    *uint          `json:"parent_id"`
	Author      AuthorRef      `json:"author"`
	Content     string         `json:"content"`
	ContentHTML template.HTML  `json:"content_html,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Depth       int            `json:"depth"`
	LikeCount   int64          `json:"like_count"`
	IsLiked     bool           `json:"is_liked"`
	Children    []*CommentNode `json:"children"`
}

// CommentStat is the per-comment aggregate fetched alongside the comment rows.
type CommentStat struct {
	CommentID   uint
	LikeCount   int64
	ViewerLiked int64
}

func newCommentNode(row *models.Comment, stat CommentStat) *CommentNode {
	return &CommentNode{
		ID:        row.ID,
		ParentID:  row.ParentID,
		Author:    AuthorRef{ID: row.UserID, Username: row.User.Username},
		Content:   row.Content,
		CreatedAt: row.CreatedAt,
		Depth:     row.Depth,
		LikeCount: stat.LikeCount,
		IsLiked:   stat.ViewerLiked > 0,
		Children:  []*CommentNode{},
	}
}

// BuildForest links rows into a forest in one pass. rows must be in fetch order
// (created_at ascending); that order is kept among siblings at every level.
// A parent id that is not among rows (deleted, or on another post) makes the
// comment a root. The returned orphans lists those comment ids.
func BuildForest(rows []models.Comment, stats map[uint]CommentStat) (roots []*CommentNode, orphans []uint) {
	arena := make([]CommentNode, len(rows))
	byID := make(map[uint]*CommentNode, len(rows))

	for i := range rows {
		row := &rows[i]
		arena[i] = *newCommentNode(row, stats[row.ID])
		byID[row.ID] = &arena[i]
	}

	roots = []*CommentNode{}
	for i := range arena {
		node := &arena[i]
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[*node.ParentID]
		if !ok || parent == node {
			orphans = append(orphans, node.ID)
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	return roots, orphans
}

// CountNodes returns the number of nodes in forest.
func CountNodes(forest []*CommentNode) int {
	count := 0
	stack := append([]*CommentNode(nil), forest...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, node.Children...)
	}
	return count
}
