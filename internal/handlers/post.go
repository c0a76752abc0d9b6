package handlers

import (
	"net/http"

	"karmafeed/internal/middleware"
	"karmafeed/internal/services"
	"karmafeed/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type PostHandler struct {
	posts    *services.PostService
	comments *services.CommentService
	log      zerolog.Logger
}

func NewPostHandler(svc *services.Services, log zerolog.Logger) *PostHandler {
	return &PostHandler{posts: svc.Posts, comments: svc.Comments, log: log}
}

type contentRequest struct {
	Content  string `json:"content" form:"content"`
	ParentID *uint  `json:"parent_id" form:"parent_id"`
}

// List serves GET /api/posts?sort=new|hot&page=N.
func (h *PostHandler) List(c *gin.Context) {
	page := 1
	if p := utils.StringToInt(c.Query("page")); p > 0 {
		page = p
	}

	result, err := h.posts.List(c.Request.Context(), c.DefaultQuery("sort", services.SortNew), page, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PostHandler) Create(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), middleware.CurrentUserID(c), req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Detail serves the post with its whole comment forest.
func (h *PostHandler) Detail(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	detail, err := h.posts.Detail(c.Request.Context(), id, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.posts.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateComment serves POST /api/posts/:id/comments.
func (h *PostHandler) CreateComment(c *gin.Context) {
	postID, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), postID, middleware.CurrentUserID(c), req.Content, req.ParentID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ListComments serves GET /api/comments?post=ID as a flat list.
func (h *PostHandler) ListComments(c *gin.Context) {
	postID := utils.ParseID(c.Query("post"))
	if postID == 0 {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	comments, err := h.comments.List(c.Request.Context(), postID, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *PostHandler) UpdateComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	comment, err := h.comments.Update(c.Request.Context(), id, middleware.CurrentUserID(c), req.Content)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.comments.Delete(c.Request.Context(), id, middleware.CurrentUserID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
