package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/inkpress/internal/models"
	"github.com/example/inkpress/internal/repository"
	"github.com/example/inkpress/internal/service"
)

const maxSearchLimit = 50

type PostHandler struct {
	service *service.PostService
}

func NewPostHandler(svc *service.PostService) *PostHandler {
	return &PostHandler{service: svc}
}

func postID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("post"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return uint(id), true
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

func listQuery(c *gin.Context) repository.PostQuery {
	return repository.PostQuery{
		Page:    intQuery(c, "page", 1),
		PerPage: intQuery(c, "per_page", 10),
		Search:  c.Query("q"),
		Tag:     c.Query("tag"),
		OrderBy: c.Query("order_by"),
		Desc:    c.DefaultQuery("order", "desc") != "asc",
	}
}

func respondList(c *gin.Context, posts []models.Post, total int64, q repository.PostQuery) {
	if posts == nil {
		posts = []models.Post{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data": posts,
		"meta": gin.H{"page": q.Page, "per_page": q.PerPage, "total": total},
	})
}

func (h *PostHandler) Create(c *gin.Context) {
	var in service.CreatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.service.Create(c.Request.Context(), SessionFrom(c).AccountID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var in service.UpdatePostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.service.Update(c.Request.Context(), SessionFrom(c).AccountID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), SessionFrom(c).AccountID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) Publish(c *gin.Context) {
	h.transition(c, h.service.Publish)
}

func (h *PostHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.service.Unpublish)
}

func (h *PostHandler) Archive(c *gin.Context) {
	h.transition(c, h.service.Archive)
}

func (h *PostHandler) transition(c *gin.Context, op func(ctx context.Context, ownerID, id uint) (*models.Post, error)) {
	id, ok := postID(c)
	if !ok {
		return
	}
	post, err := op(c.Request.Context(), SessionFrom(c).AccountID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Resolve(c *gin.Context) {
	post, err := h.service.ResolveVisible(c.Request.Context(), c.Param("post"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Related(c *gin.Context) {
	limit := intQuery(c, "limit", 5)
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	related, err := h.service.Related(c.Request.Context(), c.Param("post"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": related})
}

func (h *PostHandler) ListPublished(c *gin.Context) {
	q := listQuery(c)
	posts, total, err := h.service.ListPublished(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, posts, total, q)
}

func (h *PostHandler) ListMine(c *gin.Context) {
	q := listQuery(c)
	if s := c.Query("status"); s != "" {
		status := models.PostStatus(s)
		if !models.ValidStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		q.Status = status
	}
	posts, total, err := h.service.ListByOwner(c.Request.Context(), SessionFrom(c).AccountID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, posts, total, q)
}

func (h *PostHandler) GetMine(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	post, err := h.service.GetOwned(c.Request.Context(), SessionFrom(c).AccountID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Search(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	results, err := h.service.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}
