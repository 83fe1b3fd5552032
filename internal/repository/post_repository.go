package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/inkpress/internal/apperr"
	"github.com/example/inkpress/internal/db"
	"github.com/example/inkpress/internal/models"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// orderColumns whitelists the columns a caller may sort by. Anything else
// falls back to the listing's default ordering.
var orderColumns = map[string]string{
	"published_at": "published_at",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"title":        "title",
}

// PostQuery carries explicit listing parameters. AsOf anchors the
// visibility cutoff; zero means "now".
type PostQuery struct {
	Page    int
	PerPage int
	Search  string
	Tag     string
	Status  models.PostStatus
	AsOf    time.Time
	OrderBy string
	Desc    bool
}

func (q PostQuery) limit() int {
	if q.PerPage < 1 {
		return defaultPerPage
	}
	if q.PerPage > maxPerPage {
		return maxPerPage
	}
	return q.PerPage
}

func (q PostQuery) offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * q.limit()
}

func (q PostQuery) asOf() time.Time {
	if q.AsOf.IsZero() {
		return time.Now().UTC()
	}
	return q.AsOf
}

func (q PostQuery) orderClause(def string) string {
	col, ok := orderColumns[q.OrderBy]
	if !ok {
		return def
	}
	if q.Desc {
		return col + " DESC"
	}
	return col + " ASC"
}

type PostRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) *PostRepository { return &PostRepository{db: db} }

// Create inserts the post and its creation activity entry in one transaction.
func (r *PostRepository) Create(ctx context.Context, p *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActivityLog{Action: models.ActionPostCreated, PostID: p.ID}).Error
	})
	return translatePostErr(err)
}

// Save persists the full row and records the action alongside it.
func (r *PostRepository) Save(ctx context.Context, p *models.Post, action string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActivityLog{Action: action, PostID: p.ID}).Error
	})
	return translatePostErr(err)
}

func (r *PostRepository) Delete(ctx context.Context, p *models.Post) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Post{}, p.ID).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActivityLog{Action: models.ActionPostDeleted, PostID: p.ID}).Error
	})
}

func (r *PostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, translatePostErr(err)
	}
	return &post, nil
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, translatePostErr(err)
	}
	return &post, nil
}

// SlugExists reports whether another post already holds slug. excludeID
// skips the post being updated so it can keep its own slug.
func (r *PostRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListVisible pages through posts readable by anyone at the query's cutoff:
// published, with a publication timestamp that has already passed.
func (r *PostRepository) ListVisible(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("status = ?", models.StatusPublished).
		Where("published_at IS NOT NULL AND published_at <= ?", q.asOf())
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("title ILIKE ? OR content ILIKE ? OR excerpt ILIKE ?", like, like, like)
	}
	if q.Tag != "" {
		// tags @> ARRAY[tag]::text[] uses the GIN index
		tx = tx.Where("tags @> ARRAY[?]::text[]", q.Tag)
	}
	return r.page(tx, q, "published_at DESC")
}

// ListByOwner pages through every post of one owner regardless of status.
func (r *PostRepository) ListByOwner(ctx context.Context, ownerID uint, q PostQuery) ([]models.Post, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Post{}).Where("owner_id = ?", ownerID)
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("title ILIKE ?", like)
	}
	return r.page(tx, q, "created_at DESC")
}

// RefsByOwner returns id and slug for every post owned by ownerID, for
// cache and search-index cleanup after a cascading account delete.
func (r *PostRepository) RefsByOwner(ctx context.Context, ownerID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).Select("id", "slug").Where("owner_id = ?", ownerID).Find(&posts).Error
	return posts, err
}

func (r *PostRepository) page(tx *gorm.DB, q PostQuery, defaultOrder string) ([]models.Post, int64, error) {
	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.Post
	err := tx.Order(q.orderClause(defaultOrder)).Offset(q.offset()).Limit(q.limit()).Find(&posts).Error
	return posts, total, err
}

func translatePostErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.New(apperr.CodeNotFound, "post not found")
	case db.IsUniqueViolation(err):
		// the only unique index on posts is the slug
		return apperr.Wrap(apperr.CodeConflict, "slug already in use", err)
	}
	return err
}
