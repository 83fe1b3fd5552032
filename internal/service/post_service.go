package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/example/inkpress/internal/apperr"
	"github.com/example/inkpress/internal/models"
	"github.com/example/inkpress/internal/repository"
	"github.com/example/inkpress/internal/slug"
)

// PostStore is the persistence surface the post service needs.
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	Save(ctx context.Context, p *models.Post, action string) error
	Delete(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	ListVisible(ctx context.Context, q repository.PostQuery) ([]models.Post, int64, error)
	ListByOwner(ctx context.Context, ownerID uint, q repository.PostQuery) ([]models.Post, int64, error)
	RefsByOwner(ctx context.Context, ownerID uint) ([]models.Post, error)
}

// PostCache is the read-through cache for single-post lookups.
type PostCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
	Del(ctx context.Context, keys ...string) error
}

// SearchIndex mirrors posts into the full-text index. Indexing is
// best-effort: the database row is the source of truth.
type SearchIndex interface {
	IndexPost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id uint) error
	SearchPosts(ctx context.Context, query string, asOf time.Time, limit int) ([]map[string]interface{}, error)
	RelatedPosts(ctx context.Context, p *models.Post, asOf time.Time, limit int) ([]map[string]interface{}, error)
}

type PostService struct {
	store PostStore
	cache PostCache
	index SearchIndex
	now   func() time.Time
}

func NewPostService(store PostStore, cache PostCache, index SearchIndex) *PostService {
	return &PostService{store: store, cache: cache, index: index, now: time.Now}
}

type CreatePostInput struct {
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Excerpt         string     `json:"excerpt"`
	FeaturedImage   string     `json:"featured_image"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	Tags            []string   `json:"tags"`
	Status          string     `json:"status"`
	PublishedAt     *time.Time `json:"published_at"`
}

func (in CreatePostInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "required"
	}
	if strings.TrimSpace(in.Content) == "" {
		fields["content"] = "required"
	}
	switch models.PostStatus(in.Status) {
	case "", models.StatusDraft, models.StatusPublished:
	default:
		fields["status"] = "must be draft or published"
	}
	if in.PublishedAt != nil && models.PostStatus(in.Status) != models.StatusPublished {
		fields["published_at"] = "only allowed when status is published"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid post", fields)
	}
	return nil
}

// UpdatePostInput patches only the fields present. Status never travels
// here; publication state changes only through Publish, Unpublish and
// Archive. PublishedAt may be adjusted while the post is published.
type UpdatePostInput struct {
	Title           *string    `json:"title"`
	Slug            *string    `json:"slug"`
	Content         *string    `json:"content"`
	Excerpt         *string    `json:"excerpt"`
	FeaturedImage   *string    `json:"featured_image"`
	MetaTitle       *string    `json:"meta_title"`
	MetaDescription *string    `json:"meta_description"`
	Tags            *[]string  `json:"tags"`
	PublishedAt     *time.Time `json:"published_at"`
}

func (in UpdatePostInput) validate() error {
	fields := map[string]string{}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		fields["title"] = "cannot be empty"
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		fields["content"] = "cannot be empty"
	}
	if in.Slug != nil && slug.Make(*in.Slug) == "" {
		fields["slug"] = "must contain letters or digits"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid post", fields)
	}
	return nil
}

const slugWriteAttempts = 3

func postIDKey(id uint) string       { return fmt.Sprintf("post:id:%d", id) }
func postSlugKey(slug string) string { return "post:slug:" + slug }

// assignSlug normalizes candidate and appends -2, -3, ... until it finds a
// slug no other post holds. excludeID keeps a post from colliding with its
// own row on update. The check precedes the write, so two concurrent saves
// can still both pass; the store's unique index catches that and
// withSlugRetry re-enters here with the winner now committed.
func (s *PostService) assignSlug(ctx context.Context, candidate string, excludeID uint) (string, error) {
	base := slug.Make(candidate)
	if base == "" {
		return "", apperr.Validation("invalid post", map[string]string{"slug": "must contain letters or digits"})
	}
	chosen := base
	for n := 2; ; n++ {
		taken, err := s.store.SlugExists(ctx, chosen, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return chosen, nil
		}
		chosen = fmt.Sprintf("%s-%d", base, n)
	}
}

// withSlugRetry re-runs fn when a write loses the slug race. fn re-derives
// its slug on each attempt, so fresh suffixes are probed before the
// conflict surfaces to the caller.
func (s *PostService) withSlugRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < slugWriteAttempts; attempt++ {
		if err = fn(); err == nil || !apperr.IsCode(err, apperr.CodeConflict) {
			return err
		}
	}
	return err
}

func (s *PostService) Create(ctx context.Context, ownerID uint, in CreatePostInput) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	status := models.StatusDraft
	if in.Status != "" {
		status = models.PostStatus(in.Status)
	}
	var publishedAt *time.Time
	if status == models.StatusPublished {
		at := s.now().UTC()
		if in.PublishedAt != nil {
			at = in.PublishedAt.UTC()
		}
		publishedAt = &at
	}

	post := &models.Post{
		OwnerID:         ownerID,
		Title:           strings.TrimSpace(in.Title),
		Status:          status,
		PublishedAt:     publishedAt,
		Content:         in.Content,
		Excerpt:         in.Excerpt,
		FeaturedImage:   in.FeaturedImage,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Tags:            pq.StringArray(in.Tags),
	}
	err := s.withSlugRetry(func() error {
		assigned, err := s.assignSlug(ctx, post.Title, 0)
		if err != nil {
			return err
		}
		post.Slug = assigned
		return s.store.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	post.ReadingTime = models.ReadingTime(post.Content)
	_ = s.index.IndexPost(ctx, post)
	return post, nil
}

// Update patches the post's content fields. The slug stays put when the
// title changes; only an explicit slug value re-runs slug assignment, so
// published URLs survive retitling.
func (s *PostService) Update(ctx context.Context, ownerID, id uint, in UpdatePostInput) (*models.Post, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	post, err := s.fetchOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if in.PublishedAt != nil && post.Status != models.StatusPublished {
		return nil, apperr.Validation("invalid post", map[string]string{
			"published_at": "only adjustable while published",
		})
	}

	oldSlug := post.Slug
	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Excerpt != nil {
		post.Excerpt = *in.Excerpt
	}
	if in.FeaturedImage != nil {
		post.FeaturedImage = *in.FeaturedImage
	}
	if in.MetaTitle != nil {
		post.MetaTitle = *in.MetaTitle
	}
	if in.MetaDescription != nil {
		post.MetaDescription = *in.MetaDescription
	}
	if in.Tags != nil {
		post.Tags = pq.StringArray(*in.Tags)
	}
	if in.PublishedAt != nil {
		at := in.PublishedAt.UTC()
		post.PublishedAt = &at
	}

	err = s.withSlugRetry(func() error {
		if in.Slug != nil {
			assigned, err := s.assignSlug(ctx, *in.Slug, post.ID)
			if err != nil {
				return err
			}
			post.Slug = assigned
		}
		return s.store.Save(ctx, post, models.ActionPostUpdated)
	})
	if err != nil {
		return nil, err
	}

	post.ReadingTime = models.ReadingTime(post.Content)
	s.invalidate(ctx, post.ID, oldSlug, post.Slug)
	_ = s.index.IndexPost(ctx, post)
	return post, nil
}

// Publish moves the post to published and stamps PublishedAt with the
// current time, overwriting any earlier value. Re-publishing refreshes the
// timestamp on purpose.
func (s *PostService) Publish(ctx context.Context, ownerID, id uint) (*models.Post, error) {
	return s.transition(ctx, ownerID, id, models.ActionPostPublished, func(p *models.Post) {
		at := s.now().UTC()
		p.Status = models.StatusPublished
		p.PublishedAt = &at
	})
}

// Unpublish returns the post to draft and clears PublishedAt.
func (s *PostService) Unpublish(ctx context.Context, ownerID, id uint) (*models.Post, error) {
	return s.transition(ctx, ownerID, id, models.ActionPostUnpublished, func(p *models.Post) {
		p.Status = models.StatusDraft
		p.PublishedAt = nil
	})
}

// Archive retires the post from any state. PublishedAt is left untouched so
// unarchiving tools can tell whether it ever went live.
func (s *PostService) Archive(ctx context.Context, ownerID, id uint) (*models.Post, error) {
	return s.transition(ctx, ownerID, id, models.ActionPostArchived, func(p *models.Post) {
		p.Status = models.StatusArchived
	})
}

func (s *PostService) transition(ctx context.Context, ownerID, id uint, action string, mutate func(p *models.Post)) (*models.Post, error) {
	post, err := s.fetchOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	mutate(post)
	if err := s.store.Save(ctx, post, action); err != nil {
		return nil, err
	}
	post.ReadingTime = models.ReadingTime(post.Content)
	s.invalidate(ctx, post.ID, post.Slug)
	_ = s.index.IndexPost(ctx, post)
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, ownerID, id uint) error {
	post, err := s.fetchOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, post); err != nil {
		return err
	}
	s.invalidate(ctx, post.ID, post.Slug)
	_ = s.index.DeletePost(ctx, post.ID)
	return nil
}

// Resolve interprets ref as a numeric id when it parses as one, otherwise
// as a slug.
func (s *PostService) Resolve(ctx context.Context, ref string) (*models.Post, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
		return s.getByID(ctx, uint(id))
	}
	return s.getBySlug(ctx, ref)
}

// ResolveVisible resolves ref for an anonymous reader. Drafts, archived
// posts and scheduled posts all read as not found rather than revealing
// that something exists at the address.
func (s *PostService) ResolveVisible(ctx context.Context, ref string) (*models.Post, error) {
	post, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !post.Visible(s.now()) {
		return nil, apperr.New(apperr.CodeNotFound, "post not found")
	}
	return post, nil
}

// GetOwned fetches one of the caller's own posts regardless of status.
func (s *PostService) GetOwned(ctx context.Context, ownerID, id uint) (*models.Post, error) {
	return s.fetchOwned(ctx, ownerID, id)
}

func (s *PostService) ListPublished(ctx context.Context, q repository.PostQuery) ([]models.Post, int64, error) {
	if q.AsOf.IsZero() {
		q.AsOf = s.now().UTC()
	}
	return s.store.ListVisible(ctx, q)
}

func (s *PostService) ListByOwner(ctx context.Context, ownerID uint, q repository.PostQuery) ([]models.Post, int64, error) {
	return s.store.ListByOwner(ctx, ownerID, q)
}

// Search queries the full-text index, restricted to visible posts.
func (s *PostService) Search(ctx context.Context, query string, limit int) ([]map[string]interface{}, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("invalid search", map[string]string{"q": "required"})
	}
	return s.index.SearchPosts(ctx, query, s.now().UTC(), limit)
}

// Related returns visible posts sharing tags with the referenced post.
func (s *PostService) Related(ctx context.Context, ref string, limit int) ([]map[string]interface{}, error) {
	post, err := s.ResolveVisible(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.index.RelatedPosts(ctx, post, s.now().UTC(), limit)
}

func (s *PostService) fetchOwned(ctx context.Context, ownerID, id uint) (*models.Post, error) {
	post, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.OwnedBy(ownerID) {
		return nil, apperr.New(apperr.CodeForbidden, "not the owner of this post")
	}
	return post, nil
}

func (s *PostService) getByID(ctx context.Context, id uint) (*models.Post, error) {
	key := postIDKey(id)
	var cached models.Post
	if found, err := s.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}
	post, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, key, post)
	return post, nil
}

func (s *PostService) getBySlug(ctx context.Context, sl string) (*models.Post, error) {
	key := postSlugKey(sl)
	var cached models.Post
	if found, err := s.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}
	post, err := s.store.GetBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, key, post)
	return post, nil
}

// invalidate drops every cache key the post may be found under. On a slug
// change both the old and new slug keys are passed in.
func (s *PostService) invalidate(ctx context.Context, id uint, slugs ...string) {
	keys := []string{postIDKey(id)}
	seen := map[string]bool{}
	for _, sl := range slugs {
		if sl == "" || seen[sl] {
			continue
		}
		seen[sl] = true
		keys = append(keys, postSlugKey(sl))
	}
	_ = s.cache.Del(ctx, keys...)
}
