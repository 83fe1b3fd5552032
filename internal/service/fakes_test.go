package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/example/inkpress/internal/apperr"
	"github.com/example/inkpress/internal/models"
	"github.com/example/inkpress/internal/repository"
)

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.Tags = append(pq.StringArray(nil), p.Tags...)
	if p.PublishedAt != nil {
		at := *p.PublishedAt
		cp.PublishedAt = &at
	}
	return &cp
}

// fakePostStore keeps posts in memory and enforces the same slug
// uniqueness the database's unique index would.
type fakePostStore struct {
	nextID  uint
	posts   map[uint]*models.Post
	actions []string

	// beforeCreate runs just before uniqueness is enforced, letting a test
	// sneak a competing row in between slug check and write.
	beforeCreate func(p *models.Post)

	failCreates int
	failSaves   int

	createCalls int
	getCalls    int
	lastVisible repository.PostQuery
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: map[uint]*models.Post{}}
}

func (f *fakePostStore) insert(p *models.Post) *models.Post {
	f.nextID++
	cp := clonePost(p)
	cp.ID = f.nextID
	f.posts[cp.ID] = cp
	return clonePost(cp)
}

func (f *fakePostStore) slugTaken(slug string, excludeID uint) bool {
	for id, p := range f.posts {
		if id != excludeID && p.Slug == slug {
			return true
		}
	}
	return false
}

func (f *fakePostStore) Create(_ context.Context, p *models.Post) error {
	f.createCalls++
	if f.beforeCreate != nil {
		f.beforeCreate(p)
	}
	if f.failCreates > 0 {
		f.failCreates--
		return apperr.New(apperr.CodeConflict, "slug already in use")
	}
	if f.slugTaken(p.Slug, 0) {
		return apperr.New(apperr.CodeConflict, "slug already in use")
	}
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.posts[p.ID] = clonePost(p)
	f.actions = append(f.actions, models.ActionPostCreated)
	return nil
}

func (f *fakePostStore) Save(_ context.Context, p *models.Post, action string) error {
	if f.failSaves > 0 {
		f.failSaves--
		return apperr.New(apperr.CodeConflict, "slug already in use")
	}
	if _, ok := f.posts[p.ID]; !ok {
		return apperr.New(apperr.CodeNotFound, "post not found")
	}
	if f.slugTaken(p.Slug, p.ID) {
		return apperr.New(apperr.CodeConflict, "slug already in use")
	}
	p.UpdatedAt = time.Now()
	f.posts[p.ID] = clonePost(p)
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakePostStore) Delete(_ context.Context, p *models.Post) error {
	if _, ok := f.posts[p.ID]; !ok {
		return apperr.New(apperr.CodeNotFound, "post not found")
	}
	delete(f.posts, p.ID)
	f.actions = append(f.actions, models.ActionPostDeleted)
	return nil
}

func (f *fakePostStore) GetByID(_ context.Context, id uint) (*models.Post, error) {
	f.getCalls++
	p, ok := f.posts[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "post not found")
	}
	out := clonePost(p)
	out.ReadingTime = models.ReadingTime(out.Content)
	return out, nil
}

func (f *fakePostStore) GetBySlug(_ context.Context, slug string) (*models.Post, error) {
	f.getCalls++
	for _, p := range f.posts {
		if p.Slug == slug {
			out := clonePost(p)
			out.ReadingTime = models.ReadingTime(out.Content)
			return out, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "post not found")
}

func (f *fakePostStore) SlugExists(_ context.Context, slug string, excludeID uint) (bool, error) {
	return f.slugTaken(slug, excludeID), nil
}

func matchesSearch(p *models.Post, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term) ||
		strings.Contains(strings.ToLower(p.Excerpt), term)
}

func hasTag(p *models.Post, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (f *fakePostStore) ListVisible(_ context.Context, q repository.PostQuery) ([]models.Post, int64, error) {
	f.lastVisible = q
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	var out []models.Post
	for _, p := range f.posts {
		if !p.Visible(asOf) {
			continue
		}
		if q.Search != "" && !matchesSearch(p, q.Search) {
			continue
		}
		if q.Tag != "" && !hasTag(p, q.Tag) {
			continue
		}
		out = append(out, *clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(*out[j].PublishedAt)
	})
	return out, int64(len(out)), nil
}

func (f *fakePostStore) ListByOwner(_ context.Context, ownerID uint, q repository.PostQuery) ([]models.Post, int64, error) {
	var out []models.Post
	for _, p := range f.posts {
		if p.OwnerID != ownerID {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		out = append(out, *clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakePostStore) RefsByOwner(_ context.Context, ownerID uint) ([]models.Post, error) {
	var out []models.Post
	for _, p := range f.posts {
		if p.OwnerID == ownerID {
			out = append(out, models.Post{ID: p.ID, Slug: p.Slug})
		}
	}
	return out, nil
}

type fakeCache struct {
	data map[string][]byte
	hits int
	sets int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.sets++
	c.data[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	_, ok := c.data[key]
	return ok
}

type fakeIndex struct {
	docs      map[uint]*models.Post
	deleted   []uint
	results   []map[string]interface{}
	lastQuery string
	lastAsOf  time.Time
	relatedTo uint
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[uint]*models.Post{}} }

func (i *fakeIndex) IndexPost(_ context.Context, p *models.Post) error {
	i.docs[p.ID] = clonePost(p)
	return nil
}

func (i *fakeIndex) DeletePost(_ context.Context, id uint) error {
	delete(i.docs, id)
	i.deleted = append(i.deleted, id)
	return nil
}

func (i *fakeIndex) SearchPosts(_ context.Context, query string, asOf time.Time, _ int) ([]map[string]interface{}, error) {
	i.lastQuery = query
	i.lastAsOf = asOf
	return i.results, nil
}

func (i *fakeIndex) RelatedPosts(_ context.Context, p *models.Post, asOf time.Time, _ int) ([]map[string]interface{}, error) {
	i.relatedTo = p.ID
	i.lastAsOf = asOf
	return i.results, nil
}

type fakeDenylist struct{ revoked map[string]time.Time }

func newFakeDenylist() *fakeDenylist { return &fakeDenylist{revoked: map[string]time.Time{}} }

func (d *fakeDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.revoked[tokenID] = until
	return nil
}

func (d *fakeDenylist) Revoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := d.revoked[tokenID]
	return ok, nil
}

type fakeAccountStore struct {
	nextID   uint
	accounts map[uint]*models.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[uint]*models.Account{}}
}

func (f *fakeAccountStore) Create(_ context.Context, a *models.Account) error {
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return apperr.New(apperr.CodeConflict, "email already registered")
		}
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeAccountStore) Save(_ context.Context, a *models.Account) error {
	if _, ok := f.accounts[a.ID]; !ok {
		return apperr.New(apperr.CodeNotFound, "account not found")
	}
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeAccountStore) GetByID(_ context.Context, id uint) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "account not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "account not found")
}

func (f *fakeAccountStore) EmailExists(_ context.Context, email string) (bool, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountStore) Delete(_ context.Context, id uint) error {
	if _, ok := f.accounts[id]; !ok {
		return apperr.New(apperr.CodeNotFound, "account not found")
	}
	delete(f.accounts, id)
	return nil
}
