package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// ValidStatus reports whether s is one of the three publication states.
func ValidStatus(s PostStatus) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Post is a blog entry owned by exactly one account.
//
// Slug is unique across all posts and sticky: derived from the title at
// creation, never regenerated on later title edits, though an explicit slug
// edit may replace it. PublishedAt is set by publishing and cleared by
// unpublishing; archiving leaves it alone.
type Post struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	OwnerID         uint           `gorm:"index;not null" json:"owner_id"`
	Owner           Account        `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Title           string         `gorm:"type:varchar(255);not null" json:"title"`
	Slug            string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Status          PostStatus     `gorm:"type:varchar(16);not null;default:draft;index" json:"status"`
	PublishedAt     *time.Time     `gorm:"index" json:"published_at,omitempty"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	Excerpt         string         `gorm:"type:text" json:"excerpt,omitempty"`
	FeaturedImage   string         `gorm:"type:varchar(512)" json:"featured_image,omitempty"`
	MetaTitle       string         `gorm:"type:varchar(255)" json:"meta_title,omitempty"`
	MetaDescription string         `gorm:"type:varchar(512)" json:"meta_description,omitempty"`
	Tags            pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`
	ReadingTime     int            `gorm:"-" json:"reading_time"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// Visible reports whether the post is publicly readable as of the given time.
// A published post with a future PublishedAt is not yet visible.
func (p *Post) Visible(asOf time.Time) bool {
	return p.Status == StatusPublished && p.PublishedAt != nil && !p.PublishedAt.After(asOf)
}

// OwnedBy reports whether accountID holds edit/delete rights on the post.
func (p *Post) OwnedBy(accountID uint) bool {
	return p.OwnerID == accountID
}

// AfterFind populates derived fields on every load.
func (p *Post) AfterFind(*gorm.DB) error {
	p.ReadingTime = ReadingTime(p.Content)
	return nil
}

const wordsPerMinute = 200

// ReadingTime estimates reading minutes for content, rounding up. Empty
// content estimates to zero.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
