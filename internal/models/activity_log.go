package models

import "time"

// Post lifecycle actions recorded in the activity log.
const (
	ActionPostCreated     = "post_created"
	ActionPostUpdated     = "post_updated"
	ActionPostPublished   = "post_published"
	ActionPostUnpublished = "post_unpublished"
	ActionPostArchived    = "post_archived"
	ActionPostDeleted     = "post_deleted"
)

// ActivityLog records a post lifecycle event, written in the same
// transaction as the mutation it describes.
type ActivityLog struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Action   string    `gorm:"type:varchar(50);not null" json:"action"`
	PostID   uint      `gorm:"index;not null" json:"post_id"`
	LoggedAt time.Time `gorm:"autoCreateTime" json:"logged_at"`
}
