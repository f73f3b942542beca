package models

import "time"

// Like is an engagement edge between a user and a recitation. At most one
// row may exist per (user, recitation) pair; toggling destroys and
// recreates the edge rather than updating it.
type Like struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"not null;uniqueIndex:idx_likes_user_recitation" json:"user_id"`
	RecitationID uint      `gorm:"not null;uniqueIndex:idx_likes_user_recitation;index" json:"recitation_id"`
	CreatedAt    time.Time `json:"created_at"`
}
