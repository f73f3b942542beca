// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Recitation represents an uploaded Quran recitation and its curation state.
type Recitation struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	Title          string   `gorm:"not null" json:"title"`
	ReciterName    string   `gorm:"not null;index" json:"reciter_name"`
	MasjidName     string   `json:"masjid_name,omitempty"`
	MasjidLocation string   `json:"masjid_location,omitempty"`
	SurahName      string   `gorm:"not null;index" json:"surah_name"`
	SurahNumber    *int     `json:"surah_number,omitempty"`
	AyahStart      *int     `json:"ayah_start,omitempty"`
	AyahEnd        *int     `json:"ayah_end,omitempty"`
	Description    string   `gorm:"type:text" json:"description,omitempty"`
	Tags           []string `gorm:"type:text;serializer:json" json:"tags"`
	UploaderID     string   `gorm:"not null;index" json:"uploader_id"`
	// AudioURL is the durable-store locator. It doubles as the deletion key.
	AudioURL     string `gorm:"not null" json:"audio_url"`
	Status       Status `gorm:"not null;index;default:pending" json:"status"`
	StatusReason string `json:"status_reason,omitempty"`
	// LikesCount is denormalized and maintained exclusively by the
	// engagement ledger's transactional toggle.
	LikesCount int `gorm:"not null;default:0" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this
	// recitation (computed at query time, never persisted).
	Liked     bool      `gorm:"->" json:"is_liked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
