// Package storage implements the durable media store collaborator.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"minbar/internal/config"
	"minbar/internal/models"

	"github.com/google/uuid"
)

const (
	DefaultUploadDir       = "/tmp/minbar/uploads/audio"
	DefaultMaxUploadSizeMB = 25
)

// MediaStore accepts audio bytes and a derived key and returns a
// retrievable locator; the locator doubles as the deletion key.
type MediaStore interface {
	Put(ctx context.Context, data []byte, ext, userID string) (string, error)
	Delete(ctx context.Context, locator string) error
}

// DiskStore is a local-filesystem MediaStore. Production deployments swap
// in an object-store implementation behind the same interface.
type DiskStore struct {
	baseDir      string
	maxSizeBytes int64
}

// NewDiskStore creates a DiskStore rooted at the configured upload dir.
func NewDiskStore(cfg *config.Config) *DiskStore {
	baseDir := DefaultUploadDir
	maxSizeMB := DefaultMaxUploadSizeMB
	if cfg != nil {
		if cfg.MediaUploadDir != "" {
			baseDir = cfg.MediaUploadDir
		}
		if cfg.MediaMaxUploadSizeMB > 0 {
			maxSizeMB = cfg.MediaMaxUploadSizeMB
		}
	}
	return &DiskStore{
		baseDir:      baseDir,
		maxSizeBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// Put stores the audio bytes under a collision-resistant key embedding
// the uploader, a timestamp, and a short random disambiguator, matching
// concurrent uploads by the same user.
func (s *DiskStore) Put(ctx context.Context, data []byte, ext, userID string) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("No audio data")
	}
	if int64(len(data)) > s.maxSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("Audio file too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}

	key := MediaKey(userID, ext)
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return key, nil
}

// Delete removes the object addressed by locator. Deleting an absent
// object is not an error so that retire stays idempotent.
func (s *DiskStore) Delete(ctx context.Context, locator string) error {
	cleaned := filepath.Clean(filepath.FromSlash(locator))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return models.NewValidationError("Invalid media locator")
	}
	err := os.Remove(filepath.Join(s.baseDir, cleaned))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// MediaKey builds the storage key for a new upload:
// recitations/<userID>/<timestamp>_<uuid8>.<ext>
func MediaKey(userID, ext string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	disambiguator := uuid.NewString()[:8]
	return fmt.Sprintf("recitations/%s/%s_%s.%s", userID, timestamp, disambiguator, ext)
}
