// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"

	"minbar/internal/cache"
	"minbar/internal/models"

	"gorm.io/gorm"
)

// SearchFilter names the dimensions a catalog search can constrain.
// Zero-valued fields are skipped; the populated ones combine with AND.
type SearchFilter struct {
	Reciter     string
	Masjid      string
	SurahName   string
	SurahNumber *int
	Tags        []string
}

// Preferences is a viewer's taste profile derived from their like history.
type Preferences struct {
	Reciters   []string
	SurahNames []string
	Tags       []string
}

// Empty reports whether the profile constrains nothing.
func (p Preferences) Empty() bool {
	return len(p.Reciters) == 0 && len(p.SurahNames) == 0 && len(p.Tags) == 0
}

// RecitationRepository defines the interface for recitation data operations.
type RecitationRepository interface {
	Create(ctx context.Context, recitation *models.Recitation) error
	GetByID(ctx context.Context, id uint, viewerID string) (*models.Recitation, error)
	List(ctx context.Context, limit, offset int, viewerID string) ([]*models.Recitation, error)
	ListByUploader(ctx context.Context, uploaderID string, limit, offset int) ([]*models.Recitation, error)
	ListByStatus(ctx context.Context, status models.Status, limit, offset int) ([]*models.Recitation, error)
	ListTopApproved(ctx context.Context, limit int) ([]*models.Recitation, error)
	ListCandidates(ctx context.Context, prefs Preferences, excludeIDs []uint, limit int) ([]*models.Recitation, error)
	Search(ctx context.Context, filter SearchFilter, limit, offset int, viewerID string) ([]*models.Recitation, error)
	Update(ctx context.Context, recitation *models.Recitation) error
	UpdateStatus(ctx context.Context, id uint, status models.Status, reason string) error
	Delete(ctx context.Context, id uint) error
	LikedRecitationIDs(ctx context.Context, userID string) ([]uint, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Recitation, error)
	ToggleLike(ctx context.Context, userID string, recitationID uint) (bool, error)
}

// recitationRepository implements RecitationRepository
type recitationRepository struct {
	db *gorm.DB
}

// NewRecitationRepository creates a new recitation repository.
func NewRecitationRepository(db *gorm.DB) RecitationRepository {
	return &recitationRepository{db: db}
}

func (r *recitationRepository) Create(ctx context.Context, recitation *models.Recitation) error {
	err := r.db.WithContext(ctx).Create(recitation).Error
	if err == nil {
		cache.InvalidatePublicList(ctx)
	}
	return err
}

func (r *recitationRepository) GetByID(ctx context.Context, id uint, viewerID string) (*models.Recitation, error) {
	var recitation models.Recitation

	var err error
	if viewerID == "" {
		err = cache.Aside(ctx, cache.RecitationKey(id), &recitation, cache.RecitationTTL, func() error {
			return r.applyLiked(r.db.WithContext(ctx), "").First(&recitation, id).Error
		})
	} else {
		err = r.applyLiked(r.db.WithContext(ctx), viewerID).First(&recitation, id).Error
	}
	if err != nil {
		return nil, err
	}
	return &recitation, nil
}

func (r *recitationRepository) List(ctx context.Context, limit, offset int, viewerID string) ([]*models.Recitation, error) {
	var recitations []*models.Recitation
	fetch := func() error {
		return r.applyLiked(r.db.WithContext(ctx), viewerID).
			Where("status = ?", models.StatusApproved).
			Order("created_at DESC").
			Limit(limit).
			Offset(offset).
			Find(&recitations).Error
	}

	// The anonymous first page is the hot path; it is the only list
	// variant cached, and every write path invalidates it.
	if viewerID == "" && offset == 0 {
		if err := cache.Aside(ctx, cache.PublicListKey, &recitations, cache.ListTTL, fetch); err != nil {
			return nil, err
		}
		return recitations, nil
	}

	err := fetch()
	return recitations, err
}

// ListByUploader returns a user's own approved recitations. Pending and
// rejected rows only surface through the admin review list.
func (r *recitationRepository) ListByUploader(ctx context.Context, uploaderID string, limit, offset int) ([]*models.Recitation, error) {
	var recitations []*models.Recitation
	err := r.applyLiked(r.db.WithContext(ctx), uploaderID).
		Where("status = ?", models.StatusApproved).
		Where("uploader_id = ?", uploaderID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recitations).Error
	return recitations, err
}

func (r *recitationRepository) ListByStatus(ctx context.Context, status models.Status, limit, offset int) ([]*models.Recitation, error) {
	var recitations []*models.Recitation
	err := r.applyLiked(r.db.WithContext(ctx), "").
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recitations).Error
	return recitations, err
}

func (r *recitationRepository) ListTopApproved(ctx context.Context, limit int) ([]*models.Recitation, error) {
	var recitations []*models.Recitation
	err := r.applyLiked(r.db.WithContext(ctx), "").
		Where("status = ?", models.StatusApproved).
		Order("likes_count DESC, created_at DESC").
		Limit(limit).
		Find(&recitations).Error
	return recitations, err
}

// ListCandidates returns approved recitations matching any preference
// dimension, excluding those the viewer already liked, most liked first.
func (r *recitationRepository) ListCandidates(ctx context.Context, prefs Preferences, excludeIDs []uint, limit int) ([]*models.Recitation, error) {
	query := r.applyLiked(r.db.WithContext(ctx), "").
		Where("status = ?", models.StatusApproved)

	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	match := r.db.Session(&gorm.Session{NewDB: true})
	matched := false
	if len(prefs.Reciters) > 0 {
		match = match.Where("reciter_name IN ?", prefs.Reciters)
		matched = true
	}
	if len(prefs.SurahNames) > 0 {
		match = match.Or("surah_name IN ?", prefs.SurahNames)
		matched = true
	}
	for _, tag := range prefs.Tags {
		match = match.Or("tags LIKE ?", tagPattern(tag))
		matched = true
	}
	if matched {
		query = query.Where(match)
	}

	var recitations []*models.Recitation
	err := query.
		Order("likes_count DESC, created_at DESC").
		Limit(limit).
		Find(&recitations).Error
	return recitations, err
}

func (r *recitationRepository) Search(ctx context.Context, filter SearchFilter, limit, offset int, viewerID string) ([]*models.Recitation, error) {
	query := r.applyLiked(r.db.WithContext(ctx), viewerID).
		Where("status = ?", models.StatusApproved)

	if filter.Reciter != "" {
		query = query.Where("reciter_name ILIKE ?", "%"+filter.Reciter+"%")
	}
	if filter.Masjid != "" {
		query = query.Where("masjid_name ILIKE ? OR masjid_location ILIKE ?",
			"%"+filter.Masjid+"%", "%"+filter.Masjid+"%")
	}
	if filter.SurahName != "" {
		query = query.Where("surah_name ILIKE ?", "%"+filter.SurahName+"%")
	}
	if filter.SurahNumber != nil {
		query = query.Where("surah_number = ?", *filter.SurahNumber)
	}
	if len(filter.Tags) > 0 {
		match := r.db.Session(&gorm.Session{NewDB: true})
		for _, tag := range filter.Tags {
			match = match.Or("tags LIKE ?", tagPattern(tag))
		}
		query = query.Where(match)
	}

	var recitations []*models.Recitation
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recitations).Error
	return recitations, err
}

// Update persists metadata edits. The likes counter belongs to ToggleLike
// and the status columns to UpdateStatus; writing them here would clobber
// a concurrent toggle or review with the stale values read at fetch time.
func (r *recitationRepository) Update(ctx context.Context, recitation *models.Recitation) error {
	err := r.db.WithContext(ctx).
		Omit("likes_count", "status", "status_reason", "created_at").
		Save(recitation).Error
	if err != nil {
		return err
	}
	cache.InvalidateRecitation(ctx, recitation.ID)
	cache.InvalidatePublicList(ctx)
	return nil
}

func (r *recitationRepository) UpdateStatus(ctx context.Context, id uint, status models.Status, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Recitation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"status_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateRecitation(ctx, id)
	cache.InvalidatePublicList(ctx)
	return nil
}

func (r *recitationRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recitation_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Recitation{}, id).Error
	})
	if err != nil {
		return err
	}
	cache.InvalidateRecitation(ctx, id)
	cache.InvalidatePublicList(ctx)
	return nil
}

func (r *recitationRepository) LikedRecitationIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("recitation_id", &ids).Error
	return ids, err
}

func (r *recitationRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Recitation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recitations []*models.Recitation
	err := r.applyLiked(r.db.WithContext(ctx), "").
		Where("id IN ?", ids).
		Find(&recitations).Error
	return recitations, err
}

// ToggleLike flips the (user, recitation) engagement edge and adjusts the
// denormalized likes_count in the same transaction. Returns the resulting
// liked state.
func (r *recitationRepository) ToggleLike(ctx context.Context, userID string, recitationID uint) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		findErr := tx.Where("user_id = ? AND recitation_id = ?", userID, recitationID).
			First(&existing).Error

		switch {
		case findErr == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Recitation{}).
				Where("id = ? AND likes_count > 0", recitationID).
				Update("likes_count", gorm.Expr("likes_count - ?", 1)).Error; err != nil {
				return err
			}
			liked = false
			return nil
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			if err := tx.Create(&models.Like{UserID: userID, RecitationID: recitationID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Recitation{}).
				Where("id = ?", recitationID).
				Update("likes_count", gorm.Expr("likes_count + ?", 1)).Error; err != nil {
				return err
			}
			liked = true
			return nil
		default:
			return findErr
		}
	})
	if err != nil {
		return false, err
	}
	cache.InvalidateRecitation(ctx, recitationID)
	return liked, nil
}

// applyLiked adds an EXISTS subquery to fetch the viewer's liked flag in a
// single query. Anonymous viewers always read liked=false.
func (r *recitationRepository) applyLiked(db *gorm.DB, viewerID string) *gorm.DB {
	if viewerID != "" {
		return db.Model(&models.Recitation{}).Select(
			"recitations.*, EXISTS(SELECT 1 FROM likes WHERE likes.recitation_id = recitations.id AND likes.user_id = ?) as liked",
			viewerID,
		)
	}
	return db.Model(&models.Recitation{}).Select("recitations.*, false as liked")
}

// tagPattern matches one element inside the JSON-serialized tags column.
func tagPattern(tag string) string {
	return fmt.Sprintf(`%%"%s"%%`, tag)
}
