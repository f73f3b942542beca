package service

import (
	"context"
	"errors"
	"testing"

	"minbar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEngagementService_ToggleLike(t *testing.T) {
	ctx := context.Background()

	t.Run("toggling on returns true", func(t *testing.T) {
		repo := noopRecitationRepo()
		repo.getByIDFn = func(_ context.Context, id uint, _ string) (*models.Recitation, error) {
			return &models.Recitation{ID: id, UploaderID: "uploader"}, nil
		}
		repo.toggleLikeFn = func(_ context.Context, userID string, recitationID uint) (bool, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, uint(5), recitationID)
			return true, nil
		}

		svc := NewEngagementService(repo, nil)
		toggled, err := svc.ToggleLike(ctx, "user-1", 5)

		require.NoError(t, err)
		assert.True(t, toggled)
	})

	t.Run("toggling off also returns true", func(t *testing.T) {
		// Unlike and like both succeed with true; only an absent
		// recitation reads false, so the caller can tell them apart.
		repo := noopRecitationRepo()
		repo.getByIDFn = func(_ context.Context, id uint, _ string) (*models.Recitation, error) {
			return &models.Recitation{ID: id, UploaderID: "uploader"}, nil
		}
		repo.toggleLikeFn = func(_ context.Context, _ string, _ uint) (bool, error) {
			return false, nil
		}

		svc := NewEngagementService(repo, nil)
		toggled, err := svc.ToggleLike(ctx, "user-1", 5)

		require.NoError(t, err)
		assert.True(t, toggled)
	})

	t.Run("absent recitation returns false without error", func(t *testing.T) {
		repo := noopRecitationRepo()
		repo.getByIDFn = func(_ context.Context, _ uint, _ string) (*models.Recitation, error) {
			return nil, gorm.ErrRecordNotFound
		}
		repo.toggleLikeFn = func(_ context.Context, _ string, _ uint) (bool, error) {
			t.Fatal("absent recitation must not be toggled")
			return false, nil
		}

		svc := NewEngagementService(repo, nil)
		toggled, err := svc.ToggleLike(ctx, "user-1", 99)

		require.NoError(t, err)
		assert.False(t, toggled)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		repo := noopRecitationRepo()
		repo.getByIDFn = func(_ context.Context, id uint, _ string) (*models.Recitation, error) {
			return &models.Recitation{ID: id}, nil
		}
		repo.toggleLikeFn = func(_ context.Context, _ string, _ uint) (bool, error) {
			return false, errors.New("deadlock detected")
		}

		svc := NewEngagementService(repo, nil)
		_, err := svc.ToggleLike(ctx, "user-1", 5)

		assert.Error(t, err)
	})
}
