package service

import (
	"context"
	"errors"

	"minbar/internal/cache"
	"minbar/internal/middleware"
	"minbar/internal/notifications"
	"minbar/internal/repository"

	"gorm.io/gorm"
)

// EngagementService owns the like ledger.
type EngagementService struct {
	repo     repository.RecitationRepository
	notifier *notifications.Notifier
}

// NewEngagementService wires the engagement ledger.
func NewEngagementService(repo repository.RecitationRepository, notifier *notifications.Notifier) *EngagementService {
	return &EngagementService{repo: repo, notifier: notifier}
}

// ToggleLike flips the viewer's like edge on a recitation. It returns true
// after a successful toggle in either direction; the caller does not need
// to know whether the edge was created or destroyed. False with no error
// means the recitation is absent, matching the retire-then-toggle race.
func (s *EngagementService) ToggleLike(ctx context.Context, userID string, recitationID uint) (bool, error) {
	recitation, err := s.repo.GetByID(ctx, recitationID, "")
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	liked, err := s.repo.ToggleLike(ctx, userID, recitationID)
	if err != nil {
		return false, err
	}

	result := "unliked"
	if liked {
		result = "liked"
	}
	middleware.LikeToggles.WithLabelValues(result).Inc()
	cache.InvalidatePublicList(ctx)

	if s.notifier != nil {
		_ = s.notifier.PublishEngagement(ctx, recitation.UploaderID, recitationID, userID, liked)
	}
	return true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
