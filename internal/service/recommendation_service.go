package service

import (
	"context"

	"minbar/internal/models"
	"minbar/internal/repository"
)

// RecommendationService derives a taste profile from a viewer's like
// history and surfaces approved recitations matching it.
type RecommendationService struct {
	repo repository.RecitationRepository
}

// NewRecommendationService wires the recommendation engine.
func NewRecommendationService(repo repository.RecitationRepository) *RecommendationService {
	return &RecommendationService{repo: repo}
}

// Recommend computes a fresh recommendation page for the viewer. A viewer
// with no like history gets the global most-liked approved recitations.
// Results never carry the viewer's liked flag: everything recommended is,
// by construction, not yet liked.
func (s *RecommendationService) Recommend(ctx context.Context, viewerID string, limit int) ([]*models.Recitation, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	likedIDs, err := s.repo.LikedRecitationIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(likedIDs) == 0 {
		return s.forceUnliked(s.repo.ListTopApproved(ctx, limit))
	}

	liked, err := s.repo.GetByIDs(ctx, likedIDs)
	if err != nil {
		return nil, err
	}

	// ListCandidates with an empty profile degrades to all approved rows
	// minus the liked ids, so a viewer whose liked rows carry no usable
	// dimensions still never sees something they already liked.
	prefs := buildPreferences(liked)
	return s.forceUnliked(s.repo.ListCandidates(ctx, prefs, likedIDs, limit))
}

func (s *RecommendationService) forceUnliked(recitations []*models.Recitation, err error) ([]*models.Recitation, error) {
	if err != nil {
		return nil, err
	}
	for _, r := range recitations {
		r.Liked = false
	}
	return recitations, nil
}

// buildPreferences collects the distinct reciters, surahs, and tags across
// the viewer's liked rows.
func buildPreferences(liked []*models.Recitation) repository.Preferences {
	var prefs repository.Preferences
	reciters := map[string]struct{}{}
	surahs := map[string]struct{}{}
	tags := map[string]struct{}{}

	for _, r := range liked {
		if r.ReciterName != "" {
			if _, ok := reciters[r.ReciterName]; !ok {
				reciters[r.ReciterName] = struct{}{}
				prefs.Reciters = append(prefs.Reciters, r.ReciterName)
			}
		}
		if r.SurahName != "" {
			if _, ok := surahs[r.SurahName]; !ok {
				surahs[r.SurahName] = struct{}{}
				prefs.SurahNames = append(prefs.SurahNames, r.SurahName)
			}
		}
		for _, tag := range r.Tags {
			if _, ok := tags[tag]; !ok {
				tags[tag] = struct{}{}
				prefs.Tags = append(prefs.Tags, tag)
			}
		}
	}
	return prefs
}
