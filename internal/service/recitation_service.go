// Package service implements the business logic between the HTTP layer and
// repositories.
package service

import (
	"context"
	"strings"

	"minbar/internal/models"
	"minbar/internal/moderation"
	"minbar/internal/notifications"
	"minbar/internal/observability"
	"minbar/internal/repository"
	"minbar/internal/storage"
)

// ContentModerator is the moderation cascade as seen by the lifecycle
// manager.
type ContentModerator interface {
	Verify(ctx context.Context, audio []byte) moderation.Result
}

// RecitationService owns the recitation lifecycle: moderated creation,
// retrieval, owner edits, retirement, and admin transitions.
type RecitationService struct {
	repo      repository.RecitationRepository
	media     storage.MediaStore
	moderator ContentModerator
	notifier  *notifications.Notifier
}

// CreateRecitationInput is the payload for a moderated audio upload.
type CreateRecitationInput struct {
	UploaderID     string
	Title          string
	ReciterName    string
	MasjidName     string
	MasjidLocation string
	SurahName      string
	SurahNumber    *int
	AyahStart      *int
	AyahEnd        *int
	Description    string
	Tags           []string
	Audio          []byte
	Ext            string
}

// CreateFromURLInput is the payload for the trusted pre-uploaded locator
// path. No audio bytes are available, so the moderation cascade is skipped
// and the recitation enters review as pending like any other upload.
type CreateFromURLInput struct {
	UploaderID     string
	Title          string
	ReciterName    string
	MasjidName     string
	MasjidLocation string
	SurahName      string
	SurahNumber    *int
	AyahStart      *int
	AyahEnd        *int
	Description    string
	Tags           []string
	AudioURL       string
}

// UpdateRecitationInput carries the owner-editable fields. Nil pointers
// leave the stored value untouched.
type UpdateRecitationInput struct {
	OwnerID        string
	RecitationID   uint
	Title          *string
	ReciterName    *string
	MasjidName     *string
	MasjidLocation *string
	SurahName      *string
	SurahNumber    *int
	AyahStart      *int
	AyahEnd        *int
	Description    *string
	Tags           *[]string
}

// ListInput names the public listing parameters.
type ListInput struct {
	ViewerID string
	Mine     bool
	Page     int
	Limit    int
}

// NewRecitationService wires the lifecycle manager.
func NewRecitationService(
	repo repository.RecitationRepository,
	media storage.MediaStore,
	moderator ContentModerator,
	notifier *notifications.Notifier,
) *RecitationService {
	return &RecitationService{
		repo:      repo,
		media:     media,
		moderator: moderator,
		notifier:  notifier,
	}
}

const (
	maxTitleLen          = 200
	maxReciterLen        = 100
	maxMasjidNameLen     = 100
	maxMasjidLocationLen = 200
	maxSurahNameLen      = 100
	maxDescriptionLen    = 500
)

// Create runs the moderation cascade over the uploaded audio and persists
// an accepted recitation as pending. A rejected verdict stores nothing and
// removes the already-written media object.
func (s *RecitationService) Create(ctx context.Context, in CreateRecitationInput) (*models.Recitation, error) {
	if err := validateMetadata(in.Title, in.ReciterName, in.MasjidName, in.MasjidLocation,
		in.SurahName, in.Description, in.SurahNumber, in.AyahStart, in.AyahEnd); err != nil {
		return nil, err
	}
	if len(in.Audio) == 0 {
		return nil, models.NewValidationError("Audio file is required")
	}

	locator, err := s.media.Put(ctx, in.Audio, in.Ext, in.UploaderID)
	if err != nil {
		return nil, err
	}

	verdict := s.moderator.Verify(ctx, in.Audio)
	if !verdict.Accepted {
		s.removeMedia(ctx, locator)
		if s.notifier != nil {
			_ = s.notifier.PublishModeration(ctx, in.UploaderID, verdict.Stage, false)
		}
		if verdict.Err != nil {
			return nil, models.NewRejectedContentError("Content verification is unavailable; upload rejected")
		}
		return nil, models.NewRejectedContentError("Audio was not recognized as Quranic recitation")
	}

	recitation := &models.Recitation{
		Title:          in.Title,
		ReciterName:    in.ReciterName,
		MasjidName:     in.MasjidName,
		MasjidLocation: in.MasjidLocation,
		SurahName:      in.SurahName,
		SurahNumber:    in.SurahNumber,
		AyahStart:      in.AyahStart,
		AyahEnd:        in.AyahEnd,
		Description:    in.Description,
		Tags:           normalizeTags(in.Tags),
		UploaderID:     in.UploaderID,
		AudioURL:       locator,
		Status:         models.StatusPending,
	}
	if err := s.repo.Create(ctx, recitation); err != nil {
		s.removeMedia(ctx, locator)
		return nil, err
	}

	observability.LogLifecycleEvent(ctx, recitation.ID, "", string(models.StatusPending), "accepted by moderation")
	return recitation, nil
}

// CreateFromURL persists a recitation whose audio already lives at a
// trusted locator.
func (s *RecitationService) CreateFromURL(ctx context.Context, in CreateFromURLInput) (*models.Recitation, error) {
	if err := validateMetadata(in.Title, in.ReciterName, in.MasjidName, in.MasjidLocation,
		in.SurahName, in.Description, in.SurahNumber, in.AyahStart, in.AyahEnd); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.AudioURL) == "" {
		return nil, models.NewValidationError("audio_url is required")
	}

	recitation := &models.Recitation{
		Title:          in.Title,
		ReciterName:    in.ReciterName,
		MasjidName:     in.MasjidName,
		MasjidLocation: in.MasjidLocation,
		SurahName:      in.SurahName,
		SurahNumber:    in.SurahNumber,
		AyahStart:      in.AyahStart,
		AyahEnd:        in.AyahEnd,
		Description:    in.Description,
		Tags:           normalizeTags(in.Tags),
		UploaderID:     in.UploaderID,
		AudioURL:       in.AudioURL,
		Status:         models.StatusPending,
	}
	if err := s.repo.Create(ctx, recitation); err != nil {
		return nil, err
	}

	observability.LogLifecycleEvent(ctx, recitation.ID, "", string(models.StatusPending), "trusted locator upload")
	return recitation, nil
}

// Get returns a recitation with the viewer's liked flag computed.
func (s *RecitationService) Get(ctx context.Context, id uint, viewerID string) (*models.Recitation, error) {
	recitation, err := s.repo.GetByID(ctx, id, viewerID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("recitation", id)
		}
		return nil, err
	}
	return recitation, nil
}

// Update applies the non-nil fields of in to the owner's recitation. An
// empty field set returns the current row without touching UpdatedAt.
func (s *RecitationService) Update(ctx context.Context, in UpdateRecitationInput) (*models.Recitation, error) {
	recitation, err := s.repo.GetByID(ctx, in.RecitationID, in.OwnerID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("recitation", in.RecitationID)
		}
		return nil, err
	}
	if recitation.UploaderID != in.OwnerID {
		return nil, models.NewNotOwnedError("You can only edit your own recitations")
	}

	changed := false
	if in.Title != nil {
		recitation.Title = *in.Title
		changed = true
	}
	if in.ReciterName != nil {
		recitation.ReciterName = *in.ReciterName
		changed = true
	}
	if in.MasjidName != nil {
		recitation.MasjidName = *in.MasjidName
		changed = true
	}
	if in.MasjidLocation != nil {
		recitation.MasjidLocation = *in.MasjidLocation
		changed = true
	}
	if in.SurahName != nil {
		recitation.SurahName = *in.SurahName
		changed = true
	}
	if in.SurahNumber != nil {
		recitation.SurahNumber = in.SurahNumber
		changed = true
	}
	if in.AyahStart != nil {
		recitation.AyahStart = in.AyahStart
		changed = true
	}
	if in.AyahEnd != nil {
		recitation.AyahEnd = in.AyahEnd
		changed = true
	}
	if in.Description != nil {
		recitation.Description = *in.Description
		changed = true
	}
	if in.Tags != nil {
		recitation.Tags = normalizeTags(*in.Tags)
		changed = true
	}
	if !changed {
		return recitation, nil
	}

	if err := validateMetadata(recitation.Title, recitation.ReciterName, recitation.MasjidName,
		recitation.MasjidLocation, recitation.SurahName, recitation.Description,
		recitation.SurahNumber, recitation.AyahStart, recitation.AyahEnd); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, recitation); err != nil {
		return nil, err
	}
	return recitation, nil
}

// Delete retires the owner's recitation: media object, like edges, row.
// Returns false when the recitation is absent or owned by someone else,
// so retiring twice is safe.
func (s *RecitationService) Delete(ctx context.Context, id uint, ownerID string) (bool, error) {
	recitation, err := s.repo.GetByID(ctx, id, "")
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if recitation.UploaderID != ownerID {
		return false, nil
	}

	s.removeMedia(ctx, recitation.AudioURL)

	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	observability.LogLifecycleEvent(ctx, id, string(recitation.Status), "retired", "deleted by owner")
	return true, nil
}

// SetStatus is the admin transition. Any known status can move to any
// other; each transition is logged and published.
func (s *RecitationService) SetStatus(ctx context.Context, id uint, status models.Status, reason string) (*models.Recitation, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("Unknown status: " + string(status))
	}

	recitation, err := s.repo.GetByID(ctx, id, "")
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("recitation", id)
		}
		return nil, err
	}

	from := recitation.Status
	if err := s.repo.UpdateStatus(ctx, id, status, reason); err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("recitation", id)
		}
		return nil, err
	}

	observability.LogLifecycleEvent(ctx, id, string(from), string(status), reason)
	if s.notifier != nil {
		_ = s.notifier.PublishLifecycle(ctx, recitation.UploaderID, id, string(from), string(status), reason)
	}

	recitation.Status = status
	recitation.StatusReason = reason
	return recitation, nil
}

// List returns the public feed, or the viewer's own approved uploads when
// Mine is set. Mine without a viewer yields an empty page.
func (s *RecitationService) List(ctx context.Context, in ListInput) ([]*models.Recitation, error) {
	limit, offset := pageToRange(in.Page, in.Limit)

	if in.Mine {
		if in.ViewerID == "" {
			return []*models.Recitation{}, nil
		}
		return s.repo.ListByUploader(ctx, in.ViewerID, limit, offset)
	}
	return s.repo.List(ctx, limit, offset, in.ViewerID)
}

// Search queries the approved catalog across the populated filter fields.
func (s *RecitationService) Search(ctx context.Context, filter repository.SearchFilter, page, limit int, viewerID string) ([]*models.Recitation, error) {
	if filter.Reciter == "" && filter.Masjid == "" && filter.SurahName == "" &&
		filter.SurahNumber == nil && len(filter.Tags) == 0 {
		return nil, models.NewValidationError("At least one search filter is required")
	}
	l, offset := pageToRange(page, limit)
	return s.repo.Search(ctx, filter, l, offset, viewerID)
}

// ListByStatus is the admin review list for any lifecycle state.
func (s *RecitationService) ListByStatus(ctx context.Context, status models.Status, page, limit int) ([]*models.Recitation, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("Unknown status: " + string(status))
	}
	l, offset := pageToRange(page, limit)
	return s.repo.ListByStatus(ctx, status, l, offset)
}

func (s *RecitationService) removeMedia(ctx context.Context, locator string) {
	if err := s.media.Delete(ctx, locator); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to remove media object",
			"locator", locator, "error", err.Error())
	}
}

func validateMetadata(title, reciter, masjidName, masjidLocation, surahName, description string,
	surahNumber, ayahStart, ayahEnd *int) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(reciter) == "" {
		return models.NewValidationError("Reciter name is required")
	}
	if len(reciter) > maxReciterLen {
		return models.NewValidationError("Reciter name too long (max 100 characters)")
	}
	if len(masjidName) > maxMasjidNameLen {
		return models.NewValidationError("Masjid name too long (max 100 characters)")
	}
	if len(masjidLocation) > maxMasjidLocationLen {
		return models.NewValidationError("Masjid location too long (max 200 characters)")
	}
	if strings.TrimSpace(surahName) == "" {
		return models.NewValidationError("Surah name is required")
	}
	if len(surahName) > maxSurahNameLen {
		return models.NewValidationError("Surah name too long (max 100 characters)")
	}
	if len(description) > maxDescriptionLen {
		return models.NewValidationError("Description too long (max 500 characters)")
	}
	if surahNumber != nil && (*surahNumber < 1 || *surahNumber > 114) {
		return models.NewValidationError("Surah number must be between 1 and 114")
	}
	if ayahStart != nil && *ayahStart < 1 {
		return models.NewValidationError("Ayah start must be positive")
	}
	if ayahEnd != nil && *ayahEnd < 1 {
		return models.NewValidationError("Ayah end must be positive")
	}
	if ayahStart != nil && ayahEnd != nil && *ayahStart > *ayahEnd {
		return models.NewValidationError("Ayah start cannot exceed ayah end")
	}
	return nil
}

// normalizeTags trims, lowercases, and de-duplicates tags preserving order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func pageToRange(page, limit int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
