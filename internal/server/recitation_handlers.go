package server

import (
	"io"
	"path/filepath"
	"strings"

	"minbar/internal/models"
	"minbar/internal/repository"
	"minbar/internal/service"

	"github.com/gofiber/fiber/v2"
)

// allowedAudioExts are the accepted upload extensions, without the dot.
var allowedAudioExts = map[string]struct{}{
	"mp3": {},
	"wav": {},
	"m4a": {},
	"aac": {},
}

// CreateRecitation handles POST /api/recitations (multipart upload).
func (s *Server) CreateRecitation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Audio file is required"))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "audio/") {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File must be an audio upload"))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))
	if _, ok := allowedAudioExts[ext]; !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported audio format (use mp3, wav, m4a, or aac)"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}

	surahNumber, err := optionalInt(c, "surah_number")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	ayahStart, err := optionalInt(c, "ayah_start")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	ayahEnd, err := optionalInt(c, "ayah_end")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	recitation, err := s.recitationService.Create(ctx, service.CreateRecitationInput{
		UploaderID:     userID,
		Title:          c.FormValue("title"),
		ReciterName:    c.FormValue("reciter_name"),
		MasjidName:     c.FormValue("masjid_name"),
		MasjidLocation: c.FormValue("masjid_location"),
		SurahName:      c.FormValue("surah_name"),
		SurahNumber:    surahNumber,
		AyahStart:      ayahStart,
		AyahEnd:        ayahEnd,
		Description:    c.FormValue("description"),
		Tags:           splitTags(c.FormValue("tags")),
		Audio:          audio,
		Ext:            ext,
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.Status(fiber.StatusCreated).JSON(recitation)
}

// CreateRecitationFromURL handles POST /api/recitations/url.
func (s *Server) CreateRecitationFromURL(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		Title          string   `json:"title"`
		ReciterName    string   `json:"reciter_name"`
		MasjidName     string   `json:"masjid_name"`
		MasjidLocation string   `json:"masjid_location"`
		SurahName      string   `json:"surah_name"`
		SurahNumber    *int     `json:"surah_number"`
		AyahStart      *int     `json:"ayah_start"`
		AyahEnd        *int     `json:"ayah_end"`
		Description    string   `json:"description"`
		Tags           []string `json:"tags"`
		AudioURL       string   `json:"audio_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	recitation, err := s.recitationService.CreateFromURL(ctx, service.CreateFromURLInput{
		UploaderID:     userID,
		Title:          req.Title,
		ReciterName:    req.ReciterName,
		MasjidName:     req.MasjidName,
		MasjidLocation: req.MasjidLocation,
		SurahName:      req.SurahName,
		SurahNumber:    req.SurahNumber,
		AyahStart:      req.AyahStart,
		AyahEnd:        req.AyahEnd,
		Description:    req.Description,
		Tags:           req.Tags,
		AudioURL:       req.AudioURL,
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.Status(fiber.StatusCreated).JSON(recitation)
}

// GetRecitations handles GET /api/recitations?mine&page&limit.
func (s *Server) GetRecitations(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c, 20)
	viewerID := currentUserID(c)
	mine := c.QueryBool("mine", false)

	recitations, err := s.recitationService.List(ctx, service.ListInput{
		ViewerID: viewerID,
		Mine:     mine,
		Page:     page.Page,
		Limit:    page.Limit,
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(recitations)
}

// SearchRecitations handles GET /api/recitations/search.
func (s *Server) SearchRecitations(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c, 20)
	viewerID := currentUserID(c)

	var surahNumber *int
	if raw := c.Query("surah_number"); raw != "" {
		n := c.QueryInt("surah_number")
		surahNumber = &n
	}

	filter := repository.SearchFilter{
		Reciter:     c.Query("reciter_name"),
		Masjid:      c.Query("masjid_location"),
		SurahName:   c.Query("surah_name"),
		SurahNumber: surahNumber,
		Tags:        splitTags(c.Query("tags")),
	}

	recitations, err := s.recitationService.Search(ctx, filter, page.Page, page.Limit, viewerID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(recitations)
}

// GetRecommendations handles GET /api/recitations/recommendations?limit.
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)
	limit := c.QueryInt("limit", 10)

	recitations, err := s.recommendationService.Recommend(ctx, userID, limit)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(recitations)
}

// GetRecitation handles GET /api/recitations/:id.
func (s *Server) GetRecitation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recitation, err := s.recitationService.Get(ctx, id, currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(recitation)
}

// UpdateRecitation handles PUT /api/recitations/:id.
func (s *Server) UpdateRecitation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title          *string   `json:"title"`
		ReciterName    *string   `json:"reciter_name"`
		MasjidName     *string   `json:"masjid_name"`
		MasjidLocation *string   `json:"masjid_location"`
		SurahName      *string   `json:"surah_name"`
		SurahNumber    *int      `json:"surah_number"`
		AyahStart      *int      `json:"ayah_start"`
		AyahEnd        *int      `json:"ayah_end"`
		Description    *string   `json:"description"`
		Tags           *[]string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	recitation, err := s.recitationService.Update(ctx, service.UpdateRecitationInput{
		OwnerID:        currentUserID(c),
		RecitationID:   id,
		Title:          req.Title,
		ReciterName:    req.ReciterName,
		MasjidName:     req.MasjidName,
		MasjidLocation: req.MasjidLocation,
		SurahName:      req.SurahName,
		SurahNumber:    req.SurahNumber,
		AyahStart:      req.AyahStart,
		AyahEnd:        req.AyahEnd,
		Description:    req.Description,
		Tags:           req.Tags,
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(recitation)
}

// DeleteRecitation handles DELETE /api/recitations/:id. Retiring an absent
// or foreign recitation reports deleted=false rather than an error.
func (s *Server) DeleteRecitation(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	deleted, err := s.recitationService.Delete(ctx, id, currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{"deleted": deleted})
}

// ToggleLike handles POST /api/likes. A toggle against an absent
// recitation is a 404, not a silent no-op.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		RecitationID uint `json:"recitation_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.RecitationID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("recitation_id is required"))
	}

	toggled, err := s.engagementService.ToggleLike(ctx, userID, req.RecitationID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if !toggled {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("recitation", req.RecitationID))
	}

	return c.JSON(fiber.Map{"toggled": true})
}
