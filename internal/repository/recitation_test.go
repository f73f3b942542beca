package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"minbar/internal/cache"
	"minbar/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestRecitationRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	recitation := &models.Recitation{
		Title:       "Surah Al-Fatiha",
		ReciterName: "Mishary Alafasy",
		SurahName:   "Al-Fatiha",
		UploaderID:  "user-1",
		AudioURL:    "recitations/user-1/20260829_120000_abcd1234.mp3",
		Status:      models.StatusApproved,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "recitations"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, recitation)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), recitation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecitationRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		viewerID      string
		mockBehavior  func()
		expectedLiked bool
		expectedError bool
	}{
		{
			name:     "anonymous viewer reads liked false",
			viewerID: "",
			mockBehavior: func() {
				mock.ExpectQuery(`SELECT recitations\.\*, false as liked FROM "recitations"`).
					WithArgs(1, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "title", "liked"}).
						AddRow(1, "Surah Al-Fatiha", false))
			},
			expectedLiked: false,
		},
		{
			name:     "authenticated viewer gets liked flag",
			viewerID: "user-9",
			mockBehavior: func() {
				mock.ExpectQuery(`SELECT recitations\.\*, EXISTS\(SELECT 1 FROM likes`).
					WithArgs("user-9", 1, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "title", "liked"}).
						AddRow(1, "Surah Al-Fatiha", true))
			},
			expectedLiked: true,
		},
		{
			name:     "not found",
			viewerID: "",
			mockBehavior: func() {
				mock.ExpectQuery(`SELECT recitations\.\*, false as liked FROM "recitations"`).
					WithArgs(1, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			recitation, err := repo.GetByID(ctx, 1, tt.viewerID)

			if tt.expectedError {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedLiked, recitation.Liked)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecitationRepository_List_OnlyApproved(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT recitations\.\*, false as liked FROM "recitations" WHERE status = \$1 ORDER BY created_at DESC`).
		WithArgs("approved", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow(2, "Second").
			AddRow(1, "First"))

	recitations, err := repo.List(ctx, 20, 0, "")
	assert.NoError(t, err)
	assert.Len(t, recitations, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecitationRepository_List_PublicFirstPageCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	listQuery := `SELECT recitations\.\*, false as liked FROM "recitations" WHERE status = \$1 ORDER BY created_at DESC`

	// First anonymous page-one read fills the cache.
	mock.ExpectQuery(listQuery).
		WithArgs("approved", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(1, "First"))

	recitations, err := repo.List(ctx, 20, 0, "")
	require.NoError(t, err)
	require.Len(t, recitations, 1)
	assert.True(t, mr.Exists(cache.PublicListKey))

	// Second read is served from the cache; any store hit would be an
	// unmet sqlmock expectation.
	recitations, err = repo.List(ctx, 20, 0, "")
	require.NoError(t, err)
	assert.Len(t, recitations, 1)
	assert.NoError(t, mock.ExpectationsWereMet())

	// A like toggle invalidates the cached page, so the next read goes
	// back to the store.
	cache.InvalidatePublicList(ctx)
	assert.False(t, mr.Exists(cache.PublicListKey))

	mock.ExpectQuery(listQuery).
		WithArgs("approved", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(1, "First"))

	recitations, err = repo.List(ctx, 20, 0, "")
	require.NoError(t, err)
	assert.Len(t, recitations, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecitationRepository_Search_CombinesFilters(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	surah := 36
	filter := SearchFilter{
		Reciter:     "Alafasy",
		SurahNumber: &surah,
		Tags:        []string{"taraweeh"},
	}

	mock.ExpectQuery(`reciter_name ILIKE .+ AND surah_number = .+ AND \(?tags LIKE`).
		WithArgs("approved", "%Alafasy%", 36, `%"taraweeh"%`, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(5, "Ya-Sin"))

	recitations, err := repo.Search(ctx, filter, 20, 0, "")
	assert.NoError(t, err)
	require.Len(t, recitations, 1)
	assert.Equal(t, uint(5), recitations[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecitationRepository_ListCandidates(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	prefs := Preferences{
		Reciters:   []string{"Alafasy"},
		SurahNames: []string{"Ya-Sin"},
		Tags:       []string{"tajweed"},
	}

	mock.ExpectQuery(`id NOT IN .+ AND \(reciter_name IN .+ OR surah_name IN .+ OR tags LIKE .+\) ORDER BY likes_count DESC`).
		WithArgs("approved", 7, "Alafasy", "Ya-Sin", `%"tajweed"%`, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes_count"}).
			AddRow(3, 40).
			AddRow(8, 12))

	recitations, err := repo.ListCandidates(ctx, prefs, []uint{7}, 10)
	assert.NoError(t, err)
	assert.Len(t, recitations, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecitationRepository_ListCandidates_EmptyPreferences(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	// No preference dimensions: the query degrades to all approved rows
	// minus the excluded ids, with no OR group.
	mock.ExpectQuery(`WHERE status = \$1 AND id NOT IN \(\$2,\$3\) ORDER BY likes_count DESC`).
		WithArgs("approved", 4, 6, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "likes_count"}).AddRow(9, 8))

	recitations, err := repo.ListCandidates(ctx, Preferences{}, []uint{4, 6}, 10)
	assert.NoError(t, err)
	require.Len(t, recitations, 1)
	assert.Equal(t, uint(9), recitations[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecitationRepository_Update_PreservesLedgerColumns(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Recitation{}, &models.Like{}))

	repo := NewRecitationRepository(db)
	ctx := context.Background()

	row := &models.Recitation{
		Title:       "Surah Al-Mulk",
		ReciterName: "Abdul Basit",
		SurahName:   "Al-Mulk",
		UploaderID:  "user-1",
		AudioURL:    "recitations/user-1/a.mp3",
		Status:      models.StatusApproved,
	}
	require.NoError(t, db.Create(row).Error)

	// Copy read before a like toggle and an admin review land.
	stale := *row
	require.NoError(t, db.Model(&models.Recitation{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"likes_count":   3,
			"status":        models.StatusFactCheck,
			"status_reason": "citation needed",
		}).Error)

	stale.Title = "Surah Al-Mulk (Taraweeh)"
	require.NoError(t, repo.Update(ctx, &stale))

	var got models.Recitation
	require.NoError(t, db.First(&got, row.ID).Error)
	assert.Equal(t, "Surah Al-Mulk (Taraweeh)", got.Title)
	assert.Equal(t, 3, got.LikesCount)
	assert.Equal(t, models.StatusFactCheck, got.Status)
	assert.Equal(t, "citation needed", got.StatusReason)
}

func TestRecitationRepository_UpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	t.Run("updates row", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "recitations" SET`).
			WithArgs("approved", "manual review passed", sqlmock.AnyArg(), 4).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, 4, models.StatusApproved, "manual review passed")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent id surfaces not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "recitations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, 999, models.StatusRejected, "")
		assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecitationRepository_ToggleLike(t *testing.T) {
	ctx := context.Background()

	t.Run("creates edge and increments count", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRecitationRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "likes" WHERE user_id = \$1 AND recitation_id = \$2`).
			WithArgs("user-1", 3, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "likes"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectExec(`UPDATE "recitations" SET "likes_count"=likes_count \+ \$1`).
			WithArgs(1, sqlmock.AnyArg(), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		liked, err := repo.ToggleLike(ctx, "user-1", 3)
		assert.NoError(t, err)
		assert.True(t, liked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("removes edge and decrements count", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewRecitationRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "likes" WHERE user_id = \$1 AND recitation_id = \$2`).
			WithArgs("user-1", 3, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "recitation_id"}).
				AddRow(11, "user-1", 3))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes"`)).
			WithArgs(11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "recitations" SET "likes_count"=likes_count - \$1`).
			WithArgs(1, sqlmock.AnyArg(), 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		liked, err := repo.ToggleLike(ctx, "user-1", 3)
		assert.NoError(t, err)
		assert.False(t, liked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecitationRepository_LikedRecitationIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT "recitation_id" FROM "likes" WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"recitation_id"}).
			AddRow(4).
			AddRow(2))

	ids, err := repo.LikedRecitationIDs(ctx, "user-1")
	assert.NoError(t, err)
	assert.Equal(t, []uint{4, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecitationRepository_Delete_RemovesLikesFirst(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRecitationRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes"`)).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "recitations"`)).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(ctx, 6)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
