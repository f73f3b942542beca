package seed

import (
	"fmt"
	"time"

	"minbar/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

type surahRef struct {
	Number int
	Name   string
}

var (
	surahs = []surahRef{
		{1, "Al-Fatiha"},
		{2, "Al-Baqarah"},
		{3, "Aal-E-Imran"},
		{12, "Yusuf"},
		{18, "Al-Kahf"},
		{19, "Maryam"},
		{36, "Ya-Sin"},
		{55, "Ar-Rahman"},
		{56, "Al-Waqia"},
		{67, "Al-Mulk"},
		{73, "Al-Muzzammil"},
		{78, "An-Naba"},
		{87, "Al-Ala"},
		{93, "Ad-Duha"},
		{112, "Al-Ikhlas"},
	}

	reciters = []string{
		"Mishary Alafasy",
		"Abdul Basit",
		"Saad Al-Ghamdi",
		"Maher Al-Muaiqly",
		"Abdur-Rahman As-Sudais",
		"Yasser Al-Dosari",
		"Fatih Seferagic",
		"Islam Sobhi",
	}

	masjids = []struct {
		Name     string
		Location string
	}{
		{"Masjid Al-Noor", "Dearborn, MI"},
		{"Islamic Center of Greater Toledo", "Toledo, OH"},
		{"East London Mosque", "London, UK"},
		{"Masjid An-Nabawi Community Center", "Houston, TX"},
		{"Dar Al-Hijrah", "Falls Church, VA"},
		{"Islamic Society of Boston", "Boston, MA"},
	}

	tagPool = []string{
		"taraweeh", "tajweed", "murattal", "mujawwad",
		"fajr", "isha", "jummah", "juz-amma", "slow", "melodious",
	}
)

// BuildRecitation constructs an unsaved recitation with plausible metadata.
// Roughly four of five rows come out approved so lists and recommendations
// have something to show; the rest stay in the review queue.
func (s *Seeder) BuildRecitation(uploaderID string) *models.Recitation {
	surah := surahs[s.rng.Intn(len(surahs))]
	reciter := reciters[s.rng.Intn(len(reciters))]
	masjid := masjids[s.rng.Intn(len(masjids))]
	surahNumber := surah.Number

	r := &models.Recitation{
		Title:          fmt.Sprintf("Surah %s - %s", surah.Name, reciter),
		ReciterName:    reciter,
		MasjidName:     masjid.Name,
		MasjidLocation: masjid.Location,
		SurahName:      surah.Name,
		SurahNumber:    &surahNumber,
		Description:    gofakeit.Sentence(10),
		Tags:           s.pickTags(),
		UploaderID:     uploaderID,
		AudioURL:       fmt.Sprintf("recitations/%s/%s.mp3", uploaderID, uuid.NewString()),
		Status:         models.StatusApproved,
	}

	if s.rng.Intn(5) == 0 {
		r.Status = models.StatusPending
	}

	// realistic created_at spread over the last 90 days
	daysBack := s.rng.Intn(90)
	hoursBack := s.rng.Intn(24)
	r.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	return r
}

func (s *Seeder) pickTags() []string {
	n := 1 + s.rng.Intn(3)
	perm := s.rng.Perm(len(tagPool))[:n]
	tags := make([]string, 0, n)
	for _, idx := range perm {
		tags = append(tags, tagPool[idx])
	}
	return tags
}
