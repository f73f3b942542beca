// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"minbar/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUploaders   int
	NumRecitations int
	ShouldClean    bool
}

// Seeder populates the database with demo recitations and likes.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all seeded rows. Likes go first to satisfy the
// foreign key on recitations.
func (s *Seeder) ClearAll() error {
	if err := s.db.Exec("DELETE FROM likes").Error; err != nil {
		return fmt.Errorf("clear likes: %w", err)
	}
	if err := s.db.Exec("DELETE FROM recitations").Error; err != nil {
		return fmt.Errorf("clear recitations: %w", err)
	}
	return nil
}

// Run populates the database with test data.
func (s *Seeder) Run(opts Options) error {
	if opts.NumUploaders <= 0 {
		opts.NumUploaders = 10
	}
	if opts.NumRecitations <= 0 {
		opts.NumRecitations = 50
	}

	log.Printf("Seeding %d recitations across %d uploaders...", opts.NumRecitations, opts.NumUploaders)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("Warning: could not clear existing data, continuing anyway...")
		}
	}

	uploaders := s.uploaderIDs(opts.NumUploaders)

	recitations := make([]*models.Recitation, 0, opts.NumRecitations)
	for i := 0; i < opts.NumRecitations; i++ {
		uploader := uploaders[s.rng.Intn(len(uploaders))]
		recitations = append(recitations, s.BuildRecitation(uploader))
	}
	if err := s.db.CreateInBatches(recitations, 100).Error; err != nil {
		return fmt.Errorf("create recitations: %w", err)
	}
	log.Printf("Created %d recitations", len(recitations))

	liked, err := s.seedLikes(recitations, uploaders)
	if err != nil {
		return fmt.Errorf("seed likes: %w", err)
	}
	log.Printf("Created %d likes", liked)

	return nil
}

// uploaderIDs generates stable-looking external subject identifiers.
func (s *Seeder) uploaderIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("seed-user-%s", gofakeit.UUID())
	}
	return ids
}

// seedLikes adds like edges to approved recitations and keeps the
// denormalized likes_count consistent with the ledger rows.
func (s *Seeder) seedLikes(recitations []*models.Recitation, uploaders []string) (int, error) {
	total := 0
	for _, r := range recitations {
		if r.Status != models.StatusApproved {
			continue
		}

		n := s.rng.Intn(len(uploaders))
		likers := s.rng.Perm(len(uploaders))[:n]
		for _, idx := range likers {
			like := &models.Like{
				UserID:       uploaders[idx],
				RecitationID: r.ID,
			}
			if err := s.db.Create(like).Error; err != nil {
				return total, err
			}
			total++
		}
		if n > 0 {
			if err := s.db.Model(&models.Recitation{}).
				Where("id = ?", r.ID).
				Update("likes_count", n).Error; err != nil {
				return total, err
			}
		}
	}
	return total, nil
}
