// Command main runs the database seeder for Minbar.
package main

import (
	"flag"
	"log"

	"minbar/internal/config"
	"minbar/internal/database"
	"minbar/internal/seed"
)

func main() {
	numUploaders := flag.Int("uploaders", 10, "Number of uploader identities to spread rows across")
	numRecitations := flag.Int("recitations", 50, "Number of recitations to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if err := s.Run(seed.Options{
		NumUploaders:   *numUploaders,
		NumRecitations: *numRecitations,
		ShouldClean:    *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
