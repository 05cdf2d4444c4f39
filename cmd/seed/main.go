// Command seed fills the configured database with generated demo data.
package main

import (
	"context"
	"flag"
	"log"

	"kinship/internal/bootstrap"
	"kinship/internal/config"
	"kinship/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	postsPerUser := flag.Int("posts", 5, "Posts per user")
	commentsPerPost := flag.Int("comments", 2, "Comments per post")
	followsPerUser := flag.Int("follows", 3, "Follows per user")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s, err := seed.NewSeeder(db, seed.Options{Seed: *randSeed, BcryptCost: cfg.BcryptCost})
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(seed.Plan{
		Users:           *numUsers,
		PostsPerUser:    *postsPerUser,
		CommentsPerPost: *commentsPerPost,
		FollowsPerUser:  *followsPerUser,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if _, err := bootstrap.EnsureDemoUser(context.Background(), cfg, db); err != nil {
		log.Fatalf("Demo user bootstrap failed: %v", err)
	}

	log.Printf("Done. Every seeded user has the password %q", seed.DefaultPassword)
}
