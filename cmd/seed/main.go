// Command main runs the demo data seeder.
package main

import (
	"context"
	"flag"
	"log"

	"inkpost/internal/config"
	"inkpost/internal/database"
	"inkpost/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	visitorLikes := flag.Int("visitor-likes", defaults.VisitorLikesPerPost, "Anonymous likes per post")
	replyPercent := flag.Int("reply-percent", defaults.ReplyPercent, "Chance (0-100) that a comment is a reply")
	randSeed := flag.Int64("rand-seed", 0, "Random seed for reproducible data (0 = random)")
	fast := flag.Bool("fast", false, "Skip bcrypt hashing of seeded passwords")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db, seed.Options{
		Users:               *numUsers,
		Posts:               *numPosts,
		CommentsPerPost:     *comments,
		VisitorLikesPerPost: *visitorLikes,
		ReplyPercent:        *replyPercent,
		RandSeed:            *randSeed,
		SkipBcrypt:          *fast,
	})
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d likes",
		summary.Users, summary.Posts, summary.Comments, summary.Likes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
