// Command main recomputes posts' likes_count from the like ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"inkpost/internal/config"
	"inkpost/internal/database"
	"inkpost/internal/repository"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	postID := flag.Uint("post", 0, "Reconcile a single post (0 = every post)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ledger := repository.NewLikeLedger(db)
	ctx := context.Background()

	if *postID != 0 {
		repaired, err := ledger.Reconcile(ctx, *postID)
		if err != nil {
			return fmt.Errorf("reconcile post %d: %w", *postID, err)
		}
		count, err := ledger.Count(ctx, *postID)
		if err != nil {
			return fmt.Errorf("count likes of post %d: %w", *postID, err)
		}
		log.Printf("post %d: likes_count=%d repaired=%v", *postID, count, repaired)
		return nil
	}

	repaired, err := ledger.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("reconcile all posts: %w", err)
	}
	log.Printf("repaired %d post counters", repaired)
	return nil
}
