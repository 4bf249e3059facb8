package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/db"
	"github.com/EmpoweredVote/collective-backend/internal/seeds"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/joho/godotenv"
)

var (
	file   = flag.String("file", "seeds/content.yaml", "Path to the content seed file")
	dryRun = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	items, err := seeds.LoadContent(*file)
	if err != nil {
		log.Fatalf("❌ Loading seeds failed: %v", err)
	}
	log.Printf("Loaded %d content items from %s", len(items), *file)

	if *dryRun {
		for _, item := range items {
			log.Printf("  - %s", item.Title)
		}
		log.Println("Dry run complete. No changes made.")
		return
	}

	db.Connect(os.Getenv("DATABASE_URL"))
	store.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := seeds.SeedContent(ctx, db.DB, items); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
