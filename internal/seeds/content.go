package seeds

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContentSeed struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type contentFile struct {
	Content []ContentSeed `yaml:"content"`
}

// ParseContent reads a seed document. Titles must be present and unique.
func ParseContent(data []byte) ([]ContentSeed, error) {
	var f contentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse content seeds: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Content))
	for i := range f.Content {
		f.Content[i].Title = strings.TrimSpace(f.Content[i].Title)
		f.Content[i].Description = strings.TrimSpace(f.Content[i].Description)
		title := f.Content[i].Title
		if title == "" {
			return nil, fmt.Errorf("content seed %d: title is required", i+1)
		}
		if _, dup := seen[title]; dup {
			return nil, fmt.Errorf("content seed %d: duplicate title %q", i+1, title)
		}
		seen[title] = struct{}{}
	}
	return f.Content, nil
}

func LoadContent(path string) ([]ContentSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return ParseContent(data)
}

// SeedContent inserts every seed whose title is not already present.
func SeedContent(ctx context.Context, db *gorm.DB, items []ContentSeed) (int, error) {
	created := 0
	for _, item := range items {
		var existing store.Content
		err := db.WithContext(ctx).First(&existing, "title = ?", item.Title).Error
		if err == nil {
			log.Printf("⚠️ Content exists, skipping: %s", item.Title)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("DB error on content %s: %w", item.Title, err)
		}

		row := store.Content{ID: uuid.NewString(), Title: item.Title, Description: item.Description}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return created, fmt.Errorf("failed to create content %s: %w", item.Title, err)
		}
		created++
	}

	log.Printf("✅ Seeded %d of %d content items", created, len(items))
	return created, nil
}
