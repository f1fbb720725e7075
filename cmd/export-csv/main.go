package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"comichub/internal/collection"
	"comichub/pkg/database"
	"comichub/pkg/models"
)

// Exports one user's collection to CSV, usable as a backup or for
// spreadsheet triage. The companion import-csv tool reads the same
// layout back.
func main() {
	var (
		userID = flag.String("user", "", "user id whose collection to export")
		out    = flag.String("out", "data/collection.csv", "output CSV path")
	)
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	repo := collection.NewRepo(db)
	items, err := repo.ListAll(ctx, *userID)
	if err != nil {
		log.Fatalf("load collection failed: %v", err)
	}

	if err := writeCSV(*out, items); err != nil {
		log.Fatalf("export failed: %v", err)
	}
	log.Printf("exported %d items to %s", len(items), *out)
}

func writeCSV(outPath string, items []models.CollectionItem) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"source", "source_id", "title", "series", "issue_number", "author",
		"publisher", "publication_date", "cover_image_url", "description",
		"content_rating", "status", "notes", "is_favorite",
	}); err != nil {
		return err
	}

	for _, item := range items {
		issue := ""
		if item.IssueNumber != nil {
			issue = strconv.Itoa(*item.IssueNumber)
		}
		pubDate := ""
		if item.PublicationDate != nil {
			pubDate = item.PublicationDate.Format(time.DateOnly)
		}
		fav := "0"
		if item.IsFavorite {
			fav = "1"
		}

		if err := w.Write([]string{
			item.Source,
			item.SourceID,
			item.Title,
			item.Series,
			issue,
			item.Author,
			item.Publisher,
			pubDate,
			item.CoverImageURL,
			item.Description,
			item.ContentRating,
			item.Status,
			item.Notes,
			fav,
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
