package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"comichub/internal/catalog"
	"comichub/internal/collection"
	"comichub/pkg/database"
	"comichub/pkg/models"
)

// Imports collection items from a CSV produced by export-csv (or a
// hand-edited one). Rows whose (source, source_id) already exist for
// the user are skipped rather than duplicated.
func main() {
	var (
		userID = flag.String("user", "", "user id to import the collection into")
		in     = flag.String("in", "data/collection.csv", "input CSV path")
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
	added, skipped, err := importCollection(ctx, repo, *userID, *in)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.Printf("imported %d items from %s (%d skipped)", added, *in, skipped)
}

func importCollection(ctx context.Context, repo *collection.Repo, userID, path string) (added, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, 0, err
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, skipped, err
		}
		if len(row) == 0 {
			continue
		}

		title := valueAt(header, row, "title")
		if title == "" {
			skipped++
			continue
		}

		source := valueAt(header, row, "source")
		switch source {
		case models.SourceComicVine, models.SourceMangaDex, models.SourceLocal:
		case "":
			source = models.SourceLocal
		default:
			log.Printf("skipping %q: unknown source %q", title, source)
			skipped++
			continue
		}

		sourceID := valueAt(header, row, "source_id")
		if sourceID != "" {
			exists, err := repo.ExistsBySource(ctx, userID, source, sourceID)
			if err != nil {
				return added, skipped, err
			}
			if exists {
				skipped++
				continue
			}
		}

		item := models.CollectionItem{
			ID:     uuid.NewString(),
			UserID: userID,
		}
		item.Source = source
		item.SourceID = sourceID
		item.Title = title
		item.Series = valueAt(header, row, "series")
		item.Author = valueAt(header, row, "author")
		item.Publisher = valueAt(header, row, "publisher")
		item.CoverImageURL = valueAt(header, row, "cover_image_url")
		item.Description = valueAt(header, row, "description")
		item.ContentRating = valueAt(header, row, "content_rating")
		item.Status = valueAt(header, row, "status")
		item.Notes = valueAt(header, row, "notes")
		item.IsFavorite = valueAt(header, row, "is_favorite") == "1"

		if raw := valueAt(header, row, "issue_number"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				log.Printf("skipping %q: bad issue_number %q", title, raw)
				skipped++
				continue
			}
			item.IssueNumber = &n
		}
		item.PublicationDate = catalog.ParseFuzzyDate(valueAt(header, row, "publication_date"))

		if err := repo.Add(ctx, item); err != nil {
			return added, skipped, err
		}
		added++
	}

	return added, skipped, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
