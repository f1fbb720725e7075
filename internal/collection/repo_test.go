package collection

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"comichub/pkg/database"
	"comichub/pkg/models"
)

const testUserID = "user-1"

func newTestRepo(t *testing.T) *Repo {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// each new connection would get its own empty in-memory db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, 'tester', 'tester@example.com', 'x')
	`, testUserID); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return NewRepo(db)
}

func TestAddAndGetRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	issue := 7
	pubDate := time.Date(1987, 2, 1, 0, 0, 0, 0, time.UTC)
	item := models.CollectionItem{
		ID:              "item-1",
		UserID:          testUserID,
		SourceID:        "12345",
		Source:          models.SourceComicVine,
		Title:           "Batman: Year One",
		Series:          "Batman",
		IssueNumber:     &issue,
		Author:          "Frank Miller",
		Publisher:       "DC Comics",
		PublicationDate: &pubDate,
		Notes:           "signed copy",
		IsFavorite:      true,
	}
	if err := repo.Add(ctx, item); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := repo.GetByID(ctx, testUserID, "item-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil for existing item")
	}
	if got.Title != item.Title || got.Author != item.Author || got.Notes != item.Notes {
		t.Errorf("roundtrip mismatch: got %+v", got)
	}
	if got.IssueNumber == nil || *got.IssueNumber != issue {
		t.Errorf("issue number = %v, want %d", got.IssueNumber, issue)
	}
	if got.PublicationDate == nil || !got.PublicationDate.Equal(pubDate) {
		t.Errorf("publication date = %v, want %v", got.PublicationDate, pubDate)
	}
	if !got.IsFavorite {
		t.Error("IsFavorite not persisted")
	}
}

func TestAddStoresEmptyOptionalFieldsAsNull(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := models.CollectionItem{
		ID:     "item-min",
		UserID: testUserID,
		Source: models.SourceLocal,
		Title:  "Sketchbook",
	}
	if err := repo.Add(ctx, item); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := repo.GetByID(ctx, testUserID, "item-min")
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v, %v", got, err)
	}
	if got.IssueNumber != nil || got.PublicationDate != nil {
		t.Errorf("expected nil optionals, got issue=%v date=%v", got.IssueNumber, got.PublicationDate)
	}
	if got.Author != "" || got.Series != "" {
		t.Errorf("expected empty strings, got author=%q series=%q", got.Author, got.Series)
	}
}

func TestGetByIDScopesToOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Add(ctx, models.CollectionItem{
		ID: "item-1", UserID: testUserID, Source: models.SourceLocal, Title: "Mine",
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := repo.GetByID(ctx, "someone-else", "item-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Error("expected nil for another user's item")
	}
}

func TestExistsBySource(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Add(ctx, models.CollectionItem{
		ID: "item-1", UserID: testUserID,
		Source: models.SourceMangaDex, SourceID: "md-1", Title: "Berserk",
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	exists, err := repo.ExistsBySource(ctx, testUserID, models.SourceMangaDex, "md-1")
	if err != nil {
		t.Fatalf("ExistsBySource: %v", err)
	}
	if !exists {
		t.Error("expected existing item to be found")
	}

	exists, err = repo.ExistsBySource(ctx, testUserID, models.SourceComicVine, "md-1")
	if err != nil {
		t.Fatalf("ExistsBySource: %v", err)
	}
	if exists {
		t.Error("source mismatch should not count as existing")
	}

	// empty source_id never matches (Local items)
	exists, err = repo.ExistsBySource(ctx, testUserID, models.SourceMangaDex, "")
	if err != nil {
		t.Fatalf("ExistsBySource: %v", err)
	}
	if exists {
		t.Error("empty source_id should never match")
	}
}

func TestListFiltersAndCounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []models.CollectionItem{
		{ID: "a", Source: models.SourceComicVine, SourceID: "1", Title: "Batman: Year One", Series: "Batman", Author: "Frank Miller"},
		{ID: "b", Source: models.SourceComicVine, SourceID: "2", Title: "Watchmen", Author: "Alan Moore"},
		{ID: "c", Source: models.SourceMangaDex, SourceID: "3", Title: "Berserk", Author: "Kentaro Miura"},
	}
	for _, item := range seed {
		item.UserID = testUserID
		if err := repo.Add(ctx, item); err != nil {
			t.Fatalf("Add %s: %v", item.ID, err)
		}
	}

	items, total, err := repo.List(ctx, testUserID, ListQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("unfiltered list: total=%d len=%d, want 3/3", total, len(items))
	}

	items, total, err = repo.List(ctx, testUserID, ListQuery{Q: "batman"})
	if err != nil {
		t.Fatalf("List keyword: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != "a" {
		t.Errorf("keyword filter: total=%d items=%v", total, items)
	}

	items, total, err = repo.List(ctx, testUserID, ListQuery{Source: models.SourceMangaDex})
	if err != nil {
		t.Fatalf("List source: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != "c" {
		t.Errorf("source filter: total=%d items=%v", total, items)
	}

	items, total, err = repo.List(ctx, testUserID, ListQuery{Limit: 2})
	if err != nil {
		t.Fatalf("List paged: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Errorf("paging: total=%d len=%d, want total 3 and 2 items", total, len(items))
	}
}

func TestUpdateMissingItem(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Update(context.Background(), models.CollectionItem{
		ID: "nope", UserID: testUserID, Title: "Ghost",
	})
	if err == nil {
		t.Fatal("expected error updating a missing item")
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Add(ctx, models.CollectionItem{
		ID: "item-1", UserID: testUserID, Source: models.SourceLocal, Title: "Zine",
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	found, err := repo.Delete(ctx, testUserID, "item-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !found {
		t.Error("expected delete of existing item to report found")
	}

	found, err = repo.Delete(ctx, testUserID, "item-1")
	if err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	if found {
		t.Error("second delete should report not found")
	}
}
