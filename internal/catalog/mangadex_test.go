package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const mangaEnvelope = `{
	"result": "ok",
	"data": [{
		"id": "m1",
		"type": "manga",
		"attributes": {
			"title": {"en": "Solo Adventurer"},
			"description": {"en": "<p>An adventurer goes solo.</p>"},
			"status": "ongoing",
			"year": 2019,
			"contentRating": "safe",
			"createdAt": "2020-05-01T00:00:00+00:00"
		},
		"relationships": [
			{"id": "a1", "type": "author", "attributes": {"name": "Aoi Writer"}},
			{"id": "a1", "type": "artist", "attributes": {"name": "Aoi Writer"}},
			{"id": "a2", "type": "artist", "attributes": {"name": "Ren Artist"}},
			{"id": "cov1", "type": "cover_art", "attributes": {}}
		]
	}]
}`

func newMangaDexTestClient(handler http.Handler) (*MangaDexClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewMangaDexClient()
	client.BaseURL = server.URL
	client.CoverBaseURL = "http://covers.test"
	return client, server
}

func TestSearchMangaTwoStageCover(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		includes := r.URL.Query()["includes[]"]
		if len(includes) != 3 {
			t.Errorf("includes[] = %v, want cover_art, author, artist", includes)
		}
		_, _ = w.Write([]byte(mangaEnvelope))
	})
	mux.HandleFunc("/cover/cov1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": "ok", "data": {"id": "cov1", "attributes": {"fileName": "abc.jpg"}}}`))
	})

	client, server := newMangaDexTestClient(mux)
	defer server.Close()

	items, err := client.SearchManga(context.Background(), SearchQuery{Term: "solo", Limit: 5})
	if err != nil {
		t.Fatalf("SearchManga: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	m := items[0]
	if m.Title != "Solo Adventurer" {
		t.Errorf("Title = %q", m.Title)
	}
	if m.Description != "An adventurer goes solo." {
		t.Errorf("Description = %q, want stripped text", m.Description)
	}
	if m.Author != "Aoi Writer, Ren Artist" {
		t.Errorf("Author = %q, want deduped author+artist", m.Author)
	}
	if m.CoverImageURL != "http://covers.test/m1/abc.jpg" {
		t.Errorf("CoverImageURL = %q, want composed cover URL", m.CoverImageURL)
	}
	if m.Year == nil || *m.Year != 2019 {
		t.Errorf("Year = %v", m.Year)
	}
	if m.PublicationDateForSort == nil || m.PublicationDateForSort.Year() != 2019 {
		t.Errorf("PublicationDateForSort = %v, want Jan 1 2019", m.PublicationDateForSort)
	}
	if m.ContentRating != "safe" || m.Status != "ongoing" {
		t.Errorf("rating/status = %q/%q", m.ContentRating, m.Status)
	}
}

func TestSearchMangaCoverFailureIsPerItem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mangaEnvelope))
	})
	mux.HandleFunc("/cover/cov1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	client, server := newMangaDexTestClient(mux)
	defer server.Close()

	items, err := client.SearchManga(context.Background(), SearchQuery{Term: "solo"})
	if err != nil {
		t.Fatalf("a cover failure must not fail the search: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].CoverImageURL != "" {
		t.Fatalf("CoverImageURL = %q, want empty after failed lookup", items[0].CoverImageURL)
	}
}

func TestSearchMangaIncludedFileNameSkipsSecondCall(t *testing.T) {
	envelope := strings.Replace(mangaEnvelope,
		`{"id": "cov1", "type": "cover_art", "attributes": {}}`,
		`{"id": "cov1", "type": "cover_art", "attributes": {"fileName": "inline.png"}}`, 1)

	coverCalled := false
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope))
	})
	mux.HandleFunc("/cover/", func(w http.ResponseWriter, r *http.Request) {
		coverCalled = true
	})

	client, server := newMangaDexTestClient(mux)
	defer server.Close()

	items, err := client.SearchManga(context.Background(), SearchQuery{Term: "solo"})
	if err != nil {
		t.Fatalf("SearchManga: %v", err)
	}
	if items[0].CoverImageURL != "http://covers.test/m1/inline.png" {
		t.Fatalf("CoverImageURL = %q", items[0].CoverImageURL)
	}
	if coverCalled {
		t.Fatal("cover endpoint must not be called when the include already has the file name")
	}
}

func TestSearchMangaBadEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": "error"}`))
	})
	client, server := newMangaDexTestClient(mux)
	defer server.Close()

	items, err := client.SearchManga(context.Background(), SearchQuery{Term: "solo"})
	if err == nil {
		t.Fatal("expected an error for a non-ok envelope")
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result, got %d", len(items))
	}
}

func TestSearchMangaFeaturedSort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order[createdAt]"); got != "desc" {
			t.Errorf("order[createdAt] = %q, want desc", got)
		}
		if r.URL.Query().Has("title") {
			t.Error("blank term must omit the title filter")
		}
		_, _ = w.Write([]byte(`{"result": "ok", "data": []}`))
	})
	client, server := newMangaDexTestClient(mux)
	defer server.Close()

	if _, err := client.SearchManga(context.Background(), SearchQuery{SortByCreatedDesc: true}); err != nil {
		t.Fatalf("SearchManga: %v", err)
	}
}

func TestPreferredText(t *testing.T) {
	if got := preferredText(map[string]string{"en": "Hello", "ja": "こんにちは"}); got != "Hello" {
		t.Fatalf("preferredText = %q, want en value", got)
	}
	// en blank: first non-blank by sorted key
	if got := preferredText(map[string]string{"en": "  ", "ja": "こんにちは", "fr": "Bonjour"}); got != "Bonjour" {
		t.Fatalf("preferredText fallback = %q, want Bonjour", got)
	}
	if got := preferredText(map[string]string{"en": "", "ja": " "}); got != "N/A" {
		t.Fatalf("preferredText all blank = %q, want N/A", got)
	}
	if got := preferredText(nil); got != "N/A" {
		t.Fatalf("preferredText(nil) = %q, want N/A", got)
	}
}

func TestResolveCoverURLErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cover/nofile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": "ok", "data": {"attributes": {}}}`))
	})
	client, server := newMangaDexTestClient(mux)
	defer server.Close()

	if _, err := client.ResolveCoverURL(context.Background(), "m1", "nofile"); err == nil {
		t.Fatal("expected an error when the file name is missing")
	}
	if _, err := client.ResolveCoverURL(context.Background(), "", "cov1"); err == nil {
		t.Fatal("expected an error for missing ids")
	}
}
