// Package catalog queries the external comic/manga catalogs (ComicVine,
// MangaDex) and a generative-text backend, normalizes their very
// different response shapes into the shared models, and aggregates
// search/browse results across sources.
package catalog

import (
	"context"
	"errors"

	"comichub/pkg/models"
)

// SearchQuery is the input to the aggregator and to each adapter.
// Page is 1-based; adapters that paginate by offset derive it.
type SearchQuery struct {
	Term  string
	Limit int
	Page  int
	Sort  string

	UseComicVine bool
	UseMangaDex  bool

	// SortByCreatedDesc asks MangaDex for newest-first results; used by
	// the featured/browse view.
	SortByCreatedDesc bool
}

// Validation faults. These are user-correctable input errors, reported
// distinctly from upstream/network faults.
var (
	ErrEmptyTerm = errors.New("search term is required")
	ErrNoSources = errors.New("select at least one source (ComicVine or MangaDex)")
)

// ComicSearcher is implemented by the ComicVine adapter.
type ComicSearcher interface {
	SearchIssues(ctx context.Context, q SearchQuery) ([]models.CatalogItem, int, error)
}

// MangaSearcher is implemented by the MangaDex adapter.
type MangaSearcher interface {
	SearchManga(ctx context.Context, q SearchQuery) ([]models.MangaSummary, error)
}
