package catalog

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"sync"

	"comichub/pkg/models"
)

// SearchResult carries each source's results plus its error, so one
// broken source degrades to an empty list without hiding that it broke.
type SearchResult struct {
	ComicVine      []models.CatalogItem
	ComicVineTotal int
	ComicVineErr   error

	MangaDex    []models.MangaSummary
	MangaDexErr error
}

// Aggregator fans a query out to the enabled catalog sources and merges
// the results. Each source goroutine writes only its own slot; the
// merge happens after the join barrier, so no locking is needed.
type Aggregator struct {
	ComicVine ComicSearcher
	MangaDex  MangaSearcher

	// FeaturedPerSource caps how many items each source contributes to
	// the featured pool. Zero means the default of 12.
	FeaturedPerSource int
}

func NewAggregator(comicVine ComicSearcher, mangaDex MangaSearcher) *Aggregator {
	return &Aggregator{ComicVine: comicVine, MangaDex: mangaDex}
}

// Search validates the query and invokes the enabled sources
// concurrently. Validation faults (ErrEmptyTerm, ErrNoSources) are the
// caller's to fix; upstream faults land in the per-source error slots.
func (a *Aggregator) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if strings.TrimSpace(q.Term) == "" {
		return nil, ErrEmptyTerm
	}
	if !q.UseComicVine && !q.UseMangaDex {
		return nil, ErrNoSources
	}

	res := &SearchResult{
		ComicVine: []models.CatalogItem{},
		MangaDex:  []models.MangaSummary{},
	}

	var wg sync.WaitGroup

	if q.UseComicVine {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, total, err := a.ComicVine.SearchIssues(ctx, q)
			if err != nil {
				log.Printf("[aggregator] comicvine search error for %q: %v", q.Term, err)
				res.ComicVineErr = err
				return
			}
			res.ComicVine = items
			res.ComicVineTotal = total
		}()
	}

	if q.UseMangaDex {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := a.MangaDex.SearchManga(ctx, q)
			if err != nil {
				log.Printf("[aggregator] mangadex search error for %q: %v", q.Term, err)
				res.MangaDexErr = err
				return
			}
			res.MangaDex = items
		}()
	}

	wg.Wait()
	return res, nil
}

// BrowseFeatured queries every source with an empty term, merges both
// pools into one normalized list, shuffles for display variety and
// truncates to maxItems. Source failures shrink the pool instead of
// failing the browse.
func (a *Aggregator) BrowseFeatured(ctx context.Context, maxItems int) []models.CatalogItem {
	if maxItems <= 0 {
		maxItems = 10
	}
	perSource := a.FeaturedPerSource
	if perSource <= 0 {
		perSource = 12
	}

	var (
		wg      sync.WaitGroup
		cvItems []models.CatalogItem
		mdItems []models.MangaSummary
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		items, _, err := a.ComicVine.SearchIssues(ctx, SearchQuery{Limit: perSource, Page: 1})
		if err != nil {
			log.Printf("[aggregator] featured comicvine error: %v", err)
			return
		}
		cvItems = items
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		items, err := a.MangaDex.SearchManga(ctx, SearchQuery{Limit: perSource, Page: 1, SortByCreatedDesc: true})
		if err != nil {
			log.Printf("[aggregator] featured mangadex error: %v", err)
			return
		}
		mdItems = items
	}()

	wg.Wait()

	pool := make([]models.CatalogItem, 0, len(cvItems)+len(mdItems))
	pool = append(pool, cvItems...)
	for _, m := range mdItems {
		pool = append(pool, m.ToCatalogItem())
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > maxItems {
		pool = pool[:maxItems]
	}
	return pool
}
