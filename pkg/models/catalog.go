package models

import "time"

// Provenance tags for CatalogItem.Source. Every persisted item carries
// exactly one of these; non-Local items also keep their upstream SourceID.
const (
	SourceComicVine = "ComicVine"
	SourceMangaDex  = "MangaDex"
	SourceLocal     = "Local"
)

// CatalogItem is the normalized, internal form of a comic/manga entry
// used by the catalog adapters and the collection layer.
//
// All external sources are mapped into this structure first, then we
// persist from this representation. Optional fields are pointers or
// empty strings; PublicationDate is nil when the source data could not
// be parsed (never a sentinel date).
type CatalogItem struct {
	SourceID        string     `json:"source_id,omitempty"`
	Source          string     `json:"source"`
	Title           string     `json:"title"`
	Series          string     `json:"series,omitempty"`
	IssueNumber     *int       `json:"issue_number,omitempty"`
	Author          string     `json:"author,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	CoverImageURL   string     `json:"cover_image_url,omitempty"`
	Description     string     `json:"description,omitempty"` // HTML already stripped
	ContentRating   string     `json:"content_rating,omitempty"`
	Status          string     `json:"status,omitempty"`
}

// MangaSummary is the MangaDex-specific result shape. It keeps the
// fields that have no ComicVine counterpart (status, content rating,
// sort date) and converts to CatalogItem for the merged views.
type MangaSummary struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description,omitempty"`
	CoverImageURL          string     `json:"cover_image_url,omitempty"`
	Author                 string     `json:"author,omitempty"`
	Year                   *int       `json:"year,omitempty"`
	Status                 string     `json:"status,omitempty"`
	ContentRating          string     `json:"content_rating,omitempty"`
	PublicationDateForSort *time.Time `json:"publication_date_for_sort,omitempty"` // ordering only, nil = unknown
}

// ToCatalogItem maps a manga summary to the shared normalized shape.
// The display date comes from the published year alone; the sort date
// may carry the resource's createdAt timestamp and must never surface
// as a publication date.
func (m MangaSummary) ToCatalogItem() CatalogItem {
	item := CatalogItem{
		SourceID:      m.ID,
		Source:        SourceMangaDex,
		Title:         m.Title,
		Author:        m.Author,
		CoverImageURL: m.CoverImageURL,
		Description:   m.Description,
		ContentRating: m.ContentRating,
		Status:        m.Status,
	}
	if m.Year != nil {
		d := time.Date(*m.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		item.PublicationDate = &d
	}
	return item
}

// Recommendation is one suggested title with a one-line rationale.
type Recommendation struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
}

// RecommendationResult holds the two recommendation lists, one per
// category, in the order the upstream produced them.
type RecommendationResult struct {
	Comics []Recommendation `json:"comics"`
	Manga  []Recommendation `json:"manga"`
}
