package models

import "time"

// CollectionItem is a CatalogItem owned by a user, as stored in the DB.
type CollectionItem struct {
	ID              string     `json:"id"`
	UserID          string     `json:"-"`
	SourceID        string     `json:"source_id,omitempty"`
	Source          string     `json:"source"`
	Title           string     `json:"title"`
	Series          string     `json:"series,omitempty"`
	IssueNumber     *int       `json:"issue_number,omitempty"`
	Author          string     `json:"author,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	CoverImageURL   string     `json:"cover_image_url,omitempty"`
	Description     string     `json:"description,omitempty"`
	ContentRating   string     `json:"content_rating,omitempty"`
	Status          string     `json:"status,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	IsFavorite      bool       `json:"is_favorite"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Catalog returns the item's catalog view, used when feeding the
// stored collection back into recommendation and enrichment calls.
func (c CollectionItem) Catalog() CatalogItem {
	return CatalogItem{
		SourceID:        c.SourceID,
		Source:          c.Source,
		Title:           c.Title,
		Series:          c.Series,
		IssueNumber:     c.IssueNumber,
		Author:          c.Author,
		Publisher:       c.Publisher,
		PublicationDate: c.PublicationDate,
		CoverImageURL:   c.CoverImageURL,
		Description:     c.Description,
		ContentRating:   c.ContentRating,
		Status:          c.Status,
	}
}

// ApplyCatalog copies catalog fields onto the stored item, filling only
// fields that are currently empty. Populated fields are never replaced;
// enrichment is additive-only.
func (c *CollectionItem) ApplyCatalog(in CatalogItem) bool {
	changed := false
	if c.Author == "" && in.Author != "" {
		c.Author = in.Author
		changed = true
	}
	if c.Publisher == "" && in.Publisher != "" {
		c.Publisher = in.Publisher
		changed = true
	}
	if c.PublicationDate == nil && in.PublicationDate != nil {
		d := *in.PublicationDate
		c.PublicationDate = &d
		changed = true
	}
	if c.Description == "" && in.Description != "" {
		c.Description = in.Description
		changed = true
	}
	return changed
}
