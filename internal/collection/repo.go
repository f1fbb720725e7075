package collection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"comichub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Q      string // keyword search in title/series/author
	Source string // "ComicVine", "MangaDex", "Local"
	Limit  int
	Offset int
}

const itemColumns = `id, user_id, source_id, source, title, series, issue_number,
	author, publisher, publication_date, cover_image_url, description,
	content_rating, status, notes, is_favorite, created_at, updated_at`

// Add inserts a new collection item for its user.
func (r *Repo) Add(ctx context.Context, item models.CollectionItem) error {
	var pubDate any
	if item.PublicationDate != nil {
		pubDate = item.PublicationDate.Format(time.DateOnly)
	}
	var issueNumber any
	if item.IssueNumber != nil {
		issueNumber = *item.IssueNumber
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO collection_items (
			id, user_id, source_id, source, title, series, issue_number,
			author, publisher, publication_date, cover_image_url, description,
			content_rating, status, notes, is_favorite
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.UserID, nullIfEmpty(item.SourceID), item.Source, item.Title,
		nullIfEmpty(item.Series), issueNumber, nullIfEmpty(item.Author),
		nullIfEmpty(item.Publisher), pubDate, nullIfEmpty(item.CoverImageURL),
		nullIfEmpty(item.Description), nullIfEmpty(item.ContentRating),
		nullIfEmpty(item.Status), nullIfEmpty(item.Notes), item.IsFavorite)
	if err != nil {
		return fmt.Errorf("add collection item: %w", err)
	}
	return nil
}

// ExistsBySource reports whether the user already holds an item from
// the given source with the given source id.
func (r *Repo) ExistsBySource(ctx context.Context, userID, source, sourceID string) (bool, error) {
	if sourceID == "" {
		return false, nil
	}
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM collection_items
		WHERE user_id = ? AND source = ? AND source_id = ?
	`, userID, source, sourceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists by source: %w", err)
	}
	return n > 0, nil
}

// GetByID returns one item, scoped to its owner. Missing rows come back
// as nil, not an error.
func (r *Repo) GetByID(ctx context.Context, userID, id string) (*models.CollectionItem, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM collection_items
		WHERE user_id = ? AND id = ?
	`, userID, id)

	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get collection item: %w", err)
	}
	return item, nil
}

// List returns a filtered page of the user's collection plus the total
// matching count.
func (r *Repo) List(ctx context.Context, userID string, q ListQuery) ([]models.CollectionItem, int, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := "WHERE user_id = ?"
	args := []any{userID}
	if kw := strings.TrimSpace(q.Q); kw != "" {
		where += " AND (title LIKE ? OR series LIKE ? OR author LIKE ?)"
		like := "%" + kw + "%"
		args = append(args, like, like, like)
	}
	if q.Source != "" {
		where += " AND source = ?"
		args = append(args, q.Source)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM collection_items "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count collection: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM collection_items "+where+
			" ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	items := make([]models.CollectionItem, 0, q.Limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan collection item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate collection: %w", err)
	}
	return items, total, nil
}

// ListAll returns the user's whole collection, used to build
// recommendation statistics.
func (r *Repo) ListAll(ctx context.Context, userID string) ([]models.CollectionItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM collection_items
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list all collection: %w", err)
	}
	defer rows.Close()

	var items []models.CollectionItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection: %w", err)
	}
	return items, nil
}

// Update persists the mutable fields of an owned item.
func (r *Repo) Update(ctx context.Context, item models.CollectionItem) error {
	var pubDate any
	if item.PublicationDate != nil {
		pubDate = item.PublicationDate.Format(time.DateOnly)
	}
	var issueNumber any
	if item.IssueNumber != nil {
		issueNumber = *item.IssueNumber
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE collection_items SET
			title = ?, series = ?, issue_number = ?, author = ?, publisher = ?,
			publication_date = ?, cover_image_url = ?, description = ?,
			content_rating = ?, status = ?, notes = ?, is_favorite = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND id = ?
	`, item.Title, nullIfEmpty(item.Series), issueNumber, nullIfEmpty(item.Author),
		nullIfEmpty(item.Publisher), pubDate, nullIfEmpty(item.CoverImageURL),
		nullIfEmpty(item.Description), nullIfEmpty(item.ContentRating),
		nullIfEmpty(item.Status), nullIfEmpty(item.Notes), item.IsFavorite,
		item.UserID, item.ID)
	if err != nil {
		return fmt.Errorf("update collection item: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("update collection item: not found")
	}
	return nil
}

// Delete removes an owned item, reporting whether a row existed.
func (r *Repo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM collection_items
		WHERE user_id = ? AND id = ?
	`, userID, id)
	if err != nil {
		return false, fmt.Errorf("delete collection item: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.CollectionItem, error) {
	var (
		item        models.CollectionItem
		sourceID    sql.NullString
		series      sql.NullString
		issueNumber sql.NullInt64
		author      sql.NullString
		publisher   sql.NullString
		pubDate     sql.NullString
		coverURL    sql.NullString
		description sql.NullString
		rating      sql.NullString
		status      sql.NullString
		notes       sql.NullString
	)

	if err := row.Scan(
		&item.ID, &item.UserID, &sourceID, &item.Source, &item.Title, &series,
		&issueNumber, &author, &publisher, &pubDate, &coverURL, &description,
		&rating, &status, &notes, &item.IsFavorite, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.SourceID = sourceID.String
	item.Series = series.String
	if issueNumber.Valid {
		n := int(issueNumber.Int64)
		item.IssueNumber = &n
	}
	item.Author = author.String
	item.Publisher = publisher.String
	if pubDate.Valid && pubDate.String != "" {
		if t, err := time.Parse(time.DateOnly, pubDate.String); err == nil {
			item.PublicationDate = &t
		}
	}
	item.CoverImageURL = coverURL.String
	item.Description = description.String
	item.ContentRating = rating.String
	item.Status = status.String
	item.Notes = notes.String
	return &item, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
