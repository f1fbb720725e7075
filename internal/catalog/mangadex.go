package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"comichub/pkg/models"
)

const (
	mangaDexBase      = "https://api.mangadex.org"
	mangaDexCoverBase = "https://uploads.mangadex.org/covers"
)

// MangaDexClient searches the MangaDex catalog. Cover images need a
// second lookup: the search response only carries a cover_art
// relationship id, and the actual file name lives behind /cover/{id}.
type MangaDexClient struct {
	BaseURL      string
	CoverBaseURL string
	Client       *http.Client
}

func NewMangaDexClient() *MangaDexClient {
	return &MangaDexClient{
		BaseURL:      mangaDexBase,
		CoverBaseURL: mangaDexCoverBase,
		Client:       &http.Client{Timeout: 12 * time.Second},
	}
}

type mdSearchResponse struct {
	Result string    `json:"result"` // must be "ok"
	Data   []mdManga `json:"data"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Total  int       `json:"total"`
}

type mdManga struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Title         map[string]string `json:"title"`
		Description   map[string]string `json:"description"`
		Status        string            `json:"status"`
		Year          *int              `json:"year"`
		ContentRating string            `json:"contentRating"`
		CreatedAt     string            `json:"createdAt"`
	} `json:"attributes"`
	Relationships []mdRelationship `json:"relationships"`
}

type mdRelationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"` // "author", "artist", "cover_art"
	Attributes struct {
		Name     string `json:"name"`     // author / artist
		FileName string `json:"fileName"` // cover_art, when included
	} `json:"attributes"`
}

type mdCoverResponse struct {
	Result string `json:"result"`
	Data   struct {
		ID         string `json:"id"`
		Attributes struct {
			FileName string `json:"fileName"`
		} `json:"attributes"`
	} `json:"data"`
}

// SearchManga runs one catalog search and maps each result into a
// MangaSummary. Cover lookups that fail only leave that one item
// without a cover; they never fail the search.
func (s *MangaDexClient) SearchManga(ctx context.Context, q SearchQuery) ([]models.MangaSummary, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 12
	}
	offset := 0
	if q.Page > 1 {
		offset = (q.Page - 1) * limit
	}

	u, _ := url.Parse(s.BaseURL + "/manga")
	params := u.Query()
	if strings.TrimSpace(q.Term) != "" {
		params.Set("title", q.Term)
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Add("includes[]", "cover_art")
	params.Add("includes[]", "author")
	params.Add("includes[]", "artist")
	if q.SortByCreatedDesc {
		params.Set("order[createdAt]", "desc")
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("mangadex: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mangadex: request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[mangadex] search failed: status %d url=%s body=%s", resp.StatusCode, u.String(), truncateBody(body, 500))
		return nil, fmt.Errorf("mangadex: status %d", resp.StatusCode)
	}

	var md mdSearchResponse
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("mangadex: decode: %w", err)
	}
	if md.Result != "ok" || md.Data == nil {
		log.Printf("[mangadex] bad envelope: result=%q", md.Result)
		return nil, fmt.Errorf("mangadex: api result %q", md.Result)
	}

	summaries := make([]models.MangaSummary, 0, len(md.Data))
	for _, item := range md.Data {
		if item.ID == "" {
			continue
		}
		sm := s.mapManga(ctx, item)
		summaries = append(summaries, sm)
	}
	return summaries, nil
}

func (s *MangaDexClient) mapManga(ctx context.Context, item mdManga) models.MangaSummary {
	attrs := item.Attributes

	sm := models.MangaSummary{
		ID:            item.ID,
		Title:         preferredText(attrs.Title),
		Description:   StripHTML(preferredText(attrs.Description)),
		Author:        relationshipNames(item.Relationships),
		Year:          attrs.Year,
		Status:        attrs.Status,
		ContentRating: attrs.ContentRating,
	}

	// Sort date: original publication year, else the resource's
	// creation timestamp, else unknown. Ordering only; never shown as
	// the publication date.
	if attrs.Year != nil {
		d := time.Date(*attrs.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		sm.PublicationDateForSort = &d
	} else if t, err := time.Parse(time.RFC3339, attrs.CreatedAt); err == nil {
		sm.PublicationDateForSort = &t
	}

	coverRelID := ""
	for _, rel := range item.Relationships {
		if rel.Type != "cover_art" {
			continue
		}
		if rel.Attributes.FileName != "" {
			// includes[] already delivered the file name; no second call needed
			sm.CoverImageURL = fmt.Sprintf("%s/%s/%s", s.CoverBaseURL, item.ID, rel.Attributes.FileName)
		} else if coverRelID == "" {
			coverRelID = rel.ID
		}
		break
	}

	if sm.CoverImageURL == "" && coverRelID != "" {
		coverURL, err := s.ResolveCoverURL(ctx, item.ID, coverRelID)
		if err != nil {
			log.Printf("[mangadex] cover lookup failed for manga %s cover %s: %v", item.ID, coverRelID, err)
		} else {
			sm.CoverImageURL = coverURL
		}
	}

	return sm
}

// ResolveCoverURL fetches the stored file name for one cover_art id and
// composes the public URL {coverBase}/{mangaID}/{fileName}.
func (s *MangaDexClient) ResolveCoverURL(ctx context.Context, mangaID, coverID string) (string, error) {
	if mangaID == "" || coverID == "" {
		return "", fmt.Errorf("mangadex: cover lookup needs manga and cover ids")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/cover/"+coverID, nil)
	if err != nil {
		return "", fmt.Errorf("mangadex: build cover request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mangadex: cover request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mangadex: cover status %d", resp.StatusCode)
	}

	var cover mdCoverResponse
	if err := json.Unmarshal(body, &cover); err != nil {
		return "", fmt.Errorf("mangadex: decode cover: %w", err)
	}
	if cover.Result != "ok" || cover.Data.Attributes.FileName == "" {
		return "", fmt.Errorf("mangadex: cover result %q, missing file name", cover.Result)
	}

	return fmt.Sprintf("%s/%s/%s", s.CoverBaseURL, mangaID, cover.Data.Attributes.FileName), nil
}

// preferredText resolves a multilingual text map: prefer "en", then the
// first non-blank value by sorted key (Go maps have no natural order,
// so sorted keys keep the fallback deterministic), then "N/A".
func preferredText(m map[string]string) string {
	if m == nil {
		return "N/A"
	}
	if v := strings.TrimSpace(m["en"]); v != "" {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return "N/A"
}

// relationshipNames collects author and artist names, de-duplicated
// across both roles, joined by comma. No names means "Unknown".
func relationshipNames(rels []mdRelationship) string {
	seen := make(map[string]struct{})
	names := make([]string, 0, len(rels))
	for _, rel := range rels {
		if rel.Type != "author" && rel.Type != "artist" {
			continue
		}
		name := strings.TrimSpace(rel.Attributes.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}
