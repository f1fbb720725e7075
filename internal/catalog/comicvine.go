package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"comichub/pkg/models"
)

const (
	comicVineBase      = "https://comicvine.gamespot.com/api"
	comicVineFieldList = "id,name,issue_number,description,image,volume,person_credits,cover_date,store_date"
	userAgent          = "ComicHub/1.0"
)

// ComicVineClient searches the ComicVine issue catalog.
type ComicVineClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewComicVineClient(apiKey string) *ComicVineClient {
	return &ComicVineClient{
		BaseURL: comicVineBase,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 12 * time.Second},
	}
}

type cvResponse struct {
	Error                string    `json:"error"` // must be the literal "OK"
	NumberOfTotalResults int       `json:"number_of_total_results"`
	Results              []cvIssue `json:"results"`
}

type cvIssue struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IssueNumber string `json:"issue_number"`
	Description string `json:"description"`
	CoverDate   string `json:"cover_date"`
	StoreDate   string `json:"store_date"`
	Volume      *struct {
		Name string `json:"name"`
	} `json:"volume"`
	Image *struct {
		SmallURL    string `json:"small_url"`
		ThumbURL    string `json:"thumb_url"`
		IconURL     string `json:"icon_url"`
		OriginalURL string `json:"original_url"`
	} `json:"image"`
	PersonCredits []cvPersonCredit `json:"person_credits"`
}

type cvPersonCredit struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// SearchIssues runs one issue search and maps the results into
// CatalogItems. A missing API key is a configuration gap, not a fault:
// it logs and returns an empty result without calling out. Upstream
// faults (non-2xx, bad envelope) come back as a wrapped error with the
// result left empty; nothing here panics past the adapter boundary.
func (s *ComicVineClient) SearchIssues(ctx context.Context, q SearchQuery) ([]models.CatalogItem, int, error) {
	if s.APIKey == "" {
		log.Printf("[comicvine] no API key configured, skipping search")
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 12
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	u, _ := url.Parse(s.BaseURL + "/search")
	params := u.Query()
	params.Set("api_key", s.APIKey)
	params.Set("format", "json")
	if strings.TrimSpace(q.Term) != "" {
		params.Set("query", q.Term)
	}
	params.Set("resources", "issue")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	params.Set("field_list", comicVineFieldList)
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("comicvine: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("comicvine: request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[comicvine] search failed: status %d url=%s body=%s", resp.StatusCode, redactAPIKey(u), truncateBody(body, 500))
		return nil, 0, fmt.Errorf("comicvine: status %d", resp.StatusCode)
	}

	var cv cvResponse
	if err := json.Unmarshal(body, &cv); err != nil {
		return nil, 0, fmt.Errorf("comicvine: decode: %w", err)
	}
	if cv.Error != "OK" || cv.Results == nil {
		log.Printf("[comicvine] bad envelope: error=%q results=%d", cv.Error, len(cv.Results))
		return nil, 0, fmt.Errorf("comicvine: api error %q", cv.Error)
	}

	items := make([]models.CatalogItem, 0, len(cv.Results))
	for _, issue := range cv.Results {
		items = append(items, mapIssue(issue))
	}
	return items, cv.NumberOfTotalResults, nil
}

// redactAPIKey replaces the api_key query parameter before a URL is
// logged. url.URL.Redacted only masks userinfo, not query params.
func redactAPIKey(u *url.URL) string {
	masked := *u
	q := masked.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
	}
	masked.RawQuery = q.Encode()
	return masked.String()
}

func mapIssue(issue cvIssue) models.CatalogItem {
	title := issue.Name
	if title == "" {
		title = "N/A"
	}
	series := "N/A"
	if issue.Volume != nil && issue.Volume.Name != "" {
		series = issue.Volume.Name
	}

	var issueNumber *int
	if n, err := strconv.Atoi(strings.TrimSpace(issue.IssueNumber)); err == nil {
		issueNumber = &n
	}

	// Small/thumb/icon only; the original-resolution URL is too heavy
	// to hand out by default.
	cover := ""
	if img := issue.Image; img != nil {
		switch {
		case img.SmallURL != "":
			cover = img.SmallURL
		case img.ThumbURL != "":
			cover = img.ThumbURL
		case img.IconURL != "":
			cover = img.IconURL
		}
	}

	date := ParseFuzzyDate(issue.CoverDate)
	if date == nil {
		date = ParseFuzzyDate(issue.StoreDate)
	}

	publisher := "Unknown"
	if issue.Volume != nil && issue.Volume.Name != "" {
		publisher = PublisherForSeries(issue.Volume.Name)
	}

	return models.CatalogItem{
		SourceID:        strconv.Itoa(issue.ID),
		Source:          models.SourceComicVine,
		Title:           title,
		Series:          series,
		IssueNumber:     issueNumber,
		Author:          creditedAuthors(issue.PersonCredits),
		Publisher:       publisher,
		PublicationDate: date,
		CoverImageURL:   cover,
		Description:     StripHTML(issue.Description),
	}
}

// creditedAuthors prefers credited persons whose role mentions "writer";
// with no writers it falls back to the first two credited names.
func creditedAuthors(credits []cvPersonCredit) string {
	if len(credits) == 0 {
		return ""
	}

	writers := make([]string, 0, len(credits))
	for _, pc := range credits {
		if strings.Contains(strings.ToLower(pc.Role), "writer") {
			writers = append(writers, pc.Name)
		}
	}
	if len(writers) > 0 {
		return strings.Join(writers, ", ")
	}

	names := make([]string, 0, 2)
	for _, pc := range credits {
		names = append(names, pc.Name)
		if len(names) == 2 {
			break
		}
	}
	return strings.Join(names, ", ")
}
