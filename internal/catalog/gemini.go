package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"comichub/pkg/models"
)

const (
	geminiBase  = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiModel = "gemini-1.5-flash-latest"

	summaryUnavailableMsg = "The review summary is not available right now."
	summaryErrorMsg       = "Something went wrong while fetching the review summary."
)

// Line grammar for the free-text responses. The upstream format is not
// guaranteed stable, so the accepted patterns live here as named rules
// and the parsers skip (and log) anything that does not match.
// Recommendation lines split at the FIRST colon: a title that itself
// contains a colon (e.g. "Akira: Book 1") is truncated at it, with the
// remainder kept in the rationale. Accepted as a grammar limitation;
// nothing in the prompt lets us tell a title colon from the separator.
var (
	recommendationLineRe = regexp.MustCompile(`^\d+\.\s*([^:]+?)\s*:\s*(.+)$`)
	blankLineRunRe       = regexp.MustCompile(`(\r\n|\r|\n)(\s*(\r\n|\r|\n))+`)
)

// GeminiClient calls a generative text endpoint for review summaries,
// item enrichment and collection-based recommendations. With no API key
// every method is a silent no-op, same policy as the other adapters.
type GeminiClient struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		BaseURL: geminiBase,
		Model:   geminiModel,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// generate sends one prompt and returns the first candidate's text.
func (s *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	requestURL := fmt.Sprintf("%s/%s:generateContent?key=%s", s.BaseURL, s.Model, s.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[gemini] generate failed: status %d body=%s", resp.StatusCode, truncateBody(body, 500))
		return "", fmt.Errorf("gemini: status %d", resp.StatusCode)
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("gemini: decode: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// GetReviewSummary sends one free-text prompt and returns the cleaned
// response. Failures and empty responses degrade to fixed user-facing
// messages, never an empty string.
func (s *GeminiClient) GetReviewSummary(ctx context.Context, prompt string) string {
	if s.APIKey == "" {
		log.Printf("[gemini] no API key configured, skipping review summary")
		return ""
	}

	text, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("[gemini] review summary error: %v", err)
		return summaryErrorMsg
	}
	if strings.TrimSpace(text) == "" {
		return summaryUnavailableMsg
	}

	cleaned := cleanSummary(text)
	if cleaned == "" {
		log.Printf("[gemini] review summary became empty after cleaning")
		return summaryUnavailableMsg
	}
	return cleaned
}

// cleanSummary strips all asterisks, trims, and collapses any run of
// two or more blank lines into exactly one blank line.
func cleanSummary(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return blankLineRunRe.ReplaceAllString(s, "\n\n")
}

// EnrichItem asks the backend for whichever of author, publisher,
// publication date and description the item is missing, and applies
// only those fields that are still empty. Populated fields are never
// overwritten. Any failure returns the item unchanged.
func (s *GeminiClient) EnrichItem(ctx context.Context, item models.CatalogItem) models.CatalogItem {
	if s.APIKey == "" {
		log.Printf("[gemini] no API key configured, skipping enrichment")
		return item
	}
	if !needsEnrichment(item) {
		return item
	}

	prompt := enrichmentPrompt(item)
	text, err := s.generate(ctx, prompt)
	if err != nil {
		log.Printf("[gemini] enrichment error for %q: %v", item.Title, err)
		return item
	}
	if strings.TrimSpace(text) == "" {
		return item
	}

	applyEnrichment(&item, text)
	return item
}

func needsEnrichment(item models.CatalogItem) bool {
	return item.Author == "" ||
		item.Publisher == "" ||
		item.PublicationDate == nil ||
		item.Description == ""
}

func enrichmentPrompt(item models.CatalogItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "For the comic/manga titled '%s'", item.Title)
	if item.IssueNumber != nil {
		fmt.Fprintf(&b, " issue number %d", *item.IssueNumber)
	}
	if item.Series != "" {
		fmt.Fprintf(&b, " in the series '%s'", item.Series)
	}
	b.WriteString(":\n")

	if item.Author == "" {
		b.WriteString("- What are the names of the author(s)/writer(s)?\n")
	}
	if item.Publisher == "" {
		b.WriteString("- Who is the publisher?\n")
	}
	if item.PublicationDate == nil {
		b.WriteString("- What is the publication date (YYYY-MM-DD)?\n")
	}
	if item.Description == "" {
		b.WriteString("- Provide a brief plot description (2-3 sentences).\n")
	}

	b.WriteString("If any information is not found, state 'Not found'. " +
		"Respond with one field per line, for example: Author: [Name]\\nPublisher: [Name]\\nPublicationDate: [YYYY-MM-DD]\\nDescription: [Text].")
	return b.String()
}

// applyEnrichment parses "Field: value" lines and fills empty fields.
// "Not found" (any case) means no data. An unparsable date is dropped.
func applyEnrichment(item *models.CatalogItem, text string) {
	for _, line := range splitLines(text) {
		switch {
		case hasFieldPrefix(line, "Author:"):
			if item.Author == "" {
				item.Author = fieldValue(line, "Author:")
			}
		case hasFieldPrefix(line, "Publisher:"):
			if item.Publisher == "" {
				item.Publisher = fieldValue(line, "Publisher:")
			}
		case hasFieldPrefix(line, "PublicationDate:"):
			if item.PublicationDate == nil {
				if raw := fieldValue(line, "PublicationDate:"); raw != "" {
					item.PublicationDate = ParseFuzzyDate(raw)
				}
			}
		case hasFieldPrefix(line, "Description:"):
			if item.Description == "" {
				item.Description = fieldValue(line, "Description:")
			}
		}
	}
}

func hasFieldPrefix(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}

// fieldValue extracts the value after the field tag, mapping the
// literal "Not found" to no data.
func fieldValue(line, prefix string) string {
	v := strings.TrimSpace(line[len(prefix):])
	if strings.EqualFold(v, "Not found") {
		return ""
	}
	return v
}

// GetRecommendations summarizes the user's collection into a prompt and
// parses the two-section response. An empty collection is a no-op with
// no network call.
func (s *GeminiClient) GetRecommendations(ctx context.Context, collection []models.CatalogItem, comicCount, mangaCount int) models.RecommendationResult {
	result := models.RecommendationResult{
		Comics: []models.Recommendation{},
		Manga:  []models.Recommendation{},
	}
	if len(collection) == 0 {
		return result
	}
	if s.APIKey == "" {
		log.Printf("[gemini] no API key configured, skipping recommendations")
		return result
	}

	text, err := s.generate(ctx, recommendationPrompt(collection, comicCount, mangaCount))
	if err != nil {
		log.Printf("[gemini] recommendations error: %v", err)
		return result
	}
	if strings.TrimSpace(text) == "" {
		log.Printf("[gemini] empty recommendations response")
		return result
	}

	return parseRecommendations(text)
}

func recommendationPrompt(collection []models.CatalogItem, comicCount, mangaCount int) string {
	authors := make([]string, 0, len(collection))
	series := make([]string, 0, len(collection))
	publishers := make([]string, 0, len(collection))
	for _, item := range collection {
		authors = append(authors, item.Author)
		// "manga" is the catch-all series label, not a real preference
		if !strings.EqualFold(item.Series, "manga") {
			series = append(series, item.Series)
		}
		publishers = append(publishers, item.Publisher)
	}

	var b strings.Builder
	b.WriteString("Based on a user who has shown interest in ")
	if top := topFrequent(authors, 5); len(top) > 0 {
		fmt.Fprintf(&b, "authors like %s; ", strings.Join(top, ", "))
	}
	if top := topFrequent(series, 5); len(top) > 0 {
		fmt.Fprintf(&b, "comic series like %s; ", strings.Join(top, ", "))
	}
	if top := topFrequent(publishers, 3); len(top) > 0 {
		fmt.Fprintf(&b, "publishers like %s; ", strings.Join(top, ", "))
	}
	fmt.Fprintf(&b, "please recommend %d new comic book titles (Western style, not manga) and %d new manga titles they might enjoy. ", comicCount, mangaCount)
	b.WriteString("Format the response as follows: start with 'Recommended Comics:', followed by a numbered list. ")
	b.WriteString("Then, on a new line, start with 'Recommended Manga:', followed by a numbered list. ")
	b.WriteString("Each line must look like '1. Title: one-line reason'.")
	return b.String()
}

// parseRecommendations walks the two-section response line by line.
// Lines that do not match the expected pattern are skipped, never
// fatal.
func parseRecommendations(text string) models.RecommendationResult {
	result := models.RecommendationResult{
		Comics: []models.Recommendation{},
		Manga:  []models.Recommendation{},
	}

	section := ""
	for _, line := range splitLines(text) {
		switch {
		case hasFieldPrefix(line, "Recommended Comics:"):
			section = "comics"
			continue
		case hasFieldPrefix(line, "Recommended Manga:"):
			section = "manga"
			continue
		}
		if section == "" {
			continue
		}

		m := recommendationLineRe.FindStringSubmatch(line)
		if m == nil {
			log.Printf("[gemini] skipping unparsable recommendation line: %q", line)
			continue
		}
		rec := models.Recommendation{Title: strings.TrimSpace(m[1]), Rationale: strings.TrimSpace(m[2])}
		if section == "comics" {
			result.Comics = append(result.Comics, rec)
		} else {
			result.Manga = append(result.Manga, rec)
		}
	}

	log.Printf("[gemini] parsed recommendations: %d comics, %d manga", len(result.Comics), len(result.Manga))
	return result
}

// splitLines yields trimmed, non-empty lines.
func splitLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
