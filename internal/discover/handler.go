package discover

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"comichub/internal/auth"
	"comichub/internal/catalog"
	"comichub/pkg/models"
)

// Recommender is the generative-text surface the discover routes use;
// implemented by the gemini client.
type Recommender interface {
	GetReviewSummary(ctx context.Context, prompt string) string
	EnrichItem(ctx context.Context, item models.CatalogItem) models.CatalogItem
	GetRecommendations(ctx context.Context, collection []models.CatalogItem, comicCount, mangaCount int) models.RecommendationResult
}

// CollectionReader exposes the stored collection for recommendation
// statistics.
type CollectionReader interface {
	ListAll(ctx context.Context, userID string) ([]models.CollectionItem, error)
}

type Handler struct {
	Aggregator *catalog.Aggregator
	Gemini     Recommender
	Collection CollectionReader
}

func NewHandler(agg *catalog.Aggregator, gemini Recommender, collection CollectionReader) *Handler {
	return &Handler{Aggregator: agg, Gemini: gemini, Collection: collection}
}

// RegisterRoutes mounts the public discover endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/featured", h.featured)
	rg.POST("/enrich", h.enrich)
	rg.POST("/summary", h.summary)
}

// RegisterProtectedRoutes mounts the endpoints that need a signed-in
// user (recommendations read the caller's collection).
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/recommendations", h.recommendations)
}

func (h *Handler) search(c *gin.Context) {
	q := catalog.SearchQuery{
		Term:  c.Query("q"),
		Limit: parseInt(c.Query("limit"), 12),
		Page:  parseInt(c.Query("page"), 1),
	}

	sources := c.Query("sources")
	if sources == "" {
		q.UseComicVine = true
		q.UseMangaDex = true
	} else {
		for _, s := range strings.Split(sources, ",") {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "comicvine":
				q.UseComicVine = true
			case "mangadex":
				q.UseMangaDex = true
			}
		}
	}

	res, err := h.Aggregator.Search(c.Request.Context(), q)
	if err != nil {
		// validation faults are the user's to fix, not system errors
		if errors.Is(err, catalog.ErrEmptyTerm) || errors.Is(err, catalog.ErrNoSources) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	cv := gin.H{"items": res.ComicVine, "total": res.ComicVineTotal}
	if res.ComicVineErr != nil {
		cv["error"] = "ComicVine search is unavailable right now"
	}
	md := gin.H{"items": res.MangaDex}
	if res.MangaDexErr != nil {
		md["error"] = "MangaDex search is unavailable right now"
	}

	c.JSON(http.StatusOK, gin.H{
		"query":     q.Term,
		"comicvine": cv,
		"mangadex":  md,
	})
}

func (h *Handler) featured(c *gin.Context) {
	max := parseInt(c.Query("max"), 10)
	items := h.Aggregator.BrowseFeatured(c.Request.Context(), max)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) enrich(c *gin.Context) {
	var item models.CatalogItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(item.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}

	c.JSON(http.StatusOK, h.Gemini.EnrichItem(c.Request.Context(), item))
}

type summaryReq struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) summary(c *gin.Context) {
	var req summaryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt required"})
		return
	}

	summary := h.Gemini.GetReviewSummary(c.Request.Context(), req.Prompt)
	if summary == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary service is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *Handler) recommendations(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	comicCount := parseInt(c.Query("comics"), 3)
	mangaCount := parseInt(c.Query("manga"), 3)

	stored, err := h.Collection.ListAll(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "collection lookup failed"})
		return
	}

	collection := make([]models.CatalogItem, 0, len(stored))
	for _, item := range stored {
		collection = append(collection, item.Catalog())
	}

	res := h.Gemini.GetRecommendations(c.Request.Context(), collection, comicCount, mangaCount)
	c.JSON(http.StatusOK, res)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
