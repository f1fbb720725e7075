package collection

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"comichub/internal/auth"
	"comichub/internal/sync"
	"comichub/pkg/models"
)

// Enricher fills missing fields on a catalog item; implemented by the
// gemini client.
type Enricher interface {
	EnrichItem(ctx context.Context, item models.CatalogItem) models.CatalogItem
}

type Handler struct {
	Repo     *Repo
	Enricher Enricher
	Hub      *sync.Hub
}

func NewHandler(repo *Repo, enricher Enricher, hub *sync.Hub) *Handler {
	return &Handler{Repo: repo, Enricher: enricher, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/collection", h.list)
	rg.POST("/collection", h.add)
	rg.GET("/collection/:id", h.getOne)
	rg.PUT("/collection/:id", h.update)
	rg.DELETE("/collection/:id", h.remove)
	rg.POST("/collection/:id/enrich", h.enrich)
}

type addReq struct {
	models.CatalogItem
	Notes string `json:"notes"`
}

func (h *Handler) add(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}

	source := req.Source
	if source == "" {
		source = models.SourceLocal
	}
	switch source {
	case models.SourceComicVine, models.SourceMangaDex:
		if strings.TrimSpace(req.SourceID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source_id required for catalog items"})
			return
		}
	case models.SourceLocal:
		req.SourceID = ""
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be one of: ComicVine, MangaDex, Local"})
		return
	}

	if source != models.SourceLocal {
		exists, err := h.Repo.ExistsBySource(c.Request.Context(), claims.UserID, source, req.SourceID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
		if exists {
			c.JSON(http.StatusConflict, gin.H{"error": "item already in collection"})
			return
		}
	}

	item := models.CollectionItem{
		ID:              uuid.NewString(),
		UserID:          claims.UserID,
		SourceID:        req.SourceID,
		Source:          source,
		Title:           req.Title,
		Series:          req.Series,
		IssueNumber:     req.IssueNumber,
		Author:          req.Author,
		Publisher:       req.Publisher,
		PublicationDate: req.PublicationDate,
		CoverImageURL:   req.CoverImageURL,
		Description:     req.Description,
		ContentRating:   req.ContentRating,
		Status:          req.Status,
		Notes:           req.Notes,
	}
	if err := h.Repo.Add(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.broadcast(sync.EventCollectionAdd, claims.UserID, item.ID, item.Title)

	saved, err := h.Repo.GetByID(c.Request.Context(), claims.UserID, item.ID)
	if err != nil || saved == nil {
		c.JSON(http.StatusCreated, item)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q := ListQuery{
		Q:      c.Query("q"),
		Source: c.Query("source"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}
	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	item, err := h.Repo.GetByID(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

type updateReq struct {
	Notes      *string `json:"notes"`
	IsFavorite *bool   `json:"is_favorite"`
}

func (h *Handler) update(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	item, err := h.Repo.GetByID(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.IsFavorite != nil {
		item.IsFavorite = *req.IsFavorite
	}
	if err := h.Repo.Update(c.Request.Context(), *item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.broadcast(sync.EventCollectionUpdate, claims.UserID, item.ID, item.Title)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := c.Param("id")
	found, err := h.Repo.Delete(c.Request.Context(), claims.UserID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.broadcast(sync.EventCollectionDelete, claims.UserID, id, "")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// enrich asks the generative backend for the item's missing fields and
// persists whatever came back. Only fields that were empty before the
// call are written; populated fields always survive.
func (h *Handler) enrich(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	item, err := h.Repo.GetByID(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	enriched := h.Enricher.EnrichItem(c.Request.Context(), item.Catalog())
	if !item.ApplyCatalog(enriched) {
		c.JSON(http.StatusOK, gin.H{"updated": false, "item": item})
		return
	}

	if err := h.Repo.Update(c.Request.Context(), *item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.broadcast(sync.EventCollectionUpdate, claims.UserID, item.ID, item.Title)
	c.JSON(http.StatusOK, gin.H{"updated": true, "item": item})
}

func (h *Handler) broadcast(eventType, userID, itemID, title string) {
	if h.Hub == nil {
		return
	}
	h.Hub.BroadcastJSON(sync.CollectionEvent{
		Type:   eventType,
		UserID: userID,
		ItemID: itemID,
		Title:  title,
		At:     time.Now().UTC(),
	})
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
