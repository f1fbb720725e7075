package collection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"comichub/internal/auth"
	"comichub/pkg/models"
)

type fakeEnricher struct {
	result models.CatalogItem
	calls  int
}

func (f *fakeEnricher) EnrichItem(_ context.Context, item models.CatalogItem) models.CatalogItem {
	f.calls++
	out := f.result
	out.Title = item.Title
	return out
}

func newTestRouter(t *testing.T, enricher Enricher) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newTestRepo(t)
	handler := NewHandler(repo, enricher, nil)

	router := gin.New()
	group := router.Group("/users")
	group.Use(func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: testUserID, Username: "tester"})
	})
	handler.RegisterRoutes(group)
	return router, repo
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAddRejectsMissingTitle(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	rec := doJSON(router, http.MethodPost, "/users/collection", `{"source":"Local"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddRequiresSourceIDForCatalogItems(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	rec := doJSON(router, http.MethodPost, "/users/collection",
		`{"title":"Watchmen","source":"ComicVine"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddRejectsUnknownSource(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	rec := doJSON(router, http.MethodPost, "/users/collection",
		`{"title":"Watchmen","source":"Ebay","source_id":"9"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddDuplicateSourceItemConflicts(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	body := `{"title":"Watchmen","source":"ComicVine","source_id":"123"}`
	if rec := doJSON(router, http.MethodPost, "/users/collection", body); rec.Code != http.StatusCreated {
		t.Fatalf("first add status = %d, want 201", rec.Code)
	}
	if rec := doJSON(router, http.MethodPost, "/users/collection", body); rec.Code != http.StatusConflict {
		t.Fatalf("second add status = %d, want 409", rec.Code)
	}
}

func TestAddLocalItemClearsSourceID(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	rec := doJSON(router, http.MethodPost, "/users/collection",
		`{"title":"Sketchbook","source":"Local","source_id":"should-go"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var saved models.CollectionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if saved.SourceID != "" {
		t.Errorf("local item kept source_id %q", saved.SourceID)
	}
	if saved.ID == "" {
		t.Error("expected server-assigned id")
	}
}

func TestAddDefaultsToLocalSource(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	rec := doJSON(router, http.MethodPost, "/users/collection", `{"title":"Zine"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var saved models.CollectionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if saved.Source != models.SourceLocal {
		t.Errorf("source = %q, want %q", saved.Source, models.SourceLocal)
	}
}

func TestUpdateNotesAndFavorite(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	rec := doJSON(router, http.MethodPost, "/users/collection", `{"title":"Zine"}`)
	var saved models.CollectionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode add response: %v", err)
	}

	rec = doJSON(router, http.MethodPut, "/users/collection/"+saved.ID,
		`{"notes":"lent to Sam","is_favorite":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", rec.Code)
	}

	var updated models.CollectionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if updated.Notes != "lent to Sam" || !updated.IsFavorite {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestGetOneMissingItem(t *testing.T) {
	router, _ := newTestRouter(t, &fakeEnricher{})

	rec := doJSON(router, http.MethodGet, "/users/collection/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEnrichFillsOnlyMissingFields(t *testing.T) {
	enricher := &fakeEnricher{result: models.CatalogItem{
		Author:    "Should Not Replace",
		Publisher: "Dark Horse Comics",
	}}
	router, _ := newTestRouter(t, enricher)

	rec := doJSON(router, http.MethodPost, "/users/collection",
		`{"title":"Hellboy","author":"Mike Mignola"}`)
	var saved models.CollectionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode add response: %v", err)
	}

	rec = doJSON(router, http.MethodPost, "/users/collection/"+saved.ID+"/enrich", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("enrich status = %d, want 200", rec.Code)
	}

	var resp struct {
		Updated bool                  `json:"updated"`
		Item    models.CollectionItem `json:"item"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode enrich response: %v", err)
	}
	if !resp.Updated {
		t.Fatal("expected updated=true when publisher was filled")
	}
	if resp.Item.Author != "Mike Mignola" {
		t.Errorf("populated author was replaced: %q", resp.Item.Author)
	}
	if resp.Item.Publisher != "Dark Horse Comics" {
		t.Errorf("publisher = %q, want Dark Horse Comics", resp.Item.Publisher)
	}
	if enricher.calls != 1 {
		t.Errorf("enricher calls = %d, want 1", enricher.calls)
	}
}

func TestEnrichNoChangesSkipsSave(t *testing.T) {
	enricher := &fakeEnricher{result: models.CatalogItem{}}
	router, _ := newTestRouter(t, enricher)

	rec := doJSON(router, http.MethodPost, "/users/collection",
		`{"title":"Hellboy","author":"Mike Mignola"}`)
	var saved models.CollectionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode add response: %v", err)
	}

	rec = doJSON(router, http.MethodPost, "/users/collection/"+saved.ID+"/enrich", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("enrich status = %d, want 200", rec.Code)
	}

	var resp struct {
		Updated bool `json:"updated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode enrich response: %v", err)
	}
	if resp.Updated {
		t.Error("expected updated=false when nothing was filled")
	}
}
