package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"comichub/internal/auth"
	"comichub/internal/catalog"
	"comichub/internal/collection"
	"comichub/internal/discover"
	synchub "comichub/internal/sync"
	"comichub/pkg/database"
	"comichub/pkg/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env")
	}

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	router := gin.Default()

	// avoid the "trusted all proxies" warning
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"db_error":   err.Error(),
				"ws_clients": stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"ws_clients": stats.WSClients,
		})
	})

	// Catalog sources
	apiCfg := utils.LoadAPIConfig()
	if apiCfg.ComicVineAPIKey == "" {
		log.Println("[config] COMICVINE_API_KEY not set; ComicVine searches will return nothing")
	}
	if apiCfg.GeminiAPIKey == "" {
		log.Println("[config] GEMINI_API_KEY not set; enrichment and recommendations are disabled")
	}

	comicVine := catalog.NewComicVineClient(apiCfg.ComicVineAPIKey)
	if apiCfg.ComicVineBaseURL != "" {
		comicVine.BaseURL = apiCfg.ComicVineBaseURL
	}

	mangaDex := catalog.NewMangaDexClient()
	if apiCfg.MangaDexBaseURL != "" {
		mangaDex.BaseURL = apiCfg.MangaDexBaseURL
	}
	if apiCfg.MangaDexCoverURL != "" {
		mangaDex.CoverBaseURL = apiCfg.MangaDexCoverURL
	}

	gemini := catalog.NewGeminiClient(apiCfg.GeminiAPIKey)
	if apiCfg.GeminiBaseURL != "" {
		gemini.BaseURL = apiCfg.GeminiBaseURL
	}

	aggregator := catalog.NewAggregator(comicVine, mangaDex)
	aggregator.FeaturedPerSource = apiCfg.FeaturedPerSource

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Discover (public search/featured/enrich/summary)
	collectionRepo := collection.NewRepo(db)
	discoverHandler := discover.NewHandler(aggregator, gemini, collectionRepo)
	discoverHandler.RegisterRoutes(router.Group("/discover"))

	// Recommendations read the caller's collection, so they sit behind auth
	discoverProtected := router.Group("/discover")
	discoverProtected.Use(auth.AuthMiddleware(tokenSvc, authRepo))
	discoverHandler.RegisterProtectedRoutes(discoverProtected)

	// Protected collection routes
	protected := router.Group("/users")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	collectionHandler := collection.NewHandler(collectionRepo, gemini, hub)
	collectionHandler.RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	log.Println("server stopped")
}
