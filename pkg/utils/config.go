package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("COMICHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("COMICHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "comichub"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("COMICHUB_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
	}
}

// APIConfig carries upstream credentials and base-URL overrides. The
// overrides exist so local setups can point at proxies or fixtures;
// empty values mean the clients' defaults.
type APIConfig struct {
	ComicVineAPIKey   string
	ComicVineBaseURL  string
	MangaDexBaseURL   string
	MangaDexCoverURL  string
	GeminiAPIKey      string
	GeminiBaseURL     string
	FeaturedPerSource int
}

func LoadAPIConfig() APIConfig {
	cfg := APIConfig{
		ComicVineAPIKey:  os.Getenv("COMICVINE_API_KEY"),
		ComicVineBaseURL: os.Getenv("COMICVINE_BASE_URL"),
		MangaDexBaseURL:  os.Getenv("MANGADEX_BASE_URL"),
		MangaDexCoverURL: os.Getenv("MANGADEX_COVER_BASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:    os.Getenv("GEMINI_BASE_URL"),
	}

	if n := os.Getenv("COMICHUB_FEATURED_PER_SOURCE"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.FeaturedPerSource = v
		}
	}
	return cfg
}
