package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"traktshelf/internal/database"
	"traktshelf/models"
	"traktshelf/services/catalog"
	"traktshelf/services/provider"
	"traktshelf/services/trakt"

	"github.com/gorilla/mux"
)

// Catalog IDs exposed in the manifest.
const (
	CatalogRecentlyWatched = "trakt-recently-watched"
	CatalogUpcoming        = "trakt-upcoming"
)

var errConfigMissingToken = errors.New("user config carries no access token")

// CatalogHandler serves the addon manifest, the two catalogs and the
// configuration page.
type CatalogHandler struct {
	catalog *catalog.Service
	trakt   *trakt.Client
	tokens  *database.TokenRepository
	version string
}

// NewCatalogHandler creates the handler. tokens may be nil when token
// persistence is disabled; user configs must then carry the token inline.
func NewCatalogHandler(catalogSvc *catalog.Service, traktClient *trakt.Client, tokens *database.TokenRepository, version string) *CatalogHandler {
	return &CatalogHandler{catalog: catalogSvc, trakt: traktClient, tokens: tokens, version: version}
}

// userConfig is the base64 JSON blob embedded in addon URLs.
type userConfig struct {
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId,omitempty"`
}

func (h *CatalogHandler) manifest(configured bool) models.Manifest {
	return models.Manifest{
		ID:          "org.traktshelf.catalogs",
		Version:     h.version,
		Name:        "Trakt Shelf",
		Description: "Recently watched and upcoming TV shows from your Trakt account",
		Resources:   []string{"catalog"},
		Types:       []string{"series"},
		Catalogs: []models.ManifestCatalog{
			{
				Type:  "series",
				ID:    CatalogRecentlyWatched,
				Name:  "Recently Watched",
				Extra: []models.CatalogExtra{{Name: "skip"}},
			},
			{
				Type:  "series",
				ID:    CatalogUpcoming,
				Name:  "Upcoming Episodes",
				Extra: []models.CatalogExtra{{Name: "skip"}},
			},
		},
		BehaviorHints: models.ManifestBehavior{
			Configurable:          true,
			ConfigurationRequired: !configured,
		},
	}
}

// decodeConfig parses the base64 JSON user config segment and resolves the
// access token, consulting the token store for configs that reference a
// stored user instead of embedding the token.
func (h *CatalogHandler) decodeConfig(ctx context.Context, raw string) (userConfig, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(raw)
	}
	if err != nil {
		return userConfig{}, fmt.Errorf("decode user config: %w", err)
	}
	var cfg userConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return userConfig{}, fmt.Errorf("parse user config: %w", err)
	}

	if cfg.AccessToken == "" && cfg.UserID != "" && h.tokens != nil {
		stored, err := h.tokens.Get(ctx, cfg.UserID)
		if err != nil {
			log.Printf("[catalog] token lookup for user %s: %v", cfg.UserID, err)
		} else if stored != nil {
			cfg.AccessToken = stored.AccessToken
		}
	}
	if cfg.AccessToken == "" {
		return userConfig{}, errConfigMissingToken
	}
	return cfg, nil
}

// Manifest serves the unconfigured manifest.
func (h *CatalogHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manifest(false))
}

// UserManifest serves the manifest for a configured user, validating the
// embedded token against Trakt.
func (h *CatalogHandler) UserManifest(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.decodeConfig(r.Context(), mux.Vars(r)["userConfig"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration")
		return
	}

	ok, err := h.trakt.ValidateToken(r.Context(), cfg.AccessToken)
	if err != nil {
		log.Printf("[catalog] token validation: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid or expired Trakt token")
		return
	}
	writeJSON(w, http.StatusOK, h.manifest(true))
}

// Catalog serves one catalog page.
func (h *CatalogHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cfg, err := h.decodeConfig(r.Context(), vars["userConfig"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration")
		return
	}
	if vars["type"] != "series" {
		writeJSON(w, http.StatusOK, models.CatalogResponse{Metas: []models.Meta{}})
		return
	}

	skip := 0
	if raw := r.URL.Query().Get("skip"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			skip = parsed
		}
	}

	var metas []models.Meta
	switch vars["id"] {
	case CatalogRecentlyWatched:
		metas, err = h.catalog.RecentlyWatched(r.Context(), cfg.AccessToken, skip)
	case CatalogUpcoming:
		metas, err = h.catalog.Upcoming(r.Context(), cfg.AccessToken, skip)
	default:
		writeError(w, http.StatusNotFound, "Unknown catalog")
		return
	}
	if err != nil {
		if errors.Is(err, provider.ErrAuthInvalid) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired Trakt token")
			return
		}
		log.Printf("[catalog] %s: %v", vars["id"], err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if metas == nil {
		metas = []models.Meta{}
	}
	writeJSON(w, http.StatusOK, models.CatalogResponse{Metas: metas})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handlers] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
