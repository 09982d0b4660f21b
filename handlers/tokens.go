package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"traktshelf/internal/database"

	"github.com/gorilla/mux"
)

// TokensHandler exposes CRUD over stored user tokens so frontends can
// persist a Trakt token once and reference it by user ID in addon URLs.
type TokensHandler struct {
	repo *database.TokenRepository
}

func NewTokensHandler(repo *database.TokenRepository) *TokensHandler {
	return &TokensHandler{repo: repo}
}

type tokenRequest struct {
	UserID       string     `json:"userId"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

// Save upserts a user's token.
func (h *TokensHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "userId and accessToken are required")
		return
	}

	token := database.UserToken{
		UserID:       req.UserID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := h.repo.Upsert(r.Context(), token); err != nil {
		log.Printf("[tokens] upsert %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

// Get returns a stored token by user ID.
func (h *TokensHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	token, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		log.Printf("[tokens] get %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if token == nil {
		writeError(w, http.StatusNotFound, "No token stored for user")
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Delete removes a stored token.
func (h *TokensHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if err := h.repo.Delete(r.Context(), userID); err != nil {
		log.Printf("[tokens] delete %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
