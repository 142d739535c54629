package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/countpkg/internal/model"
	"github.com/sevigo/countpkg/internal/store"
)

// ReposHandler serves lookups of one crawled repository record.
type ReposHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewReposHandler builds a ReposHandler.
func NewReposHandler(st *store.Store, logger *slog.Logger) *ReposHandler {
	return &ReposHandler{store: st, logger: logger}
}

type repoResponse struct {
	Name      string   `json:"name"`
	ID        int64    `json:"id"`
	URL       string   `json:"url"`
	Retrieved bool     `json:"retrieved"`
	Packages  []string `json:"packages"`
}

// Handle serves GET /api/v1/repos/{owner}/{repo}.
func (h *ReposHandler) Handle(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repoName := chi.URLParam(r, "repo")
	if owner == "" || repoName == "" {
		http.Error(w, "missing repository owner or name", http.StatusBadRequest)
		return
	}
	name := owner + "/" + repoName

	repo := model.NewRepository(name)
	exists, err := h.store.Exists(r.Context(), "repo", name)
	if err != nil {
		h.logger.Error("failed to check repository existence", "repo", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "repository not found", http.StatusNotFound)
		return
	}

	if err := h.store.Load(r.Context(), repo.Record(), repo); err != nil {
		h.logger.Error("failed to load repository", "repo", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := repoResponse{
		Name:      repo.Name(),
		ID:        repo.ID(),
		URL:       repo.URL(),
		Retrieved: repo.Retrieved(),
		Packages:  repo.Packages(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode repository response", "repo", name, "error", err)
	}
}
