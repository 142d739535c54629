// Package handler provides HTTP handlers for the countpkg query API.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/countpkg/internal/model"
	"github.com/sevigo/countpkg/internal/store"
)

// PackagesHandler serves lookups of one aggregated package record.
type PackagesHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewPackagesHandler builds a PackagesHandler.
func NewPackagesHandler(st *store.Store, logger *slog.Logger) *PackagesHandler {
	return &PackagesHandler{store: st, logger: logger}
}

type packageResponse struct {
	Name        string `json:"name"`
	NumRepos    int    `json:"num_repos"`
	NumPyfiles  int    `json:"num_pyfiles"`
	NumReqfiles int    `json:"num_reqfiles"`
	Repos       []string `json:"repos"`
}

// Handle serves GET /api/v1/packages/{name}.
func (h *PackagesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		http.Error(w, "missing package name", http.StatusBadRequest)
		return
	}

	pkg := model.NewPackage(name)
	exists, err := h.store.Exists(r.Context(), pkg.Prefix(), name)
	if err != nil {
		h.logger.Error("failed to check package existence", "package", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "package not found", http.StatusNotFound)
		return
	}

	if err := h.store.Load(r.Context(), pkg.Record(), pkg); err != nil {
		h.logger.Error("failed to load package", "package", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := packageResponse{
		Name:        pkg.Name(),
		NumRepos:    pkg.NumRepos(),
		NumPyfiles:  pkg.NumPyfiles(),
		NumReqfiles: pkg.NumReqfiles(),
		Repos:       pkg.Repos(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode package response", "package", name, "error", err)
	}
}
