package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/interfaces"
)

// ArtifactsHandler serves report artifacts behind signed URL tokens.
type ArtifactsHandler struct {
	logger *common.Logger
	blobs  interfaces.ObjectStore
}

// NewArtifactsHandler creates a new artifacts handler.
func NewArtifactsHandler(logger *common.Logger, blobs interfaces.ObjectStore) *ArtifactsHandler {
	return &ArtifactsHandler{logger: logger, blobs: blobs}
}

// ServeHTTP handles GET /api/artifacts/{path} with a ?token= signature.
func (h *ArtifactsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/artifacts/")
	if path == "" {
		WriteError(w, http.StatusNotFound, "not found")
		return
	}

	token := r.URL.Query().Get("token")
	if !h.blobs.VerifyToken(path, token) {
		WriteError(w, http.StatusForbidden, "invalid or expired token")
		return
	}

	data, contentType, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
