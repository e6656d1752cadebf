package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/worksheetgen/internal/api/shared"
	"github.com/phrazzld/worksheetgen/internal/cache"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
)

// CacheAdmin exposes the operator operations of the generation cache.
type CacheAdmin interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Clear(ctx context.Context, scope cache.Scope) (int, error)
}

var _ CacheAdmin = (*cache.GenerationCache)(nil)

// CacheHandler serves the cache admin endpoints.
type CacheHandler struct {
	cache  CacheAdmin
	logger *slog.Logger
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(c CacheAdmin, logger *slog.Logger) *CacheHandler {
	if c == nil {
		panic("cache cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheHandler{
		cache:  c,
		logger: logger.With(slog.String("component", "cache_handler")),
	}
}

// Stats handles GET /admin/cache/stats requests.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to read cache statistics", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// Clear handles POST /admin/cache/clear requests. The optional scope query
// parameter is "all" (the default) or "tasks".
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	scope, err := cache.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	removed, err := h.cache.Clear(r.Context(), scope)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to clear cache", err)
		return
	}

	log.Info("cache cleared",
		slog.String("scope", string(scope)),
		slog.Int("removed", removed))
	shared.RespondWithJSON(w, r, http.StatusOK, CacheClearResponse{
		Scope:   string(scope),
		Removed: removed,
	})
}
