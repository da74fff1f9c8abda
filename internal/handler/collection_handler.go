package handler

import (
	"fmt"
	"net/http"

	"agency-sync-server/internal/cache"
	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/normalize"
	"agency-sync-server/pkg/response"

	"github.com/gorilla/mux"
)

type CollectionHandler struct {
	cache *cache.Cache
	store DocumentStore
}

func NewCollectionHandler(c *cache.Cache, store DocumentStore) *CollectionHandler {
	return &CollectionHandler{cache: c, store: store}
}

// Get serves one collection from the cache, falling back to the live
// document on a miss.
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	field, ok := normalize.Lookup(name)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, name))
		return
	}

	if raw, hit := h.cache.GetRaw(r.Context(), name); hit {
		w.Header().Set("X-Cache", "HIT")
		response.Success(w, raw)
		return
	}

	doc := h.store.Snapshot()
	if doc == nil {
		writeError(w, domain.ErrNotInitialized)
		return
	}
	w.Header().Set("X-Cache", "MISS")
	response.Success(w, field.Value(doc))
}

func (h *CollectionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.ForceUpdate(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.Message(w, "cache refreshed")
}

func (h *CollectionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.Message(w, "cache cleared")
}
