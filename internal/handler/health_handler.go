package handler

import (
	"net/http"

	"agency-sync-server/pkg/response"
)

type HealthHandler struct {
	store DocumentStore
}

func NewHealthHandler(store DocumentStore) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Revision string `json:"revision,omitempty"`
}

// Health reports "starting" until a document is loaded and "degraded" while
// the store serves seed data without the remote tree.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{Status: "healthy", Service: "agency-sync-server", Revision: h.store.Revision()}
	switch {
	case !h.store.Initialized():
		res.Status = "starting"
		response.JSON(w, http.StatusServiceUnavailable, res)
		return
	case h.store.Degraded():
		res.Status = "degraded"
	}
	response.Success(w, res)
}
