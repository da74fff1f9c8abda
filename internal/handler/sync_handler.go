package handler

import (
	"net/http"
	"strconv"

	"agency-sync-server/internal/service"
	"agency-sync-server/pkg/response"
)

type SyncHandler struct {
	syncService *service.SyncService
}

func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Sync returns the rollup, recomputing it when stale or when force=true.
// Failures still carry the rollup the service fell back to.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		var err error
		force, err = strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "invalid force parameter")
			return
		}
	}

	rollup, err := h.syncService.SyncAllData(r.Context(), force)
	if err != nil {
		// the rollup is still the best known one: last good on a failed
		// section, freshly computed on a failed save
		response.ErrorWithData(w, statusFor(err), err.Error(), rollup)
		return
	}

	response.Success(w, rollup)
}

// Report summarizes the last rollup without recomputing it.
func (h *SyncHandler) Report(w http.ResponseWriter, r *http.Request) {
	response.Success(w, service.GenerateReport(h.syncService.Current()))
}
