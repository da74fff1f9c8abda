package handler

import (
	"net/http"
	"time"

	"agency-sync-server/internal/service"
	"agency-sync-server/pkg/response"

	"github.com/gorilla/mux"
)

type MatchHandler struct {
	matchService *service.MatchService
	now          func() time.Time
}

func NewMatchHandler(matchService *service.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService, now: time.Now}
}

func (h *MatchHandler) Matches(w http.ResponseWriter, r *http.Request) {
	results, err := h.matchService.MatchBooking(mux.Vars(r)["id"], h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, results)
}
