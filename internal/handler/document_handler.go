package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"agency-sync-server/internal/domain"
	"agency-sync-server/internal/normalize"
	"agency-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

const maxDocumentBytes = 16 << 20

// DocumentStore is what the HTTP layer needs from the sync store.
type DocumentStore interface {
	Snapshot() *domain.Document
	Save(ctx context.Context, doc *domain.Document) error
	Revision() string
	Degraded() bool
	Initialized() bool
}

type DocumentHandler struct {
	store    DocumentStore
	validate *validator.Validate
}

func NewDocumentHandler(store DocumentStore) *DocumentHandler {
	return &DocumentHandler{
		store:    store,
		validate: validator.New(),
	}
}

type documentResponse struct {
	Revision string           `json:"revision"`
	Degraded bool             `json:"degraded"`
	Document *domain.Document `json:"document"`
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc := h.store.Snapshot()
	if doc == nil {
		response.ServiceUnavailable(w, "document not loaded yet")
		return
	}

	response.Success(w, documentResponse{
		Revision: h.store.Revision(),
		Degraded: h.store.Degraded(),
		Document: doc,
	})
}

// Update applies the request body over the current document and saves the
// result. Keys missing from the body keep their current values; list
// collections may be sent as arrays or as objects keyed by ID. Every value
// in the body must decode and pass validation, otherwise nothing is saved.
// syncMetadata is owned by the server and ignored.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	current := h.store.Snapshot()
	if current == nil {
		response.ServiceUnavailable(w, "document not loaded yet")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	next, changed, err := normalize.MergeStrict(current, body)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if err := h.validate.Struct(normalize.Project(next, changed)); err != nil {
		response.BadRequest(w, fmt.Errorf("%w: %v", domain.ErrValidation, err).Error())
		return
	}

	if err := h.store.Save(r.Context(), next); err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, documentResponse{
		Revision: h.store.Revision(),
		Degraded: h.store.Degraded(),
		Document: h.store.Snapshot(),
	})
}

func writeError(w http.ResponseWriter, err error) {
	response.Error(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var writeErr *domain.WriteError

	switch {
	case errors.Is(err, domain.ErrNotInitialized), errors.Is(err, domain.ErrDegraded):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownCollection):
		return http.StatusNotFound
	case errors.As(err, &writeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
