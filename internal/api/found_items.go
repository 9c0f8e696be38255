package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/workflow"
)

// defaultCandidates is how many match candidates are returned when the
// request does not say.
const defaultCandidates = 10

// FoundItemsHandler handles found item endpoints.
type FoundItemsHandler struct {
	Svc *workflow.Service
}

type statusRequest struct {
	Status string `json:"status"`
}

// itemFilter reads the common list filters from the query string.
func itemFilter(w http.ResponseWriter, r *http.Request) (store.ItemFilter, bool) {
	campusID, ok := queryInt(w, r, "campus_id")
	if !ok {
		return store.ItemFilter{}, false
	}
	q := r.URL.Query()
	return store.ItemFilter{
		Status:   q.Get("status"),
		CampusID: campusID,
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
	}, true
}

// List handles GET /api/found-items.
func (h *FoundItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := itemFilter(w, r)
	if !ok {
		return
	}
	if filter.Status != "" && !model.ValidFoundStatus(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := h.Svc.ListFoundItems(r.Context(), filter)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	if items == nil {
		items = []model.FoundItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/found-items.
func (h *FoundItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workflow.FoundItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.CreateFoundItem(r.Context(), actor(r), req)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("found item reported", "user", GetClaims(r.Context()).Username, "item", item.Title, "id", item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/found-items/{id}.
func (h *FoundItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "found item")
	if !ok {
		return
	}

	item, err := h.Svc.GetFoundItem(r.Context(), id)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// UpdateStatus handles PUT /api/found-items/{id}/status.
func (h *FoundItemsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "found item")
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.UpdateFoundStatus(r.Context(), actor(r), id, req.Status)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("found item status changed", "user", GetClaims(r.Context()).Username, "id", id, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles PUT /api/found-items/{id}/image.
func (h *FoundItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "found item")
	if !ok {
		return
	}

	body, ok := uploadBody(w, r)
	if !ok {
		return
	}
	defer body.Close()

	if err := h.Svc.SetFoundImage(r.Context(), actor(r), id, body); err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("found item image uploaded", "user", GetClaims(r.Context()).Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/found-items/{id}/image.
func (h *FoundItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "found item")
	if !ok {
		return
	}

	data, mime, err := h.Svc.FoundImage(r.Context(), id)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	writeImage(w, data, mime)
}

// Candidates handles GET /api/found-items/{id}/candidates.
func (h *FoundItemsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "found item")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultCandidates
	}

	cands, err := h.Svc.ProposeCandidates(r.Context(), id)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	defer cands.Close()

	out := []workflow.Candidate{}
	for c := range cands.All() {
		out = append(out, c)
		if int64(len(out)) == limit {
			break
		}
	}
	if err := cands.Err(); err != nil {
		workflowError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, out)
}

// Return handles POST /api/found-items/{id}/return. Returning an item twice
// is not an error.
func (h *FoundItemsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "found item")
	if !ok {
		return
	}

	item, err := h.Svc.FinalizeReturn(r.Context(), actor(r), id)
	if errors.Is(err, workflow.ErrAlreadyReturned) {
		jsonResponse(w, http.StatusOK, map[string]string{"message": "item already returned"})
		return
	}
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("found item returned", "user", GetClaims(r.Context()).Username, "id", id)
	jsonResponse(w, http.StatusOK, item)
}

// Claims handles GET /api/found-items/{id}/claims.
func (h *FoundItemsHandler) Claims(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "found item")
	if !ok {
		return
	}

	if _, err := h.Svc.GetFoundItem(r.Context(), id); err != nil {
		workflowError(w, r, err)
		return
	}
	claims, err := h.Svc.ClaimsForItem(r.Context(), id)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	if claims == nil {
		claims = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, claims)
}
