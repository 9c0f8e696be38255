package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/policy"
	"github.com/erazemk/najdeno/internal/workflow"
)

// LostItemsHandler handles lost item report endpoints. Students only see
// their own reports.
type LostItemsHandler struct {
	Svc *workflow.Service
}

// List handles GET /api/lost-items.
func (h *LostItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := itemFilter(w, r)
	if !ok {
		return
	}
	if filter.Status != "" && !model.ValidLostStatus(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := h.Svc.ListLostItems(r.Context(), actor(r), filter)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	if items == nil {
		items = []model.LostItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/lost-items.
func (h *LostItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workflow.LostItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.CreateLostItem(r.Context(), actor(r), req)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("lost item reported", "user", GetClaims(r.Context()).Username, "item", item.Title, "id", item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/lost-items/{id}.
func (h *LostItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "lost item")
	if !ok {
		return
	}

	item, err := h.Svc.GetLostItem(r.Context(), id)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	if !policy.IsStaff(claims.Role) && (item.ReportedBy == nil || *item.ReportedBy != claims.UserID) {
		// Other students' reports are not disclosed.
		jsonError(w, http.StatusNotFound, "lost item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// UpdateStatus handles PUT /api/lost-items/{id}/status.
func (h *LostItemsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "lost item")
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Svc.UpdateLostStatus(r.Context(), actor(r), id, req.Status)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("lost item status changed", "user", GetClaims(r.Context()).Username, "id", id, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}
