package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/workflow"
)

// MatchesHandler handles match endpoints (staff only).
type MatchesHandler struct {
	Svc *workflow.Service
}

type createMatchRequest struct {
	FoundItemID int64 `json:"found_item_id"`
	LostItemID  int64 `json:"lost_item_id"`
}

// Create handles POST /api/matches.
func (h *MatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FoundItemID <= 0 || req.LostItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "found_item_id and lost_item_id required")
		return
	}

	match, err := h.Svc.CreateMatch(r.Context(), actor(r), req.FoundItemID, req.LostItemID)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("match proposed", "user", GetClaims(r.Context()).Username,
		"found_item", req.FoundItemID, "lost_item", req.LostItemID, "score", match.Score)
	jsonResponse(w, http.StatusCreated, match)
}

// List handles GET /api/matches.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	foundID, ok := queryInt(w, r, "found_item_id")
	if !ok {
		return
	}
	lostID, ok := queryInt(w, r, "lost_item_id")
	if !ok {
		return
	}
	if foundID == 0 && lostID == 0 {
		jsonError(w, http.StatusBadRequest, "found_item_id or lost_item_id required")
		return
	}

	matches, err := h.Svc.ListMatches(r.Context(), foundID, lostID)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	if matches == nil {
		matches = []model.Match{}
	}
	jsonResponse(w, http.StatusOK, matches)
}

// Approve handles POST /api/matches/{id}/approve.
func (h *MatchesHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "match")
	if !ok {
		return
	}

	match, err := h.Svc.ApproveMatch(r.Context(), actor(r), id)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("match approved", "user", GetClaims(r.Context()).Username, "id", id, "found_item", match.FoundItemID)
	jsonResponse(w, http.StatusOK, match)
}
