package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/policy"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/workflow"
)

// ClaimsHandler handles claim endpoints. Students see and act on their own
// claims only; staff see all of them and decide.
type ClaimsHandler struct {
	Svc *workflow.Service
}

type createClaimRequest struct {
	FoundItemID int64 `json:"found_item_id"`
	workflow.ClaimInput
}

// visibleClaim loads a claim the caller may see. Claims of other students
// are reported as missing.
func (h *ClaimsHandler) visibleClaim(w http.ResponseWriter, r *http.Request) (*model.Claim, bool) {
	id, ok := pathID(w, r, "id", "claim")
	if !ok {
		return nil, false
	}

	claim, err := h.Svc.GetClaim(r.Context(), id)
	if err != nil {
		workflowError(w, r, err)
		return nil, false
	}

	claims := GetClaims(r.Context())
	if !policy.Allowed(claims.Role, policy.ClaimReadAll) && claim.ClaimantID != claims.UserID {
		jsonError(w, http.StatusNotFound, "claim not found")
		return nil, false
	}
	return claim, true
}

// List handles GET /api/claims.
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	foundID, ok := queryInt(w, r, "found_item_id")
	if !ok {
		return
	}
	claimantID, ok := queryInt(w, r, "claimant_id")
	if !ok {
		return
	}
	page, ok := queryInt(w, r, "page")
	if !ok {
		return
	}
	perPage, ok := queryInt(w, r, "per_page")
	if !ok {
		return
	}

	filter := store.ClaimFilter{
		Status:      r.URL.Query().Get("status"),
		FoundItemID: foundID,
		ClaimantID:  claimantID,
	}
	if claims := GetClaims(r.Context()); !policy.Allowed(claims.Role, policy.ClaimReadAll) {
		filter.ClaimantID = claims.UserID
	}

	result, err := h.Svc.ListClaims(r.Context(), filter, int(page), int(perPage))
	if err != nil {
		workflowError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Create handles POST /api/claims.
func (h *ClaimsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FoundItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "found_item_id required")
		return
	}

	claim, err := h.Svc.SubmitClaim(r.Context(), actor(r), req.FoundItemID, req.ClaimInput)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("claim submitted", "user", GetClaims(r.Context()).Username,
		"claim", claim.ID, "found_item", claim.FoundItemID, "status", claim.Status)
	jsonResponse(w, http.StatusCreated, claim)
}

// Get handles GET /api/claims/{id}.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.visibleClaim(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, claim)
}

// Verify handles POST /api/claims/{id}/verify.
func (h *ClaimsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "claim")
	if !ok {
		return
	}

	var req workflow.Decision
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim, err := h.Svc.VerifyClaim(r.Context(), actor(r), id, req)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("claim verified", "user", GetClaims(r.Context()).Username, "claim", id, "status", claim.Status)
	jsonResponse(w, http.StatusOK, claim)
}

// UploadEvidence handles PUT /api/claims/{id}/evidence-image.
func (h *ClaimsHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "claim")
	if !ok {
		return
	}

	body, ok := uploadBody(w, r)
	if !ok {
		return
	}
	defer body.Close()

	img, err := h.Svc.AttachEvidenceImage(r.Context(), actor(r), id, body)
	if err != nil {
		workflowError(w, r, err)
		return
	}

	slog.Info("evidence image attached", "user", GetClaims(r.Context()).Username, "claim", id, "image", img.ID)
	jsonResponse(w, http.StatusCreated, img)
}

// GetEvidence handles GET /api/claims/{id}/evidence-images/{image}.
func (h *ClaimsHandler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.visibleClaim(w, r)
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "image", "image")
	if !ok {
		return
	}

	data, mime, err := h.Svc.ClaimImage(r.Context(), claim.ID, imageID)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	writeImage(w, data, mime)
}

// Log handles GET /api/claims/{id}/log.
func (h *ClaimsHandler) Log(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.visibleClaim(w, r)
	if !ok {
		return
	}

	entries, err := h.Svc.ClaimLog(r.Context(), claim.ID)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.ActionLog{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
