package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// CampusesHandler handles campus endpoints. Everyone can list campuses;
// only admins change them.
type CampusesHandler struct {
	DB *sql.DB
}

type campusRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (req *campusRequest) normalize() bool {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	return req.Name != "" && req.Code != ""
}

// List handles GET /api/campuses.
func (h *CampusesHandler) List(w http.ResponseWriter, r *http.Request) {
	campuses, err := store.ListCampuses(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list campuses", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list campuses")
		return
	}
	if campuses == nil {
		campuses = []model.Campus{}
	}
	jsonResponse(w, http.StatusOK, campuses)
}

// Create handles POST /api/campuses.
func (h *CampusesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req campusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.normalize() {
		jsonError(w, http.StatusBadRequest, "name and code required")
		return
	}

	campus, err := store.CreateCampus(r.Context(), h.DB, req.Name, req.Code)
	if store.IsUniqueViolation(err) {
		jsonError(w, http.StatusConflict, "campus code already in use")
		return
	}
	if err != nil {
		slog.Error("failed to create campus", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create campus")
		return
	}

	slog.Info("campus created", "user", GetClaims(r.Context()).Username, "campus", campus.Code)
	jsonResponse(w, http.StatusCreated, campus)
}

// Update handles PUT /api/campuses/{id}.
func (h *CampusesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "campus")
	if !ok {
		return
	}

	var req campusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.normalize() {
		jsonError(w, http.StatusBadRequest, "name and code required")
		return
	}

	campus, err := store.GetCampus(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get campus", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update campus")
		return
	}
	if campus == nil || campus.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "campus not found")
		return
	}

	err = store.UpdateCampus(r.Context(), h.DB, id, req.Name, req.Code)
	if store.IsUniqueViolation(err) {
		jsonError(w, http.StatusConflict, "campus code already in use")
		return
	}
	if err != nil {
		slog.Error("failed to update campus", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update campus")
		return
	}
	campus.Name, campus.Code = req.Name, req.Code

	slog.Info("campus updated", "user", GetClaims(r.Context()).Username, "campus", campus.Code)
	jsonResponse(w, http.StatusOK, campus)
}

// Delete handles DELETE /api/campuses/{id}.
func (h *CampusesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "campus")
	if !ok {
		return
	}

	campus, _ := store.GetCampus(r.Context(), h.DB, id)
	if campus == nil || campus.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "campus not found")
		return
	}

	if err := store.DeleteCampus(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete campus", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete campus")
		return
	}

	slog.Info("campus deleted", "user", GetClaims(r.Context()).Username, "campus", campus.Code)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "campus deleted"})
}
