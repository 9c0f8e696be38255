package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/workflow"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody)).Decode(target)
}

// pathID parses a numeric path parameter.
func pathID(w http.ResponseWriter, r *http.Request, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{workflow.ErrNotFound, http.StatusNotFound, "not_found"},
	{workflow.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{workflow.ErrForbidden, http.StatusForbidden, "forbidden"},
	{workflow.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{workflow.ErrItemNotClaimable, http.StatusConflict, "item_not_claimable"},
	{workflow.ErrItemNotEligible, http.StatusConflict, "item_not_eligible"},
	{workflow.ErrConflict, http.StatusConflict, "conflict"},
}

// workflowError writes the response for an error returned by the workflow.
// Domain errors keep their message; anything else is logged and hidden.
func workflowError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, imaging.ErrTooLarge) {
		jsonResponse(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error(), Code: "too_large"})
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			jsonResponse(w, e.status, errorBody{Error: err.Error(), Code: e.code})
			return
		}
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	jsonError(w, http.StatusInternalServerError, "internal error")
}
