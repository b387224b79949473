// Package api wires the HTTP/JSON surface onto the engine, following the
// teacher's internal/api package: a single envelope type, small
// respondJSON/respondError helpers, and one Handler holding every
// collaborator the routes need.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ccmarkets/engine/internal/apperr"
)

// APIResponse is the uniform JSON envelope for every endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondSuccess(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, APIResponse{Success: true, Data: data})
}

// respondError maps an apperr.Kind to an HTTP status and writes the envelope.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(apperr.KindStoreError)

	var ae *apperr.Error
	if e, ok := err.(*apperr.Error); ok {
		ae = e
	}
	if ae != nil {
		code = string(ae.Kind)
		switch ae.Kind {
		case apperr.KindInvalidInput:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindForbidden:
			status = http.StatusForbidden
		case apperr.KindInvalidState:
			status = http.StatusBadRequest
		case apperr.KindInsufficientFunds, apperr.KindInsufficientLocked:
			status = http.StatusBadRequest
		case apperr.KindDuplicateVote:
			status = http.StatusBadRequest
		case apperr.KindRateLimited:
			status = http.StatusBadRequest
		case apperr.KindConflict:
			status = http.StatusConflict
		case apperr.KindStoreError:
			status = http.StatusInternalServerError
		}
	}
	respondJSON(w, status, APIResponse{Success: false, Error: err.Error(), Code: code})
}
