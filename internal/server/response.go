package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/intendproject/ingraph/internal/api"
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/intendproject/ingraph/pkg/graphstore"
	"github.com/intendproject/ingraph/pkg/jsonld"
)

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes an error body with the given status code and kind
func writeErrorResponse(w http.ResponseWriter, statusCode int, kind, message string) {
	writeJSONResponse(w, statusCode, api.ErrorResponse{Error: message, Kind: kind})
}

// writeBadRequestResponse writes a 400 Bad Request response
func writeBadRequestResponse(w http.ResponseWriter, message string) {
	writeErrorResponse(w, http.StatusBadRequest, api.KindValidation, message)
}

// writeStoreError maps a typed store error onto a status code. prefix is
// prepended to the message, e.g. "Upload failed".
func writeStoreError(w http.ResponseWriter, prefix string, err error) {
	message := prefix + ": " + err.Error()

	var rejected *graphstore.RejectedError
	switch {
	case graphstore.IsNotFound(err):
		writeErrorResponse(w, http.StatusNotFound, api.KindNotFound, message)
	case graphstore.IsAlreadyExists(err):
		writeErrorResponse(w, http.StatusConflict, api.KindAlreadyExists, message)
	case graphstore.IsUnavailable(err):
		writeErrorResponse(w, http.StatusServiceUnavailable, api.KindUnavailable, message)
	case orchestrator.IsValidation(err), jsonld.IsFormatError(err):
		writeErrorResponse(w, http.StatusBadRequest, api.KindValidation, message)
	case errors.As(err, &rejected):
		writeJSONResponse(w, http.StatusBadGateway, api.ErrorResponse{
			Error:          message,
			Kind:           api.KindRejected,
			UpstreamStatus: rejected.StatusCode,
			UpstreamBody:   rejected.Body,
		})
	default:
		writeErrorResponse(w, http.StatusInternalServerError, api.KindInternal, message)
	}
}
