package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/drolelabs/drole/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes and
// sends the JSON error body.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusUnauthorized, "wallet not connected")
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient balance")
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amountUsd must be positive")
	case errors.Is(err, domain.ErrMarketNotFound):
		writeError(w, http.StatusNotFound, "market not found")
	case errors.Is(err, domain.ErrNoPosition):
		writeError(w, http.StatusNotFound, "no position for market and outcome")
	case errors.Is(err, domain.ErrInvalidOutcome):
		writeError(w, http.StatusBadRequest, "unknown outcome for market")
	case errors.Is(err, domain.ErrInvalidSellPercent):
		writeError(w, http.StatusBadRequest, "sell percent must be in (0, 1]")
	case errors.Is(err, domain.ErrInvalidMarketSpec):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
