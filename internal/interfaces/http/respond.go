package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bankapi/internal/shared/apperr"
	"bankapi/internal/shared/middleware"
)

// Client-facing messages not produced by the domain.
const (
	msgNotFoundURL      = "Resource not found on this URL"
	msgMethodNotAllowed = "The method is not allowed for the requested URL"
	msgInvalidJSON      = "Request body must be a JSON object"
	msgInternal         = "Internal server error"
	msgUnavailable      = "Service temporarily unavailable, please retry"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg})
}

// writeError maps err onto a status code and a {"message": ...} body.
// Validation and business-rule failures are both client errors.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindPrecondition:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUnavailable:
		log.Warn("store unavailable",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestID(r.Context())),
		)
		writeMessage(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	default:
		log.Error("request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestID(r.Context())),
		)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
		return
	}

	body := map[string]any{}
	for k, v := range apperr.FieldsOf(err) {
		body[k] = v
	}
	body["message"] = apperr.Message(err, msgInternal)
	writeJSON(w, status, body)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeMessage(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

// pathID parses the {id} wildcard. Non-numeric IDs are treated as an
// unknown route.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusNotFound, msgNotFoundURL)
		return 0, false
	}
	return id, true
}

// decodeBody reads a JSON object into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// present reports whether a raw JSON member was supplied and is not null.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// supplied reports whether the field appeared in the body at all, an
// explicit null included.
func supplied(raw json.RawMessage) bool {
	return len(raw) > 0
}

// parseDecimal accepts a JSON number or a numeric string.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	var d decimal.Decimal
	err := d.UnmarshalJSON(raw)
	return d, err
}

// parseInt accepts a JSON integer or an integer string.
func parseInt(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(s, 10, 64)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Int64()
}

// money renders an amount rounded to cents as a JSON number.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// HandleHealth returns a simple health check response.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// HandleNotFound answers every unmatched route.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, msgNotFoundURL)
}
