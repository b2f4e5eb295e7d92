package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/blob"
	"github.com/sells-group/inspection-review/internal/extract"
	"github.com/sells-group/inspection-review/internal/raster"
	"github.com/sells-group/inspection-review/internal/review"
	"github.com/sells-group/inspection-review/internal/schema"
	"github.com/sells-group/inspection-review/internal/store"
)

type errorBody struct {
	Error     string              `json:"error"`
	Kind      string              `json:"kind,omitempty"`
	Fields    []schema.FieldError `json:"fields,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: "bad_request"})
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var (
		ve  *schema.ValidationError
		fe  *extract.FormatError
		se  *extract.ServiceError
		dpe *raster.DocumentParseError
		pe  *store.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		body.Kind = "validation"
		body.Fields = ve.Errors
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &fe):
		body.Kind = "extraction_format"
		body.Retryable = true
		return http.StatusBadGateway, body
	case errors.As(err, &se):
		body.Kind = "extraction_service"
		body.Retryable = se.Retryable()
		if se.Timeout() {
			return http.StatusGatewayTimeout, body
		}
		return http.StatusBadGateway, body
	case errors.As(err, &dpe):
		body.Kind = "document_parse"
		return http.StatusBadRequest, body
	case errors.As(err, &pe):
		body.Kind = string(pe.Kind)
		switch pe.Kind {
		case store.KindNotFound:
			return http.StatusNotFound, body
		case store.KindForbidden:
			return http.StatusForbidden, body
		case store.KindConflict:
			return http.StatusConflict, body
		}
		body.Retryable = true
		return http.StatusInternalServerError, body
	case errors.Is(err, review.ErrSessionNotFound), errors.Is(err, review.ErrClosed),
		errors.Is(err, review.ErrIndexOutOfRange), errors.Is(err, review.ErrUnknownDeadletter),
		errors.Is(err, blob.ErrNotFound):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, review.ErrUnknownField):
		body.Kind = "bad_request"
		return http.StatusBadRequest, body
	case errors.Is(err, review.ErrInvalidState), errors.Is(err, review.ErrSaveInFlight),
		errors.Is(err, review.ErrSuperseded), errors.Is(err, review.ErrNoDocument):
		body.Kind = "conflict"
		return http.StatusConflict, body
	}
	body.Kind = "internal"
	body.Error = "internal error"
	return http.StatusInternalServerError, body
}
