package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/nextstep/nextstep-bff/internal/domain"
	"github.com/nextstep/nextstep-bff/internal/downstream"
	"github.com/nextstep/nextstep-bff/internal/session"
	"github.com/nextstep/nextstep-bff/middleware"
)

type envelope struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func sendError(w http.ResponseWriter, r *http.Request, code, message string, meta map[string]string, status int) {
	resp := domain.APIError{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Meta = meta
	resp.Error.RequestID = middleware.GetRequestID(r.Context())
	writeJSON(w, status, resp)
}

// writeError renders err in the gateway's error envelope. Upstream 4xx
// answers keep their status and message; everything else is mapped.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		sendError(w, r, de.Code, de.Message, de.Meta, statusFromKind(de.Kind))
		return
	}

	var se *downstream.StatusError
	if errors.As(err, &se) {
		if se.StatusCode >= 400 && se.StatusCode < 500 {
			sendError(w, r, se.Code, se.Message, fieldMeta(se.Fields), se.StatusCode)
			return
		}
		sendError(w, r, "upstream_error", downstream.GenericMessage, nil, http.StatusBadGateway)
		return
	}

	switch {
	case errors.Is(err, session.ErrNoSession):
		sendError(w, r, "not_authenticated", "authentication required", nil, http.StatusUnauthorized)
	case errors.Is(err, downstream.ErrNotFound):
		sendError(w, r, "resource_not_found", "resource not found", nil, http.StatusNotFound)
	case errors.Is(err, downstream.ErrTimeout):
		sendError(w, r, "upstream_timeout", "upstream service timed out", nil, http.StatusGatewayTimeout)
	case errors.Is(err, downstream.ErrUnavailable):
		sendError(w, r, "upstream_unavailable", "upstream service unreachable", nil, http.StatusBadGateway)
	default:
		sendError(w, r, "internal_error", "internal error", nil, http.StatusInternalServerError)
	}
}

func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fieldMeta flattens DRF field errors to one message per field.
func fieldMeta(fields map[string][]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	meta := make(map[string]string, len(names))
	for _, k := range names {
		meta[k] = fields[k][0]
	}
	return meta
}

const maxBody = 1 << 20

// decodeJSON decodes exactly one JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		// e.g. an unknown role rejected by Role.UnmarshalJSON
		var de *domain.Error
		if errors.As(err, &de) {
			return de
		}
		return domain.ErrInvalidJSON(err)
	}
	if err := dec.Decode(&struct{}{}); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ErrInvalidJSON(err)
	}
	return domain.ErrInvalidJSON(errors.New("multiple JSON values"))
}
