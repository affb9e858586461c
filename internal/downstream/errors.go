package downstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrTimeout     = errors.New("downstream_timeout")
	ErrUnavailable = errors.New("downstream_unavailable")
	ErrNotFound    = errors.New("resource_not_found")
)

// GenericMessage is shown when the API gave no usable message.
const GenericMessage = "Something went wrong. Please try again."

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string][]string // DRF field errors, if any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

const maxErrorBody = 64 << 10

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return statusErrorFrom(resp.StatusCode, body)
}

func statusErrorFrom(status int, body []byte) *StatusError {
	se := &StatusError{
		StatusCode: status,
		Code:       codeForStatus(status),
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		se.Message = fmt.Sprintf("unexpected status: %d", status)
		return se
	}

	if c := stringField(raw, "code"); c != "" {
		se.Code = c
	}
	// Gateway-style envelope: {"error":{"code":..., "message":...}}
	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if e, ok := raw["error"]; ok && json.Unmarshal(e, &env) == nil && env.Code != "" {
		se.Code = env.Code
		se.Message = env.Message
		return se
	}

	se.Message = messageFrom(raw)
	se.Fields = fieldErrors(raw)
	if se.Message == "" {
		se.Message = fmt.Sprintf("unexpected status: %d", status)
	}
	return se
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "resource_not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	return "downstream_error"
}

// UserMessage extracts a human readable message from an API error body:
// detail, then message, then error, then the first field error.
func UserMessage(body []byte) string {
	var raw map[string]json.RawMessage
	if json.Unmarshal(bytes.TrimSpace(body), &raw) != nil {
		return ""
	}
	return messageFrom(raw)
}

func messageFrom(raw map[string]json.RawMessage) string {
	for _, k := range []string{"detail", "message", "error"} {
		if s := stringField(raw, k); s != "" {
			return s
		}
	}
	fields := fieldErrors(raw)
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	first := names[0]
	if first == "non_field_errors" {
		return fields[first][0]
	}
	return first + ": " + fields[first][0]
}

func stringField(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if json.Unmarshal(v, &list) == nil && len(list) > 0 {
		return strings.TrimSpace(list[0])
	}
	return ""
}

// fieldErrors collects DRF serializer errors of the form {"email": ["..."]}.
func fieldErrors(raw map[string]json.RawMessage) map[string][]string {
	var out map[string][]string
	for k, v := range raw {
		switch k {
		case "detail", "message", "error", "code":
			continue
		}
		var list []string
		if json.Unmarshal(v, &list) != nil || len(list) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		out[k] = list
	}
	return out
}
