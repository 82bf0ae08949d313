package apperr

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Response is the JSON body written for failed requests.
type Response struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the user-facing part of an Error.
type ErrorDetail struct {
	Category Category       `json:"category"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// Write logs err once and writes the normalized JSON response.
func Write(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	ae := From(err)
	if ae == nil {
		ae = New(CategoryUnknown, "")
	}
	status := ae.HTTPStatus()

	if logger != nil {
		attrs := []any{
			"category", string(ae.Category),
			"status", status,
			"error", ae.Error(),
		}
		if r != nil {
			attrs = append(attrs, "method", r.Method, "path", r.URL.Path)
		}
		if status >= 500 {
			logger.Error("request failed", attrs...)
		} else {
			logger.Warn("request rejected", attrs...)
		}
	}

	body := Response{
		Success: false,
		Error: ErrorDetail{
			Category: ae.Category,
			Message:  ae.UserMessage(),
		},
	}
	if !ae.Sensitive && len(ae.Context) > 0 {
		body.Error.Details = ae.Context
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
