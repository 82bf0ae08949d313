// Package apperr normalizes failures into a single tagged error shape with a
// category, optional HTTP status, a context payload and a sensitivity flag that
// keeps detail out of user-facing messages.
package apperr

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Category classifies an error for presentation and logging.
type Category string

const (
	CategoryNetwork         Category = "network"
	CategoryAuthentication  Category = "authentication"
	CategoryAuthorization   Category = "authorization"
	CategoryValidation      Category = "validation"
	CategoryServer          Category = "server"
	CategoryClient          Category = "client"
	CategoryPayment         Category = "payment"
	CategoryUpload          Category = "upload"
	CategoryExternalService Category = "external_service"
	CategoryUnknown         Category = "unknown"
)

// category markers, checked in order by From
var markers = []struct {
	category Category
	marker   error
}{
	{CategoryAuthentication, errors.New("authentication error")},
	{CategoryAuthorization, errors.New("authorization error")},
	{CategoryValidation, errors.New("validation error")},
	{CategoryPayment, errors.New("payment error")},
	{CategoryUpload, errors.New("upload error")},
	{CategoryExternalService, errors.New("external service error")},
	{CategoryNetwork, errors.New("network error")},
	{CategoryClient, errors.New("client error")},
	{CategoryServer, errors.New("server error")},
}

var defaultMessages = map[Category]string{
	CategoryNetwork:         "We could not reach the server. Please check your connection and try again.",
	CategoryAuthentication:  "Please sign in to continue.",
	CategoryAuthorization:   "You do not have permission to do that.",
	CategoryValidation:      "Some of the information provided is not valid.",
	CategoryServer:          "Something went wrong on our side. Please try again later.",
	CategoryClient:          "The request could not be completed.",
	CategoryPayment:         "The payment could not be processed.",
	CategoryUpload:          "The file could not be uploaded.",
	CategoryExternalService: "A partner service is unavailable right now. Please try again later.",
	CategoryUnknown:         "An unexpected error occurred.",
}

// Error is the normalized application error.
type Error struct {
	Category  Category
	Status    int
	Message   string
	Context   map[string]any
	Sensitive bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error in the given category with a user-facing message.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Wrap attaches a category and user-facing message to err.
func Wrap(err error, category Category, message string) *Error {
	return &Error{Category: category, Message: message, Err: err}
}

// WithStatus sets the HTTP status associated with the error.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithContext adds a key to the context payload.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// MarkSensitive hides Message and Context from users.
func (e *Error) MarkSensitive() *Error {
	e.Sensitive = true
	return e
}

// UserMessage is the text safe to show to a patient.
func (e *Error) UserMessage() string {
	if e.Sensitive || strings.TrimSpace(e.Message) == "" {
		return defaultMessages[e.Category]
	}
	return e.Message
}

// HTTPStatus returns the explicit status or one derived from the category.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Category {
	case CategoryAuthentication:
		return http.StatusUnauthorized
	case CategoryAuthorization:
		return http.StatusForbidden
	case CategoryValidation, CategoryClient:
		return http.StatusBadRequest
	case CategoryPayment:
		return http.StatusPaymentRequired
	case CategoryUpload:
		return http.StatusRequestEntityTooLarge
	case CategoryExternalService, CategoryNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Mark tags err with a category so From can recover it after further wrapping.
func Mark(err error, category Category) error {
	for _, m := range markers {
		if m.category == category {
			return errors.Mark(err, m.marker)
		}
	}
	return err
}

// Is reports whether err belongs to category.
func Is(err error, category Category) bool {
	if err == nil {
		return false
	}
	return From(err).Category == category
}

// Classify maps an HTTP status code to a category. Zero means no response was received.
func Classify(status int) Category {
	switch {
	case status == 0:
		return CategoryNetwork
	case status == http.StatusUnauthorized:
		return CategoryAuthentication
	case status == http.StatusForbidden:
		return CategoryAuthorization
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return CategoryValidation
	case status == http.StatusPaymentRequired:
		return CategoryPayment
	case status == http.StatusRequestEntityTooLarge, status == http.StatusUnsupportedMediaType:
		return CategoryUpload
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return CategoryExternalService
	case status >= 500:
		return CategoryServer
	case status >= 400:
		return CategoryClient
	default:
		return CategoryUnknown
	}
}

// FromStatus builds an error for a failed HTTP exchange.
func FromStatus(status int, message string) *Error {
	return &Error{Category: Classify(status), Status: status, Message: message}
}

// From normalizes any error into *Error. Hints attached with
// errors.WithHint become the user-facing message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	out := &Error{Category: CategoryUnknown, Err: err}
	for _, m := range markers {
		if errors.Is(err, m.marker) {
			out.Category = m.category
			break
		}
	}
	if out.Category == CategoryUnknown {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
			out.Category = CategoryNetwork
		}
	}
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			out.Message = hint
			break
		}
	}
	return out
}
