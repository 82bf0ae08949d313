package apperr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

func TestClassify(t *testing.T) {
	cases := map[int]Category{
		0:                                CategoryNetwork,
		http.StatusUnauthorized:          CategoryAuthentication,
		http.StatusForbidden:             CategoryAuthorization,
		http.StatusBadRequest:            CategoryValidation,
		http.StatusUnprocessableEntity:   CategoryValidation,
		http.StatusPaymentRequired:       CategoryPayment,
		http.StatusRequestEntityTooLarge: CategoryUpload,
		http.StatusBadGateway:            CategoryExternalService,
		http.StatusInternalServerError:   CategoryServer,
		http.StatusNotFound:              CategoryClient,
		http.StatusOK:                    CategoryUnknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, Classify(status), "status %d", status)
	}
}

func TestSensitiveErrorHidesDetail(t *testing.T) {
	err := New(CategoryServer, "db password rejected for user admin").
		WithContext("host", "10.0.0.4").
		MarkSensitive()

	assert.Equal(t, defaultMessages[CategoryServer], err.UserMessage())

	rec := httptest.NewRecorder()
	Write(rec, httptest.NewRequest(http.MethodGet, "/x", nil), logging.Default(), err)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, CategoryServer, body.Error.Category)
	assert.Empty(t, body.Error.Details)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestWriteIncludesContextForNonSensitive(t *testing.T) {
	err := New(CategoryValidation, "quantity must be positive").WithContext("field", "quantity")
	rec := httptest.NewRecorder()
	Write(rec, nil, nil, err)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "quantity must be positive", body.Error.Message)
	assert.Equal(t, "quantity", body.Error.Details["field"])
}

func TestFromRecoversMarksAndHints(t *testing.T) {
	base := errors.WithHint(errors.New("clinic row missing"), "This clinic is no longer listed.")
	err := fmt.Errorf("clinic: get: %w", Mark(base, CategoryClient))

	ae := From(err)
	assert.Equal(t, CategoryClient, ae.Category)
	assert.Equal(t, "This clinic is no longer listed.", ae.UserMessage())
	assert.True(t, Is(err, CategoryClient))
	assert.False(t, Is(err, CategoryServer))
}

func TestFromWrappedAppError(t *testing.T) {
	inner := New(CategoryAuthorization, "staff only").WithStatus(http.StatusForbidden)
	ae := From(fmt.Errorf("offers: create: %w", inner))
	assert.Same(t, inner, ae)
	assert.Equal(t, http.StatusForbidden, ae.HTTPStatus())
}

func TestFromDeadlineIsNetwork(t *testing.T) {
	ae := From(fmt.Errorf("fetch clinic: %w", context.DeadlineExceeded))
	assert.Equal(t, CategoryNetwork, ae.Category)
	assert.Equal(t, http.StatusBadGateway, ae.HTTPStatus())
}

func TestFromNil(t *testing.T) {
	assert.Nil(t, From(nil))
	assert.False(t, Is(nil, CategoryUnknown))
}

type validateProbe struct {
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"min=1,max=32"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validateProbe{Email: "a@b.co", Quantity: 2}))

	err := Validate(validateProbe{Email: "nope", Quantity: 0})
	require.Error(t, err)
	ae := From(err)
	assert.Equal(t, CategoryValidation, ae.Category)
	assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus())
	assert.Equal(t, "email", ae.Context["email"])
	assert.Equal(t, "min", ae.Context["quantity"])
}
