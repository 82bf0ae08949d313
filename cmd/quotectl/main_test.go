package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dental-quote-platform/internal/authgate"
	httpmiddleware "github.com/wolfman30/dental-quote-platform/internal/http/middleware"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

type priceOutput struct {
	Results []struct {
		ClinicID       string          `json:"clinicId"`
		Total          decimal.Decimal `json:"total"`
		UKTotal        decimal.Decimal `json:"ukTotal"`
		PackageApplied bool            `json:"packageApplied"`
	} `json:"results"`
}

func TestPriceAtOneClinic(t *testing.T) {
	out, err := execute(t, "price", "-t", "Dental Implant:2", "--clinic", "dentgroup-istanbul")
	require.NoError(t, err)

	var got priceOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Results, 1)
	assert.Equal(t, "dentgroup-istanbul", got.Results[0].ClinicID)
	assert.True(t, decimal.NewFromInt(1080).Equal(got.Results[0].Total), got.Results[0].Total.String())
	assert.True(t, decimal.NewFromInt(2400).Equal(got.Results[0].UKTotal), got.Results[0].UKTotal.String())
}

func TestPriceAllClinics(t *testing.T) {
	out, err := execute(t, "price", "-t", "Dental Implant")
	require.NoError(t, err)

	var got priceOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Results, 4)
}

func TestPriceWithPackage(t *testing.T) {
	out, err := execute(t, "price", "-t", "Dental Implant", "--clinic", "dentgroup-istanbul", "--package", "pkg-002")
	require.NoError(t, err)

	var got priceOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Results, 1)
	assert.True(t, got.Results[0].PackageApplied)
	assert.True(t, decimal.NewFromInt(2200).Equal(got.Results[0].Total), got.Results[0].Total.String())
}

func TestPriceErrors(t *testing.T) {
	cases := [][]string{
		{"price"},
		{"price", "-t", "Gold Tooth"},
		{"price", "-t", "Dental Implant", "--clinic", "nowhere"},
		{"price", "-t", "Dental Implant", "--package", "pkg-002"},
	}
	for _, args := range cases {
		_, err := execute(t, args...)
		assert.Error(t, err, strings.Join(args, " "))
	}
}

func TestClinicsByTier(t *testing.T) {
	out, err := execute(t, "clinics", "--tier", "affordable")
	require.NoError(t, err)

	var got struct {
		Clinics []struct {
			ID string `json:"id"`
		} `json:"clinics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Clinics, 1)
	assert.Equal(t, "maltepe-dental-clinic", got.Clinics[0].ID)

	_, err = execute(t, "clinics", "no-such-clinic")
	assert.Error(t, err)
}

func TestTokenIssuesStaffToken(t *testing.T) {
	out, err := execute(t, "token", "--secret", "s3cret", "--subject", "u1", "--email", "staff@maltepe.example", "--clinic", "maltepe-dental-clinic")
	require.NoError(t, err)

	claims := httpmiddleware.PortalClaims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), &claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, httpmiddleware.RoleClinicStaff, claims.Role)
	assert.Equal(t, "maltepe-dental-clinic", claims.ClinicID)

	_, err = execute(t, "token", "--secret", "s3cret")
	assert.Error(t, err, "staff token without clinic")
	_, err = execute(t, "token", "--secret", "s3cret", "--role", "dentist")
	assert.Error(t, err, "unknown role")
}

func TestAuthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(authgate.User{ID: "u1", Role: httpmiddleware.RoleClinicStaff})
	}))
	defer srv.Close()

	out, err := execute(t, "auth", "check", "--api", srv.URL, "--token", "good")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "authorized"`)

	out, err = execute(t, "auth", "check", "--api", srv.URL, "--token", "bad")
	assert.Error(t, err)
	assert.Contains(t, out, `"status": "unauthorized_no_user"`)

	out, err = execute(t, "auth", "check", "--api", srv.URL, "--token", "good", "--role", "admin")
	assert.Error(t, err)
	assert.Contains(t, out, `"status": "unauthorized_wrong_role"`)
}
