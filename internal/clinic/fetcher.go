package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/internal/catalog"
)

// HTTPFetcher loads clinics from a remote GET /api/clinics/{id}.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher. A nil client uses a 10s-timeout client.
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// FetchClinic requests one clinic. It does not retry.
func (f *HTTPFetcher) FetchClinic(ctx context.Context, id string) (*catalog.Clinic, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/api/clinics/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("clinic: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CategoryNetwork, "clinic request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, apperr.FromStatus(resp.StatusCode, fmt.Sprintf("clinic %s: status %d", id, resp.StatusCode))
	}
	var c catalog.Clinic
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, apperr.Wrap(err, apperr.CategoryServer, "malformed clinic response")
	}
	return &c, nil
}
