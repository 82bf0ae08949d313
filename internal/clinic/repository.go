// Package clinic serves partner clinic records to the quote flow and portal.
package clinic

import (
	"context"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
)

// Repository reads partner clinics.
type Repository interface {
	Get(ctx context.Context, id string) (*catalog.Clinic, error)
	List(ctx context.Context) ([]catalog.Clinic, error)
}

// CatalogRepository serves clinics from the embedded catalog.
type CatalogRepository struct {
	catalog *catalog.Catalog
}

// NewCatalogRepository wraps cat.
func NewCatalogRepository(cat *catalog.Catalog) *CatalogRepository {
	return &CatalogRepository{catalog: cat}
}

// Get returns the clinic or ErrNotFound.
func (r *CatalogRepository) Get(_ context.Context, id string) (*catalog.Clinic, error) {
	c, ok := r.catalog.Clinic(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// List returns clinics ordered by tier, then name.
func (r *CatalogRepository) List(_ context.Context) ([]catalog.Clinic, error) {
	return r.catalog.Clinics(), nil
}
