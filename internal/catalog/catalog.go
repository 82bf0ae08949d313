// Package catalog holds the static treatment map and partner clinic profiles
// used to build and compare quotes. Data is embedded at build time and never
// mutated at runtime.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed data/treatments.json data/clinics.yaml
var dataFS embed.FS

// Catalog is a read-only lookup over treatments and clinics.
type Catalog struct {
	treatments map[string]Treatment
	order      []string
	clinics    map[string]Clinic
}

type treatmentFile struct {
	Treatments []Treatment `json:"treatments"`
}

type clinicFile struct {
	Clinics []Clinic `yaml:"clinics"`
}

// Load parses the embedded catalog data.
func Load() (*Catalog, error) {
	rawTreatments, err := dataFS.ReadFile("data/treatments.json")
	if err != nil {
		return nil, fmt.Errorf("catalog: read treatments: %w", err)
	}
	var tf treatmentFile
	if err := json.Unmarshal(rawTreatments, &tf); err != nil {
		return nil, fmt.Errorf("catalog: decode treatments: %w", err)
	}

	rawClinics, err := dataFS.ReadFile("data/clinics.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: read clinics: %w", err)
	}
	var cf clinicFile
	if err := yaml.Unmarshal(rawClinics, &cf); err != nil {
		return nil, fmt.Errorf("catalog: decode clinics: %w", err)
	}

	return New(tf.Treatments, cf.Clinics)
}

// MustLoad is Load for process start-up; it panics on malformed embedded data.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a catalog from explicit data.
func New(treatments []Treatment, clinics []Clinic) (*Catalog, error) {
	c := &Catalog{
		treatments: make(map[string]Treatment, len(treatments)),
		clinics:    make(map[string]Clinic, len(clinics)),
	}
	for _, t := range treatments {
		key := normalize(t.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog: treatment with empty name")
		}
		if _, dup := c.treatments[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate treatment %q", t.Name)
		}
		c.treatments[key] = t
		c.order = append(c.order, key)
	}
	for _, cl := range clinics {
		if cl.ID == "" {
			return nil, fmt.Errorf("catalog: clinic with empty id")
		}
		if !cl.Tier.Valid() {
			return nil, fmt.Errorf("catalog: clinic %s: unknown tier %q", cl.ID, cl.Tier)
		}
		if cl.PriceFactor <= 0 || cl.PriceFactor >= 1 {
			return nil, fmt.Errorf("catalog: clinic %s: price factor %v outside (0,1)", cl.ID, cl.PriceFactor)
		}
		c.clinics[cl.ID] = cl
	}
	return c, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup finds a treatment by display name, case-insensitively.
func (c *Catalog) Lookup(name string) (Treatment, bool) {
	t, ok := c.treatments[normalize(name)]
	return t, ok
}

// VariantFor returns the clinic's offering of a treatment. Not found means the
// clinic does not offer it.
func (c *Catalog) VariantFor(name, clinicID string) (Variant, bool) {
	t, ok := c.Lookup(name)
	if !ok {
		return Variant{}, false
	}
	return lo.Find(t.Variants, func(v Variant) bool { return v.ClinicID == clinicID })
}

// Treatments returns all treatments in catalog order.
func (c *Catalog) Treatments() []Treatment {
	return lo.Map(c.order, func(key string, _ int) Treatment { return c.treatments[key] })
}

// Categories returns the distinct treatment categories in catalog order.
func (c *Catalog) Categories() []string {
	return lo.Uniq(lo.Map(c.Treatments(), func(t Treatment, _ int) string { return t.Category }))
}

// TreatmentsInCategory filters treatments by category, case-insensitively.
func (c *Catalog) TreatmentsInCategory(category string) []Treatment {
	want := normalize(category)
	return lo.Filter(c.Treatments(), func(t Treatment, _ int) bool { return normalize(t.Category) == want })
}

// Clinic returns the profile for id.
func (c *Catalog) Clinic(id string) (Clinic, bool) {
	cl, ok := c.clinics[id]
	return cl, ok
}

// Clinics returns all clinics ordered by tier (premium first) then name.
func (c *Catalog) Clinics() []Clinic {
	out := lo.Values(c.clinics)
	slices.SortStableFunc(out, func(a, b Clinic) int {
		if d := a.Tier.Rank() - b.Tier.Rank(); d != 0 {
			return d
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
