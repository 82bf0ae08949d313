package catalog

import "strings"

// Tier is a clinic's market positioning bucket.
type Tier string

const (
	TierPremium    Tier = "premium"
	TierStandard   Tier = "standard"
	TierAffordable Tier = "affordable"
)

// Rank orders tiers for default listing: premium first.
func (t Tier) Rank() int {
	switch t {
	case TierPremium:
		return 0
	case TierStandard:
		return 1
	case TierAffordable:
		return 2
	default:
		return 3
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t.Rank() < 3
}

// Variant is a clinic's offering of one treatment.
type Variant struct {
	ClinicID       string   `json:"clinicId"`
	Label          string   `json:"label"`
	PriceRange     string   `json:"priceRange"`
	IncludedItems  []string `json:"includedItems"`
	OptionalAddons []string `json:"optionalAddons"`
	Note           string   `json:"note,omitempty"`
}

// Price parses the variant's price string.
func (v Variant) Price() PriceRange {
	return ParsePriceRange(v.PriceRange)
}

// Treatment is a catalog entry with its UK baseline price and clinic variants.
type Treatment struct {
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	UKPriceGBP float64   `json:"ukPriceGBP"`
	Variants   []Variant `json:"clinicVariants"`
}

// Ratings summarises patient reviews.
type Ratings struct {
	Overall float64 `json:"overall" yaml:"overall"`
	Reviews int     `json:"reviews" yaml:"reviews"`
}

// Location is where a clinic operates.
type Location struct {
	City    string `json:"city" yaml:"city"`
	Area    string `json:"area,omitempty" yaml:"area"`
	Country string `json:"country" yaml:"country"`
}

// Clinic is a partner clinic profile.
type Clinic struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Tier        Tier              `json:"tier" yaml:"tier"`
	PriceFactor float64           `json:"priceFactor" yaml:"priceFactor"`
	Ratings     Ratings           `json:"ratings" yaml:"ratings"`
	Location    Location          `json:"location" yaml:"location"`
	Features    []string          `json:"features" yaml:"features"`
	Guarantees  map[string]string `json:"guarantees" yaml:"guarantees"`
}

// GuaranteeFor returns the warranty for a treatment class such as "implants".
func (c Clinic) GuaranteeFor(class string) (string, bool) {
	g, ok := c.Guarantees[strings.ToLower(strings.TrimSpace(class))]
	return g, ok && g != ""
}
