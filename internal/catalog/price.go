package catalog

import (
	"math"
	"strconv"
	"strings"
)

// PriceRange is a parsed price string. Unparseable input yields NaN bounds.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Valid reports whether both bounds are numbers.
func (p PriceRange) Valid() bool {
	return !math.IsNaN(p.Min) && !math.IsNaN(p.Max)
}

var invalidRange = PriceRange{Min: math.NaN(), Max: math.NaN()}

var dashReplacer = strings.NewReplacer("–", "-", "—", "-", " to ", "-")

// ParsePriceRange reads "£200 - £300" as (200,300) and "£200" as (200,200).
// Anything else, including "contact us", parses to NaN bounds.
func ParsePriceRange(s string) PriceRange {
	s = dashReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return invalidRange
	}

	parts := strings.Split(s, "-")
	switch len(parts) {
	case 1:
		v, ok := parseAmount(parts[0])
		if !ok {
			return invalidRange
		}
		return PriceRange{Min: v, Max: v}
	case 2:
		lo, okLo := parseAmount(parts[0])
		hi, okHi := parseAmount(parts[1])
		if !okLo || !okHi {
			return invalidRange
		}
		return PriceRange{Min: lo, Max: hi}
	default:
		return invalidRange
	}
}

var amountReplacer = strings.NewReplacer("£", "", "$", "", "€", "", ",", "", "GBP", "", " ", "")

func parseAmount(s string) (float64, bool) {
	s = amountReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
