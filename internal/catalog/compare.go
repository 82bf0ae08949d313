package catalog

// PlanItem is a treatment the patient wants, with a quantity.
type PlanItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ComparisonRow is one treatment as offered (or not) by one clinic.
type ComparisonRow struct {
	Treatment string     `json:"treatment"`
	Category  string     `json:"category,omitempty"`
	Quantity  int        `json:"quantity"`
	Offered   bool       `json:"offered"`
	Variant   *Variant   `json:"variant,omitempty"`
	Price     PriceRange `json:"-"`
	Priced    bool       `json:"priced"`
}

// ClinicComparison aggregates a plan against one clinic's variants.
type ClinicComparison struct {
	Clinic        Clinic          `json:"clinic"`
	Rows          []ComparisonRow `json:"rows"`
	TotalMin      float64         `json:"totalMin"`
	TotalMax      float64         `json:"totalMax"`
	UnpricedCount int             `json:"unpricedCount"`
}

// Compare lays a plan against each clinic's variants. Rows whose price string
// does not parse are kept but excluded from the totals and counted in
// UnpricedCount. Empty clinicIDs compares every clinic.
func (c *Catalog) Compare(items []PlanItem, clinicIDs []string) []ClinicComparison {
	var clinics []Clinic
	if len(clinicIDs) == 0 {
		clinics = c.Clinics()
	} else {
		for _, id := range clinicIDs {
			if cl, ok := c.Clinic(id); ok {
				clinics = append(clinics, cl)
			}
		}
	}

	out := make([]ClinicComparison, 0, len(clinics))
	for _, cl := range clinics {
		cmp := ClinicComparison{Clinic: cl, Rows: make([]ComparisonRow, 0, len(items))}
		for _, item := range items {
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			row := ComparisonRow{Treatment: item.Name, Quantity: qty}
			if t, ok := c.Lookup(item.Name); ok {
				row.Category = t.Category
			}
			if v, ok := c.VariantFor(item.Name, cl.ID); ok {
				row.Offered = true
				row.Variant = &v
				row.Price = v.Price()
				row.Priced = row.Price.Valid()
				if row.Priced {
					cmp.TotalMin += row.Price.Min * float64(qty)
					cmp.TotalMax += row.Price.Max * float64(qty)
				} else {
					cmp.UnpricedCount++
				}
			}
			cmp.Rows = append(cmp.Rows, row)
		}
		out = append(out, cmp)
	}
	return out
}
