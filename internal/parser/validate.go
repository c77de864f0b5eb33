package parser

import (
	"fmt"

	"condo-watch/internal/normalize"
)

// defaultMaxArea caps detail areas in ㎡. Sites with penthouse-heavy
// inventory widen it via the areaLimiter capability.
const defaultMaxArea = 500

// areaLimiter is an optional parser capability widening the area ceiling.
type areaLimiter interface {
	MaxArea() float64
}

// FieldError is one required-field violation on a detail record.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateDetail checks a detail record against the required-fields
// contract. Returned violations include partial-required fields; the caller
// decides whether those are tolerable at the current miss rate.
func ValidateDetail(p SiteParser, d *DetailRecord) []FieldError {
	var errs []FieldError

	if d.SitePropertyID == "" {
		errs = append(errs, FieldError{"site_property_id", "missing"})
	} else if !p.ValidateSitePropertyID(d.SitePropertyID, d.URL) {
		errs = append(errs, FieldError{"site_property_id", "bad shape"})
	}

	if d.Price == 0 {
		errs = append(errs, FieldError{"price", "missing"})
	} else if !normalize.ValidPrice(d.Price) {
		errs = append(errs, FieldError{"price", fmt.Sprintf("out of range: %d", d.Price)})
	}

	if d.BuildingName == "" {
		errs = append(errs, FieldError{"building_name", "missing"})
	} else if normalize.IsAdCopyName(d.BuildingName) && d.Address == "" {
		errs = append(errs, FieldError{"building_name", "ad copy without address"})
	}

	if d.Address == "" {
		errs = append(errs, FieldError{"address", "missing"})
	} else if !normalize.HasPrefectureAndWard(d.Address) {
		errs = append(errs, FieldError{"address", "no prefecture or ward"})
	}

	maxArea := float64(defaultMaxArea)
	if w, ok := p.(areaLimiter); ok {
		maxArea = w.MaxArea()
	}
	if d.Area == 0 {
		errs = append(errs, FieldError{"area", "missing"})
	} else if d.Area < normalize.MinArea || d.Area > maxArea {
		errs = append(errs, FieldError{"area", fmt.Sprintf("out of range: %.2f", d.Area)})
	}

	if d.Layout == "" {
		errs = append(errs, FieldError{"layout", "missing"})
	}

	if d.Floor > 0 && d.TotalFloors > 0 && !normalize.ValidFloorNumber(d.Floor, d.TotalFloors) {
		errs = append(errs, FieldError{"floor", fmt.Sprintf("floor %d above total %d", d.Floor, d.TotalFloors)})
	}

	return errs
}

// ValidateListRow checks the Phase A minimum: url, site id, price.
func ValidateListRow(p SiteParser, row ListRow) bool {
	if row.URL == "" || row.SitePropertyID == "" || row.Price == 0 {
		return false
	}
	return p.ValidateSitePropertyID(row.SitePropertyID, row.URL)
}
