package resolver

import (
	"database/sql"
	"time"

	"condo-watch/internal/normalize"
)

// vote is one listing's opinion about an attribute value, weighted for
// tie-breaks by when the listing was last confirmed.
type vote[T comparable] struct {
	value T
	at    time.Time
}

// mode returns the most common value, breaking ties in favor of the value
// most recently confirmed. Running it twice over the same votes yields the
// same answer.
func mode[T comparable](votes []vote[T]) (T, bool) {
	var zero T
	if len(votes) == 0 {
		return zero, false
	}

	counts := make(map[T]int)
	latest := make(map[T]time.Time)
	for _, v := range votes {
		counts[v.value]++
		if v.at.After(latest[v.value]) {
			latest[v.value] = v.at
		}
	}

	var best T
	bestCount := -1
	for value, count := range counts {
		if count > bestCount || (count == bestCount && latest[value].After(latest[best])) {
			best = value
			bestCount = count
		}
	}
	return best, true
}

// ReconcileProperty recomputes a unit's authoritative attributes as the mode
// across its active listings' listing-side fields. No single source site is
// privileged; noisy per-site data converges here.
func (r *Resolver) ReconcileProperty(propertyID int64) error {
	p, err := r.store.GetProperty(propertyID)
	if err != nil || p == nil {
		return err
	}
	listings, err := r.store.ListActiveListingsByProperty(propertyID)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		return nil
	}

	var floors []vote[int64]
	var areas []vote[float64]
	var layouts, directions []vote[string]
	var balconies []vote[float64]

	for _, l := range listings {
		at := l.LastConfirmedAt
		if l.ListingFloor.Valid {
			floors = append(floors, vote[int64]{l.ListingFloor.Int64, at})
		}
		if l.ListingArea.Valid {
			areas = append(areas, vote[float64]{l.ListingArea.Float64, at})
		}
		if l.ListingLayout.Valid {
			layouts = append(layouts, vote[string]{l.ListingLayout.String, at})
		}
		if l.ListingDirection.Valid {
			directions = append(directions, vote[string]{l.ListingDirection.String, at})
		}
		if l.ListingBalconyArea.Valid {
			balconies = append(balconies, vote[float64]{l.ListingBalconyArea.Float64, at})
		}
	}

	changed := false
	if v, ok := mode(floors); ok && (!p.Floor.Valid || p.Floor.Int64 != v) {
		p.Floor = sql.NullInt64{Int64: v, Valid: true}
		changed = true
	}
	if v, ok := mode(areas); ok && (!p.Area.Valid || p.Area.Float64 != v) {
		p.Area = sql.NullFloat64{Float64: v, Valid: true}
		changed = true
	}
	if v, ok := mode(layouts); ok && (!p.Layout.Valid || p.Layout.String != v) {
		p.Layout = sql.NullString{String: v, Valid: true}
		changed = true
	}
	if v, ok := mode(directions); ok && (!p.Direction.Valid || p.Direction.String != v) {
		p.Direction = sql.NullString{String: v, Valid: true}
		changed = true
	}
	if v, ok := mode(balconies); ok && (!p.BalconyArea.Valid || p.BalconyArea.Float64 != v) {
		p.BalconyArea = sql.NullFloat64{Float64: v, Valid: true}
		changed = true
	}

	if !changed {
		return nil
	}
	return r.store.UpdateProperty(p)
}

// ReconcileBuilding recomputes a building's display fields from the active
// listings across all of its units.
func (r *Resolver) ReconcileBuilding(buildingID int64) error {
	b, err := r.store.GetBuilding(buildingID)
	if err != nil || b == nil {
		return err
	}
	listings, err := r.store.ListActiveListingsByBuilding(buildingID)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		return nil
	}

	var names []vote[string]
	var addresses []vote[string]
	var totalFloors []vote[int64]

	for _, l := range listings {
		at := l.LastConfirmedAt
		if l.ListingBuildingName.Valid {
			name, _ := normalize.ExtractRoomNumber(l.ListingBuildingName.String)
			if !normalize.IsAdCopyName(name) {
				names = append(names, vote[string]{name, at})
			}
		}
		if l.ListingAddress.Valid {
			addresses = append(addresses, vote[string]{l.ListingAddress.String, at})
		}
		if l.ListingTotalFloors.Valid {
			totalFloors = append(totalFloors, vote[int64]{l.ListingTotalFloors.Int64, at})
		}
	}

	changed := false
	if v, ok := mode(names); ok && v != "" {
		if b.NormalizedName != v || !b.IsValidName {
			b.NormalizedName = v
			b.CanonicalName = normalize.CanonicalName(v)
			b.IsValidName = true
			changed = true
		}
	}
	if v, ok := mode(addresses); ok && (!b.Address.Valid || b.Address.String != v) {
		b.Address = sql.NullString{String: v, Valid: true}
		changed = true
	}
	if v, ok := mode(totalFloors); ok && (!b.TotalFloors.Valid || b.TotalFloors.Int64 != v) {
		b.TotalFloors = sql.NullInt64{Int64: v, Valid: true}
		changed = true
	}

	if !changed {
		return nil
	}
	return r.store.UpdateBuilding(b)
}
