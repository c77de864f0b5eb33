package resolver

import (
	"database/sql"
	"time"

	"condo-watch/internal/models"
	"condo-watch/internal/parser"
)

// suspiciousSwing is the relative change in price or area treated as a
// suspicious update.
const suspiciousSwing = 0.7

// UpsertListing inserts or updates the listing row for a detail record and
// classifies the change.
func (r *Resolver) UpsertListing(sourceSite, areaCode string, d *parser.DetailRecord, property *models.MasterProperty) (*Result, error) {
	now := time.Now()

	existing, err := r.store.GetListingBySiteID(sourceSite, d.SitePropertyID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		// Legacy rows were stored before the site id was captured.
		byURL, err := r.store.GetListingByURL(sourceSite, d.URL)
		if err != nil {
			return nil, err
		}
		if byURL != nil {
			if byURL.SitePropertyID == "" {
				byURL.SitePropertyID = d.SitePropertyID
				existing = byURL
			} else if byURL.SitePropertyID != d.SitePropertyID {
				// The site reused the URL for a different property. The old
				// row is stale: delist it and insert fresh below.
				byURL.IsActive = false
				byURL.DelistedAt = sql.NullTime{Time: now, Valid: true}
				if err := r.store.UpdateListing(byURL); err != nil {
					return nil, err
				}
				r.log.Info("delisted stale listing on url collision",
					"source_site", sourceSite, "url", d.URL, "stale_id", byURL.SitePropertyID)
			}
		}
	}

	if existing == nil {
		return r.insertListing(sourceSite, areaCode, d, property, now)
	}
	return r.updateListing(existing, areaCode, d, property, now)
}

func (r *Resolver) insertListing(sourceSite, areaCode string, d *parser.DetailRecord, property *models.MasterProperty, now time.Time) (*Result, error) {
	l := &models.PropertyListing{
		MasterPropertyID: property.ID,
		SourceSite:       sourceSite,
		SitePropertyID:   d.SitePropertyID,
		AreaCode:         areaCode,
		URL:              d.URL,
		IsActive:         true,
		FirstSeenAt:      now,
		LastConfirmedAt:  now,
	}
	setNullInt(&l.CurrentPrice, d.Price)
	setNullInt(&l.ManagementFee, d.ManagementFee)
	setNullInt(&l.RepairFund, d.RepairFund)
	setNullInt(&l.ListingFloor, d.Floor)
	setNullFloat(&l.ListingArea, d.Area)
	setNullString(&l.ListingLayout, d.Layout)
	setNullString(&l.ListingDirection, d.Direction)
	setNullInt(&l.ListingTotalFloors, d.TotalFloors)
	setNullFloat(&l.ListingBalconyArea, d.BalconyArea)
	setNullString(&l.ListingAddress, d.Address)
	setNullString(&l.ListingBuildingName, d.BuildingName)
	setNullString(&l.StationInfo, d.StationInfo)
	setNullTime(&l.FirstPublishedAt, d.FirstPublishedAt)
	l.DetailFetchedAt = sql.NullTime{Time: now, Valid: true}

	if err := r.store.InsertListing(l); err != nil {
		return nil, err
	}
	if d.Price > 0 {
		if err := r.store.InsertPriceHistory(l.ID, d.Price, now); err != nil {
			return nil, err
		}
	}

	r.log.Info("new listing", "source_site", sourceSite, "site_property_id", d.SitePropertyID, "price", d.Price)
	return &Result{UpdateType: models.UpdateNew, Listing: l}, nil
}

func (r *Resolver) updateListing(l *models.PropertyListing, areaCode string, d *parser.DetailRecord, property *models.MasterProperty, now time.Time) (*Result, error) {
	result := &Result{Listing: l}
	var changed []string

	// URL drift with a stable site id is routine; update silently.
	if l.URL != d.URL && d.URL != "" {
		l.URL = d.URL
	}
	if areaCode != "" {
		l.AreaCode = areaCode
	}

	priceChanged := false
	if d.Price > 0 && (!l.CurrentPrice.Valid || l.CurrentPrice.Int64 != d.Price) {
		if l.CurrentPrice.Valid {
			result.Suspicious = result.Suspicious || swings(float64(l.CurrentPrice.Int64), float64(d.Price))
		}
		l.CurrentPrice = sql.NullInt64{Int64: d.Price, Valid: true}
		priceChanged = true
	}

	changed = appendIfChangedInt(changed, "management_fee", &l.ManagementFee, d.ManagementFee, r.opts.PreventNullUpdates)
	changed = appendIfChangedInt(changed, "repair_fund", &l.RepairFund, d.RepairFund, r.opts.PreventNullUpdates)

	if l.ListingFloor.Valid && d.Floor == 0 {
		// Floor dropping to null is one of the drift signatures.
		result.Suspicious = true
		if !r.opts.PreventNullUpdates {
			l.ListingFloor = sql.NullInt64{}
			changed = append(changed, "listing_floor")
		}
	} else {
		changed = appendIfChangedInt(changed, "listing_floor", &l.ListingFloor, d.Floor, r.opts.PreventNullUpdates)
	}

	if l.ListingArea.Valid && d.Area > 0 && swings(l.ListingArea.Float64, d.Area) {
		result.Suspicious = true
	}
	changed = appendIfChangedFloat(changed, "listing_area", &l.ListingArea, d.Area, r.opts.PreventNullUpdates)
	changed = appendIfChangedString(changed, "listing_layout", &l.ListingLayout, d.Layout, r.opts.PreventNullUpdates)
	changed = appendIfChangedString(changed, "listing_direction", &l.ListingDirection, d.Direction, r.opts.PreventNullUpdates)
	changed = appendIfChangedInt(changed, "listing_total_floors", &l.ListingTotalFloors, d.TotalFloors, r.opts.PreventNullUpdates)
	changed = appendIfChangedFloat(changed, "listing_balcony_area", &l.ListingBalconyArea, d.BalconyArea, r.opts.PreventNullUpdates)
	changed = appendIfChangedString(changed, "listing_address", &l.ListingAddress, d.Address, r.opts.PreventNullUpdates)
	changed = appendIfChangedString(changed, "listing_building_name", &l.ListingBuildingName, d.BuildingName, r.opts.PreventNullUpdates)
	changed = appendIfChangedString(changed, "station_info", &l.StationInfo, d.StationInfo, r.opts.PreventNullUpdates)

	if l.MasterPropertyID != property.ID {
		l.MasterPropertyID = property.ID
		changed = append(changed, "master_property")
	}

	if !l.FirstPublishedAt.Valid && !d.FirstPublishedAt.IsZero() {
		setNullTime(&l.FirstPublishedAt, d.FirstPublishedAt)
	}

	l.IsActive = true
	l.MissCount = 0
	l.DelistedAt = sql.NullTime{}
	l.LastConfirmedAt = now
	l.DetailFetchedAt = sql.NullTime{Time: now, Valid: true}

	if err := r.store.UpdateListing(l); err != nil {
		return nil, err
	}
	if priceChanged {
		if err := r.store.InsertPriceHistory(l.ID, d.Price, now); err != nil {
			return nil, err
		}
	}

	result.ChangedFields = changed
	switch {
	case priceChanged:
		result.UpdateType = models.UpdatePriceUpdated
	case len(changed) > 0:
		result.UpdateType = models.UpdateOtherUpdates
	default:
		result.UpdateType = models.UpdateRefetchedUnchanged
	}
	return result, nil
}

// swings reports a relative change of at least suspiciousSwing.
func swings(old, new float64) bool {
	if old == 0 {
		return false
	}
	delta := new - old
	if delta < 0 {
		delta = -delta
	}
	return delta/old >= suspiciousSwing
}

func appendIfChangedInt(changed []string, name string, dst *sql.NullInt64, v int64, preventNull bool) []string {
	if v > 0 {
		if !dst.Valid || dst.Int64 != v {
			*dst = sql.NullInt64{Int64: v, Valid: true}
			return append(changed, name)
		}
		return changed
	}
	if dst.Valid && !preventNull {
		*dst = sql.NullInt64{}
		return append(changed, name)
	}
	return changed
}

func appendIfChangedFloat(changed []string, name string, dst *sql.NullFloat64, v float64, preventNull bool) []string {
	if v > 0 {
		if !dst.Valid || dst.Float64 != v {
			*dst = sql.NullFloat64{Float64: v, Valid: true}
			return append(changed, name)
		}
		return changed
	}
	if dst.Valid && !preventNull {
		*dst = sql.NullFloat64{}
		return append(changed, name)
	}
	return changed
}

func appendIfChangedString(changed []string, name string, dst *sql.NullString, v string, preventNull bool) []string {
	if v != "" {
		if !dst.Valid || dst.String != v {
			*dst = sql.NullString{String: v, Valid: true}
			return append(changed, name)
		}
		return changed
	}
	if dst.Valid && !preventNull {
		*dst = sql.NullString{}
		return append(changed, name)
	}
	return changed
}
