package store

import (
	"fmt"
	"strings"
	"time"

	"condo-watch/internal/models"
)

// GetListingBySiteID returns the listing identified by the site's own id, or
// nil.
func (s *Store) GetListingBySiteID(sourceSite, sitePropertyID string) (*models.PropertyListing, error) {
	var l models.PropertyListing
	err := s.get(&l, `SELECT * FROM property_listings WHERE source_site = ? AND site_property_id = ?`,
		sourceSite, sitePropertyID)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s/%s: %w", sourceSite, sitePropertyID, err)
	}
	return &l, nil
}

// GetListingByURL is the legacy fallback for rows stored before the site id
// was captured.
func (s *Store) GetListingByURL(sourceSite, url string) (*models.PropertyListing, error) {
	var l models.PropertyListing
	err := s.get(&l, `SELECT * FROM property_listings WHERE source_site = ? AND url = ? ORDER BY id LIMIT 1`,
		sourceSite, url)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing by url: %w", err)
	}
	return &l, nil
}

// InsertListing inserts a new listing and fills in its id.
func (s *Store) InsertListing(l *models.PropertyListing) error {
	res, err := s.exec(`INSERT INTO property_listings (
			master_property_id, source_site, site_property_id, area_code, url,
			current_price, management_fee, repair_fund,
			listing_floor, listing_area, listing_layout, listing_direction,
			listing_total_floors, listing_balcony_area, listing_address,
			listing_building_name, station_info,
			is_active, miss_count, first_seen_at, first_published_at,
			last_confirmed_at, detail_fetched_at, delisted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.MasterPropertyID, l.SourceSite, l.SitePropertyID, l.AreaCode, l.URL,
		l.CurrentPrice, l.ManagementFee, l.RepairFund,
		l.ListingFloor, l.ListingArea, l.ListingLayout, l.ListingDirection,
		l.ListingTotalFloors, l.ListingBalconyArea, l.ListingAddress,
		l.ListingBuildingName, l.StationInfo,
		l.IsActive, l.MissCount, l.FirstSeenAt, l.FirstPublishedAt,
		l.LastConfirmedAt, l.DetailFetchedAt, l.DelistedAt)
	if err != nil {
		return err
	}
	l.ID, _ = res.LastInsertId()
	return nil
}

// UpdateListing writes back every mutable listing column.
func (s *Store) UpdateListing(l *models.PropertyListing) error {
	_, err := s.exec(`UPDATE property_listings SET
			master_property_id = ?, area_code = ?, url = ?,
			current_price = ?, management_fee = ?, repair_fund = ?,
			listing_floor = ?, listing_area = ?, listing_layout = ?,
			listing_direction = ?, listing_total_floors = ?, listing_balcony_area = ?,
			listing_address = ?, listing_building_name = ?, station_info = ?,
			is_active = ?, miss_count = ?, first_published_at = ?,
			last_confirmed_at = ?, detail_fetched_at = ?, delisted_at = ?
		WHERE id = ?`,
		l.MasterPropertyID, l.AreaCode, l.URL,
		l.CurrentPrice, l.ManagementFee, l.RepairFund,
		l.ListingFloor, l.ListingArea, l.ListingLayout,
		l.ListingDirection, l.ListingTotalFloors, l.ListingBalconyArea,
		l.ListingAddress, l.ListingBuildingName, l.StationInfo,
		l.IsActive, l.MissCount, l.FirstPublishedAt,
		l.LastConfirmedAt, l.DetailFetchedAt, l.DelistedAt,
		l.ID)
	if err != nil {
		return fmt.Errorf("failed to update listing %d: %w", l.ID, err)
	}
	return nil
}

// TouchListing updates only last_confirmed_at and resets the miss counter,
// for listings seen on a list page but not re-fetched.
func (s *Store) TouchListing(id int64, at time.Time) error {
	_, err := s.exec(`UPDATE property_listings SET last_confirmed_at = ?, miss_count = 0, is_active = 1, delisted_at = NULL
		WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch listing %d: %w", id, err)
	}
	return nil
}

// InsertPriceHistory appends one observed price for a listing.
func (s *Store) InsertPriceHistory(listingID, price int64, at time.Time) error {
	_, err := s.exec(`INSERT INTO listing_price_history (listing_id, price, recorded_at) VALUES (?, ?, ?)`,
		listingID, price, at)
	if err != nil {
		return fmt.Errorf("failed to insert price history: %w", err)
	}
	return nil
}

// ListPriceHistory returns a listing's price rows in recording order.
func (s *Store) ListPriceHistory(listingID int64) ([]models.ListingPriceHistory, error) {
	var hs []models.ListingPriceHistory
	err := s.selectAll(&hs, `SELECT * FROM listing_price_history WHERE listing_id = ? ORDER BY recorded_at, id`,
		listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list price history: %w", err)
	}
	return hs, nil
}

// ListActiveListingsByProperty returns a unit's active listings, used by the
// majority-vote reconciler.
func (s *Store) ListActiveListingsByProperty(masterPropertyID int64) ([]models.PropertyListing, error) {
	var ls []models.PropertyListing
	err := s.selectAll(&ls, `SELECT * FROM property_listings WHERE master_property_id = ? AND is_active = 1 ORDER BY id`,
		masterPropertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active listings for property %d: %w", masterPropertyID, err)
	}
	return ls, nil
}

// ListActiveListingsByBuilding returns all active listings across a
// building's units.
func (s *Store) ListActiveListingsByBuilding(buildingID int64) ([]models.PropertyListing, error) {
	var ls []models.PropertyListing
	err := s.selectAll(&ls, `SELECT l.* FROM property_listings l
		JOIN master_properties p ON p.id = l.master_property_id
		WHERE p.building_id = ? AND l.is_active = 1 ORDER BY l.id`, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active listings for building %d: %w", buildingID, err)
	}
	return ls, nil
}

// SweepMissing increments miss_count for active listings of (site, area) not
// seen in this run and delists those missed delistAfter times in a row.
// Returns the number of listings delisted.
func (s *Store) SweepMissing(sourceSite, areaCode string, seenIDs []string, delistAfter int, at time.Time) (int, error) {
	placeholders := make([]string, len(seenIDs))
	args := []interface{}{sourceSite, areaCode}
	for i, id := range seenIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	notSeen := ""
	if len(seenIDs) > 0 {
		notSeen = fmt.Sprintf(" AND site_property_id NOT IN (%s)", strings.Join(placeholders, ","))
	}

	_, err := s.exec(`UPDATE property_listings SET miss_count = miss_count + 1
		WHERE source_site = ? AND area_code = ? AND is_active = 1`+notSeen, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep missing listings: %w", err)
	}

	res, err := s.exec(`UPDATE property_listings SET is_active = 0, delisted_at = ?
		WHERE source_site = ? AND area_code = ? AND is_active = 1 AND miss_count >= ?`,
		at, sourceSite, areaCode, delistAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to delist missing listings: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
