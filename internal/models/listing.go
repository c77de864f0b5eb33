package models

import (
	"database/sql"
	"time"
)

// PropertyListing represents one advertisement of a unit on one source site,
// unique by (source_site, site_property_id). The url is mutable; identity is
// the site's own id.
type PropertyListing struct {
	ID               int64           `db:"id" json:"id"`
	MasterPropertyID int64           `db:"master_property_id" json:"master_property_id"`
	SourceSite       string          `db:"source_site" json:"source_site"`
	SitePropertyID   string          `db:"site_property_id" json:"site_property_id"`
	AreaCode         string          `db:"area_code" json:"area_code"`
	URL              string          `db:"url" json:"url"`
	CurrentPrice     sql.NullInt64   `db:"current_price" json:"current_price"`
	ManagementFee    sql.NullInt64   `db:"management_fee" json:"management_fee"`
	RepairFund       sql.NullInt64   `db:"repair_fund" json:"repair_fund"`
	ListingFloor     sql.NullInt64   `db:"listing_floor" json:"listing_floor"`
	ListingArea      sql.NullFloat64 `db:"listing_area" json:"listing_area"`
	ListingLayout    sql.NullString  `db:"listing_layout" json:"listing_layout"`
	ListingDirection sql.NullString  `db:"listing_direction" json:"listing_direction"`
	ListingTotalFloors sql.NullInt64 `db:"listing_total_floors" json:"listing_total_floors"`
	ListingBalconyArea sql.NullFloat64 `db:"listing_balcony_area" json:"listing_balcony_area"`
	ListingAddress     sql.NullString  `db:"listing_address" json:"listing_address"`
	ListingBuildingName sql.NullString `db:"listing_building_name" json:"listing_building_name"`
	StationInfo      sql.NullString  `db:"station_info" json:"station_info"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	MissCount        int             `db:"miss_count" json:"miss_count"`
	FirstSeenAt      time.Time       `db:"first_seen_at" json:"first_seen_at"`
	FirstPublishedAt sql.NullTime    `db:"first_published_at" json:"first_published_at"`
	LastConfirmedAt  time.Time       `db:"last_confirmed_at" json:"last_confirmed_at"`
	DetailFetchedAt  sql.NullTime    `db:"detail_fetched_at" json:"detail_fetched_at"`
	DelistedAt       sql.NullTime    `db:"delisted_at" json:"delisted_at"`
}

// ListingPriceHistory is an append-only record of observed prices for one
// listing: one row at first sight, one per change after that.
type ListingPriceHistory struct {
	ID         int64     `db:"id" json:"id"`
	ListingID  int64     `db:"listing_id" json:"listing_id"`
	Price      int64     `db:"price" json:"price"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
