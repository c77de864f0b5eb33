package models

import (
	"database/sql"
	"time"
)

// Building represents an apartment building aggregated across source sites.
// NormalizedName is the current display name; CanonicalName is the folded
// search key derived from it.
type Building struct {
	ID             int64          `db:"id" json:"id"`
	NormalizedName string         `db:"normalized_name" json:"normalized_name"`
	CanonicalName  string         `db:"canonical_name" json:"canonical_name"`
	Address        sql.NullString `db:"address" json:"address"`
	BuiltYear      sql.NullInt64  `db:"built_year" json:"built_year"`
	BuiltMonth     sql.NullInt64  `db:"built_month" json:"built_month"`
	TotalFloors    sql.NullInt64  `db:"total_floors" json:"total_floors"`
	BasementFloors sql.NullInt64  `db:"basement_floors" json:"basement_floors"`
	TotalUnits     sql.NullInt64  `db:"total_units" json:"total_units"`
	Structure      sql.NullString `db:"structure" json:"structure"`
	IsValidName    bool           `db:"is_valid_name" json:"is_valid_name"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// BuildingExternalID maps a source site's building identifier to a Building.
// Bindings are insert-only; a remap requires deleting the orphaned row first.
type BuildingExternalID struct {
	ID         int64     `db:"id" json:"id"`
	BuildingID int64     `db:"building_id" json:"building_id"`
	SourceSite string    `db:"source_site" json:"source_site"`
	ExternalID string    `db:"external_id" json:"external_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
