package models

import (
	"database/sql"
	"time"
)

// MasterProperty represents one physical unit inside a building. Listings
// from different sites that describe the same unit share one MasterProperty,
// keyed by PropertyHash.
type MasterProperty struct {
	ID           int64           `db:"id" json:"id"`
	BuildingID   int64           `db:"building_id" json:"building_id"`
	RoomNumber   sql.NullString  `db:"room_number" json:"room_number"`
	Floor        sql.NullInt64   `db:"floor" json:"floor"`
	Area         sql.NullFloat64 `db:"area" json:"area"`
	Layout       sql.NullString  `db:"layout" json:"layout"`
	Direction    sql.NullString  `db:"direction" json:"direction"`
	BalconyArea  sql.NullFloat64 `db:"balcony_area" json:"balcony_area"`
	PropertyHash string          `db:"property_hash" json:"property_hash"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
