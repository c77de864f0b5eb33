package store

import (
	"fmt"
	"time"

	"condo-watch/internal/models"
)

// GetBuilding returns a building by id, or nil when it does not exist.
func (s *Store) GetBuilding(id int64) (*models.Building, error) {
	var b models.Building
	err := s.get(&b, `SELECT * FROM buildings WHERE id = ?`, id)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get building %d: %w", id, err)
	}
	return &b, nil
}

// GetExternalID returns the building binding for a site's external id, or nil.
func (s *Store) GetExternalID(sourceSite, externalID string) (*models.BuildingExternalID, error) {
	var m models.BuildingExternalID
	err := s.get(&m, `SELECT * FROM building_external_ids WHERE source_site = ? AND external_id = ?`,
		sourceSite, externalID)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get external id %s/%s: %w", sourceSite, externalID, err)
	}
	return &m, nil
}

// InsertExternalID binds a site external id to a building. Bindings are
// insert-only; a unique violation means another task won the race.
func (s *Store) InsertExternalID(m *models.BuildingExternalID) error {
	m.CreatedAt = time.Now()
	res, err := s.exec(`INSERT INTO building_external_ids (building_id, source_site, external_id, created_at)
		VALUES (?, ?, ?, ?)`,
		m.BuildingID, m.SourceSite, m.ExternalID, m.CreatedAt)
	if err != nil {
		return err
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

// DeleteExternalID removes an orphaned binding so the id can be re-bound.
func (s *Store) DeleteExternalID(id int64) error {
	_, err := s.exec(`DELETE FROM building_external_ids WHERE id = ?`, id)
	return err
}

// FindBuildingsByCanonicalName returns all buildings sharing a search key.
func (s *Store) FindBuildingsByCanonicalName(key string) ([]models.Building, error) {
	var bs []models.Building
	err := s.selectAll(&bs, `SELECT * FROM buildings WHERE canonical_name = ? ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find buildings by canonical name: %w", err)
	}
	return bs, nil
}

// FindBuildingByAddress returns the oldest building with an exact address
// match, or nil.
func (s *Store) FindBuildingByAddress(address string) (*models.Building, error) {
	var b models.Building
	err := s.get(&b, `SELECT * FROM buildings WHERE address = ? ORDER BY id LIMIT 1`, address)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find building by address: %w", err)
	}
	return &b, nil
}

// InsertBuilding inserts a new building and fills in its id.
func (s *Store) InsertBuilding(b *models.Building) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	res, err := s.exec(`INSERT INTO buildings (
			normalized_name, canonical_name, address, built_year, built_month,
			total_floors, basement_floors, total_units, structure, is_valid_name,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.NormalizedName, b.CanonicalName, b.Address, b.BuiltYear, b.BuiltMonth,
		b.TotalFloors, b.BasementFloors, b.TotalUnits, b.Structure, b.IsValidName,
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	b.ID, _ = res.LastInsertId()
	return nil
}

// UpdateBuilding writes back every mutable building column.
func (s *Store) UpdateBuilding(b *models.Building) error {
	b.UpdatedAt = time.Now()
	_, err := s.exec(`UPDATE buildings SET
			normalized_name = ?, canonical_name = ?, address = ?, built_year = ?,
			built_month = ?, total_floors = ?, basement_floors = ?, total_units = ?,
			structure = ?, is_valid_name = ?, updated_at = ?
		WHERE id = ?`,
		b.NormalizedName, b.CanonicalName, b.Address, b.BuiltYear,
		b.BuiltMonth, b.TotalFloors, b.BasementFloors, b.TotalUnits,
		b.Structure, b.IsValidName, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("failed to update building %d: %w", b.ID, err)
	}
	return nil
}

// ListBuildingIDs returns every building id, oldest first. Used by the
// maintenance reconcile pass.
func (s *Store) ListBuildingIDs() ([]int64, error) {
	var ids []int64
	err := s.selectAll(&ids, `SELECT id FROM buildings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list building ids: %w", err)
	}
	return ids, nil
}
