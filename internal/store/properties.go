package store

import (
	"fmt"
	"time"

	"condo-watch/internal/models"
)

// GetPropertyByHash returns the unit with the given fingerprint, or nil.
func (s *Store) GetPropertyByHash(hash string) (*models.MasterProperty, error) {
	var p models.MasterProperty
	err := s.get(&p, `SELECT * FROM master_properties WHERE property_hash = ?`, hash)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property by hash: %w", err)
	}
	return &p, nil
}

// GetProperty returns a unit by id, or nil.
func (s *Store) GetProperty(id int64) (*models.MasterProperty, error) {
	var p models.MasterProperty
	err := s.get(&p, `SELECT * FROM master_properties WHERE id = ?`, id)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property %d: %w", id, err)
	}
	return &p, nil
}

// InsertProperty inserts a new unit and fills in its id.
func (s *Store) InsertProperty(p *models.MasterProperty) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := s.exec(`INSERT INTO master_properties (
			building_id, room_number, floor, area, layout, direction,
			balcony_area, property_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.BuildingID, p.RoomNumber, p.Floor, p.Area, p.Layout, p.Direction,
		p.BalconyArea, p.PropertyHash, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

// UpdateProperty writes back every mutable unit column. The fingerprint is
// immutable once assigned.
func (s *Store) UpdateProperty(p *models.MasterProperty) error {
	p.UpdatedAt = time.Now()
	_, err := s.exec(`UPDATE master_properties SET
			room_number = ?, floor = ?, area = ?, layout = ?, direction = ?,
			balcony_area = ?, updated_at = ?
		WHERE id = ?`,
		p.RoomNumber, p.Floor, p.Area, p.Layout, p.Direction,
		p.BalconyArea, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update property %d: %w", p.ID, err)
	}
	return nil
}

// ListPropertiesByBuilding returns all units of a building, oldest first.
func (s *Store) ListPropertiesByBuilding(buildingID int64) ([]models.MasterProperty, error) {
	var ps []models.MasterProperty
	err := s.selectAll(&ps, `SELECT * FROM master_properties WHERE building_id = ? ORDER BY id`, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties for building %d: %w", buildingID, err)
	}
	return ps, nil
}
