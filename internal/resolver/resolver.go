// Package resolver ties extracted detail records to canonical buildings,
// units and listings, and classifies every persisted change.
package resolver

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"condo-watch/internal/identity"
	"condo-watch/internal/models"
	"condo-watch/internal/normalize"
	"condo-watch/internal/parser"
	"condo-watch/internal/store"
)

// Options tune resolver behavior.
type Options struct {
	// PreventNullUpdates keeps an existing listing value when the incoming
	// record lost it, instead of overwriting with null.
	PreventNullUpdates bool
}

// Resolver resolves detail records against the store.
type Resolver struct {
	store *store.Store
	log   *slog.Logger
	opts  Options
}

// New creates a resolver.
func New(st *store.Store, log *slog.Logger, opts Options) *Resolver {
	return &Resolver{store: st, log: log, opts: opts}
}

// Result is the outcome of one listing upsert.
type Result struct {
	UpdateType    models.UpdateType
	ChangedFields []string
	Building      *models.Building
	Property      *models.MasterProperty
	Listing       *models.PropertyListing
	// Suspicious marks large attribute swings (≥70% price or area change,
	// floor dropping to null). The orchestrator counts streaks of these.
	Suspicious bool
}

// Process runs the full resolution pipeline for one valid detail record:
// building, unit, listing, then majority-vote reconciliation.
func (r *Resolver) Process(sourceSite, areaCode string, d *parser.DetailRecord) (*Result, error) {
	building, room, err := r.ResolveBuilding(sourceSite, d)
	if err != nil {
		return nil, fmt.Errorf("resolve building: %w", err)
	}

	property, err := r.ResolveProperty(building, d, room)
	if err != nil {
		return nil, fmt.Errorf("resolve property: %w", err)
	}

	result, err := r.UpsertListing(sourceSite, areaCode, d, property)
	if err != nil {
		return nil, fmt.Errorf("upsert listing: %w", err)
	}
	result.Building = building
	result.Property = property

	if err := r.ReconcileProperty(property.ID); err != nil {
		return nil, fmt.Errorf("reconcile property: %w", err)
	}
	if err := r.ReconcileBuilding(building.ID); err != nil {
		return nil, fmt.Errorf("reconcile building: %w", err)
	}

	return result, nil
}

// ResolveBuilding finds or creates the building a detail record belongs to,
// returning the building and any room number split off the name.
func (r *Resolver) ResolveBuilding(sourceSite string, d *parser.DetailRecord) (*models.Building, string, error) {
	name, room := normalize.ExtractRoomNumber(d.BuildingName)

	// An existing external-id binding wins outright.
	if d.ExternalBuildingID != "" {
		mapping, err := r.store.GetExternalID(sourceSite, d.ExternalBuildingID)
		if err != nil {
			return nil, "", err
		}
		if mapping != nil {
			b, err := r.store.GetBuilding(mapping.BuildingID)
			if err != nil {
				return nil, "", err
			}
			if b != nil {
				r.fillBuilding(b, d, name)
				return b, room, nil
			}
			// Orphaned binding: the building is gone. Delete and fall
			// through to a fresh lookup.
			r.log.Warn("deleting orphaned building external id",
				"source_site", sourceSite, "external_id", d.ExternalBuildingID)
			if err := r.store.DeleteExternalID(mapping.ID); err != nil {
				return nil, "", err
			}
		}
	}

	var b *models.Building
	var err error

	if normalize.IsAdCopyName(name) {
		// Ad copy resolves by address only. Validation guarantees the
		// address is present when the name is ad copy.
		if d.Address == "" {
			return nil, "", fmt.Errorf("ad-copy building name %q without address", name)
		}
		b, err = r.store.FindBuildingByAddress(d.Address)
		if err != nil {
			return nil, "", err
		}
		if b == nil {
			b, err = r.createBuilding(sourceSite, d, name, false)
			if err != nil {
				return nil, "", err
			}
		}
	} else {
		key := normalize.CanonicalName(name)
		candidates, err := r.store.FindBuildingsByCanonicalName(key)
		if err != nil {
			return nil, "", err
		}
		if len(candidates) > 0 {
			b = &candidates[0]
			// Same key, several buildings: prefer the one sharing the
			// address.
			if d.Address != "" {
				for i := range candidates {
					if candidates[i].Address.Valid && candidates[i].Address.String == d.Address {
						b = &candidates[i]
						break
					}
				}
			}
			r.fillBuilding(b, d, name)
		} else {
			b, err = r.createBuilding(sourceSite, d, name, true)
			if err != nil {
				return nil, "", err
			}
		}
	}

	// Bind the external id if the site published one and it is not bound
	// yet. A unique violation means another task won; re-read and accept.
	if d.ExternalBuildingID != "" {
		if err := r.bindExternalID(sourceSite, d.ExternalBuildingID, b.ID); err != nil {
			return nil, "", err
		}
	}

	return b, room, nil
}

func (r *Resolver) createBuilding(sourceSite string, d *parser.DetailRecord, name string, validName bool) (*models.Building, error) {
	b := &models.Building{
		NormalizedName: name,
		CanonicalName:  normalize.CanonicalName(name),
		IsValidName:    validName,
	}
	setNullString(&b.Address, d.Address)
	setNullInt(&b.BuiltYear, d.BuiltYear)
	setNullInt(&b.BuiltMonth, d.BuiltMonth)
	setNullInt(&b.TotalFloors, d.TotalFloors)
	setNullInt(&b.BasementFloors, d.BasementFloors)
	setNullInt(&b.TotalUnits, d.TotalUnits)
	setNullString(&b.Structure, d.Structure)

	err := r.store.InsertBuilding(b)
	if store.IsUniqueViolation(err) {
		// Another task created it between lookup and insert.
		candidates, lerr := r.store.FindBuildingsByCanonicalName(b.CanonicalName)
		if lerr != nil {
			return nil, lerr
		}
		if len(candidates) > 0 {
			return &candidates[0], nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	r.log.Info("created building", "building_id", b.ID, "name", name, "valid_name", validName)
	return b, nil
}

// fillBuilding opportunistically fills attributes the stored row is missing.
func (r *Resolver) fillBuilding(b *models.Building, d *parser.DetailRecord, name string) {
	changed := false
	if !b.Address.Valid && d.Address != "" {
		setNullString(&b.Address, d.Address)
		changed = true
	}
	if !b.BuiltYear.Valid && d.BuiltYear > 0 {
		setNullInt(&b.BuiltYear, d.BuiltYear)
		setNullInt(&b.BuiltMonth, d.BuiltMonth)
		changed = true
	}
	if !b.TotalFloors.Valid && d.TotalFloors > 0 {
		setNullInt(&b.TotalFloors, d.TotalFloors)
		setNullInt(&b.BasementFloors, d.BasementFloors)
		changed = true
	}
	if !b.TotalUnits.Valid && d.TotalUnits > 0 {
		setNullInt(&b.TotalUnits, d.TotalUnits)
		changed = true
	}
	if !b.Structure.Valid && d.Structure != "" {
		setNullString(&b.Structure, d.Structure)
		changed = true
	}
	if !b.IsValidName && !normalize.IsAdCopyName(name) {
		// A real name arrived for a building created from ad copy.
		b.NormalizedName = name
		b.CanonicalName = normalize.CanonicalName(name)
		b.IsValidName = true
		changed = true
	}
	if changed {
		if err := r.store.UpdateBuilding(b); err != nil {
			r.log.Warn("failed to backfill building", "building_id", b.ID, "error", err)
		}
	}
}

func (r *Resolver) bindExternalID(sourceSite, externalID string, buildingID int64) error {
	existing, err := r.store.GetExternalID(sourceSite, externalID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	err = r.store.InsertExternalID(&models.BuildingExternalID{
		BuildingID: buildingID,
		SourceSite: sourceSite,
		ExternalID: externalID,
	})
	if store.IsUniqueViolation(err) {
		return nil
	}
	return err
}

// ResolveProperty finds or creates the unit for a detail record via the
// property fingerprint.
func (r *Resolver) ResolveProperty(b *models.Building, d *parser.DetailRecord, room string) (*models.MasterProperty, error) {
	hash := identity.PropertyHash(b.ID, d.Floor, d.Area, d.Layout, d.Direction)

	p, err := r.store.GetPropertyByHash(hash)
	if err != nil {
		return nil, err
	}
	if p != nil {
		r.fillProperty(p, d, room)
		return p, nil
	}

	p = &models.MasterProperty{
		BuildingID:   b.ID,
		PropertyHash: hash,
	}
	setNullString(&p.RoomNumber, room)
	setNullInt(&p.Floor, d.Floor)
	setNullFloat(&p.Area, d.Area)
	setNullString(&p.Layout, d.Layout)
	setNullString(&p.Direction, d.Direction)
	setNullFloat(&p.BalconyArea, d.BalconyArea)

	err = r.store.InsertProperty(p)
	if store.IsUniqueViolation(err) {
		return r.store.GetPropertyByHash(hash)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Resolver) fillProperty(p *models.MasterProperty, d *parser.DetailRecord, room string) {
	changed := false
	if !p.RoomNumber.Valid && room != "" {
		setNullString(&p.RoomNumber, room)
		changed = true
	}
	if !p.BalconyArea.Valid && d.BalconyArea > 0 {
		setNullFloat(&p.BalconyArea, d.BalconyArea)
		changed = true
	}
	if changed {
		if err := r.store.UpdateProperty(p); err != nil {
			r.log.Warn("failed to backfill property", "property_id", p.ID, "error", err)
		}
	}
}

func setNullString(dst *sql.NullString, v string) {
	if v != "" {
		dst.String = v
		dst.Valid = true
	}
}

func setNullInt(dst *sql.NullInt64, v int64) {
	if v > 0 {
		dst.Int64 = v
		dst.Valid = true
	}
}

func setNullFloat(dst *sql.NullFloat64, v float64) {
	if v > 0 {
		dst.Float64 = v
		dst.Valid = true
	}
}

func setNullTime(dst *sql.NullTime, v time.Time) {
	if !v.IsZero() {
		dst.Time = v
		dst.Valid = true
	}
}
