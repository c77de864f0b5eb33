package resolver

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condo-watch/internal/models"
	"condo-watch/internal/parser"
	"condo-watch/internal/store"
)

func newTestResolver(t *testing.T, opts Options) (*Resolver, *store.Store) {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, log, opts), st
}

func baseDetail() *parser.DetailRecord {
	return &parser.DetailRecord{
		SitePropertyID: "12345678",
		URL:            "https://example.com/nc_12345678/",
		Price:          5480,
		BuildingName:   "パークコート麻布十番",
		Address:        "東京都港区三田1丁目",
		Area:           70.25,
		Layout:         "3LDK",
		Direction:      "南",
		Floor:          5,
		TotalFloors:    20,
		BuiltYear:      2005,
		BuiltMonth:     3,
	}
}

func TestProcessNewListing(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	result, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)
	assert.Equal(t, models.UpdateNew, result.UpdateType)
	require.NotNil(t, result.Building)
	require.NotNil(t, result.Property)
	require.NotNil(t, result.Listing)

	assert.Equal(t, "パークコート麻布十番", result.Building.NormalizedName)
	assert.True(t, result.Building.IsValidName)
	assert.Equal(t, result.Building.ID, result.Property.BuildingID)
	assert.Equal(t, result.Property.ID, result.Listing.MasterPropertyID)
	assert.Equal(t, "13103", result.Listing.AreaCode)
	assert.True(t, result.Listing.IsActive)

	history, err := st.ListPriceHistory(result.Listing.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(5480), history[0].Price)
}

func TestProcessRefetchUnchanged(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	first, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	second, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)
	assert.Equal(t, models.UpdateRefetchedUnchanged, second.UpdateType)
	assert.Equal(t, first.Listing.ID, second.Listing.ID)
	assert.Equal(t, first.Property.ID, second.Property.ID)

	history, err := st.ListPriceHistory(first.Listing.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1) // unchanged price appends nothing
}

func TestProcessPriceUpdate(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	first, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	d := baseDetail()
	d.Price = 5280
	second, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)
	assert.Equal(t, models.UpdatePriceUpdated, second.UpdateType)
	assert.False(t, second.Suspicious)

	history, err := st.ListPriceHistory(first.Listing.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(5480), history[0].Price)
	assert.Equal(t, int64(5280), history[1].Price)
}

func TestProcessSuspiciousPriceSwing(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	_, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	d := baseDetail()
	d.Price = 500 // >70% drop
	result, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)
	assert.Equal(t, models.UpdatePriceUpdated, result.UpdateType)
	assert.True(t, result.Suspicious)
}

func TestProcessFloorDroppingToNullIsSuspicious(t *testing.T) {
	r, _ := newTestResolver(t, Options{PreventNullUpdates: true})

	_, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	d := baseDetail()
	d.Floor = 0
	result, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)
	assert.True(t, result.Suspicious)

	// With PreventNullUpdates the stored floor survives.
	assert.True(t, result.Listing.ListingFloor.Valid)
	assert.Equal(t, int64(5), result.Listing.ListingFloor.Int64)
}

func TestSameBuildingAcrossSites(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	a, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	// Different site, decorated spelling of the same name, same unit.
	d := baseDetail()
	d.SitePropertyID = "b-1472800014"
	d.URL = "https://example.com/b-1472800014/"
	d.BuildingName = "パークコート・麻布十番"
	b, err := r.Process("homes", "13103", d)
	require.NoError(t, err)

	assert.Equal(t, a.Building.ID, b.Building.ID)
	assert.Equal(t, a.Property.ID, b.Property.ID)
	assert.NotEqual(t, a.Listing.ID, b.Listing.ID)
}

func TestDifferentUnitsSameBuilding(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	a, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	d := baseDetail()
	d.SitePropertyID = "22345678"
	d.URL = "https://example.com/nc_22345678/"
	d.Floor = 12
	b, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)

	assert.Equal(t, a.Building.ID, b.Building.ID)
	assert.NotEqual(t, a.Property.ID, b.Property.ID)
}

func TestAdCopyNameResolvesByAddress(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	d := baseDetail()
	d.BuildingName = "港区・麻布十番駅徒歩5分の中古マンション"
	first, err := r.Process("athome", "13103", d)
	require.NoError(t, err)
	assert.False(t, first.Building.IsValidName)

	// A second ad-copy record at the same address reuses the building.
	d2 := baseDetail()
	d2.SitePropertyID = "abc123xyz"
	d2.URL = "https://example.com/abc123xyz/"
	d2.BuildingName = "麻布十番3LDKの中古マンション"
	second, err := r.Process("athome", "13103", d2)
	require.NoError(t, err)
	assert.Equal(t, first.Building.ID, second.Building.ID)

	// A real name arriving for the building corrects it.
	d3 := baseDetail()
	d3.SitePropertyID = "34345678"
	d3.URL = "https://example.com/nc_34345678/"
	third, err := r.Process("suumo", "13103", d3)
	require.NoError(t, err)

	if third.Building.ID == first.Building.ID {
		b, err := st.GetBuilding(first.Building.ID)
		require.NoError(t, err)
		assert.True(t, b.IsValidName)
		assert.Equal(t, "パークコート麻布十番", b.NormalizedName)
	}
}

func TestExternalIDBindingIsInsertOnly(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	d := baseDetail()
	d.ExternalBuildingID = "B990011"
	first, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)

	mapping, err := st.GetExternalID("suumo", "B990011")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, first.Building.ID, mapping.BuildingID)

	// A conflicting record with the same external id but another name still
	// resolves to the mapped building; the binding is never rewritten.
	d2 := baseDetail()
	d2.SitePropertyID = "45345678"
	d2.URL = "https://example.com/nc_45345678/"
	d2.BuildingName = "まったく別の名前のタワー"
	d2.ExternalBuildingID = "B990011"
	second, err := r.Process("suumo", "13103", d2)
	require.NoError(t, err)
	assert.Equal(t, first.Building.ID, second.Building.ID)

	mapping2, err := st.GetExternalID("suumo", "B990011")
	require.NoError(t, err)
	assert.Equal(t, mapping.ID, mapping2.ID)
	assert.Equal(t, mapping.BuildingID, mapping2.BuildingID)
}

func TestRoomNumberSplitOffName(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	d := baseDetail()
	d.BuildingName = "パークコート麻布十番 503号室"
	result, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)

	assert.Equal(t, "パークコート麻布十番", result.Building.NormalizedName)
	require.True(t, result.Property.RoomNumber.Valid)
	assert.Equal(t, "503", result.Property.RoomNumber.String)
}

func TestURLCollisionDelistsStaleRow(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	first, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	// The site reuses the URL for a brand-new property id.
	d := baseDetail()
	d.SitePropertyID = "99345678"
	second, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)
	assert.Equal(t, models.UpdateNew, second.UpdateType)
	assert.NotEqual(t, first.Listing.ID, second.Listing.ID)

	stale, err := st.GetListingBySiteID("suumo", "12345678")
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.False(t, stale.IsActive)
	assert.True(t, stale.DelistedAt.Valid)
}

func TestReconcilePropertyBalconyMajority(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	// Three sites agree on the identity tuple but disagree on the balcony.
	for _, tc := range []struct {
		site, id string
		balcony  float64
	}{
		{"suumo", "12345678", 12.4},
		{"homes", "b-1472800014", 15.0},
		{"athome", "abc123xyz", 12.4},
	} {
		d := baseDetail()
		d.SitePropertyID = tc.id
		d.URL = "https://example.com/" + tc.id
		d.BalconyArea = tc.balcony
		_, err := r.Process(tc.site, "13103", d)
		require.NoError(t, err)
	}

	listings, err := st.GetListingBySiteID("suumo", "12345678")
	require.NoError(t, err)
	p, err := st.GetProperty(listings.MasterPropertyID)
	require.NoError(t, err)
	require.True(t, p.BalconyArea.Valid)
	assert.Equal(t, 12.4, p.BalconyArea.Float64)
}

func TestReconcileBuildingTotalFloorsMajority(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	for _, tc := range []struct {
		site, id string
		floors   int64
	}{
		{"suumo", "12345678", 20},
		{"homes", "b-1472800014", 19},
		{"athome", "abc123xyz", 20},
	} {
		d := baseDetail()
		d.SitePropertyID = tc.id
		d.URL = "https://example.com/" + tc.id
		d.TotalFloors = tc.floors
		_, err := r.Process(tc.site, "13103", d)
		require.NoError(t, err)
	}

	l, err := st.GetListingBySiteID("suumo", "12345678")
	require.NoError(t, err)
	p, err := st.GetProperty(l.MasterPropertyID)
	require.NoError(t, err)
	b, err := st.GetBuilding(p.BuildingID)
	require.NoError(t, err)
	require.True(t, b.TotalFloors.Valid)
	assert.Equal(t, int64(20), b.TotalFloors.Int64)
}

func TestReconcileIsIdempotent(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	result, err := r.Process("suumo", "13103", baseDetail())
	require.NoError(t, err)

	require.NoError(t, r.ReconcileProperty(result.Property.ID))
	require.NoError(t, r.ReconcileBuilding(result.Building.ID))

	p1, err := st.GetProperty(result.Property.ID)
	require.NoError(t, err)

	require.NoError(t, r.ReconcileProperty(result.Property.ID))
	p2, err := st.GetProperty(result.Property.ID)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestBuildingBackfill(t *testing.T) {
	r, st := newTestResolver(t, Options{})

	d := baseDetail()
	d.BuiltYear = 0
	d.TotalUnits = 0
	first, err := r.Process("suumo", "13103", d)
	require.NoError(t, err)
	assert.False(t, first.Building.BuiltYear.Valid)

	d2 := baseDetail()
	d2.SitePropertyID = "22345678"
	d2.URL = "https://example.com/nc_22345678/"
	d2.TotalUnits = 156
	_, err = r.Process("suumo", "13103", d2)
	require.NoError(t, err)

	b, err := st.GetBuilding(first.Building.ID)
	require.NoError(t, err)
	assert.True(t, b.BuiltYear.Valid)
	assert.Equal(t, int64(2005), b.BuiltYear.Int64)
	assert.True(t, b.TotalUnits.Valid)
	assert.Equal(t, int64(156), b.TotalUnits.Int64)
}
