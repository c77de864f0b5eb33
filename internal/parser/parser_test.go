package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, site := range []string{"suumo", "homes", "athome", "rehouse", "nomu"} {
		p, err := New(site)
		require.NoError(t, err, site)
		assert.Equal(t, site, p.Site())
	}
	_, err := New("zillow")
	assert.Error(t, err)
}

func TestValidateSitePropertyID(t *testing.T) {
	tests := []struct {
		site string
		id   string
		ok   bool
	}{
		{"suumo", "12345678", true},
		{"suumo", "123456789012", true},
		{"suumo", "1234567", false},
		{"suumo", "12a45678", false},

		{"homes", "b-12345", true},
		{"homes", "b-12345678901234", true},
		{"homes", "12345678", false},
		{"homes", "b-12ab", false},

		{"athome", "6974210838", true},
		{"athome", "abc123", true},
		{"athome", "ABC123", false},
		{"athome", "ab12", false},

		{"rehouse", "FKNM2A13", true},
		{"rehouse", "F12345", true},
		{"rehouse", "1KNM2A13", false},
		{"rehouse", "FA1", false},

		{"nomu", "123456", true},
		{"nomu", "1234567890", true},
		{"nomu", "12345", false},
		{"nomu", "12345678901", false},
	}
	for _, tt := range tests {
		p, err := New(tt.site)
		require.NoError(t, err)
		assert.Equal(t, tt.ok, p.ValidateSitePropertyID(tt.id, ""), "%s %s", tt.site, tt.id)
	}
}

func TestVerifyBuildingNamesPolicies(t *testing.T) {
	t.Run("suumo accepts truncated list names", func(t *testing.T) {
		p := &SuumoParser{}
		d := &DetailRecord{BuildingName: "パークコート麻布十番ザ・タワー"}

		ok, name := p.VerifyBuildingNames(d, "パークコート麻布十…")
		assert.True(t, ok)
		assert.Equal(t, "パークコート麻布十番ザ・タワー", name)

		ok, _ = p.VerifyBuildingNames(d, "シティタワー品…")
		assert.False(t, ok)
	})

	t.Run("homes requires exact canonical equality", func(t *testing.T) {
		p := &HomesParser{}
		d := &DetailRecord{BuildingName: "パークコート・麻布十番"}

		ok, name := p.VerifyBuildingNames(d, "パークコート麻布十番")
		assert.True(t, ok)
		assert.Equal(t, "パークコート・麻布十番", name)

		ok, _ = p.VerifyBuildingNames(d, "パークコート麻布十番ザ・タワー")
		assert.False(t, ok)
	})

	t.Run("athome tolerates promotional prefixes", func(t *testing.T) {
		p := &AthomeParser{}
		d := &DetailRecord{BuildingName: "パークハウス青山"}

		ok, _ := p.VerifyBuildingNames(d, "【角部屋】パークハウス青山")
		assert.True(t, ok)

		ok, _ = p.VerifyBuildingNames(d, "シティタワー品川")
		assert.False(t, ok)
	})

	t.Run("rehouse accepts either name candidate", func(t *testing.T) {
		p := &RehouseParser{}
		d := &DetailRecord{
			BuildingName:    "三田綱町パークマンション",
			BuildingNameAlt: "パークマンション三田綱町ザ・フォレスト",
		}

		ok, name := p.VerifyBuildingNames(d, "三田綱町パークマンション")
		assert.True(t, ok)
		assert.Equal(t, "三田綱町パークマンション", name)

		ok, name = p.VerifyBuildingNames(d, "パークマンション三田綱町ザ・フォレスト")
		assert.True(t, ok)
		assert.Equal(t, "パークマンション三田綱町ザ・フォレスト", name)

		ok, _ = p.VerifyBuildingNames(d, "まったく別の物件")
		assert.False(t, ok)
	})

	t.Run("missing side always passes", func(t *testing.T) {
		p := &HomesParser{}
		ok, name := p.VerifyBuildingNames(&DetailRecord{BuildingName: "何か"}, "")
		assert.True(t, ok)
		assert.Equal(t, "何か", name)

		ok, name = p.VerifyBuildingNames(&DetailRecord{}, "何か")
		assert.True(t, ok)
		assert.Equal(t, "", name)
	})
}

func validDetail() *DetailRecord {
	return &DetailRecord{
		SitePropertyID: "12345678",
		URL:            "https://suumo.jp/ms/chuko/tokyo/nc_12345678/",
		Price:          5480,
		BuildingName:   "パークコート麻布十番",
		Address:        "東京都港区三田1丁目",
		Area:           70.25,
		Layout:         "3LDK",
		Floor:          5,
		TotalFloors:    20,
	}
}

func TestValidateDetail(t *testing.T) {
	p := &SuumoParser{}

	t.Run("valid record passes", func(t *testing.T) {
		assert.Empty(t, ValidateDetail(p, validDetail()))
	})

	t.Run("missing required fields", func(t *testing.T) {
		d := validDetail()
		d.Price = 0
		d.Layout = ""
		errs := ValidateDetail(p, d)
		fields := make([]string, len(errs))
		for i, e := range errs {
			fields[i] = e.Field
		}
		assert.Contains(t, fields, "price")
		assert.Contains(t, fields, "layout")
	})

	t.Run("bad id shape", func(t *testing.T) {
		d := validDetail()
		d.SitePropertyID = "abc"
		errs := ValidateDetail(p, d)
		require.Len(t, errs, 1)
		assert.Equal(t, "site_property_id", errs[0].Field)
	})

	t.Run("ad copy name needs address", func(t *testing.T) {
		d := validDetail()
		d.BuildingName = "港区・徒歩5分の中古マンション"
		assert.Empty(t, ValidateDetail(p, d))

		d.Address = ""
		errs := ValidateDetail(p, d)
		fields := make([]string, len(errs))
		for i, e := range errs {
			fields[i] = e.Field
		}
		assert.Contains(t, fields, "building_name")
		assert.Contains(t, fields, "address")
	})

	t.Run("address without ward", func(t *testing.T) {
		d := validDetail()
		d.Address = "三田1丁目"
		errs := ValidateDetail(p, d)
		require.Len(t, errs, 1)
		assert.Equal(t, "address", errs[0].Field)
	})

	t.Run("floor above building height", func(t *testing.T) {
		d := validDetail()
		d.Floor = 25
		errs := ValidateDetail(p, d)
		require.Len(t, errs, 1)
		assert.Equal(t, "floor", errs[0].Field)
	})

	t.Run("area ceiling widens per site", func(t *testing.T) {
		d := validDetail()
		d.Area = 600
		assert.NotEmpty(t, ValidateDetail(p, d))

		rd := validDetail()
		rd.SitePropertyID = "FKNM2A13"
		rd.Area = 600
		assert.Empty(t, ValidateDetail(&RehouseParser{}, rd))
	})
}

func TestValidateListRow(t *testing.T) {
	p := &SuumoParser{}

	ok := ValidateListRow(p, ListRow{
		URL: "https://suumo.jp/nc_12345678/", SitePropertyID: "12345678", Price: 5480,
	})
	assert.True(t, ok)

	assert.False(t, ValidateListRow(p, ListRow{SitePropertyID: "12345678", Price: 5480}))
	assert.False(t, ValidateListRow(p, ListRow{URL: "u", SitePropertyID: "12345678"}))
	assert.False(t, ValidateListRow(p, ListRow{URL: "u", SitePropertyID: "bad", Price: 5480}))
}
