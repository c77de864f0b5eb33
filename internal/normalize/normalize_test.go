package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
		ok   bool
	}{
		{"man only", "5,480万円", 5480, true},
		{"oku and man", "1億2,000万円", 12000, true},
		{"bare oku", "2億円", 20000, true},
		{"full width digits", "３４８０万円", 3480, true},
		{"below floor", "80万円", 0, false},
		{"above ceiling", "99999999万円", 0, false},
		{"no price", "価格未定", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPrice(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractArea(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"70.25㎡", 70.25, true},
		{"70.25m²(壁芯)", 70.25, true},
		{"55平米", 55, true},
		{"1,020㎡", 0, false}, // above ceiling
		{"5㎡", 0, false},
		{"広々", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractArea(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExtractFloorNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"5階", 5, true},
		{"5階/20階建", 5, true},
		{"20階建", 0, false},
		{"地下1階", 0, false},
		{"所在階:12階 / 地下1階付20階建", 12, true},
	}
	for _, tt := range tests {
		got, ok := ExtractFloorNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExtractTotalFloors(t *testing.T) {
	tests := []struct {
		in           string
		total, below int64
		ok           bool
	}{
		{"20階建", 20, 0, true},
		{"地上20階建", 20, 0, true},
		{"地下1階付20階建", 20, 1, true},
		{"20階地下1階建", 20, 1, true},
		{"平屋", 0, 0, false},
	}
	for _, tt := range tests {
		total, below, ok := ExtractTotalFloors(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.total, total, tt.in)
		assert.Equal(t, tt.below, below, tt.in)
	}
}

func TestNormalizeLayout(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"3LDK", "3LDK", true},
		{"３ＬＤＫ", "3LDK", true},
		{"ワンルーム", "1R", true},
		{"STUDIO", "1R", true},
		{"2LDK+S", "2SLDK", true},
		{"2LDK+納戸", "2SLDK", true},
		{"2SLDK", "2SLDK", true},
		{"3LDK+WIC", "3LDK", true},
		{"1K", "1K", true},
		{"4SLDK", "4SLDK", true},
		{"5LDKK", "", false},
		{"間取り図参照", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeLayout(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeDirection(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"南", "南", true},
		{"南向き", "南", true},
		{"東南", "南東", true},
		{"西北", "北西", true},
		{"南東", "南東", true},
		{"バルコニーなし", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDirection(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExtractBuiltYear(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"2005年3月", 2005, true},
		{"平成17年", 2005, true},
		{"令和3年1月", 2021, true},
		{"令和元年", 2019, true},
		{"昭和55年", 1980, true},
		{"1899年", 0, false},
		{"2999年", 0, false},
		{"築年不詳", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractBuiltYear(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCleanAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"東京都港区六本木1丁目", "東京都港区六本木1丁目"},
		{"東京都港区六本木1丁目【六本木駅 徒歩3分】", "東京都港区六本木1丁目"},
		{"東京都港区六本木1丁目周辺", "東京都港区六本木1丁目"},
		{"東京都港区六本木1丁目(地図を見る)", "東京都港区六本木1丁目"},
		{"  東京都港区六本木 ★新着★", "東京都港区六本木"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanAddress(tt.in), tt.in)
	}
}

func TestHasPrefectureAndWard(t *testing.T) {
	assert.True(t, HasPrefectureAndWard("東京都港区六本木1丁目"))
	assert.True(t, HasPrefectureAndWard("神奈川県横浜市西区"))
	assert.False(t, HasPrefectureAndWard("六本木1丁目"))
	assert.False(t, HasPrefectureAndWard("東京都"))
	assert.False(t, HasPrefectureAndWard(""))
}

func TestFormatStationInfo(t *testing.T) {
	in := "東京メトロ日比谷線「六本木」歩3分、都営大江戸線「麻布十番」徒歩8分"
	want := "東京メトロ日比谷線「六本木」徒歩3分\n都営大江戸線「麻布十番」徒歩8分"
	assert.Equal(t, want, FormatStationInfo(in))
}
