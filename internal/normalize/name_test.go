package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"パークコート麻布十番", "パークコート麻布十番"},
		{"パークコート 麻布十番", "パークコート麻布十番"},
		{"パークコート・麻布十番", "パークコート麻布十番"},
		{"ｐａｒｋ ｃｏｕｒｔ", "PARKCOURT"},
		{"グランドタワー東棟", "グランドタワー"},
		{"グランドタワーEAST", "グランドタワー"},
		{"サンハイツ南", "サンハイツ"},
		{"タワーレジデンス北棟西棟", "タワーレジデンス"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalName(tt.in), tt.in)
	}
}

func TestCanonicalNameAllWingSuffix(t *testing.T) {
	// A name that is nothing but a wing suffix must not strip to empty.
	assert.Equal(t, "東棟", CanonicalName("東棟"))
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, NameSimilarity("パークコート麻布十番", "パークコート・麻布十番"))

	s := NameSimilarity("パークコート麻布十番", "パークコート麻布台")
	assert.Greater(t, s, 0.5)
	assert.Less(t, s, 1.0)
}

func TestExtractRoomNumber(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		room     string
	}{
		{"シティタワー品川 503号室", "シティタワー品川", "503"},
		{"シティタワー品川 1203号", "シティタワー品川", "1203"},
		{"シティタワー品川", "シティタワー品川", ""},
		{"レジデンス101", "レジデンス101", ""}, // needs 号 to split
	}
	for _, tt := range tests {
		name, room := ExtractRoomNumber(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.room, room, tt.in)
	}
}

func TestIsAdCopyName(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"パークコート麻布十番", false},
		{"六本木駅徒歩5分の中古マンション", true},
		{"港区3LDK中古", true},
		{"築15年・リフォーム済", true},
		{"20階建タワー", true},
		{"ab", true}, // too short to be a name
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAdCopyName(tt.in), tt.in)
	}
}

func TestPrefixMatch(t *testing.T) {
	assert.True(t, PrefixMatch("パークコート麻布十…", "パークコート麻布十番ザ・タワー"))
	assert.True(t, PrefixMatch("パークコート麻布十番", "パークコート・麻布十番"))
	assert.False(t, PrefixMatch("パークコート麻布十…", "シティタワー品川"))
	assert.False(t, PrefixMatch("パークコート麻布十番", "パークコート麻布十番ザ・タワー"))
}

func TestTokenContainment(t *testing.T) {
	assert.Equal(t, 1.0, TokenContainment("麻布十番", "パークコート麻布十番"))
	assert.Equal(t, 1.0, TokenContainment("パークコート麻布十番", "麻布十番"))
	assert.Equal(t, 0.0, TokenContainment("", "パークコート"))
	assert.Less(t, TokenContainment("シティタワー品川", "パークコート麻布十番"), 0.6)
}
