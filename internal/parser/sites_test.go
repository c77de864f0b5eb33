package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomesParseList(t *testing.T) {
	html := `<html><body>
	<div class="mod-mergeBuilding--sale" data-bukken-id="b-1472800014">
	  <a class="prg-bukkenNameAnchor" href="https://www.homes.co.jp/mansion/b-1472800014/">グランドメゾン白金</a>
	  <span class="priceLabel">8,980万円</span>
	  <table><tr><td class="bukkenSpec-address">東京都港区白金台2丁目</td></tr></table>
	</div>
	<div class="mod-mergeBuilding--sale">
	  <a class="prg-bukkenNameAnchor" href="https://www.homes.co.jp/mansion/x/">IDなし</a>
	</div>
	</body></html>`

	p := &HomesParser{}
	rows := p.ParseList(html)
	require.Len(t, rows, 1) // card without data-bukken-id is dropped

	assert.Equal(t, "b-1472800014", rows[0].SitePropertyID)
	assert.Equal(t, "https://www.homes.co.jp/mansion/b-1472800014/", rows[0].URL)
	assert.Equal(t, int64(8980), rows[0].Price)
	assert.Equal(t, "グランドメゾン白金", rows[0].BuildingName)
	assert.Equal(t, "東京都港区白金台2丁目", rows[0].Address)
}

func TestHomesIsLastPage(t *testing.T) {
	p := &HomesParser{}
	assert.False(t, p.IsLastPage(`<ul><li class="nextPage"><a href="?page=2">次へ</a></li></ul>`))
	assert.True(t, p.IsLastPage(`<ul><li class="prevPage"><a href="?page=1">前へ</a></li></ul>`))
}

func TestAthomeParseList(t *testing.T) {
	html := `<html><body>
	<section class="p-property-object" data-item-id="6974210838">
	  <a class="p-property-object-link" href="/mansion/6974210838/"></a>
	  <div class="p-property-object-title">【南向き】パークハウス青山</div>
	  <div class="p-property-object-price">7,280万円</div>
	  <div class="p-property-object-address">東京都港区南青山3丁目</div>
	</section>
	</body></html>`

	p := &AthomeParser{}
	rows := p.ParseList(html)
	require.Len(t, rows, 1)

	assert.Equal(t, "6974210838", rows[0].SitePropertyID)
	assert.Equal(t, "https://www.athome.co.jp/mansion/6974210838/", rows[0].URL)
	assert.Equal(t, int64(7280), rows[0].Price)
	assert.Equal(t, "【南向き】パークハウス青山", rows[0].BuildingName)
}

func TestAthomeIsLastPage(t *testing.T) {
	p := &AthomeParser{}
	assert.False(t, p.IsLastPage(`<a class="p-pager-next" href="page2/">次へ</a>`))
	assert.True(t, p.IsLastPage(`<div class="p-pager"></div>`))
}

func TestRehouseParseListAndDetailNames(t *testing.T) {
	html := `<html><body>
	<div class="property-index-card" data-property-code="FKNM2A13">
	  <a class="property-index-card-link" href="/buy/mansion/bkdetail/FKNM2A13/"></a>
	  <div class="property-index-card-name">三田綱町パークマンション</div>
	  <div class="property-index-card-price">2億3,000万円</div>
	  <div class="property-index-card-address">東京都港区三田2丁目</div>
	</div>
	</body></html>`

	p := &RehouseParser{}
	rows := p.ParseList(html)
	require.Len(t, rows, 1)
	assert.Equal(t, "FKNM2A13", rows[0].SitePropertyID)
	assert.Equal(t, "https://www.rehouse.co.jp/buy/mansion/bkdetail/FKNM2A13/", rows[0].URL)
	assert.Equal(t, int64(23000), rows[0].Price)

	detail := `<html><body>
	<h1 class="property-detail-name">パークマンション三田綱町ザ・フォレスト</h1>
	<table>
	  <tr><th>物件名</th><td>三田綱町パークマンション</td></tr>
	  <tr><th>価格</th><td>2億3,000万円</td></tr>
	</table>
	</body></html>`

	d := p.ParseDetail(detail, rows[0])
	require.NotNil(t, d)
	assert.Equal(t, "三田綱町パークマンション", d.BuildingName)
	assert.Equal(t, "パークマンション三田綱町ザ・フォレスト", d.BuildingNameAlt)
	assert.Equal(t, int64(23000), d.Price)
}

func TestNomuParseList(t *testing.T) {
	html := `<html><body>
	<div class="item_resultlist">
	  <a class="item_link" href="/mansion/id/8123456/"></a>
	  <div class="item_title">ドムス南麻布</div>
	  <div class="item_price">9,800万円</div>
	  <div class="item_address">東京都港区南麻布4丁目</div>
	</div>
	</body></html>`

	p := &NomuParser{}
	rows := p.ParseList(html)
	require.Len(t, rows, 1)

	assert.Equal(t, "8123456", rows[0].SitePropertyID)
	assert.Equal(t, "https://www.nomu.com/mansion/id/8123456/", rows[0].URL)
	assert.Equal(t, int64(9800), rows[0].Price)
	assert.Equal(t, "ドムス南麻布", rows[0].BuildingName)
}

func TestNomuIsLastPage(t *testing.T) {
	p := &NomuParser{}
	assert.False(t, p.IsLastPage(`<span class="pager_next"><a href="?page=2">次へ</a></span>`))
	assert.True(t, p.IsLastPage(`<span class="pager_prev"><a href="?page=1">前へ</a></span>`))
}

func TestBuildListURLs(t *testing.T) {
	tests := []struct {
		site  string
		page  int
		wants string
	}{
		{"suumo", 1, "sc=13103"},
		{"suumo", 3, "pn=3"},
		{"homes", 2, "page=2"},
		{"athome", 2, "page2"},
		{"rehouse", 2, "p=2"},
		{"nomu", 2, "page=2"},
	}
	for _, tt := range tests {
		p, err := New(tt.site)
		require.NoError(t, err)
		u := p.BuildListURL("13103", tt.page)
		assert.Contains(t, u, tt.wants, "%s page %d", tt.site, tt.page)
		assert.Contains(t, u, "13103")
	}
}

func TestIsMaintenancePage(t *testing.T) {
	assert.True(t, IsMaintenancePage("<html>ただいまメンテナンス中です</html>"))
	assert.True(t, IsMaintenancePage("システムメンテナンスのお知らせ"))
	assert.False(t, IsMaintenancePage("<html>通常のページ</html>"))
}
