package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"condo-watch/internal/normalize"
)

// HomesParser scrapes LIFULL HOME'S used-condominium listings. HOME'S list
// pages carry the full building name, so its name policy is exact equality
// over canonical keys.
type HomesParser struct{}

var homesIDRe = regexp.MustCompile(`^b-\d{5,14}$`)

func (p *HomesParser) Site() string { return "homes" }

func (p *HomesParser) BuildListURL(area string, page int) string {
	u := fmt.Sprintf("https://www.homes.co.jp/mansion/chuko/%s/list/", area)
	if page > 1 {
		u = fmt.Sprintf("%s?page=%d", u, page)
	}
	return u
}

func (p *HomesParser) ParseList(html string) []ListRow {
	doc := newDoc(html)
	if doc == nil {
		return nil
	}

	var rows []ListRow
	seen := make(map[string]bool)

	doc.Find("div.mod-mergeBuilding--sale").Each(func(_ int, item *goquery.Selection) {
		var row ListRow

		row.SitePropertyID, _ = item.Attr("data-bukken-id")

		link := item.Find("a.prg-bukkenNameAnchor").First()
		if href, ok := link.Attr("href"); ok {
			row.URL = href
		}
		row.BuildingName = strings.TrimSpace(link.Text())

		if v := strings.TrimSpace(item.Find("span.priceLabel").First().Text()); v != "" {
			if price, ok := normalize.ExtractPrice(v); ok {
				row.Price = price
			}
		}
		if v := strings.TrimSpace(item.Find("td.bukkenSpec-address").First().Text()); v != "" {
			row.Address = normalize.CleanAddress(v)
		}

		if row.SitePropertyID == "" || seen[row.SitePropertyID] {
			return
		}
		seen[row.SitePropertyID] = true
		rows = append(rows, row)
	})

	return rows
}

func (p *HomesParser) ParseDetail(html string, hints ListRow) *DetailRecord {
	doc := newDoc(html)
	if doc == nil {
		return nil
	}

	fields := tableFields(doc)
	if len(fields) == 0 {
		return nil
	}

	d := extractCommonDetail(fields, hints)

	if d.BuildingName == "" {
		d.BuildingName = strings.TrimSpace(doc.Find("h1.bukkenName").First().Text())
	}

	if d.SitePropertyID == "" {
		if v, ok := doc.Find("article[data-bukken-id]").First().Attr("data-bukken-id"); ok {
			d.SitePropertyID = v
		}
	}

	if v, ok := doc.Find("section[data-building-id]").First().Attr("data-building-id"); ok {
		d.ExternalBuildingID = v
	}

	return d
}

func (p *HomesParser) IsLastPage(html string) bool {
	doc := newDoc(html)
	if doc == nil {
		return true
	}
	return doc.Find("li.nextPage a").Length() == 0
}

func (p *HomesParser) ValidateSitePropertyID(id, url string) bool {
	return homesIDRe.MatchString(id)
}

func (p *HomesParser) VerifyBuildingNames(detail *DetailRecord, listName string) (bool, string) {
	if listName == "" || detail.BuildingName == "" {
		return true, detail.BuildingName
	}
	if normalize.CanonicalName(listName) == normalize.CanonicalName(detail.BuildingName) {
		return true, detail.BuildingName
	}
	return false, ""
}

func (p *HomesParser) RequiredFields() []string        { return baseRequiredFields }
func (p *HomesParser) PartialRequiredFields() []string { return nil }
