package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"condo-watch/internal/normalize"
)

// RehouseParser scrapes Mitsui Rehouse used-condominium listings. The detail
// page publishes the building name in both the spec table and the page
// title; the two occasionally disagree, so the name policy accepts either
// candidate (multi-source policy).
type RehouseParser struct{}

var rehouseIDRe = regexp.MustCompile(`^[A-Z][0-9A-Za-z]{5,13}$`)

func (p *RehouseParser) Site() string { return "rehouse" }

func (p *RehouseParser) BuildListURL(area string, page int) string {
	u := fmt.Sprintf("https://www.rehouse.co.jp/buy/mansion/prefecture/%s/list/", area)
	if page > 1 {
		u = fmt.Sprintf("%s?p=%d", u, page)
	}
	return u
}

func (p *RehouseParser) ParseList(html string) []ListRow {
	doc := newDoc(html)
	if doc == nil {
		return nil
	}

	var rows []ListRow
	seen := make(map[string]bool)

	doc.Find("div.property-index-card").Each(func(_ int, card *goquery.Selection) {
		var row ListRow

		row.SitePropertyID, _ = card.Attr("data-property-code")

		link := card.Find("a.property-index-card-link").First()
		if href, ok := link.Attr("href"); ok {
			if strings.HasPrefix(href, "/") {
				href = "https://www.rehouse.co.jp" + href
			}
			row.URL = href
		}
		row.BuildingName = strings.TrimSpace(card.Find(".property-index-card-name").First().Text())

		if v := card.Find(".property-index-card-price").First().Text(); v != "" {
			if price, ok := normalize.ExtractPrice(v); ok {
				row.Price = price
			}
		}
		if v := card.Find(".property-index-card-address").First().Text(); v != "" {
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

func (p *RehouseParser) ParseDetail(html string, hints ListRow) *DetailRecord {
	doc := newDoc(html)
	if doc == nil {
		return nil
	}

	fields := tableFields(doc)
	if len(fields) == 0 {
		return nil
	}

	d := extractCommonDetail(fields, hints)

	// Second name candidate from the page heading; the spec table carries
	// the official register name, the heading the marketing name.
	d.BuildingNameAlt = strings.TrimSpace(doc.Find("h1.property-detail-name").First().Text())
	if d.BuildingName == "" {
		d.BuildingName = d.BuildingNameAlt
		d.BuildingNameAlt = ""
	}

	return d
}

func (p *RehouseParser) IsLastPage(html string) bool {
	doc := newDoc(html)
	if doc == nil {
		return true
	}
	return doc.Find("li.pagination-next a").Length() == 0
}

func (p *RehouseParser) ValidateSitePropertyID(id, url string) bool {
	return rehouseIDRe.MatchString(id)
}

// VerifyBuildingNames accepts when either detail candidate matches the list
// name on canonical keys.
func (p *RehouseParser) VerifyBuildingNames(detail *DetailRecord, listName string) (bool, string) {
	if listName == "" || detail.BuildingName == "" {
		return true, detail.BuildingName
	}
	listKey := normalize.CanonicalName(listName)
	if normalize.CanonicalName(detail.BuildingName) == listKey {
		return true, detail.BuildingName
	}
	if detail.BuildingNameAlt != "" && normalize.CanonicalName(detail.BuildingNameAlt) == listKey {
		return true, detail.BuildingNameAlt
	}
	return false, ""
}

func (p *RehouseParser) RequiredFields() []string        { return baseRequiredFields }
func (p *RehouseParser) PartialRequiredFields() []string { return nil }

// MaxArea widens the area ceiling; Rehouse carries penthouse and whole-floor
// stock above 500㎡ that is legitimate.
func (p *RehouseParser) MaxArea() float64 { return 1000 }
