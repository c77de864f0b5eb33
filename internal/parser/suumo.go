package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"condo-watch/internal/normalize"
)

// SuumoParser scrapes SUUMO's used-condominium listings. SUUMO truncates
// long building names on list pages ("パークコート麻布十…"), so its name
// policy is prefix matching against the detail page.
type SuumoParser struct{}

var (
	suumoIDRe    = regexp.MustCompile(`^\d{8,12}$`)
	suumoURLIDRe = regexp.MustCompile(`/nc_(\d+)/`)
)

func (p *SuumoParser) Site() string { return "suumo" }

func (p *SuumoParser) BuildListURL(area string, page int) string {
	u := fmt.Sprintf("https://suumo.jp/jj/bukken/ichiran/JJ012FC001/?ar=030&bs=011&sc=%s&po=0&pj=1", area)
	if page > 1 {
		u = fmt.Sprintf("%s&pn=%d", u, page)
	}
	return u
}

func (p *SuumoParser) ParseList(html string) []ListRow {
	doc := newDoc(html)
	if doc == nil {
		return nil
	}

	var rows []ListRow
	seen := make(map[string]bool)

	doc.Find("div.property_unit").Each(func(_ int, unit *goquery.Selection) {
		var row ListRow

		link := unit.Find("h2.property_unit-title a").First()
		if href, ok := link.Attr("href"); ok {
			if strings.HasPrefix(href, "/") {
				href = "https://suumo.jp" + href
			}
			row.URL = href
			if m := suumoURLIDRe.FindStringSubmatch(href); m != nil {
				row.SitePropertyID = m[1]
			}
		}
		row.BuildingName = strings.TrimSpace(link.Text())

		unit.Find("dl.dottable-line").Each(func(_ int, dl *goquery.Selection) {
			label := cleanLabel(dl.Find("dt").First().Text())
			value := strings.TrimSpace(dl.Find("dd").First().Text())
			switch label {
			case "販売価格":
				if price, ok := normalize.ExtractPrice(value); ok {
					row.Price = price
				}
			case "所在地":
				row.Address = normalize.CleanAddress(value)
			}
		})

		if row.SitePropertyID == "" || seen[row.SitePropertyID] {
			return
		}
		seen[row.SitePropertyID] = true
		rows = append(rows, row)
	})

	return rows
}

func (p *SuumoParser) ParseDetail(html string, hints ListRow) *DetailRecord {
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
		// The h1 carries the name when the spec table omits the 物件名 row.
		d.BuildingName = strings.TrimSpace(doc.Find("h1.section_h1-header-title").First().Text())
	}

	if d.SitePropertyID == "" {
		if m := suumoURLIDRe.FindStringSubmatch(hints.URL); m != nil {
			d.SitePropertyID = m[1]
		}
	}

	// SUUMO publishes its own building id for tower listings.
	if v, ok := doc.Find("div[data-bldg-id]").First().Attr("data-bldg-id"); ok {
		d.ExternalBuildingID = v
	}

	return d
}

func (p *SuumoParser) IsLastPage(html string) bool {
	doc := newDoc(html)
	if doc == nil {
		return true
	}
	next := false
	doc.Find("p.pagination-parts a").Each(func(_ int, a *goquery.Selection) {
		if strings.Contains(a.Text(), "次へ") {
			next = true
		}
	})
	return !next
}

func (p *SuumoParser) ValidateSitePropertyID(id, url string) bool {
	return suumoIDRe.MatchString(id)
}

func (p *SuumoParser) VerifyBuildingNames(detail *DetailRecord, listName string) (bool, string) {
	if listName == "" || detail.BuildingName == "" {
		return true, detail.BuildingName
	}
	if normalize.PrefixMatch(listName, detail.BuildingName) {
		return true, detail.BuildingName
	}
	return false, ""
}

func (p *SuumoParser) RequiredFields() []string        { return baseRequiredFields }
func (p *SuumoParser) PartialRequiredFields() []string { return nil }
