package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"condo-watch/internal/normalize"
)

// AthomeParser scrapes athome's used-condominium listings. athome prefixes
// list names with promotional copy ("【角部屋】パークハウス青山"), so its
// name policy is partial matching with a containment threshold.
type AthomeParser struct{}

// athomeNameThreshold is the minimum token containment for a name match.
const athomeNameThreshold = 0.6

var athomeIDRe = regexp.MustCompile(`^[0-9a-z]{6,16}$`)

func (p *AthomeParser) Site() string { return "athome" }

func (p *AthomeParser) BuildListURL(area string, page int) string {
	if page > 1 {
		return fmt.Sprintf("https://www.athome.co.jp/mansion/chuko/%s/list/page%d/", area, page)
	}
	return fmt.Sprintf("https://www.athome.co.jp/mansion/chuko/%s/list/", area)
}

func (p *AthomeParser) ParseList(html string) []ListRow {
	doc := newDoc(html)
	if doc == nil {
		return nil
	}

	var rows []ListRow
	seen := make(map[string]bool)

	doc.Find("section.p-property-object").Each(func(_ int, card *goquery.Selection) {
		var row ListRow

		row.SitePropertyID, _ = card.Attr("data-item-id")

		link := card.Find("a.p-property-object-link").First()
		if href, ok := link.Attr("href"); ok {
			if strings.HasPrefix(href, "/") {
				href = "https://www.athome.co.jp" + href
			}
			row.URL = href
		}
		row.BuildingName = strings.TrimSpace(card.Find(".p-property-object-title").First().Text())

		if v := card.Find(".p-property-object-price").First().Text(); v != "" {
			if price, ok := normalize.ExtractPrice(v); ok {
				row.Price = price
			}
		}
		if v := card.Find(".p-property-object-address").First().Text(); v != "" {
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

func (p *AthomeParser) ParseDetail(html string, hints ListRow) *DetailRecord {
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
		d.BuildingName = strings.TrimSpace(doc.Find("h1.p-detail-title").First().Text())
	}

	return d
}

func (p *AthomeParser) IsLastPage(html string) bool {
	doc := newDoc(html)
	if doc == nil {
		return true
	}
	return doc.Find("a.p-pager-next").Length() == 0
}

func (p *AthomeParser) ValidateSitePropertyID(id, url string) bool {
	return athomeIDRe.MatchString(id)
}

func (p *AthomeParser) VerifyBuildingNames(detail *DetailRecord, listName string) (bool, string) {
	if listName == "" || detail.BuildingName == "" {
		return true, detail.BuildingName
	}
	if normalize.TokenContainment(listName, detail.BuildingName) >= athomeNameThreshold {
		return true, detail.BuildingName
	}
	return false, ""
}

func (p *AthomeParser) RequiredFields() []string { return baseRequiredFields }

// athome omits the 間取り row on studio listings often enough that layout is
// only partially required.
func (p *AthomeParser) PartialRequiredFields() []string { return []string{"layout"} }
