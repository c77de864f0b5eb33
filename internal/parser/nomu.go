package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"condo-watch/internal/normalize"
)

// NomuParser scrapes nomu.com used-condominium listings. The list pages are
// rendered client-side, so this site pairs with the browser fetcher.
type NomuParser struct{}

var (
	nomuIDRe    = regexp.MustCompile(`^\d{6,10}$`)
	nomuURLIDRe = regexp.MustCompile(`/mansion/id/(\d+)/`)
)

func (p *NomuParser) Site() string { return "nomu" }

func (p *NomuParser) BuildListURL(area string, page int) string {
	u := fmt.Sprintf("https://www.nomu.com/mansion/area_%s/", area)
	if page > 1 {
		u = fmt.Sprintf("%s?page=%d", u, page)
	}
	return u
}

func (p *NomuParser) ParseList(html string) []ListRow {
	doc := newDoc(html)
	if doc == nil {
		return nil
	}

	var rows []ListRow
	seen := make(map[string]bool)

	doc.Find("div.item_resultlist").Each(func(_ int, item *goquery.Selection) {
		var row ListRow

		link := item.Find("a.item_link").First()
		if href, ok := link.Attr("href"); ok {
			if strings.HasPrefix(href, "/") {
				href = "https://www.nomu.com" + href
			}
			row.URL = href
			if m := nomuURLIDRe.FindStringSubmatch(href); m != nil {
				row.SitePropertyID = m[1]
			}
		}
		row.BuildingName = strings.TrimSpace(item.Find(".item_title").First().Text())

		if v := item.Find(".item_price").First().Text(); v != "" {
			if price, ok := normalize.ExtractPrice(v); ok {
				row.Price = price
			}
		}
		if v := item.Find(".item_address").First().Text(); v != "" {
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

func (p *NomuParser) ParseDetail(html string, hints ListRow) *DetailRecord {
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
		d.BuildingName = strings.TrimSpace(doc.Find("h1.detail_title").First().Text())
	}
	if d.SitePropertyID == "" {
		if m := nomuURLIDRe.FindStringSubmatch(hints.URL); m != nil {
			d.SitePropertyID = m[1]
		}
	}

	return d
}

func (p *NomuParser) IsLastPage(html string) bool {
	doc := newDoc(html)
	if doc == nil {
		return true
	}
	return doc.Find("span.pager_next a").Length() == 0
}

func (p *NomuParser) ValidateSitePropertyID(id, url string) bool {
	return nomuIDRe.MatchString(id)
}

func (p *NomuParser) VerifyBuildingNames(detail *DetailRecord, listName string) (bool, string) {
	if listName == "" || detail.BuildingName == "" {
		return true, detail.BuildingName
	}
	if normalize.CanonicalName(listName) == normalize.CanonicalName(detail.BuildingName) {
		return true, detail.BuildingName
	}
	return false, ""
}

func (p *NomuParser) RequiredFields() []string        { return baseRequiredFields }
func (p *NomuParser) PartialRequiredFields() []string { return []string{"layout"} }
