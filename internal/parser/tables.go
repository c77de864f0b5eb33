package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// newDoc parses HTML into a goquery document, returning nil on malformed
// input (goquery only fails on reader errors, but keep the guard).
func newDoc(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}

// tableFields flattens every th/td and dt/dd pair on a detail page into a
// label → value map. Listing portals all publish the spec sheet as one of
// these two table shapes; later duplicates of a label are ignored so the
// primary spec table wins over footer summaries.
func tableFields(doc *goquery.Document) map[string]string {
	fields := make(map[string]string)

	doc.Find("th").Each(func(_ int, th *goquery.Selection) {
		label := cleanLabel(th.Text())
		if label == "" {
			return
		}
		value := strings.TrimSpace(th.NextFiltered("td").Text())
		if value == "" {
			value = strings.TrimSpace(th.Parent().Find("td").First().Text())
		}
		if value != "" {
			if _, seen := fields[label]; !seen {
				fields[label] = value
			}
		}
	})

	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		label := cleanLabel(dt.Text())
		if label == "" {
			return
		}
		value := strings.TrimSpace(dt.NextFiltered("dd").Text())
		if value != "" {
			if _, seen := fields[label]; !seen {
				fields[label] = value
			}
		}
	})

	return fields
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "：")
	s = strings.TrimSuffix(s, ":")
	return s
}

// fieldByAnyLabel returns the first non-empty value among candidate labels.
func fieldByAnyLabel(fields map[string]string, labels ...string) string {
	for _, l := range labels {
		if v, ok := fields[l]; ok && v != "" {
			return v
		}
	}
	return ""
}
