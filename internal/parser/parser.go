// Package parser holds the per-site parser contract and its five
// implementations. Parsers are pure over fetched HTML: all knowledge of a
// site's markup lives here, and none of them touch persistence.
package parser

import (
	"fmt"
	"time"
)

// ListRow is one listing as seen on a list page. URL, SitePropertyID and
// Price are mandatory at list time; rows missing any of them are dropped by
// the orchestrator as HTML-structure errors.
type ListRow struct {
	URL            string `json:"url"`
	SitePropertyID string `json:"site_property_id"`
	Price          int64  `json:"price"`
	BuildingName   string `json:"building_name,omitempty"`
	Address        string `json:"address,omitempty"`
}

// DetailRecord is the full extraction from a detail page. Zero values mean
// absent; the required-fields contract decides which absences are fatal.
type DetailRecord struct {
	SitePropertyID     string
	URL                string
	Price              int64
	BuildingName       string
	BuildingNameAlt    string // second candidate, multi-source name policy
	ExternalBuildingID string // site's own building id when published
	Address            string
	Area               float64
	Layout             string
	Direction          string
	Floor              int64
	TotalFloors        int64
	BasementFloors     int64
	BalconyArea        float64
	ManagementFee      int64
	RepairFund         int64
	BuiltYear          int64
	BuiltMonth         int64
	TotalUnits         int64
	Structure          string
	StationInfo        string
	FirstPublishedAt   time.Time
}

// SiteParser is the per-site capability set. The orchestrator drives it
// without any site-specific branches.
type SiteParser interface {
	// Site returns the source-site key ("suumo", "homes", ...).
	Site() string
	// BuildListURL returns the list-page URL for an area code and page.
	BuildListURL(area string, page int) string
	// ParseList extracts rows from a list page.
	ParseList(html string) []ListRow
	// ParseDetail extracts a detail record, with the list row as hints.
	// Returns nil when the page has no recognizable detail block.
	ParseDetail(html string, hints ListRow) *DetailRecord
	// IsLastPage reports whether the page is the final one of its result set.
	IsLastPage(html string) bool
	// ValidateSitePropertyID checks the site's id shape rules.
	ValidateSitePropertyID(id, url string) bool
	// VerifyBuildingNames reconciles the detail-page name against the
	// list-page name under the site's policy, returning the name to trust.
	VerifyBuildingNames(detail *DetailRecord, listName string) (bool, string)
	// RequiredFields names the detail fields that must be present to save.
	RequiredFields() []string
	// PartialRequiredFields names fields tolerated missing up to the
	// partial-required rate (30% with a sample floor of 10).
	PartialRequiredFields() []string
}

// New returns the parser for a source site.
func New(site string) (SiteParser, error) {
	switch site {
	case "suumo":
		return &SuumoParser{}, nil
	case "homes":
		return &HomesParser{}, nil
	case "athome":
		return &AthomeParser{}, nil
	case "rehouse":
		return &RehouseParser{}, nil
	case "nomu":
		return &NomuParser{}, nil
	default:
		return nil, fmt.Errorf("unknown source site %q", site)
	}
}

// baseRequiredFields are required on every site; parsers extend or relax
// the set through RequiredFields and PartialRequiredFields.
var baseRequiredFields = []string{
	"site_property_id", "price", "building_name", "address", "area", "layout",
}
