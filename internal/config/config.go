// Package config reads the SCRAPER_* environment configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable the scrape engine honors. All values have
// working defaults; env vars override.
type Config struct {
	DatabasePath string

	// Detail pages older than this get re-fetched.
	DetailRefetchDays int
	// Per-site overrides of DetailRefetchDays, keyed by lower-case site name.
	SiteDetailRefetchDays map[string]int

	// SmartScraping skips the detail fetch for unchanged listings; turning
	// it off fetches every detail page.
	SmartScraping bool

	// Delay between processed listings. The politeness delay before page
	// fetches is fixed at 2s inside the fetcher.
	Delay time.Duration

	HTTPTimeout time.Duration

	MaxPages int

	CriticalErrorRate         float64
	CriticalErrorCount        int
	ConsecutiveErrors         int
	SuspiciousUpdateThreshold int
	PreventNullUpdates        bool

	PriceMismatchRetryDays int
	PauseTimeout           time.Duration
}

// Sites the engine knows how to scrape.
var Sites = []string{"suumo", "homes", "athome", "rehouse", "nomu"}

// Load builds a Config from the environment.
func Load() Config {
	c := Config{
		DatabasePath:              envString("DATABASE_PATH", "data/condo-watch.db"),
		DetailRefetchDays:         envInt("SCRAPER_DETAIL_REFETCH_DAYS", 90),
		SiteDetailRefetchDays:     map[string]int{},
		SmartScraping:             envBool("SCRAPER_SMART_SCRAPING", true),
		Delay:                     envSeconds("SCRAPER_DELAY", 1.0),
		HTTPTimeout:               envSeconds("SCRAPER_HTTP_TIMEOUT_SECONDS", 30),
		MaxPages:                  envInt("SCRAPER_MAX_PAGES", 200),
		CriticalErrorRate:         envFloat("SCRAPER_CRITICAL_ERROR_RATE", 0.5),
		CriticalErrorCount:        envInt("SCRAPER_CRITICAL_ERROR_COUNT", 10),
		ConsecutiveErrors:         envInt("SCRAPER_CONSECUTIVE_ERRORS", 5),
		SuspiciousUpdateThreshold: envInt("SCRAPER_SUSPICIOUS_UPDATE_THRESHOLD", 5),
		PreventNullUpdates:        envBool("SCRAPER_PREVENT_NULL_UPDATES", false),
		PriceMismatchRetryDays:    envInt("SCRAPER_PRICE_MISMATCH_RETRY_DAYS", 7),
		PauseTimeout:              envSeconds("SCRAPER_PAUSE_TIMEOUT_SECONDS", 300),
	}

	for _, site := range Sites {
		key := fmt.Sprintf("SCRAPER_%s_DETAIL_REFETCH_DAYS", strings.ToUpper(site))
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.SiteDetailRefetchDays[site] = n
			}
		}
	}

	return c
}

// RefetchDaysFor returns the effective detail-refetch window for a site.
func (c Config) RefetchDaysFor(site string) int {
	if d, ok := c.SiteDetailRefetchDays[strings.ToLower(site)]; ok {
		return d
	}
	return c.DetailRefetchDays
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envSeconds(key string, def float64) time.Duration {
	secs := envFloat(key, def)
	return time.Duration(secs * float64(time.Second))
}
