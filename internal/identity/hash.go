// Package identity derives the stable fingerprint that ties listings from
// different source sites to one physical unit.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// absent is the encoding for a missing tuple component. It keeps the hash
// input unambiguous without making absence equal to any real value.
const absent = "-"

// PropertyHash fingerprints a unit as SHA256 over the ordered tuple
// (building_id, floor, area, layout, direction). Area is rounded to two
// decimals, layout is upper-cased with spaces dropped, direction has spaces
// dropped. Room number is deliberately excluded: sites disagree on whether
// they publish it, and including it would fragment the same unit into
// several MasterProperties.
func PropertyHash(buildingID int64, floor int64, area float64, layout, direction string) string {
	parts := []string{
		fmt.Sprintf("%d", buildingID),
		encodeInt(floor),
		encodeArea(area),
		encodeString(layout),
		encodeString(direction),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func encodeInt(v int64) string {
	if v <= 0 {
		return absent
	}
	return fmt.Sprintf("%d", v)
}

func encodeArea(v float64) string {
	if v <= 0 {
		return absent
	}
	return fmt.Sprintf("%.2f", v)
}

func encodeString(v string) string {
	v = strings.ToUpper(strings.Join(strings.Fields(v), ""))
	if v == "" {
		return absent
	}
	return v
}
