package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// Price bounds in 万円. Listings outside this window are treated as parse
// garbage (land prices in 円, monthly fees picked up by mistake, ...).
const (
	MinPrice = 100
	MaxPrice = 10_000_000
)

// Area bounds in ㎡.
const (
	MinArea = 10
	MaxArea = 1000
)

var (
	priceOkuManRe = regexp.MustCompile(`(\d+)億([0-9,]+)万円?`)
	priceOkuRe    = regexp.MustCompile(`(\d+)億円?`)
	priceManRe    = regexp.MustCompile(`([0-9,]+)万円`)

	areaRe = regexp.MustCompile(`([0-9,]+(?:\.\d+)?)\s*(?:㎡|m²|m2|平米)`)

	floorRe       = regexp.MustCompile(`(\d+)階`)
	totalFloorsRe = regexp.MustCompile(`(?:地上)?(\d+)階建`)
	basementRe    = regexp.MustCompile(`地下(\d+)階?`)

	builtYearRe = regexp.MustCompile(`(\d{4})年`)
	eraYearRe   = regexp.MustCompile(`(令和|平成|昭和)(\d+|元)年`)

	layoutRe = regexp.MustCompile(`^\d{1,2}(?:R|K|SK|DK|SDK|LK|LDK|SLK|SLDK)$`)
)

// Fold converts full-width ASCII and digits to half-width. Katakana is left
// as written (width canonicalization only, no transliteration).
func Fold(s string) string {
	return width.Fold.String(s)
}

// ExtractPrice parses a price in 万円 from free text. Handles "5,480万円",
// "1億2,000万円" and bare "2億". Returns false for absent or out-of-range
// values.
func ExtractPrice(text string) (int64, bool) {
	t := Fold(text)

	if m := priceOkuManRe.FindStringSubmatch(t); m != nil {
		oku, err1 := strconv.ParseInt(m[1], 10, 64)
		man, err2 := strconv.ParseInt(strings.ReplaceAll(m[2], ",", ""), 10, 64)
		if err1 == nil && err2 == nil {
			return checkPrice(oku*10000 + man)
		}
	}
	if m := priceManRe.FindStringSubmatch(t); m != nil {
		man, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err == nil {
			return checkPrice(man)
		}
	}
	if m := priceOkuRe.FindStringSubmatch(t); m != nil {
		oku, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return checkPrice(oku * 10000)
		}
	}
	return 0, false
}

func checkPrice(p int64) (int64, bool) {
	if p < MinPrice || p > MaxPrice {
		return 0, false
	}
	return p, true
}

// ValidPrice reports whether a price in 万円 is inside the accepted window.
func ValidPrice(p int64) bool {
	return p >= MinPrice && p <= MaxPrice
}

// ExtractArea parses a floor area in ㎡. Tolerates ㎡/m²/m2/平米 and
// comma-grouped integers.
func ExtractArea(text string) (float64, bool) {
	t := Fold(text)
	m := areaRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	a, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || !ValidArea(a) {
		return 0, false
	}
	return a, true
}

// ValidArea reports whether an area in ㎡ is inside the accepted window.
func ValidArea(a float64) bool {
	return a >= MinArea && a <= MaxArea
}

// ExtractFloorNumber picks the unit's own floor out of text like "5階/20階建"
// or "5階". The 階建 component is never returned as the floor.
func ExtractFloorNumber(text string) (int64, bool) {
	t := Fold(text)
	for _, m := range floorRe.FindAllStringSubmatchIndex(t, -1) {
		// Skip matches that are part of "N階建" or "地下N階".
		end := m[1]
		if strings.HasPrefix(t[end:], "建") {
			continue
		}
		start := m[0]
		if idx := strings.LastIndex(t[:start], "地下"); idx >= 0 && start-idx <= len("地下")+2 {
			continue
		}
		n, err := strconv.ParseInt(t[m[2]:m[3]], 10, 64)
		if err == nil && n > 0 && n < 100 {
			return n, true
		}
	}
	return 0, false
}

// ExtractTotalFloors parses the building height from text like "20階建",
// "地下1階付20階建" or "20階地下1階建". Returns the above-ground count and
// the basement count (0 when none).
func ExtractTotalFloors(text string) (int64, int64, bool) {
	t := Fold(text)

	var basement int64
	if m := basementRe.FindStringSubmatch(t); m != nil {
		basement, _ = strconv.ParseInt(m[1], 10, 64)
	}

	if m := totalFloorsRe.FindStringSubmatch(t); m != nil {
		// Guard against "地下1階建" matching as total=1.
		idx := strings.Index(t, m[0])
		if idx < 0 || !strings.HasSuffix(t[:idx], "地下") {
			n, err := strconv.ParseInt(m[1], 10, 64)
			if err == nil && n > 0 {
				return n, basement, true
			}
		}
	}

	// "20階地下1階建" puts the above-ground count first.
	if m := floorRe.FindStringSubmatch(t); m != nil && strings.Contains(t, "地下") {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && n > 0 {
			return n, basement, true
		}
	}
	return 0, 0, false
}

// ValidFloorNumber checks floor against total floors; either may be absent
// (<= 0), in which case the pair is accepted.
func ValidFloorNumber(floor, totalFloors int64) bool {
	if floor <= 0 || totalFloors <= 0 {
		return true
	}
	return floor <= totalFloors
}

// NormalizeLayout canonicalizes a floor-plan string: full-width folded,
// whitespace dropped, ワンルーム/STUDIO mapped to 1R, storage-room suffixes
// (+S / +納戸) folded into the S variant, walk-in closets dropped.
func NormalizeLayout(text string) (string, bool) {
	t := strings.ToUpper(Fold(text))
	t = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '　' {
			return -1
		}
		return r
	}, t)
	if t == "" {
		return "", false
	}
	if strings.Contains(t, "ワンルーム") || strings.Contains(t, "STUDIO") {
		return "1R", true
	}

	// Closet annotations carry no layout information.
	t = strings.ReplaceAll(t, "+WIC", "")
	t = strings.ReplaceAll(t, "+SIC", "")
	t = strings.ReplaceAll(t, "+N", "+納戸")

	hasStorage := false
	if strings.Contains(t, "+S") || strings.Contains(t, "+納戸") {
		hasStorage = true
		t = strings.ReplaceAll(t, "+S", "")
		t = strings.ReplaceAll(t, "+納戸", "")
	}
	t = strings.TrimSuffix(t, "+")

	if hasStorage && !strings.Contains(t, "S") {
		// 2LDK+S -> 2SLDK
		i := strings.IndexFunc(t, func(r rune) bool { return r < '0' || r > '9' })
		if i > 0 {
			t = t[:i] + "S" + t[i:]
		}
	}

	if !layoutRe.MatchString(t) {
		return "", false
	}
	return t, true
}

var directionAliases = map[string]string{
	"東": "東", "西": "西", "南": "南", "北": "北",
	"南東": "南東", "南西": "南西", "北東": "北東", "北西": "北西",
	"東南": "南東", "西南": "南西", "東北": "北東", "西北": "北西",
}

// NormalizeDirection maps free text to one of the eight compass directions.
func NormalizeDirection(text string) (string, bool) {
	t := strings.TrimSpace(Fold(text))
	t = strings.TrimSuffix(t, "向き")
	if d, ok := directionAliases[t]; ok {
		return d, true
	}
	return "", false
}

var eraBase = map[string]int{
	"令和": 2018,
	"平成": 1988,
	"昭和": 1925,
}

// ExtractBuiltYear parses a construction year, converting 令和/平成/昭和 era
// years to 西暦. Years more than two ahead of now are rejected (pre-builds
// are listed up to completion, anything beyond is garbage).
func ExtractBuiltYear(text string) (int64, bool) {
	t := Fold(text)

	if m := eraYearRe.FindStringSubmatch(t); m != nil {
		n := 1
		if m[2] != "元" {
			n, _ = strconv.Atoi(m[2])
		}
		y := int64(eraBase[m[1]] + n)
		return checkBuiltYear(y)
	}
	if m := builtYearRe.FindStringSubmatch(t); m != nil {
		y, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return checkBuiltYear(y)
		}
	}
	return 0, false
}

func checkBuiltYear(y int64) (int64, bool) {
	if y < 1900 || y > int64(time.Now().Year()+2) {
		return 0, false
	}
	return y, true
}

var adSuffixRe = regexp.MustCompile(`(周辺|付近|ほか|他)$`)

// CleanAddress strips advertising decoration from an address string while
// preserving the 都道府県+区 prefix the resolver keys on.
func CleanAddress(text string) string {
	t := strings.TrimSpace(Fold(text))
	for _, marker := range []string{"【", "≪", "《", "★", "☆", "(地図"} {
		if i := strings.Index(t, marker); i >= 0 {
			t = t[:i]
		}
	}
	t = adSuffixRe.ReplaceAllString(strings.TrimSpace(t), "")
	return strings.TrimSpace(t)
}

// HasPrefectureAndWard reports whether an address carries both a prefecture
// and a municipal component, the minimum for address-based building lookup.
func HasPrefectureAndWard(addr string) bool {
	if addr == "" {
		return false
	}
	hasPref := strings.ContainsAny(addr, "都道府県")
	hasWard := strings.ContainsAny(addr, "区市町村")
	return hasPref && hasWard
}

var walkRe = regexp.MustCompile(`(?:歩|徒歩)\s*(\d+)\s*分`)

// FormatStationInfo canonicalizes station access text to one station per
// line, with walk times normalized to 徒歩N分.
func FormatStationInfo(text string) string {
	t := Fold(text)
	t = strings.NewReplacer("、", "\n", "，", "\n", "／", "\n", "/", "\n").Replace(t)

	var lines []string
	for _, line := range strings.Split(t, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		line = walkRe.ReplaceAllString(line, "徒歩${1}分")
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
