package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	nameStripRe  = regexp.MustCompile(`[\s　・\-‐‑–—−ｰ~～]`)
	wingSuffixRe = regexp.MustCompile(`(EAST|WEST|NORTH|SOUTH|東|西|南|北)棟?$`)

	roomNumberRe = regexp.MustCompile(`[\s　]*(\d{3,4})号室?$`)

	adCopyRes = []*regexp.Regexp{
		regexp.MustCompile(`徒歩\d+分`),
		regexp.MustCompile(`の中古マンション`),
		regexp.MustCompile(`\d+[SLDK]*LDK`),
		regexp.MustCompile(`\d+階建`),
		regexp.MustCompile(`築\d+年`),
	}
)

// CanonicalName derives the search key for a building name: width-folded,
// decoration stripped, upper-cased, trailing wing suffixes removed. The
// display name keeps its original decorative form; only the key is folded.
func CanonicalName(name string) string {
	k := strings.ToUpper(Fold(name))
	k = nameStripRe.ReplaceAllString(k, "")
	for {
		stripped := wingSuffixRe.ReplaceAllString(k, "")
		if stripped == k || stripped == "" {
			break
		}
		k = stripped
	}
	return k
}

// NameSimilarity scores two building names on [0,1] over their canonical
// keys. 1 means identical keys.
func NameSimilarity(a, b string) float64 {
	ka, kb := CanonicalName(a), CanonicalName(b)
	if ka == kb {
		return 1
	}
	la, lb := utf8.RuneCountInString(ka), utf8.RuneCountInString(kb)
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(ka, kb)
	return 1 - float64(d)/float64(max)
}

// ExtractRoomNumber splits a trailing room number ("... 503号室") off a
// building name. Room numbers never belong on the Building row.
func ExtractRoomNumber(name string) (string, string) {
	m := roomNumberRe.FindStringSubmatch(name)
	if m == nil {
		return name, ""
	}
	return strings.TrimSpace(roomNumberRe.ReplaceAllString(name, "")), m[1]
}

// IsAdCopyName reports whether a building-name candidate looks like listing
// ad copy ("港区・徒歩5分・3LDKの中古マンション") rather than a real name.
// Such names require an address to resolve against.
func IsAdCopyName(name string) bool {
	t := Fold(name)
	if utf8.RuneCountInString(strings.TrimSpace(t)) < 3 {
		return true
	}
	for _, re := range adCopyRes {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// PrefixMatch implements the abbreviation policy: when the list page
// truncates a name to "パークコート麻布十…", the detail name is accepted if
// the truncated stem is a prefix of it (compared over canonical keys).
func PrefixMatch(abbreviated, full string) bool {
	stem := strings.TrimSuffix(strings.TrimSpace(abbreviated), "…")
	stem = strings.TrimSuffix(stem, "...")
	if stem == abbreviated {
		// Not abbreviated at all: require key equality.
		return CanonicalName(abbreviated) == CanonicalName(full)
	}
	ks, kf := CanonicalName(stem), CanonicalName(full)
	return ks != "" && strings.HasPrefix(kf, ks)
}

// TokenContainment implements the partial-match policy: the share of a's
// canonical key runes covered by the longest common run with b, approximated
// by levenshtein similarity over keys.
func TokenContainment(a, b string) float64 {
	ka, kb := CanonicalName(a), CanonicalName(b)
	if ka == "" || kb == "" {
		return 0
	}
	if strings.Contains(kb, ka) || strings.Contains(ka, kb) {
		return 1
	}
	return NameSimilarity(a, b)
}
