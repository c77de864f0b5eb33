package parser

import (
	"regexp"
	"strconv"
	"strings"

	"condo-watch/internal/normalize"
)

var yenMonthlyRe = regexp.MustCompile(`([0-9,]+)円`)

// extractCommonDetail pulls the canonical fields out of a flattened spec
// table. The portals label the same facts differently; the label lists below
// cover all five sites. Site parsers fill in anything site-specific after.
func extractCommonDetail(fields map[string]string, hints ListRow) *DetailRecord {
	d := &DetailRecord{
		SitePropertyID: hints.SitePropertyID,
		URL:            hints.URL,
	}

	d.BuildingName = strings.TrimSpace(fieldByAnyLabel(fields,
		"物件名", "建物名", "マンション名", "物件名称"))

	if v := fieldByAnyLabel(fields, "販売価格", "価格"); v != "" {
		if p, ok := normalize.ExtractPrice(v); ok {
			d.Price = p
		}
	}

	if v := fieldByAnyLabel(fields, "所在地", "住所", "物件所在地"); v != "" {
		d.Address = normalize.CleanAddress(v)
	}

	if v := fieldByAnyLabel(fields, "専有面積", "面積", "専有面積(壁芯)"); v != "" {
		if a, ok := normalize.ExtractArea(v); ok {
			d.Area = a
		}
	}

	if v := fieldByAnyLabel(fields, "間取り", "間取"); v != "" {
		if l, ok := normalize.NormalizeLayout(v); ok {
			d.Layout = l
		}
	}

	if v := fieldByAnyLabel(fields, "向き", "方位", "主要採光面", "バルコニー方向", "開口向き"); v != "" {
		if dir, ok := normalize.NormalizeDirection(v); ok {
			d.Direction = dir
		}
	}

	// "5階/20階建" style position lines carry both the unit floor and the
	// building height.
	if v := fieldByAnyLabel(fields, "所在階", "所在階/階数", "所在階/構造・階建", "階数"); v != "" {
		if f, ok := normalize.ExtractFloorNumber(v); ok {
			d.Floor = f
		}
		if total, basement, ok := normalize.ExtractTotalFloors(v); ok {
			d.TotalFloors = total
			d.BasementFloors = basement
		}
	}
	if d.TotalFloors == 0 {
		if v := fieldByAnyLabel(fields, "構造・階建て", "建物構造", "構造"); v != "" {
			if total, basement, ok := normalize.ExtractTotalFloors(v); ok {
				d.TotalFloors = total
				d.BasementFloors = basement
			}
		}
	}

	if v := fieldByAnyLabel(fields, "築年月", "完成時期", "築年月日", "竣工年月"); v != "" {
		if y, ok := normalize.ExtractBuiltYear(v); ok {
			d.BuiltYear = y
		}
		if m := builtMonthRe.FindStringSubmatch(normalize.Fold(v)); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil && n >= 1 && n <= 12 {
				d.BuiltMonth = n
			}
		}
	}

	if v := fieldByAnyLabel(fields, "管理費", "管理費等"); v != "" {
		d.ManagementFee = extractMonthlyYen(v)
	}
	if v := fieldByAnyLabel(fields, "修繕積立金", "修繕積立費"); v != "" {
		d.RepairFund = extractMonthlyYen(v)
	}

	if v := fieldByAnyLabel(fields, "バルコニー", "バルコニー面積"); v != "" {
		if a, ok := normalize.ExtractArea(v); ok {
			d.BalconyArea = a
		}
	}

	if v := fieldByAnyLabel(fields, "総戸数", "総区画数"); v != "" {
		if m := totalUnitsRe.FindStringSubmatch(normalize.Fold(v)); m != nil {
			n, _ := strconv.ParseInt(m[1], 10, 64)
			d.TotalUnits = n
		}
	}

	if v := fieldByAnyLabel(fields, "構造・階建て", "建物構造", "構造"); v != "" {
		d.Structure = extractStructure(v)
	}

	if v := fieldByAnyLabel(fields, "交通", "アクセス", "最寄り駅", "交通アクセス"); v != "" {
		d.StationInfo = normalize.FormatStationInfo(v)
	}

	return d
}

var (
	builtMonthRe = regexp.MustCompile(`(\d{1,2})月`)
	totalUnitsRe = regexp.MustCompile(`(\d+)戸`)
	structureRe  = regexp.MustCompile(`(SRC|RC|S造|SRC造|RC造|鉄骨鉄筋コンクリート|鉄筋コンクリート|鉄骨)`)
)

// extractMonthlyYen parses "12,000円／月" style fees in 円.
func extractMonthlyYen(text string) int64 {
	m := yenMonthlyRe.FindStringSubmatch(normalize.Fold(text))
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func extractStructure(text string) string {
	m := structureRe.FindStringSubmatch(normalize.Fold(text))
	if m == nil {
		return ""
	}
	switch m[1] {
	case "鉄骨鉄筋コンクリート", "SRC":
		return "SRC造"
	case "鉄筋コンクリート", "RC":
		return "RC造"
	case "鉄骨":
		return "S造"
	}
	return m[1]
}
