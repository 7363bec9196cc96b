package energy

import (
	"strconv"
	"strings"
)

// Header sentinels and channel tags of the grid operator export format.
// Rows are semicolon-delimited; field 0 carries a sentinel or a meter
// identifier, field 1 a channel tag.
const (
	sentinelDate = "DD"  // field 1 = DD-MM-YYYY
	sentinelCoop = "kSE" // field 1 = cooperative identifier, may be empty

	TagConsumption = "CP"
	TagProduction  = "CO"
	TagBalance     = "CB"
)

// Metadata tokens that show up in the identifier column but never denote
// a meter.
var reservedTokens = map[string]struct{}{
	"kOSD":    {},
	"kSE":     {},
	"DCW":     {},
	"DD":      {},
	"VV":      {},
	"Kod_PPE": {},
}

// ParseCellValue decodes one hourly cell. A cell carries a decimal number
// followed by a comma and a quality flag, e.g. ".739,+"; only the
// substring before the comma is numeric. Empty cells and cells with a
// non-numeric prefix decode to 0 so malformed input never poisons sums.
func ParseCellValue(cell string) float64 {
	if cell == "" {
		return 0
	}
	num, _, _ := strings.Cut(cell, ",")
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	return v
}

// ReformatDate turns DD-MM-YYYY into YYYY-MM-DD by plain field reorder.
// No calendar validation: a literal that does not split into three fields
// passes through unchanged.
func ReformatDate(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 3 {
		return raw
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}

type lineClass int

const (
	lineIrrelevant lineClass = iota
	lineDateHeader
	lineCoopHeader
	lineDataRow
)

// classifyLine inspects one semicolon-split line. Anything that is not a
// date header, a cooperative-identifier header or a data row for a known
// channel tag is irrelevant.
func classifyLine(fields []string) lineClass {
	if len(fields) == 0 {
		return lineIrrelevant
	}
	first := strings.TrimSpace(fields[0])
	switch first {
	case sentinelDate:
		if len(fields) > 1 {
			return lineDateHeader
		}
		return lineIrrelevant
	case sentinelCoop:
		return lineCoopHeader
	}
	if first == "" || len(fields) < 2 {
		return lineIrrelevant
	}
	if _, reserved := reservedTokens[first]; reserved {
		return lineIrrelevant
	}
	switch strings.TrimSpace(fields[1]) {
	case TagConsumption, TagProduction, TagBalance:
		return lineDataRow
	}
	return lineIrrelevant
}
