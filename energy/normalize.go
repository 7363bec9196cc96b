package energy

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Hourly cells sit at a fixed offset from the identifier/tag columns:
// column 2+hour for hours 1..24.
const (
	hourColumnOffset = 2
	hoursPerDay      = 24
)

// fileOutcome separates the two silent non-error endings of a file parse:
// a missing date header discards the whole file, while a missing or empty
// cooperative header is simply ignored.
type fileOutcome int

const (
	fileParsed fileOutcome = iota
	fileNoDateHeader
)

// batchState is the shared accumulator one ingestion batch writes into.
type batchState struct {
	records map[recordKey]*EnergyRecord
	meters  map[string]struct{}
	coopID  string
}

func newBatchState() *batchState {
	return &batchState{
		records: make(map[recordKey]*EnergyRecord),
		meters:  make(map[string]struct{}),
	}
}

// decodeLegacyText converts raw export bytes to UTF-8 text. Grid operator
// exports come in Windows-1250; content that already validates as UTF-8
// passes through untouched.
func decodeLegacyText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1250.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// normalizeFile runs the two-pass parse of one export file into st.
//
// Pass 1 scans every line for the date header and the cooperative
// identifier — the identifier may appear anywhere, including after data
// rows, so headers are resolved before any data row is interpreted.
// Pass 2 walks data rows and writes the 24 hourly cells into the channel
// matching the row tag. Without a date header the file yields nothing.
func normalizeFile(text string, st *batchState) fileOutcome {
	lines := strings.Split(text, "\n")

	var date string
	for _, line := range lines {
		fields := strings.Split(line, ";")
		switch classifyLine(fields) {
		case lineDateHeader:
			if d := strings.TrimSpace(fields[1]); d != "" {
				date = ReformatDate(d)
			}
		case lineCoopHeader:
			// First non-empty identifier wins for the whole batch.
			if st.coopID == "" && len(fields) > 1 {
				if id := strings.TrimSpace(fields[1]); id != "" {
					st.coopID = id
				}
			}
		}
	}
	if date == "" {
		return fileNoDateHeader
	}

	for _, line := range lines {
		fields := strings.Split(line, ";")
		if classifyLine(fields) != lineDataRow {
			continue
		}
		meter := strings.TrimSpace(fields[0])
		tag := strings.TrimSpace(fields[1])

		// Identifier already known to be the cooperative feed: drop the
		// row up front. Files ingested before the identifier surfaced may
		// still have contributed phantom records; the batch reconciliation
		// pass removes those.
		if st.coopID != "" && meter == st.coopID {
			continue
		}
		st.meters[meter] = struct{}{}

		for hour := 1; hour <= hoursPerDay; hour++ {
			col := hourColumnOffset + hour
			var cell string
			if col < len(fields) {
				cell = strings.TrimSpace(fields[col])
			}
			value := ParseCellValue(cell)

			key := recordKey{Meter: meter, Date: date, Hour: hour}
			rec := st.records[key]
			if rec == nil {
				rec = &EnergyRecord{MeterID: meter, Date: date, Hour: hour}
				st.records[key] = rec
			}
			switch tag {
			case TagConsumption:
				rec.ConsumptionIn = value
			case TagProduction:
				rec.ProductionOut = value
			case TagBalance:
				rec.Balance = value
			}
		}
	}
	return fileParsed
}
