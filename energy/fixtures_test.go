package energy

import (
	"fmt"
	"strings"
)

func splitSemis(line string) []string {
	return strings.Split(line, ";")
}

// dataRow builds one export data row: identifier, channel tag, a filler
// column, then 24 hourly cells. Missing cells stay empty.
func dataRow(meter, tag string, cells map[int]string) string {
	fields := []string{meter, tag, ""}
	for hour := 1; hour <= 24; hour++ {
		fields = append(fields, cells[hour])
	}
	return strings.Join(fields, ";")
}

// exportFile joins lines with the operator's CRLF line endings.
func exportFile(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

// uniformCells fills all 24 hours with the same cell text.
func uniformCells(cell string) map[int]string {
	out := make(map[int]string, 24)
	for hour := 1; hour <= 24; hour++ {
		out[hour] = cell
	}
	return out
}

func dateHeader(ddmmyyyy string) string {
	return fmt.Sprintf("DD;%s", ddmmyyyy)
}

func coopHeader(id string) string {
	return fmt.Sprintf("kSE;%s;;", id)
}
