package energy

// View kinds. ViewMeter filters to one physical meter; ViewMembers sums
// the member meters per (date, hour) with the cooperative feed excluded;
// ViewTotal is the legacy whole-aggregate that still folds in a directly
// uploaded cooperative feed.
const (
	ViewMeter   = "meter"
	ViewMembers = "members"
	ViewTotal   = "total"
)

// totalLabel marks synthetic rows of the legacy whole-aggregate view.
const totalLabel = "TOTAL"

// ViewSelector picks one display view over a normalized record set.
type ViewSelector struct {
	Kind  string // ViewMeter, ViewMembers or ViewTotal
	Meter string // meter id when Kind == ViewMeter
	Date  string // optional YYYY-MM-DD filter, "" = all days
}

// memberLabel is the sentinel meter id of synthetic members-aggregate
// rows.
func memberLabel(coopID string) string {
	if coopID != "" {
		return coopID + " (SUM)"
	}
	return "MEMBERS (SUM)"
}

// ApplyView produces the display sequence for one view selection.
// Output is always ordered by (date, hour) ascending.
func ApplyView(records []EnergyRecord, coopID string, sel ViewSelector) []EnergyRecord {
	var out []EnergyRecord
	switch sel.Kind {
	case ViewMembers:
		out = aggregate(records, coopID, memberLabel(coopID), true)
	case ViewTotal:
		out = aggregate(records, coopID, totalLabel, false)
	default:
		out = make([]EnergyRecord, 0, len(records))
		for _, rec := range records {
			if rec.MeterID == sel.Meter {
				out = append(out, rec)
			}
		}
	}
	if sel.Date != "" {
		kept := make([]EnergyRecord, 0, len(out))
		for _, rec := range out {
			if rec.Date == sel.Date {
				kept = append(kept, rec)
			}
		}
		out = kept
	}
	sortRecords(out)
	return out
}

// aggregate groups records by (date, hour), summing each channel into one
// zero-initialized synthetic record per key.
func aggregate(records []EnergyRecord, coopID, label string, skipCoop bool) []EnergyRecord {
	agg := make(map[recordKey]*EnergyRecord)
	for _, rec := range records {
		if skipCoop && coopID != "" && rec.MeterID == coopID {
			continue
		}
		key := recordKey{Meter: label, Date: rec.Date, Hour: rec.Hour}
		row := agg[key]
		if row == nil {
			row = &EnergyRecord{MeterID: label, Date: rec.Date, Hour: rec.Hour}
			agg[key] = row
		}
		row.ConsumptionIn += rec.ConsumptionIn
		row.ProductionOut += rec.ProductionOut
		row.Balance += rec.Balance
	}
	out := make([]EnergyRecord, 0, len(agg))
	for _, row := range agg {
		out = append(out, *row)
	}
	return out
}

// ViewTotals recomputes summary statistics from a view's output. Totals
// are never carried over from ingestion time.
func ViewTotals(records []EnergyRecord) (consumption, production float64) {
	for _, rec := range records {
		consumption += rec.ConsumptionIn
		production += rec.ProductionOut
	}
	return consumption, production
}
