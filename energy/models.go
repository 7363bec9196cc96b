package energy

import "time"

// EnergyRecord is one meter, one calendar day, one hour. The three
// channels are set independently so a file may supply only one of them;
// a later observation for the same (meter, date, hour) overwrites just
// the channel its row carries.
type EnergyRecord struct {
	MeterID       string  `json:"meterId"`
	Date          string  `json:"date"` // YYYY-MM-DD
	Hour          int     `json:"hour"` // 1..24
	ConsumptionIn float64 `json:"consumptionIn"`
	ProductionOut float64 `json:"productionOut"`
	Balance       float64 `json:"balance"`
}

// recordKey is the identity key of an EnergyRecord.
type recordKey struct {
	Meter string
	Date  string
	Hour  int
}

// Summary carries the ingestion-time totals over the whole batch.
type Summary struct {
	TotalConsumption float64 `json:"totalConsumption"`
	TotalProduction  float64 `json:"totalProduction"`
	DaysCount        int     `json:"daysCount"`
	CoopID           string  `json:"coopId,omitempty"`
}

// BatchResult is the outcome of ingesting one ordered collection of
// export files.
type BatchResult struct {
	Records        []EnergyRecord `json:"records"`
	Meters         []string       `json:"meters"`
	Summary        Summary        `json:"summary"`
	Errors         []string       `json:"errors"`
	FilesProcessed int            `json:"filesProcessed"`
	FilesNoDate    int            `json:"filesNoDate"`
}

// ManifestEntry is one stored upload. The content digest is the primary
// key: it is computed once at Put time and never recomputed or mutated,
// and each digest maps to exactly one stored path.
type ManifestEntry struct {
	Digest       string `gorm:"primaryKey;size:64"`
	OriginalName string `gorm:"size:512"`
	StoredName   string `gorm:"size:512"`
	MeterID      string `gorm:"index;size:64"`
	RelativePath string `gorm:"size:1024"`
	UploadedAt   time.Time
}

// StoredFile is a manifest entry joined with its backing file content.
type StoredFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	MeterID string `json:"meterId"`
	Digest  string `json:"digest"`
}
