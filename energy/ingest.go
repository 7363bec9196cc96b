package energy

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
)

// SourceFile is one ingestible export file. Open is called exactly once,
// when the batch reaches the file.
type SourceFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// PathSource wraps a filesystem path.
func PathSource(path string) SourceFile {
	return SourceFile{
		Name: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesSource wraps in-memory content, e.g. files re-hydrated from the
// store.
func BytesSource(name string, content []byte) SourceFile {
	return SourceFile{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

// ProgressFunc receives the count of files fully processed so far. It is
// invoked once per file, after that file has been normalized or
// discarded, so an external observer stays live while the loop keeps its
// strict one-file-at-a-time ordering. Results are identical with or
// without a callback installed.
type ProgressFunc func(processed int)

// IngestBatch drives the normalizer across files in order, one file fully
// processed before the next begins. A file that cannot be read
// contributes no records and one diagnostic; the rest of the batch still
// runs. After the last file the accumulated state is reconciled: if a
// cooperative identifier was discovered anywhere in the batch, it leaves
// the meter set and every record attributed to it is dropped, no matter
// how early those records were ingested.
func IngestBatch(files []SourceFile, progress ProgressFunc) BatchResult {
	st := newBatchState()
	errs := []string{}
	processed := 0
	noDate := 0

	for _, f := range files {
		text, err := readSource(f)
		if err != nil {
			errs = append(errs, fmt.Sprintf("read %s: %v", f.Name, err))
		} else if normalizeFile(text, st) == fileNoDateHeader {
			noDate++
		}
		processed++
		if progress != nil {
			progress(processed)
		}
	}

	reconcile(st)
	return buildResult(st, errs, processed, noDate)
}

func readSource(f SourceFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return decodeLegacyText(raw), nil
}

// reconcile enforces the post-condition that the cooperative identifier
// is neither a meter nor a record owner. Files earlier in the batch may
// have ingested it as an ordinary meter before any file named it.
func reconcile(st *batchState) {
	if st.coopID == "" {
		return
	}
	delete(st.meters, st.coopID)
	for key := range st.records {
		if key.Meter == st.coopID {
			delete(st.records, key)
		}
	}
}

func buildResult(st *batchState, errs []string, processed, noDate int) BatchResult {
	records := make([]EnergyRecord, 0, len(st.records))
	for _, rec := range st.records {
		records = append(records, *rec)
	}
	sortRecords(records)

	meters := make([]string, 0, len(st.meters))
	for m := range st.meters {
		meters = append(meters, m)
	}
	sort.Strings(meters)

	days := make(map[string]struct{})
	sum := Summary{CoopID: st.coopID}
	for _, rec := range records {
		sum.TotalConsumption += rec.ConsumptionIn
		sum.TotalProduction += rec.ProductionOut
		days[rec.Date] = struct{}{}
	}
	sum.DaysCount = len(days)

	return BatchResult{
		Records:        records,
		Meters:         meters,
		Summary:        sum,
		Errors:         errs,
		FilesProcessed: processed,
		FilesNoDate:    noDate,
	}
}

func sortRecords(records []EnergyRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		if records[i].Hour != records[j].Hour {
			return records[i].Hour < records[j].Hour
		}
		return records[i].MeterID < records[j].MeterID
	})
}
