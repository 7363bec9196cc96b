package energy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmp := t.TempDir()
	store, err := OpenStore(filepath.Join(tmp, "storage"), filepath.Join(tmp, "manifest.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func meterUpload(meter, date string) []byte {
	return []byte(exportFile(
		dateHeader(date),
		dataRow(meter, TagConsumption, map[int]string{1: "1,+"}),
	))
}

func TestStorePutAndDuplicate(t *testing.T) {
	store := newTestStore(t)
	content := meterUpload("PL00000001", "01-10-2025")

	res, err := store.Put(content, "export.csv")
	if err != nil {
		t.Fatal(err)
	}
	if res.MeterID != "PL00000001" {
		t.Fatalf("unexpected meter id: %q", res.MeterID)
	}
	if res.StoredName != "export.csv" {
		t.Fatalf("unexpected stored name: %q", res.StoredName)
	}

	_, err = store.Put(content, "export-copy.csv")
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if dup.ExistingPath != res.RelativePath {
		t.Fatalf("duplicate must report the existing path: %q != %q", dup.ExistingPath, res.RelativePath)
	}

	// The manifest gained exactly one entry.
	files, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 manifest entry, got %d", len(files))
	}
	if files[0].Digest != res.Digest {
		t.Fatalf("digest mismatch: %q != %q", files[0].Digest, res.Digest)
	}
}

func TestStoreNameCollisionGetsDistinctPath(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Put(meterUpload("PL00000001", "01-10-2025"), "export.csv")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Put(meterUpload("PL00000001", "02-10-2025"), "export.csv")
	if err != nil {
		t.Fatal(err)
	}
	if first.RelativePath == second.RelativePath {
		t.Fatalf("colliding names must diverge: %q", first.RelativePath)
	}
	if !strings.HasPrefix(second.StoredName, "export_") || !strings.HasSuffix(second.StoredName, ".csv") {
		t.Fatalf("expected timestamp-suffixed name, got %q", second.StoredName)
	}

	files, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("both files must persist, got %d", len(files))
	}
}

func TestStoreSanitizesFilenames(t *testing.T) {
	store := newTestStore(t)
	res, err := store.Put(meterUpload("PL00000001", "01-10-2025"), "raport dzienny (1).csv")
	if err != nil {
		t.Fatal(err)
	}
	if res.StoredName != "raport_dzienny__1_.csv" {
		t.Fatalf("unexpected sanitized name: %q", res.StoredName)
	}
}

func TestStoreListSkipsMissingBackingFile(t *testing.T) {
	store := newTestStore(t)
	res, err := store.Put(meterUpload("PL00000001", "01-10-2025"), "export.csv")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(store.root, res.RelativePath)); err != nil {
		t.Fatal(err)
	}

	files, err := store.List()
	if err != nil {
		t.Fatalf("a missing backing file must not fail the listing: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected the orphaned entry skipped, got %d", len(files))
	}
}

func TestExtractMeterIdentity(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "coop header wins",
			content: exportFile(coopHeader("SEPN01"), dataRow("PL00000001", TagConsumption, nil)),
			want:    "SEPN01",
		},
		{
			name:    "first long candidate",
			content: exportFile("kOSD;OSD123;;", dataRow("PL00000001", TagConsumption, nil)),
			want:    "PL00000001",
		},
		{
			name:    "short fields skipped",
			content: exportFile("AB;CP;;", "VV;1;;"),
			want:    unknownMeterID,
		},
		{
			name:    "reserved tokens never match",
			content: exportFile("Kod_PPE;Typ;;"),
			want:    unknownMeterID,
		},
		{
			name:    "nothing usable",
			content: "",
			want:    unknownMeterID,
		},
	}
	for _, tc := range cases {
		if got := extractMeterIdentity([]byte(tc.content)); got != tc.want {
			t.Fatalf("%s: extractMeterIdentity = %q, want %q", tc.name, got, tc.want)
		}
	}
}
