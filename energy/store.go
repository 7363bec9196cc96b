package energy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// unknownMeterID is the fallback identity when no meter id can be read
// out of an upload.
const unknownMeterID = "UNKNOWN_PPE"

// headerScanLines caps how deep Put looks for a meter identity.
const headerScanLines = 20

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// DuplicateError reports that uploaded bytes already live in the store.
// Duplicates are an expected outcome, not an I/O failure; callers match
// it with errors.As and surface the existing path.
type DuplicateError struct {
	Digest       string
	ExistingPath string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate content %s already stored at %s", e.Digest, e.ExistingPath)
}

// Store is the content-addressed file store. Files land under one
// directory per meter identity; the manifest table keyed by content
// digest is the single source of truth for duplicate detection and
// listing.
type Store struct {
	root string
	db   *gorm.DB
	log  *zap.Logger

	// Serializes Put: the digest check and the manifest insert must not
	// interleave between writers sharing the instance.
	mu sync.Mutex
}

// OpenStore opens (or creates) the storage root and its manifest
// database.
func OpenStore(root string, dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ManifestEntry{}); err != nil {
		return nil, err
	}
	return &Store{root: root, db: db, log: logger}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PutResult describes where an upload ended up.
type PutResult struct {
	Digest       string
	MeterID      string
	StoredName   string
	RelativePath string
}

// Put persists one uploaded file. Identical bytes are rejected with a
// DuplicateError on any later call; a name collision between different
// contents is disambiguated with a timestamp suffix.
func (s *Store) Put(content []byte, originalName string) (*PutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])

	var existing ManifestEntry
	err := s.db.Where("digest = ?", digest).First(&existing).Error
	if err == nil {
		return nil, &DuplicateError{Digest: digest, ExistingPath: existing.RelativePath}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	meterID := extractMeterIdentity(content)
	safeName := unsafeNameChars.ReplaceAllString(originalName, "_")
	dir := filepath.Join(s.root, meterID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	target := filepath.Join(dir, safeName)
	if _, statErr := os.Stat(target); statErr == nil {
		ext := filepath.Ext(safeName)
		base := strings.TrimSuffix(safeName, ext)
		target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, time.Now().UnixMilli(), ext))
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(s.root, target)
	if err != nil {
		rel = target
	}
	entry := ManifestEntry{
		Digest:       digest,
		OriginalName: originalName,
		StoredName:   filepath.Base(target),
		MeterID:      meterID,
		RelativePath: rel,
		UploadedAt:   time.Now().UTC(),
	}
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entry).Error
	}); err != nil {
		// The manifest row is the commit point: without it the bytes are
		// unreachable, so undo the write.
		_ = os.Remove(target)
		return nil, err
	}

	s.log.Info("stored upload",
		zap.String("meter", meterID),
		zap.String("path", rel),
		zap.String("digest", digest))
	return &PutResult{Digest: digest, MeterID: meterID, StoredName: entry.StoredName, RelativePath: rel}, nil
}

// List returns every manifest entry with its backing file content.
// Entries whose file went missing are skipped with a warning.
func (s *Store) List() ([]StoredFile, error) {
	var entries []ManifestEntry
	if err := s.db.Order("uploaded_at asc, digest asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	out := make([]StoredFile, 0, len(entries))
	for _, entry := range entries {
		raw, err := os.ReadFile(filepath.Join(s.root, entry.RelativePath))
		if err != nil {
			s.log.Warn("backing file missing for manifest entry",
				zap.String("path", entry.RelativePath),
				zap.Error(err))
			continue
		}
		out = append(out, StoredFile{
			Name:    entry.OriginalName,
			Content: decodeLegacyText(raw),
			MeterID: entry.MeterID,
			Digest:  entry.Digest,
		})
	}
	return out, nil
}

// extractMeterIdentity scans the first lines of an upload for a meter
// identity. Within each line a cooperative-identifier header wins,
// otherwise the first identifier-shaped field longer than 5 characters
// outside the reserved tokens is taken.
func extractMeterIdentity(content []byte) string {
	lines := strings.Split(decodeLegacyText(content), "\n")
	if len(lines) > headerScanLines {
		lines = lines[:headerScanLines]
	}
	for _, line := range lines {
		fields := strings.Split(line, ";")
		first := strings.TrimSpace(fields[0])
		if first == sentinelCoop && len(fields) > 1 {
			if id := strings.TrimSpace(fields[1]); id != "" {
				return id
			}
		}
		if len(first) > 5 {
			if _, reserved := reservedTokens[first]; !reserved {
				return first
			}
		}
	}
	return unknownMeterID
}
