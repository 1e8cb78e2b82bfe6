// Package store persists calibration data across sessions. One JSON file
// holds, per stage identifier, the last confirmed axes mapping and the last
// saved pairing set. Pairings are tagged with the chip they were recorded on
// and only restored when the same chip is loaded again.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mover-go/pkg/coordinate"
	"mover-go/pkg/errors"
	"mover-go/pkg/log"
	"mover-go/pkg/transform"
)

// DefaultFileName is the calibration file name inside the data directory.
const DefaultFileName = "mover_calibrations.json"

type pairingRecord struct {
	ChipID   string              `json:"chip_id"`
	SavedAt  time.Time           `json:"saved_at"`
	Pairings []transform.Pairing `json:"pairings"`
}

type stageRecord struct {
	AxesMapping *[3]string     `json:"axes_mapping,omitempty"`
	Pairings    *pairingRecord `json:"pairings,omitempty"`
}

type fileData struct {
	Stages map[string]*stageRecord `json:"stages"`
}

// Store is a thread-safe calibration store backed by a single JSON file.
// Every mutation is flushed to disk before it returns.
type Store struct {
	mu     sync.RWMutex
	path   string
	data   fileData
	logger *log.Logger
}

// New opens the store at path, loading existing contents if the file exists.
func New(path string) (*Store, error) {
	s := &Store{
		path:   path,
		data:   fileData{Stages: map[string]*stageRecord{}},
		logger: log.GetLogger("store"),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.PersistenceError("read calibration file", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, errors.PersistenceError("parse calibration file", err)
	}
	if s.data.Stages == nil {
		s.data.Stages = map[string]*stageRecord{}
	}
	s.logger.Info("loaded calibration data for %d stage(s) from %s", len(s.data.Stages), path)
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// SaveAxesMapping records the axes mapping for a stage and flushes.
func (s *Store) SaveAxesMapping(stageID string, m coordinate.AxesMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.stageLocked(stageID)
	var enc [3]string
	for i, sa := range m {
		enc[i] = sa.String()
	}
	rec.AxesMapping = &enc
	return s.flushLocked()
}

// LoadAxesMapping returns the stored mapping for a stage, if any.
func (s *Store) LoadAxesMapping(stageID string) (coordinate.AxesMapping, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data.Stages[stageID]
	if !ok || rec.AxesMapping == nil {
		return coordinate.AxesMapping{}, false, nil
	}
	var m coordinate.AxesMapping
	for i, enc := range rec.AxesMapping {
		sa, err := coordinate.ParseSignedAxis(enc)
		if err != nil {
			return coordinate.AxesMapping{}, false, errors.PersistenceError("decode axes mapping", err)
		}
		m[i] = sa
	}
	return m, true, nil
}

// ClearAxesMapping removes the stored mapping for a stage and flushes.
func (s *Store) ClearAxesMapping(stageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data.Stages[stageID]
	if !ok || rec.AxesMapping == nil {
		return nil
	}
	rec.AxesMapping = nil
	return s.flushLocked()
}

// SavePairings records the pairing set a stage collected on a chip,
// replacing any earlier set, and flushes.
func (s *Store) SavePairings(stageID, chipID string, pairings []transform.Pairing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.stageLocked(stageID)
	if len(pairings) == 0 {
		rec.Pairings = nil
		return s.flushLocked()
	}
	copied := make([]transform.Pairing, len(pairings))
	copy(copied, pairings)
	rec.Pairings = &pairingRecord{
		ChipID:   chipID,
		SavedAt:  time.Now().UTC(),
		Pairings: copied,
	}
	return s.flushLocked()
}

// LoadPairings returns the stored pairing set for a stage if it was recorded
// on the given chip. A set saved on a different chip is not restorable and
// reports false.
func (s *Store) LoadPairings(stageID, chipID string) ([]transform.Pairing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data.Stages[stageID]
	if !ok || rec.Pairings == nil {
		return nil, false
	}
	if rec.Pairings.ChipID != chipID {
		s.logger.Debug("pairings for stage %s belong to chip %q, not %q; skipping restore",
			stageID, rec.Pairings.ChipID, chipID)
		return nil, false
	}
	out := make([]transform.Pairing, len(rec.Pairings.Pairings))
	copy(out, rec.Pairings.Pairings)
	return out, true
}

// stageLocked returns the record for a stage, creating it if absent.
func (s *Store) stageLocked(stageID string) *stageRecord {
	rec, ok := s.data.Stages[stageID]
	if !ok {
		rec = &stageRecord{}
		s.data.Stages[stageID] = rec
	}
	return rec
}

// flushLocked writes the whole file atomically: serialize to a temp file in
// the same directory, then rename over the target.
func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return errors.PersistenceError("encode calibration file", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.PersistenceError("create data directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".mover_calibrations-*.json")
	if err != nil {
		return errors.PersistenceError("create temp calibration file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.PersistenceError("write calibration file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.PersistenceError("close calibration file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.PersistenceError("replace calibration file", err)
	}
	return nil
}
