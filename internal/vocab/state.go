package vocab

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultBatchSize = 10
	DefaultHour      = 9
	DefaultMinute    = 0
	MaxBatchSize     = 100
)

// State is the delivery cursor and schedule, persisted as readable JSON.
type State struct {
	Index     int  `json:"index"`
	BatchSize int  `json:"batch_size"`
	Paused    bool `json:"paused"`
	Hour      int  `json:"hour"`
	Minute    int  `json:"minute"`
}

func DefaultState() State {
	return State{BatchSize: DefaultBatchSize, Hour: DefaultHour, Minute: DefaultMinute}
}

// StateFile reads and writes State at a fixed path.
type StateFile struct {
	path string
}

func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

func (s *StateFile) Path() string { return s.path }

func (s *StateFile) backupPath() string {
	return strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".json.bak"
}

// Load returns the saved state with missing keys defaulted. A missing file
// yields defaults. An unreadable file is copied to the .json.bak path and
// defaults are returned together with the parse error.
func (s *StateFile) Load() (State, error) {
	st := DefaultState()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("reading state file: %w", err)
	}

	if err := json.Unmarshal(data, &st); err != nil {
		if berr := s.backup(); berr != nil {
			return DefaultState(), fmt.Errorf("parsing state file: %w (backup failed: %v)", err, berr)
		}
		return DefaultState(), fmt.Errorf("parsing state file: %w", err)
	}
	if st.BatchSize < 1 || st.BatchSize > MaxBatchSize {
		st.BatchSize = DefaultBatchSize
	}
	if st.Index < 0 {
		st.Index = 0
	}

	return st, nil
}

func (s *StateFile) backup() error {
	src, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(s.backupPath())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Save writes st atomically (tmp + rename).
func (s *StateFile) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp := strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".json.tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp state file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming state file: %w", err)
	}

	return nil
}
