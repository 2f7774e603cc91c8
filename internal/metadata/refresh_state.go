package metadata

import (
	"errors"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const saveLockTimeout = 5 * time.Second

// RefreshRecord describes the last successful listing refresh of one source.
type RefreshRecord struct {
	RefreshID string    `json:"refresh_id"`
	FetchedAt time.Time `json:"fetched_at"`
	Entries   int       `json:"entries"`
	Pages     int       `json:"pages"`
}

// RefreshState tracks listing refreshes per remote source.
type RefreshState struct {
	mu      sync.RWMutex
	Sources map[string]RefreshRecord
}

// refreshStateFileModel is a YAML-friendly representation of RefreshState.
type refreshStateFileModel struct {
	Sources map[string]refreshRecordFileModel `yaml:"sources"`
}

type refreshRecordFileModel struct {
	RefreshID string `yaml:"refresh_id"`
	FetchedAt string `yaml:"fetched_at"`
	Entries   int    `yaml:"entries"`
	Pages     int    `yaml:"pages"`
}

// NewRefreshState returns an empty state.
func NewRefreshState() *RefreshState {
	return &RefreshState{Sources: make(map[string]RefreshRecord)}
}

// LoadRefreshState loads the refresh state from the given YAML file. If the file
// does not exist it returns an empty state without error.
func LoadRefreshState(path string) (*RefreshState, error) {
	rs := NewRefreshState()

	if path == "" {
		return rs, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rs, nil
	}
	if err != nil {
		return nil, err
	}

	var fileModel refreshStateFileModel
	if err := yaml.Unmarshal(data, &fileModel); err != nil {
		return nil, err
	}

	for source, rec := range fileModel.Sources {
		ts, err := time.Parse(time.RFC3339, rec.FetchedAt)
		if err != nil {
			continue
		}
		rs.Sources[source] = RefreshRecord{
			RefreshID: rec.RefreshID,
			FetchedAt: ts,
			Entries:   rec.Entries,
			Pages:     rec.Pages,
		}
	}

	return rs, nil
}

// Save writes the refresh state to the provided path in YAML format.
func (rs *RefreshState) Save(path string) error {
	if path == "" {
		return errors.New("state path is empty")
	}

	rs.mu.RLock()
	fileModel := refreshStateFileModel{
		Sources: make(map[string]refreshRecordFileModel, len(rs.Sources)),
	}
	for source, rec := range rs.Sources {
		fileModel.Sources[source] = refreshRecordFileModel{
			RefreshID: rec.RefreshID,
			FetchedAt: rec.FetchedAt.UTC().Format(time.RFC3339),
			Entries:   rec.Entries,
			Pages:     rec.Pages,
		}
	}
	rs.mu.RUnlock()

	data, err := yaml.Marshal(&fileModel)
	if err != nil {
		return err
	}

	return WithLock(path, "save-refresh-state", saveLockTimeout, func() error {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return err
		}
		return os.Rename(tmp, path)
	})
}

// LastRefresh returns the last refresh record of source. The boolean indicates
// whether a refresh was recorded.
func (rs *RefreshState) LastRefresh(source string) (RefreshRecord, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rec, ok := rs.Sources[source]
	return rec, ok
}

// Update records a refresh for source.
func (rs *RefreshState) Update(source string, rec RefreshRecord) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Sources == nil {
		rs.Sources = make(map[string]RefreshRecord)
	}
	rec.FetchedAt = rec.FetchedAt.UTC()
	rs.Sources[source] = rec
}

// Snapshot returns a copy of the refresh state for safe iteration.
func (rs *RefreshState) Snapshot() map[string]RefreshRecord {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	snapshot := make(map[string]RefreshRecord, len(rs.Sources))
	for source, rec := range rs.Sources {
		snapshot[source] = rec
	}
	return snapshot
}
