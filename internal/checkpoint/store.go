package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

const storeVersion = 1

// Entry is the saved position of one file
type Entry struct {
	// Offset is the caller-owned resume offset
	Offset string `json:"offset"`

	// Inode identifies the file the offset belongs to; zero when the
	// platform has no inode numbers
	Inode uint64 `json:"inode,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// storeData is the on-disk JSON structure
type storeData struct {
	Version int              `json:"version"`
	Files   map[string]Entry `json:"files"`
}

// Store persists resume offsets so ingestion can continue after a restart
type Store struct {
	mu   sync.RWMutex
	path string
	data storeData
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: storeData{Version: storeVersion, Files: make(map[string]Entry)},
	}

	// #nosec G304 - path comes from config
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("failed to parse checkpoint %s: %w", path, err)
		}
	}
	if s.data.Files == nil {
		s.data.Files = make(map[string]Entry)
	}
	return s, nil
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Get returns the saved entry for file
func (s *Store) Get(file string) (Entry, bool) {
	key := keyFor(file)

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data.Files[key]
	return e, ok
}

// Set records offset for file along with the file's current inode
func (s *Store) Set(file, offset string) error {
	ino, err := fileID(file)
	if err != nil {
		return fmt.Errorf("failed to identify %s: %w", file, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Files[keyFor(file)] = Entry{
		Offset:    offset,
		Inode:     ino,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// Delete forgets file
func (s *Store) Delete(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.Files, keyFor(file))
}

// Files lists the tracked files in sorted order
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]string, 0, len(s.data.Files))
	for f := range s.data.Files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Resume returns the offset to continue file from. It starts over at "0"
// when nothing is saved, when the file was replaced (different inode) or
// when it shrank below the saved offset.
func (s *Store) Resume(file string) (string, error) {
	e, ok := s.Get(file)
	if !ok {
		return "0", nil
	}

	info, err := os.Stat(file)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", file, err)
	}

	ino, err := fileID(file)
	if err != nil {
		return "", fmt.Errorf("failed to identify %s: %w", file, err)
	}
	if e.Inode != 0 && ino != 0 && e.Inode != ino {
		return "0", nil
	}

	if n, err := strconv.ParseInt(e.Offset, 10, 64); err == nil && n > info.Size() {
		return "0", nil
	}
	return e.Offset, nil
}

// Save writes the store to disk atomically
func (s *Store) Save() error {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	// write to a temp file first, then rename
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// keyFor uses the absolute path so relative and absolute spellings share
// one entry
func keyFor(file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		return filepath.Clean(file)
	}
	return abs
}
