package replay

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/fileutil"
)

// Store is the persistence seam for completed replays. Saves run on a
// background worker per game and must tolerate being retried.
type Store interface {
	Save(ctx context.Context, rep *Replay) error
}

// MemoryStore keeps completed replays in a map. The default store.
type MemoryStore struct {
	mu      sync.RWMutex
	replays map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{replays: make(map[string][]byte)}
}

// Save marshals and retains the replay.
func (s *MemoryStore) Save(_ context.Context, rep *Replay) error {
	data, err := Encode(rep)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.replays[rep.GameID] = data
	s.mu.Unlock()
	return nil
}

// Get returns the stored JSON for a game id.
func (s *MemoryStore) Get(gameID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.replays[gameID]
	return data, ok
}

// Len returns the number of stored replays.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.replays)
}

// FileStore writes one compressed replay file per game into a
// directory. Writes are atomic so a crashed save never leaves a
// truncated file.
type FileStore struct {
	dir string
}

// NewFileStore creates a store writing into dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes <gameID>.json.gz atomically.
func (s *FileStore) Save(_ context.Context, rep *Replay) error {
	data, err := EncodeCompressed(rep)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, rep.GameID+".json.gz")
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write replay %s: %w", path, err)
	}
	return nil
}

// Path returns the file a game's replay is saved to.
func (s *FileStore) Path(gameID string) string {
	return filepath.Join(s.dir, gameID+".json.gz")
}
