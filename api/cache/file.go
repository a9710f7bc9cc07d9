package cache

import (
	"context"
	"encoding/gob"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// DefaultDir is the default cache directory of the file store
var DefaultDir string

func init() {
	cacheHome, err := os.UserCacheDir()
	if err != nil {
		DefaultDir = filepath.Join(os.TempDir(), "dataprovider")
	} else {
		DefaultDir = filepath.Join(cacheHome, "dataprovider")
	}

	// Decoded JSON values travel through Entry.Value
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// FileStore keeps one gob file per entry below a directory
type FileStore struct {
	dir string

	// mu serializes writers; readers rely on atomic renames
	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir. An empty dir uses
// DefaultDir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, failure.New(ErrCache,
			failure.Message("Failed to create cache directory"),
			failure.Context{"dir": dir, "error": err.Error()},
		)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory of the store
func (s *FileStore) Dir() string {
	return s.dir
}

// normalizeKey converts a cache key into a filesystem-safe format
func normalizeKey(key string) string {
	// Replace any character that's not allowed with underscore
	normalized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, key)

	// Replace consecutive dots with a single dot
	for strings.Contains(normalized, "..") {
		normalized = strings.ReplaceAll(normalized, "..", ".")
	}

	return normalized
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, normalizeKey(key)+".gob")
}

// Get implements Store
func (s *FileStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	entry, err := loadEntry(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		// A corrupt entry is a miss; the next Set overwrites it
		return nil, false, nil
	}
	if entry.Key != key || entry.Expired(time.Now()) {
		return nil, false, nil
	}
	return entry, true, nil
}

// Set implements Store
func (s *FileStore) Set(ctx context.Context, key string, value any, expiresAt time.Time, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiresAt,
		Tags:      tags,
		CreatedAt: time.Now(),
	}
	if err := saveEntry(s.path(key), entry); err != nil {
		return failure.New(ErrCache,
			failure.Message("Failed to write cache entry"),
			failure.Context{"key": key, "error": err.Error()},
		)
	}
	return nil
}

// Delete implements Store
func (s *FileStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return failure.Wrap(err, failure.Context{"key": key})
		}
	}
	return nil
}

// InvalidateTags implements Store. It scans every entry of the store.
func (s *FileStore) InvalidateTags(ctx context.Context, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.gob"))
	if err != nil {
		return failure.Wrap(err)
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := loadEntry(path)
		if err != nil {
			continue
		}
		if len(lo.Intersect(entry.Tags, tags)) > 0 {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return failure.Wrap(err, failure.Context{"key": entry.Key})
			}
		}
	}
	return nil
}

// Clear implements Store
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.dir); err != nil {
		return failure.Wrap(err)
	}
	return os.MkdirAll(s.dir, 0755)
}

func loadEntry(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entry Entry
	if err := gob.NewDecoder(f).Decode(&entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func saveEntry(path string, entry *Entry) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := gob.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
