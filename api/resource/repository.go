package resource

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Repository looks up resource descriptors
type Repository interface {
	// Get returns the descriptor named name or an ErrResourceNotFound error
	Get(ctx context.Context, name string) (*Descriptor, error)

	// List returns all descriptors sorted by name
	List(ctx context.Context) ([]*Descriptor, error)
}

// MapRepository is an in-memory Repository
type MapRepository struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

var _ Repository = (*MapRepository)(nil)

// NewMapRepository creates a repository holding descriptors
func NewMapRepository(descriptors ...*Descriptor) *MapRepository {
	r := &MapRepository{descriptors: make(map[string]*Descriptor)}
	r.Put(descriptors...)
	return r
}

// Put adds or replaces descriptors
func (r *MapRepository) Put(descriptors ...*Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descriptors {
		r.descriptors[d.Name] = d
	}
}

// Get implements Repository
func (r *MapRepository) Get(ctx context.Context, name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	if !ok {
		return nil, failure.New(ErrResourceNotFound,
			failure.Message("Unable to locate data provider for "+name),
			failure.Context{"resource": name},
		)
	}
	return d, nil
}

// List implements Repository
func (r *MapRepository) List(ctx context.Context) ([]*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := lo.Values(r.descriptors)
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// LoadDir reads every *.yml and *.yaml file in dir as a descriptor. A
// descriptor without a name is named after its file.
func LoadDir(dir string) (*MapRepository, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, failure.Wrap(err, failure.Context{"dir": dir})
	}

	r := NewMapRepository()
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		d, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if d.Name == "" {
			d.Name = strings.TrimSuffix(entry.Name(), ext)
		}
		if _, err := r.Get(context.Background(), d.Name); err == nil {
			return nil, failure.New(ErrInvalidDescriptor,
				failure.Message("Duplicate resource name"),
				failure.Context{"resource": d.Name, "path": path},
			)
		}
		r.Put(d)
	}
	return r, nil
}

// LoadFile reads one descriptor
func LoadFile(path string) (*Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Wrap(err, failure.Context{"path": path})
	}

	var d Descriptor
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, failure.New(ErrInvalidDescriptor,
			failure.Message("Resource file could not be parsed"),
			failure.Context{"path": path, "error": err.Error()},
		)
	}
	return &d, nil
}
