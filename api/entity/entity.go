// Package entity models the domain entities a resource's cache tags refer
// to, and the references between them.
package entity

import (
	"context"
	"os"
	"strconv"
	"sync"

	"github.com/morikuni/failure/v2"
	"gopkg.in/yaml.v3"
)

// ErrorCode defines error types for entity operations
type ErrorCode string

const (
	// ErrEntityNotFound is returned when an entity does not exist
	ErrEntityNotFound ErrorCode = "EntityNotFound"

	// ErrInvalidEntities is returned for malformed entity files
	ErrInvalidEntities ErrorCode = "InvalidEntities"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Ref identifies an entity
type Ref struct {
	Kind string `yaml:"kind" json:"kind"`
	ID   string `yaml:"id" json:"id"`
}

// String returns "<kind>:<id>"
func (r Ref) String() string {
	return r.Kind + ":" + r.ID
}

// Entity is a node of the entity graph
type Entity struct {
	Kind string `yaml:"kind"`
	ID   string `yaml:"id"`

	// Tags are extra cache tags of the entity besides "<kind>:<id>"
	Tags []string `yaml:"tags,omitempty"`

	// References are the entities this entity refers to
	References []Ref `yaml:"references,omitempty"`
}

// Ref returns the reference to e
func (e *Entity) Ref() Ref {
	return Ref{Kind: e.Kind, ID: e.ID}
}

// CacheTags returns "<kind>:<id>" followed by the extra tags of e
func (e *Entity) CacheTags() []string {
	return append([]string{e.Ref().String()}, e.Tags...)
}

// Store loads entities
type Store interface {
	Load(ctx context.Context, ref Ref) (*Entity, error)
}

// MemoryStore is a Store backed by a map
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[Ref]*Entity
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding entities
func NewMemoryStore(entities ...*Entity) *MemoryStore {
	s := &MemoryStore{entities: make(map[Ref]*Entity)}
	s.Add(entities...)
	return s
}

// Add adds or replaces entities
func (s *MemoryStore) Add(entities ...*Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		s.entities[e.Ref()] = e
	}
}

// Load implements Store
func (s *MemoryStore) Load(ctx context.Context, ref Ref) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[ref]
	if !ok {
		return nil, failure.New(ErrEntityNotFound,
			failure.Message("Entity not found"),
			failure.Context{"kind": ref.Kind, "id": ref.ID},
		)
	}
	return e, nil
}

// LoadFile reads a YAML document of the form
//
//	entities:
//	  - kind: node
//	    id: "1"
//	    references:
//	      - {kind: user, id: "2"}
func LoadFile(path string) (*MemoryStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Wrap(err, failure.Context{"path": path})
	}

	var doc struct {
		Entities []*Entity `yaml:"entities"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, failure.New(ErrInvalidEntities,
			failure.Message("Entity file could not be parsed"),
			failure.Context{"path": path, "error": err.Error()},
		)
	}
	for i, e := range doc.Entities {
		if e == nil || e.Kind == "" || e.ID == "" {
			return nil, failure.New(ErrInvalidEntities,
				failure.Message("Entity needs a kind and an id"),
				failure.Context{"path": path, "index": strconv.Itoa(i)},
			)
		}
	}
	return NewMemoryStore(doc.Entities...), nil
}
