package deployments

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps records in memory. Used for fixtures on ephemeral networks.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	prepare(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	byName, ok := s.records[rec.Network]
	if !ok {
		byName = make(map[string]Record)
		s.records[rec.Network] = byName
	}
	if prev, ok := byName[rec.Name]; ok {
		rec.ID = prev.ID
	}
	byName[rec.Name] = *rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, network, name string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[network][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, name, network)
	}
	return &rec, nil
}

func (s *MemoryStore) List(_ context.Context, network string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records[network]))
	for _, rec := range s.records[network] {
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, network string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, network)
	return nil
}
