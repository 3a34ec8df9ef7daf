package kv

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

// MemoryStore is the in-process fallback used when no redis address is
// configured, and in tests. Entries survive tracker restarts within the
// process but not process restarts.
type MemoryStore struct {
	mu  sync.Mutex
	raw []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (map[string]domain.PipelineProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return map[string]domain.PipelineProgress{}, nil
	}
	var entries map[string]domain.PipelineProgress
	if err := json.Unmarshal(s.raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *MemoryStore) Save(ctx context.Context, entries map[string]domain.PipelineProgress) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context) error {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	return nil
}
