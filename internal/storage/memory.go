package storage

import (
	"sort"
	"sync"

	"chorddht/internal/domain"
	"chorddht/internal/logger"
)

// Memory is an in-memory, concurrency-safe implementation of Storage.
type Memory struct {
	lgr  logger.Logger
	mu   sync.RWMutex
	data map[string]domain.Resource // key = hexadecimal identifier
}

// NewMemory creates an empty in-memory store.
func NewMemory(lgr logger.Logger) *Memory {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	s := &Memory{
		lgr:  lgr.Named("storage"),
		data: make(map[string]domain.Resource),
	}
	return s
}

func (s *Memory) Put(resource domain.Resource) {
	key := resource.Key.String()
	s.mu.Lock()
	_, existed := s.data[key]
	s.data[key] = resource
	s.mu.Unlock()
	if existed {
		s.lgr.Debug("resource updated", logger.FResource("resource", resource))
	} else {
		s.lgr.Debug("resource inserted", logger.FResource("resource", resource))
	}
}

func (s *Memory) Get(id domain.ID) (domain.Resource, error) {
	key := id.String()
	s.mu.RLock()
	res, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		s.lgr.Debug("get: not found", logger.F("key", key))
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return res, nil
}

func (s *Memory) Delete(id domain.ID) error {
	key := id.String()
	s.mu.Lock()
	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	s.mu.Unlock()
	if !ok {
		s.lgr.Debug("delete: not found", logger.F("key", key))
		return domain.ErrResourceNotFound
	}
	s.lgr.Debug("resource deleted", logger.F("key", key))
	return nil
}

func (s *Memory) Between(from, to domain.ID) []domain.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Resource
	for _, res := range s.data {
		if res.Key.Between(from, to) {
			result = append(result, res)
		}
	}
	return result
}

func (s *Memory) All() []domain.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Resource, 0, len(s.data))
	for _, res := range s.data {
		result = append(result, res)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key.String() < result[j].Key.String()
	})
	return result
}
