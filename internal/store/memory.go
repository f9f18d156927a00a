package store

import (
	"context"
	"sync"
	"time"

	"hashpaste/internal/model"
)

// Memory keeps pastes in a map and evicts expired ones from a janitor goroutine.
type Memory struct {
	mu     sync.RWMutex
	items  map[string]*model.Paste
	quitCh chan struct{}
	once   sync.Once
	now    func() time.Time
}

func NewMemory(janitorInterval time.Duration) *Memory {
	s := &Memory{
		items:  make(map[string]*model.Paste),
		quitCh: make(chan struct{}),
		now:    time.Now,
	}
	if janitorInterval > 0 {
		go s.janitor(janitorInterval)
	}
	return s
}

func (s *Memory) Close() error {
	s.once.Do(func() { close(s.quitCh) })
	return nil
}

func (s *Memory) Create(_ context.Context, p model.Paste) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[p.ID]; ok && !cur.Expired(s.now()) {
		return false, nil
	}
	s.items[p.ID] = &p
	return true, nil
}

func (s *Memory) Get(_ context.Context, id string) (model.Paste, error) {
	s.mu.RLock()
	ptr, ok := s.items[id]
	s.mu.RUnlock()
	if !ok || ptr.Expired(s.now()) {
		return model.Paste{}, ErrNotFound
	}
	return *ptr, nil
}

func (s *Memory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, p := range s.items {
		if !p.Expired(now) {
			n++
		}
	}
	return n, nil
}

func (s *Memory) sweep() {
	now := s.now()
	s.mu.Lock()
	for id, p := range s.items {
		if p.Expired(now) {
			delete(s.items, id)
		}
	}
	s.mu.Unlock()
}

func (s *Memory) janitor(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.sweep()
		case <-s.quitCh:
			return
		}
	}
}
