package trigger

import (
	"sync"
	"time"
)

// MemorySessionStore keeps the "shown this session" memory in process.
// Entries expire after the TTL; a janitor goroutine sweeps them out.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	ttl      time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

type sessionEntry struct {
	shown    map[string]struct{}
	lastSeen time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemorySessionStore{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
}

// WasShown reports whether the session already saw the popup
func (s *MemorySessionStore) WasShown(sessionID, popupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	_, shown := entry.shown[popupID]
	return shown
}

// MarkShown records that the session saw the popup
func (s *MemorySessionStore) MarkShown(sessionID, popupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = sessionEntry{shown: make(map[string]struct{})}
	}
	entry.shown[popupID] = struct{}{}
	entry.lastSeen = time.Now()
	s.sessions[sessionID] = entry
}

// Start begins the expiry sweep
func (s *MemorySessionStore) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop stops the sweep goroutine
func (s *MemorySessionStore) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *MemorySessionStore) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemorySessionStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
