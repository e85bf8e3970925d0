package whatsapp

import (
	"sync"
	"time"
)

// seenMessages remembers recently processed message ids. Meta redelivers a
// webhook until it gets a 200, and a retried command must not be recorded twice.
type seenMessages struct {
	mu  sync.Mutex
	ttl time.Duration
	ids map[string]time.Time
	now func() time.Time
}

func newSeenMessages(ttl time.Duration) *seenMessages {
	return &seenMessages{ttl: ttl, ids: make(map[string]time.Time), now: time.Now}
}

// firstTime records id and reports whether it was unseen within the ttl.
// Empty ids are never remembered.
func (s *seenMessages) firstTime(id string) bool {
	if id == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, at := range s.ids {
		if now.Sub(at) > s.ttl {
			delete(s.ids, k)
		}
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = now
	return true
}
