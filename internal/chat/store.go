package chat

import (
	"sync"

	"github.com/collabry/collabry-go/internal/models"
)

// MessageStore is the in-memory ordered message list for the active room.
// Ordering is append-only: the server is trusted to deliver in causal order
// and nothing is re-sorted client-side. The id guard on Append is the sole
// mechanism protecting against double-inserting a message that arrives both
// as an optimistic local echo and as a server broadcast.
type MessageStore struct {
	mu   sync.RWMutex
	msgs []models.Message
	seen map[string]struct{}
}

func NewMessageStore() *MessageStore {
	return &MessageStore{seen: make(map[string]struct{})}
}

// Append inserts m unless its id is already present. It reports whether the
// message was actually added.
func (s *MessageStore) Append(m models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[m.ID]; dup {
		return false
	}
	s.seen[m.ID] = struct{}{}
	s.msgs = append(s.msgs, m)
	return true
}

// ReplaceAll swaps in a freshly fetched history, dropping whatever was held
// before. Duplicate ids within the batch keep their first occurrence.
func (s *MessageStore) ReplaceAll(msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = s.msgs[:0]
	s.seen = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := s.seen[m.ID]; dup {
			continue
		}
		s.seen[m.ID] = struct{}{}
		s.msgs = append(s.msgs, m)
	}
}

// Messages returns a snapshot copy safe to render from.
func (s *MessageStore) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// ByID returns the message with the given id, if present.
func (s *MessageStore) ByID(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.msgs {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// IndexOf returns the position of id in the list, or -1. Reply-jump resolves
// the original message's transcript position through it.
func (s *MessageStore) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, m := range s.msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}
