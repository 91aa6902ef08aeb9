package checkpoint

import (
	"context"
	"sync"

	"github.com/memohai/supportdesk/internal/conversation"
)

// MemoryStore keeps windows in process memory for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]conversation.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]conversation.Message{}}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]conversation.Message, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.sessions[sessionID]
	out := make([]conversation.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, messages []conversation.Message) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	stored := make([]conversation.Message, len(messages))
	copy(stored, messages)
	s.mu.Lock()
	s.sessions[sessionID] = stored
	s.mu.Unlock()
	return nil
}

// Sessions returns the number of sessions held.
func (s *MemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error { return nil }
