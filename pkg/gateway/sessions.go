package gateway

import (
	"strings"
	"sync"
	"time"

	"carebot/pkg/care"
)

// Turn is one recorded conversation turn inside a session transcript.
type Turn struct {
	Role     string        `json:"role"`
	Content  string        `json:"content"`
	Category care.Category `json:"category,omitempty"`
	At       time.Time     `json:"at"`
}

const defaultTurnLimit = 200

// sessionStore keeps per-session conversation transcripts in memory.
//
// Durable conversation persistence belongs to the channel back ends; this
// store exists for the status endpoint and local inspection.
type sessionStore struct {
	mu        sync.RWMutex
	turnLimit int
	sessions  map[string][]Turn
}

func newSessionStore(turnLimit int) *sessionStore {
	if turnLimit <= 0 {
		turnLimit = defaultTurnLimit
	}

	return &sessionStore{
		turnLimit: turnLimit,
		sessions:  make(map[string][]Turn),
	}
}

// Append records one turn, trimming the oldest turns past the limit.
func (s *sessionStore) Append(sessionKey string, turn Turn) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" || strings.TrimSpace(turn.Content) == "" {
		return
	}
	if turn.At.IsZero() {
		turn.At = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionKey], turn)
	if len(turns) > s.turnLimit {
		turns = turns[len(turns)-s.turnLimit:]
	}
	s.sessions[sessionKey] = turns
}

// Transcript returns a copy of one session's turns.
func (s *sessionStore) Transcript(sessionKey string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionKey]
	if len(turns) == 0 {
		return nil
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Summary maps each session key to its turn count.
func (s *sessionStore) Summary() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := make(map[string]int, len(s.sessions))
	for key, turns := range s.sessions {
		summary[key] = len(turns)
	}

	return summary
}
