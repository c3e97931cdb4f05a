package wizard

import (
	"errors"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("wizard: session not found")

// Sessions is a bounded set of live sessions. The least recently used
// session is evicted when the bound is reached.
type Sessions struct {
	cache *lru.Cache[string, *Session]
}

// NewSessions holds at most size sessions.
func NewSessions(size int) (*Sessions, error) {
	cache, err := lru.NewWithEvict(size, func(id string, _ *Session) {
		zap.L().Debug("wizard: session evicted", zap.String("session_id", id))
	})
	if err != nil {
		return nil, eris.Wrap(err, "wizard: create session cache")
	}
	return &Sessions{cache: cache}, nil
}

// Create starts and stores a new session.
func (s *Sessions) Create() *Session {
	sess := NewSession(uuid.New().String())
	s.cache.Add(sess.ID, sess)
	return sess
}

// Get returns the session with id.
func (s *Sessions) Get(id string) (*Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, eris.Wrapf(ErrSessionNotFound, "id %s", id)
	}
	return sess, nil
}

// Remove drops a session, e.g. once its download has been served.
func (s *Sessions) Remove(id string) {
	s.cache.Remove(id)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.cache.Len()
}
