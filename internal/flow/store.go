package flow

import (
	"sort"
	"sync"
	"time"
)

type sessionKey struct {
	userID int64
	kind   Kind
}

// sessionStore holds at most one session per (user, kind). Sessions live only
// in memory: a restart discards them, and the only other exits are flow
// completion and explicit cancellation.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[sessionKey]*Session)}
}

// begin creates a fresh session, unconditionally discarding any prior session
// of the same kind for the user.
func (st *sessionStore) begin(userID int64, kind Kind) *Session {
	s := &Session{UserID: userID, Kind: kind, StartedAt: time.Now()}
	st.mu.Lock()
	st.sessions[sessionKey{userID, kind}] = s
	st.mu.Unlock()
	return s
}

func (st *sessionStore) get(userID int64, kind Kind) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[sessionKey{userID, kind}]
}

// active returns the user's sessions, most recently started first.
func (st *sessionStore) active(userID int64) []*Session {
	st.mu.Lock()
	var out []*Session
	for k, s := range st.sessions {
		if k.userID == userID {
			out = append(out, s)
		}
	}
	st.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// remove deletes the session only if it is still the stored one; a session
// replaced by begin() must not be able to delete its successor.
func (st *sessionStore) remove(s *Session) {
	st.mu.Lock()
	k := sessionKey{s.UserID, s.Kind}
	if st.sessions[k] == s {
		delete(st.sessions, k)
	}
	st.mu.Unlock()
}
