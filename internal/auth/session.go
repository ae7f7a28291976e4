// Package auth holds server-side operator sessions. Credentials are
// checked server-side only; the browser holds an opaque bearer token.
package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/support-chat-service/internal/errs"
)

type Session struct {
	Token      string    `json:"token"`
	Username   string    `json:"username"`
	SuperAdmin bool      `json:"superAdmin"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SessionStore — потокобезопасное in-memory хранилище сессий с TTL.
type SessionStore struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]Session),
	}
}

// Issue создаёт сессию и возвращает её вместе с токеном.
func (s *SessionStore) Issue(username string, super bool) Session {
	sess := Session{
		Token:      uuid.NewString(),
		Username:   username,
		SuperAdmin: super,
		ExpiresAt:  time.Now().Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Get возвращает живую сессию по токену; протухшие удаляются лениво.
func (s *SessionStore) Get(token string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, errs.ErrSessionNotFound
	}
	if time.Now().After(sess.ExpiresAt) {
		s.Revoke(token)
		return Session{}, errs.ErrSessionNotFound
	}
	return sess, nil
}

// Revoke снимает сессию (logout). Отсутствующий токен — no-op.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// RevokeUser снимает все сессии пользователя (при удалении админа).
func (s *SessionStore) RevokeUser(username string) {
	s.mu.Lock()
	for token, sess := range s.sessions {
		if sess.Username == username {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()
}
