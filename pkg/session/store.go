// Package session persists the panel login session in client-local storage
// and restores it across restarts while it is fresh.
package session

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/NicolasHaas/gopanel/pkg/crypto"
	"github.com/NicolasHaas/gopanel/pkg/datastore"
	"github.com/NicolasHaas/gopanel/pkg/model"
)

// Storage keys. The timestamp is epoch milliseconds.
const (
	KeyUser   = "panel_user"
	KeyToken  = "panel_session"
	KeyIssued = "panel_time"
)

var keys = []string{KeyUser, KeyToken, KeyIssued}

// Store mirrors the current session in memory and in a KV.
// Freshness is enforced when loading, never when saving.
type Store struct {
	kv    datastore.KV
	clock clockwork.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	current model.Session
}

// NewStore creates a Store over kv. A zero ttl means model.SessionTTL; a nil
// clock means the real clock.
func NewStore(kv datastore.KV, clock clockwork.Clock, ttl time.Duration) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = model.SessionTTL
	}
	return &Store{kv: kv, clock: clock, ttl: ttl}
}

// Save persists username and token stamped with the current time and
// updates the mirror. The mirror is updated even when persisting fails; a
// failed write removes every persisted field.
func (s *Store) Save(username, token string) error {
	now := s.clock.Now()

	s.mu.Lock()
	s.current = model.Session{Username: username, Token: token, IssuedAt: now}
	s.mu.Unlock()

	values := [][2]string{
		{KeyUser, username},
		{KeyToken, token},
		{KeyIssued, strconv.FormatInt(now.UnixMilli(), 10)},
	}
	for _, field := range values {
		if err := s.kv.Set(field[0], field[1]); err != nil {
			slog.Warn("persist session failed", "key", field[0], "err", err)
			// never leave fields from two different sessions behind
			if derr := s.kv.Delete(keys...); derr != nil {
				slog.Warn("clear partial session failed", "err", derr)
			}
			return err
		}
	}
	slog.Debug("session saved", "user", username, "token", crypto.Fingerprint(token))
	return nil
}

// Load restores the mirror from storage. It returns true only when all
// fields are present and the session is younger than the TTL. Stale or
// partial data is left in storage for the caller to clear.
func (s *Store) Load() bool {
	user, ok := s.get(KeyUser)
	if !ok {
		return false
	}
	token, ok := s.get(KeyToken)
	if !ok {
		return false
	}
	issuedRaw, ok := s.get(KeyIssued)
	if !ok {
		return false
	}
	ms, err := strconv.ParseInt(issuedRaw, 10, 64)
	if err != nil {
		slog.Debug("stored session timestamp unreadable", "value", issuedRaw, "err", err)
		return false
	}

	restored := model.Session{Username: user, Token: token, IssuedAt: time.UnixMilli(ms)}
	if restored.IsExpired(s.clock.Now(), s.ttl) {
		slog.Debug("stored session expired", "user", user, "issued", restored.IssuedAt)
		return false
	}

	s.mu.Lock()
	s.current = restored
	s.mu.Unlock()
	return true
}

func (s *Store) get(key string) (string, bool) {
	v, ok, err := s.kv.Get(key)
	if err != nil {
		slog.Warn("read session field failed", "key", key, "err", err)
		return "", false
	}
	return v, ok && v != ""
}

// Clear removes the persisted fields and empties the mirror. Safe to call
// repeatedly.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = model.Session{}
	s.mu.Unlock()

	if err := s.kv.Delete(keys...); err != nil {
		slog.Warn("clear session failed", "err", err)
	}
}

// Current returns the mirrored session and whether one is held.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, !s.current.IsZero()
}

// Token returns the held bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Username returns the held username, or "".
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Username
}
