package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type sessionEntry struct {
	Peer    core.Peer
	RoomID  domain.RoomID
	Joining bool
	Cancel  context.CancelFunc
}

// SessionRegistry maps connection identifiers to their transport peer and,
// once admitted or queued, the room they belong to.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]*sessionEntry
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[domain.ConnID]*sessionEntry)}
}

func (s *SessionRegistry) Bind(id domain.ConnID, peer core.Peer, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &sessionEntry{Peer: peer, Cancel: cancel}
	log.Info().Str("module", "app.sessions").Str("conn", string(id)).Msg("bound session")
}

func (s *SessionRegistry) Unbind(id domain.ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	log.Info().Str("module", "app.sessions").Str("conn", string(id)).Msg("unbind session")
}

func (s *SessionRegistry) Peer(id domain.ConnID) (core.Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sessions[id]; ok {
		return e.Peer, true
	}
	return nil, false
}

func (s *SessionRegistry) RoomOf(id domain.ConnID) (domain.RoomID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (s *SessionRegistry) SetRoom(id domain.ConnID, room domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.RoomID = room
	}
}

func (s *SessionRegistry) ClearRoom(id domain.ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.RoomID = ""
	}
}

// BeginJoin reserves the right to run a join for this connection. A second
// join while the first is still resolving metadata is rejected instead of
// racing it.
func (s *SessionRegistry) BeginJoin(id domain.ConnID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotParticipant
	}
	if e.Joining {
		return domain.ErrJoinInProgress
	}
	e.Joining = true
	return nil
}

func (s *SessionRegistry) EndJoin(id domain.ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		e.Joining = false
	}
}

func (s *SessionRegistry) Cancel(id domain.ConnID) bool {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
