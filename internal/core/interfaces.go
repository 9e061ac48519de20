package core

import "github.com/dkeye/Meet/internal/domain"

// Frame is a raw wire payload.
type Frame []byte

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Peer binds a connection identifier to its transport endpoint.
// This is what a room stores and fans out to.
type Peer interface {
	ID() domain.ConnID
	Signal() SignalConnection
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID           domain.RoomID `json:"id"`
	Title        string        `json:"title"`
	MemberCount  int           `json:"member_count"`
	WaitingCount int           `json:"waiting_count"`
}
