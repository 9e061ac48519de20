// Package domain contains entity without logic, just meta-data
package domain

// MaxNameLen caps display names before they enter a room.
const MaxNameLen = 36

// ConnID identifies one signaling connection. It doubles as the
// participant identifier inside a room, like a socket id.
type ConnID string

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

type Participant struct {
	ID         ConnID `json:"id"`
	Name       string `json:"name"`
	IsMuted    bool   `json:"isMuted"`
	HandRaised bool   `json:"handRaised"`
	IsSharing  bool   `json:"isSharing"`
	Role       Role   `json:"role"`
}

// WaitingEntry is a connection queued in the lobby pending host approval.
type WaitingEntry struct {
	ID   ConnID `json:"id"`
	Name string `json:"name"`
}
