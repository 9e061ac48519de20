package core

import "github.com/dkeye/Meet/internal/domain"

// Envelopes the room emits itself, inside its critical section, so every
// receiver observes state exactly as of the mutation that produced it.

type stateEvent struct {
	Type string           `json:"type"`
	Room domain.RoomState `json:"room"`
}

type joinRequestEvent struct {
	Type string              `json:"type"`
	User domain.WaitingEntry `json:"user"`
}

type deniedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type settingsEvent struct {
	Type     string          `json:"type"`
	Settings domain.Settings `json:"settings"`
}

type screenPermissionEvent struct {
	Type    string `json:"type"`
	Allowed bool   `json:"allowed"`
}

type plainEvent struct {
	Type string `json:"type"`
}

type chatEvent struct {
	Type    string             `json:"type"`
	Message domain.ChatMessage `json:"message"`
}
