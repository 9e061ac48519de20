package domain

type RoomID string

// Settings are the host-tunable room switches.
type Settings struct {
	Locked      bool `json:"locked"`
	AllowShare  bool `json:"allowShare"`
	AllowUnmute bool `json:"allowUnmute"`
}

// SettingsPatch merges only the fields the host actually sent.
type SettingsPatch struct {
	Locked      *bool `json:"locked,omitempty"`
	AllowShare  *bool `json:"allowShare,omitempty"`
	AllowUnmute *bool `json:"allowUnmute,omitempty"`
}

// RoomState is the serialized snapshot broadcast to room members.
// Participants keep join order for deterministic listing.
type RoomState struct {
	ID               RoomID         `json:"id"`
	Title            string         `json:"title"`
	CreatedBy        string         `json:"createdBy"`
	HostID           ConnID         `json:"hostId"`
	Locked           bool           `json:"locked"`
	RequiresApproval bool           `json:"requiresApproval"`
	HasPassword      bool           `json:"hasPassword"`
	AllowShare       bool           `json:"allowShare"`
	AllowUnmute      bool           `json:"allowUnmute"`
	Participants     []Participant  `json:"participants"`
	Waiting          []WaitingEntry `json:"waiting"`
	ScreenShare      []ConnID       `json:"screenShare"`
}

type ChatMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Text string `json:"text"`
	At   string `json:"at"`
}
