package app

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkeye/Meet/internal/domain"
)

// Participant-initiated actions. Each one re-checks membership inside the
// room lock: a participant can race with being removed by the host.

func (c *Coordinator) SetHand(conn domain.ConnID, meetingID domain.RoomID, raised bool) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.SetHand(conn, raised); err != nil {
		c.swallow("hand", conn, err)
	}
}

func (c *Coordinator) SetMuted(conn domain.ConnID, meetingID domain.RoomID, muted bool) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.SetMuted(conn, muted); err != nil {
		c.swallow("mic", conn, err)
	}
}

func (c *Coordinator) StartShare(conn domain.ConnID, meetingID domain.RoomID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if _, err := room.StartShare(conn); err != nil {
		c.swallow("share-start", conn, err)
	}
}

func (c *Coordinator) StopShare(conn domain.ConnID, meetingID domain.RoomID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.StopShare(conn); err != nil {
		c.swallow("share-stop", conn, err)
	}
}

// Chat stamps the message server-side and fans it out to the room.
func (c *Coordinator) Chat(meetingID domain.RoomID, name, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if name == "" {
		name = "User"
	}
	room.Chat(domain.ChatMessage{
		ID:   uuid.NewString(),
		From: name,
		Text: text,
		At:   time.Now().UTC().Format(time.RFC3339),
	})
}
