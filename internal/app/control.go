package app

import (
	"github.com/dkeye/Meet/internal/domain"
)

// Host-only controls. Every operation is gated on the caller holding the
// host role inside the room's critical section; violations are silently
// ignored so unauthorized callers learn nothing about the room.

func (c *Coordinator) SetSettings(conn domain.ConnID, meetingID domain.RoomID, patch domain.SettingsPatch) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.SetSettings(conn, patch); err != nil {
		c.swallow("settings", conn, err)
	}
}

func (c *Coordinator) MuteAll(conn domain.ConnID, meetingID domain.RoomID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.MuteAll(conn); err != nil {
		c.swallow("mute-all", conn, err)
	}
}

func (c *Coordinator) MuteOne(conn domain.ConnID, meetingID domain.RoomID, target domain.ConnID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.MuteOne(conn, target); err != nil {
		c.swallow("mute-one", conn, err)
	}
}

func (c *Coordinator) GrantShare(conn domain.ConnID, meetingID domain.RoomID, target domain.ConnID, allowed bool) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.GrantShare(conn, target, allowed); err != nil {
		c.swallow("grant-share", conn, err)
	}
}

func (c *Coordinator) Remove(conn domain.ConnID, meetingID domain.RoomID, target domain.ConnID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	peer, err := room.Remove(conn, target)
	if err != nil {
		c.swallow("remove", conn, err)
		return
	}
	c.Sessions.ClearRoom(peer.ID())
}

// End terminates the meeting: a hard stop, nothing is valid for the room id
// afterwards until a new room is created for it.
func (c *Coordinator) End(conn domain.ConnID, meetingID domain.RoomID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	evicted, err := room.End(conn)
	if err != nil {
		c.swallow("end-meeting", conn, err)
		return
	}
	for _, p := range evicted {
		c.Sessions.ClearRoom(p.ID())
	}
	c.Rooms.Remove(meetingID)
}
