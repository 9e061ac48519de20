package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

// Leave reconciles room state after an explicit leave. Host departure
// follows the configured policy: promote the next-joined participant, or end
// the meeting for everyone.
func (c *Coordinator) Leave(conn domain.ConnID) {
	roomID, ok := c.Sessions.RoomOf(conn)
	if !ok {
		return
	}
	room, ok := c.Rooms.Get(roomID)
	if !ok {
		c.Sessions.ClearRoom(conn)
		return
	}

	res := room.Drop(conn, c.Policy)
	c.Sessions.ClearRoom(conn)

	if res.Ended {
		for _, p := range res.Evicted {
			c.Sessions.ClearRoom(p.ID())
		}
	}
	if res.Empty {
		c.Rooms.Remove(roomID)
	}
	log.Info().
		Str("module", "app.coordinator").
		Str("conn", string(conn)).
		Str("room", string(roomID)).
		Bool("ended", res.Ended).
		Bool("empty", res.Empty).
		Msg("presence reconciled")
}

// Disconnect is the transport-loss path: a connection lost mid-join or
// mid-approval is treated as a leave once the transport reports it.
func (c *Coordinator) Disconnect(conn domain.ConnID) {
	c.Leave(conn)
	c.Sessions.Unbind(conn)
}
