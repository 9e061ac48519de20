package app

import (
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// MeetingResolver is the external meeting-metadata collaborator. It is
// side-effect-free from the coordinator's point of view.
type MeetingResolver interface {
	Resolve(id domain.RoomID) (domain.MeetingInfo, bool)
}

// Coordinator owns the room session state machine: admission, host controls,
// presence and the signaling relay. All room mutations go through it.
type Coordinator struct {
	Rooms    *Registry
	Sessions *SessionRegistry
	Meetings MeetingResolver
	Policy   core.HostLeavePolicy
}

func NewCoordinator(rooms *Registry, sessions *SessionRegistry, meetings MeetingResolver, policy core.HostLeavePolicy) *Coordinator {
	return &Coordinator{
		Rooms:    rooms,
		Sessions: sessions,
		Meetings: meetings,
		Policy:   policy,
	}
}

type JoinRequest struct {
	MeetingID domain.RoomID
	Name      string
	HostClaim bool
	Password  string
}

func rejected(reason string) core.JoinOutcome {
	return core.JoinOutcome{Status: core.JoinRejected, Reason: reason}
}

// Join runs the admission flow for one connection. Metadata resolution and
// the password check complete before any room mutation; a join that is still
// mid-flight does not reserve a slot, and a second join for the same
// connection is rejected instead of racing the first.
func (c *Coordinator) Join(conn domain.ConnID, req JoinRequest) core.JoinOutcome {
	if req.MeetingID == "" || req.Name == "" {
		return rejected("Room ID and name are required")
	}

	if err := c.Sessions.BeginJoin(conn); err != nil {
		return rejected(err.Error())
	}
	defer c.Sessions.EndJoin(conn)

	peer, ok := c.Sessions.Peer(conn)
	if !ok {
		return rejected(domain.ErrNotParticipant.Error())
	}

	// One room per connection: joining another room leaves the current one.
	if prev, ok := c.Sessions.RoomOf(conn); ok && prev != req.MeetingID {
		c.Leave(conn)
	}

	info, found := c.Meetings.Resolve(req.MeetingID)
	live, isLive := c.Rooms.Get(req.MeetingID)
	if !found {
		if !isLive && !req.HostClaim {
			return rejected(domain.ErrMeetingNotFound.Error())
		}
		if !isLive {
			// Compatibility path: first host claimant bootstraps an ad-hoc
			// room when no metadata exists for the id.
			info = domain.MeetingInfo{
				ID:          req.MeetingID,
				Title:       req.Name + "'s Meeting",
				CreatedBy:   req.Name,
				AllowShare:  true,
				AllowUnmute: true,
			}
			log.Info().Str("module", "app.coordinator").Str("room", string(req.MeetingID)).Msg("ad-hoc room bootstrap")
		}
	}

	hash := info.PasswordHash
	if hash == "" && isLive {
		hash = live.PasswordHash()
	}
	if hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
			return rejected(domain.ErrWrongPassword.Error())
		}
	}

	var room *core.Room
	switch {
	case found:
		room = c.Rooms.ResolveOrCreate(info)
	case isLive:
		room = live
	default:
		room = c.Rooms.ResolveOrCreate(info)
	}

	outcome := room.Join(peer, req.Name, req.HostClaim)
	if outcome.Status == core.JoinAdmitted || outcome.Status == core.JoinWaiting {
		c.Sessions.SetRoom(conn, req.MeetingID)
	}
	return outcome
}

// Approve moves target out of the lobby. Only the host may call it; anyone
// else is ignored without a reply.
func (c *Coordinator) Approve(conn domain.ConnID, meetingID domain.RoomID, target domain.ConnID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.Approve(conn, target); err != nil {
		c.swallow("approve", conn, err)
	}
}

func (c *Coordinator) Deny(conn domain.ConnID, meetingID domain.RoomID, target domain.ConnID) {
	room, ok := c.Rooms.Get(meetingID)
	if !ok {
		return
	}
	if err := room.Deny(conn, target); err != nil {
		c.swallow("deny", conn, err)
		return
	}
	c.Sessions.ClearRoom(target)
}

// swallow logs privilege violations and benign no-ops without surfacing
// anything to the caller.
func (c *Coordinator) swallow(op string, conn domain.ConnID, err error) {
	switch {
	case errors.Is(err, domain.ErrNotHost):
		log.Debug().Str("module", "app.coordinator").Str("op", op).Str("conn", string(conn)).Msg("host command from non-host ignored")
	case errors.Is(err, domain.ErrTargetNotFound):
		log.Debug().Str("module", "app.coordinator").Str("op", op).Str("conn", string(conn)).Msg("target already gone")
	default:
		log.Warn().Err(err).Str("module", "app.coordinator").Str("op", op).Str("conn", string(conn)).Msg("operation aborted")
	}
}
