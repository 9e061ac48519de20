package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type joinResult struct {
	Type   string            `json:"type"`
	Status core.JoinStatus   `json:"status"`
	Role   domain.Role       `json:"role,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Room   *domain.RoomState `json:"room,omitempty"`
}

func (ctl *SignalWSController) handleJoin(
	id domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		Name     string `json:"name"`
		Host     bool   `json:"host"`
		Password string `json:"password"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}
	if runes := []rune(p.Name); len(runes) > domain.MaxNameLen {
		p.Name = string(runes[:domain.MaxNameLen])
	}

	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", p.Room).Bool("host", p.Host).Msg("join")
	outcome := ctl.Coord.Join(id, app.JoinRequest{
		MeetingID: domain.RoomID(p.Room),
		Name:      p.Name,
		HostClaim: p.Host,
		Password:  p.Password,
	})

	ctl.sendJSON(conn, joinResult{
		Type:   "join:result",
		Status: outcome.Status,
		Role:   outcome.Role,
		Reason: outcome.Reason,
		Room:   outcome.State,
	})
}

func (ctl *SignalWSController) handleApprove(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseTarget(data)
	if !ok {
		return
	}
	ctl.Coord.Approve(id, domain.RoomID(p.Room), domain.ConnID(p.User))
}

func (ctl *SignalWSController) handleDeny(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseTarget(data)
	if !ok {
		return
	}
	ctl.Coord.Deny(id, domain.RoomID(p.Room), domain.ConnID(p.User))
}

// handleLeave exits the current room; the connection itself stays up.
func (ctl *SignalWSController) handleLeave(
	id domain.ConnID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("leave")
	ctl.Coord.Leave(id)
	ctl.sendJSON(conn, map[string]any{
		"type": "left",
	})
}

func (ctl *SignalWSController) handleHand(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type handPayload struct {
		Type   string `json:"type"`
		Room   string `json:"room"`
		Raised bool   `json:"raised"`
	}
	var p handPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad hand payload")
		return
	}
	ctl.Coord.SetHand(id, domain.RoomID(p.Room), p.Raised)
}

func (ctl *SignalWSController) handleMic(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type micPayload struct {
		Type  string `json:"type"`
		Room  string `json:"room"`
		Muted bool   `json:"muted"`
	}
	var p micPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad mic payload")
		return
	}
	ctl.Coord.SetMuted(id, domain.RoomID(p.Room), p.Muted)
}

func (ctl *SignalWSController) handleShareStart(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseRoomOnly(data)
	if !ok {
		return
	}
	ctl.Coord.StartShare(id, domain.RoomID(p.Room))
}

func (ctl *SignalWSController) handleShareStop(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseRoomOnly(data)
	if !ok {
		return
	}
	ctl.Coord.StopShare(id, domain.RoomID(p.Room))
}

type targetPayload struct {
	Type string `json:"type"`
	Room string `json:"room"`
	User string `json:"user"`
}

func parseTarget(data []byte) (targetPayload, bool) {
	var p targetPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad target payload")
		return p, false
	}
	return p, true
}

type roomOnlyPayload struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

func parseRoomOnly(data []byte) (roomOnlyPayload, bool) {
	var p roomOnlyPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad payload")
		return p, false
	}
	return p, true
}
