package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

// Host commands carry no acknowledgment. A non-host caller gets nothing
// back, not even an error, so room and host existence stay unconfirmed.

func (ctl *SignalWSController) handleSettings(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type settingsPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		domain.SettingsPatch
	}
	var p settingsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad settings payload")
		return
	}
	ctl.Coord.SetSettings(id, domain.RoomID(p.Room), p.SettingsPatch)
}

func (ctl *SignalWSController) handleMuteAll(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseRoomOnly(data)
	if !ok {
		return
	}
	ctl.Coord.MuteAll(id, domain.RoomID(p.Room))
}

func (ctl *SignalWSController) handleMuteOne(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseTarget(data)
	if !ok {
		return
	}
	ctl.Coord.MuteOne(id, domain.RoomID(p.Room), domain.ConnID(p.User))
}

func (ctl *SignalWSController) handleGrantShare(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type grantPayload struct {
		Type    string `json:"type"`
		Room    string `json:"room"`
		User    string `json:"user"`
		Allowed bool   `json:"allowed"`
	}
	var p grantPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad grant payload")
		return
	}
	ctl.Coord.GrantShare(id, domain.RoomID(p.Room), domain.ConnID(p.User), p.Allowed)
}

func (ctl *SignalWSController) handleRemove(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseTarget(data)
	if !ok {
		return
	}
	ctl.Coord.Remove(id, domain.RoomID(p.Room), domain.ConnID(p.User))
}

func (ctl *SignalWSController) handleEndMeeting(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	p, ok := parseRoomOnly(data)
	if !ok {
		return
	}
	ctl.Coord.End(id, domain.RoomID(p.Room))
}

func (ctl *SignalWSController) handleChat(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type chatPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Text string `json:"text"`
		Name string `json:"name"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	ctl.Coord.Chat(domain.RoomID(p.Room), p.Name, p.Text)
}

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
