package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

type signalEnvelope struct {
	Type string          `json:"type"`
	From domain.ConnID   `json:"from"`
	Data json.RawMessage `json:"data"`
}

// Relay forwards an opaque session-description or candidate blob to another
// connection, verbatim. No membership check, no payload inspection: the
// offer/answer logic, including glare tie-breaks, lives at the endpoints.
func (c *Coordinator) Relay(from, to domain.ConnID, payload json.RawMessage) {
	if to == "" {
		return
	}
	peer, ok := c.Sessions.Peer(to)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("to", string(to)).Msg("relay target not connected")
		return
	}
	b, err := json.Marshal(signalEnvelope{Type: "webrtc:signal", From: from, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("relay marshal")
		return
	}
	if err := peer.Signal().TrySend(b); err != nil {
		log.Warn().Str("module", "app.relay").Str("to", string(to)).Msg("relay send dropped")
	}
}
