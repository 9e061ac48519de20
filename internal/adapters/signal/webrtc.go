package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

// handleRelay forwards an opaque negotiation blob to another connection.
// The payload is never inspected: offers, answers and candidates look the
// same from here, and endpoints break glare themselves (lower connection id
// originates the offer).
func (ctl *SignalWSController) handleRelay(
	id domain.ConnID,
	_ *WsSignalConn,
	data []byte,
) {
	type relayPayload struct {
		Type string          `json:"type"`
		To   string          `json:"to"`
		Data json.RawMessage `json:"data"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad relay payload")
		return
	}
	ctl.Coord.Relay(id, domain.ConnID(p.To), p.Data)
}
