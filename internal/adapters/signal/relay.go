package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/domain"
	"github.com/vidmesh/vidmesh/internal/proto"
)

// handleRelay serves all three relay kinds through one validated path.
// Failures go back to the sender as an error event and never further.
func (ctl *Controller) handleRelay(ep domain.EndpointID, c *wsConn, kind proto.RelayKind, data []byte) {
	var p proto.RelayRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad relay payload")
		ctl.sendErrorMessage(c, "bad payload")
		return
	}
	payload := p.Payload()
	if p.TargetPeerID == "" || len(payload) == 0 {
		ctl.sendErrorMessage(c, "invalid "+string(kind)+" payload")
		return
	}
	if err := ctl.Gateway.Relay(kind, ep, p.RoomID, p.TargetPeerID, payload); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("ep", string(ep)).Str("target", string(p.TargetPeerID)).Msg("relay rejected")
		ctl.sendError(c, err)
	}
}

func (ctl *Controller) handleTrackState(ep domain.EndpointID, c *wsConn, data []byte) {
	var p proto.TrackState
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad track-state payload")
		ctl.sendErrorMessage(c, "bad payload")
		return
	}
	if p.Kind != "audio" && p.Kind != "video" {
		ctl.sendErrorMessage(c, "invalid track kind")
		return
	}
	if err := ctl.Gateway.TrackState(ep, p.RoomID, p.Kind, p.Enabled); err != nil {
		ctl.sendError(c, err)
	}
}
