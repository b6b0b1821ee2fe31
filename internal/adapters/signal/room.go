package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/domain"
	"github.com/vidmesh/vidmesh/internal/proto"
)

func (ctl *Controller) handleJoin(ep domain.EndpointID, userID domain.UserID, c *wsConn, data []byte) {
	var p proto.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendErrorMessage(c, "bad payload")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(userID) {
		log.Warn().Str("module", "signal").Str("ep", string(ep)).Msg("join rate limited")
		ctl.sendErrorMessage(c, "too many join attempts")
		return
	}

	log.Info().Str("module", "signal").Str("ep", string(ep)).Str("room", string(p.RoomID)).Msg("join")
	if err := ctl.Gateway.Join(ep, p.RoomID); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *Controller) handleLeave(ep domain.EndpointID, c *wsConn, data []byte) {
	var p proto.LeaveRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendErrorMessage(c, "bad payload")
		return
	}
	log.Info().Str("module", "signal").Str("ep", string(ep)).Str("room", string(p.RoomID)).Msg("leave")
	ctl.Gateway.Leave(ep, p.RoomID)
}
