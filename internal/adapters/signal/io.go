package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
	"github.com/vidmesh/vidmesh/internal/proto"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, ep domain.EndpointID, userID domain.UserID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("ep", string(ep)).Msg("readPump closing")
		cancel()
		ctl.Gateway.Disconnect(ep)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	readWait := ctl.Cfg.PingPeriod + writeWait
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("ep", string(ep)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(ep, userID, c, data)
		}
	}
}

func (ctl *Controller) handleMessage(ep domain.EndpointID, userID domain.UserID, c *wsConn, data []byte) {
	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendErrorMessage(c, "bad payload")
		return
	}

	switch env.Type {
	case proto.TypeJoinRoom:
		ctl.handleJoin(ep, userID, c, data)
	case proto.TypeLeaveRoom:
		ctl.handleLeave(ep, c, data)
	case proto.TypeOffer, proto.TypeAnswer, proto.TypeICECandidate:
		ctl.handleRelay(ep, c, proto.RelayKind(env.Type), data)
	case proto.TypeTrackState:
		ctl.handleTrackState(ep, c, data)
	case proto.TypePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unknown signal")
	}
}

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, proto.Envelope{Type: proto.TypePong})
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(core.Frame(b))
}

func (ctl *Controller) sendError(c *wsConn, err error) {
	ctl.sendErrorMessage(c, err.Error())
}

func (ctl *Controller) sendErrorMessage(c *wsConn, msg string) {
	ctl.sendJSON(c, proto.ErrorEvent{Type: proto.TypeError, Message: msg})
}
