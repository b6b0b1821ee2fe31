// Package client is the call-side library: it consumes the signaling
// channel and maintains one peer connection per remote endpoint in a
// full mesh, plus the local media sources feeding them.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/domain"
	"github.com/vidmesh/vidmesh/internal/proto"
)

// Transport is the signaling channel as seen by the session manager.
// Events() closes when the connection dies.
type Transport interface {
	Events() <-chan *proto.ServerEvent
	SendJoin(roomID domain.RoomID) error
	SendLeave(roomID domain.RoomID) error
	SendRelay(kind proto.RelayKind, roomID domain.RoomID, target domain.EndpointID, payload json.RawMessage) error
	SendTrackState(roomID domain.RoomID, kind string, enabled bool) error
	Close() error
}

type wsTransport struct {
	conn   *websocket.Conn
	events chan *proto.ServerEvent

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the gateway's signal endpoint with a bearer token
// and starts the read loop.
func Dial(ctx context.Context, url, token string) (Transport, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	t := &wsTransport{
		conn:   conn,
		events: make(chan *proto.ServerEvent, 32),
	}
	go t.readLoop()
	return t, nil
}

func (t *wsTransport) readLoop() {
	defer close(t.events)
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "client.transport").Msg("read loop done")
			return
		}
		ev, err := proto.DecodeServerEvent(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "client.transport").Msg("undecodable server event")
			continue
		}
		t.events <- ev
	}
}

func (t *wsTransport) Events() <-chan *proto.ServerEvent { return t.events }

func (t *wsTransport) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, b)
}

func (t *wsTransport) SendJoin(roomID domain.RoomID) error {
	return t.send(proto.JoinRoom{Type: proto.TypeJoinRoom, RoomID: roomID})
}

func (t *wsTransport) SendLeave(roomID domain.RoomID) error {
	return t.send(proto.LeaveRoom{Type: proto.TypeLeaveRoom, RoomID: roomID})
}

func (t *wsTransport) SendRelay(kind proto.RelayKind, roomID domain.RoomID, target domain.EndpointID, payload json.RawMessage) error {
	req, err := proto.NewRelayRequest(kind, roomID, target, payload)
	if err != nil {
		return err
	}
	return t.send(req)
}

func (t *wsTransport) SendTrackState(roomID domain.RoomID, kind string, enabled bool) error {
	return t.send(proto.TrackState{Type: proto.TypeTrackState, RoomID: roomID, Kind: kind, Enabled: enabled})
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
	})
	return err
}
