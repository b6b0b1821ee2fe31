// Package signal is the WebSocket transport for the signaling gateway.
package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vidmesh/vidmesh/internal/app"
	"github.com/vidmesh/vidmesh/internal/config"
	"github.com/vidmesh/vidmesh/internal/core"
	"github.com/vidmesh/vidmesh/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Gateway  *app.Gateway
	Verifier core.TokenVerifier
	Limiter  *JoinRateLimiter
	Cfg      *config.Config
}

func NewController(gw *app.Gateway, verifier core.TokenVerifier, limiter *JoinRateLimiter, cfg *config.Config) *Controller {
	return &Controller{Gateway: gw, Verifier: verifier, Limiter: limiter, Cfg: cfg}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// HandleSignal authenticates the request, upgrades it and starts the
// connection pumps. Identity failures reject the upgrade; everything
// after that is delivered as error events on the socket.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	userID, err := ctl.Verifier.Verify(bearerToken(c.Request))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejecting unauthenticated signal connection")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	ep := domain.NewEndpointID()
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	log.Info().Str("module", "signal").Str("ep", string(ep)).Str("user", string(userID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Gateway.Connect(ep, userID, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, ep, userID, conn)
}
