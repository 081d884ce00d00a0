// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/command"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/pkg/errutil"
)

// OwnerHeader carries the authenticated owner id set by the auth proxy.
const OwnerHeader = "X-Owner-ID"

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 16 * 1024
	replyBuffer    = 16
)

// OwnerResolver identifies the player behind a request.
type OwnerResolver func(r *http.Request) (ulid.ULID, error)

// HeaderOwner reads the owner id from the named header.
func HeaderOwner(header string) OwnerResolver {
	return func(r *http.Request) (ulid.ULID, error) {
		raw := strings.TrimSpace(r.Header.Get(header))
		if raw == "" {
			return ulid.ULID{}, oops.With("header", header).Errorf("missing owner header")
		}
		return fleet.ParseULID(raw)
	}
}

// CommandHandler answers one inbound frame. command.Dispatcher implements it.
type CommandHandler interface {
	Handle(ctx context.Context, owner ulid.ULID, raw []byte) command.Reply
}

// GatewayConfig holds dependencies for Gateway.
type GatewayConfig struct {
	Hub      *Hub
	Commands CommandHandler
	// Owner defaults to HeaderOwner(OwnerHeader).
	Owner  OwnerResolver
	Logger *slog.Logger
	// CheckOrigin defaults to accepting every origin.
	CheckOrigin func(r *http.Request) bool
}

// Gateway is the websocket endpoint. It pushes the owner's events and
// answers their command frames on the same connection.
type Gateway struct {
	hub      *Hub
	commands CommandHandler
	owner    OwnerResolver
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates a websocket gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	owner := cfg.Owner
	if owner == nil {
		owner = HeaderOwner(OwnerHeader)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Gateway{
		hub:      cfg.Hub,
		commands: cfg.Commands,
		owner:    owner,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// eventFrame is the wire shape of a pushed event.
type eventFrame struct {
	Type      string          `json:"type"`
	EventID   string          `json:"event_id"`
	DroneID   string          `json:"drone_id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// ServeHTTP upgrades the connection and serves it until either side closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, err := g.owner(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.logger.Debug("websocket upgrade failed", "owner_id", owner.String(), "error", err)
		return
	}
	defer conn.Close()

	logger := g.logger.With("owner_id", owner.String(), "remote_addr", r.RemoteAddr)
	logger.Info("client connected")
	defer logger.Info("client disconnected")

	sub := g.hub.Subscribe(owner)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	replies := make(chan command.Reply, replyBuffer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// unblocks readLoop when the writer gives up first
		defer conn.Close()
		defer cancel()
		g.writeLoop(ctx, conn, sub, replies, logger)
	}()

	g.readLoop(ctx, conn, owner, replies)
	cancel()
	wg.Wait()
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, owner ulid.ULID, replies chan<- command.Reply) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply := g.commands.Handle(ctx, owner, msg)
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) writeLoop(ctx context.Context, conn *websocket.Conn, sub *Subscription, replies <-chan command.Reply, logger *slog.Logger) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var frame any
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		case reply := <-replies:
			frame = reply
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			frame = eventFrame{
				Type:      string(e.Kind),
				EventID:   e.ID.String(),
				DroneID:   e.DroneID.String(),
				Data:      e.Payload,
				CreatedAt: e.CreatedAt,
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			errutil.LogError(logger, "websocket write failed", oops.With("operation", "write frame").Wrap(err))
			return
		}
	}
}
