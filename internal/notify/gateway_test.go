// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/internal/command"
	"github.com/voidops/voidops/internal/notify"
)

type echoCommands struct{}

func (echoCommands) Handle(_ context.Context, owner ulid.ULID, raw []byte) command.Reply {
	req, err := command.Decode(raw)
	if err != nil {
		return command.Reply{Type: command.ReplyError, ID: req.ID, Data: command.ErrorData{Message: command.PlayerMessage(err)}}
	}
	return command.Reply{Type: string(req.Args.Kind()), ID: req.ID, Data: owner.String()}
}

type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	EventID string          `json:"event_id"`
	Data    json.RawMessage `json:"data"`
}

func startGateway(t *testing.T) (*notify.Hub, string) {
	t.Helper()
	hub := notify.NewHub(8, nil)
	gw := notify.NewGateway(notify.GatewayConfig{Hub: hub, Commands: echoCommands{}})
	srv := httptest.NewServer(notify.NewMux(gw, time.Now()))
	t.Cleanup(srv.Close)
	return hub, srv.URL
}

func dial(t *testing.T, base string, owner ulid.ULID) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set(notify.OwnerHeader, owner.String())
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/ws", header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestGateway_CommandRoundTrip(t *testing.T) {
	_, base := startGateway(t)
	owner := ulid.Make()
	conn := dial(t, base, owner)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"fleet:list","id":"q1"}`)))
	f := readFrame(t, conn)
	assert.Equal(t, "fleet:list", f.Type)
	assert.Equal(t, "q1", f.ID)
	assert.JSONEq(t, `"`+owner.String()+`"`, string(f.Data))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"cmd:warp"}`)))
	assert.Equal(t, command.ReplyError, readFrame(t, conn).Type)
}

func TestGateway_PushesOwnerEvents(t *testing.T) {
	hub, base := startGateway(t)
	owner := ulid.Make()
	conn := dial(t, base, owner)

	// a round trip guarantees the subscription exists
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"fleet:list"}`)))
	readFrame(t, conn)

	e := entryFor(t, owner)
	hub.Publish(e)

	f := readFrame(t, conn)
	assert.Equal(t, "drone:offline", f.Type)
	assert.Equal(t, e.ID.String(), f.EventID)
	assert.JSONEq(t, string(e.Payload), string(f.Data))
}

func TestGateway_DisconnectUnsubscribes(t *testing.T) {
	hub, base := startGateway(t)
	owner := ulid.Make()
	conn := dial(t, base, owner)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"fleet:list"}`)))
	readFrame(t, conn)
	require.Equal(t, 1, hub.Subscribers(owner))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers(owner) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_RejectsMissingOwner(t *testing.T) {
	_, base := startGateway(t)

	tests := []struct {
		name  string
		value string
	}{
		{"missing", ""},
		{"malformed", "not-a-ulid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.value != "" {
				header.Set(notify.OwnerHeader, tt.value)
			}
			_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/ws", header)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	_, base := startGateway(t)
	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime_sec")
}
