package bridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chienchuanw/gma2-mcp/internal/consoletest"
	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsole struct {
	state ma2protocol.State
}

func (f fakeConsole) ID() string               { return "session-1" }
func (f fakeConsole) State() ma2protocol.State { return f.state }

type lineRecorder struct {
	lines []string
}

func (r *lineRecorder) Exec(_ context.Context, line ma2protocol.CommandLine) (ma2protocol.Response, error) {
	r.lines = append(r.lines, line.String())
	return ma2protocol.Response{Text: "ok\r\n[Channel]>", Prompt: "[Channel]>", Complete: true}, nil
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func roundTrip(t *testing.T, ws *websocket.Conn, req any) Reply {
	t.Helper()
	require.NoError(t, ws.WriteJSON(req))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply Reply
	require.NoError(t, ws.ReadJSON(&reply))
	return reply
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		state  ma2protocol.State
		status int
	}{
		{"ready", ma2protocol.Ready, http.StatusOK},
		{"reconnecting", ma2protocol.Reconnecting, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tools.New(&lineRecorder{}, nil), fakeConsole{state: tt.state}, nil)

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var h Health
			require.NoError(t, json.NewDecoder(w.Body).Decode(&h))
			assert.Equal(t, tt.state.String(), h.State)
			assert.Equal(t, "session-1", h.SessionID)
		})
	}
}

func TestToolsListing(t *testing.T) {
	s := New(tools.New(&lineRecorder{}, nil), fakeConsole{state: ma2protocol.Ready}, nil)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var list []tools.Tool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 3)
	assert.Equal(t, tools.CreateFixtureGroup, list[0].Name)
}

func TestWebSocketCall(t *testing.T) {
	rec := &lineRecorder{}
	s := New(tools.New(rec, nil), fakeConsole{state: ma2protocol.Ready}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	ws := dial(t, srv)

	reply := roundTrip(t, ws, map[string]any{
		"id":   "7",
		"tool": tools.ExecuteSequence,
		"args": map[string]any{"sequence_id": 3, "action": "goto", "cue_id": 12},
	})

	assert.True(t, reply.OK, reply.Error)
	assert.Equal(t, "7", reply.ID)
	require.NotNil(t, reply.Result)
	assert.Equal(t, "Jumped to Cue 12 of Sequence 3", reply.Result.Message)
	assert.Equal(t, []string{"Goto Cue 12 Sequence 3"}, rec.lines)
}

func TestWebSocketErrors(t *testing.T) {
	s := New(tools.New(&lineRecorder{}, nil), fakeConsole{state: ma2protocol.Ready}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	ws := dial(t, srv)

	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"not json", "not json", "invalid request"},
		{"missing tool", `{"id":"a"}`, "tool is required"},
		{"unknown tool", `{"id":"b","tool":"blackout"}`, "unknown tool"},
		{"bad argument", `{"id":"c","tool":"execute_sequence","args":{"sequence_id":1.5,"action":"go"}}`, "sequence_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
			require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
			var reply Reply
			require.NoError(t, ws.ReadJSON(&reply))

			assert.False(t, reply.OK)
			assert.NotEmpty(t, reply.ID)
			assert.Contains(t, reply.Error, tt.message)
			assert.False(t, reply.Retryable)
		})
	}
}

func TestGeneratedRequestID(t *testing.T) {
	s := New(tools.New(&lineRecorder{}, nil), fakeConsole{state: ma2protocol.Ready}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	ws := dial(t, srv)

	reply := roundTrip(t, ws, map[string]any{"tool": tools.SendRawCommand, "args": map[string]any{"command": "Clear"}})
	assert.True(t, reply.OK, reply.Error)
	assert.Len(t, reply.ID, 36)
}

func TestRepliesKeepRequestOrder(t *testing.T) {
	rec := &lineRecorder{}
	s := New(tools.New(rec, nil), fakeConsole{state: ma2protocol.Ready}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	ws := dial(t, srv)

	ids := []string{"1", "2", "3", "4"}
	for _, id := range ids {
		require.NoError(t, ws.WriteJSON(Request{ID: id, Tool: tools.SendRawCommand, Args: map[string]any{"command": "Go Executor " + id}}))
	}
	var got []string
	for range ids {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		var reply Reply
		require.NoError(t, ws.ReadJSON(&reply))
		got = append(got, reply.ID)
	}
	assert.Equal(t, ids, got)
}

func TestNotifyState(t *testing.T) {
	s := New(tools.New(&lineRecorder{}, nil), fakeConsole{state: ma2protocol.Ready}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	ws := dial(t, srv)

	// A round trip guarantees the client is registered.
	roundTrip(t, ws, Request{ID: "x", Tool: tools.SendRawCommand, Args: map[string]any{"command": "Clear"}})

	s.NotifyState(ma2protocol.Ready, ma2protocol.Reconnecting)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, Event{Event: "state", From: "Ready", To: "Reconnecting"}, ev)
}

// TestBridgeOverSession runs a request end to end: websocket, dispatcher,
// session, fake console.
func TestBridgeOverSession(t *testing.T) {
	c := consoletest.Start(t, consoletest.Options{})

	cfg := ma2protocol.DefaultConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	sess := ma2protocol.NewSession(cfg)
	t.Cleanup(sess.Shutdown)
	require.NoError(t, sess.Connect(context.Background(), ma2protocol.Endpoint{Host: c.Host, Port: c.Port}, ma2protocol.DefaultCredentials()))

	s := New(tools.New(sess, nil), sess, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	reply := roundTrip(t, ws, Request{ID: "g", Tool: tools.CreateFixtureGroup, Args: map[string]any{
		"start_fixture": 1, "end_fixture": 6, "group_id": 4,
	}})
	assert.True(t, reply.OK, reply.Error)
	assert.Equal(t, []string{"SelFix Fixture 1 Thru 6", "Store Group 4"}, c.Commands())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
