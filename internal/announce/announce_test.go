package announce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arrodes-economy/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteps(t *testing.T) {
	steps := Steps(Announcement{User: "alice", Title: "Opening Lootboxes", Items: []string{"cake", "fire"}})

	require.Len(t, steps, 3)
	assert.Equal(t, Reveal{Type: RevealItem, User: "alice", Title: "Opening Lootboxes", Item: "cake", Index: 0, Total: 2}, steps[0])
	assert.Equal(t, "fire", steps[1].Item)
	assert.Equal(t, RevealDone, steps[2].Type)
	assert.Equal(t, 2, steps[2].Index)
}

func TestPaceEmitsInOrder(t *testing.T) {
	var got []string
	err := pace(context.Background(), Announcement{Items: []string{"a", "b", "c"}}, time.Millisecond, func(r Reveal) {
		got = append(got, r.Type+":"+r.Item)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"reveal:a", "reveal:b", "reveal:c", "done:"}, got)
}

func TestPaceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	emitted := 0
	err := pace(ctx, Announcement{Items: []string{"a", "b", "c"}}, time.Hour, func(Reveal) {
		emitted++
		cancel()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, emitted)
}

func TestLogAnnouncer(t *testing.T) {
	a := NewLogAnnouncer(logging.Nop(), 0)
	require.NoError(t, a.Announce(context.Background(), Announcement{User: "alice", Items: []string{"cake"}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.Announce(ctx, Announcement{User: "alice", Items: []string{"cake"}}), context.Canceled)
}

func TestHubStreamsToConnectedUser(t *testing.T) {
	hub := NewHub(logging.Nop(), 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections("alice") == 1 }, time.Second, 5*time.Millisecond)

	// Other users' reveals are not delivered.
	require.NoError(t, hub.Announce(context.Background(), Announcement{User: "bob", Items: []string{"fire"}}))
	require.NoError(t, hub.Announce(context.Background(), Announcement{User: "alice", Title: "Harvesting", Items: []string{"apple"}}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second Reveal
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, Reveal{Type: RevealItem, User: "alice", Title: "Harvesting", Item: "apple", Index: 0, Total: 1}, first)
	assert.Equal(t, RevealDone, second.Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections("alice") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubChecksOrigin(t *testing.T) {
	dial := func(t *testing.T, hub *Hub, origin string) (*websocket.Conn, *http.Response, error) {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub.Serve(w, r, "alice")
		}))
		t.Cleanup(srv.Close)
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	}

	tests := []struct {
		name    string
		opts    []HubOption
		origin  string
		allowed bool
	}{
		{"listed origin", []HubOption{WithAllowedOrigins("https://game.example")}, "https://GAME.example", true},
		{"unlisted origin", []HubOption{WithAllowedOrigins("https://game.example")}, "https://evil.example", false},
		{"no origin header", []HubOption{WithAllowedOrigins("https://game.example")}, "", true},
		{"wildcard", []HubOption{WithAllowedOrigins("*")}, "https://evil.example", true},
		{"same host only by default", nil, "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dial(t, NewHub(logging.Nop(), 0, tt.opts...), tt.origin)
			if tt.allowed {
				require.NoError(t, err)
				_ = conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
