package netclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nightswarm/internal/protocol"
	"nightswarm/internal/relay"
	"nightswarm/internal/telemetry"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func startRelay(t *testing.T) *httptest.Server {
	t.Helper()
	hub := relay.NewHub(relay.Config{}, nil, nil)
	srv := httptest.NewServer(hub.Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestDialResolvesRole(t *testing.T) {
	srv := startRelay(t)

	host, err := Dial(context.Background(), wsURL(srv), Config{}, nil)
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}
	t.Cleanup(host.Close)
	if host.Role() != protocol.RoleHost || host.Slot() != 0 {
		t.Fatalf("host got role=%s slot=%d", host.Role(), host.Slot())
	}

	guest, err := Dial(context.Background(), wsURL(srv), Config{}, nil)
	if err != nil {
		t.Fatalf("guest dial: %v", err)
	}
	t.Cleanup(guest.Close)
	if guest.Role() != protocol.RoleGuest || guest.Slot() != 1 {
		t.Fatalf("guest got role=%s slot=%d", guest.Role(), guest.Slot())
	}
}

func TestDialTimesOutWithoutRoleFrame(t *testing.T) {
	// A server that upgrades but never sends anything.
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.ReadMessage() // hold the connection open until the client gives up
	}))
	t.Cleanup(srv.Close)

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"),
		Config{RoleWait: 200 * time.Millisecond}, nil)
	if !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("expected ErrConnectTimeout, got %v", err)
	}
}

func TestDialSurfacesRosterFull(t *testing.T) {
	srv := startRelay(t)

	clients := make([]*Client, 0, 5)
	for i := 0; i < 5; i++ {
		c, err := Dial(context.Background(), wsURL(srv), Config{}, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		t.Cleanup(c.Close)
		clients = append(clients, c)
	}

	_, err := Dial(context.Background(), wsURL(srv), Config{}, nil)
	if !errors.Is(err, ErrRosterFull) {
		t.Fatalf("expected ErrRosterFull, got %v", err)
	}
	if clients[0].Role() != protocol.RoleHost {
		t.Fatalf("existing connections disturbed by rejected dial")
	}
}

func TestHandlersRunInRegistrationOrder(t *testing.T) {
	srv := startRelay(t)

	host, err := Dial(context.Background(), wsURL(srv), Config{}, nil)
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}
	t.Cleanup(host.Close)

	guest, err := Dial(context.Background(), wsURL(srv), Config{}, telemetry.NopLogger())
	if err != nil {
		t.Fatalf("guest dial: %v", err)
	}
	t.Cleanup(guest.Close)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})
	guest.OnMessage(func(msg protocol.Message) {
		if _, ok := msg.(protocol.BossWaveMessage); !ok {
			return
		}
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	guest.OnMessage(func(msg protocol.Message) {
		if _, ok := msg.(protocol.BossWaveMessage); !ok {
			return
		}
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		close(done)
	})

	host.Send(protocol.BossWaveMessage{Wave: 10})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("boss_wave never reached the guest handlers")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("handlers ran out of order: %v", order)
	}
}

func TestSendAfterCloseIsSilentlyDropped(t *testing.T) {
	srv := startRelay(t)

	host, err := Dial(context.Background(), wsURL(srv), Config{}, nil)
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}
	host.Close()

	select {
	case <-host.Closed():
	case <-time.After(time.Second):
		t.Fatalf("Closed channel never fired")
	}
	// Must not panic or block.
	host.Send(protocol.GameOverMessage{})
}
