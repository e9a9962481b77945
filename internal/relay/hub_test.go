package relay

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nightswarm/internal/protocol"
)

func startRelay(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	hub := NewHub(cfg, nil, nil)
	srv := httptest.NewServer(hub.Router())
	t.Cleanup(srv.Close)
	return srv
}

func dialRelay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial relay: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		t.Fatalf("failed to decode frame %s: %v", payload, err)
	}
	return msg
}

// readUntil skips frames (like player_list churn) until one matches.
func readUntil[T protocol.Message](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if typed, ok := msg.(T); ok {
			return typed
		}
	}
	var zero T
	t.Fatalf("no %T frame arrived in time", zero)
	return zero
}

func sendMessage(t *testing.T, conn *websocket.Conn, msg protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFirstConnectionBecomesHost(t *testing.T) {
	srv := startRelay(t, Config{})

	hostConn := dialRelay(t, srv)
	role := readUntil[protocol.RoleMessage](t, hostConn)
	if role.Role != protocol.RoleHost || role.PlayerIndex != 0 {
		t.Fatalf("first connection got %+v, want host slot 0", role)
	}

	guestConn := dialRelay(t, srv)
	guestRole := readUntil[protocol.RoleMessage](t, guestConn)
	if guestRole.Role != protocol.RoleGuest || guestRole.PlayerIndex != 1 {
		t.Fatalf("second connection got %+v, want guest slot 1", guestRole)
	}
}

func TestRosterBroadcastOnJoin(t *testing.T) {
	srv := startRelay(t, Config{})

	hostConn := dialRelay(t, srv)
	readUntil[protocol.RoleMessage](t, hostConn)
	dialRelay(t, srv)

	// The host sees a roster update that includes the new guest.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		list := readUntil[protocol.PlayerListMessage](t, hostConn)
		if len(list.Players) == 2 && list.Players[0] == 0 && list.Players[1] == 1 {
			return
		}
	}
	t.Fatalf("host never saw a two-entry sorted roster")
}

func TestCapacityRejectsSixthConnection(t *testing.T) {
	srv := startRelay(t, Config{Capacity: 5})

	conns := make([]*websocket.Conn, 0, 5)
	for i := 0; i < 5; i++ {
		conn := dialRelay(t, srv)
		role := readUntil[protocol.RoleMessage](t, conn)
		if role.PlayerIndex != i {
			t.Fatalf("connection %d got slot %d", i, role.PlayerIndex)
		}
		conns = append(conns, conn)
	}

	sixth := dialRelay(t, srv)
	errMsg := readUntil[protocol.ErrorMessage](t, sixth)
	if errMsg.Reason != protocol.ErrorRoomFull {
		t.Fatalf("sixth connection got reason %q, want %q", errMsg.Reason, protocol.ErrorRoomFull)
	}
	sixth.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := sixth.ReadMessage(); err != nil {
			break // closed, as required
		}
	}

	// The first five keep working: host traffic still reaches guests.
	sendMessage(t, conns[0], protocol.BossWaveMessage{Wave: 5})
	for _, guest := range conns[1:] {
		wave := readUntil[protocol.BossWaveMessage](t, guest)
		if wave.Wave != 5 {
			t.Fatalf("guest got wave %d, want 5", wave.Wave)
		}
	}
}

func TestGuestFramesReachHostOnly(t *testing.T) {
	srv := startRelay(t, Config{})

	hostConn := dialRelay(t, srv)
	readUntil[protocol.RoleMessage](t, hostConn)
	guestA := dialRelay(t, srv)
	roleA := readUntil[protocol.RoleMessage](t, guestA)
	guestB := dialRelay(t, srv)
	readUntil[protocol.RoleMessage](t, guestB)

	sendMessage(t, guestA, protocol.InputMessage{PlayerIndex: roleA.PlayerIndex, MoveX: 1})

	input := readUntil[protocol.InputMessage](t, hostConn)
	if input.PlayerIndex != roleA.PlayerIndex || input.MoveX != 1 {
		t.Fatalf("host received %+v", input)
	}

	// guestB must never see guestA's input.
	guestB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		_, payload, err := guestB.ReadMessage()
		if err != nil {
			break // timeout: nothing but roster frames arrived
		}
		msg, err := protocol.Decode(payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, isInput := msg.(protocol.InputMessage); isInput {
			t.Fatalf("guest saw another guest's input")
		}
	}
}

func TestHostDisconnectNotifiesGuests(t *testing.T) {
	srv := startRelay(t, Config{})

	hostConn := dialRelay(t, srv)
	readUntil[protocol.RoleMessage](t, hostConn)
	guest := dialRelay(t, srv)
	readUntil[protocol.RoleMessage](t, guest)

	hostConn.Close()

	readUntil[protocol.PeerDisconnectMessage](t, guest)

	// The relay closes guest connections after the notice.
	guest.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := guest.ReadMessage(); err != nil {
			return
		}
	}
}
