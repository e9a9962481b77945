package relay

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nightswarm/internal/logging"
	"nightswarm/internal/protocol"
	"nightswarm/internal/telemetry"
)

// Config tunes the relay hub.
type Config struct {
	// Capacity is the total number of concurrent slots, host included.
	Capacity  int
	WriteWait time.Duration
}

// DefaultConfig matches the five-player roster the game supports.
func DefaultConfig() Config {
	return Config{Capacity: 5, WriteWait: 10 * time.Second}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	return c
}

// Hub owns every relayed connection. The first connection becomes the
// authority; everyone after is a participant. The hub never inspects game
// frames: authority traffic is broadcast to guests verbatim, guest traffic
// is forwarded to the authority verbatim.
type Hub struct {
	cfg       Config
	logger    telemetry.Logger
	publisher logging.Publisher

	mu       sync.Mutex
	peers    map[int]*peer // keyed by slot index
	host     *peer
	nextSlot int

	bytesRelayed atomic.Uint64
}

type peer struct {
	id   string
	slot int
	role string
	conn *websocket.Conn

	mu       sync.Mutex // serializes writes
	lastRead atomic.Int64
}

// NewHub builds an empty relay hub.
func NewHub(cfg Config, logger telemetry.Logger, publisher logging.Publisher) *Hub {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Hub{
		cfg:       cfg.withDefaults(),
		logger:    logger,
		publisher: publisher,
		peers:     make(map[int]*peer),
	}
}

func (h *Hub) write(p *peer, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) writeMessage(p *peer, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return h.write(p, data)
}

// Serve runs the full lifetime of one relayed connection: admission, role
// assignment, read loop, and departure. It blocks until the connection dies.
func (h *Hub) Serve(conn *websocket.Conn) {
	p, ok := h.admit(conn)
	if !ok {
		return
	}
	defer h.depart(p)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		p.lastRead.Store(time.Now().UnixMilli())
		h.relay(p, payload)
	}
}

// admit assigns a slot and role, or rejects the connection when the roster
// is full. The role frame is always the first thing a connection receives.
func (h *Hub) admit(conn *websocket.Conn) (*peer, bool) {
	h.mu.Lock()
	if len(h.peers) >= h.cfg.Capacity {
		h.mu.Unlock()
		h.reject(conn)
		return nil, false
	}

	p := &peer{
		id:   uuid.NewString(),
		slot: h.nextSlot,
		role: protocol.RoleGuest,
		conn: conn,
	}
	h.nextSlot++
	if h.host == nil {
		p.role = protocol.RoleHost
		h.host = p
	}
	h.peers[p.slot] = p
	p.lastRead.Store(time.Now().UnixMilli())
	h.mu.Unlock()

	if err := h.writeMessage(p, protocol.RoleMessage{Role: p.role, PlayerIndex: p.slot}); err != nil {
		h.logger.Printf("failed to send role to %s: %v", p.id, err)
		h.depart(p)
		return nil, false
	}

	h.logger.Printf("peer %s connected as %s slot=%d", p.id, p.role, p.slot)
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventSessionJoined,
		Time:     time.Now(),
		Actor:    logging.EntityRef{ID: p.id, Kind: logging.EntityKindParticipant},
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"slot": p.slot, "role": p.role},
	})

	h.broadcastRoster()
	return p, true
}

func (h *Hub) reject(conn *websocket.Conn) {
	data, err := protocol.Encode(protocol.ErrorMessage{Reason: protocol.ErrorRoomFull})
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
		conn.WriteMessage(websocket.TextMessage, data)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, protocol.ErrorRoomFull))
	conn.Close()
	h.logger.Printf("rejected connection: roster full")
}

// relay moves one frame. Guest frames go to the authority only; authority
// frames go to every guest.
func (h *Hub) relay(from *peer, payload []byte) {
	h.bytesRelayed.Add(uint64(len(payload)))

	h.mu.Lock()
	var targets []*peer
	if from.role == protocol.RoleHost {
		targets = make([]*peer, 0, len(h.peers)-1)
		for _, p := range h.peers {
			if p != from {
				targets = append(targets, p)
			}
		}
	} else if h.host != nil {
		targets = []*peer{h.host}
	}
	h.mu.Unlock()

	for _, target := range targets {
		if err := h.write(target, payload); err != nil {
			h.logger.Printf("relay write to slot %d failed: %v", target.slot, err)
			h.depart(target)
		}
	}
}

// depart removes a peer and announces the change. Host departure is
// terminal for the session: guests get peer_disconnect and no guest is
// promoted.
func (h *Hub) depart(p *peer) {
	h.mu.Lock()
	current, ok := h.peers[p.slot]
	if !ok || current != p {
		h.mu.Unlock()
		return
	}
	delete(h.peers, p.slot)
	hostLost := h.host == p
	if hostLost {
		h.host = nil
	}
	var rest []*peer
	for _, other := range h.peers {
		rest = append(rest, other)
	}
	h.mu.Unlock()

	p.conn.Close()
	h.logger.Printf("peer %s departed slot=%d role=%s", p.id, p.slot, p.role)
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventSessionLeft,
		Time:     time.Now(),
		Actor:    logging.EntityRef{ID: p.id, Kind: logging.EntityKindParticipant},
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"slot": p.slot, "role": p.role},
	})

	if hostLost {
		for _, other := range rest {
			if err := h.writeMessage(other, protocol.PeerDisconnectMessage{}); err != nil {
				h.logger.Printf("peer_disconnect write to slot %d failed: %v", other.slot, err)
			}
			other.conn.Close()
		}
		return
	}
	h.broadcastRoster()
}

// broadcastRoster sends the current slot list, ascending, to everyone.
func (h *Hub) broadcastRoster() {
	h.mu.Lock()
	slots := make([]int, 0, len(h.peers))
	targets := make([]*peer, 0, len(h.peers))
	for slot, p := range h.peers {
		slots = append(slots, slot)
		targets = append(targets, p)
	}
	h.mu.Unlock()
	sort.Ints(slots)

	data, err := protocol.Encode(protocol.PlayerListMessage{Players: slots})
	if err != nil {
		h.logger.Printf("failed to encode player_list: %v", err)
		return
	}
	for _, target := range targets {
		if err := h.write(target, data); err != nil {
			h.logger.Printf("player_list write to slot %d failed: %v", target.slot, err)
		}
	}
}

// DiagnosticsPeer is one connection's entry in the diagnostics payload.
type DiagnosticsPeer struct {
	ID       string `json:"id"`
	Slot     int    `json:"slot"`
	Role     string `json:"role"`
	LastRead int64  `json:"lastRead"`
}

// DiagnosticsSnapshot exposes roster and traffic data for the diagnostics
// endpoint.
func (h *Hub) DiagnosticsSnapshot() (peers []DiagnosticsPeer, bytesRelayed uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers = make([]DiagnosticsPeer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, DiagnosticsPeer{
			ID:       p.id,
			Slot:     p.slot,
			Role:     p.role,
			LastRead: p.lastRead.Load(),
		})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Slot < peers[j].Slot })
	return peers, h.bytesRelayed.Load()
}
