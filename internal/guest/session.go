package guest

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"nightswarm/internal/protocol"
	"nightswarm/internal/telemetry"
)

// Conn is the slice of the connection client a guest session needs.
type Conn interface {
	Slot() int
	Send(msg protocol.Message)
	OnMessage(handler func(protocol.Message))
}

// Chooser picks a candidate index from an upgrade offer. The real
// implementation is UI; the headless binary picks the first entry.
type Chooser interface {
	Choose(choices []protocol.UpgradeChoice) int
}

// ChooserFunc adapts a function into a Chooser.
type ChooserFunc func(choices []protocol.UpgradeChoice) int

func (f ChooserFunc) Choose(choices []protocol.UpgradeChoice) int {
	if f == nil {
		return 0
	}
	return f(choices)
}

// Event kinds surfaced from Frame for the shell to react to.
const (
	EventGameStarted    = "game_started"
	EventBossWave       = "boss_wave"
	EventBuffPickup     = "buff_pickup"
	EventGameOver       = "game_over"
	EventUpgradeOffered = "upgrade_offered"
	EventUpgradeDone    = "upgrade_done"
	EventConnectionLost = "connection_lost"
)

// Event is one guest-visible happening drained from Frame.
type Event struct {
	Kind string
	Wave int
	Slot int
	Buff string
}

// Decoration is one deterministic piece of world dressing, generated from
// the shared seed instead of transmitted.
type Decoration struct {
	Kind string
	X, Z float64
	Yaw  float64
}

var decorationKinds = []string{"rock", "shrub", "pillar", "bones"}

// DecorationCount is how many dressing pieces every client generates.
const DecorationCount = 120

// GenerateDecorations expands a game seed into the dressing set. Every
// client runs the same expansion, so the world matches without a byte of
// decoration on the wire.
func GenerateDecorations(seed int64, arenaRadius float64) []Decoration {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Decoration, 0, DecorationCount)
	for i := 0; i < DecorationCount; i++ {
		angle := rng.Float64() * 2 * math.Pi
		dist := math.Sqrt(rng.Float64()) * arenaRadius
		out = append(out, Decoration{
			Kind: decorationKinds[rng.Intn(len(decorationKinds))],
			X:    math.Cos(angle) * dist,
			Z:    math.Sin(angle) * dist,
			Yaw:  rng.Float64() * 2 * math.Pi,
		})
	}
	return out
}

// Session reconstructs a smooth view of the host's world. Network handlers
// only append to an inbox; all state mutation happens inside Frame, so a
// snapshot arriving mid-frame can never tear the interpolation state.
type Session struct {
	conn      Conn
	factory   ProxyFactory
	chooser   Chooser
	logger    telemetry.Logger
	window    Window
	lifecycle *Lifecycle

	inboxMu sync.Mutex
	inbox   []protocol.Message

	roster       []int
	rosterFrozen bool
	arrayPos     int // own position within the frozen roster
	players      []*Proxy
	decorations  []Decoration

	activeOffer []protocol.UpgradeChoice
	terminal    bool
}

// NewSession wires a session onto a connection. Registration happens here;
// messages arriving before the first Frame are buffered.
func NewSession(conn Conn, factory ProxyFactory, chooser Chooser, logger telemetry.Logger) *Session {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	s := &Session{
		conn:      conn,
		factory:   factory,
		chooser:   chooser,
		logger:    logger,
		lifecycle: NewLifecycle(factory),
		arrayPos:  -1,
	}
	conn.OnMessage(s.enqueue)
	return s
}

func (s *Session) enqueue(msg protocol.Message) {
	s.inboxMu.Lock()
	s.inbox = append(s.inbox, msg)
	s.inboxMu.Unlock()
}

// Frame runs one render frame: drain buffered messages, reconcile and
// rotate snapshots, blend transforms, and send this frame's input intent.
// Returns the events the shell should surface.
func (s *Session) Frame(now time.Time, moveX, moveZ float64) []Event {
	s.inboxMu.Lock()
	pending := s.inbox
	s.inbox = nil
	s.inboxMu.Unlock()

	var events []Event
	for _, msg := range pending {
		events = append(events, s.apply(msg, now)...)
	}

	s.blend(now)

	if !s.terminal && s.rosterFrozen {
		s.conn.Send(protocol.InputMessage{
			PlayerIndex: s.conn.Slot(),
			MoveX:       moveX,
			MoveZ:       moveZ,
		})
	}
	return events
}

func (s *Session) apply(msg protocol.Message, now time.Time) []Event {
	switch m := msg.(type) {
	case protocol.StateMessage:
		// Lifecycle reconciliation completes before the snapshot becomes
		// the interpolation target, so the blend never indexes a proxy
		// that does not exist yet. Equal-time snapshots (a paused host
		// keeps sending) skip reconciliation — same entities — but still
		// reach Observe so pause and game-over flags refresh.
		if s.window.Accepts(m) {
			s.lifecycle.Reconcile(&m)
		}
		s.window.Observe(m, now)
		return nil

	case protocol.GameStartMessage:
		if s.rosterFrozen {
			// A second game_start mid-session is not a thing; ignore.
			return nil
		}
		s.rosterFrozen = true
		s.roster = append([]int(nil), m.PlayerIndices...)
		s.players = make([]*Proxy, len(s.roster))
		for i := range s.players {
			s.players[i] = &Proxy{}
		}
		for i, slot := range s.roster {
			if slot == s.conn.Slot() {
				s.arrayPos = i
			}
		}
		s.decorations = GenerateDecorations(m.Seed, 60)
		return []Event{{Kind: EventGameStarted}}

	case protocol.PlayerListMessage:
		// Roster changes after the freeze are relay bookkeeping only.
		if !s.rosterFrozen {
			s.roster = append([]int(nil), m.Players...)
		}
		return nil

	case protocol.UpgradeShowMessage:
		if m.PlayerIndex != s.conn.Slot() {
			return nil
		}
		s.activeOffer = m.Choices
		pick := 0
		if s.chooser != nil {
			pick = s.chooser.Choose(m.Choices)
		}
		if pick < 0 || pick >= len(m.Choices) {
			pick = 0
		}
		s.conn.Send(protocol.UpgradePickMessage{PlayerIndex: s.conn.Slot(), Index: pick})
		return []Event{{Kind: EventUpgradeOffered, Slot: m.PlayerIndex}}

	case protocol.UpgradeDoneMessage:
		if m.PlayerIndex != s.conn.Slot() {
			return nil
		}
		s.activeOffer = nil
		return []Event{{Kind: EventUpgradeDone, Slot: m.PlayerIndex}}

	case protocol.BuffPickupMessage:
		return []Event{{Kind: EventBuffPickup, Slot: m.PlayerIndex, Buff: m.Buff}}

	case protocol.BossWaveMessage:
		return []Event{{Kind: EventBossWave, Wave: m.Wave}}

	case protocol.GameOverMessage:
		return []Event{{Kind: EventGameOver}}

	case protocol.PeerDisconnectMessage:
		// Terminal: the authority is gone and nobody is promoted.
		s.terminal = true
		return []Event{{Kind: EventConnectionLost}}

	default:
		return nil
	}
}

// blend writes interpolated transforms into every proxy present in the
// current snapshot. Entities only in the current snapshot (spawned since
// the previous one) snap to their current pose with no blend-in.
func (s *Session) blend(now time.Time) {
	cur := s.window.Current()
	if cur == nil {
		return
	}
	t := s.window.Blend(now)
	prev := s.window.Previous()

	for i := range cur.Players {
		if i >= len(s.players) {
			break
		}
		target := s.players[i]
		p := cur.Players[i]
		if prev != nil && i < len(prev.Players) {
			q := prev.Players[i]
			target.Transform = Transform{
				X:   Lerp(q.X, p.X, t),
				Z:   Lerp(q.Z, p.Z, t),
				Yaw: LerpAngle(q.Yaw, p.Yaw, t),
			}
		} else {
			target.Transform = Transform{X: p.X, Z: p.Z, Yaw: p.Yaw}
		}
	}

	var prevEnemies map[uint64]protocol.EnemyState
	var prevProjectiles map[uint64]protocol.ProjectileState
	var prevEnemyShots map[uint64]protocol.EnemyProjectileState
	var prevGems map[uint64]protocol.GemState
	var prevVisuals map[uint64]protocol.WeaponVisualState
	if prev != nil {
		prevEnemies = make(map[uint64]protocol.EnemyState, len(prev.Enemies))
		for _, e := range prev.Enemies {
			prevEnemies[e.ID] = e
		}
		prevProjectiles = make(map[uint64]protocol.ProjectileState, len(prev.Projectiles))
		for _, p := range prev.Projectiles {
			prevProjectiles[p.ID] = p
		}
		prevEnemyShots = make(map[uint64]protocol.EnemyProjectileState, len(prev.EnemyProjectiles))
		for _, p := range prev.EnemyProjectiles {
			prevEnemyShots[p.ID] = p
		}
		prevGems = make(map[uint64]protocol.GemState, len(prev.Gems))
		for _, g := range prev.Gems {
			prevGems[g.ID] = g
		}
		prevVisuals = make(map[uint64]protocol.WeaponVisualState, len(prev.WeaponVisuals))
		for _, v := range prev.WeaponVisuals {
			prevVisuals[v.ID] = v
		}
	}

	for _, e := range cur.Enemies {
		proxy, ok := s.lifecycle.Proxy(CategoryEnemy, e.ID)
		if !ok {
			continue
		}
		if q, seen := prevEnemies[e.ID]; seen {
			proxy.Transform = Transform{
				X:   Lerp(q.X, e.X, t),
				Z:   Lerp(q.Z, e.Z, t),
				Yaw: LerpAngle(q.Yaw, e.Yaw, t),
			}
		} else {
			proxy.Transform = Transform{X: e.X, Z: e.Z, Yaw: e.Yaw}
		}
	}
	for _, p := range cur.Projectiles {
		proxy, ok := s.lifecycle.Proxy(CategoryProjectile, p.ID)
		if !ok {
			continue
		}
		if q, seen := prevProjectiles[p.ID]; seen {
			proxy.Transform = Transform{
				X:   Lerp(q.X, p.X, t),
				Z:   Lerp(q.Z, p.Z, t),
				Yaw: LerpAngle(q.Yaw, p.Yaw, t),
			}
		} else {
			proxy.Transform = Transform{X: p.X, Z: p.Z, Yaw: p.Yaw}
		}
	}
	for _, p := range cur.EnemyProjectiles {
		proxy, ok := s.lifecycle.Proxy(CategoryEnemyProjectile, p.ID)
		if !ok {
			continue
		}
		if q, seen := prevEnemyShots[p.ID]; seen {
			proxy.Transform = Transform{X: Lerp(q.X, p.X, t), Z: Lerp(q.Z, p.Z, t)}
		} else {
			proxy.Transform = Transform{X: p.X, Z: p.Z}
		}
	}
	for _, g := range cur.Gems {
		proxy, ok := s.lifecycle.Proxy(CategoryGem, g.ID)
		if !ok {
			continue
		}
		if q, seen := prevGems[g.ID]; seen {
			proxy.Transform = Transform{X: Lerp(q.X, g.X, t), Z: Lerp(q.Z, g.Z, t)}
		} else {
			proxy.Transform = Transform{X: g.X, Z: g.Z}
		}
	}
	for _, v := range cur.WeaponVisuals {
		proxy, ok := s.lifecycle.Proxy(CategoryWeaponVisual, v.ID)
		if !ok {
			continue
		}
		if q, seen := prevVisuals[v.ID]; seen {
			proxy.Transform = Transform{
				X:   Lerp(q.X, v.X, t),
				Z:   Lerp(q.Z, v.Z, t),
				Yaw: LerpAngle(q.Yaw, v.Yaw, t),
			}
		} else {
			proxy.Transform = Transform{X: v.X, Z: v.Z, Yaw: v.Yaw}
		}
	}
	// Chests never move; their proxy pose is the current snapshot's.
	for _, c := range cur.Chests {
		if proxy, ok := s.lifecycle.Proxy(CategoryChest, c.ID); ok {
			proxy.Transform = Transform{X: c.X, Z: c.Z}
		}
	}
}

// Scalars returns the latest snapshot's non-positional state. Stepped, not
// blended: flags and counters reflect the newest known truth.
func (s *Session) Scalars() (protocol.StateMessage, bool) {
	cur := s.window.Current()
	if cur == nil {
		return protocol.StateMessage{}, false
	}
	scalars := *cur
	return scalars, true
}

// PlayerView returns a roster entry's blended transform and its stepped
// wire state.
func (s *Session) PlayerView(arrayPos int) (Transform, protocol.PlayerState, bool) {
	cur := s.window.Current()
	if cur == nil || arrayPos < 0 || arrayPos >= len(s.players) || arrayPos >= len(cur.Players) {
		return Transform{}, protocol.PlayerState{}, false
	}
	return s.players[arrayPos].Transform, cur.Players[arrayPos], true
}

// Lifecycle exposes the proxy registry for the renderer.
func (s *Session) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// Roster returns the frozen participant order, nil before game_start.
func (s *Session) Roster() []int {
	if !s.rosterFrozen {
		return nil
	}
	return s.roster
}

// ArrayPosition is this guest's index within the frozen roster, -1 before
// game_start.
func (s *Session) ArrayPosition() int {
	if !s.rosterFrozen {
		return -1
	}
	return s.arrayPos
}

// Decorations returns the deterministic dressing set, nil before
// game_start.
func (s *Session) Decorations() []Decoration {
	return s.decorations
}

// ActiveOffer returns the upgrade choices currently displayed, nil when no
// offer is pending.
func (s *Session) ActiveOffer() []protocol.UpgradeChoice {
	return s.activeOffer
}

// Terminal reports whether the session is over (host gone).
func (s *Session) Terminal() bool {
	return s.terminal
}
