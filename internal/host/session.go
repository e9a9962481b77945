package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nightswarm/internal/logging"
	"nightswarm/internal/protocol"
	"nightswarm/internal/sim"
	"nightswarm/internal/snapshot"
	"nightswarm/internal/telemetry"
)

// Conn is the slice of the connection client the authority session needs.
type Conn interface {
	Slot() int
	Send(msg protocol.Message)
	OnMessage(handler func(protocol.Message))
	Closed() <-chan struct{}
}

// Config tunes the authority loop.
type Config struct {
	// TickRate is simulation steps per second.
	TickRate int
	// CatchupMaxTicks bounds dt when the loop is starved: a late tick takes
	// one wider step instead of leaping across the whole stall.
	CatchupMaxTicks int
	Seed            int64
	World           sim.Config
	Scheduler       snapshot.SchedulerConfig
}

// DefaultConfig mirrors the cadence the game shipped with.
func DefaultConfig() Config {
	return Config{
		TickRate:        30,
		CatchupMaxTicks: 4,
		Seed:            1,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.CatchupMaxTicks <= 0 {
		c.CatchupMaxTicks = def.CatchupMaxTicks
	}
	return c
}

// Session is the authoritative side of a match: it owns the world, steps it
// on a fixed ticker, broadcasts snapshots through the relay, and arbitrates
// upgrade transactions. Network callbacks only append to an inbox; every
// mutation happens inside Tick.
type Session struct {
	cfg       Config
	conn      Conn
	chooser   Chooser
	logger    telemetry.Logger
	publisher logging.Publisher
	counters  *telemetry.Counters

	inboxMu sync.Mutex
	inbox   []protocol.Message

	roster      []int
	world       *sim.World
	scheduler   *snapshot.Scheduler
	coordinator *Coordinator
	tick        uint64
	started     bool
	overSent    bool
}

// NewSession wires a session onto a host-role connection. The match does
// not begin until Start is called with the frozen roster.
func NewSession(conn Conn, cfg Config, chooser Chooser, logger telemetry.Logger, publisher logging.Publisher) *Session {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	s := &Session{
		cfg:       cfg.withDefaults(),
		conn:      conn,
		chooser:   chooser,
		logger:    logger,
		publisher: publisher,
		counters:  telemetry.NewCounters(),
	}
	conn.OnMessage(s.enqueue)
	return s
}

func (s *Session) enqueue(msg protocol.Message) {
	s.inboxMu.Lock()
	s.inbox = append(s.inbox, msg)
	s.inboxMu.Unlock()
}

// Roster returns the current participant slots: the frozen roster once the
// match has started, the relay's live roster before.
func (s *Session) Roster() []int {
	return append([]int(nil), s.roster...)
}

// Started reports whether the match roster is frozen.
func (s *Session) Started() bool {
	return s.started
}

// World exposes the authoritative world, nil before Start.
func (s *Session) World() *sim.World {
	return s.world
}

// Counters exposes the broadcast telemetry.
func (s *Session) Counters() *telemetry.Counters {
	return s.counters
}

// Start freezes the roster, builds the world, and broadcasts game_start.
// Call once, from the loop goroutine, before the first Tick.
func (s *Session) Start(roster []int) error {
	if s.started {
		return fmt.Errorf("session already started")
	}
	if len(roster) == 0 {
		roster = []int{s.conn.Slot()}
	}
	s.roster = append([]int(nil), roster...)
	s.world = sim.NewWorld(s.cfg.World, s.cfg.Seed, s.roster)
	s.scheduler = snapshot.NewScheduler(s.cfg.Scheduler)
	s.coordinator = NewCoordinator(s.world, s.conn.Slot(), s.chooser, s.conn.Send, s.publisher)
	s.started = true

	s.conn.Send(protocol.GameStartMessage{Seed: s.cfg.Seed, PlayerIndices: s.roster})
	s.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventGameStarted,
		Actor:    logging.EntityRef{ID: slotID(s.conn.Slot()), Kind: logging.EntityKindParticipant},
		Severity: logging.SeverityInfo,
		Payload:  map[string]any{"seed": s.cfg.Seed, "players": len(s.roster)},
	})
	return nil
}

// Tick runs one simulation step: drain the inbox, step the world, announce
// step events, and broadcast a snapshot when the cadence lines up.
func (s *Session) Tick(now time.Time, dt float64) {
	s.inboxMu.Lock()
	pending := s.inbox
	s.inbox = nil
	s.inboxMu.Unlock()
	for _, msg := range pending {
		s.apply(msg)
	}

	if !s.started {
		return
	}

	start := time.Now()
	events := s.world.Step(dt)
	s.tick++

	for _, lu := range events.LevelUps {
		s.coordinator.OnLevelUp(lu.Slot)
	}
	for _, grant := range events.BuffGrants {
		s.conn.Send(protocol.BuffPickupMessage{PlayerIndex: grant.Slot, Buff: grant.Buff})
	}
	if events.BossWave > 0 {
		s.conn.Send(protocol.BossWaveMessage{Wave: events.BossWave})
		s.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventWaveStarted,
			Tick:     s.tick,
			Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
			Severity: logging.SeverityInfo,
			Payload:  map[string]any{"wave": events.BossWave, "boss": true},
		})
	}
	if events.GameOver && !s.overSent {
		s.overSent = true
		s.conn.Send(protocol.GameOverMessage{})
		s.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventGameOver,
			Tick:     s.tick,
			Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
			Severity: logging.SeverityInfo,
		})
	}

	if msg, ok := s.scheduler.Tick(s.world); ok {
		payload, err := protocol.Encode(msg)
		if err != nil {
			s.logger.Printf("[host] snapshot encode failed: %v", err)
		} else {
			s.conn.Send(msg)
			s.counters.RecordBroadcast(len(payload), snapshot.EntityCount(msg))
		}
	}
	s.counters.RecordTickDuration(time.Since(start))
}

func (s *Session) apply(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.InputMessage:
		if s.world != nil {
			s.world.SetIntent(m.PlayerIndex, m.MoveX, m.MoveZ)
		}

	case protocol.UpgradePickMessage:
		if s.coordinator != nil {
			s.coordinator.OnPick(m.PlayerIndex, m.Index)
		}

	case protocol.PlayerListMessage:
		if !s.started {
			s.roster = append([]int(nil), m.Players...)
			return
		}
		// Post-start the roster is frozen; a shrinking list means a guest
		// dropped. Their slot stops moving and any open offer is released.
		live := make(map[int]bool, len(m.Players))
		for _, slot := range m.Players {
			live[slot] = true
		}
		for _, slot := range s.roster {
			if live[slot] || slot == s.conn.Slot() {
				continue
			}
			s.world.SetIntent(slot, 0, 0)
			s.coordinator.OnDisconnect(slot)
			s.publisher.Publish(context.Background(), logging.Event{
				Type:     logging.EventSessionLeft,
				Tick:     s.tick,
				Actor:    logging.EntityRef{ID: slotID(slot), Kind: logging.EntityKindParticipant},
				Severity: logging.SeverityWarn,
			})
		}
	}
}

// RunLoop drives Tick at the configured rate until the context is canceled
// or the connection closes. dt is wall-clock measured and clamped so a
// stalled process takes a bounded catch-up step instead of teleporting
// every entity.
func (s *Session) RunLoop(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	budget := 1.0 / float64(s.cfg.TickRate)
	maxDt := budget * float64(s.cfg.CatchupMaxTicks)
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.conn.Closed():
			return fmt.Errorf("relay connection closed")
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budget
			} else if dt > maxDt {
				dt = maxDt
			}
			last = now
			s.Tick(now, dt)
		}
	}
}

func slotID(slot int) string {
	return fmt.Sprintf("slot-%d", slot)
}
