package host

import (
	"context"

	"nightswarm/internal/logging"
	"nightswarm/internal/protocol"
	"nightswarm/internal/sim"
)

// Chooser resolves the host's own level-ups without a network round trip.
type Chooser interface {
	Choose(choices []sim.Upgrade) int
}

// ChooserFunc adapts a function into a Chooser.
type ChooserFunc func(choices []sim.Upgrade) int

func (f ChooserFunc) Choose(choices []sim.Upgrade) int {
	if f == nil {
		return 0
	}
	return f(choices)
}

// Coordinator runs the upgrade transaction for every roster slot. A remote
// slot's level-up pauses the world until its pick lands; the host's own
// level-up resolves synchronously and never pauses. At most one offer is in
// flight per slot; further level-ups for that slot queue behind it.
type Coordinator struct {
	world     *sim.World
	hostSlot  int
	chooser   Chooser
	send      func(protocol.Message)
	publisher logging.Publisher

	pending map[int][]sim.Upgrade
	queued  map[int]int
}

// NewCoordinator wires the coordinator onto a world and a broadcast sink.
func NewCoordinator(world *sim.World, hostSlot int, chooser Chooser, send func(protocol.Message), publisher logging.Publisher) *Coordinator {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Coordinator{
		world:     world,
		hostSlot:  hostSlot,
		chooser:   chooser,
		send:      send,
		publisher: publisher,
		pending:   make(map[int][]sim.Upgrade),
		queued:    make(map[int]int),
	}
}

// OnLevelUp reacts to one participant crossing an experience threshold.
func (c *Coordinator) OnLevelUp(slot int) {
	if slot == c.hostSlot {
		choices := c.world.GenerateUpgrades()
		pick := 0
		if c.chooser != nil {
			pick = c.chooser.Choose(choices)
		}
		if pick < 0 || pick >= len(choices) {
			pick = 0
		}
		c.applyPick(slot, choices, pick)
		return
	}
	if _, inFlight := c.pending[slot]; inFlight {
		c.queued[slot]++
		return
	}
	c.openOffer(slot)
}

// OnPick resolves one guest's choice. Unknown or duplicate picks are no-ops:
// the offer was already consumed, so a retransmitted frame cannot apply a
// second upgrade.
func (c *Coordinator) OnPick(slot, index int) {
	choices, ok := c.pending[slot]
	if !ok {
		return
	}
	if index < 0 || index >= len(choices) {
		index = 0
	}
	delete(c.pending, slot)
	c.applyPick(slot, choices, index)
	c.send(protocol.UpgradeDoneMessage{PlayerIndex: slot})

	if c.queued[slot] > 0 {
		c.queued[slot]--
		if c.queued[slot] == 0 {
			delete(c.queued, slot)
		}
		c.openOffer(slot)
		return
	}
	if len(c.pending) == 0 {
		c.world.SetPaused(false)
	}
}

// OnDisconnect drops any offer held open for a departed slot so the world
// does not stay paused waiting on a pick that can never arrive.
func (c *Coordinator) OnDisconnect(slot int) {
	delete(c.pending, slot)
	delete(c.queued, slot)
	if len(c.pending) == 0 {
		c.world.SetPaused(false)
	}
}

// PendingOffers reports how many slots currently hold an open offer.
func (c *Coordinator) PendingOffers() int {
	return len(c.pending)
}

func (c *Coordinator) openOffer(slot int) {
	choices := c.world.GenerateUpgrades()
	c.pending[slot] = choices
	c.world.SetPaused(true)
	c.send(protocol.UpgradeShowMessage{
		PlayerIndex: slot,
		Choices:     toWireChoices(choices),
	})
	c.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventUpgradeOffered,
		Actor:    logging.EntityRef{ID: slotID(slot), Kind: logging.EntityKindParticipant},
		Severity: logging.SeverityInfo,
	})
}

func (c *Coordinator) applyPick(slot int, choices []sim.Upgrade, index int) {
	chosen := choices[index]
	c.world.ApplyUpgrade(slot, chosen)
	c.publisher.Publish(context.Background(), logging.Event{
		Type:     logging.EventUpgradeApplied,
		Actor:    logging.EntityRef{ID: slotID(slot), Kind: logging.EntityKindParticipant},
		Severity: logging.SeverityInfo,
		Payload:  map[string]any{"upgrade": chosen.ID},
	})
}

func toWireChoices(choices []sim.Upgrade) []protocol.UpgradeChoice {
	out := make([]protocol.UpgradeChoice, 0, len(choices))
	for _, u := range choices {
		out = append(out, protocol.UpgradeChoice{
			Kind:        u.Kind,
			ID:          u.ID,
			Name:        u.Name,
			Description: u.Description,
		})
	}
	return out
}
