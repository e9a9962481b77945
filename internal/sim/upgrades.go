package sim

// Upgrade is one level-up candidate. Pure data on the wire; only the host
// ever resolves an upgrade into stat changes.
type Upgrade struct {
	Kind        string
	ID          string
	Name        string
	Description string
}

var upgradeCatalog = []Upgrade{
	{Kind: "stat", ID: "damage", Name: "Sharpened Bolts", Description: "+25% projectile damage."},
	{Kind: "stat", ID: "fire-rate", Name: "Rapid Trigger", Description: "15% faster firing."},
	{Kind: "stat", ID: "speed", Name: "Fleet Foot", Description: "+12% move speed."},
	{Kind: "stat", ID: "max-hp", Name: "Vitality", Description: "+20 max HP and heal 20."},
	{Kind: "stat", ID: "magnet", Name: "Gem Magnet", Description: "+40% pickup reach."},
	{Kind: "stat", ID: "mend", Name: "Field Mend", Description: "Restore 40% of missing HP."},
}

// OfferCount is how many candidates a level-up presents.
const OfferCount = 3

// GenerateUpgrades draws the candidate list for one level-up from the
// world's RNG, so offers replay deterministically for a given seed.
func (w *World) GenerateUpgrades() []Upgrade {
	perm := w.rng.Perm(len(upgradeCatalog))
	count := OfferCount
	if count > len(perm) {
		count = len(perm)
	}
	out := make([]Upgrade, 0, count)
	for _, idx := range perm[:count] {
		out = append(out, upgradeCatalog[idx])
	}
	return out
}

// ApplyUpgrade resolves a chosen candidate against the participant's
// authoritative state. Returns false for an unknown slot or upgrade id.
func (w *World) ApplyUpgrade(slot int, upgrade Upgrade) bool {
	p, ok := w.ParticipantBySlot(slot)
	if !ok {
		return false
	}
	switch upgrade.ID {
	case "damage":
		p.Damage *= 1.25
	case "fire-rate":
		p.FireInterval *= 0.85
	case "speed":
		p.Speed *= 1.12
	case "max-hp":
		p.MaxHealth += 20
		p.Health = minFloat(p.Health+20, p.MaxHealth)
	case "magnet":
		p.MagnetRadius *= 1.4
	case "mend":
		p.Health += (p.MaxHealth - p.Health) * 0.4
	default:
		return false
	}
	return true
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
