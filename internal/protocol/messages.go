package protocol

// Message type identifiers carried in the "type" field of every frame.
const (
	TypeRole           = "role"
	TypePlayerList     = "player_list"
	TypePeerDisconnect = "peer_disconnect"
	TypeError          = "error"
	TypeGameStart      = "game_start"
	TypeInput          = "input"
	TypeState          = "state"
	TypeUpgradeShow    = "upgrade_show"
	TypeUpgradePick    = "upgrade_pick"
	TypeUpgradeDone    = "upgrade_done"
	TypeBuffPickup     = "buff_pickup"
	TypeBossWave       = "boss_wave"
	TypeGameOver       = "game_over"
)

// Session roles assigned by the relay.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Relay error reasons.
const (
	ErrorRoomFull = "room_full"
)

// Message is the closed set of frames exchanged through the relay. Handlers
// switch on the concrete type; adding a frame means adding a case everywhere
// the compiler points.
type Message interface {
	WireType() string
}

// RoleMessage is sent by the relay exactly once per connection, before any
// other traffic.
type RoleMessage struct {
	Type        string `json:"type"`
	Role        string `json:"role" jsonschema:"enum=host,enum=guest"`
	PlayerIndex int    `json:"playerIndex" jsonschema:"description=Stable slot index assigned for the connection lifetime"`
}

// PlayerListMessage announces the connected roster in ascending slot order.
type PlayerListMessage struct {
	Type    string `json:"type"`
	Players []int  `json:"players"`
}

// PeerDisconnectMessage tells guests the host is gone. Terminal.
type PeerDisconnectMessage struct {
	Type string `json:"type"`
}

// ErrorMessage is sent by the relay before closing a rejected connection.
type ErrorMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// GameStartMessage freezes the roster and seeds deterministic decoration
// generation on every client.
type GameStartMessage struct {
	Type          string `json:"type"`
	Seed          int64  `json:"seed"`
	PlayerIndices []int  `json:"playerIndices"`
}

// InputMessage carries one guest's movement intent, sent once per render
// frame.
type InputMessage struct {
	Type        string  `json:"type"`
	PlayerIndex int     `json:"pi"`
	MoveX       float64 `json:"mx"`
	MoveZ       float64 `json:"mz"`
}

// PlayerState is one roster slot's entry in a snapshot. Participants are
// positional: the array order matches the frozen roster, so no identifier is
// carried.
type PlayerState struct {
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Yaw       float64 `json:"r"`
	Health    float64 `json:"hp"`
	MaxHealth float64 `json:"mhp"`
	Alive     bool    `json:"al"`
	Level     int     `json:"lv"`
}

// EnemyState is one live enemy in a snapshot.
type EnemyState struct {
	ID        uint64  `json:"id"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Yaw       float64 `json:"r"`
	Health    float64 `json:"hp"`
	MaxHealth float64 `json:"mhp"`
	Kind      string  `json:"tp"`
	Flash     float64 `json:"fl,omitempty" jsonschema:"description=Hit flash progress in [0,1]"`
}

// ProjectileState is one player-fired projectile.
type ProjectileState struct {
	ID   uint64  `json:"id"`
	X    float64 `json:"x"`
	Z    float64 `json:"z"`
	Yaw  float64 `json:"r"`
	Kind string  `json:"tp"`
}

// EnemyProjectileState is one enemy-fired projectile. Untyped and unrotated:
// every enemy shot renders the same way.
type EnemyProjectileState struct {
	ID uint64  `json:"id"`
	X  float64 `json:"x"`
	Z  float64 `json:"z"`
}

// GemState is one experience pickup.
type GemState struct {
	ID    uint64  `json:"id"`
	X     float64 `json:"x"`
	Z     float64 `json:"z"`
	Value int     `json:"v"`
}

// WeaponVisualState is one transient weapon effect.
type WeaponVisualState struct {
	ID     uint64  `json:"id"`
	X      float64 `json:"x"`
	Z      float64 `json:"z"`
	Yaw    float64 `json:"r"`
	Kind   string  `json:"tp"`
	Charge float64 `json:"chg,omitempty" jsonschema:"description=Charge progress in [0,1]"`
}

// ChestState is one reward chest.
type ChestState struct {
	ID     uint64  `json:"id"`
	X      float64 `json:"x"`
	Z      float64 `json:"z"`
	Opened bool    `json:"op"`
}

// StateMessage is one complete host snapshot. Field tags stay short because
// this frame dominates bandwidth.
type StateMessage struct {
	Type             string                 `json:"type"`
	GameTime         float64                `json:"gt"`
	Kills            int                    `json:"tk"`
	GameOver         bool                   `json:"go"`
	Paused           bool                   `json:"pa"`
	Players          []PlayerState          `json:"pl"`
	Enemies          []EnemyState           `json:"en"`
	Projectiles      []ProjectileState      `json:"pr"`
	EnemyProjectiles []EnemyProjectileState `json:"ep"`
	Gems             []GemState             `json:"gm"`
	WeaponVisuals    []WeaponVisualState    `json:"wv"`
	Chests           []ChestState           `json:"ch"`
	Wave             int                    `json:"cw"`
	BossActive       bool                   `json:"ba"`
	BossHealth       float64                `json:"bh"`
	BossMaxHealth    float64                `json:"bmh"`
}

// UpgradeChoice is one serializable candidate in an offer. Data only, never
// executable logic; the host resolves the effect.
type UpgradeChoice struct {
	Kind        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpgradeShowMessage presents an offer to one participant. Broadcast; guests
// filter by PlayerIndex.
type UpgradeShowMessage struct {
	Type        string          `json:"type"`
	PlayerIndex int             `json:"playerIndex"`
	Choices     []UpgradeChoice `json:"choices"`
}

// UpgradePickMessage returns the chosen candidate index to the host.
type UpgradePickMessage struct {
	Type        string `json:"type"`
	PlayerIndex int    `json:"playerIndex"`
	Index       int    `json:"index"`
}

// UpgradeDoneMessage confirms an applied pick so the guest dismisses its UI.
type UpgradeDoneMessage struct {
	Type        string `json:"type"`
	PlayerIndex int    `json:"playerIndex"`
}

// BuffPickupMessage announces a chest buff. Fire-and-forget.
type BuffPickupMessage struct {
	Type        string `json:"type"`
	PlayerIndex int    `json:"pi"`
	Buff        string `json:"bt"`
}

// BossWaveMessage announces a boss wave start. Fire-and-forget.
type BossWaveMessage struct {
	Type string `json:"type"`
	Wave int    `json:"wave"`
}

// GameOverMessage announces the end of the run. Fire-and-forget.
type GameOverMessage struct {
	Type string `json:"type"`
}

// UnknownMessage is produced for frames whose type this build does not know.
// Receivers treat it as a no-op so newer peers stay compatible.
type UnknownMessage struct {
	TypeName string
}

func (RoleMessage) WireType() string           { return TypeRole }
func (PlayerListMessage) WireType() string     { return TypePlayerList }
func (PeerDisconnectMessage) WireType() string { return TypePeerDisconnect }
func (ErrorMessage) WireType() string          { return TypeError }
func (GameStartMessage) WireType() string      { return TypeGameStart }
func (InputMessage) WireType() string          { return TypeInput }
func (StateMessage) WireType() string          { return TypeState }
func (UpgradeShowMessage) WireType() string    { return TypeUpgradeShow }
func (UpgradePickMessage) WireType() string    { return TypeUpgradePick }
func (UpgradeDoneMessage) WireType() string    { return TypeUpgradeDone }
func (BuffPickupMessage) WireType() string     { return TypeBuffPickup }
func (BossWaveMessage) WireType() string       { return TypeBossWave }
func (GameOverMessage) WireType() string       { return TypeGameOver }
func (m UnknownMessage) WireType() string      { return m.TypeName }
