package protocol

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Type string `json:"type"`
}

// Encode renders a message for the wire, stamping the type field so callers
// never set it by hand.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case RoleMessage:
		m.Type = TypeRole
		return json.Marshal(m)
	case PlayerListMessage:
		m.Type = TypePlayerList
		return json.Marshal(m)
	case PeerDisconnectMessage:
		m.Type = TypePeerDisconnect
		return json.Marshal(m)
	case ErrorMessage:
		m.Type = TypeError
		return json.Marshal(m)
	case GameStartMessage:
		m.Type = TypeGameStart
		return json.Marshal(m)
	case InputMessage:
		m.Type = TypeInput
		return json.Marshal(m)
	case StateMessage:
		m.Type = TypeState
		return json.Marshal(m)
	case UpgradeShowMessage:
		m.Type = TypeUpgradeShow
		return json.Marshal(m)
	case UpgradePickMessage:
		m.Type = TypeUpgradePick
		return json.Marshal(m)
	case UpgradeDoneMessage:
		m.Type = TypeUpgradeDone
		return json.Marshal(m)
	case BuffPickupMessage:
		m.Type = TypeBuffPickup
		return json.Marshal(m)
	case BossWaveMessage:
		m.Type = TypeBossWave
		return json.Marshal(m)
	case GameOverMessage:
		m.Type = TypeGameOver
		return json.Marshal(m)
	case UnknownMessage:
		return nil, fmt.Errorf("refusing to encode unknown message type %q", m.TypeName)
	default:
		return nil, fmt.Errorf("unhandled message type %T", msg)
	}
}

// Decode converts a raw frame into its typed message. Frames with an
// unrecognized type decode to UnknownMessage rather than failing, so newer
// peers can add frames without breaking older ones.
func Decode(payload []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeRole:
		var m RoleMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypePlayerList:
		var m PlayerListMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypePeerDisconnect:
		var m PeerDisconnectMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeError:
		var m ErrorMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeGameStart:
		var m GameStartMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeInput:
		var m InputMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeState:
		var m StateMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeUpgradeShow:
		var m UpgradeShowMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeUpgradePick:
		var m UpgradePickMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeUpgradeDone:
		var m UpgradeDoneMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeBuffPickup:
		var m BuffPickupMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeBossWave:
		var m BossWaveMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	case TypeGameOver:
		var m GameOverMessage
		err := json.Unmarshal(payload, &m)
		return m, err
	default:
		return UnknownMessage{TypeName: env.Type}, nil
	}
}
