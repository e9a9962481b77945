package protocol

import (
	"encoding/json"
	"testing"
)

func TestEncodeStampsType(t *testing.T) {
	data, err := Encode(InputMessage{PlayerIndex: 2, MoveX: 0.5, MoveZ: -1})
	if err != nil {
		t.Fatalf("encode input: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal encoded input: %v", err)
	}
	if raw["type"] != "input" {
		t.Fatalf("expected type input, got %v", raw["type"])
	}
	if raw["pi"] != float64(2) || raw["mx"] != 0.5 || raw["mz"] != float64(-1) {
		t.Fatalf("unexpected input fields: %v", raw)
	}
}

func TestStateRoundTripKeepsShortTags(t *testing.T) {
	msg := StateMessage{
		GameTime:   12.5,
		Kills:      40,
		Wave:       3,
		Paused:     true,
		BossActive: true,
		BossHealth: 250,
		Players:    []PlayerState{{X: 1, Z: 2, Yaw: 0.3, Health: 80, MaxHealth: 100, Alive: true, Level: 4}},
		Enemies:    []EnemyState{{ID: 7, X: 10, Z: 5, Kind: "crawler", Health: 12, MaxHealth: 20}},
		Gems:       []GemState{{ID: 3, X: 4, Z: 4, Value: 5}},
	}
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal encoded state: %v", err)
	}
	for _, key := range []string{"gt", "tk", "go", "pa", "pl", "en", "pr", "ep", "gm", "wv", "ch", "cw", "ba", "bh", "bmh"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("state frame missing key %q: %s", key, data)
		}
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	state, ok := decoded.(StateMessage)
	if !ok {
		t.Fatalf("expected StateMessage, got %T", decoded)
	}
	if len(state.Enemies) != 1 || state.Enemies[0].ID != 7 {
		t.Fatalf("enemy array lost in round trip: %+v", state.Enemies)
	}
	if !state.Paused || state.Kills != 40 || !state.BossActive {
		t.Fatalf("scalar fields lost in round trip: %+v", state)
	}
}

func TestDecodeUnknownTypeIsTolerated(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"future_frame","payload":42}`))
	if err != nil {
		t.Fatalf("unknown type should not error: %v", err)
	}
	unknown, ok := msg.(UnknownMessage)
	if !ok {
		t.Fatalf("expected UnknownMessage, got %T", msg)
	}
	if unknown.TypeName != "future_frame" {
		t.Fatalf("unexpected type name %q", unknown.TypeName)
	}
}

func TestDecodeMalformedPayloadFails(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestDecodeRoleAssignment(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"role","role":"guest","playerIndex":3}`))
	if err != nil {
		t.Fatalf("decode role: %v", err)
	}
	role, ok := msg.(RoleMessage)
	if !ok {
		t.Fatalf("expected RoleMessage, got %T", msg)
	}
	if role.Role != RoleGuest || role.PlayerIndex != 3 {
		t.Fatalf("unexpected role payload: %+v", role)
	}
}

func TestUpgradeShowCarriesChoiceData(t *testing.T) {
	data, err := Encode(UpgradeShowMessage{
		PlayerIndex: 1,
		Choices: []UpgradeChoice{
			{Kind: "weapon", ID: "orbit-blade", Name: "Orbit Blade", Description: "Adds a spinning blade."},
			{Kind: "stat", ID: "max-hp", Name: "Vitality", Description: "+20 max HP."},
		},
	})
	if err != nil {
		t.Fatalf("encode upgrade_show: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode upgrade_show: %v", err)
	}
	show, ok := decoded.(UpgradeShowMessage)
	if !ok {
		t.Fatalf("expected UpgradeShowMessage, got %T", decoded)
	}
	if len(show.Choices) != 2 || show.Choices[0].ID != "orbit-blade" || show.Choices[1].Kind != "stat" {
		t.Fatalf("choices lost in round trip: %+v", show.Choices)
	}
}
