package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"nightswarm/internal/protocol"
)

// wireCatalog exists only for reflection: one field per frame type, so the
// generated schema carries a definition for every message on the wire. The
// relay never validates frames against it; the schema documents the
// contract for client implementations.
type wireCatalog struct {
	Role           protocol.RoleMessage           `json:"role"`
	PlayerList     protocol.PlayerListMessage     `json:"player_list"`
	PeerDisconnect protocol.PeerDisconnectMessage `json:"peer_disconnect"`
	Error          protocol.ErrorMessage          `json:"error"`
	GameStart      protocol.GameStartMessage      `json:"game_start"`
	Input          protocol.InputMessage          `json:"input"`
	State          protocol.StateMessage          `json:"state"`
	UpgradeShow    protocol.UpgradeShowMessage    `json:"upgrade_show"`
	UpgradePick    protocol.UpgradePickMessage    `json:"upgrade_pick"`
	UpgradeDone    protocol.UpgradeDoneMessage    `json:"upgrade_done"`
	BuffPickup     protocol.BuffPickupMessage     `json:"buff_pickup"`
	BossWave       protocol.BossWaveMessage       `json:"boss_wave"`
	GameOver       protocol.GameOverMessage       `json:"game_over"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(wireCatalog))
	schema.Title = "Nightswarm Wire Protocol"
	schema.Description = "Frames exchanged between the host, guests, and the relay."
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
