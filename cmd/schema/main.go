// Command schema exports the websocket wire contract as a JSON schema so
// client authors can validate their encoders against the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	server "dodge-royale/server"
)

// wireCatalog collects every message shape that crosses the websocket.
type wireCatalog struct {
	ClientMessage server.ClientMessage       `json:"clientMessage"`
	State         server.StateMessage        `json:"state"`
	Joined        server.JoinedMessage       `json:"joined"`
	PlayerJoined  server.PlayerJoinedMessage `json:"playerJoined"`
	PlayerLeft    server.PlayerLeftMessage   `json:"playerLeft"`
	Heartbeat     server.HeartbeatMessage    `json:"heartbeat"`
}

func main() {
	outPath := flag.String("out", "", "path to write the JSON schema")
	flag.Parse()

	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}
	if err := run(*outPath); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}
}

// run reflects the catalog and writes it through a staging file so a failed
// export never leaves a truncated schema behind.
func run(outPath string) error {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: true}
	schema := reflector.Reflect(new(wireCatalog))
	schema.Title = "Dodge Royale Wire Protocol"
	schema.Description = fmt.Sprintf("Message shapes for protocol version %d", server.ProtocolVersion)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	staged := outPath + ".tmp"
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return fmt.Errorf("stage schema: %w", err)
	}
	if err := os.Rename(staged, outPath); err != nil {
		_ = os.Remove(staged)
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
