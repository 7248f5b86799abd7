// Package worldcfg validates world-launch configuration payloads against a
// fixed JSON schema before anything is spawned. A payload that fails
// validation aborts the launch transition; the orchestrator never proceeds
// with a partially constructed configuration.
package worldcfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Config is a validated world-launch configuration.
type Config struct {
	// Name identifies the universe; custom archives extract under it.
	Name string `json:"name"`
	// World selects the simulator backend (table in internal/launcher).
	World string `json:"world"`
	// LaunchFile is the simulator scene/launch description to load.
	LaunchFile string `json:"launch_file,omitempty"`
	// Zip optionally carries an embedded base64 world archive.
	Zip string `json:"zip,omitempty"`
	// Image optionally names a container image for the docker launcher
	// backend.
	Image string `json:"image,omitempty"`
}

// HasArchive reports whether the payload embeds a custom world archive.
func (c Config) HasArchive() bool { return c.Zip != "" }

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "world"],
  "properties": {
    "name": {"type": "string", "minLength": 1, "pattern": "^[A-Za-z0-9_.-]+$"},
    "world": {"type": "string", "minLength": 1},
    "launch_file": {"type": "string"},
    "zip": {"type": "string"},
    "image": {"type": "string"}
  }
}`

var schema = mustCompile()

func mustCompile() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("worldcfg: parse schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("launch.json", doc); err != nil {
		panic(fmt.Sprintf("worldcfg: add schema resource: %v", err))
	}
	return c.MustCompile("launch.json")
}

// Validate checks raw against the launch schema and decodes it.
func Validate(raw json.RawMessage) (Config, error) {
	if len(raw) == 0 {
		return Config{}, fmt.Errorf("launch configuration missing")
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("parse launch configuration: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Config{}, fmt.Errorf("invalid launch configuration: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode launch configuration: %w", err)
	}
	return cfg, nil
}
