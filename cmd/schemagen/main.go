// Command schemagen reflects the wire types into JSON schemas. The output is
// a reference for authority developers; the runtime validator uses the
// hand-tuned schemas embedded in internal/protocol.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"aetheria.game/internal/protocol"
)

type target struct {
	title string
	value any
}

var targets = map[string]target{
	"snapshot":  {"Aetheria snapshot push", new(protocol.SnapshotMsg)},
	"world":     {"Aetheria world map", new(protocol.World)},
	"login":     {"Aetheria login bundle", new(protocol.LoginResponse)},
	"options":   {"Aetheria item catalog", new(protocol.Options)},
	"error":     {"Aetheria error body", new(protocol.ErrorBody)},
	"adventure": {"Aetheria adventure response", new(protocol.AdventureResponse)},
	"raid":      {"Aetheria raid attack response", new(protocol.RaidAttackResponse)},
	"duel":      {"Aetheria duel response", new(protocol.DuelResponse)},
	"daily":     {"Aetheria daily claim response", new(protocol.DailyClaimResponse)},
	"poll":      {"Aetheria poll vote response", new(protocol.PollVoteResponse)},
	"commend":   {"Aetheria commendation response", new(protocol.CommendResponse)},
	"report":    {"Aetheria chat report response", new(protocol.ReportResponse)},
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write <name>.gen.schema.json files into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "-out is required")
		os.Exit(1)
	}
	for _, name := range names() {
		path := filepath.Join(outDir, name+".gen.schema.json")
		if err := writeSchema(path, buildSchema(name)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func names() []string {
	out := make([]string, 0, len(targets))
	for k := range targets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func buildSchema(name string) *jsonschema.Schema {
	t := targets[name]
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(t.value)
	schema.Title = t.title
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
