// Command admin inspects the local cache database written by the client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"aetheria.game/internal/journal/cachedb"
)

func main() {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dbPath := fs.String("db", "./var/cache.sqlite", "cache sqlite path")
	identity := fs.String("identity", "", "player (required for writes)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(os.Args[1:])

	q := "world"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	db, err := cachedb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := query(os.Stdout, db, q, *identity, *limit); err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

func query(out io.Writer, db *cachedb.DB, q, identity string, limit int) error {
	switch q {
	case "world":
		w, ok, err := db.LoadWorld()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no world cached")
		}
		printJSON(out, struct {
			Width            int    `json:"width"`
			Height           int    `json:"height"`
			StartingVillages int    `json:"starting_villages"`
			Villages         int    `json:"villages"`
			Battlefields     int    `json:"battlefields"`
			Merchants        int    `json:"merchants"`
			UpdatedAt        string `json:"updated_at,omitempty"`
		}{w.Width, w.Height, len(w.StartingVillages), len(w.Villages), len(w.Battlefields), len(w.Merchants), w.UpdatedAt})

	case "catalog":
		c, ok, err := db.LoadCatalog()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no catalog cached")
		}
		for _, it := range c.Items {
			printJSON(out, it)
		}

	case "writes":
		if identity == "" {
			return fmt.Errorf("missing -identity")
		}
		ws, err := db.Writes(context.Background(), identity, limit)
		if err != nil {
			return err
		}
		for _, w := range ws {
			fmt.Fprintf(out, "%-16s %-16s %-8s %s\n", humanize.Time(w.At), w.Slice, w.Source, w.RequestID)
		}

	default:
		return fmt.Errorf("unknown query (want world|catalog|writes)")
	}
	return nil
}

func printJSON(out io.Writer, v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(out, string(b))
}
