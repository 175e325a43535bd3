// Command replay reads a slice journal back. It prints per-slice write
// counts by source and lists responses or refreshes that replaced a push
// shortly after it landed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"aetheria.game/internal/journal"
	"aetheria.game/internal/session"
)

type options struct {
	identity string
	slice    string
	window   time.Duration
	dump     bool
}

func main() {
	var (
		dir      = flag.String("journal", "", "journal dir containing slices-*.jsonl.zst")
		identity = flag.String("identity", "", "only entries for this player (optional)")
		slice    = flag.String("slice", "", "only this slice (optional)")
		window   = flag.Duration("window", 2*time.Second, "report request writes landing this soon after a push")
		dump     = flag.Bool("dump", false, "print every entry")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "missing -journal")
		os.Exit(2)
	}
	files, err := journal.ListFiles(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *dir)
		os.Exit(1)
	}
	opts := options{identity: *identity, slice: *slice, window: *window, dump: *dump}
	if err := run(os.Stdout, files, opts); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func run(out io.Writer, files []string, opts options) error {
	var entries []journal.Entry
	for _, path := range files {
		err := journal.ReadFile(path, func(e journal.Entry) error {
			if opts.identity != "" && e.Identity != opts.identity {
				return nil
			}
			if opts.slice != "" && string(e.Slice) != opts.slice {
				return nil
			}
			entries = append(entries, e)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if opts.dump {
		for _, e := range entries {
			id := e.RequestID
			if id == "" {
				id = "-"
			}
			fmt.Fprintf(out, "%s %-10s %-14s %-8s %s %s\n",
				e.At.Format(time.RFC3339Nano), e.Identity, e.Slice, e.Source, id, compact(e.Value))
		}
	}

	counts := map[session.Slice]map[session.Source]int{}
	for _, e := range entries {
		if counts[e.Slice] == nil {
			counts[e.Slice] = map[session.Source]int{}
		}
		counts[e.Slice][e.Source]++
	}
	slices := make([]string, 0, len(counts))
	for s := range counts {
		slices = append(slices, string(s))
	}
	sort.Strings(slices)

	fmt.Fprintf(out, "entries=%s files=%d\n", humanize.Comma(int64(len(entries))), len(files))
	for _, s := range slices {
		c := counts[session.Slice(s)]
		fmt.Fprintf(out, "  %-14s login=%d response=%d push=%d refresh=%d local=%d\n", s,
			c[session.SourceLogin], c[session.SourceResponse], c[session.SourcePush], c[session.SourceRefresh], c[session.SourceLocal])
	}

	over := journal.Overwrites(entries, opts.window)
	fmt.Fprintf(out, "overwrites within %s: %d\n", opts.window, len(over))
	for _, o := range over {
		fmt.Fprintf(out, "  %s %s by %s %s, %s after push\n",
			o.Write.Identity, o.Slice, o.Write.Source, o.Write.RequestID, o.Elapsed)
	}
	return nil
}

// compact shortens a value to 80 characters for the dump.
func compact(raw []byte) string {
	r := []rune(strings.TrimSpace(string(raw)))
	if len(r) > 80 {
		return string(r[:77]) + "..."
	}
	return string(r)
}
