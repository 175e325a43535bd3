// Package journal records every session slice replacement, with the source
// and request id that produced it, as compressed JSONL. Reading a journal back
// shows when a slow response overwrote a fresher push.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"aetheria.game/internal/logging"
	"aetheria.game/internal/session"
)

const (
	Prefix = "slices"

	// DefaultMaxEntries caps one segment file.
	DefaultMaxEntries = 50_000
)

// Entry is one journal line.
type Entry struct {
	At        time.Time       `json:"at"`
	Identity  string          `json:"identity"`
	Slice     session.Slice   `json:"slice"`
	Source    session.Source  `json:"source"`
	RequestID string          `json:"request_id,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

type Options struct {
	// MaxEntries starts a new segment once the open one holds this many
	// entries. Zero means DefaultMaxEntries.
	MaxEntries int
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// Journal implements session.Observer. Entries go to zstd-compressed JSONL
// segments named <prefix>-<opened>-<seq>.jsonl.zst. A new segment starts on
// every login bundle, on the hour, and when the open one is full, so a
// segment never mixes two sessions.
type Journal struct {
	dir        string
	maxEntries int
	log        logrus.FieldLogger
	now        func() time.Time

	mu  sync.Mutex
	seg *segment
	seq int
}

type segment struct {
	hour    string
	entries int

	f   *os.File
	zw  *zstd.Encoder
	bw  *bufio.Writer
	enc *json.Encoder
}

func Open(dir string, opts Options) (*Journal, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("empty journal dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Journal{
		dir:        dir,
		maxEntries: opts.MaxEntries,
		log:        opts.Logger.WithField("component", "journal"),
		now:        opts.Now,
	}, nil
}

func (j *Journal) SliceReplaced(identity string, slice session.Slice, origin session.Origin, value any) {
	e := Entry{
		Identity:  identity,
		Slice:     slice,
		Source:    origin.Source,
		RequestID: origin.RequestID,
	}
	if value != nil {
		b, err := json.Marshal(value)
		if err != nil {
			j.log.WithError(err).WithField("slice", slice).Warn("journal encode")
			return
		}
		e.Value = b
	}
	if err := j.append(e); err != nil {
		j.log.WithError(err).Warn("journal write")
	}
}

func (j *Journal) append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.At = j.now()
	hour := e.At.Format("2006-01-02-15")
	if j.seg == nil || j.seg.hour != hour || j.seg.entries >= j.maxEntries ||
		(e.Slice == session.SliceBundle && j.seg.entries > 0) {
		if err := j.rotateLocked(e.At); err != nil {
			return err
		}
	}
	if err := j.seg.enc.Encode(e); err != nil {
		return err
	}
	j.seg.entries++
	return j.seg.bw.Flush()
}

func (j *Journal) rotateLocked(at time.Time) error {
	if err := j.closeLocked(); err != nil {
		j.log.WithError(err).Warn("journal segment close")
	}
	j.seq++
	path := filepath.Join(j.dir, fmt.Sprintf("%s-%s-%04d.jsonl.zst", Prefix, at.Format("20060102-150405"), j.seq))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	bw := bufio.NewWriterSize(zw, 16*1024)
	j.seg = &segment{
		hour: at.Format("2006-01-02-15"),
		f:    f,
		zw:   zw,
		bw:   bw,
		enc:  json.NewEncoder(bw),
	}
	j.log.WithField("path", path).Debug("journal segment opened")
	return nil
}

func (j *Journal) closeLocked() error {
	seg := j.seg
	if seg == nil {
		return nil
	}
	j.seg = nil
	err := seg.bw.Flush()
	if cerr := seg.zw.Close(); err == nil {
		err = cerr
	}
	if cerr := seg.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

// ListFiles returns the journal files in dir in chronological order.
func ListFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, Prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadFile decodes every entry in path and passes it to fn. A non-nil error
// from fn stops the scan and is returned.
func ReadFile(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Overwrite flags a response or refresh write that landed after a push to
// the same slice. The data it replaced may have been newer.
type Overwrite struct {
	Slice   session.Slice
	Push    time.Time
	Write   Entry
	Elapsed time.Duration
}

// Overwrites scans entries in order and reports, per slice, every
// request-driven write that follows a push within window.
func Overwrites(entries []Entry, window time.Duration) []Overwrite {
	lastPush := map[session.Slice]time.Time{}
	var out []Overwrite
	for _, e := range entries {
		switch e.Source {
		case session.SourcePush:
			lastPush[e.Slice] = e.At
		case session.SourceResponse, session.SourceRefresh:
			at, ok := lastPush[e.Slice]
			if !ok {
				continue
			}
			if d := e.At.Sub(at); d >= 0 && d <= window {
				out = append(out, Overwrite{Slice: e.Slice, Push: at, Write: e, Elapsed: d})
			}
		}
	}
	return out
}
