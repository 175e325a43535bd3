// Package mirror keeps a periodically refreshed read-only copy of the world
// geometry and, while a session is attached, of the raid and contract. Each
// refresh runs on its own fixed-interval loop; a failed refresh is logged and
// the stale copy stays in place.
package mirror

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"aetheria.game/internal/logging"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
	"aetheria.game/internal/world"
)

const (
	DefaultWorldInterval    = 60 * time.Second
	DefaultRaidInterval     = 20 * time.Second
	DefaultContractInterval = 45 * time.Second
)

// Source is the read side of the request gateway.
type Source interface {
	FetchWorld(ctx context.Context) (protocol.World, error)
	FetchRaid(ctx context.Context, sess *session.Session) (protocol.RaidState, error)
	FetchContract(ctx context.Context, sess *session.Session) (protocol.ContractState, error)
}

// Store persists the last good world so a later start can draw the map
// before the authority answers.
type Store interface {
	SaveWorld(w protocol.World) error
	LoadWorld() (protocol.World, bool, error)
}

type Config struct {
	WorldInterval    time.Duration
	RaidInterval     time.Duration
	ContractInterval time.Duration
	Store            Store
	Logger           logrus.FieldLogger
}

type Mirror struct {
	src Source
	cfg Config
	log logrus.FieldLogger

	index atomic.Pointer[world.Index]
	world atomic.Pointer[protocol.World]
	sess  atomic.Pointer[session.Session]

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	onWorld func(*world.Index)
}

func New(src Source, cfg Config) *Mirror {
	if cfg.WorldInterval <= 0 {
		cfg.WorldInterval = DefaultWorldInterval
	}
	if cfg.RaidInterval <= 0 {
		cfg.RaidInterval = DefaultRaidInterval
	}
	if cfg.ContractInterval <= 0 {
		cfg.ContractInterval = DefaultContractInterval
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Mirror{src: src, cfg: cfg, log: log.WithField("component", "mirror")}
}

// SetSession attaches the session whose raid and contract slices the loops
// refresh and whose hero is kept inside the world bounds. nil detaches.
func (m *Mirror) SetSession(sess *session.Session) {
	m.sess.Store(sess)
	if sess != nil {
		m.clampHero(sess, m.index.Load())
	}
}

// OnWorld registers fn to run after every index swap. Call it before Start.
func (m *Mirror) OnWorld(fn func(*world.Index)) { m.onWorld = fn }

// Index is the current spatial index, or nil before the first refresh.
func (m *Mirror) Index() *world.Index { return m.index.Load() }

// World returns the geometry behind Index.
func (m *Mirror) World() (protocol.World, bool) {
	w := m.world.Load()
	if w == nil {
		return protocol.World{}, false
	}
	return *w, true
}

// RefreshWorld fetches the geometry and swaps in a new index. When the fetch
// fails and no world is loaded yet, the stored copy is used instead and the
// fetch error is still returned.
func (m *Mirror) RefreshWorld(ctx context.Context) error {
	w, err := m.src.FetchWorld(ctx)
	if err != nil {
		if m.index.Load() == nil && m.cfg.Store != nil {
			if cached, ok, lerr := m.cfg.Store.LoadWorld(); lerr == nil && ok {
				m.install(cached)
				m.log.WithField("width", cached.Width).Info("world loaded from local cache")
			}
		}
		return err
	}
	m.install(w)
	if m.cfg.Store != nil {
		if err := m.cfg.Store.SaveWorld(w); err != nil {
			m.log.WithError(err).Warn("cache world")
		}
	}
	return nil
}

// Install swaps in w without a round trip.
func (m *Mirror) Install(w protocol.World) { m.install(w) }

func (m *Mirror) install(w protocol.World) {
	ix := world.BuildIndex(w)
	m.world.Store(&w)
	m.index.Store(ix)
	if sess := m.sess.Load(); sess != nil {
		m.clampHero(sess, ix)
	}
	if m.onWorld != nil {
		m.onWorld(ix)
	}
}

func (m *Mirror) clampHero(sess *session.Session, ix *world.Index) {
	if ix == nil || !sess.Active() {
		return
	}
	h := sess.Hero()
	x, y := ix.Clamp(h.X, h.Y)
	if x == h.X && y == h.Y {
		return
	}
	sess.SetPosition(x, y, ix.Lookup(x, y).Name, session.Local())
}

func (m *Mirror) RefreshRaid(ctx context.Context) error {
	sess := m.sess.Load()
	if sess == nil || !sess.Active() {
		return nil
	}
	_, err := m.src.FetchRaid(ctx, sess)
	return err
}

func (m *Mirror) RefreshContract(ctx context.Context) error {
	sess := m.sess.Load()
	if sess == nil || !sess.Active() {
		return nil
	}
	_, err := m.src.FetchContract(ctx, sess)
	return err
}

// Start runs the three refresh loops until Close. Each loop refreshes once
// immediately, then on its interval.
func (m *Mirror) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		m.cancel = cancel
		m.loop(ctx, "world", m.cfg.WorldInterval, m.RefreshWorld)
		m.loop(ctx, "raid", m.cfg.RaidInterval, m.RefreshRaid)
		m.loop(ctx, "contract", m.cfg.ContractInterval, m.RefreshContract)
	})
}

func (m *Mirror) loop(ctx context.Context, name string, every time.Duration, refresh func(context.Context) error) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			if err := refresh(ctx); err != nil && ctx.Err() == nil {
				m.log.WithError(err).WithField("refresh", name).Debug("refresh failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		m.startOnce.Do(func() {})
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
	})
}
