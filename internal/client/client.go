// Package client turns player intents into gateway calls and local effects
// against one signed-in session. It owns the session lifecycle and wires the
// world mirror and push channel to it.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aetheria.game/internal/economy"
	"aetheria.game/internal/gateway"
	"aetheria.game/internal/logging"
	"aetheria.game/internal/mirror"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/quickbattle"
	"aetheria.game/internal/session"
	"aetheria.game/internal/snapshot"
	"aetheria.game/internal/view"
	"aetheria.game/internal/world"
)

var ErrNoWorld = errors.New("world not loaded yet")

type Config struct {
	Gateway *gateway.Client
	Mirror  *mirror.Mirror
	// Push is optional; without it shared state only changes via responses
	// and refreshes.
	Push *snapshot.Channel
	// Observer receives every slice write of every session (journal, cache).
	Observer session.Observer
	// Catalog, when set, supplies the last saved item catalog if the
	// authority cannot be read at login.
	Catalog CatalogStore
	RNG     quickbattle.RNG
	Logger  logrus.FieldLogger
	Now     func() time.Time
}

type CatalogStore interface {
	LoadCatalog() (protocol.Options, bool, error)
}

type Client struct {
	gw     *gateway.Client
	mirror *mirror.Mirror
	push   *snapshot.Channel
	obs    session.Observer
	cat    CatalogStore
	econ   *economy.Economy
	rng    quickbattle.RNG
	log    logrus.FieldLogger
	now    func() time.Time

	mu   sync.RWMutex
	sess *session.Session
}

func New(cfg Config) (*Client, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("client: missing gateway")
	}
	if cfg.Mirror == nil {
		cfg.Mirror = mirror.New(cfg.Gateway, mirror.Config{Logger: cfg.Logger})
	}
	if cfg.RNG == nil {
		cfg.RNG = quickbattle.NewRNG()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		gw:     cfg.Gateway,
		mirror: cfg.Mirror,
		push:   cfg.Push,
		obs:    cfg.Observer,
		cat:    cfg.Catalog,
		econ:   economy.New(cfg.Gateway),
		rng:    cfg.RNG,
		log:    log.WithField("component", "client"),
		now:    cfg.Now,
	}, nil
}

// Session is the active session, or nil when signed out.
func (c *Client) Session() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

func (c *Client) Mirror() *mirror.Mirror { return c.mirror }

// View projects the current session.
func (c *Client) View() view.View {
	sess := c.Session()
	if sess == nil {
		return view.Project(session.State{}, c.mirror.Index(), c.now())
	}
	return view.Project(sess.State(), c.mirror.Index(), c.now())
}

// Login authenticates, seeds a fresh session and places the hero. Any
// previous session is closed first.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	bundle, err := c.gw.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(bundle, c.obs)
	if err != nil {
		return nil, err
	}

	c.Logout()

	if c.mirror.Index() == nil {
		if err := c.mirror.RefreshWorld(ctx); err != nil {
			c.log.WithError(err).Debug("world refresh at login")
		}
	}
	if w, ok := c.mirror.World(); ok {
		x, y := PlaceHero(w, bundle)
		ix := c.mirror.Index()
		sess.SetPosition(x, y, ix.Lookup(x, y).Name, session.Local())
	}
	if _, err := c.gw.FetchOptions(ctx, sess); err != nil {
		c.log.WithError(err).Debug("catalog fetch at login")
		c.loadCachedCatalog(sess)
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	c.mirror.SetSession(sess)
	if c.push != nil {
		c.push.SetSession(sess)
	}

	cur, max := sess.ActionPoints()
	sess.SetStatus(fmt.Sprintf("Welcome %s. %d/%d PA.", sess.Identity(), cur, max))
	c.activity(sess, "Signed in as %s", sess.Identity())
	c.log.WithField("identity", sess.Identity()).Info("signed in")
	return sess, nil
}

func (c *Client) loadCachedCatalog(sess *session.Session) {
	if c.cat == nil {
		return
	}
	cat, ok, err := c.cat.LoadCatalog()
	if err != nil {
		c.log.WithError(err).Warn("load cached catalog")
		return
	}
	if !ok {
		return
	}
	sess.ReplaceCatalog(cat, session.Local())
	c.log.WithField("items", len(cat.Items)).Info("catalog loaded from local cache")
}

// Logout discards the session. Late responses and pushes for it are dropped.
func (c *Client) Logout() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess == nil {
		return
	}
	c.mirror.SetSession(nil)
	if c.push != nil {
		c.push.SetSession(nil)
	}
	sess.Close()
	c.log.WithField("identity", sess.Identity()).Info("signed out")
}

// PlaceHero picks the login position: the starting village named in the
// profile, else the server's start position, else the first starting
// village. The result is clamped to the world.
func PlaceHero(w protocol.World, bundle protocol.LoginResponse) (int, int) {
	ix := world.BuildIndex(w)
	if name := strings.TrimSpace(bundle.Profile.StartingVillage); name != "" {
		for _, v := range w.StartingVillages {
			if v.Name == name {
				return ix.Clamp(v.X, v.Y)
			}
		}
	}
	if p := bundle.StartPosition; p != nil {
		return ix.Clamp(p.X, p.Y)
	}
	if len(w.StartingVillages) > 0 {
		v := w.StartingVillages[0]
		return ix.Clamp(v.X, v.Y)
	}
	return ix.Clamp(0, 0)
}

func (c *Client) active() (*session.Session, error) {
	sess := c.Session()
	if sess == nil || !sess.Active() {
		return nil, economy.ErrSignedOut
	}
	return sess, nil
}

func (c *Client) activity(sess *session.Session, format string, args ...any) {
	sess.LogActivity(c.now(), fmt.Sprintf(format, args...))
}

// fail records a failed intent on the status line and returns err unchanged.
func (c *Client) fail(sess *session.Session, op string, err error) error {
	if sess != nil {
		sess.SetStatus(statusFor(err))
	}
	c.log.WithError(err).WithFields(logrus.Fields{"op": op, "code": gateway.Code(err)}).Debug("intent failed")
	return err
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, economy.ErrNoActionPoints):
		return "Not enough action points."
	case errors.Is(err, economy.ErrSignedOut):
		return "Sign in first."
	case errors.Is(err, ErrNoWorld):
		return "The map is still loading."
	case errors.Is(err, session.ErrTokenExpired):
		return "Your session expired. Sign in again."
	}
	return gateway.Message(err)
}
