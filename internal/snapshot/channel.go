// Package snapshot consumes the authority's push feed and merges each
// consolidated snapshot into the active session, one category at a time.
package snapshot

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"aetheria.game/internal/logging"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

const DefaultReconnectDelay = 2 * time.Second

type Config struct {
	URL string
	// ReconnectDelay is a fixed wait between connection attempts.
	ReconnectDelay time.Duration
	// Validator, when set, rejects snapshots that fail the wire schema.
	Validator *protocol.Validator
	Logger    logrus.FieldLogger
}

type Status struct {
	Connected bool
	LastError string
	Received  uint64
	Applied   uint64
	Ignored   uint64
	Rejected  uint64
}

type Channel struct {
	cfg Config
	log logrus.FieldLogger

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	mu        sync.RWMutex
	sess      *session.Session
	conn      *websocket.Conn
	connected bool
	lastErr   string
	received  uint64
	applied   uint64
	ignored   uint64
	rejected  uint64

	appliedNotify chan struct{}
}

func New(cfg Config) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Channel{
		cfg:           cfg,
		log:           log.WithField("component", "snapshot"),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		appliedNotify: make(chan struct{}, 1),
	}
}

// SetSession routes subsequent snapshots to sess. nil detaches, after which
// pushes are counted but dropped.
func (c *Channel) SetSession(sess *session.Session) {
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
}

func (c *Channel) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.Disconnect()
		c.startOnce.Do(func() { close(c.done) })
		<-c.done
	})
}

// Disconnect drops the current socket; the run loop reconnects after the
// configured delay.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Channel) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Connected: c.connected,
		LastError: c.lastErr,
		Received:  c.received,
		Applied:   c.applied,
		Ignored:   c.ignored,
		Rejected:  c.rejected,
	}
}

// Applied is signalled after each snapshot merged into a session. Signals
// coalesce; a reader sees at least one per burst.
func (c *Channel) Applied() <-chan struct{} {
	return c.appliedNotify
}

func (c *Channel) run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		err := c.connectAndReadLoop()
		c.mu.Lock()
		c.connected = false
		if err != nil {
			c.lastErr = err.Error()
		}
		c.mu.Unlock()
		if err != nil {
			c.log.WithError(err).Debug("push channel down")
		}

		select {
		case <-c.stop:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Channel) connectAndReadLoop() error {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.Dial(c.cfg.URL, http.Header{})
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	select {
	case <-c.stop:
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	default:
	}
	c.conn = conn
	c.connected = true
	c.lastErr = ""
	c.mu.Unlock()
	c.log.WithField("url", c.cfg.URL).Info("push channel connected")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			select {
			case <-c.stop:
				return nil
			default:
			}
			return err
		}
		if _, err := c.Handle(msg); err != nil {
			c.log.WithError(err).Debug("snapshot rejected")
		}
	}
}

var ErrMalformed = errors.New("malformed push message")

// Handle decodes one push message and merges it into the attached session.
// It reports whether the message was applied. Messages of any type other than
// snapshot are ignored without error.
func (c *Channel) Handle(raw []byte) (bool, error) {
	c.mu.Lock()
	c.received++
	sess := c.sess
	c.mu.Unlock()

	base, err := protocol.DecodeBase(raw)
	if err != nil {
		c.count(&c.rejected)
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if base.Type != protocol.TypeSnapshot {
		c.count(&c.ignored)
		return false, nil
	}
	if c.cfg.Validator != nil {
		if err := c.cfg.Validator.Validate(protocol.SchemaSnapshot, raw); err != nil {
			c.count(&c.rejected)
			return false, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	msg, err := protocol.DecodeSnapshot(raw)
	if err != nil {
		c.count(&c.rejected)
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sess == nil || !sess.Active() {
		c.count(&c.ignored)
		return false, nil
	}

	replaced := Apply(sess, msg)
	c.count(&c.applied)
	c.log.WithField("categories", len(replaced)).Debug("snapshot applied")
	select {
	case c.appliedNotify <- struct{}{}:
	default:
	}
	return true, nil
}

func (c *Channel) count(n *uint64) {
	c.mu.Lock()
	*n++
	c.mu.Unlock()
}
