// Package gateway is the uniform request/response contract with the game
// authority. Every call validates locally, sends one form-encoded request and,
// on success, replaces the session slices named by the response.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"aetheria.game/internal/economy"
	"aetheria.game/internal/logging"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

const maxResponseBytes = 1 << 20

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
	// RequestID overrides the per-request id generator.
	RequestID func() string
	// Now is the clock used for token expiry and chat mutes.
	Now func() time.Time
}

type Client struct {
	base  string
	http  *http.Client
	log   logrus.FieldLogger
	newID func() string
	now   func() time.Time
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("gateway: missing base url")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("gateway: base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	newID := cfg.RequestID
	if newID == nil {
		newID = uuid.NewString
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		base:  base,
		http:  hc,
		log:   log.WithField("component", "gateway"),
		newID: newID,
		now:   now,
	}, nil
}

type call struct {
	op     string
	method string
	path   string
	form   url.Values
	query  url.Values
}

func post(op, path string, form url.Values) call {
	return call{op: op, method: http.MethodPost, path: path, form: form}
}

func get(op, path string, query url.Values) call {
	return call{op: op, method: http.MethodGet, path: path, query: query}
}

func del(op, path string, query url.Values) call {
	return call{op: op, method: http.MethodDelete, path: path, query: query}
}

// send performs one round trip and decodes the success body into out. The
// returned origin carries the request id for the slice writes that follow.
func (c *Client) send(ctx context.Context, sess *session.Session, k call, out any) (session.Origin, error) {
	id := c.newID()
	origin := session.Origin{Source: session.SourceResponse, RequestID: id}
	if k.method == http.MethodGet {
		origin.Source = session.SourceRefresh
	}

	var bearer string
	if sess != nil {
		tok := sess.Token()
		if !tok.Empty() && tok.Expired(c.now()) {
			return origin, fmt.Errorf("%s: %w", k.op, session.ErrTokenExpired)
		}
		bearer = tok.Raw
	}

	target := c.base + k.path
	if len(k.query) > 0 {
		target += "?" + k.query.Encode()
	}
	var body io.Reader
	if k.form != nil {
		body = strings.NewReader(k.form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, k.method, target, body)
	if err != nil {
		return origin, &TransportError{Op: k.op, Err: err}
	}
	if k.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", id)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	log := c.log.WithFields(logrus.Fields{"op": k.op, "request_id": id})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return origin, &TransportError{Op: k.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.WithError(err).Warn("read response")
		return origin, &TransportError{Op: k.op, Err: err}
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)})

	if resp.StatusCode >= http.StatusBadRequest {
		ae := authorityError(k.op, id, resp.StatusCode, raw)
		log.WithField("code", ae.Code).Info(ae.Message)
		return origin, ae
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			log.WithError(err).Warn("decode response")
			return origin, &TransportError{Op: k.op, Err: fmt.Errorf("decode: %w", err)}
		}
	}
	log.Debug("ok")
	return origin, nil
}

func authorityError(op, id string, status int, raw []byte) *AuthorityError {
	ae := &AuthorityError{Op: op, Status: status, Code: protocol.CodeForStatus(status), RequestID: id}
	var eb protocol.ErrorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error != "" {
		ae.Message = eb.Error
		ae.MissingReady = eb.MissingReady
		ae.MutedUntil = eb.MutedUntil
	} else {
		ae.Message = http.StatusText(status)
	}
	return ae
}

func identityForm(sess *session.Session) url.Values {
	return url.Values{"username": {sess.Identity()}}
}

func requireSession(sess *session.Session) error {
	if sess == nil || !sess.Active() {
		return economy.ErrSignedOut
	}
	return nil
}

// IsSignedOut reports whether err came from an intent against a closed session.
func IsSignedOut(err error) bool {
	return errors.Is(err, economy.ErrSignedOut)
}
