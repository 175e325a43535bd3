package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"aetheria.game/internal/client"
	"aetheria.game/internal/config"
	"aetheria.game/internal/gateway"
	"aetheria.game/internal/journal"
	"aetheria.game/internal/journal/cachedb"
	"aetheria.game/internal/logging"
	"aetheria.game/internal/mirror"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
	"aetheria.game/internal/snapshot"
	"aetheria.game/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to client.yaml (optional)")
		user       = flag.String("user", "", "username to sign in with at startup")
		password   = flag.String("password", "", "password (or set AETHERIA_PASSWORD)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildApp(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup")
	}
	defer rt.Close()

	worldSwapped := make(chan struct{}, 1)
	rt.mirror.OnWorld(func(*world.Index) { signal1(worldSwapped) })
	rt.mirror.Start(ctx)
	rt.push.Start()

	pass := *password
	if pass == "" {
		pass = os.Getenv("AETHERIA_PASSWORD")
	}
	if *user != "" {
		if _, err := rt.client.Login(ctx, *user, pass); err != nil {
			fmt.Fprintf(os.Stdout, "login failed: %s\n", gateway.Message(err))
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	r := repl{
		g:       clientGame{rt.client},
		render:  func(w io.Writer) error { return rt.client.View().Render(w) },
		out:     os.Stdout,
		lines:   lines,
		pushed:  rt.push.Applied(),
		swapped: worldSwapped,
	}
	r.run(ctx)
}

// repl reads commands and redraws the view after each command and after
// each push or world refresh.
type repl struct {
	g       game
	render  func(io.Writer) error
	out     io.Writer
	lines   <-chan string
	pushed  <-chan struct{}
	swapped <-chan struct{}
}

func (r repl) run(ctx context.Context) {
	r.redraw()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.pushed:
			r.redraw()
		case <-r.swapped:
			r.redraw()
		case line, ok := <-r.lines:
			if !ok {
				return
			}
			quit, err := dispatch(ctx, r.g, line)
			if err != nil {
				fmt.Fprintf(r.out, "%s\n", gateway.Message(err))
			}
			if quit {
				return
			}
			r.redraw()
		}
	}
}

func (r repl) redraw() {
	_ = r.render(r.out)
	fmt.Fprint(r.out, "> ")
}

// signal1 makes a non-blocking send on a one-slot channel.
func signal1(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

type app struct {
	client  *client.Client
	mirror  *mirror.Mirror
	push    *snapshot.Channel
	journal *journal.Journal
	cache   *cachedb.DB
	log     logrus.FieldLogger
}

func buildApp(cfg config.Config, logger *logrus.Logger) (*app, error) {
	rt := &app{log: logger}
	var observers session.Observers

	if dir := strings.TrimSpace(cfg.Journal.Dir); dir != "" {
		j, err := journal.Open(dir, journal.Options{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		rt.journal = j
		observers = append(observers, j)
	}
	var (
		store   mirror.Store
		catalog client.CatalogStore
	)
	if path := strings.TrimSpace(cfg.Journal.DBPath); path != "" {
		db, err := cachedb.OpenSQLite(path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open cache db: %w", err)
		}
		rt.cache = db
		store = db
		catalog = db
		observers = append(observers, db)
	}

	gw, err := gateway.New(gateway.Config{BaseURL: cfg.APIBase, Timeout: cfg.RequestTimeout, Logger: logger})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.mirror = mirror.New(gw, mirror.Config{
		WorldInterval:    cfg.WorldRefresh,
		RaidInterval:     cfg.RaidRefresh,
		ContractInterval: cfg.ContractRefresh,
		Store:            store,
		Logger:           logger,
	})

	pushCfg := snapshot.Config{URL: cfg.WSURL, ReconnectDelay: cfg.PushReconnectDelay, Logger: logger}
	if cfg.ValidateSnapshots {
		v, err := protocol.NewValidator()
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("load schemas: %w", err)
		}
		pushCfg.Validator = v
	}
	rt.push = snapshot.New(pushCfg)

	var obs session.Observer
	if len(observers) > 0 {
		obs = observers
	}
	rt.client, err = client.New(client.Config{
		Gateway:  gw,
		Mirror:   rt.mirror,
		Push:     rt.push,
		Observer: obs,
		Catalog:  catalog,
		Logger:   logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close stops background work before the sinks it writes to.
func (rt *app) Close() {
	if rt.client != nil {
		rt.client.Logout()
	}
	if rt.push != nil {
		rt.push.Close()
	}
	if rt.mirror != nil {
		rt.mirror.Close()
	}
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			rt.log.WithError(err).Warn("close cache db")
		}
	}
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.log.WithError(err).Warn("close journal")
		}
	}
}
