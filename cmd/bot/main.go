package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"aetheria.game/internal/client"
	"aetheria.game/internal/config"
	"aetheria.game/internal/economy"
	"aetheria.game/internal/gateway"
	"aetheria.game/internal/logging"
	"aetheria.game/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to client.yaml (optional)")
		name       = flag.String("name", "bot", "username")
		password   = flag.String("password", "", "password (or set AETHERIA_PASSWORD)")
		every      = flag.Duration("every", 5*time.Second, "delay between turns")
		exploreP   = flag.Float64("explore", 0.3, "chance to explore instead of moving")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	log := logger.WithFields(logrus.Fields{"component": "bot", "name": *name})

	gw, err := gateway.New(gateway.Config{BaseURL: cfg.APIBase, Timeout: cfg.RequestTimeout, Logger: logger})
	if err != nil {
		log.WithError(err).Fatal("gateway")
	}
	c, err := client.New(client.Config{Gateway: gw, Logger: logger})
	if err != nil {
		log.WithError(err).Fatal("client")
	}
	defer c.Logout()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pass := *password
	if pass == "" {
		pass = os.Getenv("AETHERIA_PASSWORD")
	}
	sess, err := c.Login(ctx, *name, pass)
	if err != nil {
		log.WithError(err).Fatal("login")
	}
	cur, max := sess.ActionPoints()
	log.WithFields(logrus.Fields{"pa": cur, "max_pa": max}).Info("signed in")

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	t := time.NewTicker(*every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := turn(ctx, c, r, *exploreP); err != nil {
			if errors.Is(err, economy.ErrNoActionPoints) {
				log.Debug("out of PA; waiting for recharge")
				continue
			}
			log.WithError(err).Warn("turn failed")
			continue
		}
		h := c.Session().Hero()
		cur, _ := c.Session().ActionPoints()
		log.WithFields(logrus.Fields{"x": h.X, "y": h.Y, "pa": cur, "xp": h.XP, "level": h.Level}).Info("turn")
	}
}

// turn either explores the current tile or walks one random offered step.
func turn(ctx context.Context, c *client.Client, r *rand.Rand, exploreP float64) error {
	if r.Float64() < exploreP {
		_, err := c.Explore(ctx)
		return err
	}
	ix := c.Mirror().Index()
	if ix == nil {
		return client.ErrNoWorld
	}
	h := c.Session().Hero()
	moves := ix.Moves(h.X, h.Y)
	if len(moves) == 0 {
		return nil
	}
	_, err := c.Move(ctx, pick(moves, r).Dir)
	return err
}

func pick(moves []world.Move, r *rand.Rand) world.Move {
	return moves[r.Intn(len(moves))]
}
