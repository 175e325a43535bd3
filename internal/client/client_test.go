package client

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"aetheria.game/internal/authoritytest"
	"aetheria.game/internal/economy"
	"aetheria.game/internal/gateway"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
	"aetheria.game/internal/world"
)

func testWorld() protocol.World {
	return protocol.World{
		Width:            20,
		Height:           20,
		StartingVillages: []protocol.Point{{Name: "Village départ 1", X: 2, Y: 2}, {Name: "Village départ 2", X: 15, Y: 15}},
		Battlefields:     []protocol.Point{{Name: "Champ de bataille 1", X: 5, Y: 5}},
	}
}

// fixedRNG always wins and always picks the first battlefield.
type fixedRNG struct{ roll float64 }

func (r fixedRNG) Float64() float64 { return r.roll }
func (fixedRNG) Intn(int) int { return 0 }

type fixture struct {
	auth *authoritytest.Server
	c    *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	auth := authoritytest.New(testWorld())
	t.Cleanup(auth.Close)
	auth.SetMaxPA(20)
	hero := protocol.Hero{Level: 1, HP: 50, MaxHP: 50}
	auth.AddAccount(authoritytest.Account{Username: "Arin", Password: "secret", PA: 14, Hero: hero})
	auth.AddAccount(authoritytest.Account{
		Username: "Beryl", Password: "secret", PA: 5, Hero: hero,
		Profile: protocol.Profile{StartingVillage: "Village départ 2"},
	})
	gw, err := gateway.New(gateway.Config{BaseURL: auth.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	c, err := New(Config{Gateway: gw, RNG: fixedRNG{roll: 0.9}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Logout)
	return &fixture{auth: auth, c: c}
}

func (f *fixture) login(t *testing.T, name string) *session.Session {
	t.Helper()
	sess, err := f.c.Login(context.Background(), name, "secret")
	if err != nil {
		t.Fatalf("Login(%s): %v", name, err)
	}
	return sess
}

func TestLogin_PlacesHero(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "Arin")
	h := sess.Hero()
	if h.X != 2 || h.Y != 2 || h.Location != "Village départ 1" {
		t.Fatalf("hero at (%d,%d) %q", h.X, h.Y, h.Location)
	}
	if sess.Catalog() == nil {
		t.Fatalf("catalog not fetched at login")
	}

	sess = f.login(t, "Beryl")
	h = sess.Hero()
	if h.X != 15 || h.Y != 15 {
		t.Fatalf("profile village ignored: (%d,%d)", h.X, h.Y)
	}
	if f.c.Session() != sess {
		t.Fatalf("second login did not replace the session")
	}
}

func TestPlaceHero_Fallbacks(t *testing.T) {
	w := testWorld()
	cases := []struct {
		name   string
		bundle protocol.LoginResponse
		x, y   int
	}{
		{"profile village", protocol.LoginResponse{Profile: protocol.Profile{StartingVillage: "Village départ 2"}}, 15, 15},
		{"start position clamped", protocol.LoginResponse{StartPosition: &protocol.Position{X: 99, Y: -3}}, 19, 0},
		{"first village", protocol.LoginResponse{Profile: protocol.Profile{StartingVillage: "Nowhere"}}, 2, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x, y := PlaceHero(w, tc.bundle)
			if x != tc.x || y != tc.y {
				t.Fatalf("PlaceHero = (%d,%d), want (%d,%d)", x, y, tc.x, tc.y)
			}
		})
	}
	if x, y := PlaceHero(protocol.World{Width: 4, Height: 4}, protocol.LoginResponse{}); x != 0 || y != 0 {
		t.Fatalf("empty world = (%d,%d)", x, y)
	}
}

func TestMove_DebitsBeforeMoving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.login(t, "Arin")

	if _, err := f.c.Move(ctx, world.East); err != nil {
		t.Fatalf("Move east: %v", err)
	}
	if _, err := f.c.Move(ctx, world.South); err != nil {
		t.Fatalf("Move south: %v", err)
	}
	if cur, max := sess.ActionPoints(); cur != 12 || max != 20 {
		t.Fatalf("PA = %d/%d, want 12/20", cur, max)
	}
	h := sess.Hero()
	if h.X != 3 || h.Y != 3 {
		t.Fatalf("hero at (%d,%d), want (3,3)", h.X, h.Y)
	}

	f.auth.SetPA("Arin", 0)
	if _, err := f.c.Move(ctx, world.East); err == nil {
		t.Fatalf("move with an empty pool succeeded")
	}
	if h := sess.Hero(); h.X != 3 || h.Y != 3 {
		t.Fatalf("failed move changed position to (%d,%d)", h.X, h.Y)
	}
	if cur, _ := sess.ActionPoints(); cur != 12 {
		t.Fatalf("failed move changed PA to %d", cur)
	}
	if got := len(f.auth.RequestsTo("/api/action")); got != 3 {
		t.Fatalf("debit requests = %d, want 3", got)
	}
	for _, r := range f.auth.RequestsTo("/api/action") {
		if r.Form.Has("x") || r.Form.Has("y") {
			t.Fatalf("destination leaked to the authority: %v", r.Form)
		}
	}
}

func TestMove_IllegalDirectionSendsNothing(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "Arin")
	sess.SetPosition(0, 0, "", session.Local())

	_, err := f.c.Move(context.Background(), world.North)
	var ve *gateway.ValidationError
	if !errors.As(err, &ve) || ve.Field != "direction" {
		t.Fatalf("err = %v, want direction validation error", err)
	}
	if got := len(f.auth.RequestsTo("/api/action")); got != 0 {
		t.Fatalf("debit requests = %d", got)
	}
	if cur, _ := sess.ActionPoints(); cur != 14 {
		t.Fatalf("PA = %d", cur)
	}
}

func TestExplore_SendsTileKind(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "Arin")
	sess.SetPosition(5, 5, "Champ de bataille 1", session.Local())

	resp, err := f.c.Explore(context.Background())
	if err != nil {
		t.Fatalf("Explore: %v", err)
	}
	reqs := f.auth.RequestsTo("/api/adventure")
	if len(reqs) != 1 || reqs[0].Form.Get("tile_kind") != "battlefield" {
		t.Fatalf("adventure requests = %+v", reqs)
	}
	if resp.Outcome.XPGain != 20 || sess.Hero().XP != 20 {
		t.Fatalf("outcome not applied: %+v hero %+v", resp.Outcome, sess.Hero())
	}
	if cur, _ := sess.ActionPoints(); cur != 13 {
		t.Fatalf("PA = %d, want 13", cur)
	}
}

func TestQuickBattle_OnlyDebitReachesAuthority(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "Arin")
	before := len(f.auth.Requests())

	o, err := f.c.QuickBattle(context.Background())
	if err != nil {
		t.Fatalf("QuickBattle: %v", err)
	}
	reqs := f.auth.Requests()[before:]
	if len(reqs) != 1 || reqs[0].Path != "/api/action" {
		t.Fatalf("requests after battle = %+v", reqs)
	}
	if !o.Win {
		t.Fatalf("forced roll lost")
	}
	h := sess.Hero()
	if h.XP != 30 || h.Gold != 25 || h.HP != 42 || h.X != 5 || h.Y != 5 {
		t.Fatalf("hero = %+v", h)
	}
	if cur, _ := sess.ActionPoints(); cur != 13 {
		t.Fatalf("PA = %d, want 13", cur)
	}
	if f.auth.PA("Arin") != 13 {
		t.Fatalf("authority PA = %d", f.auth.PA("Arin"))
	}
}

func TestDuel_AbsentOpponentSendsNothing(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "Arin")
	_, err := f.c.Duel(context.Background(), "Beryl")
	var ve *gateway.ValidationError
	if !errors.As(err, &ve) || ve.Field != "opponent" {
		t.Fatalf("err = %v", err)
	}
	if got := len(f.auth.RequestsTo("/api/combat/duel")); got != 0 {
		t.Fatalf("duel requests = %d", got)
	}
	if got := sess.State().Status; got != gateway.Message(err) {
		t.Fatalf("status = %q", got)
	}
}

func TestSignedOut(t *testing.T) {
	f := newFixture(t)
	if _, err := f.c.Move(context.Background(), world.East); !errors.Is(err, economy.ErrSignedOut) {
		t.Fatalf("Move signed out = %v", err)
	}
	if err := f.c.Say(context.Background(), "hello"); !errors.Is(err, economy.ErrSignedOut) {
		t.Fatalf("Say signed out = %v", err)
	}
	if len(f.auth.Requests()) != 0 {
		t.Fatalf("requests sent while signed out")
	}
	if f.c.View().Enabled("move") {
		t.Fatalf("menu enabled while signed out")
	}
}

func TestGuildAndChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.login(t, "Arin")
	if err := f.c.CreateGuild(ctx, "Les Aubes"); err != nil {
		t.Fatalf("CreateGuild: %v", err)
	}
	if sess.Guild() != "Les Aubes" {
		t.Fatalf("guild = %q", sess.Guild())
	}
	if err := f.c.SayGuild(ctx, "salut"); err != nil {
		t.Fatalf("SayGuild: %v", err)
	}
	if err := f.c.LeaveGuild(ctx); err != nil {
		t.Fatalf("LeaveGuild: %v", err)
	}
	if sess.Guild() != "" {
		t.Fatalf("guild after leave = %q", sess.Guild())
	}
	acts := sess.State().Activity
	if len(acts) < 3 {
		t.Fatalf("activity = %+v", acts)
	}
}

type savedCatalog struct {
	opts  protocol.Options
	loads int
}

func (s *savedCatalog) LoadCatalog() (protocol.Options, bool, error) {
	s.loads++
	return s.opts, len(s.opts.Items) > 0, nil
}

func TestLogin_FallsBackToSavedCatalog(t *testing.T) {
	f := newFixture(t)
	f.auth.GiveItem("Arin", "Potion de soin")
	saved := &savedCatalog{opts: protocol.Options{Items: authoritytest.DefaultItems()}}
	gw, err := gateway.New(gateway.Config{BaseURL: f.auth.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	c, err := New(Config{Gateway: gw, Catalog: saved})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Logout)

	f.auth.Fail("/api/options", 503, "Service indisponible")
	sess, err := c.Login(context.Background(), "Arin", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	cat := sess.Catalog()
	if saved.loads != 1 || cat == nil || len(cat.Items) != len(authoritytest.DefaultItems()) {
		t.Fatalf("catalog = %+v after %d loads", cat, saved.loads)
	}

	err = c.Equip(context.Background(), "Potion de soin")
	var ve *gateway.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("equip consumable = %v, want local refusal", err)
	}
	if got := len(f.auth.RequestsTo("/api/equipment/equip")); got != 0 {
		t.Fatalf("equip requests = %d", got)
	}

	// A successful fetch never touches the saved copy.
	if _, err := c.Login(context.Background(), "Arin", "secret"); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if saved.loads != 1 {
		t.Fatalf("saved catalog read %d times", saved.loads)
	}
}

func TestRejectedIntents_KeepHeroAndPA(t *testing.T) {
	cases := []struct {
		name string
		call func(ctx context.Context, c *Client) error
	}{
		{"spend", func(ctx context.Context, c *Client) error { return c.Spend(ctx) }},
		{"explore", func(ctx context.Context, c *Client) error { _, err := c.Explore(ctx); return err }},
		{"quick battle", func(ctx context.Context, c *Client) error { _, err := c.QuickBattle(ctx); return err }},
		{"contract", func(ctx context.Context, c *Client) error { _, err := c.Contribute(ctx); return err }},
		{"duel", func(ctx context.Context, c *Client) error { _, err := c.Duel(ctx, "Beryl"); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			sess := f.login(t, "Arin")
			f.auth.Connect("Beryl")
			sess.ReplacePlayers(map[string]protocol.PlayerPresence{"Arin": {ActionPoints: 14}, "Beryl": {ActionPoints: 5}}, session.Push())
			f.auth.SetPA("Arin", 0)
			before := sess.State()

			err := tc.call(context.Background(), f.c)
			if gateway.Code(err) != protocol.ErrNoResource {
				t.Fatalf("err = %v, want PA shortfall", err)
			}
			after := sess.State()
			if !reflect.DeepEqual(before.Hero, after.Hero) {
				t.Fatalf("hero changed:\nbefore %+v\nafter  %+v", before.Hero, after.Hero)
			}
			if after.ActionPoints != before.ActionPoints || after.MaxActionPoints != before.MaxActionPoints {
				t.Fatalf("PA changed: %d/%d -> %d/%d", before.ActionPoints, before.MaxActionPoints, after.ActionPoints, after.MaxActionPoints)
			}
			if after.Status != gateway.Message(err) {
				t.Fatalf("status = %q", after.Status)
			}
		})
	}
}

func TestCommunityIntents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.login(t, "Arin")

	if err := f.c.VotePoll(ctx, 1); err != nil {
		t.Fatalf("VotePoll: %v", err)
	}
	if err := f.c.Commend(ctx, "Beryl", "merci pour le raid"); err != nil {
		t.Fatalf("Commend: %v", err)
	}
	if err := f.c.ReportChat(ctx, "Beryl", "spam dans le chat"); err != nil {
		t.Fatalf("ReportChat: %v", err)
	}
	st := sess.State()
	if st.Poll.PersonalVote == nil || *st.Poll.PersonalVote != 1 || st.Hero.Gold != 5 {
		t.Fatalf("poll = %+v gold %d", st.Poll, st.Hero.Gold)
	}
	if st.Commendations.Personal.Remaining != 2 {
		t.Fatalf("commendations = %+v", st.Commendations.Personal)
	}
	if len(st.Activity) != 4 {
		t.Fatalf("activity = %q", st.Activity)
	}

	err := f.c.ClaimDaily(ctx)
	if gateway.Code(err) != protocol.ErrConflict || sess.State().Status != gateway.Message(err) {
		t.Fatalf("ClaimDaily = %v, status %q", err, sess.State().Status)
	}

	// Refresh picks up the progress the vote and commendation made.
	if err := f.c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if d := sess.State().Daily; d.Personal == nil || d.Personal.Social != 2 {
		t.Fatalf("daily after refresh = %+v", d)
	}
	for _, path := range []string{"/api/daily", "/api/community/poll", "/api/social/commendations"} {
		reqs := f.auth.RequestsTo(path)
		if len(reqs) != 1 || reqs[0].Form.Get("username") != "Arin" {
			t.Fatalf("%s requests = %+v", path, reqs)
		}
	}
}
