package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aetheria.game/internal/authoritytest"
	"aetheria.game/internal/gateway"
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
	"aetheria.game/internal/world"
)

type memStore struct {
	mu    sync.Mutex
	w     protocol.World
	ok    bool
	saves int
}

func (s *memStore) SaveWorld(w protocol.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.ok = w, true
	s.saves++
	return nil
}

func (s *memStore) LoadWorld() (protocol.World, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.ok, nil
}

type failingSource struct{}

var errDown = errors.New("authority down")

func (failingSource) FetchWorld(context.Context) (protocol.World, error) {
	return protocol.World{}, errDown
}
func (failingSource) FetchRaid(context.Context, *session.Session) (protocol.RaidState, error) {
	return protocol.RaidState{}, errDown
}
func (failingSource) FetchContract(context.Context, *session.Session) (protocol.ContractState, error) {
	return protocol.ContractState{}, errDown
}

func newGateway(t *testing.T, w protocol.World) (*authoritytest.Server, *gateway.Client) {
	t.Helper()
	auth := authoritytest.New(w)
	t.Cleanup(auth.Close)
	gw, err := gateway.New(gateway.Config{BaseURL: auth.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	return auth, gw
}

func TestRefreshWorld_BuildsIndexAndClampsHero(t *testing.T) {
	_, gw := newGateway(t, protocol.World{
		Width:        10,
		Height:       6,
		Battlefields: []protocol.Point{{Name: "Champ", X: 9, Y: 5}},
	})
	sess, err := session.New(protocol.LoginResponse{
		Username:        "Arin",
		ActionPoints:    3,
		MaxActionPoints: 20,
		StartPosition:   &protocol.Position{X: 40, Y: 40},
	}, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	store := &memStore{}
	m := New(gw, Config{Store: store})
	m.SetSession(sess)

	var swapped *world.Index
	m.OnWorld(func(ix *world.Index) { swapped = ix })
	if err := m.RefreshWorld(context.Background()); err != nil {
		t.Fatalf("RefreshWorld: %v", err)
	}
	ix := m.Index()
	if ix == nil || swapped != ix {
		t.Fatalf("index not installed")
	}
	if got := ix.Lookup(9, 5); got.Kind != world.KindBattlefield {
		t.Fatalf("Lookup(9,5) = %+v", got)
	}
	h := sess.Hero()
	if h.X != 9 || h.Y != 5 || h.Location != "Champ" {
		t.Fatalf("hero not clamped into bounds: %+v", h)
	}
	if store.saves != 1 {
		t.Fatalf("world not cached, saves=%d", store.saves)
	}
}

func TestRefreshWorld_FallsBackToStore(t *testing.T) {
	store := &memStore{}
	_ = store.SaveWorld(protocol.World{Width: 4, Height: 4})
	m := New(failingSource{}, Config{Store: store})

	if err := m.RefreshWorld(context.Background()); !errors.Is(err, errDown) {
		t.Fatalf("RefreshWorld err = %v", err)
	}
	ix := m.Index()
	if ix == nil || ix.Width() != 4 {
		t.Fatalf("cached world not installed: %+v", ix)
	}

	// A later failure keeps whatever is installed.
	m.Install(protocol.World{Width: 8, Height: 8})
	_ = m.RefreshWorld(context.Background())
	if m.Index().Width() != 8 {
		t.Fatalf("stale world replaced by cache after failure")
	}
}

func TestLoops_RefreshRaidAndSurviveFailures(t *testing.T) {
	auth, gw := newGateway(t, protocol.World{Width: 5, Height: 5})
	auth.SetRaid(protocol.RaidState{Name: "Hydre", Level: 3, HP: 77, MaxHP: 900})

	sess, err := session.New(protocol.LoginResponse{Username: "Arin", ActionPoints: 3, MaxActionPoints: 20}, nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	m := New(gw, Config{
		WorldInterval:    10 * time.Millisecond,
		RaidInterval:     10 * time.Millisecond,
		ContractInterval: 10 * time.Millisecond,
	})
	m.SetSession(sess)
	m.Start(context.Background())
	defer m.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := sess.State()
		if st.Raid != nil && st.Raid.HP == 77 && st.Contract != nil && m.Index() != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("loops never refreshed: raid=%+v contract=%+v", st.Raid, st.Contract)
		}
		time.Sleep(5 * time.Millisecond)
	}

	auth.Close()
	time.Sleep(50 * time.Millisecond)
	if st := sess.State(); st.Raid == nil || st.Raid.HP != 77 {
		t.Fatalf("failed refresh cleared the raid: %+v", st.Raid)
	}
	if m.Index() == nil {
		t.Fatalf("failed refresh cleared the index")
	}
}

func TestRefresh_WithoutSessionIsNoop(t *testing.T) {
	m := New(failingSource{}, Config{})
	if err := m.RefreshRaid(context.Background()); err != nil {
		t.Fatalf("RefreshRaid: %v", err)
	}
	if err := m.RefreshContract(context.Background()); err != nil {
		t.Fatalf("RefreshContract: %v", err)
	}
	m.Close()
}
