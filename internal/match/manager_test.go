package match

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game"
	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type recordingSink struct {
	mu        sync.Mutex
	summaries []game.Summary
}

func (s *recordingSink) SaveSummary(_ context.Context, sum game.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
	return nil
}

func (s *recordingSink) saved() []game.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]game.Summary(nil), s.summaries...)
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	cat, err := cards.Default()
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	engine := game.NewEngine(cat, game.DefaultRules(), logger)
	opts = append([]Option{
		WithTokenCost(bcrypt.MinCost),
		WithSeedSource(func() int64 { return 42 }),
	}, opts...)
	return NewManager(engine, logger, opts...)
}

// startMatch creates a match and fills both seats.
func startMatch(t *testing.T, m *Manager) (att, def Ticket) {
	t.Helper()
	att, err := m.Create(rules.RoleAttacker, "p1", "Mallory")
	require.NoError(t, err)
	def, err = m.Join(att.MatchID, "p2", "Trent")
	require.NoError(t, err)
	return att, def
}

func TestCreateAndJoin(t *testing.T) {
	m := newTestManager(t)

	att, err := m.Create(rules.RoleAttacker, "p1", "Mallory")
	require.NoError(t, err)
	assert.Equal(t, rules.RoleAttacker, att.Role)
	assert.NotEmpty(t, att.Token)

	state, err := m.State(att.MatchID)
	require.NoError(t, err)
	assert.Equal(t, rules.PhaseSetup, state.Phase)

	_, err = m.Apply(context.Background(), att.MatchID, att.Token, rules.MoveEndTurn)
	assert.ErrorIs(t, err, ErrNotStarted)

	def, err := m.Join(att.MatchID, "p2", "Trent")
	require.NoError(t, err)
	assert.Equal(t, rules.RoleDefender, def.Role)
	assert.NotEqual(t, att.Token, def.Token)

	state, err = m.State(att.MatchID)
	require.NoError(t, err)
	assert.Equal(t, rules.PhasePlaying, state.Phase)
	assert.Equal(t, "p1", state.Attacker.ID)
	assert.Equal(t, "p2", state.Defender.ID)

	_, err = m.Join(att.MatchID, "p3", "Eve")
	assert.ErrorIs(t, err, ErrSeatTaken)
}

func TestJoinRejectsSamePlayerTwice(t *testing.T) {
	m := newTestManager(t)
	def, err := m.Create(rules.RoleDefender, "p1", "")
	require.NoError(t, err)

	_, err = m.Join(def.MatchID, "p1", "")
	assert.ErrorIs(t, err, ErrSeatTaken)

	att, err := m.Join(def.MatchID, "p2", "")
	require.NoError(t, err)
	assert.Equal(t, rules.RoleAttacker, att.Role)
}

func TestCreateValidatesInput(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create("spectator", "p1", "")
	assert.Error(t, err)
	_, err = m.Create(rules.RoleAttacker, "", "")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t)
	att, def := startMatch(t, m)

	role, err := m.Authenticate(att.MatchID, att.Token)
	require.NoError(t, err)
	assert.Equal(t, rules.RoleAttacker, role)

	role, err = m.Authenticate(att.MatchID, def.Token)
	require.NoError(t, err)
	assert.Equal(t, rules.RoleDefender, role)

	_, err = m.Authenticate(att.MatchID, "forged")
	assert.ErrorIs(t, err, ErrBadToken)
	_, err = m.Authenticate(att.MatchID, "")
	assert.ErrorIs(t, err, ErrBadToken)
	_, err = m.Authenticate("nope", att.Token)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestApplyMoves(t *testing.T) {
	m := newTestManager(t)
	att, def := startMatch(t, m)
	ctx := context.Background()

	out, err := m.Apply(ctx, att.MatchID, def.Token, rules.MoveEndTurn)
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.NotEmpty(t, out.Message)

	out, err = m.Apply(ctx, att.MatchID, att.Token, rules.MoveEndTurn)
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, "Defender's turn", out.Message)
	assert.Equal(t, rules.RoleAttacker, out.View.Viewer)

	state, err := m.State(att.MatchID)
	require.NoError(t, err)
	assert.Equal(t, rules.RoleDefender, state.Turn.Current)

	_, err = m.Apply(ctx, "nope", att.Token, rules.MoveEndTurn)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, err = m.Apply(ctx, att.MatchID, "forged", rules.MoveEndTurn)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestApplyOrdersConcurrentMoves(t *testing.T) {
	m := newTestManager(t)
	att, _ := startMatch(t, m)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.Apply(context.Background(), att.MatchID, att.Token, rules.MoveEndTurn)
			if err == nil && out.Accepted {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	state, err := m.State(att.MatchID)
	require.NoError(t, err)
	assert.Equal(t, rules.RoleDefender, state.Turn.Current)
}

func TestGameOverPersistsSummaryAndReplay(t *testing.T) {
	dir := t.TempDir()
	sink := &recordingSink{}
	recorder := game.NewReplayRecorder(zaptest.NewLogger(t), dir)
	m := newTestManager(t, WithSummarySink(sink), WithRecorder(recorder))

	notes := make(chan Notification, 16)
	m.SetNotificationHandler(func(n Notification) { notes <- n })

	att, def := startMatch(t, m)
	ctx := context.Background()
	_, err := m.Apply(ctx, att.MatchID, att.Token, rules.MoveEndTurn)
	require.NoError(t, err)
	out, err := m.Apply(ctx, att.MatchID, def.Token, rules.MoveSurrender)
	require.NoError(t, err)
	require.True(t, out.Accepted)

	saved := sink.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, att.MatchID, saved[0].MatchID)
	assert.Equal(t, rules.RoleAttacker, saved[0].Winner)
	assert.Len(t, saved[0].Players, 2)

	_, err = os.Stat(filepath.Join(dir, att.MatchID+".replay"))
	require.NoError(t, err)
	replay, err := recorder.Load(att.MatchID)
	require.NoError(t, err)
	assert.Equal(t, 3, replay.Size())
	require.NoError(t, replay.Verify(m.engine))

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for !seen[NotifyGameOver] {
		select {
		case n := <-notes:
			assert.Equal(t, att.MatchID, n.MatchID)
			seen[n.Type] = true
		case <-timeout:
			t.Fatalf("notifications seen so far: %v", seen)
		}
	}

	// The match stays over and no second summary is written.
	out, err = m.Apply(ctx, att.MatchID, att.Token, rules.MoveSurrender)
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Len(t, sink.saved(), 1)
}

func TestViewRedactsOpponentHand(t *testing.T) {
	m := newTestManager(t)
	att, _ := startMatch(t, m)

	view, err := m.View(att.MatchID, rules.RoleAttacker)
	require.NoError(t, err)
	assert.NotEmpty(t, view.You.Hand)
	assert.Empty(t, view.Opponent.Hand)
	assert.Positive(t, view.Opponent.HandCount)

	_, err = m.View("nope", rules.RoleAttacker)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestListAndRemove(t *testing.T) {
	m := newTestManager(t)
	att, _ := startMatch(t, m)
	waiting, err := m.Create(rules.RoleDefender, "p3", "Eve")
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	byID := map[string]Info{}
	for _, info := range list {
		byID[info.ID] = info
	}
	assert.Len(t, byID[att.MatchID].Seats, 2)
	assert.Equal(t, rules.PhasePlaying.String(), byID[att.MatchID].Phase)
	require.Len(t, byID[waiting.MatchID].Seats, 1)
	assert.Equal(t, rules.RoleDefender, byID[waiting.MatchID].Seats[0].Role)

	m.Remove(att.MatchID)
	_, err = m.State(att.MatchID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Len(t, m.List(), 1)
}

func TestAuthenticateCachesVerifiedTokens(t *testing.T) {
	m := newTestManager(t)
	att, def := startMatch(t, m)
	hm, err := m.get(att.MatchID)
	require.NoError(t, err)

	sessions := func() int {
		hm.mu.Lock()
		defer hm.mu.Unlock()
		return len(hm.sessions)
	}
	assert.Zero(t, sessions())

	role, err := m.Authenticate(att.MatchID, att.Token)
	require.NoError(t, err)
	assert.Equal(t, rules.RoleAttacker, role)
	assert.Equal(t, 1, sessions())

	_, err = m.Authenticate(att.MatchID, "forged")
	assert.ErrorIs(t, err, ErrBadToken)
	assert.Equal(t, 1, sessions())

	// Once verified, a token no longer needs its hash.
	hm.mu.Lock()
	hm.seats[rules.RoleAttacker].tokenHash = []byte("not a bcrypt hash")
	hm.mu.Unlock()
	out, err := m.Apply(context.Background(), att.MatchID, att.Token, rules.MoveEndTurn)
	require.NoError(t, err)
	assert.True(t, out.Accepted, out.Message)

	role, err = m.Authenticate(def.MatchID, def.Token)
	require.NoError(t, err)
	assert.Equal(t, rules.RoleDefender, role)
	assert.Equal(t, 2, sessions())
}

func TestSurrenderBeforeOpponentJoins(t *testing.T) {
	m := newTestManager(t)
	got := make(chan Notification, 1)
	m.SetNotificationHandler(func(n Notification) { got <- n })

	def, err := m.Create(rules.RoleDefender, "p1", "Trent")
	require.NoError(t, err)

	out, err := m.Apply(context.Background(), def.MatchID, def.Token, rules.MoveSurrender)
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Equal(t, "Defender left before the match started", out.Message)

	select {
	case n := <-got:
		assert.Equal(t, NotifyAbandoned, n.Type)
		assert.Equal(t, def.MatchID, n.MatchID)
	case <-time.After(2 * time.Second):
		t.Fatal("no abandon notification")
	}

	_, err = m.State(def.MatchID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
	_, err = m.Join(def.MatchID, "p2", "Mallory")
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Empty(t, m.List())
}
