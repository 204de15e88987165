package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedMove struct {
	role rules.Role
	move rules.Move
	args []string
}

// recordMatch plays moves and records a frame after each.
func recordMatch(t *testing.T) (*matchHarness, *Replay) {
	t.Helper()
	h := newTestMatch(t)
	ids := h.give(rules.RoleAttacker, "A001", "A002")
	return h, record(t, h, []recordedMove{
		{rules.RoleAttacker, rules.MoveThrowCard, []string{ids[0], "I001"}},
		{rules.RoleDefender, rules.MoveSkipReaction, nil},
		{rules.RoleAttacker, rules.MoveEndTurn, nil},
	})
}

func record(t *testing.T, h *matchHarness, moves []recordedMove) *Replay {
	t.Helper()
	replay := NewReplay(h.state.MatchID)
	require.NoError(t, replay.Record(Frame{}, h.state))
	for _, m := range moves {
		msg := h.do(m.role, m.move, m.args...)
		require.NoError(t, replay.Record(Frame{Role: m.role, Move: m.move, Args: m.args, Message: msg}, h.state))
	}
	return replay
}

// endTurns alternates end turns for n moves starting with the attacker.
func endTurns(n int) []recordedMove {
	moves := make([]recordedMove, n)
	for i := range moves {
		role := rules.RoleAttacker
		if i%2 == 1 {
			role = rules.RoleDefender
		}
		moves[i] = recordedMove{role, rules.MoveEndTurn, nil}
	}
	return moves
}

func TestNewReplay(t *testing.T) {
	replay := NewReplay("match-123")
	assert.Equal(t, "match-123", replay.MatchID)
	assert.Equal(t, 0, replay.CurrentIndex)
	assert.Equal(t, 0, replay.Size())
}

func TestReplayNavigation(t *testing.T) {
	_, replay := recordMatch(t)
	require.Equal(t, 4, replay.Size())

	replay.Start()
	f, ok := replay.Next()
	require.True(t, ok)
	assert.Empty(t, f.Move)

	f, ok = replay.Next()
	require.True(t, ok)
	assert.Equal(t, rules.MoveThrowCard, f.Move)
	assert.Equal(t, 2, replay.CurrentIndex)

	f, ok = replay.Previous()
	require.True(t, ok)
	assert.Equal(t, rules.MoveThrowCard, f.Move)
	assert.Equal(t, 1, replay.CurrentIndex)

	replay.Start()
	_, ok = replay.Previous()
	assert.False(t, ok)

	for i := 0; i < 4; i++ {
		_, ok = replay.Next()
		require.True(t, ok)
	}
	_, ok = replay.Next()
	assert.False(t, ok)

	f, ok = replay.FrameAt(3)
	require.True(t, ok)
	assert.Equal(t, rules.MoveEndTurn, f.Move)
	_, ok = replay.FrameAt(10)
	assert.False(t, ok)
}

func TestReplayFramesCarryChecksums(t *testing.T) {
	h, replay := recordMatch(t)
	for i := 0; i < replay.Size(); i++ {
		f, _ := replay.FrameAt(i)
		assert.Len(t, f.Checksum, 64)
	}
	require.NoError(t, replay.Verify(h.engine))

	replay.Frames[2].Checksum = replay.Frames[1].Checksum
	assert.ErrorContains(t, replay.Verify(h.engine), "frame 2: checksum mismatch")
}

func TestReplayKeepsPeriodicSnapshots(t *testing.T) {
	h := newTestMatch(t)
	replay := record(t, h, endTurns(snapshotInterval+2))
	require.Equal(t, snapshotInterval+3, replay.Size())

	for i, f := range replay.Frames {
		assert.Equalf(t, i%snapshotInterval == 0, f.Snapshot != nil, "frame %d", i)
	}
	require.NoError(t, replay.Verify(h.engine))

	last, err := replay.StateAt(h.engine, replay.Size()-1)
	require.NoError(t, err)
	assert.Equal(t, h.state.Turn, last.Turn)
	assert.Equal(t, h.state.Attacker.Hand.IDs(), last.Attacker.Hand.IDs())

	mid, err := replay.StateAt(h.engine, 5)
	require.NoError(t, err)
	sum, err := Checksum(mid)
	require.NoError(t, err)
	assert.Equal(t, replay.Frames[5].Checksum, sum)

	_, err = replay.StateAt(h.engine, replay.Size())
	assert.Error(t, err)
}

func TestReplayVerifyRejectsTamperedSnapshot(t *testing.T) {
	h := newTestMatch(t)
	replay := record(t, h, endTurns(snapshotInterval+1))

	replay.Frames[snapshotInterval].Snapshot.Attacker.ActionPoints = 9
	assert.ErrorContains(t, replay.Verify(h.engine), "checksum mismatch")
	_, err := replay.StateAt(h.engine, snapshotInterval+1)
	assert.Error(t, err)

	_, err = replay.StateAt(h.engine, 3)
	assert.NoError(t, err)
}

func TestReplaySaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	h, replay := recordMatch(t)

	require.NoError(t, replay.SaveToFile(dir))
	_, err := os.Stat(filepath.Join(dir, "match-1.replay"))
	require.NoError(t, err)

	loaded, err := LoadReplayFromFile(dir, "match-1")
	require.NoError(t, err)
	assert.Equal(t, "match-1", loaded.MatchID)
	require.Equal(t, replay.Size(), loaded.Size())
	require.NoError(t, loaded.Verify(h.engine))

	last, err := loaded.StateAt(h.engine, loaded.Size()-1)
	require.NoError(t, err)
	assert.Equal(t, h.state.Turn, last.Turn)
	assert.Equal(t, h.state.Attacker.Hand.IDs(), last.Attacker.Hand.IDs())
}

func TestReplayLoadNonexistentFile(t *testing.T) {
	_, err := LoadReplayFromFile(t.TempDir(), "missing")
	assert.Error(t, err)
}

func TestReplayRecorder(t *testing.T) {
	dir := t.TempDir()
	rr := NewReplayRecorder(zap.NewNop(), dir)
	h := newTestMatch(t)

	rr.Record("match-1", Frame{}, h.state)
	assert.False(t, rr.IsRecording("match-1"), "frames before StartRecording are dropped")

	rr.StartRecording("match-1")
	assert.True(t, rr.IsRecording("match-1"))
	rr.Record("match-1", Frame{}, h.state)
	rr.Record("match-1", Frame{Role: rules.RoleAttacker, Move: rules.MoveEndTurn}, h.state)

	replay, ok := rr.Replay("match-1")
	require.True(t, ok)
	assert.Equal(t, 2, replay.Size())

	require.NoError(t, rr.Save("match-1"))
	assert.False(t, rr.IsRecording("match-1"))
	assert.Error(t, rr.Save("match-1"))

	loaded, err := rr.Load("match-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Size())
}

func TestReplayRecorderDiscard(t *testing.T) {
	rr := NewReplayRecorder(nil, t.TempDir())
	rr.StartRecording("a")
	rr.StartRecording("b")
	rr.Discard("a")

	assert.False(t, rr.IsRecording("a"))
	assert.True(t, rr.IsRecording("b"))
}
