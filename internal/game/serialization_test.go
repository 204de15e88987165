package game

import (
	"testing"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumIsStable(t *testing.T) {
	h := newTestMatch(t)

	first, err := Checksum(h.state)
	require.NoError(t, err)
	second, err := Checksum(h.state.Clone())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestChecksumIgnoresWallClockAndEffectIDs(t *testing.T) {
	h := newTestMatch(t)
	h.state.Effects = h.state.Effects.AddTemporary(effects.Temporary{Type: effects.TypeHoneypot, TargetID: "I001", Duration: 2})
	base, err := Checksum(h.state)
	require.NoError(t, err)

	other := h.state.Clone()
	other.StartedAt = other.StartedAt.Add(time.Hour)
	other.Actions[0].Timestamp = time.Now()
	other.Effects.Temporary[0].ID = "another-id"

	sum, err := Checksum(other)
	require.NoError(t, err)
	assert.Equal(t, base, sum)
}

func TestChecksumDetectsChanges(t *testing.T) {
	h := newTestMatch(t)
	base, err := Checksum(h.state)
	require.NoError(t, err)

	changes := map[string]func(s *MatchState){
		"action points":  func(s *MatchState) { s.Defender.ActionPoints++ },
		"infrastructure": func(s *MatchState) { s.Infrastructure[0].State = infra.StateShielded },
		"hand order":     func(s *MatchState) { s.Attacker.Hand[0], s.Attacker.Hand[1] = s.Attacker.Hand[1], s.Attacker.Hand[0] },
		"turn":           func(s *MatchState) { s.Turn.Current = rules.RoleDefender },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			s := h.state.Clone()
			change(&s)
			sum, err := Checksum(s)
			require.NoError(t, err)
			assert.NotEqual(t, base, sum)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	h := newTestMatch(t)
	ids := h.give(rules.RoleAttacker, "A307", "A001")
	h.do(rules.RoleAttacker, rules.MoveThrowCard, ids[0], "I001")
	require.NotNil(t, h.state.Pending)

	data, err := Encode(h.state)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, h.state.MatchID, decoded.MatchID)
	assert.Equal(t, h.state.Phase, decoded.Phase)
	require.NotNil(t, decoded.Pending)
	assert.Equal(t, h.state.Pending.Chain.Options, decoded.Pending.Chain.Options)
	require.NoError(t, ValidateRoundtrip(h.state))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not gob"))
	assert.Error(t, err)
}
