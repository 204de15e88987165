package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testClock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// matchHarness drives one match through an engine and keeps the latest
// state.
type matchHarness struct {
	t      *testing.T
	engine *Engine
	state  MatchState
	serial int
}

func newTestEngine(t *testing.T, r Rules) *Engine {
	t.Helper()
	cat, err := cards.Default()
	require.NoError(t, err)
	return NewEngine(cat, r, zaptest.NewLogger(t), WithClock(func() time.Time { return testClock }))
}

// newTestMatch sets up a seeded match with the default rules.
func newTestMatch(t *testing.T) *matchHarness {
	return newTestMatchWithRules(t, DefaultRules())
}

func newTestMatchWithRules(t *testing.T, r Rules) *matchHarness {
	t.Helper()
	e := newTestEngine(t, r)
	s, err := e.Setup(NewMatchState("match-1", 42), Seat{ID: "p1", Name: "Mallory"}, Seat{ID: "p2", Name: "Trent"})
	require.NoError(t, err)
	return &matchHarness{t: t, engine: e, state: s}
}

// fork copies the harness for a subtest.
func (h *matchHarness) fork(t *testing.T) *matchHarness {
	return &matchHarness{t: t, engine: h.engine, state: h.state.Clone(), serial: h.serial}
}

// do applies a move and requires it to be accepted.
func (h *matchHarness) do(role rules.Role, move rules.Move, args ...string) string {
	h.t.Helper()
	res := h.engine.Do(h.state, role, move, args...)
	require.Truef(h.t, res.Accepted, "%s %s %v rejected: %s", role, move, args, res.Message)
	h.state = res.State
	return res.Message
}

// rejected applies a move, requires it to be rejected with the state left
// as it was, and returns the message.
func (h *matchHarness) rejected(role rules.Role, move rules.Move, args ...string) string {
	h.t.Helper()
	res := h.engine.Do(h.state, role, move, args...)
	require.Falsef(h.t, res.Accepted, "%s %s %v accepted: %s", role, move, args, res.Message)
	require.Equal(h.t, h.state, res.State)
	return res.Message
}

// give replaces role's hand with fresh copies of the given catalogue cards
// and returns their ids. The old hand goes to the bottom of the deck.
func (h *matchHarness) give(role rules.Role, defIDs ...string) []string {
	h.t.Helper()
	pl := h.state.player(role)
	pl.Deck = append(pl.Deck, pl.Hand...)
	pl.Hand = nil
	ids := make([]string, 0, len(defIDs))
	for _, def := range defIDs {
		card, err := h.engine.catalogue.Lookup(def)
		require.NoError(h.t, err)
		h.serial++
		card.ID = fmt.Sprintf("%s-t%d", def, h.serial)
		card.DefinitionID = def
		pl.Hand = append(pl.Hand, card)
		ids = append(ids, card.ID)
	}
	return ids
}

// giveCard puts a hand-built card into role's hand.
func (h *matchHarness) giveCard(role rules.Role, card cards.Card) {
	pl := h.state.player(role)
	pl.Hand = append(pl.Hand, card)
}

func (h *matchHarness) setAP(role rules.Role, ap int) {
	h.state.player(role).ActionPoints = ap
}

// setInfra forces a target into state, recording marks as applied
// vulnerabilities.
func (h *matchHarness) setInfra(id string, state infra.State, vulns ...infra.Vector) {
	h.t.Helper()
	idx := h.state.Infrastructure.Index(id)
	require.GreaterOrEqual(h.t, idx, 0, id)
	item := h.state.Infrastructure[idx].Clone()
	item.State = state
	item.Vulnerabilities = nil
	for _, v := range vulns {
		item.Vulnerabilities = append(item.Vulnerabilities, infra.Mark{Vector: v, AppliedBy: "test", Role: string(rules.RoleAttacker)})
	}
	h.state.Infrastructure[idx] = item
	h.state.recomputeScores()
}

func (h *matchHarness) infra(id string) infra.Infrastructure {
	h.t.Helper()
	item, ok := h.state.Infrastructure.Find(id)
	require.True(h.t, ok, id)
	return item
}

// hasAction reports whether an entry of typ is in the action log.
func (h *matchHarness) hasAction(typ rules.EventType) bool {
	for _, a := range h.state.Actions {
		if a.Type == typ {
			return true
		}
	}
	return false
}

func deckSize(c *cards.Catalogue, role rules.Role) int {
	n := 0
	for _, card := range c.Side(role) {
		n += max(card.Copies, 1)
	}
	return n
}
