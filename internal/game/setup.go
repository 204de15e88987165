package game

import (
	"fmt"
	"math/rand"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Seat identifies the person filling one side of a match.
type Seat struct {
	ID   string
	Name string
}

// Setup deals the match once both seats are filled: it builds and shuffles
// both decks, deals starting hands, places the infrastructure and moves the
// match to the attacker's first action stage.
func (e *Engine) Setup(state MatchState, attacker, defender Seat) (MatchState, error) {
	if state.Phase != rules.PhaseSetup {
		return state, fmt.Errorf("match %s already set up", state.MatchID)
	}
	if attacker.ID == "" || defender.ID == "" {
		return state, fmt.Errorf("match %s: both seats must be filled", state.MatchID)
	}
	if e.catalogue == nil {
		return state, fmt.Errorf("match %s: no card catalogue", state.MatchID)
	}

	s := state.Clone()
	rng := rand.New(rand.NewSource(s.Seed))

	s.Attacker = e.newPlayer(attacker, rules.RoleAttacker, rng)
	s.Defender = e.newPlayer(defender, rules.RoleDefender, rng)
	s.Infrastructure = e.catalogue.Roster(e.rules.InfrastructureCount)
	if len(s.Infrastructure) == 0 {
		return state, fmt.Errorf("match %s: catalogue has no infrastructure", state.MatchID)
	}

	s.Phase = rules.PhasePlaying
	s.Stage = rules.StageAction
	s.Turn = rules.NewTurnTracker(rules.RoleAttacker)
	s.StartedAt = e.now()
	s.recomputeScores()

	e.record(&s, ActionEntry{
		Role: rules.RoleAttacker,
		Type: rules.EventGameStart,
		Details: map[string]string{
			"attacker": attacker.ID,
			"defender": defender.ID,
		},
	})

	if e.logger != nil {
		e.logger.Info("match set up",
			zap.String("match_id", s.MatchID),
			zap.String("attacker", attacker.ID),
			zap.String("defender", defender.ID),
			zap.Int("infrastructure", len(s.Infrastructure)),
		)
	}
	return s, nil
}

func (e *Engine) newPlayer(seat Seat, role rules.Role, rng *rand.Rand) Player {
	deck := e.catalogue.Deck(role, rng)
	hand, deck := cards.Draw(nil, deck, e.rules.StartingHandSize)
	return Player{
		ID:           seat.ID,
		Name:         seat.Name,
		Role:         role,
		ActionPoints: min(e.rules.InitialActionPoints+e.rules.Income(role), e.rules.MaxActionPoints),
		Hand:         hand,
		Deck:         deck,
	}
}
