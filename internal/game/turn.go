package game

import (
	"fmt"
	"strconv"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"go.uber.org/zap"
)

func (e *Engine) endTurn(s *MatchState, role rules.Role) (string, error) {
	return e.passTurn(s, rules.EventEndTurn), nil
}

// passTurn closes the current turn: the owner draws, the turn passes, the
// win check runs and the next turn begins.
func (e *Engine) passTurn(s *MatchState, entryType rules.EventType) string {
	owner := s.Turn.Current
	s.Stage = rules.StageEnd
	s.ReactionTargetID = ""

	drawn := e.draw(s, owner, e.rules.CardsDrawnPerTurn)
	s.player(owner).FreeCardCyclesUsed = 0
	e.record(s, ActionEntry{
		Role:    owner,
		Type:    entryType,
		Details: map[string]string{"drawn": strconv.Itoa(drawn)},
	})

	round := s.Turn.Round
	s.Turn, _ = s.Turn.Pass()
	if e.checkWin(s) {
		return s.Verdict.Reason
	}

	e.beginTurn(s)
	if s.Turn.Round != round {
		return rules.RoundMessage(s.Turn.Round, e.rules.MaxTurns)
	}
	return fmt.Sprintf("%s's turn", s.Turn.Current.Title())
}

// beginTurn ages the effect ledger and, from the second round, grants the
// new owner income and refills their hand.
func (e *Engine) beginTurn(s *MatchState) {
	s.Stage = rules.StageAction

	var expired []string
	ledger, gone := s.Effects.Age()
	s.Effects = ledger
	for _, t := range gone {
		expired = append(expired, string(t.Type)+"@"+t.TargetID)
	}
	if len(expired) > 0 && e.logger != nil {
		e.logger.Debug("temporary effects expired",
			zap.String("match_id", s.MatchID),
			zap.Strings("effects", expired),
		)
	}

	if s.Turn.Round < 2 {
		return
	}
	owner := s.Turn.Current
	pl := s.player(owner)
	pl.ActionPoints = min(pl.ActionPoints+e.rules.Income(owner), e.rules.MaxActionPoints)
	if short := e.rules.StartingHandSize - len(pl.Hand); short > 0 {
		e.draw(s, owner, short)
	}
}

func (e *Engine) skipReaction(s *MatchState, role rules.Role) (string, error) {
	target := s.ReactionTargetID
	s.Stage = rules.StageAction
	s.ReactionTargetID = ""
	e.record(s, ActionEntry{
		Role:    role,
		Type:    rules.EventSkipReaction,
		Details: map[string]string{"infrastructure_id": target},
	})
	msg := fmt.Sprintf("%s skipped the reaction", role.Title())
	if auto := e.maybeAutoEnd(s); auto != "" {
		msg += ". " + auto
	}
	return msg, nil
}

func (e *Engine) surrender(s *MatchState, role rules.Role) (string, error) {
	e.record(s, ActionEntry{Role: role, Type: rules.EventSurrender})
	v := rules.Surrendered(role)
	e.gameOver(s, v)
	return v.Reason, nil
}

// checkWin evaluates the win conditions and ends the match on a verdict.
func (e *Engine) checkWin(s *MatchState) bool {
	if s.Phase == rules.PhaseGameOver {
		return true
	}
	v := rules.EvaluateWin(s.Verdict, s.Infrastructure, s.Turn.Round, e.rules.MaxTurns)
	if !v.Over {
		return false
	}
	e.gameOver(s, v)
	return true
}

func (e *Engine) gameOver(s *MatchState, v rules.Verdict) {
	s.Verdict = v
	s.Phase = rules.PhaseGameOver
	s.Stage = rules.StageEnd
	s.Pending = nil
	s.ReactionTargetID = ""
	s.EndedAt = e.now()
	e.record(s, ActionEntry{
		Role: v.Winner,
		Type: rules.EventGameOver,
		Details: map[string]string{
			"winner": string(v.Winner),
			"reason": v.Reason,
		},
	})
	if e.logger != nil {
		e.logger.Info("match over",
			zap.String("match_id", s.MatchID),
			zap.String("winner", string(v.Winner)),
			zap.String("reason", v.Reason),
			zap.Int("round", s.Turn.Round),
		)
	}
}

// maybeAutoEnd passes the turn for an owner who can no longer act. It
// returns the turn message, or "" when the turn continues.
func (e *Engine) maybeAutoEnd(s *MatchState) string {
	if !e.rules.AutoEndTurn || s.Phase != rules.PhasePlaying || s.Stage != rules.StageAction || s.Pending != nil {
		return ""
	}
	owner := s.Player(s.Turn.Current)
	if owner.ActionPoints > 0 && len(owner.Hand) > 0 {
		return ""
	}
	return e.passTurn(s, rules.EventAutoEndTurn)
}
