package rules

import (
	"fmt"
)

// Move names a player action accepted by the engine.
type Move string

const (
	MoveThrowCard          Move = "throwCard"
	MovePlayCard           Move = "playCard"
	MoveCycleCard          Move = "cycleCard"
	MoveEndTurn            Move = "endTurn"
	MoveSkipReaction       Move = "skipReaction"
	MoveSurrender          Move = "surrender"
	MoveChooseWildcardType Move = "chooseWildcardType"
	MoveChooseChainTarget  Move = "chooseChainTarget"
	MoveChooseHandDiscard  Move = "chooseHandDiscard"
	MoveChooseCardFromDeck Move = "chooseCardFromDeck"
)

var moveDescriptions = map[Move]string{
	MoveThrowCard:          "play a card on a target",
	MovePlayCard:           "play a card",
	MoveCycleCard:          "cycle a card",
	MoveEndTurn:            "end the turn",
	MoveSkipReaction:       "skip the reaction",
	MoveSurrender:          "surrender",
	MoveChooseWildcardType: "choose a wildcard type",
	MoveChooseChainTarget:  "choose a chain target",
	MoveChooseHandDiscard:  "choose cards to discard",
	MoveChooseCardFromDeck: "choose a card from the deck",
}

// Known reports whether m is a move the engine accepts.
func (m Move) Known() bool {
	_, ok := moveDescriptions[m]
	return ok
}

// IsChoice reports whether m resolves a pending choice.
func (m Move) IsChoice() bool {
	switch m {
	case MoveChooseWildcardType, MoveChooseChainTarget, MoveChooseHandDiscard, MoveChooseCardFromDeck:
		return true
	}
	return false
}

// Describe returns a short human-readable form of m.
func (m Move) Describe() string {
	if d, ok := moveDescriptions[m]; ok {
		return d
	}
	return string(m)
}

// Window is the part of the match state that decides which moves are open.
type Window struct {
	Phase     Phase
	Stage     Stage
	TurnOwner Role
	// PendingFor and PendingMove are set while a choice is outstanding.
	PendingFor  Role
	PendingMove Move
}

// Reactor is the side allowed to answer during the reaction stage.
func (w Window) Reactor() Role {
	return w.TurnOwner.Opponent()
}

// LegalityResult represents the result of a legality check.
type LegalityResult struct {
	Legal   bool
	Reason  string
	Details map[string]string
}

func legal() LegalityResult {
	return LegalityResult{Legal: true}
}

func illegal(reason string, details map[string]string) LegalityResult {
	return LegalityResult{Legal: false, Reason: reason, Details: details}
}

// CheckMove decides whether actor may submit m in window w. It only looks
// at turn, stage and pending choice; card-level checks happen later.
func CheckMove(w Window, actor Role, m Move) LegalityResult {
	if !m.Known() {
		return illegal(fmt.Sprintf("Unknown move %q", string(m)), nil)
	}
	if !actor.Valid() {
		return illegal("Unknown player", map[string]string{"role": string(actor)})
	}

	if w.Phase == PhaseGameOver {
		return illegal("Game is already over", nil)
	}
	if m == MoveSurrender {
		return legal()
	}
	if w.Phase != PhasePlaying {
		return illegal("Game has not started", map[string]string{"phase": w.Phase.String()})
	}

	if w.PendingMove != "" {
		if actor != w.PendingFor {
			return illegal(
				fmt.Sprintf("Waiting for %s to %s", w.PendingFor, w.PendingMove.Describe()),
				map[string]string{"pending": string(w.PendingMove)},
			)
		}
		if m != w.PendingMove {
			return illegal(
				fmt.Sprintf("You must %s first", w.PendingMove.Describe()),
				map[string]string{"pending": string(w.PendingMove), "move": string(m)},
			)
		}
		return legal()
	}
	if m.IsChoice() {
		return illegal("No pending choice", map[string]string{"move": string(m)})
	}

	switch w.Stage {
	case StageReaction:
		if actor != w.Reactor() {
			return illegal("Waiting for opponent's reaction", nil)
		}
		switch m {
		case MoveThrowCard, MovePlayCard, MoveSkipReaction:
			return legal()
		}
		return illegal(fmt.Sprintf("Cannot %s during reaction", m.Describe()), nil)
	case StageAction:
		if actor != w.TurnOwner {
			return illegal("Not your turn", map[string]string{"turn": string(w.TurnOwner)})
		}
		if m == MoveSkipReaction {
			return illegal("No reaction pending", nil)
		}
		return legal()
	}
	return illegal("Turn is ending", map[string]string{"stage": w.Stage.String()})
}
