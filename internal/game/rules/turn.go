package rules

import (
	"fmt"
)

// Phase represents the lifecycle of a match.
type Phase int

const (
	PhaseSetup Phase = iota
	PhasePlaying
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseSetup:    "setup",
	PhasePlaying:  "playing",
	PhaseGameOver: "gameOver",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Stage is the sub-stage of a turn while the match is playing.
type Stage int

const (
	StageAction Stage = iota
	StageReaction
	StageEnd
)

var stageNames = map[Stage]string{
	StageAction:   "action",
	StageReaction: "reaction",
	StageEnd:      "end",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STAGE_%d", int(s))
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for stage, name := range stageNames {
		if name == string(text) {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// TurnTracker tracks whose turn it is and how far the match has progressed.
// The attacker opens every round; the round advances when the defender's
// turn ends.
type TurnTracker struct {
	Current    Role `json:"current"`
	TurnNumber int  `json:"turn_number"`
	Round      int  `json:"round"`
}

// NewTurnTracker starts at turn 1 of round 1 with first to move.
func NewTurnTracker(first Role) TurnTracker {
	return TurnTracker{
		Current:    first,
		TurnNumber: 1,
		Round:      1,
	}
}

// Pass hands the turn to the other side. roundEnded is true when the turn
// that just finished belonged to the defender.
func (t TurnTracker) Pass() (next TurnTracker, roundEnded bool) {
	roundEnded = t.Current == RoleDefender
	if roundEnded {
		t.Round++
	}
	t.Current = t.Current.Opponent()
	t.TurnNumber++
	return t, roundEnded
}

// FinalRounds reports whether round is one of the last rounds before the
// limit.
func FinalRounds(round, maxTurns int) bool {
	return maxTurns > 0 && round >= maxTurns-2
}

// RoundMessage is the announcement shown when a round begins.
func RoundMessage(round, maxTurns int) string {
	msg := fmt.Sprintf("Round %d", round)
	if FinalRounds(round, maxTurns) {
		msg += " (Final rounds!)"
	}
	return msg
}
