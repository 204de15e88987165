package rules

import (
	"fmt"

	"github.com/darknet-duel/duel-server-go/internal/game/infra"
)

// ReasonLimitDefault is recorded when the turn limit passes without an
// attacker majority.
const ReasonLimitDefault = "Maximum turns reached - defender wins by default"

// Verdict is the outcome of a win check.
type Verdict struct {
	Over   bool   `json:"over"`
	Winner Role   `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Surrendered is the verdict when role concedes.
func Surrendered(role Role) Verdict {
	return Verdict{
		Over:   true,
		Winner: role.Opponent(),
		Reason: fmt.Sprintf("%s surrendered", role.Title()),
	}
}

// EvaluateWin decides whether the match is over. A verdict that is already
// over is returned unchanged.
//
// Up to and including round maxTurns a side needs every target: the
// attacker compromised, the defender fortified (weakened counts). After the
// limit the attacker needs a strict majority and the defender wins every
// other case.
func EvaluateWin(current Verdict, roster infra.Roster, round, maxTurns int) Verdict {
	if current.Over {
		return current
	}
	n := len(roster)
	attacker, defender := roster.Scores()

	if maxTurns > 0 && round > maxTurns {
		majority := n/2 + 1
		if attacker >= majority {
			return Verdict{
				Over:   true,
				Winner: RoleAttacker,
				Reason: fmt.Sprintf("Attacker controlled %d infrastructure cards", attacker),
			}
		}
		if defender >= majority {
			return Verdict{
				Over:   true,
				Winner: RoleDefender,
				Reason: fmt.Sprintf("Defender fortified %d infrastructure cards", defender),
			}
		}
		return Verdict{Over: true, Winner: RoleDefender, Reason: ReasonLimitDefault}
	}

	if n == 0 {
		return current
	}
	if attacker == n {
		return Verdict{
			Over:   true,
			Winner: RoleAttacker,
			Reason: fmt.Sprintf("Attacker compromised all %d infrastructure cards", n),
		}
	}
	if defender == n {
		return Verdict{
			Over:   true,
			Winner: RoleDefender,
			Reason: fmt.Sprintf("Defender fortified all %d infrastructure cards", n),
		}
	}
	return current
}
