package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMove(t *testing.T) {
	action := Window{Phase: PhasePlaying, Stage: StageAction, TurnOwner: RoleAttacker}
	reaction := Window{Phase: PhasePlaying, Stage: StageReaction, TurnOwner: RoleAttacker}
	pending := Window{
		Phase:       PhasePlaying,
		Stage:       StageAction,
		TurnOwner:   RoleAttacker,
		PendingFor:  RoleAttacker,
		PendingMove: MoveChooseWildcardType,
	}

	tests := []struct {
		name   string
		window Window
		actor  Role
		move   Move
		legal  bool
		reason string
	}{
		{"owner throws", action, RoleAttacker, MoveThrowCard, true, ""},
		{"owner ends turn", action, RoleAttacker, MoveEndTurn, true, ""},
		{"opponent throws", action, RoleDefender, MoveThrowCard, false, "Not your turn"},
		{"skip without reaction", action, RoleAttacker, MoveSkipReaction, false, "No reaction pending"},
		{"reactor skips", reaction, RoleDefender, MoveSkipReaction, true, ""},
		{"reactor throws", reaction, RoleDefender, MoveThrowCard, true, ""},
		{"reactor cycles", reaction, RoleDefender, MoveCycleCard, false, "Cannot cycle a card during reaction"},
		{"owner during reaction", reaction, RoleAttacker, MoveThrowCard, false, "Waiting for opponent's reaction"},
		{"matching resolver", pending, RoleAttacker, MoveChooseWildcardType, true, ""},
		{"other move while pending", pending, RoleAttacker, MoveThrowCard, false, "You must choose a wildcard type first"},
		{"other player while pending", pending, RoleDefender, MoveChooseWildcardType, false, "Waiting for attacker to choose a wildcard type"},
		{"surrender while pending", pending, RoleDefender, MoveSurrender, true, ""},
		{"stale choice", action, RoleAttacker, MoveChooseChainTarget, false, "No pending choice"},
		{"setup", Window{Phase: PhaseSetup}, RoleAttacker, MoveThrowCard, false, "Game has not started"},
		{"surrender in setup", Window{Phase: PhaseSetup}, RoleDefender, MoveSurrender, true, ""},
		{"game over", Window{Phase: PhaseGameOver}, RoleDefender, MoveSurrender, false, "Game is already over"},
		{"unknown move", action, RoleAttacker, Move("castSpell"), false, `Unknown move "castSpell"`},
		{"unknown role", action, Role("observer"), MoveEndTurn, false, "Unknown player"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckMove(tt.window, tt.actor, tt.move)
			assert.Equal(t, tt.legal, res.Legal)
			if !tt.legal {
				assert.Equal(t, tt.reason, res.Reason)
			}
		})
	}
}
