package game

import (
	"fmt"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
)

// Rules are the tunable numbers of a match.
type Rules struct {
	MaxTurns                    int  `mapstructure:"max_turns" json:"max_turns"`
	StartingHandSize            int  `mapstructure:"starting_hand_size" json:"starting_hand_size"`
	InfrastructureCount         int  `mapstructure:"infrastructure_count" json:"infrastructure_count"`
	InitialActionPoints         int  `mapstructure:"initial_action_points" json:"initial_action_points"`
	AttackerActionPointsPerTurn int  `mapstructure:"attacker_action_points_per_turn" json:"attacker_action_points_per_turn"`
	DefenderActionPointsPerTurn int  `mapstructure:"defender_action_points_per_turn" json:"defender_action_points_per_turn"`
	MaxActionPoints             int  `mapstructure:"max_action_points" json:"max_action_points"`
	FreeCardCyclesPerTurn       int  `mapstructure:"free_card_cycles_per_turn" json:"free_card_cycles_per_turn"`
	MaxHandSize                 int  `mapstructure:"max_hand_size" json:"max_hand_size"`
	CardsDrawnPerTurn           int  `mapstructure:"cards_drawn_per_turn" json:"cards_drawn_per_turn"`
	AutoEndTurn                 bool `mapstructure:"auto_end_turn" json:"auto_end_turn"`
}

// DefaultRules returns the standard rules.
func DefaultRules() Rules {
	return Rules{
		MaxTurns:                    15,
		StartingHandSize:            5,
		InfrastructureCount:         5,
		InitialActionPoints:         0,
		AttackerActionPointsPerTurn: 2,
		DefenderActionPointsPerTurn: 3,
		MaxActionPoints:             10,
		FreeCardCyclesPerTurn:       1,
		MaxHandSize:                 7,
		CardsDrawnPerTurn:           2,
		AutoEndTurn:                 true,
	}
}

// Income returns the per-turn action points for role.
func (r Rules) Income(role rules.Role) int {
	if role == rules.RoleAttacker {
		return r.AttackerActionPointsPerTurn
	}
	return r.DefenderActionPointsPerTurn
}

// Validate rejects rules a match cannot be played with.
func (r Rules) Validate() error {
	positive := map[string]int{
		"max_turns":            r.MaxTurns,
		"starting_hand_size":   r.StartingHandSize,
		"infrastructure_count": r.InfrastructureCount,
		"max_action_points":    r.MaxActionPoints,
		"max_hand_size":        r.MaxHandSize,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if r.InitialActionPoints < 0 || r.CardsDrawnPerTurn < 0 || r.FreeCardCyclesPerTurn < 0 {
		return fmt.Errorf("initial_action_points, cards_drawn_per_turn and free_card_cycles_per_turn must not be negative")
	}
	if r.MaxActionPoints < r.AttackerActionPointsPerTurn || r.MaxActionPoints < r.DefenderActionPointsPerTurn {
		return fmt.Errorf("max_action_points (%d) is below the per-turn income", r.MaxActionPoints)
	}
	if r.StartingHandSize > r.MaxHandSize {
		return fmt.Errorf("starting_hand_size (%d) exceeds max_hand_size (%d)", r.StartingHandSize, r.MaxHandSize)
	}
	return nil
}
