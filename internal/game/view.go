package game

import (
	"maps"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
)

// SeatView is one seat as seen by a viewer. Hidden piles are reported as
// counts only.
type SeatView struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Role               rules.Role `json:"role"`
	ActionPoints       int        `json:"action_points"`
	FreeCardCyclesUsed int        `json:"free_card_cycles_used"`
	Hand               cards.Pile `json:"hand,omitempty"`
	HandCount          int        `json:"hand_count"`
	DeckCount          int        `json:"deck_count"`
	Discard            cards.Pile `json:"discard"`
}

// View is a match state redacted for one player.
type View struct {
	MatchID          string            `json:"match_id"`
	Viewer           rules.Role        `json:"viewer"`
	Phase            rules.Phase       `json:"phase"`
	Stage            rules.Stage       `json:"stage"`
	Turn             rules.TurnTracker `json:"turn"`
	You              SeatView          `json:"you"`
	Opponent         SeatView          `json:"opponent"`
	Infrastructure   infra.Roster      `json:"infrastructure"`
	Effects          effects.Ledger    `json:"effects"`
	Pending          *PendingChoice    `json:"pending,omitempty"`
	ReactionTargetID string            `json:"reaction_target_id,omitempty"`
	Actions          []ActionEntry     `json:"actions"`
	AttackerScore    int               `json:"attacker_score"`
	DefenderScore    int               `json:"defender_score"`
	Verdict          rules.Verdict     `json:"verdict"`
}

// hiddenDetails are action log details that name cards from a hidden pile.
var hiddenDetails = []string{"drawn", "card"}

// View returns what viewer may see of state. The opponent's hand and both
// decks are reduced to counts, except for a hand revealed to the viewer by
// a pending discard choice.
func (e *Engine) View(state MatchState, viewer rules.Role) View {
	s := state.Clone()
	opp := viewer.Opponent()

	v := View{
		MatchID:          s.MatchID,
		Viewer:           viewer,
		Phase:            s.Phase,
		Stage:            s.Stage,
		Turn:             s.Turn,
		You:              seatView(s.Player(viewer), true),
		Opponent:         seatView(s.Player(opp), revealedTo(s.Pending, viewer, opp)),
		Infrastructure:   s.Infrastructure,
		Effects:          s.Effects,
		ReactionTargetID: s.ReactionTargetID,
		AttackerScore:    s.AttackerScore,
		DefenderScore:    s.DefenderScore,
		Verdict:          s.Verdict,
	}

	if p := s.Pending; p != nil {
		if p.Player != viewer {
			if p.Deck != nil {
				p.Deck.Options = nil
			}
			if p.Hand != nil && p.Hand.TargetPlayer != viewer {
				p.Hand.Revealed = nil
			}
		}
		v.Pending = p
	}

	v.Actions = s.Actions
	for i, a := range v.Actions {
		if a.Role == viewer || a.Details == nil {
			continue
		}
		d := maps.Clone(a.Details)
		for _, k := range hiddenDetails {
			delete(d, k)
		}
		v.Actions[i].Details = d
	}
	return v
}

func revealedTo(p *PendingChoice, viewer, owner rules.Role) bool {
	return p != nil && p.Hand != nil && p.Player == viewer && p.Hand.TargetPlayer == owner
}

func seatView(p Player, showHand bool) SeatView {
	sv := SeatView{
		ID:                 p.ID,
		Name:               p.Name,
		Role:               p.Role,
		ActionPoints:       p.ActionPoints,
		FreeCardCyclesUsed: p.FreeCardCyclesUsed,
		HandCount:          len(p.Hand),
		DeckCount:          len(p.Deck),
		Discard:            p.Discard,
	}
	if showHand {
		sv.Hand = p.Hand
	}
	return sv
}
