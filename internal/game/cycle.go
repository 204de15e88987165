package game

import (
	"fmt"

	"github.com/darknet-duel/duel-server-go/internal/game/cost"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
)

// cycleCard swaps a hand card for the top of the deck. The first
// FreeCardCyclesPerTurn swaps of a turn are free; later ones cost 1 AP.
func (e *Engine) cycleCard(s *MatchState, role rules.Role, cardID string) (string, error) {
	if s.Stage != rules.StageAction {
		return "", reject("Cards can only be cycled during your action stage")
	}
	pl := s.player(role)
	idx := pl.Hand.Index(cardID)
	if idx < 0 {
		return "", reject("Card %s is not in your hand", cardID)
	}
	if len(pl.Deck) == 0 {
		return "", reject("Your deck is empty")
	}

	free := pl.FreeCardCyclesUsed < e.rules.FreeCardCyclesPerTurn
	price := 1
	if free {
		price = 0
	}
	if !cost.CanPay(pl.ActionPoints, price) {
		return "", reject(cost.InsufficientMessage)
	}

	old := pl.Hand[idx]
	drawn := pl.Deck[0]
	pl.Deck = pl.Deck.Remove(0)
	pl.Hand[idx] = drawn
	pl.Discard = append(pl.Discard, old)

	entryType := rules.EventPaidCardCycle
	if free {
		pl.FreeCardCyclesUsed++
		entryType = rules.EventFreeCardCycle
	} else {
		pl.ActionPoints -= price
	}
	e.record(s, ActionEntry{
		Role:     role,
		Type:     entryType,
		CardID:   old.ID,
		CardType: string(old.Type),
		Details:  map[string]string{"drawn": drawn.ID},
	})

	msg := fmt.Sprintf("Cycled %s", old.Name)
	if auto := e.maybeAutoEnd(s); auto != "" {
		msg += ". " + auto
	}
	return msg, nil
}
