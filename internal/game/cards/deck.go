package cards

import (
	"fmt"
	"math/rand"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
)

// Deck expands the role's definitions into a playable deck. Each definition
// contributes Copies cards (at least one); copies after the first get the
// id suffix "-dup-N" so every card in the deck is addressable. The deck is
// shuffled with rng when it is non-nil.
func (c *Catalogue) Deck(role rules.Role, rng *rand.Rand) Pile {
	var deck Pile
	for _, def := range c.Side(role) {
		copies := def.Copies
		if copies < 1 {
			copies = 1
		}
		for i := 0; i < copies; i++ {
			card := def.Clone()
			card.DefinitionID = def.ID
			if i > 0 {
				card.ID = fmt.Sprintf("%s-dup-%d", def.ID, i)
			}
			deck = append(deck, card)
		}
	}
	if rng != nil {
		Shuffle(deck, rng)
	}
	return deck
}

// Shuffle permutes p in place.
func Shuffle(p Pile, rng *rand.Rand) {
	rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })
}

// Draw moves up to n cards from the top of deck to the end of hand. It
// returns the new hand and deck; the inputs are not modified.
func Draw(hand, deck Pile, n int) (Pile, Pile) {
	if n > len(deck) {
		n = len(deck)
	}
	if n <= 0 {
		return hand, deck
	}
	newHand := make(Pile, 0, len(hand)+n)
	newHand = append(newHand, hand...)
	newHand = append(newHand, deck[:n]...)
	rest := make(Pile, len(deck)-n)
	copy(rest, deck[n:])
	return newHand, rest
}
