package wildcard

import (
	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
)

// ResolveVector picks the attack vector for a play of card as resolved
// against target. The card's explicit vector wins, then its category. Cards
// without either (wildcards and "any" cards) borrow the target's: the first
// applied vulnerability for attacks, otherwise the first vulnerable vector.
// The fallback is network.
func ResolveVector(card cards.Card, resolved cards.Type, target infra.Infrastructure) infra.Vector {
	if card.AttackVector != "" {
		return card.AttackVector
	}
	if card.Category != "" && card.Category != "any" && infra.KnownVector(card.Category) {
		return infra.Vector(card.Category)
	}
	if card.IsWildcard() || card.Category == "any" || card.Category == "" {
		if resolved == cards.TypeAttack && len(target.Vulnerabilities) > 0 {
			return target.Vulnerabilities[0].Vector
		}
		if len(target.VulnerableVectors) > 0 {
			return target.VulnerableVectors[0]
		}
	}
	return infra.VectorNetwork
}
