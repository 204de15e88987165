package wildcard

import (
	"errors"
	"fmt"
	"slices"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
)

// ErrNoOptions is returned when a wildcard has nothing it can become
// against the target.
var ErrNoOptions = errors.New("No valid card type for this target")

var roleTypes = map[rules.Role][]cards.Type{
	rules.RoleAttacker: {cards.TypeExploit, cards.TypeAttack, cards.TypeCounterAttack, cards.TypeCounter},
	rules.RoleDefender: {cards.TypeShield, cards.TypeFortify, cards.TypeResponse, cards.TypeReaction},
}

// stateTypes lists the target states each type may be offered against.
var stateTypes = map[cards.Type][]infra.State{
	cards.TypeExploit:       {infra.StateSecure, infra.StateFortified, infra.StateFortifiedWeaken},
	cards.TypeAttack:        {infra.StateVulnerable},
	cards.TypeShield:        {infra.StateSecure, infra.StateFortifiedWeaken},
	cards.TypeFortify:       {infra.StateShielded},
	cards.TypeResponse:      {infra.StateCompromised},
	cards.TypeCounterAttack: {infra.StateShielded, infra.StateFortifiedWeaken},
	cards.TypeCounter:       {infra.StateShielded, infra.StateFortifiedWeaken},
	cards.TypeReaction:      {infra.StateVulnerable},
}

// Legal reports whether a type can really be played at the target, given
// everything the state filter does not see (ledger effects, vectors). A nil
// Legal accepts every type.
type Legal func(cards.Type) bool

// fixed maps special wildcards to the single type they always resolve to.
var fixed = map[string]cards.Type{
	"A307": cards.TypeExploit,
	"A309": cards.TypeAttack,
	"D303": cards.TypeShield,
	"D307": cards.TypeResponse,
}

// Outcome is the result of resolving a card's type.
type Outcome struct {
	Type    cards.Type
	Options []cards.Type
	// Pending is set when the player must choose among Options.
	Pending bool
}

// FixedType returns the type a special wildcard always resolves to.
func FixedType(card cards.Card) (cards.Type, bool) {
	t, ok := fixed[card.Def()]
	return t, ok
}

// Options returns the types card may resolve to when role plays it at
// target, in catalogue order. Fixed types are returned without consulting
// legal.
func Options(card cards.Card, role rules.Role, target infra.Infrastructure, legal Legal) []cards.Type {
	if t, ok := FixedType(card); ok {
		return []cards.Type{t}
	}
	var out []cards.Type
	for _, t := range card.WildcardType.Types() {
		if !slices.Contains(roleTypes[role], t) {
			continue
		}
		if !slices.Contains(stateTypes[t], target.State) {
			continue
		}
		if legal != nil && !legal(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Resolve determines the type card plays as. Non-wildcards return their own
// type. A chosen type must be one of the options. A single option resolves
// on its own; several without a choice return a pending outcome.
func Resolve(card cards.Card, role rules.Role, target infra.Infrastructure, chosen cards.Type, legal Legal) (Outcome, error) {
	if !card.IsWildcard() {
		return Outcome{Type: card.Type}, nil
	}

	options := Options(card, role, target, legal)
	if len(options) == 0 {
		return Outcome{}, ErrNoOptions
	}
	if chosen != "" {
		if !slices.Contains(options, chosen) {
			return Outcome{Options: options}, fmt.Errorf("Invalid wildcard choice %q", string(chosen))
		}
		return Outcome{Type: chosen, Options: options}, nil
	}
	if len(options) == 1 {
		return Outcome{Type: options[0], Options: options}, nil
	}
	return Outcome{Options: options, Pending: true}, nil
}
