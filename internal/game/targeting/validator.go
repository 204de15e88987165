package targeting

import (
	"errors"
	"fmt"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
)

// Request describes one card aimed at one infrastructure target.
type Request struct {
	Card cards.Card
	// Type is the effective type after wildcard resolution.
	Type   cards.Type
	Target infra.Infrastructure
	Vector infra.Vector
	Ledger effects.Ledger
}

// TargetValidator checks card plays against infrastructure state and the
// effect ledger.
type TargetValidator struct {
	// IgnoresVector lists cards that skip vector compatibility for a target.
	IgnoresVector func(card cards.Card, target infra.Infrastructure) bool
}

// NewTargetValidator creates a validator with the standard exceptions.
func NewTargetValidator() *TargetValidator {
	return &TargetValidator{IgnoresVector: insiderThreat}
}

// insiderThreat attacks user systems regardless of vector.
func insiderThreat(card cards.Card, target infra.Infrastructure) bool {
	return card.Def() == "A303" && target.Category == infra.CategoryUser
}

// IsReactiveType reports whether t is played in answer to the opponent.
func IsReactiveType(t cards.Type) bool {
	return t.IsCounter() || t == cards.TypeReaction
}

// CheckEffects applies only the ledger protections on the target to
// req.Type. Cards that skip state validation still go through it.
func (tv *TargetValidator) CheckEffects(req Request) error {
	target := req.Target
	if req.Ledger.Restricts(target.ID, string(req.Type)) {
		return fmt.Errorf("%s is protected against %s cards", target.Name, req.Type)
	}
	if IsReactiveType(req.Type) && req.Ledger.Has(effects.TypePreventReactions, target.ID) {
		return fmt.Errorf("Reactions are blocked on %s", target.Name)
	}
	switch req.Type {
	case cards.TypeExploit:
		if req.Ledger.Has(effects.TypePreventExploits, target.ID) {
			return fmt.Errorf("%s is protected against exploits", target.Name)
		}
	case cards.TypeResponse:
		if req.Ledger.Has(effects.TypePreventRestore, target.ID) {
			return fmt.Errorf("%s cannot be restored right now", target.Name)
		}
	}
	return nil
}

// Validate returns an error describing why req cannot be played, or nil.
func (tv *TargetValidator) Validate(req Request) error {
	target := req.Target
	if err := tv.CheckEffects(req); err != nil {
		return err
	}

	switch req.Type {
	case cards.TypeExploit:
		if !inState(target, infra.StateSecure, infra.StateFortified, infra.StateFortifiedWeaken) {
			return errors.New("Can only exploit secure or fortified infrastructure")
		}
		if !tv.ignoresVector(req) && !target.IsVulnerableTo(req.Vector) {
			return fmt.Errorf("%s is not vulnerable to %s attacks", target.Name, req.Vector)
		}
	case cards.TypeAttack:
		if !inState(target, infra.StateVulnerable) {
			return errors.New("Can only attack vulnerable infrastructure")
		}
		if !tv.ignoresVector(req) && !target.HasVulnerability(req.Vector) {
			return fmt.Errorf("%s has no %s vulnerability to attack", target.Name, req.Vector)
		}
	case cards.TypeShield:
		if !inState(target, infra.StateSecure, infra.StateFortifiedWeaken) {
			return errors.New("Can only shield secure or weakened infrastructure")
		}
	case cards.TypeFortify:
		if !inState(target, infra.StateShielded) {
			return errors.New("Can only fortify shielded infrastructure")
		}
	case cards.TypeResponse:
		if !inState(target, infra.StateCompromised) {
			return errors.New("Can only respond to compromised infrastructure")
		}
	case cards.TypeCounterAttack, cards.TypeCounter:
		if !inState(target, infra.StateShielded, infra.StateFortifiedWeaken) {
			return errors.New("Can only counter shielded infrastructure")
		}
	case cards.TypeReaction:
		if !inState(target, infra.StateVulnerable) {
			return errors.New("Can only react to vulnerable infrastructure")
		}
	case cards.TypeSpecial:
		return nil
	default:
		return fmt.Errorf("Cannot target infrastructure with a %s card", req.Type)
	}
	return nil
}

// ValidateAny succeeds if at least one of types passes Validate. vectorFor,
// when set, supplies the vector for each candidate type.
func (tv *TargetValidator) ValidateAny(req Request, types []cards.Type, vectorFor func(cards.Type) infra.Vector) error {
	if len(types) == 0 {
		return errors.New("No valid card type for this target")
	}
	var first error
	for _, t := range types {
		r := req
		r.Type = t
		if vectorFor != nil {
			r.Vector = vectorFor(t)
		}
		err := tv.Validate(r)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	return first
}

func (tv *TargetValidator) ignoresVector(req Request) bool {
	return tv.IgnoresVector != nil && tv.IgnoresVector(req.Card, req.Target)
}

func inState(target infra.Infrastructure, states ...infra.State) bool {
	for _, s := range states {
		if target.State == s {
			return true
		}
	}
	return false
}
