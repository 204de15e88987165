package effects

import (
	"slices"

	"github.com/google/uuid"
)

// Type tags a temporary effect.
type Type string

const (
	// TypePreventReactions blocks reactive cards against the target and keeps
	// reaction windows from opening on it.
	TypePreventReactions Type = "prevent_reactions"

	// TypePreventRestore blocks response cards against the target.
	TypePreventRestore Type = "prevent_restore"

	// TypePreventExploits blocks exploit cards against the target.
	TypePreventExploits Type = "prevent_exploits"

	// TypeQuantumProtection is the catalogue name for TypePreventExploits.
	TypeQuantumProtection Type = "quantum_protection"

	// TypeCostReduction lowers by one the cost of cards played at the target.
	TypeCostReduction Type = "cost_reduction"

	// TypeChainVulnerability marks a target made vulnerable by a chain.
	TypeChainVulnerability Type = "chain_vulnerability"

	// TypeRestrictTargeting forbids the card types listed in the metadata.
	TypeRestrictTargeting Type = "restrict_targeting"

	// TypeHoneypot taxes an attacker one card to throw at the target.
	TypeHoneypot Type = "honeypot"
)

// Metadata carries the type-specific details of a temporary effect.
type Metadata struct {
	RestrictedTypes   []string `json:"restricted_types,omitempty"`
	PreventType       string   `json:"prevent_type,omitempty"`
	VulnerabilityType string   `json:"vulnerability_type,omitempty"`
}

// Temporary is a duration-based modifier. Duration counts turn starts and is
// always positive while the effect is in the ledger.
type Temporary struct {
	ID           string   `json:"id"`
	Type         Type     `json:"type"`
	TargetID     string   `json:"target_id,omitempty"`
	PlayerID     string   `json:"player_id,omitempty"`
	Duration     int      `json:"duration"`
	SourceCardID string   `json:"source_card_id,omitempty"`
	Metadata     Metadata `json:"metadata"`
}

func (t Temporary) clone() Temporary {
	t.Metadata.RestrictedTypes = slices.Clone(t.Metadata.RestrictedTypes)
	return t
}

// matches reports whether the effect has type typ and, when target is not
// empty, applies to target.
func (t Temporary) matches(typ Type, target string) bool {
	if t.Type != typ && !aliases(typ, t.Type) {
		return false
	}
	return target == "" || t.TargetID == target
}

func aliases(a, b Type) bool {
	exploit := func(x Type) bool { return x == TypePreventExploits || x == TypeQuantumProtection }
	return exploit(a) && exploit(b)
}

// AddTemporary returns a ledger with e appended. Effects with a non-positive
// duration are dropped.
func (l Ledger) AddTemporary(e Temporary) Ledger {
	if e.Duration <= 0 {
		return l
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	next := l.Clone()
	next.Temporary = append(next.Temporary, e.clone())
	return next
}

// Has reports whether an effect of typ is active on target. An empty target
// matches any.
func (l Ledger) Has(typ Type, target string) bool {
	_, ok := l.Find(typ, target)
	return ok
}

// Find returns the first active effect of typ on target.
func (l Ledger) Find(typ Type, target string) (Temporary, bool) {
	for _, e := range l.Temporary {
		if e.matches(typ, target) {
			return e.clone(), true
		}
	}
	return Temporary{}, false
}

// Restricts reports whether a restrict_targeting effect on target forbids
// cardType.
func (l Ledger) Restricts(target, cardType string) bool {
	for _, e := range l.Temporary {
		if e.matches(TypeRestrictTargeting, target) && slices.Contains(e.Metadata.RestrictedTypes, cardType) {
			return true
		}
	}
	return false
}

// Age decrements every temporary effect by one turn and drops those that
// reach zero. The expired effects are returned for logging.
func (l Ledger) Age() (Ledger, []Temporary) {
	next := l.Clone()
	kept := next.Temporary[:0]
	var expired []Temporary
	for _, e := range next.Temporary {
		e.Duration--
		if e.Duration <= 0 {
			expired = append(expired, e)
			continue
		}
		kept = append(kept, e)
	}
	next.Temporary = kept
	return next, expired
}

// RemoveTemporary drops every effect of typ on target.
func (l Ledger) RemoveTemporary(typ Type, target string) Ledger {
	next := l.Clone()
	next.Temporary = slices.DeleteFunc(next.Temporary, func(e Temporary) bool {
		return e.matches(typ, target)
	})
	return next
}
