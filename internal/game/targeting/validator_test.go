package targeting

import (
	"testing"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/stretchr/testify/assert"
)

func target(state infra.State) infra.Infrastructure {
	return infra.Infrastructure{
		ID:                "I007",
		Name:              "Employee Workstations",
		Category:          infra.CategoryUser,
		State:             state,
		VulnerableVectors: []infra.Vector{infra.VectorSocial, infra.VectorMalware},
	}
}

func TestValidate(t *testing.T) {
	tv := NewTargetValidator()
	vulnerable := target(infra.StateVulnerable)
	vulnerable.Vulnerabilities = []infra.Mark{{Vector: infra.VectorSocial}}

	prevent := func(typ effects.Type) effects.Ledger {
		return effects.Ledger{}.AddTemporary(effects.Temporary{Type: typ, TargetID: "I007", Duration: 2})
	}
	restricted := effects.Ledger{}.AddTemporary(effects.Temporary{
		Type:     effects.TypeRestrictTargeting,
		TargetID: "I007",
		Duration: 2,
		Metadata: effects.Metadata{RestrictedTypes: []string{"attack"}},
	})

	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"exploit matching vector", Request{Type: cards.TypeExploit, Target: target(infra.StateSecure), Vector: infra.VectorSocial}, true},
		{"exploit wrong vector", Request{Type: cards.TypeExploit, Target: target(infra.StateSecure), Vector: infra.VectorWeb}, false},
		{"exploit fortified", Request{Type: cards.TypeExploit, Target: target(infra.StateFortified), Vector: infra.VectorMalware}, true},
		{"exploit vulnerable", Request{Type: cards.TypeExploit, Target: vulnerable, Vector: infra.VectorSocial}, false},
		{"exploit blocked", Request{Type: cards.TypeExploit, Target: target(infra.StateSecure), Vector: infra.VectorSocial, Ledger: prevent(effects.TypeQuantumProtection)}, false},
		{"attack matching vulnerability", Request{Type: cards.TypeAttack, Target: vulnerable, Vector: infra.VectorSocial}, true},
		{"attack wrong vulnerability", Request{Type: cards.TypeAttack, Target: vulnerable, Vector: infra.VectorMalware}, false},
		{"insider threat ignores vector", Request{Card: cards.Card{ID: "A303"}, Type: cards.TypeAttack, Target: vulnerable, Vector: infra.VectorNetwork}, true},
		{"insider threat still needs vulnerable", Request{Card: cards.Card{ID: "A303"}, Type: cards.TypeAttack, Target: target(infra.StateSecure)}, false},
		{"attack restricted", Request{Type: cards.TypeAttack, Target: vulnerable, Vector: infra.VectorSocial, Ledger: restricted}, false},
		{"shield secure", Request{Type: cards.TypeShield, Target: target(infra.StateSecure)}, true},
		{"shield weakened", Request{Type: cards.TypeShield, Target: target(infra.StateFortifiedWeaken)}, true},
		{"shield shielded", Request{Type: cards.TypeShield, Target: target(infra.StateShielded)}, false},
		{"fortify shielded", Request{Type: cards.TypeFortify, Target: target(infra.StateShielded)}, true},
		{"fortify secure", Request{Type: cards.TypeFortify, Target: target(infra.StateSecure)}, false},
		{"response compromised", Request{Type: cards.TypeResponse, Target: target(infra.StateCompromised)}, true},
		{"response blocked", Request{Type: cards.TypeResponse, Target: target(infra.StateCompromised), Ledger: prevent(effects.TypePreventRestore)}, false},
		{"counter shielded", Request{Type: cards.TypeCounterAttack, Target: target(infra.StateShielded)}, true},
		{"counter blocked", Request{Type: cards.TypeCounterAttack, Target: target(infra.StateShielded), Ledger: prevent(effects.TypePreventReactions)}, false},
		{"counter secure", Request{Type: cards.TypeCounter, Target: target(infra.StateSecure)}, false},
		{"reaction vulnerable", Request{Type: cards.TypeReaction, Target: vulnerable}, true},
		{"reaction blocked", Request{Type: cards.TypeReaction, Target: vulnerable, Ledger: prevent(effects.TypePreventReactions)}, false},
		{"special skips state", Request{Type: cards.TypeSpecial, Target: target(infra.StateCompromised)}, true},
		{"wildcard unresolved", Request{Type: cards.TypeWildcard, Target: target(infra.StateSecure)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tv.Validate(tt.req)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateAny(t *testing.T) {
	tv := NewTargetValidator()
	req := Request{Target: target(infra.StateSecure)}

	vectorFor := func(cards.Type) infra.Vector { return infra.VectorMalware }
	assert.NoError(t, tv.ValidateAny(req, []cards.Type{cards.TypeAttack, cards.TypeExploit}, vectorFor))

	err := tv.ValidateAny(req, []cards.Type{cards.TypeAttack, cards.TypeFortify}, vectorFor)
	assert.EqualError(t, err, "Can only attack vulnerable infrastructure")

	assert.Error(t, tv.ValidateAny(req, nil, nil))
}

func TestCheckEffectsIgnoresState(t *testing.T) {
	tv := NewTargetValidator()
	ledger := effects.Ledger{}.
		AddTemporary(effects.Temporary{Type: effects.TypePreventExploits, TargetID: "I007", Duration: 2}).
		AddTemporary(effects.Temporary{Type: effects.TypePreventRestore, TargetID: "I007", Duration: 2}).
		AddTemporary(effects.Temporary{
			Type:     effects.TypeRestrictTargeting,
			TargetID: "I007",
			Duration: 2,
			Metadata: effects.Metadata{RestrictedTypes: []string{"attack"}},
		})

	tests := []struct {
		name string
		typ  cards.Type
		want string
	}{
		{"exploit", cards.TypeExploit, "Employee Workstations is protected against exploits"},
		{"attack", cards.TypeAttack, "Employee Workstations is protected against attack cards"},
		{"response", cards.TypeResponse, "Employee Workstations cannot be restored right now"},
		{"shield", cards.TypeShield, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Compromised is invalid for every type here; only the ledger counts.
			err := tv.CheckEffects(Request{Type: tt.typ, Target: target(infra.StateCompromised), Ledger: ledger})
			if tt.want == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.want)
			}
		})
	}

	other := target(infra.StateSecure)
	other.ID = "I001"
	assert.NoError(t, tv.CheckEffects(Request{Type: cards.TypeExploit, Target: other, Ledger: ledger}))
}
