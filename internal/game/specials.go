package game

import (
	"fmt"
	"slices"
	"strings"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/game/targeting"
)

// specialEffectDuration is how many turn starts a card's temporary effect
// survives.
const specialEffectDuration = 2

// special overrides or extends the resolution of one card. resolve replaces
// the generic state transition; after runs once the card is paid for and in
// the discard pile.
type special struct {
	name    string
	ids     []string
	effect  string
	resolve func(e *Engine, s *MatchState, p *play) error
	after   func(e *Engine, s *MatchState, p *play) error
}

func (h special) matches(card cards.Card) bool {
	if slices.Contains(h.ids, card.Def()) {
		return true
	}
	return h.effect != "" && card.SpecialEffect == h.effect
}

// specialHandlers is checked in order; the first match wins.
var specialHandlers = []special{
	{name: "emergency restore", ids: []string{"D307"}, effect: "emergency_restore_shield", resolve: emergencyRestore},
	{name: "lateral movement", ids: []string{"A307"}, effect: "chain_vulnerability", resolve: chainPrimary(ChainVulnerability), after: openChain(ChainVulnerability)},
	{name: "supply chain compromise", ids: []string{"A309"}, effect: "chain_compromise", resolve: chainPrimary(ChainCompromise), after: openChain(ChainCompromise)},
	{name: "security automation", ids: []string{"D303"}, effect: "chain_security", resolve: chainPrimary(ChainSecurity), after: openChain(ChainSecurity)},
	{name: "incident response team", ids: []string{"D306"}, effect: "mass_restore", resolve: massRestore},
	{name: "memory corruption", ids: []string{"A308"}, effect: "discard_redraw", resolve: discardRedraw},
	{name: "threat intelligence", ids: []string{"D302"}, effect: "view_and_discard", resolve: requireOpponentHand, after: viewAndDiscard},
	{name: "recovery drill", ids: []string{"D310"}, effect: "recovery_trigger", resolve: noTransition, after: recoveryTrigger},
	{name: "multi-stage malware", ids: []string{"A305"}, effect: "multi_stage_trigger", after: multiStageTrigger},
	{name: "prevent reactions", ids: []string{"A301", "D301"}, effect: "prevent_reactions", after: preventReactions},
	{name: "privilege escalation", ids: []string{"A304"}, effect: "prevent_restore", after: temporary(effects.TypePreventRestore, effects.Metadata{})},
	{name: "honeypot", ids: []string{"D304"}, effect: "honeypot", after: temporary(effects.TypeHoneypot, effects.Metadata{})},
	{name: "quantum-safe encryption", ids: []string{"D305"}, effect: "quantum_protection", after: temporary(effects.TypePreventExploits, effects.Metadata{})},
	{name: "patch management", ids: []string{"D308"}, effect: "cost_reduction", after: temporary(effects.TypeCostReduction, effects.Metadata{})},
	{name: "network segmentation", ids: []string{"D309"}, effect: "restrict_targeting", after: temporary(effects.TypeRestrictTargeting, effects.Metadata{RestrictedTypes: []string{string(cards.TypeAttack)}})},
}

func (e *Engine) findSpecial(card cards.Card) *special {
	for i := range e.specials {
		if e.specials[i].matches(card) {
			return &e.specials[i]
		}
	}
	return nil
}

func emergencyRestore(e *Engine, s *MatchState, p *play) error {
	restored, err := e.transition(s, p.targetID, infra.ActionResponse, p.mark())
	if err != nil {
		return err
	}
	if restored == nil {
		return reject("%s needs a compromised target", p.card.Name)
	}
	p.typ = cards.TypeResponse
	p.changes = append(p.changes, *restored)

	shielded, err := e.transition(s, p.targetID, infra.ActionShield, p.mark())
	if err != nil {
		return err
	}
	if shielded != nil {
		p.changes = append(p.changes, *shielded)
	}
	return nil
}

var chainActions = map[ChainKind]infra.Action{
	ChainVulnerability: infra.ActionExploit,
	ChainCompromise:    infra.ActionAttack,
	ChainSecurity:      infra.ActionShield,
}

var chainStates = map[ChainKind]infra.State{
	ChainVulnerability: infra.StateSecure,
	ChainCompromise:    infra.StateVulnerable,
	ChainSecurity:      infra.StateSecure,
}

// chainTypes is the card type a chain continues as, for the ledger checks.
var chainTypes = map[ChainKind]cards.Type{
	ChainVulnerability: cards.TypeExploit,
	ChainCompromise:    cards.TypeAttack,
	ChainSecurity:      cards.TypeShield,
}

// chainTargetError reports why the chain cannot continue to target.
func (e *Engine) chainTargetError(s *MatchState, kind ChainKind, target infra.Infrastructure) error {
	if target.State != chainStates[kind] {
		return fmt.Errorf("Chain cannot reach %s while it is %s", target.Name, target.State)
	}
	return e.validator.CheckEffects(targeting.Request{Type: chainTypes[kind], Target: target, Ledger: s.Effects})
}

// chainOptions lists the other targets a chain can continue to.
func (e *Engine) chainOptions(s *MatchState, kind ChainKind, exclude string) []string {
	var out []string
	for _, item := range s.Infrastructure {
		if item.ID != exclude && e.chainTargetError(s, kind, item) == nil {
			out = append(out, item.ID)
		}
	}
	return out
}

// chainPrimary applies the chain's effect to the thrown-at target. A chain
// card with no effect there is still legal while another target can take
// the chain.
func chainPrimary(kind ChainKind) func(*Engine, *MatchState, *play) error {
	return func(e *Engine, s *MatchState, p *play) error {
		change, err := e.transition(s, p.targetID, chainActions[kind], p.mark())
		if err != nil {
			return err
		}
		if change != nil {
			p.changes = append(p.changes, *change)
			return nil
		}
		if len(e.chainOptions(s, kind, p.targetID)) == 0 {
			return reject("%s had no effect on %s", p.card.Name, e.infraName(s, p.targetID))
		}
		return nil
	}
}

func openChain(kind ChainKind) func(*Engine, *MatchState, *play) error {
	return func(e *Engine, s *MatchState, p *play) error {
		opts := e.chainOptions(s, kind, p.targetID)
		if len(opts) == 0 {
			p.note("No target left for the chain")
			return nil
		}
		s.Pending = &PendingChoice{
			Kind:   ChoiceChainTarget,
			Player: p.role,
			Chain: &ChainChoice{
				Kind:             kind,
				SourceCardID:     p.card.ID,
				OriginalType:     p.typ,
				OriginalTargetID: p.targetID,
				Options:          opts,
			},
		}
		p.note("Choose a target for the chain")
		return nil
	}
}

func massRestore(e *Engine, s *MatchState, p *play) error {
	var ids []string
	for _, id := range s.Infrastructure.InState(infra.StateCompromised) {
		if !s.Effects.Has(effects.TypePreventRestore, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return reject("No compromised infrastructure can be restored")
	}
	for _, id := range ids {
		change, err := e.transition(s, id, infra.ActionResponse, p.mark())
		if err != nil {
			return err
		}
		if change == nil {
			return broken("restore of compromised %s had no effect", id)
		}
		p.changes = append(p.changes, *change)
	}
	p.note("Restored %s", strings.Join(ids, ", "))
	return nil
}

// discardRedraw replaces the opponent's hand with as many fresh cards,
// shuffling their discard pile back in when the deck runs short.
func discardRedraw(e *Engine, s *MatchState, p *play) error {
	opp := s.player(p.role.Opponent())
	n := len(opp.Hand)
	if n == 0 {
		return reject("%s has no cards to disrupt", p.role.Opponent().Title())
	}
	opp.Discard = append(opp.Discard, opp.Hand...)
	opp.Hand = nil
	if len(opp.Deck) < n {
		refill := opp.Discard
		cards.Shuffle(refill, e.rng(s))
		opp.Deck = append(opp.Deck, refill...)
		opp.Discard = nil
	}
	opp.Hand, opp.Deck = cards.Draw(nil, opp.Deck, n)
	p.note("%s redrew %d card(s)", p.role.Opponent().Title(), len(opp.Hand))
	return nil
}

func requireOpponentHand(e *Engine, s *MatchState, p *play) error {
	if len(s.player(p.role.Opponent()).Hand) == 0 {
		return reject("%s has no cards to reveal", p.role.Opponent().Title())
	}
	return nil
}

func viewAndDiscard(e *Engine, s *MatchState, p *play) error {
	opp := p.role.Opponent()
	s.Pending = &PendingChoice{
		Kind:   ChoiceHandDiscard,
		Player: p.role,
		Hand: &HandChoice{
			TargetPlayer: opp,
			Revealed:     s.player(opp).Hand.Clone(),
			Count:        1,
			SourceCardID: p.card.ID,
		},
	}
	p.note("Choose a card to discard from the %s's hand", strings.ToLower(opp.Title()))
	return nil
}

func noTransition(*Engine, *MatchState, *play) error { return nil }

func recoveryTrigger(e *Engine, s *MatchState, p *play) error {
	s.Effects = s.Effects.Register(effects.Persistent{
		Type:             "recovery_trigger",
		InfrastructureID: p.targetID,
		Beneficiary:      p.role,
		Condition:        effects.Condition{From: infra.StateAny, To: infra.StateSecure},
		Reward:           effects.Reward{Kind: effects.RewardDraw, Amount: 1},
		SourceCardID:     p.card.ID,
	})
	return nil
}

func multiStageTrigger(e *Engine, s *MatchState, p *play) error {
	s.Effects = s.Effects.Register(effects.Persistent{
		Type:             "multi_stage_trigger",
		InfrastructureID: p.targetID,
		Beneficiary:      p.role,
		Condition:        effects.Condition{From: infra.StateVulnerable, To: infra.StateCompromised},
		Reward:           effects.Reward{Kind: effects.RewardResource, Amount: 1},
		AutoRemove:       true,
		SourceCardID:     p.card.ID,
	})
	return nil
}

func preventReactions(e *Engine, s *MatchState, p *play) error {
	meta := effects.Metadata{PreventType: "reactions"}
	if p.role == rules.RoleDefender {
		meta.PreventType = "reactive_attacks"
	}
	return temporary(effects.TypePreventReactions, meta)(e, s, p)
}

func temporary(typ effects.Type, meta effects.Metadata) func(*Engine, *MatchState, *play) error {
	return func(e *Engine, s *MatchState, p *play) error {
		m := meta
		m.RestrictedTypes = slices.Clone(meta.RestrictedTypes)
		s.Effects = s.Effects.AddTemporary(effects.Temporary{
			Type:         typ,
			TargetID:     p.targetID,
			PlayerID:     string(p.role),
			Duration:     specialEffectDuration,
			SourceCardID: p.card.ID,
			Metadata:     m,
		})
		return nil
	}
}
