package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/cost"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/game/targeting"
	"github.com/darknet-duel/duel-server-go/internal/game/wildcard"
	"go.uber.org/zap"
)

// play carries one card through resolution.
type play struct {
	role     rules.Role
	card     cards.Card
	typ      cards.Type
	targetID string
	vector   infra.Vector
	cost     int

	changes      []infra.Change
	openReaction bool
	notes        []string
}

func (p *play) note(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *play) mark() infra.Mark {
	return infra.Mark{Vector: p.vector, AppliedBy: p.card.ID, Role: string(p.role)}
}

var typeActions = map[cards.Type]infra.Action{
	cards.TypeExploit:       infra.ActionExploit,
	cards.TypeAttack:        infra.ActionAttack,
	cards.TypeShield:        infra.ActionShield,
	cards.TypeFortify:       infra.ActionFortify,
	cards.TypeResponse:      infra.ActionResponse,
	cards.TypeCounter:       infra.ActionCounter,
	cards.TypeCounterAttack: infra.ActionCounter,
	cards.TypeReaction:      infra.ActionReaction,
}

// opensReaction reports whether a resolved type hands the opponent a
// reaction window.
func opensReaction(t cards.Type) bool {
	switch t {
	case cards.TypeExploit, cards.TypeAttack, cards.TypeShield, cards.TypeFortify:
		return true
	}
	return false
}

func isEmergencyRestore(card cards.Card) bool {
	return card.Def() == "D307" || card.SpecialEffect == "emergency_restore_shield"
}

// reactiveFor reports whether card may answer during role's reaction.
func reactiveFor(card cards.Card, role rules.Role) bool {
	if isEmergencyRestore(card) {
		return true
	}
	if !card.IsReactive {
		return false
	}
	switch {
	case card.Type == cards.TypeWildcard:
		return true
	case role == rules.RoleAttacker:
		return card.Type.IsCounter()
	default:
		return card.Type == cards.TypeReaction
	}
}

// checkPlayable applies the stage rules for reactive cards.
func checkPlayable(s *MatchState, role rules.Role, card cards.Card) error {
	restore := isEmergencyRestore(card)
	if restore && len(s.Infrastructure.InState(infra.StateCompromised)) == 0 {
		return reject("No compromised infrastructure to restore")
	}
	if s.Stage == rules.StageReaction {
		if !reactiveFor(card, role) {
			return reject("Only reactive cards can be played during a reaction")
		}
		return nil
	}
	if card.IsReactive && !restore {
		return reject("%s can only be played as a reaction", card.Name)
	}
	return nil
}

func (e *Engine) price(s *MatchState, card cards.Card, target *infra.Infrastructure) int {
	c, _ := e.costs.Effective(cost.Context{Card: card, Target: target, Ledger: s.Effects})
	return c
}

// resolveType resolves card against target, offering only wildcard types
// the validator accepts. When nothing is left the first validation failure
// is reported instead of a bare "no options".
func (e *Engine) resolveType(s *MatchState, card cards.Card, role rules.Role, target infra.Infrastructure, chosen cards.Type) (wildcard.Outcome, error) {
	req := targeting.Request{Card: card, Target: target, Ledger: s.Effects}
	legal := func(t cards.Type) bool {
		r := req
		r.Type = t
		r.Vector = wildcard.ResolveVector(card, t, target)
		return e.validator.Validate(r) == nil
	}
	out, err := wildcard.Resolve(card, role, target, chosen, legal)
	if errors.Is(err, wildcard.ErrNoOptions) {
		if raw := wildcard.Options(card, role, target, nil); len(raw) > 0 {
			if verr := e.validator.ValidateAny(req, raw, func(t cards.Type) infra.Vector {
				return wildcard.ResolveVector(card, t, target)
			}); verr != nil {
				err = verr
			}
		}
	}
	if err != nil {
		return out, reject("%s", err.Error())
	}
	return out, nil
}

// validate checks the target for a resolved or pending wildcard outcome.
// Special wildcards skip the state checks but not the target's protections.
func (e *Engine) validate(s *MatchState, card cards.Card, target infra.Infrastructure, out wildcard.Outcome) error {
	req := targeting.Request{Card: card, Target: target, Ledger: s.Effects}
	if cost.BypassesValidation(card) {
		t, ok := wildcard.FixedType(card)
		if !ok {
			return nil
		}
		req.Type = t
		if err := e.validator.CheckEffects(req); err != nil {
			return reject("%s", err.Error())
		}
		return nil
	}
	var err error
	if out.Pending {
		err = e.validator.ValidateAny(req, out.Options, func(t cards.Type) infra.Vector {
			return wildcard.ResolveVector(card, t, target)
		})
	} else {
		req.Type = out.Type
		req.Vector = wildcard.ResolveVector(card, out.Type, target)
		err = e.validator.Validate(req)
	}
	if err != nil {
		return reject("%s", err.Error())
	}
	return nil
}

// throwCard plays a card at an infrastructure target. honeypotPaid is set
// when the move resumes after the honeypot discard.
func (e *Engine) throwCard(s *MatchState, role rules.Role, req ThrowRequest, honeypotPaid bool) (string, error) {
	pl := s.player(role)
	idx := pl.Hand.Index(req.CardID)
	if idx < 0 {
		return "", reject("Card %s is not in your hand", req.CardID)
	}
	card := pl.Hand[idx]
	target, ok := s.Infrastructure.Find(req.TargetID)
	if !ok {
		return "", reject("Unknown infrastructure %s", req.TargetID)
	}
	if card.Target != cards.TargetInfrastructure {
		return "", reject("%s is played without a target", card.Name)
	}
	if err := checkPlayable(s, role, card); err != nil {
		return "", err
	}

	out, err := e.resolveType(s, card, role, target, req.ChosenType)
	if err != nil {
		return "", err
	}
	if err := e.validate(s, card, target, out); err != nil {
		return "", err
	}
	price := e.price(s, card, &target)
	if !cost.CanPay(pl.ActionPoints, price) {
		return "", reject(cost.InsufficientMessage)
	}

	if !honeypotPaid && role == rules.RoleAttacker {
		if trap, ok := s.Effects.Find(effects.TypeHoneypot, target.ID); ok {
			if others := pl.Hand.Remove(idx); len(others) > 0 {
				resume := req
				s.Pending = &PendingChoice{
					Kind:   ChoiceHandDiscard,
					Player: role,
					Hand: &HandChoice{
						TargetPlayer: role,
						Revealed:     others.Clone(),
						Count:        1,
						SourceCardID: trap.SourceCardID,
						Resume:       &resume,
					},
				}
				e.record(s, ActionEntry{
					Role:    role,
					Type:    rules.EventHoneypotTriggered,
					CardID:  card.ID,
					Details: map[string]string{"infrastructure_id": target.ID},
				})
				return fmt.Sprintf("Honeypot! Discard a card before %s reaches %s", card.Name, target.Name), nil
			}
		}
	}

	if out.Pending {
		s.Pending = &PendingChoice{
			Kind:   ChoiceWildcard,
			Player: role,
			Wildcard: &WildcardChoice{
				CardID:   card.ID,
				TargetID: target.ID,
				Options:  out.Options,
				Cost:     price,
			},
		}
		return fmt.Sprintf("Choose how to play %s", card.Name), nil
	}

	return e.resolve(s, &play{
		role:     role,
		card:     card,
		typ:      out.Type,
		targetID: target.ID,
		vector:   wildcard.ResolveVector(card, out.Type, target),
		cost:     price,
	})
}

// playCard plays a card that needs no infrastructure target.
func (e *Engine) playCard(s *MatchState, role rules.Role, cardID string) (string, error) {
	pl := s.player(role)
	idx := pl.Hand.Index(cardID)
	if idx < 0 {
		return "", reject("Card %s is not in your hand", cardID)
	}
	card := pl.Hand[idx]
	if card.Target == cards.TargetInfrastructure {
		return "", reject("%s needs a target", card.Name)
	}
	if err := checkPlayable(s, role, card); err != nil {
		return "", err
	}
	price := e.price(s, card, nil)
	if !cost.CanPay(pl.ActionPoints, price) {
		return "", reject(cost.InsufficientMessage)
	}
	if e.findSpecial(card) == nil && card.Draw == 0 && card.LookAt == 0 {
		return "", reject("%s has no effect", card.Name)
	}
	return e.resolve(s, &play{role: role, card: card, typ: card.Type, cost: price})
}

// resolve runs the effect, book-keeping and follow-ups of a validated play.
func (e *Engine) resolve(s *MatchState, p *play) (string, error) {
	p.openReaction = p.targetID != "" && opensReaction(p.typ) && !p.card.PreventReaction

	h := e.findSpecial(p.card)
	switch {
	case h != nil && h.resolve != nil:
		if err := h.resolve(e, s, p); err != nil {
			return "", err
		}
	case p.targetID != "" && p.typ != cards.TypeSpecial:
		action, ok := typeActions[p.typ]
		if !ok {
			return "", broken("no action for card type %s", p.typ)
		}
		applied, err := e.transition(s, p.targetID, action, p.mark())
		if err != nil {
			return "", err
		}
		if applied == nil {
			return "", reject("%s had no effect on %s", p.card.Name, e.infraName(s, p.targetID))
		}
		p.changes = append(p.changes, *applied)
	}

	entryType := rules.EventThrowCard
	if p.targetID == "" {
		entryType = rules.EventPlayCard
	}
	if err := e.finishPlay(s, p, entryType); err != nil {
		return "", err
	}
	if h != nil && h.after != nil {
		if err := h.after(e, s, p); err != nil {
			return "", err
		}
	}
	return e.afterPlay(s, p), nil
}

// finishPlay moves the card to discard, pays for it and logs it.
func (e *Engine) finishPlay(s *MatchState, p *play, entryType rules.EventType) error {
	pl := s.player(p.role)
	idx := pl.Hand.Index(p.card.ID)
	if idx < 0 {
		return broken("card %s left %s's hand during resolution", p.card.ID, p.role)
	}
	pl.Hand = pl.Hand.Remove(idx)
	pl.Discard = append(pl.Discard, p.card.Clone())
	pl.ActionPoints -= p.cost

	details := map[string]string{
		"card_name": p.card.Name,
		"cost":      strconv.Itoa(p.cost),
	}
	if p.vector != "" {
		details["vector"] = string(p.vector)
	}
	if len(p.changes) > 0 {
		transitions := make([]string, len(p.changes))
		for i, c := range p.changes {
			transitions[i] = fmt.Sprintf("%s:%s->%s", c.InfrastructureID, c.From, c.To)
		}
		details["transitions"] = strings.Join(transitions, ",")
	}
	e.record(s, ActionEntry{
		Role:                   p.role,
		Type:                   entryType,
		CardID:                 p.card.ID,
		CardType:               string(p.typ),
		TargetInfrastructureID: p.targetID,
		Details:                details,
	})
	s.recomputeScores()
	return nil
}

// afterPlay handles card draw, deck look-ahead, the win check, the reaction
// window and auto end-turn.
func (e *Engine) afterPlay(s *MatchState, p *play) string {
	msgs := []string{fmt.Sprintf("%s played %s", p.role.Title(), p.card.Name)}
	msgs = append(msgs, p.notes...)

	if p.card.Draw > 0 {
		if n := e.draw(s, p.role, p.card.Draw); n > 0 {
			msgs = append(msgs, fmt.Sprintf("Drew %d card(s)", n))
		}
	}
	if p.card.LookAt > 0 && s.Pending == nil {
		msgs = append(msgs, e.openDeckChoice(s, p.role, p.card, p.card.LookAt))
	}

	if e.checkWin(s) {
		return strings.Join(append(msgs, s.Verdict.Reason), ". ")
	}

	switch {
	case s.Stage == rules.StageReaction:
		s.Stage = rules.StageAction
		s.ReactionTargetID = ""
	case p.openReaction && !s.Effects.Has(effects.TypePreventReactions, p.targetID):
		if s.Pending == nil {
			s.Stage = rules.StageReaction
			s.ReactionTargetID = p.targetID
		} else if s.Pending.Kind == ChoiceChainTarget {
			s.Pending.Chain.OpenReaction = true
		}
	}

	if msg := e.maybeAutoEnd(s); msg != "" {
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, ". ")
}

// transition applies action to the infrastructure with id and fires any
// persistent effects watching it. It returns nil when the action has no
// effect in the target's state.
func (e *Engine) transition(s *MatchState, id string, action infra.Action, mark infra.Mark) (*infra.Change, error) {
	idx := s.Infrastructure.Index(id)
	if idx < 0 {
		return nil, broken("infrastructure %s missing from roster", id)
	}
	next, change, ok := infra.Transition(s.Infrastructure[idx], action, mark)
	if !ok {
		return nil, nil
	}
	s.Infrastructure[idx] = next

	var fired []effects.Firing
	s.Effects, fired = s.Effects.Evaluate(change)
	for _, f := range fired {
		e.payReward(s, f)
	}
	return &change, nil
}

func (e *Engine) payReward(s *MatchState, f effects.Firing) {
	pl := s.player(f.Beneficiary)
	switch f.Reward.Kind {
	case effects.RewardResource:
		pl.ActionPoints = min(pl.ActionPoints+f.Reward.Amount, e.rules.MaxActionPoints)
	case effects.RewardDraw:
		e.draw(s, f.Beneficiary, f.Reward.Amount)
	}
	e.record(s, ActionEntry{
		Role:   f.Beneficiary,
		Type:   rules.EventEffectTriggered,
		CardID: f.SourceCardID,
		Details: map[string]string{
			"effect_id": f.EffectID,
			"reward":    string(f.Reward.Kind),
			"amount":    strconv.Itoa(f.Reward.Amount),
		},
	})
	if e.logger != nil {
		e.logger.Debug("persistent effect fired",
			zap.String("match_id", s.MatchID),
			zap.String("effect_id", f.EffectID),
			zap.String("beneficiary", string(f.Beneficiary)),
		)
	}
}

// draw moves up to n cards from role's deck to hand without passing the
// maximum hand size. It returns the number drawn.
func (e *Engine) draw(s *MatchState, role rules.Role, n int) int {
	pl := s.player(role)
	n = min(n, e.rules.MaxHandSize-len(pl.Hand), len(pl.Deck))
	if n <= 0 {
		return 0
	}
	pl.Hand, pl.Deck = cards.Draw(pl.Hand, pl.Deck, n)
	return n
}

func (e *Engine) openDeckChoice(s *MatchState, role rules.Role, source cards.Card, n int) string {
	pl := s.player(role)
	n = min(n, len(pl.Deck))
	if n == 0 {
		return "Deck is empty"
	}
	s.Pending = &PendingChoice{
		Kind:   ChoiceDeckCard,
		Player: role,
		Deck: &DeckChoice{
			SourceCardID: source.ID,
			Options:      pl.Deck[:n].Clone(),
		},
	}
	return fmt.Sprintf("Choose one of the top %d cards of your deck", n)
}

func (e *Engine) infraName(s *MatchState, id string) string {
	if item, ok := s.Infrastructure.Find(id); ok && item.Name != "" {
		return item.Name
	}
	return id
}
