package game

import (
	"fmt"
	"slices"
	"strings"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/cost"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/game/wildcard"
)

// chooseWildcardType resolves a parked wildcard as one of its offered
// types. An invalid choice leaves the choice open.
func (e *Engine) chooseWildcardType(s *MatchState, role rules.Role, chosen cards.Type) (string, error) {
	wc := s.Pending.Wildcard
	if wc == nil {
		return "", broken("wildcard choice without payload")
	}
	if !slices.Contains(wc.Options, chosen) {
		return "", reject("Invalid wildcard choice %q", string(chosen))
	}

	pl := s.player(role)
	card, ok := pl.Hand.Find(wc.CardID)
	if !ok {
		return "", broken("pending wildcard %s is not in %s's hand", wc.CardID, role)
	}
	target, ok := s.Infrastructure.Find(wc.TargetID)
	if !ok {
		return "", broken("pending wildcard target %s missing", wc.TargetID)
	}

	out, err := e.resolveType(s, card, role, target, chosen)
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

	s.Pending = nil
	return e.resolve(s, &play{
		role:     role,
		card:     card,
		typ:      out.Type,
		targetID: target.ID,
		vector:   wildcard.ResolveVector(card, out.Type, target),
		cost:     price,
	})
}

// chooseChainTarget finishes a chain card. An empty target skips the chain.
func (e *Engine) chooseChainTarget(s *MatchState, role rules.Role, targetID string) (string, error) {
	ch := s.Pending.Chain
	if ch == nil {
		return "", broken("chain choice without payload")
	}
	s.Pending = nil

	var msg string
	if targetID == "" {
		e.record(s, ActionEntry{Role: role, Type: rules.EventChainSkipped, CardID: ch.SourceCardID})
		msg = "Chain skipped"
	} else {
		if !slices.Contains(ch.Options, targetID) {
			return "", reject("Invalid chain target %s", targetID)
		}
		target, ok := s.Infrastructure.Find(targetID)
		if !ok {
			return "", broken("chain target %s missing", targetID)
		}
		if err := e.chainTargetError(s, ch.Kind, target); err != nil {
			return "", reject("%s", err.Error())
		}

		mark := infra.Mark{AppliedBy: ch.SourceCardID, Role: string(role)}
		if ch.Kind == ChainVulnerability {
			mark.Vector = infra.VectorNetwork
			if len(target.VulnerableVectors) > 0 {
				mark.Vector = target.VulnerableVectors[0]
			}
		}
		change, err := e.transition(s, targetID, chainActions[ch.Kind], mark)
		if err != nil {
			return "", err
		}
		if change == nil {
			return "", reject("Chain had no effect on %s", e.infraName(s, targetID))
		}
		if ch.Kind == ChainVulnerability {
			s.Effects = s.Effects.AddTemporary(effects.Temporary{
				Type:         effects.TypeChainVulnerability,
				TargetID:     targetID,
				PlayerID:     string(role),
				Duration:     1,
				SourceCardID: ch.SourceCardID,
				Metadata:     effects.Metadata{VulnerabilityType: string(mark.Vector)},
			})
		}
		e.record(s, ActionEntry{
			Role:                   role,
			Type:                   rules.EventChainEffect,
			CardID:                 ch.SourceCardID,
			CardType:               string(ch.OriginalType),
			TargetInfrastructureID: targetID,
			Details: map[string]string{
				"chain": string(ch.Kind),
				"from":  string(change.From),
				"to":    string(change.To),
			},
		})
		s.recomputeScores()
		msg = fmt.Sprintf("Chain hit %s", e.infraName(s, targetID))
	}

	if e.checkWin(s) {
		return msg + ". " + s.Verdict.Reason, nil
	}
	if ch.OpenReaction && s.Stage == rules.StageAction && !s.Effects.Has(effects.TypePreventReactions, ch.OriginalTargetID) {
		s.Stage = rules.StageReaction
		s.ReactionTargetID = ch.OriginalTargetID
	}
	if auto := e.maybeAutoEnd(s); auto != "" {
		msg += ". " + auto
	}
	return msg, nil
}

// chooseHandDiscard discards the picked cards from a revealed hand. A
// honeypot discard then resumes the parked throw.
func (e *Engine) chooseHandDiscard(s *MatchState, role rules.Role, ids []string) (string, error) {
	hc := s.Pending.Hand
	if hc == nil {
		return "", broken("hand choice without payload")
	}
	need := min(hc.Count, len(hc.Revealed))
	if len(ids) != need {
		return "", reject("Choose exactly %d card(s)", need)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return "", reject("Card %s chosen twice", id)
		}
		seen[id] = true
		if hc.Revealed.Index(id) < 0 {
			return "", reject("Card %s is not a legal choice", id)
		}
	}

	owner := s.player(hc.TargetPlayer)
	var names []string
	for _, id := range ids {
		idx := owner.Hand.Index(id)
		if idx < 0 {
			return "", broken("revealed card %s left %s's hand", id, hc.TargetPlayer)
		}
		names = append(names, owner.Hand[idx].Name)
		owner.Discard = append(owner.Discard, owner.Hand[idx])
		owner.Hand = owner.Hand.Remove(idx)
	}
	s.Pending = nil
	e.record(s, ActionEntry{
		Role:   role,
		Type:   rules.EventHandDiscard,
		CardID: hc.SourceCardID,
		Details: map[string]string{
			"target_player": string(hc.TargetPlayer),
			"cards":         strings.Join(ids, ","),
		},
	})
	msg := fmt.Sprintf("Discarded %s", strings.Join(names, ", "))

	if hc.Resume != nil {
		next, err := e.throwCard(s, role, *hc.Resume, true)
		if err != nil {
			return "", err
		}
		return msg + ". " + next, nil
	}
	if auto := e.maybeAutoEnd(s); auto != "" {
		msg += ". " + auto
	}
	return msg, nil
}

// chooseCardFromDeck takes one of the offered cards into hand. The rest of
// the deck keeps its order.
func (e *Engine) chooseCardFromDeck(s *MatchState, role rules.Role, cardID string) (string, error) {
	dc := s.Pending.Deck
	if dc == nil {
		return "", broken("deck choice without payload")
	}
	if dc.Options.Index(cardID) < 0 {
		return "", reject("Card %s is not a legal choice", cardID)
	}
	pl := s.player(role)
	idx := pl.Deck.Index(cardID)
	if idx < 0 {
		return "", broken("offered card %s left %s's deck", cardID, role)
	}
	card := pl.Deck[idx]
	pl.Deck = pl.Deck.Remove(idx)
	pl.Hand = append(pl.Hand, card)
	s.Pending = nil
	e.record(s, ActionEntry{
		Role:    role,
		Type:    rules.EventDeckCardChosen,
		CardID:  dc.SourceCardID,
		Details: map[string]string{"card": card.ID},
	})

	msg := fmt.Sprintf("Took %s into hand", card.Name)
	if auto := e.maybeAutoEnd(s); auto != "" {
		msg += ". " + auto
	}
	return msg, nil
}
