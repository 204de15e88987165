package game

import (
	"maps"
	"slices"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
)

// Player is one seat of a match.
type Player struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Role               rules.Role `json:"role"`
	ActionPoints       int        `json:"action_points"`
	FreeCardCyclesUsed int        `json:"free_card_cycles_used"`
	Hand               cards.Pile `json:"hand"`
	Deck               cards.Pile `json:"deck"`
	Discard            cards.Pile `json:"discard"`
}

func (p Player) clone() Player {
	p.Hand = p.Hand.Clone()
	p.Deck = p.Deck.Clone()
	p.Discard = p.Discard.Clone()
	return p
}

// CardCount is the number of cards the player owns across hand, deck and
// discard.
func (p Player) CardCount() int {
	return len(p.Hand) + len(p.Deck) + len(p.Discard)
}

// ChoiceKind tags the variant of a PendingChoice.
type ChoiceKind string

const (
	ChoiceWildcard    ChoiceKind = "wildcard"
	ChoiceChainTarget ChoiceKind = "chain_target"
	ChoiceHandDiscard ChoiceKind = "hand_discard"
	ChoiceDeckCard    ChoiceKind = "deck_card"
)

var choiceMoves = map[ChoiceKind]rules.Move{
	ChoiceWildcard:    rules.MoveChooseWildcardType,
	ChoiceChainTarget: rules.MoveChooseChainTarget,
	ChoiceHandDiscard: rules.MoveChooseHandDiscard,
	ChoiceDeckCard:    rules.MoveChooseCardFromDeck,
}

// PendingChoice is a suspended card play waiting for one player to pick.
// Exactly one of the variant pointers matching Kind is set.
type PendingChoice struct {
	Kind   ChoiceKind `json:"kind"`
	Player rules.Role `json:"player"`

	Wildcard *WildcardChoice `json:"wildcard,omitempty"`
	Chain    *ChainChoice    `json:"chain,omitempty"`
	Hand     *HandChoice     `json:"hand,omitempty"`
	Deck     *DeckChoice     `json:"deck,omitempty"`
}

// Move is the only move that resolves the choice.
func (c *PendingChoice) Move() rules.Move {
	return choiceMoves[c.Kind]
}

// Options lists the legal answers as strings.
func (c *PendingChoice) Options() []string {
	switch c.Kind {
	case ChoiceWildcard:
		out := make([]string, len(c.Wildcard.Options))
		for i, t := range c.Wildcard.Options {
			out[i] = string(t)
		}
		return out
	case ChoiceChainTarget:
		return slices.Clone(c.Chain.Options)
	case ChoiceHandDiscard:
		return c.Hand.Revealed.IDs()
	case ChoiceDeckCard:
		return c.Deck.Options.IDs()
	}
	return nil
}

func (c *PendingChoice) clone() *PendingChoice {
	if c == nil {
		return nil
	}
	out := *c
	if c.Wildcard != nil {
		w := *c.Wildcard
		w.Options = slices.Clone(w.Options)
		out.Wildcard = &w
	}
	if c.Chain != nil {
		ch := *c.Chain
		ch.Options = slices.Clone(ch.Options)
		out.Chain = &ch
	}
	if c.Hand != nil {
		h := *c.Hand
		h.Revealed = h.Revealed.Clone()
		if h.Resume != nil {
			r := *h.Resume
			h.Resume = &r
		}
		out.Hand = &h
	}
	if c.Deck != nil {
		d := *c.Deck
		d.Options = d.Options.Clone()
		out.Deck = &d
	}
	return &out
}

// WildcardChoice waits for the type of a wildcard still held in hand. The
// cost is paid when the choice resolves.
type WildcardChoice struct {
	CardID   string       `json:"card_id"`
	TargetID string       `json:"target_id"`
	Options  []cards.Type `json:"options"`
	Cost     int          `json:"cost"`
}

// ChainKind is the follow-up effect of a chain card.
type ChainKind string

const (
	ChainVulnerability ChainKind = "chain_vulnerability"
	ChainCompromise    ChainKind = "chain_compromise"
	ChainSecurity      ChainKind = "chain_security"
)

// ChainChoice waits for the second target of a chain card. An empty answer
// skips the chain.
type ChainChoice struct {
	Kind             ChainKind  `json:"kind"`
	SourceCardID     string     `json:"source_card_id"`
	OriginalType     cards.Type `json:"original_type"`
	OriginalTargetID string     `json:"original_target_id"`
	Options          []string   `json:"options"`
	// OpenReaction is set when the source play would have opened a reaction
	// window; it opens once the chain is done.
	OpenReaction bool `json:"open_reaction"`
}

// ThrowRequest is a throwCard move parked behind a honeypot discard.
type ThrowRequest struct {
	CardID     string     `json:"card_id"`
	TargetID   string     `json:"target_id"`
	ChosenType cards.Type `json:"chosen_type,omitempty"`
}

// HandChoice waits for Count cards to be picked from the revealed hand of
// TargetPlayer.
type HandChoice struct {
	TargetPlayer rules.Role    `json:"target_player"`
	Revealed     cards.Pile    `json:"revealed"`
	Count        int           `json:"count"`
	SourceCardID string        `json:"source_card_id,omitempty"`
	Resume       *ThrowRequest `json:"resume,omitempty"`
}

// DeckChoice waits for one card from the top of the chooser's deck.
type DeckChoice struct {
	SourceCardID string     `json:"source_card_id"`
	Options      cards.Pile `json:"options"`
}

// ActionEntry is one line of the append-only action log.
type ActionEntry struct {
	Seq                    int               `json:"seq"`
	Role                   rules.Role        `json:"role"`
	Type                   rules.EventType   `json:"type"`
	Timestamp              time.Time         `json:"timestamp"`
	CardID                 string            `json:"card_id,omitempty"`
	CardType               string            `json:"card_type,omitempty"`
	TargetInfrastructureID string            `json:"target_infrastructure_id,omitempty"`
	Details                map[string]string `json:"details,omitempty"`
}

// MatchState is the whole state of one match. Every engine operation takes a
// MatchState and returns a new one; the input is never modified.
type MatchState struct {
	MatchID        string            `json:"match_id"`
	Seed           int64             `json:"seed"`
	Phase          rules.Phase       `json:"phase"`
	Stage          rules.Stage       `json:"stage"`
	Turn           rules.TurnTracker `json:"turn"`
	Attacker       Player            `json:"attacker"`
	Defender       Player            `json:"defender"`
	Infrastructure infra.Roster      `json:"infrastructure"`
	Effects        effects.Ledger    `json:"effects"`
	Pending        *PendingChoice    `json:"pending,omitempty"`
	// ReactionTargetID is the infrastructure the open reaction window is about.
	ReactionTargetID string        `json:"reaction_target_id,omitempty"`
	Actions          []ActionEntry `json:"actions"`
	AttackerScore    int           `json:"attacker_score"`
	DefenderScore    int           `json:"defender_score"`
	Verdict          rules.Verdict `json:"verdict"`
	StartedAt        time.Time     `json:"started_at"`
	EndedAt          time.Time     `json:"ended_at"`
}

// NewMatchState returns the empty shell of a match waiting for its seats.
func NewMatchState(matchID string, seed int64) MatchState {
	return MatchState{
		MatchID:  matchID,
		Seed:     seed,
		Phase:    rules.PhaseSetup,
		Attacker: Player{Role: rules.RoleAttacker},
		Defender: Player{Role: rules.RoleDefender},
	}
}

// Clone returns a deep copy.
func (s MatchState) Clone() MatchState {
	out := s
	out.Attacker = s.Attacker.clone()
	out.Defender = s.Defender.clone()
	out.Infrastructure = s.Infrastructure.Clone()
	out.Effects = s.Effects.Clone()
	out.Pending = s.Pending.clone()
	if s.Actions != nil {
		out.Actions = make([]ActionEntry, len(s.Actions))
		for i, a := range s.Actions {
			a.Details = maps.Clone(a.Details)
			out.Actions[i] = a
		}
	}
	return out
}

// Player returns a copy of the seat playing role.
func (s MatchState) Player(role rules.Role) Player {
	if role == rules.RoleAttacker {
		return s.Attacker
	}
	return s.Defender
}

// player returns the seat for role for in-place updates of a clone.
func (s *MatchState) player(role rules.Role) *Player {
	if role == rules.RoleAttacker {
		return &s.Attacker
	}
	return &s.Defender
}

// Window summarises the turn position for move legality checks.
func (s MatchState) Window() rules.Window {
	w := rules.Window{
		Phase:     s.Phase,
		Stage:     s.Stage,
		TurnOwner: s.Turn.Current,
	}
	if s.Pending != nil {
		w.PendingFor = s.Pending.Player
		w.PendingMove = s.Pending.Move()
	}
	return w
}

// Winner returns the winning role once the match is over.
func (s MatchState) Winner() (rules.Role, bool) {
	if s.Phase != rules.PhaseGameOver || !s.Verdict.Over {
		return "", false
	}
	return s.Verdict.Winner, true
}

func (s *MatchState) recomputeScores() {
	s.AttackerScore, s.DefenderScore = s.Infrastructure.Scores()
}
