package cards

import (
	"fmt"
	"slices"
	"strings"

	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"gopkg.in/yaml.v3"
)

// Type is a card's base or resolved type.
type Type string

const (
	TypeExploit       Type = "exploit"
	TypeAttack        Type = "attack"
	TypeCounterAttack Type = "counter-attack"
	TypeCounter       Type = "counter"
	TypeWildcard      Type = "wildcard"
	TypeShield        Type = "shield"
	TypeFortify       Type = "fortify"
	TypeResponse      Type = "response"
	TypeReaction      Type = "reaction"
	TypeSpecial       Type = "special"
)

// Known reports whether t is a type the engine can resolve.
func (t Type) Known() bool {
	switch t {
	case TypeExploit, TypeAttack, TypeCounterAttack, TypeCounter, TypeWildcard,
		TypeShield, TypeFortify, TypeResponse, TypeReaction, TypeSpecial:
		return true
	}
	return false
}

// IsCounter reports whether t is either spelling of the shield-cancelling type.
func (t Type) IsCounter() bool {
	return t == TypeCounter || t == TypeCounterAttack
}

// Target describes what an untargeted or mass-effect card acts on.
type Target string

const (
	TargetInfrastructure Target = ""
	TargetOpponentHand   Target = "opponent_hand"
	TargetAllCompromised Target = "all_compromised"
	TargetSelf           Target = "self"
)

// CostReduction lowers a card's cost when played at a matching category.
type CostReduction struct {
	Target string `json:"target" yaml:"target"`
	Amount int    `json:"amount" yaml:"amount"`
}

// Applies reports whether the reduction covers category. A trailing
// "_systems" on the configured target is ignored.
func (c *CostReduction) Applies(category infra.Category) bool {
	if c == nil || c.Amount <= 0 {
		return false
	}
	return strings.TrimSuffix(c.Target, "_systems") == string(category)
}

// Card is an immutable card definition or a copy of one held by a player.
// ID is unique within a deck; DefinitionID is the catalogue id shared by
// every copy.
type Card struct {
	ID              string         `json:"id" yaml:"id"`
	DefinitionID    string         `json:"definition_id,omitempty" yaml:"-"`
	Name            string         `json:"name" yaml:"name"`
	Type            Type           `json:"type" yaml:"type"`
	Cost            int            `json:"cost" yaml:"cost"`
	Description     string         `json:"description,omitempty" yaml:"description"`
	Category        string         `json:"category,omitempty" yaml:"category"`
	AttackVector    infra.Vector   `json:"attack_vector,omitempty" yaml:"attack_vector"`
	IsReactive      bool           `json:"is_reactive,omitempty" yaml:"is_reactive"`
	WildcardType    WildcardSpec   `json:"wildcard_type,omitempty" yaml:"wildcard_type"`
	SpecialEffect   string         `json:"special_effect,omitempty" yaml:"special_effect"`
	Draw            int            `json:"draw,omitempty" yaml:"draw"`
	LookAt          int            `json:"look_at,omitempty" yaml:"look_at"`
	PreventReaction bool           `json:"prevent_reaction,omitempty" yaml:"prevent_reaction"`
	CostReduction   *CostReduction `json:"cost_reduction,omitempty" yaml:"cost_reduction"`
	Target          Target         `json:"target,omitempty" yaml:"target"`
	Copies          int            `json:"-" yaml:"copies"`
}

// Def returns the catalogue id of the card.
func (c Card) Def() string {
	if c.DefinitionID != "" {
		return c.DefinitionID
	}
	return c.ID
}

// IsWildcard reports whether the card resolves its type at play time.
func (c Card) IsWildcard() bool {
	return c.Type == TypeWildcard
}

// Clone returns a deep copy.
func (c Card) Clone() Card {
	if c.CostReduction != nil {
		cr := *c.CostReduction
		c.CostReduction = &cr
	}
	return c
}

func (c Card) String() string {
	return fmt.Sprintf("%s %q", c.ID, c.Name)
}

// Pile is an ordered sequence of cards. Index 0 is the top of a deck.
type Pile []Card

// Clone returns a deep copy of the pile.
func (p Pile) Clone() Pile {
	if p == nil {
		return nil
	}
	out := make(Pile, len(p))
	for i, c := range p {
		out[i] = c.Clone()
	}
	return out
}

// Index returns the position of the card with id, or -1.
func (p Pile) Index(id string) int {
	return slices.IndexFunc(p, func(c Card) bool { return c.ID == id })
}

// Find returns the card with id.
func (p Pile) Find(id string) (Card, bool) {
	if i := p.Index(id); i >= 0 {
		return p[i], true
	}
	return Card{}, false
}

// Remove returns a new pile without the card at index i.
func (p Pile) Remove(i int) Pile {
	out := make(Pile, 0, len(p)-1)
	out = append(out, p[:i]...)
	return append(out, p[i+1:]...)
}

// IDs lists the card ids in order.
func (p Pile) IDs() []string {
	ids := make([]string, len(p))
	for i, c := range p {
		ids[i] = c.ID
	}
	return ids
}

// WildcardSpec is the set of types a wildcard may resolve to. It is stored in
// its catalogue form: a named group ("any", "shield_or_fortify",
// "exploit-attack", "special", "draw", "disrupt"), a single type, or a comma
// separated list.
type WildcardSpec string

var wildcardGroups = map[WildcardSpec][]Type{
	"any": {
		TypeAttack, TypeExploit, TypeCounterAttack, TypeCounter,
		TypeShield, TypeResponse, TypeFortify, TypeReaction,
	},
	"shield_or_fortify": {TypeShield, TypeFortify},
	"exploit-attack":    {TypeExploit, TypeAttack},
	"special":           nil,
	"draw":              nil,
	"disrupt":           nil,
}

// Types expands the type set into concrete card types. Unknown entries are
// dropped.
func (w WildcardSpec) Types() []Type {
	if w == "" {
		return nil
	}
	if group, ok := wildcardGroups[w]; ok {
		return slices.Clone(group)
	}
	var out []Type
	for _, part := range strings.Split(string(w), ",") {
		t := Type(strings.TrimSpace(part))
		if t.Known() && t != TypeWildcard && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// IsSpecial reports whether the type set has no generic types and is
// resolved entirely by a card-specific handler.
func (w WildcardSpec) IsSpecial() bool {
	return w == "special"
}

// UnmarshalYAML accepts either a scalar or a sequence of types.
func (w *WildcardSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*w = WildcardSpec(strings.TrimSpace(node.Value))
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := node.Decode(&parts); err != nil {
			return err
		}
		*w = WildcardSpec(strings.Join(parts, ","))
		return nil
	}
	return fmt.Errorf("line %d: wildcard_type must be a string or list", node.Line)
}
