package effects

import (
	"slices"

	"github.com/darknet-duel/duel-server-go/internal/game/infra"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/google/uuid"
)

// RewardKind is what a persistent effect grants when it fires.
type RewardKind string

const (
	RewardResource RewardKind = "resource"
	RewardDraw     RewardKind = "draw"
)

// Reward is paid to the beneficiary of a persistent effect.
type Reward struct {
	Kind   RewardKind `json:"kind"`
	Amount int        `json:"amount"`
}

// Condition watches one transition. From may be infra.StateAny.
type Condition struct {
	From infra.State `json:"from"`
	To   infra.State `json:"to"`
}

// Matches reports whether the change satisfies the condition. To matches
// exactly; From matches exactly or through "any".
func (c Condition) Matches(from, to infra.State) bool {
	return c.To == to && c.From.Matches(from)
}

// Persistent fires its reward when the watched infrastructure makes the
// transition in Condition. An AutoRemove effect fires at most once.
type Persistent struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	InfrastructureID string     `json:"infrastructure_id"`
	Beneficiary      rules.Role `json:"beneficiary"`
	Condition        Condition  `json:"condition"`
	Reward           Reward     `json:"reward"`
	AutoRemove       bool       `json:"auto_remove"`
	Triggered        bool       `json:"triggered"`
	SourceCardID     string     `json:"source_card_id,omitempty"`
}

// Firing records one persistent effect that matched a transition.
type Firing struct {
	EffectID     string
	Beneficiary  rules.Role
	Reward       Reward
	SourceCardID string
}

// Register returns a ledger with p added.
func (l Ledger) Register(p Persistent) Ledger {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	next := l.Clone()
	next.Persistent = append(next.Persistent, p)
	return next
}

// Evaluate checks every persistent effect watching change.InfrastructureID.
// Each match is marked triggered and reported; auto-remove effects are
// deleted after firing. Rewards are paid by the caller.
func (l Ledger) Evaluate(change infra.Change) (Ledger, []Firing) {
	if len(l.Persistent) == 0 {
		return l, nil
	}
	next := l.Clone()
	var fired []Firing
	for i := range next.Persistent {
		p := &next.Persistent[i]
		if p.InfrastructureID != change.InfrastructureID {
			continue
		}
		if !p.Condition.Matches(change.From, change.To) {
			continue
		}
		if p.AutoRemove && p.Triggered {
			continue
		}
		p.Triggered = true
		fired = append(fired, Firing{
			EffectID:     p.ID,
			Beneficiary:  p.Beneficiary,
			Reward:       p.Reward,
			SourceCardID: p.SourceCardID,
		})
	}
	next.Persistent = slices.DeleteFunc(next.Persistent, func(p Persistent) bool {
		return p.AutoRemove && p.Triggered
	})
	return next, fired
}

// Watching returns the persistent effects registered on infrastructure id.
func (l Ledger) Watching(id string) []Persistent {
	var out []Persistent
	for _, p := range l.Persistent {
		if p.InfrastructureID == id {
			out = append(out, p)
		}
	}
	return out
}
