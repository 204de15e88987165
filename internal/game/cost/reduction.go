package cost

import (
	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/effects"
	"github.com/darknet-duel/duel-server-go/internal/game/infra"
)

// InsufficientMessage is reported when a player cannot pay.
const InsufficientMessage = "Not enough action points"

// Context is what a reduction may inspect.
type Context struct {
	Card cards.Card
	// Target is nil for untargeted plays.
	Target *infra.Infrastructure
	Ledger effects.Ledger
}

// Reduction lowers the effective cost of a card play.
type Reduction struct {
	ID        string
	Amount    func(Context) int
	AppliesTo func(Context) bool
}

// Applied records one reduction that contributed to a cost.
type Applied struct {
	ID     string
	Amount int
}

// Calculator sums reductions in registration order.
type Calculator struct {
	reductions []Reduction
}

// NewCalculator creates a calculator with the given reductions.
func NewCalculator(reductions ...Reduction) *Calculator {
	return &Calculator{reductions: reductions}
}

// Default returns the calculator with the standard reductions: validation
// bypass, Living Off The Land, card cost_reduction and ledger discounts.
func Default() *Calculator {
	return NewCalculator(
		Reduction{ID: "validation_bypass", AppliesTo: bypassesValidation, Amount: one},
		Reduction{ID: "living_off_the_land", AppliesTo: livingOffTheLand, Amount: one},
		Reduction{ID: "card_cost_reduction", AppliesTo: cardReduction, Amount: cardReductionAmount},
		Reduction{ID: "temporary_cost_reduction", AppliesTo: ledgerReduction, Amount: one},
	)
}

// AddReduction appends a reduction.
func (c *Calculator) AddReduction(r Reduction) {
	c.reductions = append(c.reductions, r)
}

// Effective returns the cost of playing ctx.Card, never below zero, and the
// reductions that applied.
func (c *Calculator) Effective(ctx Context) (int, []Applied) {
	total := 0
	var applied []Applied
	for _, r := range c.reductions {
		if r.AppliesTo != nil && !r.AppliesTo(ctx) {
			continue
		}
		amount := 0
		if r.Amount != nil {
			amount = r.Amount(ctx)
		}
		if amount <= 0 {
			continue
		}
		total += amount
		applied = append(applied, Applied{ID: r.ID, Amount: amount})
	}
	return max(0, ctx.Card.Cost-total), applied
}

// CanPay reports whether available points cover cost.
func CanPay(available, cost int) bool {
	return available >= cost
}

func one(Context) int { return 1 }

// BypassesValidation reports whether card skips target-state validation.
func BypassesValidation(card cards.Card) bool {
	return card.IsWildcard() && card.WildcardType.IsSpecial()
}

func bypassesValidation(ctx Context) bool {
	return BypassesValidation(ctx.Card)
}

func livingOffTheLand(ctx Context) bool {
	return ctx.Card.Def() == "A302" && ctx.Target != nil && ctx.Target.Category == infra.CategoryUser
}

func cardReduction(ctx Context) bool {
	return ctx.Target != nil && ctx.Card.CostReduction.Applies(ctx.Target.Category)
}

func cardReductionAmount(ctx Context) int {
	return ctx.Card.CostReduction.Amount
}

func ledgerReduction(ctx Context) bool {
	return ctx.Target != nil && ctx.Ledger.Has(effects.TypeCostReduction, ctx.Target.ID)
}
