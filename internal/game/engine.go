package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/game/cost"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/darknet-duel/duel-server-go/internal/game/targeting"
	"go.uber.org/zap"
)

// Engine applies moves to match states. It holds no per-match state and is
// safe for concurrent use; callers order the moves of a single match.
type Engine struct {
	logger    *zap.Logger
	catalogue *cards.Catalogue
	rules     Rules
	costs     *cost.Calculator
	validator *targeting.TargetValidator
	specials  []special
	now       func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for action timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine over the given catalogue and rules.
func NewEngine(catalogue *cards.Catalogue, r Rules, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:    logger,
		catalogue: catalogue,
		rules:     r,
		costs:     cost.Default(),
		validator: targeting.NewTargetValidator(),
		specials:  specialHandlers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rules the engine plays by.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Result is the outcome of one move.
type Result struct {
	State    MatchState
	Message  string
	Accepted bool
}

// rejection is an illegal or malformed move. The move is dropped and the
// message returned to the player.
type rejection struct {
	msg string
}

func (r rejection) Error() string { return r.msg }

func reject(format string, args ...any) error {
	return rejection{msg: fmt.Sprintf(format, args...)}
}

// invariant marks a state the engine should never reach.
type invariant struct {
	msg string
}

func (i invariant) Error() string { return i.msg }

func broken(format string, args ...any) error {
	return invariant{msg: fmt.Sprintf(format, args...)}
}

// Apply submits a move and returns the next state and a message for the
// player. A rejected move returns state unchanged.
func (e *Engine) Apply(state MatchState, role rules.Role, move string, args ...string) (MatchState, string) {
	res := e.Do(state, role, rules.Move(move), args...)
	return res.State, res.Message
}

// Do is Apply with an explicit accepted flag.
func (e *Engine) Do(state MatchState, role rules.Role, move rules.Move, args ...string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			if e.logger != nil {
				e.logger.Error("move panicked",
					zap.String("match_id", state.MatchID),
					zap.String("role", string(role)),
					zap.String("move", string(move)),
					zap.Any("panic", r),
				)
			}
			res = Result{State: state, Message: "Internal error"}
		}
	}()

	if check := rules.CheckMove(state.Window(), role, move); !check.Legal {
		e.logRejected(state, role, move, check.Reason)
		return Result{State: state, Message: check.Reason}
	}

	next := state.Clone()
	msg, err := e.dispatch(&next, role, move, args)
	if err != nil {
		var inv invariant
		if errors.As(err, &inv) {
			if e.logger != nil {
				e.logger.Error("invariant violation",
					zap.String("match_id", state.MatchID),
					zap.String("move", string(move)),
					zap.Error(err),
				)
			}
			return Result{State: state, Message: "Internal error"}
		}
		e.logRejected(state, role, move, err.Error())
		return Result{State: state, Message: err.Error()}
	}

	if e.logger != nil {
		e.logger.Debug("move applied",
			zap.String("match_id", next.MatchID),
			zap.String("role", string(role)),
			zap.String("move", string(move)),
			zap.Strings("args", args),
			zap.Int("round", next.Turn.Round),
			zap.String("stage", next.Stage.String()),
		)
	}
	return Result{State: next, Message: msg, Accepted: true}
}

func (e *Engine) dispatch(s *MatchState, role rules.Role, move rules.Move, args []string) (string, error) {
	switch move {
	case rules.MoveThrowCard:
		if len(args) < 2 || args[0] == "" || args[1] == "" {
			return "", reject("throwCard needs a card and a target")
		}
		chosen := ""
		if len(args) > 2 {
			chosen = args[2]
		}
		return e.throwCard(s, role, ThrowRequest{CardID: args[0], TargetID: args[1], ChosenType: cards.Type(chosen)}, false)
	case rules.MovePlayCard:
		if len(args) < 1 || args[0] == "" {
			return "", reject("playCard needs a card")
		}
		return e.playCard(s, role, args[0])
	case rules.MoveCycleCard:
		if len(args) < 1 || args[0] == "" {
			return "", reject("cycleCard needs a card")
		}
		return e.cycleCard(s, role, args[0])
	case rules.MoveEndTurn:
		return e.endTurn(s, role)
	case rules.MoveSkipReaction:
		return e.skipReaction(s, role)
	case rules.MoveSurrender:
		return e.surrender(s, role)
	case rules.MoveChooseWildcardType:
		if len(args) < 1 || args[0] == "" {
			return "", reject("chooseWildcardType needs a type")
		}
		return e.chooseWildcardType(s, role, cards.Type(args[0]))
	case rules.MoveChooseChainTarget:
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		return e.chooseChainTarget(s, role, target)
	case rules.MoveChooseHandDiscard:
		return e.chooseHandDiscard(s, role, args)
	case rules.MoveChooseCardFromDeck:
		if len(args) < 1 || args[0] == "" {
			return "", reject("chooseCardFromDeck needs a card")
		}
		return e.chooseCardFromDeck(s, role, args[0])
	}
	return "", reject("Unknown move %q", string(move))
}

func (e *Engine) logRejected(state MatchState, role rules.Role, move rules.Move, reason string) {
	if e.logger == nil {
		return
	}
	e.logger.Debug("move rejected",
		zap.String("match_id", state.MatchID),
		zap.String("role", string(role)),
		zap.String("move", string(move)),
		zap.String("reason", reason),
	)
}

// record appends an action log entry.
func (e *Engine) record(s *MatchState, entry ActionEntry) {
	entry.Seq = len(s.Actions) + 1
	if entry.Timestamp.IsZero() {
		entry.Timestamp = e.now()
	}
	s.Actions = append(s.Actions, entry)
}

// rng returns a source that is deterministic for a given state.
func (e *Engine) rng(s *MatchState) *rand.Rand {
	return rand.New(rand.NewSource(s.Seed + int64(len(s.Actions))))
}
