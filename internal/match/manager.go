// Package match hosts running matches: it seats players, orders their moves
// and hands finished matches to persistence.
package match

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrSeatTaken     = errors.New("seat already taken")
	ErrBadToken      = errors.New("invalid seat token")
	ErrNotStarted    = errors.New("match is waiting for an opponent")
)

// SummarySink receives the summary of every finished match.
type SummarySink interface {
	SaveSummary(ctx context.Context, sum game.Summary) error
}

// Notification types.
const (
	NotifyMatchStarted = "MATCH_STARTED"
	NotifyMoveApplied  = "MOVE_APPLIED"
	NotifyGameOver     = "GAME_OVER"
	NotifyAbandoned    = "MATCH_ABANDONED"
)

// Notification tells subscribers that a match changed.
type Notification struct {
	Type      string
	MatchID   string
	Role      rules.Role
	Move      rules.Move
	Message   string
	Timestamp time.Time
}

// NotificationHandler handles match notifications. It runs on its own
// goroutine, so it may call back into the Manager.
type NotificationHandler func(n Notification)

// Ticket is what a player gets for taking a seat. The token is shown once;
// only its hash is kept.
type Ticket struct {
	MatchID string     `json:"match_id"`
	Role    rules.Role `json:"role"`
	Token   string     `json:"token"`
}

// Outcome is the result of one submitted move.
type Outcome struct {
	Accepted bool
	Message  string
	View     game.View
}

// SeatInfo describes a filled seat.
type SeatInfo struct {
	Role     rules.Role `json:"role"`
	PlayerID string     `json:"player_id"`
	Name     string     `json:"name"`
}

// Info is a listing entry for a match.
type Info struct {
	ID        string     `json:"id"`
	Phase     string     `json:"phase"`
	Round     int        `json:"round"`
	Seats     []SeatInfo `json:"seats"`
	CreatedAt time.Time  `json:"created_at"`
}

type seat struct {
	playerID  string
	name      string
	tokenHash []byte
}

// sessionKey identifies a seat token once its bcrypt hash has been checked.
type sessionKey [sha256.Size]byte

type hostedMatch struct {
	mu        sync.Mutex
	id        string
	state     game.MatchState
	seats     map[rules.Role]*seat
	sessions  map[sessionKey]rules.Role
	closed    bool
	createdAt time.Time
}

// Manager owns the running matches. Moves on one match are applied one at a
// time; different matches proceed in parallel.
type Manager struct {
	engine   *game.Engine
	logger   *zap.Logger
	recorder *game.ReplayRecorder
	sink     SummarySink
	seed     func() int64
	cost     int

	mu      sync.RWMutex
	matches map[string]*hostedMatch
	handler NotificationHandler
}

// Option customises a Manager.
type Option func(*Manager)

// WithRecorder records a replay of every match.
func WithRecorder(r *game.ReplayRecorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithSummarySink sends finished matches to sink.
func WithSummarySink(sink SummarySink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithSeedSource replaces the source of match seeds.
func WithSeedSource(seed func() int64) Option {
	return func(m *Manager) { m.seed = seed }
}

// WithTokenCost sets the bcrypt cost of seat tokens.
func WithTokenCost(cost int) Option {
	return func(m *Manager) { m.cost = cost }
}

// NewManager creates a match manager.
func NewManager(engine *game.Engine, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		engine:  engine,
		logger:  logger,
		seed:    func() int64 { return time.Now().UnixNano() },
		cost:    bcrypt.DefaultCost,
		matches: make(map[string]*hostedMatch),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetNotificationHandler sets the handler for match notifications.
func (m *Manager) SetNotificationHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

func (m *Manager) emit(n Notification) {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()

	if handler != nil {
		n.Timestamp = time.Now()
		go handler(n)
	}
}

// Create opens a match and seats its creator on role.
func (m *Manager) Create(role rules.Role, playerID, name string) (Ticket, error) {
	if !role.Valid() {
		return Ticket{}, fmt.Errorf("unknown role %q", role)
	}
	if playerID == "" {
		return Ticket{}, errors.New("player id is required")
	}

	id := uuid.NewString()
	token, st, err := m.newSeat(playerID, name)
	if err != nil {
		return Ticket{}, err
	}
	hm := &hostedMatch{
		id:        id,
		state:     game.NewMatchState(id, m.seed()),
		seats:     map[rules.Role]*seat{role: st},
		sessions:  make(map[sessionKey]rules.Role),
		createdAt: time.Now(),
	}

	m.mu.Lock()
	m.matches[id] = hm
	m.mu.Unlock()

	m.logger.Info("match created",
		zap.String("match_id", id),
		zap.String("player_id", playerID),
		zap.String("role", string(role)),
	)
	return Ticket{MatchID: id, Role: role, Token: token}, nil
}

// Join seats a player on the free side of a match and deals it.
func (m *Manager) Join(matchID, playerID, name string) (Ticket, error) {
	if playerID == "" {
		return Ticket{}, errors.New("player id is required")
	}
	hm, err := m.get(matchID)
	if err != nil {
		return Ticket{}, err
	}

	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.closed {
		return Ticket{}, ErrMatchNotFound
	}
	role, ok := hm.freeRole()
	if !ok {
		return Ticket{}, ErrSeatTaken
	}
	for _, st := range hm.seats {
		if st.playerID == playerID {
			return Ticket{}, ErrSeatTaken
		}
	}

	token, st, err := m.newSeat(playerID, name)
	if err != nil {
		return Ticket{}, err
	}
	hm.seats[role] = st

	att, def := hm.seats[rules.RoleAttacker], hm.seats[rules.RoleDefender]
	state, err := m.engine.Setup(hm.state,
		game.Seat{ID: att.playerID, Name: att.name},
		game.Seat{ID: def.playerID, Name: def.name},
	)
	if err != nil {
		delete(hm.seats, role)
		return Ticket{}, fmt.Errorf("failed to set up match %s: %w", matchID, err)
	}
	hm.state = state

	if m.recorder != nil {
		m.recorder.StartRecording(matchID)
		m.recorder.Record(matchID, game.Frame{}, state)
	}

	m.logger.Info("match started",
		zap.String("match_id", matchID),
		zap.String("attacker", att.playerID),
		zap.String("defender", def.playerID),
	)
	m.emit(Notification{Type: NotifyMatchStarted, MatchID: matchID})
	return Ticket{MatchID: matchID, Role: role, Token: token}, nil
}

// Authenticate returns the role a seat token belongs to.
func (m *Manager) Authenticate(matchID, token string) (rules.Role, error) {
	hm, err := m.get(matchID)
	if err != nil {
		return "", err
	}
	return hm.authenticate(token)
}

// Apply submits a move for the seat holding token. A rejected move is not
// an error; it comes back with Accepted false and the reason in Message.
func (m *Manager) Apply(ctx context.Context, matchID, token string, move rules.Move, args ...string) (Outcome, error) {
	hm, err := m.get(matchID)
	if err != nil {
		return Outcome{}, err
	}

	role, err := hm.authenticate(token)
	if err != nil {
		return Outcome{}, err
	}

	hm.mu.Lock()
	if hm.closed {
		hm.mu.Unlock()
		return Outcome{}, ErrMatchNotFound
	}
	if hm.state.Phase == rules.PhaseSetup {
		if move != rules.MoveSurrender {
			hm.mu.Unlock()
			return Outcome{}, ErrNotStarted
		}
		return m.abandon(hm, role), nil
	}

	prev := hm.state
	res := m.engine.Do(prev, role, move, args...)
	hm.state = res.State
	finished := res.Accepted && prev.Phase != rules.PhaseGameOver && res.State.Phase == rules.PhaseGameOver
	if res.Accepted && m.recorder != nil {
		m.recorder.Record(matchID, game.Frame{
			Role:    role,
			Move:    move,
			Args:    args,
			Message: res.Message,
		}, res.State)
	}
	view := m.engine.View(res.State, role)
	hm.mu.Unlock()

	if !res.Accepted {
		return Outcome{Message: res.Message, View: view}, nil
	}

	m.emit(Notification{Type: NotifyMoveApplied, MatchID: matchID, Role: role, Move: move, Message: res.Message})
	if finished {
		m.finish(ctx, res.State)
		m.emit(Notification{Type: NotifyGameOver, MatchID: matchID, Role: role, Message: res.State.Verdict.Reason})
	}
	return Outcome{Accepted: true, Message: res.Message, View: view}, nil
}

// abandon closes a match whose only seated player surrendered before an
// opponent joined. It is called with hm.mu held and releases it.
func (m *Manager) abandon(hm *hostedMatch, role rules.Role) Outcome {
	hm.closed = true
	view := m.engine.View(hm.state, role)
	hm.mu.Unlock()

	m.mu.Lock()
	delete(m.matches, hm.id)
	m.mu.Unlock()

	msg := fmt.Sprintf("%s left before the match started", role.Title())
	m.logger.Info("match abandoned", zap.String("match_id", hm.id), zap.String("role", string(role)))
	m.emit(Notification{Type: NotifyAbandoned, MatchID: hm.id, Role: role, Move: rules.MoveSurrender, Message: msg})
	return Outcome{Accepted: true, Message: msg, View: view}
}

// finish persists the summary and replay of a match that just ended.
// Failures are logged; the match result stands either way.
func (m *Manager) finish(ctx context.Context, state game.MatchState) {
	sum, ok := game.Summarize(state)
	if !ok {
		return
	}
	m.logger.Info("match finished",
		zap.String("match_id", sum.MatchID),
		zap.String("winner", string(sum.Winner)),
		zap.String("reason", sum.WinReason),
		zap.Int("rounds", sum.Rounds),
	)
	if m.sink != nil {
		if err := m.sink.SaveSummary(ctx, sum); err != nil {
			m.logger.Warn("failed to save match summary", zap.String("match_id", sum.MatchID), zap.Error(err))
		}
	}
	if m.recorder != nil {
		if err := m.recorder.Save(state.MatchID); err != nil {
			m.logger.Warn("failed to save replay", zap.String("match_id", state.MatchID), zap.Error(err))
		}
	}
}

// View returns the match as seen by role.
func (m *Manager) View(matchID string, role rules.Role) (game.View, error) {
	hm, err := m.get(matchID)
	if err != nil {
		return game.View{}, err
	}
	hm.mu.Lock()
	state := hm.state
	hm.mu.Unlock()
	return m.engine.View(state, role), nil
}

// State returns a copy of the full match state.
func (m *Manager) State(matchID string) (game.MatchState, error) {
	hm, err := m.get(matchID)
	if err != nil {
		return game.MatchState{}, err
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.state.Clone(), nil
}

// List returns every hosted match, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	hosted := make([]*hostedMatch, 0, len(m.matches))
	for _, hm := range m.matches {
		hosted = append(hosted, hm)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(hosted))
	for _, hm := range hosted {
		out = append(out, hm.info())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Remove drops a match and any replay still being recorded for it.
func (m *Manager) Remove(matchID string) {
	m.mu.Lock()
	delete(m.matches, matchID)
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.Discard(matchID)
	}
	m.logger.Info("match removed", zap.String("match_id", matchID))
}

func (m *Manager) get(matchID string) (*hostedMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hm, ok := m.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return hm, nil
}

func (m *Manager) newSeat(playerID, name string) (string, *seat, error) {
	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), m.cost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash seat token: %w", err)
	}
	if name == "" {
		name = playerID
	}
	return token, &seat{playerID: playerID, name: name, tokenHash: hash}, nil
}

func (hm *hostedMatch) freeRole() (rules.Role, bool) {
	for _, role := range []rules.Role{rules.RoleAttacker, rules.RoleDefender} {
		if _, taken := hm.seats[role]; !taken {
			return role, true
		}
	}
	return "", false
}

// authenticate checks token against the seat hashes once and remembers the
// result, so later moves skip bcrypt. The comparison runs without hm.mu.
func (hm *hostedMatch) authenticate(token string) (rules.Role, error) {
	if token == "" {
		return "", ErrBadToken
	}
	key := sessionKey(sha256.Sum256([]byte(token)))

	hm.mu.Lock()
	if role, ok := hm.sessions[key]; ok {
		hm.mu.Unlock()
		return role, nil
	}
	hashes := make(map[rules.Role][]byte, len(hm.seats))
	for role, st := range hm.seats {
		hashes[role] = st.tokenHash
	}
	hm.mu.Unlock()

	for role, hash := range hashes {
		if bcrypt.CompareHashAndPassword(hash, []byte(token)) == nil {
			hm.mu.Lock()
			hm.sessions[key] = role
			hm.mu.Unlock()
			return role, nil
		}
	}
	return "", ErrBadToken
}

func (hm *hostedMatch) info() Info {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	info := Info{
		ID:        hm.id,
		Phase:     hm.state.Phase.String(),
		Round:     hm.state.Turn.Round,
		CreatedAt: hm.createdAt,
	}
	for _, role := range []rules.Role{rules.RoleAttacker, rules.RoleDefender} {
		if st, ok := hm.seats[role]; ok {
			info.Seats = append(info.Seats, SeatInfo{Role: role, PlayerID: st.playerID, Name: st.name})
		}
	}
	return info
}
