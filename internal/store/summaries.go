package store

import (
	"context"
	"fmt"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game"
	"github.com/darknet-duel/duel-server-go/internal/game/rules"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS match_summaries (
		match_id               TEXT PRIMARY KEY,
		started_at             TIMESTAMPTZ NOT NULL,
		ended_at               TIMESTAMPTZ NOT NULL,
		duration_ms            BIGINT NOT NULL,
		rounds                 INTEGER NOT NULL,
		cards_played           INTEGER NOT NULL,
		infrastructure_changed INTEGER NOT NULL,
		winner                 TEXT NOT NULL,
		win_reason             TEXT NOT NULL,
		attacker_score         INTEGER NOT NULL,
		defender_score         INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_players (
		match_id  TEXT NOT NULL REFERENCES match_summaries (match_id) ON DELETE CASCADE,
		role      TEXT NOT NULL,
		player_id TEXT NOT NULL,
		name      TEXT NOT NULL,
		PRIMARY KEY (match_id, role)
	)`,
	`CREATE INDEX IF NOT EXISTS match_summaries_ended_at_idx ON match_summaries (ended_at DESC)`,
}

const insertSummary = `
	INSERT INTO match_summaries (
		match_id, started_at, ended_at, duration_ms, rounds, cards_played,
		infrastructure_changed, winner, win_reason, attacker_score, defender_score
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (match_id) DO NOTHING`

const insertPlayer = `
	INSERT INTO match_players (match_id, role, player_id, name)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (match_id, role) DO NOTHING`

const selectRecent = `
	SELECT s.match_id, s.started_at, s.ended_at, s.duration_ms, s.rounds, s.cards_played,
		s.infrastructure_changed, s.winner, s.win_reason, s.attacker_score, s.defender_score,
		COALESCE(p.role, ''), COALESCE(p.player_id, ''), COALESCE(p.name, '')
	FROM (SELECT * FROM match_summaries ORDER BY ended_at DESC LIMIT $1) s
	LEFT JOIN match_players p ON p.match_id = s.match_id
	ORDER BY s.ended_at DESC, s.match_id, p.role`

const selectWins = `
	SELECT COUNT(*) FILTER (WHERE winner = 'attacker'), COUNT(*) FILTER (WHERE winner = 'defender')
	FROM match_summaries`

// SummaryStore saves game-over summaries. It satisfies match.SummarySink.
type SummaryStore struct {
	db     Querier
	logger *zap.Logger
}

// NewSummaryStore creates a store over db.
func NewSummaryStore(db Querier, logger *zap.Logger) *SummaryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryStore{db: db, logger: logger}
}

// Migrate creates the summary tables when missing.
func (s *SummaryStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate summary schema: %w", err)
		}
	}
	return nil
}

// SaveSummary writes sum and its players in one transaction. Saving a
// match twice is a no-op.
func (s *SummaryStore) SaveSummary(ctx context.Context, sum game.Summary) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertSummary,
			sum.MatchID,
			sum.StartedAt,
			sum.EndedAt,
			sum.Duration.Milliseconds(),
			sum.Rounds,
			sum.CardsPlayed,
			sum.InfrastructureChanged,
			string(sum.Winner),
			sum.WinReason,
			sum.AttackerScore,
			sum.DefenderScore,
		)
		if err != nil {
			return fmt.Errorf("failed to insert summary %s: %w", sum.MatchID, err)
		}
		for _, p := range sum.Players {
			if _, err := tx.Exec(ctx, insertPlayer, sum.MatchID, string(p.Role), p.ID, p.Name); err != nil {
				return fmt.Errorf("failed to insert player %s of %s: %w", p.ID, sum.MatchID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("match summary saved",
		zap.String("match_id", sum.MatchID),
		zap.String("winner", string(sum.Winner)),
	)
	return nil
}

// RecentSummaries returns up to limit summaries, newest first.
func (s *SummaryStore) RecentSummaries(ctx context.Context, limit int) ([]game.Summary, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []game.Summary
	for rows.Next() {
		var (
			sum                  game.Summary
			durationMS           int64
			winner               string
			role, playerID, name string
		)
		if err := rows.Scan(
			&sum.MatchID, &sum.StartedAt, &sum.EndedAt, &durationMS, &sum.Rounds, &sum.CardsPlayed,
			&sum.InfrastructureChanged, &winner, &sum.WinReason, &sum.AttackerScore, &sum.DefenderScore,
			&role, &playerID, &name,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		sum.Winner = rules.Role(winner)

		if n := len(out); n == 0 || out[n-1].MatchID != sum.MatchID {
			out = append(out, sum)
		}
		if playerID != "" {
			last := &out[len(out)-1]
			last.Players = append(last.Players, game.PlayerSummary{ID: playerID, Name: name, Role: rules.Role(role)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}
	return out, nil
}

// WinCounts returns how many stored matches each side has won.
func (s *SummaryStore) WinCounts(ctx context.Context) (map[rules.Role]int, error) {
	var attacker, defender int
	if err := s.db.QueryRow(ctx, selectWins).Scan(&attacker, &defender); err != nil {
		return nil, fmt.Errorf("failed to count wins: %w", err)
	}
	return map[rules.Role]int{
		rules.RoleAttacker: attacker,
		rules.RoleDefender: defender,
	}, nil
}
