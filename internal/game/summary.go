package game

import (
	"time"

	"github.com/darknet-duel/duel-server-go/internal/game/rules"
)

// PlayerSummary identifies one seat of a finished match.
type PlayerSummary struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role rules.Role `json:"role"`
}

// Summary is the record of a finished match handed to the persistence layer.
type Summary struct {
	MatchID               string          `json:"match_id"`
	StartedAt             time.Time       `json:"started_at"`
	EndedAt               time.Time       `json:"ended_at"`
	Duration              time.Duration   `json:"duration"`
	Rounds                int             `json:"rounds"`
	CardsPlayed           int             `json:"cards_played"`
	InfrastructureChanged int             `json:"infrastructure_changed"`
	Winner                rules.Role      `json:"winner"`
	WinReason             string          `json:"win_reason"`
	AttackerScore         int             `json:"attacker_score"`
	DefenderScore         int             `json:"defender_score"`
	Players               []PlayerSummary `json:"players"`
}

// Summarize builds the summary of a finished match. ok is false while the
// match is still running.
func Summarize(s MatchState) (sum Summary, ok bool) {
	if s.Phase != rules.PhaseGameOver {
		return Summary{}, false
	}
	sum = Summary{
		MatchID:       s.MatchID,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		Rounds:        s.Turn.Round,
		Winner:        s.Verdict.Winner,
		WinReason:     s.Verdict.Reason,
		AttackerScore: s.AttackerScore,
		DefenderScore: s.DefenderScore,
	}
	if !s.StartedAt.IsZero() && s.EndedAt.After(s.StartedAt) {
		sum.Duration = s.EndedAt.Sub(s.StartedAt)
	}
	for _, a := range s.Actions {
		if a.Type.IsCardPlay() {
			sum.CardsPlayed++
		}
		if a.TargetInfrastructureID != "" {
			sum.InfrastructureChanged++
		}
	}
	for _, p := range []Player{s.Attacker, s.Defender} {
		if p.ID == "" {
			continue
		}
		sum.Players = append(sum.Players, PlayerSummary{ID: p.ID, Name: p.Name, Role: p.Role})
	}
	return sum, true
}
