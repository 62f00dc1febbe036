package scoring

import (
	"time"

	"github.com/Dosada05/uniplay/models"
)

const DefaultCommentaryLimit = 20

type CommentaryEntry struct {
	Over       string    `json:"over"`
	Commentary string    `json:"commentary"`
	Runs       int       `json:"runs"`
	IsWicket   bool      `json:"is_wicket"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summarize projects the match onto the flat figures shown in fixture lists.
// Team scores are resolved by which side batted in each innings.
func Summarize(m *models.LiveMatch) models.MatchSummary {
	var s models.MatchSummary
	for _, inn := range m.Innings {
		switch inn.BattingTeam {
		case m.TeamA:
			s.ScoreA = inn.Score
		case m.TeamB:
			s.ScoreB = inn.Score
		}
	}
	if inn := m.Current(); inn != nil {
		s.Overs = inn.Overs
		s.Wickets = inn.Wickets
		batting := inn.BattingTeam
		s.CurrentBatting = &batting
	}
	return s
}

// RecentCommentary returns up to limit deliveries of the current innings,
// most recent first.
func RecentCommentary(m *models.LiveMatch, limit int) []CommentaryEntry {
	if limit <= 0 {
		limit = DefaultCommentaryLimit
	}
	inn := m.Current()
	if inn == nil {
		return []CommentaryEntry{}
	}
	balls := inn.BallByBall
	if len(balls) > limit {
		balls = balls[len(balls)-limit:]
	}
	entries := make([]CommentaryEntry, 0, len(balls))
	for i := len(balls) - 1; i >= 0; i-- {
		d := balls[i]
		entries = append(entries, CommentaryEntry{
			Over:       d.Over,
			Commentary: d.Commentary,
			Runs:       d.Runs,
			IsWicket:   d.IsWicket,
			Timestamp:  d.Timestamp,
		})
	}
	return entries
}
