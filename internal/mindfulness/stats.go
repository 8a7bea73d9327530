package mindfulness

import (
	"time"

	"github.com/benvon/manasmitra/internal/models"
)

// ComputeStats summarizes a session history as of now. Entries with an
// unparsable completedAt count toward totals but not the week or month windows.
func ComputeStats(history []models.SessionProgress, now time.Time) models.SessionStats {
	weekStart := now.Add(-7 * 24 * time.Hour)
	monthStart := now.Add(-30 * 24 * time.Hour)

	stats := models.SessionStats{TotalSessions: len(history)}
	counts := make(map[models.SessionType]int)
	var order []models.SessionType

	for _, s := range history {
		stats.TotalMinutes += s.Duration

		if _, seen := counts[s.SessionType]; !seen {
			order = append(order, s.SessionType)
		}
		counts[s.SessionType]++

		completed, err := time.Parse(time.RFC3339Nano, s.CompletedAt)
		if err != nil {
			continue
		}
		if !completed.Before(weekStart) {
			stats.WeekSessions++
			stats.WeekMinutes += s.Duration
		}
		if !completed.Before(monthStart) {
			stats.MonthSessions++
		}
	}

	// Ties go to the type seen first, i.e. the most recent.
	best := 0
	for _, st := range order {
		if counts[st] > best {
			best = counts[st]
			stats.FavoriteType = st
		}
	}

	return stats
}
