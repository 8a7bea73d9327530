package mindfulness

import (
	"testing"
	"time"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }

	history := []models.SessionProgress{
		{SessionID: "a", CompletedAt: at(time.Hour), Duration: 5, SessionType: models.SessionTypeBreathing},
		{SessionID: "b", CompletedAt: at(3 * 24 * time.Hour), Duration: 10, SessionType: models.SessionTypeMeditation},
		{SessionID: "c", CompletedAt: at(10 * 24 * time.Hour), Duration: 3, SessionType: models.SessionTypeMeditation},
		{SessionID: "d", CompletedAt: at(40 * 24 * time.Hour), Duration: 20, SessionType: models.SessionTypeBodyScan},
		{SessionID: "e", CompletedAt: "not-a-date", Duration: 2, SessionType: models.SessionTypeBreathing},
		{SessionID: "f", CompletedAt: at(45 * 24 * time.Hour), Duration: 15, SessionType: models.SessionTypeMeditation},
	}

	got := ComputeStats(history, now)
	assert.Equal(t, models.SessionStats{
		TotalSessions: 6,
		WeekSessions:  2,
		MonthSessions: 3,
		TotalMinutes:  55,
		WeekMinutes:   15,
		FavoriteType:  models.SessionTypeMeditation,
	}, got)
}

func TestComputeStats_Empty(t *testing.T) {
	t.Parallel()

	got := ComputeStats(nil, time.Now())
	assert.Equal(t, models.SessionStats{}, got)
}

func TestDefaultSession(t *testing.T) {
	t.Parallel()

	for _, st := range models.SessionTypes {
		for _, d := range []int{1, 5, 30} {
			s := DefaultSession(st, d)
			assert.NotEmpty(t, s.Title, "%s/%d", st, d)
			assert.NotEmpty(t, s.Guidance, "%s/%d", st, d)
			assert.NotEmpty(t, s.Instructions, "%s/%d", st, d)
		}
	}

	assert.Equal(t, "Body scan Session", DefaultSession(models.SessionTypeBodyScan, 5).Title)
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0:00", FormatTime(0))
	assert.Equal(t, "0:09", FormatTime(9))
	assert.Equal(t, "2:30", FormatTime(150))
	assert.Equal(t, "0:00", FormatTime(-5))
}
