package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingKV fails every operation.
type failingKV struct{}

func (failingKV) Get(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("quota exceeded")
}
func (failingKV) Put(context.Context, string, string, []byte) error {
	return errors.New("quota exceeded")
}
func (failingKV) Ping(context.Context) error { return errors.New("down") }

var _ KV = failingKV{}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, kv KV, opts ...Option) (*Store, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(kv, nil, opts...), clock
}

func TestAppendCheckIn_PersistsSubmittedFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, NewMemoryKV())

	c := s.NewCheckIn(models.CheckInRequest{Mood: models.MoodSad, Feelings: []models.Feeling{models.FeelingLonely}, Details: ""})
	require.True(t, s.AppendCheckIn(ctx, "p1", c))

	got := s.CheckIns(ctx, "p1")
	require.Len(t, got, 1)
	assert.Equal(t, models.MoodSad, got[0].Mood)
	assert.Equal(t, []models.Feeling{models.FeelingLonely}, got[0].Feelings)
	assert.Equal(t, "", got[0].Details)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, "2025-01-02T15:04:05Z", got[0].Date)

	assert.Empty(t, s.CheckIns(ctx, "p2"), "profiles are isolated")
}

func TestAppendCheckIn_IDsSortByCreation(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, NewMemoryKV())

	for i := 0; i < 20; i++ {
		if i%5 == 0 {
			clock.Advance(time.Millisecond)
		}
		s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodOkay}))
	}

	all := s.CheckIns(ctx, "p1")
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids not in creation order: %v", ids)
}

func TestAddSession_KeepsFiftyMostRecent(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, NewMemoryKV())

	for i := 1; i <= 51; i++ {
		clock.Advance(time.Minute)
		s.AddSession(ctx, "p1", models.SessionProgress{
			SessionID:   fmt.Sprintf("s%02d", i),
			Duration:    5,
			Mood:        models.MoodOkay,
			SessionType: models.SessionTypeBreathing,
		})
	}

	history := s.Sessions(ctx, "p1")
	require.Len(t, history, models.MaxSessionHistory)
	assert.Equal(t, "s51", history[0].SessionID, "newest first")
	assert.Equal(t, "s02", history[len(history)-1].SessionID, "oldest dropped")
}

func TestAddSession_StampsCompletedAtAndID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, NewMemoryKV())

	got := s.AddSession(ctx, "p1", models.SessionProgress{CompletedAt: "1999-01-01T00:00:00Z", Duration: 3})
	assert.Equal(t, "2025-01-02T15:04:05Z", got.CompletedAt)
	assert.NotEmpty(t, got.SessionID)
}

func TestRead_CorruptDataIsEmptyAndOverwritten(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, "p1", KeyCheckIns, []byte("{not json")))
	require.NoError(t, kv.Put(ctx, "p1", KeySessions, []byte("")))
	s, _ := newTestStore(t, kv)

	assert.Empty(t, s.CheckIns(ctx, "p1"))
	assert.Empty(t, s.Sessions(ctx, "p1"))

	s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodHappy}))
	assert.Len(t, s.CheckIns(ctx, "p1"), 1)
}

func TestStore_BackendFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, failingKV{})

	assert.NotPanics(t, func() {
		assert.False(t, s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodSad})))
		s.AddSession(ctx, "p1", models.SessionProgress{Duration: 5})
		s.SaveAffirmation(ctx, "p1", "hi", "")
	})
	assert.Empty(t, s.CheckIns(ctx, "p1"))
	assert.Empty(t, s.Sessions(ctx, "p1"))
	_, ok := s.Affirmation(ctx, "p1")
	assert.False(t, ok)
	assert.Error(t, s.Ping(ctx))
}

// flakyGetKV is a MemoryKV whose next failGets reads return an error.
type flakyGetKV struct {
	*MemoryKV
	mu       sync.Mutex
	failGets int
}

func (f *flakyGetKV) failNextGet() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGets++
}

func (f *flakyGetKV) Get(ctx context.Context, profileID, key string) ([]byte, error) {
	f.mu.Lock()
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("i/o timeout")
	}
	return f.MemoryKV.Get(ctx, profileID, key)
}

func TestAppendCheckIn_UnreadableHistoryIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	kv := &flakyGetKV{MemoryKV: NewMemoryKV()}
	s, _ := newTestStore(t, kv)

	for _, mood := range []models.Mood{models.MoodHappy, models.MoodOkay, models.MoodSad} {
		require.True(t, s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: mood})))
	}

	kv.failNextGet()
	assert.False(t, s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodAngry})),
		"append must report the dropped write")
	require.Len(t, s.CheckIns(ctx, "p1"), 3, "history kept intact")

	require.True(t, s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodAnxious})))
	all := s.CheckIns(ctx, "p1")
	require.Len(t, all, 4)
	assert.Equal(t, models.MoodHappy, all[0].Mood)
	assert.Equal(t, models.MoodAnxious, all[3].Mood)
}

func TestAddSession_UnreadableHistoryIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	kv := &flakyGetKV{MemoryKV: NewMemoryKV()}
	s, _ := newTestStore(t, kv)

	s.AddSession(ctx, "p1", models.SessionProgress{SessionID: "a", Duration: 5})
	s.AddSession(ctx, "p1", models.SessionProgress{SessionID: "b", Duration: 5})

	kv.failNextGet()
	got := s.AddSession(ctx, "p1", models.SessionProgress{SessionID: "lost", Duration: 5})
	assert.Equal(t, "lost", got.SessionID)
	require.Len(t, s.Sessions(ctx, "p1"), 2, "history kept intact")

	s.AddSession(ctx, "p1", models.SessionProgress{SessionID: "c", Duration: 5})
	history := s.Sessions(ctx, "p1")
	require.Len(t, history, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{history[0].SessionID, history[1].SessionID, history[2].SessionID})
}

func TestAppendCheckIn_OversizedHistoryIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s, _ := newTestStore(t, kv)
	for i := 0; i < 3; i++ {
		require.True(t, s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodOkay})))
	}
	stored, err := kv.Get(ctx, "p1", KeyCheckIns)
	require.NoError(t, err)

	small, _ := newTestStore(t, kv, WithQuota(len(stored)-1))
	assert.False(t, small.AppendCheckIn(ctx, "p1", small.NewCheckIn(models.CheckInRequest{Mood: models.MoodSad})))

	after, err := kv.Get(ctx, "p1", KeyCheckIns)
	require.NoError(t, err)
	assert.Equal(t, stored, after)
}

func TestStore_QuotaExceededDropsWrite(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, NewMemoryKV(), WithQuota(200))

	assert.True(t, s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodOkay})))
	big := s.NewCheckIn(models.CheckInRequest{Mood: models.MoodOkay, Details: string(make([]byte, 300))})
	assert.False(t, s.AppendCheckIn(ctx, "p1", big))
	assert.Len(t, s.CheckIns(ctx, "p1"), 1, "previous value kept")
}

func TestMoodTrend(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, NewMemoryKV())

	trend := s.MoodTrend(ctx, "p1")
	assert.False(t, trend.EnoughData)
	assert.Empty(t, trend.Points)

	s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodHappy}))
	assert.False(t, s.MoodTrend(ctx, "p1").EnoughData)

	for i := 0; i < 34; i++ {
		clock.Advance(24 * time.Hour)
		mood := models.MoodSad
		if i == 33 {
			mood = models.MoodAnxious
		}
		s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: mood}))
	}

	trend = s.MoodTrend(ctx, "p1")
	require.True(t, trend.EnoughData)
	require.Len(t, trend.Points, TrendWindow)
	last := trend.Points[len(trend.Points)-1]
	assert.Equal(t, 2, last.MoodScore)
	assert.Equal(t, models.MoodAnxious, last.MoodName)
	assert.Equal(t, "Feb 5", last.Label)
	assert.Equal(t, 1, trend.Points[0].MoodScore)
}

func TestSessionStats(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, NewMemoryKV())

	s.AddSession(ctx, "p1", models.SessionProgress{Duration: 10, SessionType: models.SessionTypeMeditation})
	clock.Advance(10 * 24 * time.Hour)
	s.AddSession(ctx, "p1", models.SessionProgress{Duration: 5, SessionType: models.SessionTypeBreathing})
	s.AddSession(ctx, "p1", models.SessionProgress{Duration: 5, SessionType: models.SessionTypeBreathing})

	stats := s.SessionStats(ctx, "p1")
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 2, stats.WeekSessions)
	assert.Equal(t, 3, stats.MonthSessions)
	assert.Equal(t, 20, stats.TotalMinutes)
	assert.Equal(t, 10, stats.WeekMinutes)
	assert.Equal(t, models.SessionTypeBreathing, stats.FavoriteType)
}

func TestAffirmationCache(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, NewMemoryKV())

	_, ok := s.Affirmation(ctx, "p1")
	assert.False(t, ok)

	saved := s.SaveAffirmation(ctx, "p1", "You are enough.", models.MoodSad)
	got, ok := s.Affirmation(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, saved, got)
}

func TestAppendCheckIn_ConcurrentWritesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, NewMemoryKV())

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendCheckIn(ctx, "p1", s.NewCheckIn(models.CheckInRequest{Mood: models.MoodOkay}))
		}()
	}
	wg.Wait()

	assert.Len(t, s.CheckIns(ctx, "p1"), 25)
}
