package store

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/mindfulness"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/telemetry"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// DefaultQuotaBytes is the largest value written under a single key.
const DefaultQuotaBytes = 5 * 1024 * 1024

// TrendWindow is how many recent check-ins the mood chart shows.
const TrendWindow = 30

// ErrQuotaExceeded is logged when a value is too large to persist.
var ErrQuotaExceeded = errors.New("store quota exceeded")

const lockStripes = 64

// Store is the typed, fail-soft view over a KV. Reads that fail for any reason
// (missing, backend error, corrupt or oversized data) come back empty and are
// logged. Writes that fail are logged and dropped; callers never see an error.
// Appends only build on missing or corrupt data; when the current value could
// not be read at all the append is skipped rather than overwriting history.
type Store struct {
	kv      KV
	logger  *zap.Logger
	metrics *telemetry.Metrics
	quota   int
	now     func() time.Time

	// Read-modify-write cycles for one profile are serialized in-process.
	locks [lockStripes]sync.Mutex

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option configures a Store.
type Option func(*Store)

// WithQuota sets the per-value size limit in bytes.
func WithQuota(bytes int) Option {
	return func(s *Store) {
		if bytes > 0 {
			s.quota = bytes
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over kv.
func New(kv KV, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		kv:      kv,
		logger:  log,
		metrics: telemetry.NewMetrics(),
		quota:   DefaultQuotaBytes,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), // #nosec G404 -- ULID entropy, not a secret
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports backend health.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *Store) lock(profileID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(profileID))
	m := &s.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

func (s *Store) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// readResult says what a read found.
type readResult int

const (
	readHit         readResult = iota
	readEmpty                  // missing or corrupt; safe to start over
	readUnavailable            // backend error or oversized; the stored value may be intact
)

// read decodes key into v. v is left untouched unless the result is readHit.
func (s *Store) read(ctx context.Context, profileID, key string, v any) readResult {
	raw, err := s.kv.Get(ctx, profileID, key)
	if err != nil {
		s.readFailed(profileID, key, "backend", err)
		return readUnavailable
	}
	if len(raw) == 0 {
		return readEmpty
	}
	if len(raw) > s.quota {
		s.readFailed(profileID, key, "oversized", ErrQuotaExceeded)
		return readUnavailable
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.readFailed(profileID, key, "corrupt", err)
		return readEmpty
	}
	return readHit
}

func (s *Store) readFailed(profileID, key, reason string, err error) {
	s.metrics.StoreFailures.WithLabelValues("read_" + reason).Inc()
	s.logger.Warn("store_read_treated_as_empty",
		logger.Profile(profileID),
		zap.String("key", key),
		zap.String("reason", reason),
		logger.Err(err),
	)
}

func (s *Store) appendSkipped(profileID, key string) {
	s.metrics.StoreFailures.WithLabelValues("append_skipped").Inc()
	s.logger.Error("store_append_skipped",
		logger.Profile(profileID),
		zap.String("key", key),
		zap.String("reason", "current value unreadable"),
	)
}

func (s *Store) write(ctx context.Context, profileID, key string, v any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		s.writeFailed(profileID, key, "encode", err)
		return false
	}
	if len(raw) > s.quota {
		s.writeFailed(profileID, key, "quota", ErrQuotaExceeded)
		return false
	}
	if err := s.kv.Put(ctx, profileID, key, raw); err != nil {
		s.writeFailed(profileID, key, "backend", err)
		return false
	}
	return true
}

func (s *Store) writeFailed(profileID, key, reason string, err error) {
	s.metrics.StoreFailures.WithLabelValues("write_" + reason).Inc()
	s.logger.Error("store_write_dropped",
		logger.Profile(profileID),
		zap.String("key", key),
		zap.String("reason", reason),
		logger.Err(err),
	)
}

// NewCheckIn stamps a request with a fresh id and the current time.
func (s *Store) NewCheckIn(req models.CheckInRequest) models.CheckIn {
	return models.CheckIn{
		ID:       s.newID(),
		Date:     s.now().UTC().Format(time.RFC3339Nano),
		Mood:     req.Mood,
		Feelings: models.NormalizeFeelings(req.Feelings),
		Details:  req.Details,
	}
}

// AppendCheckIn adds c to the profile's log. It reports whether the write
// reached the backend. Nothing is written when the existing log cannot be read.
func (s *Store) AppendCheckIn(ctx context.Context, profileID string, c models.CheckIn) bool {
	unlock := s.lock(profileID)
	defer unlock()

	var all []models.CheckIn
	switch s.read(ctx, profileID, KeyCheckIns, &all) {
	case readUnavailable:
		s.appendSkipped(profileID, KeyCheckIns)
		return false
	case readEmpty:
		all = nil
	}
	all = append(all, c)
	return s.write(ctx, profileID, KeyCheckIns, all)
}

// CheckIns returns the profile's check-ins, oldest first. Never nil.
func (s *Store) CheckIns(ctx context.Context, profileID string) []models.CheckIn {
	var all []models.CheckIn
	if s.read(ctx, profileID, KeyCheckIns, &all) != readHit || all == nil {
		return []models.CheckIn{}
	}
	return all
}

// MoodTrend builds the chart series from the most recent check-ins.
func (s *Store) MoodTrend(ctx context.Context, profileID string) models.MoodTrend {
	all := s.CheckIns(ctx, profileID)
	if len(all) > TrendWindow {
		all = all[len(all)-TrendWindow:]
	}

	points := make([]models.MoodTrendPoint, 0, len(all))
	for _, c := range all {
		label := c.Date
		if t, err := c.Time(); err == nil {
			label = t.Format("Jan 2")
		}
		points = append(points, models.MoodTrendPoint{
			Date:      c.Date,
			Label:     label,
			MoodScore: c.Mood.Score(),
			MoodName:  c.Mood,
		})
	}
	return models.MoodTrend{Points: points, EnoughData: len(points) >= 2}
}

// AddSession records a completed session, newest first, keeping at most
// models.MaxSessionHistory entries. completedAt is stamped here; an empty
// sessionId is generated. The stamped entry is returned even when the history
// could not be read and nothing was written.
func (s *Store) AddSession(ctx context.Context, profileID string, p models.SessionProgress) models.SessionProgress {
	p.CompletedAt = s.now().UTC().Format(time.RFC3339Nano)
	if p.SessionID == "" {
		p.SessionID = uuid.NewString()
	}

	unlock := s.lock(profileID)
	defer unlock()

	var history []models.SessionProgress
	switch s.read(ctx, profileID, KeySessions, &history) {
	case readUnavailable:
		s.appendSkipped(profileID, KeySessions)
		return p
	case readEmpty:
		history = nil
	}

	updated := make([]models.SessionProgress, 0, len(history)+1)
	updated = append(updated, p)
	updated = append(updated, history...)
	if len(updated) > models.MaxSessionHistory {
		updated = updated[:models.MaxSessionHistory]
	}

	s.write(ctx, profileID, KeySessions, updated)
	return p
}

// Sessions returns the session history, newest first. Never nil.
func (s *Store) Sessions(ctx context.Context, profileID string) []models.SessionProgress {
	var history []models.SessionProgress
	if s.read(ctx, profileID, KeySessions, &history) != readHit || history == nil {
		return []models.SessionProgress{}
	}
	return history
}

// SessionStats summarizes the session history as of now.
func (s *Store) SessionStats(ctx context.Context, profileID string) models.SessionStats {
	return mindfulness.ComputeStats(s.Sessions(ctx, profileID), s.now())
}

// Affirmation returns the cached affirmation, if any.
func (s *Store) Affirmation(ctx context.Context, profileID string) (models.CachedAffirmation, bool) {
	var a models.CachedAffirmation
	if s.read(ctx, profileID, KeyAffirmation, &a) != readHit || a.Affirmation == "" {
		return models.CachedAffirmation{}, false
	}
	return a, true
}

// SaveAffirmation caches an affirmation, stamping generatedAt.
func (s *Store) SaveAffirmation(ctx context.Context, profileID string, text string, mood models.Mood) models.CachedAffirmation {
	a := models.CachedAffirmation{
		Affirmation: text,
		Mood:        mood,
		GeneratedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	s.write(ctx, profileID, KeyAffirmation, a)
	return a
}
