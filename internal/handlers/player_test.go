package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/benvon/manasmitra/internal/mindfulness"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/store"
)

type playerClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *playerClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *playerClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func startPlayer(t *testing.T, query string) (*websocket.Conn, *playerClock, *store.Store) {
	t.Helper()

	clock := &playerClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	st := store.New(store.NewMemoryKV(), nil)
	h := NewPlayerHandler(st, []string{"http://localhost:3000"}, nil)
	h.clock = clock
	h.tick = 5 * time.Millisecond

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, withProfile(r, "p-1"))
	}))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/player"+query, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, clock, st
}

// readUntil reads frames until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(PlayerFrame) bool) PlayerFrame {
	t.Helper()
	for {
		var frame PlayerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if match(frame) {
			return frame
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, cmd string) {
	t.Helper()
	if err := conn.WriteJSON(PlayerCommand{Type: cmd}); err != nil {
		t.Fatalf("WriteJSON(%s) error = %v", cmd, err)
	}
}

func TestPlayer_CompletesAndRecords(t *testing.T) {
	t.Parallel()

	conn, clock, st := startPlayer(t, "?duration=1&session_type=breathing&mood=Okay")

	initial := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState })
	if initial.Timer.IsPlaying || initial.Timer.Total != 60 || initial.Remaining != "1:00" {
		t.Fatalf("initial frame = %+v", initial.Timer)
	}

	send(t, conn, CommandStart)
	readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState && f.Timer.IsPlaying })

	clock.Advance(61 * time.Second)
	done := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameCompleted })
	if done.Session == nil {
		t.Fatal("completed frame has no session")
	}
	if done.Session.Duration != 1 || done.Session.SessionType != models.SessionTypeBreathing || done.Session.Mood != models.MoodOkay {
		t.Errorf("recorded session = %+v", done.Session)
	}

	history := st.Sessions(context.Background(), "p-1")
	if len(history) != 1 || history[0].SessionID != done.Session.SessionID {
		t.Errorf("history = %+v", history)
	}
}

func TestPlayer_CompletionWithoutMoodIsNotRecorded(t *testing.T) {
	t.Parallel()

	conn, clock, st := startPlayer(t, "?duration=1")
	readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState })

	send(t, conn, CommandStart)
	readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState && f.Timer.IsPlaying })
	clock.Advance(2 * time.Minute)

	done := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameCompleted })
	if done.Session != nil {
		t.Errorf("session recorded without mood: %+v", done.Session)
	}
	if n := len(st.Sessions(context.Background(), "p-1")); n != 0 {
		t.Errorf("history has %d entries, want 0", n)
	}
}

func TestPlayer_PauseKeepsBaseline(t *testing.T) {
	t.Parallel()

	conn, clock, _ := startPlayer(t, "?duration=5&pattern=4-2-6-1")
	readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState })

	send(t, conn, CommandStart)
	readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState && f.Timer.IsPlaying })

	clock.Advance(42 * time.Second)
	at42 := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState && f.Timer.CurrentTime == 42 })
	// 42 mod 13 = 3, inside the 4 s inhale.
	if at42.Breath == nil || at42.Breath.Phase != mindfulness.PhaseInhale {
		t.Errorf("breath at 42s = %+v, want inhale", at42.Breath)
	}

	send(t, conn, CommandPause)
	paused := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState && !f.Timer.IsPlaying })
	if paused.Timer.CurrentTime != 42 {
		t.Fatalf("paused at %d, want 42", paused.Timer.CurrentTime)
	}

	clock.Advance(10 * time.Minute)
	send(t, conn, CommandStart)
	resumed := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState && f.Timer.IsPlaying })
	if resumed.Timer.CurrentTime != 42 {
		t.Errorf("resumed at %d, want 42", resumed.Timer.CurrentTime)
	}

	send(t, conn, CommandReset)
	reset := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState && !f.Timer.IsPlaying })
	if reset.Timer.CurrentTime != 0 {
		t.Errorf("reset at %d, want 0", reset.Timer.CurrentTime)
	}
}

func TestPlayer_UnknownCommand(t *testing.T) {
	t.Parallel()

	conn, _, _ := startPlayer(t, "")
	readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameState })

	send(t, conn, "rewind")
	frame := readUntil(t, conn, func(f PlayerFrame) bool { return f.Type == FrameError })
	if frame.Message != "unknown command" {
		t.Errorf("message = %q", frame.Message)
	}
}

func TestPlayer_InvalidParams(t *testing.T) {
	t.Parallel()

	h := NewPlayerHandler(store.New(store.NewMemoryKV(), nil), nil, nil)

	tests := []struct {
		name    string
		query   string
		profile bool
		want    int
	}{
		{name: "no profile", query: "", want: http.StatusUnauthorized},
		{name: "duration too long", query: "?duration=31", profile: true, want: http.StatusBadRequest},
		{name: "bad pattern", query: "?pattern=4-2", profile: true, want: http.StatusBadRequest},
		{name: "bad session type", query: "?session_type=yoga", profile: true, want: http.StatusBadRequest},
		{name: "bad mood", query: "?mood=Elated", profile: true, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/player"+tt.query, nil)
			if tt.profile {
				req = withProfile(req, "p-1")
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	check := originChecker([]string{"http://localhost:3000/"})

	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{origin: "", host: "api.example", want: true},
		{origin: "http://localhost:3000", host: "api.example", want: true},
		{origin: "https://api.example", host: "api.example", want: true},
		{origin: "https://evil.example", host: "api.example", want: false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("originChecker(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
