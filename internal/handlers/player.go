package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/benvon/manasmitra/internal/logger"
	"github.com/benvon/manasmitra/internal/mindfulness"
	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/store"
	"github.com/benvon/manasmitra/internal/telemetry"
)

const (
	playerTickInterval   = time.Second
	playerWriteTimeout   = 10 * time.Second
	playerReadTimeout    = 60 * time.Second
	playerPingInterval   = 30 * time.Second
	playerMaxMessageSize = 512
)

// Player commands sent by the client.
const (
	CommandStart = "start"
	CommandPause = "pause"
	CommandStop  = "stop"
	CommandReset = "reset"
)

// Player frame types sent by the server.
const (
	FrameState     = "state"
	FrameCompleted = "completed"
	FrameError     = "error"
)

// PlayerCommand is a client message on the player socket.
type PlayerCommand struct {
	Type string `json:"type"`
}

// PlayerFrame is a server message on the player socket.
type PlayerFrame struct {
	Type      string                  `json:"type"`
	Timer     *mindfulness.TimerState `json:"timer,omitempty"`
	Breath    *mindfulness.PhaseState `json:"breath,omitempty"`
	Remaining string                  `json:"remaining,omitempty"`
	Session   *models.SessionProgress `json:"session,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

// playerParams are the query parameters of a player connection.
type playerParams struct {
	duration    int
	pattern     mindfulness.BreathingPattern
	sessionType models.SessionType
	mood        models.Mood
}

// PlayerHandler streams a mindfulness session timer over a WebSocket.
type PlayerHandler struct {
	store    *store.Store
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	clock    mindfulness.Clock
	tick     time.Duration
	upgrader websocket.Upgrader
}

// NewPlayerHandler creates a player handler. Browser connections must come
// from one of allowedOrigins; clients that send no Origin header are accepted.
func NewPlayerHandler(st *store.Store, allowedOrigins []string, log *zap.Logger) *PlayerHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlayerHandler{
		store:   st,
		metrics: telemetry.NewMetrics(),
		logger:  log,
		clock:   mindfulness.SystemClock,
		tick:    playerTickInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func parsePlayerParams(q url.Values) (playerParams, error) {
	p := playerParams{duration: models.DefaultSessionDuration}

	if raw := q.Get("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 1 || d > 30 {
			return p, paramError("duration must be between 1 and 30 minutes")
		}
		p.duration = d
	}

	pattern, err := mindfulness.ParsePattern(q.Get("pattern"))
	if err != nil {
		return p, paramError(err.Error())
	}
	p.pattern = pattern

	if raw := q.Get("session_type"); raw != "" {
		p.sessionType = models.SessionType(raw)
		if !p.sessionType.Valid() {
			return p, paramError("unknown session_type")
		}
	}
	if raw := q.Get("mood"); raw != "" {
		p.mood = models.Mood(raw)
		if !p.mood.Valid() {
			return p, paramError("unknown mood")
		}
	}
	return p, nil
}

type paramError string

func (e paramError) Error() string { return string(e) }

// ServeHTTP upgrades the connection and runs the session until the client
// disconnects. Completing the full duration records a SessionProgress when
// both session_type and mood were given.
func (h *PlayerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profileID, ok := requireProfile(w, r)
	if !ok {
		return
	}

	params, err := parsePlayerParams(r.URL.Query())
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("player_upgrade_failed", logger.Err(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Debug("player_connected", logger.Profile(profileID), zap.Int("duration", params.duration))

	commands := make(chan PlayerCommand)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	go h.readPump(conn, commands, done, quit)

	h.run(r, conn, profileID, params, commands, done)
}

// readPump forwards client commands until the connection closes.
func (h *PlayerHandler) readPump(conn *websocket.Conn, commands chan<- PlayerCommand, done chan<- struct{}, quit <-chan struct{}) {
	defer close(done)

	conn.SetReadLimit(playerMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(playerReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(playerReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("player_read_failed", logger.Err(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(playerReadTimeout))

		var cmd PlayerCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			cmd = PlayerCommand{}
		}
		select {
		case commands <- cmd:
		case <-quit:
			return
		}
	}
}

// run owns the timer and is the only writer on conn.
func (h *PlayerHandler) run(r *http.Request, conn *websocket.Conn, profileID string, params playerParams, commands <-chan PlayerCommand, done <-chan struct{}) {
	timer := mindfulness.NewTimer(time.Duration(params.duration)*time.Minute, h.clock)

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	pinger := time.NewTicker(playerPingInterval)
	defer pinger.Stop()

	write := func(frame PlayerFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(playerWriteTimeout))
		return conn.WriteJSON(frame) == nil
	}

	// The breathing cue only advances while the timer runs.
	state := func(s mindfulness.TimerState) PlayerFrame {
		breath := params.pattern.PhaseAt(time.Duration(s.CurrentTime) * time.Second)
		return PlayerFrame{
			Type:      FrameState,
			Timer:     &s,
			Breath:    &breath,
			Remaining: mindfulness.FormatTime(s.Total - s.CurrentTime),
		}
	}

	complete := func(s mindfulness.TimerState) bool {
		if !write(state(s)) {
			return false
		}
		frame := PlayerFrame{Type: FrameCompleted}
		if params.sessionType != "" && params.mood != "" {
			stored := recordSession(r.Context(), h.store, h.metrics, profileID, models.SessionProgressRequest{
				Duration:    params.duration,
				Mood:        params.mood,
				SessionType: params.sessionType,
			})
			frame.Session = &stored
			h.logger.Info("player_session_completed", logger.Profile(profileID), zap.String("session_id", stored.SessionID))
		}
		return write(frame)
	}

	if !write(state(timer.Snapshot())) {
		return
	}

	for {
		select {
		case <-done:
			return

		case <-r.Context().Done():
			return

		case cmd := <-commands:
			switch cmd.Type {
			case CommandStart:
				timer.Start()
			case CommandPause:
				timer.Pause()
			case CommandStop:
				timer.Stop()
			case CommandReset:
				timer.Reset()
			default:
				if !write(PlayerFrame{Type: FrameError, Message: "unknown command"}) {
					return
				}
				continue
			}
			if !write(state(timer.Snapshot())) {
				return
			}

		case <-ticker.C:
			before := timer.Snapshot()
			if !before.IsPlaying {
				continue
			}
			after := timer.Tick()
			if after.Completed {
				if !complete(after) {
					return
				}
				continue
			}
			if !write(state(after)) {
				return
			}

		case <-pinger.C:
			_ = conn.SetWriteDeadline(time.Now().Add(playerWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
