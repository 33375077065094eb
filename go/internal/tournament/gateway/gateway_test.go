package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/orchestrator"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/outbox"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/repository"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/session"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc     *Service
	store   *repository.MemoryStore
	handler http.Handler
	stats   *outbox.Counters
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, DefaultConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	orch := orchestrator.New(store, nil, store, clockwork.NewFakeClock(), zerolog.Nop(), orchestrator.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.Run(ctx)
	}()

	stats := &outbox.Counters{}
	svc := NewService(cfg, orch, template.Builtin(), store, stats, zerolog.Nop())
	go func() { _ = svc.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &testEnv{svc: svc, store: store, handler: svc.Handler(), stats: stats}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Session)
	require.NotNil(t, health.Outbox)

	env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetTurbo})
	health = decode[HealthResponse](t, env.request(t, http.MethodGet, "/health", nil))
	assert.True(t, health.Session)
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.Template](t, rec)
	assert.Len(t, list, 4)

	rec = env.request(t, http.MethodGet, "/api/templates/"+template.PresetStandard, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Standard", decode[models.Template](t, rec).Name)

	rec = env.request(t, http.MethodGet, "/api/templates/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetTurbo})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[session.View](t, rec)
	assert.Equal(t, models.SessionStatusPaused, view.Status)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, "Turbo", view.TemplateName)
	assert.Equal(t, "00:00", view.ClockDisplay)

	rec = env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetStandard})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, view.SessionID, decode[session.View](t, rec).SessionID)
}

func TestStartSession_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/session", StartRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	invalid := models.Template{ID: "x", Name: "X"}
	rec = env.request(t, http.MethodPost, "/api/session", StartRequest{Template: &invalid})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one level is required")

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader("{"))
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/session/actions/add_player", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetTurbo})

	rec = env.request(t, http.MethodPost, "/api/session/actions/add_punctual_player", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[orchestrator.Outcome](t, rec)
	assert.True(t, out.Result.OK)
	assert.Equal(t, 1, out.View.Ledger.Players)
	assert.Equal(t, 1, out.View.Ledger.PunctualityBonusPlayers)

	rec = env.request(t, http.MethodPost, "/api/session/actions/previous_level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode[orchestrator.Outcome](t, rec)
	assert.False(t, out.Result.OK)
	assert.NotEmpty(t, out.Result.Reason)

	rec = env.request(t, http.MethodPost, "/api/session/actions/shuffle", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/session/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orchestrator.Action](t, rec), len(orchestrator.Actions))
}

func TestFinalizeAndHistory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/session/finalize", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetTurbo})
	for range 3 {
		env.request(t, http.MethodPost, "/api/session/actions/add_player", nil)
	}

	rec = env.request(t, http.MethodPost, "/api/session/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[FinalizeResponse](t, rec)
	require.True(t, resp.Result.OK)
	require.NotNil(t, resp.Record)
	// 3 x 20 less a 10% fee rounded up to 10
	assert.Equal(t, int64(50), resp.Record.Pot.RealPot)
	assert.Equal(t, []models.RankPrize{{Rank: 1, Amount: 50}}, resp.Record.Prizes)

	rec = env.request(t, http.MethodPost, "/api/session/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[FinalizeResponse](t, rec).Result.OK)

	rec = env.request(t, http.MethodGet, "/api/history?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.HistoryRecord](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, resp.Record.ID, list[0].ID)

	rec = env.request(t, http.MethodGet, "/api/history/"+resp.Record.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[models.HistoryRecord](t, rec).Ledger.Players)

	assert.Equal(t, http.StatusBadRequest, env.request(t, http.MethodGet, "/api/history/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.request(t, http.MethodGet, "/api/history?limit=-1", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		env.request(t, http.MethodGet, "/api/history/00000000-0000-0000-0000-000000000001", nil).Code)

	// a finalized session can be replaced
	rec = env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetStandard})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHistory_EmptyList(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestDiscard(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, env.request(t, http.MethodDelete, "/api/session", nil).Code)

	env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetTurbo})
	assert.Equal(t, http.StatusNoContent, env.request(t, http.MethodDelete, "/api/session", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.request(t, http.MethodGet, "/api/session", nil).Code)
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg
		}
	}
}

func commandConfig(origins ...string) Config {
	cfg := DefaultConfig()
	cfg.AllowClientCommands = true
	cfg.AllowedOrigins = origins
	return cfg
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWebSocket(t *testing.T) {
	env := newTestEnvWithConfig(t, commandConfig())
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.svc.connections.Stats().TotalConnections == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetDeepStack})
	msg := readUntil(t, conn, func(m ServerMessage) bool {
		return m.Type == MessageTypeState && m.View != nil
	})
	assert.Equal(t, "Deep Stack", msg.View.TemplateName)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "add_player"}))
	msg = readUntil(t, conn, func(m ServerMessage) bool { return m.Type == MessageTypeResult })
	assert.Equal(t, "add_player", msg.Action)
	require.NotNil(t, msg.Result)
	assert.True(t, msg.Result.OK)

	msg = readUntil(t, conn, func(m ServerMessage) bool {
		return m.Type == MessageTypeState && m.View != nil && m.View.Ledger.Players == 1
	})
	assert.Equal(t, 1, msg.View.Ledger.Entries)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	msg = readUntil(t, conn, func(m ServerMessage) bool { return m.Type == MessageTypeError })
	assert.NotEmpty(t, msg.Error)
}

func TestWebSocket_LateJoinerGetsState(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetHyperTurbo})
	require.Eventually(t, func() bool {
		env.svc.connections.mu.RLock()
		defer env.svc.connections.mu.RUnlock()
		return env.svc.connections.latest != nil && bytes.Contains(env.svc.connections.latest, []byte("Hyper Turbo"))
	}, 2*time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readUntil(t, conn, func(m ServerMessage) bool { return m.Type == MessageTypeState })
	require.NotNil(t, msg.View)
	assert.Equal(t, "Hyper Turbo", msg.View.TemplateName)
}

func TestWebSocket_CommandsDisabledByDefault(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	// any origin may watch the read-only stream
	header := http.Header{"Origin": []string{"https://elsewhere.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()

	env.request(t, http.MethodPost, "/api/session", StartRequest{TemplateID: template.PresetTurbo})
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "add_player"}))
	msg := readUntil(t, conn, func(m ServerMessage) bool { return m.Type == MessageTypeError })
	assert.Equal(t, "commands are disabled", msg.Error)

	view := decode[session.View](t, env.request(t, http.MethodGet, "/api/session", nil))
	assert.Zero(t, view.Ledger.Players)
}

func TestWebSocket_CommandsRejectForeignOrigin(t *testing.T) {
	env := newTestEnvWithConfig(t, commandConfig("https://club.example"))
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	header := http.Header{"Origin": []string{"https://elsewhere.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://club.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	conn.Close()
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://club.example/"})
	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://clock.local:8080", true},
		{"allowed", "https://club.example", true},
		{"allowed differs in case", "https://CLUB.example", true},
		{"foreign", "https://elsewhere.example", false},
		{"allowed host other scheme", "http://club.example", false},
		{"malformed", "://", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://clock.local:8080/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(orchestrator.ErrNoSession))
	assert.Equal(t, http.StatusNotFound, statusFor(repository.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(orchestrator.ErrSessionActive))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(orchestrator.ErrStopped))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
