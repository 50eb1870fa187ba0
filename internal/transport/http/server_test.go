package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planningpoker/internal/app"
	"planningpoker/internal/config"
	"planningpoker/internal/metrics"
)

func newTestServer(t *testing.T, metricsEnabled bool) (*Server, *app.Hub) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           3000,
			Env:            "production",
			AllowedOrigins: []string{"*"},
		},
		Session: config.SessionConfig{ReconnectGracePeriod: 30 * time.Second, IDLength: 8},
		Metrics: config.MetricsConfig{Enabled: metricsEnabled},
	}

	rec := metrics.New(metricsEnabled, prometheus.NewRegistry())
	hub := app.NewHub(cfg.Session, clockwork.NewFakeClock(), rec, zerolog.Nop())
	t.Cleanup(hub.Close)

	return NewServer(cfg, hub, rec, zerolog.Nop()), hub
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec, resp := get(t, s, "/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, resp.Data)
}

func TestServer_SessionExists(t *testing.T) {
	s, hub := newTestServer(t, false)

	room, err := hub.CreateSession("alice", "Alice", nil)
	require.NoError(t, err)

	_, resp := get(t, s, "/api/sessions/"+room.GetSessionID()+"/exists")
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["exists"])
	assert.Equal(t, 1.0, data["participants"])
	assert.Equal(t, room.GetCreatedAt().Format(time.RFC3339Nano), data["createdAt"])

	_, resp = get(t, s, "/api/sessions/nope1234/exists")
	assert.Equal(t, map[string]interface{}{"exists": false, "participants": 0.0}, resp.Data)
}

func TestServer_Stats(t *testing.T) {
	s, hub := newTestServer(t, false)

	room, err := hub.CreateSession("alice", "Alice", nil)
	require.NoError(t, err)
	require.NoError(t, room.Join("bob", "Bob", nil))
	_, err = hub.CreateSession("carol", "Carol", nil)
	require.NoError(t, err)

	_, resp := get(t, s, "/api/stats")

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2.0, data["activeSessions"])
	assert.Equal(t, 3.0, data["totalParticipants"])
	assert.Equal(t, 3.0, data["connectedParticipants"])
	assert.Equal(t, 0.0, data["connections"])
}

func TestServer_VoteValues(t *testing.T) {
	s, _ := newTestServer(t, false)

	_, resp := get(t, s, "/api/vote-values")

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0, 5.0, 8.0, 13.0, 20.0, 40.0, 100.0}, data["values"])
}

func TestServer_Metrics(t *testing.T) {
	s, hub := newTestServer(t, true)
	_, err := hub.CreateSession("alice", "Alice", nil)
	require.NoError(t, err)

	get(t, s, "/api/health")
	rec, _ := get(t, s, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "poker_sessions_created_total 1")
	assert.Contains(t, body, `poker_http_requests_total{endpoint="GET /api/health",status="2xx"} 1`)
}

func TestServer_MetricsDisabled(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec, _ := get(t, s, "/metrics")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "https://poker.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
