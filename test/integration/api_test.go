package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/config"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/database"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/logger"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/middleware"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type harness struct {
	srv     *httptest.Server
	client  *http.Client
	clock   *clock
	records atomic.Int32
	token   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{clock: &clock{now: time.Now().UTC().Truncate(time.Second)}}

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/registros", r.URL.Path)
		n := h.records.Add(1)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]int32{"id": 100 + n})
	}))
	t.Cleanup(remote.Close)

	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      "integration-secret",
		JWTExpire:      time.Hour,
		DBDriver:       "sqlite",
		SQLitePath:     ":memory:",
		BackendURL:     remote.URL,
		BackendRetries: 1,
		MinSessionSec:  60,
		AllowOrigins:   []string{"http://localhost:5173"},
	}
	db, err := database.InitGorm(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	r, err := app.NewRouter(app.Deps{Config: cfg, Log: logger.New(io.Discard, "test"), DB: db, Clock: h.clock})
	require.NoError(t, err)
	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{Jar: jar}
	return h
}

func (h *harness) call(t *testing.T, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, env := h.call(t, http.MethodGet, "/api/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, resp.Header.Get(middleware.RequestIDHeader))

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data["database"])
}

func TestGuestFlow(t *testing.T) {
	h := newHarness(t)

	resp, env := h.call(t, http.MethodPost, "/api/v1/guest-login", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	assert.Contains(t, login.Username, "guest-")
	h.token = login.Token

	resp, _ = h.call(t, http.MethodPost, "/api/v1/timer/start", map[string]string{"subjectId": "12", "subjectName": "História"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.clock.Advance(40 * time.Minute)
	resp, _ = h.call(t, http.MethodPost, "/api/v1/timer/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h.clock.Advance(3 * time.Hour)

	// 换一个客户端（没有 cookie）只带 token，仍然是同一个游客
	h.client = &http.Client{}
	resp, env = h.call(t, http.MethodGet, "/api/v1/timer/current", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cur struct {
		IsPaused       bool   `json:"is_paused"`
		ElapsedSeconds int64  `json:"elapsed_sec"`
		Clock          string `json:"clock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cur))
	assert.True(t, cur.IsPaused)
	assert.Equal(t, int64(2400), cur.ElapsedSeconds)
	assert.Equal(t, "00:40:00", cur.Clock)

	resp, env = h.call(t, http.MethodPost, "/api/v1/timer/finish", map[string]interface{}{"notes": "cap. 3"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var rec struct {
		Seconds  int64  `json:"seconds"`
		RemoteID *int64 `json:"remote_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, int64(2400), rec.Seconds)
	require.NotNil(t, rec.RemoteID)
	assert.Equal(t, int64(101), *rec.RemoteID)
	assert.Equal(t, int32(1), h.records.Load())

	resp, env = h.call(t, http.MethodGet, "/api/v1/stats/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum struct {
		TotalMinutes int `json:"total_minutes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, 40, sum.TotalMinutes)
}

func TestBadTokenRejected(t *testing.T) {
	h := newHarness(t)
	h.token = "not-a-jwt"
	resp, env := h.call(t, http.MethodGet, "/api/v1/timer/current", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 1004, env.Code)
}

func TestCookieIdentifiesVisitor(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.call(t, http.MethodPost, "/api/v1/timer/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, env := h.call(t, http.MethodGet, "/api/v1/timer/current", nil)
	var cur struct {
		IsActive bool `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cur))
	assert.True(t, cur.IsActive)

	// 新客户端没有 cookie，是另一个游客
	h.client = &http.Client{}
	_, env = h.call(t, http.MethodGet, "/api/v1/timer/current", nil)
	require.NoError(t, json.Unmarshal(env.Data, &cur))
	assert.False(t, cur.IsActive)
}

func TestCorsPreflight(t *testing.T) {
	h := newHarness(t)
	req, err := http.NewRequest(http.MethodOptions, h.srv.URL+"/api/v1/timer/start", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
