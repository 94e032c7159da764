package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/backend"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/repository"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/app/service"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/config"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/database"
	pkgerr "github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/err"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/logger"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/pkg/middleware"
	"github.com/NCUHOME-Y/25-Hack-StudyTimer/internal/timer"
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

type submitter struct{ err error }

func (s *submitter) Submit(context.Context, backend.Record) (*int64, error) {
	return nil, s.err
}

type env struct {
	r     *gin.Engine
	clock *clock
	sub   *submitter
}

func setup(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitGorm(&config.Config{Env: "test", DBDriver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	e := &env{clock: &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}, sub: &submitter{}}
	svc := service.NewTimerService(timer.NewMemoryStore(), repository.NewRecordRepository(db), e.sub, service.Options{
		Clock:      e.clock,
		Log:        logger.New(io.Discard, "test"),
		MinSeconds: 60,
	})

	e.r = gin.New()
	e.r.Use(func(c *gin.Context) {
		c.Set(middleware.VisitorKey, c.GetHeader("X-Visitor"))
		c.Next()
	})
	NewTimer(svc).Register(e.r.Group("/api/v1"))
	return e
}

type resp struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *env) do(t *testing.T, method, path, visitor string, body interface{}) (int, resp) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Visitor", visitor)
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)

	var out resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func snapshotOf(t *testing.T, r resp) timerView {
	t.Helper()
	var v timerView
	require.NoError(t, json.Unmarshal(r.Data, &v))
	return v
}

func TestTimerLifecycle(t *testing.T) {
	e := setup(t)

	status, r := e.do(t, http.MethodGet, "/api/v1/timer/current", "v1", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, snapshotOf(t, r).IsActive)
	assert.Equal(t, "00:00:00", snapshotOf(t, r).Clock)

	status, _ = e.do(t, http.MethodPost, "/api/v1/timer/start", "v1", nil)
	require.Equal(t, http.StatusOK, status)

	e.clock.Advance(90 * time.Second)
	status, r = e.do(t, http.MethodPost, "/api/v1/timer/pause", "v1", nil)
	require.Equal(t, http.StatusOK, status)
	v := snapshotOf(t, r)
	assert.True(t, v.IsPaused)
	assert.Equal(t, int64(90), v.ElapsedSeconds)
	assert.Equal(t, "00:01:30", v.Clock)

	status, r = e.do(t, http.MethodPost, "/api/v1/timer/pause", "v1", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, pkgerr.CodeConflict, r.Code)

	e.clock.Advance(time.Hour)
	status, _ = e.do(t, http.MethodPost, "/api/v1/timer/resume", "v1", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, http.MethodPost, "/api/v1/timer/resume", "v1", nil)
	assert.Equal(t, http.StatusConflict, status)

	e.clock.Advance(30 * time.Second)
	status, r = e.do(t, http.MethodPatch, "/api/v1/timer/metadata", "v1", map[string]string{"subjectId": "7", "subjectName": "Física"})
	require.Equal(t, http.StatusOK, status)
	v = snapshotOf(t, r)
	assert.Equal(t, int64(120), v.ElapsedSeconds)
	assert.Equal(t, "Física", *v.Metadata.SubjectName)

	// 其他游客互不影响
	_, r = e.do(t, http.MethodGet, "/api/v1/timer/current", "v2", nil)
	assert.False(t, snapshotOf(t, r).IsActive)

	status, r = e.do(t, http.MethodPost, "/api/v1/timer/finish", "v1", map[string]interface{}{"questions_done": 4, "questions_correct": 3})
	require.Equal(t, http.StatusOK, status, r.Message)

	_, r = e.do(t, http.MethodGet, "/api/v1/timer/current", "v1", nil)
	assert.False(t, snapshotOf(t, r).IsActive)

	_, r = e.do(t, http.MethodGet, "/api/v1/records", "v1", nil)
	var recs []map[string]interface{}
	require.NoError(t, json.Unmarshal(r.Data, &recs))
	require.Len(t, recs, 1)
	assert.EqualValues(t, 120, recs[0]["seconds"])
	assert.EqualValues(t, 7, recs[0]["subject_id"])
	assert.Equal(t, "timer", recs[0]["source"])
}

func TestStopAlwaysSucceeds(t *testing.T) {
	e := setup(t)
	status, _ := e.do(t, http.MethodPost, "/api/v1/timer/stop", "v1", nil)
	assert.Equal(t, http.StatusOK, status)

	e.do(t, http.MethodPost, "/api/v1/timer/start", "v1", map[string]string{"subjectId": "1"})
	e.clock.Advance(time.Minute)
	status, r := e.do(t, http.MethodPost, "/api/v1/timer/stop", "v1", nil)
	assert.Equal(t, http.StatusOK, status)
	v := snapshotOf(t, r)
	assert.False(t, v.IsActive)
	assert.Zero(t, v.ElapsedSeconds)
}

func TestMetadataRequiresSession(t *testing.T) {
	e := setup(t)
	status, _ := e.do(t, http.MethodPatch, "/api/v1/timer/metadata", "v1", map[string]string{"topicId": "2"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestFinishErrors(t *testing.T) {
	e := setup(t)

	status, r := e.do(t, http.MethodPost, "/api/v1/timer/finish", "v1", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, pkgerr.CodeConflict, r.Code)

	e.do(t, http.MethodPost, "/api/v1/timer/start", "v1", map[string]string{"subjectId": "1"})
	e.clock.Advance(10 * time.Second)
	status, r = e.do(t, http.MethodPost, "/api/v1/timer/finish", "v1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, service.ErrTooShort.Error(), r.Message)

	e.clock.Advance(10 * time.Minute)
	e.sub.err = errors.New("dial tcp: connection refused")
	status, r = e.do(t, http.MethodPost, "/api/v1/timer/finish", "v1", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, pkgerr.CodeUpstream, r.Code)

	// 提交失败后会话还在
	_, r = e.do(t, http.MethodGet, "/api/v1/timer/current", "v1", nil)
	assert.True(t, snapshotOf(t, r).IsActive)

	e.sub.err = nil
	status, _ = e.do(t, http.MethodPost, "/api/v1/timer/finish", "v1", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestManualRecordAndSummary(t *testing.T) {
	e := setup(t)

	status, _ := e.do(t, http.MethodPost, "/api/v1/records", "v1", map[string]interface{}{
		"metadata": map[string]string{"subjectId": "3"},
		"duration": "00:45:00",
	})
	require.Equal(t, http.StatusOK, status)

	status, r := e.do(t, http.MethodPost, "/api/v1/records", "v1", map[string]interface{}{
		"metadata": map[string]string{"subjectId": "3"},
		"duration": "soon",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, pkgerr.CodeBadParam, r.Code)

	status, r = e.do(t, http.MethodGet, "/api/v1/stats/summary?range=30d", "v1", nil)
	require.Equal(t, http.StatusOK, status)
	var sum repository.Summary
	require.NoError(t, json.Unmarshal(r.Data, &sum))
	assert.Len(t, sum.Trend, 30)
	assert.Equal(t, 45, sum.TodayMinutes)
	assert.Equal(t, 1, sum.TodayCount)

	_, r = e.do(t, http.MethodGet, "/api/v1/stats/summary", "v1", nil)
	require.NoError(t, json.Unmarshal(r.Data, &sum))
	assert.Len(t, sum.Trend, 7)
}

func TestStartRejectsBadBody(t *testing.T) {
	e := setup(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timer/start", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
