package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextual-chat/internal/application/chatview"
	"contextual-chat/internal/application/relay"
	"contextual-chat/internal/config"
	"contextual-chat/internal/interfaces/http/handler"
)

type echoAgent struct{}

func (echoAgent) Query(context.Context, string, []byte) (*relay.Response, error) {
	return &relay.Response{StatusCode: 200, Body: []byte(`{"message":{"content":"ok"}}`)}, nil
}

func (echoAgent) RetrievalInfo(context.Context, relay.Lookup) (*relay.Response, error) {
	return &relay.Response{StatusCode: 200, Body: []byte(`{"content_metadatas":[]}`)}, nil
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "contextual-chat"
	cfg.App.Env = "test"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	cfg.View = config.ViewConfig{
		Enabled:         true,
		SessionCapacity: 4,
		MinInputLength:  3,
		CookieName:      "chat_session",
		Title:           "Contextual AI Chat",
	}
	return cfg
}

func newTestRouter(cfg *config.Config, limiter *stubLimiter) *Router {
	gin.SetMode(gin.TestMode)
	svc := relay.NewService(echoAgent{}, "agent-1", nil)
	store := chatview.NewStore(cfg.View.SessionCapacity, func(id string) *chatview.View {
		return chatview.NewView(id, svc.AgentID(), svc, chatview.Options{MinInputLength: 3})
	})

	handlers := Handlers{
		Health: handler.NewHealthHandler("test", true, false, nil),
		Relay:  handler.NewRelayHandler(svc),
		Page:   handler.NewChatPageHandler(store, chatview.NewRenderer(), cfg.View),
	}
	if limiter != nil {
		handlers.Limiter = limiter
	}
	return New(cfg, handlers)
}

func get(r *Router, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSystemRoutes(t *testing.T) {
	r := newTestRouter(testConfig(), nil)

	for _, path := range []string{"/health", "/live", "/ready", "/metrics", "/", "/static/chat.css"} {
		rec := get(r, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.NotEmpty(t, get(r, "/health").Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusNotFound, get(r, "/missing").Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := newTestRouter(testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestPageRoutesCanBeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.View.Enabled = false
	gin.SetMode(gin.TestMode)
	svc := relay.NewService(echoAgent{}, "agent-1", nil)
	r := New(cfg, Handlers{
		Health: handler.NewHealthHandler("test", true, false, nil),
		Relay:  handler.NewRelayHandler(svc),
	})

	assert.Equal(t, http.StatusNotFound, get(r, "/").Code)
	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
}

func TestRateLimitAppliesToAPI(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.RequestsPerSecond = 5
	limiter := &stubLimiter{allowed: false}
	r := newTestRouter(cfg, limiter)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"1006"`)
	assert.Contains(t, rec.Body.String(), "too many requests")
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "client:203.0.113.9:/api/chat", limiter.keys[0])

	// 系统端点不限流
	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
	assert.Len(t, limiter.keys, 1)
}

func TestRateLimiterFailureLetsRequestsThrough(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit.Enabled = true
	r := newTestRouter(cfg, &stubLimiter{err: errors.New("redis down")})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":{"content":"ok"}}`, rec.Body.String())
}
