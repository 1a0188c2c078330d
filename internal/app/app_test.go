package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextual-chat/internal/config"
)

func baseConfig(upstream string) *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "contextual-chat"
	cfg.App.Version = "test"
	cfg.App.Env = "test"
	cfg.Agent = config.AgentConfig{BaseURL: upstream, AgentID: "agent-1", APIToken: "secret"}
	cfg.View = config.ViewConfig{Enabled: true, SessionCapacity: 4, MinInputLength: 3, CookieName: "chat_session", Title: "Chat"}
	cfg.Observability.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"}
	return cfg
}

func withRedis(t *testing.T, cfg *config.Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Cache.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port, DialTimeout: time.Second}
}

func TestInitializeAppWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, cleanup, err := InitializeApp(context.Background(), baseConfig("http://127.0.0.1:1"))
	require.NoError(t, err)
	defer cleanup()

	for _, path := range []string{"/health", "/ready", "/"} {
		rec := httptest.NewRecorder()
		r.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestInitializeAppCachesRetrievalInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/agents/agent-1/query/msg-1/retrieval/info", r.URL.Path)
		_, _ = w.Write([]byte(`{"content_metadatas":[{"page_img":"abc"}]}`))
	}))
	defer upstream.Close()

	cfg := baseConfig(upstream.URL + "/v1")
	withRedis(t, cfg)
	cfg.Cache.Retrieval = config.RetrievalCacheConfig{Enabled: true, TTL: time.Minute, KeyPrefix: "retrieval"}

	r, cleanup, err := InitializeApp(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/retrieval-info?agent_id=agent-1&message_id=msg-1&content_id=c1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"content_metadatas":[{"page_img":"abc"}]}`, rec.Body.String())
	}
	assert.Equal(t, int32(1), calls.Load())

	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":{"status":"ok"`)
}

func TestInitializeAppFailsWhenRedisUnreachable(t *testing.T) {
	cfg := baseConfig("http://127.0.0.1:1")
	cfg.Cache.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, DialTimeout: 200 * time.Millisecond}

	_, _, err := InitializeApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOptionalComponentsNeedRedis(t *testing.T) {
	cfg := baseConfig("http://127.0.0.1:1")
	cfg.Security.RateLimit.Enabled = true
	cfg.Cache.Retrieval.Enabled = true

	assert.Nil(t, ProvideRateLimiter(context.Background(), cfg, nil))
	assert.NotNil(t, ProvideRelayService(context.Background(), cfg, nil))
	assert.Nil(t, ProvideChatPageHandler(&config.Config{}, nil))
}
