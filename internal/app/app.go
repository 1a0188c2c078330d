// Package app 组装应用依赖
package app

import (
	"context"

	"contextual-chat/internal/application/chatview"
	"contextual-chat/internal/application/relay"
	"contextual-chat/internal/config"
	"contextual-chat/internal/infrastructure/agentapi"
	"contextual-chat/internal/infrastructure/persistence/redis"
	"contextual-chat/internal/interfaces/http/handler"
	"contextual-chat/internal/interfaces/http/middleware"
	"contextual-chat/internal/interfaces/http/router"
	"contextual-chat/pkg/logger"
)

// InitializeApp 初始化整个应用（带路由器）
// 返回的 cleanup 按创建的逆序释放资源
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	redisClient, cleanup, err := ProvideRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := ProvideRelayService(ctx, cfg, redisClient)

	handlers := router.Handlers{
		Health:  ProvideHealthHandler(cfg, redisClient),
		Relay:   handler.NewRelayHandler(svc),
		Page:    ProvideChatPageHandler(cfg, svc),
		Limiter: ProvideRateLimiter(ctx, cfg, redisClient),
	}

	return router.New(cfg, handlers), cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端，未启用时返回 nil
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}

	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Error(ctx, "failed to close redis client", err)
		}
	}
	return client, cleanup, nil
}

// ProvideRelayService 提供转发服务，检索信息缓存依赖 Redis
func ProvideRelayService(ctx context.Context, cfg *config.Config, redisClient *redis.Client) *relay.Service {
	client := agentapi.NewClient(&cfg.Agent)

	var cache relay.ResponseCache
	if cfg.Cache.Retrieval.Enabled {
		if redisClient == nil {
			logger.Warn(ctx, "retrieval cache enabled without redis, caching disabled")
		} else {
			cache = redis.NewRetrievalCache(redisClient, cfg.Cache.Retrieval.KeyPrefix, cfg.Cache.Retrieval.TTL)
		}
	}

	return relay.NewService(client, cfg.Agent.AgentID, cache)
}

// ProvideRateLimiter 提供限流器，未启用或无 Redis 时返回 nil
func ProvideRateLimiter(ctx context.Context, cfg *config.Config, redisClient *redis.Client) middleware.RateLimiter {
	if !cfg.Security.RateLimit.Enabled {
		return nil
	}
	if redisClient == nil {
		logger.Warn(ctx, "rate limit enabled without redis, rate limiting disabled")
		return nil
	}
	return redis.NewRateLimiter(redisClient)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, redisClient *redis.Client) *handler.HealthHandler {
	var checker handler.HealthChecker
	if redisClient != nil {
		checker = redisClient
	}
	return handler.NewHealthHandler(cfg.App.Version, cfg.Agent.Configured(), cfg.Cache.Redis.Enabled, checker)
}

// ProvideChatPageHandler 提供对话页处理器，未启用时返回 nil
func ProvideChatPageHandler(cfg *config.Config, svc *relay.Service) *handler.ChatPageHandler {
	if !cfg.View.Enabled {
		return nil
	}

	opts := chatview.Options{MinInputLength: cfg.View.MinInputLength}
	store := chatview.NewStore(cfg.View.SessionCapacity, func(id string) *chatview.View {
		return chatview.NewView(id, svc.AgentID(), svc, opts)
	})
	return handler.NewChatPageHandler(store, chatview.NewRenderer(), cfg.View)
}
