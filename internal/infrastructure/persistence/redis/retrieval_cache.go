package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"contextual-chat/internal/application/relay"
	"contextual-chat/pkg/logger"
	"contextual-chat/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

// cachedResponse 缓存中保存的上游响应
type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// RetrievalCache 检索信息响应缓存，实现 relay.ResponseCache
// 只缓存 2xx 响应；同一键的并发未命中通过 singleflight 合并
type RetrievalCache struct {
	client *Client
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

var _ relay.ResponseCache = (*RetrievalCache)(nil)

// NewRetrievalCache 创建检索信息缓存
func NewRetrievalCache(client *Client, prefix string, ttl time.Duration) *RetrievalCache {
	if prefix == "" {
		prefix = "retrieval"
	}
	return &RetrievalCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// GetOrLoad Read-Through 缓存
// Redis 故障时降级为直接加载
func (c *RetrievalCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*relay.Response, error)) (*relay.Response, error) {
	fullKey := c.prefix + ":" + key
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", fullKey)))
	defer span.End()

	if resp, err := c.get(ctx, fullKey); err == nil {
		metrics.RetrievalCacheTotal.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return resp, nil
	} else if !errors.Is(err, redis.Nil) {
		metrics.RetrievalCacheTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		logger.Warn(ctx, "retrieval cache read failed", "key", fullKey, "error", err.Error())
		return load(ctx)
	}

	metrics.RetrievalCacheTotal.WithLabelValues("miss").Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(fullKey, func() (interface{}, error) {
		resp, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if resp.OK() {
			c.set(ctx, fullKey, resp)
		}
		return resp, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result.(*relay.Response), nil
}

func (c *RetrievalCache) get(ctx context.Context, key string) (*relay.Response, error) {
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var entry cachedResponse
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &relay.Response{StatusCode: entry.Status, Body: entry.Body}, nil
}

// set 写入失败不影响返回结果
func (c *RetrievalCache) set(ctx context.Context, key string, resp *relay.Response) {
	raw, err := json.Marshal(cachedResponse{Status: resp.StatusCode, Body: resp.Body})
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "retrieval cache write failed", "key", key, "error", err.Error())
	}
}
