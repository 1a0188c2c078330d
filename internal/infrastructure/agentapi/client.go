// Package agentapi 提供托管 RAG Agent HTTP API 客户端
package agentapi

import (
	"context"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"contextual-chat/internal/application/relay"
	"contextual-chat/internal/config"
	"contextual-chat/pkg/logger"
	"contextual-chat/pkg/metrics"
	"contextual-chat/pkg/tracer"
)

const (
	queryPath         = "/agents/{agent_id}/query"
	retrievalInfoPath = "/agents/{agent_id}/query/{message_id}/retrieval/info"

	endpointQuery         = "query"
	endpointRetrievalInfo = "retrieval_info"
)

// Client 托管 Agent 客户端，实现 relay.AgentClient
type Client struct {
	http *req.Client
}

var _ relay.AgentClient = (*Client)(nil)

// NewClient 创建客户端
func NewClient(cfg *config.AgentConfig) *Client {
	c := req.C().
		SetBaseURL(cfg.BaseURL).
		SetUserAgent("contextual-chat").
		SetCommonHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.APIToken != "" {
		c.SetCommonBearerAuthToken(cfg.APIToken)
	}
	return &Client{http: c}
}

// Query 提交 query 负载
func (c *Client) Query(ctx context.Context, agentID string, payload []byte) (*relay.Response, error) {
	return c.do(ctx, endpointQuery, func(r *req.Request) (*req.Response, error) {
		return r.SetPathParam("agent_id", agentID).
			SetBodyBytes(payload).
			Post(queryPath)
	})
}

// RetrievalInfo 查询单个内容的检索元数据
func (c *Client) RetrievalInfo(ctx context.Context, lookup relay.Lookup) (*relay.Response, error) {
	return c.do(ctx, endpointRetrievalInfo, func(r *req.Request) (*req.Response, error) {
		return r.SetPathParams(map[string]string{
			"agent_id":   lookup.AgentID,
			"message_id": lookup.MessageID,
		}).
			SetQueryParam("content_ids", lookup.ContentID).
			Get(retrievalInfoPath)
	})
}

func (c *Client) do(ctx context.Context, endpoint string, send func(*req.Request) (*req.Response, error)) (*relay.Response, error) {
	ctx, span := tracer.Start(ctx, "agentapi."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	resp, err := send(c.http.R().SetContext(ctx))
	elapsed := time.Since(start)
	metrics.UpstreamCallDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())

	if err != nil {
		metrics.UpstreamCallTotal.WithLabelValues(endpoint, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		logger.Error(ctx, "agent call failed", err, "endpoint", endpoint, "latency_ms", elapsed.Milliseconds())
		return nil, err
	}

	body, err := resp.ToBytes()
	if err != nil {
		metrics.UpstreamCallTotal.WithLabelValues(endpoint, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, err
	}

	status := resp.StatusCode
	metrics.UpstreamCallTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.Int("http.response.body.size", len(body)),
	)
	logger.Info(ctx, "agent call completed",
		"endpoint", endpoint,
		"status", status,
		"latency_ms", elapsed.Milliseconds(),
	)

	return &relay.Response{StatusCode: status, Body: body}, nil
}
