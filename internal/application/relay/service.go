// Package relay 将对话与检索信息请求转发给托管 Agent，并原样返回响应
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"contextual-chat/pkg/logger"

	apperrors "contextual-chat/pkg/errors"
)

// streamField 上游的流式开关字段
const streamField = "stream"

// Service 转发服务
type Service struct {
	client  AgentClient
	agentID string
	cache   ResponseCache
}

// NewService 创建转发服务，cache 可为 nil
func NewService(client AgentClient, agentID string, cache ResponseCache) *Service {
	return &Service{
		client:  client,
		agentID: agentID,
		cache:   cache,
	}
}

// AgentID 当前配置的 agent id
func (s *Service) AgentID() string {
	return s.agentID
}

// Chat 强制关闭流式后转发到 query 端点
func (s *Service) Chat(ctx context.Context, payload map[string]any) (*Response, error) {
	forwarded := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		forwarded[k] = v
	}
	forwarded[streamField] = false
	return s.query(ctx, forwarded)
}

// Query 原样转发 query 负载
func (s *Service) Query(ctx context.Context, payload map[string]any) (*Response, error) {
	return s.query(ctx, payload)
}

func (s *Service) query(ctx context.Context, payload map[string]any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "payload is not serialisable")
	}
	logger.Debug(ctx, "payload sent to agent", "agent_id", s.agentID, "payload", string(body))

	resp, err := s.client.Query(ctx, s.agentID, body)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if err := checkJSON(resp); err != nil {
		return nil, err
	}
	logger.Debug(ctx, "agent response", "status", resp.StatusCode, "body", string(resp.Body))
	return resp, nil
}

// RetrievalInfo 校验参数后转发检索信息查询，开启缓存时命中则直接返回
func (s *Service) RetrievalInfo(ctx context.Context, lookup Lookup) (*Response, error) {
	if err := lookup.Validate(); err != nil {
		return nil, err
	}
	if s.cache == nil {
		return s.fetchRetrievalInfo(ctx, lookup)
	}
	return s.cache.GetOrLoad(ctx, lookup.CacheKey(), func(ctx context.Context) (*Response, error) {
		return s.fetchRetrievalInfo(ctx, lookup)
	})
}

func (s *Service) fetchRetrievalInfo(ctx context.Context, lookup Lookup) (*Response, error) {
	resp, err := s.client.RetrievalInfo(ctx, lookup)
	if err != nil {
		return nil, apperrors.ErrUpstreamUnavailable.WithError(err)
	}
	if err := checkJSON(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// checkJSON 上游必须返回 JSON，否则无法原样转发
func checkJSON(resp *Response) error {
	if resp == nil {
		return apperrors.ErrUpstreamInvalidResponse.WithDetail("empty response")
	}
	if !json.Valid(resp.Body) {
		return apperrors.ErrUpstreamInvalidResponse.WithDetail(fmt.Sprintf("status %d with non-JSON body", resp.StatusCode))
	}
	return nil
}
