package relay

import (
	"context"
	"net/url"
	"strings"

	apperrors "contextual-chat/pkg/errors"
)

// Response 上游原样响应
type Response struct {
	StatusCode int
	Body       []byte
}

// OK 是否为 2xx
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Lookup 检索信息查询参数
type Lookup struct {
	AgentID   string
	MessageID string
	ContentID string
}

// Validate 三个参数均必填
func (l Lookup) Validate() error {
	if strings.TrimSpace(l.AgentID) == "" ||
		strings.TrimSpace(l.MessageID) == "" ||
		strings.TrimSpace(l.ContentID) == "" {
		return apperrors.ErrMissingParameters
	}
	return nil
}

// CacheKey 缓存键（不含前缀）
// 各段先做转义，段内的 ":" 不会与分隔符混淆
func (l Lookup) CacheKey() string {
	return url.QueryEscape(l.AgentID) + ":" + url.QueryEscape(l.MessageID) + ":" + url.QueryEscape(l.ContentID)
}

// AgentClient 托管 Agent API 端口
type AgentClient interface {
	// Query 向 /agents/{agent_id}/query 提交原始 JSON 负载
	Query(ctx context.Context, agentID string, payload []byte) (*Response, error)
	// RetrievalInfo 查询 /agents/{agent_id}/query/{message_id}/retrieval/info
	RetrievalInfo(ctx context.Context, lookup Lookup) (*Response, error)
}

// ResponseCache 检索信息响应缓存端口
type ResponseCache interface {
	GetOrLoad(ctx context.Context, key string, load func(context.Context) (*Response, error)) (*Response, error)
}
