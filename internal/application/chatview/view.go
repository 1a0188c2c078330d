// Package chatview 实现对话视图：消息列表、提交状态机、引用标记与截图面板
package chatview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"contextual-chat/internal/application/attribution"
	"contextual-chat/internal/application/relay"
	"contextual-chat/internal/domain/entity"
	apperrors "contextual-chat/pkg/errors"
	"contextual-chat/pkg/logger"
	"contextual-chat/pkg/metrics"
)

// 用户可见的提示文本
const (
	NoResponseText      = "[No response]"
	SubmissionErrorText = "Error contacting Contextual AI API."
	LookupFailedText    = "Failed to fetch content metadata."
)

// Gateway 视图依赖的转发能力，由 relay.Service 实现
type Gateway interface {
	Chat(ctx context.Context, payload map[string]any) (*relay.Response, error)
	RetrievalInfo(ctx context.Context, lookup relay.Lookup) (*relay.Response, error)
}

// Turn 一条消息及其引用标记
type Turn struct {
	Message   entity.ChatMessage
	MessageID string
	Markers   []entity.UniqueAttribution
}

// Options 视图选项
type Options struct {
	MinInputLength int
}

// View 单个浏览器会话的对话视图
type View struct {
	id      string
	agentID string
	gateway Gateway
	opts    Options

	mu          sync.Mutex
	turns       []Turn
	phase       Phase
	screenshot  Screenshot
	last        *entity.QueryResponse
	lastRequest uint64
	// generation 每次提交或重置时递增，用于丢弃过期的截图查询结果
	generation  uint64
	alert       string
}

// NewView 创建视图
func NewView(id, agentID string, gateway Gateway, opts Options) *View {
	return &View{
		id:         id,
		agentID:    agentID,
		gateway:    gateway,
		opts:       opts,
		phase:      Idle{},
		screenshot: NoScreenshot{},
	}
}

// ID 会话 ID
func (v *View) ID() string {
	return v.id
}

// Submit 提交用户输入并等待回答
//
// 非 Idle 状态下的提交被拒绝。上游或网络失败时追加一条错误消息，
// 会话保持可用，不返回错误。
func (v *View) Submit(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" || utf8.RuneCountInString(text) < v.opts.MinInputLength {
		return apperrors.ErrInvalidParam.WithDetail(
			fmt.Sprintf("Please enter at least %d characters.", v.opts.MinInputLength))
	}

	v.mu.Lock()
	if _, idle := v.phase.(Idle); !idle {
		v.mu.Unlock()
		metrics.ViewTransitions.WithLabelValues("rejected").Inc()
		return apperrors.ErrSubmissionInFlight
	}
	v.lastRequest++
	v.generation++
	requestID := v.lastRequest
	v.phase = Submitting{RequestID: requestID, Input: text}
	v.turns = append(v.turns, Turn{Message: entity.NewUserMessage(text)})
	v.screenshot = NoScreenshot{}
	payload := v.payloadLocked()
	v.phase = Awaiting{RequestID: requestID}
	v.mu.Unlock()

	resp, err := v.gateway.Chat(ctx, payload)

	v.mu.Lock()
	defer v.mu.Unlock()

	if awaiting, ok := v.phase.(Awaiting); !ok || awaiting.RequestID != requestID {
		metrics.ViewTransitions.WithLabelValues("stale").Inc()
		logger.Info(ctx, "discarding stale chat response", "request_id", requestID)
		return nil
	}
	v.phase = Idle{}

	if err != nil {
		metrics.ViewTransitions.WithLabelValues("failure").Inc()
		logger.Error(ctx, "chat submission failed", err)
		v.turns = append(v.turns, Turn{Message: entity.NewAssistantMessage(SubmissionErrorText)})
		return nil
	}

	reply := decodeQueryResponse(ctx, resp)
	content := NoResponseText
	if reply.Message != nil && reply.Message.Content != "" {
		content = reply.Message.Content
	}
	markers := attribution.Resolve(reply.Attributions, reply.RetrievalContents)
	metrics.AttributionMarkers.Observe(float64(len(markers)))
	metrics.ViewTransitions.WithLabelValues("success").Inc()

	v.last = &reply
	v.screenshot = NoScreenshot{}
	v.turns = append(v.turns, Turn{
		Message:   entity.NewAssistantMessage(content),
		MessageID: reply.MessageID,
		Markers:   markers,
	})
	return nil
}

// payloadLocked 以完整消息历史构造 query 负载
func (v *View) payloadLocked() map[string]any {
	messages := make([]any, 0, len(v.turns))
	for _, t := range v.turns {
		messages = append(messages, map[string]any{
			"content": t.Message.Content,
			"role":    string(t.Message.Role),
		})
	}
	return map[string]any{"messages": messages}
}

// decodeQueryResponse 非对象 JSON 视为无回答
//
// 整体解析失败时逐字段解析，单个字段格式错误只丢弃该字段。
func decodeQueryResponse(ctx context.Context, resp *relay.Response) entity.QueryResponse {
	var out entity.QueryResponse
	if resp == nil {
		return out
	}
	err := json.Unmarshal(resp.Body, &out)
	if err == nil {
		return out
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(resp.Body, &fields) != nil {
		return entity.QueryResponse{}
	}
	logger.Warn(ctx, "query response partially malformed", "error", err.Error())
	return entity.QueryResponse{
		Message:           decodeField[*entity.AssistantReply](fields, "message"),
		MessageID:         decodeField[string](fields, "message_id"),
		ConversationID:    decodeField[string](fields, "conversation_id"),
		Attributions:      decodeField[[]entity.Attribution](fields, "attributions"),
		RetrievalContents: decodeField[[]entity.RetrievalContent](fields, "retrieval_contents"),
	}
}

func decodeField[T any](fields map[string]json.RawMessage, name string) T {
	var v T
	raw, ok := fields[name]
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// ShowAttribution 激活引用标记，查询内容元数据并展示截图
//
// 使用包含该标记的最近一条回答的 message_id，找不到时使用最后一次响应的 message_id。
// 查询期间会话被重置或有新的提交时，结果被丢弃。
func (v *View) ShowAttribution(ctx context.Context, contentID string) error {
	v.mu.Lock()
	messageID := v.messageIDForLocked(contentID)
	agentID := v.agentID
	if messageID == "" || agentID == "" {
		v.alert = apperrors.ErrMissingMessageID.Message
		v.mu.Unlock()
		return apperrors.ErrMissingMessageID
	}
	generation := v.generation
	v.mu.Unlock()

	resp, err := v.gateway.RetrievalInfo(ctx, relay.Lookup{
		AgentID:   agentID,
		MessageID: messageID,
		ContentID: contentID,
	})

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, idle := v.phase.(Idle); !idle || v.generation != generation {
		metrics.ViewTransitions.WithLabelValues("stale").Inc()
		logger.Info(ctx, "discarding stale retrieval info", "content_id", contentID)
		return nil
	}

	var info entity.RetrievalInfo
	if err == nil {
		err = json.Unmarshal(resp.Body, &info)
	}
	if err != nil {
		v.screenshot = NoScreenshot{}
		v.alert = LookupFailedText
		logger.Error(ctx, "retrieval info lookup failed", err, "content_id", contentID)
		return apperrors.Wrap(err, apperrors.CodeUpstreamUnavailable, LookupFailedText)
	}

	image, ok := info.Screenshot()
	if !ok {
		v.screenshot = NoScreenshot{}
		v.alert = apperrors.ErrNoScreenshot.Message
		return apperrors.ErrNoScreenshot.WithDetail(contentID)
	}
	v.screenshot = ShowingScreenshot{ContentID: contentID, Base64: image}
	return nil
}

func (v *View) messageIDForLocked(contentID string) string {
	for i := len(v.turns) - 1; i >= 0; i-- {
		t := v.turns[i]
		if t.MessageID == "" {
			continue
		}
		for _, m := range t.Markers {
			if m.ContentID == contentID {
				return t.MessageID
			}
		}
	}
	if v.last != nil {
		return v.last.MessageID
	}
	return ""
}

// Reset 清空会话；进行中的请求返回后会被丢弃
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.turns = nil
	v.generation++
	v.phase = Idle{}
	v.screenshot = NoScreenshot{}
	v.last = nil
	v.alert = ""
}

// TakeAlert 取出并清除一次性提示
func (v *View) TakeAlert() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	alert := v.alert
	v.alert = ""
	return alert
}

// Snapshot 视图状态副本
type Snapshot struct {
	Turns      []Turn
	Phase      Phase
	Screenshot Screenshot
}

// Loading 是否有请求未完成
func (s Snapshot) Loading() bool {
	_, idle := s.Phase.(Idle)
	return !idle
}

// Snapshot 返回当前状态的副本
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	turns := make([]Turn, len(v.turns))
	copy(turns, v.turns)
	return Snapshot{
		Turns:      turns,
		Phase:      v.phase,
		Screenshot: v.screenshot,
	}
}
