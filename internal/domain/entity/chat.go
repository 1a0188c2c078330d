// Package entity 定义对话领域实体
package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage 对话消息，创建后不再修改
type ChatMessage struct {
	Content string `json:"content"`
	Role    Role   `json:"role"`
}

// NewUserMessage 创建用户消息
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Content: content, Role: RoleUser}
}

// NewAssistantMessage 创建助手消息
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Content: content, Role: RoleAssistant}
}

// Attribution 上游给出的引用：支持某段回答的内容 ID 列表
type Attribution struct {
	ContentIDs []string `json:"content_ids,omitempty"`
}

// RetrievalContent 上游检索内容，包含展示序号
type RetrievalContent struct {
	ContentID string        `json:"content_id"`
	Number    DisplayNumber `json:"number"`
}

// UniqueAttribution 去重后的引用标记
type UniqueAttribution struct {
	ContentID string        `json:"content_id"`
	Number    DisplayNumber `json:"number"`
}

// DisplayNumber 引用标记上展示的序号，上游可能给出数字或字符串
// 原始 JSON 形态会被保留
type DisplayNumber struct {
	text    string
	numeric bool
}

// NumberLabel 以数字字面量构造序号
func NumberLabel(n int) DisplayNumber {
	return DisplayNumber{text: strconv.Itoa(n), numeric: true}
}

// TextLabel 以字符串构造序号
func TextLabel(s string) DisplayNumber {
	return DisplayNumber{text: s}
}

// String 返回展示文本
func (d DisplayNumber) String() string {
	return d.text
}

// IsNumeric 上游是否以数字形式给出
func (d DisplayNumber) IsNumeric() bool {
	return d.numeric
}

// IsZero 是否未赋值
func (d DisplayNumber) IsZero() bool {
	return d.text == "" && !d.numeric
}

// MarshalJSON 按原始形态输出
func (d DisplayNumber) MarshalJSON() ([]byte, error) {
	if d.numeric {
		return []byte(d.text), nil
	}
	return json.Marshal(d.text)
}

// UnmarshalJSON 接受数字或字符串，null 视为未赋值
func (d *DisplayNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*d = DisplayNumber{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = TextLabel(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("display number must be a number or string: %w", err)
		}
		*d = DisplayNumber{text: n.String(), numeric: true}
		return nil
	}
}

// AssistantReply 上游 query 响应中的回答
type AssistantReply struct {
	Content string `json:"content"`
	Role    string `json:"role,omitempty"`
}

// QueryResponse 上游 query 响应中对话视图关心的字段
type QueryResponse struct {
	Message           *AssistantReply    `json:"message,omitempty"`
	MessageID         string             `json:"message_id,omitempty"`
	ConversationID    string             `json:"conversation_id,omitempty"`
	Attributions      []Attribution      `json:"attributions,omitempty"`
	RetrievalContents []RetrievalContent `json:"retrieval_contents,omitempty"`
}

// ContentMetadata 检索内容元数据，可能携带 base64 页面截图
type ContentMetadata struct {
	ContentID        string `json:"content_id,omitempty"`
	PageImg          string `json:"page_img,omitempty"`
	ScreenshotBase64 string `json:"screenshot_base64,omitempty"`
}

// Screenshot 返回嵌入的图片，page_img 优先
func (m ContentMetadata) Screenshot() (string, bool) {
	if m.PageImg != "" {
		return m.PageImg, true
	}
	if m.ScreenshotBase64 != "" {
		return m.ScreenshotBase64, true
	}
	return "", false
}

// RetrievalInfo 上游 retrieval/info 响应
type RetrievalInfo struct {
	ContentMetadatas []ContentMetadata `json:"content_metadatas"`
}

// Screenshot 取第一条元数据中的图片
func (r RetrievalInfo) Screenshot() (string, bool) {
	if len(r.ContentMetadatas) == 0 {
		return "", false
	}
	return r.ContentMetadatas[0].Screenshot()
}
