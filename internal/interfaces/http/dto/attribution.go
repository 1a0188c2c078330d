package dto

import "contextual-chat/internal/domain/entity"

// ResolveAttributionsRequest 引用解析请求，字段与上游 query 响应一致
type ResolveAttributionsRequest struct {
	Attributions      []entity.Attribution      `json:"attributions"`
	RetrievalContents []entity.RetrievalContent `json:"retrieval_contents"`
}

// ResolveAttributionsResponse 引用解析结果
type ResolveAttributionsResponse struct {
	Markers []entity.UniqueAttribution `json:"markers"`
}
