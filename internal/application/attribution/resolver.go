// Package attribution 将上游引用数据转换为可点击的引用标记
package attribution

import (
	"contextual-chat/internal/domain/entity"
)

// Resolve 按首次出现顺序去重引用的内容 ID，并查找展示序号
//
// 遍历顺序为 attributions 的顺序，其次为每条 attribution 内 content_ids 的顺序。
// 序号取 retrievalContents 中第一条 content_id 匹配项的 number；
// 找不到匹配时以内容 ID 本身作为标签。输入不会被修改。
func Resolve(attributions []entity.Attribution, retrievalContents []entity.RetrievalContent) []entity.UniqueAttribution {
	out := make([]entity.UniqueAttribution, 0)
	if len(attributions) == 0 {
		return out
	}

	numbers := indexNumbers(retrievalContents)
	seen := make(map[string]struct{})
	for _, attr := range attributions {
		for _, cid := range attr.ContentIDs {
			if _, ok := seen[cid]; ok {
				continue
			}
			seen[cid] = struct{}{}

			number, ok := numbers[cid]
			if !ok {
				number = entity.TextLabel(cid)
			}
			out = append(out, entity.UniqueAttribution{ContentID: cid, Number: number})
		}
	}
	return out
}

// indexNumbers 建立 content_id -> number 索引，重复 ID 保留最早一条
func indexNumbers(contents []entity.RetrievalContent) map[string]entity.DisplayNumber {
	idx := make(map[string]entity.DisplayNumber, len(contents))
	for _, rc := range contents {
		if _, ok := idx[rc.ContentID]; !ok {
			idx[rc.ContentID] = rc.Number
		}
	}
	return idx
}
