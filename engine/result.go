package engine

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// 结果来源
const (
	SourcePersonalized = "personalized"
	SourceFallback     = "fallback"
)

// Recommendation 是返回给调用方的一条推荐。
type Recommendation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Score 个性化结果为余弦相似度，降级结果为启发式分数 [0,100]
	Score           float64 `json:"score"`
	MatchPercentage int     `json:"match_percentage"`
	Reason          string  `json:"reason,omitempty"`
}

// Result 是一次推荐请求的结构化结果；失败时 Success=false 且 Recommendations 为空数组。
type Result struct {
	Success         bool             `json:"success"`
	RequestID       string           `json:"request_id,omitempty"`
	UserID          string           `json:"user_id,omitempty"`
	Source          string           `json:"source,omitempty"`
	Error           string           `json:"error,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
	Total           int              `json:"total"`
}

// Encode 以单行 JSON 写出结果。
func (r *Result) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}

func failure(requestID, userID string, err error) *Result {
	return &Result{
		Success:         false,
		RequestID:       requestID,
		UserID:          userID,
		Error:           err.Error(),
		Recommendations: []Recommendation{},
	}
}

func success(requestID, userID, source string, recs []Recommendation) *Result {
	if recs == nil {
		recs = []Recommendation{}
	}
	return &Result{
		Success:         true,
		RequestID:       requestID,
		UserID:          userID,
		Source:          source,
		Recommendations: recs,
		Total:           len(recs),
	}
}

// labelString 读取物品上的字符串标签。
func labelString(it *core.Item, key string) string {
	lbl, ok := it.GetLabel(key)
	if !ok {
		return ""
	}
	return lbl.Value
}
