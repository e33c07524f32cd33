package feature

import (
	"fmt"
	"strings"

	"github.com/rushteam/artrec/core"
)

// 列名前缀：三个标签空间互不冲突
const (
	PrefixTopic    = "topic_"
	PrefixSubtopic = "subtopic_"
	PrefixKeyword  = "keyword_"
)

// Matrix 是 "行 ID → 定长向量" 的只读快照，物品矩阵和画像表都用它表示。
//
// 所有行长度等于 len(Columns)；行 ID 经过 core.CanonicalID 规范化，按 ID 查找为 O(1)。
// 构建完成后不再修改，可被多个请求并发读取。
type Matrix struct {
	columns []string
	ids     []string
	rows    [][]float64
	index   map[string]int
}

// NewMatrix 创建一个指定列的空矩阵。
func NewMatrix(columns []string) *Matrix {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Matrix{
		columns: cols,
		index:   make(map[string]int),
	}
}

// Add 追加一行。ID 为空返回错误；ID 重复时保留第一行并返回 false。
func (m *Matrix) Add(id string, row []float64) (bool, error) {
	id = core.CanonicalID(id)
	if id == "" {
		return false, fmt.Errorf("feature: empty row id")
	}
	if len(row) != len(m.columns) {
		return false, fmt.Errorf("feature: row %s has %d values, want %d", id, len(row), len(m.columns))
	}
	if _, ok := m.index[id]; ok {
		return false, nil
	}
	m.index[id] = len(m.rows)
	m.ids = append(m.ids, id)
	m.rows = append(m.rows, row)
	return true, nil
}

// Columns 返回列名（调用方不要修改）。
func (m *Matrix) Columns() []string {
	if m == nil {
		return nil
	}
	return m.columns
}

// Width 返回列数。
func (m *Matrix) Width() int {
	if m == nil {
		return 0
	}
	return len(m.columns)
}

// Len 返回行数。
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// IDs 返回按插入顺序排列的行 ID。
func (m *Matrix) IDs() []string {
	if m == nil {
		return nil
	}
	return m.ids
}

// Row 按 ID 查找行，ID 会先规范化。
func (m *Matrix) Row(id string) ([]float64, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[core.CanonicalID(id)]
	if !ok {
		return nil, false
	}
	return m.rows[i], true
}

// At 返回第 i 行。
func (m *Matrix) At(i int) (string, []float64) {
	return m.ids[i], m.rows[i]
}

// ColumnIndex 返回列名所在下标，不存在时返回 -1。
func (m *Matrix) ColumnIndex(name string) int {
	for i, c := range m.Columns() {
		if c == name {
			return i
		}
	}
	return -1
}

// TopicColumns 返回 topic 列的 "小写列名 → 下标列表" 映射，
// 只有大小写不同的列（topic_AI 与 topic_ai）归入同一个 key。
func (m *Matrix) TopicColumns() map[string][]int {
	out := make(map[string][]int)
	for i, c := range m.Columns() {
		if strings.HasPrefix(c, PrefixTopic) {
			key := strings.ToLower(c)
			out[key] = append(out[key], i)
		}
	}
	return out
}
