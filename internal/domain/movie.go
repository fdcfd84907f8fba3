package domain

// MovieRecord 是列表页中一个条目解析得到的结构化行。
//
// 约束：
// - 所有字段均可为 nil（节点缺失即 nil，不是错误）
// - 非 nil 字段必须是已 trim 的非空文本
// - 记录创建后不再修改；需要变化时重新抓取
type MovieRecord struct {
	Title        *string `json:"title"`
	Year         *string `json:"year"`
	Runtime      *string `json:"runtime"`
	Restrictions *string `json:"restrictions"`
	Director     *string `json:"director"`
	Actors       *string `json:"actors"` // 最多 3 个演员，", " 连接
	Score        *string `json:"score"`
	Metacritic   *string `json:"metacritic"`
}

// Columns 是表格/CSV 的固定列顺序。
var Columns = []string{"Title", "Year", "Runtime", "Restrictions", "Director", "Actors", "Score", "Metacritic"}

// Row 按 Columns 顺序返回各字段文本；nil 字段为空串。
func (m MovieRecord) Row() []string {
	return []string{
		Value(m.Title),
		Value(m.Year),
		Value(m.Runtime),
		Value(m.Restrictions),
		Value(m.Director),
		Value(m.Actors),
		Value(m.Score),
		Value(m.Metacritic),
	}
}

// Text 把非空文本包装为可空字段；空串返回 nil。
func Text(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value 读取可空字段；nil 返回空串。
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
