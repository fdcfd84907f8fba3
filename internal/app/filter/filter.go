package filter

import (
	"strconv"
	"strings"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

// Criteria 是用户在界面上给出的筛选条件。
//
// - YearMin/YearMax：闭区间
// - Search：为空时不做文本筛选
type Criteria struct {
	YearMin int
	YearMax int
	Search  string
}

// Apply 先按年份、再按搜索词筛选，返回新切片（顺序保持不变）。
func Apply(records []domain.MovieRecord, c Criteria) []domain.MovieRecord {
	term := strings.ToLower(c.Search)
	out := make([]domain.MovieRecord, 0, len(records))
	for _, r := range records {
		if !InYearRange(r, c.YearMin, c.YearMax) {
			continue
		}
		if term != "" && !matchesLower(r, term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// InYearRange 要求 Year 是纯 ASCII 数字串且落在 [min, max]；nil 或非数字一律排除。
func InYearRange(r domain.MovieRecord, min, max int) bool {
	y, ok := ParseYear(r.Year)
	if !ok {
		return false
	}
	return min <= y && y <= max
}

// ParseYear 解析非负整数年份；"2019–2023"、"abcd"、空串都不合法。
func ParseYear(p *string) (int, bool) {
	if p == nil || *p == "" {
		return 0, false
	}
	for i := 0; i < len(*p); i++ {
		if (*p)[i] < '0' || (*p)[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(*p)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Matches 判断 term（大小写不敏感）是否出现在 Title、Actors 或 Director 中；nil 字段按空串处理。
func Matches(r domain.MovieRecord, term string) bool {
	if term == "" {
		return true
	}
	return matchesLower(r, strings.ToLower(term))
}

func matchesLower(r domain.MovieRecord, term string) bool {
	for _, f := range []*string{r.Title, r.Actors, r.Director} {
		if strings.Contains(strings.ToLower(domain.Value(f)), term) {
			return true
		}
	}
	return false
}
