package imdb

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

// 选择器只依赖 IMDb 的语义 class（ipc-*/dli-*），不依赖 sc-xxxx 这类构建期生成的哈希 class。
const (
	itemSelector         = "li.ipc-metadata-list-summary-item"
	titleSelector        = "h3.ipc-title__text"
	metadataSelector     = "div.dli-title-metadata"
	metadataItemSelector = "span.dli-title-metadata-item"
	castSelector         = "a.dli-cast-item"
	directorSelector     = "a.dli-director-item"
	scoreSelector        = "span.metacritic-score-box"
	metacriticSelector   = "span.metacritic-score-label"

	maxActors = 3
)

// rule 描述一个字段的提取方式：在 Scope（为空则是条目本身）内找 Selector，
// Index>=0 时按位置取第 Index 个，否则取第一个。
//
// 每条规则独立执行：某条规则失效只会让对应字段为 nil，不影响其它字段。
type rule struct {
	Scope    string
	Selector string
	Index    int
}

func (r rule) apply(item *goquery.Selection) *string {
	s := item
	if r.Scope != "" {
		s = item.Find(r.Scope).First()
		if s.Length() == 0 {
			return nil
		}
	}
	nodes := s.Find(r.Selector)
	if r.Index >= nodes.Length() {
		return nil
	}
	return nodeText(nodes.Eq(r.Index))
}

// metadata 块内的三个 span 按位置解释为 (year, runtime, restriction)。
var (
	titleRule        = rule{Selector: titleSelector}
	yearRule         = rule{Scope: metadataSelector, Selector: metadataItemSelector, Index: 0}
	runtimeRule      = rule{Scope: metadataSelector, Selector: metadataItemSelector, Index: 1}
	restrictionsRule = rule{Scope: metadataSelector, Selector: metadataItemSelector, Index: 2}
	directorRule     = rule{Selector: directorSelector}
	scoreRule        = rule{Selector: scoreSelector}
	metacriticRule   = rule{Selector: metacriticSelector}
)

// extractItem 把一个列表条目解析为 MovieRecord。任何节点缺失都只产生 nil 字段。
func extractItem(item *goquery.Selection) domain.MovieRecord {
	return domain.MovieRecord{
		Title:        titleRule.apply(item),
		Year:         yearRule.apply(item),
		Runtime:      runtimeRule.apply(item),
		Restrictions: restrictionsRule.apply(item),
		Director:     directorRule.apply(item),
		Actors:       actors(item),
		Score:        scoreRule.apply(item),
		Metacritic:   metacriticRule.apply(item),
	}
}

func actors(item *goquery.Selection) *string {
	names := make([]string, 0, maxActors)
	item.Find(castSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(names) >= maxActors {
			return false
		}
		if s := normSpace(a.Text()); s != "" {
			names = append(names, s)
		}
		return true
	})
	return domain.Text(strings.Join(names, ", "))
}

func nodeText(s *goquery.Selection) *string {
	return domain.Text(normSpace(s.Text()))
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
