// Package imdbtest 生成 IMDb 列表页结构的 HTML，供其它包的测试搭建假站点。
package imdbtest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Item 是一个列表条目；空字段不输出对应节点。
type Item struct {
	Title      string
	Year       string
	Runtime    string
	Rating     string
	Director   string
	Actors     []string
	Score      string
	Metacritic string
}

// Page 按 IMDb 列表页的 class 结构渲染 items。
func Page(items []Item) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><body><ul class="ipc-metadata-list">`)
	for _, it := range items {
		b.WriteString(`<li class="ipc-metadata-list-summary-item"><div class="ipc-metadata-list-summary-item__c">`)
		if it.Title != "" {
			fmt.Fprintf(&b, `<h3 class="ipc-title__text">%s</h3>`, html.EscapeString(it.Title))
		}
		meta := nonEmpty(it.Year, it.Runtime, it.Rating)
		if len(meta) > 0 {
			b.WriteString(`<div class="sc-5bc66c50-5 hVarDB dli-title-metadata">`)
			for _, m := range meta {
				fmt.Fprintf(&b, `<span class="sc-5bc66c50-6 OOdsw dli-title-metadata-item">%s</span>`, html.EscapeString(m))
			}
			b.WriteString(`</div>`)
		}
		if it.Director != "" {
			fmt.Fprintf(&b, `<a class="ipc-link ipc-link--base dli-director-item">%s</a>`, html.EscapeString(it.Director))
		}
		for _, a := range it.Actors {
			fmt.Fprintf(&b, `<a class="ipc-link ipc-link--base dli-cast-item">%s</a>`, html.EscapeString(a))
		}
		if it.Score != "" {
			fmt.Fprintf(&b, `<span class="sc-b0901df4-0 bXIOoL metacritic-score-box">%s</span>`, html.EscapeString(it.Score))
		}
		if it.Metacritic != "" {
			fmt.Fprintf(&b, `<span class="metacritic-score-label">%s</span>`, html.EscapeString(it.Metacritic))
		}
		b.WriteString(`</div></li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

// Site 是一个按 start 参数分页的假列表站点。
type Site struct {
	*httptest.Server

	// Pages 以 start 参数值为 key（1、26、...）；未命中的页返回空列表。
	Pages map[int][]Item
	failStart map[int]bool

	mu       sync.Mutex
	requests int
	agents   []string
}

// NewSite 启动假站点；调用方负责 Close。
func NewSite(pages map[int][]Item) *Site {
	s := &Site{Pages: pages, failStart: map[int]bool{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))

	s.mu.Lock()
	s.requests++
	s.agents = append(s.agents, r.Header.Get("User-Agent"))
	fail := s.failStart[start]
	items := s.Pages[start]
	s.mu.Unlock()

	if fail {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(Page(items)))
}

// Fail 让 start 对应的页返回 503。
func (s *Site) Fail(start int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStart[start] = true
}

// Recover 撤销 Fail。
func (s *Site) Recover(start int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failStart, start)
}

// Requests 返回站点收到的请求数。
func (s *Site) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// UserAgents 返回每个请求携带的 User-Agent。
func (s *Site) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.agents...)
}

// ListURL 返回假站点上的列表地址。
func (s *Site) ListURL() string { return s.URL + "/list/ls000000001/" }

// Numbered 生成 n 个标题为 prefix+序号、年份依次取 years 的条目（years 为空时固定 2010）。
func Numbered(prefix string, n int, years ...string) []Item {
	if len(years) == 0 {
		years = []string{"2010"}
	}
	out := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		it := Item{
			Title:    fmt.Sprintf("%s %d", prefix, i+1),
			Runtime:  "2h 1m",
			Rating:   "PG-13",
			Director: "Director " + strconv.Itoa(i+1),
			Actors:   []string{"Actor A", "Actor B"},
			Year:     years[i%len(years)],
		}
		out = append(out, it)
	}
	return out
}

func nonEmpty(xs ...string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
