package present

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/imdbtop/internal/app/filter"
	"github.com/John-Robertt/imdbtop/internal/app/run"
	"github.com/John-Robertt/imdbtop/internal/config"
	"github.com/John-Robertt/imdbtop/internal/domain"
	"github.com/John-Robertt/imdbtop/internal/infra/cache"
	"github.com/John-Robertt/imdbtop/internal/monitoring"
	"github.com/John-Robertt/imdbtop/internal/provider"
)

// Query 是一次展示请求：列表地址 + 年份区间 + 搜索词。
type Query struct {
	URL     string `json:"url"`
	YearMin int    `json:"year_min"`
	YearMax int    `json:"year_max"`
	Search  string `json:"search"`
}

// View 是一次展示的结果。
type View struct {
	Query   Query                `json:"query"`
	Records []domain.MovieRecord `json:"records"` // 筛选后
	Total   int                  `json:"total"`   // 去重后、筛选前
	Report  domain.ScrapeReport  `json:"report"`
	Cached  bool                 `json:"cached"`
}

// QueryError 表示展示请求本身不合法（不会触发抓取）。
type QueryError struct {
	Field string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("参数 %s 无效：%v", e.Field, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Presenter 把“按 URL 记忆的抓取”与“年份/搜索筛选”组合起来，供 CLI 和 web 共用。
//
// 同一 URL 的并发抓取会被合并为一次；只有全部页成功的结果才写入 Memo，
// 部分失败的结果照常返回，但下次触发会重新抓取。
type Presenter struct {
	Provider provider.Provider
	Client   *http.Client
	Memo     *cache.Memo

	// Partial 保存每个 URL 最近一次部分失败的结果，只供 Snapshot 使用。
	// 同一 URL 之后抓取完整时会被清掉。
	Partial *cache.Memo
	Pages    int

	// YearFloor/YearCeil 是允许选择的年份范围；为 0 时使用 2001..2024。
	YearFloor int
	YearCeil  int

	Observer run.Observer
	Metrics  *monitoring.Metrics

	flight singleflight.Group
}

// Scrape 返回 url 的去重结果；cached 表示结果来自 Memo。
func (p *Presenter) Scrape(ctx context.Context, url string) (domain.ScrapeReport, bool, error) {
	url = strings.TrimSpace(url)
	if err := config.ValidateListURL(url); err != nil {
		return domain.ScrapeReport{}, false, &QueryError{Field: "url", Err: err}
	}
	if p.Provider == nil {
		return domain.ScrapeReport{}, false, fmt.Errorf("presenter 未配置 provider")
	}

	if rr, ok := p.Memo.Get(url); ok {
		p.Metrics.IncScrape(true)
		log.Debug().Str("url", url).Int("unique", rr.Summary.Unique).Msg("命中 memo")
		return rr, true, nil
	}

	// 合并后的抓取不跟随任一调用方的取消：一个请求断开不应让同 URL 的其它请求拿到失败结果。
	// 单次抓取仍受 client 超时约束。
	runCtx := context.WithoutCancel(ctx)
	ch := p.flight.DoChan(url, func() (any, error) {
		started := time.Now()
		rr := run.ExecuteWithObserver(runCtx, run.Request{URL: url, Pages: p.Pages}, p.Provider, p.Client, p.observer())
		if rr.Complete() {
			p.Memo.Put(url, rr)
			p.Partial.Remove(url)
		} else {
			p.Partial.Put(url, rr)
		}
		log.Info().
			Str("url", url).
			Int("pages", rr.Summary.Pages).
			Int("failed", rr.Summary.Failed).
			Int("extracted", rr.Summary.Extracted).
			Int("unique", rr.Summary.Unique).
			Dur("took", time.Since(started)).
			Msg("抓取完成")
		return rr, nil
	})
	p.Metrics.IncScrape(false)

	select {
	case res := <-ch:
		return res.Val.(domain.ScrapeReport), false, nil
	case <-ctx.Done():
		return domain.ScrapeReport{}, false, ctx.Err()
	}
}

// Present 校验 q，抓取（或命中 memo）后按年份区间和搜索词筛选。
func (p *Presenter) Present(ctx context.Context, q Query) (View, error) {
	q, err := p.Normalize(q)
	if err != nil {
		return View{}, err
	}

	rr, cached, err := p.Scrape(ctx, q.URL)
	if err != nil {
		return View{}, err
	}
	return p.view(q, rr, cached), nil
}

// Snapshot 与 Present 相同，但优先复用该 URL 最近一次部分失败的结果，不再重新抓取。
//
// 页面上的 CSV 下载走这里，保证下载内容与刚展示的表格一致。
func (p *Presenter) Snapshot(ctx context.Context, q Query) (View, error) {
	q, err := p.Normalize(q)
	if err != nil {
		return View{}, err
	}
	if _, ok := p.Memo.Get(q.URL); !ok {
		if rr, ok := p.Partial.Get(q.URL); ok {
			log.Debug().Str("url", q.URL).Int("failed", rr.Summary.Failed).Msg("复用部分结果")
			return p.view(q, rr, true), nil
		}
	}
	return p.Present(ctx, q)
}

func (p *Presenter) view(q Query, rr domain.ScrapeReport, cached bool) View {
	records := filter.Apply(rr.Records, filter.Criteria{
		YearMin: q.YearMin,
		YearMax: q.YearMax,
		Search:  q.Search,
	})
	return View{
		Query:   q,
		Records: records,
		Total:   len(rr.Records),
		Report:  rr,
		Cached:  cached,
	}
}

// Normalize 规范化 q：年份为 0 时取边界值，越界时钳制到 [YearFloor, YearCeil]。
func (p *Presenter) Normalize(q Query) (Query, error) {
	q.URL = strings.TrimSpace(q.URL)
	if err := config.ValidateListURL(q.URL); err != nil {
		return Query{}, &QueryError{Field: "url", Err: err}
	}

	floor, ceil := p.Bounds()
	if q.YearMin == 0 {
		q.YearMin = floor
	}
	if q.YearMax == 0 {
		q.YearMax = ceil
	}
	if q.YearMin > q.YearMax {
		return Query{}, &QueryError{Field: "year", Err: fmt.Errorf("起始年份 %d 大于结束年份 %d", q.YearMin, q.YearMax)}
	}
	q.YearMin = clamp(q.YearMin, floor, ceil)
	q.YearMax = clamp(q.YearMax, floor, ceil)
	return q, nil
}

// Bounds 返回年份可选范围。
func (p *Presenter) Bounds() (floor, ceil int) {
	floor, ceil = p.YearFloor, p.YearCeil
	if floor == 0 {
		floor = config.DefaultYearFloor
	}
	if ceil == 0 {
		ceil = config.DefaultYearCeil
	}
	if floor > ceil {
		floor, ceil = ceil, floor
	}
	return floor, ceil
}

func (p *Presenter) observer() run.Observer {
	var obs run.Observers
	if p.Observer != nil {
		obs = append(obs, p.Observer)
	}
	if p.Metrics != nil {
		obs = append(obs, p.Metrics)
	}
	if len(obs) == 0 {
		return nil
	}
	return obs
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
