package run

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/John-Robertt/imdbtop/internal/app"
	"github.com/John-Robertt/imdbtop/internal/domain"
	"github.com/John-Robertt/imdbtop/internal/provider"
)

// DefaultPages 是一次抓取的固定页数。
const DefaultPages = 2

// Request 描述一次抓取：列表地址 + 页数。
type Request struct {
	URL   string
	Pages int
}

// Execute 按页顺序抓取并解析列表，返回去重后的记录与逐页状态。
//
// 单页失败（网络错误、非 2xx、解析失败）不会中断整个抓取：该页记为 failed、贡献 0 条记录，
// 其余页照常进行。
func Execute(ctx context.Context, req Request, p provider.Provider, c *http.Client) domain.ScrapeReport {
	return ExecuteWithObserver(ctx, req, p, c, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, req Request, p provider.Provider, c *http.Client, obs Observer) domain.ScrapeReport {
	req.URL = strings.TrimSpace(req.URL)
	if req.Pages <= 0 {
		req.Pages = DefaultPages
	}

	if obs != nil {
		obs.OnStart(req)
	}

	rr := domain.ScrapeReport{
		URL:       req.URL,
		StartedAt: time.Now().UTC(),
		Pages:     make([]domain.PageResult, 0, req.Pages),
	}

	all := make([]domain.MovieRecord, 0, req.Pages*32)
	for page := 0; page < req.Pages; page++ {
		started := time.Now()
		recs, res := fetchPage(ctx, req.URL, page, p, c)
		dur := time.Since(started)

		if res.Status == domain.PageStatusFailed {
			log.Warn().
				Int("page", page).
				Str("url", res.URL).
				Str("error_code", res.ErrorCode).
				Str("error", res.ErrorMsg).
				Msg("列表页抓取失败，按 0 条处理")
		} else {
			log.Debug().Int("page", page).Str("url", res.URL).Int("items", res.Items).Dur("took", dur).Msg("列表页完成")
		}

		all = append(all, recs...)
		rr.Pages = append(rr.Pages, res)
		if obs != nil {
			obs.OnPageDone(page+1, req.Pages, res, dur)
		}
	}

	dedupeStarted := time.Now()
	rr.Records = app.DedupeByTitle(all)
	if obs != nil {
		obs.OnPhaseDone("dedupe", map[string]any{
			"extracted": len(all),
			"unique":    len(rr.Records),
		}, time.Since(dedupeStarted))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func fetchPage(ctx context.Context, baseURL string, page int, p provider.Provider, c *http.Client) ([]domain.MovieRecord, domain.PageResult) {
	res := domain.PageResult{Page: page, Status: domain.PageStatusOK}

	pageURL, err := p.PageURL(baseURL, page)
	if err != nil {
		res.Status = domain.PageStatusFailed
		res.ErrorCode = domain.ErrCodeInvalidURL
		res.ErrorMsg = fmt.Sprintf("列表地址无效：%v", err)
		return nil, res
	}
	res.URL = pageURL

	recs, _, err := provider.FetchParse(ctx, p, pageURL, c)
	if err != nil {
		res.Status = domain.PageStatusFailed
		res.ErrorCode = provider.ErrorCode(err)
		res.ErrorMsg = provider.ErrorMsg(err)
		return nil, res
	}
	res.Items = len(recs)
	return recs, res
}
