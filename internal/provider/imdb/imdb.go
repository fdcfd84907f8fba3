package imdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/imdbtop/internal/domain"
	providerx "github.com/John-Robertt/imdbtop/internal/provider"
)

const (
	// DefaultListURL 是默认抓取的 IMDb 片单。
	DefaultListURL = "https://www.imdb.com/list/ls055386972/"
	// DefaultPageSize 是 IMDb 列表页每页条目数。
	DefaultPageSize = 25

	maxBodyBytes = 16 << 20
)

// Provider 实现 IMDb 列表页的抓取与 HTML 解析。
//
// 约束：
// - 分页通过 start=<PageSize*page+1> 查询参数实现（从 1 开始计数）
// - Fetch 不做缓存/重试（由上层统一控制）
// - Parse 必须是纯函数（只依赖输入 html）
type Provider struct {
	// PageSize 为 0 时使用 DefaultPageSize。
	PageSize int
}

func (Provider) Name() string { return "imdb" }

func (p Provider) pageSize() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// PageURL 在 baseURL 上设置 start 参数；baseURL 已有的其它查询参数保留。
func (p Provider) PageURL(baseURL string, page int) (string, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return "", errors.New("baseURL 不能为空")
	}
	if page < 0 {
		return "", fmt.Errorf("page 不能为负数：%d", page)
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("baseURL 必须是 http/https：%q", baseURL)
	}
	q := u.Query()
	q.Set("start", strconv.Itoa(p.pageSize()*page+1))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch 对列表页发起一次 GET。User-Agent 由 httpx.Transport 统一注入。
func (Provider) Fetch(ctx context.Context, pageURL string, c *http.Client) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providerx.HTTPStatusError{URL: pageURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// Parse 找出页面中所有列表条目，逐条独立提取字段。
// 找不到任何条目不是错误：返回空切片（可能是页码越界或页面结构变化）。
func (Provider) Parse(html []byte) ([]domain.MovieRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	items := doc.Find(itemSelector)
	out := make([]domain.MovieRecord, 0, items.Length())
	items.Each(func(_ int, s *goquery.Selection) {
		out = append(out, extractItem(s))
	})
	return out, nil
}
