package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

const (
	StageFetch = "fetch"
	StageParse = "parse"
)

// FetchParse 抓取单个列表页并解析为记录序列。
//
// 返回值：
// - records：页面内按出现顺序解析出的记录（可能为空，不是错误）
// - html：抓取到的原始 HTML（便于调试/落盘）
// - err：*Error，Stage 说明失败发生在 fetch 还是 parse
func FetchParse(ctx context.Context, p Provider, pageURL string, c *http.Client) (records []domain.MovieRecord, html []byte, err error) {
	if p == nil {
		return nil, nil, errors.New("provider 不能为空")
	}
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, nil, errors.New("pageURL 不能为空")
	}
	name := normName(p.Name())

	h, ferr := p.Fetch(ctx, pageURL, c)
	if ferr != nil {
		return nil, nil, &Error{Provider: name, Stage: StageFetch, URL: pageURL, Err: ferr}
	}

	recs, perr := p.Parse(h)
	if perr != nil {
		return nil, h, &Error{Provider: name, Stage: StageParse, URL: pageURL, Err: perr}
	}
	return recs, h, nil
}

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" 或 "parse"
	URL      string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s url=%s: %v", e.Provider, e.Stage, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode 把 err 映射为 report 中的 error_code；无法归类时按 fetch_failed 处理。
func ErrorCode(err error) string {
	var pe *Error
	if errors.As(err, &pe) && pe.Stage == StageParse {
		return domain.ErrCodeParseFailed
	}
	return domain.ErrCodeFetchFailed
}

// ErrorMsg 返回不带 provider/stage 前缀的错误信息（前缀信息已体现在 error_code 中）。
func ErrorMsg(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err.Error()
	}
	return err.Error()
}
