package provider

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

type stubProvider struct {
	name string

	fetchErr error
	parseErr error

	html    []byte
	records []domain.MovieRecord

	fetchCalls int
	parseCalls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) PageURL(baseURL string, page int) (string, error) {
	return baseURL + "?start=" + strconv.Itoa(page*25+1), nil
}

func (p *stubProvider) Fetch(ctx context.Context, pageURL string, c *http.Client) ([]byte, error) {
	p.fetchCalls++
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.html, nil
}

func (p *stubProvider) Parse(html []byte) ([]domain.MovieRecord, error) {
	p.parseCalls++
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.records, nil
}

func TestFetchParse_OK(t *testing.T) {
	p := &stubProvider{name: "IMDb", html: []byte("<html/>"), records: []domain.MovieRecord{{Title: domain.Text("T")}}}

	recs, html, err := FetchParse(context.Background(), p, "https://example.test/list?start=1", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(recs) != 1 || domain.Value(recs[0].Title) != "T" {
		t.Fatalf("records 不符合预期：%+v", recs)
	}
	if string(html) != "<html/>" {
		t.Fatalf("html 不符合预期：%q", string(html))
	}
	if p.fetchCalls != 1 || p.parseCalls != 1 {
		t.Fatalf("调用次数不符合预期：fetch=%d parse=%d", p.fetchCalls, p.parseCalls)
	}
}

func TestFetchParse_FetchFailSkipsParse(t *testing.T) {
	p := &stubProvider{name: "imdb", fetchErr: &HTTPStatusError{StatusCode: 503}}

	_, _, err := FetchParse(context.Background(), p, "https://example.test/list", nil)
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Stage != StageFetch || pe.Provider != "imdb" {
		t.Fatalf("期望 fetch 阶段的 *Error，实际：%T %v", err, err)
	}
	var he *HTTPStatusError
	if !errors.As(err, &he) || he.StatusCode != 503 {
		t.Fatalf("期望可 Unwrap 到 HTTPStatusError，实际：%v", err)
	}
	if p.parseCalls != 0 {
		t.Fatalf("fetch 失败后不应 parse")
	}
	if ErrorCode(err) != domain.ErrCodeFetchFailed {
		t.Fatalf("期望 %q，实际 %q", domain.ErrCodeFetchFailed, ErrorCode(err))
	}
	if ErrorMsg(err) != "HTTP 503" {
		t.Fatalf("error_msg 不符合预期：%q", ErrorMsg(err))
	}
}

func TestFetchParse_ParseFail(t *testing.T) {
	p := &stubProvider{name: "imdb", html: []byte("<bad/>"), parseErr: errors.New("parse fail")}

	_, html, err := FetchParse(context.Background(), p, "https://example.test/list", nil)
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if ErrorCode(err) != domain.ErrCodeParseFailed {
		t.Fatalf("期望 %q，实际 %q", domain.ErrCodeParseFailed, ErrorCode(err))
	}
	if string(html) != "<bad/>" {
		t.Fatalf("parse 失败时仍应返回原始 html")
	}
}

func TestFetchParse_EmptyURL(t *testing.T) {
	_, _, err := FetchParse(context.Background(), &stubProvider{name: "imdb"}, "  ", nil)
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestRegistry_LookupAndDuplicate(t *testing.T) {
	reg, err := NewRegistry(&stubProvider{name: "imdb"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := reg.Lookup(" IMDB "); err != nil {
		t.Fatalf("名称应大小写/空白不敏感：%v", err)
	}
	if _, err := reg.Lookup("tmdb"); err == nil {
		t.Fatalf("期望未注册错误，但得到 nil")
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "imdb" {
		t.Fatalf("Names 不符合预期：%v", names)
	}

	if _, err := NewRegistry(&stubProvider{name: "imdb"}, &stubProvider{name: "IMDb"}); err == nil {
		t.Fatalf("重复 provider 应报错")
	}
}
