package web

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/imdbtop/internal/app/present"
	"github.com/John-Robertt/imdbtop/internal/domain"
	"github.com/John-Robertt/imdbtop/internal/export"
	"github.com/John-Robertt/imdbtop/internal/infra/cache"
	"github.com/John-Robertt/imdbtop/internal/monitoring"
	"github.com/John-Robertt/imdbtop/internal/provider/imdb"
	"github.com/John-Robertt/imdbtop/internal/provider/imdb/imdbtest"
)

type fixture struct {
	site *imdbtest.Site
	srv  *httptest.Server
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	site := imdbtest.NewSite(map[int][]imdbtest.Item{
		1: {
			{Title: "1. Tom & Jerry", Year: "2021", Runtime: "1h 41m", Rating: "PG", Director: "Tim Story", Actors: []string{"Chloë Grace Moretz"}},
			{Title: "2. Inception", Year: "2010", Runtime: "2h 28m", Rating: "PG-13", Director: "Christopher Nolan", Actors: []string{"Leonardo DiCaprio", "Joseph Gordon-Levitt"}, Score: "74", Metacritic: "Metascore"},
		},
		26: imdbtest.Numbered("Beta", 3, "2022"),
	})
	t.Cleanup(site.Close)

	memo, err := cache.NewMemo(4)
	require.NoError(t, err)
	partial, err := cache.NewMemo(4)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	p := &present.Presenter{
		Provider: imdb.Provider{PageSize: 25},
		Client:   site.Client(),
		Memo:     memo,
		Partial:  partial,
		Pages:    2,
		Metrics:  m,
	}
	s := NewServer(p, present.Query{URL: site.ListURL(), YearMin: 2001, YearMax: 2024}, m, reg)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return fixture{site: site, srv: srv}
}

func (f fixture) get(t *testing.T, path string, q url.Values) (*http.Response, string) {
	t.Helper()
	u := f.srv.URL + path
	if q != nil {
		u += "?" + q.Encode()
	}
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestIndex_DoesNotScrape(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `<form method="get" action="/movies">`)
	require.Contains(t, body, f.site.ListURL())
	require.NotContains(t, body, `<table id="movies">`)
	require.Equal(t, 0, f.site.Requests(), "打开首页不应触发抓取")
}

func TestMovies_RendersFilteredTable(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/movies", url.Values{"year_min": {"2020"}, "year_max": {"2024"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `<table id="movies">`)
	require.Contains(t, body, "共 5 部电影，筛选后 4 部")
	require.Contains(t, body, "1. Tom &amp; Jerry")
	require.NotContains(t, body, "2. Inception")
	require.Contains(t, body, "<th>Metacritic</th>")
	require.Equal(t, 2, f.site.Requests())

	// 只改搜索词：命中缓存。
	_, body = f.get(t, "/movies", url.Values{"search": {"NOLAN"}})
	require.Contains(t, body, "筛选后 1 部（缓存）")
	require.Contains(t, body, "2. Inception")
	require.Equal(t, 2, f.site.Requests())
}

func TestMovies_EmptyResultIsEmptyTable(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/movies", url.Values{"search": {"zzz-no-match"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `<table id="movies">`)
	require.Contains(t, body, "筛选后 0 部")
}

func TestMovies_BadQuery(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/movies", url.Values{"year_min": {"abc"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "year_min")

	resp, _ = f.get(t, "/movies", url.Values{"year_min": {"2024"}, "year_max": {"2001"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.get(t, "/movies", url.Values{"url": {"ftp://example.test/"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, 0, f.site.Requests())
}

func TestMovies_ShowsFailedPage(t *testing.T) {
	f := newFixture(t)
	f.site.Fail(26)

	resp, body := f.get(t, "/movies", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "第 2 页抓取失败（fetch_failed）")
	require.Contains(t, body, "共 2 部电影")
}

func TestMoviesCSV_Download(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/movies.csv", url.Values{"year_min": {"2020"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="imdb_movies.csv"`, resp.Header.Get("Content-Disposition"))

	rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+4)
	require.Equal(t, domain.Columns, rows[0])
	require.Equal(t, "1. Tom & Jerry", rows[1][0])
	require.Equal(t, "Chloë Grace Moretz", rows[1][5])
}

func TestMoviesCSV_MatchesPartialTable(t *testing.T) {
	f := newFixture(t)
	f.site.Fail(26)

	resp, body := f.get(t, "/movies", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "第 2 页抓取失败（fetch_failed）")
	require.Equal(t, 2, f.site.Requests())

	// 站点恢复后，下载仍应是页面上展示的那份部分结果，而不是重新抓取。
	f.site.Recover(26)
	resp, body = f.get(t, "/movies.csv", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+2)
	require.Equal(t, 2, f.site.Requests())

	// 再次触发抓取会重试，成功后下载拿到完整结果。
	resp, _ = f.get(t, "/movies", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 4, f.site.Requests())
	_, body = f.get(t, "/movies.csv", nil)
	rows, err = csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+5)
	require.Equal(t, 4, f.site.Requests())
}

func TestAPIMovies_JSON(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/api/movies", url.Values{"search": {"beta"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var v struct {
		Total   int                  `json:"total"`
		Records []domain.MovieRecord `json:"records"`
		Query   present.Query        `json:"query"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	require.Equal(t, 5, v.Total)
	require.Len(t, v.Records, 3)
	require.Equal(t, 2001, v.Query.YearMin)

	resp, body = f.get(t, "/api/movies", url.Values{"year_max": {"x"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, `"error"`)
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `"status":"ok"`)

	_, _ = f.get(t, "/movies", nil)

	resp, body = f.get(t, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `imdbtop_scrapes_total{cache="miss"} 1`)
	require.Contains(t, body, `imdbtop_http_requests_total{route="/healthz",status="200"} 1`)
	require.Contains(t, body, `imdbtop_pages_total{error_code="",status="ok"} 2`)
}
