package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/John-Robertt/imdbtop/internal/app/present"
	"github.com/John-Robertt/imdbtop/internal/domain"
	"github.com/John-Robertt/imdbtop/internal/export"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.New("index.html").
	Funcs(template.FuncMap{"inc": func(n int) int { return n + 1 }}).
	ParseFS(templatesFS, "templates/index.html"))

type pageData struct {
	Query   present.Query
	Floor   int
	Ceil    int
	Error   string
	View    *present.View
	Columns []string
	Rows    [][]string
	CSVHref string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	floor, ceil := s.presenter.Bounds()
	s.render(w, http.StatusOK, pageData{Query: s.defaults, Floor: floor, Ceil: ceil})
}

// handleMovies 是“触发抓取”事件：只有提交表单才会抓取并渲染表格。
func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	floor, ceil := s.presenter.Bounds()
	q, err := s.parseQuery(r)
	if err != nil {
		s.render(w, http.StatusBadRequest, pageData{Query: q, Floor: floor, Ceil: ceil, Error: err.Error()})
		return
	}

	v, err := s.presenter.Present(r.Context(), q)
	if err != nil {
		s.render(w, statusFor(err), pageData{Query: q, Floor: floor, Ceil: ceil, Error: err.Error()})
		return
	}

	rows := make([][]string, 0, len(v.Records))
	for _, rec := range v.Records {
		rows = append(rows, rec.Row())
	}
	s.render(w, http.StatusOK, pageData{
		Query:   v.Query,
		Floor:   floor,
		Ceil:    ceil,
		View:    &v,
		Columns: domain.Columns,
		Rows:    rows,
		CSVHref: "/movies.csv?" + encodeQuery(v.Query),
	})
}

func (s *Server) handleMoviesCSV(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v, err := s.presenter.Snapshot(r.Context(), q)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	b, err := export.Encode(v.Records)
	if err != nil {
		log.Error().Err(err).Msg("CSV 编码失败")
		http.Error(w, "CSV 编码失败", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleMoviesJSON(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := s.presenter.Present(r.Context(), q)
	if err != nil {
		s.respondWithError(w, statusFor(err), err.Error())
		return
	}
	if v.Records == nil {
		v.Records = []domain.MovieRecord{}
	}
	s.respondWithJSON(w, http.StatusOK, v)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"memoized":    s.presenter.Memo.Len(),
		"default_url": s.defaults.URL,
	})
}

// parseQuery 从 URL 参数读取查询；缺省的参数取表单默认值。
func (s *Server) parseQuery(r *http.Request) (present.Query, error) {
	vals := r.URL.Query()
	q := s.defaults

	if vals.Has("url") {
		q.URL = strings.TrimSpace(vals.Get("url"))
	}
	if vals.Has("search") {
		q.Search = vals.Get("search")
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"year_min", &q.YearMin},
		{"year_max", &q.YearMax},
	} {
		raw := strings.TrimSpace(vals.Get(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, &present.QueryError{Field: f.name, Err: fmt.Errorf("不是整数：%q", raw)}
		}
		*f.dst = n
	}
	return q, nil
}

func encodeQuery(q present.Query) string {
	v := url.Values{}
	v.Set("url", q.URL)
	v.Set("year_min", strconv.Itoa(q.YearMin))
	v.Set("year_max", strconv.Itoa(q.YearMax))
	v.Set("search", q.Search)
	return v.Encode()
}

func statusFor(err error) int {
	var qe *present.QueryError
	if errors.As(err, &qe) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) render(w http.ResponseWriter, code int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("渲染页面失败")
	}
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("JSON 编码失败")
		http.Error(w, "JSON 编码失败", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
