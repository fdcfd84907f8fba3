package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/John-Robertt/imdbtop/internal/app/present"
	"github.com/John-Robertt/imdbtop/internal/monitoring"
)

// Server 是 web 展示端，持有 presenter 和指标。
type Server struct {
	presenter  *present.Presenter
	defaults   present.Query
	metrics    *monitoring.Metrics
	gatherer   prometheus.Gatherer
	router     http.Handler
	httpServer *http.Server
}

// NewServer 创建 web 服务；defaults 是表单初始值（不会自动触发抓取）。
// gatherer 为 nil 时 /metrics 使用默认 registry。
func NewServer(p *present.Presenter, defaults present.Query, m *monitoring.Metrics, g prometheus.Gatherer) *Server {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	s := &Server{
		presenter: p,
		defaults:  defaults,
		metrics:   m,
		gatherer:  g,
	}
	s.router = s.setupRouter()
	return s
}

// Handler 返回完整的路由（测试可直接挂到 httptest）。
func (s *Server) Handler() http.Handler { return s.router }

// Start 监听 addr，直到 ctx 取消后优雅退出。
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// 抓取两页列表可能较慢，写超时要覆盖一次完整抓取。
		WriteTimeout: 90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", addr).Msg("web 服务已启动")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("web 服务正在退出")
		return s.Shutdown(shutdownCtx)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
