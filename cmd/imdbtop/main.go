package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/imdbtop/internal/app/present"
	"github.com/John-Robertt/imdbtop/internal/app/run"
	"github.com/John-Robertt/imdbtop/internal/config"
	"github.com/John-Robertt/imdbtop/internal/domain"
	"github.com/John-Robertt/imdbtop/internal/export"
	"github.com/John-Robertt/imdbtop/internal/infra/cache"
	"github.com/John-Robertt/imdbtop/internal/infra/httpx"
	"github.com/John-Robertt/imdbtop/internal/monitoring"
	"github.com/John-Robertt/imdbtop/internal/provider"
	"github.com/John-Robertt/imdbtop/internal/provider/imdb"
	"github.com/John-Robertt/imdbtop/internal/web"
)

// exitError 携带进程退出码：2=参数/配置错误，1=运行失败或有失败页。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	code := 1
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	if ee == nil || ee.err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

type rootFlags struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "imdbtop",
		Short:         "抓取 IMDb 列表页，按年份/关键词筛选并导出 CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rf.configFile, "config", "", "配置文件路径（默认读取 ./imdbtop.json，如存在）")
	root.PersistentFlags().BoolVarP(&rf.verbose, "verbose", "v", false, "输出 debug 日志")

	root.AddCommand(newScrapeCmd(rf), newServeCmd(rf))
	return root
}

type scrapeFlags struct {
	url     string
	yearMin int
	yearMax int
	search  string
	out     string
}

func newScrapeCmd(rf *rootFlags) *cobra.Command {
	sf := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "抓取一次并输出表格（stdout 非 TTY 时输出 CSV）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(rf.verbose, zerolog.WarnLevel)
			f := cmd.Flags()
			return scrape(cmd.Context(), config.CLIArgs{
				ConfigFile: rf.configFile,
				URL:        sf.url,
				URLSet:     f.Changed("url"),
				YearMin:    sf.yearMin,
				YearMinSet: f.Changed("year-min"),
				YearMax:    sf.yearMax,
				YearMaxSet: f.Changed("year-max"),
				Search:     sf.search,
				SearchSet:  f.Changed("search"),
				OutDir:     sf.out,
				OutDirSet:  f.Changed("out"),
			}, os.Stdout, os.Stderr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&sf.url, "url", config.DefaultURL, "IMDb 列表地址")
	f.IntVar(&sf.yearMin, "year-min", config.DefaultYearFloor, "起始年份（含）")
	f.IntVar(&sf.yearMax, "year-max", config.DefaultYearCeil, "结束年份（含）")
	f.StringVar(&sf.search, "search", "", "在标题/演员/导演中搜索（不区分大小写）")
	f.StringVar(&sf.out, "out", "", "把 imdb_movies.csv 写入该目录")
	return cmd
}

func newServeCmd(rf *rootFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 web 界面",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(rf.verbose, zerolog.InfoLevel)
			return serve(cmd.Context(), config.CLIArgs{
				ConfigFile: rf.configFile,
				Listen:     listen,
				ListenSet:  cmd.Flags().Changed("listen"),
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", config.DefaultListen, "监听地址")
	return cmd
}

func scrape(ctx context.Context, cli config.CLIArgs, stdout, stderr io.Writer) error {
	eff, err := loadConfig(cli)
	if err != nil {
		return err
	}

	var obs run.Observer
	if w, ok := stderr.(*os.File); ok && isTTY(w) {
		obs = newProgressUI(w)
	}
	p, err := newPresenter(eff, obs, nil)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	v, err := p.Present(ctx, present.Query{
		URL:     eff.URL,
		YearMin: eff.YearMin,
		YearMax: eff.YearMax,
		Search:  eff.Search,
	})
	if err != nil {
		var qe *present.QueryError
		if errors.As(err, &qe) {
			return &exitError{code: 2, err: err}
		}
		return &exitError{code: 1, err: err}
	}

	if f, ok := stdout.(*os.File); ok && isTTY(f) {
		renderTable(stdout, v.Records)
	} else if err := export.WriteCSV(stdout, v.Records); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("写入 CSV 失败：%w", err)}
	}

	if eff.OutDir != "" {
		path, err := export.SaveFile(eff.OutDir, v.Records)
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("保存 CSV 失败：%w", err)}
		}
		fmt.Fprintf(stderr, "csv: %s\n", path)
	}

	emitSummary(stderr, v)
	if v.Report.Summary.Failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func serve(ctx context.Context, cli config.CLIArgs) error {
	eff, err := loadConfig(cli)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := monitoring.NewMetrics(reg)

	p, err := newPresenter(eff, nil, m)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	s := web.NewServer(p, present.Query{
		URL:     eff.URL,
		YearMin: eff.YearMin,
		YearMax: eff.YearMax,
		Search:  eff.Search,
	}, m, reg)
	if err := s.Start(ctx, eff.Listen); err != nil {
		return &exitError{code: 1, err: err}
	}
	return nil
}

func loadConfig(cli config.CLIArgs) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, &exitError{code: 1, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return config.EffectiveConfig{}, &exitError{code: 2, err: err}
	}
	if eff.ConfigFile != "" {
		log.Debug().Str("config", eff.ConfigFile).Msg("已读取配置文件")
	}
	return eff, nil
}

func newPresenter(eff config.EffectiveConfig, obs run.Observer, m *monitoring.Metrics) (*present.Presenter, error) {
	reg, err := provider.NewRegistry(imdb.Provider{PageSize: eff.PageSize})
	if err != nil {
		return nil, fmt.Errorf("初始化 provider registry 失败：%w", err)
	}
	prov, err := reg.Lookup(eff.Provider)
	if err != nil {
		return nil, err
	}
	client, err := httpx.NewClient(httpx.Options{
		ProxyURL:  eff.ProxyURL,
		UserAgent: eff.UserAgent,
		Timeout:   eff.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}
	memo, err := cache.NewMemo(eff.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("初始化 memo 失败：%w", err)
	}
	partial, err := cache.NewMemo(eff.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("初始化 memo 失败：%w", err)
	}
	return &present.Presenter{
		Provider:  prov,
		Client:    client,
		Memo:      memo,
		Partial:   partial,
		Pages:     eff.Pages,
		YearFloor: eff.YearFloor,
		YearCeil:  eff.YearCeil,
		Observer:  obs,
		Metrics:   m,
	}, nil
}

func emitSummary(w io.Writer, v present.View) {
	s := v.Report.Summary
	fmt.Fprintf(w, "完成：pages=%d failed=%d extracted=%d unique=%d shown=%d\n",
		s.Pages, s.Failed, s.Extracted, s.Unique, len(v.Records),
	)
	for _, p := range v.Report.Pages {
		if p.Status != domain.PageStatusFailed {
			continue
		}
		fmt.Fprintf(w, "page %d %s: %s\n", p.Page+1, p.ErrorCode, p.ErrorMsg)
	}
}

// setupLogging 配置全局 zerolog：stderr 是终端时用可读格式，否则输出 JSON。
func setupLogging(verbose bool, level zerolog.Level) {
	if isTTY(os.Stderr) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
