package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/John-Robertt/imdbtop/internal/domain"
	"github.com/John-Robertt/imdbtop/internal/provider/imdb"
)

const (
	// ErrCodeNotFound 表示通过 --config 显式指定的配置文件不存在。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
)

const (
	// FileName 是 cwd 下自动发现的配置文件名（可选）。
	FileName = "imdbtop.json"
	// EnvPrefix 是环境变量前缀，例如 IMDBTOP_URL、IMDBTOP_PROXY_URL。
	EnvPrefix = "IMDBTOP"

	DefaultURL       = imdb.DefaultListURL
	DefaultProvider  = "imdb"
	DefaultPages     = 2
	DefaultPageSize  = imdb.DefaultPageSize
	DefaultYearFloor = 2001
	DefaultYearCeil  = 2024
	DefaultCacheSize = 64
	DefaultListen    = ":8501"
	DefaultTimeout   = 20 * time.Second

	maxPages     = 10
	maxPageSize  = 250
	maxCacheSize = 4096
)

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置文件/环境变量（包括覆盖为空串）。
type CLIArgs struct {
	ConfigFile string

	URL    string
	URLSet bool

	YearMin    int
	YearMinSet bool
	YearMax    int
	YearMaxSet bool

	Search    string
	SearchSet bool

	OutDir    string
	OutDirSet bool

	Listen    string
	ListenSet bool
}

// FileConfig 对应 imdbtop.json 的解析结构（同名 IMDBTOP_* 环境变量可覆盖）。
type FileConfig struct {
	URL       string        `mapstructure:"url"`
	Provider  string        `mapstructure:"provider"`
	YearMin   int           `mapstructure:"year_min"`
	YearMax   int           `mapstructure:"year_max"`
	YearFloor int           `mapstructure:"year_floor"`
	YearCeil  int           `mapstructure:"year_ceil"`
	Search    string        `mapstructure:"search"`
	Pages     int           `mapstructure:"pages"`
	PageSize  int           `mapstructure:"page_size"`
	UserAgent string        `mapstructure:"user_agent"`
	Proxy     ProxyConfig   `mapstructure:"proxy"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
	Listen    string        `mapstructure:"listen"`
	OutDir    string        `mapstructure:"out_dir"`
}

type ProxyConfig struct {
	URL string `mapstructure:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	URL      string
	Provider string

	Pages    int
	PageSize int

	// YearFloor/YearCeil 是年份滑块的可选范围；YearMin/YearMax 是默认选中的区间。
	YearFloor int
	YearCeil  int
	YearMin   int
	YearMax   int
	Search    string

	UserAgent string
	ProxyURL  string
	Timeout   time.Duration

	CacheSize int
	Listen    string
	OutDir    string

	// ConfigFile 是实际读取的配置文件（未读取任何文件时为空）。
	ConfigFile string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			if e.Path == "" {
				return fmt.Sprintf("%s：%v", e.Code, e.Err)
			}
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试读取 <cwd>/imdbtop.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 IMDBTOP_* > 配置文件 > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	v := newViper()

	cfgPath := ""
	if p := strings.TrimSpace(cli.ConfigFile); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		if _, err := os.Stat(cfgPath); err != nil {
			if os.IsNotExist(err) {
				return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
			}
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	} else {
		p := filepath.Join(cwdAbs, FileName)
		if _, err := os.Stat(p); err == nil {
			cfgPath = p
		}
	}

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if filepath.Ext(cfgPath) == "" {
			v.SetConfigType("json")
		}
		if err := v.ReadInConfig(); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	applyCLI(v, cli)

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff, err := normalize(fc, cwdAbs)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigFile = cfgPath
	return eff, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 每个 key 都需要默认值，否则 Unmarshal 看不到只来自环境变量的字段。
	v.SetDefault("url", DefaultURL)
	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("year_floor", DefaultYearFloor)
	v.SetDefault("year_ceil", DefaultYearCeil)
	v.SetDefault("year_min", 0)
	v.SetDefault("year_max", 0)
	v.SetDefault("search", "")
	v.SetDefault("pages", DefaultPages)
	v.SetDefault("page_size", DefaultPageSize)
	v.SetDefault("user_agent", "")
	v.SetDefault("proxy.url", "")
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("cache_size", DefaultCacheSize)
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("out_dir", "")
	return v
}

func applyCLI(v *viper.Viper, cli CLIArgs) {
	if cli.URLSet {
		v.Set("url", cli.URL)
	}
	if cli.YearMinSet {
		v.Set("year_min", cli.YearMin)
	}
	if cli.YearMaxSet {
		v.Set("year_max", cli.YearMax)
	}
	if cli.SearchSet {
		v.Set("search", cli.Search)
	}
	if cli.OutDirSet {
		v.Set("out_dir", cli.OutDir)
	}
	if cli.ListenSet {
		v.Set("listen", cli.Listen)
	}
}

func normalize(fc FileConfig, cwdAbs string) (EffectiveConfig, error) {
	listURL := strings.TrimSpace(fc.URL)
	if err := ValidateListURL(listURL); err != nil {
		return EffectiveConfig{}, err
	}

	provider := strings.ToLower(strings.TrimSpace(fc.Provider))
	if provider != DefaultProvider {
		return EffectiveConfig{}, fmt.Errorf("provider 只能是 %s，实际是 %q", DefaultProvider, fc.Provider)
	}

	if fc.YearFloor > fc.YearCeil {
		return EffectiveConfig{}, fmt.Errorf("year_floor(%d) 不能大于 year_ceil(%d)", fc.YearFloor, fc.YearCeil)
	}
	yearMin, yearMax := fc.YearMin, fc.YearMax
	if yearMin == 0 {
		yearMin = fc.YearFloor
	}
	if yearMax == 0 {
		yearMax = fc.YearCeil
	}
	if yearMin > yearMax {
		return EffectiveConfig{}, fmt.Errorf("year_min(%d) 不能大于 year_max(%d)", yearMin, yearMax)
	}
	yearMin = clamp(yearMin, fc.YearFloor, fc.YearCeil)
	yearMax = clamp(yearMax, fc.YearFloor, fc.YearCeil)

	proxyURL := strings.TrimSpace(fc.Proxy.URL)
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%w", err)
		}
	}

	timeout := fc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	listen := strings.TrimSpace(fc.Listen)
	if listen == "" {
		listen = DefaultListen
	}

	outDir := strings.TrimSpace(fc.OutDir)
	if outDir != "" {
		outDir = absCleanFrom(cwdAbs, outDir)
	}

	return EffectiveConfig{
		URL:       listURL,
		Provider:  provider,
		Pages:     clamp(fc.Pages, 1, maxPages),
		PageSize:  clamp(fc.PageSize, 1, maxPageSize),
		YearFloor: fc.YearFloor,
		YearCeil:  fc.YearCeil,
		YearMin:   yearMin,
		YearMax:   yearMax,
		Search:    fc.Search,
		UserAgent: strings.TrimSpace(fc.UserAgent),
		ProxyURL:  proxyURL,
		Timeout:   timeout,
		CacheSize: clamp(fc.CacheSize, 1, maxCacheSize),
		Listen:    listen,
		OutDir:    outDir,
	}, nil
}

// ValidateListURL 要求列表地址是带 host 的 http/https URL。
func ValidateListURL(raw string) error {
	if raw == "" {
		return errors.New("url 不能为空")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url 无效：%w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url 必须是 http/https：%q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url 缺少 host：%q", raw)
	}
	return nil
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

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
