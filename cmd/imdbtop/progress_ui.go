package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/imdbtop/internal/app/run"
	"github.com/John-Robertt/imdbtop/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端上的逐页进度输出。
//
// 所有过程信息写到 stderr，stdout 留给表格/CSV。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
	ok        int
	fail      int
	items     int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(req run.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.startedAt = now
	fmt.Fprintf(p.w, "[%s] imdbtop scrape\n", now.Format("15:04:05"))
	fmt.Fprintf(p.w, "  url: %s\n", truncate(req.URL, 120))
	fmt.Fprintf(p.w, "  pages: %d\n\n", req.Pages)
}

func (p *progressUI) OnPageDone(idx, total int, res domain.PageResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res.Status == domain.PageStatusFailed {
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s: %s (%s)\n",
			idx, total, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
		return
	}
	p.ok++
	p.items += res.Items
	fmt.Fprintf(p.w, "[%d/%d] OK items=%d (%s)\n", idx, total, res.Items, formatShortDuration(dur))
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "dedupe":
		fmt.Fprintf(p.w, "去重: extracted=%d unique=%d (%s)\n",
			intField(fields, "extracted"), intField(fields, "unique"), formatShortDuration(dur),
		)
		fmt.Fprintf(p.w, "进度: ok=%d fail=%d items=%d elapsed=%s\n\n",
			p.ok, p.fail, p.items, formatElapsed(time.Since(p.startedAt)),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
