package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	PageStatusOK     = "ok"
	PageStatusFailed = "failed"
)

const (
	ErrCodeFetchFailed    = "fetch_failed"
	ErrCodeParseFailed    = "parse_failed"
	ErrCodeInvalidURL     = "invalid_url"
	ErrCodeConfigInvalid  = "config_invalid"
	ErrCodeConfigNotFound = "config_not_found"
)

// ScrapeReport 是一次抓取（固定页数）的完整结果：逐页状态 + 去重后的记录。
type ScrapeReport struct {
	URL string `json:"url"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Pages   []PageResult  `json:"pages"`
	Records []MovieRecord `json:"records"`
}

type ReportSummary struct {
	Pages     int `json:"pages"`
	Failed    int `json:"failed"`
	Extracted int `json:"extracted"` // 去重前
	Unique    int `json:"unique"`    // 去重后
}

type PageResult struct {
	Page      int    `json:"page"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
	Items     int    `json:"items"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) pages 按页号稳定排序
// 3) summary 由 pages/records 计算得出
func (r *ScrapeReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Pages, func(i, j int) bool { return r.Pages[i].Page < r.Pages[j].Page })

	s := ReportSummary{Pages: len(r.Pages), Unique: len(r.Records)}
	for _, p := range r.Pages {
		if p.Status == PageStatusFailed {
			s.Failed++
		}
		s.Extracted += p.Items
	}
	r.Summary = s
}

// Complete 表示所有页都抓取成功（只有完整结果才允许进入 memo）。
func (r ScrapeReport) Complete() bool {
	for _, p := range r.Pages {
		if p.Status != PageStatusOK {
			return false
		}
	}
	return true
}

// MarshalJSON 仅用于集中约束输出的稳定性：records 为空时输出 [] 而不是 null。
func (r ScrapeReport) MarshalJSON() ([]byte, error) {
	type Alias ScrapeReport
	a := Alias(r)
	if a.Pages == nil {
		a.Pages = []PageResult{}
	}
	if a.Records == nil {
		a.Records = []MovieRecord{}
	}
	return json.Marshal(a)
}
