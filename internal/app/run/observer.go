package run

import (
	"time"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

// Observer 用于把“抓取进度/阶段”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只发事件，不做任何输出（stdout 留给表格/CSV）。
// - Observer 的实现必须并发安全：web 模式下多个请求可能同时触发抓取。
type Observer interface {
	// OnStart 在抓取开始时调用。
	OnStart(req Request)
	// OnPageDone 在每页抓取+解析结束后调用（成功或失败）。
	OnPageDone(idx, total int, res domain.PageResult, dur time.Duration)
	// OnPhaseDone 在阶段结束时调用（目前只有 "dedupe"）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}

// Observers 把多个 Observer 串成一个；nil 元素会被跳过。
type Observers []Observer

func (obs Observers) OnStart(req Request) {
	for _, o := range obs {
		if o != nil {
			o.OnStart(req)
		}
	}
}

func (obs Observers) OnPageDone(idx, total int, res domain.PageResult, dur time.Duration) {
	for _, o := range obs {
		if o != nil {
			o.OnPageDone(idx, total, res, dur)
		}
	}
}

func (obs Observers) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	for _, o := range obs {
		if o != nil {
			o.OnPhaseDone(name, fields, dur)
		}
	}
}
