package cache

import (
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

// DefaultSize 是 memo 最多保留的列表 URL 数。
const DefaultSize = 64

// Memo 是按列表 URL 缓存抓取结果的进程内缓存。
//
// 约束：
// - key：trim 后的列表 URL（不做大小写/参数归一化，避免把不同列表误判为同一个）
// - 淘汰：容量满后按 LRU 淘汰；无 TTL，生命周期与进程一致
// - 并发安全（底层 lru.Cache 自带锁）
type Memo struct {
	c *lru.Cache[string, domain.ScrapeReport]
}

// NewMemo 创建容量为 size 的 memo；size<=0 时使用 DefaultSize。
func NewMemo(size int) (*Memo, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, domain.ScrapeReport](size)
	if err != nil {
		return nil, err
	}
	return &Memo{c: c}, nil
}

// Get 返回 URL 对应的缓存结果。返回值是副本：调用方修改切片不会影响缓存。
func (m *Memo) Get(url string) (domain.ScrapeReport, bool) {
	if m == nil {
		return domain.ScrapeReport{}, false
	}
	rr, ok := m.c.Get(key(url))
	if !ok {
		return domain.ScrapeReport{}, false
	}
	return clone(rr), true
}

// Put 写入缓存；已存在则覆盖并刷新 LRU 位置。
func (m *Memo) Put(url string, rr domain.ScrapeReport) {
	if m == nil {
		return
	}
	m.c.Add(key(url), clone(rr))
}

// Remove 删除 URL 对应的缓存。
func (m *Memo) Remove(url string) {
	if m == nil {
		return
	}
	m.c.Remove(key(url))
}

// Len 返回当前缓存的 URL 数。
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return m.c.Len()
}

// Purge 清空缓存。
func (m *Memo) Purge() {
	if m == nil {
		return
	}
	m.c.Purge()
}

func key(url string) string { return strings.TrimSpace(url) }

func clone(rr domain.ScrapeReport) domain.ScrapeReport {
	rr.Pages = slices.Clone(rr.Pages)
	rr.Records = slices.Clone(rr.Records)
	return rr
}
