package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

// Provider 把“站点 HTML 结构变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 MovieRecord。
//
// 约束：
// - Fetch 不做缓存、不做重试（memo 由 present 层统一实现）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - PageURL 决定分页参数的拼接方式（page 从 0 开始）
type Provider interface {
	Name() string
	PageURL(baseURL string, page int) (string, error)
	Fetch(ctx context.Context, pageURL string, c *http.Client) (html []byte, err error)
	Parse(html []byte) ([]domain.MovieRecord, error)
}
