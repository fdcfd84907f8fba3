package app

import "github.com/John-Robertt/imdbtop/internal/domain"

// DedupeByTitle 按 Title 去重：首次出现的记录保留，顺序保持不变。
//
// nil Title 视为同一个 key（只保留第一条无标题记录），与按列去重的表格语义一致。
func DedupeByTitle(records []domain.MovieRecord) []domain.MovieRecord {
	seen := make(map[string]struct{}, len(records))
	seenNil := false
	out := make([]domain.MovieRecord, 0, len(records))

	for _, r := range records {
		if r.Title == nil {
			if seenNil {
				continue
			}
			seenNil = true
			out = append(out, r)
			continue
		}
		if _, ok := seen[*r.Title]; ok {
			continue
		}
		seen[*r.Title] = struct{}{}
		out = append(out, r)
	}
	return out
}
