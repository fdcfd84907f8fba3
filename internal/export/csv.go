package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"

	"github.com/John-Robertt/imdbtop/internal/domain"
	"github.com/John-Robertt/imdbtop/internal/infra/fsx"
)

const (
	// Filename 是下载/落盘时使用的固定文件名。
	Filename = "imdb_movies.csv"
	// ContentType 是 HTTP 下载的 MIME 类型。
	ContentType = "text/csv; charset=utf-8"
)

// WriteCSV 按 domain.Columns 输出表头 + 每条记录一行（无行号列）；nil 字段输出空单元格。
func WriteCSV(w io.Writer, records []domain.MovieRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Encode 与 WriteCSV 相同，但返回完整字节。
func Encode(records []domain.MovieRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile 把 CSV 原子写入 <dir>/imdb_movies.csv（覆盖已有文件），返回写入的完整路径。
func SaveFile(dir string, records []domain.MovieRecord) (string, error) {
	b, err := Encode(records)
	if err != nil {
		return "", err
	}
	if err := fsx.WriteFileAtomic(dir, Filename, b); err != nil {
		return "", err
	}
	return filepath.Join(dir, Filename), nil
}
