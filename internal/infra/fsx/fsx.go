package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// 测试通过替换它来模拟 rename 失败。
var renameFunc = os.Rename

// DirConflictError 表示要写的文件路径上已经有一个目录。
type DirConflictError struct {
	Path string
}

func (e *DirConflictError) Error() string {
	return fmt.Sprintf("目标路径是目录：%q", e.Path)
}

// WriteFileAtomic 在 dir 下写入 name：先写同目录临时文件再 rename，已存在则覆盖。
//
// 导出的 CSV 可能正被表格软件打开读取；读者只会看到旧文件或完整的新文件。
func WriteFileAtomic(dir, name string, data []byte) error {
	dir = filepath.Clean(dir)
	dst := filepath.Join(dir, name)
	if fi, err := os.Lstat(dst); err == nil && fi.IsDir() {
		return &DirConflictError{Path: dst}
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}

	// 目录 fsync 失败不影响结果。
	if runtime.GOOS != "windows" {
		if d, err := os.Open(dir); err == nil {
			_ = d.Sync()
			_ = d.Close()
		}
	}
	return nil
}
