package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestCLI_NoTTY_StdoutOnlyCSV(t *testing.T) {
	// 这个测试锁定对外契约：stdout 非 TTY 时只能输出 CSV（进度/摘要/日志必须走 stderr）。
	if testing.Short() {
		t.Skip("short 模式跳过 go run")
	}
	site := newSite(t)

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", "run", "./cmd/imdbtop", "scrape", "--url", site.ListURL(), "--year-min", "2020", "--verbose")
	cmd.Dir = repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	rows, err := csv.NewReader(bytes.NewReader(stdout.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("stdout 不是合法的 CSV：%v\nstdout=%q", err, stdout.String())
	}
	if len(rows) != 1+20 {
		t.Fatalf("期望 1+20 行，实际 %d", len(rows))
	}
	if rows[0][0] != "Title" {
		t.Fatalf("首行应为表头：%v", rows[0])
	}
	if strings.Contains(stdout.String(), "完成：") {
		t.Fatalf("stdout 不应包含摘要：%q", stdout.String())
	}

	if !strings.Contains(stderr.String(), "完成：pages=2 failed=0") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
}
