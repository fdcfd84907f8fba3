package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

func TestEncode_HeaderAndNullCells(t *testing.T) {
	records := []domain.MovieRecord{
		{
			Title:        domain.Text("The Lord of the Rings: The Two Towers"),
			Year:         domain.Text("2002"),
			Runtime:      domain.Text("2h 59m"),
			Restrictions: domain.Text("PG-13"),
			Director:     domain.Text("Peter Jackson"),
			Actors:       domain.Text("Elijah Wood, Ian McKellen, Viggo Mortensen"),
			Score:        domain.Text("87"),
			Metacritic:   domain.Text("Metascore"),
		},
		{Title: domain.Text("Nameless"), Year: domain.Text("2020")},
	}

	b, err := Encode(records)
	if err != nil {
		t.Fatalf("Encode 失败：%v", err)
	}
	got := string(b)
	want := "Title,Year,Runtime,Restrictions,Director,Actors,Score,Metacritic\n" +
		"The Lord of the Rings: The Two Towers,2002,2h 59m,PG-13,Peter Jackson,\"Elijah Wood, Ian McKellen, Viggo Mortensen\",87,Metascore\n" +
		"Nameless,2020,,,,,,\n"
	if got != want {
		t.Fatalf("CSV 不符合预期：\ngot=%q\nwant=%q", got, want)
	}

	rows, err := csv.NewReader(strings.NewReader(got)).ReadAll()
	if err != nil {
		t.Fatalf("CSV 无法回读：%v", err)
	}
	if len(rows) != 1+len(records) {
		t.Fatalf("期望 %d 行，实际 %d", 1+len(records), len(rows))
	}
}

func TestEncode_EmptyIsHeaderOnly(t *testing.T) {
	b, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode 失败：%v", err)
	}
	if strings.Count(string(b), "\n") != 1 {
		t.Fatalf("空表只应包含表头：%q", string(b))
	}
}

func TestSaveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := SaveFile(dir, []domain.MovieRecord{{Title: domain.Text("A")}})
	if err != nil {
		t.Fatalf("SaveFile 失败：%v", err)
	}
	if path != filepath.Join(dir, Filename) {
		t.Fatalf("路径不符合预期：%q", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if !strings.HasPrefix(string(b), "Title,Year,") || !strings.Contains(string(b), "\nA,,,,,,,\n") {
		t.Fatalf("文件内容不符合预期：%q", string(b))
	}
}
