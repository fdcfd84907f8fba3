package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestScrapeReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := ScrapeReport{
		URL:        "https://www.imdb.com/list/ls055386972/",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Pages: []PageResult{
			{Page: 1, Status: PageStatusFailed, ErrorCode: ErrCodeFetchFailed},
			{Page: 0, Status: PageStatusOK, Items: 25},
		},
		Records: []MovieRecord{{Title: Text("A")}, {Title: Text("B")}},
	}

	r.Finalize()

	if r.Pages[0].Page != 0 || r.Pages[1].Page != 1 {
		t.Fatalf("pages 排序不符合契约：%+v", r.Pages)
	}
	if r.Summary.Pages != 2 || r.Summary.Failed != 1 || r.Summary.Extracted != 25 || r.Summary.Unique != 2 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}
	if r.Complete() {
		t.Fatalf("存在失败页时 Complete 应为 false")
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestScrapeReport_MarshalJSON_EmptyRecords(t *testing.T) {
	b, err := json.Marshal(ScrapeReport{URL: "u"})
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"records":[]`)) || !bytes.Contains(b, []byte(`"pages":[]`)) {
		t.Fatalf("空集合应输出 []：%s", string(b))
	}
}

func TestMovieRecord_RowNullAsEmpty(t *testing.T) {
	m := MovieRecord{Title: Text("Inception"), Year: Text("2010"), Director: Text("Christopher Nolan")}
	row := m.Row()
	if len(row) != len(Columns) {
		t.Fatalf("列数不一致：%d vs %d", len(row), len(Columns))
	}
	want := []string{"Inception", "2010", "", "", "Christopher Nolan", "", "", ""}
	for i := range want {
		if row[i] != want[i] {
			t.Fatalf("第 %d 列不符合预期：got=%q want=%q", i, row[i], want[i])
		}
	}
	if Text("") != nil {
		t.Fatalf("空串应映射为 nil")
	}
}
