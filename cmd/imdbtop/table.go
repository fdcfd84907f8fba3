package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/John-Robertt/imdbtop/internal/domain"
)

// renderTable 在终端上渲染记录表格；列顺序与 CSV 一致。
func renderTable(w io.Writer, records []domain.MovieRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, 0, len(domain.Columns))
	for _, c := range domain.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for _, r := range records {
		cells := r.Row()
		row := make(table.Row, 0, len(cells))
		for _, c := range cells {
			row = append(row, c)
		}
		t.AppendRow(row)
	}

	// 标题和演员列可能很长，限制宽度后自动折行。
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 48},
		{Name: "Actors", WidthMax: 40},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
