package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// maxCellWidth wraps long titles and paths instead of widening the table.
const maxCellWidth = 48

// renderTable draws rows under headers. Missing cells render blank and
// columns holding only integers are right-aligned.
func renderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))

	numeric := make([]bool, len(headers))
	for i := range numeric {
		numeric[i] = len(rows) > 0
	}
	for _, row := range rows {
		r := toRow(row, len(headers))
		for i, cell := range r {
			if _, err := strconv.Atoi(cell.(string)); err != nil {
				numeric[i] = false
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range headers {
		configs[i] = table.ColumnConfig{
			Number:           i + 1,
			AlignHeader:      text.AlignLeft,
			WidthMax:         maxCellWidth,
			WidthMaxEnforcer: text.WrapSoft,
		}
		if numeric[i] {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
