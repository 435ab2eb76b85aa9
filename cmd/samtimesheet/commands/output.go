package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"samtimesheet/internal/components/store"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	formatTable = "table"
	formatJson  = "json"
	formatCsv   = "csv"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func hours(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Hours())
}

// writeMonth renders the shifts of a month in one of the output formats.
func writeMonth(w io.Writer, format, key string, month store.CachedMonth) error {
	switch format {
	case formatTable:
		t := newTable(w)
		t.SetTitle(key)
		t.AppendHeader(table.Row{"Date", "Start", "End", "Hours"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Hours", Align: text.AlignRight, AlignFooter: text.AlignRight},
		})

		var total time.Duration
		for _, shift := range month.Parsed {
			length := shift.End.Sub(shift.Start)
			total += length
			t.AppendRow(table.Row{
				shift.Start.Format("Mon 2 Jan"),
				shift.Start.Format("15:04"),
				shift.End.Format("15:04"),
				hours(length),
			})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d shifts", len(month.Parsed)), "", "", hours(total)})
		t.SetCaption("updated %s", month.Updated.Format(time.DateTime))
		t.Render()
		return nil

	case formatJson:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(month)

	case formatCsv:
		out := csv.NewWriter(w)
		err := out.Write([]string{"start", "end", "hours"})
		if err != nil {
			return err
		}
		for _, shift := range month.Parsed {
			err = out.Write([]string{
				shift.Start.Format(time.RFC3339),
				shift.End.Format(time.RFC3339),
				hours(shift.End.Sub(shift.Start)),
			})
			if err != nil {
				return err
			}
		}
		out.Flush()
		return out.Error()
	}

	return fmt.Errorf("unknown format %q, expected one of %s, %s or %s", format, formatTable, formatJson, formatCsv)
}
