package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JakeFAU/vaultdl/internal/app"
)

// renderSummary prints the per-outcome counts of a run.
func renderSummary(w io.Writer, res app.Result, elapsed time.Duration) {
	s := res.Summary
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("vault %s on %s", res.Site.UID, res.Site.Host)
	t.AppendHeader(table.Row{"Outcome", "Entries"})
	t.AppendRows([]table.Row{
		{"Saved", s.Saved},
		{"Excluded", s.Excluded},
		{"Skipped (conflict)", s.Skipped},
		{"Failed (network)", s.FailedNetwork},
		{"Failed (io)", s.FailedIO},
	})
	if s.Remaining > 0 {
		t.AppendRow(table.Row{"Not started", s.Remaining})
	}
	t.AppendFooter(table.Row{"Total", s.Total})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.SetCaption("%s written in %s", formatBytes(s.Bytes), elapsed.Round(time.Millisecond))
	t.Render()

	if s.Failed() > 0 {
		fmt.Fprintf(w, "%d entries did not download; see %s\n", s.Failed(), res.ErrorLogPath)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
