package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Bahadou-Badr/segsweep/internal/sweep"
	"github.com/Bahadou-Badr/segsweep/internal/track"
)

func renderSummary(w io.Writer, sum *sweep.Summary) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("run " + sum.RunID)
	tw.AppendHeader(table.Row{"Outcome", "Tracks"})

	rows := []struct {
		label string
		n     int
	}{
		{"matched", sum.Matched},
		{track.Invoked.String(), sum.Counts[track.Invoked]},
		{track.Skipped.String(), sum.Counts[track.Skipped]},
		{track.Abandoned.String(), sum.Counts[track.Abandoned]},
		{track.Failed.String(), sum.Counts[track.Failed]},
		{"unpaired files", sum.Unpaired},
	}
	for _, r := range rows {
		tw.AppendRow(table.Row{r.label, strconv.Itoa(r.n)})
	}
	tw.AppendFooter(table.Row{"elapsed", fmt.Sprintf("%.2fs", sum.Elapsed.Seconds())})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	fmt.Fprintln(w, tw.Render())
}
