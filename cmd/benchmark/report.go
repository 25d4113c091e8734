package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
)

func renderScenario(w io.Writer, title string, results []result) {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	for _, r := range results {
		tbl.AppendRow(table.Row{
			r.name,
			r.metrics.Time.Avg,
			r.metrics.Time.Min,
			r.metrics.Time.P75,
			r.metrics.Time.P99,
			r.metrics.Time.Max,
		})
	}
	tbl.Render()
}

func renderSummary(w io.Writer, results []result) {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"scenario", "case", "iters", "total", "ops/sec", "relinked"})
	for _, r := range results {
		summary.Append([]string{
			r.scenario,
			r.name,
			humanize.Comma(int64(r.iters)),
			fmt.Sprint(r.metrics.Time.Cumulative.Round(time.Microsecond)),
			humanize.Comma(int64(opsPerSecond(r))),
			relinked(r),
		})
	}
	summary.Render()
}

func relinked(r result) string {
	if r.relinks < 0 {
		return ""
	}
	return humanize.Comma(int64(r.relinks))
}

func opsPerSecond(r result) float64 {
	total := r.metrics.Time.Cumulative
	if total <= 0 {
		return 0
	}
	return float64(r.iters) / total.Seconds()
}
