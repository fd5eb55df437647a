package termgath

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	pretty_table "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/programme-lv/strbench/api"
)

func style() pretty_table.Style {
	if color.NoColor {
		return pretty_table.StyleLight
	}
	return pretty_table.StyleColoredDark
}

var markerColor = text.Transformer(func(s interface{}) string {
	switch s.(string) {
	case "-":
		return text.FgHiYellow.Sprint(s)
	case "OUT", "ERR":
		return text.FgHiRed.Sprint(s)
	}
	return fmt.Sprint(s)
})

var statusColor = text.Transformer(func(s interface{}) string {
	switch api.TestStatus(s.(string)) {
	case api.Passed:
		return text.FgHiGreen.Sprint(s)
	case api.Untested:
		return text.FgHiYellow.Sprint(s)
	case api.Failed:
		return text.FgHiRed.Sprint(s)
	}
	return fmt.Sprint(s)
})

// renderTable prints mean search times in ms, one row per pattern length.
func (t *TerminalGatherer) renderTable() {
	tw := pretty_table.NewWriter()
	tw.SetOutputMirror(t.w)

	header := pretty_table.Row{"m"}
	configs := []pretty_table.ColumnConfig{{Number: 1, Align: text.AlignRight}}
	for i, a := range t.info.Algorithms {
		header = append(header, a.Display)
		cfg := pretty_table.ColumnConfig{Number: i + 2, Align: text.AlignRight}
		if !color.NoColor {
			cfg.Transformer = markerColor
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)

	for _, m := range t.info.Lengths {
		row, ok := t.cells[m]
		if !ok {
			continue
		}
		r := pretty_table.Row{strconv.Itoa(m)}
		for _, a := range t.info.Algorithms {
			c, ok := row[a.Name]
			if !ok {
				r = append(r, "")
				continue
			}
			r = append(r, FormatCell(c, t.precision))
		}
		tw.AppendRow(r)
	}
	tw.SetStyle(style())
	tw.SetColumnConfigs(configs)
	tw.Render()
}

// PrintTestResults prints one row per algorithm. With failOnly set, passed
// and untested algorithms are left out.
func PrintTestResults(w io.Writer, results []api.TestResult, failOnly bool) {
	tw := pretty_table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(pretty_table.Row{"Algorithm", "Status", "Checks", "Skipped", "Failure"})
	shown := 0
	for _, r := range results {
		if failOnly && r.Status != api.Failed {
			continue
		}
		failure := ""
		if r.Failure != nil {
			failure = *r.Failure
		}
		tw.AppendRow(pretty_table.Row{r.Algorithm, string(r.Status), r.Counted, r.Skipped, failure})
		shown++
	}
	if shown == 0 {
		if failOnly {
			fmt.Fprintln(w, "No algorithm failed")
		}
		return
	}
	tw.SetStyle(style())
	if !color.NoColor {
		tw.SetColumnConfigs([]pretty_table.ColumnConfig{
			{
				Name:        "Status",
				Transformer: statusColor,
				Align:       text.AlignCenter,
			},
		})
	}
	tw.Render()
}
