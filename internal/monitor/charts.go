package monitor

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/gesturelife/internal/control"
)

//go:embed debug.html
var debugHTML string

var debugTemplate = template.Must(template.New("debug").Parse(debugHTML))

// handleSessionPage renders the live session summary with links to the
// JSON endpoints and the grid and population charts embedded.
func (ws *WebServer) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.Latest()
	data := struct {
		HasSnapshot bool
		Snapshot    control.Snapshot
		Summary     PopulationSummary
	}{ok, s, ws.population.Summary()}

	var buf bytes.Buffer
	if err := debugTemplate.Execute(&buf, data); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleGridChart renders the latest grid as a scatter of live cells with
// the cursor cell highlighted. Row 0 is drawn at the top.
func (ws *WebServer) handleGridChart(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.Latest()
	if !ok {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}

	live := make([]opts.ScatterData, 0, s.Population)
	for _, c := range s.LiveCells() {
		live = append(live, opts.ScatterData{Value: []interface{}{c.Col, s.Rows - 1 - c.Row}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Grid", Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Grid",
			Subtitle: fmt.Sprintf("generation=%d population=%d mode=%s running=%t", s.Generation, s.Population, s.Mode, s.Running),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -1, Max: s.Cols, Name: "col", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: s.Rows, Name: "row", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("live", live,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}))

	if s.Cursor != nil {
		cursor := []opts.ScatterData{{Value: []interface{}{s.Cursor.Col, s.Rows - 1 - s.Cursor.Row}}}
		color := "#fde725"
		if s.Drawing {
			color = "#ff5252"
		}
		scatter.AddSeries("cursor", cursor,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePopulationChart renders population by generation as a line chart.
func (ws *WebServer) handlePopulationChart(w http.ResponseWriter, r *http.Request) {
	pts := ws.population.Points()
	summary := ws.population.Summary()

	x := make([]string, len(pts))
	y := make([]opts.LineData, len(pts))
	for i, pt := range pts {
		x[i] = strconv.FormatUint(pt.Generation, 10)
		y[i] = opts.LineData{Value: pt.Population}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Population", Theme: "dark", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Population",
			Subtitle: fmt.Sprintf("generations=%d mean=%.1f stddev=%.1f max=%.0f", summary.Count, summary.Mean, summary.StdDev, summary.Max),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "generation", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "live cells", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(x).
		AddSeries("population", y,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1f9e89"}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
