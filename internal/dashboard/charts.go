package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/coverage.report/internal/drilldown"
	"github.com/banshee-data/coverage.report/internal/httputil"
	"github.com/banshee-data/coverage.report/internal/indicator"
)

var errIncompleteSelection = errors.New("tool, project and stepping are required")

// renderer is any go-echarts chart or page.
type renderer interface {
	Render(w io.Writer) error
}

func (s *Server) writeChart(w http.ResponseWriter, c renderer) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// SelectionTitle names a fully selected drill-down.
func SelectionTitle(sel drilldown.Selection) string {
	return strings.Join([]string{sel.Tool(), sel.Project(), sel.Stepping()}, " / ")
}

// eventBarChart draws one horizontal bar per event, green once the event
// reaches its threshold and red before.
func eventBarChart(sel drilldown.Selection, events []drilldown.Event, assetsHost string) *charts.Bar {
	names := make([]string, len(events))
	data := make([]opts.BarData, len(events))
	for i, e := range events {
		names[i] = e.Name
		data[i] = opts.BarData{
			Name:      e.Name,
			Value:     e.Count,
			ItemStyle: &opts.ItemStyle{Color: drilldown.BarColor(e)},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Event coverage",
			Width:      "100%",
			Height:     fmt.Sprintf("%dpx", drilldown.ChartHeight(len(events))),
			AssetsHost: assetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Event coverage", Subtitle: SelectionTitle(sel)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("count", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
		)
	bar.XYReversal()
	return bar
}

// pieChart draws the per-IP hit slices of a found event.
func pieChart(res indicator.SearchResult, assetsHost string) *charts.Pie {
	data := make([]opts.PieData, len(res.Slices))
	for i, sl := range res.Slices {
		data[i] = opts.PieData{
			Name:      sl.Name,
			Value:     sl.Value,
			ItemStyle: &opts.ItemStyle{Color: sl.Color},
		}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Event " + res.EventID,
			Width:      "100%",
			Height:     "400px",
			AssetsHost: assetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: res.EventID}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)
	pie.AddSeries(res.EventID, data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)
	return pie
}

// fillChart draws each event's fill percentage for one IP, grouped by
// coverage id in backend order.
func fillChart(ip string, coverages []indicator.Coverage, assetsHost string) *charts.Bar {
	var names []string
	var data []opts.BarData
	for _, c := range coverages {
		for _, e := range c.Events {
			color := indicator.EmptyColor
			if e.Hit > 0 {
				color = indicator.FilledColor
			}
			names = append(names, c.CoverageID+" "+e.EventID)
			data = append(data, opts.BarData{
				Name:      e.EventID,
				Value:     math.Round(indicator.Fill(e) * 100),
				ItemStyle: &opts.ItemStyle{Color: color},
			})
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Indicators " + ip,
			Width:      "100%",
			Height:     fmt.Sprintf("%dpx", drilldown.ChartHeight(len(data))),
			AssetsHost: assetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Fill %", Subtitle: ip}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Max: 100}),
	)
	bar.SetXAxis(names).AddSeries("fill", data)
	bar.XYReversal()
	return bar
}

var (
	passFill = color.RGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}
	failFill = color.RGBA{R: 0xc6, G: 0x28, B: 0x28, A: 0xff}
)

// WriteEventPNG renders the event coverage chart as a PNG: one bar per
// event, met events in green and the rest in red.
func WriteEventPNG(w io.Writer, title string, events []drilldown.Event) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"

	names := make([]string, len(events))
	met := make(plotter.Values, len(events))
	unmet := make(plotter.Values, len(events))
	for i, e := range events {
		names[i] = e.Name
		if e.Met() {
			met[i] = float64(e.Count)
		} else {
			unmet[i] = float64(e.Count)
		}
	}

	width := vg.Points(20)
	if len(events) > 0 {
		metBars, err := plotter.NewBarChart(met, width)
		if err != nil {
			return fmt.Errorf("met bars: %w", err)
		}
		metBars.Color = passFill
		metBars.LineStyle.Width = 0

		unmetBars, err := plotter.NewBarChart(unmet, width)
		if err != nil {
			return fmt.Errorf("unmet bars: %w", err)
		}
		unmetBars.Color = failFill
		unmetBars.LineStyle.Width = 0

		p.Add(metBars, unmetBars)
		p.Legend.Add("met", metBars)
		p.Legend.Add("below threshold", unmetBars)
		p.Legend.Top = true
		p.NominalX(names...)
	}

	wt, err := p.WriterTo(vg.Length(max(len(events), 4))*vg.Centimeter*1.5, 10*vg.Centimeter, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
