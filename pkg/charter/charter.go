package charter

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// DefaultMaxPoints keeps charts of long renders responsive in a browser.
const DefaultMaxPoints = 20000

// Points returns the sample indices and values that will be plotted,
// keeping every n-th sample so that at most maxPoints remain.
func Points(samples []int16, maxPoints int) ([]int, []int16) {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	stride := (len(samples) + maxPoints - 1) / maxPoints
	if stride < 1 {
		stride = 1
	}
	idx := make([]int, 0, len(samples)/stride+1)
	vals := make([]int16, 0, len(samples)/stride+1)
	for i := 0; i < len(samples); i += stride {
		idx = append(idx, i)
		vals = append(vals, samples[i])
	}
	return idx, vals
}

// WriteChart renders samples at sampleRate as a line chart to w.
func WriteChart(w io.Writer, title string, samples []int16, sampleRate, maxPoints int) error {
	idx, vals := Points(samples, maxPoints)

	items := make([]opts.LineData, len(vals))
	xLabels := make([]string, len(idx))
	for i := range vals {
		items[i] = opts.LineData{Value: vals[i]}
		xLabels[i] = fmt.Sprintf("%.4f", float64(idx[i])/float64(sampleRate))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d samples at %d Hz", len(samples), sampleRate),
		}),
	)

	line.SetXAxis(xLabels).
		AddSeries("Output", items).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: false}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
