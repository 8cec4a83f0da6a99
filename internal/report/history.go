package report

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// PlotHistory draws the objective over successive evaluations. With logScale
// the values are plotted as log10, which keeps late iterations readable.
func PlotHistory(values []float64, caption string, logScale bool) string {
	if len(values) == 0 {
		return ""
	}
	data := make([]float64, 0, len(values))
	for _, v := range values {
		if logScale {
			if v <= 0 {
				continue
			}
			v = math.Log10(v)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		data = append(data, v)
	}
	if len(data) == 0 {
		return ""
	}
	if logScale {
		caption += " (log10)"
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}
