// Package survplot draws survival curves and Brier score curves with gonum/plot.
package survplot

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

// SurvivalCurves plots the survival step functions of the given rows of surv,
// an (M, K) matrix aligned with timeBins. Each curve starts at (0, 1).
func SurvivalCurves(timeBins []float64, surv mat.Matrix, subjects []int, title string) (*plot.Plot, error) {
	m, k := surv.Dims()
	if k != len(timeBins) {
		return nil, errors.NewDimensionError("SurvivalCurves", len(timeBins), k, 1)
	}
	if len(subjects) == 0 {
		return nil, errors.NewValueError("SurvivalCurves", "no subjects to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time"
	p.Y.Label.Text = "survival probability"
	p.Y.Min, p.Y.Max = 0, 1.05

	for c, i := range subjects {
		if i < 0 || i >= m {
			return nil, errors.NewValueError("SurvivalCurves",
				fmt.Sprintf("subject %d out of range [0, %d)", i, m))
		}
		pts := make(plotter.XYs, k+1)
		pts[0] = plotter.XY{X: 0, Y: 1}
		for j := 0; j < k; j++ {
			pts[j+1] = plotter.XY{X: timeBins[j], Y: surv.At(i, j)}
		}

		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrap(err, "survival curve")
		}
		l.StepStyle = plotter.PostStep
		l.LineStyle.Color = plotutil.Color(c)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("subject %d", i), l)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// BrierScores plots one Brier score curve per named series, for example one
// per model or per fold.
func BrierScores(times []float64, series map[string][]float64, title string) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, errors.NewValueError("BrierScores", "no series to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time"
	p.Y.Label.Text = "Brier score"

	var args []interface{}
	for _, name := range sortedKeys(series) {
		scores := series[name]
		if len(scores) != len(times) {
			return nil, errors.NewDimensionError("BrierScores", len(times), len(scores), 0)
		}
		pts := make(plotter.XYs, len(times))
		for j := range times {
			pts[j] = plotter.XY{X: times[j], Y: scores[j]}
		}
		args = append(args, name, pts)
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return nil, errors.Wrap(err, "brier score curve")
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// Save writes p to path; the format follows the file extension.
func Save(p *plot.Plot, path string) error {
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

// Write renders p to w in the given format ("png", "svg", "pdf", ...).
func Write(p *plot.Plot, w io.Writer, format string) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return errors.Wrap(err, "render plot")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write plot")
	}
	return nil
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
