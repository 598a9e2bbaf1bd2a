package report

import (
	"fmt"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/wqzhao/snakeid/internal/evaluate"
)

// matrixGrid adapts a confusion matrix to the heat-map grid interface.
// Row 0 (true class 0) is drawn at the top, so grid rows are flipped.
type matrixGrid struct {
	m *evaluate.ConfusionMatrix
}

func (g matrixGrid) Dims() (c, r int) { return g.m.Size(), g.m.Size() }
func (g matrixGrid) X(c int) float64  { return float64(c) }
func (g matrixGrid) Y(r int) float64  { return float64(r) }
func (g matrixGrid) Z(c, r int) float64 {
	return float64(g.m.At(g.m.Size()-1-r, c))
}

func (g *Generator) writeConfusionMatrixPNG(path string, outcome *evaluate.Outcome, sum *evaluate.Summary) error {
	n := outcome.Matrix.Size()
	names := make([]string, n)
	for i, cm := range sum.PerClass {
		names[i] = cm.Label.CommonName
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Confusion Matrix - %s Set (accuracy %.4f)", outcome.Split, sum.Accuracy)
	p.X.Label.Text = "Predicted Class"
	p.Y.Label.Text = "True Class"

	heat := plotter.NewHeatMap(matrixGrid{m: outcome.Matrix}, palette.Heat(16, 1))
	p.Add(heat)

	// Cell count annotations, one label per cell center.
	labels := plotter.XYLabels{}
	for t := 0; t < n; t++ {
		for c := 0; c < n; c++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(n - 1 - t)})
			labels.Labels = append(labels.Labels, strconv.Itoa(outcome.Matrix.At(t, c)))
		}
	}
	counts, err := plotter.NewLabels(labels)
	if err != nil {
		return fmt.Errorf("matrix labels: %w", err)
	}
	p.Add(counts)

	p.NominalX(names...)
	reversed := make([]string, n)
	for i := range names {
		reversed[i] = names[n-1-i]
	}
	p.NominalY(reversed...)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save confusion matrix plot: %w", err)
	}
	return nil
}

func (g *Generator) writeMetricsPNG(path string, sum *evaluate.Summary) error {
	n := len(sum.PerClass)
	names := make([]string, n)
	precision := make(plotter.Values, n)
	recall := make(plotter.Values, n)
	f1 := make(plotter.Values, n)
	for i, cm := range sum.PerClass {
		names[i] = cm.Label.CommonName
		precision[i] = cm.Precision
		recall[i] = cm.Recall
		f1[i] = cm.F1
	}

	p := plot.New()
	p.Title.Text = "Per-Class Metrics"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 1.05

	width := vg.Points(12)
	groups := []struct {
		name   string
		values plotter.Values
		offset vg.Length
	}{
		{"precision", precision, -width},
		{"recall", recall, 0},
		{"f1-score", f1, width},
	}
	for i, grp := range groups {
		bars, err := plotter.NewBarChart(grp.values, width)
		if err != nil {
			return fmt.Errorf("bar chart %s: %w", grp.name, err)
		}
		bars.Color = plotutil.Color(i)
		bars.Offset = grp.offset
		p.Add(bars)
		p.Legend.Add(grp.name, bars)
	}
	p.Legend.Top = true
	p.NominalX(names...)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save per-class metrics plot: %w", err)
	}
	return nil
}
