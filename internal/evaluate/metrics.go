package evaluate

import (
	"fmt"

	"github.com/wqzhao/snakeid/internal/classes"
)

// ClassMetrics holds the derived quality numbers for one class,
// read-only once computed from a finalized matrix.
type ClassMetrics struct {
	Label          classes.Label
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Support        int
	Precision      float64
	Recall         float64
	F1             float64
}

// Averages aggregates precision/recall/F1 across classes.
type Averages struct {
	Precision float64
	Recall    float64
	F1        float64
}

// Summary is the full derived metric set for one evaluation run.
type Summary struct {
	PerClass []ClassMetrics
	Accuracy float64
	Macro    Averages
	Weighted Averages
}

// Metrics derives per-class precision, recall and F1 from a finalized
// confusion matrix, plus macro and support-weighted averages. Zero
// denominators yield 0, never NaN: a class that is never predicted has
// precision 0, a class with no true samples has recall 0.
func Metrics(m *ConfusionMatrix, reg *classes.Registry) (*Summary, error) {
	if m.Size() != reg.Size() {
		return nil, fmt.Errorf("matrix size %d does not match registry size %d", m.Size(), reg.Size())
	}

	n := m.Size()
	sum := &Summary{PerClass: make([]ClassMetrics, n), Accuracy: m.Accuracy()}
	total := m.Total()

	for c := 0; c < n; c++ {
		label, err := reg.Resolve(c)
		if err != nil {
			return nil, err
		}
		tp := m.At(c, c)
		fp := m.ColSum(c) - tp
		fn := m.RowSum(c) - tp

		cm := ClassMetrics{
			Label:          label,
			TruePositives:  tp,
			FalsePositives: fp,
			FalseNegatives: fn,
			Support:        m.RowSum(c),
		}
		cm.Precision = safeDiv(float64(tp), float64(tp+fp))
		cm.Recall = safeDiv(float64(tp), float64(tp+fn))
		cm.F1 = safeDiv(2*cm.Precision*cm.Recall, cm.Precision+cm.Recall)
		sum.PerClass[c] = cm

		sum.Macro.Precision += cm.Precision / float64(n)
		sum.Macro.Recall += cm.Recall / float64(n)
		sum.Macro.F1 += cm.F1 / float64(n)
		if total > 0 {
			w := float64(cm.Support) / float64(total)
			sum.Weighted.Precision += w * cm.Precision
			sum.Weighted.Recall += w * cm.Recall
			sum.Weighted.F1 += w * cm.F1
		}
	}
	return sum, nil
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
