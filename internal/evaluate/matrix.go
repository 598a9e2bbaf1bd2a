package evaluate

import (
	"fmt"

	"github.com/wqzhao/snakeid/internal/classes"
)

// ConfusionMatrix counts, for every pair of true class r and predicted
// class c, how many evaluated samples with true label r were predicted
// as c. Mutated only by the evaluator that owns the run; read-only
// once the run finishes.
type ConfusionMatrix struct {
	n     int
	cells [][]int
}

// NewConfusionMatrix returns an n-by-n matrix with all cells zero.
func NewConfusionMatrix(n int) *ConfusionMatrix {
	cells := make([][]int, n)
	for i := range cells {
		cells[i] = make([]int, n)
	}
	return &ConfusionMatrix{n: n, cells: cells}
}

// Size returns the class count (the matrix is square).
func (m *ConfusionMatrix) Size() int {
	return m.n
}

// Add increments the (trueIdx, predIdx) cell by one.
func (m *ConfusionMatrix) Add(trueIdx, predIdx int) error {
	if trueIdx < 0 || trueIdx >= m.n || predIdx < 0 || predIdx >= m.n {
		return fmt.Errorf("%w: cell (%d,%d) outside %dx%d matrix",
			classes.ErrUnknownClassIndex, trueIdx, predIdx, m.n, m.n)
	}
	m.cells[trueIdx][predIdx]++
	return nil
}

// At returns the count of samples with true class t predicted as p.
func (m *ConfusionMatrix) At(t, p int) int {
	return m.cells[t][p]
}

// RowSum returns the support of true class t.
func (m *ConfusionMatrix) RowSum(t int) int {
	sum := 0
	for _, v := range m.cells[t] {
		sum += v
	}
	return sum
}

// ColSum returns how many samples were predicted as class p.
func (m *ConfusionMatrix) ColSum(p int) int {
	sum := 0
	for t := 0; t < m.n; t++ {
		sum += m.cells[t][p]
	}
	return sum
}

// Total returns the number of counted samples.
func (m *ConfusionMatrix) Total() int {
	sum := 0
	for t := 0; t < m.n; t++ {
		sum += m.RowSum(t)
	}
	return sum
}

// Trace returns the number of correctly classified samples.
func (m *ConfusionMatrix) Trace() int {
	sum := 0
	for i := 0; i < m.n; i++ {
		sum += m.cells[i][i]
	}
	return sum
}

// Accuracy returns trace/total, or 0 for an empty matrix.
func (m *ConfusionMatrix) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	return float64(m.Trace()) / float64(total)
}
