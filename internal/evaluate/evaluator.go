// Package evaluate runs the predictor over a labeled dataset split and
// aggregates the outcomes into a confusion matrix and derived metrics.
package evaluate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/classes"
	"github.com/wqzhao/snakeid/internal/predictor"
)

// Evaluator aggregates predictions against ground truth. One evaluator
// run exclusively owns the matrix it builds.
type Evaluator struct {
	pred *predictor.Predictor
	reg  *classes.Registry
	log  *zap.Logger
}

// Outcome is the finalized result of one evaluation run. Immutable
// once returned.
type Outcome struct {
	Split       string
	Matrix      *ConfusionMatrix
	Predictions []predictor.Result
	// Failures holds samples whose preprocessing failed; they are
	// excluded from the matrix and reported alongside it.
	Failures []predictor.Result
	// Loss is the mean cross-entropy of the true class over all
	// scored samples.
	Loss float64
}

// New builds an evaluator over the given predictor and registry.
func New(pred *predictor.Predictor, reg *classes.Registry, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{pred: pred, reg: reg, log: log}
}

// Evaluate classifies every sample of the split and increments the
// confusion matrix cell (true, top-1 predicted) once per sample. Every
// sample must carry a ground-truth label; an unlabeled sample fails
// the whole run with ErrMissingLabel. The run is deterministic: the
// same split and artifact produce an identical outcome.
func (e *Evaluator) Evaluate(split *Split) (*Outcome, error) {
	for _, s := range split.Samples {
		if s.Label < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingLabel, s.Path)
		}
		if s.Label >= e.reg.Size() {
			return nil, fmt.Errorf("%w: label %d for %s (registry has %d classes)",
				classes.ErrUnknownClassIndex, s.Label, s.Path, e.reg.Size())
		}
	}

	e.log.Info("evaluating split",
		zap.String("split", split.Name),
		zap.Int("samples", split.Size()),
		zap.Int("classes", e.reg.Size()))

	// The full ranking is requested so the true-class probability is
	// available for the loss; the matrix only ever uses the top-1.
	results, err := e.pred.PredictBatch(split.Samples, e.reg.Size())
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Split: split.Name, Matrix: NewConfusionMatrix(e.reg.Size())}
	var lossSum float64
	scored := 0
	for _, r := range results {
		if r.Err != nil {
			outcome.Failures = append(outcome.Failures, r)
			e.log.Warn("sample excluded from evaluation",
				zap.String("path", r.Sample.Path), zap.Error(r.Err))
			continue
		}
		if err := outcome.Matrix.Add(r.Sample.Label, r.Prediction.Top().Index); err != nil {
			return nil, err
		}
		lossSum += crossEntropy(r.Prediction, r.Sample.Label)
		scored++
		outcome.Predictions = append(outcome.Predictions, r)
	}
	if scored > 0 {
		outcome.Loss = lossSum / float64(scored)
	}

	e.log.Info("evaluation finished",
		zap.String("split", split.Name),
		zap.Int("scored", scored),
		zap.Int("failed", len(outcome.Failures)),
		zap.Float64("accuracy", outcome.Matrix.Accuracy()))

	return outcome, nil
}

// crossEntropy returns -ln(p_true) for one prediction, clamped so a
// zero probability stays finite.
func crossEntropy(p *predictor.Prediction, trueIdx int) float64 {
	const floor = 1e-12
	prob := floor
	for _, s := range p.TopK {
		if s.Index == trueIdx {
			prob = math.Max(float64(s.Probability), floor)
			break
		}
	}
	return -math.Log(prob)
}
