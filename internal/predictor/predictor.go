// Package predictor orchestrates preprocessing and batched inference
// into ranked top-k predictions.
package predictor

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/classes"
	"github.com/wqzhao/snakeid/internal/model"
	"github.com/wqzhao/snakeid/internal/preprocess"
)

var (
	ErrInvalidTopK         = errors.New("invalid top-k")
	ErrPreprocessingFailed = errors.New("preprocessing failed")
)

// DefaultBatchSize matches the batch size the model was trained and
// evaluated with.
const DefaultBatchSize = 32

// Score pairs one class with its predicted probability.
type Score struct {
	Index       int           `json:"index"`
	Label       classes.Label `json:"label"`
	Probability float32       `json:"probability"`
}

// Prediction is the ranked top-k outcome for one sample, sorted by
// probability descending with ties broken by ascending class index.
// Never mutated after creation.
type Prediction struct {
	Sample preprocess.Sample `json:"-"`
	TopK   []Score           `json:"top_k"`
}

// Top returns the highest-ranked score.
func (p *Prediction) Top() Score {
	return p.TopK[0]
}

// Result couples a sample with either its prediction or its per-sample
// error. A batch always yields one Result per input, in input order.
type Result struct {
	Sample     preprocess.Sample
	Prediction *Prediction
	Err        error
}

// Predictor runs samples through the preprocessor and classifier in
// fixed-size batches.
type Predictor struct {
	clf       model.Classifier
	reg       *classes.Registry
	pre       *preprocess.Preprocessor
	batchSize int
	log       *zap.Logger
}

// New builds a predictor. A nil preprocessor selects the deterministic
// evaluation transform; batchSize <= 0 selects DefaultBatchSize.
func New(clf model.Classifier, reg *classes.Registry, pre *preprocess.Preprocessor, batchSize int, log *zap.Logger) *Predictor {
	if pre == nil {
		pre = preprocess.New()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Predictor{clf: clf, reg: reg, pre: pre, batchSize: batchSize, log: log}
}

// PredictOne classifies a single sample.
func (p *Predictor) PredictOne(sample preprocess.Sample, topK int) (*Prediction, error) {
	results, err := p.PredictBatch([]preprocess.Sample{sample}, topK)
	if err != nil {
		return nil, err
	}
	if results[0].Err != nil {
		return nil, results[0].Err
	}
	return results[0].Prediction, nil
}

// PredictBatch classifies samples in input order. Samples are grouped
// into batches and each batch takes one forward pass; grouping never
// reorders or drops samples. A sample that fails preprocessing gets a
// per-sample ErrPreprocessingFailed result and the rest of the batch
// continues. Inference errors are fatal to the whole call.
func (p *Predictor) PredictBatch(samples []preprocess.Sample, topK int) ([]Result, error) {
	if topK < 1 || topK > p.reg.Size() {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidTopK, topK, p.reg.Size())
	}

	results := make([]Result, len(samples))
	for start := 0; start < len(samples); start += p.batchSize {
		end := min(start+p.batchSize, len(samples))
		if err := p.runBatch(samples[start:end], results[start:end], topK); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (p *Predictor) runBatch(samples []preprocess.Sample, out []Result, topK int) error {
	batch := make([][]float32, 0, len(samples))
	slots := make([]int, 0, len(samples))
	for i, s := range samples {
		out[i].Sample = s
		t, err := p.pre.Transform(s)
		if err != nil {
			out[i].Err = fmt.Errorf("%w: %v", ErrPreprocessingFailed, err)
			p.log.Warn("sample failed preprocessing", zap.String("path", s.Path), zap.Error(err))
			continue
		}
		batch = append(batch, t.Data)
		slots = append(slots, i)
	}
	if len(batch) == 0 {
		return nil
	}

	dists, err := p.clf.Infer(batch)
	if err != nil {
		return fmt.Errorf("infer batch of %d: %w", len(batch), err)
	}
	for j, i := range slots {
		out[i].Prediction = &Prediction{Sample: samples[i], TopK: p.rank(dists[j], topK)}
	}
	return nil
}

// rank selects the topK highest-probability classes using a full sort.
// Equal probabilities order by ascending class index so rankings are
// deterministic.
func (p *Predictor) rank(dist []float32, topK int) []Score {
	scores := make([]Score, len(dist))
	for i, prob := range dist {
		label, _ := p.reg.Resolve(i)
		scores[i] = Score{Index: i, Label: label, Probability: prob}
	}
	sort.Slice(scores, func(a, b int) bool {
		if scores[a].Probability != scores[b].Probability {
			return scores[a].Probability > scores[b].Probability
		}
		return scores[a].Index < scores[b].Index
	})
	return scores[:topK]
}
