package predictor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wqzhao/snakeid/internal/classes"
	"github.com/wqzhao/snakeid/internal/preprocess"
)

// stubClassifier returns a fixed distribution for every sample, or
// delegates to fn when set. Batch sizes seen by Infer are recorded.
type stubClassifier struct {
	n       int
	dist    []float32
	fn      func(batch [][]float32) ([][]float32, error)
	batches []int
}

func (s *stubClassifier) Infer(batch [][]float32) ([][]float32, error) {
	s.batches = append(s.batches, len(batch))
	if s.fn != nil {
		return s.fn(batch)
	}
	out := make([][]float32, len(batch))
	for i := range out {
		out[i] = s.dist
	}
	return out, nil
}

func (s *stubClassifier) NumClasses() int { return s.n }

func testRegistry(t *testing.T, n int) *classes.Registry {
	t.Helper()
	labels := make([]classes.Label, n)
	for i := range labels {
		labels[i] = classes.Label{CommonName: fmt.Sprintf("Species %d", i)}
	}
	reg, err := classes.New(labels)
	require.NoError(t, err)
	return reg
}

func testImage(t *testing.T, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 80, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestPredictOneRanksByProbability(t *testing.T) {
	reg := testRegistry(t, 3)
	clf := &stubClassifier{n: 3, dist: []float32{0.1, 0.7, 0.2}}
	p := New(clf, reg, nil, 0, nil)

	pred, err := p.PredictOne(preprocess.NewSample(testImage(t, "a.png")), 3)
	require.NoError(t, err)
	require.Len(t, pred.TopK, 3)
	assert.Equal(t, 1, pred.Top().Index)
	assert.Equal(t, "Species 1", pred.Top().Label.CommonName)
	assert.Equal(t, 2, pred.TopK[1].Index)
	assert.Equal(t, 0, pred.TopK[2].Index)
}

func TestRankBreaksTiesByAscendingIndex(t *testing.T) {
	reg := testRegistry(t, 3)
	clf := &stubClassifier{n: 3, dist: []float32{0.25, 0.5, 0.25}}
	p := New(clf, reg, nil, 0, nil)

	pred, err := p.PredictOne(preprocess.NewSample(testImage(t, "a.png")), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, pred.TopK[0].Index)
	assert.Equal(t, 0, pred.TopK[1].Index)
	assert.Equal(t, 2, pred.TopK[2].Index)
}

func TestPredictBatchTopKTruncates(t *testing.T) {
	reg := testRegistry(t, 5)
	clf := &stubClassifier{n: 5, dist: []float32{0.05, 0.1, 0.5, 0.3, 0.05}}
	p := New(clf, reg, nil, 0, nil)

	pred, err := p.PredictOne(preprocess.NewSample(testImage(t, "a.png")), 2)
	require.NoError(t, err)
	require.Len(t, pred.TopK, 2)
	assert.Equal(t, 2, pred.TopK[0].Index)
	assert.Equal(t, 3, pred.TopK[1].Index)
}

func TestPredictBatchInvalidTopK(t *testing.T) {
	reg := testRegistry(t, 3)
	p := New(&stubClassifier{n: 3}, reg, nil, 0, nil)
	samples := []preprocess.Sample{preprocess.NewSample("x.png")}

	for _, k := range []int{0, -1, 4} {
		_, err := p.PredictBatch(samples, k)
		assert.ErrorIs(t, err, ErrInvalidTopK, "top-k %d", k)
	}
}

func TestPredictBatchGroupsWithoutReordering(t *testing.T) {
	reg := testRegistry(t, 2)
	clf := &stubClassifier{n: 2, dist: []float32{0.8, 0.2}}
	p := New(clf, reg, nil, 2, nil)

	samples := make([]preprocess.Sample, 5)
	for i := range samples {
		samples[i] = preprocess.NewSample(testImage(t, fmt.Sprintf("s%d.png", i)))
	}

	results, err := p.PredictBatch(samples, 1)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, []int{2, 2, 1}, clf.batches)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, samples[i].Path, r.Sample.Path, "result %d out of order", i)
		assert.Equal(t, 0, r.Prediction.Top().Index)
	}
}

func TestPredictBatchIsolatesPreprocessingFailures(t *testing.T) {
	reg := testRegistry(t, 2)
	clf := &stubClassifier{n: 2, dist: []float32{0.6, 0.4}}
	p := New(clf, reg, nil, 0, nil)

	broken := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(broken, []byte("not an image"), 0o644))

	samples := []preprocess.Sample{
		preprocess.NewSample(testImage(t, "ok0.png")),
		preprocess.NewSample(broken),
		preprocess.NewSample(testImage(t, "ok2.png")),
	}

	results, err := p.PredictBatch(samples, 1)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Prediction)
	assert.ErrorIs(t, results[1].Err, ErrPreprocessingFailed)
	assert.Nil(t, results[1].Prediction)
	assert.NoError(t, results[2].Err)
	assert.NotNil(t, results[2].Prediction)
}

func TestPredictBatchInferenceErrorIsFatal(t *testing.T) {
	reg := testRegistry(t, 2)
	boom := errors.New("session exploded")
	clf := &stubClassifier{n: 2, fn: func([][]float32) ([][]float32, error) {
		return nil, boom
	}}
	p := New(clf, reg, nil, 0, nil)

	_, err := p.PredictBatch([]preprocess.Sample{preprocess.NewSample(testImage(t, "a.png"))}, 1)
	assert.ErrorIs(t, err, boom)
}

func TestPredictBatchAllFailedSkipsInference(t *testing.T) {
	reg := testRegistry(t, 2)
	clf := &stubClassifier{n: 2, dist: []float32{0.5, 0.5}}
	p := New(clf, reg, nil, 0, nil)

	broken := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(broken, []byte("junk"), 0o644))

	results, err := p.PredictBatch([]preprocess.Sample{preprocess.NewSample(broken)}, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, ErrPreprocessingFailed)
	assert.Empty(t, clf.batches)
}
