// Package model loads the trained classifier artifact and runs batched
// forward passes through onnxruntime.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/wqzhao/snakeid/internal/classes"
	"github.com/wqzhao/snakeid/internal/device"
	"github.com/wqzhao/snakeid/internal/preprocess"
)

var ErrArtifactLoad = errors.New("model artifact load failed")

// Metadata is the sidecar JSON exported next to the ONNX artifact. The
// class list carries the class count the model was trained against and
// must match the registry the model is served with.
type Metadata struct {
	InputName  string   `json:"input_name"`
	OutputName string   `json:"output_name"`
	ImageSize  int      `json:"image_size"`
	Classes    []string `json:"classes"`
}

// Classifier maps preprocessed batches to per-class probability
// distributions. Implemented by Model; tests substitute stubs.
type Classifier interface {
	Infer(batch [][]float32) ([][]float32, error)
	NumClasses() int
}

// Model wraps one loaded ONNX session. The artifact is immutable for
// the model's lifetime and safe for concurrent readers; Run calls are
// serialized by onnxruntime internally.
type Model struct {
	session *ort.DynamicAdvancedSession
	meta    Metadata
	dev     device.Handle
	log     *zap.Logger
}

// Load reads the metadata sidecar, validates it against the registry
// and creates an inference session on the selected device. A missing
// file, corrupt serialization or class-count mismatch fails with
// ErrArtifactLoad; the loader never truncates or pads a mismatched
// classifier head.
func Load(modelPath, metaPath string, reg *classes.Registry, dev device.Handle, log *zap.Logger) (*Model, error) {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read metadata: %v", ErrArtifactLoad, err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: parse metadata: %v", ErrArtifactLoad, err)
	}
	if meta.InputName == "" {
		meta.InputName = "input"
	}
	if meta.OutputName == "" {
		meta.OutputName = "output"
	}
	if meta.ImageSize == 0 {
		meta.ImageSize = preprocess.Side
	}
	if len(meta.Classes) == 0 {
		return nil, fmt.Errorf("%w: metadata %s lists no classes", ErrArtifactLoad, metaPath)
	}
	if len(meta.Classes) != reg.Size() {
		return nil, fmt.Errorf("%w: artifact trained for %d classes, registry has %d",
			ErrArtifactLoad, len(meta.Classes), reg.Size())
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactLoad, err)
	}

	if err := device.EnsureRuntime(); err != nil {
		return nil, fmt.Errorf("%w: initialize onnxruntime: %v", ErrArtifactLoad, err)
	}
	opts, err := sessionOptions(dev)
	if err != nil {
		return nil, fmt.Errorf("%w: session options: %v", ErrArtifactLoad, err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrArtifactLoad, err)
	}

	log.Info("model loaded",
		zap.String("path", modelPath),
		zap.Int("classes", len(meta.Classes)),
		zap.String("device", dev.Name))

	return &Model{session: session, meta: meta, dev: dev, log: log}, nil
}

// sessionOptions appends the execution provider for the selected
// backend. CPU needs no provider; it is the terminal fallback.
func sessionOptions(dev device.Handle) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	switch dev.Kind {
	case device.CUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			opts.Destroy()
			return nil, err
		}
		defer cuda.Destroy()
		if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
			opts.Destroy()
			return nil, err
		}
	case device.CoreML:
		if err := opts.AppendExecutionProviderCoreML(0); err != nil {
			opts.Destroy()
			return nil, err
		}
	}
	return opts, nil
}

// Metadata returns the artifact metadata the model was loaded with.
func (m *Model) Metadata() Metadata {
	return m.meta
}

// NumClasses returns the class count embedded in the artifact.
func (m *Model) NumClasses() int {
	return len(m.meta.Classes)
}

// Device returns the backend the session runs on.
func (m *Model) Device() device.Handle {
	return m.dev
}

// Infer runs one forward pass over the batch ([N,3,S,S] in, [N,C] out)
// and returns one softmax distribution per input, in input order. The
// input tensor is created on the selected device for the duration of
// the call; the artifact itself is never mutated.
func (m *Model) Infer(batch [][]float32) ([][]float32, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	side := m.meta.ImageSize
	per := preprocess.Channels * side * side
	data := make([]float32, 0, len(batch)*per)
	for i, t := range batch {
		if len(t) != per {
			return nil, fmt.Errorf("input %d: expected %d values, got %d", i, per, len(t))
		}
		data = append(data, t...)
	}

	input, err := ort.NewTensor(ort.NewShape(int64(len(batch)), preprocess.Channels, int64(side), int64(side)), data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := make([]ort.Value, 1)
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	logits := outputs[0].(*ort.Tensor[float32]).GetData()
	n := m.NumClasses()
	if len(logits) != len(batch)*n {
		return nil, fmt.Errorf("unexpected output size %d for batch of %d", len(logits), len(batch))
	}

	dists := make([][]float32, len(batch))
	for i := range dists {
		dists[i] = Softmax(logits[i*n : (i+1)*n])
	}
	return dists, nil
}

// Close destroys the session. The shared runtime environment is owned
// by the device package and torn down at process exit.
func (m *Model) Close() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}

// Softmax converts logits to a probability distribution, shifting by
// the max logit for numerical stability.
func Softmax(logits []float32) []float32 {
	probs := make([]float32, len(logits))
	if len(logits) == 0 {
		return probs
	}
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		probs[i] = float32(e)
		sum += e
	}
	for i := range probs {
		probs[i] = float32(float64(probs[i]) / sum)
	}
	return probs
}
