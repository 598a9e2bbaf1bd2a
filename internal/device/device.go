// Package device selects the execution backend for inference and owns
// the shared onnxruntime environment lifecycle.
package device

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Kind enumerates the supported execution backends.
type Kind int

const (
	CPU Kind = iota
	CUDA
	CoreML
)

func (k Kind) String() string {
	switch k {
	case CUDA:
		return "cuda"
	case CoreML:
		return "coreml"
	default:
		return "cpu"
	}
}

// Handle names the backend a session should run on.
type Handle struct {
	Kind Kind
	Name string
}

var (
	runtimeOnce sync.Once
	runtimeErr  error

	autoOnce sync.Once
	autoPick Handle
)

// EnsureRuntime initializes the shared onnxruntime environment once
// per process. The shared library location can be overridden with the
// ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable.
func EnsureRuntime() error {
	runtimeOnce.Do(func() {
		if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		runtimeErr = ort.InitializeEnvironment()
	})
	return runtimeErr
}

// ShutdownRuntime releases the shared environment. Call once at
// process exit, after all sessions are closed.
func ShutdownRuntime() {
	if runtimeErr == nil {
		_ = ort.DestroyEnvironment()
	}
}

// Select maps a device preference to a backend handle. "auto" probes
// CUDA, then CoreML, then falls back to CPU; the probe runs once and
// the pick is cached for the process lifetime. CPU is always
// available, so "auto" and "cpu" never fail. An explicit preference
// for an unavailable backend is a configuration error.
func Select(preference string) (Handle, error) {
	switch preference {
	case "", "auto":
		autoOnce.Do(func() { autoPick = probe() })
		return autoPick, nil
	case "cpu":
		return Handle{Kind: CPU, Name: "cpu"}, nil
	case "gpu":
		if !cudaAvailable() {
			return Handle{}, fmt.Errorf("device preference %q: CUDA is not available", preference)
		}
		return Handle{Kind: CUDA, Name: "cuda"}, nil
	case "accelerator":
		if !coremlAvailable() {
			return Handle{}, fmt.Errorf("device preference %q: CoreML is not available", preference)
		}
		return Handle{Kind: CoreML, Name: "coreml"}, nil
	default:
		return Handle{}, fmt.Errorf("unrecognized device preference %q (want cpu, gpu, accelerator or auto)", preference)
	}
}

func probe() Handle {
	if cudaAvailable() {
		return Handle{Kind: CUDA, Name: "cuda"}
	}
	if coremlAvailable() {
		return Handle{Kind: CoreML, Name: "coreml"}
	}
	return Handle{Kind: CPU, Name: "cpu"}
}

// cudaAvailable checks whether CUDA provider options can be created.
// Requires the runtime environment, so a missing shared library also
// reads as "no CUDA".
func cudaAvailable() bool {
	if EnsureRuntime() != nil {
		return false
	}
	opts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return false
	}
	_ = opts.Destroy()
	return true
}

func coremlAvailable() bool {
	return runtime.GOOS == "darwin" && EnsureRuntime() == nil
}
