package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCPU(t *testing.T) {
	h, err := Select("cpu")
	require.NoError(t, err)
	assert.Equal(t, CPU, h.Kind)
	assert.Equal(t, "cpu", h.Name)
}

func TestSelectAutoNeverFails(t *testing.T) {
	h, err := Select("auto")
	require.NoError(t, err)
	assert.NotEmpty(t, h.Name)
}

func TestSelectAutoIsCached(t *testing.T) {
	first, err := Select("auto")
	require.NoError(t, err)
	second, err := Select("")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSelectUnrecognized(t *testing.T) {
	_, err := Select("quantum")
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "cpu", CPU.String())
	assert.Equal(t, "cuda", CUDA.String())
	assert.Equal(t, "coreml", CoreML.String())
}
