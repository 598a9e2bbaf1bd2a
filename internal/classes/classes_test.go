package classes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()
	require.Equal(t, 5, reg.Size())

	first, err := reg.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "Northern Watersnake", first.CommonName)
	assert.Equal(t, "Nerodia sipedon", first.ScientificName)
	assert.Equal(t, "北方水蛇", first.LocalName)

	last, err := reg.Resolve(4)
	require.NoError(t, err)
	assert.Equal(t, "Western Diamondback rattlesnake", last.CommonName)
}

func TestResolveOutOfRange(t *testing.T) {
	reg := Default()
	for _, idx := range []int{-1, 5, 100} {
		_, err := reg.Resolve(idx)
		assert.ErrorIs(t, err, ErrUnknownClassIndex, "index %d", idx)
	}
}

func TestNewAssignsDenseIndices(t *testing.T) {
	reg, err := New([]Label{
		{Index: 7, CommonName: "B"},
		{Index: 3, CommonName: "A"},
	})
	require.NoError(t, err)
	labels := reg.Labels()
	assert.Equal(t, 0, labels[0].Index)
	assert.Equal(t, "B", labels[0].CommonName)
	assert.Equal(t, 1, labels[1].Index)
}

func TestNewEmpty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmptyClassSet)
}

func TestFromDatasetSortsDeterministically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Garter", "Black Rat", "Watersnake", ".hidden"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	reg, err := FromDataset(dir)
	require.NoError(t, err)
	require.Equal(t, 3, reg.Size())

	labels := reg.Labels()
	assert.Equal(t, "Black Rat", labels[0].CommonName)
	assert.Equal(t, "Garter", labels[1].CommonName)
	assert.Equal(t, "Watersnake", labels[2].CommonName)
}

func TestFromDatasetEmpty(t *testing.T) {
	_, err := FromDataset(t.TempDir())
	assert.ErrorIs(t, err, ErrEmptyClassSet)
}

func TestFromDatasetMissingDir(t *testing.T) {
	_, err := FromDataset(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_config.json")
	payload := `{
  "snake_classes": {
    "chinese": ["北方水蛇", "普通袜带蛇"],
    "english": ["Northern Watersnake", "Common Garter snake"],
    "scientific": ["Nerodia sipedon", "Thamnophis sirtalis"]
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	reg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Size())

	l, err := reg.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "Common Garter snake", l.CommonName)
	assert.Equal(t, "普通袜带蛇", l.LocalName)
	assert.Equal(t, "Thamnophis sirtalis", l.ScientificName)
}

func TestLoadConfigNoEnglishNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"snake_classes":{}}`), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrEmptyClassSet)
}

func TestLabelsReturnsCopy(t *testing.T) {
	reg := Default()
	labels := reg.Labels()
	labels[0].CommonName = "mutated"

	fresh, err := reg.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, "Northern Watersnake", fresh.CommonName)
}
