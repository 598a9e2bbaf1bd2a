package evaluate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wqzhao/snakeid/internal/classes"
	"github.com/wqzhao/snakeid/internal/preprocess"
)

var ErrMissingLabel = errors.New("sample missing ground-truth label")

// imageExts lists the file extensions the dataset loader picks up.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Split is one labeled slice of the dataset (train, validation or
// test): a flat sample list where every sample carries the class index
// of the subdirectory it came from.
type Split struct {
	Name    string
	Samples []preprocess.Sample
}

// Size returns the number of samples in the split.
func (s *Split) Size() int {
	return len(s.Samples)
}

// LoadSplit walks <root>/<name>, expecting one subdirectory per class.
// Class directories and files are visited in sorted order so the
// sample sequence is deterministic. Every class directory must resolve
// to a registry label by its common name.
func LoadSplit(root, name string, reg *classes.Registry) (*Split, error) {
	dir := filepath.Join(root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read split %s: %w", name, err)
	}

	byName := make(map[string]int, reg.Size())
	for _, l := range reg.Labels() {
		byName[l.CommonName] = l.Index
	}

	var classDirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			classDirs = append(classDirs, e.Name())
		}
	}
	sort.Strings(classDirs)
	if len(classDirs) == 0 {
		return nil, fmt.Errorf("%w: split %s has no class directories", classes.ErrEmptyClassSet, name)
	}

	split := &Split{Name: name}
	for _, className := range classDirs {
		idx, ok := byName[className]
		if !ok {
			return nil, fmt.Errorf("class directory %q in split %s is not in the registry", className, name)
		}
		files, err := os.ReadDir(filepath.Join(dir, className))
		if err != nil {
			return nil, fmt.Errorf("read class dir %s: %w", className, err)
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if f.IsDir() || !imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			names = append(names, f.Name())
		}
		sort.Strings(names)
		for _, fn := range names {
			split.Samples = append(split.Samples, preprocess.Sample{
				Path:  filepath.Join(dir, className, fn),
				Label: idx,
			})
		}
	}
	return split, nil
}
