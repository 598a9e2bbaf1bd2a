// Package classes holds the species registry: the ordered mapping from
// model output indices to snake species identities.
package classes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var (
	ErrUnknownClassIndex = errors.New("unknown class index")
	ErrEmptyClassSet     = errors.New("empty class set")
)

// Label identifies one species category. Index is the position the
// model was trained with and is the only key used by the classifier
// output and the confusion matrix.
type Label struct {
	Index          int    `json:"index"`
	LocalName      string `json:"local_name"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
}

// Registry is an ordered, immutable set of class labels. Indices are
// dense and zero-based, assigned once at construction.
type Registry struct {
	labels []Label
}

// New builds a registry from the given labels in order, assigning
// dense indices. Fails with ErrEmptyClassSet when no labels are given.
func New(labels []Label) (*Registry, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyClassSet
	}
	owned := make([]Label, len(labels))
	copy(owned, labels)
	for i := range owned {
		owned[i].Index = i
	}
	return &Registry{labels: owned}, nil
}

// Default returns the built-in five-species registry with local,
// English and scientific names.
func Default() *Registry {
	r, _ := New([]Label{
		{LocalName: "北方水蛇", CommonName: "Northern Watersnake", ScientificName: "Nerodia sipedon"},
		{LocalName: "普通袜带蛇", CommonName: "Common Garter snake", ScientificName: "Thamnophis sirtalis"},
		{LocalName: "德凯棕蛇", CommonName: "DeKays Brown snake", ScientificName: "Storeria dekayi"},
		{LocalName: "黑鼠蛇", CommonName: "Black Rat snake", ScientificName: "Pantherophis obsoletus"},
		{LocalName: "西部菱斑响尾蛇", CommonName: "Western Diamondback rattlesnake", ScientificName: "Crotalus atrox"},
	})
	return r
}

// FromDataset derives the registry from the class subdirectories of a
// dataset split. Directory names are case-sensitive and sorted
// lexicographically so the index assignment does not depend on
// filesystem iteration order. Hidden directories are ignored.
func FromDataset(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan dataset dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no class directories under %s", ErrEmptyClassSet, dir)
	}
	sort.Strings(names)
	labels := make([]Label, len(names))
	for i, name := range names {
		labels[i] = Label{CommonName: name}
	}
	return New(labels)
}

// classConfig mirrors the on-disk class_config.json layout: parallel
// name lists per language, index-aligned.
type classConfig struct {
	SnakeClasses struct {
		Chinese    []string `json:"chinese"`
		English    []string `json:"english"`
		Scientific []string `json:"scientific"`
	} `json:"snake_classes"`
}

// LoadConfig reads a registry from a class-config JSON file. The
// english list defines the class count; the other lists may be shorter
// and are padded with empty names.
func LoadConfig(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class config: %w", err)
	}
	var cfg classConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse class config: %w", err)
	}
	english := cfg.SnakeClasses.English
	if len(english) == 0 {
		return nil, fmt.Errorf("%w: class config %s lists no english names", ErrEmptyClassSet, path)
	}
	labels := make([]Label, len(english))
	for i, name := range english {
		labels[i] = Label{CommonName: name}
		if i < len(cfg.SnakeClasses.Chinese) {
			labels[i].LocalName = cfg.SnakeClasses.Chinese[i]
		}
		if i < len(cfg.SnakeClasses.Scientific) {
			labels[i].ScientificName = cfg.SnakeClasses.Scientific[i]
		}
	}
	return New(labels)
}

// Resolve returns the label at the given index.
func (r *Registry) Resolve(index int) (Label, error) {
	if index < 0 || index >= len(r.labels) {
		return Label{}, fmt.Errorf("%w: %d (registry has %d classes)", ErrUnknownClassIndex, index, len(r.labels))
	}
	return r.labels[index], nil
}

// Size returns the number of classes.
func (r *Registry) Size() int {
	return len(r.labels)
}

// Labels returns a copy of the ordered label list.
func (r *Registry) Labels() []Label {
	out := make([]Label, len(r.labels))
	copy(out, r.labels)
	return out
}
