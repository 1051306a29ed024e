package token

import (
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	apperrors "github.com/turtacn/smartscanon/pkg/errors"
)

// DefaultEmbedding is the preset used when no embedding is named.
const DefaultEmbedding = "drugbank"

//go:embed embeddings/*.yaml
var presetFS embed.FS

// Embedding assigns a weight to every primitive.  Lower weights order first,
// so rare primitives anchor the canonical traversal.
type Embedding struct {
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Default     float64            `yaml:"default" json:"default"`
	Weights     map[string]float64 `yaml:"weights" json:"weights"`
}

// Weight returns the weight of primitive, or the table default when the
// primitive is not listed.
func (e *Embedding) Weight(primitive string) float64 {
	if e == nil {
		return 0
	}
	if w, ok := e.Weights[primitive]; ok {
		return w
	}
	return e.Default
}

// Keys returns the listed primitives in sorted order.
func (e *Embedding) Keys() []string {
	keys := make([]string, 0, len(e.Weights))
	for k := range e.Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewEmbedding builds an embedding from an explicit table.
func NewEmbedding(name string, weights map[string]float64) *Embedding {
	cp := make(map[string]float64, len(weights))
	for k, v := range weights {
		cp[k] = v
	}
	return &Embedding{Name: name, Weights: cp}
}

// RandomEmbedding draws a weight in [0,1) for every vocabulary primitive.
// Keys are visited in sorted order so a seeded rng is reproducible.
func RandomEmbedding(rng *rand.Rand) *Embedding {
	vocab := Vocabulary()
	weights := make(map[string]float64, len(vocab))
	for _, p := range vocab {
		weights[p] = rng.Float64()
	}
	return &Embedding{Name: "random", Weights: weights}
}

var (
	presetsOnce sync.Once
	presets     map[string]*Embedding
	presetsErr  error
)

func loadPresets() {
	presets = make(map[string]*Embedding)
	entries, err := presetFS.ReadDir("embeddings")
	if err != nil {
		presetsErr = err
		return
	}
	for _, entry := range entries {
		data, err := presetFS.ReadFile(path.Join("embeddings", entry.Name()))
		if err != nil {
			presetsErr = err
			return
		}
		emb, err := decodeEmbedding(data)
		if err != nil {
			presetsErr = fmt.Errorf("preset %s: %w", entry.Name(), err)
			return
		}
		if emb.Name == "" {
			emb.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		presets[emb.Name] = emb
	}
}

// Presets returns the names of the embedded presets in sorted order.
func Presets() []string {
	presetsOnce.Do(loadPresets)
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupEmbedding returns the named preset.  An empty name selects the default.
func LookupEmbedding(name string) (*Embedding, error) {
	presetsOnce.Do(loadPresets)
	if presetsErr != nil {
		return nil, apperrors.Wrap(presetsErr, apperrors.ErrCodeInvalidEmbedding, "failed to load embedding presets")
	}
	if name == "" {
		name = DefaultEmbedding
	}
	emb, ok := presets[name]
	if !ok {
		return nil, apperrors.UnknownEmbedding(name).WithDetail("known: " + strings.Join(Presets(), ", "))
	}
	return emb, nil
}

// LoadEmbeddingFile reads a YAML embedding table from disk.  The file either
// uses the preset layout (name/default/weights) or is a flat primitive→weight map.
func LoadEmbeddingFile(filename string) (*Embedding, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidEmbedding, "failed to read embedding file").WithDetail(filename)
	}
	emb, err := decodeEmbedding(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidEmbedding, "failed to decode embedding file").WithDetail(filename)
	}
	if emb.Name == "" {
		emb.Name = strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	}
	return emb, nil
}

func decodeEmbedding(data []byte) (*Embedding, error) {
	var probe map[string]interface{}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	_, hasWeights := probe["weights"]
	_, hasDefault := probe["default"]
	if hasWeights || hasDefault {
		var emb Embedding
		if err := yaml.Unmarshal(data, &emb); err != nil {
			return nil, err
		}
		if emb.Weights == nil {
			emb.Weights = map[string]float64{}
		}
		return &emb, nil
	}
	var flat map[string]float64
	if err := yaml.Unmarshal(data, &flat); err != nil {
		return nil, err
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("no weights")
	}
	return &Embedding{Weights: flat}, nil
}

//Personal.AI order the ending
