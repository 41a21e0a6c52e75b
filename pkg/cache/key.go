package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/evosearch/demova/pkg/demography"
)

// KeyGenerator derives deterministic cache keys from evaluation inputs. Two
// evaluations share a key exactly when the engine, its grid, the model
// structure, and every parameter value agree; map iteration order never
// leaks into the key.
type KeyGenerator struct {
	prefix string
}

// NewKeyGenerator creates a key generator. Keys are prefixed so unrelated
// uses of one cache file stay distinguishable.
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "demova_"
	}
	return &KeyGenerator{prefix: prefix}
}

// Key builds the cache key for one fitness evaluation.
func (g *KeyGenerator) Key(engineName string, grid []int, model *demography.Model, values map[string]demography.Value) string {
	var b strings.Builder
	b.WriteString(engineName)
	b.WriteString("|")
	for i, n := range grid {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%d", n)
	}
	b.WriteString("|")
	b.WriteString(modelSignature(model))
	b.WriteString("|")
	b.WriteString(valuesSignature(values))

	h := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s%s_%s", g.prefix, engineName, hex.EncodeToString(h[:])[:16])
}

// modelSignature encodes the model structure: event counts plus each
// variable's name and kind in introduction order.
func modelSignature(model *demography.Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "e%d/s%d/p%d:",
		len(model.Epochs()), len(model.Splits()), model.NumberOfPopulations())
	for i, v := range model.Variables() {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%s(%s)", v.Name(), v.Kind())
	}
	return b.String()
}

// valuesSignature encodes the assignment sorted by variable name, floats at
// fixed precision so representation noise cannot split keys.
func valuesSignature(values map[string]demography.Value) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		switch x := values[name].(type) {
		case float64:
			parts = append(parts, fmt.Sprintf("%s=%.12g", name, x))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", name, x))
		}
	}
	return strings.Join(parts, "|")
}
