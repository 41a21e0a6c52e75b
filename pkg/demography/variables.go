// Package demography defines the searchable representation of demographic
// models: typed bounded variables, epoch/split event sequences, and the
// fix/unfix overlay used to freeze parameters during a search.
package demography

import (
	"math"
	"math/rand"

	"github.com/evosearch/demova/pkg/errors"
)

// Kind discriminates how a variable's domain is described.
type Kind int

const (
	KindContinuous Kind = iota
	KindDiscrete
)

func (k Kind) String() string {
	switch k {
	case KindContinuous:
		return "continuous"
	case KindDiscrete:
		return "discrete"
	default:
		return "unknown"
	}
}

// Value is a sampled variable value. Continuous variables produce float64,
// discrete variables produce whatever their domain holds (float64 for
// numeric domains, string for dynamics tags).
type Value = interface{}

// Variable is a named parameter of a demographic model. Implementations are
// immutable after construction; Resample draws only from the declared
// domain.
type Variable interface {
	Name() string
	Kind() Kind
	// Resample draws a fresh value using the supplied source of randomness.
	Resample(rng *rand.Rand) Value
	// Bounds reports the numeric [lower, upper] limits of the domain.
	// Discrete variables support it only when every domain value is numeric.
	Bounds() (float64, float64, error)
	// PossibleValues enumerates a discrete domain. Continuous variables
	// have no enumeration and return an error.
	PossibleValues() ([]Value, error)
}

// VariablesEqual reports whether two variables denote the same parameter.
// Identity is name plus kind; domains do not participate.
func VariablesEqual(a, b Variable) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name() && a.Kind() == b.Kind()
}

// ContinuousVariable is a real-valued parameter with inclusive bounds.
// Population sizes resample log-uniformly so that small and large sizes are
// explored with equal weight; all other classes resample uniformly.
type ContinuousVariable struct {
	name       string
	lower      float64
	upper      float64
	logUniform bool
}

// ContinuousOption adjusts a typed constructor's defaults.
type ContinuousOption func(*ContinuousVariable)

// WithBounds overrides the default domain of a typed constructor.
func WithBounds(lower, upper float64) ContinuousOption {
	return func(v *ContinuousVariable) {
		v.lower = lower
		v.upper = upper
	}
}

func newContinuous(name string, lower, upper float64, logUniform bool, opts ...ContinuousOption) (*ContinuousVariable, error) {
	v := &ContinuousVariable{
		name:       name,
		lower:      lower,
		upper:      upper,
		logUniform: logUniform,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.name == "" {
		return nil, errors.New(errors.InvalidInput, "variable name must not be empty")
	}
	if v.lower > v.upper {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "lower bound above upper bound"),
			errors.Fields{"variable": v.name, "lower": v.lower, "upper": v.upper})
	}
	if v.logUniform && v.lower <= 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "log-uniform domain requires a positive lower bound"),
			errors.Fields{"variable": v.name, "lower": v.lower})
	}
	return v, nil
}

// NewPopulationSize creates an effective population size variable.
// Default domain is [0.01, 100] relative to the ancestral size, sampled on a
// log scale.
func NewPopulationSize(name string, opts ...ContinuousOption) (*ContinuousVariable, error) {
	return newContinuous(name, 1e-2, 100, true, opts...)
}

// NewTime creates an epoch duration variable in genetic units.
func NewTime(name string, opts ...ContinuousOption) (*ContinuousVariable, error) {
	return newContinuous(name, 1e-15, 5, false, opts...)
}

// NewMigration creates a migration rate variable.
func NewMigration(name string, opts ...ContinuousOption) (*ContinuousVariable, error) {
	return newContinuous(name, 0, 10, false, opts...)
}

// NewSelection creates a selection coefficient variable.
func NewSelection(name string, opts ...ContinuousOption) (*ContinuousVariable, error) {
	return newContinuous(name, 0, 10, false, opts...)
}

// NewFraction creates a proportion variable on (0, 1].
func NewFraction(name string, opts ...ContinuousOption) (*ContinuousVariable, error) {
	return newContinuous(name, 1e-3, 1, false, opts...)
}

func (v *ContinuousVariable) Name() string { return v.name }

func (v *ContinuousVariable) Kind() Kind { return KindContinuous }

func (v *ContinuousVariable) Resample(rng *rand.Rand) Value {
	if v.logUniform {
		logLo := math.Log(v.lower)
		logHi := math.Log(v.upper)
		return math.Exp(logLo + rng.Float64()*(logHi-logLo))
	}
	return v.lower + rng.Float64()*(v.upper-v.lower)
}

func (v *ContinuousVariable) Bounds() (float64, float64, error) {
	return v.lower, v.upper, nil
}

func (v *ContinuousVariable) PossibleValues() ([]Value, error) {
	return nil, errors.WithFields(
		errors.New(errors.InvalidInput, "continuous variable has no enumerable values"),
		errors.Fields{"variable": v.name})
}

// Contains reports whether a value lies within the variable's domain.
func (v *ContinuousVariable) Contains(x float64) bool {
	return x >= v.lower && x <= v.upper
}

// DiscreteVariable is a parameter drawn from a finite value set.
type DiscreteVariable struct {
	name   string
	domain []Value
}

// NewDiscrete creates a discrete variable over the given domain.
func NewDiscrete(name string, domain []Value) (*DiscreteVariable, error) {
	if name == "" {
		return nil, errors.New(errors.InvalidInput, "variable name must not be empty")
	}
	if len(domain) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "discrete variable requires a non-empty domain"),
			errors.Fields{"variable": name})
	}
	values := make([]Value, len(domain))
	copy(values, domain)
	return &DiscreteVariable{name: name, domain: values}, nil
}

func (v *DiscreteVariable) Name() string { return v.name }

func (v *DiscreteVariable) Kind() Kind { return KindDiscrete }

func (v *DiscreteVariable) Resample(rng *rand.Rand) Value {
	return v.domain[rng.Intn(len(v.domain))]
}

// Bounds reports [min, max] over a fully numeric domain.
func (v *DiscreteVariable) Bounds() (float64, float64, error) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, raw := range v.domain {
		x, ok := asFloat(raw)
		if !ok {
			return 0, 0, errors.WithFields(
				errors.New(errors.InvalidInput, "domain value is not numeric"),
				errors.Fields{"variable": v.name, "value": raw})
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, nil
}

func (v *DiscreteVariable) PossibleValues() ([]Value, error) {
	values := make([]Value, len(v.domain))
	copy(values, v.domain)
	return values, nil
}

// Contains reports whether a value belongs to the domain.
func (v *DiscreteVariable) Contains(x Value) bool {
	for _, d := range v.domain {
		if d == x {
			return true
		}
	}
	return false
}

func asFloat(raw Value) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
