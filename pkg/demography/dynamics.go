package demography

import (
	"math"
	"math/rand"

	"github.com/evosearch/demova/pkg/errors"
)

// Dynamics tags name the law by which a population's size changes over an
// epoch.
const (
	Sudden      = "Sud"
	Linear      = "Lin"
	Exponential = "Exp"
)

// knownDynamics holds the recognized tags in their canonical order.
var knownDynamics = []string{Sudden, Linear, Exponential}

// SizeFunc computes a population size at a point inside an epoch from the
// size at the epoch start, the size at the epoch end, the time elapsed since
// the start, and the epoch duration.
type SizeFunc func(initial, final, elapsed, duration float64) float64

// DynamicsFunc maps a dynamics tag to its size-over-time law.
func DynamicsFunc(tag string) (SizeFunc, error) {
	switch tag {
	case Sudden:
		return func(initial, final, elapsed, duration float64) float64 {
			return final
		}, nil
	case Linear:
		return func(initial, final, elapsed, duration float64) float64 {
			if duration == 0 {
				return final
			}
			return initial + (final-initial)*elapsed/duration
		}, nil
	case Exponential:
		return func(initial, final, elapsed, duration float64) float64 {
			if duration == 0 {
				return final
			}
			return initial * math.Pow(final/initial, elapsed/duration)
		}, nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unknown dynamics tag"),
			errors.Fields{"tag": tag})
	}
}

// IsDynamicsTag reports whether the tag is one of the recognized laws.
func IsDynamicsTag(tag string) bool {
	for _, known := range knownDynamics {
		if tag == known {
			return true
		}
	}
	return false
}

// DynamicsVariable is a discrete variable whose values are dynamics tags.
// It participates in parameter counting differently from other variables: a
// resolved Sudden dynamics adds no model parameter.
type DynamicsVariable struct {
	name   string
	domain []string
}

// NewDynamics creates a dynamics variable. With no explicit domain it spans
// all recognized tags; an explicit domain must be a subset of them.
func NewDynamics(name string, domain ...string) (*DynamicsVariable, error) {
	if name == "" {
		return nil, errors.New(errors.InvalidInput, "variable name must not be empty")
	}
	if len(domain) == 0 {
		domain = knownDynamics
	}
	values := make([]string, len(domain))
	for i, tag := range domain {
		if !IsDynamicsTag(tag) {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "unknown dynamics tag in domain"),
				errors.Fields{"variable": name, "tag": tag})
		}
		values[i] = tag
	}
	return &DynamicsVariable{name: name, domain: values}, nil
}

func (v *DynamicsVariable) Name() string { return v.name }

func (v *DynamicsVariable) Kind() Kind { return KindDiscrete }

func (v *DynamicsVariable) Resample(rng *rand.Rand) Value {
	return v.domain[rng.Intn(len(v.domain))]
}

// Bounds is undefined for dynamics tags.
func (v *DynamicsVariable) Bounds() (float64, float64, error) {
	return 0, 0, errors.WithFields(
		errors.New(errors.InvalidInput, "dynamics domain is not numeric"),
		errors.Fields{"variable": v.name})
}

func (v *DynamicsVariable) PossibleValues() ([]Value, error) {
	values := make([]Value, len(v.domain))
	for i, tag := range v.domain {
		values[i] = tag
	}
	return values, nil
}

// Contains reports whether the tag belongs to the variable's domain.
func (v *DynamicsVariable) Contains(tag string) bool {
	for _, d := range v.domain {
		if d == tag {
			return true
		}
	}
	return false
}
