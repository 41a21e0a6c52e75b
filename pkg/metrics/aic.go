// Package metrics provides model-comparison scores used when ranking search
// results across runs.
package metrics

import (
	"github.com/evosearch/demova/pkg/demography"
)

// AIC computes the Akaike information criterion, 2k - 2*lnL. Lower is
// better; it penalizes models with more free parameters.
func AIC(numParameters int, logLikelihood float64) float64 {
	return 2*float64(numParameters) - 2*logLikelihood
}

// ModelAIC scores a model under a concrete parameter assignment, deriving
// the free parameter count from the model itself.
func ModelAIC(model *demography.Model, values map[string]demography.Value, logLikelihood float64) (float64, error) {
	k, err := model.NumberOfParameters(values)
	if err != nil {
		return 0, err
	}
	return AIC(k, logLikelihood), nil
}
