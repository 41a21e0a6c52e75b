package runner

import (
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/metrics"
	"github.com/evosearch/demova/pkg/utils"
)

// Reporter renders interim and final rankings of per-run best models.
type Reporter struct {
	w         io.Writer
	model     *demography.Model
	precision int
	printer   *message.Printer
}

// NewReporter creates a reporter writing to w. epsilon derives the number of
// decimal digits used for log-likelihoods.
func NewReporter(w io.Writer, model *demography.Model, epsilon float64) *Reporter {
	return &Reporter{
		w:         w,
		model:     model,
		precision: utils.DisplayPrecision(epsilon),
		printer:   message.NewPrinter(language.English),
	}
}

// Progress writes an interim ranking: elapsed time and every run's current
// best, best first. An empty registry renders a heading and nothing else.
func (r *Reporter) Progress(elapsed time.Duration, ranked []Entry) {
	r.printer.Fprintf(r.w, "\n%s\n", utils.FormatHMS(elapsed))
	r.printer.Fprintf(r.w, "All best by log-likelihood models\n")
	if len(ranked) == 0 {
		r.printer.Fprintf(r.w, "no models yet\n")
		return
	}
	r.printer.Fprintf(r.w, "%-12s%-18s%s\n", "Run", "log-likelihood", "Model")
	for _, e := range ranked {
		r.writeRow(e)
	}
}

// Final writes the concluding report: the full ranking, the global best by
// log-likelihood, and the best by AIC when parameter counts are resolvable.
func (r *Reporter) Final(elapsed time.Duration, ranked []Entry, completedRuns int) {
	r.Progress(elapsed, ranked)
	if completedRuns > 0 {
		r.printer.Fprintf(r.w, "runs completed: %d\n", completedRuns)
	}
	if len(ranked) == 0 {
		return
	}

	best := ranked[0]
	r.printer.Fprintf(r.w, "\n--Best model by log-likelihood--\n")
	r.writeRow(best)

	if aicBest, aic, ok := r.bestByAIC(ranked); ok {
		r.printer.Fprintf(r.w, "\n--Best model by AIC (%s)--\n",
			utils.FormatFloat(aic, r.precision))
		r.writeRow(aicBest)
	}
}

// bestByAIC scores every ranked entry by AIC and returns the winner. Entries
// whose parameter count cannot be resolved are skipped.
func (r *Reporter) bestByAIC(ranked []Entry) (Entry, float64, bool) {
	var (
		winner Entry
		best   float64
		found  bool
	)
	for _, e := range ranked {
		values, err := r.model.ValuesMap(e.Candidate.Values)
		if err != nil {
			continue
		}
		aic, err := metrics.ModelAIC(r.model, values, e.Candidate.LogLikelihood())
		if err != nil {
			continue
		}
		if !found || aic < best {
			winner, best, found = e, aic, true
		}
	}
	return winner, best, found
}

func (r *Reporter) writeRow(e Entry) {
	text := e.Candidate.ID
	if values, err := r.model.ValuesMap(e.Candidate.Values); err == nil {
		text = r.model.Describe(values, r.precision)
	}
	r.printer.Fprintf(r.w, "%-12s%-18s%s\n",
		"Run "+e.Run,
		utils.FormatFloat(e.Candidate.LogLikelihood(), r.precision),
		text)
}
