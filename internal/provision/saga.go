// Package provision builds and tears down per-tenant identity environments
// as explicit sagas: ordered named steps over accumulating state, with
// per-step outcomes recorded so "which steps completed" is an inspectable
// value rather than implicit closure state.
package provision

import (
	"context"
	"time"

	"idgate/pkg/metrics"
)

// Step is one named unit of a saga. Run reads and extends the saga's
// accumulated state through its closure.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outcome records one executed step.
type Outcome struct {
	Step     string
	Duration time.Duration
	Err      error
}

// run executes steps strictly in order, applying stepTimeout to each call
// and stopping at the first failure. It returns the outcomes of every step
// that ran; the last outcome carries the error when one occurred.
func run(ctx context.Context, saga string, stepTimeout time.Duration, steps []Step) []Outcome {
	outcomes := make([]Outcome, 0, len(steps))
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, Outcome{Step: st.Name, Err: err})
			return outcomes
		}
		stepCtx := ctx
		cancel := context.CancelFunc(func() {})
		if stepTimeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, stepTimeout)
		}
		start := time.Now()
		err := st.Run(stepCtx)
		cancel()
		d := time.Since(start)

		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.SagaStepDuration.WithLabelValues(saga, st.Name, result).Observe(d.Seconds())

		outcomes = append(outcomes, Outcome{Step: st.Name, Duration: d, Err: err})
		if err != nil {
			return outcomes
		}
	}
	return outcomes
}

// completed returns the names of the steps that finished without error.
func completed(outcomes []Outcome) []string {
	var names []string
	for _, o := range outcomes {
		if o.Err == nil {
			names = append(names, o.Step)
		}
	}
	return names
}

// failure returns the failing outcome, if any.
func failure(outcomes []Outcome) (Outcome, bool) {
	if n := len(outcomes); n > 0 && outcomes[n-1].Err != nil {
		return outcomes[n-1], true
	}
	return Outcome{}, false
}
