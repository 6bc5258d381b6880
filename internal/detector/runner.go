package detector

import (
	"context"
	"io"
	"sync"

	"github.com/buemura/safeurl/pkg/types"
	"github.com/sirupsen/logrus"
)

// Runner executes every registered detector against a URL concurrently.
type Runner struct {
	registry *Registry
	log      logrus.FieldLogger
}

// NewRunner creates a runner backed by the given registry. A nil logger
// discards output.
func NewRunner(registry *Registry, log logrus.FieldLogger) *Runner {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Runner{registry: registry, log: log}
}

// Run executes all detectors and collects their sub-scores into Factors.
// A detector that panics contributes 0 instead of aborting the scan.
func (r *Runner) Run(ctx context.Context, raw string) types.Factors {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		factors types.Factors
	)

	for _, d := range r.registry.All() {
		wg.Add(1)
		go func(d Detector) {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}

			score := r.safeDetect(d, raw)
			mu.Lock()
			factors.Set(d.Name(), score)
			mu.Unlock()
		}(d)
	}

	wg.Wait()
	return factors
}

func (r *Runner) safeDetect(d Detector, raw string) (score int) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("detector", d.Name()).Errorf("detector panicked: %v", rec)
			score = 0
		}
	}()
	return d.Detect(raw)
}
