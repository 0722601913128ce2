// Package dispatcher fans candidates out to a bounded pool of enrichment workers.
package dispatcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pjpmarques/Castelos/internal/fortification"
)

// DefaultConcurrency is the number of candidates processed at once.
const DefaultConcurrency = 10

// Processor enriches one candidate into the sink.
type Processor interface {
	Process(ctx context.Context, candidate fortification.Candidate, sink *fortification.Sink)
}

// Dispatcher runs a Processor over a batch of candidates.
type Dispatcher struct {
	processor   Processor
	concurrency int
}

// New creates a Dispatcher. A concurrency below one falls back to DefaultConcurrency.
func New(processor Processor, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Dispatcher{
		processor:   processor,
		concurrency: concurrency,
	}
}

// RunAll submits every candidate and blocks until all of them finish. Workers
// never fail, so the only error is a canceled context, after which no new
// candidates are started.
func (d *Dispatcher) RunAll(ctx context.Context, candidates []fortification.Candidate, sink *fortification.Sink) error {
	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			d.processor.Process(ctx, candidate, sink)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dispatch canceled: %w", err)
	}
	return nil
}
