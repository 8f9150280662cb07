package supervision

import (
	"context"
	"sync"
	"time"

	"github.com/core-tools/hsu-restarter-go/pkg/logging"
	"github.com/core-tools/hsu-restarter-go/pkg/monitoring"
)

// launchStagger spaces out worker startups to avoid a thundering herd.
const launchStagger = 1 * time.Second

// Supervisor owns the pool of workers: staggered startup, a shared
// cancellation context as the only cross-worker state, and a joined
// shutdown. Run returns once every worker has reached its terminal state.
type Supervisor struct {
	slots   []Slot
	sink    monitoring.Sink
	logger  logging.Logger
	stagger time.Duration
}

func NewSupervisor(slots []Slot, sink monitoring.Sink, logger logging.Logger) *Supervisor {
	return &Supervisor{
		slots:   slots,
		sink:    sink,
		logger:  logger,
		stagger: launchStagger,
	}
}

// Run starts one worker goroutine per slot and blocks until all of them
// have stopped. Cancelling ctx drains the pool: every worker terminates its
// process tree before exiting.
func (s *Supervisor) Run(ctx context.Context) {
	s.logger.Infof("Starting %d workers", len(s.slots))

	var wg sync.WaitGroup
	for i := range s.slots {
		if ctx.Err() != nil {
			break
		}

		slot := s.slots[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			NewWorker(slot, s.sink, s.logger).Run(ctx)
		}()

		if i < len(s.slots)-1 {
			sleepContext(ctx, s.stagger)
		}
	}

	wg.Wait()

	s.logger.Infof("All workers have finished")
}
