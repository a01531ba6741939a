package bus

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// job is one stream entry awaiting delivery to a subscription.
type job struct {
	sub *subscription
	msg redis.XMessage
}

// pool runs a fixed number of delivery goroutines.
type pool struct {
	numWorkers int
	jobs       chan job
	handle     func(ctx context.Context, j job)
	logger     logger.Logger
	wg         sync.WaitGroup
}

func newPool(numWorkers int, handle func(ctx context.Context, j job), log logger.Logger) *pool {
	return &pool{
		numWorkers: numWorkers,
		jobs:       make(chan job, numWorkers*2),
		handle:     handle,
		logger:     log,
	}
}

// start launches the workers. Deliveries run on ctx stripped of its
// cancellation: stopping the bus never interrupts an invocation.
func (p *pool) start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("delivery pool started", logger.Int("num_workers", p.numWorkers))
}

func (p *pool) submit(j job) {
	p.jobs <- j
}

// stop closes the queue and waits for queued and running deliveries.
func (p *pool) stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("delivery pool stopped")
}

func (p *pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for j := range p.jobs {
		p.handle(ctx, j)
	}
}
