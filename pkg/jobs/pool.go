package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of work executed by a Pool.
type Task func(ctx context.Context) error

// PoolConfig configures worker pool behaviour.
type PoolConfig struct {
	Workers int
	Logger  *zap.Logger
}

// Pool runs batches of independent tasks on a bounded number of goroutines.
// A Pool holds no goroutines between batches and is safe for concurrent use.
type Pool struct {
	name    string
	workers int
	logger  *zap.Logger
}

// NewPool builds a pool. Workers defaults to 1.
func NewPool(name string, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{name: name, workers: cfg.Workers, logger: cfg.Logger}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.workers
}

// Run executes every task and waits for all of them. At most Workers tasks run
// at once. Failed or panicking tasks do not stop the batch; their errors are
// joined in task order. Tasks not yet started when ctx is done fail with ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	start := time.Now()
	workers := p.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	errs := make([]error, len(tasks))
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				errs[i] = p.exec(ctx, i, tasks[i])
			}
		}()
	}

dispatch:
	for i := range tasks {
		select {
		case <-ctx.Done():
			for j := i; j < len(tasks); j++ {
				errs[j] = ctx.Err()
			}
			break dispatch
		case next <- i:
		}
	}
	close(next)
	wg.Wait()

	err := errors.Join(errs...)
	p.logger.Debug("pool batch finished",
		zap.String("pool", p.name),
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", err != nil),
	)
	return err
}

func (p *Pool) exec(ctx context.Context, index int, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pool task panicked", zap.String("pool", p.name), zap.Int("task", index), zap.Any("panic", r))
			err = fmt.Errorf("task %d panicked: %v", index, r)
		}
	}()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return task(ctx)
}
