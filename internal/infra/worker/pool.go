// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("worker queue full")

// Task is one unit of work, e.g. handling a single bot update.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of goroutines. Submit never
// blocks: a saturated queue rejects the task. Each worker also owns a
// queue fed by SubmitKeyed, so tasks sharing a key run one at a time in
// submission order.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan Task
	shards []chan Task
	quit   chan struct{}
	stop   sync.Once
	n      int
	log    *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	shards := make([]chan Task, workers)
	for i := range shards {
		shards[i] = make(chan Task, 4)
	}
	return &Pool{jobs: make(chan Task, workers*4), shards: shards, quit: make(chan struct{}), n: workers, log: logger}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			own := p.shards[id]
			for {
				var task Task
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task = <-own:
				case task = <-p.jobs:
				}
				if task == nil {
					continue
				}
				if err := p.run(ctx, task); err != nil {
					p.log.Error().Err(err).Int("worker", id).Msg("task failed")
				}
			}
		}(i)
	}
}

// run converts a panicking task into an error so the worker survives.
func (p *Pool) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task(ctx)
}

func (p *Pool) Stop() {
	p.stop.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitKeyed queues task on the worker that owns key.
func (p *Pool) SubmitKeyed(key uint64, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.shards[key%uint64(p.n)] <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
