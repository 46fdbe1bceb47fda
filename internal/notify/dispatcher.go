package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruaancorrea/helpdesk-backend/internal/obs"
)

// Queue accepts background jobs. The request path enqueues and moves on;
// job outcomes are logged and counted, never surfaced to the caller.
type Queue interface {
	Enqueue(name string, fn func(ctx context.Context) error)
}

const jobTimeout = time.Minute

type queuedJob struct {
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher is a bounded worker pool. A full buffer drops the job with a
// warning rather than blocking a request handler.
type Dispatcher struct {
	log       zerolog.Logger
	jobs      chan queuedJob
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewDispatcher(log zerolog.Logger, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 64
	}
	d := &Dispatcher{
		log:  log.With().Str("component", "dispatcher").Logger(),
		jobs: make(chan queuedJob, buffer),
		done: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case <-d.done:
		d.log.Warn().Str("job", name).Msg("dispatcher closed, job dropped")
		return
	default:
	}
	select {
	case d.jobs <- queuedJob{name: name, fn: fn}:
	default:
		d.log.Warn().Str("job", name).Msg("queue full, job dropped")
		obs.ObserveNotifyJob(name, fmt.Errorf("queue full"))
	}
}

// Close stops accepting work, drains buffered jobs and waits for workers.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			for {
				select {
				case q := <-d.jobs:
					d.run(q)
				default:
					return
				}
			}
		case q := <-d.jobs:
			d.run(q)
		}
	}
}

func (d *Dispatcher) run(q queuedJob) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error().Str("job", q.name).Interface("panic", rec).Msg("job panicked")
			obs.ObserveNotifyJob(q.name, fmt.Errorf("panic: %v", rec))
		}
	}()

	// Jobs outlive the request context by design; they get their own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	err := q.fn(ctx)
	obs.ObserveNotifyJob(q.name, err)
	if err != nil {
		d.log.Error().Err(err).Str("job", q.name).Msg("job failed")
		return
	}
	d.log.Debug().Str("job", q.name).Msg("job done")
}
