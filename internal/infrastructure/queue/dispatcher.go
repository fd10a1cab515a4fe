package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/linkloot/affiliate-api/internal/api/metrics"
	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrStopped is returned by Enqueue once Stop has been called.
var ErrStopped = errors.New("sale dispatcher stopped")

// Dispatcher routes sale events to a fixed set of workers using consistent
// hashing on the user id, so one user's credits are applied in arrival order.
// Accepted events are always processed: Stop drains the queues before the
// workers exit.
type Dispatcher struct {
	workers []chan ports.SaleEventInput
	service ports.SaleService
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.SaleService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.SaleEventInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.SaleEventInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Cancelling ctx does not stop them;
// events are processed with its values but without its cancellation, and the
// workers return once Stop has closed their queues.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop refuses new events and closes the worker queues. Workers finish the
// events already queued, then return. Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue sends an event to the worker responsible for its user.
// The call blocks only once that worker's buffer is full.
func (d *Dispatcher) Enqueue(event ports.SaleEventInput) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	d.enqueue(event)
	return nil
}

// EnqueueBatch enqueues multiple events preserving per-user ordering. The
// batch is either queued whole or, after Stop, rejected whole.
func (d *Dispatcher) EnqueueBatch(events []ports.SaleEventInput) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	for _, e := range events {
		d.enqueue(e)
	}
	return nil
}

func (d *Dispatcher) enqueue(event ports.SaleEventInput) {
	idx := d.shardIndex(event.UserID)
	d.workers[idx] <- event
	metrics.SaleEventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.SaleEventInput) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for event := range ch {
		metrics.SaleEventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		d.process(ctx, id, event)
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, event ports.SaleEventInput) {
	start := time.Now()
	err := d.service.Process(ctx, event)
	if err == nil {
		metrics.SaleEventDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		metrics.SaleEventsProcessedTotal.Inc()
		return
	}

	metrics.SaleEventDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
	metrics.SaleEventsErrorsTotal.WithLabelValues(errorReason(err)).Inc()
	d.log.Error().Err(err).
		Str("reference", event.Reference).
		Str("user_id", event.UserID).
		Int("worker_id", workerID).
		Msg("sale event processing failed")
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
