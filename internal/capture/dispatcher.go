package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrClosed is returned by Publish once the dispatcher has shut down.
var ErrClosed = errors.New("dispatcher closed")

// ErrBufferFull is returned by Publish when the exchange buffer is full.
var ErrBufferFull = errors.New("dispatcher buffer full")

// Dispatcher decouples exchange producers (proxy handlers, HAR readers) from
// the subscribers. Publish never blocks; Run delivers exchanges one at a time,
// so subscribers never run concurrently with each other.
type Dispatcher struct {
	exchangesC chan Exchange

	mu       sync.RWMutex
	closed   bool
	handlers []Handler

	shutdownGracePeriod time.Duration

	droppedExchangesTotal *prometheus.CounterVec
	deliveredTotal        prometheus.Counter
}

type DispatcherOption func(*Dispatcher)

func WithBufferSize(bufferSize int) DispatcherOption {
	return func(d *Dispatcher) {
		d.exchangesC = make(chan Exchange, bufferSize)
	}
}

func WithShutdownGracePeriod(gracePeriod time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.shutdownGracePeriod = gracePeriod
	}
}

func NewDispatcher(reg prometheus.Registerer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		exchangesC:          make(chan Exchange, 100),
		shutdownGracePeriod: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	d.droppedExchangesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_dispatcher_dropped_exchanges_total",
			Help: "Total number of dropped exchanges due to full buffer or closed dispatcher",
		},
		[]string{"reason"},
	)
	d.deliveredTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "panel_dispatcher_delivered_exchanges_total",
			Help: "Total number of exchanges delivered to subscribers",
		},
	)

	return d
}

// Subscribe registers h. It must be called before Run.
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish enqueues e without blocking.
func (d *Dispatcher) Publish(e Exchange) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.droppedExchangesTotal.WithLabelValues("closed").Inc()
		slog.Warn("closed: dropping exchange", "url", e.URL)
		return ErrClosed
	}
	select {
	case d.exchangesC <- e:
		return nil
	default:
		d.droppedExchangesTotal.WithLabelValues("blocked").Inc()
		slog.Warn("blocked: dropping exchange", "url", e.URL)
		return ErrBufferFull
	}
}

// Run delivers exchanges until ctx is cancelled, then drains what is left
// for at most the shutdown grace period.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			close(d.exchangesC)
			d.mu.Unlock()

			d.drainWithGracePeriod()
			return
		case e := <-d.exchangesC:
			d.deliver(e)
		}
	}
}

func (d *Dispatcher) drainWithGracePeriod() {
	slog.Debug("draining dispatcher", "grace_period", d.shutdownGracePeriod)

	graceCtx, graceCancel := context.WithTimeout(context.Background(), d.shutdownGracePeriod)
	defer graceCancel()
	for e := range d.exchangesC {
		if graceCtx.Err() != nil {
			d.droppedExchangesTotal.WithLabelValues("shutdown").Inc()
			continue
		}
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Exchange) {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("exchange handler panicked", "url", e.URL, "panic", r)
				}
			}()
			h(e)
		}()
	}
	d.deliveredTotal.Inc()
}
