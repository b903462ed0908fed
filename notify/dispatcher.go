package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink delivers an event through one channel
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// DefaultDeliveryTimeout bounds a single sink delivery
const DefaultDeliveryTimeout = 10 * time.Second

// Dispatcher queues events and fans them out to sinks on a background worker.
// Publish never blocks: when the queue is full the event is dropped.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Event
	timeout time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewDispatcher creates a dispatcher with a queue of size events
func NewDispatcher(size int, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Event, size),
		timeout: timeout,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the delivery worker until Close is called
func (d *Dispatcher) Start() {
	go d.run()
}

// Publish queues e for delivery
func (d *Dispatcher) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	select {
	case d.queue <- e:
	default:
		zap.S().Warnw("notification queue full, dropping event",
			"type", e.Type,
			"recipient", e.Recipient.Hex())
	}
}

// Close stops the worker after draining queued events
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		case <-d.stop:
			for {
				select {
				case e := <-d.queue:
					d.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	for _, s := range d.sinks {
		if err := d.deliverOne(s, e); err != nil {
			zap.S().Errorw("failed to deliver notification",
				"sink", s.Name(),
				"type", e.Type,
				"recipient", e.Recipient.Hex(),
				"error", err)
		}
	}
}

func (d *Dispatcher) deliverOne(s Sink, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return s.Deliver(ctx, e)
}
