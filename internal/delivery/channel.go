package delivery

import (
	"sync"

	"github.com/datallboy/godl/internal/domain"
	"github.com/datallboy/godl/internal/infra/logger"
)

// Consumer handles outcomes on the delivery goroutine. It may block; workers
// are never held up by it.
type Consumer interface {
	HandleOutcome(domain.Outcome)
}

type ConsumerFunc func(domain.Outcome)

func (f ConsumerFunc) HandleOutcome(o domain.Outcome) { f(o) }

type multi []Consumer

func (m multi) HandleOutcome(o domain.Outcome) {
	for _, c := range m {
		c.HandleOutcome(o)
	}
}

// Multi fans each outcome out to every consumer in order. Nil consumers are
// skipped.
func Multi(consumers ...Consumer) Consumer {
	m := make(multi, 0, len(consumers))
	for _, c := range consumers {
		if c != nil {
			m = append(m, c)
		}
	}
	return m
}

// Channel decouples workers from the consumer: OnOutcome appends to an
// unbounded FIFO and one goroutine drains it in arrival order.
type Channel struct {
	consumer Consumer
	log      *logger.Logger

	mu      sync.Mutex
	items   []domain.Outcome
	started bool
	closed  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func NewChannel(consumer Consumer, log *logger.Logger) *Channel {
	if log == nil {
		log = logger.Discard()
	}
	return &Channel{
		consumer: consumer,
		log:      log,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the delivery goroutine. Calling it again is a no-op.
func (c *Channel) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.closed {
		return
	}
	c.started = true
	go c.run()
}

// OnOutcome implements domain.Sink. It never blocks on the consumer.
func (c *Channel) OnOutcome(o domain.Outcome) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items, o)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Len is the number of outcomes waiting for delivery.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops delivery and discards anything still pending. It waits for an
// in-progress consumer call to return, so it must not be called from a
// consumer.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	dropped := len(c.items)
	c.items = nil
	c.mu.Unlock()

	close(c.quit)
	if started {
		<-c.done
	}

	if dropped > 0 {
		c.log.Warn("Result channel closed with %d undelivered outcome(s)", dropped)
	}
}

func (c *Channel) pop() (domain.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || len(c.items) == 0 {
		return domain.Outcome{}, false
	}
	o := c.items[0]
	c.items[0] = domain.Outcome{}
	c.items = c.items[1:]
	return o, true
}

func (c *Channel) run() {
	defer close(c.done)

	for {
		if o, ok := c.pop(); ok {
			if c.consumer != nil {
				c.consumer.HandleOutcome(o)
			}
			continue
		}

		select {
		case <-c.wake:
		case <-c.quit:
			return
		}
	}
}
