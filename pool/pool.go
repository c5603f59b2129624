// Package pool implements a fixed-capacity queue of reusable resources with
// blocking acquire, explicit release and shutdown broadcast.
//
// A resource is owned by exactly one of the queue or a single caller at any
// time. Acquire and Release never create or destroy resources; the live count
// only changes through New, Add, Discard and Close.
package pool

import (
	"errors"
	"sync"

	"github.com/benbjohnson/clock"
)

var (
	// ErrClosed 连接池已经关闭Error
	ErrClosed = errors.New("pool is closed")
)

// Factory creates one live resource.
type Factory[T any] func() (T, error)

// Destroyer releases whatever a resource holds. It may be nil.
type Destroyer[T any] func(T) error

// Resource wraps one live session/stub with the last time (unix seconds) it
// was handed back to the pool.
type Resource[T any] struct {
	Conn     T
	LastUsed int64
}

type Option[T any] func(*Pool[T])

// WithClock overrides the clock used for LastUsed timestamps.
func WithClock[T any](c clock.Clock) Option[T] {
	return func(p *Pool[T]) {
		p.clock = c
	}
}

// WithDestroyer sets the function run on resources dropped by Close, Discard
// or a Release after Close.
func WithDestroyer[T any](d Destroyer[T]) Option[T] {
	return func(p *Pool[T]) {
		p.destroy = d
	}
}

type Pool[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Resource[T]
	live    int
	closed  bool
	clock   clock.Clock
	destroy Destroyer[T]
}

// New fills a pool with capacity resources built by factory. If any of them
// fails the ones already built are destroyed and the error is returned.
func New[T any](capacity int, factory Factory[T], opts ...Option[T]) (*Pool[T], error) {
	if capacity <= 0 {
		return nil, errors.New("pool capacity must be positive")
	}
	p := &Pool[T]{
		queue: make([]*Resource[T], 0, capacity),
		clock: clock.New(),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}

	now := p.clock.Now().Unix()
	for i := 0; i < capacity; i++ {
		conn, err := factory()
		if err != nil {
			p.Close()
			return nil, err
		}
		p.queue = append(p.queue, &Resource[T]{Conn: conn, LastUsed: now})
		p.live++
	}
	return p, nil
}

// Acquire blocks until a resource is queued or the pool is closed.
func (p *Pool[T]) Acquire() (*Resource[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && len(p.queue) == 0 {
		p.cond.Wait()
	}
	if p.closed {
		return nil, ErrClosed
	}
	return p.popLocked(), nil
}

// TryAcquire takes the head of the queue without blocking.
func (p *Pool[T]) TryAcquire() (*Resource[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.queue) == 0 {
		return nil, false
	}
	return p.popLocked(), true
}

// Release hands a resource back, refreshing its timestamp, and wakes one
// waiter. After Close the resource is destroyed instead.
func (p *Pool[T]) Release(r *Resource[T]) {
	if r == nil {
		return
	}
	r.LastUsed = p.clock.Now().Unix()
	p.Requeue(r)
}

// Requeue is Release without the timestamp refresh.
func (p *Pool[T]) Requeue(r *Resource[T]) {
	if r == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.live--
		p.mu.Unlock()
		p.destroyOne(r.Conn)
		return
	}
	p.queue = append(p.queue, r)
	p.mu.Unlock()
	p.cond.Signal()
}

// Discard drops a checked-out resource from the pool for good.
func (p *Pool[T]) Discard(r *Resource[T]) {
	if r == nil {
		return
	}
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
	p.destroyOne(r.Conn)
}

// Add enqueues a freshly built resource, growing the live count by one.
func (p *Pool[T]) Add(conn T) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.destroyOne(conn)
		return ErrClosed
	}
	p.queue = append(p.queue, &Resource[T]{Conn: conn, LastUsed: p.clock.Now().Unix()})
	p.live++
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// Close sets the stop flag, wakes every waiter and destroys queued resources.
// Resources still checked out are destroyed as they come back.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	drained := p.queue
	p.queue = nil
	p.live -= len(drained)
	p.mu.Unlock()
	p.cond.Broadcast()

	for _, r := range drained {
		p.destroyOne(r.Conn)
	}
}

func (p *Pool[T]) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// NumIdle is the number of queued resources.
func (p *Pool[T]) NumIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// NumTotal is queued plus checked-out resources.
func (p *Pool[T]) NumTotal() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *Pool[T]) popLocked() *Resource[T] {
	r := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return r
}

func (p *Pool[T]) destroyOne(conn T) {
	if p.destroy != nil {
		_ = p.destroy(conn)
	}
}
