// Package pool is a bounded connection pool built on the cancellation
// flag: a connection that reports HasCancellation is discarded instead of
// reused, at checkout and at check-in both. The pool adds no other
// lifecycle policy.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/logger"
)

var (
	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrPoolExhausted is returned when every connection up to capacity is
	// checked out.
	ErrPoolExhausted = errors.New("pool exhausted")
)

const defaultCapacity = 8

// Factory opens one new connection. ConnectOptions.Connect satisfies it
// directly, so a pool over a backend is New(opts.Connect, cfg).
type Factory func(ctx context.Context) (connection.Connection, error)

// Config holds pool configuration.
type Config struct {
	// Capacity is the maximum number of live connections, checked out and
	// idle together. Zero or negative means a small default.
	Capacity int

	// Logger receives discard events. Nil means a text logger on stdout.
	Logger logger.Logger
}

// Pool hands out connections for exclusive use and takes them back when
// the caller is done. Idle connections are reused most-recently-returned
// first.
type Pool struct {
	factory  Factory
	capacity int
	log      logger.Logger

	mu   sync.Mutex
	idle []*Pooled

	active    atomic.Int64
	borrowed  atomic.Int64
	discarded atomic.Int64

	closed atomic.Bool
}

// New creates a pool that opens connections through factory on demand.
// No connection is opened until the first Get.
func New(factory Factory, cfg Config) *Pool {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New(slog.NewTextHandler(os.Stdout, nil))
	}

	return &Pool{
		factory:  factory,
		capacity: cfg.Capacity,
		log:      cfg.Logger,
	}
}

// Get checks out a connection. Idle connections are vetted first: one
// whose cancellation flag is up is closed and skipped, never handed out.
// When no idle connection survives vetting and the pool is under
// capacity, a new one is opened; at capacity Get fails with
// ErrPoolExhausted rather than waiting.
func (p *Pool) Get(ctx context.Context) (*Pooled, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	for {
		pooled := p.popIdle()
		if pooled == nil {
			break
		}

		if pooled.Conn().HasCancellation() {
			p.discard(ctx, pooled, "checkout")
			continue
		}

		pooled.touch()
		p.borrowed.Add(1)
		return pooled, nil
	}

	// Reserve the slot before dialing so concurrent Gets cannot overshoot
	// the bound.
	if p.active.Add(1) > int64(p.capacity) {
		p.active.Add(-1)
		return nil, ErrPoolExhausted
	}

	conn, err := p.factory(ctx)
	if err != nil {
		p.active.Add(-1)
		return nil, fmt.Errorf("pool: opening connection: %w", err)
	}

	p.borrowed.Add(1)
	return newPooled(conn), nil
}

// Put returns a checked-out connection. A contaminated connection is
// closed instead of going back on the idle list; the caller's Put still
// succeeds, the pool just will not reuse the session.
func (p *Pool) Put(ctx context.Context, pooled *Pooled) error {
	if pooled == nil {
		return nil
	}

	p.borrowed.Add(-1)

	if p.closed.Load() {
		p.discard(ctx, pooled, "pool closed")
		return ErrPoolClosed
	}

	if pooled.Conn().HasCancellation() {
		p.discard(ctx, pooled, "check-in")
		return nil
	}

	pooled.touch()
	p.mu.Lock()
	// Re-checked under the lock: a Close that won the race must not leave
	// this connection stranded on the idle list.
	if p.closed.Load() {
		p.mu.Unlock()
		p.discard(ctx, pooled, "pool closed")
		return ErrPoolClosed
	}
	p.idle = append(p.idle, pooled)
	p.mu.Unlock()
	return nil
}

// Discard closes a checked-out connection instead of returning it, for
// callers that already know the session is unusable.
func (p *Pool) Discard(ctx context.Context, pooled *Pooled) {
	if pooled == nil {
		return
	}
	p.borrowed.Add(-1)
	p.discard(ctx, pooled, "caller discard")
}

// Close shuts the pool and closes every idle connection. Connections
// still checked out are closed as they come back through Put.
func (p *Pool) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}

	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var err error
	for _, pooled := range idle {
		p.active.Add(-1)
		if cerr := pooled.Conn().Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	active := p.active.Load()
	borrowed := p.borrowed.Load()
	return Stats{
		Active:    active,
		Borrowed:  borrowed,
		Idle:      active - borrowed,
		Discarded: p.discarded.Load(),
	}
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Active    int64 // live connections, checked out and idle together
	Borrowed  int64 // connections currently checked out
	Idle      int64 // connections available for reuse
	Discarded int64 // connections closed instead of reused, since creation
}

func (p *Pool) popIdle() *Pooled {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.idle)
	if n == 0 {
		return nil
	}
	pooled := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return pooled
}

func (p *Pool) discard(ctx context.Context, pooled *Pooled, at string) {
	p.active.Add(-1)
	p.discarded.Add(1)
	p.log.Warn("pool: discarding connection", "id", pooled.ID(), "at", at)

	if err := pooled.Conn().Close(ctx); err != nil {
		p.log.Debug("pool: close on discard failed", "id", pooled.ID(), "error", err)
	}
}
