package console

import (
	"context"
	"time"
)

// Poller calls a function once immediately and then on every tick until its
// context ends. A slow call delays the next tick; calls never overlap.
type Poller struct {
	interval time.Duration
	fn       func(context.Context) error
	onError  func(error)
	done     chan struct{}
}

// NewPoller creates a poller. onError may be nil.
func NewPoller(interval time.Duration, fn func(context.Context) error, onError func(error)) *Poller {
	return &Poller{
		interval: interval,
		fn:       fn,
		onError:  onError,
		done:     make(chan struct{}),
	}
}

// Start runs the poller on its own goroutine
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Done is closed once the poller has stopped
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.fn(ctx); err != nil && p.onError != nil && ctx.Err() == nil {
		p.onError(err)
	}
}
