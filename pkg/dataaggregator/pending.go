package dataaggregator

import (
	"context"
	"sync"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/google/uuid"
)

// Pending is an ETA result that may not have arrived yet
type Pending struct {
	ID string

	done     chan struct{}
	result   *transit.ETAQueryResult
	cancel   context.CancelFunc
	fallback func() *transit.ETAQueryResult

	mutex     sync.Mutex
	resolved  bool
	callbacks []func(*transit.ETAQueryResult)
}

func newPending(cancel context.CancelFunc, fallback func() *transit.ETAQueryResult) *Pending {
	return &Pending{
		ID:       uuid.New().String(),
		done:     make(chan struct{}),
		cancel:   cancel,
		fallback: fallback,
	}
}

// resolve sets the result once; later calls are ignored
func (p *Pending) resolve(result *transit.ETAQueryResult) {
	p.mutex.Lock()
	if p.resolved {
		p.mutex.Unlock()
		return
	}
	p.resolved = true
	p.result = result
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mutex.Unlock()

	for _, callback := range callbacks {
		callback(result)
	}
}

func (p *Pending) fail() {
	p.resolve(p.fallback())
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

func (p *Pending) Get() *transit.ETAQueryResult {
	<-p.done
	return p.result
}

// GetWithTimeout cancels the query when it has not resolved within timeout
func (p *Pending) GetWithTimeout(timeout time.Duration) *transit.ETAQueryResult {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		p.Cancel()
	}
	return p.Get()
}

func (p *Pending) Cancel() {
	p.cancel()
	p.fail()
}

// OnComplete runs callback with the result, immediately when it is already available
func (p *Pending) OnComplete(callback func(*transit.ETAQueryResult)) {
	p.mutex.Lock()
	if !p.resolved {
		p.callbacks = append(p.callbacks, callback)
		p.mutex.Unlock()
		return
	}
	result := p.result
	p.mutex.Unlock()

	callback(result)
}

// Resolved wraps an already known result
func Resolved(result *transit.ETAQueryResult) *Pending {
	pending := newPending(func() {}, func() *transit.ETAQueryResult { return result })
	pending.resolve(result)
	return pending
}
