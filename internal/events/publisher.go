package events

import "sync"

type Listener func(event Event)

// Publisher is a synchronous in-process fan-out. Listeners run on the emitting
// goroutine, so a single recipient observes events in emission order.
type Publisher struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

func NewPublisher() *Publisher {
	return &Publisher{listeners: map[int]Listener{}}
}

// Subscribe registers a listener and returns an unsubscribe func.
func (p *Publisher) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Publisher) Emit(event Event) {
	if p == nil {
		return
	}
	p.mu.RLock()
	for _, listener := range p.listeners {
		listener(event)
	}
	p.mu.RUnlock()
}
