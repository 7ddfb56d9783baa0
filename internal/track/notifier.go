package track

import "sync"

// Notifier broadcasts has-changes flips to subscribed listeners. Listeners
// receive the new aggregate value synchronously; the tracker guarantees a
// broadcast only when the value actually flips, so unsaved-changes indicators
// do not thrash on every micro-edit.
type Notifier struct {
	mu        sync.Mutex
	seq       int
	listeners map[int]func(bool)
}

// NewNotifier returns an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[int]func(bool))}
}

// Subscribe registers fn and returns a cancel function that removes it.
func (n *Notifier) Subscribe(fn func(bool)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	id := n.seq
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

// Broadcast delivers the new aggregate value to every listener.
func (n *Notifier) Broadcast(hasChanges bool) {
	n.mu.Lock()
	fns := make([]func(bool), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(hasChanges)
	}
}
