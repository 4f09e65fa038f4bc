package subscription

import "sync"

type handleKind uint8

const (
	handleProperty handleKind = iota
	handleGlobal
	handleServer
)

// Handle identifies one listener registration.
type Handle struct {
	d    *Dispatcher
	id   uint64
	kind handleKind
	key  propKey

	once sync.Once
}

// Cancel deregisters the listener. Safe to call more than once and
// from inside the listener itself; after Cancel returns no further
// events are delivered through this registration.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.d.cancel(h)
	})
}
