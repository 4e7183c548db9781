package registry

import "sync/atomic"

// Guard is a single in-flight latch. It is a recursion detector, not a lock:
// entering a held Guard fails immediately instead of waiting.
type Guard struct {
	entered atomic.Bool
}

// Do runs op with the latch held. It returns ErrReentrancyDetected if the
// latch is already held. The latch is released on every exit path, including
// a failing or panicking op.
func (g *Guard) Do(op func() error) error {
	if !g.entered.CompareAndSwap(false, true) {
		return ErrReentrancyDetected
	}
	defer g.entered.Store(false)
	return op()
}

// Held reports whether a guarded operation is running.
func (g *Guard) Held() bool {
	return g.entered.Load()
}
