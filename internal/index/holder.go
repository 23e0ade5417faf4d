package index

import (
	"log/slog"
	"sync/atomic"
)

// Holder publishes the current Handle. Reloading swaps the whole handle
// atomically; lookups that already acquired the previous handle keep using
// it until they release it, after which it is closed.
type Holder struct {
	current atomic.Pointer[Handle]
	closed  atomic.Bool
}

// NewHolder creates a holder serving h.
func NewHolder(h *Handle) *Holder {
	hd := &Holder{}
	hd.current.Store(h)
	return hd
}

// Acquire returns the current handle and a release func that must be
// called once the caller is done querying it. After Close it returns a nil
// handle and a no-op release.
func (hd *Holder) Acquire() (*Handle, func()) {
	for {
		if hd.closed.Load() {
			return nil, func() {}
		}
		h := hd.current.Load()
		if h.retain() {
			return h, h.release
		}
		// Retired between Load and retain: either a replacement is already
		// stored or the holder is closing.
	}
}

// Current returns the current handle without retaining it. Only use it for
// metadata (versions, default version) that does not touch the database.
func (hd *Holder) Current() *Handle {
	return hd.current.Load()
}

// Swap publishes next and retires the previous handle.
func (hd *Holder) Swap(next *Handle) {
	if hd.closed.Load() {
		next.retire()
		return
	}
	prev := hd.current.Swap(next)
	if prev != nil && prev != next {
		prev.retire()
	}
	slog.Info("index swapped", "versions", next.versions)
}

// Close retires the current handle. Later Acquire calls get no handle and
// later swaps are discarded.
func (hd *Holder) Close() {
	if hd.closed.Swap(true) {
		return
	}
	if h := hd.current.Load(); h != nil {
		h.retire()
	}
}

func (h *Handle) retain() bool {
	h.refMu.Lock()
	defer h.refMu.Unlock()
	if h.retired {
		return false
	}
	h.refs++
	return true
}

func (h *Handle) release() {
	h.refMu.Lock()
	defer h.refMu.Unlock()
	h.refs--
	if h.retired && h.refs == 0 {
		h.close()
	}
}

func (h *Handle) retire() {
	h.refMu.Lock()
	defer h.refMu.Unlock()
	h.retired = true
	if h.refs == 0 {
		h.close()
	}
}
