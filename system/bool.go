package system

import "sync/atomic"

// AtomicBool is a boolean value that is updated and read atomically.
type AtomicBool struct {
	v uint32
}

func NewAtomicBool(v bool) *AtomicBool {
	ab := new(AtomicBool)
	ab.Store(v)
	return ab
}

func (ab *AtomicBool) Store(v bool) {
	var i uint32
	if v {
		i = 1
	}
	atomic.StoreUint32(&ab.v, i)
}

// SwapIf stores the value "v" if the current value stored in the AtomicBool
// is the opposite. Returns true if the value was swapped.
func (ab *AtomicBool) SwapIf(v bool) bool {
	var next uint32
	var prev uint32
	if v {
		next = 1
	} else {
		prev = 1
	}
	return atomic.CompareAndSwapUint32(&ab.v, prev, next)
}

func (ab *AtomicBool) Load() bool {
	return atomic.LoadUint32(&ab.v) == 1
}
