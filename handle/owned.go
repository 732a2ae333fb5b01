package handle

import (
	"sync/atomic"

	"github.com/wippyai/view-bridge/errors"
)

// noCopy may be embedded into structs which must not be copied after first
// use. go vet's copylocks check reports copies.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Owned is the consumer's single owner of one producer handle. It must be
// freed exactly once and passed by pointer; a copy would be a second owner.
type Owned struct {
	_     noCopy
	rel   Releaser
	h     uint64
	freed atomic.Bool
}

// Own takes ownership of h. The caller must not free h directly afterwards.
func Own(rel Releaser, h uint64) *Owned {
	return &Owned{rel: rel, h: h}
}

// Raw returns the handle for passing as a borrowed argument. The value
// must not be stored past the current call.
func (o *Owned) Raw() (uint64, error) {
	if o.freed.Load() {
		return 0, errors.UseAfterFree(o.h)
	}
	return o.h, nil
}

// Clone asks the producer for a second, independently owned handle.
func (o *Owned) Clone() (*Owned, error) {
	h, err := o.Raw()
	if err != nil {
		return nil, err
	}
	c, err := o.rel.Clone(h)
	if err != nil {
		return nil, err
	}
	return Own(o.rel, c), nil
}

// Free releases the handle. A second Free fails without reaching the
// producer.
func (o *Owned) Free() error {
	if !o.freed.CompareAndSwap(false, true) {
		return errors.UseAfterFree(o.h)
	}
	return o.rel.Free(o.h)
}

// Freed reports whether Free was called.
func (o *Owned) Freed() bool {
	return o.freed.Load()
}
