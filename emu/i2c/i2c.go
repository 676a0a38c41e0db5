// Package i2c provides an in-process two-wire bus for emulated targets.
//
// The Bus implements tinygo.org/x/drivers I2C, so ordinary driver code can be
// pointed at emulated chips with no changes. A Tx with both w and r is
// sequenced as a write transaction followed by a read transaction; targets
// that latch a register address keep it across the intervening Finish.
package i2c

import (
	"sync"

	"tinygo.org/x/drivers"

	"pmusim-go/errcode"
)

// Event is a transaction lifecycle notification delivered to a target.
type Event uint8

const (
	StartRead Event = iota
	StartWrite
	StartWriteAsync
	Finish
	Nack
)

func (e Event) String() string {
	switch e {
	case StartRead:
		return "start-read"
	case StartWrite:
		return "start-write"
	case StartWriteAsync:
		return "start-write-async"
	case Finish:
		return "finish"
	case Nack:
		return "nack"
	default:
		return "unknown"
	}
}

// Target is an addressable device on the bus.
//
// Event returns an error to refuse a transaction. Send delivers one byte in
// the write direction; Recv supplies one byte in the read direction, with
// 0x00 as the sentinel value alongside any error.
type Target interface {
	Event(ev Event) error
	Send(b byte) error
	Recv() (byte, error)
}

// Bus routes controller transfers to attached targets by 7-bit address.
type Bus struct {
	mu      sync.Mutex
	targets map[uint16]Target
	logf    func(format string, a ...any)
}

var _ drivers.I2C = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{targets: make(map[uint16]Target)}
}

// SetLogf installs an optional transfer trace sink.
func (b *Bus) SetLogf(logf func(format string, a ...any)) {
	b.mu.Lock()
	b.logf = logf
	b.mu.Unlock()
}

// Attach places a target at the given bus address, replacing any previous
// occupant.
func (b *Bus) Attach(addr uint16, t Target) {
	b.mu.Lock()
	b.targets[addr] = t
	b.mu.Unlock()
}

// Detach removes the target at addr.
func (b *Bus) Detach(addr uint16) {
	b.mu.Lock()
	delete(b.targets, addr)
	b.mu.Unlock()
}

// Tx implements drivers.I2C. Transfers are serialised; one controller owns
// the bus at a time, as on the wire.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.targets[addr]
	if !ok {
		return &errcode.E{C: errcode.UnknownTarget, Op: "i2c.tx"}
	}

	if len(w) > 0 {
		if err := b.writePhase(addr, t, w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		if err := b.readPhase(addr, t, r); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) writePhase(addr uint16, t Target, w []byte) error {
	if err := t.Event(StartWrite); err != nil {
		return err
	}
	for _, x := range w {
		if err := t.Send(x); err != nil {
			t.Event(Finish)
			return err
		}
	}
	b.tracef("i2c: 0x%02X <- % X", addr, w)
	return t.Event(Finish)
}

func (b *Bus) readPhase(addr uint16, t Target, r []byte) error {
	if err := t.Event(StartRead); err != nil {
		return err
	}
	for i := range r {
		x, err := t.Recv()
		if err != nil {
			t.Event(Finish)
			return err
		}
		r[i] = x
	}
	b.tracef("i2c: 0x%02X -> % X", addr, r)
	return t.Event(Finish)
}

func (b *Bus) tracef(format string, a ...any) {
	if b.logf != nil {
		b.logf(format, a...)
	}
}
