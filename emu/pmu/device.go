// Package pmu models a Dialog-style RTC/power-management chip behind a
// two-wire register protocol: a flat register file addressed by a 16-bit
// register address (high byte first), a 32768 Hz tick clock, a one-shot
// alarm, and a level-sensitive interrupt line driven by mask & event.
//
// Only the clock/alarm/register-access subset of the real chip is modeled;
// voltage rails and the rest of the power plane are out of scope.
package pmu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"pmusim-go/emu/i2c"
	"pmusim-go/errcode"
	"pmusim-go/x/clockx"
	"pmusim-go/x/timex"
)

// Transaction direction.
type opState uint8

const (
	opNone opState = iota
	opRead
	opWrite
)

// Address-phase progress within a write transaction.
type addrState uint8

const (
	addrHigh addrState = iota // awaiting address high byte
	addrLow                   // awaiting address low byte
	addrDone                  // address latched; data bytes follow
)

// Config carries creation-time wiring for a Device.
type Config struct {
	// Addr is the 7-bit bus address the device answers on. Informational;
	// routing is done by the bus the device is attached to.
	Addr uint16

	// OnIRQ, if set, is invoked with the interrupt level on every
	// re-evaluation. It runs with the device locked and must not call back
	// into the device.
	OnIRQ func(level bool)

	// Logf, if set, receives protocol diagnostics (guest errors, traces).
	Logf func(format string, a ...any)
}

// Device is one chip instance. All state is owned by the instance; devices
// are independent of each other.
type Device struct {
	mu sync.Mutex

	addr uint16
	reg  regFile

	clock      clockx.Clock
	timer      clockx.Timer
	timerGen   uint64
	tickPeriod uint64
	rtcOffset  uint64

	op      opState
	regAddr uint16
	aphase  addrState

	irqLevel atomic.Bool
	onIRQ    func(level bool)
	logf     func(format string, a ...any)
}

var _ i2c.Target = (*Device)(nil)

// New creates a device, resets it, snapshots the current wall time as tick
// zero and records the informational tick offset in the scratch block. The
// alarm timer starts disarmed.
func New(clock clockx.Clock, cfg Config) *Device {
	d := &Device{
		addr:       cfg.Addr,
		reg:        newRegFile(),
		clock:      clock,
		tickPeriod: timex.PeriodFromHz(tickRateHz),
		onIRQ:      cfg.OnIRQ,
		logf:       cfg.Logf,
	}
	d.resetLocked()

	// The snapshot is taken before the offset baseline is set, so it packs
	// the absolute wall clock; host inspection only, never read back.
	tick, nowNs := d.tickNow()
	d.writeTickSnapshot(tick)
	d.rtcOffset = nowNs
	return d
}

// Addr returns the configured bus address.
func (d *Device) Addr() uint16 { return d.addr }

// Reset returns the device to its power-on register state: transaction
// aborted, register file zeroed, identity/trim block refilled with 0xFF.
// The tick-zero baseline and any armed alarm are untouched.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

func (d *Device) resetLocked() {
	d.op = opNone
	d.regAddr = 0
	d.aphase = addrHigh
	d.reg.clear(0, len(d.reg))
	d.reg.fill(regMaskRevCode, regDeviceID7-regMaskRevCode, 0xFF)
}

// Event handles a transaction lifecycle notification from the bus.
func (d *Device) Event(ev i2c.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev {
	case i2c.StartRead:
		if d.op != opNone {
			return d.violation("pmu.event", errcode.Busy, "start-read while a transaction is open")
		}
		d.op = opRead
		return nil
	case i2c.StartWrite:
		if d.op != opNone {
			return d.violation("pmu.event", errcode.Busy, "start-write while a transaction is open")
		}
		d.op = opWrite
		d.regAddr = 0
		d.aphase = addrHigh
		return nil
	case i2c.StartWriteAsync:
		return d.violation("pmu.event", errcode.Unsupported, "async write start")
	case i2c.Finish:
		d.op = opNone
		return nil
	case i2c.Nack:
		return d.violation("pmu.event", errcode.Nack, "transfer nacked")
	default:
		return d.violation("pmu.event", errcode.Unsupported, "unknown event")
	}
}

// Recv supplies one byte in the read direction and advances the register
// address. Reads inside the live clock window refresh it from the tick clock
// first, so every read observes a fresh snapshot.
func (d *Device) Recv() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.op != opRead {
		return 0x00, d.violation("pmu.recv", errcode.DirMismatch, "byte requested outside a read transaction")
	}
	if d.aphase != addrDone {
		return 0x00, d.violation("pmu.recv", errcode.NotAddressed, "byte requested before address phase completed")
	}
	if !d.reg.inRange(d.regAddr, 1) {
		return 0x00, d.violationf("pmu.recv", errcode.AddrRange, "read at 0x%04X out of range", d.regAddr)
	}

	if d.regAddr >= regSubSecondA && d.regAddr < regSubSecondA+clockWindowLen {
		d.materializeTick()
	}

	b := d.reg.read(d.regAddr)
	d.regAddr++
	return b, nil
}

// Send consumes one byte in the write direction: first the two address-phase
// bytes, then data bytes at the latched (auto-incrementing) address.
func (d *Device) Send(b byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.op != opWrite {
		return d.violation("pmu.send", errcode.DirMismatch, "byte delivered outside a write transaction")
	}

	switch d.aphase {
	case addrHigh:
		d.regAddr |= uint16(b) << 8
		d.aphase = addrLow
		return nil
	case addrLow:
		d.regAddr |= uint16(b)
		d.aphase = addrDone
		return nil
	default:
		if !d.reg.inRange(d.regAddr, 1) {
			return d.violationf("pmu.send", errcode.AddrRange, "write 0x%02X at 0x%04X out of range", b, d.regAddr)
		}
		d.reg.write(d.regAddr, b)
		written := d.regAddr
		d.regAddr++

		switch {
		case written == regRTCControl,
			written >= regSubSecondA && written <= regAlarmTargetEnd:
			d.rearmAlarmLocked()
		case written >= regIRQMask && written < regIRQMask+4,
			written >= regAlarmEvent && written < regAlarmEvent+4:
			d.updateIRQLocked()
		}
		return nil
	}
}

// violation reports a protocol violation to the diagnostic sink and returns
// it as a rejection to the caller. Violations never tear the device down.
func (d *Device) violation(op string, c errcode.Code, msg string) error {
	if d.logf != nil {
		d.logf("pmu 0x%02X: %s: %s", d.addr, c, msg)
	}
	return &errcode.E{C: c, Op: op, Msg: msg}
}

func (d *Device) violationf(op string, c errcode.Code, format string, a ...any) error {
	return d.violation(op, c, fmt.Sprintf(format, a...))
}
