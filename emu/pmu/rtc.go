package pmu

import (
	"time"

	"pmusim-go/x/timex"
)

// tickNow derives the current packed tick from the wall clock and the
// tick-zero baseline. The live value is always derived, never stored.
func (d *Device) tickNow() (tick uint64, nowNs uint64) {
	nowNs = uint64(d.clock.NowNs())
	elapsed := nowNs - d.rtcOffset
	tick = timex.PackTick(elapsed/uint64(time.Second), elapsed/d.tickPeriod)
	return tick, nowNs
}

// Tick returns the current packed tick value.
func (d *Device) Tick() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	tick, _ := d.tickNow()
	return tick
}

// materializeTick overwrites the live clock window with a fresh tick,
// little-endian with a left-shift-by-one framing in the first byte. The
// layout is a wire contract with the guest driver.
func (d *Device) materializeTick() {
	tick, _ := d.tickNow()
	d.reg[regSubSecondA+0] = byte(tick << 1)
	d.reg[regSubSecondA+1] = byte(tick >> 7)
	d.reg[regSubSecondA+2] = byte(tick >> 15)
	d.reg[regSubSecondA+3] = byte(tick >> 23)
	d.reg[regSubSecondA+4] = byte(tick >> 31)
	d.reg[regSubSecondA+5] = byte(tick >> 39)
}

// writeTickSnapshot records the tick offset in the scratch block for host
// inspection. The two stores at +21 and +22 overlap; the resulting byte
// layout is part of the scratch contract.
func (d *Device) writeTickSnapshot(tick uint64) {
	d.reg.putU32(regScratch+scratchSecsOffset, uint32(tick>>15))
	d.reg.putU32(regScratch+scratchTicksOffset, uint32(tick&0xFF))
	d.reg.putU32(regScratch+scratchTicksOffset+1, uint32(tick>>8)&0x7F)
}

// rearmAlarmLocked re-evaluates the alarm from register state. The target
// register holds an absolute seconds value; subtracting the current
// coarse-seconds tick (not the full packed tick — kept as-is for behavioral
// compatibility) yields the relative delay. Zero fires synchronously.
func (d *Device) rearmAlarmLocked() {
	tick, _ := d.tickNow()
	seconds := d.reg.u32(regSubSecondA) - uint32(tick>>15)

	if d.reg.read(regRTCControl)&ctlAlarmEnable == 0 {
		d.stopAlarmLocked()
		return
	}
	if seconds == 0 {
		d.stopAlarmLocked()
		d.alarmFiredLocked()
		return
	}
	d.armAlarmLocked(time.Duration(seconds) * time.Second)
}

// armAlarmLocked schedules the one-shot callback, cancelling any pending
// one first so at most one is ever outstanding.
func (d *Device) armAlarmLocked(after time.Duration) {
	d.stopAlarmLocked()
	gen := d.timerGen
	d.timer = d.clock.AfterFunc(after, func() { d.alarmTimer(gen) })
}

// stopAlarmLocked cancels the pending callback, if any, and invalidates any
// callback already in flight.
func (d *Device) stopAlarmLocked() {
	d.timerGen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// alarmTimer is the deferred entry point. The generation check discards
// callbacks that lost a race with a disarm or re-arm.
func (d *Device) alarmTimer(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.timerGen {
		return
	}
	d.timer = nil
	d.alarmFiredLocked()
}

// alarmFiredLocked sets the alarm event bit, preserving other event bits,
// and re-evaluates the interrupt line.
func (d *Device) alarmFiredLocked() {
	d.reg.orU32(regAlarmEvent, eventAlarm)
	d.updateIRQLocked()
}
