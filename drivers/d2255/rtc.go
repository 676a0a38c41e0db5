package d2255

import (
	"time"

	"pmusim-go/x/timex"
)

// ReadTick reads the live clock window and unpacks it into the 64-bit tick:
// whole seconds since chip power-on in the high bits, 15 bits of 32768 Hz
// sub-second ticks below. The first window byte carries tick bits 0..6
// shifted up by one; the rest are plain 8-bit slices.
func (d *Device) ReadTick() (uint64, error) {
	var b [7]byte
	if err := d.ReadBytes(regSubSecondA, b[:]); err != nil {
		return 0, err
	}
	tick := uint64(b[0])>>1 |
		uint64(b[1])<<7 |
		uint64(b[2])<<15 |
		uint64(b[3])<<23 |
		uint64(b[4])<<31 |
		uint64(b[5])<<39
	return tick, nil
}

// Uptime converts the current tick to a duration since chip power-on.
func (d *Device) Uptime() (time.Duration, error) {
	tick, err := d.ReadTick()
	if err != nil {
		return 0, err
	}
	return time.Duration(timex.TickToNs(tick, timex.PeriodFromHz(TickRateHz))), nil
}

// Alarm control.
//
// The chip re-evaluates its alarm on every byte written to the control
// register or the alarm target, so the target is always written with the
// alarm disabled and enabled last.

// SetAlarmTarget arms the alarm for an absolute target, in whole seconds of
// chip uptime.
func (d *Device) SetAlarmTarget(secs uint32) error {
	if err := d.DisableAlarm(); err != nil {
		return err
	}
	if err := d.writeU32(regSubSecondA, secs); err != nil {
		return err
	}
	return d.EnableAlarm()
}

// SetAlarmAfter arms the alarm delta seconds from the current tick.
// delta 0 fires the alarm immediately.
func (d *Device) SetAlarmAfter(delta uint32) error {
	tick, err := d.ReadTick()
	if err != nil {
		return err
	}
	return d.SetAlarmTarget(uint32(timex.TickSeconds(tick)) + delta)
}

// EnableAlarm sets the alarm-enable control bit.
func (d *Device) EnableAlarm() error {
	return d.modifyRegister(regRTCControl, CtlAlarmEnable, 0)
}

// DisableAlarm clears the alarm-enable control bit, cancelling any pending
// alarm in the chip.
func (d *Device) DisableAlarm() error {
	return d.modifyRegister(regRTCControl, 0, CtlAlarmEnable)
}

// Events and masking.

// PendingEvents reads the event register.
func (d *Device) PendingEvents() (uint32, error) { return d.readU32(regAlarmEvent) }

// AlarmPending reports whether the alarm event bit is set.
func (d *Device) AlarmPending() (bool, error) {
	ev, err := d.PendingEvents()
	return ev&EventAlarm != 0, err
}

// AckEvents clears the given event bits. The chip re-evaluates the interrupt
// line on the write, so acknowledging the last unmasked event drops it.
func (d *Device) AckEvents(bits uint32) error {
	ev, err := d.readU32(regAlarmEvent)
	if err != nil {
		return err
	}
	return d.writeU32(regAlarmEvent, ev&^bits)
}

// SetEventMask writes the interrupt mask register.
func (d *Device) SetEventMask(mask uint32) error { return d.writeU32(regIRQMask, mask) }

// EventMask reads the interrupt mask register.
func (d *Device) EventMask() (uint32, error) { return d.readU32(regIRQMask) }
