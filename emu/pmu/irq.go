package pmu

// updateIRQLocked recomputes the interrupt output from the mask and event
// registers. The level is never toggled incrementally; every caller goes
// through this recomputation, whether the change came from the alarm firing
// or from a guest write to either register.
func (d *Device) updateIRQLocked() {
	level := d.reg.u32(regIRQMask)&d.reg.u32(regAlarmEvent) != 0
	d.irqLevel.Store(level)
	if d.onIRQ != nil {
		d.onIRQ(level)
	}
}

// IRQLevel reports the current interrupt line level. Lock-free so an OnIRQ
// callback path may observe it.
func (d *Device) IRQLevel() bool { return d.irqLevel.Load() }
