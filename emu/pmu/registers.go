package pmu

// Register map of the modeled chip. Addresses are a contract with the guest
// driver and must not be rearranged.
const (
	// Size of the guest-visible register file.
	regFileSize = 0x8800

	// RTC crystal rate; one sub-second tick per period.
	tickRateHz = 32768
)

const (
	regAlarmEvent = 0x142
	eventAlarm    = 1 << 0

	regIRQMask = 0x1C0

	// Identity/trim block, filled with the all-ones sentinel on reset.
	regMaskRevCode = 0x200
	regTrimRelCode = 0x201
	regPlatformID  = 0x202
	regDeviceID0   = 0x203
	regDeviceID7   = 0x20A

	regRTCControl  = 0x500
	ctlMonitor     = 1 << 0
	ctlAlarmEnable = 1 << 6

	// Live clock window base. Seven bytes are guest-readable; reads anywhere
	// in the window refresh it from the tick clock first.
	regSubSecondA  = 0x502
	clockWindowLen = 7

	// Last alarm-target byte whose write re-evaluates the alarm.
	regAlarmTargetEnd = regSubSecondA + 4

	// Scratch block holding the informational tick-offset snapshot.
	regScratch         = 0x5000
	scratchLen         = 0x27
	scratchSecsOffset  = 4
	scratchTicksOffset = 21
)
