// Package d2255 provides constants for register addresses and bitfields used
// in the operation of the D2255 PMU's RTC, alarm and interrupt blocks.
package d2255

const (
	// 7-bit bus address the SoC wires the PMU to.
	AddressDefault = 0x74

	// --- Register sub-addresses (16-bit, sent high byte first) ---

	// Interrupt plumbing; both are 32-bit little-endian fields.
	regAlarmEvent = 0x142 // R/W, event bits
	regIRQMask    = 0x1C0 // R/W, unmasked events assert the line

	// Identity/trim block; reads 0xFF after chip reset.
	regMaskRevCode = 0x200 // R
	regTrimRelCode = 0x201 // R
	regPlatformID  = 0x202 // R
	regDeviceID0   = 0x203 // R, 8 bytes through 0x20A

	// RTC control.
	regRTCControl = 0x500 // R/W (monitor, alarm enable)

	// Live clock window (7 bytes, refreshed by the chip on read) doubling as
	// the 32-bit absolute alarm target on write.
	regSubSecondA = 0x502

	// Scratch block with the informational tick-offset snapshot.
	regScratch = 0x5000
	scratchLen = 0x27
)

// Event register bits.
const (
	EventAlarm uint32 = 1 << 0
)

// RTC control register bits.
const (
	CtlMonitor     byte = 1 << 0
	CtlAlarmEnable byte = 1 << 6
)

// TickRateHz is the RTC crystal rate; the low 15 bits of a tick count
// sub-second periods at this rate.
const TickRateHz = 32768

// DeviceIDLen is the length of the device identity field.
const DeviceIDLen = 8
