// Package timex holds small time helpers shared by the chip model and the
// driver side: frequency/period conversion and the packed RTC tick layout
// (whole seconds in the high bits, 15 bits of sub-second ticks below).
package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// SubTickBits is the width of the sub-second field in a packed tick.
const SubTickBits = 15

// PackTick packs whole seconds and sub-second ticks into one 64-bit tick.
// sub is masked to SubTickBits.
func PackTick(secs uint64, sub uint64) uint64 {
	return secs<<SubTickBits | sub&(1<<SubTickBits-1)
}

// TickSeconds extracts the whole-seconds field of a packed tick.
func TickSeconds(tick uint64) uint64 { return tick >> SubTickBits }

// TickSub extracts the sub-second tick field of a packed tick.
func TickSub(tick uint64) uint16 { return uint16(tick & (1<<SubTickBits - 1)) }

// TickToNs converts a packed tick to nanoseconds given the sub-tick period.
func TickToNs(tick uint64, periodNs uint64) uint64 {
	return TickSeconds(tick)*uint64(time.Second) + uint64(TickSub(tick))*periodNs
}
