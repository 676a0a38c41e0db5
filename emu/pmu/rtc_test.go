package pmu

import (
	"testing"
	"time"

	"pmusim-go/x/clockx"
	"pmusim-go/x/timex"
)

func TestTickDerivation(t *testing.T) {
	d, vc := newTestDevice()

	if got := d.Tick(); got != 0 {
		t.Fatalf("tick at creation = %d, want 0", got)
	}

	vc.Advance(2500 * time.Millisecond)
	tick := d.Tick()
	if timex.TickSeconds(tick) != 2 {
		t.Fatalf("seconds = %d, want 2", timex.TickSeconds(tick))
	}
	// 2.5e9 ns / 30517 ns-per-tick = 81921 ticks, mod 32768 = 16385.
	if timex.TickSub(tick) != 16385 {
		t.Fatalf("sub ticks = %d, want 16385", timex.TickSub(tick))
	}
}

func TestClockWindowMaterialization(t *testing.T) {
	d, vc := newTestDevice()
	vc.Advance(3 * time.Second)

	win := readSeq(t, d, regSubSecondA, 7)
	tick := d.Tick()

	want := []byte{
		byte(tick << 1),
		byte(tick >> 7),
		byte(tick >> 15),
		byte(tick >> 23),
		byte(tick >> 31),
		byte(tick >> 39),
		0x00,
	}
	for i := range want {
		if win[i] != want[i] {
			t.Fatalf("window[%d] = 0x%02X, want 0x%02X", i, win[i], want[i])
		}
	}
}

func TestClockWindowNonDecreasing(t *testing.T) {
	d, vc := newTestDevice()

	decode := func(b []byte) uint64 {
		return uint64(b[0])>>1 | uint64(b[1])<<7 | uint64(b[2])<<15 |
			uint64(b[3])<<23 | uint64(b[4])<<31 | uint64(b[5])<<39
	}

	first := decode(readSeq(t, d, regSubSecondA, 6))
	second := decode(readSeq(t, d, regSubSecondA, 6))
	if second < first {
		t.Fatalf("tick went backwards: %d then %d", first, second)
	}

	vc.Advance(10 * time.Millisecond)
	third := decode(readSeq(t, d, regSubSecondA, 6))
	if third <= second {
		t.Fatalf("tick did not advance: %d then %d", second, third)
	}
}

func TestScratchSnapshotAtCreation(t *testing.T) {
	d, _ := newTestDevice()

	// The snapshot packs the virtual wall time against a zero baseline:
	// 1000 s, and (1000e9 ns / 30517 ns) mod 32768 = 620 sub ticks.
	tick := uint64(1000)<<15 | 620

	if got := d.reg.u32(regScratch + scratchSecsOffset); got != uint32(tick>>15) {
		t.Fatalf("scratch secs = %d, want %d", got, tick>>15)
	}
	if got := d.reg.read(regScratch + scratchTicksOffset); got != byte(tick) {
		t.Fatalf("scratch tick low = 0x%02X, want 0x%02X", got, byte(tick))
	}
	if got := d.reg.read(regScratch + scratchTicksOffset + 1); got != byte(tick>>8)&0x7F {
		t.Fatalf("scratch tick high = 0x%02X, want 0x%02X", got, byte(tick>>8)&0x7F)
	}
	// Tail of the overlapping 32-bit store.
	for off := scratchTicksOffset + 2; off < scratchTicksOffset+5; off++ {
		if got := d.reg.read(regScratch + uint16(off)); got != 0x00 {
			t.Fatalf("scratch+%d = 0x%02X, want 0x00", off, got)
		}
	}
}

func TestAlarmDeferredFire(t *testing.T) {
	var levels []bool
	vc := clockx.NewVirtual(testStartNs)
	d := New(vc, Config{Addr: 0x74, OnIRQ: func(l bool) { levels = append(levels, l) }})

	writeSeq(t, d, regIRQMask, 0x01, 0x00, 0x00, 0x00)
	writeSeq(t, d, regSubSecondA, 0x05, 0x00, 0x00, 0x00) // absolute target: 5 s
	writeSeq(t, d, regRTCControl, ctlAlarmEnable)

	vc.Advance(4 * time.Second)
	if d.reg.u32(regAlarmEvent)&eventAlarm != 0 {
		t.Fatal("alarm fired early")
	}
	vc.Advance(1 * time.Second)
	if d.reg.u32(regAlarmEvent)&eventAlarm == 0 {
		t.Fatal("alarm did not fire at the target second")
	}
	if !d.IRQLevel() {
		t.Fatal("interrupt line not asserted")
	}
	if len(levels) == 0 || !levels[len(levels)-1] {
		t.Fatalf("line callback levels = %v", levels)
	}
}

func TestAlarmSynchronousFire(t *testing.T) {
	d, _ := newTestDevice()

	writeSeq(t, d, regIRQMask, 0x01, 0x00, 0x00, 0x00)
	// Target equals the current coarse second, so enabling fires within the
	// control write itself, with no deferral.
	writeSeq(t, d, regSubSecondA, 0x00, 0x00, 0x00, 0x00)
	writeSeq(t, d, regRTCControl, ctlAlarmEnable)

	if d.reg.u32(regAlarmEvent)&eventAlarm == 0 {
		t.Fatal("alarm did not fire synchronously")
	}
	if !d.IRQLevel() {
		t.Fatal("interrupt line not asserted")
	}
}

func TestAlarmDisableCancels(t *testing.T) {
	d, vc := newTestDevice()

	writeSeq(t, d, regIRQMask, 0x01, 0x00, 0x00, 0x00)
	writeSeq(t, d, regSubSecondA, 0x05, 0x00, 0x00, 0x00)
	writeSeq(t, d, regRTCControl, ctlAlarmEnable)
	writeSeq(t, d, regRTCControl, 0x00)

	vc.Advance(60 * time.Second)
	if d.reg.u32(regAlarmEvent)&eventAlarm != 0 {
		t.Fatal("alarm fired after being disabled")
	}
	if d.IRQLevel() {
		t.Fatal("interrupt line asserted after disable")
	}
}

func TestAlarmRearmReplacesPending(t *testing.T) {
	d, vc := newTestDevice()

	writeSeq(t, d, regIRQMask, 0x01, 0x00, 0x00, 0x00)
	writeSeq(t, d, regSubSecondA, 0x09, 0x00, 0x00, 0x00)
	writeSeq(t, d, regRTCControl, ctlAlarmEnable)
	// Re-target to 2 s; the pending 9 s callback must be cancelled.
	writeSeq(t, d, regSubSecondA, 0x02, 0x00, 0x00, 0x00)

	vc.Advance(2 * time.Second)
	if d.reg.u32(regAlarmEvent)&eventAlarm == 0 {
		t.Fatal("re-targeted alarm did not fire")
	}

	// Acknowledge, then make sure the stale callback never lands.
	writeSeq(t, d, regAlarmEvent, 0x00, 0x00, 0x00, 0x00)
	vc.Advance(60 * time.Second)
	if d.reg.u32(regAlarmEvent)&eventAlarm != 0 {
		t.Fatal("stale alarm callback fired")
	}
}

func TestIRQRecomputedOnMaskAndEventWrites(t *testing.T) {
	d, _ := newTestDevice()

	// Event set while masked: line stays low.
	writeSeq(t, d, regAlarmEvent, 0x01, 0x00, 0x00, 0x00)
	if d.IRQLevel() {
		t.Fatal("line asserted with zero mask")
	}

	// Unmasking recomputes and raises.
	writeSeq(t, d, regIRQMask, 0x01, 0x00, 0x00, 0x00)
	if !d.IRQLevel() {
		t.Fatal("line not asserted after unmask")
	}

	// Acknowledging the event drops it.
	writeSeq(t, d, regAlarmEvent, 0x00, 0x00, 0x00, 0x00)
	if d.IRQLevel() {
		t.Fatal("line still asserted after event cleared")
	}
}
