// Package clockx abstracts the wall clock and one-shot timers so device
// models can run against real time in normal use and against a
// test-controlled timeline in tests.
package clockx

import (
	"sort"
	"sync"
	"time"
)

// Clock supplies the current time and deferred one-shot callbacks.
type Clock interface {
	NowNs() int64
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending one-shot callback.
// Stop reports whether the call was prevented from running.
type Timer interface {
	Stop() bool
}

// System is the real wall clock.
type System struct{}

func (System) NowNs() int64 { return time.Now().UnixNano() }

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return sysTimer{time.AfterFunc(d, f)}
}

type sysTimer struct{ t *time.Timer }

func (s sysTimer) Stop() bool { return s.t.Stop() }

// Virtual is a deterministic clock for tests. Time only moves when Advance
// is called; due callbacks run synchronously, in deadline order, on the
// calling goroutine.
type Virtual struct {
	mu     sync.Mutex
	nowNs  int64
	timers []*vtimer
}

type vtimer struct {
	v       *Virtual
	atNs    int64
	f       func()
	stopped bool
}

// NewVirtual creates a virtual clock whose current time is startNs.
func NewVirtual(startNs int64) *Virtual {
	return &Virtual{nowNs: startNs}
}

func (v *Virtual) NowNs() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nowNs
}

func (v *Virtual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	t := &vtimer{v: v, atNs: v.nowNs + int64(d), f: f}
	v.timers = append(v.timers, t)
	return t
}

func (t *vtimer) Stop() bool {
	t.v.mu.Lock()
	defer t.v.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Advance moves the clock forward by d, firing every due timer in deadline
// order. Callbacks observe NowNs equal to their own deadline and may arm
// further timers; those fire too if they fall within the window.
func (v *Virtual) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	v.mu.Lock()
	target := v.nowNs + int64(d)
	for {
		t := v.popDue(target)
		if t == nil {
			break
		}
		v.nowNs = t.atNs
		v.mu.Unlock()
		t.f()
		v.mu.Lock()
	}
	v.nowNs = target
	v.mu.Unlock()
}

// popDue removes and returns the earliest live timer with atNs <= target.
// Caller holds v.mu.
func (v *Virtual) popDue(target int64) *vtimer {
	live := v.timers[:0]
	for _, t := range v.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	v.timers = live
	if len(v.timers) == 0 {
		return nil
	}
	sort.SliceStable(v.timers, func(i, j int) bool { return v.timers[i].atNs < v.timers[j].atNs })
	t := v.timers[0]
	if t.atNs > target {
		return nil
	}
	v.timers = v.timers[1:]
	t.stopped = true
	return t
}
