// Package rtcmon periodically samples a PMU's RTC through its driver and
// publishes the readings on the message bus. The interrupt line is mirrored
// onto the bus as a retained message, so late subscribers still see the
// current level.
package rtcmon

import (
	"context"
	"fmt"
	"time"

	"pmusim-go/bus"
	"pmusim-go/drivers/d2255"
	"pmusim-go/x/mathx"
	"pmusim-go/x/timex"
)

var (
	topicConfig = bus.Topic{"config", "rtcmon"}
	topicRTC    = bus.Topic{"pmu", "rtc"}
	topicIRQ    = bus.Topic{"pmu", "irq"}
	topicDiag   = bus.Topic{"pmu", "diag"}
)

// Reading is one RTC sample, published retained on pmu/rtc.
type Reading struct {
	Seconds  uint64 `json:"seconds"`
	SubTicks uint16 `json:"sub_ticks"`
	TsMs     int64  `json:"ts_ms"`
}

const (
	minInterval = 10 * time.Millisecond
	maxInterval = time.Hour
)

type Service struct {
	dev      *d2255.Device
	interval time.Duration
}

// New creates a monitor polling dev at the given interval (clamped to a
// sane range).
func New(dev *d2255.Device, interval time.Duration) *Service {
	return &Service{
		dev:      dev,
		interval: mathx.Clamp(interval, minInterval, maxInterval),
	}
}

// IRQPublisher returns a line callback suitable for the chip's OnIRQ hook.
func IRQPublisher(conn *bus.Connection) func(level bool) {
	return func(level bool) {
		conn.Publish(conn.NewMessage(topicIRQ, level, true))
	}
}

// DiagPublisher returns a diagnostic sink suitable for the chip's Logf hook.
// Each formatted line goes out on pmu/diag.
func DiagPublisher(conn *bus.Connection) func(format string, a ...any) {
	return func(format string, a ...any) {
		conn.Publish(conn.NewMessage(topicDiag, fmt.Sprintf(format, a...), false))
	}
}

// Start runs the service loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	s.sample(conn)

	for {
		select {
		case <-ctx.Done():
			println("Info: rtcmon service stopping")
			return
		case <-tick.C:
			s.sample(conn)
		case msg := <-cfgSub.Channel():
			// Change poll interval if needed.
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval_ms"]; ok {
					if ms, ok := iv.(float64); ok {
						s.interval = mathx.Clamp(time.Duration(ms)*time.Millisecond, minInterval, maxInterval)
						tick.Reset(s.interval)
					}
				}
			}
		}
	}
}

func (s *Service) sample(conn *bus.Connection) {
	t, err := s.dev.ReadTick()
	if err != nil {
		println("Warn: rtcmon read failed:", err.Error())
		return
	}
	conn.Publish(conn.NewMessage(topicRTC, Reading{
		Seconds:  timex.TickSeconds(t),
		SubTicks: timex.TickSub(t),
		TsMs:     timex.NowMs(),
	}, true))
}
