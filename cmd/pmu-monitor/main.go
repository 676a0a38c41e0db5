// cmd/pmu-monitor/main.go
//
// Interactive monitor for the emulated PMU: attaches one chip to an
// in-process I²C bus, runs the RTC monitor service, and offers a small shell
// for poking registers, arming the alarm and watching the interrupt line.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"

	"pmusim-go/bus"
	"pmusim-go/drivers/d2255"
	"pmusim-go/emu/i2c"
	"pmusim-go/emu/pmu"
	"pmusim-go/services/rtcmon"
	"pmusim-go/x/clockx"
)

// monitorConfig is supplied via -config as JSON.
type monitorConfig struct {
	Addr    uint16 `json:"addr"`
	PollMs  int    `json:"poll_ms"`
	Verbose bool   `json:"verbose"`
}

func defaultConfig() monitorConfig {
	return monitorConfig{Addr: d2255.AddressDefault, PollMs: 1000}
}

func main() {
	cfgPath := flag.String("config", "", "JSON config file")
	verbose := flag.Bool("v", false, "log guest protocol diagnostics")
	flag.Parse()

	cfg := defaultConfig()
	if *cfgPath != "" {
		raw, err := os.ReadFile(*cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
	}
	if *verbose {
		cfg.Verbose = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mb := bus.NewBus(16)

	// Protocol violations always go out on pmu/diag; -v echoes them too.
	diag := rtcmon.DiagPublisher(mb.NewConnection("diag"))
	logf := diag
	if cfg.Verbose {
		logf = func(format string, a ...any) {
			fmt.Printf(format+"\n", a...)
			diag(format, a...)
		}
	}

	ib := i2c.NewBus()
	dev := pmu.New(clockx.System{}, pmu.Config{
		Addr:  cfg.Addr,
		Logf:  logf,
		OnIRQ: rtcmon.IRQPublisher(mb.NewConnection("pmu")),
	})
	ib.Attach(cfg.Addr, dev)

	drv := d2255.New(ib, cfg.Addr)

	svc := rtcmon.New(drv, time.Duration(cfg.PollMs)*time.Millisecond)
	if err := svc.Start(ctx, mb.NewConnection("rtcmon")); err != nil {
		fmt.Fprintln(os.Stderr, "rtcmon:", err)
		os.Exit(1)
	}

	// Print IRQ edges as they happen.
	irqConn := mb.NewConnection("monitor")
	irqSub := irqConn.Subscribe(bus.Topic{"pmu", "irq"})
	go func() {
		for msg := range irqSub.Channel() {
			fmt.Printf("IRQ line: %v\n", msg.Payload)
		}
	}()

	fmt.Printf("pmu-monitor: chip at 0x%02X, poll %dms. Type 'help'.\n", cfg.Addr, cfg.PollMs)
	repl(dev, drv)
}

func repl(dev *pmu.Device, drv *d2255.Device) {
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("pmu> ")
		if !in.Scan() {
			return
		}
		args, err := shlex.Split(in.Text())
		if err != nil {
			fmt.Println("parse:", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if err := run(dev, drv, args); err != nil {
			if err == errQuit {
				return
			}
			fmt.Println("error:", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func run(dev *pmu.Device, drv *d2255.Device, args []string) error {
	switch args[0] {
	case "help":
		fmt.Print(`commands:
  read <reg> [n]      read n bytes (default 1) starting at reg
  write <reg> <b>...  write bytes starting at reg
  tick                read the packed RTC tick
  uptime              chip uptime
  alarm <secs>        arm the alarm secs from now (0 = fire now)
  alarm off           disable the alarm
  events              show pending event bits
  ack                 acknowledge the alarm event
  mask <hex32>        set the event mask
  id                  read the device identity block
  scratch             dump the scratch block
  irq                 show the interrupt line level
  reset               chip reset
  quit
`)
		return nil
	case "quit", "exit":
		return errQuit
	case "read":
		if len(args) < 2 {
			return fmt.Errorf("usage: read <reg> [n]")
		}
		reg, err := parseU16(args[1])
		if err != nil {
			return err
		}
		n := 1
		if len(args) > 2 {
			if n, err = strconv.Atoi(args[2]); err != nil {
				return err
			}
		}
		buf := make([]byte, n)
		if err := drv.ReadBytes(reg, buf); err != nil {
			return err
		}
		fmt.Printf("0x%04X: % X\n", reg, buf)
		return nil
	case "write":
		if len(args) < 3 {
			return fmt.Errorf("usage: write <reg> <byte>...")
		}
		reg, err := parseU16(args[1])
		if err != nil {
			return err
		}
		data := make([]byte, 0, len(args)-2)
		for _, s := range args[2:] {
			v, err := strconv.ParseUint(s, 0, 8)
			if err != nil {
				return err
			}
			data = append(data, byte(v))
		}
		return drv.WriteBytes(reg, data)
	case "tick":
		t, err := drv.ReadTick()
		if err != nil {
			return err
		}
		fmt.Printf("tick %d (secs %d, sub %d)\n", t, t>>15, t&0x7FFF)
		return nil
	case "uptime":
		up, err := drv.Uptime()
		if err != nil {
			return err
		}
		fmt.Println(up)
		return nil
	case "alarm":
		if len(args) < 2 {
			return fmt.Errorf("usage: alarm <secs>|off")
		}
		if args[1] == "off" {
			return drv.DisableAlarm()
		}
		secs, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return err
		}
		return drv.SetAlarmAfter(uint32(secs))
	case "events":
		ev, err := drv.PendingEvents()
		if err != nil {
			return err
		}
		fmt.Printf("events 0x%08X\n", ev)
		return nil
	case "ack":
		return drv.AckEvents(d2255.EventAlarm)
	case "mask":
		if len(args) < 2 {
			return fmt.Errorf("usage: mask <hex32>")
		}
		m, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return err
		}
		return drv.SetEventMask(uint32(m))
	case "id":
		id, err := drv.DeviceID()
		if err != nil {
			return err
		}
		fmt.Printf("device id % X\n", id[:])
		return nil
	case "scratch":
		s, err := drv.Scratch()
		if err != nil {
			return err
		}
		fmt.Printf("scratch % X\n", s)
		return nil
	case "irq":
		fmt.Println("level:", dev.IRQLevel())
		return nil
	case "reset":
		dev.Reset()
		return nil
	default:
		return fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
}

func parseU16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	return uint16(v), err
}
