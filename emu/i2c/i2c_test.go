package i2c

import (
	"testing"

	"pmusim-go/errcode"
)

// scriptTarget records the protocol stream and serves canned read bytes.
type scriptTarget struct {
	events  []Event
	sent    []byte
	recvQ   []byte
	sendErr error
	failAt  int // error on the Nth Send (1-based), 0 = never
}

func (s *scriptTarget) Event(ev Event) error { s.events = append(s.events, ev); return nil }

func (s *scriptTarget) Send(b byte) error {
	if s.failAt > 0 && len(s.sent)+1 == s.failAt {
		return s.sendErr
	}
	s.sent = append(s.sent, b)
	return nil
}

func (s *scriptTarget) Recv() (byte, error) {
	if len(s.recvQ) == 0 {
		return 0x00, nil
	}
	b := s.recvQ[0]
	s.recvQ = s.recvQ[1:]
	return b, nil
}

func eventsEqual(a, b []Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTxWriteThenRead(t *testing.T) {
	b := NewBus()
	tg := &scriptTarget{recvQ: []byte{0xAA, 0xBB}}
	b.Attach(0x42, tg)

	r := make([]byte, 2)
	if err := b.Tx(0x42, []byte{0x01, 0x02}, r); err != nil {
		t.Fatalf("tx: %v", err)
	}

	want := []Event{StartWrite, Finish, StartRead, Finish}
	if !eventsEqual(tg.events, want) {
		t.Fatalf("events %v, want %v", tg.events, want)
	}
	if string(tg.sent) != "\x01\x02" {
		t.Fatalf("sent % X", tg.sent)
	}
	if r[0] != 0xAA || r[1] != 0xBB {
		t.Fatalf("read % X", r)
	}
}

func TestTxWriteOnlyReadOnly(t *testing.T) {
	b := NewBus()
	tg := &scriptTarget{recvQ: []byte{0x7F}}
	b.Attach(0x42, tg)

	if err := b.Tx(0x42, []byte{0x10}, nil); err != nil {
		t.Fatal(err)
	}
	if !eventsEqual(tg.events, []Event{StartWrite, Finish}) {
		t.Fatalf("write-only events %v", tg.events)
	}

	tg.events = nil
	r := make([]byte, 1)
	if err := b.Tx(0x42, nil, r); err != nil {
		t.Fatal(err)
	}
	if !eventsEqual(tg.events, []Event{StartRead, Finish}) {
		t.Fatalf("read-only events %v", tg.events)
	}
	if r[0] != 0x7F {
		t.Fatalf("read 0x%02X", r[0])
	}
}

func TestTxUnknownTarget(t *testing.T) {
	b := NewBus()
	err := b.Tx(0x10, []byte{0x00}, nil)
	if errcode.Of(err) != errcode.UnknownTarget {
		t.Fatalf("err = %v", err)
	}
}

func TestTxSendErrorStillFinishes(t *testing.T) {
	b := NewBus()
	tg := &scriptTarget{
		sendErr: &errcode.E{C: errcode.AddrRange, Op: "test"},
		failAt:  2,
	}
	b.Attach(0x42, tg)

	err := b.Tx(0x42, []byte{0x01, 0x02, 0x03}, nil)
	if errcode.Of(err) != errcode.AddrRange {
		t.Fatalf("err = %v", err)
	}
	// The transaction is still closed so the target is not left hanging.
	if !eventsEqual(tg.events, []Event{StartWrite, Finish}) {
		t.Fatalf("events %v", tg.events)
	}
	if len(tg.sent) != 1 {
		t.Fatalf("sent % X, want only the first byte", tg.sent)
	}
}

func TestDetach(t *testing.T) {
	b := NewBus()
	tg := &scriptTarget{}
	b.Attach(0x42, tg)
	b.Detach(0x42)
	if errcode.Of(b.Tx(0x42, []byte{0}, nil)) != errcode.UnknownTarget {
		t.Fatal("detached target still reachable")
	}
}
