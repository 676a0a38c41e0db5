package d2255

import (
	"encoding/binary"

	"tinygo.org/x/drivers"
)

// Device represents a D2255 PMU instance on an I²C bus.
//
// The register protocol is: a write transaction carrying the two address
// bytes (high, low) optionally followed by data bytes, then, for reads, a
// read transaction that streams bytes from the latched, auto-incrementing
// address. I2C.Tx with both w and r performs exactly that sequence.
type Device struct {
	i2c  drivers.I2C
	addr uint16

	// Fixed buffers to avoid per-call heap allocations.
	w [10]byte
	r [8]byte
}

// New constructs a Device at the given bus address (AddressDefault if 0).
func New(i2c drivers.I2C, addr uint16) *Device {
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr}
}

// ReadBytes fills dst from consecutive registers starting at reg.
func (d *Device) ReadBytes(reg uint16, dst []byte) error {
	d.w[0] = byte(reg >> 8)
	d.w[1] = byte(reg)
	return d.i2c.Tx(d.addr, d.w[:2], dst)
}

// WriteBytes stores data to consecutive registers starting at reg.
func (d *Device) WriteBytes(reg uint16, data []byte) error {
	if len(data) <= len(d.w)-2 {
		d.w[0] = byte(reg >> 8)
		d.w[1] = byte(reg)
		n := copy(d.w[2:], data)
		return d.i2c.Tx(d.addr, d.w[:2+n], nil)
	}
	buf := make([]byte, 2+len(data))
	buf[0] = byte(reg >> 8)
	buf[1] = byte(reg)
	copy(buf[2:], data)
	return d.i2c.Tx(d.addr, buf, nil)
}

// ReadReg reads one register byte.
func (d *Device) ReadReg(reg uint16) (byte, error) {
	if err := d.ReadBytes(reg, d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

// WriteReg writes one register byte.
func (d *Device) WriteReg(reg uint16, v byte) error {
	return d.WriteBytes(reg, []byte{v})
}

// 32-bit field operations (little-endian).

func (d *Device) readU32(reg uint16) (uint32, error) {
	if err := d.ReadBytes(reg, d.r[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(d.r[:4]), nil
}

func (d *Device) writeU32(reg uint16, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return d.WriteBytes(reg, b[:])
}

// Generic read-modify-write for single-byte registers with bitmasks.
func (d *Device) modifyRegister(reg uint16, set, clear byte) error {
	cur, err := d.ReadReg(reg)
	if err != nil {
		return err
	}
	return d.WriteReg(reg, (cur|set)&^clear)
}

// Identity.

// DeviceID reads the 8-byte device identity field.
func (d *Device) DeviceID() ([DeviceIDLen]byte, error) {
	var id [DeviceIDLen]byte
	err := d.ReadBytes(regDeviceID0, id[:])
	return id, err
}

// MaskRev reads the mask revision code.
func (d *Device) MaskRev() (byte, error) { return d.ReadReg(regMaskRevCode) }

// PlatformID reads the platform identifier.
func (d *Device) PlatformID() (byte, error) { return d.ReadReg(regPlatformID) }

// Scratch reads the whole scratch block, including the tick-offset snapshot
// the chip records at power-on.
func (d *Device) Scratch() ([]byte, error) {
	buf := make([]byte, scratchLen)
	if err := d.ReadBytes(regScratch, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
