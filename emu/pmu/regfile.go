package pmu

import "encoding/binary"

// regFile is the flat guest-visible register store. Guests read and write at
// byte granularity, including unaligned slices of multi-byte fields, so it
// stays an opaque byte array with bounds-checked accessors.
type regFile []byte

func newRegFile() regFile { return make(regFile, regFileSize) }

// inRange reports whether [addr, addr+n) lies inside the file.
func (r regFile) inRange(addr uint16, n int) bool { return int(addr)+n <= len(r) }

// read returns the byte at addr, or the 0x00 sentinel when out of range.
func (r regFile) read(addr uint16) byte {
	if !r.inRange(addr, 1) {
		return 0x00
	}
	return r[addr]
}

// write stores b at addr. Out-of-range writes mutate nothing and report
// false.
func (r regFile) write(addr uint16, b byte) bool {
	if !r.inRange(addr, 1) {
		return false
	}
	r[addr] = b
	return true
}

// fill sets n bytes starting at addr to v, clipped to the file.
func (r regFile) fill(addr uint16, n int, v byte) {
	for i := 0; i < n && r.inRange(addr, i+1); i++ {
		r[int(addr)+i] = v
	}
}

// clear zeroes n bytes starting at addr.
func (r regFile) clear(addr uint16, n int) { r.fill(addr, n, 0x00) }

// u32 reads a little-endian 32-bit field at addr.
func (r regFile) u32(addr uint16) uint32 {
	if !r.inRange(addr, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(r[addr:])
}

// putU32 stores a little-endian 32-bit field at addr.
func (r regFile) putU32(addr uint16, v uint32) {
	if !r.inRange(addr, 4) {
		return
	}
	binary.LittleEndian.PutUint32(r[addr:], v)
}

// orU32 ORs bits into a little-endian 32-bit field at addr.
func (r regFile) orU32(addr uint16, v uint32) {
	r.putU32(addr, r.u32(addr)|v)
}
