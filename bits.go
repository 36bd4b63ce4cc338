package blockxz

import "io"

// putUint32LE puts the little-endian representation of x into the first
// four bytes of p.
func putUint32LE(p []byte, x uint32) {
	p[0] = byte(x)
	p[1] = byte(x >> 8)
	p[2] = byte(x >> 16)
	p[3] = byte(x >> 24)
}

// putUint64LE puts the little-endian representation of x into the first
// eight bytes of p.
func putUint64LE(p []byte, x uint64) {
	p[0] = byte(x)
	p[1] = byte(x >> 8)
	p[2] = byte(x >> 16)
	p[3] = byte(x >> 24)
	p[4] = byte(x >> 32)
	p[5] = byte(x >> 40)
	p[6] = byte(x >> 48)
	p[7] = byte(x >> 56)
}

// uint32LE converts a little endian representation to an uint32 value.
func uint32LE(p []byte) uint32 {
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 |
		uint32(p[3])<<24
}

// maxUvarintLen is the maximum number of bytes a conforming XZ varint
// may occupy: up to nine continuation bytes followed by a terminator.
const maxUvarintLen = 10

// putUvarint puts the base-128 little-endian representation of x into
// p, which must have capacity for at least maxUvarintLen bytes, and
// returns the number of bytes written.
func putUvarint(p []byte, x uint64) int {
	i := 0
	for x >= 0x80 {
		p[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	p[i] = byte(x)
	return i + 1
}

// readUvarint reads an XZ base-128 little-endian variable-length
// integer from r. It returns KindOverflow if the 10th byte still has
// its continuation bit set, or if an encoding longer than one byte
// ends in a zero byte: the canonical encoding stops at the last
// non-zero group of seven bits, so only the value 0 itself is
// encoded with a terminating zero byte.
func readUvarint(r io.ByteReader) (x uint64, n int, err error) {
	var s uint
	for {
		var b byte
		b, err = r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		if b&0x80 == 0 {
			if b == 0 && n > 1 {
				return 0, n, newErr(KindOverflow, "varint ends in a zero byte", nil)
			}
			x |= uint64(b) << s
			return x, n, nil
		}
		if n >= maxUvarintLen {
			return 0, n, newErr(KindOverflow, "varint exceeds 63 bits", nil)
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
}
