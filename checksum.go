package blockxz

import (
	"crypto/sha256"
	"hash"
	"hash/crc32"
	"hash/crc64"
)

// CheckKind identifies the integrity check algorithm a stream declares
// in its stream flags (§3). It is constant across every block of a
// given stream, and (per this package's MixedChecksumStreams rule)
// across every stream of a given file.
type CheckKind byte

// The check kinds recognized by the XZ format. Any other low-nibble
// value in the stream flags is reserved and rejected.
const (
	CheckNone   CheckKind = 0x00
	CheckCRC32  CheckKind = 0x01
	CheckCRC64  CheckKind = 0x04
	CheckSHA256 CheckKind = 0x0a
)

func (k CheckKind) String() string {
	switch k {
	case CheckNone:
		return "None"
	case CheckCRC32:
		return "CRC32"
	case CheckCRC64:
		return "CRC64"
	case CheckSHA256:
		return "SHA-256"
	default:
		return "Reserved"
	}
}

// Size returns the length in bytes of the check field that follows a
// block's compressed payload for this check kind (§4.6 step 2).
func (k CheckKind) Size() int {
	switch k {
	case CheckNone:
		return 0
	case CheckCRC32:
		return 4
	case CheckCRC64:
		return 8
	case CheckSHA256:
		return 32
	default:
		return 0
	}
}

// parseCheckKind validates the second stream-flags byte (check kind in
// the low nibble, reserved zero high nibble) and returns the
// corresponding CheckKind, or a KindBadMagic error for any value other
// than the four recognized check kinds.
func parseCheckKind(b byte) (CheckKind, error) {
	switch CheckKind(b) {
	case CheckNone, CheckCRC32, CheckCRC64, CheckSHA256:
		return CheckKind(b), nil
	default:
		return 0, newErrf(KindBadMagic, nil, "reserved check kind 0x%02x in stream flags", b)
	}
}

// checksumCRC32 computes the unsigned 32-bit CRC used throughout the
// XZ container format (polynomial 0xEDB88320, reflected).
func checksumCRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// newCheckHash returns a hash.Hash producing the check field for kind,
// or nil for CheckNone (no check field is ever read or verified for a
// stream with no check).
func newCheckHash(kind CheckKind) hash.Hash {
	switch kind {
	case CheckCRC32:
		return &crc32LEHash{Hash32: crc32.NewIEEE()}
	case CheckCRC64:
		return &crc64LEHash{Hash64: crc64.New(crc64.MakeTable(crc64.ECMA))}
	case CheckSHA256:
		return sha256.New()
	default:
		return nil
	}
}

// crc32LEHash adapts a standard CRC-32 hash.Hash32 to XZ's little-endian
// check field encoding.
type crc32LEHash struct {
	hash.Hash32
}

func (h *crc32LEHash) Sum(b []byte) []byte {
	var p [4]byte
	putUint32LE(p[:], h.Hash32.Sum32())
	return append(b, p[:]...)
}

// crc64LEHash adapts a standard CRC-64 hash.Hash64 to XZ's little-endian
// check field encoding. XZ uses the ECMA-182 polynomial for CRC64.
type crc64LEHash struct {
	hash.Hash64
}

func (h *crc64LEHash) Sum(b []byte) []byte {
	var p [8]byte
	putUint64LE(p[:], h.Hash64.Sum64())
	return append(b, p[:]...)
}
