package blockxz

import (
	"bytes"
	"io"
)

// streamHeaderLen and streamFooterLen are both fixed at 12 bytes by
// the XZ format.
const (
	streamHeaderLen = 12
	streamFooterLen = 12
)

// streamHeaderMagic is the fixed six-byte magic opening every stream.
var streamHeaderMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// streamFooterMagic is the fixed two-byte magic closing every stream.
var streamFooterMagic = []byte{'Y', 'Z'}

// streamHeader is the decoded content of a 12-byte XZ stream header:
// magic, a reserved byte, stream flags (check kind) and a CRC32 over
// the flags.
type streamHeader struct {
	check CheckKind
}

// readStreamHeader reads and validates a stream header from r.
func readStreamHeader(r io.Reader) (streamHeader, error) {
	buf := make([]byte, streamHeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return streamHeader{}, newErr(KindIoError, "reading stream header", err)
	}
	if !bytes.Equal(buf[:6], streamHeaderMagic) {
		return streamHeader{}, newErr(KindBadMagic, "stream header magic mismatch", nil)
	}
	if buf[6] != 0 {
		return streamHeader{}, newErr(KindBadMagic, "stream flags reserved byte nonzero", nil)
	}
	if got, want := checksumCRC32(buf[6:8]), uint32LE(buf[8:12]); got != want {
		return streamHeader{}, newErr(KindChecksumError, "stream header CRC32 mismatch", nil)
	}
	check, err := parseCheckKind(buf[7])
	if err != nil {
		return streamHeader{}, err
	}
	return streamHeader{check: check}, nil
}

// streamFooter is the decoded content of a 12-byte XZ stream footer:
// a CRC32, the backward size (encoded index size), stream flags and
// the closing magic.
type streamFooter struct {
	indexSize int64
	check     CheckKind
}

// readStreamFooter reads and validates a stream footer from r.
func readStreamFooter(r io.Reader) (streamFooter, error) {
	buf := make([]byte, streamFooterLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return streamFooter{}, newErr(KindIoError, "reading stream footer", err)
	}
	if !bytes.Equal(buf[10:12], streamFooterMagic) {
		return streamFooter{}, newErr(KindBadMagic, "stream footer magic mismatch", nil)
	}
	if got, want := checksumCRC32(buf[4:10]), uint32LE(buf[0:4]); got != want {
		return streamFooter{}, newErr(KindChecksumError, "stream footer CRC32 mismatch", nil)
	}
	if buf[8] != 0 {
		return streamFooter{}, newErr(KindBadMagic, "stream flags reserved byte nonzero", nil)
	}
	backwardSize := uint32LE(buf[4:8])
	indexSize := (int64(backwardSize) + 1) * 4
	check, err := parseCheckKind(buf[9])
	if err != nil {
		return streamFooter{}, err
	}
	return streamFooter{indexSize: indexSize, check: check}, nil
}
