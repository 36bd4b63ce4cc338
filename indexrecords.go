package blockxz

import (
	"bytes"
	"io"
)

// indexRecord is one (unpadded_size, uncompressed_size) pair from a
// stream index, describing one block of that stream (§3, Glossary).
type indexRecord struct {
	unpaddedSize     int64
	uncompressedSize int64
}

// paddedSize returns the on-disk size of a block, rounding unpaddedSize
// up to the next multiple of 4 (§3 invariants).
func paddedSize(unpadded int64) int64 {
	if r := unpadded % 4; r != 0 {
		return unpadded + (4 - r)
	}
	return unpadded
}

// readStreamIndex reads a complete stream index of exactly
// expectedSize bytes from r (starting at the index indicator byte)
// and returns its records in on-disk order. expectedSize must come
// from the owning stream's footer (§4.3); a mismatch between the
// parsed length and expectedSize is a KindChecksumError, per this
// package's policy of upgrading the source's CRC warning to a hard
// failure (§7).
func readStreamIndex(r io.Reader, expectedSize int64) ([]indexRecord, error) {
	if expectedSize < 8 || expectedSize%4 != 0 {
		return nil, newErrf(KindSizeMismatch, nil, "invalid stream index size %d", expectedSize)
	}
	buf := make([]byte, expectedSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, newErr(KindIoError, "reading stream index", err)
	}
	if buf[0] != 0 {
		return nil, newErr(KindBadMagic, "stream index missing indicator byte", nil)
	}

	crcGot := checksumCRC32(buf[:len(buf)-4])
	crcWant := uint32LE(buf[len(buf)-4:])
	if crcGot != crcWant {
		return nil, newErr(KindChecksumError, "stream index CRC32 mismatch", nil)
	}

	body := bytes.NewReader(buf[1 : len(buf)-4])
	count, _, err := readUvarint(body)
	if err != nil {
		return nil, err
	}

	records := make([]indexRecord, count)
	for i := range records {
		u, _, err := readUvarint(body)
		var s uint64
		if err == nil {
			s, _, err = readUvarint(body)
		}
		if err == io.EOF {
			return nil, newErr(KindChecksumError, "stream index records overrun its length", err)
		}
		if err != nil {
			return nil, err
		}
		records[i] = indexRecord{unpaddedSize: int64(u), uncompressedSize: int64(s)}
	}

	// Remaining bytes up to the CRC are 0-3 null padding bytes.
	if body.Len() > 3 {
		return nil, newErrf(KindChecksumError, nil,
			"stream index length disagrees with its records (%d bytes left)", body.Len())
	}
	for body.Len() > 0 {
		b, _ := body.ReadByte()
		if b != 0 {
			return nil, newErr(KindSizeMismatch, "non-zero byte in stream index padding", nil)
		}
	}

	return records, nil
}
