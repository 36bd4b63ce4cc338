package blockxz

import (
	"bytes"
	"io"
)

// Recognized filter ids (§4.3). Only LZMA2 is ever decoded by the
// block fetcher; the BCJ variants and LZMA1 are recognized so that
// container parsing can validate a block header that uses them, but
// the block fetcher reports KindUnsupportedFilter if one is actually
// needed to decompress a block.
const (
	FilterDelta    uint64 = 0x03
	FilterX86      uint64 = 0x04
	FilterPowerPC  uint64 = 0x05
	FilterIA64     uint64 = 0x06
	FilterARM      uint64 = 0x07
	FilterARMThumb uint64 = 0x08
	FilterSPARC    uint64 = 0x09
	FilterLZMA1    uint64 = 0x20
	FilterLZMA2    uint64 = 0x21
)

// Filter is one entry of a block's filter chain, passed verbatim to
// the raw decompressor in FORMAT_RAW mode (§6).
type Filter struct {
	ID    uint64
	Props []byte

	// DictSize is populated for FilterLZMA2 entries; it is the
	// decoded dictionary capacity from the one-byte LZMA2 filter
	// property (§4.4).
	DictSize uint32
}

// decodeLZMA2DictSize decodes the one-byte LZMA2 dictionary-size
// property (§4.4). bits occupies the low 6 bits of the property byte;
// the top two bits are reserved and must be zero.
func decodeLZMA2DictSize(b byte) (uint32, error) {
	if b&0xc0 != 0 {
		return 0, newErr(KindReservedBitsSet, "LZMA2 dictionary size property reserved bits set", nil)
	}
	bits := b & 0x3f
	if bits > 40 {
		return 0, newErr(KindOverflow, "LZMA2 dictionary size field out of range", nil)
	}
	if bits == 40 {
		return 0xffffffff, nil
	}
	m := uint32(2 | (bits & 1))
	return m << (bits/2 + 11), nil
}

// blockFlags is the second byte of a block header.
type blockFlags byte

func (f blockFlags) filterCount() int           { return int(f&0x03) + 1 }
func (f blockFlags) reservedBits() byte         { return byte(f) & 0x3c }
func (f blockFlags) compressedSizePresent() bool {
	return f&0x40 != 0
}
func (f blockFlags) uncompressedSizePresent() bool {
	return f&0x80 != 0
}

// BlockHeader is the transient, parsed content of one block's header
// (§3). CompressedSize/UncompressedSize are -1 when their respective
// presence bit is unset.
type BlockHeader struct {
	HeaderSize       int
	CompressedSize   int64
	UncompressedSize int64
	Filters          []Filter
}

// parseBlockHeader reads one block header from r, verifies its CRC32
// and returns the decoded content. It consumes exactly HeaderSize
// bytes of r, which must be positioned exactly at the block header's
// first byte.
func parseBlockHeader(r io.Reader) (*BlockHeader, error) {
	var sizeByte [1]byte
	if _, err := io.ReadFull(r, sizeByte[:]); err != nil {
		return nil, newErr(KindIoError, "reading block header size byte", err)
	}
	if sizeByte[0] == 0 {
		return nil, newErr(KindBadMagic, "found index indicator instead of block header", nil)
	}
	headerLen := (int(sizeByte[0]) + 1) * 4
	if headerLen < 6 || headerLen > 1024 {
		return nil, newErrf(KindSizeMismatch, nil, "block header length %d out of range", headerLen)
	}

	rest := make([]byte, headerLen-1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, newErr(KindIoError, "reading block header body", err)
	}

	full := append(sizeByte[:], rest...)
	crcGot := checksumCRC32(full[:headerLen-4])
	crcWant := uint32LE(full[headerLen-4:])
	if crcGot != crcWant {
		return nil, newErr(KindChecksumError, "block header CRC32 mismatch", nil)
	}

	flags := blockFlags(full[1])
	if flags.reservedBits() != 0 {
		return nil, newErr(KindReservedBitsSet, "block flags reserved bits set", nil)
	}

	body := bytes.NewReader(full[2 : headerLen-4])
	br := byteReaderOf(body)

	h := &BlockHeader{HeaderSize: headerLen, CompressedSize: -1, UncompressedSize: -1}

	if flags.compressedSizePresent() {
		x, _, err := readUvarint(br)
		if err != nil {
			return nil, err
		}
		h.CompressedSize = int64(x)
	}
	if flags.uncompressedSizePresent() {
		x, _, err := readUvarint(br)
		if err != nil {
			return nil, err
		}
		h.UncompressedSize = int64(x)
	}

	count := flags.filterCount()
	h.Filters = make([]Filter, count)
	for i := 0; i < count; i++ {
		id, _, err := readUvarint(br)
		if err != nil {
			return nil, err
		}
		propsLen, _, err := readUvarint(br)
		if err != nil {
			return nil, err
		}
		props := make([]byte, propsLen)
		if _, err := io.ReadFull(body, props); err != nil {
			return nil, newErr(KindIoError, "reading filter properties", err)
		}
		f := Filter{ID: id, Props: props}
		if id == FilterLZMA2 {
			if propsLen != 1 {
				return nil, newErr(KindSizeMismatch, "LZMA2 filter properties must be one byte", nil)
			}
			dictSize, err := decodeLZMA2DictSize(props[0])
			if err != nil {
				return nil, err
			}
			f.DictSize = dictSize
		}
		h.Filters[i] = f
	}

	// Remaining bytes before the trailing CRC32 must be null padding.
	pad := body.Len()
	for i := 0; i < pad; i++ {
		b, _ := body.ReadByte()
		if b != 0 {
			return nil, newErr(KindSizeMismatch, "non-zero padding in block header", nil)
		}
	}

	return h, nil
}

// byteReaderOf returns r as an io.ByteReader, which *bytes.Reader
// implements directly.
func byteReaderOf(r *bytes.Reader) io.ByteReader { return r }
