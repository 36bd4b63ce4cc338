package blockxz

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma2"
)

// testDictSizeProp is the one-byte LZMA2 dictionary-size property
// encoding an 8 MiB dictionary (bits=22: (2|0)<<(11+11) = 0x800000),
// comfortably large for every payload these tests compress.
const testDictSizeProp = 22
const testDictSize = uint32(2 << (22/2 + 11))

// compressLZMA2 produces a real LZMA2 chunk stream for payload, using
// the same upstream package the block fetcher decompresses with
// (rawcodec wraps this package's Reader).
func compressLZMA2(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma2.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildBlockHeader encodes a block header declaring a single LZMA2
// filter and the given compressed/uncompressed sizes, per §4.3/§4.4.
func buildBlockHeader(t *testing.T, compSize, uncompSize int64) []byte {
	t.Helper()
	var body []byte

	// flags: filterCount=1 (bits 0-1 = 0), compressed+uncompressed size present
	flags := byte(0x40 | 0x80)
	body = append(body, flags)

	sizeBuf := make([]byte, maxUvarintLen)
	n := putUvarint(sizeBuf, uint64(compSize))
	body = append(body, sizeBuf[:n]...)
	n = putUvarint(sizeBuf, uint64(uncompSize))
	body = append(body, sizeBuf[:n]...)

	// one filter: LZMA2, 1-byte props
	idBuf := make([]byte, maxUvarintLen)
	n = putUvarint(idBuf, FilterLZMA2)
	body = append(body, idBuf[:n]...)
	n = putUvarint(idBuf, 1)
	body = append(body, idBuf[:n]...)
	body = append(body, testDictSizeProp)

	// total header length (size byte + body + crc32) must round to a
	// multiple of 4; pad with zero bytes before the CRC.
	unpadded := 1 + len(body) + 4
	headerLen := unpadded
	if r := headerLen % 4; r != 0 {
		headerLen += 4 - r
	}
	padLen := headerLen - unpadded
	for i := 0; i < padLen; i++ {
		body = append(body, 0)
	}

	full := make([]byte, 1, headerLen)
	full[0] = byte(headerLen/4 - 1)
	full = append(full, body...)

	crc := make([]byte, 4)
	putUint32LE(crc, checksumCRC32(full))
	full = append(full, crc...)

	require.Equal(t, headerLen, len(full))
	return full
}

// buildBlock assembles one complete on-disk block: header, compressed
// payload, check field, and alignment padding. It returns the block's
// bytes and the indexRecord describing it.
func buildBlock(t *testing.T, payload []byte, check CheckKind) ([]byte, indexRecord) {
	t.Helper()
	compressed := compressLZMA2(t, payload)
	header := buildBlockHeader(t, int64(len(compressed)), int64(len(payload)))

	var checkField []byte
	if h := newCheckHash(check); h != nil {
		h.Write(payload)
		checkField = h.Sum(nil)
	}

	unpadded := int64(len(header) + len(compressed) + len(checkField))
	block := make([]byte, 0, paddedSize(unpadded))
	block = append(block, header...)
	block = append(block, compressed...)
	block = append(block, checkField...)
	for int64(len(block)) < paddedSize(unpadded) {
		block = append(block, 0)
	}

	return block, indexRecord{unpaddedSize: unpadded, uncompressedSize: int64(len(payload))}
}

func buildStreamHeaderBytes(check CheckKind) []byte {
	buf := make([]byte, streamHeaderLen)
	copy(buf, streamHeaderMagic)
	buf[6] = 0
	buf[7] = byte(check)
	putUint32LE(buf[8:12], checksumCRC32(buf[6:8]))
	return buf
}

func buildStreamFooterBytes(indexSize int64, check CheckKind) []byte {
	buf := make([]byte, streamFooterLen)
	backwardSize := uint32(indexSize/4 - 1)
	putUint32LE(buf[4:8], backwardSize)
	buf[8] = 0
	buf[9] = byte(check)
	putUint32LE(buf[0:4], checksumCRC32(buf[4:10]))
	copy(buf[10:12], streamFooterMagic)
	return buf
}

func buildStreamIndexBytes(records []indexRecord) []byte {
	var body []byte
	body = append(body, 0x00)

	cbuf := make([]byte, maxUvarintLen)
	n := putUvarint(cbuf, uint64(len(records)))
	body = append(body, cbuf[:n]...)
	for _, rec := range records {
		n = putUvarint(cbuf, uint64(rec.unpaddedSize))
		body = append(body, cbuf[:n]...)
		n = putUvarint(cbuf, uint64(rec.uncompressedSize))
		body = append(body, cbuf[:n]...)
	}

	total := len(body) + 4
	padded := total
	if r := padded % 4; r != 0 {
		padded += 4 - r
	}
	for len(body) < padded-4 {
		body = append(body, 0)
	}

	crc := make([]byte, 4)
	putUint32LE(crc, checksumCRC32(body))
	body = append(body, crc...)
	return body
}

// buildStream assembles one complete stream (header, blocks, index,
// footer) from a list of block payloads, all checked with the same
// CheckKind (§4.2: a stream's blocks all share its check kind).
func buildStream(t *testing.T, payloads [][]byte, check CheckKind) []byte {
	t.Helper()
	var out []byte
	out = append(out, buildStreamHeaderBytes(check)...)

	records := make([]indexRecord, len(payloads))
	for i, p := range payloads {
		block, rec := buildBlock(t, p, check)
		out = append(out, block...)
		records[i] = rec
	}

	index := buildStreamIndexBytes(records)
	out = append(out, index...)
	out = append(out, buildStreamFooterBytes(int64(len(index)), check)...)
	return out
}

// buildFile concatenates one or more streams into a complete XZ file.
func buildFile(t *testing.T, streams ...[]byte) []byte {
	t.Helper()
	var out []byte
	for _, s := range streams {
		out = append(out, s...)
	}
	return out
}
