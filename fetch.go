package blockxz

import (
	"bytes"
	"errors"
	"io"

	"github.com/blockxz/blockxz/rawcodec"
)

// Decompressor is the external collaborator the package specification
// calls decompress_raw: given a block's raw compressed payload and its
// filter chain it returns the decompressed payload. The real LZMA/
// LZMA2 decompressor is out of scope for this package (§1) — callers
// needing a non-default codec (for testing, or a filter chain this
// package doesn't ship support for) can supply one via
// Config.Decompressor.
type Decompressor interface {
	Decompress(data []byte, filters []Filter) ([]byte, error)
}

// defaultDecompressor delegates to rawcodec, the real external LZMA2
// collaborator this package depends on.
type defaultDecompressor struct{}

func (defaultDecompressor) Decompress(data []byte, filters []Filter) ([]byte, error) {
	rf := make([]rawcodec.Filter, len(filters))
	for i, f := range filters {
		rf[i] = rawcodec.Filter{ID: f.ID, DictSize: f.DictSize}
	}
	out, err := rawcodec.Decompress(data, rf)
	if err != nil {
		if errors.Is(err, rawcodec.ErrUnsupportedFilter) {
			return nil, newErr(KindUnsupportedFilter, err.Error(), err)
		}
		return nil, newErr(KindIoError, "decompressing block", err)
	}
	return out, nil
}

// blockFetcher implements §4.6: given a block entry, it reads the raw
// on-disk bytes, invokes the external decompressor with the block's
// filter chain, and verifies the result against the directory and
// (optionally) the block's own check field.
type blockFetcher struct {
	ra           io.ReaderAt
	decompressor Decompressor
	verifyChecks func(CheckKind) bool
}

// fetch decompresses and returns the payload of one block.
func (f *blockFetcher) fetch(entry BlockEntry) ([]byte, error) {
	sr := io.NewSectionReader(f.ra, entry.FileOffset, entry.PaddedSize())

	bh, err := parseBlockHeader(sr)
	if err != nil {
		return nil, err
	}

	checkSize := int64(entry.CheckKind.Size())
	compLen := entry.UnpaddedSize - int64(bh.HeaderSize) - checkSize
	if compLen < 0 {
		return nil, newErr(KindSizeMismatch, "block unpadded size too small for header and check", nil)
	}

	compressed := make([]byte, compLen)
	if _, err := io.ReadFull(sr, compressed); err != nil {
		return nil, newErr(KindIoError, "reading compressed block payload", err)
	}

	var checkField []byte
	if checkSize > 0 {
		checkField = make([]byte, checkSize)
		if _, err := io.ReadFull(sr, checkField); err != nil {
			return nil, newErr(KindIoError, "reading block check field", err)
		}
	}

	if padLen := entry.PaddedSize() - entry.UnpaddedSize; padLen > 0 {
		pad := make([]byte, padLen)
		if _, err := io.ReadFull(sr, pad); err != nil {
			return nil, newErr(KindIoError, "reading block alignment padding", err)
		}
		for _, b := range pad {
			if b != 0 {
				return nil, newErr(KindSizeMismatch, "non-zero alignment padding after block", nil)
			}
		}
	}

	data, err := f.decompressor.Decompress(compressed, bh.Filters)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != entry.UncompSize {
		return nil, newErrf(KindSizeMismatch, nil,
			"decompressed %d bytes; index declares %d", len(data), entry.UncompSize)
	}

	if checkSize > 0 && f.verifyChecks(entry.CheckKind) {
		h := newCheckHash(entry.CheckKind)
		h.Write(data)
		if got := h.Sum(nil); !bytes.Equal(got, checkField) {
			return nil, newErr(KindChecksumError, "block check field mismatch", nil)
		}
	}

	return data, nil
}

// defaultVerifyChecks implements the §9 default policy: on for
// CRC32/CRC64, off for SHA-256 (cost), a no-op for None.
func defaultVerifyChecks(kind CheckKind) bool {
	switch kind {
	case CheckCRC32, CheckCRC64:
		return true
	default:
		return false
	}
}
