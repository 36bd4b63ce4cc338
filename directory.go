package blockxz

import (
	"io"
)

// BlockEntry describes one decodable block in file order (§3). The
// directory's final element is always a zero-sized sentinel whose
// FileOffset equals the total file size and whose UncompStart equals
// the total decompressed size, so that block i's decompressed range is
// always [dir[i].UncompStart, dir[i+1].UncompStart).
type BlockEntry struct {
	FileOffset   int64
	UncompStart  int64
	UnpaddedSize int64
	UncompSize   int64
	CheckKind    CheckKind
}

// PaddedSize returns the on-disk footprint of this block, including
// the 0-3 null alignment bytes that follow its check field.
func (b BlockEntry) PaddedSize() int64 { return paddedSize(b.UnpaddedSize) }

// Directory is the reader's in-memory, forward-ordered table of
// blocks plus the terminal sentinel (§3). It is built once at Open and
// never mutated afterwards.
type Directory struct {
	Blocks         []BlockEntry
	StreamCount    int
	MaxBlockUncomp int64
	TotalUncomp    int64
}

// blockCount returns the number of real (non-sentinel) blocks.
func (d *Directory) blockCount() int { return len(d.Blocks) - 1 }

// find returns the index i such that Blocks[i].UncompStart <= offset <
// Blocks[i+1].UncompStart, using binary search over the strictly
// increasing UncompStart column (§4.8 Seek algorithm, §9 Directory
// lookup). offset == TotalUncomp resolves to the sentinel index
// (legal: it represents EOF).
func (d *Directory) find(offset int64) int {
	lo, hi := 0, len(d.Blocks)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.Blocks[mid].UncompStart <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// rawBlock is the directory builder's working representation of a
// block before uncompStart offsets have been threaded forward.
type rawBlock struct {
	fileOffset   int64
	unpaddedSize int64
	uncompSize   int64
	checkKind    CheckKind
}

// buildDirectory walks the streams of an XZ file backward from EOF,
// per §4.5: each stream's footer gives the index size and location,
// the index gives per-block (unpaddedSize, uncompSize) pairs, and
// each block's file offset is recovered by accumulating padded sizes
// back from the index's start. The walk terminates when it reaches
// offset 0; encountering anything else there is a malformed-file
// error.
func buildDirectory(ra io.ReaderAt, fileSize int64) (*Directory, error) {
	if fileSize < int64(streamHeaderLen+streamFooterLen) {
		return nil, newErrf(KindIoError, nil, "file too small to contain an XZ stream (%d bytes)", fileSize)
	}

	fileHeader, err := readStreamHeaderAt(ra, 0)
	if err != nil {
		return nil, err
	}
	fileCheck := fileHeader.check

	var blocks []rawBlock // accumulated in ascending file order
	streamCount := 0
	cursor := fileSize

	for cursor > 0 {
		if cursor < int64(streamFooterLen) {
			return nil, newErrf(KindIoError, nil, "truncated stream footer at offset %d", cursor)
		}
		footer, err := readStreamFooterAt(ra, cursor-int64(streamFooterLen))
		if err != nil {
			return nil, err
		}

		indexStart := cursor - int64(streamFooterLen) - footer.indexSize
		if indexStart < 0 {
			return nil, newErrf(KindSizeMismatch, nil, "stream index size %d overruns start of file", footer.indexSize)
		}
		records, err := readStreamIndexAt(ra, indexStart, footer.indexSize)
		if err != nil {
			return nil, err
		}

		checkSize := int64(footer.check.Size())
		streamBlocks := make([]rawBlock, len(records))
		streamCompSize := int64(0)
		for i := len(records) - 1; i >= 0; i-- {
			rec := records[i]
			if rec.unpaddedSize <= 0 || rec.uncompressedSize <= 0 {
				return nil, newErr(KindSizeMismatch, "zero-length block in stream index", nil)
			}
			padded := paddedSize(rec.unpaddedSize)
			streamCompSize += padded
			fileOffset := indexStart - streamCompSize

			bh, err := parseBlockHeaderAt(ra, fileOffset)
			if err != nil {
				return nil, err
			}
			compDataLen := rec.unpaddedSize - int64(bh.HeaderSize) - checkSize
			if compDataLen <= 0 {
				return nil, newErr(KindSizeMismatch, "block unpadded size too small for header and check", nil)
			}
			if bh.CompressedSize != -1 && bh.CompressedSize != compDataLen {
				return nil, newErrf(KindSizeMismatch, nil,
					"block header compressed size %d disagrees with index %d", bh.CompressedSize, compDataLen)
			}
			if bh.UncompressedSize != -1 && bh.UncompressedSize != rec.uncompressedSize {
				return nil, newErrf(KindSizeMismatch, nil,
					"block header uncompressed size %d disagrees with index %d", bh.UncompressedSize, rec.uncompressedSize)
			}

			streamBlocks[i] = rawBlock{
				fileOffset:   fileOffset,
				unpaddedSize: rec.unpaddedSize,
				uncompSize:   rec.uncompressedSize,
				checkKind:    footer.check,
			}
		}

		streamStart := indexStart - streamCompSize - int64(streamHeaderLen)
		if streamStart < 0 {
			return nil, newErr(KindSizeMismatch, "stream start offset underruns file", nil)
		}
		header, err := readStreamHeaderAt(ra, streamStart)
		if err != nil {
			return nil, err
		}
		if header.check != footer.check {
			return nil, newErr(KindBadMagic, "stream header and footer flags disagree", nil)
		}
		if footer.check != fileCheck {
			return nil, newErr(KindMixedChecksumStreams, "streams declare different check kinds", nil)
		}

		blocks = append(streamBlocks, blocks...)
		streamCount++
		cursor = streamStart
	}

	entries := make([]BlockEntry, len(blocks)+1)
	var total, maxBlock int64
	for i, b := range blocks {
		entries[i] = BlockEntry{
			FileOffset:   b.fileOffset,
			UncompStart:  total,
			UnpaddedSize: b.unpaddedSize,
			UncompSize:   b.uncompSize,
			CheckKind:    b.checkKind,
		}
		total += b.uncompSize
		if b.uncompSize > maxBlock {
			maxBlock = b.uncompSize
		}
	}
	entries[len(blocks)] = BlockEntry{FileOffset: fileSize, UncompStart: total}

	return &Directory{
		Blocks:         entries,
		StreamCount:    streamCount,
		MaxBlockUncomp: maxBlock,
		TotalUncomp:    total,
	}, nil
}

func readStreamHeaderAt(ra io.ReaderAt, offset int64) (streamHeader, error) {
	return readStreamHeader(io.NewSectionReader(ra, offset, int64(streamHeaderLen)))
}

func readStreamFooterAt(ra io.ReaderAt, offset int64) (streamFooter, error) {
	return readStreamFooter(io.NewSectionReader(ra, offset, int64(streamFooterLen)))
}

func readStreamIndexAt(ra io.ReaderAt, offset, size int64) ([]indexRecord, error) {
	return readStreamIndex(io.NewSectionReader(ra, offset, size), size)
}

func parseBlockHeaderAt(ra io.ReaderAt, offset int64) (*BlockHeader, error) {
	// The header's own length is unknown up front; a 1024-byte
	// section comfortably bounds the largest possible block header.
	return parseBlockHeader(io.NewSectionReader(ra, offset, 1024))
}
