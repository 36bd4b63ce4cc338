// Package rawcodec is the external collaborator the package
// specification calls decompress_raw: a black-box FORMAT_RAW decoder
// for a block's filter chain. The container-parsing package never
// implements LZMA/LZMA2 itself — that is explicitly out of scope — it
// only knows how to invoke this boundary and check the result's
// length.
//
// The actual decoding is delegated to the real, released
// github.com/ulikunitz/xz/lzma2 package. Its Reader already implements
// exactly the chunked LZMA2 framing (dictionary resets, properties
// resets) that an XZ block's compressed payload uses under
// FILTER_LZMA2, the same way ZaparooProject-go-gameid depends on it
// directly to decode embedded XZ payloads.
package rawcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma2"
)

// Filter ids this package recognizes. Only LZMA2 is implemented;
// every other id is recognized well enough to name in an error.
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

// Filter is one link of a block's filter chain, decoupled from the
// parent package's Filter type so this boundary stays a genuine
// external interface rather than an internal detail.
type Filter struct {
	ID       uint64
	DictSize uint32
}

// ErrUnsupportedFilter is returned, wrapped with the offending filter
// id, whenever the last filter in the chain is recognized but not
// LZMA2, or when the chain has more than one filter (a BCJ prefilter
// ahead of LZMA2).
var ErrUnsupportedFilter = fmt.Errorf("rawcodec: filter not implemented")

// Decompress decompresses data, the raw FORMAT_RAW payload of one XZ
// block, according to filters (in the order stored in the block
// header, so the LZMA2 filter is the final element). It returns the
// full decompressed payload.
func Decompress(data []byte, filters []Filter) ([]byte, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("rawcodec: empty filter chain")
	}
	if len(filters) > 1 {
		return nil, fmt.Errorf("%w: filter chains with BCJ prefilters (0x%x)",
			ErrUnsupportedFilter, filters[0].ID)
	}
	last := filters[len(filters)-1]
	if last.ID != FilterLZMA2 {
		return nil, fmt.Errorf("%w: filter id 0x%x", ErrUnsupportedFilter, last.ID)
	}

	r, err := lzma2.NewReader(bytes.NewReader(data), int(last.DictSize))
	if err != nil {
		return nil, fmt.Errorf("rawcodec: lzma2: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rawcodec: lzma2: %w", err)
	}
	return out, nil
}
