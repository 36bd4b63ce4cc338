package blockxz

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBuildDirectorySingleBlock covers §8 scenario 1: a one-stream,
// one-block file.
func TestBuildDirectorySingleBlock(t *testing.T) {
	payload := []byte("Hello, World!")
	stream := buildStream(t, [][]byte{payload}, CheckCRC32)
	file := buildFile(t, stream)

	dir, err := buildDirectory(bytes.NewReader(file), int64(len(file)))
	require.NoError(t, err)

	require.Equal(t, 1, dir.StreamCount)
	require.Equal(t, 1, dir.blockCount())
	require.Equal(t, int64(len(payload)), dir.TotalUncomp)
	require.Equal(t, int64(len(payload)), dir.MaxBlockUncomp)
	require.Equal(t, int64(0), dir.Blocks[0].UncompStart)
	require.Equal(t, int64(streamHeaderLen), dir.Blocks[0].FileOffset)
	require.Equal(t, CheckCRC32, dir.Blocks[0].CheckKind)
	// sentinel
	require.Equal(t, int64(len(payload)), dir.Blocks[1].UncompStart)
	require.Equal(t, int64(len(file)), dir.Blocks[1].FileOffset)
}

// TestBuildDirectorySixBlocksOneStream covers §8 scenario 2.
func TestBuildDirectorySixBlocksOneStream(t *testing.T) {
	var payloads [][]byte
	for i := 0; i < 6; i++ {
		payloads = append(payloads, bytes.Repeat([]byte{byte('a' + i)}, 1000+i*37))
	}
	stream := buildStream(t, payloads, CheckCRC32)
	file := buildFile(t, stream)

	dir, err := buildDirectory(bytes.NewReader(file), int64(len(file)))
	require.NoError(t, err)

	require.Equal(t, 1, dir.StreamCount)
	require.Equal(t, 6, dir.blockCount())

	var want int64
	for i, p := range payloads {
		require.Equal(t, want, dir.Blocks[i].UncompStart)
		want += int64(len(p))
	}
	require.Equal(t, want, dir.TotalUncomp)
	require.Equal(t, want, dir.Blocks[6].UncompStart)
}

// TestBuildDirectorySixStreams covers §8 scenario 3: several
// concatenated single-block streams, as produced by `xz --block-list`
// style concatenation.
func TestBuildDirectorySixStreams(t *testing.T) {
	var streams [][]byte
	var payloads [][]byte
	for i := 0; i < 6; i++ {
		p := bytes.Repeat([]byte{byte('A' + i)}, 500+i*11)
		payloads = append(payloads, p)
		streams = append(streams, buildStream(t, [][]byte{p}, CheckCRC32))
	}
	file := buildFile(t, streams...)

	dir, err := buildDirectory(bytes.NewReader(file), int64(len(file)))
	require.NoError(t, err)

	require.Equal(t, 6, dir.StreamCount)
	require.Equal(t, 6, dir.blockCount())

	var want int64
	for i, p := range payloads {
		require.Equal(t, want, dir.Blocks[i].UncompStart)
		want += int64(len(p))
	}
	require.Equal(t, want, dir.TotalUncomp)
}

// TestBuildDirectoryMixedChecksumStreams covers §8 scenario 4: streams
// in the same file declaring different check kinds must fail, even
// though each stream is individually well-formed.
func TestBuildDirectoryMixedChecksumStreams(t *testing.T) {
	s1 := buildStream(t, [][]byte{[]byte("one")}, CheckCRC32)
	s2 := buildStream(t, [][]byte{[]byte("two")}, CheckCRC64)
	file := buildFile(t, s1, s2)

	_, err := buildDirectory(bytes.NewReader(file), int64(len(file)))
	require.Error(t, err)
	var xzErr *Error
	require.ErrorAs(t, err, &xzErr)
	require.Equal(t, KindMixedChecksumStreams, xzErr.Kind)
}

// TestBuildDirectoryFindBinarySearch checks the Directory.find binary
// search against a hand-built set of block starts, independent of any
// actual file parsing.
func TestBuildDirectoryFindBinarySearch(t *testing.T) {
	dir := &Directory{
		Blocks: []BlockEntry{
			{UncompStart: 0},
			{UncompStart: 10},
			{UncompStart: 25}, // sentinel: equals TotalUncomp
		},
		TotalUncomp: 25,
	}
	require.Equal(t, 0, dir.find(0))
	require.Equal(t, 0, dir.find(9))
	require.Equal(t, 1, dir.find(10))
	require.Equal(t, 1, dir.find(24))
	require.Equal(t, 2, dir.find(25)) // EOF resolves to sentinel
}
