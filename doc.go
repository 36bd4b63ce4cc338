// Package blockxz provides random-access reading of multi-block XZ
// files. Standard XZ decoders are sequential: to reach byte N of the
// decompressed content they must decompress everything before it.
// This package instead parses the per-stream indices that a
// multi-block XZ file carries at the tail of each stream, building a
// map from decompressed offset to on-disk block. Seeking and reading
// then cost one block decompression, not a linear scan from the
// start of the file.
//
// The container parsing (stream header/footer, block header, stream
// index) follows http://tukaani.org/xz/format.html. The raw LZMA2
// decompression itself is treated as an external collaborator; see
// the rawcodec subpackage.
package blockxz
