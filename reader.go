package blockxz

import (
	"io"
	"os"

	"github.com/blockxz/blockxz/xlog"
)

// Unlimited disables the MaxBlockSize ceiling entirely (§4.7,
// "SUPPLEMENTED FEATURES"). It cannot be confused with the zero value,
// which instead means "apply the default."
const Unlimited = -1

// Config configures a Reader. Like ReaderConfig/ReaderAtConfig in the
// teacher library, a zero Config is valid: ApplyDefaults fills in
// every unset field before Verify checks the result.
type Config struct {
	// MaxCache bounds the number of decompressed blocks held in the
	// LRU cache at once. Zero applies the default of 100.
	MaxCache int

	// MaxBlockSize bounds the uncompressed size of any single block
	// this reader will decompress; opening a file with a larger block
	// fails with KindBlockTooLarge (§4.7). Zero applies the default of
	// 100,000 bytes. Set to Unlimited to disable the check.
	MaxBlockSize int64

	// VerifyChecks decides, per check kind, whether fetched blocks are
	// checksummed against their stored check field. Nil applies
	// defaultVerifyChecks (on for CRC32/CRC64, off for SHA-256/None).
	VerifyChecks func(CheckKind) bool

	// Decompressor is the decompress_raw collaborator (§1, §4.6). Nil
	// applies the real LZMA2 decompressor in rawcodec.
	Decompressor Decompressor

	// Logger receives opt-in debug tracing of the directory build and
	// of each block fetched on a cache miss. Nil applies xlog.Quiet.
	Logger xlog.Logger
}

// ApplyDefaults returns a copy of c with every unset field replaced by
// its default, mirroring ReaderConfig.ApplyDefaults in the teacher
// library.
func (c Config) ApplyDefaults() Config {
	if c.MaxCache == 0 {
		c.MaxCache = defaultMaxCache
	}
	if c.MaxBlockSize == 0 {
		c.MaxBlockSize = defaultMaxBlockSize
	}
	if c.VerifyChecks == nil {
		c.VerifyChecks = defaultVerifyChecks
	}
	if c.Decompressor == nil {
		c.Decompressor = defaultDecompressor{}
	}
	if c.Logger == nil {
		c.Logger = xlog.Quiet
	}
	return c
}

// Verify checks that c is self-consistent once defaults have been
// applied.
func (c Config) Verify() error {
	if c.MaxCache < 1 {
		return newErrf(KindIoError, nil, "MaxCache must be >= 1, got %d", c.MaxCache)
	}
	if c.MaxBlockSize != Unlimited && c.MaxBlockSize < 0 {
		return newErrf(KindIoError, nil, "MaxBlockSize must be >= 0 or Unlimited, got %d", c.MaxBlockSize)
	}
	return nil
}

// Reader provides random-access, sequential-style reads over the
// logical (decompressed) byte stream of a multi-block XZ file (§4.8,
// §9). A Reader is not safe for concurrent use; each goroutine needing
// independent positioning should Open its own Reader (§6).
type Reader struct {
	cfg     Config
	dir     *Directory
	fr      io.ReaderAt
	cache   *blockCache
	fetcher *blockFetcher

	ownsFile bool
	closer   io.Closer

	pos    int64
	closed bool
}

// Open builds a Reader over ra, which must expose size bytes of XZ
// container data. The caller retains ownership of ra; Close will not
// close it.
func Open(ra io.ReaderAt, size int64, cfg Config) (*Reader, error) {
	return open(ra, size, cfg, false, nil)
}

// OpenFile opens the XZ file at path and builds a Reader over it. The
// Reader owns the resulting handle: Close (including the implicit
// close performed when Open fails with KindBlockTooLarge) releases it.
func OpenFile(path string, cfg Config) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newErr(KindIoError, "opening file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newErr(KindIoError, "stat file", err)
	}
	r, err := open(f, info.Size(), cfg, true, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func open(ra io.ReaderAt, size int64, cfg Config, ownsFile bool, closer io.Closer) (*Reader, error) {
	cfg = cfg.ApplyDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	cfg.Logger.Printf("blockxz: building directory over %d bytes", size)
	dir, err := buildDirectory(ra, size)
	if err != nil {
		return nil, err
	}

	if cfg.MaxBlockSize != Unlimited && dir.MaxBlockUncomp > cfg.MaxBlockSize {
		// OpenFile releases a handle it opened itself when this fails;
		// a pre-opened handle passed to Open is left alone.
		return nil, newErrf(KindBlockTooLarge, nil,
			"largest block is %d bytes, exceeds MaxBlockSize %d", dir.MaxBlockUncomp, cfg.MaxBlockSize)
	}

	cache, err := newBlockCache(cfg.MaxCache)
	if err != nil {
		return nil, err
	}

	return &Reader{
		cfg:  cfg,
		dir:  dir,
		fr:   ra,
		cache: cache,
		fetcher: &blockFetcher{
			ra:           ra,
			decompressor: cfg.Decompressor,
			verifyChecks: cfg.VerifyChecks,
		},
		ownsFile: ownsFile,
		closer:   closer,
	}, nil
}

// Tell reports the current logical read position.
func (r *Reader) Tell() (int64, error) {
	if r.closed {
		return 0, newErr(KindInvalidSeek, "reader is closed", nil)
	}
	return r.pos, nil
}

// Seekable reports whether Seek is supported; it always is (§4.8).
func (r *Reader) Seekable() bool { return true }

// Isatty always reports false: a decompressed XZ stream is never a
// terminal (§4.8).
func (r *Reader) Isatty() bool { return false }

// Fileno returns the underlying OS file descriptor, if this Reader
// owns a file handle opened via OpenFile. It errors otherwise, the
// same way the original's fileno() does for a non-file fileobj.
func (r *Reader) Fileno() (uintptr, error) {
	if r.closed {
		return 0, newErr(KindInvalidSeek, "reader is closed", nil)
	}
	f, ok := r.fr.(*os.File)
	if !ok || !r.ownsFile {
		return 0, newErr(KindIoError, "reader has no underlying file descriptor", nil)
	}
	return f.Fd(), nil
}

// Seek repositions the reader within the logical decompressed stream,
// per §4.8: whence follows io.Seeker (io.SeekStart, io.SeekCurrent,
// io.SeekEnd). The resulting offset must lie in [0, TotalUncomp];
// seeking exactly to TotalUncomp is legal and represents EOF.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, newErr(KindInvalidSeek, "reader is closed", nil)
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		target = r.dir.TotalUncomp + offset
	default:
		return 0, newErrf(KindInvalidSeek, nil, "invalid whence %d", whence)
	}
	if target < 0 || target > r.dir.TotalUncomp {
		return 0, newErrf(KindInvalidSeek, nil,
			"offset %d out of range [0, %d]", target, r.dir.TotalUncomp)
	}
	r.pos = target
	return r.pos, nil
}

// Read fills p with logical decompressed bytes starting at the current
// position, advancing it by the number of bytes read. It never
// recurses across block boundaries (§9 Design Notes) — a read
// spanning several blocks loops over them instead.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, newErr(KindInvalidSeek, "reader is closed", nil)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= r.dir.TotalUncomp {
		return 0, io.EOF
	}

	total := 0
	for total < len(p) && r.pos < r.dir.TotalUncomp {
		idx := r.dir.find(r.pos)
		entry := r.dir.Blocks[idx]

		data, err := r.blockData(idx, entry)
		if err != nil {
			return total, err
		}

		within := r.pos - entry.UncompStart
		n := copy(p[total:], data[within:])
		total += n
		r.pos += int64(n)
	}
	return total, nil
}

// ReadN is a convenience wrapper that reads exactly n bytes, or fewer
// at EOF (mirroring io.ReadFull's short-read-at-EOF contract).
func (r *Reader) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	return buf[:read], err
}

// blockData returns the decompressed payload of block idx, consulting
// and populating the cache.
func (r *Reader) blockData(idx int, entry BlockEntry) ([]byte, error) {
	if data, ok := r.cache.get(idx); ok {
		return data, nil
	}
	r.cfg.Logger.Printf("blockxz: fetching block %d (uncomp offset %d)", idx, entry.UncompStart)
	data, err := r.fetcher.fetch(entry)
	if err != nil {
		return nil, err
	}
	r.cache.add(idx, data)
	return data, nil
}

// Close releases the cache and, if this Reader opened its own file
// handle via OpenFile, closes it. Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.cache.clear()
	if r.ownsFile && r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Directory exposes the reader's block directory for callers that need
// to inspect block boundaries directly (e.g. diagnostics).
func (r *Reader) Directory() *Directory { return r.dir }
