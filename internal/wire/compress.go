package wire

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Decompressor owns one growable buffer scoped to a single connection. It
// grows on demand up to capBytes and is never shared across goroutines:
// the buffer is reused serially across a connection's batches, not handed
// off, so no pooling is needed.
type Decompressor struct {
	buf      []byte
	capBytes int
}

// NewDecompressor creates a decompressor capped at capBytes. The cap is a
// safety bound on one connection's memory, not a wire-level limit.
func NewDecompressor(capBytes int) *Decompressor {
	return &Decompressor{capBytes: capBytes}
}

// Decompress inflates buf according to algorithm. For ZLIB and LZ4 the
// result is backed by the decompressor's reusable internal buffer and is
// only valid until the next call to Decompress on the same instance; for
// NONE, buf itself is returned.
func (d *Decompressor) Decompress(buf []byte, algorithm CompressionTag) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		return buf, nil
	case CompressionZlib:
		return d.decompressZlib(buf)
	case CompressionLZ4:
		return d.decompressLZ4(buf)
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedCompression, algorithm)
	}
}

func (d *Decompressor) decompressZlib(in []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()
	return d.readAllCapped(zr)
}

func (d *Decompressor) decompressLZ4(in []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(in))
	return d.readAllCapped(zr)
}

// readAllCapped drains r into d.buf, growing geometrically up to capBytes
// and failing rather than exceeding it: a hostile or malformed producer
// cannot force unbounded memory growth on one connection.
func (d *Decompressor) readAllCapped(r io.Reader) ([]byte, error) {
	if d.buf == nil {
		d.buf = make([]byte, 0, 64<<10)
	}
	d.buf = d.buf[:0]
	chunk := make([]byte, 32<<10)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if len(d.buf)+n > d.capBytes {
				return nil, fmt.Errorf("decompressed size exceeds %d byte cap", d.capBytes)
			}
			d.buf = append(d.buf, chunk[:n]...)
		}
		if err == io.EOF {
			return d.buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
