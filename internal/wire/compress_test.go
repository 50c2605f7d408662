package wire

import (
	"bytes"
	"compress/zlib"

	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

func TestDecompress_None_ReturnsInputUnchanged(t *testing.T) {
	d := NewDecompressor(1 << 20)
	in := []byte("raw bytes")
	out, err := d.Decompress(in, CompressionNone)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecompress_Zlib_RoundTrips(t *testing.T) {
	payload := bytes.Repeat([]byte("batch-payload-"), 100)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	d := NewDecompressor(1 << 20)
	out, err := d.Decompress(compressed.Bytes(), CompressionZlib)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestDecompress_LZ4_RoundTrips(t *testing.T) {
	payload := bytes.Repeat([]byte("batch-payload-"), 100)

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	d := NewDecompressor(1 << 20)
	out, err := d.Decompress(compressed.Bytes(), CompressionLZ4)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestDecompress_UnsupportedAlgorithm(t *testing.T) {
	d := NewDecompressor(1 << 20)
	_, err := d.Decompress([]byte("x"), CompressionTag(99))
	require.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestDecompress_ExceedsCap(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 1<<16)
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	d := NewDecompressor(1024) // far smaller than the decompressed payload
	_, err = d.Decompress(compressed.Bytes(), CompressionZlib)
	require.Error(t, err)
}

// TestDecompress_ReusesBufferAcrossCalls exercises the per-connection owned
// buffer being reused serially, not leaking state between calls.
func TestDecompress_ReusesBufferAcrossCalls(t *testing.T) {
	d := NewDecompressor(1 << 20)

	var first bytes.Buffer
	zw := zlib.NewWriter(&first)
	zw.Write([]byte("first-payload"))
	zw.Close()

	out1, err := d.Decompress(first.Bytes(), CompressionZlib)
	require.NoError(t, err)
	require.Equal(t, "first-payload", string(out1))

	var second bytes.Buffer
	zw2 := zlib.NewWriter(&second)
	zw2.Write([]byte("second"))
	zw2.Close()

	out2, err := d.Decompress(second.Bytes(), CompressionZlib)
	require.NoError(t, err)
	require.Equal(t, "second", string(out2))
}
