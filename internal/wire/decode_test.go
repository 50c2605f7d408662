package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vijayshc/trino-teradata-exchange/internal/model"
)

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putInt32(buf *bytes.Buffer, v int32) { putUint32(buf, uint32(v)) }

func putUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putInt64(buf *bytes.Buffer, v int64) { putUint64(buf, uint64(v)) }

func putUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// TestDecodeBatch_TinyIntegerBatch decodes a three-row INTEGER batch with
// a null, a small value, and the int32 minimum.
func TestDecodeBatch_TinyIntegerBatch(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "a", Tag: model.TagInteger}}}

	var buf bytes.Buffer
	putUint32(&buf, 3) // num_rows

	buf.WriteByte(1) // null

	buf.WriteByte(0)
	putInt32(&buf, 7)

	buf.WriteByte(0)
	putInt32(&buf, math.MinInt32)

	page, err := DecodeBatch(buf.Bytes(), schema, 0)
	require.NoError(t, err)
	require.Equal(t, 3, page.NumRows)
	col := page.Columns[0]
	require.True(t, col.Nulls[0])
	require.False(t, col.Nulls[1])
	require.Equal(t, int32(7), col.Int32s[1])
	require.Equal(t, int32(math.MinInt32), col.Int32s[2])
}

func TestDecodeBatch_ZeroRowBatch_ReturnsNilPage(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "a", Tag: model.TagInteger}}}
	var buf bytes.Buffer
	putUint32(&buf, 0)

	page, err := DecodeBatch(buf.Bytes(), schema, 0)
	require.NoError(t, err)
	require.Nil(t, page)
}

func TestDecodeBatch_VarcharUTF8RoundTrip(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "s", Tag: model.TagVarchar}}}
	value := "héllo"
	require.Equal(t, 6, len(value))

	var buf bytes.Buffer
	putUint32(&buf, 1)
	buf.WriteByte(0)
	putUint16(&buf, uint16(len(value)))
	buf.WriteString(value)

	page, err := DecodeBatch(buf.Bytes(), schema, 0)
	require.NoError(t, err)
	require.Equal(t, value, page.Columns[0].Strs[0])
}

func TestDecodeBatch_Double(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "d", Tag: model.TagDouble}}}
	var buf bytes.Buffer
	putUint32(&buf, 1)
	buf.WriteByte(0)
	putUint64(&buf, math.Float64bits(3.14159))

	page, err := DecodeBatch(buf.Bytes(), schema, 0)
	require.NoError(t, err)
	require.InDelta(t, 3.14159, page.Columns[0].F64s[0], 1e-12)
}

func TestDecodeBatch_DecimalLongRoundTrips(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "dl", Tag: model.TagDecimalLong}}}
	var raw [16]byte
	raw[14] = 0x04
	raw[15] = 0xD2 // 1234, positive
	expected := model.NewDecimal128FromBigEndian(raw)

	var buf bytes.Buffer
	putUint32(&buf, 1)
	buf.WriteByte(0)
	buf.Write(raw[:])

	page, err := DecodeBatch(buf.Bytes(), schema, 0)
	require.NoError(t, err)
	require.True(t, expected.Equal(page.Columns[0].Decs[0]))
	require.Equal(t, raw, page.Columns[0].Decs[0].Bytes())
}

func TestDecodeBatch_TimeAppliesOffsetAndWraps(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "t", Tag: model.TagTime}}}
	// 23:59:59.999999999999 plus a +2s offset must wrap into the next day.
	raw := picosPerDay - 1

	var buf bytes.Buffer
	putUint32(&buf, 1)
	buf.WriteByte(0)
	putInt64(&buf, raw)

	page, err := DecodeBatch(buf.Bytes(), schema, 2)
	require.NoError(t, err)
	want := (raw + 2*picosPerSecond) % picosPerDay
	require.Equal(t, want, page.Columns[0].Int64s[0])
	require.True(t, page.Columns[0].Int64s[0] >= 0 && page.Columns[0].Int64s[0] < picosPerDay)
}

func TestDecodeBatch_TimestampAppliesOffset(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "ts", Tag: model.TagTimestamp}}}
	raw := int64(1_700_000_000_000_000) // micros since epoch

	var buf bytes.Buffer
	putUint32(&buf, 1)
	buf.WriteByte(0)
	putInt64(&buf, raw)

	page, err := DecodeBatch(buf.Bytes(), schema, -3600)
	require.NoError(t, err)
	require.Equal(t, raw-3600*microsPerSecond, page.Columns[0].Int64s[0])
}

func TestDecodeBatch_UnknownTagFailsBatch(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "bad", Tag: model.WireTag("NOT_A_TAG")}}}
	var buf bytes.Buffer
	putUint32(&buf, 1)
	buf.WriteByte(0)

	_, err := DecodeBatch(buf.Bytes(), schema, 0)
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeBatch_TruncatedFrameIsMalformed(t *testing.T) {
	schema := &model.Schema{Columns: []model.ColumnDescriptor{{Name: "a", Tag: model.TagInteger}}}
	var buf bytes.Buffer
	putUint32(&buf, 1)
	buf.WriteByte(0)
	buf.Write([]byte{0, 1}) // only 2 of 4 bytes for the int32

	_, err := DecodeBatch(buf.Bytes(), schema, 0)
	require.ErrorIs(t, err, ErrMalformedFrame)
}
