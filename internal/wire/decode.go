package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/vijayshc/trino-teradata-exchange/internal/model"
)

const (
	picosPerSecond  = int64(1_000_000_000_000)
	microsPerSecond = int64(1_000_000)
	picosPerDay     = 86400 * picosPerSecond
)

// DecodeBatch performs a single-pass, row-major decode of one batch body:
// a 4-byte row count, then per row and column a null-indicator byte
// followed by the typed payload. tzOffsetSeconds is applied to TIME and
// TIMESTAMP values. A zero-row batch is legal and returns (nil, nil); the
// server must not enqueue it.
func DecodeBatch(data []byte, schema *model.Schema, tzOffsetSeconds int) (*model.Page, error) {
	r := newByteReader(data)

	numRows, err := r.readUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: batch header: %v", ErrMalformedFrame, err)
	}
	if numRows == 0 {
		return nil, nil
	}

	page := model.NewPage(schema, int(numRows))

	for row := 0; row < int(numRows); row++ {
		for ci, cd := range schema.Columns {
			col := &page.Columns[ci]
			isNull, err := r.readByte()
			if err != nil {
				return nil, fmt.Errorf("%w: null flag row %d col %d: %v", ErrMalformedFrame, row, ci, err)
			}
			if isNull == 1 {
				col.Nulls[row] = true
				continue
			}
			if isNull != 0 {
				return nil, fmt.Errorf("%w: null flag must be 0 or 1, got %d", ErrMalformedFrame, isNull)
			}
			if err := decodeCell(r, cd.Tag, col, row, tzOffsetSeconds); err != nil {
				return nil, err
			}
		}
	}

	return page, nil
}

func decodeCell(r *byteReader, tag model.WireTag, col *model.Column, row int, tzOffsetSeconds int) error {
	switch tag {
	case model.TagInteger, model.TagDate:
		v, err := r.readInt32BE()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		col.Int32s[row] = v

	case model.TagBigint, model.TagDecimalShort:
		v, err := r.readInt64BE()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		col.Int64s[row] = v

	case model.TagTime:
		v, err := r.readInt64BE()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		col.Int64s[row] = applyTimeOffset(v, tzOffsetSeconds)

	case model.TagTimestamp:
		v, err := r.readInt64BE()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		col.Int64s[row] = v + int64(tzOffsetSeconds)*microsPerSecond

	case model.TagDouble:
		bits, err := r.readUint64BE()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		col.F64s[row] = math.Float64frombits(bits)

	case model.TagDecimalLong:
		var b [16]byte
		if err := r.readExact(b[:]); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		col.Decs[row] = model.NewDecimal128FromBigEndian(b)

	case model.TagVarchar:
		length, err := r.readUint16BE()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		buf := make([]byte, length)
		if err := r.readExact(buf); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		col.Strs[row] = string(buf)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return nil
}

// applyTimeOffset adds the configured offset (in picoseconds) and wraps
// the result into [0, 24h), regardless of the raw value's range.
func applyTimeOffset(raw int64, tzOffsetSeconds int) int64 {
	v := (raw + int64(tzOffsetSeconds)*picosPerSecond) % picosPerDay
	if v < 0 {
		v += picosPerDay
	}
	return v
}

// byteReader is a minimal cursor over a byte slice; it exists so the
// decode loop never allocates an io.Reader per cell.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) readExact(dst []byte) error {
	if len(r.data)-r.pos < len(dst) {
		return io.ErrUnexpectedEOF
	}
	copy(dst, r.data[r.pos:r.pos+len(dst)])
	r.pos += len(dst)
	return nil
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readUint32() (uint32, error) {
	var b [4]byte
	if err := r.readExact(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (r *byteReader) readInt32BE() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}

func (r *byteReader) readUint64BE() (uint64, error) {
	var b [8]byte
	if err := r.readExact(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (r *byteReader) readInt64BE() (int64, error) {
	v, err := r.readUint64BE()
	return int64(v), err
}

func (r *byteReader) readUint16BE() (uint16, error) {
	var b [2]byte
	if err := r.readExact(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
