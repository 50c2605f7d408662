package wire

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vijayshc/trino-teradata-exchange/internal/model"
)

// CompressionTag is the wire-level compression algorithm selector.
type CompressionTag uint32

const (
	CompressionNone CompressionTag = 0
	CompressionZlib CompressionTag = 1
	CompressionLZ4  CompressionTag = 2
)

func (t CompressionTag) String() string {
	switch t {
	case CompressionNone:
		return "NONE"
	case CompressionZlib:
		return "ZLIB"
	case CompressionLZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(t))
	}
}

// Handshake is everything read from a data connection before the batch
// loop begins.
type Handshake struct {
	Token       string
	QueryID     string
	Compression CompressionTag
	Schema      *model.Schema
}

// opcodeHeader is the 4-byte field following the token: either a qid
// length (1..1024) or the reserved control magic.
type opcodeHeader struct {
	isControl bool
	qidLen    uint32
}

// ReadToken reads the handshake's leading [token_len][token_bytes], common
// to both the data and control framings.
func ReadToken(r io.Reader, maxLen int) (string, error) {
	b, err := ReadLengthPrefixedCapped(r, maxLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadLengthPrefixedCapped behaves like ReadLengthPrefixed but surfaces
// ErrTokenTooLarge instead of the generic malformed-frame error when the
// length exceeds maxLen; a zero length is still ErrMalformedFrame. ReadToken
// uses it for the handshake token.
func ReadLengthPrefixedCapped(r io.Reader, maxLen int) ([]byte, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: zero length", ErrMalformedFrame)
	}
	if int(n) > maxLen {
		return nil, fmt.Errorf("%w: length %d", ErrTokenTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// readOpcode reads the 4-byte field that discriminates a control
// connection (exactly ControlMagic) from a data connection (a qid length
// in 1..1024).
func readOpcode(r io.Reader, maxQIDLen int) (opcodeHeader, error) {
	v, err := ReadUint32(r)
	if err != nil {
		return opcodeHeader{}, err
	}
	if v == ControlMagic {
		return opcodeHeader{isControl: true}, nil
	}
	if v == 0 || int(v) > maxQIDLen {
		return opcodeHeader{}, fmt.Errorf("%w: qid length %d out of range", ErrMalformedFrame, v)
	}
	return opcodeHeader{qidLen: v}, nil
}

// ReadDataHandshake reads the token, discriminates the opcode, and (when
// it is a data connection) the qid, compression tag, and schema JSON. When
// the connection turns out to be a control connection it returns
// isControl=true with only the token populated, leaving the caller to
// read the control body.
func ReadDataHandshake(r io.Reader, maxTokenLen, maxQIDLen, maxSchemaLen int) (hs *Handshake, isControl bool, err error) {
	token, err := ReadToken(r, maxTokenLen)
	if err != nil {
		return nil, false, err
	}

	op, err := readOpcode(r, maxQIDLen)
	if err != nil {
		return nil, false, err
	}
	if op.isControl {
		return &Handshake{Token: token}, true, nil
	}

	qidBuf := make([]byte, op.qidLen)
	if _, err := io.ReadFull(r, qidBuf); err != nil {
		return nil, false, err
	}

	compTag, err := ReadUint32(r)
	if err != nil {
		return nil, false, err
	}

	schemaBuf, err := ReadLengthPrefixed(r, maxSchemaLen)
	if err != nil {
		return nil, false, err
	}
	schema, err := ParseSchemaJSON(schemaBuf)
	if err != nil {
		return nil, false, err
	}

	return &Handshake{
		Token:       token,
		QueryID:     string(qidBuf),
		Compression: CompressionTag(compTag),
		Schema:      schema,
	}, false, nil
}

// ReadBatchFrame reads one [4]batch_len[bl]batch_bytes frame. A zero
// length signals end-of-data and is reported via ok=false.
func ReadBatchFrame(r io.Reader, maxLen int) (data []byte, ok bool, err error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	if int(n) > maxLen {
		return nil, false, fmt.Errorf("%w: batch length %d exceeds cap %d", ErrMalformedFrame, n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, false, err
	}
	return buf, true, nil
}

// schemaJSON is the minimal, non-nested schema dialect producers send.
type schemaJSON struct {
	Columns []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"columns"`
}

// ParseSchemaJSON decodes the wire's restricted schema dialect into a
// model.Schema.
func ParseSchemaJSON(data []byte) (*model.Schema, error) {
	var raw schemaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid schema json: %v", ErrMalformedFrame, err)
	}
	cols := make([]model.ColumnDescriptor, len(raw.Columns))
	for i, c := range raw.Columns {
		tag := model.WireTag(c.Type)
		if !tag.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTag, c.Type)
		}
		cols[i] = model.ColumnDescriptor{Name: c.Name, Tag: tag}
	}
	return &model.Schema{Columns: cols}, nil
}
