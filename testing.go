package exchange

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net"

	"github.com/pierrec/lz4/v4"

	"github.com/vijayshc/trino-teradata-exchange/internal/wire"
)

// MockProducer builds and sends wire-exact handshakes and batches against
// a live Bridge, for tests that want to drive the ingestion server
// end-to-end without a real producer binary.
type MockProducer struct {
	Token       string
	QueryID     string
	Compression wire.CompressionTag
	Columns     []ColumnDescriptor
}

// NewMockProducer builds a producer for one query, targeting the given
// column list (name/tag pairs matching the schema registered on the page
// source side).
func NewMockProducer(token, qid string, compression wire.CompressionTag, columns []ColumnDescriptor) *MockProducer {
	return &MockProducer{Token: token, QueryID: qid, Compression: compression, Columns: columns}
}

// Dial opens a data connection to addr and writes the handshake, leaving
// the connection positioned to accept batches via WriteBatch.
func (p *MockProducer) Dial(addr string) (net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	if err := p.writeHandshake(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (p *MockProducer) writeHandshake(conn net.Conn) error {
	if err := wire.WriteLengthPrefixed(conn, []byte(p.Token)); err != nil {
		return err
	}
	if err := wire.WriteUint32(conn, uint32(len(p.QueryID))); err != nil {
		return err
	}
	if _, err := conn.Write([]byte(p.QueryID)); err != nil {
		return err
	}
	if err := wire.WriteUint32(conn, uint32(p.Compression)); err != nil {
		return err
	}
	schemaJSON, err := p.schemaJSON()
	if err != nil {
		return err
	}
	return wire.WriteLengthPrefixed(conn, schemaJSON)
}

func (p *MockProducer) schemaJSON() ([]byte, error) {
	type col struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	type doc struct {
		Columns []col `json:"columns"`
	}
	d := doc{}
	for _, c := range p.Columns {
		d.Columns = append(d.Columns, col{Name: c.Name, Type: string(c.Tag)})
	}
	return json.Marshal(d)
}

// Row is one record's cell values, in column order, matching the
// MockProducer's Columns list. A nil entry encodes a SQL null.
type Row []any

// WriteBatch encodes rows with the wire's per-cell rules, compresses per
// p.Compression, and writes one length-prefixed batch frame.
func (p *MockProducer) WriteBatch(conn net.Conn, rows []Row) error {
	var body bytes.Buffer
	putUint32(&body, uint32(len(rows)))
	for _, row := range rows {
		for i, val := range row {
			if val == nil {
				body.WriteByte(1)
				continue
			}
			body.WriteByte(0)
			if err := encodeCell(&body, p.Columns[i].Tag, val); err != nil {
				return err
			}
		}
	}

	compressed, err := p.compress(body.Bytes())
	if err != nil {
		return err
	}
	return wire.WriteLengthPrefixed(conn, compressed)
}

// WriteEnd writes the zero-length frame signaling end-of-data, then reads
// and discards the trailing ack.
func (p *MockProducer) WriteEnd(conn net.Conn) error {
	if err := wire.WriteUint32(conn, 0); err != nil {
		return err
	}
	ack := make([]byte, 64)
	_, _ = conn.Read(ack)
	return nil
}

func (p *MockProducer) compress(raw []byte) ([]byte, error) {
	switch p.Compression {
	case wire.CompressionNone:
		return raw, nil
	case wire.CompressionZlib:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case wire.CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("mock producer: unsupported compression %v", p.Compression)
	}
}

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func encodeCell(buf *bytes.Buffer, tag WireTag, val any) error {
	switch tag {
	case TagInteger, TagDate:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(val.(int32)))
		buf.Write(b[:])
	case TagBigint, TagDecimalShort, TagTime, TagTimestamp:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(val.(int64)))
		buf.Write(b[:])
	case TagDouble:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(val.(float64)))
		buf.Write(b[:])
	case TagDecimalLong:
		b := val.([16]byte)
		buf.Write(b[:])
	case TagVarchar:
		s := val.(string)
		var lb [2]byte
		binary.BigEndian.PutUint16(lb[:], uint16(len(s)))
		buf.Write(lb[:])
		buf.WriteString(s)
	default:
		return fmt.Errorf("mock producer: unsupported tag %s", tag)
	}
	return nil
}
