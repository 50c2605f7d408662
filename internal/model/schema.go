// Package model holds the wire-independent types shared by the codec,
// registry, and page source: column schemas and columnar pages.
package model

import "fmt"

// WireTag is one of the closed set of wire-type tags a producer may send.
type WireTag string

const (
	TagInteger      WireTag = "INTEGER"
	TagBigint       WireTag = "BIGINT"
	TagDouble       WireTag = "DOUBLE"
	TagDate         WireTag = "DATE"
	TagTime         WireTag = "TIME"
	TagTimestamp    WireTag = "TIMESTAMP"
	TagDecimalShort WireTag = "DECIMAL_SHORT"
	TagDecimalLong  WireTag = "DECIMAL_LONG"
	TagVarchar      WireTag = "VARCHAR"
)

// Valid reports whether t is one of the closed set of recognized tags.
func (t WireTag) Valid() bool {
	switch t {
	case TagInteger, TagBigint, TagDouble, TagDate, TagTime, TagTimestamp,
		TagDecimalShort, TagDecimalLong, TagVarchar:
		return true
	default:
		return false
	}
}

// ColumnDescriptor names one output column: its catalog name and its
// wire-type tag. The engine-native Go type is not stored separately; the
// tag alone selects which Column slice the values decode into.
type ColumnDescriptor struct {
	Name string
	Tag  WireTag
}

// Schema is the ordered list of columns the pull side expects, registered
// by the page source before the first producer connects.
type Schema struct {
	Columns []ColumnDescriptor
}

func (s *Schema) String() string {
	return fmt.Sprintf("Schema(%d columns)", len(s.Columns))
}

// Equal reports whether s and other describe the same ordered columns:
// same count, same name and tag at every position. Used to catch a
// producer whose self-declared handshake schema has drifted from the
// schema the pull side registered for the query.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range s.Columns {
		o := other.Columns[i]
		if c.Name != o.Name || c.Tag != o.Tag {
			return false
		}
	}
	return true
}
