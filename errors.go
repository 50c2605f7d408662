package exchange

import (
	"errors"
	"fmt"
	"net"

	"github.com/vijayshc/trino-teradata-exchange/internal/registry"
	"github.com/vijayshc/trino-teradata-exchange/internal/wire"
)

// Code classifies an Error into one of the bridge's failure kinds.
type Code int

const (
	CodeUnknown Code = iota
	CodeMalformedFrame
	CodeUnauthorized
	CodeUnsupportedCompression
	CodeUnknownTag
	CodeSchemaNotRegistered
	CodeBackpressureTimeout
	CodeProducerJobFailed
	CodeCancelled
)

func (c Code) String() string {
	switch c {
	case CodeMalformedFrame:
		return "MalformedFrame"
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeUnsupportedCompression:
		return "UnsupportedCompression"
	case CodeUnknownTag:
		return "UnknownTag"
	case CodeSchemaNotRegistered:
		return "SchemaNotRegistered"
	case CodeBackpressureTimeout:
		return "BackpressureTimeout"
	case CodeProducerJobFailed:
		return "ProducerJobFailed"
	case CodeCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the bridge's structured error type: an operation name, the
// query it concerns (when known), a classification Code, and the
// underlying cause. Failures here originate from TCP connections and
// registry state, so Classify leans on net.Error rather than errno.
type Error struct {
	Op    string
	QID   string
	Code  Code
	Inner error
}

func (e *Error) Error() string {
	if e.QID != "" {
		return fmt.Sprintf("%s: qid=%s: %s: %v", e.Op, e.QID, e.Code, e.Inner)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Inner)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is reports equality by Code so callers can write
// errors.Is(err, &exchange.Error{Code: exchange.CodeUnauthorized}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Classify maps a raw error from the wire/registry layer (or a net.Error)
// onto a Code, wrapping it into an *Error tagged with op and qid.
func Classify(op, qid string, err error) *Error {
	if err == nil {
		return nil
	}

	code := CodeUnknown
	switch {
	case errors.Is(err, wire.ErrMalformedFrame), errors.Is(err, wire.ErrTokenTooLarge):
		code = CodeMalformedFrame
	case errors.Is(err, wire.ErrUnsupportedCompression):
		code = CodeUnsupportedCompression
	case errors.Is(err, wire.ErrUnknownTag):
		code = CodeUnknownTag
	case errors.Is(err, registry.ErrUnauthorized):
		code = CodeUnauthorized
	case errors.Is(err, registry.ErrSchemaNotRegistered):
		code = CodeSchemaNotRegistered
	case errors.Is(err, registry.ErrBackpressureTimeout):
		code = CodeBackpressureTimeout
	case errors.Is(err, registry.ErrCancelled):
		code = CodeCancelled
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			code = CodeCancelled
		}
	}

	return &Error{Op: op, QID: qid, Code: code, Inner: err}
}

// ErrProducerJobFailed wraps a job-runner failure reported by the
// dispatcher, which sweeps the query and still broadcasts JOB_FINISHED so
// consumers reach EOS deterministically.
func ErrProducerJobFailed(qid string, cause error) *Error {
	return &Error{Op: "Dispatch", QID: qid, Code: CodeProducerJobFailed, Inner: cause}
}
