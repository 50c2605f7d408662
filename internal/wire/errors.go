package wire

import "errors"

// Sentinel errors for wire-level failures. The root package's structured
// Error wraps these with errors.Is/As so callers can classify a failure
// without depending on this package's types directly.
var (
	ErrMalformedFrame         = errors.New("malformed frame")
	ErrTokenTooLarge          = errors.New("token or query id exceeds maximum length")
	ErrUnsupportedCompression = errors.New("unsupported compression algorithm")
	ErrUnknownTag             = errors.New("unknown wire-type tag")
)
