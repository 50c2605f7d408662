// Package wire implements the bit-exact binary protocol producers speak:
// frame and handshake parsing, compression, and batch decoding into
// engine-native pages.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ControlMagic is the reserved sentinel that discriminates a control
// connection from a data connection in the 4 bytes following the token.
// A qid length is always in 1..1024, which is disjoint from this value,
// so the same accept loop can tell the two apart by reading one more
// 4-byte field.
const ControlMagic uint32 = 0xFEEDFACE

// Command codes recognized on a control connection.
const (
	CmdJobFinished uint32 = 1
)

// ReadUint32 reads one 4-byte big-endian unsigned integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteUint32 writes one 4-byte big-endian unsigned integer.
func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadLengthPrefixed reads a 4-byte big-endian length followed by that many
// bytes, rejecting lengths outside (0, maxLen].
func ReadLengthPrefixed(r io.Reader, maxLen int) ([]byte, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 || int(n) > maxLen {
		return nil, fmt.Errorf("%w: length %d out of range (0,%d]", ErrMalformedFrame, n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteLengthPrefixed writes a 4-byte big-endian length followed by data.
func WriteLengthPrefixed(w io.Writer, data []byte) error {
	if err := WriteUint32(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ControlMessage is the decoded body of a control connection after the
// token and the control-magic discriminator have been consumed.
type ControlMessage struct {
	QueryID string
	Command uint32
}

// ReadControlMessage reads the [qid_len][qid][command] control framing.
func ReadControlMessage(r io.Reader, maxQIDLen int) (*ControlMessage, error) {
	qidBytes, err := ReadLengthPrefixed(r, maxQIDLen)
	if err != nil {
		return nil, err
	}
	cmd, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	return &ControlMessage{QueryID: string(qidBytes), Command: cmd}, nil
}

// WriteControlMessage writes a control connection's body, used both by the
// broadcaster dialing out and by tests driving the server directly.
func WriteControlMessage(w io.Writer, token, qid string, command uint32) error {
	if err := WriteLengthPrefixed(w, []byte(token)); err != nil {
		return err
	}
	if err := WriteUint32(w, ControlMagic); err != nil {
		return err
	}
	if err := WriteLengthPrefixed(w, []byte(qid)); err != nil {
		return err
	}
	return WriteUint32(w, command)
}

// WriteAck writes the textual acknowledgement line terminating a
// connection, either "OK" or "ERROR: <msg>".
func WriteAck(w io.Writer, err error) error {
	if err == nil {
		_, werr := io.WriteString(w, "OK")
		return werr
	}
	_, werr := io.WriteString(w, "ERROR: "+err.Error())
	return werr
}
