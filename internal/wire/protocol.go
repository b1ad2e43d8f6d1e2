package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ProtocolVersion is the only startup protocol version this server
// accepts, the PostgreSQL v3 constant.
const ProtocolVersion int32 = 0x00030000

// Frame type bytes used by the simple-query main loop.
const (
	msgSimpleQuery byte = 'Q'
	msgTerminate   byte = 'X'

	msgAuthentication  byte = 'R'
	msgParameterStatus byte = 'S'
	msgBackendKeyData  byte = 'K'
	msgReadyForQuery   byte = 'Z'
	msgRowDescription  byte = 'T'
	msgDataRow         byte = 'D'
	msgCommandComplete byte = 'C'
	msgErrorResponse   byte = 'E'
)

// Type OIDs for the four storage column kinds this dialect supports.
const (
	oidInteger = 23
	oidText    = 25
	oidVarchar = 1043
	oidBoolean = 16
)

// ErrMalformedLength marks a startup or frame header whose declared
// length is too small to be legal.
var ErrMalformedLength = fmt.Errorf("wire: malformed frame length")

// readStartupPayload reads the length-prefixed startup packet and returns
// its raw payload (everything after the 4-byte length). Malformed lengths
// (< 8: the length counts its own 4 bytes, so anything shorter leaves no
// room for the 4-byte protocol version) are reported as ErrMalformedLength so the caller can close silently
// without replying, per the protocol's startup contract.
func readStartupPayload(r io.Reader) ([]byte, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, err
	}
	length := int32(binary.BigEndian.Uint32(lengthBuf[:]))
	if length < 8 {
		return nil, ErrMalformedLength
	}

	payload := make([]byte, length-4)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// startupParams is the parsed result of a startup packet.
type startupParams struct {
	ProtocolVersion int32
	User            string
	Database        string
}

func parseStartupPayload(payload []byte) (startupParams, error) {
	if len(payload) < 4 {
		return startupParams{}, ErrMalformedLength
	}
	params := startupParams{
		ProtocolVersion: int32(binary.BigEndian.Uint32(payload[0:4])),
	}

	rest := payload[4:]
	pairs, err := readCStringPairs(rest)
	if err != nil {
		return startupParams{}, err
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		switch pairs[i] {
		case "user":
			params.User = pairs[i+1]
		case "database":
			params.Database = pairs[i+1]
		}
	}
	return params, nil
}

// readCStringPairs splits a null-terminated-string run (terminated by a
// trailing empty string) into its component strings.
func readCStringPairs(buf []byte) ([]string, error) {
	var out []string
	start := 0
	for start < len(buf) {
		if buf[start] == 0 {
			// Trailing terminator: the run is over.
			return out, nil
		}
		idx := bytes.IndexByte(buf[start:], 0)
		if idx < 0 {
			return nil, ErrMalformedLength
		}
		out = append(out, string(buf[start:start+idx]))
		start += idx + 1
	}
	return out, nil
}

// frame is one typed protocol message read from the main loop.
type frame struct {
	Type    byte
	Payload []byte
}

// readFrame reads one `byte type || int32 length || payload` frame.
func readFrame(r io.Reader) (frame, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return frame{}, err
	}

	typ := header[0]
	length := int32(binary.BigEndian.Uint32(header[1:5]))
	if length < 4 {
		return frame{}, ErrMalformedLength
	}

	payload := make([]byte, length-4)
	if _, err := io.ReadFull(r, payload); err != nil {
		return frame{}, err
	}
	return frame{Type: typ, Payload: payload}, nil
}

// writer wraps a bufio.Writer with the big-endian primitives every
// outgoing message needs, flushing once per logical message.
type writer struct {
	bw *bufio.Writer
}

func newWriter(w io.Writer) *writer {
	return &writer{bw: bufio.NewWriter(w)}
}

func (w *writer) writeMessage(typ byte, body []byte) error {
	var header [5]byte
	header[0] = typ
	binary.BigEndian.PutUint32(header[1:5], uint32(len(body)+4))

	if _, err := w.bw.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.bw.Write(body); err != nil {
		return err
	}
	return w.bw.Flush()
}

func cstring(s string) []byte {
	return append([]byte(s), 0)
}

func oidForKind(kindStr string) int32 {
	switch kindStr {
	case "integer":
		return oidInteger
	case "varchar":
		return oidVarchar
	case "boolean":
		return oidBoolean
	default:
		return oidText
	}
}

func sizeForKind(kindStr string) int16 {
	switch kindStr {
	case "integer":
		return 4
	case "boolean":
		return 1
	default:
		return -1
	}
}
