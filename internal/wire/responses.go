package wire

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/pgheap/pgheap/internal/engine"
	"github.com/pgheap/pgheap/internal/storage"
)

func (w *writer) writeAuthenticationOk() error {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, 0)
	return w.writeMessage(msgAuthentication, body)
}

func (w *writer) writeParameterStatus(name, value string) error {
	var body bytes.Buffer
	body.Write(cstring(name))
	body.Write(cstring(value))
	return w.writeMessage(msgParameterStatus, body.Bytes())
}

func (w *writer) writeBackendKeyData(pid, secretKey int32) error {
	body := make([]byte, 8)
	binary.BigEndian.PutUint32(body[0:4], uint32(pid))
	binary.BigEndian.PutUint32(body[4:8], uint32(secretKey))
	return w.writeMessage(msgBackendKeyData, body)
}

// Transaction status bytes for ReadyForQuery. This server never opens an
// explicit transaction, so it always reports 'I' (idle).
const txStatusIdle = 'I'

func (w *writer) writeReadyForQuery() error {
	return w.writeMessage(msgReadyForQuery, []byte{txStatusIdle})
}

func (w *writer) writeRowDescription(columns []engine.ResultColumn) error {
	var body bytes.Buffer

	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(columns)))
	body.Write(count[:])

	for _, col := range columns {
		kindStr := col.Kind.String()
		body.Write(cstring(col.Name))

		var field [18]byte
		// table OID (0 = not a real catalog relation)
		binary.BigEndian.PutUint32(field[0:4], 0)
		// column attribute number (0 = not applicable)
		binary.BigEndian.PutUint16(field[4:6], 0)
		binary.BigEndian.PutUint32(field[6:10], uint32(oidForKind(kindStr)))
		binary.BigEndian.PutUint16(field[10:12], uint16(sizeForKind(kindStr)))
		// type modifier, always -1 for this dialect
		binary.BigEndian.PutUint32(field[12:16], uint32(int32(-1)))
		// format code: 0 = text
		binary.BigEndian.PutUint16(field[16:18], 0)
		body.Write(field[:])
	}

	return w.writeMessage(msgRowDescription, body.Bytes())
}

func (w *writer) writeDataRow(values []storage.Value) error {
	var body bytes.Buffer

	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(values)))
	body.Write(count[:])

	for _, v := range values {
		if v.IsNull() {
			var length [4]byte
			binary.BigEndian.PutUint32(length[:], uint32(int32(-1)))
			body.Write(length[:])
			continue
		}

		text := renderValueText(v)
		var length [4]byte
		binary.BigEndian.PutUint32(length[:], uint32(len(text)))
		body.Write(length[:])
		body.WriteString(text)
	}

	return w.writeMessage(msgDataRow, body.Bytes())
}

// renderValueText renders a non-null Value in the text wire format:
// integers base-10, booleans as t/f, text verbatim.
func renderValueText(v storage.Value) string {
	switch v.Kind {
	case storage.KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case storage.KindBool:
		if v.Bool {
			return "t"
		}
		return "f"
	default:
		return v.Text
	}
}

func (w *writer) writeCommandComplete(tag string) error {
	return w.writeMessage(msgCommandComplete, cstring(tag))
}

// writeErrorField appends one field of an ErrorResponse body: a one-byte
// tag followed by a null-terminated value.
func writeErrorField(buf *bytes.Buffer, tag byte, value string) {
	buf.WriteByte(tag)
	buf.Write(cstring(value))
}

func (w *writer) writeErrorResponse(severity, sqlstate, message string) error {
	var body bytes.Buffer
	writeErrorField(&body, 'S', severity)
	writeErrorField(&body, 'V', severity)
	writeErrorField(&body, 'C', sqlstate)
	writeErrorField(&body, 'M', message)
	body.WriteByte(0)
	return w.writeMessage(msgErrorResponse, body.Bytes())
}
