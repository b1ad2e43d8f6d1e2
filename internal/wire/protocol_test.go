package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pgheap/pgheap/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStartupPacket assembles a raw startup packet body the way a real
// client driver would, for feeding into readStartupPayload/parseStartupPayload.
func buildStartupPacket(version int32, params map[string]string) []byte {
	var body bytes.Buffer
	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], uint32(version))
	body.Write(versionBuf[:])

	for k, v := range params {
		body.Write(cstring(k))
		body.Write(cstring(v))
	}
	body.WriteByte(0)

	var packet bytes.Buffer
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(body.Len()+4))
	packet.Write(length[:])
	packet.Write(body.Bytes())
	return packet.Bytes()
}

// TestReadStartupPayload_ParsesUserAndDatabase covers a well-formed
// startup packet round trip.
func TestReadStartupPayload_ParsesUserAndDatabase(t *testing.T) {
	t.Parallel()

	packet := buildStartupPacket(ProtocolVersion, map[string]string{
		"user":     "alice",
		"database": "pgheap",
	})

	payload, err := readStartupPayload(bytes.NewReader(packet))
	require.NoError(t, err)

	params, err := parseStartupPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, ProtocolVersion, params.ProtocolVersion)
	assert.Equal(t, "alice", params.User)
	assert.Equal(t, "pgheap", params.Database)
}

// TestReadStartupPayload_RejectsShortLength covers a declared length too
// small to hold even the protocol version field.
func TestReadStartupPayload_RejectsShortLength(t *testing.T) {
	t.Parallel()

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], 4)

	_, err := readStartupPayload(bytes.NewReader(buf[:]))
	assert.ErrorIs(t, err, ErrMalformedLength)
}

// TestReadFrame_RoundTrip checks a message written by writer.writeMessage
// is read back with the same type and payload.
func TestReadFrame_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := newWriter(&buf)
	require.NoError(t, w.writeMessage(msgSimpleQuery, []byte("SELECT 1")))

	f, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, msgSimpleQuery, f.Type)
	assert.Equal(t, "SELECT 1", string(f.Payload))
}

// TestReadFrame_RejectsShortLength checks a frame header claiming a
// length smaller than the header itself is rejected.
func TestReadFrame_RejectsShortLength(t *testing.T) {
	t.Parallel()

	var header [5]byte
	header[0] = msgSimpleQuery
	binary.BigEndian.PutUint32(header[1:5], 2)

	_, err := readFrame(bytes.NewReader(header[:]))
	assert.ErrorIs(t, err, ErrMalformedLength)
}

// TestWriteRowDescription_EncodesColumnCount checks the wire column count
// prefix matches the number of columns passed in.
func TestWriteRowDescription_EncodesColumnCount(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := newWriter(&buf)
	require.NoError(t, w.writeRowDescription(nil))

	f, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, msgRowDescription, f.Type)
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(f.Payload[0:2]))
}

// TestWriteDataRow_EncodesNullAsNegativeOne checks a null value is
// rendered with the wire protocol's -1 length sentinel rather than a
// zero-length string.
func TestWriteDataRow_EncodesNullAsNegativeOne(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := newWriter(&buf)
	require.NoError(t, w.writeDataRow([]storage.Value{storage.NewNull()}))

	f, err := readFrame(&buf)
	require.NoError(t, err)
	length := int32(binary.BigEndian.Uint32(f.Payload[2:6]))
	assert.Equal(t, int32(-1), length)
}
