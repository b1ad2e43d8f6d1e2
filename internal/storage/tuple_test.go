package storage

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeDecodeTuple_RoundTrip checks a full row of mixed-kind values
// round-trips through encodeTuple/decodeTuple.
func TestEncodeDecodeTuple_RoundTrip(t *testing.T) {
	t.Parallel()

	rowID := uint64(gofakeit.Number(1, 1_000_000))
	values := []Value{
		NewInt64(int64(gofakeit.Number(1, 1000))),
		NewText(gofakeit.Name()),
		NewBool(gofakeit.Bool()),
		NewNull(),
	}

	buf := encodeTuple(rowID, values)
	assert.Equal(t, tupleSize(rowID, values), len(buf))

	gotRowID, gotValues, err := decodeTuple(buf)
	require.NoError(t, err)
	assert.Equal(t, rowID, gotRowID)
	assert.Equal(t, values, gotValues)
}

// TestDecodeTuple_TruncatedHeader ensures a buffer too short to hold the
// row-id/count header is rejected.
func TestDecodeTuple_TruncatedHeader(t *testing.T) {
	t.Parallel()

	_, _, err := decodeTuple([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrDeserialize)
}
