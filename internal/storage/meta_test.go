package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTableMeta_MarshalUnmarshal_RoundTrip checks a metadata record with a
// multi-column schema survives the header-page encoding.
func TestTableMeta_MarshalUnmarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	meta := TableMeta{
		TableName:         "accounts",
		CreatedAt:         time.Unix(1_700_000_000, 0).UTC(),
		PageFormatVersion: PageFormatVersion,
		Columns: Schema{
			{Name: "id", Kind: ColumnInteger},
			{Name: "email", Kind: ColumnVarchar, Size: 64},
			{Name: "active", Kind: ColumnBoolean},
		},
		TotalTuples: 42,
	}

	buf := meta.marshal()
	restored, err := unmarshalTableMeta(buf)
	require.NoError(t, err)

	assert.Equal(t, meta.TableName, restored.TableName)
	assert.Equal(t, meta.CreatedAt, restored.CreatedAt)
	assert.Equal(t, meta.PageFormatVersion, restored.PageFormatVersion)
	assert.Equal(t, meta.Columns, restored.Columns)
	assert.Equal(t, meta.TotalTuples, restored.TotalTuples)
}

// TestHeaderPage_RoundTrip checks the header page wraps and unwraps a
// metadata record through the ordinary tuple machinery.
func TestHeaderPage_RoundTrip(t *testing.T) {
	t.Parallel()

	meta := TableMeta{
		TableName:         "widgets",
		CreatedAt:         time.Now().UTC(),
		PageFormatVersion: PageFormatVersion,
		Columns:           Schema{{Name: "sku", Kind: ColumnText}},
	}

	page, err := newHeaderPage(meta)
	require.NoError(t, err)

	restored, err := readHeaderMeta(page)
	require.NoError(t, err)
	assert.Equal(t, meta.TableName, restored.TableName)
	assert.Equal(t, meta.Columns, restored.Columns)
}

// TestUnmarshalTableMeta_TruncatedBuffer ensures malformed header blobs are
// reported, not silently misread.
func TestUnmarshalTableMeta_TruncatedBuffer(t *testing.T) {
	t.Parallel()

	_, err := unmarshalTableMeta([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrDeserialize)
}
