package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestNew_Defaults checks every default matches the enumerated
// configuration inputs.
func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultBufferSize, c.BufferSize)
	assert.Equal(t, 30*time.Second, c.QueryTimeout)
	assert.Equal(t, 10*time.Second, c.ConnectionTimeout)
	assert.Equal(t, 0.80, c.EvictionThreshold)
	assert.Equal(t, 0.60, c.TargetUtilization)
	assert.Equal(t, time.Second, c.EvictionInterval)
	assert.Equal(t, "./data", c.DataRoot)
}

// TestNew_OptionsOverrideDefaults checks each option mutates only its own
// field.
func TestNew_OptionsOverrideDefaults(t *testing.T) {
	t.Parallel()

	c := New(
		WithPort(6000),
		WithBufferSize(64),
		WithDataRoot("/tmp/pgheap"),
	)
	assert.Equal(t, 6000, c.Port)
	assert.Equal(t, 64, c.BufferSize)
	assert.Equal(t, "/tmp/pgheap", c.DataRoot)
	assert.Equal(t, 30*time.Second, c.QueryTimeout, "unrelated option stays at default")
}

// TestNew_OptionsIgnoreInvalidValues checks zero/negative values leave
// the default in place rather than producing a degenerate config.
func TestNew_OptionsIgnoreInvalidValues(t *testing.T) {
	t.Parallel()

	c := New(WithPort(-1), WithBufferSize(0), WithEvictionThreshold(2))
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultBufferSize, c.BufferSize)
	assert.Equal(t, DefaultEvictionThreshold, c.EvictionThreshold)
}
