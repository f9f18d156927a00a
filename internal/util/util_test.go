package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id, err := NewID(0)
	require.NoError(t, err)
	assert.Len(t, id, DefaultIDLength)

	other, err := NewID(12)
	require.NoError(t, err)
	assert.Len(t, other, 12)
	assert.NotEqual(t, id, other)
}

func TestGzipRoundTrip(t *testing.T) {
	in := "package main\n\nfunc main() {}\n"
	z, err := GzipEncode(in)
	require.NoError(t, err)
	out, err := GzipDecode(z)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	z, err = GzipEncode("")
	require.NoError(t, err)
	out, err = GzipDecode(z)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = GzipDecode(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = GzipDecode([]byte("not gzip"))
	assert.Error(t, err)
}

func TestParseTTL(t *testing.T) {
	cases := map[string]time.Duration{
		"":        0,
		"never":   0,
		" never ": 0,
		"1h":      time.Hour,
		" 2h ":    2 * time.Hour,
		"24H":     24 * time.Hour,
		"7d":      168 * time.Hour,
		" 7D ":    168 * time.Hour,
		"90m":     90 * time.Minute,
		"0":       0,
		"1d":      24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseTTL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTTL("soon")
	assert.Error(t, err)
	_, err = ParseTTL("-1h")
	assert.Error(t, err)
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", HumanBytes(512))
	assert.Equal(t, "1.5 KiB", HumanBytes(1536))
	assert.Equal(t, "2.0 MiB", HumanBytes(2<<20))
	assert.Equal(t, "1.0 GiB", HumanBytes(1<<30))
}

func TestReadRuntime(t *testing.T) {
	rt := ReadRuntime()
	assert.NotZero(t, rt.Alloc)
	assert.GreaterOrEqual(t, rt.Sys, rt.Alloc)
	assert.GreaterOrEqual(t, rt.Goroutines, 1)
}
