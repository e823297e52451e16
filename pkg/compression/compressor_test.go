package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAllAlgorithms(t *testing.T) {
	original := bytes.Repeat([]byte(`{"type":"Topology","arcs":[[[0,0],[1,1]]]}`), 200)

	for _, algorithm := range Algorithms() {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			t.Run(string(algorithm), func(t *testing.T) {
				compressed, err := Compress(original, algorithm, level)
				require.NoError(t, err)

				if algorithm != None {
					assert.Less(t, len(compressed), len(original))
				}

				decompressed, err := Decompress(compressed, algorithm)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(original, decompressed))
			})
		}
	}
}

func TestStreamingWriterDoesNotCloseUnderlying(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Zstd, Default)
	require.NoError(t, err)

	_, err = w.Write([]byte("hello hello hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, Zstd)
	require.NoError(t, err)
	defer r.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, "hello hello hello", out.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"GZIP", Gzip, false},
		{"gz", Gzip, false},
		{"zst", Zstd, false},
		{"s2", S2, false},
		{"lz4", LZ4, false},
		{"brotli", None, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFromPathAndExtension(t *testing.T) {
	assert.Equal(t, Gzip, FromPath("counties-10m.json.gz"))
	assert.Equal(t, Zstd, FromPath("/data/counties.JSON.ZST"))
	assert.Equal(t, Snappy, FromPath("a.snappy"))
	assert.Equal(t, Snappy, FromPath("a.sz"))
	assert.Equal(t, None, FromPath("counties-10m.json"))
	assert.Equal(t, None, FromPath("noext"))

	for _, a := range Algorithms() {
		if a == None {
			assert.Empty(t, a.Extension())
			continue
		}
		assert.Equal(t, a, FromPath("x.json"+a.Extension()))
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Algorithm("brotli"), Default)
	assert.Error(t, err)

	_, err = NewReader(&bytes.Buffer{}, Algorithm("brotli"))
	assert.Error(t, err)
}
