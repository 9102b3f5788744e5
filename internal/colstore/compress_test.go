package colstore

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressChunk(t *testing.T) {
	compressible := bytes.Repeat([]byte("rowIndex"), 4096)
	random := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(random)

	for c := range compressionNames {
		t.Run(c.String(), func(t *testing.T) {
			stored, err := compressChunk(compressible, c)
			require.NoError(t, err)
			if c != CompressionNone {
				assert.Less(t, len(stored), len(compressible))
			}
			out, err := decompressChunk(stored, len(compressible), c)
			require.NoError(t, err)
			assert.Equal(t, compressible, out)

			// Incompressible input is stored raw.
			stored, err = compressChunk(random, c)
			require.NoError(t, err)
			assert.Len(t, stored, len(random))
			out, err = decompressChunk(stored, len(random), c)
			require.NoError(t, err)
			assert.Equal(t, random, out)
		})
	}
}

func TestDecompressChunkSizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 1000)
	for _, c := range []Compression{CompressionZstd, CompressionLZ4, CompressionSnappy} {
		stored, err := compressChunk(data, c)
		require.NoError(t, err)
		_, err = decompressChunk(stored, len(data)+1, c)
		assert.Error(t, err, c.String())
	}
}

func TestCompressionText(t *testing.T) {
	data, err := json.Marshal(struct {
		C Compression `json:"c"`
	}{CompressionLZ4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"lz4"}`, string(data))

	var got Compression
	require.NoError(t, got.UnmarshalText([]byte("snappy")))
	assert.Equal(t, CompressionSnappy, got)
	assert.Error(t, got.UnmarshalText([]byte("brotli")))

	_, err = Compression(42).MarshalText()
	assert.Error(t, err)
}
