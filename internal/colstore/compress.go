package colstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the chunk compression of a page.
type Compression uint8

const (
	// CompressionNone stores chunks as encoded.
	CompressionNone Compression = 0
	// CompressionZstd uses zstd (better ratio, the default).
	CompressionZstd Compression = 1
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 2
	// CompressionSnappy uses snappy block compression.
	CompressionSnappy Compression = 3
)

var compressionNames = map[Compression]string{
	CompressionNone:   "none",
	CompressionZstd:   "zstd",
	CompressionLZ4:    "lz4",
	CompressionSnappy: "snappy",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// Valid reports whether c is a known compression.
func (c Compression) Valid() bool {
	_, ok := compressionNames[c]
	return ok
}

// ParseCompression returns the compression with the given name.
func ParseCompression(name string) (Compression, error) {
	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("colstore: unknown compression %q", name)
}

// MarshalText encodes the compression by name.
func (c Compression) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("colstore: unknown compression %d", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a compression name.
func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compressChunk returns the stored form of raw. The result is raw itself
// when compression does not get below 90% of the input.
func compressChunk(raw []byte, c Compression) ([]byte, error) {
	if c == CompressionNone || len(raw) == 0 {
		return raw, nil
	}

	var out []byte
	switch c {
	case CompressionZstd:
		enc := getZstdEncoder()
		out = enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, err
		}
		out = buf[:n]
	case CompressionSnappy:
		out = snappy.Encode(nil, raw)
	default:
		return nil, fmt.Errorf("colstore: unknown compression %d", c)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(raw))*0.9 {
		return raw, nil
	}
	return out, nil
}

var errSizeMismatch = errors.New("decompressed size mismatch")

// decompressChunk reverses compressChunk. A chunk whose stored length
// equals rawLen was stored raw.
func decompressChunk(stored []byte, rawLen int, c Compression) ([]byte, error) {
	if len(stored) == rawLen {
		return stored, nil
	}

	switch c {
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, rawLen))
		if err != nil {
			return nil, err
		}
		if len(out) != rawLen {
			return nil, errSizeMismatch
		}
		return out, nil
	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, errSizeMismatch
		}
		return out, nil
	case CompressionSnappy:
		n, err := snappy.DecodedLen(stored)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, errSizeMismatch
		}
		return snappy.Decode(make([]byte, rawLen), stored)
	default:
		return nil, fmt.Errorf("unexpected compressed chunk for %s", c)
	}
}
