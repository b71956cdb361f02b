// Package compress adapts zstd and lz4 behind a common interface, and
// tags each page it encodes with a one-byte indicator so the controller
// can tell compressed pages from raw ones, per spec.md §4.7.
package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"nandctl/nanderr"
)

// Algorithm names a concrete codec.
type Algorithm string

const (
	Zstd Algorithm = "zstd"
	LZ4  Algorithm = "lz4"
)

// Indicator tags a stored page as raw or compressed, resolving spec.md
// §4.7's "a per-page indicator derivable from the codeword layout" into a
// concrete one-byte flag: the first byte of the payload handed to ECC.
type Indicator byte

const (
	Raw        Indicator = 0
	Compressed Indicator = 1
)

// Compressor compresses and decompresses whole buffers.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
}

// New constructs the Compressor for algo.
func New(algo Algorithm) (Compressor, error) {
	switch algo {
	case Zstd:
		return newZstdCompressor()
	case LZ4:
		return &lz4Compressor{}, nil
	default:
		return nil, nanderr.Errorf(nanderr.InvalidCompressedData, "compress: unknown algorithm %q", algo)
	}
}

type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, "compress: build zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "compress: build zstd decoder")
	}
	return &zstdCompressor{encoder: enc, decoder: dec}, nil
}

func (z *zstdCompressor) Algorithm() Algorithm { return Zstd }

func (z *zstdCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return z.encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (z *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	out, err := z.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, nanderr.Errorf(nanderr.InvalidCompressedData, "compress: zstd decode: %v", err)
	}
	return out, nil
}

type lz4Compressor struct{}

func (l *lz4Compressor) Algorithm() Algorithm { return LZ4 }

func (l *lz4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "compress: lz4 write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "compress: lz4 close")
	}
	return buf.Bytes(), nil
}

func (l *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, nanderr.Errorf(nanderr.InvalidCompressedData, "compress: lz4 decode: %v", err)
	}
	return out, nil
}

// EncodePage compresses data with c and prefixes the result with an
// Indicator byte. If compression does not shrink the payload, the page is
// stored raw instead — the indicator lets DecodePage tell the two apart
// without re-running the codec.
func EncodePage(c Compressor, data []byte) ([]byte, error) {
	compressed, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	if compressed != nil && len(compressed) < len(data) {
		return append([]byte{byte(Compressed)}, compressed...), nil
	}
	return append([]byte{byte(Raw)}, data...), nil
}

// DecodePage reverses EncodePage, using c to decompress if the leading
// byte says the payload was compressed.
func DecodePage(c Compressor, page []byte) ([]byte, error) {
	if len(page) == 0 {
		return nil, nanderr.New(nanderr.InvalidCompressedData, "compress: empty page has no indicator byte")
	}
	indicator := Indicator(page[0])
	body := page[1:]
	switch indicator {
	case Raw:
		return body, nil
	case Compressed:
		return c.Decompress(body)
	default:
		return nil, nanderr.Errorf(nanderr.InvalidCompressedData, "compress: unknown indicator %d", page[0])
	}
}
