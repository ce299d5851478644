package checkpoint

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names the encoding used for checkpoint payloads.
type Codec byte

// Supported codecs.
const (
	CodecJSON    Codec = 1
	CodecMsgpack Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecJSON:
		return "json"
	case CodecMsgpack:
		return "msgpack"
	default:
		return fmt.Sprintf("codec(%d)", byte(c))
	}
}

// Compression names the compression applied after encoding.
type Compression byte

// Supported compression algorithms.
const (
	CompressionNone Compression = 0
	CompressionGzip Compression = 1
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", byte(c))
	}
}

// ParseCodec maps a config name ("json", "msgpack") to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return CodecJSON, nil
	case "msgpack":
		return CodecMsgpack, nil
	default:
		return 0, fmt.Errorf("unknown codec %q", name)
	}
}

// ParseCompression maps a config name ("none", "gzip", "zstd") to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// header prefixes every encoded checkpoint: magic, codec, compression.
var magic = []byte("SGCP")

const headerLen = 6

// ErrUnknownFormat is returned when data carries neither a serializer
// header nor plain JSON.
var ErrUnknownFormat = errors.New("unknown checkpoint encoding")

// Serializer encodes checkpoints for storage.
// Output is self-describing, so a reader does not need to know which
// codec or compression the writer used. Plain JSON (as written by
// Checkpoint.Marshal) is accepted on decode.
type Serializer struct {
	codec       Codec
	compression Compression
}

// NewSerializer creates a serializer.
func NewSerializer(codec Codec, compression Compression) *Serializer {
	return &Serializer{codec: codec, compression: compression}
}

// DefaultSerializer writes uncompressed JSON.
func DefaultSerializer() *Serializer {
	return NewSerializer(CodecJSON, CompressionNone)
}

// Codec returns the codec used for encoding.
func (s *Serializer) Codec() Codec { return s.codec }

// Compression returns the compression used for encoding.
func (s *Serializer) Compression() Compression { return s.compression }

// Encode serializes a checkpoint.
func (s *Serializer) Encode(cp *Checkpoint) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	switch s.codec {
	case CodecJSON:
		body, err = json.Marshal(cp)
	case CodecMsgpack:
		body, err = msgpack.Marshal(cp)
	default:
		return nil, fmt.Errorf("encode checkpoint: unsupported %s", s.codec)
	}
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint (%s): %w", s.codec, err)
	}

	body, err = compress(s.compression, body)
	if err != nil {
		return nil, fmt.Errorf("compress checkpoint (%s): %w", s.compression, err)
	}

	out := make([]byte, 0, headerLen+len(body))
	out = append(out, magic...)
	out = append(out, byte(s.codec), byte(s.compression))
	return append(out, body...), nil
}

// Decode deserializes a checkpoint written by any Serializer or by
// Checkpoint.Marshal.
func (s *Serializer) Decode(data []byte) (*Checkpoint, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return Unmarshal(trimmed)
	}
	if len(data) < headerLen || !bytes.Equal(data[:len(magic)], magic) {
		return nil, ErrUnknownFormat
	}

	codec := Codec(data[4])
	compression := Compression(data[5])

	body, err := decompress(compression, data[headerLen:])
	if err != nil {
		return nil, fmt.Errorf("decompress checkpoint (%s): %w", compression, err)
	}

	var cp Checkpoint
	switch codec {
	case CodecJSON:
		err = json.Unmarshal(body, &cp)
	case CodecMsgpack:
		err = msgpack.Unmarshal(body, &cp)
	default:
		return nil, fmt.Errorf("decode checkpoint: unsupported %s", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("decode checkpoint (%s): %w", codec, err)
	}
	return &cp, nil
}

func compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unsupported %s", c)
	}
}

func decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unsupported %s", c)
	}
}
