// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress wraps the block compressors used for persisted
// cache values and for free-text details inside compact build records.
package compress

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies a compression algorithm. Tags are written into
// stored value frames; the numeric values are a storage format
// constant.
type Tag uint8

const (
	// None stores bytes as-is.
	None Tag = 0

	// LZ4 is block-mode LZ4. Cheap to decode; the default for cache
	// values, which are read far more often than written.
	LZ4 Tag = 1

	// Zstd is zstd at the default level. Better ratio on text such as
	// test failure details and stack traces.
	Zstd Tag = 2
)

// ErrCorrupt is returned when compressed input does not decode to
// the expected length.
var ErrCorrupt = errors.New("compress: corrupt input")

func (tag Tag) String() string {
	switch tag {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseTag parses the configuration spelling of a tag.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, lz4 or zstd)", name)
	}
}

// Compress compresses data with the preferred algorithm. When the
// output would not be smaller than the input it returns data
// unchanged with tag None, so callers must persist the returned tag
// rather than the preferred one.
func Compress(data []byte, preferred Tag) ([]byte, Tag, error) {
	if len(data) == 0 {
		return data, None, nil
	}
	var (
		compressed []byte
		err        error
	)
	switch preferred {
	case None:
		return data, None, nil
	case LZ4:
		compressed, err = compressLZ4(data)
	case Zstd:
		compressed = zstdEncoder.EncodeAll(data, nil)
	default:
		return nil, None, fmt.Errorf("compress: unsupported tag %d", preferred)
	}
	if err != nil {
		return nil, None, err
	}
	if compressed == nil || len(compressed) >= len(data) {
		return data, None, nil
	}
	return compressed, preferred, nil
}

// Decompress reverses Compress. size is the original length and is
// verified.
func Decompress(data []byte, tag Tag, size int) ([]byte, error) {
	switch tag {
	case None:
		if len(data) != size {
			return nil, fmt.Errorf("%w: stored %d bytes, expected %d", ErrCorrupt, len(data), size)
		}
		return data, nil

	case LZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if read != size {
			return nil, fmt.Errorf("%w: lz4 produced %d bytes, expected %d", ErrCorrupt, read, size)
		}
		return destination, nil

	case Zstd:
		destination, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if len(destination) != size {
			return nil, fmt.Errorf("%w: zstd produced %d bytes, expected %d", ErrCorrupt, len(destination), size)
		}
		return destination, nil

	default:
		return nil, fmt.Errorf("compress: unsupported tag %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("compress: lz4: %w", err)
	}
	// Zero means the block is incompressible.
	if written == 0 {
		return nil, nil
	}
	return destination[:written], nil
}

// zstd encoders and decoders are safe for concurrent EncodeAll and
// DecodeAll calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}
