// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package kvstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/tcbot-project/tcbot/lib/compress"
)

// A frame is the stored form of one cache value:
//
//	byte 0      frame format (frameVersion)
//	byte 1      compress.Tag of the payload
//	uvarint     uncompressed length
//	16 bytes    truncated keyed BLAKE3 of the uncompressed value
//	rest        payload
const (
	frameVersion  = 1
	checksumBytes = 16
)

// ErrCorruptFrame is returned by DecodeFrame for truncated frames,
// unknown frame formats, and checksum mismatches.
var ErrCorruptFrame = errors.New("kvstore: corrupt value frame")

// valueDomainKey separates value checksums from any other BLAKE3 use.
// Changing it invalidates every stored frame.
var valueDomainKey = [32]byte{
	't', 'c', 'b', 'o', 't', '.', 'k', 'v', 's', 't', 'o', 'r', 'e', '.',
	'v', 'a', 'l', 'u', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// FrameOptions controls EncodeFrame.
type FrameOptions struct {
	// Compression is the preferred algorithm. Values that do not
	// shrink are stored uncompressed.
	Compression compress.Tag
}

func checksum(value []byte) [checksumBytes]byte {
	hasher, err := blake3.NewKeyed(valueDomainKey[:])
	if err != nil {
		panic("kvstore: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(value)
	var sum [checksumBytes]byte
	copy(sum[:], hasher.Sum(nil))
	return sum
}

// EncodeFrame compresses value and wraps it in a frame.
func EncodeFrame(value []byte, opts FrameOptions) ([]byte, error) {
	payload, tag, err := compress.Compress(value, opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("kvstore: encode frame: %w", err)
	}

	sum := checksum(value)
	frame := make([]byte, 0, 2+binary.MaxVarintLen64+checksumBytes+len(payload))
	frame = append(frame, frameVersion, byte(tag))
	frame = binary.AppendUvarint(frame, uint64(len(value)))
	frame = append(frame, sum[:]...)
	frame = append(frame, payload...)
	return frame, nil
}

// DecodeFrame returns the original value of a frame written by
// EncodeFrame, verifying its length and checksum.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptFrame, len(frame))
	}
	if frame[0] != frameVersion {
		return nil, fmt.Errorf("%w: unknown format %d", ErrCorruptFrame, frame[0])
	}
	tag := compress.Tag(frame[1])

	size, n := binary.Uvarint(frame[2:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad length prefix", ErrCorruptFrame)
	}
	rest := frame[2+n:]
	if len(rest) < checksumBytes {
		return nil, fmt.Errorf("%w: truncated checksum", ErrCorruptFrame)
	}
	want := rest[:checksumBytes]
	payload := rest[checksumBytes:]

	value, err := compress.Decompress(payload, tag, int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFrame, err)
	}
	got := checksum(value)
	if !bytes.Equal(got[:], want) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptFrame)
	}
	return value, nil
}
