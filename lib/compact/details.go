// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import (
	"fmt"

	"github.com/tcbot-project/tcbot/lib/compress"
)

// Details is free text (a stack trace, a problem description) stored
// compressed. The zero value is the empty string.
type Details struct {
	_    struct{} `cbor:",toarray"`
	Tag  compress.Tag
	Size uint32
	Data []byte
}

func packDetails(text string) Details {
	if text == "" {
		return Details{}
	}
	data, tag, err := compress.Compress([]byte(text), compress.Zstd)
	if err != nil {
		data, tag = []byte(text), compress.None
	}
	return Details{Tag: tag, Size: uint32(len(text)), Data: data}
}

// Text decompresses the details.
func (d Details) Text() (string, error) {
	if d.Size == 0 {
		return "", nil
	}
	raw, err := compress.Decompress(d.Data, d.Tag, int(d.Size))
	if err != nil {
		return "", fmt.Errorf("compact: details: %w", err)
	}
	return string(raw), nil
}
