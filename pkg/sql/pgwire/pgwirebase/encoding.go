// Copyright 2026 The Pgbridge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package pgwirebase

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgerror"
)

// MaxMessageSize bounds a single protocol message.
const MaxMessageSize = 1 << 24

// BufferedReader is the subset of bufio.Reader the read path needs.
type BufferedReader interface {
	io.Reader
	ReadByte() (byte, error)
}

// ReadBuffer holds the body of the message currently being decoded. Get
// methods consume from the front of Msg.
type ReadBuffer struct {
	Msg []byte
	tmp [4]byte
}

// reset sets b.Msg to exactly size, reusing spare capacity at the end
// of the existing slice when possible.
func (b *ReadBuffer) reset(size int) {
	if b.Msg != nil {
		b.Msg = b.Msg[len(b.Msg):]
	}

	if cap(b.Msg) >= size {
		b.Msg = b.Msg[:size]
		return
	}

	allocSize := size
	if allocSize < 4096 {
		allocSize = 4096
	}
	b.Msg = make([]byte, size, allocSize)
}

// ReadUntypedMsg reads a length-prefixed message body. It is only used
// directly for the startup message; ReadTypedMsg is used at all other
// times. Returns the number of bytes read.
func (b *ReadBuffer) ReadUntypedMsg(rd io.Reader) (int, error) {
	if _, err := io.ReadFull(rd, b.tmp[:]); err != nil {
		return 0, err
	}
	size := int(binary.BigEndian.Uint32(b.tmp[:]))
	// size includes itself.
	size -= 4
	if size > MaxMessageSize || size < 0 {
		return 0, NewProtocolViolationErrorf(
			"message size %d out of bounds (0..%d)", size, MaxMessageSize)
	}

	b.reset(size)
	n, err := io.ReadFull(rd, b.Msg)
	return n + 4, err
}

// ReadTypedMsg reads a message, returning its type code and length.
func (b *ReadBuffer) ReadTypedMsg(rd BufferedReader) (ClientMessageType, int, error) {
	typ, err := rd.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	n, err := b.ReadUntypedMsg(rd)
	return ClientMessageType(typ), n + 1, err
}

// GetString reads a null-terminated string.
func (b *ReadBuffer) GetString() (string, error) {
	pos := bytes.IndexByte(b.Msg, 0)
	if pos == -1 {
		return "", NewProtocolViolationErrorf("NUL terminator not found")
	}
	s := string(b.Msg[:pos])
	b.Msg = b.Msg[pos+1:]
	return s, nil
}

// GetPrepareType reads a Describe/Close target type byte.
func (b *ReadBuffer) GetPrepareType() (PrepareType, error) {
	v, err := b.GetBytes(1)
	if err != nil {
		return 0, err
	}
	t := PrepareType(v[0])
	if t != PrepareStatement && t != PreparePortal {
		return 0, NewProtocolViolationErrorf("invalid prepare type %q", v[0])
	}
	return t, nil
}

// GetBytes consumes exactly n bytes.
func (b *ReadBuffer) GetBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, NewProtocolViolationErrorf("negative length: %d", n)
	}
	if len(b.Msg) < n {
		return nil, NewProtocolViolationErrorf("insufficient data: %d", len(b.Msg))
	}
	v := b.Msg[:n]
	b.Msg = b.Msg[n:]
	return v, nil
}

// GetUint16 consumes a big-endian uint16.
func (b *ReadBuffer) GetUint16() (uint16, error) {
	if len(b.Msg) < 2 {
		return 0, NewProtocolViolationErrorf("insufficient data: %d", len(b.Msg))
	}
	v := binary.BigEndian.Uint16(b.Msg[:2])
	b.Msg = b.Msg[2:]
	return v, nil
}

// GetUint32 consumes a big-endian uint32.
func (b *ReadBuffer) GetUint32() (uint32, error) {
	if len(b.Msg) < 4 {
		return 0, NewProtocolViolationErrorf("insufficient data: %d", len(b.Msg))
	}
	v := binary.BigEndian.Uint32(b.Msg[:4])
	b.Msg = b.Msg[4:]
	return v, nil
}

// NewProtocolViolationErrorf creates a protocol-violation error.
func NewProtocolViolationErrorf(format string, args ...interface{}) error {
	return pgerror.Newf(pgerror.CodeProtocolViolationError, format, args...)
}

// NewInvalidBinaryRepresentationErrorf creates a decoding error for a
// malformed binary-format value.
func NewInvalidBinaryRepresentationErrorf(format string, args ...interface{}) error {
	return pgerror.Newf(pgerror.CodeInvalidBinaryRepresentationError, format, args...)
}
