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

package pgwire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgwirebase"
)

// writeBuffer accumulates one outgoing message. It preserves any error
// it encounters and turns subsequent writes into no-ops until finishMsg
// is called, so call sites don't have to check an error per field.
type writeBuffer struct {
	wrapped bytes.Buffer
	err     error

	// Scratch space for the fixed-width put methods.
	putbuf [64]byte

	// bytecount tallies bytes across all messages written through this
	// buffer, for the server's bytes_out metric.
	bytecount prometheus.Counter
}

func newWriteBuffer(bytecount prometheus.Counter) *writeBuffer {
	return &writeBuffer{bytecount: bytecount}
}

func (b *writeBuffer) writeByte(c byte) {
	if b.err == nil {
		b.err = b.wrapped.WriteByte(c)
	}
}

func (b *writeBuffer) write(p []byte) {
	if b.err == nil {
		_, b.err = b.wrapped.Write(p)
	}
}

func (b *writeBuffer) writeString(s string) {
	if b.err == nil {
		_, b.err = b.wrapped.WriteString(s)
	}
}

func (b *writeBuffer) nullTerminate() {
	if b.err == nil {
		b.err = b.wrapped.WriteByte(0)
	}
}

// writeTerminatedString writes a null-terminated string.
func (b *writeBuffer) writeTerminatedString(s string) {
	b.writeString(s)
	b.nullTerminate()
}

// writeLengthPrefixedBytes writes a value cell: int32 length followed
// by the bytes, or -1 for NULL when v is nil.
func (b *writeBuffer) writeLengthPrefixedBytes(v []byte) {
	if v == nil {
		b.putInt32(-1)
		return
	}
	b.putInt32(int32(len(v)))
	b.write(v)
}

func (b *writeBuffer) putInt16(v int16) {
	if b.err == nil {
		binary.BigEndian.PutUint16(b.putbuf[:], uint16(v))
		_, b.err = b.wrapped.Write(b.putbuf[:2])
	}
}

func (b *writeBuffer) putInt32(v int32) {
	if b.err == nil {
		binary.BigEndian.PutUint32(b.putbuf[:], uint32(v))
		_, b.err = b.wrapped.Write(b.putbuf[:4])
	}
}

func (b *writeBuffer) putErrFieldMsg(field pgwirebase.ServerErrFieldType) {
	if b.err == nil {
		b.err = b.wrapped.WriteByte(byte(field))
	}
}

func (b *writeBuffer) reset() {
	b.wrapped.Reset()
	b.err = nil
}

// initMsg begins a message of the provided type.
func (b *writeBuffer) initMsg(typ pgwirebase.ServerMessageType) {
	b.reset()
	b.putbuf[0] = byte(typ)
	_, b.err = b.wrapped.Write(b.putbuf[:5]) // message type + length
}

// finishMsg backfills the length word and flushes the message to w.
func (b *writeBuffer) finishMsg(w io.Writer) error {
	defer b.reset()
	if b.err != nil {
		return b.err
	}
	msg := b.wrapped.Bytes()
	binary.BigEndian.PutUint32(msg[1:5], uint32(b.wrapped.Len()-1))
	n, err := w.Write(msg)
	if b.bytecount != nil {
		b.bytecount.Add(float64(n))
	}
	return err
}
