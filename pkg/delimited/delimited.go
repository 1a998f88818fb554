// signalbackup - A streaming codec for Signal message backups.
// Copyright (C) 2025 Tulir Asokan
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package delimited implements streams of varint length-prefixed messages.
package delimited

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultMaxSize is the message size limit used when none is configured.
const DefaultMaxSize = 4 * 1024 * 1024

var (
	ErrTruncated     = errors.New("stream ended in the middle of a message")
	ErrFrameTooLarge = errors.New("message exceeds maximum size")
)

// SizeError is returned when a length prefix exceeds the configured maximum.
// It matches [ErrFrameTooLarge] with errors.Is.
type SizeError struct {
	Size    uint64
	MaxSize uint64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("message of %d bytes exceeds maximum size of %d bytes", e.Size, e.MaxSize)
}

func (e *SizeError) Unwrap() error {
	return ErrFrameTooLarge
}

// Reader reads length-delimited messages from a stream.
type Reader struct {
	input      io.Reader
	byteReader io.ByteReader
	maxSize    uint64
	cachedBuf  []byte
	offset     int64
	count      int
}

// NewReader creates a reader that rejects messages larger than maxSize bytes.
// A maxSize of zero or less means [DefaultMaxSize].
func NewReader(input io.Reader, maxSize int) *Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	byteReader, ok := input.(io.ByteReader)
	if !ok {
		bufInput := bufio.NewReader(input)
		byteReader = bufInput
		input = bufInput
	}
	return &Reader{
		input:      input,
		byteReader: byteReader,
		maxSize:    uint64(maxSize),
	}
}

// ReadMessage returns the next non-empty message in the stream, or io.EOF if the
// stream ended cleanly at a message boundary. Zero-length messages are skipped.
//
// The returned slice is only valid until the next call to ReadMessage.
func (r *Reader) ReadMessage() ([]byte, error) {
	for {
		msgLen, err := r.readLength()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		} else if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: partial length prefix at offset %d", ErrTruncated, r.offset)
		} else if err != nil {
			return nil, err
		}
		r.offset += int64(protowire.SizeVarint(msgLen))
		if msgLen == 0 {
			continue
		} else if msgLen > r.maxSize {
			return nil, &SizeError{Size: msgLen, MaxSize: r.maxSize}
		}
		if msgLen > uint64(len(r.cachedBuf)) {
			r.cachedBuf = make([]byte, max(msgLen, 8192))
		}
		buf := r.cachedBuf[:msgLen]
		n, err := io.ReadFull(r.input, buf)
		r.offset += int64(n)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrTruncated, msgLen, n)
		} else if err != nil {
			return nil, err
		}
		r.count++
		return buf, nil
	}
}

// readLength reads a varint length prefix. Unlike binary.ReadUvarint, it keeps errors
// from the underlying reader apart from overlong varints.
func (r *Reader) readLength() (uint64, error) {
	var value uint64
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := r.byteReader.ReadByte()
		if errors.Is(err, io.EOF) && i > 0 {
			return 0, io.ErrUnexpectedEOF
		} else if err != nil {
			return 0, err
		} else if i == binary.MaxVarintLen64-1 && b > 1 {
			break
		}
		value |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: length prefix at offset %d overflows 64 bits", ErrFrameTooLarge, r.offset)
}

// Offset returns the number of bytes consumed from the underlying stream so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Count returns the number of messages read so far.
func (r *Reader) Count() int {
	return r.count
}

// Writer writes length-delimited messages to a stream.
type Writer struct {
	output  io.Writer
	maxSize uint64
	buf     []byte
}

// NewWriter creates a writer that refuses to emit messages larger than maxSize bytes.
// A maxSize of zero or less means [DefaultMaxSize].
func NewWriter(output io.Writer, maxSize int) *Writer {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Writer{output: output, maxSize: uint64(maxSize)}
}

// WriteMessage writes the length prefix and the message in a single write call.
func (w *Writer) WriteMessage(msg []byte) error {
	if uint64(len(msg)) > w.maxSize {
		return &SizeError{Size: uint64(len(msg)), MaxSize: w.maxSize}
	}
	w.buf = protowire.AppendBytes(w.buf[:0], msg)
	_, err := w.output.Write(w.buf)
	return err
}
