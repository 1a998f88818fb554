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

// Package chunkcrypt implements the encryption layers of backup files: an
// authenticated chunked AES-GCM stream, and the AES-CBC + HMAC-SHA256 format
// used for device transfer archives.
package chunkcrypt

import (
	"bufio"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"go.mau.fi/util/exerrors"
	"go.mau.fi/util/random"
	"golang.org/x/crypto/hkdf"
)

const (
	Magic   = "SGBK"
	Version = 1

	KeySize    = 32
	SaltSize   = 32
	TagSize    = 16
	HeaderSize = len(Magic) + 1 + 1 + 4 + SaltSize

	DefaultChunkSize = 64 * 1024
	MaxChunkSize     = 16 * 1024 * 1024

	noncePrefixSize = 7
	streamKeyInfo   = "signalbackup chunk stream v1"
)

var (
	ErrAuthenticationFailed = errors.New("backup authentication failed")
	ErrInvalidHeader        = errors.New("invalid backup header")
	ErrUnsupportedVersion   = errors.New("unsupported backup container version")
	ErrTooManyChunks        = errors.New("too many chunks in stream")
	ErrWriterClosed         = errors.New("writer is already closed")
)

// Compression is the compression applied to the plaintext before it's split into chunks.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses the name returned by [Compression.String].
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// Header is the unencrypted preamble of a chunk stream. The encoded header is
// authenticated as associated data of every chunk.
type Header struct {
	Compression Compression
	ChunkSize   uint32
	Salt        [SaltSize]byte
}

func (h *Header) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, HeaderSize)
	out = append(out, Magic...)
	out = append(out, Version, byte(h.Compression))
	out = binary.BigEndian.AppendUint32(out, h.ChunkSize)
	out = append(out, h.Salt[:]...)
	return out, nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderSize || string(data[:len(Magic)]) != Magic {
		return ErrInvalidHeader
	} else if data[4] != Version {
		return fmt.Errorf("%w %d", ErrUnsupportedVersion, data[4])
	}
	h.Compression = Compression(data[5])
	h.ChunkSize = binary.BigEndian.Uint32(data[6:10])
	copy(h.Salt[:], data[10:])
	if h.ChunkSize == 0 || h.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d out of range", ErrInvalidHeader, h.ChunkSize)
	}
	return nil
}

type chunkCipher struct {
	aead        cipher.AEAD
	noncePrefix [noncePrefixSize]byte
	nonce       [noncePrefixSize + 5]byte
	counter     uint32
	ad          []byte
}

func newChunkCipher(key [KeySize]byte, header *Header) (*chunkCipher, error) {
	var derived [KeySize + noncePrefixSize]byte
	h := hkdf.New(sha256.New, key[:], header.Salt[:], []byte(streamKeyInfo))
	exerrors.Must(io.ReadFull(h, derived[:]))
	block, err := aes.NewCipher(derived[:KeySize])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	cc := &chunkCipher{aead: aead}
	cc.ad, _ = header.MarshalBinary()
	copy(cc.noncePrefix[:], derived[KeySize:])
	return cc, nil
}

func (cc *chunkCipher) nextNonce(last bool) ([]byte, error) {
	if cc.counter == math.MaxUint32 {
		return nil, ErrTooManyChunks
	}
	copy(cc.nonce[:], cc.noncePrefix[:])
	binary.BigEndian.PutUint32(cc.nonce[noncePrefixSize:], cc.counter)
	cc.nonce[len(cc.nonce)-1] = 0
	if last {
		cc.nonce[len(cc.nonce)-1] = 1
	}
	cc.counter++
	return cc.nonce[:], nil
}

// Writer encrypts a plaintext stream into chunks. Close must be called to emit the
// final chunk, without which the stream won't authenticate.
type Writer struct {
	output    io.Writer
	cipher    *chunkCipher
	chunkSize int
	buf       []byte
	sealed    []byte
	closed    bool
	err       error
}

var _ io.WriteCloser = (*Writer)(nil)

// NewWriter writes a fresh header with a random salt to output and returns a writer for the chunks.
// A chunkSize of zero means [DefaultChunkSize].
func NewWriter(output io.Writer, key [KeySize]byte, compression Compression, chunkSize int) (*Writer, error) {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	} else if chunkSize < 0 || chunkSize > MaxChunkSize {
		return nil, fmt.Errorf("chunk size %d out of range", chunkSize)
	}
	header := &Header{
		Compression: compression,
		ChunkSize:   uint32(chunkSize),
		Salt:        [SaltSize]byte(random.Bytes(SaltSize)),
	}
	cc, err := newChunkCipher(key, header)
	if err != nil {
		return nil, err
	}
	if _, err = output.Write(cc.ad); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &Writer{
		output:    output,
		cipher:    cc,
		chunkSize: chunkSize,
		buf:       make([]byte, 0, chunkSize),
		sealed:    make([]byte, 0, chunkSize+TagSize),
	}, nil
}

func (w *Writer) seal(last bool) error {
	nonce, err := w.cipher.nextNonce(last)
	if err != nil {
		return err
	}
	w.sealed = w.cipher.aead.Seal(w.sealed[:0], nonce, w.buf, w.cipher.ad)
	w.buf = w.buf[:0]
	_, err = w.output.Write(w.sealed)
	return err
}

func (w *Writer) Write(p []byte) (written int, err error) {
	if w.closed {
		return 0, ErrWriterClosed
	} else if w.err != nil {
		return 0, w.err
	}
	for len(p) > 0 {
		// A full buffer is only sealed once more data arrives, as the final chunk
		// must be sealed differently from the rest.
		if len(w.buf) == w.chunkSize {
			if w.err = w.seal(false); w.err != nil {
				return written, w.err
			}
		}
		n := min(w.chunkSize-len(w.buf), len(p))
		w.buf = append(w.buf, p[:n]...)
		p = p[n:]
		written += n
	}
	return written, nil
}

// Close seals the final chunk. It doesn't close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	return w.seal(true)
}

// Reader decrypts and authenticates a chunk stream. Plaintext is only released
// after the chunk it's in has been authenticated, and the stream only ends with
// io.EOF after the final chunk has been verified.
type Reader struct {
	input      *bufio.Reader
	header     Header
	cipher     *chunkCipher
	ciphertext []byte
	plaintext  []byte
	pos        int
	done       bool
	err        error
}

var _ io.Reader = (*Reader)(nil)

// NewReader reads and validates the stream header from input.
func NewReader(input io.Reader, key [KeySize]byte) (*Reader, error) {
	bufInput := bufio.NewReader(input)
	headerBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(bufInput, headerBytes); errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: stream too short", ErrInvalidHeader)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	r := &Reader{input: bufInput}
	if err := r.header.UnmarshalBinary(headerBytes); err != nil {
		return nil, err
	}
	var err error
	r.cipher, err = newChunkCipher(key, &r.header)
	if err != nil {
		return nil, err
	}
	r.ciphertext = make([]byte, int(r.header.ChunkSize)+TagSize)
	r.plaintext = make([]byte, 0, r.header.ChunkSize)
	return r, nil
}

// Header returns the parsed stream header.
func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) nextChunk() error {
	n, err := io.ReadFull(r.input, r.ciphertext)
	var last bool
	switch {
	case err == nil:
		_, peekErr := r.input.Peek(1)
		if errors.Is(peekErr, io.EOF) {
			last = true
		} else if peekErr != nil {
			return peekErr
		}
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n < TagSize {
			return fmt.Errorf("%w: stream truncated after chunk #%d", ErrAuthenticationFailed, r.cipher.counter)
		}
		last = true
	default:
		return err
	}
	chunkIndex := r.cipher.counter
	nonce, err := r.cipher.nextNonce(last)
	if err != nil {
		return err
	}
	r.pos = 0
	plaintext, err := r.cipher.aead.Open(r.plaintext[:0], nonce, r.ciphertext[:n], r.cipher.ad)
	if err != nil {
		r.plaintext = r.plaintext[:0]
		return fmt.Errorf("%w: chunk #%d", ErrAuthenticationFailed, chunkIndex)
	}
	r.plaintext = plaintext
	r.done = last
	return nil
}

func (r *Reader) Read(p []byte) (int, error) {
	for r.pos >= len(r.plaintext) {
		if r.err != nil {
			return 0, r.err
		} else if r.done {
			return 0, io.EOF
		}
		r.err = r.nextChunk()
	}
	n := copy(p, r.plaintext[r.pos:])
	r.pos += n
	return n, nil
}
