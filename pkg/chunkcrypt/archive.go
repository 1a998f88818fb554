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

package chunkcrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"

	"go.mau.fi/util/random"
)

const (
	MACLength = 32
	IVLength  = 16
)

var (
	ErrInvalidPadding = errors.New("invalid padding")
	ErrReaderClosed   = errors.New("reader is already closed")
)

func PadPKCS7(data []byte) []byte {
	pad := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func UnpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("data is empty")
	}

	paddingLen := int(data[len(data)-1])
	if paddingLen == 0 || paddingLen > len(data) || paddingLen > aes.BlockSize {
		return nil, ErrInvalidPadding
	}

	// Check that all the padding bytes are correct
	for i := 0; i < paddingLen; i++ {
		if data[len(data)-1-i] != byte(paddingLen) {
			return nil, ErrInvalidPadding
		}
	}

	return data[:len(data)-paddingLen], nil
}

// archiveReadSize is how much ciphertext the archive reader decrypts at once.
const archiveReadSize = 32 * 1024

// verifyArchiveMAC hashes everything before the trailing MAC and compares the result to it.
func verifyArchiveMAC(hmacKey [32]byte, input io.Reader, macOffset int64) error {
	hasher := hmac.New(sha256.New, hmacKey[:])
	if _, err := io.CopyN(hasher, input, macOffset); err != nil {
		return fmt.Errorf("failed to hash archive: %w", err)
	}
	expectedMAC := make([]byte, MACLength)
	if _, err := io.ReadFull(input, expectedMAC); err != nil {
		return fmt.Errorf("failed to read archive MAC: %w", err)
	} else if !hmac.Equal(expectedMAC, hasher.Sum(nil)) {
		return fmt.Errorf("%w: archive MAC mismatch", ErrAuthenticationFailed)
	}
	return nil
}

// archiveReader decrypts the ciphertext of an archive whose MAC has already been verified.
type archiveReader struct {
	input     io.Reader
	cipher    cipher.BlockMode
	remaining int64
	scratch   []byte
	plaintext []byte
	err       error
}

// NewArchiveReader returns a reader for the plaintext of a transfer archive.
//
// The MAC of the whole input is verified before the reader is returned, so no
// plaintext is ever released from an archive that fails authentication. The input
// is read twice, which is why it must be seekable, and it must not be modified
// while the reader is in use.
func NewArchiveReader(input io.ReadSeeker, aesKey, hmacKey [32]byte) (io.ReadCloser, error) {
	size, err := input.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to seek to end of archive: %w", err)
	}
	ciphertextSize := size - IVLength - MACLength
	if ciphertextSize < aes.BlockSize {
		return nil, fmt.Errorf("%w: archive too short (%d bytes)", ErrAuthenticationFailed, size)
	} else if _, err = input.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to start of archive: %w", err)
	} else if err = verifyArchiveMAC(hmacKey, input, size-MACLength); err != nil {
		return nil, err
	} else if ciphertextSize%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext not multiple of AES blocksize (%d extra bytes)", ciphertextSize%aes.BlockSize)
	} else if _, err = input.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to start of archive: %w", err)
	}
	iv := make([]byte, IVLength)
	if _, err = io.ReadFull(input, iv); err != nil {
		return nil, fmt.Errorf("failed to read IV: %w", err)
	}
	block, err := aes.NewCipher(aesKey[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &archiveReader{
		input:     input,
		cipher:    cipher.NewCBCDecrypter(block, iv),
		remaining: ciphertextSize,
		scratch:   make([]byte, min(ciphertextSize, archiveReadSize)),
	}, nil
}

// fill decrypts the next piece of ciphertext. The padding is removed from the last piece.
func (ar *archiveReader) fill() error {
	if ar.remaining == 0 {
		return io.EOF
	}
	buf := ar.scratch[:min(int64(len(ar.scratch)), ar.remaining)]
	if _, err := io.ReadFull(ar.input, buf); err != nil {
		return fmt.Errorf("failed to read ciphertext: %w", err)
	}
	ar.remaining -= int64(len(buf))
	ar.cipher.CryptBlocks(buf, buf)
	if ar.remaining == 0 {
		var err error
		if buf, err = UnpadPKCS7(buf); err != nil {
			return fmt.Errorf("failed to unpad: %w", err)
		}
	}
	ar.plaintext = buf
	return nil
}

func (ar *archiveReader) Read(p []byte) (int, error) {
	for len(ar.plaintext) == 0 {
		if ar.err != nil {
			return 0, ar.err
		}
		ar.err = ar.fill()
	}
	n := copy(p, ar.plaintext)
	ar.plaintext = ar.plaintext[n:]
	return n, nil
}

// Close doesn't close the input.
func (ar *archiveReader) Close() error {
	ar.plaintext = nil
	ar.err = ErrReaderClosed
	return nil
}

// ArchiveWriter encrypts a plaintext stream into the transfer archive format.
type ArchiveWriter struct {
	output  io.Writer
	cipher  cipher.BlockMode
	hasher  hash.Hash
	pending []byte
	closed  bool
}

var _ io.WriteCloser = (*ArchiveWriter)(nil)

// NewArchiveWriter writes a random IV to output and returns a writer for the plaintext.
func NewArchiveWriter(output io.Writer, aesKey, hmacKey [32]byte) (*ArchiveWriter, error) {
	block, err := aes.NewCipher(aesKey[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	iv := random.Bytes(IVLength)
	aw := &ArchiveWriter{
		output: output,
		cipher: cipher.NewCBCEncrypter(block, iv),
		hasher: hmac.New(sha256.New, hmacKey[:]),
	}
	if err = aw.emit(iv); err != nil {
		return nil, err
	}
	return aw, nil
}

func (aw *ArchiveWriter) emit(data []byte) error {
	aw.hasher.Write(data)
	_, err := aw.output.Write(data)
	return err
}

func (aw *ArchiveWriter) Write(p []byte) (int, error) {
	if aw.closed {
		return 0, ErrWriterClosed
	}
	aw.pending = append(aw.pending, p...)
	fullBlocks := len(aw.pending) - len(aw.pending)%aes.BlockSize
	if fullBlocks == 0 {
		return len(p), nil
	}
	out := make([]byte, fullBlocks)
	aw.cipher.CryptBlocks(out, aw.pending[:fullBlocks])
	aw.pending = append(aw.pending[:0], aw.pending[fullBlocks:]...)
	if err := aw.emit(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close pads and encrypts the remaining data and appends the MAC.
// It doesn't close the underlying writer.
func (aw *ArchiveWriter) Close() error {
	if aw.closed {
		return nil
	}
	aw.closed = true
	final := PadPKCS7(aw.pending)
	aw.cipher.CryptBlocks(final, final)
	if err := aw.emit(final); err != nil {
		return err
	}
	_, err := aw.output.Write(aw.hasher.Sum(nil))
	return err
}
