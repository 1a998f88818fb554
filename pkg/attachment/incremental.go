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

package attachment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"go.mau.fi/signalbackup/pkg/backuppb"
)

const (
	// KeySize is the size of an attachment key: an AES key followed by a MAC key.
	KeySize      = 64
	ChunkMACSize = sha256.Size
)

var (
	ErrInvalidIncrementalMAC = errors.New("invalid incremental MAC for attachment")
	ErrNotVerifiable         = errors.New("file pointer has no usable incremental MAC")
)

// Verifiable returns whether the file pointer carries everything needed for
// verifying the attachment incrementally with [NewVerifyingReader].
func Verifiable(fp *backuppb.FilePointer) bool {
	return fp != nil &&
		len(fp.Key) == KeySize &&
		fp.IncrementalMacChunkSize != nil && *fp.IncrementalMacChunkSize > 0 &&
		len(fp.IncrementalMac) > 0 && len(fp.IncrementalMac)%ChunkMACSize == 0
}

// MACKey returns the MAC half of an attachment key.
func MACKey(attachmentKey []byte) []byte {
	if len(attachmentKey) != KeySize {
		return nil
	}
	return attachmentKey[32:]
}

func chunkMAC(h hash.Hash, index uint64, chunk []byte) []byte {
	h.Reset()
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], index)
	h.Write(prefix[:])
	h.Write(chunk)
	return h.Sum(nil)
}

// ComputeIncrementalMAC reads the whole input and returns its incremental MAC,
// which is the concatenation of HMAC-SHA256(macKey, u64be(index) || chunk) over all chunks.
//
// The concatenation isn't summarized into a separate digest. Each chunk MAC covers
// its index and the list is stored in the authenticated backup, so the list itself
// fixes the order and number of chunks.
func ComputeIncrementalMAC(input io.Reader, macKey []byte, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}
	h := hmac.New(sha256.New, macKey)
	buf := make([]byte, chunkSize)
	var out []byte
	for index := uint64(0); ; index++ {
		n, err := io.ReadFull(input, buf)
		if n > 0 {
			out = append(out, chunkMAC(h, index, buf[:n])...)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return out, nil
		} else if err != nil {
			return nil, err
		}
	}
}

// VerifyingReader releases data from the underlying reader one chunk at a time,
// only after the MAC of that chunk has been checked.
type VerifyingReader struct {
	input     io.Reader
	hasher    hash.Hash
	macs      []byte
	chunk     []byte
	pending   []byte
	index     uint64
	chunkSize int
	err       error
}

var _ io.Reader = (*VerifyingReader)(nil)

// NewVerifyingReader wraps the encrypted attachment stream described by the file pointer.
func NewVerifyingReader(input io.Reader, fp *backuppb.FilePointer) (*VerifyingReader, error) {
	if !Verifiable(fp) {
		return nil, ErrNotVerifiable
	}
	return NewIncrementalReader(input, MACKey(fp.Key), int(*fp.IncrementalMacChunkSize), fp.IncrementalMac), nil
}

// NewIncrementalReader is like [NewVerifyingReader], but takes the parameters directly.
func NewIncrementalReader(input io.Reader, macKey []byte, chunkSize int, incrementalMAC []byte) *VerifyingReader {
	return &VerifyingReader{
		input:     input,
		hasher:    hmac.New(sha256.New, macKey),
		macs:      incrementalMAC,
		chunk:     make([]byte, chunkSize),
		chunkSize: chunkSize,
	}
}

func (vr *VerifyingReader) nextChunk() error {
	n, err := io.ReadFull(vr.input, vr.chunk)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	} else if err != nil {
		return err
	}
	if n == 0 {
		if len(vr.macs) != 0 {
			return fmt.Errorf("%w: stream ended with %d chunks unverified", ErrInvalidIncrementalMAC, len(vr.macs)/ChunkMACSize)
		}
		return io.EOF
	}
	if len(vr.macs) < ChunkMACSize {
		return fmt.Errorf("%w: more chunks than MACs", ErrInvalidIncrementalMAC)
	}
	expected := vr.macs[:ChunkMACSize]
	if !hmac.Equal(expected, chunkMAC(vr.hasher, vr.index, vr.chunk[:n])) {
		return fmt.Errorf("%w: chunk #%d", ErrInvalidIncrementalMAC, vr.index)
	}
	vr.macs = vr.macs[ChunkMACSize:]
	vr.index++
	vr.pending = vr.chunk[:n]
	// A short chunk must be the last one
	if n < vr.chunkSize && len(vr.macs) != 0 {
		return fmt.Errorf("%w: stream ended with %d chunks unverified", ErrInvalidIncrementalMAC, len(vr.macs)/ChunkMACSize)
	}
	return nil
}

func (vr *VerifyingReader) Read(p []byte) (int, error) {
	for len(vr.pending) == 0 {
		if vr.err != nil {
			return 0, vr.err
		}
		vr.err = vr.nextChunk()
		if vr.err != nil {
			// Don't release a verified chunk when the stream as a whole is already known to be bad
			vr.pending = nil
		}
	}
	n := copy(p, vr.pending)
	vr.pending = vr.pending[n:]
	return n, nil
}
