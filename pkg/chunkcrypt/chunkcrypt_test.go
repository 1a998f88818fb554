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

package chunkcrypt_test

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/util/random"

	"go.mau.fi/signalbackup/pkg/chunkcrypt"
)

func encryptStream(t *testing.T, key [32]byte, plaintext []byte, chunkSize int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := chunkcrypt.NewWriter(&buf, key, chunkcrypt.CompressionNone, chunkSize)
	require.NoError(t, err)
	// Write in uneven pieces to exercise buffering
	for len(plaintext) > 0 {
		n := min(len(plaintext), 7)
		_, err = w.Write(plaintext[:n])
		require.NoError(t, err)
		plaintext = plaintext[n:]
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decryptStream(key [32]byte, ciphertext []byte) ([]byte, error) {
	r, err := chunkcrypt.NewReader(bytes.NewReader(ciphertext), key)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func TestStream_RoundTrip(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	for _, size := range []int{0, 1, 63, 64, 65, 128, 1000} {
		plaintext := random.Bytes(size)
		ciphertext := encryptStream(t, key, plaintext, 64)
		fullChunks := size / 64
		if size > 0 && size%64 == 0 {
			fullChunks--
		}
		assert.Equal(t, chunkcrypt.HeaderSize+size+(fullChunks+1)*chunkcrypt.TagSize, len(ciphertext), "size %d", size)
		decrypted, err := decryptStream(key, ciphertext)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestStream_Header(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	var buf bytes.Buffer
	w, err := chunkcrypt.NewWriter(&buf, key, chunkcrypt.CompressionZstd, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	r, err := chunkcrypt.NewReader(bytes.NewReader(buf.Bytes()), key)
	require.NoError(t, err)
	assert.Equal(t, chunkcrypt.CompressionZstd, r.Header().Compression)
	assert.Equal(t, uint32(chunkcrypt.DefaultChunkSize), r.Header().ChunkSize)

	_, err = chunkcrypt.NewReader(bytes.NewReader([]byte("nope")), key)
	assert.ErrorIs(t, err, chunkcrypt.ErrInvalidHeader)

	data := bytes.Clone(buf.Bytes())
	data[4] = 2
	_, err = chunkcrypt.NewReader(bytes.NewReader(data), key)
	assert.ErrorIs(t, err, chunkcrypt.ErrUnsupportedVersion)
}

func TestStream_AuthenticationFailures(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	plaintext := random.Bytes(200)
	ciphertext := encryptStream(t, key, plaintext, 64)
	chunkLen := 64 + chunkcrypt.TagSize

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"FlippedCiphertextBit", func(b []byte) []byte {
			b[chunkcrypt.HeaderSize+5] ^= 1
			return b
		}},
		{"FlippedSecondChunk", func(b []byte) []byte {
			b[chunkcrypt.HeaderSize+chunkLen+5] ^= 1
			return b
		}},
		{"FlippedHeaderCompression", func(b []byte) []byte {
			b[5] = byte(chunkcrypt.CompressionZstd)
			return b
		}},
		{"TruncatedAtChunkBoundary", func(b []byte) []byte {
			return b[:chunkcrypt.HeaderSize+2*chunkLen]
		}},
		{"TruncatedMidChunk", func(b []byte) []byte {
			return b[:len(b)-3]
		}},
		{"OnlyHeader", func(b []byte) []byte {
			return b[:chunkcrypt.HeaderSize]
		}},
		{"TrailingData", func(b []byte) []byte {
			return append(b, 0)
		}},
		{"SwappedChunks", func(b []byte) []byte {
			first := bytes.Clone(b[chunkcrypt.HeaderSize : chunkcrypt.HeaderSize+chunkLen])
			copy(b[chunkcrypt.HeaderSize:], b[chunkcrypt.HeaderSize+chunkLen:chunkcrypt.HeaderSize+2*chunkLen])
			copy(b[chunkcrypt.HeaderSize+chunkLen:], first)
			return b
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := decryptStream(key, test.mutate(bytes.Clone(ciphertext)))
			assert.ErrorIs(t, err, chunkcrypt.ErrAuthenticationFailed)
		})
	}
	t.Run("WrongKey", func(t *testing.T) {
		_, err := decryptStream(chunkcrypt.GenerateKey(), ciphertext)
		assert.ErrorIs(t, err, chunkcrypt.ErrAuthenticationFailed)
	})
}

func TestStream_NoPlaintextFromBadChunk(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	plaintext := random.Bytes(100)
	ciphertext := encryptStream(t, key, plaintext, 64)
	ciphertext[len(ciphertext)-1] ^= 0xff
	r, err := chunkcrypt.NewReader(bytes.NewReader(ciphertext), key)
	require.NoError(t, err)
	buf := make([]byte, 1000)
	n, err := io.ReadFull(r, buf)
	assert.ErrorIs(t, err, chunkcrypt.ErrAuthenticationFailed)
	assert.Equal(t, 64, n)
	assert.Equal(t, plaintext[:64], buf[:n])
}

func TestStream_ErrorIsSticky(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	ciphertext := encryptStream(t, key, random.Bytes(40), 16)
	ciphertext[chunkcrypt.HeaderSize+16+chunkcrypt.TagSize+1] ^= 1
	r, err := chunkcrypt.NewReader(bytes.NewReader(ciphertext), key)
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	for range 3 {
		n, err = r.Read(buf)
		assert.Zero(t, n)
		assert.ErrorIs(t, err, chunkcrypt.ErrAuthenticationFailed)
	}
}

func TestArchive_RoundTrip(t *testing.T) {
	aesKey, hmacKey := chunkcrypt.GenerateKey(), chunkcrypt.GenerateKey()
	for _, size := range []int{0, 15, 16, 17, 5000} {
		plaintext := random.Bytes(size)
		var buf bytes.Buffer
		w, err := chunkcrypt.NewArchiveWriter(&buf, aesKey, hmacKey)
		require.NoError(t, err)
		_, err = w.Write(plaintext[:size/2])
		require.NoError(t, err)
		_, err = w.Write(plaintext[size/2:])
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := chunkcrypt.NewArchiveReader(bytes.NewReader(buf.Bytes()), aesKey, hmacKey)
		require.NoError(t, err)
		decrypted, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, len(plaintext), len(decrypted))
		assert.True(t, bytes.Equal(plaintext, decrypted))
		assert.NoError(t, r.Close())
	}
}

func TestArchive_SmallReads(t *testing.T) {
	aesKey, hmacKey := chunkcrypt.GenerateKey(), chunkcrypt.GenerateKey()
	plaintext := random.Bytes(100 * 1024)
	var buf bytes.Buffer
	w, err := chunkcrypt.NewArchiveWriter(&buf, aesKey, hmacKey)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := chunkcrypt.NewArchiveReader(bytes.NewReader(buf.Bytes()), aesKey, hmacKey)
	require.NoError(t, err)
	decrypted, err := io.ReadAll(iotest.OneByteReader(r))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plaintext, decrypted))

	_, err = chunkcrypt.NewArchiveReader(bytes.NewReader(buf.Bytes()[:40]), aesKey, hmacKey)
	assert.ErrorIs(t, err, chunkcrypt.ErrAuthenticationFailed)
}

func TestArchive_BadMAC(t *testing.T) {
	aesKey, hmacKey := chunkcrypt.GenerateKey(), chunkcrypt.GenerateKey()
	var buf bytes.Buffer
	w, err := chunkcrypt.NewArchiveWriter(&buf, aesKey, hmacKey)
	require.NoError(t, err)
	_, err = w.Write([]byte("some archive data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	data := buf.Bytes()
	data[20] ^= 1
	_, err = chunkcrypt.NewArchiveReader(bytes.NewReader(data), aesKey, hmacKey)
	assert.ErrorIs(t, err, chunkcrypt.ErrAuthenticationFailed)
}

func TestPKCS7(t *testing.T) {
	padded := chunkcrypt.PadPKCS7([]byte("hello"))
	assert.Len(t, padded, 16)
	unpadded, err := chunkcrypt.UnpadPKCS7(padded)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), unpadded)

	padded[len(padded)-2] = 0
	_, err = chunkcrypt.UnpadPKCS7(padded)
	assert.ErrorIs(t, err, chunkcrypt.ErrInvalidPadding)
}

func TestKeyDerivation(t *testing.T) {
	backupKey := [32]byte{1, 2, 3}
	aci := uuid.MustParse("b4e3c6f0-52a5-4cb8-9c1b-0d0f5d27e0a4")
	id1 := chunkcrypt.DeriveBackupID(backupKey, aci)
	id2 := chunkcrypt.DeriveBackupID(backupKey, aci)
	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, chunkcrypt.DeriveBackupID(backupKey, uuid.New()))

	aesKey, hmacKey := chunkcrypt.DeriveMessageBackupKey(backupKey, id1)
	assert.NotEqual(t, aesKey, hmacKey)
	aesKey2, _ := chunkcrypt.DeriveMessageBackupKey(backupKey, id1)
	assert.Equal(t, aesKey, aesKey2)
}

func TestParseCompression(t *testing.T) {
	c, err := chunkcrypt.ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, chunkcrypt.CompressionZstd, c)
	assert.Equal(t, "zstd", c.String())
	_, err = chunkcrypt.ParseCompression("brotli")
	assert.Error(t, err)
}
