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

package backup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"go.mau.fi/signalbackup/pkg/backuppb"
	"go.mau.fi/signalbackup/pkg/chunkcrypt"
	"go.mau.fi/signalbackup/pkg/validator"
)

// ErrUnexpectedTrailingData is returned when the padding after the compressed
// stream of a transfer archive isn't all zeroes.
var ErrUnexpectedTrailingData = errors.New("unexpected data after decompression")

// OpenTransferArchive starts reading a transfer archive, the format used when
// moving message history to a newly linked device. The keys are derived with
// [chunkcrypt.DeriveMessageBackupKey].
//
// The MAC of the whole archive is verified before anything is decrypted, so the
// input must be seekable.
func OpenTransferArchive(ctx context.Context, input io.ReadSeeker, aesKey, hmacKey [32]byte, opts ...Option) (*Reader, error) {
	o := makeOptions(validator.SkipAndReport, opts)
	r := &Reader{ctx: ctx}
	if closer := o.closerFor(input); closer != nil {
		r.closers = append(r.closers, closer)
	}
	decrypter, err := chunkcrypt.NewArchiveReader(input, aesKey, hmacKey)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	r.closers = append(r.closers, decrypter.Close)
	bufDecrypted := bufio.NewReader(decrypter)
	decompressor, err := gzip.NewReader(bufDecrypted)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	// There's an unknown amount of zero padding after the gzip stream,
	// so tell gzip not to try to read another stream after the first one.
	decompressor.Multistream(false)
	r.closers = append(r.closers, decompressor.Close)
	r.finish = func() error {
		return checkZeroPadding(bufDecrypted)
	}
	if err = r.start(decompressor, o); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func checkZeroPadding(input io.Reader) error {
	zeroBuf := make([]byte, 256)
	for {
		n, err := input.Read(zeroBuf)
		for i := 0; i < n; i++ {
			if zeroBuf[i] != 0 {
				return ErrUnexpectedTrailingData
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read zero padding: %w", err)
		}
	}
}

// NewTransferArchiveWriter is the counterpart of [OpenTransferArchive].
func NewTransferArchiveWriter(ctx context.Context, output io.Writer, aesKey, hmacKey [32]byte, info *backuppb.BackupInfo, opts ...Option) (*Writer, error) {
	o := makeWriterOptions(opts)
	w := &Writer{ctx: ctx}
	owned := o.closerFor(output)
	if owned != nil {
		w.release = append(w.release, owned)
	}
	encrypter, err := chunkcrypt.NewArchiveWriter(output, aesKey, hmacKey)
	if err != nil {
		return w.abort(fmt.Errorf("failed to start transfer archive: %w", err))
	}
	compressor := gzip.NewWriter(encrypter)
	w.closers = append(w.closers, compressor.Close, encrypter.Close)
	if owned != nil {
		w.closers = append(w.closers, owned)
	}
	if err = w.start(compressor, info, o); err != nil {
		return w.abort(err)
	}
	return w, nil
}
