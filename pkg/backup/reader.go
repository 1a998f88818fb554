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
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"go.mau.fi/signalbackup/pkg/backuppb"
	"go.mau.fi/signalbackup/pkg/chunkcrypt"
	"go.mau.fi/signalbackup/pkg/delimited"
	"go.mau.fi/signalbackup/pkg/validator"
)

// ErrReaderClosed is returned by [Reader.Next] after [Reader.Close].
var ErrReaderClosed = errors.New("backup reader closed")

// Reader yields the frames of a backup one at a time. Frames are decoded and
// validated lazily, so memory use doesn't grow with the size of the backup
// apart from the id sets kept by the validator.
//
// A Reader isn't safe for concurrent use.
type Reader struct {
	ctx       context.Context
	messages  *delimited.Reader
	validator *validator.Validator
	validate  bool
	info      *backuppb.BackupInfo

	// finish is called once the message stream ends cleanly, closers when the reader is closed.
	finish  func() error
	closers []func() error
	err     error
	closed  bool
}

// Open starts reading a backup container encrypted with the given key.
//
// The container header and the BackupInfo message are read and checked before
// Open returns. Frames are read with [Reader.Next] or [Reader.All]. Unless
// changed with [WithPolicy], invalid frames are skipped and reported in
// [Reader.Diagnostics].
func Open(ctx context.Context, input io.Reader, key [chunkcrypt.KeySize]byte, opts ...Option) (*Reader, error) {
	o := makeOptions(validator.SkipAndReport, opts)
	r := &Reader{ctx: ctx}
	if closer := o.closerFor(input); closer != nil {
		r.closers = append(r.closers, closer)
	}
	stream, err := chunkcrypt.NewReader(input, key)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to read container header: %w", err)
	}
	header := stream.Header()
	var plaintext io.Reader = stream
	switch header.Compression {
	case chunkcrypt.CompressionNone:
	case chunkcrypt.CompressionZstd:
		decompressor, err := zstd.NewReader(stream, zstd.WithDecoderConcurrency(1))
		if err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		r.closers = append(r.closers, func() error {
			decompressor.Close()
			return nil
		})
		plaintext = decompressor
	default:
		_ = r.Close()
		return nil, fmt.Errorf("%w: unsupported compression %s", chunkcrypt.ErrInvalidHeader, header.Compression)
	}
	zerolog.Ctx(ctx).Debug().
		Stringer("compression", header.Compression).
		Uint32("chunk_size", header.ChunkSize).
		Msg("Opened backup container")
	if err = r.start(plaintext, o); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) start(plaintext io.Reader, o *options) error {
	r.messages = delimited.NewReader(plaintext, o.maxFrameSize)
	r.validator = o.newValidator()
	r.validate = o.validate
	buf, err := r.messages.ReadMessage()
	if errors.Is(err, io.EOF) {
		return validator.ErrMissingBackupInfo
	} else if err != nil {
		return fmt.Errorf("failed to read backup info: %w", err)
	}
	info := &backuppb.BackupInfo{}
	if err = backuppb.Unmarshal(buf, info); err != nil {
		return fmt.Errorf("failed to decode backup info: %w", err)
	} else if err = r.validator.ValidateInfo(info); err != nil {
		return err
	}
	r.info = info
	zerolog.Ctx(r.ctx).Debug().
		Uint64("version", info.Version).
		Uint64("backup_time_ms", info.BackupTimeMs).
		Msg("Read backup info")
	return nil
}

// Info returns the BackupInfo header of the backup.
func (r *Reader) Info() *backuppb.BackupInfo {
	return r.info
}

func (r *Reader) fail(err error) (*backuppb.Frame, error) {
	r.err = err
	return nil, err
}

// Next returns the next valid frame, or io.EOF once the backup has been read completely
// and authenticated. Any other error is fatal and is returned again by subsequent calls.
func (r *Reader) Next() (*backuppb.Frame, error) {
	if r.err != nil {
		return nil, r.err
	} else if r.closed {
		return nil, ErrReaderClosed
	}
	for {
		if err := r.ctx.Err(); err != nil {
			return r.fail(err)
		}
		buf, err := r.messages.ReadMessage()
		if errors.Is(err, io.EOF) {
			if r.finish != nil {
				if err = r.finish(); err != nil {
					return r.fail(err)
				}
			}
			return r.fail(io.EOF)
		} else if err != nil {
			return r.fail(fmt.Errorf("failed to read frame #%d: %w", r.validator.FrameCount(), err))
		}
		frame := &backuppb.Frame{}
		if err = backuppb.Unmarshal(buf, frame); err != nil {
			if err = r.validator.Report(r.ctx, "", err); err != nil {
				return r.fail(err)
			}
			continue
		}
		if !r.validate {
			r.validator.CountUnchecked()
			return frame, nil
		}
		ok, err := r.validator.Validate(r.ctx, frame)
		if err != nil {
			return r.fail(err)
		} else if ok {
			return frame, nil
		}
	}
}

// All returns an iterator over the remaining frames. Iteration stops after the
// first error, which is yielded with a nil frame. A clean end isn't yielded.
func (r *Reader) All() iter.Seq2[*backuppb.Frame, error] {
	return func(yield func(*backuppb.Frame, error) bool) {
		for {
			frame, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			} else if !yield(frame, err) || err != nil {
				return
			}
		}
	}
}

// Diagnostics returns the frames that were skipped so far.
func (r *Reader) Diagnostics() []validator.Diagnostic {
	return r.validator.Diagnostics()
}

// Validator returns the validator tracking the frames read so far.
func (r *Reader) Validator() *validator.Validator {
	return r.validator
}

// Close releases the decompressor, and the underlying reader if [WithOwnership] was used.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
