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

	"github.com/klauspost/compress/zstd"

	"go.mau.fi/signalbackup/pkg/backuppb"
	"go.mau.fi/signalbackup/pkg/chunkcrypt"
	"go.mau.fi/signalbackup/pkg/delimited"
	"go.mau.fi/signalbackup/pkg/validator"
)

// ErrWriterClosed is returned by [Writer.WriteFrame] after [Writer.Close].
var ErrWriterClosed = errors.New("backup writer closed")

// Writer encodes frames into a backup. Nothing more than one encrypted chunk is
// buffered at a time, so frames can be written as they're produced.
type Writer struct {
	ctx       context.Context
	messages  *delimited.Writer
	validator *validator.Validator
	validate  bool
	maxSize   int

	// closers are called in order: compressor, encryption, underlying writer.
	closers []func() error
	// release is used instead of closers if the writer couldn't be started.
	release []func() error
	closed  bool
	err     error
}

// NewWriter writes the container header and the given BackupInfo to output and
// returns a writer for the frames. Unless disabled with [WithValidation], every
// frame is checked for dangling references before it's written, and the first
// violation is returned as an error. A written backup never contains frames
// referencing ids that weren't written before them.
//
// Close must be called to finish the container, otherwise it won't authenticate.
func NewWriter(ctx context.Context, output io.Writer, key [chunkcrypt.KeySize]byte, info *backuppb.BackupInfo, opts ...Option) (*Writer, error) {
	o := makeWriterOptions(opts)
	w := &Writer{ctx: ctx}
	owned := o.closerFor(output)
	if owned != nil {
		w.release = append(w.release, owned)
	}
	stream, err := chunkcrypt.NewWriter(output, key, o.compression, o.chunkSize)
	if err != nil {
		return w.abort(fmt.Errorf("failed to start container: %w", err))
	}
	var plaintext io.Writer = stream
	switch o.compression {
	case chunkcrypt.CompressionNone:
	case chunkcrypt.CompressionZstd:
		compressor, err := zstd.NewWriter(stream, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return w.abort(fmt.Errorf("failed to create zstd writer: %w", err))
		}
		w.closers = append(w.closers, compressor.Close)
		w.release = append([]func() error{func() error {
			compressor.Reset(io.Discard)
			return compressor.Close()
		}}, w.release...)
		plaintext = compressor
	default:
		return w.abort(fmt.Errorf("unsupported compression %s", o.compression))
	}
	w.closers = append(w.closers, stream.Close)
	if owned != nil {
		w.closers = append(w.closers, owned)
	}
	if err = w.start(plaintext, info, o); err != nil {
		return w.abort(err)
	}
	return w, nil
}

// abort releases everything acquired by a writer constructor that failed. The
// container isn't finished, so whatever was already written won't authenticate.
func (w *Writer) abort(err error) (*Writer, error) {
	w.closed = true
	for _, release := range w.release {
		_ = release()
	}
	return nil, err
}

func (w *Writer) start(plaintext io.Writer, info *backuppb.BackupInfo, o *options) error {
	w.messages = delimited.NewWriter(plaintext, o.maxFrameSize)
	w.validator = o.newValidator()
	w.validate = o.validate
	w.maxSize = o.maxFrameSize
	if err := w.validator.ValidateInfo(info); err != nil {
		return err
	}
	data, err := backuppb.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode backup info: %w", err)
	} else if err = w.messages.WriteMessage(data); err != nil {
		return fmt.Errorf("failed to write backup info: %w", err)
	}
	return nil
}

// WriteFrame validates, encodes and writes a single frame. A frame rejected by
// validation or encoding isn't written and the writer stays usable, while I/O
// errors are fatal for the writer.
func (w *Writer) WriteFrame(frame *backuppb.Frame) error {
	if w.closed {
		return ErrWriterClosed
	} else if w.err != nil {
		return w.err
	} else if err := w.ctx.Err(); err != nil {
		return err
	}
	data, err := backuppb.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", frame.Kind(), err)
	} else if len(data) > w.maxSize {
		return fmt.Errorf("failed to write %s frame: %w", frame.Kind(), &delimited.SizeError{Size: uint64(len(data)), MaxSize: uint64(w.maxSize)})
	}
	if w.validate {
		if _, err = w.validator.Validate(w.ctx, frame); err != nil {
			return err
		}
	} else {
		w.validator.CountUnchecked()
	}
	if err = w.messages.WriteMessage(data); err != nil {
		w.err = fmt.Errorf("failed to write %s frame: %w", frame.Kind(), err)
		return w.err
	}
	return nil
}

// Close flushes the compressor and seals the final chunk. The underlying writer
// is only closed if [WithOwnership] was used.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	if w.err != nil {
		errs = append(errs, w.err)
	}
	for _, closer := range w.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
