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

// Package backup reads and writes complete Signal backups: an encrypted container
// carrying a BackupInfo header followed by a stream of validated frames.
package backup

import (
	"io"

	"go.mau.fi/signalbackup/pkg/chunkcrypt"
	"go.mau.fi/signalbackup/pkg/delimited"
	"go.mau.fi/signalbackup/pkg/validator"
)

type options struct {
	policy         validator.Policy
	maxFrameSize   int
	maxDiagnostics int
	owned          bool
	validate       bool
	compression    chunkcrypt.Compression
	chunkSize      int
}

// Option changes how a backup is read or written.
type Option func(*options)

func makeOptions(policy validator.Policy, opts []Option) *options {
	o := &options{
		policy:         policy,
		maxFrameSize:   delimited.DefaultMaxSize,
		maxDiagnostics: validator.DefaultMaxDiagnostics,
		validate:       true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxFrameSize <= 0 {
		o.maxFrameSize = delimited.DefaultMaxSize
	}
	return o
}

func makeWriterOptions(opts []Option) *options {
	o := makeOptions(validator.FailFast, opts)
	o.policy = validator.FailFast
	return o
}

func (o *options) newValidator() *validator.Validator {
	v := validator.New(o.policy)
	v.MaxDiagnostics = o.maxDiagnostics
	return v
}

// WithPolicy sets how invalid frames are handled when reading. The default is
// [validator.SkipAndReport]. Writers always use [validator.FailFast].
func WithPolicy(policy validator.Policy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithMaxFrameSize sets the largest accepted encoded frame.
func WithMaxFrameSize(size int) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// WithMaxDiagnostics bounds the number of diagnostics kept for skipped frames.
// Zero or less keeps all of them.
func WithMaxDiagnostics(limit int) Option {
	return func(o *options) {
		o.maxDiagnostics = limit
	}
}

// WithOwnership makes Close also close the underlying reader or writer, if it implements [io.Closer].
func WithOwnership() Option {
	return func(o *options) {
		o.owned = true
	}
}

// WithValidation turns referential integrity checks on or off. They're on by default.
// When off, frames are only checked for schema validity.
func WithValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// WithCompression sets the compression of the plaintext stream when writing.
func WithCompression(compression chunkcrypt.Compression) Option {
	return func(o *options) {
		o.compression = compression
	}
}

// WithChunkSize sets the plaintext size of encrypted chunks when writing.
func WithChunkSize(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

func (o *options) closerFor(v any) func() error {
	if closer, ok := v.(io.Closer); ok && o.owned {
		return closer.Close
	}
	return nil
}
