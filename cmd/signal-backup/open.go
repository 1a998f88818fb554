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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"go.mau.fi/signalbackup/pkg/backup"
)

// openBackup opens a backup file as a container, or as a transfer archive if transfer is set.
// The returned reader owns the file.
func openBackup(ctx context.Context, path string, keys *keyFlags, transfer bool, opts ...backup.Option) (*backup.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup: %w", err)
	}
	opts = append(cfg.ReaderOptions(), opts...)
	opts = append(opts, backup.WithOwnership())
	var reader *backup.Reader
	if transfer {
		var aesKey, hmacKey [32]byte
		if aesKey, hmacKey, err = keys.transferKeys(); err == nil {
			reader, err = backup.OpenTransferArchive(ctx, file, aesKey, hmacKey, opts...)
		}
	} else {
		var key [32]byte
		if key, err = keys.read(); err == nil {
			reader, err = backup.Open(ctx, file, key, opts...)
		}
	}
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Bool("transfer_archive", transfer).Msg("Opened backup")
	return reader, nil
}
