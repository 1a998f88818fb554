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
	"crypto/sha256"
	"io"

	"github.com/google/uuid"
	"go.mau.fi/util/exerrors"
	"go.mau.fi/util/random"
	"golang.org/x/crypto/hkdf"
)

const (
	backupIDInfo         = "20241007_SIGNAL_BACKUP_ID:"
	messageBackupKeyInfo = "20241007_SIGNAL_BACKUP_ENCRYPT_MESSAGE_BACKUP:"

	BackupIDSize = 16
)

// GenerateKey returns a new random 32-byte key.
func GenerateKey() [KeySize]byte {
	return [KeySize]byte(random.Bytes(KeySize))
}

// DeriveBackupID derives the per-account backup ID from a backup key.
func DeriveBackupID(backupKey [KeySize]byte, aci uuid.UUID) [BackupIDSize]byte {
	var out [BackupIDSize]byte
	h := hkdf.New(sha256.New, backupKey[:], nil, append([]byte(backupIDInfo), aci[:]...))
	exerrors.Must(io.ReadFull(h, out[:]))
	return out
}

// DeriveMessageBackupKey derives the HMAC and AES keys of a transfer archive.
func DeriveMessageBackupKey(backupKey [KeySize]byte, backupID [BackupIDSize]byte) (aesKey, hmacKey [32]byte) {
	var out [64]byte
	h := hkdf.New(sha256.New, backupKey[:], nil, append([]byte(messageBackupKeyInfo), backupID[:]...))
	exerrors.Must(io.ReadFull(h, out[:]))
	copy(hmacKey[:], out[:32])
	copy(aesKey[:], out[32:])
	return
}
