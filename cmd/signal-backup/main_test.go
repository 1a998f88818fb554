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
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/signalbackup/pkg/backuppb"
	"go.mau.fi/signalbackup/pkg/chunkcrypt"
	"go.mau.fi/signalbackup/pkg/validator"
)

func TestParseKey(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	parsed, err := parseKey(" " + hex.EncodeToString(key[:]) + "\n")
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = parseKey("zz")
	assert.Error(t, err)
	_, err = parseKey(strings.Repeat("ab", 16))
	assert.ErrorContains(t, err, "must be 32 bytes")
}

func TestKeyFlags_Read(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	path := filepath.Join(t.TempDir(), "backup.key")
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(key[:])+"\n"), 0600))
	kf := &keyFlags{keyFile: path}
	read, err := kf.read()
	require.NoError(t, err)
	assert.Equal(t, key, read)

	t.Setenv(KeyEnv, hex.EncodeToString(key[:]))
	read, err = (&keyFlags{}).read()
	require.NoError(t, err)
	assert.Equal(t, key, read)
}

func TestKeyFlags_TransferKeys(t *testing.T) {
	key := chunkcrypt.GenerateKey()
	aci := uuid.New()
	kf := &keyFlags{hexKey: hex.EncodeToString(key[:]), aci: aci.String()}
	aesKey, hmacKey, err := kf.transferKeys()
	require.NoError(t, err)
	expectedAES, expectedHMAC := chunkcrypt.DeriveMessageBackupKey(key, chunkcrypt.DeriveBackupID(key, aci))
	assert.Equal(t, expectedAES, aesKey)
	assert.Equal(t, expectedHMAC, hmacKey)

	_, _, err = (&keyFlags{hexKey: kf.hexKey}).transferKeys()
	assert.ErrorContains(t, err, "--aci")
}

func TestFormatDiagnostics(t *testing.T) {
	out := formatDiagnostics([]validator.Diagnostic{
		{FrameIndex: 3, FrameKind: "chat", Err: errors.New("dangling")},
		{FrameIndex: 7, Err: errors.New("bad")},
	})
	assert.Equal(t, []string{"frame #3 (chat): dangling", "frame #7 (undecodable): bad"}, out)
}

func TestChatItemKind(t *testing.T) {
	assert.Equal(t, "voice", chatItemKind(&backuppb.ChatItem{Item: &backuppb.VoiceMessage{}}))
	assert.Equal(t, "update", chatItemKind(&backuppb.ChatItem{Item: &backuppb.ChatUpdateMessage{}}))
	assert.Equal(t, "unknown", chatItemKind(&backuppb.ChatItem{}))
}
