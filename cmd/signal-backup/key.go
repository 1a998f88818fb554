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
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.mau.fi/signalbackup/pkg/chunkcrypt"
)

// KeyEnv is the environment variable the backup key is read from if no flag is given.
const KeyEnv = "SIGNALBACKUP_KEY"

type keyFlags struct {
	hexKey  string
	keyFile string
	aci     string
	prompt  string
}

func (kf *keyFlags) register(cmd *cobra.Command, prefix, prompt string) {
	kf.prompt = prompt
	cmd.Flags().StringVar(&kf.hexKey, prefix+"key", "", "Backup key as 64 hex characters")
	cmd.Flags().StringVar(&kf.keyFile, prefix+"key-file", "", "File containing the backup key as hex")
	if prefix == "" {
		cmd.Flags().StringVar(&kf.aci, "aci", "", "Account ACI, for transfer archives")
	}
}

func parseKey(input string) (key [chunkcrypt.KeySize]byte, err error) {
	decoded, err := hex.DecodeString(strings.TrimSpace(input))
	if err != nil {
		return key, fmt.Errorf("key is not valid hex: %w", err)
	} else if len(decoded) != chunkcrypt.KeySize {
		return key, fmt.Errorf("key must be %d bytes, got %d", chunkcrypt.KeySize, len(decoded))
	}
	return [chunkcrypt.KeySize]byte(decoded), nil
}

// read returns the key from the flags, the environment or a terminal prompt, in that order.
func (kf *keyFlags) read() ([chunkcrypt.KeySize]byte, error) {
	switch {
	case kf.hexKey != "":
		return parseKey(kf.hexKey)
	case kf.keyFile != "":
		data, err := os.ReadFile(kf.keyFile)
		if err != nil {
			return [chunkcrypt.KeySize]byte{}, fmt.Errorf("failed to read key file: %w", err)
		}
		return parseKey(string(data))
	case os.Getenv(KeyEnv) != "":
		return parseKey(os.Getenv(KeyEnv))
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return [chunkcrypt.KeySize]byte{}, fmt.Errorf("no key given and stdin is not a terminal")
	}
	_, _ = fmt.Fprint(os.Stderr, kf.prompt)
	input, err := term.ReadPassword(int(syscall.Stdin))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return [chunkcrypt.KeySize]byte{}, fmt.Errorf("failed to read key: %w", err)
	}
	return parseKey(string(input))
}

// transferKeys derives the transfer archive keys from the backup key and the account ACI.
func (kf *keyFlags) transferKeys() (aesKey, hmacKey [32]byte, err error) {
	if kf.aci == "" {
		err = fmt.Errorf("--aci is required for transfer archives")
		return
	}
	aci, err := uuid.Parse(kf.aci)
	if err != nil {
		err = fmt.Errorf("invalid ACI: %w", err)
		return
	}
	backupKey, err := kf.read()
	if err != nil {
		return
	}
	backupID := chunkcrypt.DeriveBackupID(backupKey, aci)
	aesKey, hmacKey = chunkcrypt.DeriveMessageBackupKey(backupKey, backupID)
	return
}
