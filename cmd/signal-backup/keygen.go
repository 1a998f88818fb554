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

	"github.com/spf13/cobra"

	"go.mau.fi/signalbackup/pkg/chunkcrypt"
)

var keygenOutput string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a random backup key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := chunkcrypt.GenerateKey()
		encoded := hex.EncodeToString(key[:])
		if keygenOutput == "" {
			fmt.Println(encoded)
			return nil
		}
		file, err := os.OpenFile(keygenOutput, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("failed to create key file: %w", err)
		}
		_, err = fmt.Fprintln(file, encoded)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenOutput, "output", "o", "", "Write the key to a new file instead of stdout")
}
