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
	"fmt"

	"github.com/spf13/cobra"

	"go.mau.fi/signalbackup/pkg/backup"
	"go.mau.fi/signalbackup/pkg/validator"
)

var (
	validateKeys     keyFlags
	validateTransfer bool
	validateStrict   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <backup file>",
	Short: "Check that a backup is authentic and free of dangling references",
	Long: `Read the whole backup, checking the encryption, the schema of every frame and
that every reference points at a recipient or chat declared earlier in the backup.

Exits with an error if any frame is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := validator.SkipAndReport
		if validateStrict {
			policy = validator.FailFast
		}
		reader, err := openBackup(cmd.Context(), args[0], &validateKeys, validateTransfer, backup.WithPolicy(policy))
		if err != nil {
			return err
		}
		defer reader.Close()
		for _, err = range reader.All() {
			if err != nil {
				return err
			}
		}
		diagnostics := reader.Diagnostics()
		printDiagnostics(formatDiagnostics(diagnostics), reader.Validator().DroppedDiagnostics())
		if len(diagnostics) > 0 {
			return fmt.Errorf("backup contains %d invalid frames", len(diagnostics)+reader.Validator().DroppedDiagnostics())
		}
		fmt.Printf("Backup is valid (%d frames)\n", reader.Validator().FrameCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateKeys.register(validateCmd, "", "Enter backup key: ")
	validateCmd.Flags().BoolVar(&validateTransfer, "transfer", false, "Read a transfer archive instead of a backup container")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Stop at the first invalid frame")
}
