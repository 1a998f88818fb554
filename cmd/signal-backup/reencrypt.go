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
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"go.mau.fi/signalbackup/pkg/backup"
	"go.mau.fi/signalbackup/pkg/chunkcrypt"
)

var (
	reencryptKeys     keyFlags
	reencryptNewKeys  keyFlags
	reencryptTransfer bool
	reencryptOutput   string
	reencryptForce    bool
	reencryptCompress string
)

var reencryptCmd = &cobra.Command{
	Use:   "reencrypt <backup file>",
	Short: "Write a backup again with a different key or compression",
	Long: `Read a backup and write its frames into a new backup container. Frames that fail
validation are left out, so this can also be used to repair a partially corrupt backup.

Examples:
  # Convert a transfer archive into a backup container with a new key
  signal-backup reencrypt --transfer --aci <uuid> archive.bin -o backup.sgbk --new-key-file new.key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if reencryptOutput == "" {
			return fmt.Errorf("--output is required")
		}
		if !reencryptForce {
			if _, err := os.Stat(reencryptOutput); err == nil {
				return fmt.Errorf("output file already exists: %s (use --force to overwrite)", reencryptOutput)
			}
		}
		writerOpts := cfg.WriterOptions()
		if reencryptCompress != "" {
			compression, err := chunkcrypt.ParseCompression(reencryptCompress)
			if err != nil {
				return err
			}
			writerOpts = append(writerOpts, backup.WithCompression(compression))
		}
		reader, err := openBackup(ctx, args[0], &reencryptKeys, reencryptTransfer)
		if err != nil {
			return err
		}
		defer reader.Close()
		newKey, err := reencryptNewKeys.read()
		if err != nil {
			return err
		}
		output, err := os.OpenFile(reencryptOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		writerOpts = append(writerOpts, backup.WithOwnership())
		writer, err := backup.NewWriter(ctx, output, newKey, reader.Info(), writerOpts...)
		if err != nil {
			_ = output.Close()
			return err
		}
		var written int
		for frame, err := range reader.All() {
			if err == nil {
				err = writer.WriteFrame(frame)
			}
			if err != nil {
				_ = writer.Close()
				_ = os.Remove(reencryptOutput)
				return err
			}
			written++
		}
		if err = writer.Close(); err != nil {
			return fmt.Errorf("failed to finish output: %w", err)
		}
		zerolog.Ctx(ctx).Info().Int("frames", written).Str("output", reencryptOutput).Msg("Wrote backup")
		printDiagnostics(formatDiagnostics(reader.Diagnostics()), reader.Validator().DroppedDiagnostics())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reencryptCmd)
	reencryptKeys.register(reencryptCmd, "", "Enter current backup key: ")
	reencryptNewKeys.register(reencryptCmd, "new-", "Enter new backup key: ")
	reencryptCmd.Flags().BoolVar(&reencryptTransfer, "transfer", false, "Read a transfer archive instead of a backup container")
	reencryptCmd.Flags().StringVarP(&reencryptOutput, "output", "o", "", "Output file path")
	reencryptCmd.Flags().BoolVarP(&reencryptForce, "force", "f", false, "Overwrite existing file")
	reencryptCmd.Flags().StringVar(&reencryptCompress, "compression", "", "Compression of the output (default: from config)")
}
