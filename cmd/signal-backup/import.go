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

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mau.fi/util/dbutil"

	"go.mau.fi/signalbackup/pkg/store"
)

var (
	importKeys     keyFlags
	importTransfer bool
	importAccount  string
)

var importCmd = &cobra.Command{
	Use:   "import <backup file>",
	Short: "Import a backup into the database",
	Long: `Import the recipients, chats and messages of a backup into the configured database,
replacing the previously imported backup of the same account. Undownloaded attachments
are queued for download.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zerolog.Ctx(ctx)
		db, err := dbutil.NewWithDialect(cfg.Database.URI, cfg.Database.Type)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		db.RawDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		container := store.NewStore(db, dbutil.ZeroLogger(log.With().Str("db_section", "signalbackup").Logger()))
		if err = container.Upgrade(ctx); err != nil {
			return fmt.Errorf("failed to upgrade database: %w", err)
		}
		reader, err := openBackup(ctx, args[0], &importKeys, importTransfer)
		if err != nil {
			return err
		}
		defer reader.Close()
		accountID := cfg.AccountID
		if importAccount != "" {
			accountID = importAccount
		}
		stats, err := store.NewImporter(container, accountID).Import(ctx, reader)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Printf("Imported %d recipients, %d chats and %d messages (%d attachments, %d pending download)\n",
			stats.Recipients, stats.Chats, stats.ChatItems, stats.Attachments, stats.PendingAttachments)
		printDiagnostics(formatDiagnostics(reader.Diagnostics()), reader.Validator().DroppedDiagnostics())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importKeys.register(importCmd, "", "Enter backup key: ")
	importCmd.Flags().BoolVar(&importTransfer, "transfer", false, "Read a transfer archive instead of a backup container")
	importCmd.Flags().StringVar(&importAccount, "account", "", "Account to import into (default: account_id from config)")
}
