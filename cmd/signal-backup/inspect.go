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
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.mau.fi/signalbackup/pkg/backuppb"
	"go.mau.fi/signalbackup/pkg/validator"
)

var (
	inspectKeys     keyFlags
	inspectTransfer bool
	inspectJSON     bool
)

type inspectResult struct {
	Version        uint64         `json:"version"`
	BackupTime     time.Time      `json:"backup_time"`
	Frames         map[string]int `json:"frames"`
	ChatItems      map[string]int `json:"chat_items"`
	Attachments    int            `json:"attachments"`
	Diagnostics    []string       `json:"diagnostics,omitempty"`
	DroppedReports int            `json:"dropped_reports,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <backup file>",
	Short: "Print a summary of the contents of a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := openBackup(cmd.Context(), args[0], &inspectKeys, inspectTransfer)
		if err != nil {
			return err
		}
		defer reader.Close()
		result := &inspectResult{
			Version:    reader.Info().Version,
			BackupTime: time.UnixMilli(int64(reader.Info().BackupTimeMs)),
			Frames:     make(map[string]int),
			ChatItems:  make(map[string]int),
		}
		for frame, err := range reader.All() {
			if err != nil {
				return err
			}
			result.Frames[frame.Kind()]++
			if item := frame.GetChatItem(); item != nil {
				result.ChatItems[chatItemKind(item)]++
				result.Attachments += len(item.FilePointers())
			}
		}
		result.Diagnostics = formatDiagnostics(reader.Diagnostics())
		result.DroppedReports = reader.Validator().DroppedDiagnostics()
		if inspectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		fmt.Printf("Backup version %d from %s\n", result.Version, result.BackupTime.Format(time.RFC3339))
		for kind, count := range result.Frames {
			fmt.Printf("  %-12s %d\n", kind, count)
		}
		for kind, count := range result.ChatItems {
			fmt.Printf("    %-22s %d\n", kind, count)
		}
		fmt.Printf("  %-12s %d\n", "attachments", result.Attachments)
		printDiagnostics(result.Diagnostics, result.DroppedReports)
		return nil
	},
}

func chatItemKind(item *backuppb.ChatItem) string {
	switch item.Item.(type) {
	case *backuppb.StandardMessage:
		return "standard"
	case *backuppb.ContactMessage:
		return "contact"
	case *backuppb.VoiceMessage:
		return "voice"
	case *backuppb.StickerMessage:
		return "sticker"
	case *backuppb.RemoteDeletedMessage:
		return "remote_deleted"
	case *backuppb.ChatUpdateMessage:
		return "update"
	default:
		return "unknown"
	}
}

func formatDiagnostics(diagnostics []validator.Diagnostic) []string {
	out := make([]string, len(diagnostics))
	for i, diag := range diagnostics {
		kind := diag.FrameKind
		if kind == "" {
			kind = "undecodable"
		}
		out[i] = fmt.Sprintf("frame #%d (%s): %v", diag.FrameIndex, kind, diag.Err)
	}
	return out
}

func printDiagnostics(diagnostics []string, dropped int) {
	if len(diagnostics) == 0 {
		return
	}
	fmt.Printf("%d frames were skipped:\n", len(diagnostics)+dropped)
	for _, diag := range diagnostics {
		fmt.Println("  " + diag)
	}
	if dropped > 0 {
		fmt.Printf("  ...and %d more\n", dropped)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectKeys.register(inspectCmd, "", "Enter backup key: ")
	inspectCmd.Flags().BoolVar(&inspectTransfer, "transfer", false, "Read a transfer archive instead of a backup container")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the summary as JSON")
}
