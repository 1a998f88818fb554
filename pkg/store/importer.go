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

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"go.mau.fi/signalbackup/pkg/attachment"
	"go.mau.fi/signalbackup/pkg/backup"
	"go.mau.fi/signalbackup/pkg/backuppb"
)

// ImportStats counts what happened to the frames of an imported backup.
type ImportStats struct {
	Recipients         int `json:"recipients"`
	Chats              int `json:"chats"`
	ChatItems          int `json:"chat_items"`
	Ignored            int `json:"ignored"`
	Attachments        int `json:"attachments"`
	PendingAttachments int `json:"pending_attachments"`
	Diagnostics        int `json:"diagnostics"`
}

// Importer saves the frames of a backup into a store, replacing whatever was stored before.
type Importer struct {
	Container *Container
	AccountID string
}

func NewImporter(container *Container, accountID string) *Importer {
	return &Importer{Container: container, AccountID: accountID}
}

// Import consumes the reader inside a single transaction. If reading the backup fails, nothing is saved.
// The reader isn't closed.
func (imp *Importer) Import(ctx context.Context, reader *backup.Reader) (*ImportStats, error) {
	log := zerolog.Ctx(ctx).With().Str("action", "import backup").Str("account_id", imp.AccountID).Logger()
	ctx = log.WithContext(ctx)
	backupStore := imp.Container.BackupStore(imp.AccountID)
	fp := &frameProcessor{
		store:    backupStore,
		resolver: &attachment.Resolver{Pending: imp.Container.PendingStore(imp.AccountID)},
		stats:    &ImportStats{},
	}
	err := imp.Container.DoTxn(ctx, func(ctx context.Context) error {
		err := backupStore.Clear(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear backup: %w", err)
		}
		for frame, err := range reader.All() {
			if err != nil {
				return err
			} else if err = fp.processFrame(ctx, frame); err != nil {
				return err
			}
		}
		err = backupStore.RecalculateChatCounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to calculate message counts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fp.stats.Diagnostics = len(reader.Diagnostics())
	log.Info().Any("stats", fp.stats).Msg("Imported backup")
	return fp.stats, nil
}

type frameProcessor struct {
	store    *BackupStore
	resolver *attachment.Resolver
	stats    *ImportStats
}

func (fp *frameProcessor) processFrame(ctx context.Context, frame *backuppb.Frame) error {
	log := zerolog.Ctx(ctx)
	switch item := frame.Item.(type) {
	case *backuppb.Recipient:
		fp.stats.Recipients++
		return fp.store.AddRecipient(ctx, item)
	case *backuppb.Chat:
		fp.stats.Chats++
		return fp.store.AddChat(ctx, item)
	case *backuppb.ChatItem:
		switch item.Item.(type) {
		case *backuppb.ChatUpdateMessage, nil:
			log.Debug().
				Uint64("chat_id", item.ChatID).
				Uint64("message_id", item.DateSent).
				Type("item_type", item.Item).
				Msg("Not saving unsupported chat item type")
			fp.stats.Ignored++
			return nil
		}
		if err := fp.resolveAttachments(ctx, item); err != nil {
			return err
		}
		fp.stats.ChatItems++
		return fp.store.AddChatItem(ctx, item)
	default:
		log.Debug().Type("frame_type", item).Msg("Ignoring backup frame")
		fp.stats.Ignored++
		return nil
	}
}

func (fp *frameProcessor) resolveAttachments(ctx context.Context, item *backuppb.ChatItem) error {
	for _, pointer := range item.FilePointers() {
		source, err := fp.resolver.Resolve(ctx, pointer)
		if errors.Is(err, attachment.ErrNoLocator) {
			zerolog.Ctx(ctx).Debug().
				Uint64("chat_id", item.ChatID).
				Uint64("message_id", item.DateSent).
				Msg("Attachment has no locator")
			continue
		} else if err != nil {
			return fmt.Errorf("failed to resolve attachment in message %d: %w", item.DateSent, err)
		}
		fp.stats.Attachments++
		if _, ok := source.(*attachment.PendingSource); ok {
			fp.stats.PendingAttachments++
		}
	}
	return nil
}
