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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mau.fi/util/dbutil"
	"go.mau.fi/util/ptr"

	"go.mau.fi/signalbackup/pkg/backuppb"
)

// GroupMasterKeyLength is the size of a valid group master key.
const GroupMasterKeyLength = 32

type BackupChat struct {
	*backuppb.Chat
	TotalMessages   int
	LatestMessageID uint64
}

// BackupStore stores the recipients, chats and chat items of one account's backup.
// Entities are stored in their encoded form along with the columns needed to query them.
type BackupStore struct {
	db        *dbutil.Database
	AccountID string
}

const (
	addBackupRecipientQuery = `
		INSERT INTO signalbackup_recipient (account_id, recipient_id, aci_uuid, pni_uuid, group_master_key, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	addBackupChatQuery = `
		INSERT INTO signalbackup_chat (account_id, chat_id, recipient_id, data)
		VALUES ($1, $2, $3, $4)
	`
	addBackupChatItemQuery = `
		INSERT INTO signalbackup_message (account_id, chat_id, sender_id, message_id, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`

	getBackupRecipientQuery = `
		SELECT data FROM signalbackup_recipient WHERE account_id=$1 AND recipient_id=$2
	`
	getBackupChatQuery = `
		SELECT data, latest_message_id, total_message_count FROM signalbackup_chat WHERE account_id=$1 AND chat_id=$2
	`
	getBackupChatByACIQuery = `
		SELECT chat.data, chat.latest_message_id, chat.total_message_count FROM signalbackup_recipient rcp
		INNER JOIN signalbackup_chat chat ON rcp.account_id=chat.account_id AND rcp.recipient_id=chat.recipient_id
		WHERE rcp.account_id=$1 AND rcp.aci_uuid=$2
	`
	getBackupChatByPNIQuery = `
		SELECT chat.data, chat.latest_message_id, chat.total_message_count FROM signalbackup_recipient rcp
		INNER JOIN signalbackup_chat chat ON rcp.account_id=chat.account_id AND rcp.recipient_id=chat.recipient_id
		WHERE rcp.account_id=$1 AND rcp.pni_uuid=$2
	`
	getBackupChatByGroupMasterKeyQuery = `
		SELECT chat.data, chat.latest_message_id, chat.total_message_count FROM signalbackup_recipient rcp
		INNER JOIN signalbackup_chat chat ON rcp.account_id=chat.account_id AND rcp.recipient_id=chat.recipient_id
		WHERE rcp.account_id=$1 AND rcp.group_master_key=$2
	`
	getAllBackupChatsQuery = `
		SELECT data, latest_message_id, total_message_count
		FROM signalbackup_chat
		WHERE account_id=$1
		ORDER BY chat_id
	`
	getBackupChatItemsQuery = `
		SELECT data
		FROM signalbackup_message
		WHERE account_id=$1 AND chat_id=$2 AND message_id > $3 AND message_id < $4
		ORDER BY message_id DESC
		LIMIT $5
	`
	deleteBackupChatQuery = `
		DELETE FROM signalbackup_chat WHERE account_id=$1 AND chat_id=$2
	`
	deleteBackupChatItemsQuery = `
		DELETE FROM signalbackup_message WHERE account_id=$1 AND chat_id=$2 AND message_id >= $3
	`
	recalculateChatCountsQuery = `
		UPDATE signalbackup_chat
		SET latest_message_id = (
				SELECT message_id
				FROM signalbackup_message
				WHERE account_id=signalbackup_chat.account_id AND chat_id=signalbackup_chat.chat_id
				ORDER BY message_id DESC
				LIMIT 1
			),
			total_message_count = (
				SELECT COUNT(*)
				FROM signalbackup_message
				WHERE account_id=signalbackup_chat.account_id AND chat_id=signalbackup_chat.chat_id
			)
		WHERE account_id=$1
	`
)

func (s *BackupStore) AddRecipient(ctx context.Context, recipient *backuppb.Recipient) error {
	recipientData, err := backuppb.Marshal(recipient)
	if err != nil {
		return fmt.Errorf("failed to marshal recipient %d: %w", recipient.ID, err)
	}
	var aci, pni uuid.UUID
	var groupMasterKey []byte
	switch dest := recipient.Destination.(type) {
	case *backuppb.Contact:
		aci = dest.ACI()
		pni = dest.PNI()
	case *backuppb.Group:
		if len(dest.MasterKey) == GroupMasterKeyLength {
			groupMasterKey = dest.MasterKey
		} else {
			zerolog.Ctx(ctx).Warn().
				Uint64("recipient_id", recipient.ID).
				Msg("Invalid group master key length")
		}
	}
	_, err = s.db.Exec(ctx, addBackupRecipientQuery, s.AccountID, recipient.ID, ptr.NonZero(aci), ptr.NonZero(pni), groupMasterKey, recipientData)
	if err != nil {
		return fmt.Errorf("failed to add backup recipient %d: %w", recipient.ID, err)
	}
	return nil
}

func (s *BackupStore) AddChat(ctx context.Context, chat *backuppb.Chat) error {
	chatData, err := backuppb.Marshal(chat)
	if err != nil {
		return fmt.Errorf("failed to marshal chat %d: %w", chat.ID, err)
	}
	_, err = s.db.Exec(ctx, addBackupChatQuery, s.AccountID, chat.ID, chat.RecipientID, chatData)
	if err != nil {
		return fmt.Errorf("failed to add backup chat %d: %w", chat.ID, err)
	}
	return nil
}

// AddChatItem stores a chat item. Items are keyed by their send timestamp within the chat,
// so adding a second item with the same timestamp is a no-op.
func (s *BackupStore) AddChatItem(ctx context.Context, item *backuppb.ChatItem) error {
	itemData, err := backuppb.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal chat item %d: %w", item.DateSent, err)
	}
	_, err = s.db.Exec(ctx, addBackupChatItemQuery, s.AccountID, item.ChatID, item.AuthorID, item.DateSent, itemData)
	if err != nil {
		return fmt.Errorf("failed to add backup chat item %d: %w", item.DateSent, err)
	}
	return nil
}

// Clear deletes everything stored for the account, including pending downloads.
func (s *BackupStore) Clear(ctx context.Context) error {
	for _, table := range []string{"signalbackup_message", "signalbackup_chat", "signalbackup_recipient", "signalbackup_pending_download"} {
		_, err := s.db.Exec(ctx, "DELETE FROM "+table+" WHERE account_id=$1", s.AccountID)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func scanMessage[T any, PT interface {
	*T
	backuppb.Message
}](row dbutil.Scannable) (PT, error) {
	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	val := PT(new(T))
	return val, backuppb.Unmarshal(data, val)
}

func scanChat(row dbutil.Scannable) (*BackupChat, error) {
	var data []byte
	var latestMessageID, totalMessageCount sql.NullInt64
	err := row.Scan(&data, &latestMessageID, &totalMessageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var chat backuppb.Chat
	err = backuppb.Unmarshal(data, &chat)
	if err != nil {
		return nil, err
	}
	return &BackupChat{
		Chat:            &chat,
		TotalMessages:   int(totalMessageCount.Int64),
		LatestMessageID: uint64(latestMessageID.Int64),
	}, nil
}

var chatScanner = dbutil.ConvertRowFn[*BackupChat](scanChat)
var messageScanner = dbutil.ConvertRowFn[*backuppb.ChatItem](scanMessage[backuppb.ChatItem])

// GetRecipient returns the recipient with the given backup id, or nil if there isn't one.
func (s *BackupStore) GetRecipient(ctx context.Context, recipientID uint64) (*backuppb.Recipient, error) {
	return scanMessage[backuppb.Recipient](s.db.QueryRow(ctx, getBackupRecipientQuery, s.AccountID, recipientID))
}

func (s *BackupStore) GetChat(ctx context.Context, chatID uint64) (*BackupChat, error) {
	return scanChat(s.db.QueryRow(ctx, getBackupChatQuery, s.AccountID, chatID))
}

// GetChatByACI finds the chat with a contact by their ACI.
func (s *BackupStore) GetChatByACI(ctx context.Context, aci uuid.UUID) (*BackupChat, error) {
	return scanChat(s.db.QueryRow(ctx, getBackupChatByACIQuery, s.AccountID, aci))
}

func (s *BackupStore) GetChatByPNI(ctx context.Context, pni uuid.UUID) (*BackupChat, error) {
	return scanChat(s.db.QueryRow(ctx, getBackupChatByPNIQuery, s.AccountID, pni))
}

func (s *BackupStore) GetChatByGroupMasterKey(ctx context.Context, masterKey []byte) (*BackupChat, error) {
	return scanChat(s.db.QueryRow(ctx, getBackupChatByGroupMasterKeyQuery, s.AccountID, masterKey))
}

func (s *BackupStore) GetChats(ctx context.Context) ([]*BackupChat, error) {
	return chatScanner.NewRowIter(s.db.Query(ctx, getAllBackupChatsQuery, s.AccountID)).AsList()
}

// GetChatItems returns up to limit items of a chat, newest first. With a zero anchor, the latest
// items are returned. Otherwise, items after the anchor are returned if forward is set, and
// items before it if not.
func (s *BackupStore) GetChatItems(ctx context.Context, chatID uint64, anchor time.Time, forward bool, limit int) ([]*backuppb.ChatItem, error) {
	var minTS, maxTS int64
	if anchor.IsZero() {
		maxTS = time.Now().Add(24 * time.Hour).UnixMilli()
	} else if forward {
		minTS = anchor.UnixMilli()
		maxTS = time.Now().Add(24 * time.Hour).UnixMilli()
	} else {
		maxTS = anchor.UnixMilli()
	}
	return messageScanner.NewRowIter(s.db.Query(ctx, getBackupChatItemsQuery, s.AccountID, chatID, minTS, maxTS, limit)).AsList()
}

// DeleteChatItems deletes the items of a chat sent at or after minTime.
func (s *BackupStore) DeleteChatItems(ctx context.Context, chatID uint64, minTime time.Time) error {
	anchorTS := minTime.UnixMilli()
	if minTime.IsZero() {
		anchorTS = 0
	}
	_, err := s.db.Exec(ctx, deleteBackupChatItemsQuery, s.AccountID, chatID, anchorTS)
	return err
}

func (s *BackupStore) DeleteChat(ctx context.Context, chatID uint64) error {
	_, err := s.db.Exec(ctx, deleteBackupChatQuery, s.AccountID, chatID)
	return err
}

// RecalculateChatCounts updates the latest message id and message count of every chat.
func (s *BackupStore) RecalculateChatCounts(ctx context.Context) error {
	_, err := s.db.Exec(ctx, recalculateChatCountsQuery, s.AccountID)
	return err
}
