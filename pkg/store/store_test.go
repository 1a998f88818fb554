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

package store_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/util/dbutil"
	"go.mau.fi/util/ptr"
	"go.mau.fi/util/random"

	"go.mau.fi/signalbackup/pkg/attachment"
	"go.mau.fi/signalbackup/pkg/backup"
	"go.mau.fi/signalbackup/pkg/backuppb"
	"go.mau.fi/signalbackup/pkg/chunkcrypt"
	"go.mau.fi/signalbackup/pkg/store"
	"go.mau.fi/signalbackup/pkg/store/upgrades"
)

func newContainer(t *testing.T) *store.Container {
	t.Helper()
	uri := fmt.Sprintf("file:%s?mode=memory&cache=shared", random.String(16))
	db, err := dbutil.NewWithDialect(uri, "sqlite3")
	require.NoError(t, err)
	db.RawDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})
	container := store.NewStore(db, dbutil.ZeroLogger(zerolog.Nop()))
	require.NoError(t, container.Upgrade(context.Background()))
	return container
}

func TestContainer_Upgrade(t *testing.T) {
	// The schema is a single revision, created directly from the latest SQL file.
	assert.Len(t, upgrades.Table, 1)
	container := newContainer(t)
	require.NoError(t, container.Upgrade(context.Background()))
	require.NoError(t, container.BackupStore("account").RecalculateChatCounts(context.Background()))
}

func TestBackupStore(t *testing.T) {
	ctx := context.Background()
	bs := newContainer(t).BackupStore("account")
	aci := uuid.New()
	masterKey := random.Bytes(store.GroupMasterKeyLength)

	require.NoError(t, bs.AddRecipient(ctx, &backuppb.Recipient{ID: 1, Destination: &backuppb.Contact{Aci: aci[:], ProfileGivenName: ptr.Ptr("Alice")}}))
	require.NoError(t, bs.AddRecipient(ctx, &backuppb.Recipient{ID: 2, Destination: &backuppb.Group{MasterKey: masterKey, Name: "Group"}}))
	require.NoError(t, bs.AddChat(ctx, &backuppb.Chat{ID: 10, RecipientID: 1, PinnedOrder: ptr.Ptr[uint32](0)}))
	require.NoError(t, bs.AddChat(ctx, &backuppb.Chat{ID: 11, RecipientID: 2}))
	for i := range 5 {
		require.NoError(t, bs.AddChatItem(ctx, &backuppb.ChatItem{
			ChatID:    10,
			AuthorID:  1,
			DateSent:  uint64(1000 + i),
			Direction: &backuppb.IncomingMessageDetails{DateReceived: uint64(2000 + i)},
			Item:      &backuppb.StandardMessage{Text: &backuppb.Text{Body: fmt.Sprintf("message %d", i)}},
		}))
	}
	require.NoError(t, bs.RecalculateChatCounts(ctx))

	recipient, err := bs.GetRecipient(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, recipient)
	assert.Equal(t, "Alice", *recipient.Destination.(*backuppb.Contact).ProfileGivenName)
	missing, err := bs.GetRecipient(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	chat, err := bs.GetChatByACI(ctx, aci)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.EqualValues(t, 10, chat.ID)
	assert.Equal(t, 5, chat.TotalMessages)
	assert.EqualValues(t, 1004, chat.LatestMessageID)
	require.NotNil(t, chat.PinnedOrder)

	chat, err = bs.GetChatByGroupMasterKey(ctx, masterKey)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.EqualValues(t, 11, chat.ID)
	assert.Zero(t, chat.TotalMessages)

	chats, err := bs.GetChats(ctx)
	require.NoError(t, err)
	assert.Len(t, chats, 2)

	items, err := bs.GetChatItems(ctx, 10, time.Time{}, false, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.EqualValues(t, 1004, items[0].DateSent)
	assert.Equal(t, "message 4", items[0].Item.(*backuppb.StandardMessage).Text.Body)

	items, err = bs.GetChatItems(ctx, 10, time.UnixMilli(1002), false, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.EqualValues(t, 1001, items[0].DateSent)

	require.NoError(t, bs.DeleteChatItems(ctx, 10, time.UnixMilli(1003)))
	items, err = bs.GetChatItems(ctx, 10, time.Time{}, false, 10)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	require.NoError(t, bs.DeleteChat(ctx, 11))
	chat, err = bs.GetChat(ctx, 11)
	require.NoError(t, err)
	assert.Nil(t, chat)

	require.NoError(t, bs.Clear(ctx))
	chats, err = bs.GetChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestBackupStore_AccountsAreSeparate(t *testing.T) {
	ctx := context.Background()
	container := newContainer(t)
	require.NoError(t, container.BackupStore("a").AddChat(ctx, &backuppb.Chat{ID: 1, RecipientID: 1}))
	chat, err := container.BackupStore("b").GetChat(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, chat)
}

func TestPendingStore(t *testing.T) {
	ctx := context.Background()
	ps := newContainer(t).PendingStore("account")
	aci := uuid.New()
	download := &attachment.PendingDownload{
		Key:       attachment.PendingKey{SenderACI: aci, CDNKey: "key"},
		CDNNumber: 3,
		Pointer: &backuppb.FilePointer{
			Locator:     &backuppb.UndownloadedBackupLocator{SenderACI: aci[:], CDNKey: "key", CDNNumber: 3},
			ContentType: ptr.Ptr("image/jpeg"),
		},
	}
	require.NoError(t, ps.Enqueue(ctx, download))
	require.NoError(t, ps.Enqueue(ctx, download))
	count, err := ps.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	downloads, err := ps.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.Equal(t, download, downloads[0])

	require.NoError(t, ps.Delete(ctx, download.Key))
	count, err = ps.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImporter(t *testing.T) {
	ctx := context.Background()
	container := newContainer(t)
	key := chunkcrypt.GenerateKey()
	sender := uuid.New()
	frames := []*backuppb.Frame{
		{Item: &backuppb.Recipient{ID: 1, Destination: &backuppb.SelfRecipient{}}},
		{Item: &backuppb.Recipient{ID: 2, Destination: &backuppb.Contact{Aci: sender[:]}}},
		{Item: &backuppb.Chat{ID: 3, RecipientID: 2}},
		{Item: &backuppb.ChatItem{
			ChatID:    3,
			AuthorID:  2,
			DateSent:  100,
			Direction: &backuppb.IncomingMessageDetails{DateReceived: 101},
			Item: &backuppb.StandardMessage{
				Attachments: []*backuppb.FilePointer{
					{Locator: &backuppb.UndownloadedBackupLocator{SenderACI: sender[:], CDNKey: "abc", CDNNumber: 3}},
					{Locator: &backuppb.AttachmentLocator{CDNKey: "def", CDNNumber: 2}},
					{ContentType: ptr.Ptr("image/png")},
				},
			},
		}},
		{Item: &backuppb.ChatItem{
			ChatID:    3,
			AuthorID:  1,
			DateSent:  200,
			Direction: &backuppb.DirectionlessMessageDetails{},
			Item:      &backuppb.ChatUpdateMessage{Update: &backuppb.SimpleChatUpdate{Type: backuppb.SimpleUpdateJoinedSignal}},
		}},
		{Item: &backuppb.Call{CallID: 5, ConversationRecipientID: 2, Timestamp: 300}},
	}
	var buf bytes.Buffer
	w, err := backup.NewWriter(ctx, &buf, key, &backuppb.BackupInfo{Version: 1, BackupTimeMs: 1})
	require.NoError(t, err)
	for _, frame := range frames {
		require.NoError(t, w.WriteFrame(frame))
	}
	require.NoError(t, w.Close())

	// Leftovers from a previous import must be cleared
	bs := container.BackupStore("me")
	require.NoError(t, bs.AddChat(ctx, &backuppb.Chat{ID: 77, RecipientID: 1}))

	reader, err := backup.Open(ctx, &buf, key)
	require.NoError(t, err)
	stats, err := store.NewImporter(container, "me").Import(ctx, reader)
	require.NoError(t, err)
	assert.Equal(t, &store.ImportStats{
		Recipients:         2,
		Chats:              1,
		ChatItems:          1,
		Ignored:            2,
		Attachments:        2,
		PendingAttachments: 1,
	}, stats)

	chats, err := bs.GetChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.EqualValues(t, 3, chats[0].ID)
	assert.Equal(t, 1, chats[0].TotalMessages)
	chat, err := bs.GetChatByACI(ctx, sender)
	require.NoError(t, err)
	require.NotNil(t, chat)

	downloads, err := container.PendingStore("me").GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, downloads, 1)
	assert.Equal(t, attachment.PendingKey{SenderACI: sender, CDNKey: "abc"}, downloads[0].Key)
}

func TestImporter_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	container := newContainer(t)
	key := chunkcrypt.GenerateKey()
	var buf bytes.Buffer
	w, err := backup.NewWriter(ctx, &buf, key, &backuppb.BackupInfo{Version: 1, BackupTimeMs: 1}, backup.WithChunkSize(16))
	require.NoError(t, err)
	for i := range 10 {
		require.NoError(t, w.WriteFrame(&backuppb.Frame{Item: &backuppb.Recipient{ID: uint64(i), Destination: &backuppb.SelfRecipient{}}}))
	}
	require.NoError(t, w.Close())
	data := buf.Bytes()
	data[len(data)-1] ^= 1

	bs := container.BackupStore("me")
	require.NoError(t, bs.AddChat(ctx, &backuppb.Chat{ID: 77, RecipientID: 1}))
	reader, err := backup.Open(ctx, bytes.NewReader(data), key)
	require.NoError(t, err)
	_, err = store.NewImporter(container, "me").Import(ctx, reader)
	assert.ErrorIs(t, err, chunkcrypt.ErrAuthenticationFailed)

	chat, err := bs.GetChat(ctx, 77)
	require.NoError(t, err)
	assert.NotNil(t, chat)
	recipient, err := bs.GetRecipient(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, recipient)
}
