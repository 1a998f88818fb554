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

package backuppb_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/util/ptr"
	"google.golang.org/protobuf/encoding/protowire"

	"go.mau.fi/signalbackup/pkg/backuppb"
)

func roundTrip[T backuppb.Message](t *testing.T, in T, out T) {
	t.Helper()
	data, err := backuppb.Marshal(in)
	require.NoError(t, err)
	require.NoError(t, backuppb.Unmarshal(data, out))
	assert.Equal(t, in, out)
	again, err := backuppb.Marshal(out)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func sampleChatItem() *backuppb.ChatItem {
	return &backuppb.ChatItem{
		ChatID:      3,
		AuthorID:    1,
		DateSent:    1700000000000,
		ExpiresInMs: ptr.Ptr[uint64](0),
		Direction: &backuppb.OutgoingMessageDetails{
			SendStatus: []*backuppb.SendStatus{{
				RecipientID:    2,
				DeliveryStatus: backuppb.DeliveryStatusRead,
				SealedSender:   true,
			}},
		},
		Item: &backuppb.StandardMessage{
			Text: &backuppb.Text{
				Body: "hello @you",
				BodyRanges: []*backuppb.BodyRange{
					{Start: 6, Length: 4, MentionACI: []byte{1, 2, 3}},
					{Start: 0, Length: 5, Style: ptr.Ptr(backuppb.StyleBold)},
				},
			},
			Quote: &backuppb.Quote{
				TargetSentTimestamp: ptr.Ptr[uint64](1699999999999),
				AuthorID:            2,
				Text:                ptr.Ptr(""),
			},
			Attachments: []*backuppb.FilePointer{{
				Locator: &backuppb.AttachmentLocator{
					CDNKey:          "abc",
					CDNNumber:       2,
					UploadTimestamp: 1234,
				},
				Key:         []byte("attachment key"),
				ContentType: ptr.Ptr("image/png"),
				Size:        ptr.Ptr[uint32](1024),
				Width:       ptr.Ptr[uint32](0),
			}},
			Reactions: []*backuppb.Reaction{{
				Emoji:         "👍",
				AuthorID:      2,
				SentTimestamp: 1700000000001,
			}},
		},
		Revisions: []*backuppb.ChatItem{{
			ChatID:    3,
			AuthorID:  1,
			DateSent:  1699999999000,
			Direction: &backuppb.DirectionlessMessageDetails{},
			Item:      &backuppb.RemoteDeletedMessage{},
		}},
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	frames := []*backuppb.Frame{
		{Item: &backuppb.AccountData{
			ProfileKey: []byte("profile key"),
			Username:   ptr.Ptr("user.01"),
			GivenName:  "Alice",
			AccountSettings: &backuppb.AccountSettings{
				ReadReceipts:             true,
				StoryViewReceiptsEnabled: ptr.Ptr(false),
				PhoneNumberSharingMode:   backuppb.PhoneNumberSharingNobody,
			},
		}},
		{Item: &backuppb.Recipient{ID: 1, Destination: &backuppb.SelfRecipient{}}},
		{Item: &backuppb.Recipient{ID: 2, Destination: &backuppb.Contact{
			Aci:        []byte{0xaa, 0xbb},
			E164:       ptr.Ptr[uint64](15555550100),
			Registered: backuppb.ContactRegistered,
		}}},
		{Item: &backuppb.Recipient{ID: 4, Destination: &backuppb.DistributionList{
			Name:               "Close friends",
			PrivacyMode:        backuppb.PrivacyModeOnlyWith,
			MemberRecipientIDs: []uint64{1, 2},
		}}},
		{Item: &backuppb.Chat{ID: 3, RecipientID: 2, PinnedOrder: ptr.Ptr[uint32](0)}},
		{Item: sampleChatItem()},
		{Item: &backuppb.Call{CallID: 9, ConversationRecipientID: 2, Type: backuppb.CallTypeVideo, RingerRecipientID: ptr.Ptr[uint64](2)}},
		{Item: &backuppb.StickerPack{PackID: []byte{1}, PackKey: []byte{2}, Title: "Pack", Stickers: []*backuppb.StickerPackSticker{{Emoji: "🙂", ID: 1}}}},
	}
	for _, frame := range frames {
		t.Run(frame.Kind(), func(t *testing.T) {
			roundTrip(t, frame, &backuppb.Frame{})
		})
	}
}

func TestChatItem_Presence(t *testing.T) {
	item := sampleChatItem()
	data, err := backuppb.Marshal(item)
	require.NoError(t, err)
	var decoded backuppb.ChatItem
	require.NoError(t, backuppb.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.ExpiresInMs)
	assert.Zero(t, *decoded.ExpiresInMs)
	assert.Nil(t, decoded.ExpireStartDate)

	att := decoded.Item.(*backuppb.StandardMessage).Attachments[0]
	require.NotNil(t, att.Width)
	assert.Zero(t, *att.Width)
	assert.Nil(t, att.Height)
	assert.Nil(t, att.IncrementalMac)

	quote := decoded.Quote()
	require.NotNil(t, quote)
	require.NotNil(t, quote.Text)
	assert.Equal(t, "", *quote.Text)
	assert.Len(t, decoded.Reactions(), 1)
}

func TestFrame_UnknownFieldsPreserved(t *testing.T) {
	var chat []byte
	chat = protowire.AppendTag(chat, 1, protowire.VarintType)
	chat = protowire.AppendVarint(chat, 3)
	chat = protowire.AppendTag(chat, 2, protowire.VarintType)
	chat = protowire.AppendVarint(chat, 2)
	chat = protowire.AppendTag(chat, 99, protowire.BytesType)
	chat = protowire.AppendString(chat, "from the future")

	var frame []byte
	frame = protowire.AppendTag(frame, 3, protowire.BytesType)
	frame = protowire.AppendBytes(frame, chat)
	frame = protowire.AppendTag(frame, 50, protowire.Fixed32Type)
	frame = protowire.AppendFixed32(frame, 0xdeadbeef)

	var decoded backuppb.Frame
	require.NoError(t, backuppb.Unmarshal(frame, &decoded))
	require.NotNil(t, decoded.GetChat())
	assert.Equal(t, uint64(3), decoded.GetChat().ID)
	assert.NotEmpty(t, decoded.GetChat().Unknown)
	assert.NotEmpty(t, decoded.Unknown)

	encoded, err := backuppb.Marshal(&decoded)
	require.NoError(t, err)
	assert.Equal(t, frame, encoded)
}

func TestUnmarshal_UnknownFieldsDontAlias(t *testing.T) {
	var data []byte
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 1)
	data = protowire.AppendTag(data, 2, protowire.VarintType)
	data = protowire.AppendVarint(data, 2)
	data = protowire.AppendTag(data, 20, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte{1, 2, 3})
	var info backuppb.BackupInfo
	require.NoError(t, backuppb.Unmarshal(data, &info))
	expected := append([]byte{}, info.Unknown...)
	for i := range data {
		data[i] = 0
	}
	assert.Equal(t, expected, info.Unknown)
}

func recipientFrame(id uint64) []byte {
	var self []byte
	var recipient []byte
	recipient = protowire.AppendTag(recipient, 1, protowire.VarintType)
	recipient = protowire.AppendVarint(recipient, id)
	recipient = protowire.AppendTag(recipient, 5, protowire.BytesType)
	recipient = protowire.AppendBytes(recipient, self)
	return recipient
}

func TestFrame_OneofViolation(t *testing.T) {
	var chat []byte
	chat = protowire.AppendTag(chat, 1, protowire.VarintType)
	chat = protowire.AppendVarint(chat, 1)
	chat = protowire.AppendTag(chat, 2, protowire.VarintType)
	chat = protowire.AppendVarint(chat, 1)

	t.Run("DifferentBranches", func(t *testing.T) {
		var frame []byte
		frame = protowire.AppendTag(frame, 2, protowire.BytesType)
		frame = protowire.AppendBytes(frame, recipientFrame(1))
		frame = protowire.AppendTag(frame, 3, protowire.BytesType)
		frame = protowire.AppendBytes(frame, chat)
		err := backuppb.Unmarshal(frame, &backuppb.Frame{})
		require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
		assert.Contains(t, err.Error(), "oneof violation: item")
	})
	t.Run("SameBranchTwice", func(t *testing.T) {
		var frame []byte
		frame = protowire.AppendTag(frame, 2, protowire.BytesType)
		frame = protowire.AppendBytes(frame, recipientFrame(1))
		frame = protowire.AppendTag(frame, 2, protowire.BytesType)
		frame = protowire.AppendBytes(frame, recipientFrame(2))
		err := backuppb.Unmarshal(frame, &backuppb.Frame{})
		require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
	})
	t.Run("NotSet", func(t *testing.T) {
		err := backuppb.Unmarshal(nil, &backuppb.Frame{})
		require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
		assert.Contains(t, err.Error(), "oneof violation: item not set")
	})
	t.Run("NestedDestination", func(t *testing.T) {
		recipient := recipientFrame(1)
		recipient = protowire.AppendTag(recipient, 6, protowire.BytesType)
		recipient = protowire.AppendBytes(recipient, nil)
		err := backuppb.Unmarshal(recipient, &backuppb.Recipient{})
		require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
		assert.Contains(t, err.Error(), "oneof violation: destination")
	})
}

func TestUnmarshal_MissingRequiredField(t *testing.T) {
	var chat []byte
	chat = protowire.AppendTag(chat, 2, protowire.VarintType)
	chat = protowire.AppendVarint(chat, 1)
	err := backuppb.Unmarshal(chat, &backuppb.Chat{})
	require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
	var ipe *backuppb.InvalidProtobufError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "Chat", ipe.Message)
	assert.Equal(t, "missing required field: id", ipe.Reason)

	var reaction []byte
	reaction = protowire.AppendTag(reaction, 1, protowire.BytesType)
	reaction = protowire.AppendString(reaction, "❤️")
	err = backuppb.Unmarshal(reaction, &backuppb.Reaction{})
	assert.ErrorContains(t, err, "missing required field: authorId")
}

func TestUnmarshal_EnumForwardCompatibility(t *testing.T) {
	var status []byte
	status = protowire.AppendTag(status, 1, protowire.VarintType)
	status = protowire.AppendVarint(status, 7)
	status = protowire.AppendTag(status, 2, protowire.VarintType)
	status = protowire.AppendVarint(status, 99)
	var decoded backuppb.SendStatus
	require.NoError(t, backuppb.Unmarshal(status, &decoded))
	assert.Equal(t, backuppb.DeliveryStatusUnknown, decoded.DeliveryStatus)
	assert.Equal(t, "UNKNOWN", decoded.DeliveryStatus.String())
	assert.Equal(t, "99", backuppb.DeliveryStatus(99).String())
}

func TestUnmarshal_Malformed(t *testing.T) {
	t.Run("Truncated", func(t *testing.T) {
		data, err := backuppb.Marshal(&backuppb.Frame{Item: sampleChatItem()})
		require.NoError(t, err)
		err = backuppb.Unmarshal(data[:len(data)-3], &backuppb.Frame{})
		require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
	})
	t.Run("WrongWireType", func(t *testing.T) {
		var info []byte
		info = protowire.AppendTag(info, 1, protowire.BytesType)
		info = protowire.AppendString(info, "1")
		err := backuppb.Unmarshal(info, &backuppb.BackupInfo{})
		require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
		assert.Contains(t, err.Error(), "wrong wire type for field version")
	})
	t.Run("BadVarint", func(t *testing.T) {
		err := backuppb.Unmarshal([]byte{0x08, 0xff}, &backuppb.BackupInfo{})
		require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
	})
}

func TestChatItem_RevisionDepth(t *testing.T) {
	item := sampleChatItem()
	item.Revisions[0].Revisions = []*backuppb.ChatItem{{
		ChatID:    3,
		AuthorID:  1,
		DateSent:  1,
		Direction: &backuppb.DirectionlessMessageDetails{},
		Item:      &backuppb.RemoteDeletedMessage{},
	}}
	data, err := backuppb.Marshal(item)
	require.NoError(t, err)
	err = backuppb.Unmarshal(data, &backuppb.ChatItem{})
	require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
	assert.Contains(t, err.Error(), "revision nesting too deep")
}

func TestMarshal_Incomplete(t *testing.T) {
	_, err := backuppb.Marshal(&backuppb.Frame{})
	assert.ErrorIs(t, err, backuppb.ErrEmptyFrame)

	item := sampleChatItem()
	item.Direction = nil
	_, err = backuppb.Marshal(&backuppb.Frame{Item: item})
	assert.ErrorIs(t, err, backuppb.ErrNoDirection)

	_, err = backuppb.Marshal(&backuppb.Recipient{ID: 1})
	assert.ErrorIs(t, err, backuppb.ErrNoDestination)

	item = sampleChatItem()
	item.Item = &backuppb.ChatUpdateMessage{}
	_, err = backuppb.Marshal(item)
	assert.ErrorIs(t, err, backuppb.ErrNoUpdate)

	item.Item = &backuppb.StickerMessage{}
	_, err = backuppb.Marshal(item)
	assert.ErrorIs(t, err, backuppb.ErrNoSticker)
}

func TestChatUpdate_RoundTrip(t *testing.T) {
	updates := []backuppb.ChatUpdate{
		&backuppb.SimpleChatUpdate{Type: backuppb.SimpleUpdateIdentityVerified},
		&backuppb.ExpirationTimerChatUpdate{ExpiresInMs: 86400000},
		&backuppb.ProfileChangeChatUpdate{PreviousName: "A", NewName: "B"},
		&backuppb.CallChatUpdate{Call: backuppb.CallID(9)},
		&backuppb.CallChatUpdate{Call: &backuppb.IndividualCallChatUpdate{Type: backuppb.IndividualCallMissedVideo}},
		&backuppb.CallChatUpdate{Call: &backuppb.GroupCallChatUpdate{
			StartedCallACI: []byte{},
			InCallACIs:     [][]byte{{1}, {2}},
		}},
		&backuppb.GroupChangeChatUpdate{Updates: []*backuppb.GroupChangeUpdate{
			{Change: &backuppb.GroupCreationUpdate{UpdaterACI: []byte{1}}},
			{Change: &backuppb.GroupNameUpdate{NewGroupName: ptr.Ptr("Friends")}},
			{Change: &backuppb.GroupMembershipAccessLevelChangeUpdate{AccessLevel: backuppb.AccessLevelAdministrator}},
			{Change: &backuppb.GroupMemberAddedUpdate{NewMemberACI: []byte{2}, HadOpenInvitation: true}},
			{Change: &backuppb.GroupInvitationRevokedUpdate{Invitees: []*backuppb.GroupInvitee{{InviteePNI: []byte{3}}}}},
			{Change: &backuppb.GroupV2MigrationUpdate{}},
			{Change: &backuppb.GroupExpirationTimerUpdate{ExpiresInMs: 1000}},
		}},
	}
	for _, update := range updates {
		roundTrip(t, &backuppb.ChatUpdateMessage{Update: update}, &backuppb.ChatUpdateMessage{})
	}
}

func TestChatItem_FilePointers(t *testing.T) {
	fp := func(id uint64) *backuppb.FilePointer {
		return &backuppb.FilePointer{Locator: &backuppb.LegacyAttachmentLocator{CDNID: id}}
	}
	item := &backuppb.ChatItem{
		Item: &backuppb.StandardMessage{
			Quote: &backuppb.Quote{AuthorID: 1, Attachments: []*backuppb.QuotedAttachment{
				{Thumbnail: fp(1)},
				{FileName: ptr.Ptr("no-thumbnail.txt")},
			}},
			Attachments: []*backuppb.FilePointer{fp(2), fp(3)},
			LongText:    fp(4),
			LinkPreview: []*backuppb.LinkPreview{{URL: "https://signal.org", Image: fp(5)}},
		},
		Revisions: []*backuppb.ChatItem{{Item: &backuppb.VoiceMessage{Audio: fp(6)}}},
	}
	var ids []uint64
	for _, pointer := range item.FilePointers() {
		ids = append(ids, pointer.Locator.(*backuppb.LegacyAttachmentLocator).CDNID)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids)

	item.Item = &backuppb.StickerMessage{Sticker: &backuppb.Sticker{Data: fp(7)}}
	assert.Equal(t, []*backuppb.FilePointer{fp(7)}, item.FilePointers())
	item.Item = &backuppb.RemoteDeletedMessage{}
	assert.Empty(t, item.FilePointers())
}

func TestContact_ServiceIDs(t *testing.T) {
	aci := uuid.New()
	contact := &backuppb.Contact{Aci: aci[:], Pni: []byte{1, 2}}
	assert.Equal(t, aci, contact.ACI())
	assert.Equal(t, uuid.Nil, contact.PNI())
}

func TestGroupCallChatUpdate_Participants(t *testing.T) {
	aci := uuid.New()
	update := &backuppb.GroupCallChatUpdate{InCallACIs: [][]byte{aci[:], {1, 2, 3}}}
	assert.Equal(t, []uuid.UUID{aci, uuid.Nil}, update.Participants())
}

func TestGroupChange_OneofViolation(t *testing.T) {
	var inner []byte
	inner = protowire.AppendTag(inner, 2, protowire.BytesType)
	inner = protowire.AppendBytes(inner, nil)
	inner = protowire.AppendTag(inner, 29, protowire.BytesType)
	inner = protowire.AppendBytes(inner, nil)
	var change []byte
	change = protowire.AppendTag(change, 1, protowire.BytesType)
	change = protowire.AppendBytes(change, inner)
	var update []byte
	update = protowire.AppendTag(update, 8, protowire.BytesType)
	update = protowire.AppendBytes(update, change)

	err := backuppb.Unmarshal(update, &backuppb.ChatUpdateMessage{})
	require.ErrorIs(t, err, backuppb.ErrInvalidProtobuf)
	assert.Contains(t, err.Error(), "oneof violation: update")
}

func TestContactAttachment_VCard(t *testing.T) {
	contact := &backuppb.ContactAttachment{
		Name: &backuppb.ContactName{GivenName: "Alice", FamilyName: "Liddell", DisplayName: "Alice Liddell"},
		Number: []*backuppb.ContactPhone{{
			Value: "+15555550100",
			Type:  backuppb.ContactFieldMobile,
		}},
		Email: []*backuppb.ContactEmail{{
			Value: "alice@example.com",
			Type:  backuppb.ContactFieldCustom,
			Label: "Wonderland",
		}},
		Organization: "Looking Glass",
	}
	roundTrip(t, contact, &backuppb.ContactAttachment{})

	card := contact.VCard()
	assert.Equal(t, "Alice Liddell", card.PreferredValue("FN"))
	assert.Equal(t, "Looking Glass", card.PreferredValue("ORG"))
	require.NotNil(t, card.Name())
	assert.Equal(t, "Liddell", card.Name().FamilyName)
	tel := card.Get("TEL")
	require.NotNil(t, tel)
	assert.Equal(t, "+15555550100", tel.Value)
	assert.Equal(t, "mobile", tel.Params.Get("TYPE"))
	email := card.Get("EMAIL")
	require.NotNil(t, email)
	assert.Equal(t, "Wonderland", email.Params.Get("LABEL"))
}
