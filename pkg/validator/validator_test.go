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

package validator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/util/ptr"

	"go.mau.fi/signalbackup/pkg/backuppb"
	"go.mau.fi/signalbackup/pkg/validator"
)

func recipient(id uint64) *backuppb.Frame {
	return &backuppb.Frame{Item: &backuppb.Recipient{ID: id, Destination: &backuppb.SelfRecipient{}}}
}

func chat(id, recipientID uint64) *backuppb.Frame {
	return &backuppb.Frame{Item: &backuppb.Chat{ID: id, RecipientID: recipientID, PinnedOrder: ptr.Ptr[uint32](0)}}
}

func chatItem(chatID, authorID uint64) *backuppb.ChatItem {
	return &backuppb.ChatItem{
		ChatID:    chatID,
		AuthorID:  authorID,
		DateSent:  2000,
		Direction: &backuppb.OutgoingMessageDetails{},
		Item:      &backuppb.StandardMessage{Text: &backuppb.Text{Body: "hi"}},
	}
}

func newValidator(t *testing.T, policy validator.Policy) *validator.Validator {
	v := validator.New(policy)
	require.NoError(t, v.ValidateInfo(&backuppb.BackupInfo{Version: 1, BackupTimeMs: 1000}))
	return v
}

func validateAll(v *validator.Validator, frames ...*backuppb.Frame) (accepted []*backuppb.Frame, err error) {
	for _, frame := range frames {
		ok, err := v.Validate(context.Background(), frame)
		if err != nil {
			return accepted, err
		} else if ok {
			accepted = append(accepted, frame)
		}
	}
	return accepted, nil
}

func TestValidate_WellFormed(t *testing.T) {
	v := newValidator(t, validator.FailFast)
	frames := []*backuppb.Frame{recipient(5), chat(9, 5), {Item: chatItem(9, 5)}}
	accepted, err := validateAll(v, frames...)
	require.NoError(t, err)
	assert.Len(t, accepted, 3)
	assert.Empty(t, v.Diagnostics())
	assert.Equal(t, 3, v.FrameCount())
}

func TestValidate_DanglingReference(t *testing.T) {
	frames := []*backuppb.Frame{recipient(5), chat(9, 99), {Item: chatItem(9, 5)}}

	t.Run("FailFast", func(t *testing.T) {
		_, err := validateAll(newValidator(t, validator.FailFast), frames...)
		require.ErrorIs(t, err, validator.ErrReferentialIntegrity)
		var rie *validator.ReferentialIntegrityError
		require.ErrorAs(t, err, &rie)
		assert.Equal(t, validator.KindDanglingRecipient, rie.Kind)
		assert.Equal(t, "chat.recipientId", rie.Field)
		assert.Equal(t, []uint64{99}, rie.IDs)
	})
	t.Run("SkipAndReport", func(t *testing.T) {
		v := newValidator(t, validator.SkipAndReport)
		accepted, err := validateAll(v, frames...)
		require.NoError(t, err)
		require.Len(t, accepted, 2)
		assert.Same(t, frames[2], accepted[1])
		require.Len(t, v.Diagnostics(), 1)
		diag := v.Diagnostics()[0]
		assert.Equal(t, 1, diag.FrameIndex)
		assert.Equal(t, "chat", diag.FrameKind)
		assert.ErrorIs(t, diag.Err, validator.ErrReferentialIntegrity)
	})
}

func TestValidate_FailFastRejectedIDsStayUndeclared(t *testing.T) {
	v := newValidator(t, validator.FailFast)
	ctx := context.Background()
	ok, err := v.Validate(ctx, chat(9, 99))
	assert.False(t, ok)
	require.ErrorIs(t, err, validator.ErrReferentialIntegrity)
	assert.False(t, v.HasChat(9))

	dl := &backuppb.Frame{Item: &backuppb.Recipient{ID: 3, Destination: &backuppb.DistributionList{MemberRecipientIDs: []uint64{4}}}}
	_, err = v.Validate(ctx, dl)
	require.ErrorIs(t, err, validator.ErrReferentialIntegrity)
	assert.False(t, v.HasRecipient(3))

	ok, err = v.Validate(ctx, recipient(5))
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = v.Validate(ctx, &backuppb.Frame{Item: chatItem(9, 5)})
	var rie *validator.ReferentialIntegrityError
	require.ErrorAs(t, err, &rie)
	assert.Equal(t, validator.KindDanglingChat, rie.Kind)
	assert.Equal(t, []uint64{9}, rie.IDs)
}

func TestValidate_ForwardReference(t *testing.T) {
	frames := []*backuppb.Frame{chat(9, 5), recipient(5)}
	_, err := validateAll(newValidator(t, validator.FailFast), frames...)
	assert.ErrorIs(t, err, validator.ErrReferentialIntegrity)

	v := newValidator(t, validator.SkipAndReport)
	accepted, err := validateAll(v, frames...)
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
	assert.Len(t, v.Diagnostics(), 1)
}

func TestValidate_Duplicates(t *testing.T) {
	v := newValidator(t, validator.SkipAndReport)
	accepted, err := validateAll(v, recipient(1), recipient(1), chat(2, 1), chat(2, 1))
	require.NoError(t, err)
	assert.Len(t, accepted, 2)
	require.Len(t, v.Diagnostics(), 2)
	var rie *validator.ReferentialIntegrityError
	require.ErrorAs(t, v.Diagnostics()[0].Err, &rie)
	assert.Equal(t, validator.KindDuplicateRecipient, rie.Kind)
	require.ErrorAs(t, v.Diagnostics()[1].Err, &rie)
	assert.Equal(t, validator.KindDuplicateChat, rie.Kind)
}

func TestValidate_ChatItemReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(item *backuppb.ChatItem)
		kind   validator.Kind
		field  string
	}{
		{"UnknownChat", func(item *backuppb.ChatItem) { item.ChatID = 100 }, validator.KindDanglingChat, "chatItem.chatId"},
		{"UnknownAuthor", func(item *backuppb.ChatItem) { item.AuthorID = 100 }, validator.KindDanglingRecipient, "chatItem.authorId"},
		{"UnknownSendStatusRecipient", func(item *backuppb.ChatItem) {
			item.Direction = &backuppb.OutgoingMessageDetails{SendStatus: []*backuppb.SendStatus{{RecipientID: 1}, {RecipientID: 100}}}
		}, validator.KindDanglingRecipient, "chatItem.outgoing.sendStatus.recipientId"},
		{"UnknownQuoteAuthor", func(item *backuppb.ChatItem) {
			item.Item.(*backuppb.StandardMessage).Quote = &backuppb.Quote{AuthorID: 100}
		}, validator.KindDanglingRecipient, "chatItem.quote.authorId"},
		{"UnknownReactionAuthor", func(item *backuppb.ChatItem) {
			item.Item.(*backuppb.StandardMessage).Reactions = []*backuppb.Reaction{{AuthorID: 100, Emoji: "🎉"}}
		}, validator.KindDanglingRecipient, "chatItem.reactions.authorId"},
		{"RevisionInOtherChat", func(item *backuppb.ChatItem) {
			item.Revisions = []*backuppb.ChatItem{chatItem(3, 1)}
		}, validator.KindRevisionMismatch, "chatItem.revisions.chatId"},
		{"RevisionByOtherAuthor", func(item *backuppb.ChatItem) {
			item.Revisions = []*backuppb.ChatItem{chatItem(2, 2)}
		}, validator.KindRevisionMismatch, "chatItem.revisions.authorId"},
		{"RevisionWithUnknownReactionAuthor", func(item *backuppb.ChatItem) {
			rev := chatItem(2, 1)
			rev.Item.(*backuppb.StandardMessage).Reactions = []*backuppb.Reaction{{AuthorID: 100}}
			item.Revisions = []*backuppb.ChatItem{rev}
		}, validator.KindDanglingRecipient, "chatItem.reactions.authorId"},
		{"NestedRevisions", func(item *backuppb.ChatItem) {
			rev := chatItem(2, 1)
			rev.Revisions = []*backuppb.ChatItem{chatItem(2, 1)}
			item.Revisions = []*backuppb.ChatItem{rev}
		}, validator.KindRevisionTooDeep, "chatItem.revisions"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := newValidator(t, validator.FailFast)
			_, err := validateAll(v, recipient(1), recipient(2), chat(2, 1))
			require.NoError(t, err)
			item := chatItem(2, 1)
			test.mutate(item)
			_, err = v.Validate(context.Background(), &backuppb.Frame{Item: item})
			var rie *validator.ReferentialIntegrityError
			require.ErrorAs(t, err, &rie)
			assert.Equal(t, test.kind, rie.Kind)
			assert.Equal(t, test.field, rie.Field)
		})
	}
}

func TestValidate_CallsAndDistributionLists(t *testing.T) {
	v := newValidator(t, validator.SkipAndReport)
	accepted, err := validateAll(v,
		recipient(1),
		&backuppb.Frame{Item: &backuppb.Recipient{ID: 2, Destination: &backuppb.DistributionList{MemberRecipientIDs: []uint64{1, 7, 8}}}},
		&backuppb.Frame{Item: &backuppb.Call{CallID: 1, ConversationRecipientID: 1, RingerRecipientID: ptr.Ptr[uint64](1)}},
		&backuppb.Frame{Item: &backuppb.Call{CallID: 2, ConversationRecipientID: 1, RingerRecipientID: ptr.Ptr[uint64](3)}},
	)
	require.NoError(t, err)
	assert.Len(t, accepted, 2)
	require.Len(t, v.Diagnostics(), 2)
	var rie *validator.ReferentialIntegrityError
	require.ErrorAs(t, v.Diagnostics()[0].Err, &rie)
	assert.Equal(t, []uint64{7, 8}, rie.IDs)
	assert.True(t, v.HasRecipient(2))
	require.ErrorAs(t, v.Diagnostics()[1].Err, &rie)
	assert.Equal(t, "call.ringerRecipientId", rie.Field)
}

func TestValidate_BackupInfo(t *testing.T) {
	v := validator.New(validator.SkipAndReport)
	_, err := v.Validate(context.Background(), recipient(1))
	assert.ErrorIs(t, err, validator.ErrMissingBackupInfo)

	err = v.ValidateInfo(&backuppb.BackupInfo{Version: 2})
	assert.ErrorIs(t, err, validator.ErrUnsupportedVersion)
	require.NoError(t, v.ValidateInfo(&backuppb.BackupInfo{Version: 1}))
	assert.ErrorIs(t, v.ValidateInfo(&backuppb.BackupInfo{Version: 1}), validator.ErrDuplicateBackupInfo)
}

func TestReport_DiagnosticsBounded(t *testing.T) {
	v := newValidator(t, validator.SkipAndReport)
	v.MaxDiagnostics = 2
	errBroken := errors.New("broken")
	for range 5 {
		require.NoError(t, v.Report(context.Background(), "", errBroken))
	}
	assert.Len(t, v.Diagnostics(), 2)
	assert.Equal(t, 3, v.DroppedDiagnostics())
	assert.Equal(t, 5, v.FrameCount())

	failFast := newValidator(t, validator.FailFast)
	assert.ErrorIs(t, failFast.Report(context.Background(), "", errBroken), errBroken)
}

func TestParsePolicy(t *testing.T) {
	var p validator.Policy
	require.NoError(t, p.UnmarshalText([]byte("skip_and_report")))
	assert.Equal(t, validator.SkipAndReport, p)
	assert.Equal(t, "fail_fast", validator.FailFast.String())
	assert.Error(t, p.UnmarshalText([]byte("whatever")))
}
