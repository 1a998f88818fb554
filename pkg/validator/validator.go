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

// Package validator checks that every id reference in a backup points at an entity
// declared earlier in the same stream.
package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"go.mau.fi/signalbackup/pkg/backuppb"
)

// Policy decides what happens to a frame that fails validation.
type Policy int

const (
	// FailFast aborts at the first invalid frame. Exports must use this policy.
	FailFast Policy = iota
	// SkipAndReport drops invalid frames and records them as diagnostics.
	SkipAndReport
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case SkipAndReport:
		return "skip_and_report"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "fail_fast":
		return FailFast, nil
	case "skip_and_report":
		return SkipAndReport, nil
	default:
		return 0, fmt.Errorf("unknown validation policy %q", name)
	}
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) (err error) {
	*p, err = ParsePolicy(string(text))
	return
}

const DefaultMaxDiagnostics = 1000

const SupportedBackupVersion = 1

var (
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	ErrMissingBackupInfo    = errors.New("frame encountered before backup info")
	ErrDuplicateBackupInfo  = errors.New("backup info encountered twice")
	ErrUnsupportedVersion   = errors.New("unsupported backup version")
)

// Kind classifies referential integrity violations.
type Kind string

const (
	KindDanglingRecipient  Kind = "dangling_recipient"
	KindDanglingChat       Kind = "dangling_chat"
	KindDuplicateRecipient Kind = "duplicate_recipient"
	KindDuplicateChat      Kind = "duplicate_chat"
	KindRevisionMismatch   Kind = "revision_mismatch"
	KindRevisionTooDeep    Kind = "revision_too_deep"
)

// ReferentialIntegrityError describes an id reference that couldn't be resolved.
// It matches [ErrReferentialIntegrity] with errors.Is.
type ReferentialIntegrityError struct {
	Kind  Kind
	Field string
	IDs   []uint64
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s: %s in %s (ids %v)", ErrReferentialIntegrity, e.Kind, e.Field, e.IDs)
}

func (e *ReferentialIntegrityError) Is(target error) bool {
	return target == ErrReferentialIntegrity
}

// Diagnostic is a frame that was dropped under [SkipAndReport].
type Diagnostic struct {
	// FrameIndex is the zero-based index of the frame after the backup info.
	FrameIndex int
	// FrameKind is the type of the frame item, or empty if the frame couldn't be decoded.
	FrameKind string
	Err       error
}

// Validator is a single-pass fold over the frames of one backup. It isn't safe for concurrent use.
type Validator struct {
	Policy         Policy
	MaxDiagnostics int

	info        *backuppb.BackupInfo
	recipients  map[uint64]struct{}
	chats       map[uint64]struct{}
	frameIndex  int
	diagnostics []Diagnostic
	overflow    int
}

// New creates a validator with the given policy and [DefaultMaxDiagnostics].
func New(policy Policy) *Validator {
	return &Validator{
		Policy:         policy,
		MaxDiagnostics: DefaultMaxDiagnostics,
		recipients:     make(map[uint64]struct{}),
		chats:          make(map[uint64]struct{}),
	}
}

// ValidateInfo checks the backup header. It must be called exactly once, before any frames.
// Header problems are never skippable.
func (v *Validator) ValidateInfo(info *backuppb.BackupInfo) error {
	if v.info != nil {
		return ErrDuplicateBackupInfo
	} else if info.Version != SupportedBackupVersion {
		return fmt.Errorf("%w %d", ErrUnsupportedVersion, info.Version)
	}
	v.info = info
	return nil
}

// Validate checks a frame and registers the ids it declares.
//
// Under [FailFast], a violation is returned as a [*ReferentialIntegrityError]. Under
// [SkipAndReport], the violation is recorded as a diagnostic and Validate returns false
// without an error. The returned error is always fatal for the stream.
func (v *Validator) Validate(ctx context.Context, frame *backuppb.Frame) (bool, error) {
	if v.info == nil {
		return false, ErrMissingBackupInfo
	}
	err := v.check(frame)
	if err == nil {
		v.frameIndex++
		return true, nil
	}
	return false, v.Report(ctx, frame.Kind(), err)
}

// Report handles a frame-level error according to the policy, and counts the frame.
// It is used for frames that failed decoding, so that they get the same treatment
// as frames that failed validation.
func (v *Validator) Report(ctx context.Context, frameKind string, err error) error {
	index := v.frameIndex
	v.frameIndex++
	if v.Policy == FailFast {
		return fmt.Errorf("frame #%d: %w", index, err)
	}
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Int("frame_index", index).
		Str("frame_kind", frameKind).
		Msg("Skipping invalid backup frame")
	if v.MaxDiagnostics > 0 && len(v.diagnostics) >= v.MaxDiagnostics {
		v.overflow++
	} else {
		v.diagnostics = append(v.diagnostics, Diagnostic{FrameIndex: index, FrameKind: frameKind, Err: err})
	}
	return nil
}

// CountUnchecked counts a frame that was accepted without validation.
func (v *Validator) CountUnchecked() {
	v.frameIndex++
}

// Diagnostics returns the frames dropped so far.
func (v *Validator) Diagnostics() []Diagnostic {
	return v.diagnostics
}

// DroppedDiagnostics returns how many diagnostics didn't fit in the list.
func (v *Validator) DroppedDiagnostics() int {
	return v.overflow
}

// FrameCount returns the number of frames checked or reported so far.
func (v *Validator) FrameCount() int {
	return v.frameIndex
}

func (v *Validator) HasRecipient(id uint64) bool {
	_, ok := v.recipients[id]
	return ok
}

func (v *Validator) HasChat(id uint64) bool {
	_, ok := v.chats[id]
	return ok
}

func (v *Validator) check(frame *backuppb.Frame) error {
	switch item := frame.Item.(type) {
	case *backuppb.Recipient:
		return v.checkRecipient(item)
	case *backuppb.Chat:
		return v.checkChat(item)
	case *backuppb.ChatItem:
		return v.checkChatItem(item, nil, 0)
	case *backuppb.Call:
		return v.checkCall(item)
	default:
		return nil
	}
}

// missingIDs collects the ids not present in the seen set.
func missingIDs(seen map[uint64]struct{}, ids ...uint64) []uint64 {
	var missing []uint64
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (v *Validator) requireRecipients(field string, ids ...uint64) error {
	if missing := missingIDs(v.recipients, ids...); len(missing) > 0 {
		return &ReferentialIntegrityError{Kind: KindDanglingRecipient, Field: field, IDs: missing}
	}
	return nil
}

func (v *Validator) checkRecipient(recipient *backuppb.Recipient) error {
	if v.HasRecipient(recipient.ID) {
		return &ReferentialIntegrityError{Kind: KindDuplicateRecipient, Field: "recipient.id", IDs: []uint64{recipient.ID}}
	}
	v.recipients[recipient.ID] = struct{}{}
	if dl := recipient.GetDistributionList(); dl != nil {
		err := v.requireRecipients("distributionList.memberRecipientIds", dl.MemberRecipientIDs...)
		if err != nil && v.Policy == FailFast {
			delete(v.recipients, recipient.ID)
		}
		return err
	}
	return nil
}

func (v *Validator) checkChat(chat *backuppb.Chat) error {
	if v.HasChat(chat.ID) {
		return &ReferentialIntegrityError{Kind: KindDuplicateChat, Field: "chat.id", IDs: []uint64{chat.ID}}
	}
	err := v.requireRecipients("chat.recipientId", chat.RecipientID)
	// Under SkipAndReport, the id of a dropped frame stays declared so that frames
	// referring to it aren't reported a second time. Under FailFast the frame was
	// rejected, so nothing may refer to it.
	if err == nil || v.Policy == SkipAndReport {
		v.chats[chat.ID] = struct{}{}
	}
	return err
}

func (v *Validator) checkChatItem(item, parent *backuppb.ChatItem, depth int) error {
	if depth > backuppb.MaxRevisionDepth {
		return &ReferentialIntegrityError{Kind: KindRevisionTooDeep, Field: "chatItem.revisions", IDs: []uint64{item.DateSent}}
	}
	if parent != nil {
		if item.ChatID != parent.ChatID {
			return &ReferentialIntegrityError{Kind: KindRevisionMismatch, Field: "chatItem.revisions.chatId", IDs: []uint64{parent.ChatID, item.ChatID}}
		} else if item.AuthorID != parent.AuthorID {
			return &ReferentialIntegrityError{Kind: KindRevisionMismatch, Field: "chatItem.revisions.authorId", IDs: []uint64{parent.AuthorID, item.AuthorID}}
		}
	} else if !v.HasChat(item.ChatID) {
		return &ReferentialIntegrityError{Kind: KindDanglingChat, Field: "chatItem.chatId", IDs: []uint64{item.ChatID}}
	} else if err := v.requireRecipients("chatItem.authorId", item.AuthorID); err != nil {
		return err
	}
	if outgoing, ok := item.Direction.(*backuppb.OutgoingMessageDetails); ok {
		ids := make([]uint64, len(outgoing.SendStatus))
		for i, status := range outgoing.SendStatus {
			ids[i] = status.RecipientID
		}
		if err := v.requireRecipients("chatItem.outgoing.sendStatus.recipientId", ids...); err != nil {
			return err
		}
	}
	if quote := item.Quote(); quote != nil {
		if err := v.requireRecipients("chatItem.quote.authorId", quote.AuthorID); err != nil {
			return err
		}
	}
	if reactions := item.Reactions(); len(reactions) > 0 {
		ids := make([]uint64, len(reactions))
		for i, reaction := range reactions {
			ids[i] = reaction.AuthorID
		}
		if err := v.requireRecipients("chatItem.reactions.authorId", ids...); err != nil {
			return err
		}
	}
	for _, revision := range item.Revisions {
		if err := v.checkChatItem(revision, item, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkCall(call *backuppb.Call) error {
	if err := v.requireRecipients("call.conversationRecipientId", call.ConversationRecipientID); err != nil {
		return err
	}
	if call.RingerRecipientID != nil {
		return v.requireRecipients("call.ringerRecipientId", *call.RingerRecipientID)
	}
	return nil
}
