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

package backuppb

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxRevisionDepth is how deeply ChatItem revisions may nest. Revisions are edit
// history entries of a top-level item and can't carry revisions of their own.
const MaxRevisionDepth = 1

// ChatItem is a single message or event in a chat.
type ChatItem struct {
	ChatID          uint64
	AuthorID        uint64
	DateSent        uint64
	SealedSender    bool
	ExpireStartDate *uint64
	ExpiresInMs     *uint64
	Revisions       []*ChatItem
	SMS             bool
	Direction       ChatItemDirection
	Item            ChatItemContent

	Unknown []byte
}

// ChatItemDirection is one of [*IncomingMessageDetails], [*OutgoingMessageDetails]
// or [*DirectionlessMessageDetails].
type ChatItemDirection interface {
	Message
	isChatItemDirection()
}

func (*IncomingMessageDetails) isChatItemDirection()      {}
func (*OutgoingMessageDetails) isChatItemDirection()      {}
func (*DirectionlessMessageDetails) isChatItemDirection() {}

// ChatItemContent is one of [*StandardMessage], [*ContactMessage], [*VoiceMessage],
// [*StickerMessage], [*RemoteDeletedMessage] or [*ChatUpdateMessage].
type ChatItemContent interface {
	Message
	isChatItemContent()
}

func (*StandardMessage) isChatItemContent()      {}
func (*ContactMessage) isChatItemContent()       {}
func (*VoiceMessage) isChatItemContent()         {}
func (*StickerMessage) isChatItemContent()       {}
func (*RemoteDeletedMessage) isChatItemContent() {}
func (*ChatUpdateMessage) isChatItemContent()    {}

var (
	ErrNoDirection = errors.New("chat item has no direction")
	ErrNoContent   = errors.New("chat item has no content")
)

func (ci *ChatItem) checkEncode() error {
	if ci.Direction == nil {
		return ErrNoDirection
	} else if ci.Item == nil {
		return ErrNoContent
	}
	if ec, ok := ci.Item.(encodeChecker); ok {
		if err := ec.checkEncode(); err != nil {
			return err
		}
	}
	for i, rev := range ci.Revisions {
		if err := rev.checkEncode(); err != nil {
			return fmt.Errorf("revision #%d: %w", i+1, err)
		}
	}
	return nil
}

func (ci *ChatItem) appendTo(b []byte) []byte {
	b = appendRequiredUint(b, 1, ci.ChatID)
	b = appendRequiredUint(b, 2, ci.AuthorID)
	b = appendRequiredUint(b, 3, ci.DateSent)
	b = appendBool(b, 4, ci.SealedSender)
	b = appendOptUint(b, 5, ci.ExpireStartDate)
	b = appendOptUint(b, 6, ci.ExpiresInMs)
	for _, rev := range ci.Revisions {
		b = appendMessage(b, 7, rev)
	}
	b = appendBool(b, 8, ci.SMS)
	var num protowire.Number
	switch ci.Direction.(type) {
	case *IncomingMessageDetails:
		num = 9
	case *OutgoingMessageDetails:
		num = 10
	case *DirectionlessMessageDetails:
		num = 11
	}
	if num != 0 {
		b = appendMessage(b, num, ci.Direction)
	}
	num = 0
	switch ci.Item.(type) {
	case *StandardMessage:
		num = 12
	case *ContactMessage:
		num = 13
	case *VoiceMessage:
		num = 14
	case *StickerMessage:
		num = 15
	case *RemoteDeletedMessage:
		num = 16
	case *ChatUpdateMessage:
		num = 17
	}
	if num != 0 {
		b = appendMessage(b, num, ci.Item)
	}
	return appendUnknown(b, ci.Unknown)
}

func (ci *ChatItem) unmarshal(b []byte) error {
	return ci.decode(b, 0)
}

func (ci *ChatItem) decode(b []byte, depth int) (err error) {
	const msg = "ChatItem"
	*ci = ChatItem{}
	var hasChatID, hasAuthorID, hasDateSent bool
	direction := oneof{name: "directionalDetails"}
	content := oneof{name: "item"}
	ci.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			ci.ChatID, err = f.uint64("chatId")
			hasChatID = true
		case 2:
			ci.AuthorID, err = f.uint64("authorId")
			hasAuthorID = true
		case 3:
			ci.DateSent, err = f.uint64("dateSent")
			hasDateSent = true
		case 4:
			ci.SealedSender, err = f.bool("sealedSender")
		case 5:
			ci.ExpireStartDate, err = optUint64(f, "expireStartDate")
		case 6:
			ci.ExpiresInMs, err = optUint64(f, "expiresInMs")
		case 7:
			if depth >= MaxRevisionDepth {
				return true, invalid(msg, "revision nesting too deep")
			}
			var payload []byte
			if payload, err = f.payload("revisions"); err != nil {
				return true, err
			}
			rev := &ChatItem{}
			err = rev.decode(payload, depth+1)
			ci.Revisions = append(ci.Revisions, rev)
		case 8:
			ci.SMS, err = f.bool("sms")
		case 9, 10, 11:
			var into ChatItemDirection
			var name string
			switch f.num {
			case 9:
				into, name = &IncomingMessageDetails{}, "incoming"
			case 10:
				into, name = &OutgoingMessageDetails{}, "outgoing"
			default:
				into, name = &DirectionlessMessageDetails{}, "directionless"
			}
			if err = direction.claim(msg); err != nil {
				return true, err
			}
			ci.Direction = into
			err = f.message(name, into)
		case 12, 13, 14, 15, 16, 17:
			var into ChatItemContent
			var name string
			switch f.num {
			case 12:
				into, name = &StandardMessage{}, "standardMessage"
			case 13:
				into, name = &ContactMessage{}, "contactMessage"
			case 14:
				into, name = &VoiceMessage{}, "voiceMessage"
			case 15:
				into, name = &StickerMessage{}, "stickerMessage"
			case 16:
				into, name = &RemoteDeletedMessage{}, "remoteDeletedMessage"
			default:
				into, name = &ChatUpdateMessage{}, "updateMessage"
			}
			if err = content.claim(msg); err != nil {
				return true, err
			}
			ci.Item = into
			err = f.message(name, into)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasChatID {
		return missing(msg, "chatId")
	} else if !hasAuthorID {
		return missing(msg, "authorId")
	} else if !hasDateSent {
		return missing(msg, "dateSent")
	} else if err = direction.require(msg); err != nil {
		return err
	}
	return content.require(msg)
}

// Reactions returns the reactions attached to the item content, if the content type supports them.
func (ci *ChatItem) Reactions() []*Reaction {
	switch item := ci.Item.(type) {
	case *StandardMessage:
		return item.Reactions
	case *ContactMessage:
		return item.Reactions
	case *VoiceMessage:
		return item.Reactions
	case *StickerMessage:
		return item.Reactions
	default:
		return nil
	}
}

// Quote returns the quote of the item content, if any.
func (ci *ChatItem) Quote() *Quote {
	switch item := ci.Item.(type) {
	case *StandardMessage:
		return item.Quote
	case *VoiceMessage:
		return item.Quote
	default:
		return nil
	}
}

// FilePointers returns every attachment referenced by the item content, including
// quote thumbnails. Revisions aren't included.
func (ci *ChatItem) FilePointers() []*FilePointer {
	var out []*FilePointer
	add := func(fps ...*FilePointer) {
		for _, fp := range fps {
			if fp != nil {
				out = append(out, fp)
			}
		}
	}
	if quote := ci.Quote(); quote != nil {
		for _, qa := range quote.Attachments {
			add(qa.Thumbnail)
		}
	}
	switch item := ci.Item.(type) {
	case *StandardMessage:
		add(item.Attachments...)
		add(item.LongText)
		for _, lp := range item.LinkPreview {
			add(lp.Image)
		}
	case *ContactMessage:
		for _, contact := range item.Contact {
			add(contact.Avatar)
		}
	case *VoiceMessage:
		add(item.Audio)
	case *StickerMessage:
		if item.Sticker != nil {
			add(item.Sticker.Data)
		}
	}
	return out
}

type IncomingMessageDetails struct {
	DateReceived   uint64
	DateServerSent *uint64
	Read           bool

	Unknown []byte
}

func (imd *IncomingMessageDetails) appendTo(b []byte) []byte {
	b = appendUint(b, 1, imd.DateReceived)
	b = appendOptUint(b, 2, imd.DateServerSent)
	b = appendBool(b, 3, imd.Read)
	return appendUnknown(b, imd.Unknown)
}

func (imd *IncomingMessageDetails) unmarshal(b []byte) (err error) {
	*imd = IncomingMessageDetails{}
	imd.Unknown, err = parseFields("IncomingMessageDetails", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			imd.DateReceived, err = f.uint64("dateReceived")
		case 2:
			imd.DateServerSent, err = optUint64(f, "dateServerSent")
		case 3:
			imd.Read, err = f.bool("read")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type OutgoingMessageDetails struct {
	SendStatus []*SendStatus

	Unknown []byte
}

func (omd *OutgoingMessageDetails) appendTo(b []byte) []byte {
	for _, status := range omd.SendStatus {
		b = appendMessage(b, 1, status)
	}
	return appendUnknown(b, omd.Unknown)
}

func (omd *OutgoingMessageDetails) unmarshal(b []byte) (err error) {
	*omd = OutgoingMessageDetails{}
	omd.Unknown, err = parseFields("OutgoingMessageDetails", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		status := &SendStatus{}
		err = f.message("sendStatus", status)
		omd.SendStatus = append(omd.SendStatus, status)
		return true, err
	})
	return
}

type DirectionlessMessageDetails struct {
	Unknown []byte
}

func (dmd *DirectionlessMessageDetails) appendTo(b []byte) []byte {
	return appendUnknown(b, dmd.Unknown)
}

func (dmd *DirectionlessMessageDetails) unmarshal(b []byte) (err error) {
	dmd.Unknown, err = parseFields("DirectionlessMessageDetails", b, ignoreAll)
	return
}

// SendStatus is the delivery state of an outgoing message for one recipient.
type SendStatus struct {
	RecipientID               uint64
	DeliveryStatus            DeliveryStatus
	NetworkFailure            bool
	IdentityKeyMismatch       bool
	SealedSender              bool
	LastStatusUpdateTimestamp uint64

	Unknown []byte
}

func (ss *SendStatus) appendTo(b []byte) []byte {
	b = appendRequiredUint(b, 1, ss.RecipientID)
	b = appendUint(b, 2, ss.DeliveryStatus)
	b = appendBool(b, 3, ss.NetworkFailure)
	b = appendBool(b, 4, ss.IdentityKeyMismatch)
	b = appendBool(b, 5, ss.SealedSender)
	b = appendUint(b, 6, ss.LastStatusUpdateTimestamp)
	return appendUnknown(b, ss.Unknown)
}

func (ss *SendStatus) unmarshal(b []byte) (err error) {
	const msg = "SendStatus"
	*ss = SendStatus{}
	var hasRecipientID bool
	ss.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			ss.RecipientID, err = f.uint64("recipientId")
			hasRecipientID = true
		case 2:
			ss.DeliveryStatus, err = enum(f, "deliveryStatus", DeliveryStatusSkipped)
		case 3:
			ss.NetworkFailure, err = f.bool("networkFailure")
		case 4:
			ss.IdentityKeyMismatch, err = f.bool("identityKeyMismatch")
		case 5:
			ss.SealedSender, err = f.bool("sealedSender")
		case 6:
			ss.LastStatusUpdateTimestamp, err = f.uint64("lastStatusUpdateTimestamp")
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasRecipientID {
		return missing(msg, "recipientId")
	}
	return nil
}
