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

// Chat is a conversation with a single recipient, which may be a contact, a group
// or the account itself.
type Chat struct {
	ID                           uint64
	RecipientID                  uint64
	Archived                     bool
	PinnedOrder                  *uint32
	ExpirationTimerMs            *uint64
	MuteUntilMs                  *uint64
	MarkedUnread                 bool
	DontNotifyForMentionsIfMuted bool
	Wallpaper                    *FilePointer

	Unknown []byte
}

func (c *Chat) appendTo(b []byte) []byte {
	b = appendRequiredUint(b, 1, c.ID)
	b = appendRequiredUint(b, 2, c.RecipientID)
	b = appendBool(b, 3, c.Archived)
	b = appendOptUint(b, 4, c.PinnedOrder)
	b = appendOptUint(b, 5, c.ExpirationTimerMs)
	b = appendOptUint(b, 6, c.MuteUntilMs)
	b = appendBool(b, 7, c.MarkedUnread)
	b = appendBool(b, 8, c.DontNotifyForMentionsIfMuted)
	if c.Wallpaper != nil {
		b = appendMessage(b, 9, c.Wallpaper)
	}
	return appendUnknown(b, c.Unknown)
}

func (c *Chat) unmarshal(b []byte) (err error) {
	const msg = "Chat"
	*c = Chat{}
	var hasID, hasRecipientID bool
	c.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			c.ID, err = f.uint64("id")
			hasID = true
		case 2:
			c.RecipientID, err = f.uint64("recipientId")
			hasRecipientID = true
		case 3:
			c.Archived, err = f.bool("archived")
		case 4:
			c.PinnedOrder, err = optUint32(f, "pinnedOrder")
		case 5:
			c.ExpirationTimerMs, err = optUint64(f, "expirationTimerMs")
		case 6:
			c.MuteUntilMs, err = optUint64(f, "muteUntilMs")
		case 7:
			c.MarkedUnread, err = f.bool("markedUnread")
		case 8:
			c.DontNotifyForMentionsIfMuted, err = f.bool("dontNotifyForMentionsIfMuted")
		case 9:
			c.Wallpaper = &FilePointer{}
			err = f.message("wallpaper", c.Wallpaper)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasID {
		return missing(msg, "id")
	} else if !hasRecipientID {
		return missing(msg, "recipientId")
	}
	return nil
}

// Call is an entry in the call log.
type Call struct {
	CallID                  uint64
	ConversationRecipientID uint64
	Type                    CallType
	Outgoing                bool
	Timestamp               uint64
	RingerRecipientID       *uint64
	Event                   CallEvent

	Unknown []byte
}

func (c *Call) appendTo(b []byte) []byte {
	b = appendRequiredUint(b, 1, c.CallID)
	b = appendRequiredUint(b, 2, c.ConversationRecipientID)
	b = appendUint(b, 3, c.Type)
	b = appendBool(b, 4, c.Outgoing)
	b = appendUint(b, 5, c.Timestamp)
	b = appendOptUint(b, 6, c.RingerRecipientID)
	b = appendUint(b, 7, c.Event)
	return appendUnknown(b, c.Unknown)
}

func (c *Call) unmarshal(b []byte) (err error) {
	const msg = "Call"
	*c = Call{}
	var hasCallID, hasConversation bool
	c.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			c.CallID, err = f.uint64("callId")
			hasCallID = true
		case 2:
			c.ConversationRecipientID, err = f.uint64("conversationRecipientId")
			hasConversation = true
		case 3:
			c.Type, err = enum(f, "type", CallTypeAdHoc)
		case 4:
			c.Outgoing, err = f.bool("outgoing")
		case 5:
			c.Timestamp, err = f.uint64("timestamp")
		case 6:
			c.RingerRecipientID, err = optUint64(f, "ringerRecipientId")
		case 7:
			c.Event, err = enum(f, "event", CallEventOutgoingRing)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasCallID {
		return missing(msg, "callId")
	} else if !hasConversation {
		return missing(msg, "conversationRecipientId")
	}
	return nil
}

// StickerPack is an installed sticker pack.
type StickerPack struct {
	PackID   []byte
	PackKey  []byte
	Title    string
	Author   string
	Stickers []*StickerPackSticker

	Unknown []byte
}

func (sp *StickerPack) appendTo(b []byte) []byte {
	b = appendRequiredBytes(b, 1, sp.PackID)
	b = appendRequiredBytes(b, 2, sp.PackKey)
	b = appendString(b, 3, sp.Title)
	b = appendString(b, 4, sp.Author)
	for _, sticker := range sp.Stickers {
		b = appendMessage(b, 5, sticker)
	}
	return appendUnknown(b, sp.Unknown)
}

func (sp *StickerPack) unmarshal(b []byte) (err error) {
	const msg = "StickerPack"
	*sp = StickerPack{}
	var hasPackID, hasPackKey bool
	sp.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			sp.PackID, err = f.bytes("packId")
			hasPackID = true
		case 2:
			sp.PackKey, err = f.bytes("packKey")
			hasPackKey = true
		case 3:
			sp.Title, err = f.string("title")
		case 4:
			sp.Author, err = f.string("author")
		case 5:
			sticker := &StickerPackSticker{}
			err = f.message("stickers", sticker)
			sp.Stickers = append(sp.Stickers, sticker)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasPackID {
		return missing(msg, "packId")
	} else if !hasPackKey {
		return missing(msg, "packKey")
	}
	return nil
}

type StickerPackSticker struct {
	Emoji string
	ID    uint32

	Unknown []byte
}

func (s *StickerPackSticker) appendTo(b []byte) []byte {
	b = appendString(b, 1, s.Emoji)
	b = appendUint(b, 2, s.ID)
	return appendUnknown(b, s.Unknown)
}

func (s *StickerPackSticker) unmarshal(b []byte) (err error) {
	*s = StickerPackSticker{}
	s.Unknown, err = parseFields("StickerPackSticker", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			s.Emoji, err = f.string("emoji")
		case 2:
			s.ID, err = f.uint32("id")
		default:
			return false, nil
		}
		return true, err
	})
	return
}
