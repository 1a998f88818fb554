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

	"google.golang.org/protobuf/encoding/protowire"
)

type Text struct {
	Body       string
	BodyRanges []*BodyRange

	Unknown []byte
}

func (t *Text) appendTo(b []byte) []byte {
	b = appendString(b, 1, t.Body)
	for _, br := range t.BodyRanges {
		b = appendMessage(b, 2, br)
	}
	return appendUnknown(b, t.Unknown)
}

func (t *Text) unmarshal(b []byte) (err error) {
	*t = Text{}
	t.Unknown, err = parseFields("Text", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			t.Body, err = f.string("body")
		case 2:
			br := &BodyRange{}
			err = f.message("bodyRanges", br)
			t.BodyRanges = append(t.BodyRanges, br)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

// BodyRange is a mention or a style applied to a part of a message body.
// At most one of MentionACI and Style is set; a range with neither is allowed.
type BodyRange struct {
	Start      uint32
	Length     uint32
	MentionACI []byte
	Style      *BodyRangeStyle

	Unknown []byte
}

var ErrAmbiguousBodyRange = errors.New("body range has both a mention and a style")

func (br *BodyRange) checkEncode() error {
	if br.MentionACI != nil && br.Style != nil {
		return ErrAmbiguousBodyRange
	}
	return nil
}

func (br *BodyRange) appendTo(b []byte) []byte {
	b = appendUint(b, 1, br.Start)
	b = appendUint(b, 2, br.Length)
	if br.MentionACI != nil {
		b = appendRequiredBytes(b, 3, br.MentionACI)
	} else if br.Style != nil {
		b = appendRequiredUint(b, 4, uint64(*br.Style))
	}
	return appendUnknown(b, br.Unknown)
}

func (br *BodyRange) unmarshal(b []byte) (err error) {
	const msg = "BodyRange"
	*br = BodyRange{}
	associated := oneof{name: "associatedValue"}
	br.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			br.Start, err = f.uint32("start")
		case 2:
			br.Length, err = f.uint32("length")
		case 3:
			if err = associated.claim(msg); err == nil {
				br.MentionACI, err = f.bytes("mentionAci")
			}
		case 4:
			if err = associated.claim(msg); err == nil {
				var style BodyRangeStyle
				style, err = enum(f, "style", StyleMonospace)
				br.Style = &style
			}
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type Quote struct {
	TargetSentTimestamp *uint64
	AuthorID            uint64
	Text                *string
	Attachments         []*QuotedAttachment
	BodyRanges          []*BodyRange
	Type                QuoteType

	Unknown []byte
}

func (q *Quote) appendTo(b []byte) []byte {
	b = appendOptUint(b, 1, q.TargetSentTimestamp)
	b = appendRequiredUint(b, 2, q.AuthorID)
	b = appendOptString(b, 3, q.Text)
	for _, att := range q.Attachments {
		b = appendMessage(b, 4, att)
	}
	for _, br := range q.BodyRanges {
		b = appendMessage(b, 5, br)
	}
	b = appendUint(b, 6, q.Type)
	return appendUnknown(b, q.Unknown)
}

func (q *Quote) unmarshal(b []byte) (err error) {
	const msg = "Quote"
	*q = Quote{}
	var hasAuthorID bool
	q.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			q.TargetSentTimestamp, err = optUint64(f, "targetSentTimestamp")
		case 2:
			q.AuthorID, err = f.uint64("authorId")
			hasAuthorID = true
		case 3:
			q.Text, err = optString(f, "text")
		case 4:
			att := &QuotedAttachment{}
			err = f.message("attachments", att)
			q.Attachments = append(q.Attachments, att)
		case 5:
			br := &BodyRange{}
			err = f.message("bodyRanges", br)
			q.BodyRanges = append(q.BodyRanges, br)
		case 6:
			q.Type, err = enum(f, "type", QuoteTypeGiftBadge)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasAuthorID {
		return missing(msg, "authorId")
	}
	return nil
}

type QuotedAttachment struct {
	ContentType *string
	FileName    *string
	Thumbnail   *FilePointer

	Unknown []byte
}

func (qa *QuotedAttachment) appendTo(b []byte) []byte {
	b = appendOptString(b, 1, qa.ContentType)
	b = appendOptString(b, 2, qa.FileName)
	if qa.Thumbnail != nil {
		b = appendMessage(b, 3, qa.Thumbnail)
	}
	return appendUnknown(b, qa.Unknown)
}

func (qa *QuotedAttachment) unmarshal(b []byte) (err error) {
	*qa = QuotedAttachment{}
	qa.Unknown, err = parseFields("QuotedAttachment", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			qa.ContentType, err = optString(f, "contentType")
		case 2:
			qa.FileName, err = optString(f, "fileName")
		case 3:
			qa.Thumbnail = &FilePointer{}
			err = f.message("thumbnail", qa.Thumbnail)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type Reaction struct {
	Emoji             string
	AuthorID          uint64
	SentTimestamp     uint64
	ReceivedTimestamp *uint64
	SortOrder         uint64

	Unknown []byte
}

func (r *Reaction) appendTo(b []byte) []byte {
	b = appendString(b, 1, r.Emoji)
	b = appendRequiredUint(b, 2, r.AuthorID)
	b = appendUint(b, 3, r.SentTimestamp)
	b = appendOptUint(b, 4, r.ReceivedTimestamp)
	b = appendUint(b, 5, r.SortOrder)
	return appendUnknown(b, r.Unknown)
}

func (r *Reaction) unmarshal(b []byte) (err error) {
	const msg = "Reaction"
	*r = Reaction{}
	var hasAuthorID bool
	r.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			r.Emoji, err = f.string("emoji")
		case 2:
			r.AuthorID, err = f.uint64("authorId")
			hasAuthorID = true
		case 3:
			r.SentTimestamp, err = f.uint64("sentTimestamp")
		case 4:
			r.ReceivedTimestamp, err = optUint64(f, "receivedTimestamp")
		case 5:
			r.SortOrder, err = f.uint64("sortOrder")
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasAuthorID {
		return missing(msg, "authorId")
	}
	return nil
}

func unmarshalReaction(f *field, into []*Reaction) ([]*Reaction, error) {
	r := &Reaction{}
	err := f.message("reactions", r)
	return append(into, r), err
}

func appendReactions(b []byte, num protowire.Number, reactions []*Reaction) []byte {
	for _, r := range reactions {
		b = appendMessage(b, num, r)
	}
	return b
}

type StandardMessage struct {
	Quote       *Quote
	Text        *Text
	Attachments []*FilePointer
	LinkPreview []*LinkPreview
	LongText    *FilePointer
	Reactions   []*Reaction

	Unknown []byte
}

func (sm *StandardMessage) checkEncode() error {
	if sm.Text == nil {
		return nil
	}
	for _, br := range sm.Text.BodyRanges {
		if err := br.checkEncode(); err != nil {
			return err
		}
	}
	return nil
}

func (sm *StandardMessage) appendTo(b []byte) []byte {
	if sm.Quote != nil {
		b = appendMessage(b, 1, sm.Quote)
	}
	if sm.Text != nil {
		b = appendMessage(b, 2, sm.Text)
	}
	for _, att := range sm.Attachments {
		b = appendMessage(b, 3, att)
	}
	for _, lp := range sm.LinkPreview {
		b = appendMessage(b, 4, lp)
	}
	if sm.LongText != nil {
		b = appendMessage(b, 5, sm.LongText)
	}
	b = appendReactions(b, 6, sm.Reactions)
	return appendUnknown(b, sm.Unknown)
}

func (sm *StandardMessage) unmarshal(b []byte) (err error) {
	*sm = StandardMessage{}
	sm.Unknown, err = parseFields("StandardMessage", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			sm.Quote = &Quote{}
			err = f.message("quote", sm.Quote)
		case 2:
			sm.Text = &Text{}
			err = f.message("text", sm.Text)
		case 3:
			att := &FilePointer{}
			err = f.message("attachments", att)
			sm.Attachments = append(sm.Attachments, att)
		case 4:
			lp := &LinkPreview{}
			err = f.message("linkPreview", lp)
			sm.LinkPreview = append(sm.LinkPreview, lp)
		case 5:
			sm.LongText = &FilePointer{}
			err = f.message("longText", sm.LongText)
		case 6:
			sm.Reactions, err = unmarshalReaction(f, sm.Reactions)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type LinkPreview struct {
	URL         string
	Title       *string
	Image       *FilePointer
	Description *string
	Date        *uint64

	Unknown []byte
}

func (lp *LinkPreview) appendTo(b []byte) []byte {
	b = appendString(b, 1, lp.URL)
	b = appendOptString(b, 2, lp.Title)
	if lp.Image != nil {
		b = appendMessage(b, 3, lp.Image)
	}
	b = appendOptString(b, 4, lp.Description)
	b = appendOptUint(b, 5, lp.Date)
	return appendUnknown(b, lp.Unknown)
}

func (lp *LinkPreview) unmarshal(b []byte) (err error) {
	*lp = LinkPreview{}
	lp.Unknown, err = parseFields("LinkPreview", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			lp.URL, err = f.string("url")
		case 2:
			lp.Title, err = optString(f, "title")
		case 3:
			lp.Image = &FilePointer{}
			err = f.message("image", lp.Image)
		case 4:
			lp.Description, err = optString(f, "description")
		case 5:
			lp.Date, err = optUint64(f, "date")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type ContactMessage struct {
	Contact   []*ContactAttachment
	Reactions []*Reaction

	Unknown []byte
}

func (cm *ContactMessage) appendTo(b []byte) []byte {
	for _, contact := range cm.Contact {
		b = appendMessage(b, 1, contact)
	}
	b = appendReactions(b, 2, cm.Reactions)
	return appendUnknown(b, cm.Unknown)
}

func (cm *ContactMessage) unmarshal(b []byte) (err error) {
	*cm = ContactMessage{}
	cm.Unknown, err = parseFields("ContactMessage", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			contact := &ContactAttachment{}
			err = f.message("contact", contact)
			cm.Contact = append(cm.Contact, contact)
		case 2:
			cm.Reactions, err = unmarshalReaction(f, cm.Reactions)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type VoiceMessage struct {
	Quote     *Quote
	Audio     *FilePointer
	Reactions []*Reaction

	Unknown []byte
}

func (vm *VoiceMessage) appendTo(b []byte) []byte {
	if vm.Quote != nil {
		b = appendMessage(b, 1, vm.Quote)
	}
	if vm.Audio != nil {
		b = appendMessage(b, 2, vm.Audio)
	}
	b = appendReactions(b, 3, vm.Reactions)
	return appendUnknown(b, vm.Unknown)
}

func (vm *VoiceMessage) unmarshal(b []byte) (err error) {
	*vm = VoiceMessage{}
	vm.Unknown, err = parseFields("VoiceMessage", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			vm.Quote = &Quote{}
			err = f.message("quote", vm.Quote)
		case 2:
			vm.Audio = &FilePointer{}
			err = f.message("audio", vm.Audio)
		case 3:
			vm.Reactions, err = unmarshalReaction(f, vm.Reactions)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type StickerMessage struct {
	Sticker   *Sticker
	Reactions []*Reaction

	Unknown []byte
}

var ErrNoSticker = errors.New("sticker message has no sticker")

func (sm *StickerMessage) checkEncode() error {
	if sm.Sticker == nil {
		return ErrNoSticker
	}
	return nil
}

func (sm *StickerMessage) appendTo(b []byte) []byte {
	if sm.Sticker != nil {
		b = appendMessage(b, 1, sm.Sticker)
	}
	b = appendReactions(b, 2, sm.Reactions)
	return appendUnknown(b, sm.Unknown)
}

func (sm *StickerMessage) unmarshal(b []byte) (err error) {
	const msg = "StickerMessage"
	*sm = StickerMessage{}
	sm.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			sm.Sticker = &Sticker{}
			err = f.message("sticker", sm.Sticker)
		case 2:
			sm.Reactions, err = unmarshalReaction(f, sm.Reactions)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if sm.Sticker == nil {
		return missing(msg, "sticker")
	}
	return nil
}

type Sticker struct {
	PackID    []byte
	PackKey   []byte
	StickerID uint32
	Emoji     *string
	Data      *FilePointer

	Unknown []byte
}

func (s *Sticker) appendTo(b []byte) []byte {
	b = appendBytes(b, 1, s.PackID)
	b = appendBytes(b, 2, s.PackKey)
	b = appendUint(b, 3, s.StickerID)
	b = appendOptString(b, 4, s.Emoji)
	if s.Data != nil {
		b = appendMessage(b, 5, s.Data)
	}
	return appendUnknown(b, s.Unknown)
}

func (s *Sticker) unmarshal(b []byte) (err error) {
	*s = Sticker{}
	s.Unknown, err = parseFields("Sticker", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			s.PackID, err = f.bytes("packId")
		case 2:
			s.PackKey, err = f.bytes("packKey")
		case 3:
			s.StickerID, err = f.uint32("stickerId")
		case 4:
			s.Emoji, err = optString(f, "emoji")
		case 5:
			s.Data = &FilePointer{}
			err = f.message("data", s.Data)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type RemoteDeletedMessage struct {
	Unknown []byte
}

func (rdm *RemoteDeletedMessage) appendTo(b []byte) []byte {
	return appendUnknown(b, rdm.Unknown)
}

func (rdm *RemoteDeletedMessage) unmarshal(b []byte) (err error) {
	rdm.Unknown, err = parseFields("RemoteDeletedMessage", b, ignoreAll)
	return
}
