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

// BackupInfo is the header message that precedes all frames in a backup.
type BackupInfo struct {
	Version            uint64
	BackupTimeMs       uint64
	MediaRootBackupKey []byte

	Unknown []byte
}

func (bi *BackupInfo) appendTo(b []byte) []byte {
	b = appendRequiredUint(b, 1, bi.Version)
	b = appendRequiredUint(b, 2, bi.BackupTimeMs)
	b = appendBytes(b, 3, bi.MediaRootBackupKey)
	return appendUnknown(b, bi.Unknown)
}

func (bi *BackupInfo) unmarshal(b []byte) (err error) {
	const msg = "BackupInfo"
	*bi = BackupInfo{}
	var hasVersion, hasBackupTime bool
	bi.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			bi.Version, err = f.uint64("version")
			hasVersion = true
		case 2:
			bi.BackupTimeMs, err = f.uint64("backupTimeMs")
			hasBackupTime = true
		case 3:
			bi.MediaRootBackupKey, err = f.bytes("mediaRootBackupKey")
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasVersion {
		return missing(msg, "version")
	} else if !hasBackupTime {
		return missing(msg, "backupTimeMs")
	}
	return nil
}

// FrameItem is the payload of a [Frame]: one of [*AccountData], [*Recipient], [*Chat],
// [*ChatItem], [*Call] or [*StickerPack].
type FrameItem interface {
	Message
	isFrameItem()
}

func (*AccountData) isFrameItem() {}
func (*Recipient) isFrameItem()   {}
func (*Chat) isFrameItem()        {}
func (*ChatItem) isFrameItem()    {}
func (*Call) isFrameItem()        {}
func (*StickerPack) isFrameItem() {}

// Frame is a single top-level entity in the backup stream.
type Frame struct {
	Item FrameItem

	Unknown []byte
}

var ErrEmptyFrame = errors.New("frame has no item")

func (fr *Frame) checkEncode() error {
	if fr.Item == nil {
		return ErrEmptyFrame
	}
	if ec, ok := fr.Item.(encodeChecker); ok {
		return ec.checkEncode()
	}
	return nil
}

func frameItemNumber(item FrameItem) protowire.Number {
	switch item.(type) {
	case *AccountData:
		return 1
	case *Recipient:
		return 2
	case *Chat:
		return 3
	case *ChatItem:
		return 4
	case *Call:
		return 5
	case *StickerPack:
		return 6
	default:
		return 0
	}
}

func (fr *Frame) appendTo(b []byte) []byte {
	if fr.Item != nil {
		b = appendMessage(b, frameItemNumber(fr.Item), fr.Item)
	}
	return appendUnknown(b, fr.Unknown)
}

func (fr *Frame) unmarshal(b []byte) (err error) {
	const msg = "Frame"
	*fr = Frame{}
	item := oneof{name: "item"}
	fr.Unknown, err = parseFields(msg, b, func(f *field) (bool, error) {
		var into FrameItem
		var name string
		switch f.num {
		case 1:
			into, name = &AccountData{}, "account"
		case 2:
			into, name = &Recipient{}, "recipient"
		case 3:
			into, name = &Chat{}, "chat"
		case 4:
			into, name = &ChatItem{}, "chatItem"
		case 5:
			into, name = &Call{}, "call"
		case 6:
			into, name = &StickerPack{}, "stickerPack"
		default:
			return false, nil
		}
		if err := item.claim(msg); err != nil {
			return true, err
		}
		fr.Item = into
		return true, f.message(name, into)
	})
	if err != nil {
		return err
	}
	return item.require(msg)
}

// Kind returns the schema name of the populated frame item.
func (fr *Frame) Kind() string {
	switch fr.Item.(type) {
	case *AccountData:
		return "account"
	case *Recipient:
		return "recipient"
	case *Chat:
		return "chat"
	case *ChatItem:
		return "chatItem"
	case *Call:
		return "call"
	case *StickerPack:
		return "stickerPack"
	default:
		return "none"
	}
}

func (fr *Frame) GetAccount() *AccountData {
	if fr == nil {
		return nil
	}
	v, _ := fr.Item.(*AccountData)
	return v
}

func (fr *Frame) GetRecipient() *Recipient {
	if fr == nil {
		return nil
	}
	v, _ := fr.Item.(*Recipient)
	return v
}

func (fr *Frame) GetChat() *Chat {
	if fr == nil {
		return nil
	}
	v, _ := fr.Item.(*Chat)
	return v
}

func (fr *Frame) GetChatItem() *ChatItem {
	if fr == nil {
		return nil
	}
	v, _ := fr.Item.(*ChatItem)
	return v
}

func (fr *Frame) GetCall() *Call {
	if fr == nil {
		return nil
	}
	v, _ := fr.Item.(*Call)
	return v
}

func (fr *Frame) GetStickerPack() *StickerPack {
	if fr == nil {
		return nil
	}
	v, _ := fr.Item.(*StickerPack)
	return v
}
