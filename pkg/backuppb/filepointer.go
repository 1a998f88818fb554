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
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// FilePointer describes an attachment and where its encrypted blob can be fetched from.
//
// The locator is optional when decoding: a pointer without one is valid, it simply
// can't be resolved to a download source.
type FilePointer struct {
	Locator Locator

	Key                     []byte
	ContentType             *string
	Size                    *uint32
	IncrementalMac          []byte
	IncrementalMacChunkSize *uint32
	FileName                *string
	Width                   *uint32
	Height                  *uint32
	Caption                 *string
	BlurHash                *string

	Unknown []byte
}

// Locator is one of [*BackupLocator], [*AttachmentLocator], [*LegacyAttachmentLocator]
// or [*UndownloadedBackupLocator].
type Locator interface {
	Message
	isLocator()
}

func (*BackupLocator) isLocator()             {}
func (*AttachmentLocator) isLocator()         {}
func (*LegacyAttachmentLocator) isLocator()   {}
func (*UndownloadedBackupLocator) isLocator() {}

func (fp *FilePointer) appendTo(b []byte) []byte {
	var num protowire.Number
	switch fp.Locator.(type) {
	case *BackupLocator:
		num = 1
	case *AttachmentLocator:
		num = 2
	case *LegacyAttachmentLocator:
		num = 3
	case *UndownloadedBackupLocator:
		num = 4
	}
	if num != 0 {
		b = appendMessage(b, num, fp.Locator)
	}
	b = appendOptBytes(b, 5, fp.Key)
	b = appendOptString(b, 6, fp.ContentType)
	b = appendOptUint(b, 7, fp.Size)
	b = appendOptBytes(b, 8, fp.IncrementalMac)
	b = appendOptUint(b, 9, fp.IncrementalMacChunkSize)
	b = appendOptString(b, 10, fp.FileName)
	b = appendOptUint(b, 11, fp.Width)
	b = appendOptUint(b, 12, fp.Height)
	b = appendOptString(b, 13, fp.Caption)
	b = appendOptString(b, 14, fp.BlurHash)
	return appendUnknown(b, fp.Unknown)
}

func (fp *FilePointer) unmarshal(b []byte) (err error) {
	const msg = "FilePointer"
	*fp = FilePointer{}
	locator := oneof{name: "locator"}
	fp.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1, 2, 3, 4:
			var into Locator
			var name string
			switch f.num {
			case 1:
				into, name = &BackupLocator{}, "backupLocator"
			case 2:
				into, name = &AttachmentLocator{}, "attachmentLocator"
			case 3:
				into, name = &LegacyAttachmentLocator{}, "legacyAttachmentLocator"
			default:
				into, name = &UndownloadedBackupLocator{}, "undownloadedBackupLocator"
			}
			if err = locator.claim(msg); err != nil {
				return true, err
			}
			fp.Locator = into
			err = f.message(name, into)
		case 5:
			fp.Key, err = f.bytes("key")
		case 6:
			fp.ContentType, err = optString(f, "contentType")
		case 7:
			fp.Size, err = optUint32(f, "size")
		case 8:
			fp.IncrementalMac, err = f.bytes("incrementalMac")
		case 9:
			fp.IncrementalMacChunkSize, err = optUint32(f, "incrementalMacChunkSize")
		case 10:
			fp.FileName, err = optString(f, "fileName")
		case 11:
			fp.Width, err = optUint32(f, "width")
		case 12:
			fp.Height, err = optUint32(f, "height")
		case 13:
			fp.Caption, err = optString(f, "caption")
		case 14:
			fp.BlurHash, err = optString(f, "blurHash")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

// BackupLocator points at media uploaded to the backup media tier.
type BackupLocator struct {
	MediaName string
	CDNNumber *uint32

	Unknown []byte
}

func (bl *BackupLocator) appendTo(b []byte) []byte {
	b = appendRequiredString(b, 1, bl.MediaName)
	b = appendOptUint(b, 2, bl.CDNNumber)
	return appendUnknown(b, bl.Unknown)
}

func (bl *BackupLocator) unmarshal(b []byte) (err error) {
	const msg = "BackupLocator"
	*bl = BackupLocator{}
	var hasMediaName bool
	bl.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			bl.MediaName, err = f.string("mediaName")
			hasMediaName = true
		case 2:
			bl.CDNNumber, err = optUint32(f, "cdnNumber")
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasMediaName {
		return missing(msg, "mediaName")
	}
	return nil
}

// AttachmentLocator points at a transit-tier attachment that hasn't expired yet.
type AttachmentLocator struct {
	CDNKey          string
	CDNNumber       uint32
	UploadTimestamp uint64

	Unknown []byte
}

func (al *AttachmentLocator) appendTo(b []byte) []byte {
	b = appendRequiredString(b, 1, al.CDNKey)
	b = appendUint(b, 2, al.CDNNumber)
	b = appendUint(b, 3, al.UploadTimestamp)
	return appendUnknown(b, al.Unknown)
}

func (al *AttachmentLocator) unmarshal(b []byte) (err error) {
	const msg = "AttachmentLocator"
	*al = AttachmentLocator{}
	var hasCDNKey bool
	al.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			al.CDNKey, err = f.string("cdnKey")
			hasCDNKey = true
		case 2:
			al.CDNNumber, err = f.uint32("cdnNumber")
		case 3:
			al.UploadTimestamp, err = f.uint64("uploadTimestamp")
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasCDNKey {
		return missing(msg, "cdnKey")
	}
	return nil
}

// LegacyAttachmentLocator points at an attachment uploaded with a numeric id on CDN 0.
type LegacyAttachmentLocator struct {
	CDNID uint64

	Unknown []byte
}

func (lal *LegacyAttachmentLocator) appendTo(b []byte) []byte {
	b = protowire.AppendFixed64(appendTag(b, 1, protowire.Fixed64Type), lal.CDNID)
	return appendUnknown(b, lal.Unknown)
}

func (lal *LegacyAttachmentLocator) unmarshal(b []byte) (err error) {
	const msg = "LegacyAttachmentLocator"
	*lal = LegacyAttachmentLocator{}
	var hasCDNID bool
	lal.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		lal.CDNID, err = f.fixed64("cdnId")
		hasCDNID = true
		return true, err
	})
	if err != nil {
		return err
	} else if !hasCDNID {
		return missing(msg, "cdnId")
	}
	return nil
}

// UndownloadedBackupLocator points at an attachment the exporting device never
// downloaded, so it has to be fetched from the sender's upload before it can be restored.
type UndownloadedBackupLocator struct {
	SenderACI []byte
	CDNKey    string
	CDNNumber uint32

	Unknown []byte
}

func (ubl *UndownloadedBackupLocator) ACI() uuid.UUID {
	return tryCastUUID(ubl.SenderACI)
}

func (ubl *UndownloadedBackupLocator) appendTo(b []byte) []byte {
	b = appendRequiredBytes(b, 1, ubl.SenderACI)
	b = appendRequiredString(b, 2, ubl.CDNKey)
	b = appendUint(b, 3, ubl.CDNNumber)
	return appendUnknown(b, ubl.Unknown)
}

func (ubl *UndownloadedBackupLocator) unmarshal(b []byte) (err error) {
	const msg = "UndownloadedBackupLocator"
	*ubl = UndownloadedBackupLocator{}
	var hasSenderACI, hasCDNKey bool
	ubl.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			ubl.SenderACI, err = f.bytes("senderAci")
			hasSenderACI = true
		case 2:
			ubl.CDNKey, err = f.string("cdnKey")
			hasCDNKey = true
		case 3:
			ubl.CDNNumber, err = f.uint32("cdnNumber")
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return err
	} else if !hasSenderACI {
		return missing(msg, "senderAci")
	} else if !hasCDNKey {
		return missing(msg, "cdnKey")
	}
	return nil
}
