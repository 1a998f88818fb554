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

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Recipient is an addressable entity. Its ID is referenced by chats, chat items,
// calls and distribution lists that appear later in the backup.
type Recipient struct {
	ID          uint64
	Destination RecipientDestination

	Unknown []byte
}

// RecipientDestination is one of [*Contact], [*Group], [*DistributionList],
// [*SelfRecipient] or [*ReleaseNotes].
type RecipientDestination interface {
	Message
	isRecipientDestination()
}

func (*Contact) isRecipientDestination()          {}
func (*Group) isRecipientDestination()            {}
func (*DistributionList) isRecipientDestination() {}
func (*SelfRecipient) isRecipientDestination()    {}
func (*ReleaseNotes) isRecipientDestination()     {}

var ErrNoDestination = errors.New("recipient has no destination")

func (r *Recipient) checkEncode() error {
	if r.Destination == nil {
		return ErrNoDestination
	}
	return nil
}

func (r *Recipient) appendTo(b []byte) []byte {
	b = appendRequiredUint(b, 1, r.ID)
	var num protowire.Number
	switch r.Destination.(type) {
	case *Contact:
		num = 2
	case *Group:
		num = 3
	case *DistributionList:
		num = 4
	case *SelfRecipient:
		num = 5
	case *ReleaseNotes:
		num = 6
	}
	if num != 0 {
		b = appendMessage(b, num, r.Destination)
	}
	return appendUnknown(b, r.Unknown)
}

func (r *Recipient) unmarshal(b []byte) (err error) {
	const msg = "Recipient"
	*r = Recipient{}
	var hasID bool
	destination := oneof{name: "destination"}
	r.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		var into RecipientDestination
		var name string
		switch f.num {
		case 1:
			r.ID, err = f.uint64("id")
			hasID = true
			return true, err
		case 2:
			into, name = &Contact{}, "contact"
		case 3:
			into, name = &Group{}, "group"
		case 4:
			into, name = &DistributionList{}, "distributionList"
		case 5:
			into, name = &SelfRecipient{}, "self"
		case 6:
			into, name = &ReleaseNotes{}, "releaseNotes"
		default:
			return false, nil
		}
		if err = destination.claim(msg); err != nil {
			return true, err
		}
		r.Destination = into
		return true, f.message(name, into)
	})
	if err != nil {
		return err
	} else if !hasID {
		return missing(msg, "id")
	}
	return destination.require(msg)
}

func (r *Recipient) GetContact() *Contact {
	v, _ := r.Destination.(*Contact)
	return v
}

func (r *Recipient) GetGroup() *Group {
	v, _ := r.Destination.(*Group)
	return v
}

func (r *Recipient) GetDistributionList() *DistributionList {
	v, _ := r.Destination.(*DistributionList)
	return v
}

type Contact struct {
	Aci                   []byte
	Pni                   []byte
	Username              *string
	E164                  *uint64
	Blocked               bool
	Hidden                bool
	Registered            ContactRegistration
	UnregisteredTimestamp uint64
	ProfileKey            []byte
	ProfileSharing        bool
	ProfileGivenName      *string
	ProfileFamilyName     *string
	HideStory             bool

	Unknown []byte
}

func tryCastUUID(b []byte) uuid.UUID {
	if len(b) == 16 {
		return uuid.UUID(b)
	}
	return uuid.Nil
}

// ACI returns the contact's ACI, or [uuid.Nil] if it's missing or malformed.
func (c *Contact) ACI() uuid.UUID {
	return tryCastUUID(c.Aci)
}

// PNI returns the contact's PNI, or [uuid.Nil] if it's missing or malformed.
func (c *Contact) PNI() uuid.UUID {
	return tryCastUUID(c.Pni)
}

func (c *Contact) appendTo(b []byte) []byte {
	b = appendOptBytes(b, 1, c.Aci)
	b = appendOptBytes(b, 2, c.Pni)
	b = appendOptString(b, 3, c.Username)
	b = appendOptUint(b, 4, c.E164)
	b = appendBool(b, 5, c.Blocked)
	b = appendBool(b, 6, c.Hidden)
	b = appendUint(b, 7, c.Registered)
	b = appendUint(b, 8, c.UnregisteredTimestamp)
	b = appendOptBytes(b, 9, c.ProfileKey)
	b = appendBool(b, 10, c.ProfileSharing)
	b = appendOptString(b, 11, c.ProfileGivenName)
	b = appendOptString(b, 12, c.ProfileFamilyName)
	b = appendBool(b, 13, c.HideStory)
	return appendUnknown(b, c.Unknown)
}

func (c *Contact) unmarshal(b []byte) (err error) {
	*c = Contact{}
	c.Unknown, err = parseFields("Contact", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			c.Aci, err = f.bytes("aci")
		case 2:
			c.Pni, err = f.bytes("pni")
		case 3:
			c.Username, err = optString(f, "username")
		case 4:
			c.E164, err = optUint64(f, "e164")
		case 5:
			c.Blocked, err = f.bool("blocked")
		case 6:
			c.Hidden, err = f.bool("hidden")
		case 7:
			c.Registered, err = enum(f, "registered", ContactNotRegistered)
		case 8:
			c.UnregisteredTimestamp, err = f.uint64("unregisteredTimestamp")
		case 9:
			c.ProfileKey, err = f.bytes("profileKey")
		case 10:
			c.ProfileSharing, err = f.bool("profileSharing")
		case 11:
			c.ProfileGivenName, err = optString(f, "profileGivenName")
		case 12:
			c.ProfileFamilyName, err = optString(f, "profileFamilyName")
		case 13:
			c.HideStory, err = f.bool("hideStory")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type Group struct {
	MasterKey     []byte
	Whitelisted   bool
	HideStory     bool
	StorySendMode StorySendMode
	Name          string

	Unknown []byte
}

func (g *Group) appendTo(b []byte) []byte {
	b = appendBytes(b, 1, g.MasterKey)
	b = appendBool(b, 2, g.Whitelisted)
	b = appendBool(b, 3, g.HideStory)
	b = appendUint(b, 4, g.StorySendMode)
	b = appendString(b, 5, g.Name)
	return appendUnknown(b, g.Unknown)
}

func (g *Group) unmarshal(b []byte) (err error) {
	*g = Group{}
	g.Unknown, err = parseFields("Group", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			g.MasterKey, err = f.bytes("masterKey")
		case 2:
			g.Whitelisted, err = f.bool("whitelisted")
		case 3:
			g.HideStory, err = f.bool("hideStory")
		case 4:
			g.StorySendMode, err = enum(f, "storySendMode", StorySendModeEnabled)
		case 5:
			g.Name, err = f.string("name")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type DistributionList struct {
	Name               string
	DistributionID     []byte
	AllowReplies       bool
	DeletionTimestamp  uint64
	PrivacyMode        PrivacyMode
	MemberRecipientIDs []uint64

	Unknown []byte
}

func (dl *DistributionList) appendTo(b []byte) []byte {
	b = appendString(b, 1, dl.Name)
	b = appendBytes(b, 2, dl.DistributionID)
	b = appendBool(b, 3, dl.AllowReplies)
	b = appendUint(b, 4, dl.DeletionTimestamp)
	b = appendUint(b, 5, dl.PrivacyMode)
	b = appendPackedUints(b, 6, dl.MemberRecipientIDs)
	return appendUnknown(b, dl.Unknown)
}

func (dl *DistributionList) unmarshal(b []byte) (err error) {
	*dl = DistributionList{}
	dl.Unknown, err = parseFields("DistributionList", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			dl.Name, err = f.string("name")
		case 2:
			dl.DistributionID, err = f.bytes("distributionId")
		case 3:
			dl.AllowReplies, err = f.bool("allowReplies")
		case 4:
			dl.DeletionTimestamp, err = f.uint64("deletionTimestamp")
		case 5:
			dl.PrivacyMode, err = enum(f, "privacyMode", PrivacyModeAll)
		case 6:
			dl.MemberRecipientIDs, err = f.uint64s("memberRecipientIds", dl.MemberRecipientIDs)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

// SelfRecipient is the recipient representing the account owner.
type SelfRecipient struct {
	Unknown []byte
}

func (s *SelfRecipient) appendTo(b []byte) []byte {
	return appendUnknown(b, s.Unknown)
}

func (s *SelfRecipient) unmarshal(b []byte) (err error) {
	s.Unknown, err = parseFields("SelfRecipient", b, ignoreAll)
	return
}

// ReleaseNotes is the recipient of the Signal release notes channel.
type ReleaseNotes struct {
	Unknown []byte
}

func (rn *ReleaseNotes) appendTo(b []byte) []byte {
	return appendUnknown(b, rn.Unknown)
}

func (rn *ReleaseNotes) unmarshal(b []byte) (err error) {
	rn.Unknown, err = parseFields("ReleaseNotes", b, ignoreAll)
	return
}

func ignoreAll(*field) (bool, error) {
	return false, nil
}

func optString(f *field, name string) (*string, error) {
	v, err := f.string(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optUint64(f *field, name string) (*uint64, error) {
	v, err := f.uint64(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optUint32(f *field, name string) (*uint32, error) {
	v, err := f.uint32(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
