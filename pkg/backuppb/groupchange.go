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

// GroupChangeChatUpdate is a batch of group state changes made in a single group update.
type GroupChangeChatUpdate struct {
	Updates []*GroupChangeUpdate

	Unknown []byte
}

// GroupChangeUpdate wraps exactly one leaf group change event.
type GroupChangeUpdate struct {
	Change GroupChange

	Unknown []byte
}

// GroupChange is one of the leaf group change events, such as [*GroupNameUpdate] or
// [*GroupMemberAddedUpdate]. Use a type switch to handle the variants.
type GroupChange interface {
	Message
	isGroupChange()
}

var ErrNoGroupChange = errors.New("group change update has no change")

func (gccu *GroupChangeChatUpdate) checkEncode() error {
	for _, update := range gccu.Updates {
		if err := update.checkEncode(); err != nil {
			return err
		}
	}
	return nil
}

func (gccu *GroupChangeChatUpdate) appendTo(b []byte) []byte {
	for _, update := range gccu.Updates {
		b = appendMessage(b, 1, update)
	}
	return appendUnknown(b, gccu.Unknown)
}

func (gccu *GroupChangeChatUpdate) unmarshal(b []byte) (err error) {
	*gccu = GroupChangeChatUpdate{}
	gccu.Unknown, err = parseFields("GroupChangeChatUpdate", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		update := &GroupChangeUpdate{}
		err = f.message("updates", update)
		gccu.Updates = append(gccu.Updates, update)
		return true, err
	})
	return
}

func (gcu *GroupChangeUpdate) checkEncode() error {
	if gcu == nil || groupChangeNumber(gcu.Change) == 0 {
		return ErrNoGroupChange
	}
	return nil
}

func (gcu *GroupChangeUpdate) appendTo(b []byte) []byte {
	if num := groupChangeNumber(gcu.Change); num != 0 {
		b = appendMessage(b, num, gcu.Change)
	}
	return appendUnknown(b, gcu.Unknown)
}

func (gcu *GroupChangeUpdate) unmarshal(b []byte) (err error) {
	const msg = "GroupChangeChatUpdate.Update"
	*gcu = GroupChangeUpdate{}
	variant := oneof{name: "update"}
	gcu.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		into := newGroupChange(f.num)
		if into == nil {
			return false, nil
		}
		if err = variant.claim(msg); err != nil {
			return true, err
		}
		gcu.Change = into
		return true, f.message(groupChangeNames[f.num-1], into)
	})
	if err != nil {
		return err
	}
	return variant.require(msg)
}

var groupChangeNames = [...]string{
	"genericGroupUpdate",
	"groupCreationUpdate",
	"groupNameUpdate",
	"groupAvatarUpdate",
	"groupDescriptionUpdate",
	"groupMembershipAccessLevelChangeUpdate",
	"groupAttributesAccessLevelChangeUpdate",
	"groupAnnouncementOnlyChangeUpdate",
	"groupAdminStatusUpdate",
	"groupMemberLeftUpdate",
	"groupMemberRemovedUpdate",
	"selfInvitedToGroupUpdate",
	"selfInvitedOtherUserToGroupUpdate",
	"groupUnknownInviteeUpdate",
	"groupInvitationAcceptedUpdate",
	"groupInvitationDeclinedUpdate",
	"groupMemberJoinedUpdate",
	"groupMemberAddedUpdate",
	"groupSelfInvitationRevokedUpdate",
	"groupInvitationRevokedUpdate",
	"groupJoinRequestUpdate",
	"groupJoinRequestApprovalUpdate",
	"groupJoinRequestCanceledUpdate",
	"groupInviteLinkResetUpdate",
	"groupInviteLinkEnabledUpdate",
	"groupInviteLinkAdminApprovalUpdate",
	"groupInviteLinkDisabledUpdate",
	"groupMemberJoinedByLinkUpdate",
	"groupV2MigrationUpdate",
	"groupV2MigrationSelfInvitedUpdate",
	"groupV2MigrationInvitedMembersUpdate",
	"groupV2MigrationDroppedMembersUpdate",
	"groupSequenceOfRequestsAndCancelsUpdate",
	"groupExpirationTimerUpdate",
}

func newGroupChange(num protowire.Number) GroupChange {
	switch num {
	case 1:
		return &GenericGroupUpdate{}
	case 2:
		return &GroupCreationUpdate{}
	case 3:
		return &GroupNameUpdate{}
	case 4:
		return &GroupAvatarUpdate{}
	case 5:
		return &GroupDescriptionUpdate{}
	case 6:
		return &GroupMembershipAccessLevelChangeUpdate{}
	case 7:
		return &GroupAttributesAccessLevelChangeUpdate{}
	case 8:
		return &GroupAnnouncementOnlyChangeUpdate{}
	case 9:
		return &GroupAdminStatusUpdate{}
	case 10:
		return &GroupMemberLeftUpdate{}
	case 11:
		return &GroupMemberRemovedUpdate{}
	case 12:
		return &SelfInvitedToGroupUpdate{}
	case 13:
		return &SelfInvitedOtherUserToGroupUpdate{}
	case 14:
		return &GroupUnknownInviteeUpdate{}
	case 15:
		return &GroupInvitationAcceptedUpdate{}
	case 16:
		return &GroupInvitationDeclinedUpdate{}
	case 17:
		return &GroupMemberJoinedUpdate{}
	case 18:
		return &GroupMemberAddedUpdate{}
	case 19:
		return &GroupSelfInvitationRevokedUpdate{}
	case 20:
		return &GroupInvitationRevokedUpdate{}
	case 21:
		return &GroupJoinRequestUpdate{}
	case 22:
		return &GroupJoinRequestApprovalUpdate{}
	case 23:
		return &GroupJoinRequestCanceledUpdate{}
	case 24:
		return &GroupInviteLinkResetUpdate{}
	case 25:
		return &GroupInviteLinkEnabledUpdate{}
	case 26:
		return &GroupInviteLinkAdminApprovalUpdate{}
	case 27:
		return &GroupInviteLinkDisabledUpdate{}
	case 28:
		return &GroupMemberJoinedByLinkUpdate{}
	case 29:
		return &GroupV2MigrationUpdate{}
	case 30:
		return &GroupV2MigrationSelfInvitedUpdate{}
	case 31:
		return &GroupV2MigrationInvitedMembersUpdate{}
	case 32:
		return &GroupV2MigrationDroppedMembersUpdate{}
	case 33:
		return &GroupSequenceOfRequestsAndCancelsUpdate{}
	case 34:
		return &GroupExpirationTimerUpdate{}
	default:
		return nil
	}
}

func groupChangeNumber(update GroupChange) protowire.Number {
	switch update.(type) {
	case *GenericGroupUpdate:
		return 1
	case *GroupCreationUpdate:
		return 2
	case *GroupNameUpdate:
		return 3
	case *GroupAvatarUpdate:
		return 4
	case *GroupDescriptionUpdate:
		return 5
	case *GroupMembershipAccessLevelChangeUpdate:
		return 6
	case *GroupAttributesAccessLevelChangeUpdate:
		return 7
	case *GroupAnnouncementOnlyChangeUpdate:
		return 8
	case *GroupAdminStatusUpdate:
		return 9
	case *GroupMemberLeftUpdate:
		return 10
	case *GroupMemberRemovedUpdate:
		return 11
	case *SelfInvitedToGroupUpdate:
		return 12
	case *SelfInvitedOtherUserToGroupUpdate:
		return 13
	case *GroupUnknownInviteeUpdate:
		return 14
	case *GroupInvitationAcceptedUpdate:
		return 15
	case *GroupInvitationDeclinedUpdate:
		return 16
	case *GroupMemberJoinedUpdate:
		return 17
	case *GroupMemberAddedUpdate:
		return 18
	case *GroupSelfInvitationRevokedUpdate:
		return 19
	case *GroupInvitationRevokedUpdate:
		return 20
	case *GroupJoinRequestUpdate:
		return 21
	case *GroupJoinRequestApprovalUpdate:
		return 22
	case *GroupJoinRequestCanceledUpdate:
		return 23
	case *GroupInviteLinkResetUpdate:
		return 24
	case *GroupInviteLinkEnabledUpdate:
		return 25
	case *GroupInviteLinkAdminApprovalUpdate:
		return 26
	case *GroupInviteLinkDisabledUpdate:
		return 27
	case *GroupMemberJoinedByLinkUpdate:
		return 28
	case *GroupV2MigrationUpdate:
		return 29
	case *GroupV2MigrationSelfInvitedUpdate:
		return 30
	case *GroupV2MigrationInvitedMembersUpdate:
		return 31
	case *GroupV2MigrationDroppedMembersUpdate:
		return 32
	case *GroupSequenceOfRequestsAndCancelsUpdate:
		return 33
	case *GroupExpirationTimerUpdate:
		return 34
	default:
		return 0
	}
}

func (*GenericGroupUpdate) isGroupChange()                      {}
func (*GroupCreationUpdate) isGroupChange()                     {}
func (*GroupNameUpdate) isGroupChange()                         {}
func (*GroupAvatarUpdate) isGroupChange()                       {}
func (*GroupDescriptionUpdate) isGroupChange()                  {}
func (*GroupMembershipAccessLevelChangeUpdate) isGroupChange()  {}
func (*GroupAttributesAccessLevelChangeUpdate) isGroupChange()  {}
func (*GroupAnnouncementOnlyChangeUpdate) isGroupChange()       {}
func (*GroupAdminStatusUpdate) isGroupChange()                  {}
func (*GroupMemberLeftUpdate) isGroupChange()                   {}
func (*GroupMemberRemovedUpdate) isGroupChange()                {}
func (*SelfInvitedToGroupUpdate) isGroupChange()                {}
func (*SelfInvitedOtherUserToGroupUpdate) isGroupChange()       {}
func (*GroupUnknownInviteeUpdate) isGroupChange()               {}
func (*GroupInvitationAcceptedUpdate) isGroupChange()           {}
func (*GroupInvitationDeclinedUpdate) isGroupChange()           {}
func (*GroupMemberJoinedUpdate) isGroupChange()                 {}
func (*GroupMemberAddedUpdate) isGroupChange()                  {}
func (*GroupSelfInvitationRevokedUpdate) isGroupChange()        {}
func (*GroupInvitationRevokedUpdate) isGroupChange()            {}
func (*GroupJoinRequestUpdate) isGroupChange()                  {}
func (*GroupJoinRequestApprovalUpdate) isGroupChange()          {}
func (*GroupJoinRequestCanceledUpdate) isGroupChange()          {}
func (*GroupInviteLinkResetUpdate) isGroupChange()              {}
func (*GroupInviteLinkEnabledUpdate) isGroupChange()            {}
func (*GroupInviteLinkAdminApprovalUpdate) isGroupChange()      {}
func (*GroupInviteLinkDisabledUpdate) isGroupChange()           {}
func (*GroupMemberJoinedByLinkUpdate) isGroupChange()           {}
func (*GroupV2MigrationUpdate) isGroupChange()                  {}
func (*GroupV2MigrationSelfInvitedUpdate) isGroupChange()       {}
func (*GroupV2MigrationInvitedMembersUpdate) isGroupChange()    {}
func (*GroupV2MigrationDroppedMembersUpdate) isGroupChange()    {}
func (*GroupSequenceOfRequestsAndCancelsUpdate) isGroupChange() {}
func (*GroupExpirationTimerUpdate) isGroupChange()              {}

// leafField binds one field of a group change leaf to its wire representation.
type leafField struct {
	num    protowire.Number
	append func(b []byte) []byte
	decode func(f *field) error
}

// leaf is the field table of a group change event. All leaf fields are scalars or
// bytes, so the events share a single table-driven codec.
type leaf struct {
	msg     string
	unknown *[]byte
	fields  []leafField
}

func (l leaf) appendTo(b []byte) []byte {
	for _, lf := range l.fields {
		b = lf.append(b)
	}
	return appendUnknown(b, *l.unknown)
}

func (l leaf) unmarshal(b []byte) (err error) {
	*l.unknown, err = parseFields(l.msg, b, func(f *field) (bool, error) {
		for _, lf := range l.fields {
			if lf.num == f.num {
				return true, lf.decode(f)
			}
		}
		return false, nil
	})
	return
}

func optBytesLeaf(num protowire.Number, name string, p *[]byte) leafField {
	return leafField{
		num:    num,
		append: func(b []byte) []byte { return appendOptBytes(b, num, *p) },
		decode: func(f *field) (err error) { *p, err = f.bytes(name); return },
	}
}

func bytesLeaf(num protowire.Number, name string, p *[]byte) leafField {
	return leafField{
		num:    num,
		append: func(b []byte) []byte { return appendBytes(b, num, *p) },
		decode: func(f *field) (err error) { *p, err = f.bytes(name); return },
	}
}

func optStringLeaf(num protowire.Number, name string, p **string) leafField {
	return leafField{
		num:    num,
		append: func(b []byte) []byte { return appendOptString(b, num, *p) },
		decode: func(f *field) (err error) { *p, err = optString(f, name); return },
	}
}

func boolLeaf(num protowire.Number, name string, p *bool) leafField {
	return leafField{
		num:    num,
		append: func(b []byte) []byte { return appendBool(b, num, *p) },
		decode: func(f *field) (err error) { *p, err = f.bool(name); return },
	}
}

func uint32Leaf(num protowire.Number, name string, p *uint32) leafField {
	return leafField{
		num:    num,
		append: func(b []byte) []byte { return appendUint(b, num, *p) },
		decode: func(f *field) (err error) { *p, err = f.uint32(name); return },
	}
}

func accessLevelLeaf(num protowire.Number, name string, p *AccessLevel) leafField {
	return leafField{
		num:    num,
		append: func(b []byte) []byte { return appendUint(b, num, *p) },
		decode: func(f *field) (err error) { *p, err = enum(f, name, AccessLevelUnsatisfiable); return },
	}
}

type GenericGroupUpdate struct {
	UpdaterACI []byte

	Unknown []byte
}

func (u *GenericGroupUpdate) leaf() leaf {
	return leaf{"GenericGroupUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
	}}
}

func (u *GenericGroupUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GenericGroupUpdate) unmarshal(b []byte) error {
	*u = GenericGroupUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupCreationUpdate struct {
	UpdaterACI []byte

	Unknown []byte
}

func (u *GroupCreationUpdate) leaf() leaf {
	return leaf{"GroupCreationUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
	}}
}

func (u *GroupCreationUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupCreationUpdate) unmarshal(b []byte) error {
	*u = GroupCreationUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupNameUpdate struct {
	UpdaterACI   []byte
	NewGroupName *string

	Unknown []byte
}

func (u *GroupNameUpdate) leaf() leaf {
	return leaf{"GroupNameUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		optStringLeaf(2, "newGroupName", &u.NewGroupName),
	}}
}

func (u *GroupNameUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupNameUpdate) unmarshal(b []byte) error {
	*u = GroupNameUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupAvatarUpdate struct {
	UpdaterACI []byte
	WasRemoved bool

	Unknown []byte
}

func (u *GroupAvatarUpdate) leaf() leaf {
	return leaf{"GroupAvatarUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		boolLeaf(2, "wasRemoved", &u.WasRemoved),
	}}
}

func (u *GroupAvatarUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupAvatarUpdate) unmarshal(b []byte) error {
	*u = GroupAvatarUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupDescriptionUpdate struct {
	UpdaterACI     []byte
	NewDescription *string

	Unknown []byte
}

func (u *GroupDescriptionUpdate) leaf() leaf {
	return leaf{"GroupDescriptionUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		optStringLeaf(2, "newDescription", &u.NewDescription),
	}}
}

func (u *GroupDescriptionUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupDescriptionUpdate) unmarshal(b []byte) error {
	*u = GroupDescriptionUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupMembershipAccessLevelChangeUpdate struct {
	UpdaterACI  []byte
	AccessLevel AccessLevel

	Unknown []byte
}

func (u *GroupMembershipAccessLevelChangeUpdate) leaf() leaf {
	return leaf{"GroupMembershipAccessLevelChangeUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		accessLevelLeaf(2, "accessLevel", &u.AccessLevel),
	}}
}

func (u *GroupMembershipAccessLevelChangeUpdate) appendTo(b []byte) []byte {
	return u.leaf().appendTo(b)
}
func (u *GroupMembershipAccessLevelChangeUpdate) unmarshal(b []byte) error {
	*u = GroupMembershipAccessLevelChangeUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupAttributesAccessLevelChangeUpdate struct {
	UpdaterACI  []byte
	AccessLevel AccessLevel

	Unknown []byte
}

func (u *GroupAttributesAccessLevelChangeUpdate) leaf() leaf {
	return leaf{"GroupAttributesAccessLevelChangeUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		accessLevelLeaf(2, "accessLevel", &u.AccessLevel),
	}}
}

func (u *GroupAttributesAccessLevelChangeUpdate) appendTo(b []byte) []byte {
	return u.leaf().appendTo(b)
}
func (u *GroupAttributesAccessLevelChangeUpdate) unmarshal(b []byte) error {
	*u = GroupAttributesAccessLevelChangeUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupAnnouncementOnlyChangeUpdate struct {
	UpdaterACI         []byte
	IsAnnouncementOnly bool

	Unknown []byte
}

func (u *GroupAnnouncementOnlyChangeUpdate) leaf() leaf {
	return leaf{"GroupAnnouncementOnlyChangeUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		boolLeaf(2, "isAnnouncementOnly", &u.IsAnnouncementOnly),
	}}
}

func (u *GroupAnnouncementOnlyChangeUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupAnnouncementOnlyChangeUpdate) unmarshal(b []byte) error {
	*u = GroupAnnouncementOnlyChangeUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupAdminStatusUpdate struct {
	UpdaterACI            []byte
	MemberACI             []byte
	WasAdminStatusGranted bool

	Unknown []byte
}

func (u *GroupAdminStatusUpdate) leaf() leaf {
	return leaf{"GroupAdminStatusUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		bytesLeaf(2, "memberAci", &u.MemberACI),
		boolLeaf(3, "wasAdminStatusGranted", &u.WasAdminStatusGranted),
	}}
}

func (u *GroupAdminStatusUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupAdminStatusUpdate) unmarshal(b []byte) error {
	*u = GroupAdminStatusUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupMemberLeftUpdate struct {
	ACI []byte

	Unknown []byte
}

func (u *GroupMemberLeftUpdate) leaf() leaf {
	return leaf{"GroupMemberLeftUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "aci", &u.ACI),
	}}
}

func (u *GroupMemberLeftUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupMemberLeftUpdate) unmarshal(b []byte) error {
	*u = GroupMemberLeftUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupMemberRemovedUpdate struct {
	RemoverACI []byte
	RemovedACI []byte

	Unknown []byte
}

func (u *GroupMemberRemovedUpdate) leaf() leaf {
	return leaf{"GroupMemberRemovedUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "removerAci", &u.RemoverACI),
		bytesLeaf(2, "removedAci", &u.RemovedACI),
	}}
}

func (u *GroupMemberRemovedUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupMemberRemovedUpdate) unmarshal(b []byte) error {
	*u = GroupMemberRemovedUpdate{}
	return u.leaf().unmarshal(b)
}

type SelfInvitedToGroupUpdate struct {
	InviterACI []byte

	Unknown []byte
}

func (u *SelfInvitedToGroupUpdate) leaf() leaf {
	return leaf{"SelfInvitedToGroupUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "inviterAci", &u.InviterACI),
	}}
}

func (u *SelfInvitedToGroupUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *SelfInvitedToGroupUpdate) unmarshal(b []byte) error {
	*u = SelfInvitedToGroupUpdate{}
	return u.leaf().unmarshal(b)
}

type SelfInvitedOtherUserToGroupUpdate struct {
	InviteeServiceID []byte

	Unknown []byte
}

func (u *SelfInvitedOtherUserToGroupUpdate) leaf() leaf {
	return leaf{"SelfInvitedOtherUserToGroupUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "inviteeServiceId", &u.InviteeServiceID),
	}}
}

func (u *SelfInvitedOtherUserToGroupUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *SelfInvitedOtherUserToGroupUpdate) unmarshal(b []byte) error {
	*u = SelfInvitedOtherUserToGroupUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupUnknownInviteeUpdate struct {
	InviterACI   []byte
	InviteeCount uint32

	Unknown []byte
}

func (u *GroupUnknownInviteeUpdate) leaf() leaf {
	return leaf{"GroupUnknownInviteeUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "inviterAci", &u.InviterACI),
		uint32Leaf(2, "inviteeCount", &u.InviteeCount),
	}}
}

func (u *GroupUnknownInviteeUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupUnknownInviteeUpdate) unmarshal(b []byte) error {
	*u = GroupUnknownInviteeUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupInvitationAcceptedUpdate struct {
	InviterACI   []byte
	NewMemberACI []byte

	Unknown []byte
}

func (u *GroupInvitationAcceptedUpdate) leaf() leaf {
	return leaf{"GroupInvitationAcceptedUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "inviterAci", &u.InviterACI),
		bytesLeaf(2, "newMemberAci", &u.NewMemberACI),
	}}
}

func (u *GroupInvitationAcceptedUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupInvitationAcceptedUpdate) unmarshal(b []byte) error {
	*u = GroupInvitationAcceptedUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupInvitationDeclinedUpdate struct {
	InviterACI []byte
	InviteeACI []byte

	Unknown []byte
}

func (u *GroupInvitationDeclinedUpdate) leaf() leaf {
	return leaf{"GroupInvitationDeclinedUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "inviterAci", &u.InviterACI),
		optBytesLeaf(2, "inviteeAci", &u.InviteeACI),
	}}
}

func (u *GroupInvitationDeclinedUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupInvitationDeclinedUpdate) unmarshal(b []byte) error {
	*u = GroupInvitationDeclinedUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupMemberJoinedUpdate struct {
	NewMemberACI []byte

	Unknown []byte
}

func (u *GroupMemberJoinedUpdate) leaf() leaf {
	return leaf{"GroupMemberJoinedUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "newMemberAci", &u.NewMemberACI),
	}}
}

func (u *GroupMemberJoinedUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupMemberJoinedUpdate) unmarshal(b []byte) error {
	*u = GroupMemberJoinedUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupMemberAddedUpdate struct {
	UpdaterACI        []byte
	NewMemberACI      []byte
	HadOpenInvitation bool
	InviterACI        []byte

	Unknown []byte
}

func (u *GroupMemberAddedUpdate) leaf() leaf {
	return leaf{"GroupMemberAddedUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		bytesLeaf(2, "newMemberAci", &u.NewMemberACI),
		boolLeaf(3, "hadOpenInvitation", &u.HadOpenInvitation),
		optBytesLeaf(4, "inviterAci", &u.InviterACI),
	}}
}

func (u *GroupMemberAddedUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupMemberAddedUpdate) unmarshal(b []byte) error {
	*u = GroupMemberAddedUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupSelfInvitationRevokedUpdate struct {
	RevokerACI []byte

	Unknown []byte
}

func (u *GroupSelfInvitationRevokedUpdate) leaf() leaf {
	return leaf{"GroupSelfInvitationRevokedUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "revokerAci", &u.RevokerACI),
	}}
}

func (u *GroupSelfInvitationRevokedUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupSelfInvitationRevokedUpdate) unmarshal(b []byte) error {
	*u = GroupSelfInvitationRevokedUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupJoinRequestUpdate struct {
	RequestorACI []byte

	Unknown []byte
}

func (u *GroupJoinRequestUpdate) leaf() leaf {
	return leaf{"GroupJoinRequestUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "requestorAci", &u.RequestorACI),
	}}
}

func (u *GroupJoinRequestUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupJoinRequestUpdate) unmarshal(b []byte) error {
	*u = GroupJoinRequestUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupJoinRequestApprovalUpdate struct {
	RequestorACI []byte
	UpdaterACI   []byte
	WasApproved  bool

	Unknown []byte
}

func (u *GroupJoinRequestApprovalUpdate) leaf() leaf {
	return leaf{"GroupJoinRequestApprovalUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "requestorAci", &u.RequestorACI),
		optBytesLeaf(2, "updaterAci", &u.UpdaterACI),
		boolLeaf(3, "wasApproved", &u.WasApproved),
	}}
}

func (u *GroupJoinRequestApprovalUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupJoinRequestApprovalUpdate) unmarshal(b []byte) error {
	*u = GroupJoinRequestApprovalUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupJoinRequestCanceledUpdate struct {
	RequestorACI []byte

	Unknown []byte
}

func (u *GroupJoinRequestCanceledUpdate) leaf() leaf {
	return leaf{"GroupJoinRequestCanceledUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "requestorAci", &u.RequestorACI),
	}}
}

func (u *GroupJoinRequestCanceledUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupJoinRequestCanceledUpdate) unmarshal(b []byte) error {
	*u = GroupJoinRequestCanceledUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupInviteLinkResetUpdate struct {
	UpdaterACI []byte

	Unknown []byte
}

func (u *GroupInviteLinkResetUpdate) leaf() leaf {
	return leaf{"GroupInviteLinkResetUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
	}}
}

func (u *GroupInviteLinkResetUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupInviteLinkResetUpdate) unmarshal(b []byte) error {
	*u = GroupInviteLinkResetUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupInviteLinkEnabledUpdate struct {
	UpdaterACI                []byte
	LinkRequiresAdminApproval bool

	Unknown []byte
}

func (u *GroupInviteLinkEnabledUpdate) leaf() leaf {
	return leaf{"GroupInviteLinkEnabledUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		boolLeaf(2, "linkRequiresAdminApproval", &u.LinkRequiresAdminApproval),
	}}
}

func (u *GroupInviteLinkEnabledUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupInviteLinkEnabledUpdate) unmarshal(b []byte) error {
	*u = GroupInviteLinkEnabledUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupInviteLinkAdminApprovalUpdate struct {
	UpdaterACI                []byte
	LinkRequiresAdminApproval bool

	Unknown []byte
}

func (u *GroupInviteLinkAdminApprovalUpdate) leaf() leaf {
	return leaf{"GroupInviteLinkAdminApprovalUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
		boolLeaf(2, "linkRequiresAdminApproval", &u.LinkRequiresAdminApproval),
	}}
}

func (u *GroupInviteLinkAdminApprovalUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupInviteLinkAdminApprovalUpdate) unmarshal(b []byte) error {
	*u = GroupInviteLinkAdminApprovalUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupInviteLinkDisabledUpdate struct {
	UpdaterACI []byte

	Unknown []byte
}

func (u *GroupInviteLinkDisabledUpdate) leaf() leaf {
	return leaf{"GroupInviteLinkDisabledUpdate", &u.Unknown, []leafField{
		optBytesLeaf(1, "updaterAci", &u.UpdaterACI),
	}}
}

func (u *GroupInviteLinkDisabledUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupInviteLinkDisabledUpdate) unmarshal(b []byte) error {
	*u = GroupInviteLinkDisabledUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupMemberJoinedByLinkUpdate struct {
	NewMemberACI []byte

	Unknown []byte
}

func (u *GroupMemberJoinedByLinkUpdate) leaf() leaf {
	return leaf{"GroupMemberJoinedByLinkUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "newMemberAci", &u.NewMemberACI),
	}}
}

func (u *GroupMemberJoinedByLinkUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupMemberJoinedByLinkUpdate) unmarshal(b []byte) error {
	*u = GroupMemberJoinedByLinkUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupV2MigrationUpdate struct {
	Unknown []byte
}

func (u *GroupV2MigrationUpdate) leaf() leaf {
	return leaf{"GroupV2MigrationUpdate", &u.Unknown, []leafField{}}
}

func (u *GroupV2MigrationUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupV2MigrationUpdate) unmarshal(b []byte) error {
	*u = GroupV2MigrationUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupV2MigrationSelfInvitedUpdate struct {
	Unknown []byte
}

func (u *GroupV2MigrationSelfInvitedUpdate) leaf() leaf {
	return leaf{"GroupV2MigrationSelfInvitedUpdate", &u.Unknown, []leafField{}}
}

func (u *GroupV2MigrationSelfInvitedUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupV2MigrationSelfInvitedUpdate) unmarshal(b []byte) error {
	*u = GroupV2MigrationSelfInvitedUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupV2MigrationInvitedMembersUpdate struct {
	InvitedMembersCount uint32

	Unknown []byte
}

func (u *GroupV2MigrationInvitedMembersUpdate) leaf() leaf {
	return leaf{"GroupV2MigrationInvitedMembersUpdate", &u.Unknown, []leafField{
		uint32Leaf(1, "invitedMembersCount", &u.InvitedMembersCount),
	}}
}

func (u *GroupV2MigrationInvitedMembersUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupV2MigrationInvitedMembersUpdate) unmarshal(b []byte) error {
	*u = GroupV2MigrationInvitedMembersUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupV2MigrationDroppedMembersUpdate struct {
	DroppedMembersCount uint32

	Unknown []byte
}

func (u *GroupV2MigrationDroppedMembersUpdate) leaf() leaf {
	return leaf{"GroupV2MigrationDroppedMembersUpdate", &u.Unknown, []leafField{
		uint32Leaf(1, "droppedMembersCount", &u.DroppedMembersCount),
	}}
}

func (u *GroupV2MigrationDroppedMembersUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupV2MigrationDroppedMembersUpdate) unmarshal(b []byte) error {
	*u = GroupV2MigrationDroppedMembersUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupSequenceOfRequestsAndCancelsUpdate struct {
	RequestorACI []byte
	Count        uint32

	Unknown []byte
}

func (u *GroupSequenceOfRequestsAndCancelsUpdate) leaf() leaf {
	return leaf{"GroupSequenceOfRequestsAndCancelsUpdate", &u.Unknown, []leafField{
		bytesLeaf(1, "requestorAci", &u.RequestorACI),
		uint32Leaf(2, "count", &u.Count),
	}}
}

func (u *GroupSequenceOfRequestsAndCancelsUpdate) appendTo(b []byte) []byte {
	return u.leaf().appendTo(b)
}
func (u *GroupSequenceOfRequestsAndCancelsUpdate) unmarshal(b []byte) error {
	*u = GroupSequenceOfRequestsAndCancelsUpdate{}
	return u.leaf().unmarshal(b)
}

type GroupExpirationTimerUpdate struct {
	ExpiresInMs uint32
	UpdaterACI  []byte

	Unknown []byte
}

func (u *GroupExpirationTimerUpdate) leaf() leaf {
	return leaf{"GroupExpirationTimerUpdate", &u.Unknown, []leafField{
		uint32Leaf(1, "expiresInMs", &u.ExpiresInMs),
		optBytesLeaf(2, "updaterAci", &u.UpdaterACI),
	}}
}

func (u *GroupExpirationTimerUpdate) appendTo(b []byte) []byte { return u.leaf().appendTo(b) }
func (u *GroupExpirationTimerUpdate) unmarshal(b []byte) error {
	*u = GroupExpirationTimerUpdate{}
	return u.leaf().unmarshal(b)
}

// GroupInvitationRevokedUpdate lists the pending invitations that were revoked.
type GroupInvitationRevokedUpdate struct {
	UpdaterACI []byte
	Invitees   []*GroupInvitee

	Unknown []byte
}

func (giru *GroupInvitationRevokedUpdate) appendTo(b []byte) []byte {
	b = appendOptBytes(b, 1, giru.UpdaterACI)
	for _, invitee := range giru.Invitees {
		b = appendMessage(b, 2, invitee)
	}
	return appendUnknown(b, giru.Unknown)
}

func (giru *GroupInvitationRevokedUpdate) unmarshal(b []byte) (err error) {
	*giru = GroupInvitationRevokedUpdate{}
	giru.Unknown, err = parseFields("GroupInvitationRevokedUpdate", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			giru.UpdaterACI, err = f.bytes("updaterAci")
		case 2:
			invitee := &GroupInvitee{}
			err = f.message("invitees", invitee)
			giru.Invitees = append(giru.Invitees, invitee)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type GroupInvitee struct {
	InviterACI []byte
	InviteeACI []byte
	InviteePNI []byte

	Unknown []byte
}

func (gi *GroupInvitee) leaf() leaf {
	return leaf{"GroupInvitationRevokedUpdate.Invitee", &gi.Unknown, []leafField{
		optBytesLeaf(1, "inviterAci", &gi.InviterACI),
		optBytesLeaf(2, "inviteeAci", &gi.InviteeACI),
		optBytesLeaf(3, "inviteePni", &gi.InviteePNI),
	}}
}

func (gi *GroupInvitee) appendTo(b []byte) []byte { return gi.leaf().appendTo(b) }
func (gi *GroupInvitee) unmarshal(b []byte) error {
	*gi = GroupInvitee{}
	return gi.leaf().unmarshal(b)
}
