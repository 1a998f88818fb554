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
	"strconv"
)

func enumName(names []string, v int32) string {
	if v >= 0 && int(v) < len(names) {
		return names[v]
	}
	return strconv.Itoa(int(v))
}

// Enum values outside the known range are decoded as the zero value of the enum,
// which is always the UNKNOWN/default variant.

type UsernameLinkColor int32

const (
	UsernameLinkColorUnknown UsernameLinkColor = iota
	UsernameLinkColorBlue
	UsernameLinkColorWhite
	UsernameLinkColorGrey
	UsernameLinkColorOlive
	UsernameLinkColorGreen
	UsernameLinkColorOrange
	UsernameLinkColorPink
	UsernameLinkColorPurple
)

var usernameLinkColorNames = []string{"UNKNOWN", "BLUE", "WHITE", "GREY", "OLIVE", "GREEN", "ORANGE", "PINK", "PURPLE"}

func (c UsernameLinkColor) String() string { return enumName(usernameLinkColorNames, int32(c)) }

type PhoneNumberSharingMode int32

const (
	PhoneNumberSharingUnknown PhoneNumberSharingMode = iota
	PhoneNumberSharingEverybody
	PhoneNumberSharingNobody
)

var phoneNumberSharingModeNames = []string{"UNKNOWN", "EVERYBODY", "NOBODY"}

func (m PhoneNumberSharingMode) String() string {
	return enumName(phoneNumberSharingModeNames, int32(m))
}

type ContactRegistration int32

const (
	ContactRegistrationUnknown ContactRegistration = iota
	ContactRegistered
	ContactNotRegistered
)

var contactRegistrationNames = []string{"UNKNOWN", "REGISTERED", "NOT_REGISTERED"}

func (r ContactRegistration) String() string { return enumName(contactRegistrationNames, int32(r)) }

type StorySendMode int32

const (
	StorySendModeDefault StorySendMode = iota
	StorySendModeDisabled
	StorySendModeEnabled
)

var storySendModeNames = []string{"DEFAULT", "DISABLED", "ENABLED"}

func (m StorySendMode) String() string { return enumName(storySendModeNames, int32(m)) }

type PrivacyMode int32

const (
	PrivacyModeUnknown PrivacyMode = iota
	PrivacyModeOnlyWith
	PrivacyModeAllExcept
	PrivacyModeAll
)

var privacyModeNames = []string{"UNKNOWN", "ONLY_WITH", "ALL_EXCEPT", "ALL"}

func (m PrivacyMode) String() string { return enumName(privacyModeNames, int32(m)) }

type CallType int32

const (
	CallTypeUnknown CallType = iota
	CallTypeAudio
	CallTypeVideo
	CallTypeGroup
	CallTypeAdHoc
)

var callTypeNames = []string{"UNKNOWN_TYPE", "AUDIO_CALL", "VIDEO_CALL", "GROUP_CALL", "AD_HOC_CALL"}

func (t CallType) String() string { return enumName(callTypeNames, int32(t)) }

type CallEvent int32

const (
	CallEventUnknown CallEvent = iota
	CallEventOutgoing
	CallEventAccepted
	CallEventNotAccepted
	CallEventMissed
	CallEventDelete
	CallEventGenericGroupCall
	CallEventJoined
	CallEventRinging
	CallEventDeclined
	CallEventOutgoingRing
)

var callEventNames = []string{
	"UNKNOWN_EVENT", "OUTGOING", "ACCEPTED", "NOT_ACCEPTED", "MISSED", "DELETE",
	"GENERIC_GROUP_CALL", "JOINED", "RINGING", "DECLINED", "OUTGOING_RING",
}

func (e CallEvent) String() string { return enumName(callEventNames, int32(e)) }

type DeliveryStatus int32

const (
	DeliveryStatusUnknown DeliveryStatus = iota
	DeliveryStatusFailed
	DeliveryStatusPending
	DeliveryStatusSent
	DeliveryStatusDelivered
	DeliveryStatusRead
	DeliveryStatusViewed
	DeliveryStatusSkipped
)

var deliveryStatusNames = []string{"UNKNOWN", "FAILED", "PENDING", "SENT", "DELIVERED", "READ", "VIEWED", "SKIPPED"}

func (s DeliveryStatus) String() string { return enumName(deliveryStatusNames, int32(s)) }

type BodyRangeStyle int32

const (
	StyleNone BodyRangeStyle = iota
	StyleBold
	StyleItalic
	StyleSpoiler
	StyleStrikethrough
	StyleMonospace
)

var bodyRangeStyleNames = []string{"NONE", "BOLD", "ITALIC", "SPOILER", "STRIKETHROUGH", "MONOSPACE"}

func (s BodyRangeStyle) String() string { return enumName(bodyRangeStyleNames, int32(s)) }

type QuoteType int32

const (
	QuoteTypeUnknown QuoteType = iota
	QuoteTypeNormal
	QuoteTypeGiftBadge
)

var quoteTypeNames = []string{"UNKNOWN", "NORMAL", "GIFTBADGE"}

func (t QuoteType) String() string { return enumName(quoteTypeNames, int32(t)) }

// ContactFieldType is the type of a phone number or email in a shared contact.
type ContactFieldType int32

const (
	ContactFieldUnknown ContactFieldType = iota
	ContactFieldHome
	ContactFieldMobile
	ContactFieldWork
	ContactFieldCustom
)

var contactFieldTypeNames = []string{"UNKNOWN", "HOME", "MOBILE", "WORK", "CUSTOM"}

func (t ContactFieldType) String() string { return enumName(contactFieldTypeNames, int32(t)) }

type AddressType int32

const (
	AddressTypeUnknown AddressType = iota
	AddressTypeHome
	AddressTypeWork
	AddressTypeCustom
)

var addressTypeNames = []string{"UNKNOWN", "HOME", "WORK", "CUSTOM"}

func (t AddressType) String() string { return enumName(addressTypeNames, int32(t)) }

type SimpleUpdateType int32

const (
	SimpleUpdateUnknown SimpleUpdateType = iota
	SimpleUpdateJoinedSignal
	SimpleUpdateIdentityUpdate
	SimpleUpdateIdentityVerified
	SimpleUpdateIdentityDefault
	SimpleUpdateChangeNumber
	SimpleUpdateBoostRequest
	SimpleUpdateEndSession
	SimpleUpdateChatSessionRefresh
	SimpleUpdateBadDecrypt
	SimpleUpdatePaymentsActivated
	SimpleUpdatePaymentActivationRequest
)

var simpleUpdateTypeNames = []string{
	"UNKNOWN", "JOINED_SIGNAL", "IDENTITY_UPDATE", "IDENTITY_VERIFIED", "IDENTITY_DEFAULT",
	"CHANGE_NUMBER", "BOOST_REQUEST", "END_SESSION", "CHAT_SESSION_REFRESH", "BAD_DECRYPT",
	"PAYMENTS_ACTIVATED", "PAYMENT_ACTIVATION_REQUEST",
}

func (t SimpleUpdateType) String() string { return enumName(simpleUpdateTypeNames, int32(t)) }

type IndividualCallType int32

const (
	IndividualCallUnknown IndividualCallType = iota
	IndividualCallIncomingAudio
	IndividualCallIncomingVideo
	IndividualCallOutgoingAudio
	IndividualCallOutgoingVideo
	IndividualCallMissedAudio
	IndividualCallMissedVideo
)

var individualCallTypeNames = []string{
	"UNKNOWN", "INCOMING_AUDIO_CALL", "INCOMING_VIDEO_CALL", "OUTGOING_AUDIO_CALL",
	"OUTGOING_VIDEO_CALL", "MISSED_AUDIO_CALL", "MISSED_VIDEO_CALL",
}

func (t IndividualCallType) String() string { return enumName(individualCallTypeNames, int32(t)) }

type AccessLevel int32

const (
	AccessLevelUnknown AccessLevel = iota
	AccessLevelAny
	AccessLevelMember
	AccessLevelAdministrator
	AccessLevelUnsatisfiable
)

var accessLevelNames = []string{"UNKNOWN", "ANY", "MEMBER", "ADMINISTRATOR", "UNSATISFIABLE"}

func (l AccessLevel) String() string { return enumName(accessLevelNames, int32(l)) }
