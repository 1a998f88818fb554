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

// AccountData holds the profile and settings of the account that made the backup.
type AccountData struct {
	ProfileKey                    []byte
	Username                      *string
	UsernameLink                  *UsernameLink
	GivenName                     string
	FamilyName                    string
	AvatarURLPath                 string
	SubscriberID                  []byte
	SubscriberCurrencyCode        string
	SubscriptionManuallyCancelled bool
	AccountSettings               *AccountSettings

	Unknown []byte
}

func (ad *AccountData) appendTo(b []byte) []byte {
	b = appendBytes(b, 1, ad.ProfileKey)
	b = appendOptString(b, 2, ad.Username)
	if ad.UsernameLink != nil {
		b = appendMessage(b, 3, ad.UsernameLink)
	}
	b = appendString(b, 4, ad.GivenName)
	b = appendString(b, 5, ad.FamilyName)
	b = appendString(b, 6, ad.AvatarURLPath)
	b = appendBytes(b, 7, ad.SubscriberID)
	b = appendString(b, 8, ad.SubscriberCurrencyCode)
	b = appendBool(b, 9, ad.SubscriptionManuallyCancelled)
	if ad.AccountSettings != nil {
		b = appendMessage(b, 10, ad.AccountSettings)
	}
	return appendUnknown(b, ad.Unknown)
}

func (ad *AccountData) unmarshal(b []byte) (err error) {
	*ad = AccountData{}
	ad.Unknown, err = parseFields("AccountData", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			ad.ProfileKey, err = f.bytes("profileKey")
		case 2:
			var username string
			username, err = f.string("username")
			ad.Username = &username
		case 3:
			ad.UsernameLink = &UsernameLink{}
			err = f.message("usernameLink", ad.UsernameLink)
		case 4:
			ad.GivenName, err = f.string("givenName")
		case 5:
			ad.FamilyName, err = f.string("familyName")
		case 6:
			ad.AvatarURLPath, err = f.string("avatarUrlPath")
		case 7:
			ad.SubscriberID, err = f.bytes("subscriberId")
		case 8:
			ad.SubscriberCurrencyCode, err = f.string("subscriberCurrencyCode")
		case 9:
			ad.SubscriptionManuallyCancelled, err = f.bool("subscriptionManuallyCancelled")
		case 10:
			ad.AccountSettings = &AccountSettings{}
			err = f.message("accountSettings", ad.AccountSettings)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type UsernameLink struct {
	Entropy  []byte
	ServerID []byte
	Color    UsernameLinkColor

	Unknown []byte
}

func (ul *UsernameLink) appendTo(b []byte) []byte {
	b = appendBytes(b, 1, ul.Entropy)
	b = appendBytes(b, 2, ul.ServerID)
	b = appendUint(b, 3, ul.Color)
	return appendUnknown(b, ul.Unknown)
}

func (ul *UsernameLink) unmarshal(b []byte) (err error) {
	*ul = UsernameLink{}
	ul.Unknown, err = parseFields("UsernameLink", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			ul.Entropy, err = f.bytes("entropy")
		case 2:
			ul.ServerID, err = f.bytes("serverId")
		case 3:
			ul.Color, err = enum(f, "color", UsernameLinkColorPurple)
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type AccountSettings struct {
	ReadReceipts                    bool
	SealedSenderIndicators          bool
	TypingIndicators                bool
	NoteToSelfMarkedUnread          bool
	LinkPreviews                    bool
	NotDiscoverableByPhoneNumber    bool
	PreferContactAvatars            bool
	UniversalExpireTimer            uint32
	PreferredReactionEmoji          []string
	DisplayBadgesOnProfile          bool
	KeepMutedChatsArchived          bool
	HasSetMyStoriesPrivacy          bool
	HasViewedOnboardingStory        bool
	StoriesDisabled                 bool
	StoryViewReceiptsEnabled        *bool
	HasSeenGroupStoryEducationSheet bool
	HasCompletedUsernameOnboarding  bool
	PhoneNumberSharingMode          PhoneNumberSharingMode

	Unknown []byte
}

func (as *AccountSettings) appendTo(b []byte) []byte {
	b = appendBool(b, 1, as.ReadReceipts)
	b = appendBool(b, 2, as.SealedSenderIndicators)
	b = appendBool(b, 3, as.TypingIndicators)
	b = appendBool(b, 4, as.NoteToSelfMarkedUnread)
	b = appendBool(b, 5, as.LinkPreviews)
	b = appendBool(b, 6, as.NotDiscoverableByPhoneNumber)
	b = appendBool(b, 7, as.PreferContactAvatars)
	b = appendUint(b, 8, as.UniversalExpireTimer)
	for _, emoji := range as.PreferredReactionEmoji {
		b = appendRequiredString(b, 9, emoji)
	}
	b = appendBool(b, 10, as.DisplayBadgesOnProfile)
	b = appendBool(b, 11, as.KeepMutedChatsArchived)
	b = appendBool(b, 12, as.HasSetMyStoriesPrivacy)
	b = appendBool(b, 13, as.HasViewedOnboardingStory)
	b = appendBool(b, 14, as.StoriesDisabled)
	b = appendOptBool(b, 15, as.StoryViewReceiptsEnabled)
	b = appendBool(b, 16, as.HasSeenGroupStoryEducationSheet)
	b = appendBool(b, 17, as.HasCompletedUsernameOnboarding)
	b = appendUint(b, 18, as.PhoneNumberSharingMode)
	return appendUnknown(b, as.Unknown)
}

func (as *AccountSettings) unmarshal(b []byte) (err error) {
	*as = AccountSettings{}
	as.Unknown, err = parseFields("AccountSettings", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			as.ReadReceipts, err = f.bool("readReceipts")
		case 2:
			as.SealedSenderIndicators, err = f.bool("sealedSenderIndicators")
		case 3:
			as.TypingIndicators, err = f.bool("typingIndicators")
		case 4:
			as.NoteToSelfMarkedUnread, err = f.bool("noteToSelfMarkedUnread")
		case 5:
			as.LinkPreviews, err = f.bool("linkPreviews")
		case 6:
			as.NotDiscoverableByPhoneNumber, err = f.bool("notDiscoverableByPhoneNumber")
		case 7:
			as.PreferContactAvatars, err = f.bool("preferContactAvatars")
		case 8:
			as.UniversalExpireTimer, err = f.uint32("universalExpireTimer")
		case 9:
			var emoji string
			emoji, err = f.string("preferredReactionEmoji")
			as.PreferredReactionEmoji = append(as.PreferredReactionEmoji, emoji)
		case 10:
			as.DisplayBadgesOnProfile, err = f.bool("displayBadgesOnProfile")
		case 11:
			as.KeepMutedChatsArchived, err = f.bool("keepMutedChatsArchived")
		case 12:
			as.HasSetMyStoriesPrivacy, err = f.bool("hasSetMyStoriesPrivacy")
		case 13:
			as.HasViewedOnboardingStory, err = f.bool("hasViewedOnboardingStory")
		case 14:
			as.StoriesDisabled, err = f.bool("storiesDisabled")
		case 15:
			var enabled bool
			enabled, err = f.bool("storyViewReceiptsEnabled")
			as.StoryViewReceiptsEnabled = &enabled
		case 16:
			as.HasSeenGroupStoryEducationSheet, err = f.bool("hasSeenGroupStoryEducationSheet")
		case 17:
			as.HasCompletedUsernameOnboarding, err = f.bool("hasCompletedUsernameOnboarding")
		case 18:
			as.PhoneNumberSharingMode, err = enum(f, "phoneNumberSharingMode", PhoneNumberSharingNobody)
		default:
			return false, nil
		}
		return true, err
	})
	return
}
