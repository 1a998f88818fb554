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
	"go.mau.fi/util/exslices"
	"google.golang.org/protobuf/encoding/protowire"
)

// ChatUpdateMessage is a chat event rendered as a system message.
type ChatUpdateMessage struct {
	Update ChatUpdate

	Unknown []byte
}

// ChatUpdate is one of the chat update variants, such as [*SimpleChatUpdate] or [*GroupChangeChatUpdate].
type ChatUpdate interface {
	Message
	isChatUpdate()
}

func (*SimpleChatUpdate) isChatUpdate()            {}
func (*GroupDescriptionChatUpdate) isChatUpdate()  {}
func (*ExpirationTimerChatUpdate) isChatUpdate()   {}
func (*ProfileChangeChatUpdate) isChatUpdate()     {}
func (*ThreadMergeChatUpdate) isChatUpdate()       {}
func (*SessionSwitchoverChatUpdate) isChatUpdate() {}
func (*CallChatUpdate) isChatUpdate()              {}
func (*GroupChangeChatUpdate) isChatUpdate()       {}

var ErrNoUpdate = errors.New("chat update message has no update")

func (cum *ChatUpdateMessage) checkEncode() error {
	if cum.Update == nil {
		return ErrNoUpdate
	} else if ec, ok := cum.Update.(encodeChecker); ok {
		return ec.checkEncode()
	}
	return nil
}

func chatUpdateNumber(update ChatUpdate) protowire.Number {
	switch update.(type) {
	case *SimpleChatUpdate:
		return 1
	case *GroupDescriptionChatUpdate:
		return 2
	case *ExpirationTimerChatUpdate:
		return 3
	case *ProfileChangeChatUpdate:
		return 4
	case *ThreadMergeChatUpdate:
		return 5
	case *SessionSwitchoverChatUpdate:
		return 6
	case *CallChatUpdate:
		return 7
	case *GroupChangeChatUpdate:
		return 8
	default:
		return 0
	}
}

func (cum *ChatUpdateMessage) appendTo(b []byte) []byte {
	if num := chatUpdateNumber(cum.Update); num != 0 {
		b = appendMessage(b, num, cum.Update)
	}
	return appendUnknown(b, cum.Unknown)
}

func (cum *ChatUpdateMessage) unmarshal(b []byte) (err error) {
	const msg = "ChatUpdateMessage"
	*cum = ChatUpdateMessage{}
	update := oneof{name: "update"}
	cum.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		var into ChatUpdate
		var name string
		switch f.num {
		case 1:
			into, name = &SimpleChatUpdate{}, "simpleUpdate"
		case 2:
			into, name = &GroupDescriptionChatUpdate{}, "groupDescription"
		case 3:
			into, name = &ExpirationTimerChatUpdate{}, "expirationTimerChange"
		case 4:
			into, name = &ProfileChangeChatUpdate{}, "profileChange"
		case 5:
			into, name = &ThreadMergeChatUpdate{}, "threadMerge"
		case 6:
			into, name = &SessionSwitchoverChatUpdate{}, "sessionSwitchover"
		case 7:
			into, name = &CallChatUpdate{}, "callingMessage"
		case 8:
			into, name = &GroupChangeChatUpdate{}, "groupChange"
		default:
			return false, nil
		}
		if err = update.claim(msg); err != nil {
			return true, err
		}
		cum.Update = into
		return true, f.message(name, into)
	})
	if err != nil {
		return err
	}
	return update.require(msg)
}

type SimpleChatUpdate struct {
	Type SimpleUpdateType

	Unknown []byte
}

func (scu *SimpleChatUpdate) appendTo(b []byte) []byte {
	b = appendUint(b, 1, scu.Type)
	return appendUnknown(b, scu.Unknown)
}

func (scu *SimpleChatUpdate) unmarshal(b []byte) (err error) {
	*scu = SimpleChatUpdate{}
	scu.Unknown, err = parseFields("SimpleChatUpdate", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		scu.Type, err = enum(f, "type", SimpleUpdatePaymentActivationRequest)
		return true, err
	})
	return
}

type GroupDescriptionChatUpdate struct {
	NewDescription string

	Unknown []byte
}

func (gdcu *GroupDescriptionChatUpdate) appendTo(b []byte) []byte {
	b = appendString(b, 1, gdcu.NewDescription)
	return appendUnknown(b, gdcu.Unknown)
}

func (gdcu *GroupDescriptionChatUpdate) unmarshal(b []byte) (err error) {
	*gdcu = GroupDescriptionChatUpdate{}
	gdcu.Unknown, err = parseFields("GroupDescriptionChatUpdate", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		gdcu.NewDescription, err = f.string("newDescription")
		return true, err
	})
	return
}

type ExpirationTimerChatUpdate struct {
	ExpiresInMs uint32

	Unknown []byte
}

func (etcu *ExpirationTimerChatUpdate) appendTo(b []byte) []byte {
	b = appendUint(b, 1, etcu.ExpiresInMs)
	return appendUnknown(b, etcu.Unknown)
}

func (etcu *ExpirationTimerChatUpdate) unmarshal(b []byte) (err error) {
	*etcu = ExpirationTimerChatUpdate{}
	etcu.Unknown, err = parseFields("ExpirationTimerChatUpdate", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		etcu.ExpiresInMs, err = f.uint32("expiresInMs")
		return true, err
	})
	return
}

type ProfileChangeChatUpdate struct {
	PreviousName string
	NewName      string

	Unknown []byte
}

func (pccu *ProfileChangeChatUpdate) appendTo(b []byte) []byte {
	b = appendString(b, 1, pccu.PreviousName)
	b = appendString(b, 2, pccu.NewName)
	return appendUnknown(b, pccu.Unknown)
}

func (pccu *ProfileChangeChatUpdate) unmarshal(b []byte) (err error) {
	*pccu = ProfileChangeChatUpdate{}
	pccu.Unknown, err = parseFields("ProfileChangeChatUpdate", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			pccu.PreviousName, err = f.string("previousName")
		case 2:
			pccu.NewName, err = f.string("newName")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type ThreadMergeChatUpdate struct {
	PreviousE164 uint64

	Unknown []byte
}

func (tmcu *ThreadMergeChatUpdate) appendTo(b []byte) []byte {
	b = appendUint(b, 1, tmcu.PreviousE164)
	return appendUnknown(b, tmcu.Unknown)
}

func (tmcu *ThreadMergeChatUpdate) unmarshal(b []byte) (err error) {
	*tmcu = ThreadMergeChatUpdate{}
	tmcu.Unknown, err = parseFields("ThreadMergeChatUpdate", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		tmcu.PreviousE164, err = f.uint64("previousE164")
		return true, err
	})
	return
}

type SessionSwitchoverChatUpdate struct {
	E164 uint64

	Unknown []byte
}

func (sscu *SessionSwitchoverChatUpdate) appendTo(b []byte) []byte {
	b = appendUint(b, 1, sscu.E164)
	return appendUnknown(b, sscu.Unknown)
}

func (sscu *SessionSwitchoverChatUpdate) unmarshal(b []byte) (err error) {
	*sscu = SessionSwitchoverChatUpdate{}
	sscu.Unknown, err = parseFields("SessionSwitchoverChatUpdate", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		sscu.E164, err = f.uint64("e164")
		return true, err
	})
	return
}

// CallChatUpdate refers to a call, either by the id of a [Call] frame or with inline details.
type CallChatUpdate struct {
	Call CallUpdate

	Unknown []byte
}

// CallUpdate is one of [CallID], [*IndividualCallChatUpdate] or [*GroupCallChatUpdate].
type CallUpdate interface {
	isCallUpdate()
}

// CallID references a [Call] frame by its id.
type CallID uint64

func (CallID) isCallUpdate()                    {}
func (*IndividualCallChatUpdate) isCallUpdate() {}
func (*GroupCallChatUpdate) isCallUpdate()      {}

var ErrNoCall = errors.New("call chat update has no call")

func (ccu *CallChatUpdate) checkEncode() error {
	if ccu.Call == nil {
		return ErrNoCall
	}
	return nil
}

func (ccu *CallChatUpdate) appendTo(b []byte) []byte {
	switch call := ccu.Call.(type) {
	case CallID:
		b = appendRequiredUint(b, 1, uint64(call))
	case *IndividualCallChatUpdate:
		b = appendMessage(b, 2, call)
	case *GroupCallChatUpdate:
		b = appendMessage(b, 3, call)
	}
	return appendUnknown(b, ccu.Unknown)
}

func (ccu *CallChatUpdate) unmarshal(b []byte) (err error) {
	const msg = "CallChatUpdate"
	*ccu = CallChatUpdate{}
	call := oneof{name: "call"}
	ccu.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1, 2, 3:
		default:
			return false, nil
		}
		if err = call.claim(msg); err != nil {
			return true, err
		}
		switch f.num {
		case 1:
			var id uint64
			id, err = f.uint64("callId")
			ccu.Call = CallID(id)
		case 2:
			individual := &IndividualCallChatUpdate{}
			err = f.message("callMessage", individual)
			ccu.Call = individual
		case 3:
			group := &GroupCallChatUpdate{}
			err = f.message("groupCall", group)
			ccu.Call = group
		}
		return true, err
	})
	if err != nil {
		return err
	}
	return call.require(msg)
}

type IndividualCallChatUpdate struct {
	Type IndividualCallType

	Unknown []byte
}

func (iccu *IndividualCallChatUpdate) appendTo(b []byte) []byte {
	b = appendUint(b, 1, iccu.Type)
	return appendUnknown(b, iccu.Unknown)
}

func (iccu *IndividualCallChatUpdate) unmarshal(b []byte) (err error) {
	*iccu = IndividualCallChatUpdate{}
	iccu.Unknown, err = parseFields("IndividualCallChatUpdate", b, func(f *field) (_ bool, err error) {
		if f.num != 1 {
			return false, nil
		}
		iccu.Type, err = enum(f, "type", IndividualCallMissedVideo)
		return true, err
	})
	return
}

type GroupCallChatUpdate struct {
	StartedCallACI       []byte
	StartedCallTimestamp uint64
	InCallACIs           [][]byte

	Unknown []byte
}

// Participants returns the ACIs of the members in the call. Malformed ACIs are returned as uuid.Nil.
func (gccu *GroupCallChatUpdate) Participants() []uuid.UUID {
	return exslices.CastFunc(gccu.InCallACIs, tryCastUUID)
}

func (gccu *GroupCallChatUpdate) appendTo(b []byte) []byte {
	b = appendOptBytes(b, 1, gccu.StartedCallACI)
	b = appendUint(b, 2, gccu.StartedCallTimestamp)
	for _, aci := range gccu.InCallACIs {
		b = appendRequiredBytes(b, 3, aci)
	}
	return appendUnknown(b, gccu.Unknown)
}

func (gccu *GroupCallChatUpdate) unmarshal(b []byte) (err error) {
	*gccu = GroupCallChatUpdate{}
	gccu.Unknown, err = parseFields("GroupCallChatUpdate", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			gccu.StartedCallACI, err = f.bytes("startedCallAci")
		case 2:
			gccu.StartedCallTimestamp, err = f.uint64("startedCallTimestamp")
		case 3:
			var aci []byte
			aci, err = f.bytes("inCallAcis")
			gccu.InCallACIs = append(gccu.InCallACIs, aci)
		default:
			return false, nil
		}
		return true, err
	})
	return
}
