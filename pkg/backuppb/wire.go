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

// Package backuppb contains the message types of the Signal backup schema
// along with a strict wire codec for them.
//
// Unlike a generated protobuf package, decoding enforces required fields and
// oneof exclusivity, keeps the presence of optional scalars, and retains
// unrecognized fields so that they are re-emitted byte-for-byte on encode.
package backuppb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every type in the backup schema.
type Message interface {
	appendTo(b []byte) []byte
	unmarshal(b []byte) error
}

// encodeChecker is implemented by messages that can't be encoded in their current state,
// usually because a required oneof is unset.
type encodeChecker interface {
	checkEncode() error
}

// Marshal encodes the given message in the wire format.
func Marshal(m Message) ([]byte, error) {
	if ec, ok := m.(encodeChecker); ok {
		if err := ec.checkEncode(); err != nil {
			return nil, err
		}
	}
	return m.appendTo(nil), nil
}

// Unmarshal decodes a wire format message into m.
//
// The returned error is always an [*InvalidProtobufError] when the input is rejected.
// Decoded byte slices never alias b, so the input buffer may be reused afterwards.
func Unmarshal(b []byte, m Message) error {
	return m.unmarshal(b)
}

// field is one tag/value pair read from the wire.
type field struct {
	msg string
	num protowire.Number
	typ protowire.Type
	raw []byte
	val []byte
}

// parseFields walks every field in b. The handler returns false for fields it doesn't
// recognize, which are then collected verbatim and returned as unknown fields.
func parseFields(msg string, b []byte, handle func(f *field) (bool, error)) ([]byte, error) {
	var unknown []byte
	f := field{msg: msg}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(msg, protowire.ParseError(n))
		}
		m := protowire.ConsumeFieldValue(num, typ, b[n:])
		if m < 0 {
			return nil, malformed(msg, protowire.ParseError(m))
		}
		f.num, f.typ = num, typ
		f.raw = b[:n+m]
		f.val = b[n : n+m]
		known, err := handle(&f)
		if err != nil {
			return nil, err
		} else if !known {
			unknown = append(unknown, f.raw...)
		}
		b = b[n+m:]
	}
	return unknown, nil
}

func malformed(msg string, err error) error {
	return invalid(msg, fmt.Sprintf("malformed field: %v", err))
}

func (f *field) expect(name string, typ protowire.Type) error {
	if f.typ != typ {
		return invalid(f.msg, "wrong wire type for field "+name)
	}
	return nil
}

func (f *field) uint64(name string) (uint64, error) {
	if err := f.expect(name, protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(f.val)
	if n < 0 {
		return 0, malformed(f.msg, protowire.ParseError(n))
	}
	return v, nil
}

func (f *field) uint32(name string) (uint32, error) {
	v, err := f.uint64(name)
	return uint32(v), err
}

func (f *field) bool(name string) (bool, error) {
	v, err := f.uint64(name)
	return protowire.DecodeBool(v), err
}

func (f *field) fixed64(name string) (uint64, error) {
	if err := f.expect(name, protowire.Fixed64Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed64(f.val)
	if n < 0 {
		return 0, malformed(f.msg, protowire.ParseError(n))
	}
	return v, nil
}

func (f *field) payload(name string) ([]byte, error) {
	if err := f.expect(name, protowire.BytesType); err != nil {
		return nil, err
	}
	v, n := protowire.ConsumeBytes(f.val)
	if n < 0 {
		return nil, malformed(f.msg, protowire.ParseError(n))
	}
	return v, nil
}

func (f *field) bytes(name string) ([]byte, error) {
	v, err := f.payload(name)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, v...), nil
}

func (f *field) string(name string) (string, error) {
	v, err := f.payload(name)
	return string(v), err
}

func (f *field) message(name string, m Message) error {
	v, err := f.payload(name)
	if err != nil {
		return err
	}
	return m.unmarshal(v)
}

// uint64s decodes a repeated uint64 field in either packed or unpacked form.
func (f *field) uint64s(name string, into []uint64) ([]uint64, error) {
	if f.typ == protowire.VarintType {
		v, err := f.uint64(name)
		return append(into, v), err
	}
	v, err := f.payload(name)
	if err != nil {
		return nil, err
	}
	for len(v) > 0 {
		item, n := protowire.ConsumeVarint(v)
		if n < 0 {
			return nil, malformed(f.msg, protowire.ParseError(n))
		}
		into = append(into, item)
		v = v[n:]
	}
	return into, nil
}

func enum[E ~int32](f *field, name string, maxKnown E) (E, error) {
	v, err := f.uint64(name)
	if err != nil || v > uint64(maxKnown) {
		return 0, err
	}
	return E(v), nil
}

// oneof tracks the members of a oneof group seen while decoding a message.
type oneof struct {
	name string
	set  bool
}

func (o *oneof) claim(msg string) error {
	if o.set {
		return invalid(msg, "oneof violation: "+o.name)
	}
	o.set = true
	return nil
}

func (o *oneof) require(msg string) error {
	if !o.set {
		return invalid(msg, "oneof violation: "+o.name+" not set")
	}
	return nil
}

func appendTag(b []byte, num protowire.Number, typ protowire.Type) []byte {
	return protowire.AppendTag(b, num, typ)
}

func appendRequiredUint(b []byte, num protowire.Number, v uint64) []byte {
	return protowire.AppendVarint(appendTag(b, num, protowire.VarintType), v)
}

func appendUint[T ~uint32 | ~uint64 | ~int32](b []byte, num protowire.Number, v T) []byte {
	if v == 0 {
		return b
	}
	return appendRequiredUint(b, num, uint64(v))
}

func appendOptUint[T ~uint32 | ~uint64](b []byte, num protowire.Number, v *T) []byte {
	if v == nil {
		return b
	}
	return appendRequiredUint(b, num, uint64(*v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendRequiredUint(b, num, 1)
}

func appendOptBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	return appendRequiredUint(b, num, protowire.EncodeBool(*v))
}

func appendRequiredBytes(b []byte, num protowire.Number, v []byte) []byte {
	return protowire.AppendBytes(appendTag(b, num, protowire.BytesType), v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	return appendRequiredBytes(b, num, v)
}

// appendOptBytes emits v whenever it is non-nil, including when it's empty.
func appendOptBytes(b []byte, num protowire.Number, v []byte) []byte {
	if v == nil {
		return b
	}
	return appendRequiredBytes(b, num, v)
}

func appendRequiredString(b []byte, num protowire.Number, v string) []byte {
	return protowire.AppendString(appendTag(b, num, protowire.BytesType), v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	return appendRequiredString(b, num, v)
}

func appendOptString(b []byte, num protowire.Number, v *string) []byte {
	if v == nil {
		return b
	}
	return appendRequiredString(b, num, *v)
}

func appendMessage(b []byte, num protowire.Number, m Message) []byte {
	return protowire.AppendBytes(appendTag(b, num, protowire.BytesType), m.appendTo(nil))
}

func appendPackedUints(b []byte, num protowire.Number, v []uint64) []byte {
	if len(v) == 0 {
		return b
	}
	var packed []byte
	for _, item := range v {
		packed = protowire.AppendVarint(packed, item)
	}
	return protowire.AppendBytes(appendTag(b, num, protowire.BytesType), packed)
}

func appendUnknown(b, unknown []byte) []byte {
	return append(b, unknown...)
}
