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
	"strings"

	"github.com/emersion/go-vcard"
)

// ContactAttachment is a contact card shared in a [ContactMessage].
type ContactAttachment struct {
	Name         *ContactName
	Number       []*ContactPhone
	Email        []*ContactEmail
	Address      []*PostalAddress
	Avatar       *FilePointer
	Organization string

	Unknown []byte
}

func (ca *ContactAttachment) appendTo(b []byte) []byte {
	if ca.Name != nil {
		b = appendMessage(b, 1, ca.Name)
	}
	for _, phone := range ca.Number {
		b = appendMessage(b, 2, phone)
	}
	for _, email := range ca.Email {
		b = appendMessage(b, 3, email)
	}
	for _, addr := range ca.Address {
		b = appendMessage(b, 4, addr)
	}
	if ca.Avatar != nil {
		b = appendMessage(b, 5, ca.Avatar)
	}
	b = appendString(b, 6, ca.Organization)
	return appendUnknown(b, ca.Unknown)
}

func (ca *ContactAttachment) unmarshal(b []byte) (err error) {
	*ca = ContactAttachment{}
	ca.Unknown, err = parseFields("ContactAttachment", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			ca.Name = &ContactName{}
			err = f.message("name", ca.Name)
		case 2:
			phone := &ContactPhone{}
			err = f.message("number", phone)
			ca.Number = append(ca.Number, phone)
		case 3:
			email := &ContactEmail{}
			err = f.message("email", email)
			ca.Email = append(ca.Email, email)
		case 4:
			addr := &PostalAddress{}
			err = f.message("address", addr)
			ca.Address = append(ca.Address, addr)
		case 5:
			ca.Avatar = &FilePointer{}
			err = f.message("avatar", ca.Avatar)
		case 6:
			ca.Organization, err = f.string("organization")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

type ContactName struct {
	GivenName   string
	FamilyName  string
	Prefix      string
	Suffix      string
	MiddleName  string
	DisplayName string

	Unknown []byte
}

func (cn *ContactName) appendTo(b []byte) []byte {
	b = appendString(b, 1, cn.GivenName)
	b = appendString(b, 2, cn.FamilyName)
	b = appendString(b, 3, cn.Prefix)
	b = appendString(b, 4, cn.Suffix)
	b = appendString(b, 5, cn.MiddleName)
	b = appendString(b, 6, cn.DisplayName)
	return appendUnknown(b, cn.Unknown)
}

func (cn *ContactName) unmarshal(b []byte) (err error) {
	*cn = ContactName{}
	cn.Unknown, err = parseFields("ContactAttachment.Name", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			cn.GivenName, err = f.string("givenName")
		case 2:
			cn.FamilyName, err = f.string("familyName")
		case 3:
			cn.Prefix, err = f.string("prefix")
		case 4:
			cn.Suffix, err = f.string("suffix")
		case 5:
			cn.MiddleName, err = f.string("middleName")
		case 6:
			cn.DisplayName, err = f.string("displayName")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

// ContactPhone and ContactEmail share the same shape on the wire.
type contactField struct {
	Value string
	Type  ContactFieldType
	Label string

	Unknown []byte
}

type ContactPhone contactField
type ContactEmail contactField

func (cf *contactField) appendTo(b []byte) []byte {
	b = appendString(b, 1, cf.Value)
	b = appendUint(b, 2, cf.Type)
	b = appendString(b, 3, cf.Label)
	return appendUnknown(b, cf.Unknown)
}

func (cf *contactField) unmarshal(msg string, b []byte) (err error) {
	*cf = contactField{}
	cf.Unknown, err = parseFields(msg, b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			cf.Value, err = f.string("value")
		case 2:
			cf.Type, err = enum(f, "type", ContactFieldCustom)
		case 3:
			cf.Label, err = f.string("label")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

func (cp *ContactPhone) appendTo(b []byte) []byte {
	return (*contactField)(cp).appendTo(b)
}

func (cp *ContactPhone) unmarshal(b []byte) error {
	return (*contactField)(cp).unmarshal("ContactAttachment.Phone", b)
}

func (ce *ContactEmail) appendTo(b []byte) []byte {
	return (*contactField)(ce).appendTo(b)
}

func (ce *ContactEmail) unmarshal(b []byte) error {
	return (*contactField)(ce).unmarshal("ContactAttachment.Email", b)
}

type PostalAddress struct {
	Type         AddressType
	Label        string
	Street       string
	Pobox        string
	Neighborhood string
	City         string
	Region       string
	Postcode     string
	Country      string

	Unknown []byte
}

func (pa *PostalAddress) appendTo(b []byte) []byte {
	b = appendUint(b, 1, pa.Type)
	b = appendString(b, 2, pa.Label)
	b = appendString(b, 3, pa.Street)
	b = appendString(b, 4, pa.Pobox)
	b = appendString(b, 5, pa.Neighborhood)
	b = appendString(b, 6, pa.City)
	b = appendString(b, 7, pa.Region)
	b = appendString(b, 8, pa.Postcode)
	b = appendString(b, 9, pa.Country)
	return appendUnknown(b, pa.Unknown)
}

func (pa *PostalAddress) unmarshal(b []byte) (err error) {
	*pa = PostalAddress{}
	pa.Unknown, err = parseFields("ContactAttachment.PostalAddress", b, func(f *field) (_ bool, err error) {
		switch f.num {
		case 1:
			pa.Type, err = enum(f, "type", AddressTypeCustom)
		case 2:
			pa.Label, err = f.string("label")
		case 3:
			pa.Street, err = f.string("street")
		case 4:
			pa.Pobox, err = f.string("pobox")
		case 5:
			pa.Neighborhood, err = f.string("neighborhood")
		case 6:
			pa.City, err = f.string("city")
		case 7:
			pa.Region, err = f.string("region")
		case 8:
			pa.Postcode, err = f.string("postcode")
		case 9:
			pa.Country, err = f.string("country")
		default:
			return false, nil
		}
		return true, err
	})
	return
}

func addContactField(card vcard.Card, key string, value string, typ ContactFieldType, label string) {
	field := vcard.Field{
		Value:  value,
		Params: make(vcard.Params),
	}
	field.Params.Set(vcard.ParamType, strings.ToLower(typ.String()))
	if label != "" {
		field.Params.Set("LABEL", label)
	}
	card.Add(key, &field)
}

// VCard converts the contact into a vCard 4.0 card. The avatar isn't included,
// as it needs to be downloaded separately.
func (ca *ContactAttachment) VCard() vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, "4.0")
	if name := ca.Name; name != nil {
		if name.FamilyName != "" || name.GivenName != "" {
			card.SetName(&vcard.Name{
				FamilyName:      name.FamilyName,
				GivenName:       name.GivenName,
				AdditionalName:  name.MiddleName,
				HonorificPrefix: name.Prefix,
				HonorificSuffix: name.Suffix,
			})
		}
		if name.DisplayName != "" {
			card.SetValue(vcard.FieldFormattedName, name.DisplayName)
		}
	}
	if ca.Organization != "" {
		card.SetValue(vcard.FieldOrganization, ca.Organization)
	}
	for _, addr := range ca.Address {
		field := vcard.Field{
			Value: strings.Join([]string{
				addr.Pobox,
				addr.Neighborhood,
				addr.Street,
				addr.City,
				addr.Region,
				addr.Postcode,
				addr.Country,
			}, ";"),
			Params: make(vcard.Params),
		}
		if addr.Label != "" {
			field.Params.Set("LABEL", addr.Label)
		}
		field.Params.Set(vcard.ParamType, strings.ToLower(addr.Type.String()))
		card.Add(vcard.FieldAddress, &field)
	}
	for _, email := range ca.Email {
		addContactField(card, vcard.FieldEmail, email.Value, email.Type, email.Label)
	}
	for _, phone := range ca.Number {
		addContactField(card, vcard.FieldTelephone, phone.Value, phone.Type, phone.Label)
	}
	return card
}
