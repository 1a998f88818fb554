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
	"fmt"
)

// ErrInvalidProtobuf matches every [*InvalidProtobufError] with [errors.Is].
var ErrInvalidProtobuf = errors.New("invalid protobuf")

// InvalidProtobufError is returned when the wire data violates the backup schema:
// malformed tags or varints, missing required fields or oneof violations.
type InvalidProtobufError struct {
	Message string
	Reason  string
}

func invalid(msg, reason string) error {
	return &InvalidProtobufError{Message: msg, Reason: reason}
}

func (e *InvalidProtobufError) Error() string {
	return fmt.Sprintf("invalid protobuf in %s: %s", e.Message, e.Reason)
}

func (e *InvalidProtobufError) Is(target error) bool {
	return target == ErrInvalidProtobuf
}

func missing(msg, name string) error {
	return invalid(msg, "missing required field: "+name)
}
