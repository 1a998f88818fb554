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

// Package store persists imported backups in an SQL database.
package store

import (
	"context"

	"go.mau.fi/util/dbutil"

	"go.mau.fi/signalbackup/pkg/store/upgrades"
)

// Container is a wrapper for an SQL database that can contain backups of multiple accounts.
type Container struct {
	db *dbutil.Database
}

func NewStore(db *dbutil.Database, log dbutil.DatabaseLogger) *Container {
	return &Container{db: db.Child("signalbackup_version", upgrades.Table, log)}
}

func (c *Container) Upgrade(ctx context.Context) error {
	return c.db.Upgrade(ctx)
}

// BackupStore returns the store for the backup of the given account.
func (c *Container) BackupStore(accountID string) *BackupStore {
	return &BackupStore{db: c.db, AccountID: accountID}
}

// PendingStore returns the queue of undownloaded attachments of the given account.
func (c *Container) PendingStore(accountID string) *PendingStore {
	return &PendingStore{db: c.db, AccountID: accountID}
}

// DoTxn runs fn in a transaction. Store methods called with the context passed to fn use the transaction.
func (c *Container) DoTxn(ctx context.Context, fn func(context.Context) error) error {
	ctx = context.WithValue(ctx, dbutil.ContextKeyDoTxnCallerSkip, 1)
	return c.db.DoTxn(ctx, nil, fn)
}
