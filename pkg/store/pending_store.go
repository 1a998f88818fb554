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

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mau.fi/util/dbutil"

	"go.mau.fi/signalbackup/pkg/attachment"
	"go.mau.fi/signalbackup/pkg/backuppb"
)

// PendingStore is a persistent [attachment.PendingQueue].
type PendingStore struct {
	db        *dbutil.Database
	AccountID string
}

var _ attachment.PendingQueue = (*PendingStore)(nil)

const (
	addPendingDownloadQuery = `
		INSERT INTO signalbackup_pending_download (account_id, sender_aci, cdn_key, cdn_number, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, sender_aci, cdn_key) DO NOTHING
	`
	getPendingDownloadsQuery = `
		SELECT sender_aci, cdn_key, cdn_number, data FROM signalbackup_pending_download WHERE account_id=$1
	`
	deletePendingDownloadQuery = `
		DELETE FROM signalbackup_pending_download WHERE account_id=$1 AND sender_aci=$2 AND cdn_key=$3
	`
	countPendingDownloadsQuery = `
		SELECT COUNT(*) FROM signalbackup_pending_download WHERE account_id=$1
	`
)

func (ps *PendingStore) Enqueue(ctx context.Context, download *attachment.PendingDownload) error {
	data, err := backuppb.Marshal(download.Pointer)
	if err != nil {
		return fmt.Errorf("failed to marshal file pointer: %w", err)
	}
	_, err = ps.db.Exec(ctx, addPendingDownloadQuery, ps.AccountID, download.Key.SenderACI, download.Key.CDNKey, download.CDNNumber, data)
	return err
}

func scanPendingDownload(row dbutil.Scannable) (*attachment.PendingDownload, error) {
	var pd attachment.PendingDownload
	var senderACI string
	var data []byte
	err := row.Scan(&senderACI, &pd.Key.CDNKey, &pd.CDNNumber, &data)
	if err != nil {
		return nil, err
	}
	pd.Key.SenderACI, err = uuid.Parse(senderACI)
	if err != nil {
		return nil, fmt.Errorf("invalid sender ACI in pending download: %w", err)
	}
	pd.Pointer = &backuppb.FilePointer{}
	return &pd, backuppb.Unmarshal(data, pd.Pointer)
}

var pendingScanner = dbutil.ConvertRowFn[*attachment.PendingDownload](scanPendingDownload)

// GetAll returns every queued download.
func (ps *PendingStore) GetAll(ctx context.Context) ([]*attachment.PendingDownload, error) {
	return pendingScanner.NewRowIter(ps.db.Query(ctx, getPendingDownloadsQuery, ps.AccountID)).AsList()
}

// Count returns the number of queued downloads.
func (ps *PendingStore) Count(ctx context.Context) (count int, err error) {
	err = ps.db.QueryRow(ctx, countPendingDownloadsQuery, ps.AccountID).Scan(&count)
	return
}

// Delete removes a download from the queue, usually after it has been fetched.
func (ps *PendingStore) Delete(ctx context.Context, key attachment.PendingKey) error {
	_, err := ps.db.Exec(ctx, deletePendingDownloadQuery, ps.AccountID, key.SenderACI, key.CDNKey)
	return err
}
