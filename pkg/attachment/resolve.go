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

// Package attachment resolves the file pointers in a backup to download sources.
package attachment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go.mau.fi/signalbackup/pkg/backuppb"
)

var ErrNoLocator = errors.New("file pointer has no locator")

const (
	CDN1Hostname = "cdn.signal.org"
	CDN2Hostname = "cdn2.signal.org"
	CDN3Hostname = "cdn3.signal.org"
)

// CDNHosts maps CDN numbers to hostnames. CDN 0 and 1 are the same host.
var CDNHosts = []string{
	CDN1Hostname,
	CDN1Hostname,
	CDN2Hostname,
	CDN3Hostname,
}

// CDNHost returns the hostname for a CDN number, falling back to CDN 0 for unknown numbers.
func CDNHost(cdnNumber uint32) string {
	if int(cdnNumber) < len(CDNHosts) {
		return CDNHosts[cdnNumber]
	}
	return CDNHosts[0]
}

const (
	attachmentKeyDownloadPath = "/attachments/%s"
	attachmentIDDownloadPath  = "/attachments/%d"
)

// Source is where the encrypted bytes of an attachment can be fetched from: one of
// [*BackupMediaSource], [*TransitSource], [*LegacySource] or [*PendingSource].
type Source interface {
	isSource()
}

// BackupMediaSource is an attachment stored in the backup media tier.
type BackupMediaSource struct {
	MediaName string
	// CDNNumber is nil if the media hasn't been confirmed to be uploaded yet.
	CDNNumber *uint32
}

// TransitSource is an attachment on the transit tier of the messaging CDN.
type TransitSource struct {
	CDNKey          string
	CDNNumber       uint32
	UploadTimestamp uint64
}

func (ts *TransitSource) Path() string {
	return fmt.Sprintf(attachmentKeyDownloadPath, ts.CDNKey)
}

func (ts *TransitSource) URL() string {
	return "https://" + CDNHost(ts.CDNNumber) + ts.Path()
}

// LegacySource is an attachment identified by a numeric id on CDN 0.
type LegacySource struct {
	CDNID uint64
}

func (ls *LegacySource) Path() string {
	return fmt.Sprintf(attachmentIDDownloadPath, ls.CDNID)
}

func (ls *LegacySource) URL() string {
	return "https://" + CDNHost(0) + ls.Path()
}

// PendingSource is an attachment that the exporting device never downloaded.
// It has to go through a [PendingQueue] before it can be fetched.
type PendingSource struct {
	SenderACI uuid.UUID
	CDNKey    string
	CDNNumber uint32
}

func (ps *PendingSource) Key() PendingKey {
	return PendingKey{SenderACI: ps.SenderACI, CDNKey: ps.CDNKey}
}

func (*BackupMediaSource) isSource() {}
func (*TransitSource) isSource()     {}
func (*LegacySource) isSource()      {}
func (*PendingSource) isSource()     {}

// Resolve picks the download strategy for a file pointer based on its locator.
func Resolve(fp *backuppb.FilePointer) (Source, error) {
	if fp == nil {
		return nil, ErrNoLocator
	}
	switch loc := fp.Locator.(type) {
	case *backuppb.BackupLocator:
		return &BackupMediaSource{MediaName: loc.MediaName, CDNNumber: loc.CDNNumber}, nil
	case *backuppb.AttachmentLocator:
		return &TransitSource{CDNKey: loc.CDNKey, CDNNumber: loc.CDNNumber, UploadTimestamp: loc.UploadTimestamp}, nil
	case *backuppb.LegacyAttachmentLocator:
		return &LegacySource{CDNID: loc.CDNID}, nil
	case *backuppb.UndownloadedBackupLocator:
		return &PendingSource{SenderACI: loc.ACI(), CDNKey: loc.CDNKey, CDNNumber: loc.CDNNumber}, nil
	default:
		return nil, ErrNoLocator
	}
}

// Resolver resolves file pointers and hands pending ones over to a queue.
type Resolver struct {
	Pending PendingQueue
}

// Resolve resolves the file pointer like [Resolve]. Pending sources are also
// enqueued in the resolver's queue, if one is set.
func (r *Resolver) Resolve(ctx context.Context, fp *backuppb.FilePointer) (Source, error) {
	source, err := Resolve(fp)
	if err != nil {
		return nil, err
	}
	if pending, ok := source.(*PendingSource); ok && r.Pending != nil {
		err = r.Pending.Enqueue(ctx, &PendingDownload{
			Key:       pending.Key(),
			CDNNumber: pending.CDNNumber,
			Pointer:   fp,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue pending download: %w", err)
		}
		zerolog.Ctx(ctx).Debug().
			Stringer("sender_aci", pending.SenderACI).
			Str("cdn_key", pending.CDNKey).
			Msg("Queued undownloaded attachment")
	}
	return source, nil
}
