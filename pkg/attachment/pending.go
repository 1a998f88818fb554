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

package attachment

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.mau.fi/util/exsync"

	"go.mau.fi/signalbackup/pkg/backuppb"
)

// PendingKey identifies an undownloaded attachment.
type PendingKey struct {
	SenderACI uuid.UUID
	CDNKey    string
}

// PendingDownload is an attachment that must be fetched from its sender's upload
// before it can be restored.
type PendingDownload struct {
	Key       PendingKey
	CDNNumber uint32
	Pointer   *backuppb.FilePointer
}

// PendingQueue collects attachments that need to be downloaded later.
// Enqueueing the same key twice must not result in two downloads.
type PendingQueue interface {
	Enqueue(ctx context.Context, download *PendingDownload) error
}

// MemoryQueue is a PendingQueue that keeps downloads in memory. The zero value is an empty queue.
type MemoryQueue struct {
	init      sync.Once
	downloads *exsync.Map[PendingKey, *PendingDownload]
}

var _ PendingQueue = (*MemoryQueue)(nil)

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (mq *MemoryQueue) queue() *exsync.Map[PendingKey, *PendingDownload] {
	mq.init.Do(func() {
		mq.downloads = exsync.NewMap[PendingKey, *PendingDownload]()
	})
	return mq.downloads
}

func (mq *MemoryQueue) Enqueue(_ context.Context, download *PendingDownload) error {
	mq.queue().Set(download.Key, download)
	return nil
}

// Pop removes a single download from the queue.
func (mq *MemoryQueue) Pop(key PendingKey) (*PendingDownload, bool) {
	return mq.queue().Pop(key)
}

// Drain removes and returns all queued downloads.
func (mq *MemoryQueue) Drain() []*PendingDownload {
	data := mq.queue().SwapData(make(map[PendingKey]*PendingDownload))
	out := make([]*PendingDownload, 0, len(data))
	for _, download := range data {
		out = append(out, download)
	}
	return out
}
