// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package intentcapture

import (
	"context"

	"github.com/nextread/nextread/pkg/rankingstore"
)

// StartSession handles a session-start event directly (bypassing the
// queue, since it must complete before any tool-use event for the same
// session can be attributed), creating the session's sequence key with
// its TTL.
func StartSession(ctx context.Context, store *rankingstore.Store, project, session string, now int64) error {
	return store.RecordSessionStart(ctx, project, session, now)
}
