// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package rankingstore

import (
	"context"
	"fmt"
)

// sessionTTLSeconds bounds how long a session sequence is retained after
// its last write.
const sessionTTLSeconds = 4 * 3600

func sessionMetaKey(project, session string) string {
	return ns(project, "sessionmeta:"+session)
}

// RecordSessionStart creates (or refreshes) a session sequence's expiry.
// The sequence itself is created lazily by the first AppendToSequence
// call; this verb only establishes the TTL bookkeeping.
func (s *Store) RecordSessionStart(ctx context.Context, project, session string, now int64) error {
	return s.kv.HSet(ctx, sessionMetaKey(project, session), map[string]string{
		"expires_at": itoa(now + sessionTTLSeconds),
	})
}

// AppendToSequence records path as the latest entry in session's
// ordered sequence, refreshing the session's TTL.
func (s *Store) AppendToSequence(ctx context.Context, project, session, path string, now int64) error {
	if err := s.kv.ZUpsert(ctx, seqKey(project, session), path, float64(now)); err != nil {
		return fmt.Errorf("rankingstore: append_to_sequence: %w", err)
	}
	return s.RecordSessionStart(ctx, project, session, now)
}

// SequenceExpired reports whether session's TTL has lapsed as of now.
// Callers use this before trusting LastInSequence for transition
// recording, so a stale session never seeds a transition pair.
func (s *Store) SequenceExpired(ctx context.Context, project, session string, now int64) (bool, error) {
	fields, err := s.kv.HGetAll(ctx, sessionMetaKey(project, session))
	if err != nil {
		return false, err
	}
	expiresAt, ok := fields["expires_at"]
	if !ok {
		return true, nil
	}
	return now > atoi(expiresAt), nil
}

// LastInSequence returns the most recently appended path in session, or
// ok=false if the sequence is empty or expired.
func (s *Store) LastInSequence(ctx context.Context, project, session string, now int64) (string, bool, error) {
	expired, err := s.SequenceExpired(ctx, project, session, now)
	if err != nil || expired {
		return "", false, err
	}
	top, err := s.kv.ZTop(ctx, seqKey(project, session), 1)
	if err != nil {
		return "", false, err
	}
	if len(top) == 0 {
		return "", false, nil
	}
	return top[0].Key, true, nil
}

// PurgeExpiredSessions deletes the sequence and metadata of every
// session whose TTL has lapsed, among the given candidate session ids.
// Run periodically by the cache-eviction loop.
func (s *Store) PurgeExpiredSessions(ctx context.Context, project string, sessions []string, now int64) (int, error) {
	purged := 0
	for _, session := range sessions {
		expired, err := s.SequenceExpired(ctx, project, session, now)
		if err != nil {
			return purged, err
		}
		if !expired {
			continue
		}
		if err := s.kv.HDel(ctx, sessionMetaKey(project, session)); err != nil {
			return purged, err
		}
		members, err := s.kv.ZTop(ctx, seqKey(project, session), 0)
		if err != nil {
			return purged, err
		}
		for _, m := range members {
			if err := s.kv.ZRem(ctx, seqKey(project, session), m.Key); err != nil {
				return purged, err
			}
		}
		purged++
	}
	return purged, nil
}
