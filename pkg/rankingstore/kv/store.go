// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package kv defines the low-level sorted-set/hash store abstraction
// that pkg/rankingstore builds its domain verbs on top of, and provides
// two implementations: an embedded Badger-backed store for standalone
// use, and a networked Redis-backed store for a shared deployment.
//
// This mirrors the pluggable embedded/remote storage split the rest of
// this codebase uses elsewhere, generalized here from a query-language
// backend to the sorted-set/hash primitives the Ranking Store needs.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get-like operations that find no member.
var ErrNotFound = errors.New("kv: not found")

// Member is one scored entry of a sorted set.
type Member struct {
	Key   string
	Score float64
}

// Store is the sorted-set/hash primitive surface every Ranking Store
// verb is built from. Every method is atomic with respect to the key(s)
// it touches. It has no TTL primitive; session expiry is kept by
// pkg/rankingstore itself.
type Store interface {
	// ZSet (sorted set) operations. set is the sorted-set name, member
	// the element key within it.

	// ZUpsert sets member's score unconditionally (last-writer-wins).
	ZUpsert(ctx context.Context, set, member string, score float64) error
	// ZIncrBy adds delta to member's current score (0 if absent) and
	// returns the new score.
	ZIncrBy(ctx context.Context, set, member string, delta float64) (float64, error)
	// ZScore returns member's score, or ErrNotFound if absent.
	ZScore(ctx context.Context, set, member string) (float64, error)
	// ZTop returns the top n members by descending score.
	ZTop(ctx context.Context, set string, n int) ([]Member, error)
	// ZCard returns the number of members in set.
	ZCard(ctx context.Context, set string) (int, error)
	// ZTrimToTop deletes every member outside the top n by score,
	// bounding sets like trans:A that would otherwise grow unboundedly.
	ZTrimToTop(ctx context.Context, set string, n int) error
	// ZRangeByScore returns members with score in [min, max], ascending.
	ZRangeByScore(ctx context.Context, set string, min, max float64) ([]Member, error)
	// ZRem deletes member from set.
	ZRem(ctx context.Context, set, member string) error

	// SAdd adds member to an unordered set (e.g. Path→Tags).
	SAdd(ctx context.Context, set, member string) error
	// SMembers returns every member of an unordered set.
	SMembers(ctx context.Context, set string) ([]string, error)

	// HSet writes a hash record (e.g. pred:{id}, tuner:arm:k).
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HGetAll reads a hash record; returns an empty, non-nil map and no
	// error if key does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HDel deletes a hash record.
	HDel(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}
