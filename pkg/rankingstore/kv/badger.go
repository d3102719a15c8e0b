// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package kv

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config configures the embedded store. Mirrors the shape of a
// conventional Badger wrapper: in-memory for tests, on-disk for
// standalone deployment.
type Config struct {
	// Path is the on-disk directory. Required unless InMemory.
	Path string
	// InMemory opens Badger with no disk persistence, used by tests and
	// by ephemeral projects that opt out of durability.
	InMemory bool
	// SyncWrites forces an fsync on every commit. Defaults to true for
	// on-disk stores; ignored for InMemory.
	SyncWrites bool
	// GCInterval schedules periodic value-log garbage collection. Zero
	// disables it.
	GCInterval time.Duration
}

// DefaultConfig returns the on-disk configuration used by `nextread serve`.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true, GCInterval: 5 * time.Minute}
}

// InMemoryConfig returns the configuration used by tests.
func InMemoryConfig() Config {
	return Config{InMemory: true, GCInterval: 0}
}

// BadgerStore is the embedded Store implementation backing standalone
// deployments. A sorted set is represented by two key families so that
// score-ordered iteration falls out of Badger's native lexicographic
// key order instead of requiring an in-memory rebuild on every read:
//
//	z:<set>\x00m:<member>          -> big-endian float64 score
//	z:<set>\x00s:<scorebytes>:<member> -> "" (index-only, iterated for ranking)
type BadgerStore struct {
	db *badger.DB
	gc *gcRunner
}

// Open opens (or creates) an embedded store per cfg.
func Open(cfg Config) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("kv: path is required for a non-in-memory store")
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger: %w", err)
	}

	s := &BadgerStore{db: db}
	if cfg.GCInterval > 0 {
		s.gc = newGCRunner(db, cfg.GCInterval, 0.5)
		s.gc.start()
	}
	return s, nil
}

func (s *BadgerStore) Close() error {
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

func memberKey(set, member string) []byte {
	return []byte("z:" + set + "\x00m:" + member)
}

func scorePrefix(set string) []byte {
	return []byte("z:" + set + "\x00s:")
}

func scoreIndexKey(set string, score float64, member string) []byte {
	return append(scorePrefix(set), append(sortableScoreBytes(score), []byte(":"+member)...)...)
}

// sortableScoreBytes encodes a float64 so that unsigned byte-wise
// comparison matches numeric ordering (IEEE-754 monotonic mapping).
func sortableScoreBytes(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}

func memberFromScoreIndexKey(key []byte, set string) string {
	prefix := scorePrefix(set)
	rest := key[len(prefix):]
	// rest is <8 score bytes>:<member>
	if len(rest) < 9 {
		return ""
	}
	return string(rest[9:])
}

func (s *BadgerStore) ZUpsert(ctx context.Context, set, member string, score float64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return zUpsertTxn(txn, set, member, score)
	})
}

func zUpsertTxn(txn *badger.Txn, set, member string, score float64) error {
	mk := memberKey(set, member)
	if item, err := txn.Get(mk); err == nil {
		var old float64
		if verr := item.Value(func(val []byte) error {
			old = math.Float64frombits(binary.BigEndian.Uint64(val))
			return nil
		}); verr != nil {
			return verr
		}
		if err := txn.Delete(scoreIndexKey(set, old, member)); err != nil {
			return err
		}
	} else if err != badger.ErrKeyNotFound {
		return err
	}

	scoreBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(scoreBytes, math.Float64bits(score))
	if err := txn.Set(mk, scoreBytes); err != nil {
		return err
	}
	return txn.Set(scoreIndexKey(set, score, member), nil)
}

func (s *BadgerStore) ZIncrBy(ctx context.Context, set, member string, delta float64) (float64, error) {
	var next float64
	err := s.db.Update(func(txn *badger.Txn) error {
		var current float64
		mk := memberKey(set, member)
		item, err := txn.Get(mk)
		if err == nil {
			if verr := item.Value(func(val []byte) error {
				current = math.Float64frombits(binary.BigEndian.Uint64(val))
				return nil
			}); verr != nil {
				return verr
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		next = current + delta
		return zUpsertTxn(txn, set, member, next)
	})
	return next, err
}

func (s *BadgerStore) ZScore(ctx context.Context, set, member string) (float64, error) {
	var score float64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(memberKey(set, member))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			score = math.Float64frombits(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	return score, err
}

func (s *BadgerStore) ZTop(ctx context.Context, set string, n int) ([]Member, error) {
	var out []Member
	prefix := scorePrefix(set)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		// Reverse iteration must seed from a key past the prefix's range.
		seek := append(append([]byte{}, prefix...), 0xFF)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(seek); it.ValidForPrefix(prefix) && (n <= 0 || len(out) < n); it.Next() {
			key := it.Item().KeyCopy(nil)
			member := memberFromScoreIndexKey(key, set)
			score, err := s.scoreFromIndexKey(txn, key, prefix)
			if err != nil {
				continue
			}
			out = append(out, Member{Key: member, Score: score})
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) scoreFromIndexKey(txn *badger.Txn, key, prefix []byte) (float64, error) {
	rest := key[len(prefix):]
	if len(rest) < 8 {
		return 0, fmt.Errorf("kv: malformed score index key")
	}
	bits := binary.BigEndian.Uint64(rest[:8])
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

func (s *BadgerStore) ZCard(ctx context.Context, set string) (int, error) {
	count := 0
	prefix := scorePrefix(set)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *BadgerStore) ZTrimToTop(ctx context.Context, set string, n int) error {
	top, err := s.ZTop(ctx, set, n)
	if err != nil {
		return err
	}
	keep := make(map[string]struct{}, len(top))
	for _, m := range top {
		keep[m.Key] = struct{}{}
	}

	prefix := scorePrefix(set)
	var toDelete []string
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			member := memberFromScoreIndexKey(it.Item().KeyCopy(nil), set)
			if _, ok := keep[member]; !ok {
				toDelete = append(toDelete, member)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, member := range toDelete {
		if err := s.ZRem(ctx, set, member); err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) ZRangeByScore(ctx context.Context, set string, min, max float64) ([]Member, error) {
	var out []Member
	prefix := scorePrefix(set)
	lo := append(append([]byte{}, prefix...), sortableScoreBytes(min)...)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(lo); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			score, err := s.scoreFromIndexKey(txn, key, prefix)
			if err != nil {
				continue
			}
			if score > max {
				break
			}
			out = append(out, Member{Key: memberFromScoreIndexKey(key, set), Score: score})
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) ZRem(ctx context.Context, set, member string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		mk := memberKey(set, member)
		item, err := txn.Get(mk)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var score float64
		if verr := item.Value(func(val []byte) error {
			score = math.Float64frombits(binary.BigEndian.Uint64(val))
			return nil
		}); verr != nil {
			return verr
		}
		if err := txn.Delete(mk); err != nil {
			return err
		}
		return txn.Delete(scoreIndexKey(set, score, member))
	})
}

func setKey(set, member string) []byte {
	return []byte("s:" + set + "\x00" + member)
}

func setPrefix(set string) []byte {
	return []byte("s:" + set + "\x00")
}

func (s *BadgerStore) SAdd(ctx context.Context, set, member string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(setKey(set, member), nil)
	})
}

func (s *BadgerStore) SMembers(ctx context.Context, set string) ([]string, error) {
	var out []string
	prefix := setPrefix(set)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			out = append(out, string(key[len(prefix):]))
		}
		return nil
	})
	return out, err
}

func hashKey(key string) []byte {
	return []byte("h:" + key)
}

func (s *BadgerStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	existing, err := s.HGetAll(ctx, key)
	if err != nil {
		return err
	}
	for k, v := range fields {
		existing[k] = v
	}
	var sb strings.Builder
	for k, v := range existing {
		sb.WriteString(k)
		sb.WriteByte('\x00')
		sb.WriteString(v)
		sb.WriteByte('\x01')
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(hashKey(key), []byte(sb.String()))
	})
}

func (s *BadgerStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(hashKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			for _, field := range strings.Split(string(val), "\x01") {
				if field == "" {
					continue
				}
				parts := strings.SplitN(field, "\x00", 2)
				if len(parts) == 2 {
					out[parts[0]] = parts[1]
				}
			}
			return nil
		})
	})
	return out, err
}

func (s *BadgerStore) HDel(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(hashKey(key))
	})
}

// gcRunner periodically triggers Badger's value-log garbage collection.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	done     chan struct{}
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64) *gcRunner {
	return &gcRunner{db: db, interval: interval, ratio: ratio, done: make(chan struct{})}
}

func (g *gcRunner) start() {
	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.done:
				return
			case <-ticker.C:
				for g.db.RunValueLogGC(g.ratio) == nil {
				}
			}
		}
	}()
}

func (g *gcRunner) stop() {
	close(g.done)
}
