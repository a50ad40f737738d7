// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// AppendSnapshot implements storage.SnapshotStore.
//
// The chronological key embeds (taken_at, seq) so every read path is a
// prefix scan in key order. A lookup key maps the snapshot ID back to the
// chronological key.
func (s *Store) AppendSnapshot(ctx context.Context, sn *asset.BOMSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		if err := firstForPrefix(txn, snapTakenScan(sn.AssetID, sn.TakenAt), false,
			func(*badger.Item) error { return storage.ErrConflict }); err != nil {
			return err
		}

		seq, err := nextSeq(txn)
		if err != nil {
			return err
		}
		sn.Seq = seq

		data, err := json.Marshal(sn)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		key := snapKey(sn.AssetID, sn.TakenAt, sn.Seq)
		if err := txn.Set(key, data); err != nil {
			return translateError(err)
		}
		return translateError(txn.Set(snapIDKey(sn.ID), key))
	})
}

// GetSnapshot implements storage.SnapshotStore.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (*asset.BOMSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *asset.BOMSnapshot
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(snapIDKey(id))
		if err != nil {
			return translateError(err)
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return translateError(err)
		}
		snItem, err := txn.Get(key)
		if err != nil {
			return translateError(err)
		}
		out, err = decodeSnapshot(snItem)
		return err
	})
	return out, err
}

// LatestSnapshot implements storage.SnapshotStore.
func (s *Store) LatestSnapshot(ctx context.Context, assetID uuid.UUID) (*asset.BOMSnapshot, error) {
	return s.latestUnder(ctx, snapScan(assetID), nil)
}

// LatestBefore implements storage.SnapshotStore.
func (s *Store) LatestBefore(ctx context.Context, assetID uuid.UUID, ts time.Time) (*asset.BOMSnapshot, error) {
	// Seek just past every seq at ts so snapshots taken exactly at ts
	// are included.
	seek := append(snapTakenScan(assetID, ts), 0xff)
	return s.latestUnder(ctx, snapScan(assetID), seek)
}

func (s *Store) latestUnder(ctx context.Context, prefix, seek []byte) (*asset.BOMSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *asset.BOMSnapshot
	err := s.view(func(txn *badger.Txn) error {
		found := false
		err := reverseScan(txn, prefix, seek, func(item *badger.Item) (bool, error) {
			sn, err := decodeSnapshot(item)
			if err != nil {
				return false, err
			}
			out, found = sn, true
			return false, nil
		})
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrNotFound
		}
		return nil
	})
	return out, err
}

// AllBetween implements storage.SnapshotStore.
func (s *Store) AllBetween(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]*asset.BOMSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*asset.BOMSnapshot
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         snapScan(assetID),
			PrefetchValues: true,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			sn, err := decodeSnapshot(it.Item())
			if err != nil {
				return err
			}
			if sn.TakenAt.Before(from) {
				continue
			}
			if sn.TakenAt.After(to) {
				break
			}
			out = append(out, sn)
		}
		return nil
	})
	return out, err
}

// ListSnapshots implements storage.SnapshotStore.
func (s *Store) ListSnapshots(ctx context.Context, assetID uuid.UUID, limit int) ([]*asset.BOMSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*asset.BOMSnapshot
	err := s.view(func(txn *badger.Txn) error {
		return reverseScan(txn, snapScan(assetID), nil, func(item *badger.Item) (bool, error) {
			sn, err := decodeSnapshot(item)
			if err != nil {
				return false, err
			}
			out = append(out, sn)
			return limit <= 0 || len(out) < limit, nil
		})
	})
	return out, err
}

// CountSnapshots implements storage.SnapshotStore.
func (s *Store) CountSnapshots(ctx context.Context, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(snapPrefix),
			PrefetchValues: !since.IsZero(),
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if since.IsZero() {
				n++
				continue
			}
			sn, err := decodeSnapshot(it.Item())
			if err != nil {
				return err
			}
			if !sn.CreatedAt.Before(since) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// =============================================================================
// Audit Store
// =============================================================================

// AppendEvent implements storage.AuditStore.
func (s *Store) AppendEvent(ctx context.Context, e *asset.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.update(func(txn *badger.Txn) error {
		return translateError(txn.Set(auditKey(e.CreatedAt, e.ID), data))
	})
}

// ListEvents implements storage.AuditStore.
func (s *Store) ListEvents(ctx context.Context, entityID uuid.UUID, limit int) ([]*asset.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*asset.AuditEvent
	err := s.view(func(txn *badger.Txn) error {
		return reverseScan(txn, []byte(auditPrefix), nil, func(item *badger.Item) (bool, error) {
			var e asset.AuditEvent
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return false, fmt.Errorf("decode audit event: %w", err)
			}
			if entityID != uuid.Nil && e.EntityID != entityID {
				return true, nil
			}
			out = append(out, &e)
			return limit <= 0 || len(out) < limit, nil
		})
	})
	return out, err
}

// =============================================================================
// Helpers
// =============================================================================

// nextSeq allocates the next snapshot sequence number. Safe because every
// read-write transaction is serialized by the store lock.
func nextSeq(txn *badger.Txn) (int64, error) {
	var seq int64
	item, err := txn.Get([]byte(snapSeqKey))
	switch {
	case err == badger.ErrKeyNotFound:
		seq = 0
	case err != nil:
		return 0, translateError(err)
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence value of %d bytes", len(val))
			}
			seq = int64(binary.BigEndian.Uint64(val))
			return nil
		}); err != nil {
			return 0, err
		}
	}

	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(seq))
	if err := txn.Set([]byte(snapSeqKey), buf); err != nil {
		return 0, translateError(err)
	}
	return seq, nil
}

func decodeSnapshot(item *badger.Item) (*asset.BOMSnapshot, error) {
	var sn asset.BOMSnapshot
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sn)
	}); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &sn, nil
}

// firstForPrefix invokes visit on the first key under prefix, if any.
func firstForPrefix(txn *badger.Txn, prefix []byte, prefetch bool, visit func(*badger.Item) error) error {
	it := txn.NewIterator(badger.IteratorOptions{
		Prefix:         prefix,
		PrefetchValues: prefetch,
	})
	defer it.Close()

	it.Rewind()
	if !it.Valid() {
		return nil
	}
	return visit(it.Item())
}

// reverseScan iterates keys under prefix newest-first. BadgerDB's reverse
// iterator needs an explicit seek past the prefix range; seek overrides the
// default starting point. visit returns false to stop early.
func reverseScan(txn *badger.Txn, prefix, seek []byte, visit func(*badger.Item) (bool, error)) error {
	it := txn.NewIterator(badger.IteratorOptions{
		Reverse:        true,
		PrefetchValues: true,
	})
	defer it.Close()

	if seek == nil {
		seek = append(append([]byte{}, prefix...), 0xff)
	}
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		cont, err := visit(it.Item())
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
