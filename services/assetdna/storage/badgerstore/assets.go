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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AssetDNA/services/assetdna/asset"
	"github.com/AleutianAI/AssetDNA/services/assetdna/storage"
)

// CreateAsset implements storage.AssetStore.
func (s *Store) CreateAsset(ctx context.Context, a *asset.Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		pk := parentIdxKey(a.ParentID, a.Name)
		if _, err := txn.Get(pk); err == nil {
			return storage.ErrConflict
		} else if err != badger.ErrKeyNotFound {
			return translateError(err)
		}
		if err := putAsset(txn, a); err != nil {
			return err
		}
		if err := txn.Set(pk, []byte(a.ID.String())); err != nil {
			return translateError(err)
		}
		return translateError(txn.Set(nameIdxKey(a.Name, a.ID), nil))
	})
}

// UpdateAsset implements storage.AssetStore.
func (s *Store) UpdateAsset(ctx context.Context, a *asset.Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		old, err := getAsset(txn, a.ID)
		if err != nil {
			return err
		}
		if old.Name != a.Name || parentSegment(old.ParentID) != parentSegment(a.ParentID) {
			if err := txn.Delete(parentIdxKey(old.ParentID, old.Name)); err != nil {
				return translateError(err)
			}
			if err := txn.Delete(nameIdxKey(old.Name, old.ID)); err != nil {
				return translateError(err)
			}
			pk := parentIdxKey(a.ParentID, a.Name)
			if item, err := txn.Get(pk); err == nil {
				taken, verr := item.ValueCopy(nil)
				if verr != nil {
					return translateError(verr)
				}
				if string(taken) != a.ID.String() {
					return storage.ErrConflict
				}
			} else if err != badger.ErrKeyNotFound {
				return translateError(err)
			}
			if err := txn.Set(pk, []byte(a.ID.String())); err != nil {
				return translateError(err)
			}
			if err := txn.Set(nameIdxKey(a.Name, a.ID), nil); err != nil {
				return translateError(err)
			}
		}
		return putAsset(txn, a)
	})
}

// GetAsset implements storage.AssetStore.
func (s *Store) GetAsset(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *asset.Asset
	err := s.view(func(txn *badger.Txn) error {
		a, err := getAsset(txn, id)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// FindByParentAndName implements storage.AssetStore.
func (s *Store) FindByParentAndName(ctx context.Context, parentID *uuid.UUID, name string) (*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *asset.Asset
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get(parentIdxKey(parentID, name))
		if err != nil {
			return translateError(err)
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return translateError(err)
		}
		id, err := uuid.Parse(string(raw))
		if err != nil {
			return fmt.Errorf("corrupt parent index value: %w", err)
		}
		out, err = getAsset(txn, id)
		return err
	})
	return out, err
}

// FindByName implements storage.AssetStore.
func (s *Store) FindByName(ctx context.Context, name string) ([]*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*asset.Asset
	err := s.view(func(txn *badger.Txn) error {
		prefix := nameIdxScan(name)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			id, err := uuid.Parse(string(key[len(prefix):]))
			if err != nil {
				return fmt.Errorf("corrupt name index key: %w", err)
			}
			a, err := getAsset(txn, id)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortAssets(out)
	return out, nil
}

// ListAssets implements storage.AssetStore.
//
// Filtering runs over a full scan of the asset prefix. The embedded store
// targets single-site inventories, so a scan stays cheap.
func (s *Store) ListAssets(ctx context.Context, f storage.AssetFilter) ([]*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*asset.Asset
	err := s.view(func(txn *badger.Txn) error {
		return scanAssets(txn, func(a *asset.Asset) {
			if f.Type != "" && a.Type != f.Type {
				return
			}
			if f.Status != "" && a.Status != f.Status {
				return
			}
			if f.HasParentFilter && parentSegment(a.ParentID) != parentSegment(f.ParentID) {
				return
			}
			if f.NameContains != "" &&
				!strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.NameContains)) {
				return
			}
			out = append(out, a)
		})
	})
	if err != nil {
		return nil, err
	}
	sortAssets(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ListChildren implements storage.AssetStore.
func (s *Store) ListChildren(ctx context.Context, parentID *uuid.UUID) ([]*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*asset.Asset
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         parentIdxScan(parentID),
			PrefetchValues: true,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return translateError(err)
			}
			id, err := uuid.Parse(string(raw))
			if err != nil {
				return fmt.Errorf("corrupt parent index value: %w", err)
			}
			a, err := getAsset(txn, id)
			if err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortAssets(out)
	return out, nil
}

// HasChildren implements storage.AssetStore.
func (s *Store) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         parentIdxScan(&id),
			PrefetchValues: false,
		})
		defer it.Close()

		it.Rewind()
		found = it.Valid()
		return nil
	})
	return found, err
}

// DeleteAsset implements storage.AssetStore.
func (s *Store) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		a, err := getAsset(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(parentIdxKey(a.ParentID, a.Name)); err != nil {
			return translateError(err)
		}
		if err := txn.Delete(nameIdxKey(a.Name, a.ID)); err != nil {
			return translateError(err)
		}
		return translateError(txn.Delete(assetKey(id)))
	})
}

// CountAssets implements storage.AssetStore.
func (s *Store) CountAssets(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         []byte(assetPrefix),
			PrefetchValues: false,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// =============================================================================
// Helpers
// =============================================================================

func putAsset(txn *badger.Txn, a *asset.Asset) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode asset: %w", err)
	}
	return translateError(txn.Set(assetKey(a.ID), data))
}

func getAsset(txn *badger.Txn, id uuid.UUID) (*asset.Asset, error) {
	item, err := txn.Get(assetKey(id))
	if err != nil {
		return nil, translateError(err)
	}
	var a asset.Asset
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &a)
	}); err != nil {
		return nil, fmt.Errorf("decode asset: %w", err)
	}
	return &a, nil
}

func scanAssets(txn *badger.Txn, visit func(*asset.Asset)) error {
	it := txn.NewIterator(badger.IteratorOptions{
		Prefix:         []byte(assetPrefix),
		PrefetchValues: true,
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var a asset.Asset
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		}); err != nil {
			return fmt.Errorf("decode asset: %w", err)
		}
		visit(&a)
	}
	return nil
}

func sortAssets(assets []*asset.Asset) {
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Name != assets[j].Name {
			return assets[i].Name < assets[j].Name
		}
		return assets[i].ID.String() < assets[j].ID.String()
	})
}
