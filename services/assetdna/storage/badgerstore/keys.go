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
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key layout. Every record type gets its own prefix; secondary index keys
// carry the indexed value in the key so lookups are exact gets or prefix
// scans. A NUL byte separates variable-length segments because names may
// contain any printable character.
const (
	assetPrefix     = "asset:"
	nameIdxPrefix   = "aidx:name:"
	parentIdxPrefix = "aidx:parent:"
	snapPrefix      = "snap:"
	snapIDPrefix    = "snapid:"
	auditPrefix     = "audit:"
	snapSeqKey      = "seq:snapshot"

	sep = "\x00"

	// rootParent stands in for a nil parent in parent index keys.
	rootParent = "root"
)

func assetKey(id uuid.UUID) []byte {
	return []byte(assetPrefix + id.String())
}

func nameIdxKey(name string, id uuid.UUID) []byte {
	return []byte(nameIdxPrefix + name + sep + id.String())
}

// nameIdxScan is the prefix matching every asset with exactly this name.
func nameIdxScan(name string) []byte {
	return []byte(nameIdxPrefix + name + sep)
}

func parentSegment(parentID *uuid.UUID) string {
	if parentID == nil {
		return rootParent
	}
	return parentID.String()
}

// parentIdxKey is unique per (parent, name); its value is the child's ID.
func parentIdxKey(parentID *uuid.UUID, name string) []byte {
	return []byte(parentIdxPrefix + parentSegment(parentID) + sep + name)
}

// parentIdxScan is the prefix matching every direct child of a parent,
// ordered by name.
func parentIdxScan(parentID *uuid.UUID) []byte {
	return []byte(parentIdxPrefix + parentSegment(parentID) + sep)
}

// tsSegment encodes a timestamp so byte order matches chronological order.
func tsSegment(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// snapKey orders an asset's snapshots by (taken_at, seq).
func snapKey(assetID uuid.UUID, takenAt time.Time, seq int64) []byte {
	return []byte(snapPrefix + assetID.String() + sep + tsSegment(takenAt) +
		sep + fmt.Sprintf("%012d", seq))
}

func snapScan(assetID uuid.UUID) []byte {
	return []byte(snapPrefix + assetID.String() + sep)
}

// snapTakenScan is the prefix matching snapshots of one asset at exactly
// one taken_at, regardless of sequence.
func snapTakenScan(assetID uuid.UUID, takenAt time.Time) []byte {
	return []byte(snapPrefix + assetID.String() + sep + tsSegment(takenAt) + sep)
}

func snapIDKey(id uuid.UUID) []byte {
	return []byte(snapIDPrefix + id.String())
}

// auditKey orders the audit trail chronologically.
func auditKey(createdAt time.Time, id uuid.UUID) []byte {
	return []byte(auditPrefix + tsSegment(createdAt) + sep + id.String())
}
