package rdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	"github.com/doctable/rdb/journal"
)

// BackfillItemKind tags the three shapes a backfill stream emits.
type BackfillItemKind int

const (
	BackfillErase BackfillItemKind = iota
	BackfillKV
	BackfillIndexDef
)

// BackfillItem is one record of a backfill stream.
type BackfillItem struct {
	Kind BackfillItemKind

	// BackfillErase
	EraseLeft, EraseRight []byte
	ErasedAt              time.Time

	// BackfillKV
	Key     []byte
	Recency time.Time
	Doc     Document

	// BackfillIndexDef
	IndexShortName string
	IndexID        uuid.UUID
}

// Backfill streams, in order, every erasure marker newer than sinceWhen
// overlapping rng, every (key, recency, document) tuple newer than
// sinceWhen within rng, and finally the table's current index definitions.
// cb's return value is a continuation signal: returning false stops the
// traversal early, same as ctx being canceled.
func (tx *Tx) Backfill(ctx context.Context, tbl *Table, rng KeyRange, sinceWhen time.Time, cb func(BackfillItem) bool) error {
	if cont, err := tx.backfillErasures(ctx, tbl, rng, sinceWhen, cb); err != nil || !cont {
		return err
	}
	if cont, err := tx.backfillKV(ctx, tbl, rng, sinceWhen, cb); err != nil || !cont {
		return err
	}
	for _, idx := range tbl.indexes {
		if !cb(BackfillItem{Kind: BackfillIndexDef, IndexShortName: idx.shortName, IndexID: idx.id}) {
			return nil
		}
	}
	return nil
}

func (tx *Tx) backfillErasures(ctx context.Context, tbl *Table, rng KeyRange, sinceWhen time.Time, cb func(BackfillItem) bool) (bool, error) {
	cur := tx.erasuresBucket(tbl).Cursor()
	var n int
	for key, raw := cur.First(); key != nil; key, raw = cur.Next() {
		n++
		if n%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return false, nil
			default:
			}
		}

		left, rest, ok := readVarbytes(raw)
		if !ok {
			return false, dataErrf(raw, 0, nil, "corrupted erasure log record")
		}
		right, rest, ok := readVarbytes(rest)
		if !ok || len(rest) < 8 {
			return false, dataErrf(raw, 0, nil, "corrupted erasure log record")
		}
		erasedAt := time.Unix(0, int64(binary.BigEndian.Uint64(rest[:8])))

		if !erasedAt.After(sinceWhen) {
			continue
		}
		if !rangesOverlap(rng, KeyRange{Left: left, Right: right}) {
			continue
		}
		if !cb(BackfillItem{Kind: BackfillErase, EraseLeft: left, EraseRight: right, ErasedAt: erasedAt}) {
			return false, nil
		}
	}
	return true, nil
}

func (tx *Tx) backfillKV(ctx context.Context, tbl *Table, rng KeyRange, sinceWhen time.Time, cb func(BackfillItem) bool) (bool, error) {
	blob := tx.primaryBlob(tbl)
	cur := tx.dataBucket(tbl).Cursor()
	var n int
	for key, raw := rng.seekCursor(cur); key != nil && rng.contains(key); key, raw = cur.Next() {
		n++
		if n%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return false, nil
			default:
			}
		}

		recency := tx.recencyOf(tbl, key)
		if !recency.After(sinceWhen) {
			continue
		}
		doc, err := blob.readValue(raw)
		if err != nil {
			return false, err
		}
		if !cb(BackfillItem{Kind: BackfillKV, Key: append([]byte(nil), key...), Recency: recency, Doc: doc}) {
			return false, nil
		}
	}
	return true, nil
}

func rangesOverlap(a, b KeyRange) bool {
	if a.Right != nil && b.Left != nil && bytes.Compare(a.Right, b.Left) <= 0 {
		return false
	}
	if b.Right != nil && a.Left != nil && bytes.Compare(b.Right, a.Left) <= 0 {
		return false
	}
	return true
}

const (
	bfTagErase = 0
	bfTagKV    = 1
	bfTagIndex = 2
)

func encodeBackfillItem(item BackfillItem) []byte {
	switch item.Kind {
	case BackfillErase:
		buf := []byte{bfTagErase}
		buf = appendVarbytes(buf, item.EraseLeft)
		buf = appendVarbytes(buf, item.EraseRight)
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(item.ErasedAt.UnixNano()))
		return appendRaw(buf, ts[:])
	case BackfillKV:
		buf := []byte{bfTagKV}
		buf = appendVarbytes(buf, item.Key)
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(item.Recency.UnixNano()))
		buf = appendRaw(buf, ts[:])
		return appendVarbytes(buf, encode(item.Doc))
	case BackfillIndexDef:
		buf := []byte{bfTagIndex}
		buf = appendVarbytes(buf, []byte(item.IndexShortName))
		return appendRaw(buf, item.IndexID[:])
	default:
		panic("rdb: unhandled backfill item kind")
	}
}

func decodeBackfillItem(data []byte) (BackfillItem, error) {
	if len(data) == 0 {
		return BackfillItem{}, dataErrf(data, 0, nil, "empty backfill record")
	}
	tag, rest := data[0], data[1:]
	switch tag {
	case bfTagErase:
		left, rest, ok := readVarbytes(rest)
		if !ok {
			return BackfillItem{}, dataErrf(data, 0, nil, "corrupted erase-marker record")
		}
		right, rest, ok := readVarbytes(rest)
		if !ok || len(rest) < 8 {
			return BackfillItem{}, dataErrf(data, 0, nil, "corrupted erase-marker record")
		}
		ts := time.Unix(0, int64(binary.BigEndian.Uint64(rest[:8])))
		return BackfillItem{Kind: BackfillErase, EraseLeft: left, EraseRight: right, ErasedAt: ts}, nil

	case bfTagKV:
		key, rest, ok := readVarbytes(rest)
		if !ok || len(rest) < 8 {
			return BackfillItem{}, dataErrf(data, 0, nil, "corrupted kv-tuple record")
		}
		ts := time.Unix(0, int64(binary.BigEndian.Uint64(rest[:8])))
		rest = rest[8:]
		docBytes, _, ok := readVarbytes(rest)
		if !ok {
			return BackfillItem{}, dataErrf(data, 0, nil, "corrupted kv-tuple record")
		}
		doc, err := decode(docBytes)
		if err != nil {
			return BackfillItem{}, err
		}
		return BackfillItem{Kind: BackfillKV, Key: key, Recency: ts, Doc: doc}, nil

	case bfTagIndex:
		name, rest, ok := readVarbytes(rest)
		if !ok || len(rest) < 16 {
			return BackfillItem{}, dataErrf(data, 0, nil, "corrupted index-def record")
		}
		id, err := uuid.FromBytes(rest[:16])
		if err != nil {
			return BackfillItem{}, dataErrf(data, 0, err, "corrupted index-def record")
		}
		return BackfillItem{Kind: BackfillIndexDef, IndexShortName: string(name), IndexID: id}, nil

	default:
		return BackfillItem{}, dataErrf(data, 0, nil, "unknown backfill record tag %d", tag)
	}
}

// CaptureBackfill runs a backfill and durably appends every emitted item to
// a journal segment, so the captured log can later be replayed against an
// empty store to reproduce the source range. jnl must already be writing
// (StartWriting called); the caller is responsible for Commit and
// FinishWriting once capture completes.
func (tx *Tx) CaptureBackfill(ctx context.Context, tbl *Table, rng KeyRange, sinceWhen time.Time, jnl *journal.Journal) error {
	return tx.Backfill(ctx, tbl, rng, sinceWhen, func(item BackfillItem) bool {
		if err := jnl.WriteRecord(0, encodeBackfillItem(item)); err != nil {
			return false
		}
		return true
	})
}

// ReplayBackfill reads back a segment file written by CaptureBackfill and
// feeds its items through cb, the same callback shape a live Backfill call
// uses.
func ReplayBackfill(segmentPath string, cb func(BackfillItem) bool) error {
	records, err := journal.ReadSegment(segmentPath)
	if err != nil {
		return err
	}
	for _, raw := range records {
		item, err := decodeBackfillItem(raw)
		if err != nil {
			return err
		}
		if !cb(item) {
			break
		}
	}
	return nil
}
