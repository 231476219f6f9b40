package rdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Index is a live secondary index: {id, opaque mapping, own B-tree}. The
// opaque wire-function definition is modeled as an in-process closure, so
// deserializing the compiled mapping is a no-op here, represented by
// resolveMapping so the fatal-on-corruption contract still has somewhere
// to live.
type Index struct {
	id        uuid.UUID
	shortName string
	table     *Table
	mapping   IndexMapping
	built     bool
}

func newIndexID() uuid.UUID { return uuid.New() }

func (idx *Index) ID() uuid.UUID     { return idx.id }
func (idx *Index) ShortName() string { return idx.shortName }
func (idx *Index) Table() *Table     { return idx.table }
func (idx *Index) IsBuilt() bool     { return idx.built }

func (idx *Index) FullName() string {
	return fmt.Sprintf("%s.%s", idx.table.name, idx.shortName)
}

func (idx *Index) subBucket() string { return "idx:" + idx.shortName }

// resolveMapping is the "deserialize the compiled mapping from the index's
// opaque definition" step. A nil mapping is the only way this
// can fail in-process; a real wire-format deserializer would instead report
// malformed bytes here.
func (idx *Index) resolveMapping() (IndexMapping, error) {
	if idx.mapping == nil {
		return nil, indexErrf(idx, nil, "corrupted index definition: no mapping")
	}
	return idx.mapping, nil
}

// printSecondary computes the secondary B-tree key for a document's index
// datum and primary key: orders by index_datum first, then by
// primary key as a tiebreaker, and is a pure function of its inputs.
func printSecondary(datum, primaryKey Document) []byte {
	buf := appendOrderedComponent(nil, datum)
	return appendOrderedComponent(buf, primaryKey)
}

// handoff is a single-producer, multi-consumer cell with one set and any
// number of awaits, modeling a write-token handoff: the primary write path
// signals completion once, and every sindex updater — one per live index —
// waits on that same signal before touching its bucket. A second set panics.
type handoff struct {
	ch   chan struct{}
	sent bool
}

func newHandoff() *handoff { return &handoff{ch: make(chan struct{})} }

func (h *handoff) set() {
	if h.sent {
		panic("rdb: superblock handoff double-set")
	}
	h.sent = true
	close(h.ch)
}

func (h *handoff) await() { <-h.ch }

// maintainIndexes is the secondary-index maintainer: for each
// live index, independently, delete the old index entry (if any) strictly
// before setting the new one, then return once every index's update has
// completed. Indexes are updated concurrently as tasks gated by an
// errgroup acting as a drain guard — no ordering is guaranteed between
// distinct indexes.
//
// Every bucket a task will touch is resolved up front, under writeMu,
// before any goroutine is started. A writable bbolt Tx lazily allocates
// its parent bucket's child-bucket cache the first time Bucket() is
// called on it, so resolving buckets concurrently from multiple
// goroutines — even if every mutation afterward is serialized — races on
// that cache. Handing each task its already-resolved bucket sidesteps
// the problem entirely instead of trying to widen the lock around it.
func (tx *Tx) maintainIndexes(ctx context.Context, tbl *Table, report ModificationReport) error {
	indexes := tbl.indexes
	if len(indexes) == 0 {
		return nil
	}

	tx.writeMu.Lock()
	blob := tx.primaryBlob(tbl)
	buckets := make(map[*Index]storageBucket, len(indexes))
	for _, idx := range indexes {
		buckets[idx] = nonNil(tx.indexBucket(idx))
	}
	tx.writeMu.Unlock()

	h := newHandoff()
	h.set() // the primary write already completed by the time we get here

	g, _ := errgroup.WithContext(ctx)
	for _, idx := range indexes {
		idx, bucket := idx, buckets[idx]
		g.Go(func() error {
			h.await()
			return tx.maintainOneIndex(idx, bucket, blob, report)
		})
	}
	return g.Wait()
}

func (tx *Tx) maintainOneIndex(idx *Index, bucket storageBucket, blob *blobStore, report ModificationReport) error {
	mapping, err := idx.resolveMapping()
	if err != nil {
		return err
	}
	env := newEnv(nil)

	if report.Deleted != nil {
		datum, err := mapping(*report.Deleted, env)
		if err != nil {
			return indexErrf(idx, err, "mapping evaluation failed on delete side")
		}
		keyDel := printSecondary(datum, report.PrimaryKey)

		tx.writeMu.Lock()
		existing := bucket.Get(keyDel)
		err = nil
		if existing != nil {
			err = blob.deleteValue(existing)
		}
		if err == nil {
			err = bucket.Delete(keyDel)
		}
		tx.writeMu.Unlock()
		if err != nil {
			return indexErrf(idx, err, "deleting index entry")
		}
	}

	if report.Added != nil {
		datum, err := mapping(*report.Added, env)
		if err != nil {
			return indexErrf(idx, err, "mapping evaluation failed on add side")
		}
		keyAdd := printSecondary(datum, report.PrimaryKey)

		tx.writeMu.Lock()
		raw, err := blob.writeValue(*report.Added)
		if err == nil {
			err = bucket.Put(keyAdd, raw)
		}
		tx.writeMu.Unlock()
		if err != nil {
			return indexErrf(idx, err, "writing index entry")
		}
	}

	return nil
}

func (tx *Tx) indexBucket(idx *Index) storageBucket {
	return tx.stx.Bucket(idx.table.name, idx.subBucket())
}

// PostConstructIndexes builds (or rebuilds) one or every index of tbl from
// its existing documents: a full table scan re-running the maintainer's add
// side for each stored row.
func (tx *Tx) PostConstructIndexes(ctx context.Context, tbl *Table, only *Index) error {
	for _, idx := range tbl.indexes {
		if only != nil && idx != only {
			continue
		}
		if err := tx.rebuildOneIndex(ctx, idx); err != nil {
			return err
		}
		idx.built = true
	}
	return nil
}

func (tx *Tx) rebuildOneIndex(ctx context.Context, idx *Index) error {
	if err := tx.stx.DeleteBucket(idx.table.name, idx.subBucket()); err != nil && err != ErrBucketNotFound {
		return err
	}
	if _, err := tx.stx.CreateBucket(idx.table.name, idx.subBucket()); err != nil {
		return err
	}

	mapping, err := idx.resolveMapping()
	if err != nil {
		return err
	}
	env := newEnv(nil)
	bucket := nonNil(tx.indexBucket(idx))
	blob := tx.primaryBlob(idx.table)

	return tx.forEachDataRow(idx.table, func(key []byte, doc Document) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		datum, err := mapping(doc, env)
		if err != nil {
			return indexErrf(idx, err, "mapping evaluation failed during post-construct")
		}
		pk, _ := doc.Get(idx.table.primaryKeyField)
		raw, err := blob.writeValue(doc)
		if err != nil {
			return indexErrf(idx, err, "encoding indexed document")
		}
		return bucket.Put(printSecondary(datum, pk), raw)
	})
}
